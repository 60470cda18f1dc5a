// Package cli holds the plumbing shared by alpaca's commands.
//
// Executor loads config.yaml and contexts.yaml from the configuration
// directory, settles the output format (flag, then context settings, then
// config, then console), resolves the API connection through its layers and
// wraps long-running calls in a spinner on stderr.
//
// Errors are mapped to process exit codes by ExitCode:
//
//	0  success
//	1  general failure (API errors, unreachable server, missing resources)
//	2  invalid input (flags, manifests, configuration, unknown context)
//	3  authentication failed
//
// Transport failures are turned into a ConnectionError by DescribeError,
// which classifies them as TLS, DNS, timeout or network problems and adds
// a hint on what to check.
package cli
