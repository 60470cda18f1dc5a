// Package config provides configuration management for alpaca.
//
// Configuration is loaded from a single directory, ~/.config/alpaca by
// default or the directory given with --config-path. It contains:
//   - config.yaml (this package)
//   - contexts.yaml (package context)
//
// # config.yaml
//
//	output: table
//	logLevel: info
//	defaultConnection:
//	  host: alpaca.example.com
//	  port: 8443
//	  protocol: https
//	  username: admin
//	  tls_verify: true
//
// Every key is optional. Missing keys keep the built-in defaults
// (console output, info logging, https://localhost:8443 with TLS
// verification). Invalid values are reported as *ConfigurationError.
//
// # Connection layering
//
// The connection used for a command is assembled from several layers with
// MergeConnections, highest precedence first:
//  1. apiConnection inside the manifest
//  2. the selected context (--context, ALPACA_CONTEXT or current-context)
//  3. defaultConnection from config.yaml
//  4. built-in defaults
//
// A password that no layer provides is read from ALPACA_PASSWORD.
package config
