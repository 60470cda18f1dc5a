// Package context provides kubectl-style connection profiles for alpaca.
//
// A context names one ALPACA Operator API instance so that manifests do not
// need to carry an apiConnection block. Contexts are stored in
// ~/.config/alpaca/contexts.yaml (or under --config-path):
//
//	current-context: prod
//	contexts:
//	  - name: lab
//	    connection:
//	      host: alpaca-lab.example.com
//	      tls_verify: false
//	  - name: prod
//	    connection:
//	      host: alpaca.example.com
//	      port: 8443
//	      username: automation
//	    settings:
//	      output: table
//
// # Selection
//
// Storage.Select resolves which context a command uses:
//  1. --context flag
//  2. ALPACA_CONTEXT environment variable
//  3. current-context from contexts.yaml
//
// The selected context is one layer of the connection; see package config
// for how it is merged with the manifest and the defaults.
//
// The file is written with mode 0600 since it may hold passwords. Storage
// serializes access within one process only.
package context
