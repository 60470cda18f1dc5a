package cli

import (
	"alpaca/internal/client"
	"alpaca/internal/config"
)

// ResolveConnection assembles the API connection, highest precedence first:
//  1. override (the manifest's apiConnection)
//  2. the selected context (--context, ALPACA_CONTEXT, current-context)
//  3. defaultConnection from config.yaml
//  4. built-in defaults
//
// A password that none of the layers sets is read from ALPACA_PASSWORD.
func (e *Executor) ResolveConnection(override *client.Connection) (client.Connection, error) {
	var layers []client.Connection
	if override != nil {
		layers = append(layers, *override)
	}

	selected, err := e.storage.Select(e.options.Context)
	if err != nil {
		return client.Connection{}, err
	}
	if selected != nil {
		layers = append(layers, selected.Connection)
	}
	layers = append(layers, e.config.DefaultConnection, config.BuiltinConnection())

	conn, err := config.MergeConnections(layers...)
	if err != nil {
		return client.Connection{}, err
	}
	if conn.Password == "" {
		conn.Password = e.getenv(config.PasswordEnvVar)
	}
	return conn, nil
}
