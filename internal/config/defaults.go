package config

import "alpaca/internal/client"

const (
	// PasswordEnvVar supplies the API password when no layer sets one.
	PasswordEnvVar = "ALPACA_PASSWORD"

	// DefaultLogLevel is used when the config file does not set logLevel.
	DefaultLogLevel = "info"
)

// GetDefaultConfig returns the built-in configuration.
func GetDefaultConfig() AlpacaConfig {
	return AlpacaConfig{
		Output:            OutputConsole,
		LogLevel:          DefaultLogLevel,
		DefaultConnection: BuiltinConnection(),
	}
}

// BuiltinConnection is the lowest-precedence connection layer.
func BuiltinConnection() client.Connection {
	verify := true
	return client.Connection{
		Host:      client.DefaultHost,
		Port:      client.DefaultPort,
		Protocol:  client.DefaultProtocol,
		TLSVerify: &verify,
	}
}
