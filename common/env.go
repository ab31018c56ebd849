// Package common provides shared types and constants used across the restcue
// daemon, its browser extension bridge and the command-line client.
package common

// Environment variable names for configuration.
const (
	// ConfigPathEnv overrides the location of the YAML config file.
	ConfigPathEnv = "RESTCUE_CONFIG"

	// ListenEnv overrides the daemon listen address.
	ListenEnv = "RESTCUE_LISTEN"

	// SecretEnv overrides the RPC bearer secret.
	SecretEnv = "RESTCUE_SECRET"

	// DebugEnv is the environment variable to enable debug logging.
	DebugEnv = "RESTCUE_DEBUG"
)
