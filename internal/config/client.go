package config

import "strings"

// ClientConfig holds configuration for the meetnotes CLI.
type ClientConfig struct {
	DaemonURL  string
	BackendURL string
	LogLevel   string
}

// LoadClient reads CLI configuration from environment variables.
func LoadClient() (*ClientConfig, error) {
	loadDotEnv()
	return &ClientConfig{
		DaemonURL:  strings.TrimRight(getEnvOrDefault("MEETNOTES_DAEMON_URL", "http://127.0.0.1:8190"), "/"),
		BackendURL: strings.TrimRight(getEnvOrDefault("MEETNOTES_BACKEND_URL", "http://localhost:5000"), "/"),
		LogLevel:   strings.ToLower(getEnvOrDefault("MEETNOTES_LOG_LEVEL", "warn")),
	}, nil
}
