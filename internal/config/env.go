package config

import "os"

// Environment variable names.
const (
	EnvConfig = "DRIVEMAPPER_CONFIG"
	EnvSource = "DRIVEMAPPER_SOURCE"

	// EnvClientSecret is the only way to supply the OAuth2 client secret.
	// Secrets never appear in the config file.
	EnvClientSecret = "DRIVEMAPPER_CLIENT_SECRET"
)

// EnvOverrides holds values read from the environment.
type EnvOverrides struct {
	ConfigPath   string
	SourcePath   string
	ClientSecret string
}

// ReadEnvOverrides reads the override environment variables.
func ReadEnvOverrides() EnvOverrides {
	return EnvOverrides{
		ConfigPath:   os.Getenv(EnvConfig),
		SourcePath:   os.Getenv(EnvSource),
		ClientSecret: os.Getenv(EnvClientSecret),
	}
}
