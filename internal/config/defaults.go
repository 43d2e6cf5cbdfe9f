package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// DefaultConfig returns a Config populated with every default value.
// The file, environment, and CLI layers override from here.
func DefaultConfig() *Config {
	return &Config{
		Source: SourceConfig{
			Path: filepath.Join(DataDir(), "drives.csv"),
		},
		Backend: BackendConfig{
			Binary:      "clouddrive",
			UseSSO:      true,
			Host:        `\\clouddrive`,
			CallTimeout: "45s",
		},
		Personal: PersonalConfig{
			Enabled: false,
			Name:    "My Drive",
			Letter:  "P",
			Path:    "/Private/{username}",
		},
		Auth: AuthConfig{
			Provider:      ProviderLocal,
			RetryAttempts: 2,
		},
		Reconcile: ReconcileConfig{
			CleanupForeign: false,
			VerifyMount:    true,
			VerifyInterval: "2s",
			VerifyBudget:   "20s",
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		Journal: JournalConfig{
			Enabled: true,
			Path:    filepath.Join(DataDir(), "journal.db"),
		},
		Install: InstallConfig{
			MarkerPath:  filepath.Join(DataDir(), "installed-version"),
			FirewallTCP: 33001,
			FirewallUDP: 33001,
		},
	}
}

// DataDir returns the agent's machine-wide data directory.
func DataDir() string {
	if runtime.GOOS == "windows" {
		base := os.Getenv("PROGRAMDATA")
		if base == "" {
			base = `C:\ProgramData`
		}

		return filepath.Join(base, "drivemapper")
	}

	return "/var/lib/drivemapper"
}

// DefaultConfigPath returns the config file location used when neither the
// environment nor the CLI overrides it.
func DefaultConfigPath() string {
	return filepath.Join(DataDir(), "drivemapper.toml")
}
