package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// CLIOverrides holds values from command-line flags. Flags always win over
// the environment and the file.
type CLIOverrides struct {
	ConfigPath string
	SourcePath string
}

// Resolved is the effective configuration plus the secrets resolved
// alongside it.
type Resolved struct {
	Config

	// ClientSecret is the identity-provider client secret from the
	// environment. Empty for the local provider.
	ClientSecret string
}

// Load reads and parses a TOML config file, rejects unknown keys, and
// validates the result.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if err := checkUnknownKeys(&md); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault reads the config file if it exists, otherwise returns all
// defaults. Zero-config works for the local-provider, local-file case.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}

	return Load(path)
}

// Resolve applies the override chain: defaults -> file -> environment ->
// CLI flags, then validates the effective result.
func Resolve(env EnvOverrides, cli CLIOverrides) (*Resolved, error) {
	cfgPath := DefaultConfigPath()
	if env.ConfigPath != "" {
		cfgPath = env.ConfigPath
	}

	if cli.ConfigPath != "" {
		cfgPath = cli.ConfigPath
	}

	cfg, err := LoadOrDefault(cfgPath)
	if err != nil {
		return nil, err
	}

	if env.SourcePath != "" {
		cfg.Source.Path = env.SourcePath
	}

	if cli.SourcePath != "" {
		cfg.Source.Path = cli.SourcePath
	}

	resolved := &Resolved{
		Config:       *cfg,
		ClientSecret: env.ClientSecret,
	}

	if err := ValidateResolved(resolved); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return resolved, nil
}
