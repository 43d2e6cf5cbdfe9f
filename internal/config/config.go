// Package config implements TOML configuration loading, strict validation,
// and layered overrides (defaults -> file -> environment -> CLI flags) for
// the drivemapper agent. Unknown keys are fatal with "did you mean?"
// suggestions: a silently ignored typo in an endpoint-management config is
// a misconfigured fleet, not a cosmetic bug.
//
// The OAuth2 client secret is deliberately absent from the file schema.
// It is read only from the environment; see ReadEnvOverrides.
package config

import "time"

// Config is the top-level structure parsed from the TOML file.
type Config struct {
	Source    SourceConfig    `toml:"source"`
	Backend   BackendConfig   `toml:"backend"`
	Personal  PersonalConfig  `toml:"personal"`
	Auth      AuthConfig      `toml:"auth"`
	Reconcile ReconcileConfig `toml:"reconcile"`
	Logging   LoggingConfig   `toml:"logging"`
	Journal   JournalConfig   `toml:"journal"`
	Install   InstallConfig   `toml:"install"`
}

// SourceConfig locates the desired-state list.
type SourceConfig struct {
	// Path is a local path, a UNC share path, or an HTTP(S) URL.
	Path string `toml:"path"`
}

// BackendConfig describes the vendor mount client.
type BackendConfig struct {
	// Binary is the client executable name or full path.
	Binary string `toml:"binary"`

	// Domain is the cloud tenant/domain qualifier passed on add.
	Domain string `toml:"domain"`

	// UseSSO passes the single-sign-on flag on add.
	UseSSO bool `toml:"use_sso"`

	// Host is the remote-name fragment that attributes a mount-table entry
	// to this backend (e.g. `\\clouddrive` or the provider hostname).
	// Entries not carrying it are classified as foreign.
	Host string `toml:"host"`

	// CallTimeout bounds each backend invocation, e.g. "45s".
	CallTimeout string `toml:"call_timeout"`
}

// PersonalConfig describes the identity's home drive.
type PersonalConfig struct {
	Enabled bool   `toml:"enabled"`
	Name    string `toml:"name"`
	Letter  string `toml:"letter"`

	// Path is the remote path template; "{username}" is replaced with the
	// logged-on username, e.g. "/Private/{username}".
	Path string `toml:"path"`
}

// Auth provider names.
const (
	ProviderLocal = "local"
	ProviderEntra = "entra"
)

// AuthConfig selects and configures the authorization oracle.
type AuthConfig struct {
	// Provider is "local" (directory membership query on the endpoint) or
	// "entra" (identity-provider REST lookup).
	Provider string `toml:"provider"`

	// Entra-only settings. The client secret comes from the environment.
	TenantID  string `toml:"tenant_id"`
	ClientID  string `toml:"client_id"`
	UPNSuffix string `toml:"upn_suffix"`
	TokenURL  string `toml:"token_url"`
	GraphURL  string `toml:"graph_url"`

	// RetryAttempts is the bounded retry count for the remote oracle.
	RetryAttempts int `toml:"retry_attempts"`
}

// ReconcileConfig holds reconciliation policy and verification tuning.
type ReconcileConfig struct {
	// CleanupForeign tears down foreign/disconnected entries at declared
	// letters even when the identity is not authorized for the mapping.
	CleanupForeign bool `toml:"cleanup_foreign"`

	// VerifyMount re-probes observed state after each mount instead of
	// trusting the backend's exit code.
	VerifyMount    bool   `toml:"verify_mount"`
	VerifyInterval string `toml:"verify_interval"`
	VerifyBudget   string `toml:"verify_budget"`
}

// LoggingConfig controls the stderr handler level and the rotating
// transcript file.
type LoggingConfig struct {
	Level      string `toml:"level"`
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
}

// JournalConfig controls the run-history database.
type JournalConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// InstallConfig configures the client install/update flow.
type InstallConfig struct {
	// DownloadPage is the vendor page the latest version and package URL
	// are parsed from.
	DownloadPage string `toml:"download_page"`

	// MarkerPath is the file recording the installed version.
	MarkerPath string `toml:"marker_path"`

	// FirewallTCP and FirewallUDP are the inbound ports opened for the
	// client's network component.
	FirewallTCP int `toml:"firewall_tcp"`
	FirewallUDP int `toml:"firewall_udp"`
}

// BackendCallTimeout returns the parsed per-call timeout.
// Validation guarantees parseability; the zero default applies otherwise.
func (c *Config) BackendCallTimeout() time.Duration {
	return parseDurationOr(c.Backend.CallTimeout, 45*time.Second)
}

// VerifyInterval returns the parsed verification poll interval.
func (c *Config) VerifyInterval() time.Duration {
	return parseDurationOr(c.Reconcile.VerifyInterval, 2*time.Second)
}

// VerifyBudget returns the parsed verification budget.
func (c *Config) VerifyBudget() time.Duration {
	return parseDurationOr(c.Reconcile.VerifyBudget, 20*time.Second)
}

func parseDurationOr(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}

	return d
}
