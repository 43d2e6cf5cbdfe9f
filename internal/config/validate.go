package config

import (
	"errors"
	"fmt"
	"time"
)

// Validate checks the parsed file for structural problems independent of
// the environment layer.
func Validate(cfg *Config) error {
	var errs []error

	switch cfg.Auth.Provider {
	case ProviderLocal, ProviderEntra:
	default:
		errs = append(errs, fmt.Errorf("auth.provider must be %q or %q, got %q",
			ProviderLocal, ProviderEntra, cfg.Auth.Provider))
	}

	if cfg.Auth.Provider == ProviderEntra {
		if cfg.Auth.TenantID == "" {
			errs = append(errs, errors.New("auth.tenant_id is required for the entra provider"))
		}

		if cfg.Auth.ClientID == "" {
			errs = append(errs, errors.New("auth.client_id is required for the entra provider"))
		}

		if cfg.Auth.UPNSuffix == "" {
			errs = append(errs, errors.New("auth.upn_suffix is required for the entra provider"))
		}
	}

	if cfg.Backend.Binary == "" {
		errs = append(errs, errors.New("backend.binary must not be empty"))
	}

	// Without a host fragment no mount-table entry can ever be attributed
	// to the backend: every pass would classify its own mounts as foreign
	// and remount them.
	if cfg.Backend.Host == "" {
		errs = append(errs, errors.New("backend.host must not be empty"))
	}

	if cfg.Personal.Enabled {
		if len(cfg.Personal.Letter) != 1 {
			errs = append(errs, fmt.Errorf("personal.letter %q is not a single letter", cfg.Personal.Letter))
		}

		if cfg.Personal.Path == "" {
			errs = append(errs, errors.New("personal.path must not be empty"))
		}
	}

	for _, d := range []struct {
		key, value string
	}{
		{"backend.call_timeout", cfg.Backend.CallTimeout},
		{"reconcile.verify_interval", cfg.Reconcile.VerifyInterval},
		{"reconcile.verify_budget", cfg.Reconcile.VerifyBudget},
	} {
		if d.value == "" {
			continue
		}

		if _, err := time.ParseDuration(d.value); err != nil {
			errs = append(errs, fmt.Errorf("%s: invalid duration %q", d.key, d.value))
		}
	}

	if cfg.Journal.Enabled && cfg.Journal.Path == "" {
		errs = append(errs, errors.New("journal.path must not be empty when the journal is enabled"))
	}

	return errors.Join(errs...)
}

// ValidateResolved checks constraints that depend on the environment layer.
func ValidateResolved(r *Resolved) error {
	var errs []error

	if r.Source.Path == "" {
		errs = append(errs, errors.New("source.path must not be empty"))
	}

	if r.Auth.Provider == ProviderEntra && r.ClientSecret == "" {
		errs = append(errs, fmt.Errorf(
			"the entra provider requires the client secret in %s", EnvClientSecret))
	}

	return errors.Join(errs...)
}
