package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/drivemapper/drivemapper/internal/authz"
	"github.com/drivemapper/drivemapper/internal/config"
	"github.com/drivemapper/drivemapper/internal/mapping"
	"github.com/drivemapper/drivemapper/internal/mount"
	"github.com/drivemapper/drivemapper/internal/reconcile"
)

// buildOracle constructs the authorization oracle selected by config.
func buildOracle(cfg *config.Resolved, logger *slog.Logger) (authz.Oracle, error) {
	switch cfg.Auth.Provider {
	case config.ProviderLocal:
		return authz.NewLocalOracle(nil, logger), nil

	case config.ProviderEntra:
		username, err := authz.CurrentUsername()
		if err != nil {
			return nil, fmt.Errorf("resolving current user: %w", err)
		}

		return authz.NewEntraOracle(authz.EntraConfig{
			TenantID:      cfg.Auth.TenantID,
			ClientID:      cfg.Auth.ClientID,
			ClientSecret:  cfg.ClientSecret,
			UserPrincipal: username + "@" + cfg.Auth.UPNSuffix,
			TokenURL:      cfg.Auth.TokenURL,
			GraphBaseURL:  cfg.Auth.GraphURL,
			RetryAttempts: cfg.Auth.RetryAttempts,
		}, defaultHTTPClient(), logger), nil

	default:
		// Unreachable: config validation rejects other providers.
		return nil, fmt.Errorf("unknown auth provider %q", cfg.Auth.Provider)
	}
}

// buildBackend constructs the vendor-client backend.
func buildBackend(cfg *config.Resolved, logger *slog.Logger) *mount.CLIBackend {
	return mount.NewCLIBackend(
		cfg.Backend.Binary,
		cfg.Backend.UseSSO,
		logger,
		mount.WithTimeout(cfg.BackendCallTimeout()),
	)
}

// buildTable constructs the OS mount-table view.
func buildTable(cfg *config.Resolved, logger *slog.Logger) *mount.StateTable {
	return mount.NewStateTable(nil, cfg.Backend.Host, nil, logger)
}

// buildPlanner constructs the planner with the configured policy.
func buildPlanner(cfg *config.Resolved, table reconcile.Table, logger *slog.Logger) *reconcile.Planner {
	return reconcile.NewPlanner(table, reconcile.Policy{
		CleanupForeign: cfg.Reconcile.CleanupForeign,
	}, logger)
}

// personalDrive renders the config's personal-drive section.
func personalDrive(cfg *config.Resolved) reconcile.PersonalDrive {
	return reconcile.PersonalDrive{
		Enabled:      cfg.Personal.Enabled,
		Name:         cfg.Personal.Name,
		Letter:       cfg.Personal.Letter,
		Domain:       cfg.Backend.Domain,
		PathTemplate: cfg.Personal.Path,
	}
}

// loadMappings reads and parses the desired-state list.
func loadMappings(ctx context.Context, cfg *config.Resolved, logger *slog.Logger) ([]mapping.DriveMapping, error) {
	return mapping.Load(ctx, defaultHTTPClient(), cfg.Source.Path, logger)
}

// computePlan runs the full read-only half of a pass: load desired state,
// resolve authorization, probe, classify. Shared by run and plan.
func computePlan(ctx context.Context, cfg *config.Resolved, logger *slog.Logger) (*reconcile.Plan, error) {
	oracle, err := buildOracle(cfg, logger)
	if err != nil {
		return nil, err
	}

	return computePlanWith(ctx, cfg, logger, oracle, buildTable(cfg, logger))
}

// computePlanWith is computePlan with the oracle and mount table injected.
func computePlanWith(
	ctx context.Context,
	cfg *config.Resolved,
	logger *slog.Logger,
	oracle authz.Oracle,
	table reconcile.Table,
) (*reconcile.Plan, error) {
	mappings, err := loadMappings(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	// A failed membership lookup is fatal: without authorization data every
	// mapping would read as unauthorized and the pass would unmount all
	// managed drives. Nothing may be probed or mutated past this point.
	groups, err := oracle.Groups(ctx)
	if err != nil {
		return nil, err
	}

	planner := buildPlanner(cfg, table, logger)

	plan, err := planner.Plan(ctx, mappings, groups.Contains)
	if err != nil {
		return nil, err
	}

	if cfg.Personal.Enabled {
		username, err := authz.CurrentUsername()
		if err != nil {
			return nil, fmt.Errorf("resolving current user: %w", err)
		}

		if err := planner.AddPersonal(ctx, plan, personalDrive(cfg), username); err != nil {
			return nil, err
		}
	}

	return plan, nil
}
