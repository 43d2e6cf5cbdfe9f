package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/drivemapper/drivemapper/internal/config"
	"github.com/drivemapper/drivemapper/internal/journal"
	"github.com/drivemapper/drivemapper/internal/reconcile"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Reconcile drive mappings for the current user",
		Long: "Loads the desired-state list, resolves the current user's group\n" +
			"memberships, and applies the minimal set of mount/unmount actions.\n" +
			"Per-mapping failures are logged and the pass continues; only fatal\n" +
			"preconditions (no authorization data, backend missing) abort the run.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runReconcile(cmd.Context())
		},
	}

	cmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "plan only, mutate nothing")

	return cmd
}

// runReconcile executes one full reconciliation pass.
func runReconcile(parent context.Context) error {
	logger := buildLogger()
	ctx := shutdownContext(parent, logger)

	// The backend CLI is not safe under concurrent invocation; two
	// overlapping logon runs must not race each other.
	removePID, err := writePIDFile(pidFilePath(), logger)
	if err != nil {
		return err
	}
	defer removePID()

	started := time.Now()

	backend := buildBackend(resolvedCfg, logger)
	if err := backend.Ping(ctx); err != nil {
		err = fmt.Errorf("preflight: %w", err)
		recordFatal(ctx, logger, started, err)
		return err
	}

	plan, err := computePlan(ctx, resolvedCfg, logger)
	if err != nil {
		recordFatal(ctx, logger, started, err)
		return err
	}

	if flagDryRun {
		return renderPlan(plan)
	}

	executor := reconcile.NewExecutor(backend, buildTable(resolvedCfg, logger), logger,
		executorOptions(resolvedCfg)...)

	results := executor.Apply(ctx, plan)

	recordRun(ctx, logger, started, plan, results)

	return renderResults(results)
}

// executorOptions maps config onto executor options.
func executorOptions(cfg *config.Resolved) []reconcile.ExecutorOption {
	opts := []reconcile.ExecutorOption{
		reconcile.WithVerifyBudget(cfg.VerifyInterval(), cfg.VerifyBudget()),
	}

	if !cfg.Reconcile.VerifyMount {
		opts = append(opts, reconcile.WithoutVerify())
	}

	return opts
}

// recordRun journals the pass. Journal failures are logged, never fatal:
// the mounts are already reconciled and the log stream has the full story.
func recordRun(
	ctx context.Context,
	logger *slog.Logger,
	started time.Time,
	plan *reconcile.Plan,
	results []reconcile.Result,
) {
	failures := 0
	actions := make([]journal.ActionRecord, 0, len(results))

	for i, r := range results {
		if r.Outcome == reconcile.OutcomeFailed {
			failures++
		}

		actions = append(actions, journal.ActionRecord{
			Seq:     i,
			Mapping: r.Mapping.Name,
			Letter:  r.Mapping.Letter,
			Op:      r.Op,
			Outcome: string(r.Outcome),
			Error:   r.Error,
		})
	}

	writeJournal(ctx, logger, journal.Run{
		ID:         journal.NewRunID(),
		StartedAt:  started,
		FinishedAt: time.Now(),
		Outcome:    "completed",
		Mappings:   len(plan.Items),
		Actions:    plan.ActionCount(),
		Failures:   failures,
	}, actions)
}

// recordFatal journals a pass that aborted before any mutation.
func recordFatal(ctx context.Context, logger *slog.Logger, started time.Time, cause error) {
	writeJournal(ctx, logger, journal.Run{
		ID:         journal.NewRunID(),
		StartedAt:  started,
		FinishedAt: time.Now(),
		Outcome:    "fatal: " + cause.Error(),
	}, nil)
}

func writeJournal(ctx context.Context, logger *slog.Logger, run journal.Run, actions []journal.ActionRecord) {
	if !resolvedCfg.Journal.Enabled {
		return
	}

	j, err := journal.Open(ctx, resolvedCfg.Journal.Path, logger)
	if err != nil {
		logger.Warn("journal unavailable", slog.String("error", err.Error()))
		return
	}
	defer j.Close()

	if err := j.Record(ctx, run, actions); err != nil {
		logger.Warn("journal write failed", slog.String("error", err.Error()))
	}
}
