package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/drivemapper/drivemapper/internal/mount"
)

// Verification tuning. The backend activates mounts asynchronously, so a
// clean exit does not mean the drive is up yet; the executor polls the
// mount table until the letter reads as correctly mounted or the budget
// runs out.
const (
	defaultVerifyInterval = 2 * time.Second
	defaultVerifyBudget   = 20 * time.Second
)

// Executor applies a Plan serially: one backend invocation at a time, each
// awaited to completion. The backend CLI is a single shared client not
// documented as concurrency-safe, so no overlap is issued even across
// independent mappings.
type Executor struct {
	backend Backend
	table   Table
	logger  *slog.Logger

	verify         bool
	verifyInterval time.Duration
	verifyBudget   time.Duration

	// sleepFunc is called between verification polls. Tests override it
	// to avoid real delays.
	sleepFunc func(ctx context.Context, d time.Duration) error
}

// ExecutorOption customizes an Executor.
type ExecutorOption func(*Executor)

// WithoutVerify disables post-mount state verification.
func WithoutVerify() ExecutorOption {
	return func(e *Executor) { e.verify = false }
}

// WithVerifyBudget overrides the verification poll interval and budget.
func WithVerifyBudget(interval, budget time.Duration) ExecutorOption {
	return func(e *Executor) {
		if interval > 0 {
			e.verifyInterval = interval
		}

		if budget > 0 {
			e.verifyBudget = budget
		}
	}
}

// WithSleepFunc substitutes the inter-poll sleep (tests).
func WithSleepFunc(f func(ctx context.Context, d time.Duration) error) ExecutorOption {
	return func(e *Executor) { e.sleepFunc = f }
}

// NewExecutor creates an Executor applying plans through the given backend
// and mount table.
func NewExecutor(backend Backend, table Table, logger *slog.Logger, opts ...ExecutorOption) *Executor {
	if logger == nil {
		logger = slog.Default()
	}

	e := &Executor{
		backend:        backend,
		table:          table,
		logger:         logger,
		verify:         true,
		verifyInterval: defaultVerifyInterval,
		verifyBudget:   defaultVerifyBudget,
		sleepFunc:      sleepCtx,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Apply executes every item in plan order. Failures are per-mapping: each
// is logged with the mapping name, the attempted op, and the cause, and the
// loop continues. The pass only stops early if ctx is canceled.
func (e *Executor) Apply(ctx context.Context, plan *Plan) []Result {
	results := make([]Result, 0, len(plan.Items))

	for i := range plan.Items {
		item := &plan.Items[i]

		if ctx.Err() != nil {
			e.logger.Warn("run canceled, remaining mappings untouched",
				slog.Int("remaining", len(plan.Items)-i),
			)

			break
		}

		results = append(results, e.applyOne(ctx, item))
	}

	return results
}

// applyOne executes a single planned item.
func (e *Executor) applyOne(ctx context.Context, item *Item) Result {
	res := Result{
		Mapping: item.Mapping,
		Op:      item.Op,
	}

	if item.ProbeError != "" {
		res.Outcome = OutcomeSkipped
		res.Error = item.ProbeError

		return res
	}

	var err error

	switch item.op {
	case OpNone:
		res.Outcome = OutcomeNone
		return res

	case OpMount:
		err = e.doMount(ctx, item)

	case OpRemount:
		// Never leave the stale entry in place while adding a new one at
		// the same letter: forced delete strictly precedes the mount.
		if err = e.table.Delete(ctx, item.Mapping.Letter); err == nil {
			err = e.doMount(ctx, item)
		}

	case OpUnmount:
		err = e.doUnmount(ctx, item)

	case OpCleanup:
		err = e.table.Delete(ctx, item.Mapping.Letter)
	}

	if err != nil {
		e.logger.Error("action failed",
			slog.String("name", item.Mapping.Name),
			slog.String("letter", item.Mapping.Letter),
			slog.String("op", item.Op),
			slog.String("error", err.Error()),
		)

		res.Outcome = OutcomeFailed
		res.Error = err.Error()

		return res
	}

	e.logger.Info("action applied",
		slog.String("name", item.Mapping.Name),
		slog.String("letter", item.Mapping.Letter),
		slog.String("op", item.Op),
	)

	res.Outcome = OutcomeApplied

	return res
}

// doMount runs backend add then connect, then verifies the observed state.
// An add failure prevents connect from being attempted.
func (e *Executor) doMount(ctx context.Context, item *Item) error {
	m := item.Mapping

	if err := e.backend.Add(ctx, m.Name, m.Domain, m.Letter, m.Path); err != nil {
		return err
	}

	if err := e.backend.Connect(ctx, m.Name); err != nil {
		return err
	}

	if !e.verify {
		return nil
	}

	return e.verifyMounted(ctx, m.Letter)
}

// doUnmount deletes the OS-level entry, then removes the backend mapping.
// Both halves are idempotent against already-absent state.
func (e *Executor) doUnmount(ctx context.Context, item *Item) error {
	if err := e.table.Delete(ctx, item.Mapping.Letter); err != nil {
		return err
	}

	return e.backend.Remove(ctx, item.Mapping.Name)
}

// verifyMounted polls the mount table until the letter reads as correctly
// mounted. Exit codes are not trusted as success signals; the observed
// state is.
func (e *Executor) verifyMounted(ctx context.Context, letter string) error {
	deadline := time.Now().Add(e.verifyBudget)

	for {
		state, err := e.table.State(ctx, letter)
		if err == nil && state == mount.MountedCorrect {
			return nil
		}

		if time.Now().After(deadline) {
			if err != nil {
				return fmt.Errorf("reconcile: verify %s: %w", letter, err)
			}

			return fmt.Errorf("reconcile: %s not mounted after %s (state %s)",
				letter, e.verifyBudget, state)
		}

		if sleepErr := e.sleepFunc(ctx, e.verifyInterval); sleepErr != nil {
			return fmt.Errorf("reconcile: verify %s canceled: %w", letter, sleepErr)
		}
	}
}

// sleepCtx waits for d or until ctx is canceled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
