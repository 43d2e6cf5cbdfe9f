package mount

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// defaultCallTimeout bounds each backend invocation. The source behavior
// waited indefinitely; a generous bound turns a hung client into a
// per-mapping failure instead of a stuck logon.
const defaultCallTimeout = 45 * time.Second

// Runner executes the backend binary and returns its combined output.
// Defined at the consumer so tests inject command capture instead of a
// real client.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// execRunner is the default Runner backed by os/exec.
type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// CLIBackend drives the vendor client through its command-line surface.
// The client is a single shared binary whose CLI is not documented as
// concurrency-safe, so callers must serialize invocations; the reconciler
// already runs strictly serially.
type CLIBackend struct {
	binary  string
	useSSO  bool
	timeout time.Duration
	runner  Runner
	logger  *slog.Logger

	// lookPath is swapped in tests.
	lookPath func(string) (string, error)
}

// CLIOption customizes a CLIBackend.
type CLIOption func(*CLIBackend)

// WithRunner substitutes the command runner (tests).
func WithRunner(r Runner) CLIOption {
	return func(b *CLIBackend) { b.runner = r }
}

// WithTimeout overrides the per-call timeout.
func WithTimeout(d time.Duration) CLIOption {
	return func(b *CLIBackend) {
		if d > 0 {
			b.timeout = d
		}
	}
}

// WithLookPath substitutes executable resolution (tests).
func WithLookPath(f func(string) (string, error)) CLIOption {
	return func(b *CLIBackend) { b.lookPath = f }
}

// NewCLIBackend creates a Backend that shells out to the vendor client at
// binary. useSSO passes the single-sign-on flag on add operations.
func NewCLIBackend(binary string, useSSO bool, logger *slog.Logger, opts ...CLIOption) *CLIBackend {
	if logger == nil {
		logger = slog.Default()
	}

	b := &CLIBackend{
		binary:   binary,
		useSSO:   useSSO,
		timeout:  defaultCallTimeout,
		runner:   execRunner{},
		logger:   logger,
		lookPath: exec.LookPath,
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// Ping verifies the backend binary resolves on this host.
func (b *CLIBackend) Ping(_ context.Context) error {
	if _, err := b.lookPath(b.binary); err != nil {
		return fmt.Errorf("%w: %s", ErrBackendMissing, b.binary)
	}

	return nil
}

// Add creates a mapping definition: label, tenant domain, SSO flag, target
// letter, and remote path.
func (b *CLIBackend) Add(ctx context.Context, name, domain, letter, remotePath string) error {
	args := []string{"add", "-name", name, "-domain", domain, "-letter", letter + ":", "-path", remotePath}
	if b.useSSO {
		args = append(args, "-sso")
	}

	if err := b.run(ctx, args); err != nil {
		return fmt.Errorf("mount: add %s: %w", name, err)
	}

	return nil
}

// Connect activates a mapping by label. The client activates mounts
// asynchronously, so success here does not yet mean the drive is visible —
// the executor re-verifies observed state afterwards.
func (b *CLIBackend) Connect(ctx context.Context, name string) error {
	if err := b.run(ctx, []string{"connect", "-name", name}); err != nil {
		return fmt.Errorf("mount: connect %s: %w", name, err)
	}

	return nil
}

// Remove deletes a mapping definition. A nonzero exit is logged but not
// returned: the client exits nonzero when the mapping is already gone, and
// remove must be idempotent.
func (b *CLIBackend) Remove(ctx context.Context, name string) error {
	err := b.run(ctx, []string{"remove", "-name", name})
	if err == nil {
		return nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		b.logger.Warn("remove exited nonzero, treating as already removed",
			slog.String("name", name),
			slog.Int("exit_code", exitErr.ExitCode()),
		)

		return nil
	}

	return fmt.Errorf("mount: remove %s: %w", name, err)
}

// run invokes the client with a bounded timeout and logs the exit code.
// The source behavior never inspected exit codes; they are logged here so
// partial failures stop being silent, without changing control flow beyond
// surfacing the error to the caller.
func (b *CLIBackend) run(ctx context.Context, args []string) error {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	b.logger.Debug("invoking mount backend",
		slog.String("binary", b.binary),
		slog.String("args", strings.Join(args, " ")),
	)

	out, err := b.runner.Run(ctx, b.binary, args...)

	if ctx.Err() == context.DeadlineExceeded {
		return fmt.Errorf("backend call timed out after %s", b.timeout)
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			b.logger.Warn("backend exited nonzero",
				slog.String("args", strings.Join(args, " ")),
				slog.Int("exit_code", exitErr.ExitCode()),
				slog.String("output", strings.TrimSpace(string(out))),
			)

			return fmt.Errorf("backend exited %d (%s): %w",
				exitErr.ExitCode(), strings.TrimSpace(string(out)), exitErr)
		}

		return err
	}

	b.logger.Debug("backend call succeeded",
		slog.String("args", strings.Join(args, " ")),
	)

	return nil
}
