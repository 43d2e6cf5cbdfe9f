package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// pidFilePermissions: owner rw, group/other r.
const pidFilePermissions = 0o644

// pidDirPermissions: owner rwx, group/other rx.
const pidDirPermissions = 0o755

// pidFilePath returns the single-instance lock location. Per-user, not
// machine-wide: two different users reconciling their own drives in
// parallel sessions is fine, the same user twice is not.
func pidFilePath() string {
	who := os.Getenv("USERNAME") // Windows
	if who == "" {
		who = os.Getenv("USER")
	}

	if who == "" {
		who = "default"
	}

	return filepath.Join(os.TempDir(), "drivemapper-"+who+".pid")
}

// writePIDFile creates the PID file exclusively, or takes it over when the
// recorded owner is no longer alive. Returns a cleanup function removing
// the file. The exclusive-create approach works on every platform the
// agent builds for, unlike flock.
func writePIDFile(path string, logger *slog.Logger) (cleanup func(), err error) {
	if path == "" {
		return nil, errors.New("PID file path is empty")
	}

	if mkdirErr := os.MkdirAll(filepath.Dir(path), pidDirPermissions); mkdirErr != nil {
		return nil, fmt.Errorf("creating PID file directory: %w", mkdirErr)
	}

	for range 2 {
		f, openErr := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, pidFilePermissions)
		if openErr == nil {
			if _, writeErr := fmt.Fprintf(f, "%d\n", os.Getpid()); writeErr != nil {
				f.Close()
				os.Remove(path)

				return nil, fmt.Errorf("writing PID file: %w", writeErr)
			}

			f.Close()

			return func() { os.Remove(path) }, nil
		}

		if !errors.Is(openErr, os.ErrExist) {
			return nil, fmt.Errorf("creating PID file: %w", openErr)
		}

		pid, readErr := readPIDFile(path)
		if readErr == nil && processAlive(pid) {
			return nil, fmt.Errorf("another drivemapper run is in progress (pid %d, %s)", pid, path)
		}

		// Stale or unreadable — remove and retry the exclusive create once.
		logger.Warn("removing stale PID file",
			slog.String("path", path),
			slog.Int("pid", pid),
		)

		if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			return nil, fmt.Errorf("removing stale PID file: %w", rmErr)
		}
	}

	return nil, fmt.Errorf("could not acquire PID file %s", path)
}

// readPIDFile parses the PID recorded in the file.
func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("parsing PID file %s: %w", path, err)
	}

	return pid, nil
}
