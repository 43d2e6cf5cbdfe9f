//go:build !windows

package main

import (
	"os"
	"syscall"
)

// processAlive reports whether a PID belongs to a live process. On Unix
// FindProcess always succeeds, so probe with signal 0.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}

	p, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	return p.Signal(syscall.Signal(0)) == nil
}
