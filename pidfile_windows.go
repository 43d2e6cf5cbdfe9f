//go:build windows

package main

import "os"

// processAlive reports whether a PID belongs to a live process. On Windows
// os.FindProcess opens a real handle and fails for dead PIDs.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}

	p, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	p.Release()

	return true
}
