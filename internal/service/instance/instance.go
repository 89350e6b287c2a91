// Package instance guards against two processes driving the same camera and pins.
package instance

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mitchellh/go-ps"
)

// commLength is the length Linux truncates process names to in /proc/<pid>/stat.
const commLength = 15

// ErrAlreadyRunning is returned when another process with the same executable name exists.
var ErrAlreadyRunning = errors.New("another instance is already running")

// EnsureSingle fails when another process runs the current executable.
func EnsureSingle() error {
	executable, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}

	processes, err := ps.Processes()
	if err != nil {
		return fmt.Errorf("list processes: %w", err)
	}

	if pid, found := findOther(processes, os.Getpid(), filepath.Base(executable)); found {
		return fmt.Errorf("%w (pid %d)", ErrAlreadyRunning, pid)
	}

	return nil
}

// findOther returns the pid of a process named name other than self.
// Children of self (e.g. preview helpers) are ignored.
func findOther(processes []ps.Process, self int, name string) (int, bool) {
	for _, process := range processes {
		if process.Pid() == self || process.PPid() == self {
			continue
		}

		if sameName(process.Executable(), name) {
			return process.Pid(), true
		}
	}

	return 0, false
}

// sameName compares a reported process name with an executable name,
// accounting for kernel truncation.
func sameName(reported, name string) bool {
	if len(name) > commLength && len(reported) == commLength {
		return name[:commLength] == reported
	}

	return reported == name
}
