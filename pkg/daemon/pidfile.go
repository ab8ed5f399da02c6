package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// AcquirePID claims the pidfile at path for the current process. It
// fails when another live process holds it; a file left behind by a
// dead process is reclaimed. Acquiring a file we already own is a
// no-op, so a restart within the same process cannot deadlock itself.
func AcquirePID(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create PID directory: %w", err)
	}

	self := os.Getpid()
	if holder, err := ReadPID(path); err == nil {
		switch {
		case holder == self:
			return nil
		case IsProcessAlive(holder):
			return fmt.Errorf("daemon already running (PID %d)", holder)
		default:
			os.Remove(path)
		}
	}

	// Same tmp+rename dance as the health file, so a crash mid-write
	// never leaves a truncated pidfile.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(strconv.Itoa(self)), 0o644); err != nil {
		return fmt.Errorf("write temp PID file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename PID file: %w", err)
	}
	return nil
}

// ReleasePID removes the pidfile, but only when the current process
// owns it. Releasing a missing file is not an error; releasing a file
// held by another live process is.
func ReleasePID(path string) error {
	holder, err := ReadPID(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if holder != os.Getpid() && IsProcessAlive(holder) {
		return fmt.Errorf("PID file held by running process %d", holder)
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove PID file: %w", err)
	}
	return nil
}

// ReadPID returns the PID recorded in the file at path.
func ReadPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, err
		}
		return 0, fmt.Errorf("read PID file: %w", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("parse PID file: %w", err)
	}
	return pid, nil
}

// IsProcessAlive reports whether a process with the given PID exists,
// probed with signal 0.
func IsProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}
