package engine

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// ErrLocked is returned when another engine process owns the run lock.
var ErrLocked = errors.New("engine: run lock held by another process")

// RunLock enforces mutual exclusion between the foreground engine and
// the background monitor so the score table never has two writers. It is
// a pid file: stale locks from dead processes are reclaimed.
type RunLock struct {
	path string
}

// NewRunLock creates a lock rooted in the state directory.
func NewRunLock(stateDir string) *RunLock {
	return &RunLock{path: filepath.Join(stateDir, lockName)}
}

// Acquire takes the lock or returns ErrLocked. A lock owned by a dead
// pid is reclaimed.
func (l *RunLock) Acquire() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o700); err != nil {
		return fmt.Errorf("lock dir: %w", err)
	}
	for attempt := 0; attempt < 2; attempt++ {
		f, err := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
		if err == nil {
			_, werr := fmt.Fprintf(f, "%d\n", os.Getpid())
			cerr := f.Close()
			if werr != nil || cerr != nil {
				os.Remove(l.path)
				return fmt.Errorf("write lock: %w", errors.Join(werr, cerr))
			}
			return nil
		}
		if !errors.Is(err, os.ErrExist) {
			return fmt.Errorf("create lock: %w", err)
		}
		pid, perr := l.ownerPID()
		if perr == nil && processAlive(pid) {
			return ErrLocked
		}
		// Stale or unreadable lock; remove and retry once.
		if rerr := os.Remove(l.path); rerr != nil && !errors.Is(rerr, os.ErrNotExist) {
			return fmt.Errorf("reclaim stale lock: %w", rerr)
		}
	}
	return ErrLocked
}

// Release drops the lock. Releasing an already-released lock is a no-op.
func (l *RunLock) Release() error {
	err := os.Remove(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func (l *RunLock) ownerPID() (int, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

// processAlive probes the pid with signal 0.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}
