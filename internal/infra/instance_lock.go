package infra

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// LockFileName is the agent's single-instance lock in the data directory.
const LockFileName = "winfit.lock"

// ErrAlreadyRunning is returned when another agent holds the instance lock.
var ErrAlreadyRunning = errors.New("winfit is already running")

// InstanceLock is an exclusive flock held for the life of the agent.
// The kernel drops it when the process exits, so a crash never leaves it stale.
type InstanceLock struct {
	path string
	file *os.File
}

// AcquireInstanceLock takes the lock in dataDir without blocking and
// records the holder's pid in it.
func AcquireInstanceLock(dataDir string) (*InstanceLock, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	path := filepath.Join(dataDir, LockFileName)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file: %w", err)
	}

	if err := syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		file.Close()
		if errors.Is(err, syscall.EWOULDBLOCK) {
			if pid, ok := LockHolder(dataDir); ok {
				return nil, fmt.Errorf("%w (pid %d)", ErrAlreadyRunning, pid)
			}
			return nil, ErrAlreadyRunning
		}
		return nil, fmt.Errorf("failed to acquire lock: %w", err)
	}

	if err := file.Truncate(0); err == nil {
		_, _ = file.WriteAt([]byte(strconv.Itoa(os.Getpid())+"\n"), 0)
	}

	return &InstanceLock{path: path, file: file}, nil
}

// LockHolder reads the pid recorded by the last holder.
func LockHolder(dataDir string) (int, bool) {
	data, err := os.ReadFile(filepath.Join(dataDir, LockFileName))
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, false
	}
	return pid, true
}

// Release unlocks and closes the lock file. Safe to call twice.
func (l *InstanceLock) Release() error {
	if l.file == nil {
		return nil
	}
	var errs []error
	if err := syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN); err != nil {
		errs = append(errs, fmt.Errorf("failed to release lock: %w", err))
	}
	if err := l.file.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close lock file: %w", err))
	}
	l.file = nil
	return errors.Join(errs...)
}
