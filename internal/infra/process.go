// Package infra implements infrastructure concerns (process, accessibility, store, launchd).
package infra

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/eliteGoblin/focusd/winfit/internal/domain"
)

// bundleExecDir is the path segment between a bundle and its main executable.
const bundleExecDir = ".app/Contents/MacOS/"

// ProcessManagerImpl implements domain.ProcessManager using gopsutil.
type ProcessManagerImpl struct{}

// NewProcessManager creates a new process manager.
func NewProcessManager() domain.ProcessManager {
	return &ProcessManagerImpl{}
}

// ListPIDs returns the PIDs of all running processes.
func (pm *ProcessManagerImpl) ListPIDs() ([]int, error) {
	raw, err := process.Pids()
	if err != nil {
		return nil, fmt.Errorf("failed to list processes: %w", err)
	}
	pids := make([]int, 0, len(raw))
	for _, pid := range raw {
		pids = append(pids, int(pid))
	}
	return pids, nil
}

// LookupApp resolves pid to an application when its executable is the main
// binary of a top-level .app bundle.
func (pm *ProcessManagerImpl) LookupApp(pid int) (domain.App, bool) {
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return domain.App{}, false
	}
	exe, err := p.Exe()
	if err != nil {
		return domain.App{}, false // Process may have exited
	}
	name, ok := bundleName(exe)
	if !ok {
		return domain.App{}, false
	}
	return domain.App{PID: pid, Name: name}, true
}

// AppName returns the bundle name for pid, or the process name when pid is
// not a bundled application.
func (pm *ProcessManagerImpl) AppName(pid int) (string, error) {
	if app, ok := pm.LookupApp(pid); ok {
		return app.Name, nil
	}
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return "", fmt.Errorf("failed to find process %d: %w", pid, err)
	}
	name, err := p.Name()
	if err != nil {
		return "", fmt.Errorf("failed to read name of process %d: %w", pid, err)
	}
	return name, nil
}

// IsRunning checks if a PID exists and is running.
func (pm *ProcessManagerImpl) IsRunning(pid int) bool {
	if pid <= 0 {
		return false
	}
	// On Unix, FindProcess always succeeds
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	// Send signal 0 to check if process exists
	err = proc.Signal(syscall.Signal(0))
	return err == nil
}

// GetCurrentPID returns the current process PID.
func (pm *ProcessManagerImpl) GetCurrentPID() int {
	return os.Getpid()
}

// bundleName extracts "Safari" from "/Applications/Safari.app/Contents/MacOS/Safari".
// Executables of bundles nested inside another bundle (helpers, embedded
// apps) and anything below Contents/MacOS/ are rejected.
func bundleName(exe string) (string, bool) {
	i := strings.Index(exe, ".app/")
	if i < 0 || !strings.HasPrefix(exe[i:], bundleExecDir) {
		return "", false
	}
	rest := exe[i+len(bundleExecDir):]
	if rest == "" || strings.Contains(rest, "/") {
		return "", false
	}
	name := filepath.Base(exe[:i])
	if name == "" || name == "." || name == "/" {
		return "", false
	}
	return name, true
}

// Ensure ProcessManagerImpl implements domain.ProcessManager.
var _ domain.ProcessManager = (*ProcessManagerImpl)(nil)
