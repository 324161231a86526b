package daemon

import (
	"fmt"
	"os/exec"
	"syscall"
)

// StartDaemonWithPath spawns a detached `run` process from binaryPath.
func StartDaemonWithPath(binaryPath string) error {
	cmd := DaemonCommand(binaryPath)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start daemon: %w", err)
	}
	// Not waited on; the child outlives us
	return cmd.Process.Release()
}

// DaemonCommand builds the detached daemon command without starting it.
func DaemonCommand(binaryPath string) *exec.Cmd {
	cmd := exec.Command(binaryPath, "run")

	// Detach from parent process
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid: true, // Create new session (detach from terminal)
	}

	// No stdin/stdout/stderr - fully detached
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil

	return cmd
}
