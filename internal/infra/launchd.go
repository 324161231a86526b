package infra

import (
	"bytes"
	"fmt"
	"os"
	"text/template"

	"github.com/eliteGoblin/focusd/winfit/internal/domain"
)

// LaunchAgent plist template (runs as user at login)
const launchAgentTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
    <key>Label</key>
    <string>{{.Label}}</string>

    <key>ProgramArguments</key>
    <array>
        <string>{{.ExecutablePath}}</string>
        <string>run</string>
    </array>

    <key>RunAtLoad</key>
    <true/>

    <key>KeepAlive</key>
    <dict>
        <key>Crashed</key>
        <true/>
    </dict>

    <key>StandardOutPath</key>
    <string>{{.LogPath}}</string>

    <key>StandardErrorPath</key>
    <string>{{.ErrorLogPath}}</string>

    <key>ProcessType</key>
    <string>Interactive</string>

    <key>LimitLoadToSessionType</key>
    <string>Aqua</string>

    <key>ThrottleInterval</key>
    <integer>10</integer>
</dict>
</plist>`

var plistTemplate = template.Must(template.New("plist").Parse(launchAgentTemplate))

type plistConfig struct {
	Label          string
	ExecutablePath string
	LogPath        string
	ErrorLogPath   string
}

// LaunchdManagerImpl implements domain.LaunchAgentManager for the login item.
type LaunchdManagerImpl struct {
	label     string
	plistDir  string
	plistPath string
	logPath   string
	errorLog  string
	cmdRunner CommandRunner
}

// NewLaunchAgentManager creates a LaunchAgent manager for paths.
func NewLaunchAgentManager(paths *Paths) *LaunchdManagerImpl {
	return NewLaunchAgentManagerWithRunner(paths, &RealCommandRunner{})
}

// NewLaunchAgentManagerWithRunner creates a manager with an injectable command runner (for testing)
func NewLaunchAgentManagerWithRunner(paths *Paths, runner CommandRunner) *LaunchdManagerImpl {
	return &LaunchdManagerImpl{
		label:     LaunchdLabel,
		plistDir:  paths.PlistDir,
		plistPath: paths.PlistPath,
		logPath:   paths.LogPath,
		errorLog:  paths.ErrorLog,
		cmdRunner: runner,
	}
}

// generatePlistContent creates plist content for the given exec path.
func (m *LaunchdManagerImpl) generatePlistContent(execPath string) ([]byte, error) {
	config := plistConfig{
		Label:          m.label,
		ExecutablePath: execPath,
		LogPath:        m.logPath,
		ErrorLogPath:   m.errorLog,
	}

	var buf bytes.Buffer
	if err := plistTemplate.Execute(&buf, config); err != nil {
		return nil, fmt.Errorf("failed to execute plist template: %w", err)
	}

	return buf.Bytes(), nil
}

// Install writes the LaunchAgent plist. launchd loads it at the next login.
// It is never loaded here: RunAtLoad would start a second agent next to the
// one already running.
func (m *LaunchdManagerImpl) Install(execPath string) error {
	if err := os.MkdirAll(m.plistDir, 0755); err != nil {
		return fmt.Errorf("failed to create plist directory: %w", err)
	}
	return m.writePlist(execPath)
}

// Uninstall removes the plist. A loaded job is left alone: after login the
// running agent is that job, and unloading it would stop monitoring. It
// ends with the session.
func (m *LaunchdManagerImpl) Uninstall() error {
	if err := os.Remove(m.plistPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove plist: %w", err)
	}
	return nil
}

// IsInstalled checks if plist is installed.
func (m *LaunchdManagerImpl) IsInstalled() bool {
	_, err := os.Stat(m.plistPath)
	return err == nil
}

// IsLoaded reports whether launchd knows the label.
func (m *LaunchdManagerImpl) IsLoaded() bool {
	_, err := m.cmdRunner.Output("launchctl", "list", m.label)
	return err == nil
}

// NeedsUpdate checks if plist exists but has different content than expected.
func (m *LaunchdManagerImpl) NeedsUpdate(execPath string) bool {
	if !m.IsInstalled() {
		return false // Doesn't exist, needs install not update
	}

	currentContent, err := os.ReadFile(m.plistPath)
	if err != nil {
		return true // Can't read, assume needs update
	}

	expectedContent, err := m.generatePlistContent(execPath)
	if err != nil {
		return true
	}

	return !bytes.Equal(currentContent, expectedContent)
}

// Update rewrites the plist content. Like Install, it does not touch the
// loaded job; the new content applies from the next login.
func (m *LaunchdManagerImpl) Update(execPath string) error {
	return m.writePlist(execPath)
}

// GetPlistPath returns the plist file path.
func (m *LaunchdManagerImpl) GetPlistPath() string {
	return m.plistPath
}

func (m *LaunchdManagerImpl) writePlist(execPath string) error {
	content, err := m.generatePlistContent(execPath)
	if err != nil {
		return fmt.Errorf("failed to generate plist content: %w", err)
	}
	if err := os.WriteFile(m.plistPath, content, 0644); err != nil {
		return fmt.Errorf("failed to write plist: %w", err)
	}
	return nil
}

// Ensure LaunchdManagerImpl implements domain.LaunchAgentManager.
var _ domain.LaunchAgentManager = (*LaunchdManagerImpl)(nil)
