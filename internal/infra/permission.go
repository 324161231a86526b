package infra

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/winfit/internal/domain"
)

// AccessibilitySettingsURL opens the Privacy > Accessibility pane.
const AccessibilitySettingsURL = "x-apple.systempreferences:com.apple.preference.security?Privacy_Accessibility"

// PermissionGateImpl implements domain.PermissionGate with AXIsProcessTrusted.
type PermissionGateImpl struct {
	cmdRunner CommandRunner
	logger    *zap.Logger
}

// NewPermissionGate creates a permission gate.
func NewPermissionGate(logger *zap.Logger) *PermissionGateImpl {
	return NewPermissionGateWithRunner(&RealCommandRunner{}, logger)
}

// NewPermissionGateWithRunner creates a gate with an injectable command runner (for testing)
func NewPermissionGateWithRunner(runner CommandRunner, logger *zap.Logger) *PermissionGateImpl {
	return &PermissionGateImpl{
		cmdRunner: runner,
		logger:    logger,
	}
}

// IsTrusted reports whether this process may use the accessibility API.
func (g *PermissionGateImpl) IsTrusted() bool {
	return axIsTrusted()
}

// RequestTrust shows the system consent prompt. macOS shows it at most once
// per binary; OpenSettings is the fallback.
func (g *PermissionGateImpl) RequestTrust() {
	if !axSupported {
		g.logger.Warn("accessibility API not available on this platform")
		return
	}
	axPromptTrust()
}

// OpenSettings opens the Accessibility pane of System Settings.
func (g *PermissionGateImpl) OpenSettings() error {
	if err := g.cmdRunner.Run("open", AccessibilitySettingsURL); err != nil {
		return fmt.Errorf("failed to open accessibility settings: %w", err)
	}
	return nil
}

// Ensure PermissionGateImpl implements domain.PermissionGate.
var _ domain.PermissionGate = (*PermissionGateImpl)(nil)
