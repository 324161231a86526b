package usecase

import (
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/winfit/internal/domain"
	"github.com/eliteGoblin/focusd/winfit/internal/policy"
)

// Preference keys.
const (
	KeyIgnoredApps       = "ignoredApps"
	KeyLaunchAtLogin     = "launchAtLogin"
	KeyMonitoringEnabled = "monitoringEnabled"
)

// Settings is the configuration collaborator: typed access to the
// preference store plus the login item that mirrors launchAtLogin.
type Settings struct {
	store       domain.PreferenceStore
	launchAgent domain.LaunchAgentManager
	logger      *zap.Logger
}

// NewSettings creates settings over store. launchAgent may be nil when the
// caller never touches the login item.
func NewSettings(store domain.PreferenceStore, launchAgent domain.LaunchAgentManager, logger *zap.Logger) *Settings {
	return &Settings{
		store:       store,
		launchAgent: launchAgent,
		logger:      logger,
	}
}

// IgnoreList returns the stored ignore list. Unset means empty.
func (s *Settings) IgnoreList() (policy.IgnoreList, error) {
	raw, _, err := s.store.Get(KeyIgnoredApps)
	if err != nil {
		return policy.IgnoreList{}, fmt.Errorf("failed to read ignore list: %w", err)
	}
	return policy.ParseIgnoreList(raw), nil
}

// SeedIgnoreList writes seed only when no ignore list was ever stored.
// Returns true if it wrote.
func (s *Settings) SeedIgnoreList(seed []string) (bool, error) {
	_, ok, err := s.store.Get(KeyIgnoredApps)
	if err != nil {
		return false, fmt.Errorf("failed to read ignore list: %w", err)
	}
	if ok {
		return false, nil
	}
	if err := s.store.Set(KeyIgnoredApps, policy.NewIgnoreList(seed...).String()); err != nil {
		return false, fmt.Errorf("failed to seed ignore list: %w", err)
	}
	return true, nil
}

// AddIgnored appends name to the ignore list. The bool is false if it was
// blank or already present.
func (s *Settings) AddIgnored(name string) (policy.IgnoreList, bool, error) {
	current, err := s.IgnoreList()
	if err != nil {
		return current, false, err
	}
	updated, added := current.With(name)
	if !added {
		return current, false, nil
	}
	if err := s.store.Set(KeyIgnoredApps, updated.String()); err != nil {
		return current, false, fmt.Errorf("failed to save ignore list: %w", err)
	}
	return updated, true, nil
}

// RemoveIgnored drops name from the ignore list. The bool is false if absent.
func (s *Settings) RemoveIgnored(name string) (policy.IgnoreList, bool, error) {
	current, err := s.IgnoreList()
	if err != nil {
		return current, false, err
	}
	updated, removed := current.Without(name)
	if !removed {
		return current, false, nil
	}
	if err := s.store.Set(KeyIgnoredApps, updated.String()); err != nil {
		return current, false, fmt.Errorf("failed to save ignore list: %w", err)
	}
	return updated, true, nil
}

// MonitoringEnabled returns the user start/stop choice. Unset means enabled.
func (s *Settings) MonitoringEnabled() (bool, error) {
	return s.getBool(KeyMonitoringEnabled, true)
}

// SetMonitoringEnabled records the user start/stop choice for the daemon.
func (s *Settings) SetMonitoringEnabled(enabled bool) error {
	return s.setBool(KeyMonitoringEnabled, enabled)
}

// LaunchAtLogin returns the login-at-start flag. Unset means disabled.
func (s *Settings) LaunchAtLogin() (bool, error) {
	return s.getBool(KeyLaunchAtLogin, false)
}

// SetLaunchAtLogin stores the flag and installs or removes the login item.
func (s *Settings) SetLaunchAtLogin(enabled bool, execPath string) error {
	if err := s.setBool(KeyLaunchAtLogin, enabled); err != nil {
		return err
	}
	_, err := s.EnsureLoginItem(execPath)
	return err
}

// EnsureLoginItem makes the LaunchAgent plist match the launchAtLogin flag.
// Installs a missing plist, rewrites an outdated one, removes one that
// should not exist. Returns true if anything changed.
func (s *Settings) EnsureLoginItem(execPath string) (bool, error) {
	if s.launchAgent == nil {
		return false, nil
	}

	enabled, err := s.LaunchAtLogin()
	if err != nil {
		return false, err
	}

	switch {
	case !enabled && s.launchAgent.IsInstalled():
		s.logger.Info("removing login item", zap.String("plist", s.launchAgent.GetPlistPath()))
		if err := s.launchAgent.Uninstall(); err != nil {
			return false, fmt.Errorf("failed to remove login item: %w", err)
		}
		return true, nil

	case enabled && !s.launchAgent.IsInstalled():
		s.logger.Info("installing login item", zap.String("plist", s.launchAgent.GetPlistPath()))
		if err := s.launchAgent.Install(execPath); err != nil {
			return false, fmt.Errorf("failed to install login item: %w", err)
		}
		return true, nil

	case enabled && s.launchAgent.NeedsUpdate(execPath):
		s.logger.Info("login item outdated, updating", zap.String("plist", s.launchAgent.GetPlistPath()))
		if err := s.launchAgent.Update(execPath); err != nil {
			return false, fmt.Errorf("failed to update login item: %w", err)
		}
		return true, nil
	}

	return false, nil
}

func (s *Settings) getBool(key string, def bool) (bool, error) {
	raw, ok, err := s.store.Get(key)
	if err != nil {
		return def, fmt.Errorf("failed to read %s: %w", key, err)
	}
	if !ok {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		s.logger.Warn("invalid boolean preference, using default",
			zap.String("key", key),
			zap.String("value", raw))
		return def, nil
	}
	return v, nil
}

func (s *Settings) setBool(key string, v bool) error {
	if err := s.store.Set(key, strconv.FormatBool(v)); err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}
