package daemon

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/winfit/internal/domain"
	"github.com/eliteGoblin/focusd/winfit/internal/policy"
	"github.com/eliteGoblin/focusd/winfit/internal/usecase"
)

// WatcherConfig holds daemon loop configuration.
type WatcherConfig struct {
	PermissionInterval     time.Duration // How often to sample accessibility trust
	HeartbeatInterval      time.Duration // How often to update heartbeat
	PreferenceInterval     time.Duration // Fallback reload when change notifications are missed
	LoginItemCheckInterval time.Duration // How often to check the LaunchAgent plist
}

// DefaultWatcherConfig returns default watcher configuration.
func DefaultWatcherConfig() WatcherConfig {
	return WatcherConfig{
		PermissionInterval:     1 * time.Second,
		HeartbeatInterval:      30 * time.Second,
		PreferenceInterval:     30 * time.Second,
		LoginItemCheckInterval: 60 * time.Second,
	}
}

// Watcher is the daemon event loop. It is the only goroutine that touches
// the controller and the geometry policy, so neither needs locking.
type Watcher struct {
	config     WatcherConfig
	controller *Controller
	policy     *policy.GeometryPolicy
	settings   *usecase.Settings
	status     domain.StatusRegistry
	changes    <-chan struct{}
	execPath   string
	pid        int
	version    string
	logger     *zap.Logger

	published domain.Status
}

// NewWatcher creates the daemon loop. changes delivers preference store
// change notifications and may be nil.
func NewWatcher(
	config WatcherConfig,
	controller *Controller,
	gp *policy.GeometryPolicy,
	settings *usecase.Settings,
	status domain.StatusRegistry,
	changes <-chan struct{},
	execPath string,
	pid int,
	version string,
	logger *zap.Logger,
) *Watcher {
	return &Watcher{
		config:     config,
		controller: controller,
		policy:     gp,
		settings:   settings,
		status:     status,
		changes:    changes,
		execPath:   execPath,
		pid:        pid,
		version:    version,
		logger:     logger,
	}
}

// Run starts the daemon loop.
// This blocks until context is canceled.
func (w *Watcher) Run(ctx context.Context) error {
	w.logger.Info("watcher started",
		zap.Int("pid", w.pid),
		zap.String("version", w.version))

	// Apply stored preferences before the first permission sample so a
	// user stop survives a daemon restart
	w.applyPreferences()
	w.controller.PollPermission()
	w.publishStatus(true)
	w.ensureLoginItem()

	permissionTicker := time.NewTicker(w.config.PermissionInterval)
	heartbeatTicker := time.NewTicker(w.config.HeartbeatInterval)
	preferenceTicker := time.NewTicker(w.config.PreferenceInterval)
	loginItemTicker := time.NewTicker(w.config.LoginItemCheckInterval)

	defer func() {
		permissionTicker.Stop()
		heartbeatTicker.Stop()
		preferenceTicker.Stop()
		loginItemTicker.Stop()
	}()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("watcher stopping")
			w.controller.Shutdown()
			w.publishStatus(true)
			return ctx.Err()

		case job := <-w.controller.Queue():
			w.handle(job)

		case <-permissionTicker.C:
			w.controller.PollPermission()
			w.publishStatus(false)

		case <-heartbeatTicker.C:
			if err := w.status.UpdateHeartbeat(); err != nil {
				w.logger.Warn("failed to update heartbeat", zap.Error(err))
			}

		case <-w.changes:
			w.applyPreferences()

		case <-preferenceTicker.C:
			w.applyPreferences()

		case <-loginItemTicker.C:
			w.ensureLoginItem()
		}
	}
}

// handle runs one controller job, shielding the loop from panics.
func (w *Watcher) handle(job Job) {
	defer func() {
		if err := recover(); err != nil {
			w.logger.Error("job panic recovered", zap.Any("error", err))
		}
	}()
	w.controller.Handle(job)
	w.publishStatus(false)
}

// applyPreferences reloads the ignore list and the user start/stop choice.
func (w *Watcher) applyPreferences() {
	ignore, err := w.settings.IgnoreList()
	if err != nil {
		w.logger.Warn("failed to reload ignore list", zap.Error(err))
	} else if ignore.String() != w.policy.IgnoreList().String() {
		w.policy.SetIgnoreList(ignore)
		w.logger.Info("ignore list updated", zap.Strings("entries", ignore.Entries()))
	}

	enabled, err := w.settings.MonitoringEnabled()
	if err != nil {
		w.logger.Warn("failed to reload monitoring flag", zap.Error(err))
		return
	}

	switch {
	case !enabled && !w.controller.UserStopped():
		w.controller.UserStop()
	case enabled && w.controller.UserStopped():
		if err := w.controller.UserStart(); err != nil {
			w.logger.Warn("user start failed", zap.Error(err))
		}
	}
	w.publishStatus(false)
}

// ensureLoginItem keeps the LaunchAgent plist consistent with launchAtLogin.
func (w *Watcher) ensureLoginItem() {
	changed, err := w.settings.EnsureLoginItem(w.execPath)
	if err != nil {
		w.logger.Warn("login item check failed", zap.Error(err))
		return
	}
	if changed {
		w.logger.Info("login item reconciled")
	}
}

// publishStatus writes the status snapshot when it changed, or always if force.
func (w *Watcher) publishStatus(force bool) {
	s := w.controller.Status()
	s.PID = w.pid
	s.AppVersion = w.version
	s.LastHeartbeat = time.Now().Unix()

	if !force && sameStatus(s, w.published) {
		return
	}
	if err := w.status.Publish(s); err != nil {
		w.logger.Warn("failed to publish status", zap.Error(err))
		return
	}
	w.published = s
}

func sameStatus(a, b domain.Status) bool {
	return a.Monitoring == b.Monitoring &&
		a.Permission == b.Permission &&
		a.UserStopped == b.UserStopped &&
		a.LastApp == b.LastApp &&
		a.LastOutcome == b.LastOutcome
}
