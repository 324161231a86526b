// Package main is the CLI entry point for winfit.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/eliteGoblin/focusd/winfit/internal/config"
	"github.com/eliteGoblin/focusd/winfit/internal/daemon"
	"github.com/eliteGoblin/focusd/winfit/internal/domain"
	"github.com/eliteGoblin/focusd/winfit/internal/infra"
	"github.com/eliteGoblin/focusd/winfit/internal/policy"
	"github.com/eliteGoblin/focusd/winfit/internal/usecase"
)

var (
	// Version info (set via ldflags)
	Version   = "0.1.0"
	Commit    = "dev"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "winfit",
	Short: "Window geometry keeper - snaps focused windows to a fixed frame",
	Long: `winfit is a background agent that moves and resizes the focused window
of every application you switch to or launch onto one fixed frame.
Xcode gets a narrower frame. Apps on the ignore list are left alone.

winfit needs the Accessibility permission (System Settings > Privacy &
Security > Accessibility).`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the agent in the foreground",
	Long: `Runs the monitoring agent in the foreground until interrupted.
This is what the LaunchAgent and 'winfit start' execute.`,
	RunE: runDaemon,
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Install the binary and start the agent in the background",
	RunE:  runStart,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show agent status",
	RunE:  runStatus,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Prints version, commit, and build time. Use --json for machine-readable output.`,
	Run:   runVersion,
}

var (
	configPath string
	jsonOutput bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.config/winfit/config.yaml)")
	versionCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output version info as JSON")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(ignoreCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(monitoringCmd)
	rootCmd.AddCommand(permissionCmd)
}

// loadConfig reads --config, or the default path.
func loadConfig(paths *infra.Paths) (*config.Config, error) {
	path := configPath
	if path == "" {
		path = paths.ConfigPath
	}
	return config.Load(path)
}

// openStore opens the encrypted store, creating the key on first use.
func openStore(paths *infra.Paths, logger *zap.Logger) (*infra.EncryptedStore, error) {
	key, err := infra.EnsureKey(infra.NewDefaultKeyProvider(paths.DataDir, logger), paths.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to get store key: %w", err)
	}
	store, err := infra.NewEncryptedStore(paths.DataDir, key)
	if err != nil {
		return nil, err
	}
	return store, nil
}

func runDaemon(cmd *cobra.Command, args []string) error {
	paths := infra.DetectPaths()
	cfg, err := loadConfig(paths)
	if err != nil {
		return err
	}

	logger := createLogger(cfg.Log).With(zap.String("run_id", uuid.NewString()))
	defer func() { _ = logger.Sync() }()

	// One agent per user, held until exit
	lock, err := infra.AcquireInstanceLock(paths.DataDir)
	if err != nil {
		logger.Error("failed to acquire instance lock", zap.Error(err))
		return err
	}
	defer lock.Release()

	store, err := openStore(paths, logger)
	if err != nil {
		logger.Error("failed to open store", zap.Error(err))
		return err
	}
	defer store.Close()

	pm := infra.NewProcessManager()
	self := pm.GetCurrentPID()

	execPath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}

	settings := usecase.NewSettings(store, infra.NewLaunchAgentManager(paths), logger)
	if seeded, err := settings.SeedIgnoreList(cfg.SeedIgnoredApps); err != nil {
		logger.Warn("failed to seed ignore list", zap.Error(err))
	} else if seeded {
		logger.Info("ignore list seeded from config", zap.Strings("entries", cfg.SeedIgnoredApps))
	}

	geometry := policy.NewGeometryPolicy(policy.NewRegistryWithBase(cfg.Target.Geometry()), policy.NewIgnoreList())
	geometry.SetTolerance(cfg.Tolerance)

	accessor := infra.NewWindowAccessor()
	var reconciler *usecase.ReconcilerImpl
	if cfg.VerifyWrites {
		reconciler = usecase.NewReconcilerWithVerify(accessor, geometry, logger)
	} else {
		reconciler = usecase.NewReconciler(accessor, geometry, logger)
	}

	events := infra.NewPollingEventSource(cfg.EventPollInterval, pm, infra.AXFrontmost, logger)
	controller := daemon.NewController(
		daemon.ControllerConfig{LaunchDelay: cfg.LaunchDelay, QueueSize: daemon.DefaultControllerConfig().QueueSize},
		events,
		reconciler,
		infra.NewPermissionGate(logger),
		daemon.RealScheduler{},
		logger,
	)

	var changes <-chan struct{}
	storeWatcher, err := infra.NewStoreWatcher(paths.DataDir, infra.DefaultStoreDebounce, logger)
	if err != nil {
		logger.Warn("store watcher unavailable, relying on periodic reload", zap.Error(err))
	} else {
		changes = storeWatcher.Changes()
	}

	watcher := daemon.NewWatcher(
		daemon.WatcherConfig{
			PermissionInterval:     cfg.PermissionPollInterval,
			HeartbeatInterval:      cfg.HeartbeatInterval,
			PreferenceInterval:     cfg.PreferenceReloadInterval,
			LoginItemCheckInterval: cfg.LoginItemCheckInterval,
		},
		controller,
		geometry,
		settings,
		store,
		changes,
		execPath,
		self,
		Version,
		logger,
	)

	// Set up graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return events.Run(gctx)
	})
	if storeWatcher != nil {
		g.Go(func() error {
			return storeWatcher.Run(gctx)
		})
	}
	g.Go(func() error {
		if err := watcher.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	err = g.Wait()
	if clearErr := store.Clear(); clearErr != nil {
		logger.Warn("failed to clear status", zap.Error(clearErr))
	}
	logger.Info("winfit stopped")
	return err
}

func runStart(cmd *cobra.Command, args []string) error {
	paths := infra.DetectPaths()
	logger, _ := zap.NewDevelopment()
	defer func() { _ = logger.Sync() }()

	store, err := openStore(paths, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	if running, pid := agentRunning(paths); running {
		fmt.Printf("winfit is already running (pid %d)\n", pid)
		return nil
	}

	currentExecPath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}

	// Copy binary to the install location if not already there
	binaryPath := paths.BinaryPath
	if currentExecPath != binaryPath {
		if err := os.MkdirAll(filepath.Dir(binaryPath), 0755); err != nil {
			fmt.Printf("Warning: Could not create binary directory: %v\n", err)
			binaryPath = currentExecPath
		} else if err := copyBinary(currentExecPath, binaryPath); err != nil {
			fmt.Printf("Warning: Could not copy binary to %s: %v\n", binaryPath, err)
			binaryPath = currentExecPath
		} else {
			fmt.Printf("Installed binary to %s\n", binaryPath)
		}
	}

	// Keep an enabled login item pointing at the installed binary. This only
	// writes the plist, so the agent started below is the only one.
	settings := usecase.NewSettings(store, infra.NewLaunchAgentManager(paths), logger)
	if changed, err := settings.EnsureLoginItem(binaryPath); err != nil {
		fmt.Printf("Warning: Could not update login item: %v\n", err)
	} else if changed {
		fmt.Println("Login item updated")
	}

	if err := daemon.StartDaemonWithPath(binaryPath); err != nil {
		return err
	}

	// Wait a moment for the agent to publish its status
	time.Sleep(500 * time.Millisecond)

	fmt.Println("winfit started")
	if current, _ := store.Current(); current != nil && current.Permission != domain.Granted {
		fmt.Println("Accessibility permission is missing. Run 'winfit permission request'.")
	}
	return nil
}

// agentRunning reports whether another process holds the instance lock.
func agentRunning(paths *infra.Paths) (bool, int) {
	lock, err := infra.AcquireInstanceLock(paths.DataDir)
	if err == nil {
		_ = lock.Release()
		return false, 0
	}
	if !errors.Is(err, infra.ErrAlreadyRunning) {
		return false, 0
	}
	pid, _ := infra.LockHolder(paths.DataDir)
	return true, pid
}

// copyBinary copies the binary file to destination using atomic write pattern.
// Writes to temp file first, syncs, chmods, then renames to avoid corruption.
func copyBinary(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	tmpFile, err := os.CreateTemp(filepath.Dir(dst), ".winfit-tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err = io.Copy(tmpFile, sourceFile); err != nil {
		tmpFile.Close()
		return err
	}

	// Sync to disk before rename
	if err = tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return err
	}
	tmpFile.Close()

	if err = os.Chmod(tmpPath, 0755); err != nil {
		return err
	}

	if err = os.Rename(tmpPath, dst); err != nil {
		return err
	}

	success = true
	return nil
}

func createLogger(logCfg config.LogConfig) *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{logCfg.Path}
	cfg.ErrorOutputPaths = []string{logCfg.ErrorPath}
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if level, err := zapcore.ParseLevel(logCfg.Level); err == nil {
		cfg.Level = zap.NewAtomicLevelAt(level)
	}

	logger, err := cfg.Build()
	if err != nil {
		// Fallback to stderr if file logging fails
		logger, _ = zap.NewProduction()
	}
	return logger
}

func runVersion(cmd *cobra.Command, args []string) {
	if jsonOutput {
		fmt.Printf(`{"version":"%s","commit":"%s","build_time":"%s"}`+"\n",
			Version, Commit, BuildTime)
	} else {
		fmt.Printf("winfit %s (commit: %s, built: %s)\n",
			Version, Commit, BuildTime)
	}
}
