package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/winfit/internal/infra"
	"github.com/eliteGoblin/focusd/winfit/internal/usecase"
)

var ignoreCmd = &cobra.Command{
	Use:   "ignore",
	Short: "Manage apps whose windows are never touched",
	Long: `Apps whose name contains an ignore entry (case-sensitive) are skipped.
Changes apply to the running agent within a moment.`,
}

var ignoreListCmd = &cobra.Command{
	Use:   "list",
	Short: "List ignored apps",
	Args:  cobra.NoArgs,
	RunE:  runIgnoreList,
}

var ignoreAddCmd = &cobra.Command{
	Use:   "add NAME",
	Short: "Ignore apps whose name contains NAME",
	Args:  cobra.ExactArgs(1),
	RunE:  runIgnoreAdd,
}

var ignoreRemoveCmd = &cobra.Command{
	Use:   "remove NAME",
	Short: "Stop ignoring NAME",
	Args:  cobra.ExactArgs(1),
	RunE:  runIgnoreRemove,
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Manage starting winfit at login",
}

var loginEnableCmd = &cobra.Command{
	Use:   "enable",
	Short: "Start winfit at login",
	Args:  cobra.NoArgs,
	RunE:  func(cmd *cobra.Command, args []string) error { return runLoginSet(true) },
}

var loginDisableCmd = &cobra.Command{
	Use:   "disable",
	Short: "Do not start winfit at login",
	Args:  cobra.NoArgs,
	RunE:  func(cmd *cobra.Command, args []string) error { return runLoginSet(false) },
}

var loginStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the login item state",
	Args:  cobra.NoArgs,
	RunE:  runLoginStatus,
}

var monitoringCmd = &cobra.Command{
	Use:   "monitoring",
	Short: "Pause or resume window adjustment",
	Long: `Stopping is remembered: the agent stays stopped, even across restarts
and permission changes, until 'winfit monitoring start'.`,
}

var monitoringStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Resume window adjustment",
	Args:  cobra.NoArgs,
	RunE:  func(cmd *cobra.Command, args []string) error { return runMonitoringSet(true) },
}

var monitoringStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Pause window adjustment",
	Args:  cobra.NoArgs,
	RunE:  func(cmd *cobra.Command, args []string) error { return runMonitoringSet(false) },
}

var permissionCmd = &cobra.Command{
	Use:   "permission",
	Short: "Check or request the Accessibility permission",
}

var permissionCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Report whether this binary is trusted",
	Args:  cobra.NoArgs,
	RunE:  runPermissionCheck,
}

var permissionRequestCmd = &cobra.Command{
	Use:   "request",
	Short: "Show the system consent prompt",
	Args:  cobra.NoArgs,
	RunE:  runPermissionRequest,
}

var (
	openSettings bool
	waitForGrant time.Duration
)

func init() {
	permissionRequestCmd.Flags().BoolVar(&openSettings, "open", false, "Also open the Accessibility settings pane")
	permissionRequestCmd.Flags().DurationVar(&waitForGrant, "wait", 0, "Wait up to this long for the grant (e.g. 60s)")

	ignoreCmd.AddCommand(ignoreListCmd, ignoreAddCmd, ignoreRemoveCmd)
	loginCmd.AddCommand(loginEnableCmd, loginDisableCmd, loginStatusCmd)
	monitoringCmd.AddCommand(monitoringStartCmd, monitoringStopCmd)
	permissionCmd.AddCommand(permissionCheckCmd, permissionRequestCmd)
}

// withSettings opens the store and runs fn with settings over it.
func withSettings(fn func(s *usecase.Settings, paths *infra.Paths) error) error {
	paths := infra.DetectPaths()
	logger, _ := zap.NewDevelopment()
	defer func() { _ = logger.Sync() }()

	store, err := openStore(paths, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	return fn(usecase.NewSettings(store, infra.NewLaunchAgentManager(paths), logger), paths)
}

func runIgnoreList(cmd *cobra.Command, args []string) error {
	return withSettings(func(s *usecase.Settings, _ *infra.Paths) error {
		list, err := s.IgnoreList()
		if err != nil {
			return err
		}
		if list.Len() == 0 {
			fmt.Println("No ignored apps.")
			return nil
		}
		for _, name := range list.Entries() {
			fmt.Printf("  - %s\n", name)
		}
		return nil
	})
}

func runIgnoreAdd(cmd *cobra.Command, args []string) error {
	name := strings.TrimSpace(args[0])
	if name == "" || strings.Contains(name, ",") {
		return fmt.Errorf("invalid app name %q", args[0])
	}
	return withSettings(func(s *usecase.Settings, _ *infra.Paths) error {
		_, added, err := s.AddIgnored(name)
		if err != nil {
			return err
		}
		if !added {
			fmt.Printf("%s is already ignored\n", name)
			return nil
		}
		fmt.Printf("Ignoring %s\n", name)
		return nil
	})
}

func runIgnoreRemove(cmd *cobra.Command, args []string) error {
	name := strings.TrimSpace(args[0])
	return withSettings(func(s *usecase.Settings, _ *infra.Paths) error {
		_, removed, err := s.RemoveIgnored(name)
		if err != nil {
			return err
		}
		if !removed {
			fmt.Printf("%s was not ignored\n", name)
			return nil
		}
		fmt.Printf("No longer ignoring %s\n", name)
		return nil
	})
}

// installedOrCurrent prefers the installed binary for the login item.
func installedOrCurrent(paths *infra.Paths) (string, error) {
	if _, err := os.Stat(paths.BinaryPath); err == nil {
		return paths.BinaryPath, nil
	}
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to get executable path: %w", err)
	}
	return exe, nil
}

func runLoginSet(enabled bool) error {
	return withSettings(func(s *usecase.Settings, paths *infra.Paths) error {
		execPath, err := installedOrCurrent(paths)
		if err != nil {
			return err
		}
		if err := s.SetLaunchAtLogin(enabled, execPath); err != nil {
			return err
		}
		if enabled {
			fmt.Printf("winfit will start at login (%s)\n", paths.PlistPath)
		} else {
			fmt.Println("winfit will not start at login")
		}
		return nil
	})
}

func runLoginStatus(cmd *cobra.Command, args []string) error {
	return withSettings(func(s *usecase.Settings, paths *infra.Paths) error {
		enabled, err := s.LaunchAtLogin()
		if err != nil {
			return err
		}
		agent := infra.NewLaunchAgentManager(paths)
		fmt.Printf("Start at login: %s\n", onOff(enabled))
		fmt.Printf("Plist: %s (installed: %t, loaded: %t)\n",
			agent.GetPlistPath(), agent.IsInstalled(), agent.IsLoaded())
		return nil
	})
}

func runMonitoringSet(enabled bool) error {
	return withSettings(func(s *usecase.Settings, _ *infra.Paths) error {
		if err := s.SetMonitoringEnabled(enabled); err != nil {
			return err
		}
		if enabled {
			fmt.Println("Monitoring resumed")
		} else {
			fmt.Println("Monitoring paused until 'winfit monitoring start'")
		}
		return nil
	})
}

func runPermissionCheck(cmd *cobra.Command, args []string) error {
	logger := zap.NewNop()
	gate := infra.NewPermissionGate(logger)
	if gate.IsTrusted() {
		fmt.Println("Accessibility permission: " + okColor.Sprint("granted"))
		return nil
	}
	fmt.Println("Accessibility permission: " + badColor.Sprint("not granted"))
	fmt.Println("Run 'winfit permission request' to ask for it.")
	return nil
}

func runPermissionRequest(cmd *cobra.Command, args []string) error {
	logger, _ := zap.NewDevelopment()
	defer func() { _ = logger.Sync() }()

	gate := infra.NewPermissionGate(logger)
	if gate.IsTrusted() {
		fmt.Println("Accessibility permission already granted")
		return nil
	}

	gate.RequestTrust()
	if openSettings {
		if err := gate.OpenSettings(); err != nil {
			return err
		}
	}

	if waitForGrant <= 0 {
		fmt.Println("Approve winfit in System Settings. The agent picks up the grant automatically.")
		return nil
	}

	deadline := time.Now().Add(waitForGrant)
	for time.Now().Before(deadline) {
		if gate.IsTrusted() {
			fmt.Println("Accessibility permission granted")
			return nil
		}
		time.Sleep(time.Second)
	}
	return fmt.Errorf("permission not granted within %s", waitForGrant)
}
