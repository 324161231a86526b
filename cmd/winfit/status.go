package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/winfit/internal/domain"
	"github.com/eliteGoblin/focusd/winfit/internal/infra"
	"github.com/eliteGoblin/focusd/winfit/internal/policy"
	"github.com/eliteGoblin/focusd/winfit/internal/usecase"
)

var (
	okColor   = color.New(color.FgGreen)
	warnColor = color.New(color.FgYellow, color.Bold)
	badColor  = color.New(color.FgRed)
)

// statusReport is everything the status command prints.
type statusReport struct {
	Status        *domain.Status // nil when the agent never published
	Alive         bool
	Permission    bool
	LaunchAtLogin bool
	PlistPath     string
	Ignored       []string
	Rules         []policy.TargetRule
	Now           time.Time
}

func runStatus(cmd *cobra.Command, args []string) error {
	paths := infra.DetectPaths()
	cfg, err := loadConfig(paths)
	if err != nil {
		return err
	}

	logger := zap.NewNop()
	store, err := openStore(paths, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	report := statusReport{
		Permission: infra.NewPermissionGate(logger).IsTrusted(),
		PlistPath:  paths.PlistPath,
		Rules:      policy.NewRegistryWithBase(cfg.Target.Geometry()).GetAll(),
		Now:        time.Now(),
	}

	report.Status, err = store.Current()
	if err != nil {
		return err
	}
	if report.Status != nil {
		report.Alive = infra.NewProcessManager().IsRunning(report.Status.PID)
	}

	settings := usecase.NewSettings(store, nil, logger)
	if ignored, err := settings.IgnoreList(); err == nil {
		report.Ignored = ignored.Entries()
	}
	if enabled, err := settings.LaunchAtLogin(); err == nil {
		report.LaunchAtLogin = enabled
	}

	renderStatus(os.Stdout, report)
	return nil
}

func renderStatus(w io.Writer, r statusReport) {
	fmt.Fprintln(w, "\n=== winfit Status ===")

	switch {
	case r.Status == nil || !r.Alive:
		fmt.Fprintf(w, "Agent: %s\n", badColor.Sprint("NOT RUNNING"))
		fmt.Fprintln(w, "\nRun 'winfit start' to start it.")
	case r.Status.UserStopped:
		fmt.Fprintf(w, "Agent: %s (pid %d)\n", warnColor.Sprint("PAUSED"), r.Status.PID)
		fmt.Fprintln(w, "       Run 'winfit monitoring start' to resume.")
	case r.Status.Monitoring == domain.Running:
		fmt.Fprintf(w, "Agent: %s (pid %d)\n", okColor.Sprint("RUNNING"), r.Status.PID)
	default:
		fmt.Fprintf(w, "Agent: %s (pid %d)\n", warnColor.Sprint("WAITING FOR PERMISSION"), r.Status.PID)
	}

	if r.Permission {
		fmt.Fprintf(w, "Accessibility: %s\n", okColor.Sprint("granted"))
	} else {
		fmt.Fprintf(w, "Accessibility: %s\n", badColor.Sprint("not granted"))
	}

	if r.Status != nil && r.Alive {
		if r.Status.AppVersion != "" {
			fmt.Fprintf(w, "Version: %s\n", r.Status.AppVersion)
		}
		if r.Status.LastHeartbeat > 0 {
			lastBeat := time.Unix(r.Status.LastHeartbeat, 0)
			fmt.Fprintf(w, "Last heartbeat: %s ago\n", r.Now.Sub(lastBeat).Round(time.Second))
		}
		if r.Status.LastApp != "" {
			fmt.Fprintf(w, "Last window: %s (%s)\n", r.Status.LastApp, r.Status.LastOutcome)
		}
	}

	fmt.Fprintf(w, "Start at login: %s\n", onOff(r.LaunchAtLogin))
	if r.LaunchAtLogin {
		fmt.Fprintf(w, "Plist path: %s\n", r.PlistPath)
	}

	fmt.Fprintln(w, "\nTargets:")
	for _, rule := range r.Rules {
		g := rule.Target()
		fmt.Fprintf(w, "  - %s: %.0fx%.0f at (%.0f, %.0f)\n",
			rule.Name(), g.Width, g.Height, g.X, g.Y)
	}

	fmt.Fprintln(w, "\nIgnored apps:")
	if len(r.Ignored) == 0 {
		fmt.Fprintln(w, "  (none)")
	}
	for _, name := range r.Ignored {
		fmt.Fprintf(w, "  - %s\n", name)
	}
}

func onOff(enabled bool) string {
	if enabled {
		return "enabled"
	}
	return "disabled"
}
