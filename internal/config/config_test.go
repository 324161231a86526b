package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eliteGoblin/focusd/winfit/internal/policy"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, Target{X: 60, Y: 38, Width: 1409, Height: 918}, cfg.Target)
	assert.Zero(t, cfg.Tolerance)
	assert.False(t, cfg.VerifyWrites)
	assert.Equal(t, time.Second, cfg.LaunchDelay)
	assert.Equal(t, 250*time.Millisecond, cfg.EventPollInterval)
	assert.Equal(t, time.Second, cfg.PermissionPollInterval)
	assert.Equal(t, "/var/tmp/winfit.log", cfg.Log.Path)
	assert.Equal(t, "/var/tmp/winfit.error.log", cfg.Log.ErrorPath)
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, policy.DefaultGeometry(), cfg.Target.Geometry())
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))

	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_Overrides(t *testing.T) {
	path := writeConfig(t, `
target:
  x: 0
  y: 25
  width: 1280
  height: 800
tolerance: 1.5
verify_writes: true
launch_delay: 2s
event_poll_interval: 500ms
seed_ignored_apps: [Finder, "System Settings"]
log:
  level: debug
`)

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, Target{X: 0, Y: 25, Width: 1280, Height: 800}, cfg.Target)
	assert.Equal(t, 1.5, cfg.Tolerance)
	assert.True(t, cfg.VerifyWrites)
	assert.Equal(t, 2*time.Second, cfg.LaunchDelay)
	assert.Equal(t, 500*time.Millisecond, cfg.EventPollInterval)
	assert.Equal(t, []string{"Finder", "System Settings"}, cfg.SeedIgnoredApps)
	assert.Equal(t, "debug", cfg.Log.Level)
	// Untouched keys keep defaults
	assert.Equal(t, time.Second, cfg.PermissionPollInterval)
	assert.Equal(t, "/var/tmp/winfit.log", cfg.Log.Path)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		wantPath string
	}{
		{name: "zero width", content: "target: {x: 0, y: 0, width: 0, height: 10}", wantPath: "target"},
		{name: "negative tolerance", content: "tolerance: -1", wantPath: "tolerance"},
		{name: "NaN tolerance", content: "tolerance: .nan", wantPath: "tolerance"},
		{name: "infinite tolerance", content: "tolerance: .inf", wantPath: "tolerance"},
		{name: "NaN target origin", content: "target: {x: .nan, y: 0, width: 10, height: 10}", wantPath: "target"},
		{name: "infinite target width", content: "target: {x: 0, y: 0, width: .inf, height: 10}", wantPath: "target"},
		{name: "negative launch delay", content: "launch_delay: -1s", wantPath: "launch_delay"},
		{name: "zero poll interval", content: "event_poll_interval: 0s", wantPath: "event_poll_interval"},
		{name: "bad log level", content: "log: {level: verbose}", wantPath: "log.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))

			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "want ValidationError, got %v", err)
			assert.Equal(t, tt.wantPath, verr.Path)
		})
	}
}

func TestLoad_Malformed(t *testing.T) {
	_, err := Load(writeConfig(t, "target: [not, a, map"))

	assert.Error(t, err)
}

func TestSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.Tolerance = 2
	cfg.SeedIgnoredApps = []string{"Zoom"}

	require.NoError(t, cfg.Save(path))
	loaded, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestDefaultConfigPath(t *testing.T) {
	path, err := DefaultConfigPath()

	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, filepath.Join(".config", "winfit", "config.yaml")), path)
}
