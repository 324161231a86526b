package infra

import (
	"os"
	"os/user"
	"path/filepath"
)

const (
	// LaunchdLabel is the LaunchAgent label and plist basename.
	LaunchdLabel = "com.focusd.winfit"

	binaryName = "winfit"
	logDir     = "/var/tmp"
)

// Paths holds the per-user install locations.
type Paths struct {
	Home       string
	BinaryPath string // Where the binary should be installed
	PlistDir   string // Where the plist file goes
	PlistPath  string // Full path to plist file
	DataDir    string // Where the encrypted store and key file live
	ConfigPath string // YAML runtime configuration
	LogPath    string
	ErrorLog   string
}

// DetectPaths returns the paths for the real user, even under sudo.
func DetectPaths() *Paths {
	return PathsForHome(GetRealUserHome())
}

// PathsForHome lays out every path below home.
func PathsForHome(home string) *Paths {
	plistDir := filepath.Join(home, "Library", "LaunchAgents")
	return &Paths{
		Home:       home,
		BinaryPath: filepath.Join(home, ".local", "bin", binaryName),
		PlistDir:   plistDir,
		PlistPath:  filepath.Join(plistDir, LaunchdLabel+".plist"),
		DataDir:    filepath.Join(home, "."+binaryName),
		ConfigPath: filepath.Join(home, ".config", binaryName, "config.yaml"),
		LogPath:    filepath.Join(logDir, binaryName+".log"),
		ErrorLog:   filepath.Join(logDir, binaryName+".error.log"),
	}
}

// GetRealUserHome returns the real user's home directory, even when running under sudo.
// Under sudo, os.UserHomeDir() returns /var/root, so we use SUDO_USER to find the real user.
func GetRealUserHome() string {
	// Check if running under sudo
	if sudoUser := os.Getenv("SUDO_USER"); sudoUser != "" {
		if u, err := user.Lookup(sudoUser); err == nil {
			return u.HomeDir
		}
	}
	// Fall back to default
	home, _ := os.UserHomeDir()
	return home
}
