package domain

// PermissionGate wraps the accessibility trust check.
// Implementation: ApplicationServices AX API on darwin.
type PermissionGate interface {
	// IsTrusted reports current accessibility permission. No side effects.
	IsTrusted() bool

	// RequestTrust shows the system consent prompt.
	// The user answers out of process, so callers must poll IsTrusted.
	RequestTrust()
}

// WindowHandle is a platform reference to a single window.
type WindowHandle interface {
	// Release frees the underlying platform reference.
	Release()
}

// WindowAccessor reads and writes window attributes of other processes.
type WindowAccessor interface {
	// FocusedWindow returns the focused window of pid, or false if unavailable.
	FocusedWindow(pid int) (WindowHandle, bool)

	// Position reads the window origin.
	Position(w WindowHandle) (Point, bool)

	// Size reads the window extent.
	Size(w WindowHandle) (Size, bool)

	// SetPosition moves the window. Success is not reported by the platform.
	SetPosition(w WindowHandle, p Point)

	// SetSize resizes the window. Success is not reported by the platform.
	SetSize(w WindowHandle, s Size)

	// IsResizable reports whether the size attribute is settable.
	// ok is false when the query itself failed.
	IsResizable(w WindowHandle) (resizable bool, ok bool)
}

// Subscription is an active event registration.
type Subscription interface {
	Unsubscribe()
}

// EventSource delivers application lifecycle events.
type EventSource interface {
	// Subscribe registers handler for kind. Handlers run on the source's goroutine.
	Subscribe(kind EventKind, handler func(AppEvent)) (Subscription, error)
}

// ProcessManager handles OS process queries.
// Implementation: uses gopsutil for cross-platform support.
type ProcessManager interface {
	// ListPIDs returns the PIDs of all running processes.
	ListPIDs() ([]int, error)

	// LookupApp returns the application owning pid, or false if pid is not
	// the main executable of an application bundle.
	LookupApp(pid int) (App, bool)

	// AppName resolves the display name of the application owning pid.
	AppName(pid int) (string, error)

	// IsRunning checks if a PID exists and is running.
	IsRunning(pid int) bool

	// GetCurrentPID returns the current process PID.
	GetCurrentPID() int
}

// PreferenceStore is the key-value store behind the configuration collaborator.
type PreferenceStore interface {
	// Get returns the value for key and whether it was set.
	Get(key string) (string, bool, error)

	// Set stores value under key.
	Set(key, value string) error

	// Delete removes key.
	Delete(key string) error

	// All returns every stored preference.
	All() (map[string]string, error)
}

// StatusRegistry publishes the daemon status snapshot.
type StatusRegistry interface {
	// Publish saves the daemon status.
	Publish(status Status) error

	// UpdateHeartbeat updates timestamp for liveness check.
	UpdateHeartbeat() error

	// Current returns the last published status, or nil if none.
	Current() (*Status, error)

	// Clear removes the published status.
	Clear() error
}

// KeyProvider abstracts the source of the store encryption key.
type KeyProvider interface {
	// GetKey returns the encryption key bytes.
	GetKey() ([]byte, error)

	// StoreKey persists a new encryption key.
	StoreKey(key []byte) error

	// KeyExists checks if a key has been generated.
	KeyExists() bool
}

// LaunchAgentManager handles the macOS LaunchAgent plist for login start.
type LaunchAgentManager interface {
	// Install writes the LaunchAgent plist; launchd loads it at next login.
	Install(execPath string) error

	// Uninstall removes the plist without stopping the running agent.
	Uninstall() error

	// IsInstalled checks if LaunchAgent is installed.
	IsInstalled() bool

	// GetPlistPath returns the plist file path.
	GetPlistPath() string

	// NeedsUpdate checks if plist exists but has different content than expected.
	NeedsUpdate(execPath string) bool

	// Update rewrites the plist content.
	Update(execPath string) error
}

// Reconciler runs one decide-and-correct cycle for an application's focused window.
type Reconciler interface {
	// Reconcile never fails; every failure is reported as an outcome.
	Reconcile(app App) ReconcileResult
}
