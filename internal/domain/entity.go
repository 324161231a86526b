// Package domain contains core business entities and interfaces.
// This is the innermost layer in Clean Architecture - no external dependencies.
package domain

import "time"

// MonitoringState is whether activation/launch events are being observed.
type MonitoringState int

const (
	Stopped MonitoringState = iota
	Running
)

func (s MonitoringState) String() string {
	if s == Running {
		return "running"
	}
	return "stopped"
}

// PermissionState is the sampled accessibility trust state. Owned by the OS.
type PermissionState int

const (
	NotGranted PermissionState = iota
	Granted
)

func (p PermissionState) String() string {
	if p == Granted {
		return "granted"
	}
	return "not granted"
}

// EventKind identifies an application lifecycle notification.
type EventKind string

const (
	EventActivated EventKind = "activated"
	EventLaunched  EventKind = "launched"
)

// App identifies a running application.
type App struct {
	PID  int
	Name string
}

// AppEvent is delivered by an EventSource to its subscribers.
type AppEvent struct {
	Kind EventKind
	App  App
	At   time.Time
}

// Point is a window origin in screen coordinates.
// The platform reports CGFloat, so values are kept as float64.
type Point struct {
	X float64
	Y float64
}

// Size is a window extent in pixels.
type Size struct {
	Width  float64
	Height float64
}

// Geometry is a window frame.
type Geometry struct {
	Point
	Size
}

// ReconcileOutcome describes what a single reconcile cycle did.
type ReconcileOutcome string

const (
	OutcomeIgnored         ReconcileOutcome = "ignored"
	OutcomeNoWindow        ReconcileOutcome = "no_window"
	OutcomeNotResizable    ReconcileOutcome = "not_resizable"
	OutcomeUnreadable      ReconcileOutcome = "unreadable"
	OutcomeAtTarget        ReconcileOutcome = "at_target"
	OutcomeMoved           ReconcileOutcome = "moved"
	OutcomeResized         ReconcileOutcome = "resized"
	OutcomeMovedAndResized ReconcileOutcome = "moved_and_resized"
	OutcomeFailed          ReconcileOutcome = "failed"
)

// Wrote reports whether the outcome involved at least one window write.
func (o ReconcileOutcome) Wrote() bool {
	return o == OutcomeMoved || o == OutcomeResized || o == OutcomeMovedAndResized
}

// ReconcileResult captures what happened during a single reconcile.
type ReconcileResult struct {
	App        App
	Outcome    ReconcileOutcome
	Before     *Geometry // nil when geometry was not read
	Target     *Geometry // nil when no target was computed
	ExecutedAt time.Time
}

// Status is the snapshot the daemon publishes for the status command.
// Persisted to the encrypted store for cross-process reads.
type Status struct {
	PID           int
	Monitoring    MonitoringState
	Permission    PermissionState
	UserStopped   bool
	LastHeartbeat int64
	AppVersion    string
	LastApp       string
	LastOutcome   ReconcileOutcome
}
