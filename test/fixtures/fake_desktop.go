// Package fixtures provides test helpers for integration tests.
package fixtures

import (
	"fmt"
	"sync"

	"github.com/eliteGoblin/focusd/winfit/internal/domain"
)

// FakeWindow is a window on the fake desktop.
type FakeWindow struct {
	Frame     domain.Geometry
	Resizable bool
	Writes    int
}

// FakeDesktop simulates the pieces of macOS winfit talks to: the process
// table, the frontmost app, focused windows and accessibility trust.
// It implements domain.ProcessManager, domain.WindowAccessor and
// domain.PermissionGate, and is safe for concurrent use.
type FakeDesktop struct {
	mu        sync.Mutex
	apps      map[int]string
	windows   map[int]*FakeWindow
	frontmost int
	trusted   bool
	prompts   int
	handles   int
}

// FinderPID is the windowless app that is frontmost on a fresh desktop.
const FinderPID = 50

// NewFakeDesktop creates a desktop with only Finder running.
func NewFakeDesktop(trusted bool) *FakeDesktop {
	return &FakeDesktop{
		apps:      map[int]string{FinderPID: "Finder"},
		windows:   make(map[int]*FakeWindow),
		frontmost: FinderPID,
		trusted:   trusted,
	}
}

// Launch starts an app with a single focused window at frame.
func (d *FakeDesktop) Launch(pid int, name string, frame domain.Geometry) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.apps[pid] = name
	d.windows[pid] = &FakeWindow{Frame: frame, Resizable: true}
}

// LaunchWindowless starts an app that has not created a window yet.
func (d *FakeDesktop) LaunchWindowless(pid int, name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.apps[pid] = name
}

// OpenWindow gives a running app its focused window.
func (d *FakeDesktop) OpenWindow(pid int, frame domain.Geometry, resizable bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.windows[pid] = &FakeWindow{Frame: frame, Resizable: resizable}
}

// Quit removes an app and its window.
func (d *FakeDesktop) Quit(pid int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.apps, pid)
	delete(d.windows, pid)
	if d.frontmost == pid {
		d.frontmost = 0
	}
}

// Activate brings pid to the front.
func (d *FakeDesktop) Activate(pid int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.frontmost = pid
}

// SetTrusted grants or revokes accessibility trust.
func (d *FakeDesktop) SetTrusted(trusted bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.trusted = trusted
}

// Frame returns the current frame of pid's window.
func (d *FakeDesktop) Frame(pid int) (domain.Geometry, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	w, ok := d.windows[pid]
	if !ok {
		return domain.Geometry{}, false
	}
	return w.Frame, true
}

// Writes returns how many attribute writes pid's window received.
func (d *FakeDesktop) Writes(pid int) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if w, ok := d.windows[pid]; ok {
		return w.Writes
	}
	return 0
}

// OpenHandles returns focused-window handles not yet released.
func (d *FakeDesktop) OpenHandles() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.handles
}

// Prompts returns how many times the consent prompt was shown.
func (d *FakeDesktop) Prompts() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.prompts
}

// Frontmost matches infra.FrontmostFunc.
func (d *FakeDesktop) Frontmost() (int, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.frontmost, d.frontmost != 0
}

// ListPIDs implements domain.ProcessManager.
func (d *FakeDesktop) ListPIDs() ([]int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	pids := make([]int, 0, len(d.apps))
	for pid := range d.apps {
		pids = append(pids, pid)
	}
	return pids, nil
}

// LookupApp implements domain.ProcessManager.
func (d *FakeDesktop) LookupApp(pid int) (domain.App, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	name, ok := d.apps[pid]
	if !ok {
		return domain.App{}, false
	}
	return domain.App{PID: pid, Name: name}, true
}

// AppName implements domain.ProcessManager.
func (d *FakeDesktop) AppName(pid int) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	name, ok := d.apps[pid]
	if !ok {
		return "", fmt.Errorf("no app with pid %d", pid)
	}
	return name, nil
}

// IsRunning implements domain.ProcessManager.
func (d *FakeDesktop) IsRunning(pid int) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.apps[pid]
	return ok
}

// GetCurrentPID implements domain.ProcessManager.
func (d *FakeDesktop) GetCurrentPID() int {
	return 1
}

// IsTrusted implements domain.PermissionGate.
func (d *FakeDesktop) IsTrusted() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.trusted
}

// RequestTrust implements domain.PermissionGate.
func (d *FakeDesktop) RequestTrust() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.prompts++
}

type fakeHandle struct {
	desktop  *FakeDesktop
	pid      int
	released bool
}

func (h *fakeHandle) Release() {
	h.desktop.mu.Lock()
	defer h.desktop.mu.Unlock()
	if !h.released {
		h.released = true
		h.desktop.handles--
	}
}

// FocusedWindow implements domain.WindowAccessor.
func (d *FakeDesktop) FocusedWindow(pid int) (domain.WindowHandle, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.trusted {
		return nil, false
	}
	if _, ok := d.windows[pid]; !ok {
		return nil, false
	}
	d.handles++
	return &fakeHandle{desktop: d, pid: pid}, true
}

func (d *FakeDesktop) window(h domain.WindowHandle) (*FakeWindow, bool) {
	fh, ok := h.(*fakeHandle)
	if !ok {
		return nil, false
	}
	w, ok := d.windows[fh.pid]
	return w, ok
}

// Position implements domain.WindowAccessor.
func (d *FakeDesktop) Position(h domain.WindowHandle) (domain.Point, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	w, ok := d.window(h)
	if !ok {
		return domain.Point{}, false
	}
	return w.Frame.Point, true
}

// Size implements domain.WindowAccessor.
func (d *FakeDesktop) Size(h domain.WindowHandle) (domain.Size, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	w, ok := d.window(h)
	if !ok {
		return domain.Size{}, false
	}
	return w.Frame.Size, true
}

// SetPosition implements domain.WindowAccessor.
func (d *FakeDesktop) SetPosition(h domain.WindowHandle, p domain.Point) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if w, ok := d.window(h); ok {
		w.Frame.Point = p
		w.Writes++
	}
}

// SetSize implements domain.WindowAccessor.
func (d *FakeDesktop) SetSize(h domain.WindowHandle, s domain.Size) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if w, ok := d.window(h); ok && w.Resizable {
		w.Frame.Size = s
		w.Writes++
	}
}

// IsResizable implements domain.WindowAccessor.
func (d *FakeDesktop) IsResizable(h domain.WindowHandle) (bool, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	w, ok := d.window(h)
	if !ok {
		return false, false
	}
	return w.Resizable, true
}

var (
	_ domain.ProcessManager = (*FakeDesktop)(nil)
	_ domain.WindowAccessor = (*FakeDesktop)(nil)
	_ domain.PermissionGate = (*FakeDesktop)(nil)
)
