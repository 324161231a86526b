package infra

import (
	"sync"

	"github.com/eliteGoblin/focusd/winfit/internal/domain"
)

// axWindow is a retained AXUIElementRef for a window.
type axWindow struct {
	ref  uintptr
	once sync.Once
}

// Release drops the retained reference. Safe to call more than once.
func (w *axWindow) Release() {
	w.once.Do(func() {
		axRelease(w.ref)
	})
}

// WindowAccessorImpl implements domain.WindowAccessor over the macOS
// accessibility API.
type WindowAccessorImpl struct{}

// NewWindowAccessor creates a window accessor.
func NewWindowAccessor() *WindowAccessorImpl {
	return &WindowAccessorImpl{}
}

// FocusedWindow returns the focused window of pid.
func (a *WindowAccessorImpl) FocusedWindow(pid int) (domain.WindowHandle, bool) {
	if pid <= 0 {
		return nil, false
	}
	ref, ok := axFocusedWindow(pid)
	if !ok {
		return nil, false
	}
	return &axWindow{ref: ref}, true
}

// Position reads the window origin in global display coordinates.
func (a *WindowAccessorImpl) Position(h domain.WindowHandle) (domain.Point, bool) {
	w, ok := h.(*axWindow)
	if !ok {
		return domain.Point{}, false
	}
	x, y, ok := axPosition(w.ref)
	if !ok {
		return domain.Point{}, false
	}
	return domain.Point{X: x, Y: y}, true
}

// Size reads the window extent.
func (a *WindowAccessorImpl) Size(h domain.WindowHandle) (domain.Size, bool) {
	w, ok := h.(*axWindow)
	if !ok {
		return domain.Size{}, false
	}
	width, height, ok := axSize(w.ref)
	if !ok {
		return domain.Size{}, false
	}
	return domain.Size{Width: width, Height: height}, true
}

// SetPosition moves the window.
func (a *WindowAccessorImpl) SetPosition(h domain.WindowHandle, p domain.Point) {
	if w, ok := h.(*axWindow); ok {
		axSetPosition(w.ref, p.X, p.Y)
	}
}

// SetSize resizes the window.
func (a *WindowAccessorImpl) SetSize(h domain.WindowHandle, s domain.Size) {
	if w, ok := h.(*axWindow); ok {
		axSetSize(w.ref, s.Width, s.Height)
	}
}

// IsResizable reports whether the size attribute is settable.
func (a *WindowAccessorImpl) IsResizable(h domain.WindowHandle) (bool, bool) {
	w, ok := h.(*axWindow)
	if !ok {
		return false, false
	}
	return axSizeSettable(w.ref)
}

// Ensure WindowAccessorImpl implements domain.WindowAccessor.
var _ domain.WindowAccessor = (*WindowAccessorImpl)(nil)
