//go:build !darwin || !cgo

package infra

// The accessibility API needs darwin with cgo. Elsewhere the process is never
// trusted and no window is ever found, so the controller stays stopped.
const axSupported = false

func axIsTrusted() bool { return false }

func axPromptTrust() {}

func axFrontmostPID() (int, bool) { return 0, false }

func axFocusedWindow(int) (uintptr, bool) { return 0, false }

func axPosition(uintptr) (x, y float64, ok bool) { return 0, 0, false }

func axSize(uintptr) (width, height float64, ok bool) { return 0, 0, false }

func axSetPosition(uintptr, float64, float64) {}

func axSetSize(uintptr, float64, float64) {}

func axSizeSettable(uintptr) (settable, ok bool) { return false, false }

func axRelease(uintptr) {}
