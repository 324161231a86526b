//go:build darwin && cgo

package infra

/*
#cgo LDFLAGS: -framework ApplicationServices -framework CoreFoundation
#include <ApplicationServices/ApplicationServices.h>
#include <stdint.h>

static int winfit_ax_is_trusted(void) {
    return AXIsProcessTrusted() ? 1 : 0;
}

static void winfit_ax_prompt_trust(void) {
    const void *keys[] = { kAXTrustedCheckOptionPrompt };
    const void *values[] = { kCFBooleanTrue };
    CFDictionaryRef opts = CFDictionaryCreate(kCFAllocatorDefault, keys, values, 1,
        &kCFCopyStringDictionaryKeyCallBacks, &kCFTypeDictionaryValueCallBacks);
    if (opts == NULL) {
        return;
    }
    AXIsProcessTrustedWithOptions(opts);
    CFRelease(opts);
}

static int winfit_ax_frontmost_pid(int *out) {
    AXUIElementRef sys = AXUIElementCreateSystemWide();
    if (sys == NULL) {
        return 0;
    }
    CFTypeRef app = NULL;
    AXError err = AXUIElementCopyAttributeValue(sys, kAXFocusedApplicationAttribute, &app);
    CFRelease(sys);
    if (err != kAXErrorSuccess || app == NULL) {
        return 0;
    }
    pid_t pid = 0;
    err = AXUIElementGetPid((AXUIElementRef)app, &pid);
    CFRelease(app);
    if (err != kAXErrorSuccess) {
        return 0;
    }
    *out = (int)pid;
    return 1;
}

static uintptr_t winfit_ax_focused_window(int pid) {
    AXUIElementRef app = AXUIElementCreateApplication((pid_t)pid);
    if (app == NULL) {
        return 0;
    }
    CFTypeRef win = NULL;
    AXError err = AXUIElementCopyAttributeValue(app, kAXFocusedWindowAttribute, &win);
    CFRelease(app);
    if (err != kAXErrorSuccess || win == NULL) {
        return 0;
    }
    return (uintptr_t)win;
}

static int winfit_ax_position(uintptr_t w, double *x, double *y) {
    CFTypeRef v = NULL;
    if (AXUIElementCopyAttributeValue((AXUIElementRef)w, kAXPositionAttribute, &v) != kAXErrorSuccess || v == NULL) {
        return 0;
    }
    CGPoint p;
    int ok = AXValueGetValue((AXValueRef)v, kAXValueCGPointType, &p) ? 1 : 0;
    CFRelease(v);
    if (ok) {
        *x = p.x;
        *y = p.y;
    }
    return ok;
}

static int winfit_ax_size(uintptr_t w, double *width, double *height) {
    CFTypeRef v = NULL;
    if (AXUIElementCopyAttributeValue((AXUIElementRef)w, kAXSizeAttribute, &v) != kAXErrorSuccess || v == NULL) {
        return 0;
    }
    CGSize s;
    int ok = AXValueGetValue((AXValueRef)v, kAXValueCGSizeType, &s) ? 1 : 0;
    CFRelease(v);
    if (ok) {
        *width = s.width;
        *height = s.height;
    }
    return ok;
}

static void winfit_ax_set_position(uintptr_t w, double x, double y) {
    CGPoint p = CGPointMake(x, y);
    AXValueRef v = AXValueCreate(kAXValueCGPointType, &p);
    if (v == NULL) {
        return;
    }
    AXUIElementSetAttributeValue((AXUIElementRef)w, kAXPositionAttribute, v);
    CFRelease(v);
}

static void winfit_ax_set_size(uintptr_t w, double width, double height) {
    CGSize s = CGSizeMake(width, height);
    AXValueRef v = AXValueCreate(kAXValueCGSizeType, &s);
    if (v == NULL) {
        return;
    }
    AXUIElementSetAttributeValue((AXUIElementRef)w, kAXSizeAttribute, v);
    CFRelease(v);
}

static int winfit_ax_size_settable(uintptr_t w, int *settable) {
    Boolean s = false;
    if (AXUIElementIsAttributeSettable((AXUIElementRef)w, kAXSizeAttribute, &s) != kAXErrorSuccess) {
        return 0;
    }
    *settable = s ? 1 : 0;
    return 1;
}

static void winfit_ax_release(uintptr_t w) {
    if (w != 0) {
        CFRelease((CFTypeRef)w);
    }
}
*/
import "C"

// axSupported reports whether the accessibility API is compiled in.
const axSupported = true

func axIsTrusted() bool {
	return C.winfit_ax_is_trusted() != 0
}

func axPromptTrust() {
	C.winfit_ax_prompt_trust()
}

func axFrontmostPID() (int, bool) {
	var pid C.int
	if C.winfit_ax_frontmost_pid(&pid) == 0 {
		return 0, false
	}
	return int(pid), true
}

func axFocusedWindow(pid int) (uintptr, bool) {
	ref := C.winfit_ax_focused_window(C.int(pid))
	if ref == 0 {
		return 0, false
	}
	return uintptr(ref), true
}

func axPosition(ref uintptr) (x, y float64, ok bool) {
	var cx, cy C.double
	if C.winfit_ax_position(C.uintptr_t(ref), &cx, &cy) == 0 {
		return 0, 0, false
	}
	return float64(cx), float64(cy), true
}

func axSize(ref uintptr) (width, height float64, ok bool) {
	var cw, ch C.double
	if C.winfit_ax_size(C.uintptr_t(ref), &cw, &ch) == 0 {
		return 0, 0, false
	}
	return float64(cw), float64(ch), true
}

func axSetPosition(ref uintptr, x, y float64) {
	C.winfit_ax_set_position(C.uintptr_t(ref), C.double(x), C.double(y))
}

func axSetSize(ref uintptr, width, height float64) {
	C.winfit_ax_set_size(C.uintptr_t(ref), C.double(width), C.double(height))
}

func axSizeSettable(ref uintptr) (settable, ok bool) {
	var s C.int
	if C.winfit_ax_size_settable(C.uintptr_t(ref), &s) == 0 {
		return false, false
	}
	return s != 0, true
}

func axRelease(ref uintptr) {
	C.winfit_ax_release(C.uintptr_t(ref))
}
