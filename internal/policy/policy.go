// Package policy implements the Strategy pattern for target window geometry.
// Each rule decides which applications it covers and where their windows go.
package policy

import (
	"github.com/eliteGoblin/focusd/winfit/internal/domain"
)

// Default target frame applied to every application window.
const (
	DefaultX      = 60
	DefaultY      = 38
	DefaultWidth  = 1409
	DefaultHeight = 918
)

// TargetRule defines the strategy interface for one row of the geometry table.
type TargetRule interface {
	// ID returns unique identifier (e.g., "default", "xcode").
	ID() string

	// Name returns human-readable name for display.
	Name() string

	// Matches reports whether the rule applies to appName.
	Matches(appName string) bool

	// Target returns the frame windows of matching apps are moved to.
	Target() domain.Geometry
}

// DefaultGeometry is the frame used when no special rule matches.
func DefaultGeometry() domain.Geometry {
	return domain.Geometry{
		Point: domain.Point{X: DefaultX, Y: DefaultY},
		Size:  domain.Size{Width: DefaultWidth, Height: DefaultHeight},
	}
}
