package policy

import (
	"math"

	"github.com/eliteGoblin/focusd/winfit/internal/domain"
)

// Decision is the result of comparing a window frame with its target.
type Decision struct {
	Rule       string
	Target     domain.Geometry
	MoveNeeded bool
	SizeNeeded bool
}

// Changed reports whether any write is needed.
func (d Decision) Changed() bool {
	return d.MoveNeeded || d.SizeNeeded
}

// GeometryPolicy decides whether an application is handled and where its
// focused window belongs. It holds no platform state.
type GeometryPolicy struct {
	rules     *Registry
	ignore    IgnoreList
	tolerance float64
}

// NewGeometryPolicy creates a policy over rules with exact comparison.
func NewGeometryPolicy(rules *Registry, ignore IgnoreList) *GeometryPolicy {
	return &GeometryPolicy{rules: rules, ignore: ignore}
}

// SetIgnoreList replaces the ignore list. Called by the configuration side.
func (p *GeometryPolicy) SetIgnoreList(l IgnoreList) {
	p.ignore = l
}

// IgnoreList returns the current ignore list.
func (p *GeometryPolicy) IgnoreList() IgnoreList {
	return p.ignore
}

// SetTolerance sets the per-component tolerance in pixels. Zero means exact.
func (p *GeometryPolicy) SetTolerance(px float64) {
	if px < 0 {
		px = 0
	}
	p.tolerance = px
}

// Ignored reports whether appName is exempt and which entry matched.
func (p *GeometryPolicy) Ignored(appName string) (string, bool) {
	return p.ignore.Match(appName)
}

// Target returns the frame for appName and the rule that produced it.
func (p *GeometryPolicy) Target(appName string) (domain.Geometry, string) {
	rule, err := p.rules.Match(appName)
	if err != nil {
		// Table without a catch-all
		return DefaultGeometry(), "builtin"
	}
	return rule.Target(), rule.ID()
}

// Decide compares current with the target for appName.
// Position and size are judged independently.
func (p *GeometryPolicy) Decide(appName string, current domain.Geometry) Decision {
	target, rule := p.Target(appName)
	return Decision{
		Rule:       rule,
		Target:     target,
		MoveNeeded: !p.equal(current.X, target.X) || !p.equal(current.Y, target.Y),
		SizeNeeded: !p.equal(current.Width, target.Width) || !p.equal(current.Height, target.Height),
	}
}

func (p *GeometryPolicy) equal(a, b float64) bool {
	if p.tolerance == 0 {
		return a == b
	}
	return math.Abs(a-b) <= p.tolerance
}
