package policy

import "github.com/eliteGoblin/focusd/winfit/internal/domain"

// DefaultRule implements TargetRule for every application.
type DefaultRule struct {
	target domain.Geometry
}

// NewDefaultRule creates the catch-all rule with the standard frame.
func NewDefaultRule() *DefaultRule {
	return &DefaultRule{target: DefaultGeometry()}
}

// NewDefaultRuleWithTarget creates the catch-all rule with a custom frame.
func NewDefaultRuleWithTarget(target domain.Geometry) *DefaultRule {
	return &DefaultRule{target: target}
}

func (r *DefaultRule) ID() string {
	return "default"
}

func (r *DefaultRule) Name() string {
	return "All applications"
}

func (r *DefaultRule) Matches(appName string) bool {
	return true
}

func (r *DefaultRule) Target() domain.Geometry {
	return r.target
}

// Ensure DefaultRule implements TargetRule.
var _ TargetRule = (*DefaultRule)(nil)
