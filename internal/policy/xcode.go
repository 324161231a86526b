package policy

import (
	"strings"

	"github.com/eliteGoblin/focusd/winfit/internal/domain"
)

// XcodeInset is how much narrower Xcode windows are than the base frame,
// leaving room for the IDE inspector drawer.
const XcodeInset = 40

// XcodeWidth is the Xcode width on the default frame.
const XcodeWidth = DefaultWidth - XcodeInset

// XcodeRule implements TargetRule for Xcode windows.
type XcodeRule struct {
	target domain.Geometry
}

// NewXcodeRule creates the Xcode rule on top of the standard frame.
func NewXcodeRule() *XcodeRule {
	return NewXcodeRuleFrom(DefaultGeometry())
}

// NewXcodeRuleFrom derives the Xcode frame from base, narrowing only the
// width. A base too narrow to inset is used unchanged.
func NewXcodeRuleFrom(base domain.Geometry) *XcodeRule {
	if base.Width > XcodeInset {
		base.Width -= XcodeInset
	}
	return &XcodeRule{target: base}
}

func (r *XcodeRule) ID() string {
	return "xcode"
}

func (r *XcodeRule) Name() string {
	return "Xcode"
}

// Matches is a case-sensitive substring test, so "Xcode – Project" matches.
func (r *XcodeRule) Matches(appName string) bool {
	return strings.Contains(appName, "Xcode")
}

func (r *XcodeRule) Target() domain.Geometry {
	return r.target
}

// Ensure XcodeRule implements TargetRule.
var _ TargetRule = (*XcodeRule)(nil)
