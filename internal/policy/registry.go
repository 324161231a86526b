package policy

import (
	"fmt"

	"github.com/eliteGoblin/focusd/winfit/internal/domain"
)

// Registry holds the geometry rule table.
// Rules are evaluated in registration order; the first match wins, so the
// catch-all rule must be registered last.
type Registry struct {
	rules []TargetRule
}

// NewRegistry creates a registry with all default rules.
func NewRegistry() *Registry {
	return NewRegistryWithBase(DefaultGeometry())
}

// NewRegistryWithBase creates the default rule table around a custom base frame.
func NewRegistryWithBase(base domain.Geometry) *Registry {
	r := &Registry{}

	// Special cases first, catch-all last
	r.Register(NewXcodeRuleFrom(base))
	r.Register(NewDefaultRuleWithTarget(base))

	return r
}

// NewRegistryWithRules creates a registry with custom rules (for testing).
func NewRegistryWithRules(rules ...TargetRule) *Registry {
	r := &Registry{}
	for _, rule := range rules {
		r.Register(rule)
	}
	return r
}

// Register appends a rule. A rule with an existing ID replaces it in place.
func (r *Registry) Register(rule TargetRule) {
	for i, existing := range r.rules {
		if existing.ID() == rule.ID() {
			r.rules[i] = rule
			return
		}
	}
	r.rules = append(r.rules, rule)
}

// Get returns a rule by ID.
func (r *Registry) Get(id string) (TargetRule, bool) {
	for _, rule := range r.rules {
		if rule.ID() == id {
			return rule, true
		}
	}
	return nil, false
}

// Match returns the first rule that applies to appName.
func (r *Registry) Match(appName string) (TargetRule, error) {
	for _, rule := range r.rules {
		if rule.Matches(appName) {
			return rule, nil
		}
	}
	return nil, fmt.Errorf("no geometry rule for %q", appName)
}

// GetAll returns all registered rules in evaluation order.
func (r *Registry) GetAll() []TargetRule {
	result := make([]TargetRule, len(r.rules))
	copy(result, r.rules)
	return result
}

// List returns all rule IDs in evaluation order.
func (r *Registry) List() []string {
	ids := make([]string, 0, len(r.rules))
	for _, rule := range r.rules {
		ids = append(ids, rule.ID())
	}
	return ids
}
