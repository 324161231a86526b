package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eliteGoblin/focusd/winfit/internal/domain"
)

func TestDefaultRule(t *testing.T) {
	r := NewDefaultRule()

	assert.Equal(t, "default", r.ID())
	assert.True(t, r.Matches("Safari"))
	assert.True(t, r.Matches(""))
	assert.Equal(t, domain.Geometry{
		Point: domain.Point{X: 60, Y: 38},
		Size:  domain.Size{Width: 1409, Height: 918},
	}, r.Target())
}

func TestXcodeRule(t *testing.T) {
	r := NewXcodeRule()

	assert.Equal(t, "xcode", r.ID())
	assert.True(t, r.Matches("Xcode"))
	assert.True(t, r.Matches("Xcode – Project"))
	assert.False(t, r.Matches("xcode"), "match is case-sensitive")
	assert.False(t, r.Matches("Terminal"))

	target := r.Target()
	assert.Equal(t, float64(1369), target.Width)
	assert.Equal(t, float64(918), target.Height)
	assert.Equal(t, float64(60), target.X)
	assert.Equal(t, float64(38), target.Y)
}

func TestRegistry_FirstMatchWins(t *testing.T) {
	reg := NewRegistry()

	assert.Equal(t, []string{"xcode", "default"}, reg.List())

	rule, err := reg.Match("Xcode")
	require.NoError(t, err)
	assert.Equal(t, "xcode", rule.ID())

	rule, err = reg.Match("Finder")
	require.NoError(t, err)
	assert.Equal(t, "default", rule.ID())
}

func TestRegistry_NoCatchAll(t *testing.T) {
	reg := NewRegistryWithRules(NewXcodeRule())

	_, err := reg.Match("Finder")
	assert.Error(t, err)
}

func TestRegistry_RegisterReplacesByID(t *testing.T) {
	base := domain.Geometry{Size: domain.Size{Width: 100, Height: 100}}
	reg := NewRegistry()
	reg.Register(NewDefaultRuleWithTarget(base))

	assert.Len(t, reg.GetAll(), 2)
	rule, ok := reg.Get("default")
	require.True(t, ok)
	assert.Equal(t, base, rule.Target())
}

func TestNewRegistryWithBase_XcodeKeepsBaseOrigin(t *testing.T) {
	base := domain.Geometry{
		Point: domain.Point{X: 10, Y: 20},
		Size:  domain.Size{Width: 1000, Height: 700},
	}
	reg := NewRegistryWithBase(base)

	rule, err := reg.Match("Xcode")
	require.NoError(t, err)
	assert.Equal(t, domain.Geometry{
		Point: domain.Point{X: 10, Y: 20},
		Size:  domain.Size{Width: 960, Height: 700},
	}, rule.Target())
}

func TestNewRegistryWithBase_XcodeNeverWiderThanBase(t *testing.T) {
	tests := []struct {
		name      string
		baseWidth float64
		wantWidth float64
	}{
		{name: "default frame", baseWidth: DefaultWidth, wantWidth: 1369},
		{name: "narrow frame", baseWidth: 1200, wantWidth: 1160},
		{name: "too narrow to inset", baseWidth: 30, wantWidth: 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := DefaultGeometry()
			base.Width = tt.baseWidth
			reg := NewRegistryWithBase(base)

			xcode, err := reg.Match("Xcode")
			require.NoError(t, err)
			other, err := reg.Match("Safari")
			require.NoError(t, err)

			assert.Equal(t, tt.wantWidth, xcode.Target().Width)
			assert.LessOrEqual(t, xcode.Target().Width, other.Target().Width)
		})
	}
}
