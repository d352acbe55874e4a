package fluid

import (
	"errors"
	"math"
	"testing"

	V "diesel.com/sph/vector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWCSPHPressure(t *testing.T) {
	params := DefaultParameters()
	model := WCSPHModel{}
	k := params.TargetDensity * params.SpeedOfSound * params.SpeedOfSound / params.EosExponent
	assert.InDelta(t, k, model.EffectiveStiffness(&params), 1e-6)

	assert.Equal(t, 0.0, model.ComputePressure(params.TargetDensity, &params))
	dense := 1.01 * params.TargetDensity
	assert.InEpsilon(t, k*(math.Pow(1.01, 7)-1), model.ComputePressure(dense, &params), 1e-12)

	table := []struct {
		clamp bool
		scale float64
		want  float64
	}{
		{true, 1, 0},
		{false, 1, k * (math.Pow(0.99, 7) - 1)},
		{false, 0.5, 0.5 * k * (math.Pow(0.99, 7) - 1)},
		{false, 0, 0},
	}
	for i, test := range table {
		params.NegativePressureClamp = test.clamp
		params.NegativePressureScale = test.scale
		assert.InDelta(t, test.want, model.ComputePressure(0.99*params.TargetDensity, &params), 1e-6, "case %d", i)
	}

	params.Stiffness = 5
	assert.Equal(t, 5.0, model.EffectiveStiffness(&params))
}

func TestIdealGasPressure(t *testing.T) {
	params := DefaultParameters()
	params.Stiffness = 10
	model := IdealGasModel{}
	assert.InDelta(t, 100.0, model.ComputePressure(params.TargetDensity+10, &params), 1e-9)
	assert.Equal(t, 0.0, model.ComputePressure(params.TargetDensity-10, &params))

	params.Stiffness = 0
	assert.Equal(t, params.SpeedOfSound*params.SpeedOfSound, model.EffectiveStiffness(&params))
}

func TestViscosityAntisymmetric(t *testing.T) {
	params := DefaultParameters()
	vi, vj := V.Vec3{1, 0, 2}, V.Vec3{-1, 3, 0}
	for _, model := range []ForceModel{WCSPHModel{}, IdealGasModel{}} {
		fij := model.ViscosityForce(0.5, vi, vj, 1000, 1010, 42, &params)
		fji := model.ViscosityForce(0.5, vj, vi, 1010, 1000, 42, &params)
		assert.Equal(t, fij.Mul(-1), fji)
		assert.True(t, fij.Dot(vj.Sub(vi)) > 0)
	}

	params.ViscosityCoefficient = 0
	assert.Equal(t, V.Vec3{}, WCSPHModel{}.ViscosityForce(1, vi, vj, 1, 1, 1, &params))
}

func TestModelKinds(t *testing.T) {
	table := []struct {
		name string
		kind ModelKind
	}{
		{"wcsph", KindWCSPH},
		{"WCSPH", KindWCSPH},
		{"", KindWCSPH},
		{"idealgas", KindIdealGas},
		{"ideal-gas", KindIdealGas},
	}
	for _, test := range table {
		kind, err := ParseModelKind(test.name)
		require.NoError(t, err, test.name)
		assert.Equal(t, test.kind, kind, test.name)

		model, err := NewForceModel(kind)
		require.NoError(t, err)
		assert.Equal(t, kind, model.Kind())
	}

	_, err := ParseModelKind("pcisph")
	assert.True(t, errors.Is(err, ErrInvalidParameter))
	_, err = NewForceModel(ModelKind(9))
	assert.True(t, errors.Is(err, ErrInvalidParameter))
	assert.Equal(t, "idealgas", KindIdealGas.String())
}

func TestParametersValidate(t *testing.T) {
	p := DefaultParameters()
	require.NoError(t, p.Validate())
	assert.InDelta(t, 0.18, p.KernelRadius(), 1e-12)

	table := []struct {
		name string
		edit func(*Parameters)
	}{
		{"dimension", func(p *Parameters) { p.Dimension = 1 }},
		{"density", func(p *Parameters) { p.TargetDensity = 0 }},
		{"spacing", func(p *Parameters) { p.TargetSpacing = -0.1 }},
		{"radius", func(p *Parameters) { p.RelativeKernelRadius = 0 }},
		{"kernel", func(p *Parameters) { p.DensityKernel = "gaussian" }},
		{"stiffness", func(p *Parameters) { p.Stiffness = -1 }},
		{"exponent", func(p *Parameters) { p.EosExponent = 0 }},
		{"sound", func(p *Parameters) { p.SpeedOfSound = math.NaN() }},
		{"viscosity", func(p *Parameters) { p.ViscosityCoefficient = -0.1 }},
		{"pseudo", func(p *Parameters) { p.PseudoViscosityCoefficient = math.Inf(1) }},
		{"tension", func(p *Parameters) { p.SurfaceTensionCoefficient = -1 }},
		{"negative scale", func(p *Parameters) { p.NegativePressureScale = 2 }},
		{"limit", func(p *Parameters) { p.TimeStepLimitScale = 0 }},
		{"substeps", func(p *Parameters) { p.FixedSubSteps = -1 }},
		{"gravity", func(p *Parameters) { p.Gravity = V.Vec3{0, math.NaN(), 0} }},
		{"drag", func(p *Parameters) { p.DragCoefficient = -1 }},
		{"restitution", func(p *Parameters) { p.Restitution = 1.5 }},
		{"friction", func(p *Parameters) { p.FrictionCoefficient = -1 }},
		{"max speed", func(p *Parameters) { p.MaxSpeed = -1 }},
		{"max particles", func(p *Parameters) { p.MaxParticles = -1 }},
	}
	for _, test := range table {
		p := DefaultParameters()
		test.edit(&p)
		err := p.Validate()
		assert.True(t, errors.Is(err, ErrInvalidParameter), test.name)
	}
}
