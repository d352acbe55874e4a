package config

import (
	"os"
	"path/filepath"
	"testing"

	"diesel.com/sph/fluid"
	jww "github.com/spf13/jwalterweatherman"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunDefaults(t *testing.T) {
	rc, err := LoadRunConfig(NewViper(), "")
	require.NoError(t, err)
	assert.Equal(t, DefaultRunConfig(), rc)
	assert.True(t, rc.Overrides.Empty())
}

func TestRunConfigFile(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "run.toml")
	text := `frames = 10
fps = 30
workers = 2
log_level = "debug"

[overrides]
viscosity = 0.25
fixed_sub_steps = 4
negative_pressure_clamp = false
`
	require.NoError(t, os.WriteFile(fname, []byte(text), 0644))

	rc, err := LoadRunConfig(NewViper(), fname)
	require.NoError(t, err)
	assert.Equal(t, 10, rc.Frames)
	assert.Equal(t, 30.0, rc.FPS)
	assert.Equal(t, 2, rc.Workers)
	assert.Equal(t, "localhost:8080", rc.Addr)

	require.NotNil(t, rc.Overrides.Viscosity)
	assert.Equal(t, 0.25, *rc.Overrides.Viscosity)
	require.NotNil(t, rc.Overrides.FixedSubSteps)
	assert.Equal(t, 4, *rc.Overrides.FixedSubSteps)
	assert.Nil(t, rc.Overrides.Stiffness)

	p := fluid.DefaultParameters()
	rc.Overrides.Apply(&p)
	assert.Equal(t, 0.25, p.ViscosityCoefficient)
	assert.Equal(t, 4, p.FixedSubSteps)
	assert.False(t, p.NegativePressureClamp)
	assert.Equal(t, fluid.DefaultParameters().SpeedOfSound, p.SpeedOfSound)
}

func TestRunConfigEnv(t *testing.T) {
	t.Setenv("DIESEL_FRAMES", "7")
	rc, err := LoadRunConfig(NewViper(), "")
	require.NoError(t, err)
	assert.Equal(t, 7, rc.Frames)
}

func TestRunConfigCheck(t *testing.T) {
	table := []struct {
		mod func(*RunConfig)
		ok  bool
	}{
		{func(rc *RunConfig) {}, true},
		{func(rc *RunConfig) { rc.Frames = -1 }, false},
		{func(rc *RunConfig) { rc.FPS = 0 }, false},
		{func(rc *RunConfig) { rc.Workers = -2 }, false},
		{func(rc *RunConfig) { rc.Voxels = -1 }, false},
		{func(rc *RunConfig) { rc.LogLevel = "loud" }, false},
		{func(rc *RunConfig) { rc.Profile = "block" }, false},
		{func(rc *RunConfig) { rc.Profile = "CPU" }, true},
		{func(rc *RunConfig) { rc.SnapshotEvery = 0 }, true},
	}

	for i, test := range table {
		rc := DefaultRunConfig()
		test.mod(&rc)
		assert.Equal(t, test.ok, rc.Check() == nil, "case %d", i)
	}
}

func TestDecodeOverrides(t *testing.T) {
	o, err := DecodeOverrides(map[string]interface{}{
		"viscosity":   "0.5",
		"gravity_y":   -1.0,
		"restitution": 0.3,
	})
	require.NoError(t, err)
	require.NotNil(t, o.Viscosity)
	assert.Equal(t, 0.5, *o.Viscosity)
	assert.Equal(t, -1.0, *o.GravityY)
	assert.False(t, o.Empty())

	p := fluid.DefaultParameters()
	o.Apply(&p)
	assert.Equal(t, -1.0, p.Gravity[1])
	assert.Equal(t, 0.3, p.Restitution)

	_, err = DecodeOverrides(map[string]interface{}{"warp": 9})
	assert.Error(t, err)

	o, err = DecodeOverrides(nil)
	require.NoError(t, err)
	assert.True(t, o.Empty())
}

func TestDumpTOML(t *testing.T) {
	rc := DefaultRunConfig()
	out, err := DumpTOML(rc)
	require.NoError(t, err)
	assert.Contains(t, out, "frames = 120")
	assert.Contains(t, out, "# number of frames to simulate")
	assert.NotContains(t, out, "viscosity")
}

func TestParseLogLevel(t *testing.T) {
	lvl, err := ParseLogLevel("Warning")
	require.NoError(t, err)
	assert.Equal(t, jww.LevelWarn, lvl)
	_, err = ParseLogLevel("shout")
	assert.Error(t, err)
}
