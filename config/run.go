package config

import (
	"fmt"
	"strings"

	"diesel.com/sph/fluid"
	"github.com/fsnotify/fsnotify"
	"github.com/mitchellh/mapstructure"
	toml "github.com/pelletier/go-toml"
	jww "github.com/spf13/jwalterweatherman"
	"github.com/spf13/viper"
)

//EnvPrefix for environment overrides, e.g. DIESEL_FRAMES=120
const EnvPrefix = "DIESEL"

//RunConfig - how a scene is driven: frames, workers, output and front ends
type RunConfig struct {
	Scene         string    `mapstructure:"scene" toml:"scene" comment:"gcfg scene file, empty uses the built in example"`
	Frames        int       `mapstructure:"frames" toml:"frames" comment:"number of frames to simulate"`
	FPS           float64   `mapstructure:"fps" toml:"fps" comment:"frames per second of simulation time"`
	Workers       int       `mapstructure:"workers" toml:"workers" comment:"worker goroutines, 0 uses every CPU, 1 runs serially"`
	Output        string    `mapstructure:"output" toml:"output" comment:"directory for particle snapshots, empty disables them"`
	SnapshotEvery int       `mapstructure:"snapshot_every" toml:"snapshot_every" comment:"write every n-th frame"`
	Voxels        int       `mapstructure:"voxels" toml:"voxels" comment:"voxel resolution of density dumps, 0 disables them"`
	Addr          string    `mapstructure:"addr" toml:"addr" comment:"listen address of the frame stream"`
	LogLevel      string    `mapstructure:"log_level" toml:"log_level" comment:"trace, debug, info, warn or error"`
	Profile       string    `mapstructure:"profile" toml:"profile" comment:"cpu or mem, empty disables profiling"`
	Overrides     Overrides `mapstructure:"overrides" toml:"overrides" comment:"solver parameters replacing the scene values"`
}

func DefaultRunConfig() RunConfig {
	return RunConfig{
		Frames:        120,
		FPS:           60,
		SnapshotEvery: 1,
		Addr:          "localhost:8080",
		LogLevel:      "warn",
	}
}

//Check the run section for values the driver can't use
func (rc *RunConfig) Check() error {
	if rc.Frames < 0 {
		return fmt.Errorf("frames must be non-negative, but is %d", rc.Frames)
	}
	if !(rc.FPS > 0) {
		return fmt.Errorf("fps must be positive, but is %g", rc.FPS)
	}
	if rc.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, but is %d", rc.Workers)
	}
	if rc.SnapshotEvery <= 0 {
		rc.SnapshotEvery = 1
	}
	if rc.Voxels < 0 {
		return fmt.Errorf("voxels must be non-negative, but is %d", rc.Voxels)
	}
	if _, err := ParseLogLevel(rc.LogLevel); err != nil {
		return err
	}
	switch strings.ToLower(rc.Profile) {
	case "", "cpu", "mem":
	default:
		return fmt.Errorf("profile must be one of [cpu | mem], '%s' is not recognized", rc.Profile)
	}
	return nil
}

//Overrides - optional parameter replacements. Nil fields leave the parameter alone.
//The same struct decodes websocket control messages.
type Overrides struct {
	Stiffness             *float64 `mapstructure:"stiffness" toml:"stiffness,omitempty"`
	SpeedOfSound          *float64 `mapstructure:"speed_of_sound" toml:"speed_of_sound,omitempty"`
	Viscosity             *float64 `mapstructure:"viscosity" toml:"viscosity,omitempty"`
	PseudoViscosity       *float64 `mapstructure:"pseudo_viscosity" toml:"pseudo_viscosity,omitempty"`
	SurfaceTension        *float64 `mapstructure:"surface_tension" toml:"surface_tension,omitempty"`
	NegativePressureClamp *bool    `mapstructure:"negative_pressure_clamp" toml:"negative_pressure_clamp,omitempty"`
	NegativePressureScale *float64 `mapstructure:"negative_pressure_scale" toml:"negative_pressure_scale,omitempty"`
	TimeStepLimitScale    *float64 `mapstructure:"time_step_limit_scale" toml:"time_step_limit_scale,omitempty"`
	FixedSubSteps         *int     `mapstructure:"fixed_sub_steps" toml:"fixed_sub_steps,omitempty"`
	GravityY              *float64 `mapstructure:"gravity_y" toml:"gravity_y,omitempty"`
	Drag                  *float64 `mapstructure:"drag" toml:"drag,omitempty"`
	Restitution           *float64 `mapstructure:"restitution" toml:"restitution,omitempty"`
	Friction              *float64 `mapstructure:"friction" toml:"friction,omitempty"`
	TargetSpacing         *float64 `mapstructure:"target_spacing" toml:"target_spacing,omitempty"`
	RelativeKernelRadius  *float64 `mapstructure:"relative_kernel_radius" toml:"relative_kernel_radius,omitempty"`
	CheckInstability      *bool    `mapstructure:"check_instability" toml:"check_instability,omitempty"`
}

//Empty is true when no field is set
func (o *Overrides) Empty() bool {
	return *o == Overrides{}
}

//Apply copies every set field onto p
func (o *Overrides) Apply(p *fluid.Parameters) {
	setF := func(dst *float64, src *float64) {
		if src != nil {
			*dst = *src
		}
	}
	setF(&p.Stiffness, o.Stiffness)
	setF(&p.SpeedOfSound, o.SpeedOfSound)
	setF(&p.ViscosityCoefficient, o.Viscosity)
	setF(&p.PseudoViscosityCoefficient, o.PseudoViscosity)
	setF(&p.SurfaceTensionCoefficient, o.SurfaceTension)
	setF(&p.NegativePressureScale, o.NegativePressureScale)
	setF(&p.TimeStepLimitScale, o.TimeStepLimitScale)
	setF(&p.Gravity[1], o.GravityY)
	setF(&p.DragCoefficient, o.Drag)
	setF(&p.Restitution, o.Restitution)
	setF(&p.FrictionCoefficient, o.Friction)
	setF(&p.TargetSpacing, o.TargetSpacing)
	setF(&p.RelativeKernelRadius, o.RelativeKernelRadius)
	if o.NegativePressureClamp != nil {
		p.NegativePressureClamp = *o.NegativePressureClamp
	}
	if o.FixedSubSteps != nil {
		p.FixedSubSteps = *o.FixedSubSteps
	}
	if o.CheckInstability != nil {
		p.CheckInstability = *o.CheckInstability
	}
}

//DecodeOverrides accepts loosely typed input such as decoded JSON, so "0.2"
//and 0.2 both set a float field
func DecodeOverrides(input interface{}) (Overrides, error) {
	var o Overrides
	cfg := &mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           &o,
	}
	dec, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return o, err
	}
	if err := dec.Decode(input); err != nil {
		return o, fmt.Errorf("decoding overrides: %w", err)
	}
	return o, nil
}

//NewViper with the run defaults registered and DIESEL_ environment lookup
func NewViper() *viper.Viper {
	v := viper.New()
	def := DefaultRunConfig()
	v.SetDefault("scene", def.Scene)
	v.SetDefault("frames", def.Frames)
	v.SetDefault("fps", def.FPS)
	v.SetDefault("workers", def.Workers)
	v.SetDefault("output", def.Output)
	v.SetDefault("snapshot_every", def.SnapshotEvery)
	v.SetDefault("voxels", def.Voxels)
	v.SetDefault("addr", def.Addr)
	v.SetDefault("log_level", def.LogLevel)
	v.SetDefault("profile", def.Profile)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	return v
}

//LoadRunConfig reads fname (toml, yaml or json by extension) when given and
//decodes the merged view of file, environment and bound flags
func LoadRunConfig(v *viper.Viper, fname string) (RunConfig, error) {
	if fname != "" {
		v.SetConfigFile(fname)
		if err := v.ReadInConfig(); err != nil {
			return RunConfig{}, fmt.Errorf("reading run config %s: %w", fname, err)
		}
		jww.INFO.Printf("Run config loaded from %s", v.ConfigFileUsed())
	}
	return DecodeRunConfig(v)
}

func DecodeRunConfig(v *viper.Viper) (RunConfig, error) {
	rc := DefaultRunConfig()
	if err := v.Unmarshal(&rc); err != nil {
		return rc, fmt.Errorf("decoding run config: %w", err)
	}
	if err := rc.Check(); err != nil {
		return rc, err
	}
	return rc, nil
}

//WatchOverrides calls fn with the overrides section each time the run config
//file changes on disk. Bad edits are logged and skipped.
func WatchOverrides(v *viper.Viper, fn func(Overrides)) {
	v.OnConfigChange(func(e fsnotify.Event) {
		if e.Op&(fsnotify.Write|fsnotify.Create) == 0 {
			return
		}
		o, err := DecodeOverrides(v.Get("overrides"))
		if err != nil {
			jww.WARN.Printf("Ignoring change to %s: %v", e.Name, err)
			return
		}
		jww.INFO.Printf("Overrides reloaded from %s", e.Name)
		fn(o)
	})
	v.WatchConfig()
}

//DumpTOML renders the run config with field comments
func DumpTOML(rc RunConfig) (string, error) {
	b, err := toml.Marshal(rc)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

//ParseLogLevel maps a level name to a jww threshold
func ParseLogLevel(name string) (jww.Threshold, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "trace":
		return jww.LevelTrace, nil
	case "debug":
		return jww.LevelDebug, nil
	case "", "info":
		return jww.LevelInfo, nil
	case "warn", "warning":
		return jww.LevelWarn, nil
	case "error":
		return jww.LevelError, nil
	case "critical":
		return jww.LevelCritical, nil
	case "fatal":
		return jww.LevelFatal, nil
	}
	return jww.LevelInfo, fmt.Errorf("log level '%s' is not recognized", name)
}
