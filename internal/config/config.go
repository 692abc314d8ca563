// Package config holds the YAML run configuration of the CLI.
package config

import (
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/spatialsim/internal/dynamo"
	"github.com/san-kum/spatialsim/internal/integrators"
	"github.com/san-kum/spatialsim/internal/simulate"
)

const (
	DefaultDurations = "1"
	DefaultIntervals = "0.1"
	DefaultDataDir   = "runs"
)

// Config describes one simulation run.
type Config struct {
	// Model is the path of a model YAML file.
	Model     string `yaml:"model"`
	Backend   string `yaml:"backend"`
	Durations string `yaml:"durations"`
	Intervals string `yaml:"intervals"`

	// TimeoutSeconds of zero is unbounded.
	TimeoutSeconds float64 `yaml:"timeout_seconds"`
	Partial        bool    `yaml:"partial"`
	Continue       bool    `yaml:"continue"`
	Threads        int     `yaml:"threads"`

	Pixel PixelConfig `yaml:"pixel"`
	FEM   FEMConfig   `yaml:"fem"`

	LogLevel string `yaml:"log_level"`
	DataDir  string `yaml:"data_dir"`
}

type PixelConfig struct {
	Integrator string `yaml:"integrator"`
	// Zero error bounds and timestep mean unbounded.
	MaxAbsErr   float64 `yaml:"max_abs_err"`
	MaxRelErr   float64 `yaml:"max_rel_err"`
	MaxTimestep float64 `yaml:"max_timestep"`
}

type FEMConfig struct {
	MaxTimestep float64 `yaml:"max_timestep"`
	CGTolerance float64 `yaml:"cg_tolerance"`
}

func DefaultConfig() *Config {
	return &Config{
		Backend:   string(simulate.BackendPixel),
		Durations: DefaultDurations,
		Intervals: DefaultIntervals,
		Threads:   1,
		Pixel: PixelConfig{
			Integrator: integrators.RK212.String(),
			MaxRelErr:  dynamo.DefaultTolerance().Rel,
		},
		FEM: FEMConfig{
			MaxTimestep: 0.1,
			CGTolerance: 1e-10,
		},
		LogLevel: "info",
		DataDir:  DefaultDataDir,
	}
}

// Load reads path over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Options converts the configuration into simulate options.
func (c *Config) Options() (simulate.Options, error) {
	o := simulate.DefaultOptions()
	if err := o.SetTimes(c.Durations, c.Intervals); err != nil {
		return o, err
	}
	backend, err := simulate.ParseBackend(c.Backend)
	if err != nil {
		return o, err
	}
	o.Backend = backend
	o.Timeout = time.Duration(c.TimeoutSeconds * float64(time.Second))
	o.ReturnPartial = c.Partial
	o.Continue = c.Continue
	o.Threads = c.Threads

	method, err := integrators.ParseMethod(c.Pixel.Integrator)
	if err != nil {
		return o, err
	}
	o.Pixel.Integrator = method
	o.Pixel.Tolerance = dynamo.Tolerance{
		Abs: orInf(c.Pixel.MaxAbsErr),
		Rel: orInf(c.Pixel.MaxRelErr),
	}
	o.Pixel.MaxTimestep = orInf(c.Pixel.MaxTimestep)
	o.FEM.MaxTimestep = c.FEM.MaxTimestep
	o.FEM.CGTolerance = c.FEM.CGTolerance
	return o, nil
}

func orInf(v float64) float64 {
	if v <= 0 {
		return math.Inf(1)
	}
	return v
}
