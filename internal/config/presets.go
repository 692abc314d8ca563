package config

import "slices"

// Presets are named run profiles; a preset leaves Model empty.
var Presets = map[string]*Config{
	"quick": {
		Backend: "pixel", Durations: "0.5", Intervals: "0.05", Threads: 1,
		Pixel: PixelConfig{Integrator: "RK212", MaxRelErr: 0.01},
	},
	"accurate": {
		Backend: "pixel", Durations: "10", Intervals: "0.5", Threads: 0,
		Pixel: PixelConfig{Integrator: "RK435", MaxAbsErr: 1e-6, MaxRelErr: 1e-4},
	},
	"explicit": {
		Backend: "pixel", Durations: "10", Intervals: "0.5", Threads: 0,
		Pixel: PixelConfig{Integrator: "RK101"},
	},
	"fem": {
		Backend: "fem", Durations: "10", Intervals: "0.5", Threads: 0,
		FEM: FEMConfig{MaxTimestep: 0.01, CGTolerance: 1e-10},
	},
	"long": {
		Backend: "pixel", Durations: "100;900", Intervals: "1;10", Threads: 0,
		TimeoutSeconds: 600, Partial: true,
		Pixel: PixelConfig{Integrator: "RK212", MaxRelErr: 0.005},
	},
}

// GetPreset returns a copy of the named preset with the remaining fields
// defaulted, or nil.
func GetPreset(name string) *Config {
	p, ok := Presets[name]
	if !ok {
		return nil
	}
	cfg := DefaultConfig()
	cfg.Backend = p.Backend
	cfg.Durations, cfg.Intervals = p.Durations, p.Intervals
	cfg.Threads = p.Threads
	cfg.TimeoutSeconds, cfg.Partial = p.TimeoutSeconds, p.Partial
	if p.Pixel != (PixelConfig{}) {
		cfg.Pixel = p.Pixel
	}
	if p.FEM != (FEMConfig{}) {
		cfg.FEM = p.FEM
	}
	return cfg
}

// ListPresets returns the preset names, sorted.
func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
