package config

import "sort"

var Presets = map[string]func() *Config{
	"bnc": DefaultConfig,
	"bnc-wide": func() *Config {
		cfg := DefaultConfig()
		cfg.Layout.Margin = 150
		cfg.Layout.Subdivisions = 60
		return cfg
	},
	"bnc-thin": func() *Config {
		cfg := DefaultConfig()
		cfg.Layout.InterfaceHalfWidth = 3
		cfg.Layout.InterfaceOffset = 3
		return cfg
	},
	"bnc-hot": func() *Config {
		cfg := DefaultConfig()
		cfg.Temperature = 600
		cfg.Analysis.TemperatureJump = 40
		return cfg
	},
}

// GetPreset returns a fresh copy of the named preset, or nil.
func GetPreset(name string) *Config {
	fn, ok := Presets[name]
	if !ok {
		return nil
	}
	return fn()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
