package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/nemd/internal/nemd"
)

const (
	DefaultUnits       = "metal"
	DefaultRestart     = "optimize.restart"
	DefaultPairStyle   = "tersoff"
	DefaultPairFile    = "BNC.tersoff"
	DefaultTimestep    = 0.0005
	DefaultTemperature = 300.0
	DefaultDumpEvery   = 1

	// v*dF/du*v in [A/ps]*[eV/A]/[A]*[A/ps], converted to SI
	DefaultScaleFactor = 1.602e-19 / 1e-20 * 1e4
)

type Config struct {
	Units       string          `yaml:"units"`
	Restart     string          `yaml:"restart"`
	Potential   PotentialConfig `yaml:"potential"`
	Masses      map[int]float64 `yaml:"masses"`
	Timestep    float64         `yaml:"timestep"`
	Temperature float64         `yaml:"temperature"`
	Layout      LayoutConfig    `yaml:"layout"`
	Dumps       DumpConfig      `yaml:"dumps"`
	Analysis    AnalysisConfig  `yaml:"analysis"`
}

type PotentialConfig struct {
	Style    string   `yaml:"style"`
	File     string   `yaml:"file"`
	Elements []string `yaml:"elements"`
}

type LayoutConfig struct {
	Axis               string  `yaml:"axis"`
	Margin             float64 `yaml:"margin"`
	Subdivisions       int     `yaml:"subdivisions"`
	InterfaceHalfWidth float64 `yaml:"interface_half_width"`
	InterfaceOffset    float64 `yaml:"interface_offset"`
	HotColdInset       float64 `yaml:"hot_cold_inset"`
	AllowDegenerate    bool    `yaml:"allow_degenerate"`
}

type DumpConfig struct {
	Left      string `yaml:"left"`
	Right     string `yaml:"right"`
	Interface string `yaml:"interface"`
	Every     int    `yaml:"every"`
}

// AnalysisConfig holds the spectral heat current post-processing inputs.
type AnalysisConfig struct {
	Velocities      string  `yaml:"velocities"`
	ForceConstants  string  `yaml:"force_constants"`
	DtMD            float64 `yaml:"dt_md"`
	SampleEvery     int     `yaml:"sample_every"`
	Steps           int     `yaml:"steps"`
	Chunks          int     `yaml:"chunks"`
	ScaleFactor     float64 `yaml:"scale_factor"`
	WindowWidth     float64 `yaml:"window_width"`
	InPlane         bool    `yaml:"in_plane"`
	OutOfPlane      bool    `yaml:"out_of_plane"`
	Area            float64 `yaml:"area"`
	TemperatureJump float64 `yaml:"temperature_jump"`
}

func DefaultConfig() *Config {
	return &Config{
		Units:     DefaultUnits,
		Restart:   DefaultRestart,
		Potential: PotentialConfig{
			Style:    DefaultPairStyle,
			File:     DefaultPairFile,
			Elements: []string{"B", "C", "N"},
		},
		Masses:      map[int]float64{1: 10.811, 2: 12.011, 3: 14.007},
		Timestep:    DefaultTimestep,
		Temperature: DefaultTemperature,
		Layout: LayoutConfig{
			Axis:               "y",
			Margin:             nemd.DefaultMargin,
			Subdivisions:       nemd.DefaultSubdivisions,
			InterfaceHalfWidth: nemd.DefaultInterfaceHalfWidth,
			InterfaceOffset:    nemd.DefaultInterfaceOffset,
			HotColdInset:       nemd.DefaultHotColdInset,
		},
		Dumps: DumpConfig{
			Left:      "dump.left",
			Right:     "dump.right",
			Interface: "dump.interface",
			Every:     DefaultDumpEvery,
		},
		Analysis: AnalysisConfig{
			Velocities:      "vels.compact.dat",
			ForceConstants:  "Fij.kij",
			DtMD:            0.5e-15,
			SampleEvery:     15,
			Steps:           500000,
			Chunks:          20,
			ScaleFactor:     DefaultScaleFactor,
			WindowWidth:     2e12,
			Area:            62.119 * 3.35,
			TemperatureJump: 19.3,
		},
	}
}

func Load(path string) (*Config, error) {
	return LoadOver(path, DefaultConfig())
}

// LoadOver reads path on top of a copy of base. Keys missing from the file
// keep base's values, except masses: a masses section replaces base's
// masses as a whole.
func LoadOver(path string, base *Config) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := base.Clone()
	baseMasses := cfg.Masses
	cfg.Masses = nil
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if cfg.Masses == nil {
		cfg.Masses = baseMasses
	}
	return cfg, nil
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	out := *c
	out.Potential.Elements = append([]string(nil), c.Potential.Elements...)
	out.Masses = make(map[int]float64, len(c.Masses))
	for t, m := range c.Masses {
		out.Masses[t] = m
	}
	return &out
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks the fields the engine would otherwise reject late.
func (c *Config) Validate() error {
	if c.Restart == "" {
		return fmt.Errorf("restart file must be set")
	}
	if c.Potential.Style == "" || c.Potential.File == "" {
		return fmt.Errorf("potential style and file must be set")
	}
	if len(c.Potential.Elements) == 0 {
		return fmt.Errorf("potential needs at least one element")
	}
	for t := 1; t <= len(c.Potential.Elements); t++ {
		m, ok := c.Masses[t]
		if !ok {
			return fmt.Errorf("missing mass for species %d (%s)", t, c.Potential.Elements[t-1])
		}
		if m <= 0 {
			return fmt.Errorf("mass for species %d must be positive, got %g", t, m)
		}
	}
	for t := range c.Masses {
		if t < 1 || t > len(c.Potential.Elements) {
			return fmt.Errorf("mass given for species %d, but only %d elements are mapped", t, len(c.Potential.Elements))
		}
	}
	if c.Timestep <= 0 {
		return fmt.Errorf("timestep must be positive, got %g", c.Timestep)
	}
	if c.Temperature <= 0 {
		return fmt.Errorf("temperature must be positive, got %g", c.Temperature)
	}
	if c.Dumps.Left == "" || c.Dumps.Right == "" || c.Dumps.Interface == "" {
		return fmt.Errorf("dump file names must be set")
	}
	if c.Dumps.Every < 1 {
		return fmt.Errorf("dump interval must be at least 1, got %d", c.Dumps.Every)
	}
	if _, err := c.Params(); err != nil {
		return err
	}
	return nil
}

// Params converts the layout section into derivation parameters.
func (c *Config) Params() (nemd.Params, error) {
	axis, err := nemd.ParseAxis(c.Layout.Axis)
	if err != nil {
		return nemd.Params{}, err
	}
	p := nemd.Params{
		Axis:               axis,
		Margin:             c.Layout.Margin,
		Subdivisions:       c.Layout.Subdivisions,
		InterfaceHalfWidth: c.Layout.InterfaceHalfWidth,
		InterfaceOffset:    c.Layout.InterfaceOffset,
		HotColdInset:       c.Layout.HotColdInset,
		AllowDegenerate:    c.Layout.AllowDegenerate,
	}
	return p, p.Validate()
}

// Species returns the species IDs in ascending order.
func (c *Config) Species() []int {
	ids := make([]int, len(c.Potential.Elements))
	for i := range ids {
		ids[i] = i + 1
	}
	return ids
}
