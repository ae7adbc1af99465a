package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Env holds overrides read from the environment. Unset pointer fields leave
// the file or preset value alone.
type Env struct {
	DataDir         string   `env:"NEMD_DATA_DIR"`
	LogLevel        string   `env:"NEMD_LOG_LEVEL" envDefault:"info"`
	Restart         string   `env:"NEMD_RESTART"`
	Margin          *float64 `env:"NEMD_MARGIN"`
	Temperature     *float64 `env:"NEMD_TEMPERATURE"`
	Timestep        *float64 `env:"NEMD_TIMESTEP"`
	AllowDegenerate *bool    `env:"NEMD_ALLOW_DEGENERATE"`
}

// ParseEnv loads overrides from environment variables.
func ParseEnv() (*Env, error) {
	var e Env
	if err := env.Parse(&e); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &e, nil
}

// Apply copies every set override into cfg.
func (e *Env) Apply(cfg *Config) {
	if e.Restart != "" {
		cfg.Restart = e.Restart
	}
	if e.Margin != nil {
		cfg.Layout.Margin = *e.Margin
	}
	if e.Temperature != nil {
		cfg.Temperature = *e.Temperature
	}
	if e.Timestep != nil {
		cfg.Timestep = *e.Timestep
	}
	if e.AllowDegenerate != nil {
		cfg.Layout.AllowDegenerate = *e.AllowDegenerate
	}
}
