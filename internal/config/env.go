package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

// EnvOverrides are environment variables that win over the config file.
type EnvOverrides struct {
	LogLevel        string `env:"PAGEFX_LOG_LEVEL"`
	FrameInterval   string `env:"PAGEFX_FRAME_INTERVAL"`
	StaggerUnit     string `env:"PAGEFX_STAGGER_UNIT"`
	ObserverEnabled *bool  `env:"PAGEFX_OBSERVER_ENABLED"`
}

// ParseEnv loads overrides from the process environment.
func ParseEnv() (EnvOverrides, error) {
	var o EnvOverrides
	if err := env.Parse(&o); err != nil {
		return EnvOverrides{}, fmt.Errorf("parse env: %w", err)
	}
	return o, nil
}

// Apply copies every set override into cfg.
func (o EnvOverrides) Apply(cfg *Config) {
	if cfg == nil {
		return
	}
	if v := strings.TrimSpace(o.LogLevel); v != "" {
		cfg.Logging.Level = v
	}
	if v := strings.TrimSpace(o.FrameInterval); v != "" {
		cfg.Scheduler.FrameInterval = v
	}
	if v := strings.TrimSpace(o.StaggerUnit); v != "" {
		cfg.Scheduler.StaggerUnit = v
	}
	if o.ObserverEnabled != nil {
		b := *o.ObserverEnabled
		cfg.Observer.Enabled = &b
	}
}

// ApplyEnv reads the environment and applies it to cfg.
func ApplyEnv(cfg *Config) error {
	o, err := ParseEnv()
	if err != nil {
		return err
	}
	o.Apply(cfg)
	return nil
}
