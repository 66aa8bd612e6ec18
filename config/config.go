package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"hotword/internal/domain"
)

type Config struct {
	Capture  CaptureConfig         `yaml:"capture"`
	Detector domain.DetectorConfig `yaml:"detector"`
	Models   []domain.ModelSpec    `yaml:"models"`
	Listen   ListenConfig          `yaml:"listen"`
	Log      LogConfig             `yaml:"log"`
}

type CaptureConfig struct {
	Program string `yaml:"program"`
	Device  string `yaml:"device"`
	Loop    bool   `yaml:"loop"`
}

type ListenConfig struct {
	Cooldown string        `yaml:"cooldown"`
	Restart  RestartConfig `yaml:"restart"`
}

// RestartConfig controls how a failed detector engine is brought back up.
type RestartConfig struct {
	Attempts int    `yaml:"attempts"`
	Delay    string `yaml:"delay"`
	MaxDelay string `yaml:"max_delay"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.setDefaults()

	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.Capture.Program == "" {
		c.Capture.Program = domain.DefaultRecorderProgram()
	}
	if c.Detector.Engine == "" {
		c.Detector.Engine = domain.EngineSpotter
	}
	if c.Listen.Cooldown == "" {
		c.Listen.Cooldown = "0s"
	}
	if c.Listen.Restart.Attempts == 0 {
		c.Listen.Restart.Attempts = 3
	}
	if c.Listen.Restart.Delay == "" {
		c.Listen.Restart.Delay = "500ms"
	}
	if c.Listen.Restart.MaxDelay == "" {
		c.Listen.Restart.MaxDelay = "5s"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}
