package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file looked for when none is given; a missing
// default file falls back to Default() rather than failing.
const DefaultPath = "squeezeoff.yaml"

type Config struct {
	// Isolation selects the worker backend: "process" (fresh subprocess per
	// call) or "docker" (throwaway container per call).
	Isolation string `yaml:"isolation"`
	Docker    Docker `yaml:"docker"`
	// TimeoutSeconds bounds each encode/decode call; 0 disables the limit
	// and a hung submission hangs the run.
	TimeoutSeconds int `yaml:"timeout_seconds"`
	// Parallel bounds concurrent encode workers.
	Parallel int `yaml:"parallel"`
}

type Docker struct {
	Image         string  `yaml:"image"`
	CPULimit      float64 `yaml:"cpu_limit"`
	MemoryLimitMB int64   `yaml:"memory_limit_mb"`
}

func Default() *Config {
	return &Config{
		Isolation:      "process",
		Docker:         Docker{Image: "debian:stable-slim"},
		TimeoutSeconds: 600,
		Parallel:       1,
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && path == DefaultPath {
			return Default(), nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func validate(cfg *Config) error {
	switch cfg.Isolation {
	case "process", "docker":
	default:
		return fmt.Errorf("isolation must be \"process\" or \"docker\", got %q", cfg.Isolation)
	}
	if cfg.Isolation == "docker" && cfg.Docker.Image == "" {
		return fmt.Errorf("docker isolation requires an image")
	}
	if cfg.TimeoutSeconds < 0 {
		return fmt.Errorf("timeout_seconds must not be negative")
	}
	if cfg.Parallel < 1 {
		return fmt.Errorf("parallel must be at least 1")
	}
	return nil
}
