package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// fileConfig is the YAML overlay. Only the settings that are awkward to
// express as environment variables live here.
type fileConfig struct {
	Operators []string      `yaml:"operators"`
	Engine    *EngineConfig `yaml:"engine"`
}

func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	// Decode onto the current values so absent keys keep their defaults.
	fc := fileConfig{Operators: cfg.Notify.Operators, Engine: &cfg.Engine}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	cfg.Notify.Operators = fc.Operators
	return nil
}
