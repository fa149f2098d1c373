package cmd

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/bullwhip-sim/bullwhip-sim/sim"
)

// LoadConfigFile overlays a YAML simulation config on top of base. Fields
// absent from the file keep the base value, so a config file only needs to
// state what it changes.
func LoadConfigFile(path string, base sim.SimulationConfig) (sim.SimulationConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("read config file: %w", err)
	}

	cfg := base
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return base, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return cfg, nil
}
