package scenario

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/bullwhip-sim/bullwhip-sim/sim"
)

// scenarioFile is the on-disk shape of a custom scenario file.
type scenarioFile struct {
	Scenarios []Definition `yaml:"scenarios"`
}

// LoadFile parses a yaml scenario file and registers every definition it
// contains. Definitions omit config fields freely; unset fields inherit the
// engine defaults.
func (c *Catalog) LoadFile(path string) ([]Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario file: %w", err)
	}

	var file scenarioFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse scenario file %s: %w", path, err)
	}

	loaded := make([]Definition, 0, len(file.Scenarios))
	for _, def := range file.Scenarios {
		def.Config = mergeWithDefaults(def.Config)
		if err := c.Register(def); err != nil {
			return nil, fmt.Errorf("scenario file %s: %w", path, err)
		}
		loaded = append(loaded, def)
	}
	return loaded, nil
}

// mergeWithDefaults fills zero-valued config fields with the engine defaults
// so scenario files only need to state what they change.
func mergeWithDefaults(cfg sim.SimulationConfig) sim.SimulationConfig {
	d := sim.DefaultConfig()

	if cfg.Weeks > 0 {
		d.Weeks = cfg.Weeks
	}
	if cfg.InitialInventory > 0 {
		d.InitialInventory = cfg.InitialInventory
	}
	if cfg.InitialBacklog > 0 {
		d.InitialBacklog = cfg.InitialBacklog
	}
	if cfg.HoldingCostPerUnit > 0 {
		d.HoldingCostPerUnit = cfg.HoldingCostPerUnit
	}
	if cfg.BacklogCostPerUnit > 0 {
		d.BacklogCostPerUnit = cfg.BacklogCostPerUnit
	}
	if cfg.OrderDelay > 0 {
		d.OrderDelay = cfg.OrderDelay
	}
	if cfg.ShipmentDelay > 0 {
		d.ShipmentDelay = cfg.ShipmentDelay
	}
	if cfg.ProductionDelay > 0 {
		d.ProductionDelay = cfg.ProductionDelay
	}
	if cfg.ProductionCapacity > 0 {
		d.ProductionCapacity = cfg.ProductionCapacity
	}
	if cfg.DemandType != "" {
		d.DemandType = cfg.DemandType
	}
	if cfg.DemandParams != (sim.DemandParams{}) {
		d.DemandParams = cfg.DemandParams
	}
	if cfg.RetailerPolicy != "" {
		d.RetailerPolicy = cfg.RetailerPolicy
	}
	if cfg.WholesalerPolicy != "" {
		d.WholesalerPolicy = cfg.WholesalerPolicy
	}
	if cfg.DistributorPolicy != "" {
		d.DistributorPolicy = cfg.DistributorPolicy
	}
	if cfg.FactoryPolicy != "" {
		d.FactoryPolicy = cfg.FactoryPolicy
	}
	if cfg.PolicyParams != (sim.PolicyParams{}) {
		d.PolicyParams = cfg.PolicyParams
	}
	if cfg.Seed != 0 {
		d.Seed = cfg.Seed
	}
	return d
}
