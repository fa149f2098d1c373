// Package scenario provides the preset catalog of simulation setups and the
// loader for user-defined scenario files. It configures the engine but never
// reaches into it: a scenario is just a named SimulationConfig with teaching
// metadata.
package scenario

import (
	"fmt"
	"sort"

	"github.com/bullwhip-sim/bullwhip-sim/sim"
)

// Difficulty grades how hard a scenario is to play well.
type Difficulty string

const (
	Beginner     Difficulty = "beginner"
	Intermediate Difficulty = "intermediate"
	Advanced     Difficulty = "advanced"
	Expert       Difficulty = "expert"
)

// Definition is one complete scenario: a simulation configuration plus the
// metadata the game layer shows to players.
type Definition struct {
	ID          string     `yaml:"id" json:"id"`
	Name        string     `yaml:"name" json:"name"`
	Description string     `yaml:"description" json:"description"`
	Difficulty  Difficulty `yaml:"difficulty" json:"difficulty"`

	Config sim.SimulationConfig `yaml:"config" json:"config"`

	// Win targets evaluated by the game layer; zero means "no target".
	TargetTeamCost   float64 `yaml:"target_team_cost" json:"target_team_cost"`
	TargetFillRate   float64 `yaml:"target_fill_rate" json:"target_fill_rate"`
	MaxStockoutWeeks int     `yaml:"max_stockout_weeks" json:"max_stockout_weeks"`
}

// Catalog holds the predefined scenarios plus any registered custom ones.
type Catalog struct {
	builtin map[string]Definition
	custom  map[string]Definition
}

// NewCatalog returns a catalog populated with the predefined scenarios.
func NewCatalog() *Catalog {
	c := &Catalog{
		builtin: make(map[string]Definition),
		custom:  make(map[string]Definition),
	}
	for _, def := range predefined() {
		c.builtin[def.ID] = def
	}
	return c
}

// Get looks up a scenario by ID, custom scenarios taking precedence over
// builtins of the same name.
func (c *Catalog) Get(id string) (Definition, error) {
	if def, ok := c.custom[id]; ok {
		return def, nil
	}
	if def, ok := c.builtin[id]; ok {
		return def, nil
	}
	return Definition{}, fmt.Errorf("unknown scenario %q", id)
}

// Register adds or replaces a custom scenario.
func (c *Catalog) Register(def Definition) error {
	if def.ID == "" {
		return fmt.Errorf("scenario id must not be empty")
	}
	c.custom[def.ID] = def
	return nil
}

// List returns all scenarios sorted by ID.
func (c *Catalog) List() []Definition {
	defs := make([]Definition, 0, len(c.builtin)+len(c.custom))
	for id, def := range c.builtin {
		if _, shadowed := c.custom[id]; !shadowed {
			defs = append(defs, def)
		}
	}
	for _, def := range c.custom {
		defs = append(defs, def)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].ID < defs[j].ID })
	return defs
}

func predefined() []Definition {
	base := sim.DefaultConfig()

	classic := base

	step := base
	step.DemandType = sim.DemandStep
	step.Weeks = 40

	seasonal := base
	seasonal.DemandType = sim.DemandSeasonal
	seasonal.DemandParams.Amplitude = 3
	seasonal.DemandParams.Period = 26

	randomWalk := base
	randomWalk.DemandType = sim.DemandRandom
	randomWalk.DemandParams.Variation = 3

	disruption := base
	disruption.DemandType = sim.DemandStep
	disruption.DemandParams.StepWeek = 10
	disruption.DemandParams.StepDemand = 16
	disruption.ProductionCapacity = 40

	growth := base
	growth.DemandType = sim.DemandStep
	growth.DemandParams.BaseDemand = 6
	growth.DemandParams.StepWeek = 15
	growth.DemandParams.StepDemand = 12

	volatile := base
	volatile.DemandType = sim.DemandRandom
	volatile.DemandParams.BaseDemand = 8
	volatile.DemandParams.Variation = 6
	volatile.HoldingCostPerUnit = 1.0
	volatile.BacklogCostPerUnit = 2.0

	tutorial := base
	tutorial.Weeks = 15

	return []Definition{
		{
			ID:          "classic",
			Name:        "Classic Beer Game",
			Description: "The original MIT setup: constant demand of 4, two-week delays everywhere.",
			Difficulty:  Beginner,
			Config:      classic,
			TargetTeamCost: 2000,
			TargetFillRate: 0.95,
		},
		{
			ID:          "step_change",
			Name:        "Step Change",
			Description: "Demand doubles at week 5 and never comes back. Watch the wave roll upstream.",
			Difficulty:  Intermediate,
			Config:      step,
			TargetTeamCost: 3000,
			TargetFillRate: 0.90,
		},
		{
			ID:          "seasonal",
			Name:        "Seasonal Swings",
			Description: "Demand follows a half-year sine wave. Anticipate the peaks or pay for them.",
			Difficulty:  Intermediate,
			Config:      seasonal,
			TargetTeamCost: 3500,
			TargetFillRate: 0.90,
		},
		{
			ID:          "random_walk",
			Name:        "Noisy Demand",
			Description: "Uniform noise around the baseline. Separating signal from noise is the game.",
			Difficulty:  Advanced,
			Config:      randomWalk,
			TargetTeamCost: 4000,
			TargetFillRate: 0.85,
		},
		{
			ID:          "disruption",
			Name:        "Demand Shock",
			Description: "A 4x demand spike at week 10 against tight factory capacity.",
			Difficulty:  Expert,
			Config:      disruption,
			TargetTeamCost: 6000,
			TargetFillRate: 0.75,
			MaxStockoutWeeks: 30,
		},
		{
			ID:          "growth",
			Name:        "Growth Market",
			Description: "A higher baseline that doubles mid-game, the pleasant kind of problem.",
			Difficulty:  Intermediate,
			Config:      growth,
			TargetTeamCost: 4500,
			TargetFillRate: 0.90,
		},
		{
			ID:          "volatile",
			Name:        "Volatile and Expensive",
			Description: "Wide demand swings with doubled holding and backlog costs.",
			Difficulty:  Expert,
			Config:      volatile,
			TargetTeamCost: 8000,
			TargetFillRate: 0.80,
		},
		{
			ID:          "tutorial",
			Name:        "Tutorial",
			Description: "Fifteen quiet weeks of constant demand to learn the controls.",
			Difficulty:  Beginner,
			Config:      tutorial,
			TargetFillRate: 0.95,
		},
	}
}
