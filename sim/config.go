package sim

// DemandParams groups the knobs of the external demand patterns. Only the
// fields relevant to the selected DemandType are consulted.
type DemandParams struct {
	BaseDemand int     `yaml:"base_demand" json:"base_demand"`  // constant/step/random/seasonal baseline (default 4)
	StepWeek   int     `yaml:"step_week" json:"step_week"`      // step: first week of the raised level (default 5)
	StepDemand int     `yaml:"step_demand" json:"step_demand"`  // step: raised level (default 8)
	Variation  int     `yaml:"variation" json:"variation"`      // random: uniform +/- range (default 2)
	Amplitude  float64 `yaml:"amplitude" json:"amplitude"`      // seasonal: sine amplitude (default 2)
	Period     int     `yaml:"period" json:"period"`            // seasonal: weeks per cycle (default 52)
}

// PolicyParams groups parameters shared by the built-in ordering policies.
type PolicyParams struct {
	BaseStockLevel        int     `yaml:"base_stock_level" json:"base_stock_level"`               // base-stock target (default 20)
	OrderingCost          float64 `yaml:"ordering_cost" json:"ordering_cost"`                     // fixed cost per order, EOQ/Silver-Meal (default 10)
	HoldingCost           float64 `yaml:"holding_cost" json:"holding_cost"`                       // per-unit-week holding cost, EOQ/Silver-Meal (default 0.5)
	ReorderPoint          int     `yaml:"reorder_point" json:"reorder_point"`                     // (s,S): s (default 8)
	OrderUpToLevel        int     `yaml:"order_up_to_level" json:"order_up_to_level"`             // (s,S): S (default 20)
	ForecastHorizon       int     `yaml:"forecast_horizon" json:"forecast_horizon"`               // forecast-based horizon in weeks (default 4)
	SafetyStockMultiplier float64 `yaml:"safety_stock_multiplier" json:"safety_stock_multiplier"` // forecast-based safety factor (default 1.5)
	LearningRate          float64 `yaml:"learning_rate" json:"learning_rate"`                     // adaptive scale factor (default 0.1)
	PerformanceWindow     int     `yaml:"performance_window" json:"performance_window"`           // adaptive trailing window in weeks (default 10)
}

// SimulationConfig is the immutable configuration of one simulation run.
// The zero value is not usable; start from DefaultConfig.
type SimulationConfig struct {
	Weeks            int `yaml:"weeks" json:"weeks"`
	InitialInventory int `yaml:"initial_inventory" json:"initial_inventory"`
	InitialBacklog   int `yaml:"initial_backlog" json:"initial_backlog"`

	HoldingCostPerUnit float64 `yaml:"holding_cost_per_unit" json:"holding_cost_per_unit"`
	BacklogCostPerUnit float64 `yaml:"backlog_cost_per_unit" json:"backlog_cost_per_unit"`

	// Lead times in weeks. Arrivals are strictly later than creation, so all
	// three must be >= 1.
	OrderDelay      int `yaml:"order_delay" json:"order_delay"`
	ShipmentDelay   int `yaml:"shipment_delay" json:"shipment_delay"`
	ProductionDelay int `yaml:"production_delay" json:"production_delay"`

	ProductionCapacity int `yaml:"production_capacity" json:"production_capacity"`

	// DemandType selects the external demand pattern: constant, step, random
	// or seasonal. Unknown values fall back to constant demand of 4.
	DemandType   string       `yaml:"demand_type" json:"demand_type"`
	DemandParams DemandParams `yaml:"demand_params" json:"demand_params"`

	// Per-role ordering policies, by name. See NewOrderPolicy for the
	// recognized names; "default" is the demand-anchored replenishment policy.
	RetailerPolicy    string `yaml:"retailer_policy" json:"retailer_policy"`
	WholesalerPolicy  string `yaml:"wholesaler_policy" json:"wholesaler_policy"`
	DistributorPolicy string `yaml:"distributor_policy" json:"distributor_policy"`
	FactoryPolicy     string `yaml:"factory_policy" json:"factory_policy"`

	PolicyParams PolicyParams `yaml:"policy_params" json:"policy_params"`

	// Seed pins the random demand stream. Runs with equal seed and config
	// produce identical histories.
	Seed int64 `yaml:"seed" json:"seed"`
}

// DefaultConfig returns the classic beer-game setup: 52 weeks, constant
// demand of 4, two-week delays everywhere, holding at 0.5 and backlog at 1.0
// per unit-week.
func DefaultConfig() SimulationConfig {
	return SimulationConfig{
		Weeks:              52,
		InitialInventory:   12,
		InitialBacklog:     0,
		HoldingCostPerUnit: 0.5,
		BacklogCostPerUnit: 1.0,
		OrderDelay:         2,
		ShipmentDelay:      2,
		ProductionDelay:    2,
		ProductionCapacity: 100,
		DemandType:         DemandConstant,
		DemandParams:       DefaultDemandParams(),
		RetailerPolicy:     PolicyDefault,
		WholesalerPolicy:   PolicyDefault,
		DistributorPolicy:  PolicyDefault,
		FactoryPolicy:      PolicyDefault,
		PolicyParams:       DefaultPolicyParams(),
		Seed:               42,
	}
}

// DefaultDemandParams returns the defaults applied to unset demand knobs.
func DefaultDemandParams() DemandParams {
	return DemandParams{
		BaseDemand: 4,
		StepWeek:   5,
		StepDemand: 8,
		Variation:  2,
		Amplitude:  2,
		Period:     52,
	}
}

// DefaultPolicyParams returns the defaults shared by the built-in policies.
func DefaultPolicyParams() PolicyParams {
	return PolicyParams{
		BaseStockLevel:        20,
		OrderingCost:          10.0,
		HoldingCost:           0.5,
		ReorderPoint:          8,
		OrderUpToLevel:        20,
		ForecastHorizon:       4,
		SafetyStockMultiplier: 1.5,
		LearningRate:          0.1,
		PerformanceWindow:     10,
	}
}

// withDemandDefaults fills zero-valued demand knobs with their defaults, so a
// caller supplying only {BaseDemand: 4} gets the documented behavior for the
// remaining fields.
func (p DemandParams) withDefaults() DemandParams {
	d := DefaultDemandParams()
	if p.BaseDemand > 0 {
		d.BaseDemand = p.BaseDemand
	}
	if p.StepWeek > 0 {
		d.StepWeek = p.StepWeek
	}
	if p.StepDemand > 0 {
		d.StepDemand = p.StepDemand
	}
	if p.Variation > 0 {
		d.Variation = p.Variation
	}
	if p.Amplitude > 0 {
		d.Amplitude = p.Amplitude
	}
	if p.Period > 0 {
		d.Period = p.Period
	}
	return d
}
