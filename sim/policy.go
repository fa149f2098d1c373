package sim

import (
	"math"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"
)

// Recognized ordering policy names, as used in SimulationConfig.
const (
	PolicyDefault       = "default"
	PolicyBaseStock     = "base_stock"
	PolicyEOQ           = "eoq"
	PolicySS            = "s_S"
	PolicySilverMeal    = "silver_meal"
	PolicyForecastBased = "forecast_based"
	PolicyAdaptive      = "adaptive"
	PolicyManual        = "manual"
)

// fallbackOrderQuantity is returned by the manual policy when no decision
// source is wired, and by custom lookups that fail to resolve.
const fallbackOrderQuantity = 4

// PolicyContext is the snapshot of a node's state handed to an OrderPolicy.
// Slices are the node's own histories; policies must treat them as read-only.
type PolicyContext struct {
	Role      Role
	Inventory int
	Backlog   int
	// OnOrder is the quantity ordered (or scheduled for production) that has
	// not yet been received.
	OnOrder int
	// LeadTime is orderDelay+shipmentDelay for ordering nodes, or the
	// production delay for the factory.
	LeadTime int
	// DemandHistory holds the weekly demand observed by this node: customer
	// demand at the retailer, arrived order quantities elsewhere.
	DemandHistory []float64
	// ServiceHistory holds the weekly fraction of requested units shipped.
	ServiceHistory []float64
}

// InventoryPosition is the planning basis for reorder decisions:
// on-hand minus backlog plus units already on order.
func (c *PolicyContext) InventoryPosition() int {
	return c.Inventory - c.Backlog + c.OnOrder
}

// LastDemand returns the most recently observed demand, or the default of 4
// before anything has been observed.
func (c *PolicyContext) LastDemand() int {
	if len(c.DemandHistory) == 0 {
		return fallbackOrderQuantity
	}
	return int(c.DemandHistory[len(c.DemandHistory)-1])
}

// OrderPolicy decides the replenishment (or, for the factory, production)
// quantity for a week. Negative returns are clamped to zero by the node; an
// error aborts the run.
type OrderPolicy interface {
	OrderQuantity(week int, ctx *PolicyContext) (int, error)
}

// PolicyFunc adapts a plain function to the OrderPolicy interface. Custom
// registered policies and human decision callbacks use this form.
type PolicyFunc func(week int, ctx *PolicyContext) (int, error)

// OrderQuantity implements OrderPolicy.
func (f PolicyFunc) OrderQuantity(week int, ctx *PolicyContext) (int, error) {
	return f(week, ctx)
}

// MatchDemandPolicy is the default policy: pass the last observed demand
// upstream, plus whatever backlog has accumulated. With the transit pipeline
// seeded at the demand baseline this holds every node in equilibrium under
// steady demand, while demand shifts over-order during backlog weeks and
// amplify upstream, which is what produces the bullwhip effect.
type MatchDemandPolicy struct{}

// OrderQuantity implements OrderPolicy.
func (p *MatchDemandPolicy) OrderQuantity(week int, ctx *PolicyContext) (int, error) {
	return ctx.LastDemand() + ctx.Backlog, nil
}

// BaseStockPolicy orders up to a fixed target inventory position.
type BaseStockPolicy struct {
	TargetLevel int
}

// OrderQuantity implements OrderPolicy. If the inventory position already
// covers the target the order is exactly zero.
func (p *BaseStockPolicy) OrderQuantity(week int, ctx *PolicyContext) (int, error) {
	return p.TargetLevel - ctx.InventoryPosition(), nil
}

// defaultEOQQuantity is the lot size assumed when the holding cost is unset
// and the EOQ formula is undefined.
const defaultEOQQuantity = 10

// EOQPolicy orders the economic order quantity whenever on-hand inventory
// falls to the reorder point of twice the average observed demand.
type EOQPolicy struct {
	OrderingCost float64
	HoldingCost  float64
}

// OrderQuantity implements OrderPolicy.
func (p *EOQPolicy) OrderQuantity(week int, ctx *PolicyContext) (int, error) {
	avg := AverageDemand(ctx.DemandHistory)
	if avg <= 0 {
		return 0, nil
	}
	eoq := float64(defaultEOQQuantity)
	if p.HoldingCost > 0 {
		eoq = math.Sqrt(2 * avg * p.OrderingCost / p.HoldingCost)
	}
	if float64(ctx.Inventory) <= 2*avg {
		return int(eoq), nil
	}
	return 0, nil
}

// SSPolicy is the classic (s,S) rule: when the inventory position drops to
// the reorder point s, order up to S.
type SSPolicy struct {
	ReorderPoint   int // s
	OrderUpToLevel int // S
}

// OrderQuantity implements OrderPolicy.
func (p *SSPolicy) OrderQuantity(week int, ctx *PolicyContext) (int, error) {
	ip := ctx.InventoryPosition()
	if ip <= p.ReorderPoint {
		return p.OrderUpToLevel - ip, nil
	}
	return 0, nil
}

// silverMealMaxPeriods bounds the lot-sizing horizon.
const silverMealMaxPeriods = 7

// SilverMealPolicy sizes lots by minimizing the average ordering-plus-holding
// cost per covered period over the forecast horizon.
type SilverMealPolicy struct {
	OrderingCost float64
	HoldingCost  float64
	Horizon      int
}

// OrderQuantity implements OrderPolicy.
func (p *SilverMealPolicy) OrderQuantity(week int, ctx *PolicyContext) (int, error) {
	forecast := ForecastDemand(ctx.DemandHistory, p.Horizon)
	if len(forecast) == 0 {
		return fallbackOrderQuantity, nil
	}

	bestPeriods := 1
	minCostPerPeriod := math.Inf(1)
	cumulativeHolding := 0.0

	for periods := 1; periods <= len(forecast) && periods <= silverMealMaxPeriods; periods++ {
		if periods > 1 {
			cumulativeHolding += forecast[periods-1] * float64(periods-1) * p.HoldingCost
		}
		costPerPeriod := (p.OrderingCost + cumulativeHolding) / float64(periods)
		if costPerPeriod < minCostPerPeriod {
			minCostPerPeriod = costPerPeriod
			bestPeriods = periods
		}
	}

	quantity := 0.0
	for _, f := range forecast[:bestPeriods] {
		quantity += f
	}
	return int(quantity), nil
}

// ForecastPolicy targets forecast demand over the lead time plus safety stock
// proportional to the demand standard deviation.
type ForecastPolicy struct {
	Horizon          int
	SafetyMultiplier float64
}

// OrderQuantity implements OrderPolicy.
func (p *ForecastPolicy) OrderQuantity(week int, ctx *PolicyContext) (int, error) {
	horizon := p.Horizon
	if horizon < ctx.LeadTime {
		horizon = ctx.LeadTime
	}
	forecast := ForecastDemand(ctx.DemandHistory, horizon)

	expected := 0.0
	for i := 0; i < ctx.LeadTime && i < len(forecast); i++ {
		expected += forecast[i]
	}

	// Too little history to estimate spread; assume a modest deviation.
	std := 2.0
	if len(ctx.DemandHistory) > 1 {
		std = stat.StdDev(ctx.DemandHistory, nil)
	}
	safety := p.SafetyMultiplier * std * math.Sqrt(float64(ctx.LeadTime))

	target := expected + safety
	return int(target) - ctx.InventoryPosition(), nil
}

// adaptiveServiceTarget is the service level below which the adaptive policy
// scales orders up.
const adaptiveServiceTarget = 0.95

// AdaptivePolicy starts from a base-stock order and scales it by recent
// service performance: below-target service inflates orders proportionally to
// the shortfall, on-target service deflates them by a small fixed fraction.
type AdaptivePolicy struct {
	Base         BaseStockPolicy
	LearningRate float64
	Window       int
}

// OrderQuantity implements OrderPolicy.
func (p *AdaptivePolicy) OrderQuantity(week int, ctx *PolicyContext) (int, error) {
	quantity, err := p.Base.OrderQuantity(week, ctx)
	if err != nil {
		return 0, err
	}

	if len(ctx.ServiceHistory) >= p.Window {
		recent := ctx.ServiceHistory[len(ctx.ServiceHistory)-p.Window:]
		avgService := stat.Mean(recent, nil)

		var adjustment float64
		if avgService < adaptiveServiceTarget {
			adjustment = 1.0 + (adaptiveServiceTarget-avgService)*p.LearningRate
		} else {
			adjustment = 1.0 - 0.05*p.LearningRate
		}
		quantity = int(float64(quantity) * adjustment)
	}
	return quantity, nil
}

// ManualPolicy delegates the decision to an externally supplied callback,
// typically a human player. Without a callback, or when the callback has no
// decision for the week, the fallback of 4 is used.
type ManualPolicy struct {
	// Decide returns the decision for a week and whether one was available.
	Decide func(week int) (int, bool)
}

// OrderQuantity implements OrderPolicy.
func (p *ManualPolicy) OrderQuantity(week int, ctx *PolicyContext) (int, error) {
	if p.Decide != nil {
		if q, ok := p.Decide(week); ok {
			return q, nil
		}
	}
	return fallbackOrderQuantity, nil
}

// PolicyRegistry maps names to custom policy functions. Lookup happens once
// at policy construction time, not per call.
type PolicyRegistry struct {
	custom map[string]PolicyFunc
}

// NewPolicyRegistry returns an empty registry.
func NewPolicyRegistry() *PolicyRegistry {
	return &PolicyRegistry{custom: make(map[string]PolicyFunc)}
}

// Register adds or replaces a custom policy under the given name.
func (r *PolicyRegistry) Register(name string, fn PolicyFunc) {
	r.custom[name] = fn
}

// Resolve looks up a custom policy by name.
func (r *PolicyRegistry) Resolve(name string) (PolicyFunc, bool) {
	fn, ok := r.custom[name]
	return fn, ok
}

// NewOrderPolicy constructs the policy for the given name. Built-in names are
// listed in the Policy* constants; any other name is resolved against the
// registry. Unresolvable names fall back to a constant order of 4; this is
// deliberately permissive, not an error.
func NewOrderPolicy(name string, params PolicyParams, registry *PolicyRegistry) OrderPolicy {
	switch name {
	case PolicyDefault, "":
		return &MatchDemandPolicy{}
	case PolicyBaseStock:
		return &BaseStockPolicy{TargetLevel: params.BaseStockLevel}
	case PolicyEOQ:
		return &EOQPolicy{OrderingCost: params.OrderingCost, HoldingCost: params.HoldingCost}
	case PolicySS:
		return &SSPolicy{ReorderPoint: params.ReorderPoint, OrderUpToLevel: params.OrderUpToLevel}
	case PolicySilverMeal:
		return &SilverMealPolicy{OrderingCost: params.OrderingCost, HoldingCost: params.HoldingCost, Horizon: params.ForecastHorizon}
	case PolicyForecastBased:
		return &ForecastPolicy{Horizon: params.ForecastHorizon, SafetyMultiplier: params.SafetyStockMultiplier}
	case PolicyAdaptive:
		return &AdaptivePolicy{
			Base:         BaseStockPolicy{TargetLevel: params.BaseStockLevel},
			LearningRate: params.LearningRate,
			Window:       params.PerformanceWindow,
		}
	case PolicyManual:
		return &ManualPolicy{}
	default:
		if registry != nil {
			if fn, ok := registry.Resolve(name); ok {
				return fn
			}
		}
		logrus.Warnf("unknown order policy %q, falling back to constant order of %d", name, fallbackOrderQuantity)
		return PolicyFunc(func(week int, ctx *PolicyContext) (int, error) {
			return fallbackOrderQuantity, nil
		})
	}
}
