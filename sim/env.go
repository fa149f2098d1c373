package sim

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Status is the lifecycle state of an Environment.
type Status string

const (
	StatusReady     Status = "ready"
	StatusRunning   Status = "running"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

var (
	// ErrNotReady is returned when Run is invoked on an environment that has
	// already run (or failed). Construct a fresh environment instead.
	ErrNotReady = errors.New("simulation is not ready to run")
	// ErrNotCompleted is returned by Results before the run has finished.
	ErrNotCompleted = errors.New("simulation has not completed")
	// ErrPaused is returned by Run when a week-complete callback pauses the
	// clock mid-run. Committed weeks remain queryable; Resume plus Step
	// continues the run.
	ErrPaused = errors.New("simulation paused")
)

// Canonical node names of the four-echelon chain.
const (
	NameRetailer    = "Retailer"
	NameWholesaler  = "Wholesaler"
	NameDistributor = "Distributor"
	NameFactory     = "Factory"
)

// Environment is the composition root: it owns the four nodes, the virtual
// weekly clock, and the metrics collector. An Environment is single-run and
// single-goroutine; Reset rebuilds it from the same configuration.
type Environment struct {
	Config SimulationConfig
	ID     string

	Retailer    *Node
	Wholesaler  *Node
	Distributor *Node
	Factory     *Node
	Nodes       []*Node

	Collector *Collector

	// OnWeekComplete, if set, is invoked after each committed week.
	OnWeekComplete func(State)
	// OnComplete, if set, is invoked once when the run finishes.
	OnComplete func(Results)

	status   Status
	week     int
	rng      *PartitionedRNG
	registry *PolicyRegistry
}

// NewEnvironment builds a ready-to-run simulation from the configuration:
// four nodes connected retailer-to-factory, transit pipelines seeded at the
// demand baseline so the chain starts in equilibrium, and per-role policies
// resolved by name.
func NewEnvironment(cfg SimulationConfig) (*Environment, error) {
	return NewEnvironmentWithRegistry(cfg, NewPolicyRegistry())
}

// NewEnvironmentWithRegistry is NewEnvironment with a caller-supplied custom
// policy registry, consulted when a configured policy name is not built in.
func NewEnvironmentWithRegistry(cfg SimulationConfig, registry *PolicyRegistry) (*Environment, error) {
	if cfg.Weeks <= 0 {
		return nil, fmt.Errorf("invalid config: weeks must be positive, got %d", cfg.Weeks)
	}
	if cfg.OrderDelay < 1 || cfg.ShipmentDelay < 1 || cfg.ProductionDelay < 1 {
		return nil, fmt.Errorf("invalid config: delays must be at least one week (order=%d shipment=%d production=%d)",
			cfg.OrderDelay, cfg.ShipmentDelay, cfg.ProductionDelay)
	}

	e := &Environment{
		Config:    cfg,
		ID:        newSimulationID(),
		Collector: NewCollector(),
		status:    StatusReady,
		rng:       NewPartitionedRNG(NewSimulationKey(cfg.Seed)),
		registry:  registry,
	}
	e.buildChain()
	return e, nil
}

func (e *Environment) buildChain() {
	cfg := e.Config
	demand := NewDemandPattern(cfg.DemandType, cfg.DemandParams, e.rng.ForSubsystem(SubsystemDemand))

	roles := []struct {
		name       string
		role       Role
		policyName string
	}{
		{NameRetailer, RoleRetailer, cfg.RetailerPolicy},
		{NameWholesaler, RoleWholesaler, cfg.WholesalerPolicy},
		{NameDistributor, RoleDistributor, cfg.DistributorPolicy},
		{NameFactory, RoleFactory, cfg.FactoryPolicy},
	}

	nodes := make([]*Node, 0, len(roles))
	for _, r := range roles {
		policy := NewOrderPolicy(r.policyName, cfg.PolicyParams, e.registry)
		var pattern DemandPattern
		if r.role == RoleRetailer {
			pattern = demand
		}
		nodes = append(nodes, NewNode(r.name, r.role, cfg, policy, pattern))
	}

	e.Retailer, e.Wholesaler, e.Distributor, e.Factory = nodes[0], nodes[1], nodes[2], nodes[3]
	e.Nodes = nodes

	e.Retailer.ConnectUpstream(e.Wholesaler)
	e.Wholesaler.ConnectUpstream(e.Distributor)
	e.Distributor.ConnectUpstream(e.Factory)

	e.seedPipeline()

	for _, n := range e.Nodes {
		e.Collector.Register(n)
	}
}

// seedPipeline pre-fills every transit lane with the demand baseline, the
// classic beer-game starting board: each shipment slot, order slot, and
// factory production slot carries baseDemand units. Without this the chain
// starts with an unrecoverable supply deficit equal to the pipeline content.
func (e *Environment) seedPipeline() {
	base := e.Config.DemandParams.withDefaults().BaseDemand

	for _, n := range []*Node{e.Retailer, e.Wholesaler, e.Distributor} {
		for k := 0; k < e.Config.ShipmentDelay; k++ {
			n.IncomingShipments = append(n.IncomingShipments, Shipment{
				Quantity:     base,
				FromNode:     n.upstream.Name,
				ToNode:       n.Name,
				WeekShipped:  k - e.Config.ShipmentDelay,
				WeekToArrive: k,
			})
			n.OnOrder += base
		}
		for k := 0; k < e.Config.OrderDelay; k++ {
			n.upstream.PendingOrders = append(n.upstream.PendingOrders, Order{
				Quantity:     base,
				WeekPlaced:   k - e.Config.OrderDelay,
				FromNode:     n.Name,
				ToNode:       n.upstream.Name,
				WeekToArrive: k,
			})
			n.OnOrder += base
		}
	}

	for k := 0; k < e.Config.ProductionDelay; k++ {
		e.Factory.ProductionQueue = append(e.Factory.ProductionQueue, ProductionJob{
			Quantity:     base,
			CompleteWeek: k,
		})
		e.Factory.OnOrder += base
	}
}

// Status returns the lifecycle state.
func (e *Environment) Status() Status {
	return e.status
}

// Week returns the next week to be simulated; committed history covers weeks
// [0, Week).
func (e *Environment) Week() int {
	return e.week
}

// RegisterPolicy adds a custom policy to the environment's registry under the
// given name, making it resolvable by SimulationConfig policy fields.
func (e *Environment) RegisterPolicy(name string, fn PolicyFunc) {
	e.registry.Register(name, fn)
}

// SetOrderPolicies overrides node policies by role. Unknown roles are
// ignored. May be called before or between steps of a run.
func (e *Environment) SetOrderPolicies(policies map[Role]OrderPolicy) {
	for _, n := range e.Nodes {
		if p, ok := policies[n.Role]; ok && p != nil {
			n.SetPolicy(p)
		}
	}
}

// Run executes the clock to completion and returns the results. Fails with
// ErrNotReady unless the environment is freshly constructed (or reset). On a
// policy failure the run stops, status becomes ERROR, and all weeks committed
// before the fault remain in history.
func (e *Environment) Run(weeksOverride int) (*Results, error) {
	if e.status != StatusReady {
		return nil, fmt.Errorf("%w: status is %s", ErrNotReady, e.status)
	}

	weeks := e.Config.Weeks
	if weeksOverride > 0 {
		weeks = weeksOverride
	}

	e.status = StatusRunning
	logrus.Infof("simulation %s starting: %d weeks, demand=%s", e.ID, weeks, e.Config.DemandType)

	for e.week < weeks && e.status == StatusRunning {
		if err := e.tick(); err != nil {
			e.status = StatusError
			return nil, err
		}
	}
	if e.status != StatusRunning {
		// Paused from a week-complete callback; the clock simply stops
		// requesting ticks.
		return nil, fmt.Errorf("%w at week %d", ErrPaused, e.week)
	}

	return e.finish()
}

// Step advances the clock up to (and including) week toWeek-1, i.e. as far
// as toWeek, committing each week in turn. Used for interactive, turn-based
// play. Stepping past the configured horizon completes the run.
func (e *Environment) Step(toWeek int) error {
	switch e.status {
	case StatusReady:
		e.status = StatusRunning
	case StatusRunning:
	case StatusPaused:
		return nil
	default:
		return fmt.Errorf("%w: status is %s", ErrNotReady, e.status)
	}

	if toWeek > e.Config.Weeks {
		toWeek = e.Config.Weeks
	}
	for e.week < toWeek && e.status == StatusRunning {
		if err := e.tick(); err != nil {
			e.status = StatusError
			return err
		}
	}
	if e.week >= e.Config.Weeks && e.status == StatusRunning {
		if _, err := e.finish(); err != nil {
			return err
		}
	}
	return nil
}

// tick commits one week: every node advances through arrivals, fulfillment,
// and its ordering decision, then the collector snapshots the committed
// state. Cross-node effects created this week arrive strictly later, so the
// processing order of nodes within a week is immaterial.
func (e *Environment) tick() error {
	week := e.week
	logrus.Debugf("[week %03d] advancing chain", week)

	for _, n := range e.Nodes {
		if err := n.Advance(week); err != nil {
			return err
		}
	}

	e.Collector.Collect(week)
	e.week++

	if e.OnWeekComplete != nil {
		e.OnWeekComplete(e.CurrentState())
	}
	return nil
}

func (e *Environment) finish() (*Results, error) {
	e.status = StatusCompleted
	logrus.Infof("simulation %s completed after %d weeks", e.ID, e.week)

	results := e.buildResults()
	if e.OnComplete != nil {
		e.OnComplete(*results)
	}
	return results, nil
}

// Pause stops the scheduler from requesting further ticks. No in-flight week
// is rolled back.
func (e *Environment) Pause() {
	if e.status == StatusRunning {
		e.status = StatusPaused
	}
}

// Resume restarts a paused simulation.
func (e *Environment) Resume() {
	if e.status == StatusPaused {
		e.status = StatusRunning
	}
}

// Reset re-creates all nodes from the original configuration. The simulation
// identity is retained; history and clock start over.
func (e *Environment) Reset() error {
	fresh, err := NewEnvironmentWithRegistry(e.Config, e.registry)
	if err != nil {
		return err
	}
	fresh.ID = e.ID
	fresh.OnWeekComplete = e.OnWeekComplete
	fresh.OnComplete = e.OnComplete
	*e = *fresh
	return nil
}

// CurrentState snapshots the simulation for external consumers.
func (e *Environment) CurrentState() State {
	nodes := make(map[string]NodeState, len(e.Nodes))
	for _, n := range e.Nodes {
		nodes[n.Name] = stateOf(n, e.week)
	}
	return State{
		SimulationID: e.ID,
		Week:         e.week,
		Status:       e.status,
		Nodes:        nodes,
		Metrics:      e.Collector.Summary(),
	}
}

// Results returns the final results. Valid only after completion.
func (e *Environment) Results() (*Results, error) {
	if e.status != StatusCompleted {
		return nil, fmt.Errorf("%w: status is %s", ErrNotCompleted, e.status)
	}
	return e.buildResults(), nil
}

func (e *Environment) buildResults() *Results {
	summaries := make(map[string]NodeSummary, len(e.Nodes))
	for _, n := range e.Nodes {
		summaries[n.Name] = e.Collector.NodeSummary(n.Name)
	}
	return &Results{
		SimulationID:  e.ID,
		Status:        e.status,
		TotalWeeks:    e.week,
		Config:        e.Config,
		Summary:       e.Collector.Summary(),
		NodeSummaries: summaries,
		TimeSeries:    e.Collector.Histories(),
	}
}

// newSimulationID returns a random 16-hex-digit run identifier.
func newSimulationID() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand never fails on supported platforms
		panic(err)
	}
	return hex.EncodeToString(b[:])
}
