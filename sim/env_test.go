package sim

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEnvironment_InvalidConfig_Errors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Weeks = 0
	_, err := NewEnvironment(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "weeks")

	cfg = DefaultConfig()
	cfg.ShipmentDelay = 0
	_, err = NewEnvironment(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "delays")
}

func TestNewEnvironment_UnknownPolicyName_FallsBackToConstantFour(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FactoryPolicy = "psychic"
	cfg.Weeks = 12

	env, err := NewEnvironment(cfg)
	require.NoError(t, err)

	results, err := env.Run(0)
	require.NoError(t, err)
	for _, rec := range results.TimeSeries[NameFactory] {
		assert.Equal(t, 4, rec.OrdersPlaced, "week %d", rec.Week)
	}
}

func TestRun_ConstantDemand_HoldsEquilibrium(t *testing.T) {
	env, err := NewEnvironment(DefaultConfig())
	require.NoError(t, err)

	results, err := env.Run(0)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, env.Status())
	assert.Equal(t, 52, results.TotalWeeks)

	// With seeded pipelines and steady demand of 4, every node stays at its
	// initial inventory, ships 4 and orders 4, week after week.
	for name, history := range results.TimeSeries {
		require.Len(t, history, 52, name)
		for _, rec := range history {
			assert.Equal(t, 12, rec.Inventory, "%s week %d", name, rec.Week)
			assert.Equal(t, 0, rec.Backlog, "%s week %d", name, rec.Week)
			assert.Equal(t, 4, rec.OrdersPlaced, "%s week %d", name, rec.Week)
			assert.Equal(t, 4, rec.OrdersReceived, "%s week %d", name, rec.Week)
			assert.Equal(t, 4, rec.ShipmentsSent, "%s week %d", name, rec.Week)
			assert.Equal(t, 4, rec.ShipmentsReceived, "%s week %d", name, rec.Week)
		}
	}

	// 4 nodes * 52 weeks * 12 units held * 0.5 per unit-week.
	assert.True(t, results.Summary.TotalCost.Equal(decimal.NewFromInt(1248)),
		"total cost %s", results.Summary.TotalCost)
	assert.Equal(t, 1.0, results.Summary.FillRate)
	assert.Equal(t, 0, results.Summary.StockoutWeeks)
	assert.Equal(t, 0.0, results.Summary.BullwhipRatio)
}

func TestRun_StepDemand_BullwhipAndRecovery(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DemandType = DemandStep
	cfg.Weeks = 40

	env, err := NewEnvironment(cfg)
	require.NoError(t, err)

	results, err := env.Run(0)
	require.NoError(t, err)

	// The demand step rolls upstream and hits the factory as a backlog spike
	// a few weeks after week 5.
	factory := results.TimeSeries[NameFactory]
	spiked := false
	for _, rec := range factory[5:30] {
		if rec.Backlog > 0 {
			spiked = true
			break
		}
	}
	assert.True(t, spiked, "factory never accumulated backlog after the step")

	// The chain recovers: by the final week all backlogs are cleared.
	for name, history := range results.TimeSeries {
		assert.Equal(t, 0, history[len(history)-1].Backlog, "%s final backlog", name)
	}

	// Order variance amplifies upstream.
	assert.Greater(t, results.Summary.BullwhipRatio, 1.0)
}

func TestRun_ShortRun_BullwhipFloorsAtZero(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DemandType = DemandStep
	cfg.Weeks = 8

	env, err := NewEnvironment(cfg)
	require.NoError(t, err)

	results, err := env.Run(0)
	require.NoError(t, err)
	assert.Equal(t, 0.0, results.Summary.BullwhipRatio)
}

func TestRun_SameSeed_IdenticalHistories(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DemandType = DemandRandom
	cfg.Seed = 7
	cfg.Weeks = 30

	a, err := NewEnvironment(cfg)
	require.NoError(t, err)
	b, err := NewEnvironment(cfg)
	require.NoError(t, err)

	ra, err := a.Run(0)
	require.NoError(t, err)
	rb, err := b.Run(0)
	require.NoError(t, err)

	assert.Equal(t, ra.TimeSeries, rb.TimeSeries)
	assert.True(t, ra.Summary.TotalCost.Equal(rb.Summary.TotalCost))
}

func TestRun_DifferentSeed_DifferentDemand(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DemandType = DemandRandom
	cfg.Weeks = 30

	cfg.Seed = 1
	a, err := NewEnvironment(cfg)
	require.NoError(t, err)
	ra, err := a.Run(0)
	require.NoError(t, err)

	cfg.Seed = 2
	b, err := NewEnvironment(cfg)
	require.NoError(t, err)
	rb, err := b.Run(0)
	require.NoError(t, err)

	assert.NotEqual(t, ra.TimeSeries[NameRetailer], rb.TimeSeries[NameRetailer])
}

func TestRun_UnitsAreConserved(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DemandType = DemandStep
	cfg.Weeks = 25

	env, err := NewEnvironment(cfg)
	require.NoError(t, err)

	// Units on the board at the start: four stocks of 12, plus the seeded
	// pipeline of 4 units in each of the six shipment slots and two
	// production slots. Seeded orders are information, not goods.
	initialUnits := 4*cfg.InitialInventory + 4*3*cfg.ShipmentDelay + 4*cfg.ProductionDelay

	results, err := env.Run(0)
	require.NoError(t, err)

	produced := 0
	for _, rec := range results.TimeSeries[NameFactory] {
		produced += rec.OrdersPlaced
	}
	leftChain := 0
	for _, rec := range results.TimeSeries[NameRetailer] {
		leftChain += rec.ShipmentsSent
	}

	finalUnits := 0
	for _, n := range env.Nodes {
		finalUnits += n.Inventory
		for _, s := range n.IncomingShipments {
			finalUnits += s.Quantity
		}
		for _, job := range n.ProductionQueue {
			finalUnits += job.Quantity
		}
	}

	assert.Equal(t, initialUnits+produced, finalUnits+leftChain)
}

func TestRun_Twice_SecondRunNotReady(t *testing.T) {
	env, err := NewEnvironment(DefaultConfig())
	require.NoError(t, err)

	_, err = env.Run(0)
	require.NoError(t, err)

	_, err = env.Run(0)
	assert.ErrorIs(t, err, ErrNotReady)
}

func TestRun_PolicyFailure_KeepsCommittedHistory(t *testing.T) {
	registry := NewPolicyRegistry()
	registry.Register("explode", func(week int, ctx *PolicyContext) (int, error) {
		if week == 3 {
			return 0, assert.AnError
		}
		return 4, nil
	})

	cfg := DefaultConfig()
	cfg.WholesalerPolicy = "explode"

	env, err := NewEnvironmentWithRegistry(cfg, registry)
	require.NoError(t, err)

	_, err = env.Run(0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Wholesaler")
	assert.Contains(t, err.Error(), "week 3")
	assert.Equal(t, StatusError, env.Status())

	// Weeks 0-2 committed before the fault and remain queryable.
	assert.Equal(t, 3, env.Collector.TotalWeeks())
	assert.Len(t, env.Collector.History(NameRetailer), 3)

	_, err = env.Results()
	assert.ErrorIs(t, err, ErrNotCompleted)
}

func TestStep_AdvancesToRequestedWeek(t *testing.T) {
	env, err := NewEnvironment(DefaultConfig())
	require.NoError(t, err)

	require.NoError(t, env.Step(5))
	assert.Equal(t, 5, env.Week())
	assert.Equal(t, StatusRunning, env.Status())

	state := env.CurrentState()
	assert.Equal(t, 5, state.Week)
	assert.Len(t, state.Nodes, 4)
	assert.Equal(t, 12, state.Nodes[NameRetailer].Inventory)
}

func TestStep_PastHorizon_CompletesRun(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Weeks = 10
	env, err := NewEnvironment(cfg)
	require.NoError(t, err)

	require.NoError(t, env.Step(99))
	assert.Equal(t, 10, env.Week())
	assert.Equal(t, StatusCompleted, env.Status())

	results, err := env.Results()
	require.NoError(t, err)
	assert.Equal(t, 10, results.TotalWeeks)
}

func TestRun_PausedFromCallback_ReturnsErrPaused(t *testing.T) {
	env, err := NewEnvironment(DefaultConfig())
	require.NoError(t, err)
	env.OnWeekComplete = func(s State) {
		if s.Week == 2 {
			env.Pause()
		}
	}

	_, err = env.Run(0)
	require.ErrorIs(t, err, ErrPaused)
	assert.Equal(t, StatusPaused, env.Status())
	assert.Equal(t, 2, env.Week())

	// Committed weeks survive the pause and the run can be continued.
	assert.Len(t, env.Collector.History(NameRetailer), 2)
	env.Resume()
	require.NoError(t, env.Step(4))
	assert.Equal(t, 4, env.Week())
}

func TestPauseResume_StepsAreNoOpsWhilePaused(t *testing.T) {
	env, err := NewEnvironment(DefaultConfig())
	require.NoError(t, err)

	require.NoError(t, env.Step(3))
	env.Pause()
	assert.Equal(t, StatusPaused, env.Status())

	require.NoError(t, env.Step(10))
	assert.Equal(t, 3, env.Week())

	env.Resume()
	require.NoError(t, env.Step(10))
	assert.Equal(t, 10, env.Week())
}

func TestReset_RestartsFromWeekZero(t *testing.T) {
	env, err := NewEnvironment(DefaultConfig())
	require.NoError(t, err)
	id := env.ID

	_, err = env.Run(0)
	require.NoError(t, err)

	require.NoError(t, env.Reset())
	assert.Equal(t, StatusReady, env.Status())
	assert.Equal(t, 0, env.Week())
	assert.Equal(t, id, env.ID)

	results, err := env.Run(0)
	require.NoError(t, err)
	assert.Equal(t, 52, results.TotalWeeks)
}

func TestResults_BeforeCompletion_Errors(t *testing.T) {
	env, err := NewEnvironment(DefaultConfig())
	require.NoError(t, err)

	_, err = env.Results()
	assert.ErrorIs(t, err, ErrNotCompleted)
}

func TestSetOrderPolicies_OverridesByRole(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Weeks = 12
	env, err := NewEnvironment(cfg)
	require.NoError(t, err)

	env.SetOrderPolicies(map[Role]OrderPolicy{
		RoleRetailer: constantOrder(9),
	})

	results, err := env.Run(0)
	require.NoError(t, err)

	for _, rec := range results.TimeSeries[NameRetailer] {
		assert.Equal(t, 9, rec.OrdersPlaced)
	}
	// Constant retailer orders keep the bullwhip ratio floored at zero.
	assert.Equal(t, 0.0, results.Summary.BullwhipRatio)
}

func TestOnWeekComplete_FiresEveryWeek(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Weeks = 5
	env, err := NewEnvironment(cfg)
	require.NoError(t, err)

	var weeks []int
	env.OnWeekComplete = func(s State) {
		weeks = append(weeks, s.Week)
	}
	completed := false
	env.OnComplete = func(r Results) {
		completed = true
	}

	_, err = env.Run(0)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, weeks)
	assert.True(t, completed)
}

func TestRun_WeeksOverride_ShortensRun(t *testing.T) {
	env, err := NewEnvironment(DefaultConfig())
	require.NoError(t, err)

	results, err := env.Run(20)
	require.NoError(t, err)
	assert.Equal(t, 20, results.TotalWeeks)
	assert.Len(t, results.TimeSeries[NameFactory], 20)
}
