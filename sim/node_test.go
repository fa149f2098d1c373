package sim

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func constantOrder(quantity int) PolicyFunc {
	return func(week int, ctx *PolicyContext) (int, error) {
		return quantity, nil
	}
}

func constantDemand(quantity int) DemandPattern {
	return func(week int) int {
		return quantity
	}
}

func TestNode_Fulfill_ShipsFullyWhenStocked(t *testing.T) {
	cfg := DefaultConfig()
	n := NewNode("Wholesaler", RoleWholesaler, cfg, constantOrder(0), nil)
	n.PendingOrders = []Order{{Quantity: 6, FromNode: "Retailer", WeekToArrive: 0}}

	require.NoError(t, n.Advance(0))

	assert.Equal(t, 6, n.Inventory)
	assert.Equal(t, 0, n.Backlog)
	assert.Equal(t, 6, n.History[0].ShipmentsSent)
	assert.Equal(t, 6, n.History[0].OrdersReceived)
}

func TestNode_Fulfill_ShortfallBecomesBacklog(t *testing.T) {
	cfg := DefaultConfig()
	cfg.InitialInventory = 4
	n := NewNode("Wholesaler", RoleWholesaler, cfg, constantOrder(0), nil)
	n.PendingOrders = []Order{{Quantity: 6, FromNode: "Retailer", WeekToArrive: 0}}

	require.NoError(t, n.Advance(0))

	assert.Equal(t, 0, n.Inventory)
	assert.Equal(t, 2, n.Backlog)
	assert.Equal(t, 4, n.History[0].ShipmentsSent)
}

func TestNode_Fulfill_ShipsCarriedBacklogFirst(t *testing.T) {
	cfg := DefaultConfig()
	cfg.InitialInventory = 100
	cfg.InitialBacklog = 2
	n := NewNode("Wholesaler", RoleWholesaler, cfg, constantOrder(0), nil)
	n.PendingOrders = []Order{{Quantity: 6, FromNode: "Retailer", WeekToArrive: 0}}

	require.NoError(t, n.Advance(0))

	assert.Equal(t, 92, n.Inventory)
	assert.Equal(t, 0, n.Backlog)
	assert.Equal(t, 8, n.History[0].ShipmentsSent)
}

func TestNode_StateNeverGoesNegative(t *testing.T) {
	cfg := DefaultConfig()
	cfg.InitialInventory = 0
	n := NewNode("Retailer", RoleRetailer, cfg, constantOrder(0), constantDemand(25))

	for week := 0; week < 5; week++ {
		require.NoError(t, n.Advance(week))
		assert.GreaterOrEqual(t, n.Inventory, 0)
		assert.GreaterOrEqual(t, n.Backlog, 0)
		assert.GreaterOrEqual(t, n.OnOrder, 0)
	}
	// Unserved demand accumulates week over week.
	assert.Equal(t, 125, n.Backlog)
}

func TestNode_OrderAndShipmentDelays_ArriveExactlyOnce(t *testing.T) {
	cfg := DefaultConfig()
	retailer := NewNode("Retailer", RoleRetailer, cfg, constantOrder(5), constantDemand(4))
	wholesaler := NewNode("Wholesaler", RoleWholesaler, cfg, constantOrder(0), nil)
	retailer.ConnectUpstream(wholesaler)

	for week := 0; week < 6; week++ {
		require.NoError(t, retailer.Advance(week))
		require.NoError(t, wholesaler.Advance(week))
	}

	// The week-0 order travels upstream for 2 weeks, is shipped in week 2,
	// and the shipment travels downstream for 2 more.
	for week := 0; week < 4; week++ {
		assert.Equal(t, 0, retailer.History[week].ShipmentsReceived, "week %d", week)
	}
	assert.Equal(t, 5, retailer.History[4].ShipmentsReceived)
	assert.Equal(t, 5, retailer.History[5].ShipmentsReceived)

	assert.Equal(t, 0, wholesaler.History[1].OrdersReceived)
	assert.Equal(t, 5, wholesaler.History[2].OrdersReceived)
	assert.Equal(t, 5, wholesaler.History[2].ShipmentsSent)
}

func TestNode_Factory_ProductionCompletesAfterDelay(t *testing.T) {
	cfg := DefaultConfig()
	f := NewNode("Factory", RoleFactory, cfg, constantOrder(10), nil)

	require.NoError(t, f.Advance(0))
	require.Len(t, f.ProductionQueue, 1)
	assert.Equal(t, 2, f.ProductionQueue[0].CompleteWeek)
	assert.Equal(t, 10, f.OnOrder)

	require.NoError(t, f.Advance(1))
	assert.Equal(t, 12, f.Inventory)

	require.NoError(t, f.Advance(2))
	assert.Equal(t, 22, f.Inventory)
	assert.Equal(t, 10, f.History[2].ShipmentsReceived)
}

func TestNode_Factory_ProductionCappedAtCapacity(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ProductionCapacity = 40
	f := NewNode("Factory", RoleFactory, cfg, constantOrder(500), nil)

	require.NoError(t, f.Advance(0))

	require.Len(t, f.ProductionQueue, 1)
	assert.Equal(t, 40, f.ProductionQueue[0].Quantity)
	assert.Equal(t, 40, f.History[0].OrdersPlaced)
}

func TestNode_NegativePolicyReturn_ClampedToZero(t *testing.T) {
	cfg := DefaultConfig()
	n := NewNode("Wholesaler", RoleWholesaler, cfg, constantOrder(-12), nil)
	upstream := NewNode("Distributor", RoleDistributor, cfg, constantOrder(0), nil)
	n.ConnectUpstream(upstream)

	require.NoError(t, n.Advance(0))

	assert.Equal(t, 0, n.History[0].OrdersPlaced)
	assert.Empty(t, upstream.PendingOrders)
}

func TestNode_PolicyError_AbortsWeek(t *testing.T) {
	boom := errors.New("boom")
	failing := PolicyFunc(func(week int, ctx *PolicyContext) (int, error) {
		return 0, boom
	})
	n := NewNode("Retailer", RoleRetailer, DefaultConfig(), failing, constantDemand(4))

	err := n.Advance(0)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "Retailer")
	assert.Contains(t, err.Error(), "week 0")
}

func TestNode_WeeklyCosts_ChargedOnCommittedState(t *testing.T) {
	cfg := DefaultConfig()
	cfg.InitialInventory = 4
	n := NewNode("Retailer", RoleRetailer, cfg, constantOrder(0), constantDemand(7))

	require.NoError(t, n.Advance(0))

	// End of week: inventory 0, backlog 3.
	rec := n.History[0]
	assert.True(t, rec.HoldingCost.Equal(decimal.Zero), "holding %s", rec.HoldingCost)
	assert.True(t, rec.BacklogCost.Equal(decimal.NewFromInt(3)), "backlog %s", rec.BacklogCost)
	assert.True(t, rec.TotalCost.Equal(decimal.NewFromInt(3)), "total %s", rec.TotalCost)
}

func TestNode_LeadTime_ByRole(t *testing.T) {
	cfg := DefaultConfig()
	cfg.OrderDelay = 1
	cfg.ShipmentDelay = 3
	cfg.ProductionDelay = 5

	w := NewNode("Wholesaler", RoleWholesaler, cfg, constantOrder(0), nil)
	f := NewNode("Factory", RoleFactory, cfg, constantOrder(0), nil)

	assert.Equal(t, 4, w.LeadTime())
	assert.Equal(t, 5, f.LeadTime())
}

func TestNode_LastOrderPlaced_BeforeHistory_Zero(t *testing.T) {
	n := NewNode("Retailer", RoleRetailer, DefaultConfig(), constantOrder(6), constantDemand(4))
	assert.Equal(t, 0, n.LastOrderPlaced())

	require.NoError(t, n.Advance(0))
	assert.Equal(t, 6, n.LastOrderPlaced())
}
