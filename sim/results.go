package sim

import (
	"github.com/shopspring/decimal"
)

// NodeState is the externally visible snapshot of one node, as consumed by
// the game and web layers.
type NodeState struct {
	Name              string          `json:"name"`
	Role              Role            `json:"role"`
	Week              int             `json:"week"`
	Inventory         int             `json:"inventory"`
	Backlog           int             `json:"backlog"`
	PendingOrders     int             `json:"pending_orders"`
	IncomingShipments int             `json:"incoming_shipments"`
	LastOrder         int             `json:"last_order"`
	HoldingCost       decimal.Decimal `json:"holding_cost"`
	BacklogCost       decimal.Decimal `json:"backlog_cost"`
	TotalCost         decimal.Decimal `json:"total_cost"`
}

// State is the full simulation snapshot returned by CurrentState.
type State struct {
	SimulationID string               `json:"simulation_id"`
	Week         int                  `json:"week"`
	Status       Status               `json:"status"`
	Nodes        map[string]NodeState `json:"nodes"`
	Metrics      Summary              `json:"metrics"`
}

// Results is the final outcome of a completed run.
type Results struct {
	SimulationID  string                  `json:"simulation_id"`
	Status        Status                  `json:"status"`
	TotalWeeks    int                     `json:"total_weeks"`
	Config        SimulationConfig        `json:"configuration"`
	Summary       Summary                 `json:"summary"`
	NodeSummaries map[string]NodeSummary  `json:"node_summaries"`
	TimeSeries    map[string][]WeekRecord `json:"time_series"`
}

// stateOf snapshots one node for external consumption.
func stateOf(n *Node, week int) NodeState {
	holding, backlog, total := n.periodCosts()
	return NodeState{
		Name:              n.Name,
		Role:              n.Role,
		Week:              week,
		Inventory:         n.Inventory,
		Backlog:           n.Backlog,
		PendingOrders:     len(n.PendingOrders),
		IncomingShipments: len(n.IncomingShipments),
		LastOrder:         n.LastOrderPlaced(),
		HoldingCost:       holding,
		BacklogCost:       backlog,
		TotalCost:         total,
	}
}
