package sim

import (
	"fmt"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat"
)

// bullwhipMinWeeks is the minimum run length before the bullwhip ratio is
// considered meaningful. Below it the ratio is reported as 0.
const bullwhipMinWeeks = 10

// ServiceLevel summarizes one node's delivery performance.
type ServiceLevel struct {
	FillRate         float64 `json:"fill_rate"`
	StockoutWeeks    int     `json:"stockout_weeks"`
	StockoutFraction float64 `json:"stockout_fraction"`
}

// Summary aggregates chain-wide statistics for a run.
type Summary struct {
	TotalWeeks         int                     `json:"total_weeks"`
	TotalCost          decimal.Decimal         `json:"total_cost"`
	TotalHoldingCost   decimal.Decimal         `json:"total_holding_cost"`
	TotalBacklogCost   decimal.Decimal         `json:"total_backlog_cost"`
	AverageCostPerWeek decimal.Decimal         `json:"average_cost_per_week"`
	FillRate           float64                 `json:"fill_rate"`
	StockoutWeeks      int                     `json:"stockout_weeks"`
	BullwhipRatio      float64                 `json:"bullwhip_ratio"`
	ServiceLevels      map[string]ServiceLevel `json:"service_levels"`
}

// NodeSummary condenses one node's history.
type NodeSummary struct {
	Node                string          `json:"node"`
	AverageInventory    float64         `json:"average_inventory"`
	MaxInventory        int             `json:"max_inventory"`
	MinInventory        int             `json:"min_inventory"`
	AverageBacklog      float64         `json:"average_backlog"`
	MaxBacklog          int             `json:"max_backlog"`
	TotalOrdersPlaced   int             `json:"total_orders_placed"`
	TotalOrdersReceived int             `json:"total_orders_received"`
	TotalCost           decimal.Decimal `json:"total_cost"`
	AverageCostPerWeek  decimal.Decimal `json:"average_cost_per_week"`
}

// Collector observes committed node histories after each week and derives the
// aggregate statistics: cost totals, fill rates, stockout weeks, and the
// bullwhip ratio. It only ever reads post-week state.
type Collector struct {
	nodes      []*Node
	totalWeeks int
	histories  map[string][]WeekRecord
}

// NewCollector returns an empty collector.
func NewCollector() *Collector {
	return &Collector{histories: make(map[string][]WeekRecord)}
}

// Register adds a node to observe.
func (c *Collector) Register(n *Node) {
	c.nodes = append(c.nodes, n)
	c.histories[n.Name] = nil
}

// Collect snapshots every registered node's history after the given week has
// committed.
func (c *Collector) Collect(week int) {
	c.totalWeeks = week + 1
	for _, n := range c.nodes {
		c.histories[n.Name] = append([]WeekRecord(nil), n.History...)
	}
}

// TotalWeeks returns the number of committed weeks observed so far.
func (c *Collector) TotalWeeks() int {
	return c.totalWeeks
}

// History returns the recorded history of one node.
func (c *Collector) History(name string) []WeekRecord {
	return c.histories[name]
}

// Histories returns all recorded node histories keyed by node name.
func (c *Collector) Histories() map[string][]WeekRecord {
	return c.histories
}

// BullwhipRatio is the variance of factory orders over the variance of
// retailer orders. It is 0 until at least 10 weeks have been observed, and 0
// whenever the retailer order variance is zero; that floor is permanent, not
// a transient state.
func (c *Collector) BullwhipRatio() float64 {
	if c.totalWeeks < bullwhipMinWeeks {
		return 0
	}

	retailerOrders := c.ordersPlacedSeries(RoleRetailer)
	factoryOrders := c.ordersPlacedSeries(RoleFactory)
	if len(retailerOrders) < 2 || len(factoryOrders) < 2 {
		return 0
	}

	retailerVar := stat.Variance(retailerOrders, nil)
	if retailerVar == 0 {
		return 0
	}
	return stat.Variance(factoryOrders, nil) / retailerVar
}

func (c *Collector) ordersPlacedSeries(role Role) []float64 {
	for _, n := range c.nodes {
		if n.Role == role {
			history := c.histories[n.Name]
			series := make([]float64, len(history))
			for i, rec := range history {
				series[i] = float64(rec.OrdersPlaced)
			}
			return series
		}
	}
	return nil
}

// ServiceLevels computes per-node fill rate and stockout statistics from the
// recorded histories.
func (c *Collector) ServiceLevels() map[string]ServiceLevel {
	levels := make(map[string]ServiceLevel, len(c.nodes))
	for _, n := range c.nodes {
		history := c.histories[n.Name]
		if len(history) == 0 {
			continue
		}

		totalDemand := 0
		totalBacklog := 0
		stockoutWeeks := 0
		for _, rec := range history {
			totalDemand += rec.OrdersReceived
			totalBacklog += rec.Backlog
			if rec.Backlog > 0 {
				stockoutWeeks++
			}
		}

		fillRate := 1.0
		if totalDemand > 0 {
			fillRate = 1 - float64(totalBacklog)/float64(totalDemand)
		}
		levels[n.Name] = ServiceLevel{
			FillRate:         fillRate,
			StockoutWeeks:    stockoutWeeks,
			StockoutFraction: float64(stockoutWeeks) / float64(len(history)),
		}
	}
	return levels
}

// Summary computes the aggregate statistics over everything observed so far.
func (c *Collector) Summary() Summary {
	s := Summary{
		TotalWeeks:       c.totalWeeks,
		TotalCost:        decimal.Zero,
		TotalHoldingCost: decimal.Zero,
		TotalBacklogCost: decimal.Zero,
		ServiceLevels:    c.ServiceLevels(),
		BullwhipRatio:    c.BullwhipRatio(),
	}

	for _, history := range c.histories {
		for _, rec := range history {
			s.TotalCost = s.TotalCost.Add(rec.TotalCost)
			s.TotalHoldingCost = s.TotalHoldingCost.Add(rec.HoldingCost)
			s.TotalBacklogCost = s.TotalBacklogCost.Add(rec.BacklogCost)
		}
	}

	if c.totalWeeks > 0 {
		s.AverageCostPerWeek = s.TotalCost.Div(decimal.NewFromInt(int64(c.totalWeeks)))
	} else {
		s.AverageCostPerWeek = decimal.Zero
	}

	fillRates := make([]float64, 0, len(s.ServiceLevels))
	for _, sl := range s.ServiceLevels {
		fillRates = append(fillRates, sl.FillRate)
		s.StockoutWeeks += sl.StockoutWeeks
	}
	if len(fillRates) > 0 {
		s.FillRate = stat.Mean(fillRates, nil)
	}

	return s
}

// NodeSummary condenses the history of the named node. Returns a zero value
// when the node is unknown or has no history yet.
func (c *Collector) NodeSummary(name string) NodeSummary {
	history, ok := c.histories[name]
	if !ok || len(history) == 0 {
		return NodeSummary{}
	}

	s := NodeSummary{
		Node:         name,
		MaxInventory: history[0].Inventory,
		MinInventory: history[0].Inventory,
		TotalCost:    decimal.Zero,
	}

	sumInventory := 0
	sumBacklog := 0
	for _, rec := range history {
		sumInventory += rec.Inventory
		sumBacklog += rec.Backlog
		if rec.Inventory > s.MaxInventory {
			s.MaxInventory = rec.Inventory
		}
		if rec.Inventory < s.MinInventory {
			s.MinInventory = rec.Inventory
		}
		if rec.Backlog > s.MaxBacklog {
			s.MaxBacklog = rec.Backlog
		}
		s.TotalOrdersPlaced += rec.OrdersPlaced
		s.TotalOrdersReceived += rec.OrdersReceived
		s.TotalCost = s.TotalCost.Add(rec.TotalCost)
	}

	weeks := decimal.NewFromInt(int64(len(history)))
	s.AverageInventory = float64(sumInventory) / float64(len(history))
	s.AverageBacklog = float64(sumBacklog) / float64(len(history))
	s.AverageCostPerWeek = s.TotalCost.Div(weeks)
	return s
}

// Print displays the aggregate statistics at the end of a run.
func (s Summary) Print() {
	fmt.Println("=== Simulation Metrics ===")
	fmt.Printf("Weeks simulated      : %d\n", s.TotalWeeks)
	fmt.Printf("Total cost           : %s\n", s.TotalCost.StringFixed(2))
	fmt.Printf("  holding            : %s\n", s.TotalHoldingCost.StringFixed(2))
	fmt.Printf("  backlog            : %s\n", s.TotalBacklogCost.StringFixed(2))
	fmt.Printf("Average cost per week: %s\n", s.AverageCostPerWeek.StringFixed(2))
	fmt.Printf("Fill rate            : %.3f\n", s.FillRate)
	fmt.Printf("Stockout weeks       : %d\n", s.StockoutWeeks)
	fmt.Printf("Bullwhip ratio       : %.3f\n", s.BullwhipRatio)
}
