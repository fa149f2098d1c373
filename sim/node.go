package sim

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Role identifies a node's echelon in the chain.
type Role string

const (
	RoleRetailer    Role = "retailer"
	RoleWholesaler  Role = "wholesaler"
	RoleDistributor Role = "distributor"
	RoleFactory     Role = "factory"
)

// customerName labels the external demand sink in order/shipment records.
const customerName = "customer"

// WeekRecord is one row of a node's history: the committed end-of-week state
// plus the quantities moved and the period costs for that week.
type WeekRecord struct {
	Week              int             `json:"week"`
	Inventory         int             `json:"inventory"`
	Backlog           int             `json:"backlog"`
	OrdersPlaced      int             `json:"orders_placed"`
	OrdersReceived    int             `json:"orders_received"`
	ShipmentsSent     int             `json:"shipments_sent"`
	ShipmentsReceived int             `json:"shipments_received"`
	HoldingCost       decimal.Decimal `json:"holding_cost"`
	BacklogCost       decimal.Decimal `json:"backlog_cost"`
	TotalCost         decimal.Decimal `json:"total_cost"`
}

// Node is one echelon of the supply chain. It owns its transit queues and
// history exclusively; the only cross-node writes are appends of orders and
// shipments that become visible strictly after the current week.
type Node struct {
	Name string
	Role Role

	Inventory int
	Backlog   int

	// PendingOrders are orders from downstream awaiting their arrival week.
	PendingOrders []Order
	// IncomingShipments are goods in transit toward this node.
	IncomingShipments []Shipment
	// ProductionQueue holds scheduled factory jobs. Empty for other roles.
	ProductionQueue []ProductionJob
	// OnOrder is the quantity this node has ordered (or scheduled for
	// production) and not yet received.
	OnOrder int

	History []WeekRecord

	upstream   *Node
	downstream *Node

	policy OrderPolicy
	demand DemandPattern // retailer only

	holdingCostPerUnit decimal.Decimal
	backlogCostPerUnit decimal.Decimal
	orderDelay         int
	shipmentDelay      int
	productionDelay    int
	productionCapacity int
	initialInventory   int
	initialBacklog     int

	demandHistory  []float64
	serviceHistory []float64
}

// NewNode creates a node with the configured initial state. The demand
// pattern is only consulted for the retailer role; production parameters only
// for the factory.
func NewNode(name string, role Role, cfg SimulationConfig, policy OrderPolicy, demand DemandPattern) *Node {
	return &Node{
		Name:               name,
		Role:               role,
		Inventory:          cfg.InitialInventory,
		Backlog:            cfg.InitialBacklog,
		policy:             policy,
		demand:             demand,
		holdingCostPerUnit: decimal.NewFromFloat(cfg.HoldingCostPerUnit),
		backlogCostPerUnit: decimal.NewFromFloat(cfg.BacklogCostPerUnit),
		orderDelay:         cfg.OrderDelay,
		shipmentDelay:      cfg.ShipmentDelay,
		productionDelay:    cfg.ProductionDelay,
		productionCapacity: cfg.ProductionCapacity,
		initialInventory:   cfg.InitialInventory,
		initialBacklog:     cfg.InitialBacklog,
	}
}

// ConnectUpstream wires this node to its supplier. Each side of the link is
// set exactly once, at chain construction.
func (n *Node) ConnectUpstream(supplier *Node) {
	n.upstream = supplier
	supplier.downstream = n
}

// SetPolicy replaces the node's ordering policy.
func (n *Node) SetPolicy(p OrderPolicy) {
	n.policy = p
}

// LeadTime is the total delay between placing an order and receiving the
// goods: order transit plus shipment transit, or the production delay for the
// factory.
func (n *Node) LeadTime() int {
	if n.Role == RoleFactory {
		return n.productionDelay
	}
	return n.orderDelay + n.shipmentDelay
}

// LastOrderPlaced returns the quantity ordered in the most recent recorded
// week, or 0 before any history exists.
func (n *Node) LastOrderPlaced() int {
	if len(n.History) == 0 {
		return 0
	}
	return n.History[len(n.History)-1].OrdersPlaced
}

// Advance runs one week of this node's life in the fixed step order:
// realize customer demand (retailer), receive shipments, complete production
// (factory), fulfill arrived orders, decide the next order, record history.
// The bullwhip computation depends on this exact ordering.
func (n *Node) Advance(week int) error {
	rec := WeekRecord{Week: week}
	backlogAtStart := n.Backlog
	requested := 0
	shipped := 0

	// 1. External customer demand hits the retailer with zero transit delay:
	// the end customer is an inventory sink, not a node.
	if n.Role == RoleRetailer {
		d := n.demand(week)
		n.demandHistory = append(n.demandHistory, float64(d))
		rec.OrdersReceived += d
		requested += d
		shipped += n.fulfill(Order{
			Quantity:   d,
			WeekPlaced: week,
			FromNode:   customerName,
			ToNode:     n.Name,
		}, week, &rec)
	}

	// 2. Receive shipments whose transit ends this week.
	remainingShipments := n.IncomingShipments[:0]
	for _, s := range n.IncomingShipments {
		if s.WeekToArrive == week {
			n.Inventory += s.Quantity
			n.reduceOnOrder(s.Quantity)
			rec.ShipmentsReceived += s.Quantity
			logrus.Debugf("[week %03d] %s received shipment of %d from %s", week, n.Name, s.Quantity, s.FromNode)
		} else {
			remainingShipments = append(remainingShipments, s)
		}
	}
	n.IncomingShipments = remainingShipments

	// 3. Factory: completed production enters inventory.
	if n.Role == RoleFactory {
		remainingJobs := n.ProductionQueue[:0]
		for _, job := range n.ProductionQueue {
			if job.CompleteWeek == week {
				n.Inventory += job.Quantity
				n.reduceOnOrder(job.Quantity)
				rec.ShipmentsReceived += job.Quantity
				logrus.Debugf("[week %03d] %s completed production of %d", week, n.Name, job.Quantity)
			} else {
				remainingJobs = append(remainingJobs, job)
			}
		}
		n.ProductionQueue = remainingJobs
	}

	// 4. Fulfill orders whose transit ends this week.
	arrivedDemand := 0
	remainingOrders := n.PendingOrders[:0]
	for _, o := range n.PendingOrders {
		if o.WeekToArrive == week {
			rec.OrdersReceived += o.Quantity
			arrivedDemand += o.Quantity
			requested += o.Quantity
			shipped += n.fulfill(o, week, &rec)
		} else {
			remainingOrders = append(remainingOrders, o)
		}
	}
	n.PendingOrders = remainingOrders
	if n.Role != RoleRetailer && arrivedDemand > 0 {
		n.demandHistory = append(n.demandHistory, float64(arrivedDemand))
	}

	// Weekly service level: fraction of requested units (new demand plus
	// carried backlog) actually shipped.
	requested += backlogAtStart
	if requested > 0 {
		n.serviceHistory = append(n.serviceHistory, float64(shipped)/float64(requested))
	} else {
		n.serviceHistory = append(n.serviceHistory, 1.0)
	}

	// 5. Ask the policy for this week's order (or production) quantity.
	quantity, err := n.policy.OrderQuantity(week, n.policyContext())
	if err != nil {
		return fmt.Errorf("policy failure at %s in week %d: %w", n.Name, week, err)
	}
	if quantity < 0 {
		quantity = 0
	}
	if n.Role == RoleFactory {
		if quantity > n.productionCapacity {
			quantity = n.productionCapacity
		}
		if quantity > 0 {
			n.ProductionQueue = append(n.ProductionQueue, ProductionJob{
				Quantity:     quantity,
				CompleteWeek: week + n.productionDelay,
			})
			n.OnOrder += quantity
		}
	} else if quantity > 0 {
		n.placeOrder(quantity, week)
	}
	rec.OrdersPlaced = quantity

	// 6. Commit the week.
	rec.Inventory = n.Inventory
	rec.Backlog = n.Backlog
	rec.HoldingCost = decimal.NewFromInt(int64(n.Inventory)).Mul(n.holdingCostPerUnit)
	rec.BacklogCost = decimal.NewFromInt(int64(n.Backlog)).Mul(n.backlogCostPerUnit)
	rec.TotalCost = rec.HoldingCost.Add(rec.BacklogCost)
	n.History = append(n.History, rec)

	return nil
}

// fulfill ships against one arrived order. A node never ships more than
// min(requested+backlog, inventory); the shortfall becomes backlog. Customer
// orders at the retailer leave the chain immediately.
func (n *Node) fulfill(o Order, week int, rec *WeekRecord) int {
	toShip := o.Quantity + n.Backlog
	if toShip > n.Inventory {
		toShip = n.Inventory
	}

	if toShip > 0 {
		n.Inventory -= toShip
		rec.ShipmentsSent += toShip
		if n.downstream != nil && o.FromNode == n.downstream.Name {
			n.downstream.IncomingShipments = append(n.downstream.IncomingShipments, Shipment{
				Quantity:     toShip,
				FromNode:     n.Name,
				ToNode:       o.FromNode,
				WeekShipped:  week,
				WeekToArrive: week + n.shipmentDelay,
			})
		}
		logrus.Debugf("[week %03d] %s shipped %d to %s", week, n.Name, toShip, o.FromNode)
	}

	n.Backlog = o.Quantity + n.Backlog - toShip
	if n.Backlog < 0 {
		n.Backlog = 0
	}
	return toShip
}

// placeOrder enqueues a replenishment order on the upstream node, arriving
// after the order delay.
func (n *Node) placeOrder(quantity, week int) {
	o := Order{
		Quantity:     quantity,
		WeekPlaced:   week,
		FromNode:     n.Name,
		WeekToArrive: week + n.orderDelay,
	}
	if n.upstream != nil {
		o.ToNode = n.upstream.Name
		n.upstream.PendingOrders = append(n.upstream.PendingOrders, o)
	}
	n.OnOrder += quantity
	logrus.Debugf("[week %03d] %s ordered %d from %s", week, n.Name, quantity, o.ToNode)
}

func (n *Node) reduceOnOrder(quantity int) {
	n.OnOrder -= quantity
	if n.OnOrder < 0 {
		n.OnOrder = 0
	}
}

func (n *Node) policyContext() *PolicyContext {
	return &PolicyContext{
		Role:           n.Role,
		Inventory:      n.Inventory,
		Backlog:        n.Backlog,
		OnOrder:        n.OnOrder,
		LeadTime:       n.LeadTime(),
		DemandHistory:  n.demandHistory,
		ServiceHistory: n.serviceHistory,
	}
}

// periodCosts returns the costs the node would accrue for its current state.
func (n *Node) periodCosts() (holding, backlog, total decimal.Decimal) {
	holding = decimal.NewFromInt(int64(n.Inventory)).Mul(n.holdingCostPerUnit)
	backlog = decimal.NewFromInt(int64(n.Backlog)).Mul(n.backlogCostPerUnit)
	return holding, backlog, holding.Add(backlog)
}
