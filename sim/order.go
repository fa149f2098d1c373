package sim

// Order represents a replenishment request traveling upstream through the
// chain. An order created in week W with order delay d becomes visible to the
// supplier in week W+d, and is consumed exactly once on arrival.
type Order struct {
	Quantity     int    `json:"quantity"`
	WeekPlaced   int    `json:"week_placed"`
	FromNode     string `json:"from_node"`
	ToNode       string `json:"to_node"`
	WeekToArrive int    `json:"week_to_arrive"`
}

// Shipment represents goods traveling downstream. Created when a supplier
// fulfills an order; consumed by the recipient once WeekToArrive is reached.
type Shipment struct {
	Quantity     int    `json:"quantity"`
	FromNode     string `json:"from_node"`
	ToNode       string `json:"to_node"`
	WeekShipped  int    `json:"week_shipped"`
	WeekToArrive int    `json:"week_to_arrive"`
}

// ProductionJob is a factory work order. The factory has unlimited raw
// material, so instead of ordering upstream it schedules jobs that add
// Quantity units to inventory in CompleteWeek.
type ProductionJob struct {
	Quantity     int `json:"quantity"`
	CompleteWeek int `json:"complete_week"`
}
