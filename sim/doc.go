// Package sim provides the core discrete-event simulation engine for the
// four-echelon beer-game supply chain.
//
// # Reading Guide
//
// Start with these three files to understand the simulation kernel:
//   - node.go: the per-echelon state machine (inventory, backlog, transit queues)
//     and the fixed per-week step order
//   - policy.go: the OrderPolicy contract and the built-in ordering policies
//   - env.go: the Environment composition root, weekly clock loop, and
//     run/step lifecycle
//
// # Architecture
//
// The chain is Retailer -> Wholesaler -> Distributor -> Factory. Each week
// every node realizes arrivals (shipments, completed production, incoming
// orders), fulfills what it can, asks its OrderPolicy for a replenishment
// quantity, and records a history snapshot. Orders and shipments created in
// week T become visible to their recipient strictly after T, so nodes within
// one week never observe each other's same-week effects.
//
// # Key Interfaces
//
// The extension points are small interfaces and function types:
//   - OrderPolicy: map (week, node context) to a non-negative order quantity
//   - PolicyFunc / PolicyRegistry: name-keyed custom policies resolved at
//     construction time
//   - DemandPattern: map week to external customer demand at the retailer
//
// The metrics Collector observes committed post-week node state only; the
// bullwhip ratio, fill rates, and cost totals are derived from the recorded
// histories.
package sim
