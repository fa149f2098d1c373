// Package game is the session orchestration layer on top of the simulation
// engine: players, turn-based decision collection, scoring, and win
// conditions. It consumes the engine only through its boundary operations
// (Step, CurrentState, Results, SetOrderPolicies); all supply-chain mechanics
// stay inside package sim.
package game

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/bullwhip-sim/bullwhip-sim/sim"
)

// Status is the lifecycle state of a game session.
type Status string

const (
	StatusWaiting    Status = "waiting_for_players"
	StatusInProgress Status = "in_progress"
	StatusPaused     Status = "paused"
	StatusFinished   Status = "finished"
)

var (
	ErrRoleTaken        = errors.New("role already taken")
	ErrUnknownPlayer    = errors.New("unknown player")
	ErrNotInProgress    = errors.New("game is not in progress")
	ErrDecisionsMissing = errors.New("not all human decisions submitted")
)

// Player is one participant. AI players fall back to the node's configured
// policy; human players must submit a decision every week.
type Player struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Role      sim.Role `json:"role"`
	IsHuman   bool     `json:"is_human"`
	decisions map[int]int
}

// Rules are the session-level targets evaluated at the end of a game.
type Rules struct {
	Weeks            int     `json:"weeks"`
	TargetTeamCost   float64 `json:"target_team_cost"`   // 0 = no target
	TargetFillRate   float64 `json:"target_fill_rate"`   // 0 = no target
	MaxStockoutWeeks int     `json:"max_stockout_weeks"` // 0 = no limit
}

// Standing is one leaderboard row.
type Standing struct {
	PlayerID string          `json:"player_id"`
	Name     string          `json:"name"`
	Role     sim.Role        `json:"role"`
	Cost     decimal.Decimal `json:"cost"`
}

// Outcome is the end-of-game evaluation against the rules.
type Outcome struct {
	TeamCost      decimal.Decimal `json:"team_cost"`
	FillRate      float64         `json:"fill_rate"`
	StockoutWeeks int             `json:"stockout_weeks"`
	BullwhipRatio float64         `json:"bullwhip_ratio"`
	Won           bool            `json:"won"`
	Reasons       []string        `json:"reasons"`
}

// Game is one session: an engine environment plus the players driving it.
// All methods are safe for concurrent use; the engine itself is only touched
// while the game lock is held.
type Game struct {
	ID string

	mu      sync.Mutex
	status  Status
	env     *sim.Environment
	rules   Rules
	players map[string]*Player
	byRole  map[sim.Role]*Player
}

// NewGame builds a session around a fresh environment for the configuration.
func NewGame(id string, cfg sim.SimulationConfig, rules Rules) (*Game, error) {
	if rules.Weeks <= 0 {
		rules.Weeks = cfg.Weeks
	}
	cfg.Weeks = rules.Weeks

	env, err := sim.NewEnvironment(cfg)
	if err != nil {
		return nil, err
	}
	return &Game{
		ID:      id,
		status:  StatusWaiting,
		env:     env,
		rules:   rules,
		players: make(map[string]*Player),
		byRole:  make(map[sim.Role]*Player),
	}, nil
}

// Status returns the session lifecycle state.
func (g *Game) Status() Status {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.status
}

// Week returns the next week awaiting decisions.
func (g *Game) Week() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.env.Week()
}

// AddPlayer seats a player on a role. Each role can be taken once.
func (g *Game) AddPlayer(id, name string, role sim.Role, human bool) (*Player, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.status != StatusWaiting {
		return nil, fmt.Errorf("cannot join: game is %s", g.status)
	}
	if _, taken := g.byRole[role]; taken {
		return nil, fmt.Errorf("%w: %s", ErrRoleTaken, role)
	}

	p := &Player{ID: id, Name: name, Role: role, IsHuman: human, decisions: make(map[int]int)}
	g.players[id] = p
	g.byRole[role] = p
	logrus.Infof("game %s: %s joined as %s (human=%v)", g.ID, name, role, human)
	return p, nil
}

// RemovePlayer unseats a player before the game starts.
func (g *Game) RemovePlayer(id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	p, ok := g.players[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPlayer, id)
	}
	if g.status != StatusWaiting {
		return fmt.Errorf("cannot leave: game is %s", g.status)
	}
	delete(g.players, id)
	delete(g.byRole, p.Role)
	return nil
}

// Start wires each human player's decisions into a manual policy on their
// node and opens the game for play. Roles without a human keep the node's
// configured policy.
func (g *Game) Start() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.status != StatusWaiting {
		return fmt.Errorf("cannot start: game is %s", g.status)
	}

	overrides := make(map[sim.Role]sim.OrderPolicy)
	for _, p := range g.players {
		if !p.IsHuman {
			continue
		}
		player := p
		overrides[p.Role] = &sim.ManualPolicy{
			Decide: func(week int) (int, bool) {
				q, ok := player.decisions[week]
				return q, ok
			},
		}
	}
	g.env.SetOrderPolicies(overrides)

	g.status = StatusInProgress
	logrus.Infof("game %s started with %d players", g.ID, len(g.players))
	return nil
}

// SubmitDecision records a human player's order quantity for a week.
// Negative quantities are clamped to zero, mirroring the engine's policy
// contract.
func (g *Game) SubmitDecision(playerID string, week, quantity int) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.status != StatusInProgress {
		return ErrNotInProgress
	}
	p, ok := g.players[playerID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPlayer, playerID)
	}
	if week != g.env.Week() {
		return fmt.Errorf("decision is for week %d, current week is %d", week, g.env.Week())
	}
	if quantity < 0 {
		quantity = 0
	}
	p.decisions[week] = quantity
	return nil
}

// AdvanceWeek commits the current week once every human decision is in. The
// engine assumes a complete decision is available synchronously when it
// invokes the policy, so this is the gate that guarantees it.
func (g *Game) AdvanceWeek() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.status != StatusInProgress {
		return ErrNotInProgress
	}

	week := g.env.Week()
	for _, p := range g.players {
		if !p.IsHuman {
			continue
		}
		if _, ok := p.decisions[week]; !ok {
			return fmt.Errorf("%w: %s (%s) for week %d", ErrDecisionsMissing, p.Name, p.Role, week)
		}
	}

	if err := g.env.Step(week + 1); err != nil {
		g.status = StatusFinished
		return err
	}
	if g.env.Status() == sim.StatusCompleted {
		g.status = StatusFinished
		logrus.Infof("game %s finished after %d weeks", g.ID, g.env.Week())
	}
	return nil
}

// State exposes the engine snapshot for transports.
func (g *Game) State() sim.State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.env.CurrentState()
}

// PlayerView is the per-player slice of the state: a player only sees their
// own node, as in the physical game.
func (g *Game) PlayerView(playerID string) (sim.NodeState, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	p, ok := g.players[playerID]
	if !ok {
		return sim.NodeState{}, fmt.Errorf("%w: %s", ErrUnknownPlayer, playerID)
	}
	state := g.env.CurrentState()
	for _, ns := range state.Nodes {
		if ns.Role == p.Role {
			return ns, nil
		}
	}
	return sim.NodeState{}, fmt.Errorf("no node for role %s", p.Role)
}

// Leaderboard ranks players by the cumulative cost of their node, cheapest
// first.
func (g *Game) Leaderboard() []Standing {
	g.mu.Lock()
	defer g.mu.Unlock()

	standings := make([]Standing, 0, len(g.players))
	for _, p := range g.players {
		cost := g.nodeCost(p.Role)
		standings = append(standings, Standing{
			PlayerID: p.ID,
			Name:     p.Name,
			Role:     p.Role,
			Cost:     cost,
		})
	}
	sort.Slice(standings, func(i, j int) bool {
		return standings[i].Cost.Cmp(standings[j].Cost) < 0
	})
	return standings
}

func (g *Game) nodeCost(role sim.Role) decimal.Decimal {
	cost := decimal.Zero
	for _, n := range g.env.Nodes {
		if n.Role != role {
			continue
		}
		for _, rec := range n.History {
			cost = cost.Add(rec.TotalCost)
		}
	}
	return cost
}

// Evaluate scores a finished game against the rules.
func (g *Game) Evaluate() (Outcome, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.status != StatusFinished {
		return Outcome{}, fmt.Errorf("game is %s, not finished", g.status)
	}
	results, err := g.env.Results()
	if err != nil {
		return Outcome{}, err
	}

	out := Outcome{
		TeamCost:      results.Summary.TotalCost,
		FillRate:      results.Summary.FillRate,
		StockoutWeeks: results.Summary.StockoutWeeks,
		BullwhipRatio: results.Summary.BullwhipRatio,
		Won:           true,
	}

	if g.rules.TargetTeamCost > 0 {
		target := decimal.NewFromFloat(g.rules.TargetTeamCost)
		if out.TeamCost.Cmp(target) > 0 {
			out.Won = false
			out.Reasons = append(out.Reasons, fmt.Sprintf("team cost %s exceeded target %s", out.TeamCost.StringFixed(2), target.StringFixed(2)))
		}
	}
	if g.rules.TargetFillRate > 0 && out.FillRate < g.rules.TargetFillRate {
		out.Won = false
		out.Reasons = append(out.Reasons, fmt.Sprintf("fill rate %.3f below target %.3f", out.FillRate, g.rules.TargetFillRate))
	}
	if g.rules.MaxStockoutWeeks > 0 && out.StockoutWeeks > g.rules.MaxStockoutWeeks {
		out.Won = false
		out.Reasons = append(out.Reasons, fmt.Sprintf("%d stockout weeks exceeded limit %d", out.StockoutWeeks, g.rules.MaxStockoutWeeks))
	}
	return out, nil
}

// Results exposes the engine results of a finished game.
func (g *Game) Results() (*sim.Results, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.env.Results()
}
