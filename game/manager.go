package game

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/bullwhip-sim/bullwhip-sim/sim"
)

// Manager is the process-wide registry of game sessions.
type Manager struct {
	mu    sync.RWMutex
	games map[string]*Game
}

// NewManager returns an empty session registry.
func NewManager() *Manager {
	return &Manager{games: make(map[string]*Game)}
}

// Create builds a new session with a random ID and registers it.
func (m *Manager) Create(cfg sim.SimulationConfig, rules Rules) (*Game, error) {
	id := newGameID()
	g, err := NewGame(id, cfg, rules)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.games[id] = g
	m.mu.Unlock()

	logrus.Infof("created game %s (%d weeks)", id, g.rules.Weeks)
	return g, nil
}

// Get looks up a session by ID.
func (m *Manager) Get(id string) (*Game, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.games[id]
	if !ok {
		return nil, fmt.Errorf("unknown game %q", id)
	}
	return g, nil
}

// Delete removes a session from the registry.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.games[id]; !ok {
		return fmt.Errorf("unknown game %q", id)
	}
	delete(m.games, id)
	return nil
}

// List returns all registered sessions sorted by ID.
func (m *Manager) List() []*Game {
	m.mu.RLock()
	defer m.mu.RUnlock()

	games := make([]*Game, 0, len(m.games))
	for _, g := range m.games {
		games = append(games, g)
	}
	sort.Slice(games, func(i, j int) bool { return games[i].ID < games[j].ID })
	return games
}

func newGameID() string {
	var b [6]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b[:])
}
