// Package store archives completed simulation runs in SQLite so they can be
// listed and replayed later. Summary fields live in columns for querying; the
// full results document is kept as a JSON blob for lossless replay.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/bullwhip-sim/bullwhip-sim/sim"
)

// Store manages the SQLite connection and schema.
type Store struct {
	db *sql.DB
}

// RunRecord is one archived run as returned by ListRuns.
type RunRecord struct {
	SimulationID  string    `json:"simulation_id"`
	CreatedAt     time.Time `json:"created_at"`
	Weeks         int       `json:"weeks"`
	DemandType    string    `json:"demand_type"`
	TotalCost     string    `json:"total_cost"`
	FillRate      float64   `json:"fill_rate"`
	BullwhipRatio float64   `json:"bullwhip_ratio"`
}

// NewStore opens (or creates) the archive database at dbPath. WAL mode is
// enabled for concurrency and durability.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping sqlite db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON;"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("schema migration failed: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS runs (
		simulation_id TEXT PRIMARY KEY,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		weeks INTEGER NOT NULL,
		demand_type TEXT NOT NULL,
		total_cost TEXT NOT NULL,
		fill_rate REAL NOT NULL,
		bullwhip_ratio REAL NOT NULL,

		-- Full results document for replay
		results JSON NOT NULL
	);

	CREATE TABLE IF NOT EXISTS node_weeks (
		simulation_id TEXT NOT NULL REFERENCES runs(simulation_id) ON DELETE CASCADE,
		node TEXT NOT NULL,
		week INTEGER NOT NULL,
		inventory INTEGER NOT NULL,
		backlog INTEGER NOT NULL,
		orders_placed INTEGER NOT NULL,
		total_cost TEXT NOT NULL,
		PRIMARY KEY (simulation_id, node, week)
	);

	CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
	`

	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create archive tables: %w", err)
	}
	return nil
}

// SaveRun archives a completed run: one row in runs plus one row per node per
// week for ad-hoc SQL analysis.
func (s *Store) SaveRun(results *sim.Results) error {
	payload, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO runs (simulation_id, weeks, demand_type, total_cost, fill_rate, bullwhip_ratio, results)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		results.SimulationID,
		results.TotalWeeks,
		results.Config.DemandType,
		results.Summary.TotalCost.StringFixed(2),
		results.Summary.FillRate,
		results.Summary.BullwhipRatio,
		string(payload),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", results.SimulationID, err)
	}

	stmt, err := tx.Prepare(
		`INSERT INTO node_weeks (simulation_id, node, week, inventory, backlog, orders_placed, total_cost)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare node_weeks insert: %w", err)
	}
	defer stmt.Close()

	for node, history := range results.TimeSeries {
		for _, rec := range history {
			if _, err := stmt.Exec(
				results.SimulationID, node, rec.Week,
				rec.Inventory, rec.Backlog, rec.OrdersPlaced,
				rec.TotalCost.StringFixed(2),
			); err != nil {
				return fmt.Errorf("failed to insert node_weeks for %s week %d: %w", node, rec.Week, err)
			}
		}
	}

	return tx.Commit()
}

// GetRun loads the full results document of an archived run.
func (s *Store) GetRun(simulationID string) (*sim.Results, error) {
	var payload []byte
	err := s.db.QueryRow(
		`SELECT results FROM runs WHERE simulation_id = ?`, simulationID,
	).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run %s not found", simulationID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load run %s: %w", simulationID, err)
	}

	var results sim.Results
	if err := json.Unmarshal(payload, &results); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run %s: %w", simulationID, err)
	}
	return &results, nil
}

// ListRuns returns archived runs, newest first.
func (s *Store) ListRuns(limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(
		`SELECT simulation_id, created_at, weeks, demand_type, total_cost, fill_rate, bullwhip_ratio
		 FROM runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		var r RunRecord
		if err := rows.Scan(&r.SimulationID, &r.CreatedAt, &r.Weeks, &r.DemandType,
			&r.TotalCost, &r.FillRate, &r.BullwhipRatio); err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// DeleteRun removes an archived run and its per-week rows.
func (s *Store) DeleteRun(simulationID string) error {
	res, err := s.db.Exec(`DELETE FROM runs WHERE simulation_id = ?`, simulationID)
	if err != nil {
		return fmt.Errorf("failed to delete run %s: %w", simulationID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("run %s not found", simulationID)
	}
	return nil
}
