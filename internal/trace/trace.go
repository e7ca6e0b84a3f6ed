// Package trace persists decomposition runs to a sqlite database so they can
// be inspected after the fact. The schema is append-only: one row per
// committed decomposition and one per recomposed solution.
package trace

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"subgoal/internal/hole"
	"subgoal/internal/solve"
)

const schema = `
CREATE TABLE IF NOT EXISTS decompositions (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id      TEXT NOT NULL,
	node_id     TEXT NOT NULL,
	problem_id  TEXT NOT NULL,
	label       TEXT NOT NULL,
	children    TEXT NOT NULL,
	created_at  INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS solutions (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id      TEXT NOT NULL,
	problem_id  TEXT NOT NULL,
	pre         TEXT NOT NULL,
	term        TEXT NOT NULL,
	created_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_decompositions_run ON decompositions(run_id);
CREATE INDEX IF NOT EXISTS idx_solutions_run ON solutions(run_id);
`

// Store writes run traces to sqlite.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the trace database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open trace db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create trace schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// RecordSteps persists the solver's committed steps under a run id.
func (s *Store) RecordSteps(runID string, steps []solve.Step) error {
	now := time.Now().UnixMilli()
	for _, st := range steps {
		_, err := s.db.Exec(
			`INSERT INTO decompositions (run_id, node_id, problem_id, label, children, created_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			runID, st.NodeID, st.ProblemID, st.Label, strings.Join(st.Children, ","), now)
		if err != nil {
			return fmt.Errorf("record step %s: %w", st.Label, err)
		}
	}
	return nil
}

// RecordSolution persists a recomposed solution under a run id.
func (s *Store) RecordSolution(runID, problemID string, sol hole.Solution) error {
	_, err := s.db.Exec(
		`INSERT INTO solutions (run_id, problem_id, pre, term, created_at) VALUES (?, ?, ?, ?, ?)`,
		runID, problemID, sol.EffectivePre().String(), sol.Term.String(), time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("record solution for %s: %w", problemID, err)
	}
	return nil
}

// StepRow is one persisted decomposition.
type StepRow struct {
	RunID     string
	NodeID    string
	ProblemID string
	Label     string
	Children  []string
}

// Steps lists the persisted decompositions of a run in insertion order.
func (s *Store) Steps(runID string) ([]StepRow, error) {
	rows, err := s.db.Query(
		`SELECT run_id, node_id, problem_id, label, children FROM decompositions WHERE run_id = ? ORDER BY id`,
		runID)
	if err != nil {
		return nil, fmt.Errorf("list steps: %w", err)
	}
	defer rows.Close()

	var out []StepRow
	for rows.Next() {
		var r StepRow
		var children string
		if err := rows.Scan(&r.RunID, &r.NodeID, &r.ProblemID, &r.Label, &children); err != nil {
			return nil, fmt.Errorf("scan step: %w", err)
		}
		if children != "" {
			r.Children = strings.Split(children, ",")
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
