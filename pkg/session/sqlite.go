// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/zvezdanprotic-capgemini/azurefoundrymcpagents/pkg/workflow"
)

const caseTable = "onboarding_cases"

// SQLiteStore persists cases in a SQLite database as JSON blobs keyed by
// case id.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path and ensures schema.
// Use ":memory:" for an ephemeral store.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("session: sqlite path is required")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("session: open sqlite: %w", err)
	}
	// The sqlite driver serializes writes; a single connection avoids
	// SQLITE_BUSY under concurrent turns.
	db.SetMaxOpenConns(1)
	store := &SQLiteStore{db: db}
	if err := store.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) ensureSchema() error {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			status TEXT NOT NULL,
			current_stage TEXT NOT NULL,
			updated_at INTEGER NOT NULL,
			case_json BLOB NOT NULL
		);`, caseTable),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_status ON %s(status);`, caseTable, caseTable),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_updated ON %s(updated_at);`, caseTable, caseTable),
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("session: ensure schema: %w", err)
		}
	}
	return nil
}

// Load implements Store.
func (s *SQLiteStore) Load(ctx context.Context, caseID string) (*workflow.Case, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT case_json FROM %s WHERE id = ?", caseTable), caseID).Scan(&payload)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("session: load case %q: %w", caseID, err)
	}
	var c workflow.Case
	if err := json.Unmarshal(payload, &c); err != nil {
		return nil, fmt.Errorf("session: decode case %q: %w", caseID, err)
	}
	return &c, nil
}

// Save implements Store. The upsert runs in a transaction so a turn's state
// is applied whole or not at all.
func (s *SQLiteStore) Save(ctx context.Context, c *workflow.Case) error {
	if c == nil || c.ID == "" {
		return fmt.Errorf("session: case with id is required")
	}
	payload, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("session: encode case %q: %w", c.ID, err)
	}
	now := time.Now().UTC().UnixMilli()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("session: begin tx: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (id, status, current_stage, updated_at, case_json) VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				status = excluded.status,
				current_stage = excluded.current_stage,
				updated_at = excluded.updated_at,
				case_json = excluded.case_json`, caseTable),
		c.ID, string(c.Status), c.CurrentStage, now, payload)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("session: save case %q: %w", c.ID, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("session: commit case %q: %w", c.ID, err)
	}
	return nil
}

// List implements Store.
func (s *SQLiteStore) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf("SELECT id FROM %s ORDER BY updated_at DESC, id ASC", caseTable))
	if err != nil {
		return nil, fmt.Errorf("session: list cases: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// Delete implements Store.
func (s *SQLiteStore) Delete(ctx context.Context, caseID string) error {
	_, err := s.db.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE id = ?", caseTable), caseID)
	if err != nil {
		return fmt.Errorf("session: delete case %q: %w", caseID, err)
	}
	return nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

var _ Store = (*SQLiteStore)(nil)
