// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DSCC Contributors

// Package audit persists a local record of façade decisions (grants,
// denials, releases) for operator visibility. It never persists the
// active-lock table itself, which remains in-memory and non-authoritative
// across restarts.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/google/uuid"

	dsccerr "github.com/dscc-io/dscc/pkg/errors"
)

// Decision is the outcome recorded for one façade call.
type Decision string

const (
	DecisionGranted  Decision = "granted"
	DecisionDenied   Decision = "denied"
	DecisionReleased Decision = "released"
)

// Entry is one row of the audit log.
type Entry struct {
	ID          string
	AgentID     string
	Decision    Decision
	Message     string
	ActiveCount int
	RecordedAt  time.Time
	Centroid    []float32
}

// Store persists Entry rows to a local SQLite database. A Store with a nil
// underlying *sql.DB (see NewDisabled) accepts and silently drops every
// write, so callers never need to branch on whether auditing is enabled.
type Store struct {
	db        *sql.DB
	vecLoaded bool
}

// NewDisabled returns a Store that records nothing, for DSCC_AUDIT=false.
func NewDisabled() *Store {
	return &Store{}
}

// Open creates or opens the audit database at dbPath and migrates its
// schema. vecLoader, if non-nil, is invoked to attempt to load the
// sqlite-vec extension; failure to load it is not fatal — InspectRecent
// falls back to insertion-order results (see LoadVecExtension in
// internal/audit/vec.go).
func Open(dbPath string, vecLoader func(*sql.DB) error) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, dsccerr.Wrap(err, dsccerr.CodeAuditOpenFailure, "opening audit db")
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, dsccerr.Wrap(err, dsccerr.CodeAuditOpenFailure, "pinging audit db")
	}

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, dsccerr.Wrap(err, dsccerr.CodeAuditMigrateFailed, "migrating audit db")
	}

	vecLoaded := false
	if vecLoader != nil {
		if err := vecLoader(db); err != nil {
			slog.Warn("sqlite-vec extension unavailable, InspectRecent will use insertion order", "error", err)
		} else {
			vecLoaded = true
		}
	}

	return &Store{db: db, vecLoaded: vecLoaded}, nil
}

func migrate(db *sql.DB) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS decisions (
	id           TEXT PRIMARY KEY,
	agent_id     TEXT NOT NULL,
	decision     TEXT NOT NULL,
	message      TEXT NOT NULL DEFAULT '',
	active_count INTEGER NOT NULL DEFAULT 0,
	recorded_at  TEXT NOT NULL,
	centroid     TEXT NOT NULL DEFAULT '[]'
);

CREATE INDEX IF NOT EXISTS idx_decisions_agent ON decisions(agent_id);
CREATE INDEX IF NOT EXISTS idx_decisions_recorded_at ON decisions(recorded_at);
`
	_, err := db.Exec(ddl)
	return err
}

// Close closes the underlying database. A no-op on a disabled Store.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record appends one decision. entry.ID is assigned if empty.
func (s *Store) Record(ctx context.Context, entry Entry) error {
	if s.db == nil {
		return nil
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.RecordedAt.IsZero() {
		entry.RecordedAt = time.Now().UTC()
	}

	centroid, err := json.Marshal(entry.Centroid)
	if err != nil {
		return dsccerr.Wrap(err, dsccerr.CodeAuditWriteFailure, "encoding centroid", dsccerr.FieldAgentID(entry.AgentID))
	}

	const q = `INSERT INTO decisions (id, agent_id, decision, message, active_count, recorded_at, centroid)
VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err = s.db.ExecContext(ctx, q,
		entry.ID, entry.AgentID, string(entry.Decision), entry.Message,
		entry.ActiveCount, entry.RecordedAt.Format(time.RFC3339Nano), string(centroid),
	)
	if err != nil {
		return dsccerr.Wrap(err, dsccerr.CodeAuditWriteFailure, "inserting audit entry", dsccerr.FieldAgentID(entry.AgentID))
	}

	if s.vecLoaded && entry.Decision == DecisionGranted {
		if err := s.indexCentroid(ctx, entry.ID, entry.Centroid); err != nil {
			slog.Warn("failed to index centroid for similarity lookup", "agent_id", entry.AgentID, "error", err)
		}
	}
	return nil
}

// Recent returns up to limit entries, most recent first, optionally
// filtered to a single agentID. If near is non-empty and the sqlite-vec
// extension loaded successfully, results are ordered by similarity to near
// instead of recency.
func (s *Store) Recent(ctx context.Context, agentID string, near []float32, limit int) ([]Entry, error) {
	if s.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}

	if len(near) > 0 && s.vecLoaded {
		entries, err := s.recentByVecSimilarity(ctx, agentID, near, limit)
		if err == nil {
			return entries, nil
		}
		slog.Warn("vec similarity query failed, falling back to insertion order", "error", err)
	}

	query := `SELECT id, agent_id, decision, message, active_count, recorded_at, centroid FROM decisions`
	args := []any{}
	if agentID != "" {
		query += ` WHERE agent_id = ?`
		args = append(args, agentID)
	}
	// recorded_at alone can't break ties between entries recorded within the
	// same sub-second window under concurrent AcquireGuard/ReleaseGuard
	// traffic; decisions.id is a random UUID with no ordering relationship
	// to insertion order, so rowid (SQLite's implicit, monotonically
	// assigned row identifier — decisions has no WITHOUT ROWID clause) is
	// the tiebreaker that actually reflects recency.
	query += ` ORDER BY recorded_at DESC, rowid DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dsccerr.Wrap(err, dsccerr.CodeAuditQueryFailure, "querying audit entries")
	}
	defer func() { _ = rows.Close() }()

	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		var (
			e            Entry
			decision     string
			recordedAt   string
			centroidJSON string
		)
		if err := rows.Scan(&e.ID, &e.AgentID, &decision, &e.Message, &e.ActiveCount, &recordedAt, &centroidJSON); err != nil {
			return nil, dsccerr.Wrap(err, dsccerr.CodeAuditQueryFailure, "scanning audit row")
		}
		e.Decision = Decision(decision)
		if parsed, err := time.Parse(time.RFC3339Nano, recordedAt); err == nil {
			e.RecordedAt = parsed
		}
		_ = json.Unmarshal([]byte(centroidJSON), &e.Centroid)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, dsccerr.Wrap(err, dsccerr.CodeAuditQueryFailure, "iterating audit rows")
	}
	return entries, nil
}
