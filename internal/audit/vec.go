// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DSCC Contributors

package audit

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	sqlitevec "github.com/asg017/sqlite-vec-go-bindings/cgo"

	dsccerr "github.com/dscc-io/dscc/pkg/errors"
)

var enableOnce sync.Once

// LoadVecExtension registers the sqlite-vec extension with the sqlite3
// driver and checks that it answers vec_version(). It does not create the
// vec0 virtual table; indexCentroid creates that on first use. It is meant
// to be passed as the vecLoader argument to Open. If the extension fails to
// answer, this returns an error and the caller falls back to
// insertion-order results — see Open's doc comment.
func LoadVecExtension(db *sql.DB) error {
	enableOnce.Do(sqlitevec.Auto)

	// vec0 requires a fixed dimensionality at table-creation time; dscc's
	// embeddings are variable-width, so decision_vectors is created lazily
	// by indexCentroid, sized to the first centroid it sees.
	if _, err := db.Exec(`SELECT vec_version()`); err != nil {
		return dsccerr.Wrap(err, dsccerr.CodeAuditOpenFailure, "verifying sqlite-vec extension")
	}
	return nil
}

func (s *Store) indexCentroid(ctx context.Context, entryID string, centroid []float32) error {
	if len(centroid) == 0 {
		return nil
	}

	tableDDL := fmt.Sprintf(
		`CREATE VIRTUAL TABLE IF NOT EXISTS decision_vectors USING vec0(entry_id TEXT PRIMARY KEY, embedding FLOAT[%d])`,
		len(centroid),
	)
	if _, err := s.db.ExecContext(ctx, tableDDL); err != nil {
		return dsccerr.Wrap(err, dsccerr.CodeAuditWriteFailure, "creating vec0 table")
	}

	serialized, err := sqlitevec.SerializeFloat32(centroid)
	if err != nil {
		return dsccerr.Wrap(err, dsccerr.CodeAuditWriteFailure, "serializing centroid for vec0")
	}

	const q = `INSERT INTO decision_vectors (entry_id, embedding) VALUES (?, ?)`
	if _, err := s.db.ExecContext(ctx, q, entryID, serialized); err != nil {
		return dsccerr.Wrap(err, dsccerr.CodeAuditWriteFailure, "indexing centroid")
	}
	return nil
}

func (s *Store) recentByVecSimilarity(ctx context.Context, agentID string, near []float32, limit int) ([]Entry, error) {
	serialized, err := sqlitevec.SerializeFloat32(near)
	if err != nil {
		return nil, dsccerr.Wrap(err, dsccerr.CodeAuditQueryFailure, "serializing query vector")
	}

	query := `
SELECT d.id, d.agent_id, d.decision, d.message, d.active_count, d.recorded_at, d.centroid
FROM decision_vectors v
JOIN decisions d ON d.id = v.entry_id
WHERE v.embedding MATCH ? AND k = ?`
	args := []any{serialized, limit}
	if agentID != "" {
		query += ` AND d.agent_id = ?`
		args = append(args, agentID)
	}
	query += ` ORDER BY v.distance ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dsccerr.Wrap(err, dsccerr.CodeAuditQueryFailure, "querying decision_vectors")
	}
	defer func() { _ = rows.Close() }()

	return scanEntries(rows)
}
