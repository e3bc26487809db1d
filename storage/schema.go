package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// CreateSchema creates all tables needed for the application.
// Safe to call multiple times - uses IF NOT EXISTS.
func CreateSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// Timestamps are stored as fixed-width UTC text so both dialects sort and
// round-trip them identically.
const schema = `
-- Candidates
CREATE TABLE IF NOT EXISTS candidates (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    party TEXT NOT NULL,
    constituency TEXT NOT NULL DEFAULT '',
    photo TEXT,
    created_at TEXT NOT NULL
);

-- Votes, one per voter
CREATE TABLE IF NOT EXISTS votes (
    id TEXT PRIMARY KEY,
    candidate_name TEXT NOT NULL,
    voter_id TEXT NOT NULL UNIQUE,
    cast_at TEXT NOT NULL,
    block_hash TEXT NOT NULL,
    previous_hash TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_votes_candidate_name ON votes(candidate_name);

-- Voters
CREATE TABLE IF NOT EXISTS voters (
    voter_id TEXT PRIMARY KEY,
    name TEXT NOT NULL DEFAULT '',
    mobile TEXT NOT NULL,
    created_at TEXT NOT NULL
);
`
