// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"database/sql"
	"fmt"
)

// CreateSchema creates all tables needed for the application.
// Safe to call multiple times - uses IF NOT EXISTS.
func CreateSchema(conn *sql.DB, dialect Dialect) error {
	_, err := conn.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	appendOnly := sqliteAppendOnly
	if dialect == Postgres {
		appendOnly = postgresAppendOnly
	}
	if _, err := conn.Exec(appendOnly); err != nil {
		return fmt.Errorf("failed to create append-only guard: %w", err)
	}

	return nil
}

// Times are stored as unix milliseconds so the same DDL runs on SQLite and
// PostgreSQL. candidates.created_at is in nanoseconds and only orders the list.
const schema = `
-- Elections
CREATE TABLE IF NOT EXISTS elections (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    start_time BIGINT NOT NULL,
    end_time BIGINT NOT NULL,
    status TEXT NOT NULL DEFAULT 'DRAFT' CHECK (status IN ('DRAFT', 'ACTIVE', 'PAUSED', 'CLOSED')),
    created_by TEXT NOT NULL,
    created_at BIGINT NOT NULL,
    CHECK (end_time > start_time)
);

CREATE INDEX IF NOT EXISTS idx_elections_status ON elections(status);

-- Candidates
CREATE TABLE IF NOT EXISTS candidates (
    id TEXT PRIMARY KEY,
    election_id TEXT NOT NULL REFERENCES elections(id),
    name TEXT NOT NULL,
    party TEXT NOT NULL DEFAULT '',
    created_at BIGINT NOT NULL,
    UNIQUE (election_id, name)
);

CREATE INDEX IF NOT EXISTS idx_candidates_election_id ON candidates(election_id);

-- Guest list
CREATE TABLE IF NOT EXISTS election_voters (
    election_id TEXT NOT NULL REFERENCES elections(id),
    voter_hash TEXT NOT NULL,
    has_voted INTEGER NOT NULL DEFAULT 0 CHECK (has_voted IN (0, 1)),
    PRIMARY KEY (election_id, voter_hash)
);

-- Ballots (append-only, no voter column)
CREATE TABLE IF NOT EXISTS votes (
    id TEXT PRIMARY KEY,
    election_id TEXT NOT NULL REFERENCES elections(id),
    encrypted_vote TEXT NOT NULL,
    vote_hash TEXT NOT NULL,
    receipt_hash TEXT NOT NULL UNIQUE,
    cast_at BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_votes_election_id ON votes(election_id);
`

const sqliteAppendOnly = `
CREATE TRIGGER IF NOT EXISTS votes_no_update BEFORE UPDATE ON votes
BEGIN
    SELECT RAISE(ABORT, 'votes are append-only');
END;

CREATE TRIGGER IF NOT EXISTS votes_no_delete BEFORE DELETE ON votes
BEGIN
    SELECT RAISE(ABORT, 'votes are append-only');
END;
`

const postgresAppendOnly = `
CREATE OR REPLACE FUNCTION votes_append_only() RETURNS trigger AS $$
BEGIN
    RAISE EXCEPTION 'votes are append-only';
END;
$$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS votes_no_modify ON votes;
CREATE TRIGGER votes_no_modify BEFORE UPDATE OR DELETE ON votes
    FOR EACH ROW EXECUTE FUNCTION votes_append_only();
`
