// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Dialect names a supported SQL backend.
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

// ParseDialect accepts "sqlite" or "postgres" (and "postgresql").
func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sqlite", "sqlite3":
		return SQLite, nil
	case "postgres", "postgresql":
		return Postgres, nil
	default:
		return "", fmt.Errorf("unsupported database type %q (use sqlite or postgres)", s)
	}
}

// Open connects to the database, verifies the connection, and applies the
// schema.
func Open(ctx context.Context, dialect Dialect, url string) (*sql.DB, error) {
	if strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("database URL is required")
	}

	var (
		conn *sql.DB
		err  error
	)
	switch dialect {
	case SQLite:
		conn, err = sql.Open("sqlite", sqliteDSN(url))
		if err != nil {
			return nil, fmt.Errorf("open sqlite db: %w", err)
		}
		// One connection serializes every transaction, which is what the
		// has-voted check-then-set relies on.
		conn.SetMaxOpenConns(1)
	case Postgres:
		conn, err = sql.Open("postgres", url)
		if err != nil {
			return nil, fmt.Errorf("open postgres db: %w", err)
		}
		conn.SetMaxOpenConns(25)
		conn.SetConnMaxIdleTime(5 * time.Minute)
	default:
		return nil, fmt.Errorf("unsupported database type %q", dialect)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping %s db: %w", dialect, err)
	}

	if dialect == SQLite {
		if err := ensureForeignKeysEnabled(conn); err != nil {
			_ = conn.Close()
			return nil, err
		}
	}

	if err := CreateSchema(conn, dialect); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return conn, nil
}

func sqliteDSN(url string) string {
	path := strings.TrimPrefix(url, "sqlite://")
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

func ensureForeignKeysEnabled(conn *sql.DB) error {
	var enabled int
	if err := conn.QueryRow("PRAGMA foreign_keys").Scan(&enabled); err != nil {
		return fmt.Errorf("check sqlite foreign key pragma: %w", err)
	}
	if enabled != 1 {
		return fmt.Errorf("sqlite foreign keys are disabled")
	}
	return nil
}
