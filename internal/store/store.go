// Package store persists console state in Postgres. Every store degrades
// gracefully: with no configured database the operations become no-ops
// with safe return values, and backing-store failures are logged and
// swallowed rather than propagated past this boundary.
package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/zapdesk/support-console/pkg/logger"
)

// Open connects to Postgres. An empty dataSourceName yields a nil DB,
// which all stores treat as degraded (memory-only) mode.
func Open(ctx context.Context, dataSourceName string, log *logger.Logger) (*sql.DB, error) {
	if dataSourceName == "" {
		log.Warn("DATABASE_URL not configured, running without persistence")
		return nil, nil
	}

	db, err := sql.Open("postgres", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := createTables(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return db, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS conversations (
			user_id        TEXT PRIMARY KEY,
			user_name      TEXT NOT NULL DEFAULT '',
			messages       JSONB NOT NULL DEFAULT '[]',
			last_message   TEXT NOT NULL DEFAULT '',
			last_timestamp TIMESTAMPTZ,
			unread         INTEGER NOT NULL DEFAULT 0,
			labels         TEXT[] NOT NULL DEFAULT '{}',
			updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS labels (
			id         UUID PRIMARY KEY,
			name       TEXT NOT NULL,
			color      TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS service_orders (
			id         UUID PRIMARY KEY,
			numero_os  TEXT UNIQUE NOT NULL,
			status     TEXT NOT NULL,
			data       JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE SEQUENCE IF NOT EXISTS service_order_seq`,
	}

	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
