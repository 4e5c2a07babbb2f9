package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

func Connect(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx2, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx2); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	return db, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS analysis_audit (
  id           TEXT        PRIMARY KEY,
  feature      TEXT        NOT NULL,
  score        INTEGER     NOT NULL,
  degraded     BOOLEAN     NOT NULL,
  reason       TEXT        NOT NULL,
  detail       TEXT        NOT NULL,
  provider     TEXT        NOT NULL,
  evidence_url TEXT        NOT NULL,
  duration_ms  BIGINT      NOT NULL,
  created_at   TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_audit_created ON analysis_audit (created_at);
CREATE TABLE IF NOT EXISTS analysis_audit_failures (
  id          BIGSERIAL   PRIMARY KEY,
  record_id   TEXT        NOT NULL,
  capability  TEXT        NOT NULL,
  provider    TEXT        NOT NULL,
  reason      TEXT        NOT NULL,
  detail      TEXT        NOT NULL,
  created_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_failures_record ON analysis_audit_failures (record_id);`

// EnsureSchema creates the audit tables when missing.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("postgres schema: %w", err)
	}
	return nil
}
