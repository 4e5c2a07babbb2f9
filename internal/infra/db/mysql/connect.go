package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

func Connect(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	// test ping
	ctx2, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx2); err != nil {
		db.Close()
		return nil, fmt.Errorf("mysql ping: %w", err)
	}
	return db, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS analysis_audit (
  id           VARCHAR(36)  NOT NULL PRIMARY KEY,
  feature      VARCHAR(32)  NOT NULL,
  score        INT          NOT NULL,
  degraded     BOOLEAN      NOT NULL,
  reason       VARCHAR(32)  NOT NULL,
  detail       TEXT         NOT NULL,
  provider     VARCHAR(64)  NOT NULL,
  evidence_url VARCHAR(512) NOT NULL,
  duration_ms  BIGINT       NOT NULL,
  created_at   DATETIME(3)  NOT NULL,
  INDEX idx_audit_created (created_at)
);
CREATE TABLE IF NOT EXISTS analysis_audit_failures (
  id          BIGINT AUTO_INCREMENT PRIMARY KEY,
  record_id   VARCHAR(36) NOT NULL,
  capability  VARCHAR(32) NOT NULL,
  provider    VARCHAR(64) NOT NULL,
  reason      VARCHAR(32) NOT NULL,
  detail      TEXT        NOT NULL,
  created_at  DATETIME(3) NOT NULL,
  INDEX idx_failures_record (record_id)
);`

// EnsureSchema creates the audit tables when missing.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range splitStatements(schema) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("mysql schema: %w", err)
		}
	}
	return nil
}
