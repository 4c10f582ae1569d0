package kvstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"tutor-service/common/metrics"

	_ "modernc.org/sqlite"
)

// SQLite persists values in a single-table sqlite database file
type SQLite struct {
	db      *sql.DB
	quota   int64
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewSQLite(dbPath string, quota int64, m *metrics.Metrics, logger *slog.Logger) (*SQLite, error) {
	if quota <= 0 {
		quota = DefaultQuotaBytes
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// one connection: the quota check and the upsert must not interleave
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	logger.Info("local store opened", "path", dbPath, "quota_bytes", quota)

	return &SQLite{db: db, quota: quota, metrics: m, logger: logger}, nil
}

func (s *SQLite) Get(ctx context.Context, key string) ([]byte, error) {
	start := time.Now()
	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		s.record(ctx, "get", key, start, nil)
		return nil, ErrNotFound
	}
	s.record(ctx, "get", key, start, err)
	if err != nil {
		return nil, fmt.Errorf("get %q: %w", key, err)
	}
	return value, nil
}

func (s *SQLite) Set(ctx context.Context, key string, value []byte) (err error) {
	start := time.Now()
	defer func() { s.record(ctx, "set", key, start, err) }()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var others int64
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(LENGTH(value)), 0) FROM kv WHERE key <> ?`, key,
	).Scan(&others); err != nil {
		return fmt.Errorf("measure usage: %w", err)
	}

	if next := others + int64(len(value)); next > s.quota {
		return quotaError(key, next, s.quota)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value,
	); err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}

	return tx.Commit()
}

func (s *SQLite) Delete(ctx context.Context, key string) error {
	start := time.Now()
	_, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key)
	s.record(ctx, "delete", key, start, err)
	if err != nil {
		return fmt.Errorf("delete %q: %w", key, err)
	}
	return nil
}

// Ping is used by the readiness check
func (s *SQLite) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) record(ctx context.Context, op, key string, start time.Time, err error) {
	if s.metrics != nil {
		s.metrics.Store.RecordQuery(ctx, op, key, time.Since(start), err)
	}
}
