package kv

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"knittex.app/boardroom/core/config"
	"knittex.app/boardroom/core/db"
)

const (
	createTableSQL = `CREATE TABLE IF NOT EXISTS kv_records (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

	getSQL = `SELECT value FROM kv_records WHERE key = $1`

	upsertSQL = `INSERT INTO kv_records (key, value, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`
)

// PostgresStore keeps records in the kv_records table.
type PostgresStore struct {
	db *db.DB
}

// NewPostgresStore connects and creates kv_records if it does not exist.
func NewPostgresStore(ctx context.Context, cfg config.StorageConfig) (*PostgresStore, error) {
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("database url is required")
	}

	database, err := db.New(ctx, db.Config{
		DSN:      cfg.DatabaseURL,
		MaxConns: cfg.MaxConns,
		MinConns: cfg.MinConns,
	})
	if err != nil {
		return nil, err
	}

	if err := database.Exec(ctx, createTableSQL); err != nil {
		database.Close()
		return nil, fmt.Errorf("creating kv_records: %w", err)
	}

	return &PostgresStore{db: database}, nil
}

func (s *PostgresStore) Get(ctx context.Context, key string) (string, error) {
	var value string
	if err := s.db.QueryRow(ctx, getSQL, key).Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("selecting %s: %w", key, err)
	}
	return value, nil
}

func (s *PostgresStore) Set(ctx context.Context, key, value string) error {
	return s.db.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, upsertSQL, key, value); err != nil {
			return fmt.Errorf("upserting %s: %w", key, err)
		}
		return nil
	})
}

func (s *PostgresStore) Close() error {
	s.db.Close()
	return nil
}
