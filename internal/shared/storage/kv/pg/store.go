package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"resume-feedback/internal/shared/storage/kv"
)

// Store implements kv.Store on the kv_records table.
type Store struct {
	DB *sql.DB
}

// New wraps an open database.
func New(db *sql.DB) *Store {
	return &Store{DB: db}
}

// Set upserts value under key.
func (s *Store) Set(ctx context.Context, key, value string) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO kv_records (key, value)
		VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()
	`, key, value)
	if err != nil {
		return fmt.Errorf("upsert kv_records key=%s: %w", key, err)
	}
	return nil
}

// Get returns the value for key or kv.ErrNotFound.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.DB.QueryRowContext(ctx, `SELECT value FROM kv_records WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", kv.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("select kv_records key=%s: %w", key, err)
	}
	return value, nil
}

// List returns entries whose key starts with prefix, ordered by key.
func (s *Store) List(ctx context.Context, prefix string) ([]kv.Entry, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT key, value FROM kv_records
		WHERE key LIKE $1 ESCAPE '\'
		ORDER BY key
	`, escapeLike(prefix)+"%")
	if err != nil {
		return nil, fmt.Errorf("list kv_records: %w", err)
	}
	defer rows.Close()

	var out []kv.Entry
	for rows.Next() {
		var e kv.Entry
		if err := rows.Scan(&e.Key, &e.Value); err != nil {
			return nil, fmt.Errorf("scan kv_records: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

var _ kv.Store = (*Store)(nil)
