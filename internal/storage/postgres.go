package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Postgres stores items in the local_storage table.
type Postgres struct {
	db *sql.DB
}

// NewPostgres wraps an open connection. The schema comes from the
// migrations directory.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) GetItem(ctx context.Context, key string) (string, bool, error) {
	query := `SELECT value FROM local_storage WHERE key = $1`

	var value string
	err := p.db.QueryRowContext(ctx, query, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get item %q: %w", key, err)
	}
	return value, true, nil
}

func (p *Postgres) SetItem(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO local_storage (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`

	if _, err := p.db.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("failed to set item %q: %w", key, err)
	}
	return nil
}

func (p *Postgres) Close() error {
	return p.db.Close()
}
