package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"pizzeria-system/internal/domain"
)

// Postgres stores each document as one JSONB row keyed by name. Upserts are
// atomic per key; there are no cross-key transactions, matching the
// last-write-wins contract of the Store interface.
type Postgres struct {
	pool *pgxpool.Pool
}

const schema = `
CREATE TABLE IF NOT EXISTS documents (
    key        text PRIMARY KEY,
    doc        jsonb NOT NULL,
    updated_at timestamptz NOT NULL DEFAULT now()
)`

func NewPostgres(ctx context.Context, pool *pgxpool.Pool) (*Postgres, error) {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("%w: create documents table: %v", domain.ErrPersistence, err)
	}
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Get(ctx context.Context, key string, into any) error {
	var raw []byte
	err := p.pool.QueryRow(ctx, `SELECT doc FROM documents WHERE key = $1`, key).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("%w: select %s: %v", domain.ErrPersistence, key, err)
	}
	if err := json.Unmarshal(raw, into); err != nil {
		return fmt.Errorf("%w: decode %s: %v", domain.ErrPersistence, key, err)
	}
	return nil
}

func (p *Postgres) Put(ctx context.Context, key string, doc any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %v", domain.ErrPersistence, key, err)
	}
	_, err = p.pool.Exec(ctx, `
		INSERT INTO documents (key, doc, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET doc = EXCLUDED.doc, updated_at = now()`,
		key, raw)
	if err != nil {
		return fmt.Errorf("%w: upsert %s: %v", domain.ErrPersistence, key, err)
	}
	return nil
}

func (p *Postgres) Delete(ctx context.Context, key string) error {
	if _, err := p.pool.Exec(ctx, `DELETE FROM documents WHERE key = $1`, key); err != nil {
		return fmt.Errorf("%w: delete %s: %v", domain.ErrPersistence, key, err)
	}
	return nil
}
