package appconfig

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
)

// Pool is the subset of pgxpool.Pool used by the Postgres backend.
// pgxmock satisfies it for tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresBackend persists snapshots in Postgres for multi-node deployments.
type PostgresBackend struct {
	pool    Pool
	closeFn func()
}

// NewPostgres connects a pool and runs migrations.
func NewPostgres(ctx context.Context, connString string) (*PostgresBackend, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "appconfig: postgres parse config")
	}
	pgxCfg.MaxConns = 4
	pgxCfg.MaxConnLifetime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "appconfig: postgres connect")
	}

	b := &PostgresBackend{pool: pool, closeFn: pool.Close}
	if err := b.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return b, nil
}

// NewPostgresWithPool wraps an existing pool (used by tests).
func NewPostgresWithPool(pool Pool) *PostgresBackend {
	return &PostgresBackend{pool: pool}
}

func (b *PostgresBackend) migrate(ctx context.Context) error {
	_, err := b.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS config_snapshots (
			version    TEXT PRIMARY KEY,
			updated_at TIMESTAMPTZ NOT NULL,
			updated_by TEXT,
			config     JSONB NOT NULL
		)`)
	if err != nil {
		return eris.Wrap(err, "appconfig: postgres migrate")
	}
	return nil
}

// Load implements Backend, returning the newest snapshot row.
func (b *PostgresBackend) Load(ctx context.Context) (*Snapshot, error) {
	row := b.pool.QueryRow(ctx, `
		SELECT version, updated_at, COALESCE(updated_by, ''), config
		FROM config_snapshots
		ORDER BY updated_at DESC
		LIMIT 1`)

	var snap Snapshot
	var raw []byte
	err := row.Scan(&snap.Version, &snap.UpdatedAt, &snap.UpdatedBy, &raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "appconfig: postgres load")
	}

	if err := json.Unmarshal(raw, &snap.Config); err != nil {
		return nil, eris.Wrap(err, "appconfig: postgres decode config")
	}
	return &snap, nil
}

// Save implements Backend.
func (b *PostgresBackend) Save(ctx context.Context, snap *Snapshot) error {
	raw, err := json.Marshal(snap.Config)
	if err != nil {
		return eris.Wrap(err, "appconfig: postgres encode config")
	}

	_, err = b.pool.Exec(ctx, `
		INSERT INTO config_snapshots (version, updated_at, updated_by, config)
		VALUES ($1, $2, $3, $4)`,
		snap.Version, snap.UpdatedAt, snap.UpdatedBy, raw,
	)
	if err != nil {
		return eris.Wrap(err, "appconfig: postgres save")
	}
	return nil
}

// Close implements Backend.
func (b *PostgresBackend) Close() error {
	if b.closeFn != nil {
		b.closeFn()
	}
	return nil
}
