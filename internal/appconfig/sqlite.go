package appconfig

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLiteBackend persists snapshots in a local SQLite database. Every update
// appends a row, so prior versions remain queryable for audit.
type SQLiteBackend struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path, configures WAL mode,
// and runs migrations.
func NewSQLite(dsn string) (*SQLiteBackend, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "appconfig: sqlite open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "appconfig: sqlite exec %s", pragma)
		}
	}

	if _, err := db.Exec(sqliteMigration); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "appconfig: sqlite migrate")
	}
	return &SQLiteBackend{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS config_snapshots (
	version    TEXT PRIMARY KEY,
	updated_at DATETIME NOT NULL,
	updated_by TEXT,
	config     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_config_snapshots_updated_at
	ON config_snapshots (updated_at DESC);
`

// Load implements Backend, returning the newest snapshot row.
func (s *SQLiteBackend) Load(ctx context.Context) (*Snapshot, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT version, updated_at, COALESCE(updated_by, ''), config
		FROM config_snapshots
		ORDER BY updated_at DESC
		LIMIT 1`)

	var snap Snapshot
	var raw []byte
	err := row.Scan(&snap.Version, &snap.UpdatedAt, &snap.UpdatedBy, &raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "appconfig: sqlite load")
	}

	if err := json.Unmarshal(raw, &snap.Config); err != nil {
		return nil, eris.Wrap(err, "appconfig: sqlite decode config")
	}
	return &snap, nil
}

// Save implements Backend.
func (s *SQLiteBackend) Save(ctx context.Context, snap *Snapshot) error {
	raw, err := json.Marshal(snap.Config)
	if err != nil {
		return eris.Wrap(err, "appconfig: sqlite encode config")
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO config_snapshots (version, updated_at, updated_by, config)
		VALUES (?, ?, ?, ?)`,
		snap.Version, snap.UpdatedAt, snap.UpdatedBy, string(raw),
	)
	if err != nil {
		return eris.Wrap(err, "appconfig: sqlite save")
	}
	return nil
}

// Close implements Backend.
func (s *SQLiteBackend) Close() error {
	return s.db.Close()
}
