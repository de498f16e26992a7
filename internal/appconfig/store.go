package appconfig

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Snapshot is one published configuration version. Snapshots are immutable
// after publication; readers hold them for the duration of a request.
type Snapshot struct {
	Version   string    `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
	UpdatedBy string    `json:"updated_by,omitempty"`
	Config    AppConfig `json:"config"`
}

// Backend persists configuration snapshots across restarts.
type Backend interface {
	// Load returns the most recent persisted snapshot, or nil if none.
	Load(ctx context.Context) (*Snapshot, error)
	// Save persists a snapshot.
	Save(ctx context.Context, snap *Snapshot) error
	Close() error
}

// Store publishes configuration snapshots. Reads are lock-free pointer loads;
// writes validate, mint a new version, and swap the pointer, so concurrent
// readers always see a complete config.
type Store struct {
	current atomic.Pointer[Snapshot]
	backend Backend
}

// StoreOption configures the Store.
type StoreOption func(*Store)

// WithBackend attaches a persistence backend. Updates are written through;
// NewStore prefers a persisted snapshot over the seed config when present.
func WithBackend(b Backend) StoreOption {
	return func(s *Store) { s.backend = b }
}

// NewStore validates the seed config and publishes it as the first snapshot.
// If a backend holds a previously persisted snapshot, that snapshot wins.
func NewStore(ctx context.Context, seed AppConfig, opts ...StoreOption) (*Store, error) {
	s := &Store{}
	for _, opt := range opts {
		opt(s)
	}

	if s.backend != nil {
		persisted, err := s.backend.Load(ctx)
		if err != nil {
			return nil, eris.Wrap(err, "appconfig: load persisted snapshot")
		}
		if persisted != nil {
			if err := persisted.Config.Validate(); err != nil {
				return nil, eris.Wrap(err, "appconfig: persisted snapshot invalid")
			}
			s.current.Store(persisted)
			zap.L().Info("appconfig: loaded persisted snapshot",
				zap.String("version", persisted.Version),
				zap.Time("updated_at", persisted.UpdatedAt),
			)
			return s, nil
		}
	}

	if err := seed.Validate(); err != nil {
		return nil, err
	}
	snap := &Snapshot{
		Version:   uuid.NewString(),
		UpdatedAt: time.Now().UTC(),
		Config:    seed,
	}
	s.current.Store(snap)
	return s, nil
}

// Current returns the live snapshot. Callers must not mutate it.
func (s *Store) Current() *Snapshot {
	return s.current.Load()
}

// Update validates cfg and, if valid, publishes it as a new snapshot and
// writes it through to the backend. Invalid configs are rejected and the
// previous snapshot stays live.
func (s *Store) Update(ctx context.Context, cfg AppConfig, updatedBy string) (*Snapshot, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	snap := &Snapshot{
		Version:   uuid.NewString(),
		UpdatedAt: time.Now().UTC(),
		UpdatedBy: updatedBy,
		Config:    cfg,
	}

	if s.backend != nil {
		if err := s.backend.Save(ctx, snap); err != nil {
			return nil, eris.Wrap(err, "appconfig: persist snapshot")
		}
	}

	s.current.Store(snap)
	zap.L().Info("appconfig: published snapshot",
		zap.String("version", snap.Version),
		zap.String("updated_by", updatedBy),
	)
	return snap, nil
}
