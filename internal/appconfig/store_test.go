package appconfig

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_UpdatePublishesNewSnapshot(t *testing.T) {
	ctx := context.Background()
	s, err := NewStore(ctx, validConfig())
	require.NoError(t, err)

	first := s.Current()
	require.NotNil(t, first)
	require.NotEmpty(t, first.Version)

	next := validConfig()
	next.PriorityScoring.Components[0].Weight = 50
	next.PriorityScoring.Components[1].Weight = 25
	snap, err := s.Update(ctx, next, "admin@example.com")
	require.NoError(t, err)

	assert.NotEqual(t, first.Version, snap.Version)
	assert.Same(t, snap, s.Current())
	assert.Equal(t, "admin@example.com", snap.UpdatedBy)
}

func TestStore_RejectsInvalidUpdateKeepsPrevious(t *testing.T) {
	ctx := context.Background()
	s, err := NewStore(ctx, validConfig())
	require.NoError(t, err)
	before := s.Current()

	bad := validConfig()
	bad.PriorityScoring.Components[0].Weight = 99 // sum != 100
	_, err = s.Update(ctx, bad, "admin@example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must sum to 100")

	assert.Same(t, before, s.Current(), "failed update must not replace the live snapshot")
}

func TestStore_RejectsInvalidSeed(t *testing.T) {
	bad := validConfig()
	bad.PriorityScoring.Components = nil
	_, err := NewStore(context.Background(), bad)
	require.Error(t, err)
}

func TestStore_FileBackendRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "dashboard.yaml")
	backend := NewFileBackend(path)

	s, err := NewStore(ctx, validConfig(), WithBackend(backend))
	require.NoError(t, err)

	next := validConfig()
	next.ScopeDefaults[RoleAccountManager] = ScopeTeam
	snap, err := s.Update(ctx, next, "ops")
	require.NoError(t, err)

	// A fresh store against the same file resumes from the persisted snapshot.
	s2, err := NewStore(ctx, validConfig(), WithBackend(NewFileBackend(path)))
	require.NoError(t, err)
	assert.Equal(t, snap.Version, s2.Current().Version)
	assert.Equal(t, ScopeTeam, s2.Current().Config.ScopeDefaults[RoleAccountManager])
}

func TestStore_SQLiteBackendRoundTrip(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "dashboard.db")
	backend, err := NewSQLite(dsn)
	require.NoError(t, err)
	defer backend.Close()

	s, err := NewStore(ctx, validConfig(), WithBackend(backend))
	require.NoError(t, err)

	next := validConfig()
	next.RiskRules[0].Flag = FlagCritical
	snap, err := s.Update(ctx, next, "ops")
	require.NoError(t, err)

	loaded, err := backend.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, snap.Version, loaded.Version)
	assert.Equal(t, FlagCritical, loaded.Config.RiskRules[0].Flag)
}
