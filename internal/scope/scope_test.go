package scope

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/dashboard-engine/internal/appconfig"
)

// fakeLookup records calls and serves canned subordinate sets.
type fakeLookup struct {
	subs  map[string][]string
	err   error
	calls int
}

func (f *fakeLookup) Subordinates(_ context.Context, userID, _ string) ([]string, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.subs[userID], nil
}

func newTestResolver(lookup *fakeLookup) *Resolver {
	return NewResolver(lookup, WithCache(NewTTLCache(time.Minute, 0)))
}

var viewer = Viewer{UserID: "u1", OrgID: "org1", Role: appconfig.RoleSalesLeader}

func TestResolve_Mine(t *testing.T) {
	r := newTestResolver(&fakeLookup{})
	res := r.Resolve(context.Background(), viewer, appconfig.ScopeMine)

	assert.Equal(t, map[string]bool{"u1": true}, res.OwnerIDs)
	assert.False(t, res.Degraded)
}

func TestResolve_AllIsNoFilter(t *testing.T) {
	lookup := &fakeLookup{subs: map[string][]string{"u1": {"u2"}}}
	r := newTestResolver(lookup)
	res := r.Resolve(context.Background(), viewer, appconfig.ScopeAll)

	assert.Nil(t, res.OwnerIDs)
	assert.True(t, res.Contains("anyone"))
	assert.Zero(t, lookup.calls, "all must not touch the hierarchy")
}

func TestResolve_TeamIncludesViewerAndSubordinates(t *testing.T) {
	lookup := &fakeLookup{subs: map[string][]string{"u1": {"u2", "u3"}}}
	r := newTestResolver(lookup)

	res := r.Resolve(context.Background(), viewer, appconfig.ScopeTeam)
	require.NotNil(t, res.OwnerIDs)
	assert.True(t, res.Contains("u1"))
	assert.True(t, res.Contains("u2"))
	assert.True(t, res.Contains("u3"))
	assert.False(t, res.Contains("u9"))
}

func TestResolve_TeamUsesCache(t *testing.T) {
	lookup := &fakeLookup{subs: map[string][]string{"u1": {"u2"}}}
	r := newTestResolver(lookup)

	ctx := context.Background()
	r.Resolve(ctx, viewer, appconfig.ScopeTeam)
	r.Resolve(ctx, viewer, appconfig.ScopeTeam)

	assert.Equal(t, 1, lookup.calls, "second resolution must hit the cache")
}

func TestResolve_TeamDegradesToMineOnLookupFailure(t *testing.T) {
	lookup := &fakeLookup{err: eris.New("crm: permission denied")}
	r := newTestResolver(lookup)

	res := r.Resolve(context.Background(), viewer, appconfig.ScopeTeam)
	assert.Equal(t, map[string]bool{"u1": true}, res.OwnerIDs)
	assert.True(t, res.Degraded)
}

func TestTTLCache_ExpiryAndSweep(t *testing.T) {
	c := NewTTLCache(20*time.Millisecond, 10*time.Millisecond)
	defer c.Stop()

	c.Set("k", []string{"a"})
	ids, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, []string{"a"}, ids)

	time.Sleep(40 * time.Millisecond)
	_, ok = c.Get("k")
	assert.False(t, ok, "entry must expire after TTL")
}

func TestTTLCache_Invalidate(t *testing.T) {
	c := NewTTLCache(time.Minute, 0)
	c.Set("k", []string{"a"})
	c.Invalidate("k")

	_, ok := c.Get("k")
	assert.False(t, ok)
}
