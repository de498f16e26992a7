// Package scope resolves a viewer's requested ownership scope (mine, team,
// all) into the set of owner identifiers to filter records by. Team scope
// walks the organizational hierarchy through a TTL cache; a failed lookup
// degrades to mine rather than failing the aggregation.
package scope

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/dashboard-engine/internal/appconfig"
)

// Cache lifetime for hierarchy walks.
const (
	hierarchyTTL  = 30 * time.Minute
	sweepInterval = 5 * time.Minute
)

// Viewer identifies the user a dashboard is built for.
type Viewer struct {
	UserID string
	OrgID  string
	Role   string
}

// HierarchyLookup fetches the transitive subordinate user IDs for a manager.
// Implemented by the CRM adapter; this is the engine's only suspension point,
// cancellable via the caller's ctx.
type HierarchyLookup interface {
	Subordinates(ctx context.Context, userID, orgID string) ([]string, error)
}

// Resolution is the outcome of a scope resolution.
type Resolution struct {
	// OwnerIDs is the set of owner IDs to filter by; nil means no filter
	// (fall through to the CRM's native visibility rules).
	OwnerIDs map[string]bool
	// Degraded is true when a team hierarchy lookup failed and the scope was
	// narrowed to mine.
	Degraded bool
}

// Contains reports whether ownerID passes the filter. A nil filter passes
// everything.
func (r Resolution) Contains(ownerID string) bool {
	if r.OwnerIDs == nil {
		return true
	}
	return r.OwnerIDs[ownerID]
}

// Resolver resolves ownership scopes with cached hierarchy walks.
type Resolver struct {
	lookup HierarchyLookup
	cache  HierarchyCache
}

// ResolverOption configures the Resolver.
type ResolverOption func(*Resolver)

// WithCache overrides the default 30-minute TTL cache.
func WithCache(c HierarchyCache) ResolverOption {
	return func(r *Resolver) { r.cache = c }
}

// NewResolver creates a Resolver backed by lookup.
func NewResolver(lookup HierarchyLookup, opts ...ResolverOption) *Resolver {
	r := &Resolver{lookup: lookup}
	for _, opt := range opts {
		opt(r)
	}
	if r.cache == nil {
		r.cache = NewTTLCache(hierarchyTTL, sweepInterval)
	}
	return r
}

// Resolve maps a scope to an owner-ID filter. mine always yields exactly the
// viewer; all always yields no filter, regardless of hierarchy data.
func (r *Resolver) Resolve(ctx context.Context, viewer Viewer, scope string) Resolution {
	switch scope {
	case appconfig.ScopeAll:
		return Resolution{}
	case appconfig.ScopeTeam:
		return r.resolveTeam(ctx, viewer)
	default: // mine, and any unrecognized scope narrows to mine
		return Resolution{OwnerIDs: map[string]bool{viewer.UserID: true}}
	}
}

func (r *Resolver) resolveTeam(ctx context.Context, viewer Viewer) Resolution {
	key := viewer.UserID + "|" + viewer.OrgID

	subs, ok := r.cache.Get(key)
	if !ok {
		var err error
		subs, err = r.lookup.Subordinates(ctx, viewer.UserID, viewer.OrgID)
		if err != nil {
			// Documented lossy fallback: narrow to mine instead of failing
			// the whole aggregation or leaking unscoped data.
			zap.L().Warn("scope: hierarchy lookup failed, degrading team to mine",
				zap.String("user_id", viewer.UserID),
				zap.String("org_id", viewer.OrgID),
				zap.Error(err),
			)
			return Resolution{
				OwnerIDs: map[string]bool{viewer.UserID: true},
				Degraded: true,
			}
		}
		r.cache.Set(key, subs)
	}

	owners := make(map[string]bool, len(subs)+1)
	owners[viewer.UserID] = true
	for _, id := range subs {
		owners[id] = true
	}
	return Resolution{OwnerIDs: owners}
}
