package dashboard

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/dashboard-engine/internal/appconfig"
	"github.com/sells-group/dashboard-engine/internal/record"
	"github.com/sells-group/dashboard-engine/internal/scope"
)

type fakeLookup struct {
	subs map[string][]string
	err  error
}

func (f *fakeLookup) Subordinates(_ context.Context, userID, _ string) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.subs[userID], nil
}

func newAggregator(lookup scope.HierarchyLookup) *Aggregator {
	resolver := scope.NewResolver(lookup, scope.WithCache(scope.NewTTLCache(time.Minute, 0)))
	return NewAggregator(resolver)
}

func testAppConfig() *appconfig.AppConfig {
	return &appconfig.AppConfig{
		PriorityScoring: appconfig.PriorityConfig{
			Components: []appconfig.PriorityComponent{
				{ID: "intent", Weight: 60, Field: "IntentScore__c"},
				{ID: "size", Weight: 40, Field: "NumberOfEmployees", ScoreRanges: []appconfig.ScoreRange{
					{Min: 0, Max: 100, Score: 20},
					{Min: 100, Max: 99999, Score: 100},
				}},
			},
			Thresholds: appconfig.TierThresholds{
				Hot:  appconfig.Band{Min: 80, Max: 100},
				Warm: appconfig.Band{Min: 60, Max: 79},
				Cool: appconfig.Band{Min: 40, Max: 59},
				Cold: appconfig.Band{Min: 0, Max: 39},
			},
		},
		RiskRules: []appconfig.RiskRule{
			{
				ID: "stalled", Name: "Stalled deal", ObjectType: appconfig.ObjectOpportunity,
				Logic: "AND", Flag: appconfig.FlagAtRisk, Active: true,
				Conditions: []appconfig.Condition{
					{Field: "StageName", Operator: appconfig.OpEquals, Value: "Stalled"},
				},
			},
		},
		ScopeDefaults: map[string]string{
			appconfig.RoleAccountExecutive: appconfig.ScopeMine,
			appconfig.RoleExecutive:        appconfig.ScopeAll,
		},
		DealHealth: appconfig.DealHealthConfig{
			MinDescriptionLength: 50,
			LateStages:           []string{"Proposal", "Negotiation"},
		},
	}
}

func account(id, owner, name string, intent float64, employees int) record.Record {
	return record.Record{
		"Id": id, "OwnerId": owner, "Name": name,
		"IntentScore__c": intent, "NumberOfEmployees": employees,
		"Industry": "Hospitality",
	}
}

var aeViewer = scope.Viewer{UserID: "u1", OrgID: "org1", Role: appconfig.RoleAccountExecutive}

func TestBuild_PriorityAccounts(t *testing.T) {
	agg := newAggregator(&fakeLookup{})
	raw := []record.Record{
		account("001", "u1", "Acme Inc", 90, 500),
		account("002", "u1", "Globex", 20, 50),
		account("003", "u2", "Initech", 99, 5000), // other owner, filtered by mine
	}

	res, err := agg.Build(context.Background(), raw, Request{
		View:   ViewPriorityAccounts,
		Viewer: aeViewer,
	}, testAppConfig())
	require.NoError(t, err)

	require.Equal(t, 2, res.Total)
	// Default sort: priority score descending.
	assert.Equal(t, "001", res.Records[0].ID())
	assert.Equal(t, "002", res.Records[1].ID())

	score, ok := res.Records[0].GetNumber(record.FieldPriorityScore)
	require.True(t, ok)
	// 0.60*90 + 0.40*100 = 94
	assert.Equal(t, 94.0, score)
	tier, _ := res.Records[0].GetString(record.FieldPriorityTier)
	assert.Equal(t, appconfig.TierHot, tier)
}

func TestBuild_PriorityAccountsDedups(t *testing.T) {
	agg := newAggregator(&fakeLookup{})
	raw := []record.Record{
		account("001", "u1", "Park Hyatt", 50, 500),
		account("002", "u1", "Grand Hyatt", 95, 500),
	}

	res, err := agg.Build(context.Background(), raw, Request{
		View:   ViewPriorityAccounts,
		Viewer: aeViewer,
	}, testAppConfig())
	require.NoError(t, err)

	require.Equal(t, 1, res.Total)
	g := res.Records[0]
	assert.Equal(t, "002", g.ID(), "representative is the higher-scoring member")
	assert.Equal(t, true, g[record.FieldIsGroup])
	assert.Equal(t, 2, g[record.FieldGroupCount])
}

func TestBuild_AtRiskDealsKeepsOnlyFlagged(t *testing.T) {
	agg := newAggregator(&fakeLookup{})
	raw := []record.Record{
		{"Id": "o1", "OwnerId": "u1", "Name": "Deal A", "StageName": "Stalled", "CloseDate": "2026-05-01"},
		{"Id": "o2", "OwnerId": "u1", "Name": "Deal B", "StageName": "Proposal", "CloseDate": "2026-04-01"},
		{"Id": "o3", "OwnerId": "u1", "Name": "Deal C", "StageName": "Stalled", "CloseDate": "2026-03-01"},
	}

	res, err := agg.Build(context.Background(), raw, Request{
		View:   ViewAtRiskDeals,
		Viewer: aeViewer,
	}, testAppConfig())
	require.NoError(t, err)

	require.Equal(t, 2, res.Total)
	// Close date ascending.
	assert.Equal(t, "o3", res.Records[0].ID())
	assert.Equal(t, "o1", res.Records[1].ID())
	flag, _ := res.Records[0].GetString(record.FieldRiskFlag)
	assert.Equal(t, appconfig.FlagAtRisk, flag)

	// Opportunity views carry the deal-health score.
	_, ok := res.Records[0].GetNumber(record.FieldMeddpiccScore)
	assert.True(t, ok)
}

func TestBuild_TeamScopeIncludesSubordinates(t *testing.T) {
	agg := newAggregator(&fakeLookup{subs: map[string][]string{"u1": {"u2"}}})
	raw := []record.Record{
		account("001", "u1", "Acme", 50, 500),
		account("002", "u2", "Globex", 50, 500),
		account("003", "u9", "Initech", 50, 500),
	}

	res, err := agg.Build(context.Background(), raw, Request{
		View:   ViewPriorityAccounts,
		Viewer: aeViewer,
		Scope:  appconfig.ScopeTeam,
	}, testAppConfig())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Total)
}

func TestBuild_ScopeDegradationSurfacesOnResult(t *testing.T) {
	agg := newAggregator(&fakeLookup{err: eris.New("crm: timeout")})
	raw := []record.Record{
		account("001", "u1", "Acme", 50, 500),
		account("002", "u2", "Globex", 50, 500),
	}

	res, err := agg.Build(context.Background(), raw, Request{
		View:   ViewPriorityAccounts,
		Viewer: aeViewer,
		Scope:  appconfig.ScopeTeam,
	}, testAppConfig())
	require.NoError(t, err)

	assert.True(t, res.ScopeDegraded)
	assert.Equal(t, 1, res.Total, "degraded team scope narrows to mine")
}

func TestBuild_DefaultScopeFromRole(t *testing.T) {
	agg := newAggregator(&fakeLookup{})
	raw := []record.Record{
		account("001", "u1", "Acme", 50, 500),
		account("002", "u9", "Globex", 50, 500),
	}

	exec := scope.Viewer{UserID: "u1", OrgID: "org1", Role: appconfig.RoleExecutive}
	res, err := agg.Build(context.Background(), raw, Request{
		View:   ViewPriorityAccounts,
		Viewer: exec,
	}, testAppConfig())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Total, "executive default scope is all")
}

func TestBuild_FiltersAndSearch(t *testing.T) {
	agg := newAggregator(&fakeLookup{})
	raw := []record.Record{
		account("001", "u1", "Acme Hotels", 50, 500),
		account("002", "u1", "Acme Clinics", 50, 50),
		account("003", "u1", "Globex Hotels", 50, 500),
	}

	res, err := agg.Build(context.Background(), raw, Request{
		View:   ViewPriorityAccounts,
		Viewer: aeViewer,
		Search: "acme",
		Filters: []appconfig.Condition{
			{Field: "NumberOfEmployees", Operator: appconfig.OpGreaterOrEq, Value: 100},
		},
	}, testAppConfig())
	require.NoError(t, err)

	require.Equal(t, 1, res.Total)
	assert.Equal(t, "001", res.Records[0].ID())
}

func TestBuild_Pagination(t *testing.T) {
	agg := newAggregator(&fakeLookup{})
	var raw []record.Record
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		raw = append(raw, account(id, "u1", "Co "+id, 50, 500))
	}

	res, err := agg.Build(context.Background(), raw, Request{
		View:   ViewPriorityAccounts,
		Viewer: aeViewer,
		Sort:   &SortSpec{Field: "Id"},
		Limit:  2,
		Offset: 2,
	}, testAppConfig())
	require.NoError(t, err)

	assert.Equal(t, 5, res.Total, "total counts pre-pagination")
	require.Len(t, res.Records, 2)
	assert.Equal(t, "c", res.Records[0].ID())
	assert.Equal(t, "d", res.Records[1].ID())

	// Offset past the end returns an empty page, same total.
	res, err = agg.Build(context.Background(), raw, Request{
		View:   ViewPriorityAccounts,
		Viewer: aeViewer,
		Limit:  2,
		Offset: 99,
	}, testAppConfig())
	require.NoError(t, err)
	assert.Equal(t, 5, res.Total)
	assert.Empty(t, res.Records)
}

func TestBuild_UnknownView(t *testing.T) {
	agg := newAggregator(&fakeLookup{})
	_, err := agg.Build(context.Background(), nil, Request{
		View:   View("leaderboard"),
		Viewer: aeViewer,
	}, testAppConfig())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown view")
}

func TestBuild_DoesNotMutateInputRecords(t *testing.T) {
	agg := newAggregator(&fakeLookup{})
	raw := []record.Record{account("001", "u1", "Acme", 90, 500)}

	_, err := agg.Build(context.Background(), raw, Request{
		View:   ViewPriorityAccounts,
		Viewer: aeViewer,
	}, testAppConfig())
	require.NoError(t, err)

	_, ok := raw[0][record.FieldPriorityScore]
	assert.False(t, ok, "enrichment must not touch the caller's batch")
}

func TestBuild_RenewalsDefaultFilter(t *testing.T) {
	agg := newAggregator(&fakeLookup{})
	raw := []record.Record{
		{"Id": "o1", "OwnerId": "u1", "Name": "A", "Type": "Renewal", "CloseDate": "2026-04-01"},
		{"Id": "o2", "OwnerId": "u1", "Name": "B", "Type": "New Business", "CloseDate": "2026-03-01"},
	}

	res, err := agg.Build(context.Background(), raw, Request{
		View:   ViewRenewals,
		Viewer: aeViewer,
	}, testAppConfig())
	require.NoError(t, err)
	require.Equal(t, 1, res.Total)
	assert.Equal(t, "o1", res.Records[0].ID())
}
