// Package dashboard orchestrates the scoring, risk, dedup, and scope engines
// over a fetched record batch to produce the shaped payload for one role and
// view. The aggregator performs no I/O beyond the scope resolver's cached
// hierarchy lookup; records arrive already fetched.
package dashboard

import (
	"context"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/dashboard-engine/internal/appconfig"
	"github.com/sells-group/dashboard-engine/internal/dedup"
	"github.com/sells-group/dashboard-engine/internal/record"
	"github.com/sells-group/dashboard-engine/internal/risk"
	"github.com/sells-group/dashboard-engine/internal/scope"
	"github.com/sells-group/dashboard-engine/internal/scoring"
)

// Request shapes one dashboard build.
type Request struct {
	View   View
	Viewer scope.Viewer
	// Scope is mine, team, or all; empty selects the viewer role's
	// configured default.
	Scope   string
	Filters []appconfig.Condition
	Search  string
	Sort    *SortSpec
	Limit   int
	Offset  int
}

// Result is the shaped output for one view.
type Result struct {
	View    View            `json:"view"`
	Records []record.Record `json:"records"`
	// Total counts matching records before pagination.
	Total int `json:"total"`
	// ScopeDegraded is set when a team hierarchy lookup failed and the scope
	// narrowed to mine.
	ScopeDegraded bool   `json:"scope_degraded,omitempty"`
	ConfigVersion string `json:"config_version,omitempty"`
}

// Aggregator builds dashboard views.
type Aggregator struct {
	scopes *scope.Resolver
	risk   *risk.Evaluator
}

// NewAggregator creates an Aggregator using the given scope resolver.
func NewAggregator(scopes *scope.Resolver) *Aggregator {
	return &Aggregator{scopes: scopes, risk: &risk.Evaluator{}}
}

// Build runs the full pipeline over raw: scope filter, predicate filters,
// free-text search, per-record enrichment, dedup (account views), sort, and
// pagination. It never errors on malformed record data; only an unknown view
// is rejected.
func (a *Aggregator) Build(ctx context.Context, raw []record.Record, req Request, cfg *appconfig.AppConfig) (*Result, error) {
	spec, ok := viewSpecs[req.View]
	if !ok {
		return nil, eris.Errorf("dashboard: unknown view %q", req.View)
	}

	scopeName := req.Scope
	if scopeName == "" {
		scopeName = cfg.DefaultScopeFor(req.Viewer.Role)
	}
	res := a.scopes.Resolve(ctx, req.Viewer, scopeName)

	filters := append(append([]appconfig.Condition{}, spec.defaultFilters...), req.Filters...)
	search := strings.ToLower(strings.TrimSpace(req.Search))

	kept := make([]record.Record, 0, len(raw))
	for _, rec := range raw {
		owner, _ := rec.GetString("OwnerId")
		if !res.Contains(owner) {
			continue
		}
		if !a.matchesAll(rec, filters) {
			continue
		}
		if search != "" && !matchesSearch(rec, search) {
			continue
		}
		kept = append(kept, a.enrich(rec, spec, req.Viewer.Role, cfg))
	}

	if spec.postFilter != nil {
		filtered := kept[:0]
		for _, rec := range kept {
			if spec.postFilter(rec) {
				filtered = append(filtered, rec)
			}
		}
		kept = filtered
	}

	if spec.dedup {
		kept = dedup.GroupByDomain(kept)
	}

	sortSpec := spec.defaultSort
	if req.Sort != nil {
		sortSpec = *req.Sort
	}
	sortRecords(kept, sortSpec)

	total := len(kept)
	kept = paginate(kept, req.Limit, req.Offset)

	zap.L().Debug("dashboard: view built",
		zap.String("view", string(req.View)),
		zap.String("scope", scopeName),
		zap.Int("in", len(raw)),
		zap.Int("total", total),
		zap.Int("returned", len(kept)),
	)

	return &Result{
		View:          req.View,
		Records:       kept,
		Total:         total,
		ScopeDegraded: res.Degraded,
	}, nil
}

func (a *Aggregator) matchesAll(rec record.Record, filters []appconfig.Condition) bool {
	for _, cond := range filters {
		if !a.risk.ConditionMatches(rec, cond) {
			return false
		}
	}
	return true
}

// matchesSearch is a case-insensitive substring match over the record's name
// and industry.
func matchesSearch(rec record.Record, loweredNeedle string) bool {
	for _, field := range []string{"Name", "Industry"} {
		if v, ok := rec.GetString(field); ok {
			if strings.Contains(strings.ToLower(v), loweredNeedle) {
				return true
			}
		}
	}
	return false
}

// enrich attaches derived fields to a copy of rec.
func (a *Aggregator) enrich(rec record.Record, spec viewSpec, role string, cfg *appconfig.AppConfig) record.Record {
	out := rec.Clone()

	scored := scoring.Score(rec, &cfg.PriorityScoring, role)
	out[record.FieldPriorityScore] = scored.Score
	out[record.FieldPriorityTier] = scored.Tier

	eval := a.risk.Evaluate(rec, spec.objectType, cfg.RiskRules)
	if eval.Flag != "" {
		out[record.FieldRiskFlag] = eval.Flag
	}

	if spec.objectType == appconfig.ObjectOpportunity {
		out[record.FieldMeddpiccScore] = dealHealth(rec, cfg.DealHealth)
	}
	return out
}

// sortRecords orders records by the sort field, numerically when both values
// are numeric, by timestamp when both parse as dates, else lexicographically.
// Records missing the field sort last regardless of direction; equal values
// keep input order (stable).
func sortRecords(records []record.Record, spec SortSpec) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		aok := hasField(a, spec.Field)
		bok := hasField(b, spec.Field)
		if aok != bok {
			return aok
		}
		if !aok {
			return false
		}
		less, equal := lessField(a, b, spec.Field)
		if equal {
			return false
		}
		if spec.Descending {
			return !less
		}
		return less
	})
}

func hasField(rec record.Record, field string) bool {
	if _, ok := rec.GetNumber(field); ok {
		return true
	}
	if _, ok := rec.GetDate(field); ok {
		return true
	}
	_, ok := rec.GetString(field)
	return ok
}

// lessField compares two records that both carry the field.
func lessField(a, b record.Record, field string) (less, equal bool) {
	if an, aok := a.GetNumber(field); aok {
		if bn, bok := b.GetNumber(field); bok {
			return an < bn, an == bn
		}
	}
	if ad, aok := a.GetDate(field); aok {
		if bd, bok := b.GetDate(field); bok {
			return ad.Before(bd), ad.Equal(bd)
		}
	}
	as, _ := a.GetString(field)
	bs, _ := b.GetString(field)
	return as < bs, as == bs
}

func paginate(records []record.Record, limit, offset int) []record.Record {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(records) {
		return []record.Record{}
	}
	records = records[offset:]
	if limit > 0 && limit < len(records) {
		records = records[:limit]
	}
	return records
}
