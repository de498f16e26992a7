// Package scoring computes the 0-100 priority score and tier for a record
// from weighted, configurable components. Scoring is a pure function of
// (record, config, role); it never errors on malformed record data.
package scoring

import (
	"math"

	"go.uber.org/zap"

	"github.com/sells-group/dashboard-engine/internal/appconfig"
	"github.com/sells-group/dashboard-engine/internal/record"
)

// Result is the scored outcome for one record.
type Result struct {
	Score int    `json:"score"`
	Tier  string `json:"tier"`
	// Breakdown holds each component's weighted contribution, for
	// score-explanation UIs.
	Breakdown map[string]float64 `json:"breakdown,omitempty"`
}

// Score computes the priority score and tier for rec. Role selects weight
// and threshold overrides from cfg.RoleConfigs when present; pass "" for the
// defaults.
func Score(rec record.Record, cfg *appconfig.PriorityConfig, role string) Result {
	var roleCfg *appconfig.RoleConfig
	if rc, ok := cfg.RoleConfigs[role]; ok {
		roleCfg = &rc
	}

	breakdown := make(map[string]float64, len(cfg.Components))
	var total float64
	for _, comp := range cfg.Components {
		raw := rawScore(rec, comp)
		weight := comp.Weight
		if roleCfg != nil {
			if w, ok := roleCfg.ComponentWeights[comp.ID]; ok {
				weight = w
			}
		}
		contribution := weight / 100 * raw
		breakdown[comp.ID] = contribution
		total += contribution
	}

	score := int(math.Round(total))
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	thresholds := cfg.Thresholds
	if roleCfg != nil && roleCfg.Thresholds != nil {
		thresholds = *roleCfg.Thresholds
	}

	return Result{
		Score:     score,
		Tier:      tierFor(float64(score), thresholds),
		Breakdown: breakdown,
	}
}

// rawScore computes a component's raw 0-100 contribution before weighting.
// Missing or non-numeric field values contribute 0.
func rawScore(rec record.Record, comp appconfig.PriorityComponent) float64 {
	value, ok := rec.GetNumber(comp.Field)
	if !ok && comp.Field != "" {
		zap.L().Debug("scoring: field absent or non-numeric, scoring 0",
			zap.String("component", comp.ID),
			zap.String("field", comp.Field),
		)
	}

	if len(comp.ScoreRanges) == 0 {
		// Field-based component: the value is the raw score.
		if value < 0 {
			return 0
		}
		if value > 100 {
			return 100
		}
		return value
	}

	// Range-based component: first match in declaration order wins. Ranges
	// may overlap; that precedence is a documented contract. The upper bound
	// of the last range is inclusive so the highest bucket is unbounded in
	// practice.
	for i, r := range comp.ScoreRanges {
		last := i == len(comp.ScoreRanges)-1
		if value >= r.Min && (value < r.Max || (last && value <= r.Max)) {
			return r.Score
		}
	}
	return 0
}

// tierFor picks the band containing score. Bands are tried lowest Min first,
// so a misconfigured overlap resolves to the lowest-min matching band.
func tierFor(score float64, t appconfig.TierThresholds) string {
	bands := t.Bands()
	for _, b := range bands {
		if score >= b.Band.Min && score <= b.Band.Max {
			return b.Name
		}
	}
	// Valid configs are exhaustive; tolerate gaps by snapping to the nearest
	// edge rather than erroring mid-aggregation.
	if score > bands[len(bands)-1].Band.Max {
		return bands[len(bands)-1].Name
	}
	return bands[0].Name
}
