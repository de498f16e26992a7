package dashboard

import (
	"strings"

	"github.com/sells-group/dashboard-engine/internal/appconfig"
	"github.com/sells-group/dashboard-engine/internal/record"
)

// Deal-health base score and signal increments for opportunities lacking a
// native probability.
const (
	dealHealthBase        = 30
	dealHealthNextStep    = 20
	dealHealthDescription = 15
	dealHealthLateStage   = 15
)

// dealHealth estimates a 0-100 MEDDPICC-style qualification score. A numeric
// Probability field is passed through directly; otherwise the score starts at
// a base and accumulates fixed increments for qualitative signals, capped at
// 100.
func dealHealth(rec record.Record, cfg appconfig.DealHealthConfig) int {
	if p, ok := rec.GetNumber("Probability"); ok {
		score := int(p)
		if score < 0 {
			score = 0
		}
		if score > 100 {
			score = 100
		}
		return score
	}

	score := dealHealthBase

	if next, ok := rec.GetString("NextStep"); ok && strings.TrimSpace(next) != "" {
		score += dealHealthNextStep
	}

	if desc, ok := rec.GetString("Description"); ok && len(desc) > cfg.MinDescriptionLength {
		score += dealHealthDescription
	}

	if stage, ok := rec.GetString("StageName"); ok {
		for _, late := range cfg.LateStages {
			if strings.EqualFold(stage, late) {
				score += dealHealthLateStage
				break
			}
		}
	}

	if score > 100 {
		score = 100
	}
	return score
}
