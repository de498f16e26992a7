package appconfig

import (
	"math"

	"github.com/rotisserie/eris"
)

// weightTolerance is the allowed deviation from 100 for component weight sums.
const weightTolerance = 0.01

var validOperators = map[string]bool{
	OpEquals: true, OpNotEquals: true,
	OpLessThan: true, OpGreaterThan: true,
	OpLessOrEqual: true, OpGreaterOrEq: true,
	OpIn: true, OpNotIn: true, OpContains: true,
}

var validFlags = map[string]bool{
	FlagWarning: true, FlagAtRisk: true, FlagCritical: true,
}

// Validate checks the configuration for structural errors. A failing config
// must be rejected on the update path, never applied; already-accepted
// configs therefore never produce scoring-time errors.
func (c *AppConfig) Validate() error {
	if err := c.PriorityScoring.validate(); err != nil {
		return err
	}
	for _, rule := range c.RiskRules {
		if err := rule.validate(); err != nil {
			return err
		}
	}
	for role, scope := range c.ScopeDefaults {
		if scope != ScopeMine && scope != ScopeTeam && scope != ScopeAll {
			return eris.Errorf("config: scope default for role %q must be mine, team, or all, got %q", role, scope)
		}
	}
	return nil
}

func (p *PriorityConfig) validate() error {
	if len(p.Components) == 0 {
		return eris.New("config: priority scoring requires at least one component")
	}

	componentIDs := make(map[string]bool, len(p.Components))
	var sum float64
	for _, comp := range p.Components {
		if comp.ID == "" {
			return eris.New("config: priority component missing id")
		}
		if componentIDs[comp.ID] {
			return eris.Errorf("config: duplicate priority component id %q", comp.ID)
		}
		componentIDs[comp.ID] = true

		if comp.Field == "" && len(comp.ScoreRanges) == 0 {
			return eris.Errorf("config: component %q needs a field or score ranges", comp.ID)
		}
		sum += comp.Weight
	}
	if math.Abs(sum-100) > weightTolerance {
		return eris.Errorf("config: component weights must sum to 100, got %.2f", sum)
	}

	if err := p.Thresholds.validate(); err != nil {
		return err
	}

	for role, rc := range p.RoleConfigs {
		if len(rc.ComponentWeights) > 0 {
			var roleSum float64
			for id, w := range rc.ComponentWeights {
				if !componentIDs[id] {
					return eris.Errorf("config: role %q overrides unknown component %q", role, id)
				}
				roleSum += w
			}
			// Components without an override keep their default weight.
			for _, comp := range p.Components {
				if _, ok := rc.ComponentWeights[comp.ID]; !ok {
					roleSum += comp.Weight
				}
			}
			if math.Abs(roleSum-100) > weightTolerance {
				return eris.Errorf("config: role %q weights must sum to 100, got %.2f", role, roleSum)
			}
		}
		if rc.Thresholds != nil {
			if err := rc.Thresholds.validate(); err != nil {
				return eris.Wrapf(err, "config: role %q thresholds", role)
			}
		}
	}
	return nil
}

// validate checks that the four bands are contiguous and cover 0-100.
func (t *TierThresholds) validate() error {
	bands := t.Bands()
	if bands[0].Band.Min != 0 {
		return eris.Errorf("config: tier bands must start at 0, %q starts at %.1f", bands[0].Name, bands[0].Band.Min)
	}
	if bands[len(bands)-1].Band.Max != 100 {
		return eris.Errorf("config: tier bands must end at 100, %q ends at %.1f", bands[len(bands)-1].Name, bands[len(bands)-1].Band.Max)
	}
	for i := 1; i < len(bands); i++ {
		prev, cur := bands[i-1], bands[i]
		if cur.Band.Min > prev.Band.Max+1 {
			return eris.Errorf("config: gap between tier %q (max %.1f) and %q (min %.1f)", prev.Name, prev.Band.Max, cur.Name, cur.Band.Min)
		}
		if cur.Band.Min <= prev.Band.Min {
			return eris.Errorf("config: tiers %q and %q overlap", prev.Name, cur.Name)
		}
	}
	for _, b := range bands {
		if b.Band.Max < b.Band.Min {
			return eris.Errorf("config: tier %q has max below min", b.Name)
		}
	}
	return nil
}

func (r *RiskRule) validate() error {
	if r.ID == "" {
		return eris.New("config: risk rule missing id")
	}
	if r.ObjectType != ObjectAccount && r.ObjectType != ObjectOpportunity {
		return eris.Errorf("config: rule %q object type must be Account or Opportunity, got %q", r.ID, r.ObjectType)
	}
	if r.Logic != "AND" && r.Logic != "OR" {
		return eris.Errorf("config: rule %q logic must be AND or OR, got %q", r.ID, r.Logic)
	}
	if !validFlags[r.Flag] {
		return eris.Errorf("config: rule %q has unknown flag %q", r.ID, r.Flag)
	}
	if len(r.Conditions) == 0 {
		return eris.Errorf("config: rule %q has no conditions", r.ID)
	}
	for _, cond := range r.Conditions {
		if cond.Field == "" {
			return eris.Errorf("config: rule %q has a condition without a field", r.ID)
		}
		if !validOperators[cond.Operator] {
			return eris.Errorf("config: rule %q uses unknown operator %q", r.ID, cond.Operator)
		}
	}
	return nil
}
