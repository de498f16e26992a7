// Package risk evaluates configured boolean rules against records and
// produces risk flags. Evaluation is deterministic and never errors; missing
// fields simply fail the condition.
package risk

import (
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/dashboard-engine/internal/appconfig"
	"github.com/sells-group/dashboard-engine/internal/record"
)

// severity ranks flags for precedence. Higher wins.
var severity = map[string]int{
	appconfig.FlagWarning:  1,
	appconfig.FlagAtRisk:   2,
	appconfig.FlagCritical: 3,
}

// Evaluation is the outcome of running the rule set against one record.
type Evaluation struct {
	// Flag is the highest-severity flag among matched rules, or "" when no
	// rule matched.
	Flag string
	// MatchedRuleIDs lists every matched rule, retained for diagnostics even
	// though only the top flag is surfaced.
	MatchedRuleIDs []string
}

// Evaluator evaluates risk rules. The zero value is usable; Now is stubbed
// in tests for the timestamp-age convention.
type Evaluator struct {
	// Now returns the current time; defaults to time.Now.
	Now func() time.Time
}

func (e *Evaluator) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// Evaluate runs every active rule for objectType against rec and returns the
// highest-severity match.
func (e *Evaluator) Evaluate(rec record.Record, objectType string, rules []appconfig.RiskRule) Evaluation {
	var out Evaluation
	for _, rule := range rules {
		if !rule.Active || rule.ObjectType != objectType {
			continue
		}
		if e.RuleMatches(rec, rule) {
			out.MatchedRuleIDs = append(out.MatchedRuleIDs, rule.ID)
			if severity[rule.Flag] > severity[out.Flag] {
				out.Flag = rule.Flag
			}
		}
	}
	return out
}

// RuleMatches reports whether rec satisfies the rule's conditions under its
// AND/OR logic.
func (e *Evaluator) RuleMatches(rec record.Record, rule appconfig.RiskRule) bool {
	if len(rule.Conditions) == 0 {
		return false
	}
	for _, cond := range rule.Conditions {
		matched := e.ConditionMatches(rec, cond)
		if rule.Logic == "OR" {
			if matched {
				return true
			}
		} else if !matched { // AND
			return false
		}
	}
	return rule.Logic != "OR"
}

// timestampFields are the last-modified style fields where a numeric </>
// comparison means age in days rather than a literal compare.
var timestampFields = map[string]bool{
	"LastModifiedDate":  true,
	"LastActivityDate":  true,
	"SystemModstamp":    true,
	"LastContactedDate": true,
	"lastModifiedDate":  true,
}

// ConditionMatches evaluates a single condition against rec. Dashboard
// filter criteria share these comparison semantics.
func (e *Evaluator) ConditionMatches(rec record.Record, cond appconfig.Condition) bool {
	// Temporal convention: {field: LastModifiedDate, operator: ">", value: 30}
	// means "more than 30 days stale". Applies only to timestamp fields with
	// numeric values and </> operators.
	if timestampFields[cond.Field] &&
		(cond.Operator == appconfig.OpLessThan || cond.Operator == appconfig.OpGreaterThan) {
		if ageDays, ok := asNumber(cond.Value); ok {
			ts, tsOK := rec.GetDate(cond.Field)
			if !tsOK {
				zap.L().Debug("risk: timestamp field absent", zap.String("field", cond.Field))
				return false
			}
			age := float64(record.DaysSince(ts, e.now()))
			if cond.Operator == appconfig.OpGreaterThan {
				return age > ageDays
			}
			return age < ageDays
		}
	}

	switch cond.Operator {
	case appconfig.OpEquals:
		return compareEqual(rec, cond)
	case appconfig.OpNotEquals:
		return !compareEqual(rec, cond)
	case appconfig.OpLessThan, appconfig.OpGreaterThan, appconfig.OpLessOrEqual, appconfig.OpGreaterOrEq:
		return compareOrdered(rec, cond)
	case appconfig.OpIn:
		return containsMember(rec, cond)
	case appconfig.OpNotIn:
		return !containsMember(rec, cond)
	case appconfig.OpContains:
		s, ok := rec.GetString(cond.Field)
		if !ok {
			return false
		}
		needle, _ := valueString(cond.Value)
		return needle != "" && strings.Contains(s, needle)
	}
	return false
}

// compareEqual compares numerically when both sides parse as numbers, else
// by string equality.
func compareEqual(rec record.Record, cond appconfig.Condition) bool {
	if lhs, ok := rec.GetNumber(cond.Field); ok {
		if rhs, ok := asNumber(cond.Value); ok {
			return lhs == rhs
		}
	}
	s, ok := rec.GetString(cond.Field)
	if !ok {
		return false
	}
	want, _ := valueString(cond.Value)
	return s == want
}

func compareOrdered(rec record.Record, cond appconfig.Condition) bool {
	lhs, lok := rec.GetNumber(cond.Field)
	rhs, rok := asNumber(cond.Value)
	if lok && rok {
		switch cond.Operator {
		case appconfig.OpLessThan:
			return lhs < rhs
		case appconfig.OpGreaterThan:
			return lhs > rhs
		case appconfig.OpLessOrEqual:
			return lhs <= rhs
		case appconfig.OpGreaterOrEq:
			return lhs >= rhs
		}
	}

	// Lexicographic fallback when either side is non-numeric.
	ls, ok := rec.GetString(cond.Field)
	if !ok {
		return false
	}
	rs, _ := valueString(cond.Value)
	switch cond.Operator {
	case appconfig.OpLessThan:
		return ls < rs
	case appconfig.OpGreaterThan:
		return ls > rs
	case appconfig.OpLessOrEqual:
		return ls <= rs
	case appconfig.OpGreaterOrEq:
		return ls >= rs
	}
	return false
}

// containsMember checks the record value against an array-valued condition.
func containsMember(rec record.Record, cond appconfig.Condition) bool {
	s, ok := rec.GetString(cond.Field)
	if !ok {
		return false
	}
	for _, member := range valueList(cond.Value) {
		if s == member {
			return true
		}
	}
	return false
}

// asNumber coerces a condition value to float64.
func asNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// valueString formats a condition value for string comparison.
func valueString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	case bool:
		return strconv.FormatBool(t), true
	}
	return "", false
}

// valueList coerces an IN / NOT IN condition value to a string slice. JSON
// decoding yields []any; YAML and hand-built configs may carry []string.
func valueList(v any) []string {
	switch t := v.(type) {
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, m := range t {
			if s, ok := valueString(m); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		// Tolerate a comma-separated list from legacy configs.
		parts := strings.Split(t, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return nil
}
