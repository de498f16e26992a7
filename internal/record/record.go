// Package record defines the loosely-typed CRM record container used by the
// dashboard engine. Records arrive as arbitrary field maps from the CRM and
// are never mutated in place; enrichment produces a copy with derived fields
// attached.
package record

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Record is a single CRM account or opportunity as a field map.
// Values are strings, numbers, booleans, timestamps, or nil.
type Record map[string]any

// Derived field keys attached by the engine. Originals from the CRM are
// never overwritten except by enrichment output.
const (
	FieldPriorityScore = "priorityScore"
	FieldPriorityTier  = "priorityTier"
	FieldRiskFlag      = "riskFlag"
	FieldIsGroup       = "isGroup"
	FieldGroupCount    = "groupCount"
	FieldMemberIDs     = "memberIds"
	FieldMeddpiccScore = "meddpiccScore"
)

// dateLayouts are the timestamp formats the CRM emits, most specific first.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05.000-0700",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ID returns the record's opaque identifier, or "" if absent.
func (r Record) ID() string {
	s, _ := r.GetString("Id")
	if s == "" {
		s, _ = r.GetString("id")
	}
	return s
}

// GetString returns the field as a string. The second return is false when
// the field is absent or nil; non-string scalars are formatted.
func (r Record) GetString(field string) (string, bool) {
	v, ok := r[field]
	if !ok || v == nil {
		return "", false
	}
	switch t := v.(type) {
	case string:
		return t, true
	case bool:
		return strconv.FormatBool(t), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case time.Time:
		return t.Format(time.RFC3339), true
	}
	return "", false
}

// GetNumber returns the field as a float64. Numeric strings parse; anything
// else reports absent.
func (r Record) GetNumber(field string) (float64, bool) {
	v, ok := r[field]
	if !ok || v == nil {
		return 0, false
	}
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return 0, false
		}
		return t, true
	case float32:
		return float64(t), true
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

// GetBool returns the field as a boolean. String values "true"/"false"
// (case-insensitive) parse.
func (r Record) GetBool(field string) (bool, bool) {
	v, ok := r[field]
	if !ok || v == nil {
		return false, false
	}
	switch t := v.(type) {
	case bool:
		return t, true
	case string:
		b, err := strconv.ParseBool(strings.ToLower(strings.TrimSpace(t)))
		if err != nil {
			return false, false
		}
		return b, true
	}
	return false, false
}

// GetDate returns the field as a time.Time, accepting time.Time values and
// the CRM's string timestamp formats.
func (r Record) GetDate(field string) (time.Time, bool) {
	v, ok := r[field]
	if !ok || v == nil {
		return time.Time{}, false
	}
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		s := strings.TrimSpace(t)
		for _, layout := range dateLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				return parsed, true
			}
		}
	}
	return time.Time{}, false
}

// Clone returns a shallow copy of the record. Derived fields are attached to
// clones so the batch handed in by the caller stays untouched.
func (r Record) Clone() Record {
	out := make(Record, len(r)+4)
	for k, v := range r {
		out[k] = v
	}
	return out
}

// DaysBetween returns the absolute whole-day distance between two instants.
// Symmetric in its arguments; zero when they are equal.
func DaysBetween(a, b time.Time) int {
	d := a.Sub(b)
	if d < 0 {
		d = -d
	}
	return int(d.Hours() / 24)
}

// DaysSince returns the whole days elapsed from t to now.
func DaysSince(t time.Time, now time.Time) int {
	return DaysBetween(now, t)
}
