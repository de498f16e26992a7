package dedup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/dashboard-engine/internal/record"
)

func TestExtractDomainKey(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Acme Inc", "acme"},
		{"Acme", "acme"},
		{"Acme, Inc.", "acme"},
		{"Park Hyatt", "hyatt"},
		{"Grand Hyatt", "hyatt"},
		{"Open AI", "openai"}, // short last token falls back to joined name
		{"Sterling Holdings Inc", "sterling"},
		{"The Boring Company", "boring"},
		{"Café Rouge Ltd", "rouge"},
		{"Company", "company"}, // single token passes through
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ExtractDomainKey(tt.name), "name %q", tt.name)
	}
}

func TestExtractDomainKey_SuffixEquivalence(t *testing.T) {
	assert.Equal(t, ExtractDomainKey("Acme"), ExtractDomainKey("Acme Inc"))
	assert.Equal(t, ExtractDomainKey("Park Hyatt"), ExtractDomainKey("Grand Hyatt"))
}

func TestGroupByDomain_SingletonsPassThrough(t *testing.T) {
	a := record.Record{"Id": "001", "Name": "Acme"}
	b := record.Record{"Id": "002", "Name": "Globex"}

	out := GroupByDomain([]record.Record{a, b})
	require.Len(t, out, 2)

	_, grouped := out[0][record.FieldIsGroup]
	assert.False(t, grouped, "singletons must not carry an isGroup field")
	assert.Equal(t, "001", out[0].ID())
	assert.Equal(t, "002", out[1].ID())
}

func TestGroupByDomain_RepresentativeIsHighestScore(t *testing.T) {
	a := record.Record{"Id": "001", "Name": "Park Hyatt", record.FieldPriorityScore: 50.0}
	b := record.Record{"Id": "002", "Name": "Grand Hyatt", record.FieldPriorityScore: 95.0}

	out := GroupByDomain([]record.Record{a, b})
	require.Len(t, out, 1)

	g := out[0]
	assert.Equal(t, "002", g.ID())
	score, _ := g.GetNumber(record.FieldPriorityScore)
	assert.Equal(t, 95.0, score)
	assert.Equal(t, true, g[record.FieldIsGroup])
	assert.Equal(t, 2, g[record.FieldGroupCount])
	assert.Equal(t, []string{"001", "002"}, g[record.FieldMemberIDs])
}

func TestGroupByDomain_TieBreakFirstEncounteredWins(t *testing.T) {
	a := record.Record{"Id": "001", "Name": "Park Hyatt", record.FieldPriorityScore: 80.0}
	b := record.Record{"Id": "002", "Name": "Grand Hyatt", record.FieldPriorityScore: 80.0}

	out := GroupByDomain([]record.Record{a, b})
	require.Len(t, out, 1)
	assert.Equal(t, "001", out[0].ID(), "exact ties go to the first record in input order")
}

func TestGroupByDomain_IntentScoreProxy(t *testing.T) {
	// Pre-scoring inputs fall back to the CRM intent field.
	a := record.Record{"Id": "001", "Name": "Acme Inc", "IntentScore__c": 30.0}
	b := record.Record{"Id": "002", "Name": "Acme LLC", "IntentScore__c": 70.0}

	out := GroupByDomain([]record.Record{a, b})
	require.Len(t, out, 1)
	assert.Equal(t, "002", out[0].ID())
}

func TestGroupByDomain_Idempotent(t *testing.T) {
	records := []record.Record{
		{"Id": "001", "Name": "Park Hyatt", record.FieldPriorityScore: 50.0},
		{"Id": "002", "Name": "Grand Hyatt", record.FieldPriorityScore: 95.0},
		{"Id": "003", "Name": "Globex", record.FieldPriorityScore: 10.0},
	}

	once := GroupByDomain(records)
	twice := GroupByDomain(once)

	require.Len(t, twice, len(once))
	for i := range once {
		assert.Equal(t, once[i].ID(), twice[i].ID())
	}
	// Still one group, not further duplication; the representative passes
	// through with its annotations intact.
	assert.Equal(t, true, twice[0][record.FieldIsGroup])
	assert.Equal(t, 2, twice[0][record.FieldGroupCount])
}

func TestGroupByDomain_DoesNotMutateInputs(t *testing.T) {
	a := record.Record{"Id": "001", "Name": "Park Hyatt", record.FieldPriorityScore: 50.0}
	b := record.Record{"Id": "002", "Name": "Grand Hyatt", record.FieldPriorityScore: 95.0}

	GroupByDomain([]record.Record{a, b})

	_, ok := b[record.FieldIsGroup]
	assert.False(t, ok, "grouping must annotate a copy, not the original")
}
