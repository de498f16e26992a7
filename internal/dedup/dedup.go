// Package dedup collapses CRM accounts that likely represent the same
// organization. Company names are canonicalized to a domain key; records
// sharing a key merge into a single group led by the highest-scoring member.
package dedup

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/dashboard-engine/internal/record"
)

// entitySuffixes are corporate-entity tokens dropped when they are the final
// token of a name.
var entitySuffixes = map[string]bool{
	"inc": true, "llc": true, "corp": true, "corporation": true,
	"ltd": true, "co": true, "company": true, "group": true, "holdings": true,
}

// foldDiacritics strips combining marks so "Café" and "Cafe" share a key.
var foldDiacritics = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// ExtractDomainKey canonicalizes a company name for duplicate detection:
// lowercase, punctuation stripped, trailing entity suffixes dropped, then the
// last token unless it is shorter than 3 characters, in which case the whole
// cleaned name with spaces removed. "Park Hyatt" and "Grand Hyatt" both key
// to "hyatt"; "Open AI" keys to "openai".
func ExtractDomainKey(name string) string {
	cleaned, _, err := transform.String(foldDiacritics, strings.ToLower(name))
	if err != nil {
		cleaned = strings.ToLower(name)
	}

	var b strings.Builder
	b.Grow(len(cleaned))
	for _, r := range cleaned {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}

	tokens := strings.Fields(b.String())
	// Drop trailing entity suffixes, but never down to an empty name.
	for len(tokens) > 1 && entitySuffixes[tokens[len(tokens)-1]] {
		tokens = tokens[:len(tokens)-1]
	}

	if len(tokens) == 0 {
		return ""
	}
	if len(tokens) == 1 {
		return tokens[0]
	}

	last := tokens[len(tokens)-1]
	if len(last) < 3 {
		// Short last tokens ("ai", "co") are too ambiguous on their own.
		return strings.Join(tokens, "")
	}
	return last
}

// GroupByDomain merges records whose names canonicalize to the same domain
// key. Singleton keys pass through unchanged; keys with two or more records
// collapse into the highest-scoring member annotated with isGroup,
// groupCount, and memberIds. On score ties, the first-encountered member in
// input order wins. Key order follows first encounter, so grouping is
// deterministic and idempotent.
func GroupByDomain(records []record.Record) []record.Record {
	byKey := make(map[string][]record.Record, len(records))
	var keyOrder []string

	for _, rec := range records {
		name, _ := rec.GetString("Name")
		key := ExtractDomainKey(name)
		if key == "" {
			// Unnamed records never merge; use the record id as a unique key.
			key = "\x00" + rec.ID()
		}
		if _, seen := byKey[key]; !seen {
			keyOrder = append(keyOrder, key)
		}
		byKey[key] = append(byKey[key], rec)
	}

	out := make([]record.Record, 0, len(keyOrder))
	for _, key := range keyOrder {
		members := byKey[key]
		if len(members) == 1 {
			out = append(out, members[0])
			continue
		}

		rep := members[0]
		best := proxyScore(rep)
		for _, m := range members[1:] {
			if s := proxyScore(m); s > best {
				rep, best = m, s
			}
		}

		memberIDs := make([]string, 0, len(members))
		for _, m := range members {
			memberIDs = append(memberIDs, m.ID())
		}

		grouped := rep.Clone()
		grouped[record.FieldIsGroup] = true
		grouped[record.FieldGroupCount] = len(members)
		grouped[record.FieldMemberIDs] = memberIDs
		out = append(out, grouped)
	}
	return out
}

// proxyScore reads whichever numeric priority proxy is populated.
func proxyScore(rec record.Record) float64 {
	for _, field := range []string{record.FieldPriorityScore, "IntentScore__c", "intentScore"} {
		if v, ok := rec.GetNumber(field); ok {
			return v
		}
	}
	return 0
}
