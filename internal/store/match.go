package store

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/charstore/charstore/internal/model"
)

// Matcher tests index records against a lower-cased keyword.
type Matcher struct {
	keyword string
}

// NewMatcher prepares keyword for case-insensitive containment tests.
func NewMatcher(keyword string) Matcher {
	return Matcher{keyword: lower(keyword)}
}

// Match reports whether "name alias tags" contains the keyword.
func (m Matcher) Match(rec model.IndexRecord) bool {
	if m.keyword == "" {
		return true
	}
	soup := rec.Name + " " + rec.Alias + " " + rec.Tags
	return strings.Contains(lower(soup), m.keyword)
}

// Filter returns the matching records, keeping their order.
func Filter(recs []model.IndexRecord, keyword string) []model.IndexRecord {
	m := NewMatcher(keyword)
	out := make([]model.IndexRecord, 0, len(recs))
	for _, r := range recs {
		if m.Match(r) {
			out = append(out, r)
		}
	}
	return out
}

// cases.Caser is stateful, so each call gets its own.
func lower(s string) string {
	return cases.Lower(language.Und).String(s)
}
