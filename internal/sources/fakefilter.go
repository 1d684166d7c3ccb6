package sources

import (
	"regexp"
	"unicode/utf8"

	"github.com/crateful/linernotes/pkg/types"
)

// placeholderNames are generic stand-in tokens that language models emit
// when they have no real answer. Matched against the trimmed, lowercased
// name.
var placeholderNames = map[string]struct{}{
	"unknown":            {},
	"unknown artist":     {},
	"unknown producer":   {},
	"unknown songwriter": {},
	"tbd":                {},
	"tba":                {},
	"various":            {},
	"various artists":    {},
	"n/a":                {},
	"none":               {},
	"null":               {},
	"nil":                {},
	"sample":             {},
	"placeholder":        {},
	"test":               {},
	"example":            {},
	"artist name":        {},
	"producer name":      {},
	"no one":             {},
	"nobody":             {},
}

// rolePlaceholderRE matches "role word plus a single letter or digit",
// the other common hallucination artifact ("Producer A", "Artist 1").
var rolePlaceholderRE = regexp.MustCompile(`^(artist|producer|songwriter|writer|musician|composer|collaborator|singer|guest)\s+[a-z0-9]$`)

// FakeEntryFilter rejects placeholder and hallucination-artifact names
// before they can become network nodes. Pure and deterministic: no I/O,
// no state.
type FakeEntryFilter struct{}

// NewFakeEntryFilter returns the standard filter.
func NewFakeEntryFilter() *FakeEntryFilter {
	return &FakeEntryFilter{}
}

// IsFake reports whether name is a placeholder rather than a person.
// A name rejected here must never appear as a node or a branch target.
func (f *FakeEntryFilter) IsFake(name string) bool {
	key := types.IdentityKey(name)
	if key == "" {
		return true
	}
	if _, ok := placeholderNames[key]; ok {
		return true
	}
	if rolePlaceholderRE.MatchString(key) {
		return true
	}
	// Bare one- and two-letter names are noise far more often than they
	// are stage names.
	if utf8.RuneCountInString(key) <= 2 {
		return true
	}
	return false
}

// Filter returns the candidates whose names survive IsFake, preserving
// order. The input slice is not modified.
func (f *FakeEntryFilter) Filter(candidates []types.CollaboratorCandidate) []types.CollaboratorCandidate {
	kept := make([]types.CollaboratorCandidate, 0, len(candidates))
	for _, c := range candidates {
		if f.IsFake(c.Name) {
			continue
		}
		kept = append(kept, c)
	}
	return kept
}
