// Package match resolves free-text references ("fat baker") to named things.
package match

import (
	"strings"

	"golang.org/x/text/cases"
)

// Words returns the case-folded word set of s.
func Words(s string) map[string]struct{} {
	// A Caser is stateful, so each call gets its own.
	fields := strings.Fields(cases.Fold().String(s))
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

// Index returns the index of the name whose word set shares the most words
// with phrase. Ties keep the earliest name. It returns -1 when no name shares
// any word with phrase.
func Index(phrase string, names []string) int {
	want := Words(phrase)
	if len(want) == 0 {
		return -1
	}
	best, bestScore := -1, 0
	for i, name := range names {
		score := 0
		for w := range Words(name) {
			if _, ok := want[w]; ok {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	return best
}

// Best returns the candidate whose name best matches phrase, using the same
// rule as Index.
func Best[T any](phrase string, candidates []T, name func(T) string) (T, bool) {
	names := make([]string, len(candidates))
	for i, c := range candidates {
		names[i] = name(c)
	}
	var zero T
	idx := Index(phrase, names)
	if idx < 0 {
		return zero, false
	}
	return candidates[idx], true
}
