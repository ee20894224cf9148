package ui

import (
	"sort"
	"strings"
	"unicode/utf8"
)

// DefaultMaxSuggestions bounds the suggestions returned by Suggest
const DefaultMaxSuggestions = 3

// Suggest returns up to max candidates close to target, nearest first. Candidates
// are compared case-insensitively and accepted within a distance of a quarter of
// the target length, at least 2. A candidate equal to target up to case is the
// only suggestion.
func Suggest(target string, candidates []string, max int) []string {
	if max <= 0 {
		max = DefaultMaxSuggestions
	}
	limit := utf8.RuneCountInString(target) / 4
	if limit < 2 {
		limit = 2
	}

	type match struct {
		value    string
		distance int
	}
	var matches []match
	lower := strings.ToLower(target)
	for _, c := range candidates {
		d := Distance(lower, strings.ToLower(c))
		if d == 0 {
			return []string{c}
		}
		if d <= limit {
			matches = append(matches, match{c, d})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].distance != matches[j].distance {
			return matches[i].distance < matches[j].distance
		}
		return matches[i].value < matches[j].value
	})

	out := make([]string, 0, max)
	for i := 0; i < len(matches) && i < max; i++ {
		out = append(out, matches[i].value)
	}
	return out
}

// Distance is the Levenshtein edit distance between a and b in runes
func Distance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		cur[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(rb)]
}
