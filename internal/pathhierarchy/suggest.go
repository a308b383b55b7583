package pathhierarchy

import (
	"slices"
	"strings"
)

const maxSuggestions = 3

// suggest returns up to three names from pool closest to target by edit
// distance. Names further away than half the target's length are dropped.
func suggest(target string, pool []string) []string {
	type scored struct {
		name string
		dist int
	}
	limit := max(2, len(target)/2)
	seen := map[string]bool{}
	var hits []scored
	for _, name := range pool {
		if seen[name] || name == target {
			continue
		}
		seen[name] = true
		d := levenshtein(strings.ToLower(target), strings.ToLower(name))
		if d <= limit {
			hits = append(hits, scored{name, d})
		}
	}
	slices.SortFunc(hits, func(a, b scored) int {
		if a.dist != b.dist {
			return a.dist - b.dist
		}
		return strings.Compare(a.name, b.name)
	})
	out := make([]string, 0, min(len(hits), maxSuggestions))
	for i := 0; i < len(hits) && i < maxSuggestions; i++ {
		out = append(out, hits[i].name)
	}
	return out
}

// levenshtein computes the edit distance between a and b using two rows.
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}
	if len(ra) < len(rb) {
		ra, rb = rb, ra
	}
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}
