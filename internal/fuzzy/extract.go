package fuzzy

import "sort"

// Match is one scored choice.
type Match struct {
	Index int
	Score float64
}

// Extract scores query against every choice with WRatio and returns at most
// limit matches by descending score. Equal scores keep the lower index first.
// Both query and choices are compared as given; callers run Process first.
func Extract(query string, choices []string, limit int) []Match {
	if limit <= 0 || len(choices) == 0 {
		return []Match{}
	}

	matches := make([]Match, len(choices))
	for i, choice := range choices {
		matches[i] = Match{Index: i, Score: WRatio(query, choice)}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}
