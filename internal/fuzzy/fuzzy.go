// Package fuzzy scores string similarity on a 0-100 scale the way rapidfuzz
// does. Distances are byte-level indel distances (insert 1, delete 1,
// substitute 2) computed by smetrics.
package fuzzy

import (
	"sort"
	"strings"
	"unicode"

	"github.com/xrash/smetrics"
)

const (
	unbaseScale       = 0.95
	partialScale      = 0.9
	longPartialScale  = 0.6
	partialLenRatio   = 1.5
	longPartialLenMax = 8.0
)

// Process lowercases s, turns every non-alphanumeric rune into a space and
// trims the result.
func Process(s string) string {
	mapped := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, s)
	return strings.TrimSpace(mapped)
}

func indel(a, b string) int {
	return smetrics.WagnerFischer(a, b, 1, 1, 2)
}

func normalized(dist, lensum int) float64 {
	if lensum == 0 {
		return 100
	}
	return 100 * (1 - float64(dist)/float64(lensum))
}

// Ratio is the normalized indel similarity of a and b.
func Ratio(a, b string) float64 {
	return normalized(indel(a, b), len(a)+len(b))
}

// PartialRatio is the best Ratio of the shorter string against any equally
// long window of the longer one, including windows clipped at either end.
func PartialRatio(a, b string) float64 {
	if len(a) > len(b) {
		a, b = b, a
	}
	n, m := len(a), len(b)
	if n == 0 {
		if m == 0 {
			return 100
		}
		return 0
	}

	var inNeedle [256]bool
	for i := 0; i < n; i++ {
		inNeedle[a[i]] = true
	}

	best := 0.0
	consider := func(window string) bool {
		if r := Ratio(a, window); r > best {
			best = r
		}
		return best == 100
	}

	for i := 1; i < n; i++ {
		if inNeedle[b[i-1]] && consider(b[:i]) {
			return best
		}
	}
	for i := 0; i <= m-n; i++ {
		if (inNeedle[b[i]] || inNeedle[b[i+n-1]]) && consider(b[i:i+n]) {
			return best
		}
	}
	for i := m - n + 1; i < m; i++ {
		if inNeedle[b[i]] && consider(b[i:]) {
			return best
		}
	}
	return best
}

func sortedTokens(s string) []string {
	tokens := strings.Fields(s)
	sort.Strings(tokens)
	return tokens
}

func tokenSet(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}

// splitSets returns the sorted intersection and the two sorted differences.
func splitSets(a, b []string) (sect, diffAB, diffBA []string) {
	setA, setB := tokenSet(a), tokenSet(b)
	for t := range setA {
		if _, ok := setB[t]; ok {
			sect = append(sect, t)
		} else {
			diffAB = append(diffAB, t)
		}
	}
	for t := range setB {
		if _, ok := setA[t]; !ok {
			diffBA = append(diffBA, t)
		}
	}
	sort.Strings(sect)
	sort.Strings(diffAB)
	sort.Strings(diffBA)
	return sect, diffAB, diffBA
}

// TokenSortRatio compares the strings after sorting their tokens.
func TokenSortRatio(a, b string) float64 {
	return Ratio(strings.Join(sortedTokens(a), " "), strings.Join(sortedTokens(b), " "))
}

// TokenSetRatio compares the shared tokens against each side's remainder.
func TokenSetRatio(a, b string) float64 {
	tokensA, tokensB := strings.Fields(a), strings.Fields(b)
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0
	}

	sect, diffAB, diffBA := splitSets(tokensA, tokensB)
	if len(sect) > 0 && (len(diffAB) == 0 || len(diffBA) == 0) {
		return 100
	}

	abJoined := strings.Join(diffAB, " ")
	baJoined := strings.Join(diffBA, " ")
	abLen, baLen := len(abJoined), len(baJoined)
	sectLen := len(strings.Join(sect, " "))

	sep := 0
	if sectLen > 0 {
		sep = 1
	}
	sectABLen := sectLen + sep + abLen
	sectBALen := sectLen + sep + baLen

	result := normalized(indel(abJoined, baJoined), sectABLen+sectBALen)
	if sectLen == 0 {
		return result
	}

	sectAB := normalized(sep+abLen, sectLen+sectABLen)
	sectBA := normalized(sep+baLen, sectLen+sectBALen)
	return max(result, sectAB, sectBA)
}

// TokenRatio is the better of TokenSetRatio and TokenSortRatio.
func TokenRatio(a, b string) float64 {
	return max(TokenSetRatio(a, b), TokenSortRatio(a, b))
}

// PartialTokenRatio is PartialRatio over token-sorted strings; sharing any
// token scores 100.
func PartialTokenRatio(a, b string) float64 {
	tokensA, tokensB := sortedTokens(a), sortedTokens(b)
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0
	}

	sect, diffAB, diffBA := splitSets(tokensA, tokensB)
	if len(sect) > 0 {
		return 100
	}

	result := PartialRatio(strings.Join(tokensA, " "), strings.Join(tokensB, " "))
	if len(diffAB) == len(tokenSet(tokensA)) && len(diffBA) == len(tokenSet(tokensB)) {
		if deduped := PartialRatio(strings.Join(diffAB, " "), strings.Join(diffBA, " ")); deduped > result {
			result = deduped
		}
	}
	return result
}

// WRatio weighs the ratio family by how different the string lengths are.
// Empty input scores 0.
func WRatio(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}

	shorter, longer := len(a), len(b)
	if shorter > longer {
		shorter, longer = longer, shorter
	}
	lenRatio := float64(longer) / float64(shorter)

	end := Ratio(a, b)
	if lenRatio < partialLenRatio {
		return max(end, TokenRatio(a, b)*unbaseScale)
	}

	scale := partialScale
	if lenRatio >= longPartialLenMax {
		scale = longPartialScale
	}
	end = max(end, PartialRatio(a, b)*scale)
	return max(end, PartialTokenRatio(a, b)*unbaseScale*scale)
}
