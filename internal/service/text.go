package service

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/cloo-solutions/aqacs/internal/domain"
)

// MinQueryLength is the shortest accepted search query, after trimming.
const MinQueryLength = 2

// ValidateQuery trims q and rejects it when shorter than MinQueryLength.
func ValidateQuery(q string) (string, error) {
	q = strings.TrimSpace(q)
	if utf8.RuneCountInString(q) < MinQueryLength {
		return "", domain.ErrQueryTooShort
	}
	return q, nil
}

// ClampLimit forces limit into [lo, hi]. Callers pick the default for an
// absent limit before clamping; a supplied zero or negative becomes lo.
func ClampLimit(limit, lo, hi int) int {
	if limit < lo {
		return lo
	}
	if limit > hi {
		return hi
	}
	return limit
}

// truncateWords cuts s to at most max runes without splitting a word. It
// reports whether anything was cut. A single word longer than max is cut
// hard, as there is no boundary to cut at.
func truncateWords(s string, max int) (string, bool) {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s, false
	}

	runes := []rune(s)
	cut := string(runes[:max])
	if unicode.IsSpace(runes[max]) {
		return trimSegmentTail(cut), true
	}
	if i := strings.LastIndexFunc(cut, unicode.IsSpace); i >= 0 {
		return trimSegmentTail(cut[:i]), true
	}
	// No boundary before the cap: emitting nothing beats half a word.
	return "", true
}

// trimSegmentTail drops whitespace and a dangling separator bar.
func trimSegmentTail(s string) string {
	return strings.TrimRightFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || r == '|'
	})
}
