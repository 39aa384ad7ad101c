package domain

import (
	"fmt"
	"strings"
	"unicode"
)

// Authority is the issuing authority named in every citation.
const Authority = "HTSUS"

// TariffRecord is one classified good from a snapshot's tabular files.
type TariffRecord struct {
	HTS10          string
	Chapter        int // 0 when the heading does not start with two digits
	Heading6       string
	StatSuffix     string
	Article        string
	UnitOfQuantity string
	RateGeneral    string
	RateSpecial    string
	RateColumn2    string
	Index          int // position in the store's row list
}

// Section returns the HTS section of the record's chapter.
func (r *TariffRecord) Section() (string, bool) {
	return ChapterToSection(r.Chapter)
}

// Citation renders the templated reference "HTSUS §<section>, Ch.<chapter>, <code>".
func (r *TariffRecord) Citation() string {
	return Citation(r.Chapter, r.HTS10)
}

// Citation builds the reference string for a chapter and code. Missing parts
// render as "n/a".
func Citation(chapter int, code string) string {
	section, ok := ChapterToSection(chapter)
	if !ok {
		section = "n/a"
	}
	chap := "n/a"
	if chapter > 0 {
		chap = fmt.Sprintf("%d", chapter)
	}
	return fmt.Sprintf("%s §%s, Ch.%s, %s", Authority, section, chap, code)
}

// NormalizeCode strips whitespace and dots, so "0101.21.00 10" and
// "0101210010" address the same record.
func NormalizeCode(code string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '.' {
			return -1
		}
		return r
	}, code)
}

// ChapterFromHeading parses the chapter from the first two characters of a
// heading. Returns 0 when they are not digits.
func ChapterFromHeading(heading string) int {
	heading = strings.TrimSpace(heading)
	if len(heading) < 2 {
		return 0
	}
	if heading[0] < '0' || heading[0] > '9' || heading[1] < '0' || heading[1] > '9' {
		return 0
	}
	return int(heading[0]-'0')*10 + int(heading[1]-'0')
}
