package tariff

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/cloo-solutions/aqacs/internal/domain"
)

const utf8BOM = "\ufeff"

// Record projection keys.
const (
	colHeading = "hs"
	colStat    = "stat"
	colArticle = "article"
	colUOQ     = "uoq"
	colGeneral = "gen"
	colSpecial = "spec"
	colColumn2 = "col2"
)

var headerAliases = map[string]string{
	"headingsubheading":  colHeading,
	"htsnumber":          colHeading,
	"statsuffix":         colStat,
	"articledescription": colArticle,
	"description":        colArticle,
	"unitofquantity":     colUOQ,
	"generalrateofduty":  colGeneral,
	"specialrateofduty":  colSpecial,
	"column2rateofduty":  colColumn2,
}

// NormalizeHeader lowercases h and removes whitespace and the separators
// / - _ and dot.
func NormalizeHeader(h string) string {
	h = strings.TrimPrefix(h, utf8BOM)
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r', '/', '-', '_', '.':
			return -1
		}
		if r >= 'A' && r <= 'Z' {
			return r + ('a' - 'A')
		}
		return r
	}, h)
}

// Table is one parsed CSV file with its header in original order.
type Table struct {
	Name   string
	Header []string
	Rows   [][]string
}

// ReadTable parses a CSV file. Short rows are padded and a leading BOM is
// dropped from the first header cell.
func ReadTable(name string, r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return &Table{Name: name}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header of %s: %w", name, err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}

	t := &Table{Name: name, Header: header}
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}
		if len(row) < len(header) {
			row = append(row, make([]string, len(header)-len(row))...)
		}
		t.Rows = append(t.Rows, row[:len(header)])
	}
	return t, nil
}

// projection maps alias keys to column positions for one table.
type projection map[string]int

func newProjection(header []string) projection {
	p := make(projection)
	for i, h := range header {
		key, ok := headerAliases[NormalizeHeader(h)]
		if !ok {
			continue
		}
		if _, seen := p[key]; !seen {
			p[key] = i
		}
	}
	return p
}

func (p projection) value(row []string, key string) string {
	i, ok := p[key]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// record projects a CSV row into a tariff record. Unrecognized columns are
// dropped.
func (p projection) record(row []string) domain.TariffRecord {
	heading := p.value(row, colHeading)
	stat := p.value(row, colStat)

	heading6 := heading
	if runes := []rune(heading); len(runes) > 7 {
		heading6 = string(runes[:7])
	}

	return domain.TariffRecord{
		HTS10:          domain.NormalizeCode(heading + stat),
		Chapter:        domain.ChapterFromHeading(heading),
		Heading6:       heading6,
		StatSuffix:     stat,
		Article:        p.value(row, colArticle),
		UnitOfQuantity: p.value(row, colUOQ),
		RateGeneral:    p.value(row, colGeneral),
		RateSpecial:    p.value(row, colSpecial),
		RateColumn2:    p.value(row, colColumn2),
	}
}
