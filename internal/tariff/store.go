// Package tariff holds the in-memory tariff table of one snapshot.
package tariff

import (
	"context"
	"fmt"
	"log"

	"github.com/cloo-solutions/aqacs/internal/domain"
	"github.com/cloo-solutions/aqacs/internal/fuzzy"
)

// Store is built once and never modified afterwards, so it is safe for
// concurrent readers.
type Store struct {
	snapshotID domain.SnapshotID
	records    []*domain.TariffRecord
	byCode     map[string]*domain.TariffRecord
	articles   []string // fuzzy.Process'd article per record
}

// NewStore builds a store from records in search order. A later record with
// the same code replaces the earlier one in the code index; both stay
// searchable.
func NewStore(snapshotID domain.SnapshotID, records []domain.TariffRecord) *Store {
	s := &Store{
		snapshotID: snapshotID,
		records:    make([]*domain.TariffRecord, 0, len(records)),
		byCode:     make(map[string]*domain.TariffRecord),
		articles:   make([]string, 0, len(records)),
	}
	for i := range records {
		rec := records[i]
		rec.Index = i
		s.records = append(s.records, &rec)
		s.articles = append(s.articles, fuzzy.Process(rec.Article))
		if rec.HTS10 != "" {
			s.byCode[rec.HTS10] = &rec
		}
	}
	return s
}

// Load reads every CSV file of the snapshot, in file-name order, then row
// order.
func Load(ctx context.Context, src Source, snapshotID domain.SnapshotID) (*Store, error) {
	names, err := src.List(ctx, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshot %s: %w", snapshotID, err)
	}

	var records []domain.TariffRecord
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		table, err := readSourceTable(ctx, src, snapshotID, name)
		if err != nil {
			return nil, err
		}
		proj := newProjection(table.Header)
		for _, row := range table.Rows {
			records = append(records, proj.record(row))
		}
	}

	store := NewStore(snapshotID, records)
	log.Printf("Tariff store loaded: snapshot=%s files=%d records=%d codes=%d",
		snapshotID, len(names), store.Len(), len(store.byCode))
	return store, nil
}

func readSourceTable(ctx context.Context, src Source, snapshotID domain.SnapshotID, name string) (*Table, error) {
	rc, err := src.Open(ctx, snapshotID, name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return ReadTable(name, rc)
}

// SnapshotID returns the snapshot the store was built from.
func (s *Store) SnapshotID() domain.SnapshotID {
	return s.snapshotID
}

// Len returns the number of records, including those without a code.
func (s *Store) Len() int {
	return len(s.records)
}

// GetByCode looks up a record by exact code after stripping whitespace and
// dots from the input.
func (s *Store) GetByCode(code string) (*domain.TariffRecord, bool) {
	normalized := domain.NormalizeCode(code)
	if normalized == "" {
		return nil, false
	}
	rec, ok := s.byCode[normalized]
	return rec, ok
}

// SearchArticle ranks every record's article against query by weighted
// ratio and returns the best limit records. A query with no alphanumeric
// characters matches nothing.
func (s *Store) SearchArticle(query string, limit int) []*domain.TariffRecord {
	processed := fuzzy.Process(query)
	if processed == "" || limit <= 0 || len(s.records) == 0 {
		return []*domain.TariffRecord{}
	}

	matches := fuzzy.Extract(processed, s.articles, limit)
	out := make([]*domain.TariffRecord, 0, len(matches))
	for _, m := range matches {
		out = append(out, s.records[m.Index])
	}
	return out
}
