package service

import (
	"context"
	"strings"

	"github.com/cloo-solutions/aqacs/internal/domain"
	"github.com/cloo-solutions/aqacs/internal/telemetry"
)

// DefaultDisclaimer accompanies every tariff response.
const DefaultDisclaimer = "DEV ONLY: non-legal, advisory output; consult the official HTSUS publication"

// Fuzzy search limits.
const (
	DefaultSearchLimit = 10
	MaxSearchLimit     = 100
)

// TariffTable is a loaded snapshot of tariff records.
type TariffTable interface {
	SnapshotID() domain.SnapshotID
	GetByCode(code string) (*domain.TariffRecord, bool)
	SearchArticle(query string, limit int) []*domain.TariffRecord
}

// TariffService serves exact and fuzzy lookups from the snapshot loaded at
// startup.
type TariffService struct {
	table      TariffTable
	disclaimer string
}

// NewTariffService creates a TariffService. An empty disclaimer selects the
// default.
func NewTariffService(table TariffTable, disclaimer string) *TariffService {
	if disclaimer == "" {
		disclaimer = DefaultDisclaimer
	}
	return &TariffService{table: table, disclaimer: disclaimer}
}

// Disclaimer returns the text attached to tariff responses.
func (s *TariffService) Disclaimer() string {
	return s.disclaimer
}

// SnapshotID returns the snapshot the table was loaded from.
func (s *TariffService) SnapshotID() domain.SnapshotID {
	return s.table.SnapshotID()
}

// Lookup returns the record for code.
func (s *TariffService) Lookup(ctx context.Context, code string) (*domain.TariffRecord, error) {
	_, span := telemetry.StartSpan(ctx, "tariff.lookup", telemetry.SpanAttributes{
		SnapshotID: s.table.SnapshotID().String(),
		Operation:  "lookup",
	})
	defer span.End()

	if strings.TrimSpace(code) == "" {
		return nil, domain.ErrEmptyCode
	}
	rec, ok := s.table.GetByCode(code)
	if !ok {
		return nil, domain.ErrCodeNotFoundInSnapshot
	}
	return rec, nil
}

// Search fuzzy-matches query against article descriptions. The query must be
// at least two characters; limit is clamped to [1, 100].
func (s *TariffService) Search(ctx context.Context, query string, limit int) ([]*domain.TariffRecord, error) {
	q, err := ValidateQuery(query)
	if err != nil {
		return nil, err
	}

	_, span := telemetry.StartSpan(ctx, "tariff.search", telemetry.SpanAttributes{
		SnapshotID: s.table.SnapshotID().String(),
		Operation:  "search",
	})
	defer span.End()

	return s.table.SearchArticle(q, ClampLimit(limit, 1, MaxSearchLimit)), nil
}
