package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/cloo-solutions/aqacs/internal/api"
	"github.com/cloo-solutions/aqacs/internal/domain"
	"github.com/cloo-solutions/aqacs/internal/service"
)

type TariffService interface {
	SnapshotID() domain.SnapshotID
	Disclaimer() string
	Lookup(ctx context.Context, code string) (*domain.TariffRecord, error)
	Search(ctx context.Context, query string, limit int) ([]*domain.TariffRecord, error)
}

type TariffHandler struct {
	svc TariffService
}

func NewTariffHandler(svc TariffService) *TariffHandler {
	return &TariffHandler{svc: svc}
}

type TariffRequest struct {
	Code string `json:"code"`
}

type TariffResponse struct {
	Disclaimer string       `json:"disclaimer"`
	SnapshotID string       `json:"snapshot_id"`
	Code       string       `json:"code"`
	Chapter    *int         `json:"chapter"`
	Section    *string      `json:"section"`
	Rates      domain.Rates `json:"rates"`
	Citation   string       `json:"citation"`
}

type TariffItemResponse struct {
	Code     string       `json:"code"`
	Chapter  *int         `json:"chapter"`
	Section  *string      `json:"section"`
	Article  string       `json:"article"`
	UOQ      string       `json:"uoq"`
	Rates    domain.Rates `json:"rates"`
	Citation string       `json:"citation"`
}

type TariffSearchResponse struct {
	Disclaimer string                `json:"disclaimer"`
	SnapshotID string                `json:"snapshot_id"`
	Items      []*TariffItemResponse `json:"items"`
}

func (h *TariffHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	var req TariffRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rec, err := h.svc.Lookup(r.Context(), req.Code)
	if err != nil {
		writeError(w, r, "tariff lookup", err)
		return
	}

	api.Success(w, http.StatusOK, TariffResponse{
		Disclaimer: h.svc.Disclaimer(),
		SnapshotID: h.svc.SnapshotID().String(),
		Code:       rec.HTS10,
		Chapter:    chapterOrNil(rec.Chapter),
		Section:    sectionOrNil(rec.Chapter),
		Rates:      recordRates(rec),
		Citation:   rec.Citation(),
	})
}

func (h *TariffHandler) Search(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryLimit(w, r, service.DefaultSearchLimit)
	if !ok {
		return
	}

	records, err := h.svc.Search(r.Context(), r.URL.Query().Get("q"), limit)
	if err != nil {
		writeError(w, r, "tariff search", err)
		return
	}

	items := make([]*TariffItemResponse, len(records))
	for i, rec := range records {
		items[i] = &TariffItemResponse{
			Code:     rec.HTS10,
			Chapter:  chapterOrNil(rec.Chapter),
			Section:  sectionOrNil(rec.Chapter),
			Article:  rec.Article,
			UOQ:      rec.UnitOfQuantity,
			Rates:    recordRates(rec),
			Citation: rec.Citation(),
		}
	}

	api.Success(w, http.StatusOK, TariffSearchResponse{
		Disclaimer: h.svc.Disclaimer(),
		SnapshotID: h.svc.SnapshotID().String(),
		Items:      items,
	})
}

func recordRates(rec *domain.TariffRecord) domain.Rates {
	return domain.Rates{
		General: rec.RateGeneral,
		Special: rec.RateSpecial,
		Column2: rec.RateColumn2,
	}
}

// chapterOrNil renders chapter 0 (absent) as null.
func chapterOrNil(chapter int) *int {
	if chapter == 0 {
		return nil
	}
	return &chapter
}

func sectionOrNil(chapter int) *string {
	section, ok := domain.ChapterToSection(chapter)
	if !ok {
		return nil
	}
	return &section
}

// queryLimit reads the optional ?limit= parameter. Only an absent or empty
// parameter selects def; any supplied integer goes to the service, which
// clamps it.
func queryLimit(w http.ResponseWriter, r *http.Request, def int) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil {
		api.Error(w, http.StatusBadRequest, "limit must be an integer")
		return 0, false
	}
	return limit, true
}
