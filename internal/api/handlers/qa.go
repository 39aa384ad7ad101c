package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/cloo-solutions/aqacs/internal/api"
	"github.com/cloo-solutions/aqacs/internal/domain"
	"github.com/cloo-solutions/aqacs/internal/service"
)

type QAService interface {
	Ask(ctx context.Context, question string, limit int) (*service.QAResult, error)
}

type QAHandler struct {
	svc QAService
}

func NewQAHandler(svc QAService) *QAHandler {
	return &QAHandler{svc: svc}
}

type QARequest struct {
	Question string `json:"question"`
	Limit    *int   `json:"limit,omitempty"`
}

type SourceResponse struct {
	ID          string  `json:"id"`
	Score       float64 `json:"score"`
	Chapter     *int    `json:"chapter"`
	Code        string  `json:"code"`
	Description string  `json:"description"`
	SourceCSV   string  `json:"source_csv"`
	RowIndex    *int    `json:"row_index"`
}

type QAResponse struct {
	SnapshotID string            `json:"snapshot_id"`
	Question   string            `json:"question"`
	Answer     string            `json:"answer"`
	Confidence float64           `json:"confidence"`
	Excerpt    *string           `json:"excerpt"`
	Sources    []*SourceResponse `json:"sources"`
}

// Ask answers a question. A low-confidence result is still a 200; only the
// answer text and confidence change.
func (h *QAHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req QARequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	limit := service.DefaultRetrievalLimit
	if req.Limit != nil {
		limit = *req.Limit
	}

	result, err := h.svc.Ask(r.Context(), req.Question, limit)
	if err != nil {
		writeError(w, r, "qa", err)
		return
	}

	sources := make([]*SourceResponse, len(result.Sources))
	for i, hit := range result.Sources {
		sources[i] = &SourceResponse{
			ID:          hit.ID,
			Score:       hit.Score,
			Chapter:     hitChapter(hit),
			Code:        hit.Code(),
			Description: hit.Description(),
			SourceCSV:   hit.SourceCSV(),
			RowIndex:    hitRowIndex(hit),
		}
	}

	api.Success(w, http.StatusOK, QAResponse{
		SnapshotID: result.SnapshotID.String(),
		Question:   result.Question,
		Answer:     result.Answer.Text,
		Confidence: result.Answer.Confidence,
		Excerpt:    result.Answer.Excerpt,
		Sources:    sources,
	})
}

func hitRowIndex(hit domain.Hit) *int {
	row, ok := hit.RowIndex()
	if !ok {
		return nil
	}
	return &row
}
