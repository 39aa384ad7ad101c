package handlers

import (
	"context"
	"net/http"

	"github.com/cloo-solutions/aqacs/internal/api"
	"github.com/cloo-solutions/aqacs/internal/domain"
	"github.com/cloo-solutions/aqacs/internal/service"
)

type SemanticService interface {
	Semantic(ctx context.Context, query string, limit int) (*service.RetrievalResult, error)
}

type SemanticHandler struct {
	svc SemanticService
}

func NewSemanticHandler(svc SemanticService) *SemanticHandler {
	return &SemanticHandler{svc: svc}
}

type HitResponse struct {
	ID          string       `json:"id"`
	Score       float64      `json:"score"`
	Chapter     *int         `json:"chapter"`
	Description string       `json:"description"`
	Code        string       `json:"code"`
	Rates       domain.Rates `json:"rates"`
	SourceCSV   string       `json:"source_csv"`
}

type SemanticResponse struct {
	SnapshotID string         `json:"snapshot_id"`
	Collection string         `json:"collection"`
	Hits       []*HitResponse `json:"hits"`
}

// Search returns raw ranked hits with no confidence filtering.
func (h *SemanticHandler) Search(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryLimit(w, r, service.DefaultRetrievalLimit)
	if !ok {
		return
	}

	result, err := h.svc.Semantic(r.Context(), r.URL.Query().Get("q"), limit)
	if err != nil {
		writeError(w, r, "semantic", err)
		return
	}

	hits := make([]*HitResponse, len(result.Hits))
	for i, hit := range result.Hits {
		hits[i] = &HitResponse{
			ID:          hit.ID,
			Score:       hit.Score,
			Chapter:     hitChapter(hit),
			Description: hit.Description(),
			Code:        hit.Code(),
			Rates:       hit.Rates(),
			SourceCSV:   hit.SourceCSV(),
		}
	}

	api.Success(w, http.StatusOK, SemanticResponse{
		SnapshotID: result.SnapshotID.String(),
		Collection: result.Collection,
		Hits:       hits,
	})
}

func hitChapter(hit domain.Hit) *int {
	chapter, ok := hit.Chapter()
	if !ok {
		return nil
	}
	return &chapter
}
