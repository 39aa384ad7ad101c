package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/aqacs/internal/api/handlers"
	"github.com/cloo-solutions/aqacs/internal/domain"
	"github.com/cloo-solutions/aqacs/internal/service"
)

type MockAuthValidator struct {
	mock.Mock
}

func (m *MockAuthValidator) ValidateAPIKey(ctx context.Context, token string) (string, error) {
	args := m.Called(ctx, token)
	return args.String(0), args.Error(1)
}

type MockSemanticService struct {
	mock.Mock
}

func (m *MockSemanticService) Semantic(ctx context.Context, query string, limit int) (*service.RetrievalResult, error) {
	args := m.Called(ctx, query, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.RetrievalResult), args.Error(1)
}

type MockQAService struct {
	mock.Mock
}

func (m *MockQAService) Ask(ctx context.Context, question string, limit int) (*service.QAResult, error) {
	args := m.Called(ctx, question, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.QAResult), args.Error(1)
}

func newTestRouter(auth *MockAuthValidator, semantic *MockSemanticService, qa *MockQAService) http.Handler {
	store := service.NewTariffService(tariffStore(), "advisory")
	cfg := RouterConfig{
		HealthHandler:   handlers.NewHealthHandler("test"),
		TariffHandler:   handlers.NewTariffHandler(store),
		SemanticHandler: handlers.NewSemanticHandler(semantic),
		QAHandler:       handlers.NewQAHandler(qa),
	}
	if auth != nil {
		cfg.AuthValidator = auth
	}
	return NewRouter(cfg)
}

func tariffStore() service.TariffTable {
	return tariffTableStub{}
}

type tariffTableStub struct{}

func (tariffTableStub) SnapshotID() domain.SnapshotID { return "S1" }

func (tariffTableStub) GetByCode(code string) (*domain.TariffRecord, bool) {
	if domain.NormalizeCode(code) != "0101210010" {
		return nil, false
	}
	return &domain.TariffRecord{HTS10: "0101210010", Chapter: 1, RateGeneral: "Free"}, true
}

func (tariffTableStub) SearchArticle(query string, limit int) []*domain.TariffRecord {
	return []*domain.TariffRecord{}
}

func TestRouter_HealthIsOpen(t *testing.T) {
	router := newTestRouter(new(MockAuthValidator), new(MockSemanticService), new(MockQAService))

	req := httptest.NewRequest(http.MethodGet, "/v1/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	var resp map[string]map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp["data"]["status"])
	assert.Equal(t, "test", resp["data"]["env"])
}

func TestRouter_RequiresAPIKeyWhenConfigured(t *testing.T) {
	auth := new(MockAuthValidator)
	auth.On("ValidateAPIKey", mock.Anything, "good").Return("client-1", nil)
	auth.On("ValidateAPIKey", mock.Anything, "bad").Return("", domain.ErrInvalidAPIKey)
	router := newTestRouter(auth, new(MockSemanticService), new(MockQAService))

	body := `{"code":"0101.21.00.10"}`

	req := httptest.NewRequest(http.MethodPost, "/v1/tariff", bytes.NewBufferString(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/v1/tariff", bytes.NewBufferString(body))
	req.Header.Set("Authorization", "Bearer bad")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/v1/tariff", bytes.NewBufferString(body))
	req.Header.Set("Authorization", "Bearer good")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"0101210010"`)
}

func TestRouter_OpenWithoutAuthValidator(t *testing.T) {
	qa := new(MockQAService)
	qa.On("Ask", mock.Anything, "q?", service.DefaultRetrievalLimit).Return(nil, domain.ErrNoRelevantContext)
	router := newTestRouter(nil, new(MockSemanticService), qa)

	req := httptest.NewRequest(http.MethodPost, "/v1/qa", bytes.NewBufferString(`{"question":"q?"}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	qa.AssertExpectations(t)
}

func TestRouter_Routes(t *testing.T) {
	semantic := new(MockSemanticService)
	semantic.On("Semantic", mock.Anything, "horses", 3).Return(&service.RetrievalResult{SnapshotID: "S1", Collection: "us_hts_S1"}, nil)
	router := newTestRouter(nil, semantic, new(MockQAService))

	tests := []struct {
		method string
		path   string
		status int
	}{
		{http.MethodGet, "/v1/semantic?q=horses&limit=3", http.StatusOK},
		{http.MethodGet, "/v1/search?q=horses", http.StatusOK},
		{http.MethodGet, "/v1/search?q=h", http.StatusBadRequest},
		{http.MethodGet, "/v1/tariff", http.StatusMethodNotAllowed},
		{http.MethodGet, "/health", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestRouter_RejectsLargeBodies(t *testing.T) {
	router := newTestRouter(nil, new(MockSemanticService), new(MockQAService))

	req := httptest.NewRequest(http.MethodPost, "/v1/qa", bytes.NewReader(make([]byte, 128*1024)))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestRouter_StampsActiveSnapshot(t *testing.T) {
	cfg := RouterConfig{
		Snapshots:       fixedSnapshot("US-HTS-2025-10-18"),
		HealthHandler:   handlers.NewHealthHandler("test"),
		TariffHandler:   handlers.NewTariffHandler(service.NewTariffService(tariffStore(), "")),
		SemanticHandler: handlers.NewSemanticHandler(new(MockSemanticService)),
		QAHandler:       handlers.NewQAHandler(new(MockQAService)),
	}
	router := NewRouter(cfg)

	req := httptest.NewRequest(http.MethodGet, "/v1/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "US-HTS-2025-10-18", w.Header().Get("X-Active-Snapshot"))

	w = httptest.NewRecorder()
	newTestRouter(nil, new(MockSemanticService), new(MockQAService)).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/health", nil))
	assert.Empty(t, w.Header().Get("X-Active-Snapshot"))
}

type fixedSnapshot domain.SnapshotID

func (s fixedSnapshot) ActiveID() domain.SnapshotID { return domain.SnapshotID(s) }
