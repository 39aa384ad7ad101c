package service

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/cloo-solutions/aqacs/internal/domain"
)

// MockEmbedder is a mock implementation of Embedder
type MockEmbedder struct {
	mock.Mock
}

func (m *MockEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	args := m.Called(ctx, texts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]float32), args.Error(1)
}

// MockVectorIndex is a mock implementation of VectorIndex
type MockVectorIndex struct {
	mock.Mock
}

func (m *MockVectorIndex) EnsureCollection(ctx context.Context, collection string, dimension int) error {
	args := m.Called(ctx, collection, dimension)
	return args.Error(0)
}

func (m *MockVectorIndex) Upsert(ctx context.Context, collection string, points []domain.Point) error {
	args := m.Called(ctx, collection, points)
	return args.Error(0)
}

func (m *MockVectorIndex) Search(ctx context.Context, collection string, vector []float32, limit int) ([]domain.Hit, error) {
	args := m.Called(ctx, collection, vector, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Hit), args.Error(1)
}

func (m *MockVectorIndex) DeleteCollection(ctx context.Context, collection string) error {
	args := m.Called(ctx, collection)
	return args.Error(0)
}

// MockQA is a mock implementation of QACapability
type MockQA struct {
	mock.Mock
}

func (m *MockQA) Extract(ctx context.Context, question, passage string) (domain.Extraction, error) {
	args := m.Called(ctx, question, passage)
	return args.Get(0).(domain.Extraction), args.Error(1)
}

// MockHitSearcher is a mock implementation of HitSearcher
type MockHitSearcher struct {
	mock.Mock
}

func (m *MockHitSearcher) Search(ctx context.Context, query string, limit int) (*RetrievalResult, error) {
	args := m.Called(ctx, query, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*RetrievalResult), args.Error(1)
}

// MockAnswerExtractor is a mock implementation of AnswerExtractor
type MockAnswerExtractor struct {
	mock.Mock
}

func (m *MockAnswerExtractor) Extract(ctx context.Context, question string, pairs []ContextPair) (domain.Answer, error) {
	args := m.Called(ctx, question, pairs)
	return args.Get(0).(domain.Answer), args.Error(1)
}

type staticResolver domain.SnapshotID

func (r staticResolver) ActiveID() domain.SnapshotID {
	return domain.SnapshotID(r)
}

type embedderSource struct {
	embedder Embedder
	err      error
}

func (s embedderSource) Get(context.Context) (Embedder, error) {
	return s.embedder, s.err
}

type qaSource struct {
	qa  QACapability
	err error
}

func (s qaSource) Get(context.Context) (QACapability, error) {
	return s.qa, s.err
}
