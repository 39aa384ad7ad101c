package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/aqacs/internal/domain"
)

func TestRetriever_Search(t *testing.T) {
	ctx := context.Background()
	vec := []float32{0.1, 0.2}

	t.Run("prefixes the query and names the collection", func(t *testing.T) {
		embedder := new(MockEmbedder)
		index := new(MockVectorIndex)
		embedder.On("Embed", mock.Anything, []string{"query: live horses"}).Return([][]float32{vec}, nil)
		index.On("Search", mock.Anything, "us_hts_US-HTS-2025-10-18", vec, 8).Return([]domain.Hit{
			{ID: "b", Score: 0.4},
			{ID: "a", Score: 0.9},
		}, nil)

		r := NewRetriever(staticResolver("US-HTS-2025-10-18"), embedderSource{embedder: embedder}, index, "")
		res, err := r.Search(ctx, "live horses", DefaultRetrievalLimit)

		require.NoError(t, err)
		assert.Equal(t, domain.SnapshotID("US-HTS-2025-10-18"), res.SnapshotID)
		assert.Equal(t, "us_hts_US-HTS-2025-10-18", res.Collection)
		require.Len(t, res.Hits, 2)
		assert.Equal(t, "a", res.Hits[0].ID)
		assert.Equal(t, "b", res.Hits[1].ID)
		embedder.AssertExpectations(t)
		index.AssertExpectations(t)
	})

	t.Run("clamps the limit", func(t *testing.T) {
		for _, tc := range []struct{ in, want int }{{-3, 1}, {0, 1}, {1, 1}, {12, 12}, {50, 12}} {
			embedder := new(MockEmbedder)
			index := new(MockVectorIndex)
			embedder.On("Embed", mock.Anything, mock.Anything).Return([][]float32{vec}, nil)
			index.On("Search", mock.Anything, "custom_S1", vec, tc.want).Return([]domain.Hit{}, nil)

			r := NewRetriever(staticResolver("S1"), embedderSource{embedder: embedder}, index, "custom")
			_, err := r.Search(ctx, "horses", tc.in)

			require.NoError(t, err)
			index.AssertExpectations(t)
		}
	})

	t.Run("no hits is not an error", func(t *testing.T) {
		embedder := new(MockEmbedder)
		index := new(MockVectorIndex)
		embedder.On("Embed", mock.Anything, mock.Anything).Return([][]float32{vec}, nil)
		index.On("Search", mock.Anything, mock.Anything, vec, 8).Return([]domain.Hit{}, nil)

		r := NewRetriever(staticResolver("S1"), embedderSource{embedder: embedder}, index, "")
		res, err := r.Search(ctx, "horses", 8)

		require.NoError(t, err)
		assert.Empty(t, res.Hits)
	})

	t.Run("backend failure is retrieval unavailable", func(t *testing.T) {
		cause := errors.New("connection refused")
		embedder := new(MockEmbedder)
		index := new(MockVectorIndex)
		embedder.On("Embed", mock.Anything, mock.Anything).Return([][]float32{vec}, nil)
		index.On("Search", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, cause)

		r := NewRetriever(staticResolver("S1"), embedderSource{embedder: embedder}, index, "")
		_, err := r.Search(ctx, "horses", 8)

		assert.ErrorIs(t, err, domain.ErrRetrievalUnavailable)
		assert.ErrorIs(t, err, cause)
		assert.Equal(t, domain.ErrCodeUpstreamUnavailable, domain.ErrorCode(err))
	})

	t.Run("embedding failure is retrieval unavailable", func(t *testing.T) {
		embedder := new(MockEmbedder)
		embedder.On("Embed", mock.Anything, mock.Anything).Return(nil, context.DeadlineExceeded)
		index := new(MockVectorIndex)

		r := NewRetriever(staticResolver("S1"), embedderSource{embedder: embedder}, index, "")
		_, err := r.Search(ctx, "horses", 8)

		assert.ErrorIs(t, err, domain.ErrRetrievalUnavailable)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		index.AssertNotCalled(t, "Search", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("model load failure is retrieval unavailable", func(t *testing.T) {
		r := NewRetriever(staticResolver("S1"), embedderSource{err: errors.New("no model")}, new(MockVectorIndex), "")
		_, err := r.Search(ctx, "horses", 8)

		assert.ErrorIs(t, err, domain.ErrRetrievalUnavailable)
	})
}

func TestRetriever_Semantic(t *testing.T) {
	r := NewRetriever(staticResolver("S1"), embedderSource{embedder: new(MockEmbedder)}, new(MockVectorIndex), "")

	for _, q := range []string{"", " ", "a", " a "} {
		_, err := r.Semantic(context.Background(), q, 8)
		assert.ErrorIs(t, err, domain.ErrQueryTooShort, "query %q", q)
	}
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, 1, ClampLimit(0, 1, 100))
	assert.Equal(t, 1, ClampLimit(-5, 1, 12))
	assert.Equal(t, 100, ClampLimit(500, 1, 100))
	assert.Equal(t, 3, ClampLimit(3, 1, 100))
}
