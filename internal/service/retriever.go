package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/cloo-solutions/aqacs/internal/domain"
	"github.com/cloo-solutions/aqacs/internal/telemetry"
)

// e5 models embed queries and stored passages under different prefixes.
const (
	QueryPrefix   = "query: "
	PassagePrefix = "passage: "
)

// Retrieval limits.
const (
	MinRetrievalLimit     = 1
	MaxRetrievalLimit     = 12
	DefaultRetrievalLimit = 8
)

// Embedder turns texts into vectors, one per text, in order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// EmbedderSource hands out the process-wide embedder, building it on first use.
type EmbedderSource interface {
	Get(ctx context.Context) (Embedder, error)
}

// VectorIndex is a vector store partitioned into named collections.
type VectorIndex interface {
	EnsureCollection(ctx context.Context, collection string, dimension int) error
	Upsert(ctx context.Context, collection string, points []domain.Point) error
	Search(ctx context.Context, collection string, vector []float32, limit int) ([]domain.Hit, error)
}

// SnapshotResolver names the active snapshot.
type SnapshotResolver interface {
	ActiveID() domain.SnapshotID
}

// RetrievalResult is a ranked list of hits from one snapshot collection.
type RetrievalResult struct {
	SnapshotID domain.SnapshotID
	Collection string
	Hits       []domain.Hit
}

// Retriever runs similarity search against the active snapshot's collection.
type Retriever struct {
	resolver SnapshotResolver
	embedder EmbedderSource
	index    VectorIndex
	prefix   string
}

// NewRetriever creates a Retriever. collectionPrefix defaults to us_hts.
func NewRetriever(resolver SnapshotResolver, embedder EmbedderSource, index VectorIndex, collectionPrefix string) *Retriever {
	if collectionPrefix == "" {
		collectionPrefix = domain.DefaultCollectionPrefix
	}
	return &Retriever{
		resolver: resolver,
		embedder: embedder,
		index:    index,
		prefix:   collectionPrefix,
	}
}

// Semantic validates the query, then searches. Limit defaults to 8.
func (r *Retriever) Semantic(ctx context.Context, query string, limit int) (*RetrievalResult, error) {
	q, err := ValidateQuery(query)
	if err != nil {
		return nil, err
	}
	return r.Search(ctx, q, limit)
}

// Search embeds query with the query prefix and returns the nearest hits,
// best first. The limit is clamped to [1, 12]. No hits is not an error; any
// embedding or backend failure is ErrRetrievalUnavailable.
func (r *Retriever) Search(ctx context.Context, query string, limit int) (*RetrievalResult, error) {
	snapshotID := r.resolver.ActiveID()
	collection := snapshotID.Collection(r.prefix)
	limit = ClampLimit(limit, MinRetrievalLimit, MaxRetrievalLimit)

	ctx, span := telemetry.StartSpan(ctx, "retriever.search", telemetry.SpanAttributes{
		SnapshotID: snapshotID.String(),
		Collection: collection,
		Operation:  "search",
	})
	defer span.End()

	embedder, err := r.embedder.Get(ctx)
	if err != nil {
		span.SetError(err)
		return nil, domain.ErrRetrievalUnavailable.WithCause(fmt.Errorf("embedding model: %w", err))
	}

	vectors, err := embedder.Embed(ctx, []string{QueryPrefix + query})
	if err != nil {
		span.SetError(err)
		return nil, domain.ErrRetrievalUnavailable.WithCause(fmt.Errorf("embed query: %w", err))
	}
	if len(vectors) != 1 {
		err := fmt.Errorf("embed query: expected 1 vector, got %d", len(vectors))
		span.SetError(err)
		return nil, domain.ErrRetrievalUnavailable.WithCause(err)
	}

	hits, err := r.index.Search(ctx, collection, vectors[0], limit)
	if err != nil {
		span.SetError(err)
		return nil, domain.ErrRetrievalUnavailable.WithCause(fmt.Errorf("vector search in %s: %w", collection, err))
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	span.SetCount("hits", len(hits))

	return &RetrievalResult{
		SnapshotID: snapshotID,
		Collection: collection,
		Hits:       hits,
	}, nil
}
