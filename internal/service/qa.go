package service

import (
	"context"
	"strings"
	"time"

	"github.com/cloo-solutions/aqacs/internal/domain"
	"github.com/cloo-solutions/aqacs/internal/telemetry"
)

// DefaultRequestTimeout bounds one QA call end to end.
const DefaultRequestTimeout = 30 * time.Second

// HitSearcher finds the hits a question is answered from.
type HitSearcher interface {
	Search(ctx context.Context, query string, limit int) (*RetrievalResult, error)
}

// AnswerExtractor picks an answer out of assembled contexts.
type AnswerExtractor interface {
	Extract(ctx context.Context, question string, pairs []ContextPair) (domain.Answer, error)
}

// QAResult is the outcome of one question.
type QAResult struct {
	SnapshotID domain.SnapshotID
	Question   string
	Answer     domain.Answer
	Sources    []domain.Hit
}

// QAService answers questions from the active snapshot's vector collection.
type QAService struct {
	retriever HitSearcher
	contexts  *ContextBuilder
	extractor AnswerExtractor
	timeout   time.Duration
}

// NewQAService creates a QAService. A zero timeout selects the default.
func NewQAService(retriever HitSearcher, contexts *ContextBuilder, extractor AnswerExtractor, timeout time.Duration) *QAService {
	if contexts == nil {
		contexts = NewContextBuilder(DefaultContextConfig())
	}
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &QAService{
		retriever: retriever,
		contexts:  contexts,
		extractor: extractor,
		timeout:   timeout,
	}
}

// Ask validates the question, retrieves up to limit hits, builds one context
// per hit and extracts an answer. Zero hits fail with ErrNoRelevantContext
// without consulting the QA model. A low-confidence answer is not an error.
func (s *QAService) Ask(ctx context.Context, question string, limit int) (*QAResult, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, domain.ErrEmptyQuestion
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	ctx, span := telemetry.StartSpan(ctx, "qa.ask", telemetry.SpanAttributes{
		Operation: "ask",
	})
	defer span.End()

	retrieved, err := s.retriever.Search(ctx, question, limit)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	if len(retrieved.Hits) == 0 {
		return nil, domain.ErrNoRelevantContext
	}

	pairs := make([]ContextPair, len(retrieved.Hits))
	for i, hit := range retrieved.Hits {
		pairs[i] = ContextPair{
			Context: s.contexts.Build(hit.Payload),
			Payload: hit.Payload,
		}
	}

	answer, err := s.extractor.Extract(ctx, question, pairs)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	return &QAResult{
		SnapshotID: retrieved.SnapshotID,
		Question:   question,
		Answer:     answer,
		Sources:    retrieved.Hits,
	}, nil
}
