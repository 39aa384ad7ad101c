package service

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/cloo-solutions/aqacs/internal/domain"
	"github.com/cloo-solutions/aqacs/internal/telemetry"
)

// Answer extraction defaults.
const (
	DefaultMaxContexts     = 5
	DefaultMinConfidence   = 0.2
	DefaultExcerptMaxChars = 400
	excerptEllipsis        = "..."
)

// QACapability is an extractive question-answering model. Each call sees one
// question and one context and nothing else.
type QACapability interface {
	Extract(ctx context.Context, question, passage string) (domain.Extraction, error)
}

// QASource hands out the process-wide QA model, building it on first use.
type QASource interface {
	Get(ctx context.Context) (QACapability, error)
}

// ContextPair is an assembled context with the payload it came from.
type ContextPair struct {
	Context string
	Payload domain.Payload
}

// ExtractorConfig tunes answer extraction.
type ExtractorConfig struct {
	MaxContexts     int
	MinConfidence   float64
	ExcerptMaxChars int
	Workers         int
}

// DefaultExtractorConfig returns the standard extraction settings.
func DefaultExtractorConfig() ExtractorConfig {
	return ExtractorConfig{
		MaxContexts:     DefaultMaxContexts,
		MinConfidence:   DefaultMinConfidence,
		ExcerptMaxChars: DefaultExcerptMaxChars,
		Workers:         runtime.NumCPU(),
	}
}

// Extractor runs the QA model over each context on a bounded worker pool
// and selects one answer.
type Extractor struct {
	source QASource
	cfg    ExtractorConfig
	pool   *ants.Pool
}

// NewExtractor creates an Extractor. Call Release when done.
func NewExtractor(source QASource, cfg ExtractorConfig) (*Extractor, error) {
	defaults := DefaultExtractorConfig()
	if cfg.MaxContexts <= 0 {
		cfg.MaxContexts = defaults.MaxContexts
	}
	if cfg.MinConfidence < 0 {
		cfg.MinConfidence = defaults.MinConfidence
	}
	if cfg.ExcerptMaxChars <= 0 {
		cfg.ExcerptMaxChars = defaults.ExcerptMaxChars
	}
	if cfg.Workers <= 0 {
		cfg.Workers = defaults.Workers
	}

	pool, err := ants.NewPool(cfg.Workers)
	if err != nil {
		return nil, fmt.Errorf("failed to create extraction pool: %w", err)
	}
	return &Extractor{source: source, cfg: cfg, pool: pool}, nil
}

// Release stops the worker pool.
func (e *Extractor) Release() {
	e.pool.Release()
}

// Config returns the effective settings.
func (e *Extractor) Config() ExtractorConfig {
	return e.cfg
}

type extractionResult struct {
	extraction domain.Extraction
	err        error
}

// Extract drops empty contexts, keeps the first MaxContexts, asks the model
// about each and selects the answer. Any model failure fails the whole call
// with ErrExtractionUnavailable.
func (e *Extractor) Extract(ctx context.Context, question string, pairs []ContextPair) (domain.Answer, error) {
	usable := make([]ContextPair, 0, e.cfg.MaxContexts)
	for _, p := range pairs {
		if p.Context == "" {
			continue
		}
		usable = append(usable, p)
		if len(usable) == e.cfg.MaxContexts {
			break
		}
	}
	if len(usable) == 0 {
		return SelectAnswer(nil, e.cfg.MinConfidence, e.cfg.ExcerptMaxChars), nil
	}

	ctx, span := telemetry.StartSpan(ctx, "extractor.extract", telemetry.SpanAttributes{
		Operation: "extract",
	})
	defer span.End()

	model, err := e.source.Get(ctx)
	if err != nil {
		span.SetError(err)
		return domain.Answer{}, domain.ErrExtractionUnavailable.WithCause(fmt.Errorf("QA model: %w", err))
	}

	results := make([]extractionResult, len(usable))
	var wg sync.WaitGroup
	for i, p := range usable {
		wg.Add(1)
		i, p := i, p
		task := func() {
			defer wg.Done()
			ex, err := model.Extract(ctx, question, p.Context)
			results[i] = extractionResult{extraction: ex, err: err}
		}
		if err := e.pool.Submit(task); err != nil {
			wg.Done()
			results[i] = extractionResult{err: err}
		}
	}
	wg.Wait()

	candidates := make([]domain.Candidate, 0, len(usable))
	for i, r := range results {
		if r.err != nil {
			span.SetError(r.err)
			return domain.Answer{}, domain.ErrExtractionUnavailable.WithCause(fmt.Errorf("context %d: %w", i, r.err))
		}
		text := strings.TrimSpace(r.extraction.Answer)
		if text == "" {
			continue
		}
		candidates = append(candidates, domain.Candidate{
			Text:       text,
			Confidence: r.extraction.Score,
			Context:    usable[i].Context,
			Payload:    usable[i].Payload,
		})
	}

	return SelectAnswer(candidates, e.cfg.MinConfidence, e.cfg.ExcerptMaxChars), nil
}

// SelectAnswer picks the most confident candidate, the earliest one on ties.
// Only the winner is checked against minConfidence: a winner below it yields
// the NoConfidentAnswer sentinel with confidence 0 even when a later candidate
// would have passed on its own.
func SelectAnswer(candidates []domain.Candidate, minConfidence float64, excerptMaxChars int) domain.Answer {
	if len(candidates) == 0 {
		return domain.Answer{Text: domain.NoConfidentAnswer}
	}

	best := 0
	for i := 1; i < len(candidates); i++ {
		if candidates[i].Confidence > candidates[best].Confidence {
			best = i
		}
	}

	winner := candidates[best]
	if winner.Confidence < minConfidence {
		return domain.Answer{Text: domain.NoConfidentAnswer}
	}

	excerpt := Excerpt(winner.Context, excerptMaxChars)
	return domain.Answer{
		Text:       winner.Text,
		Confidence: winner.Confidence,
		Excerpt:    &excerpt,
		Confident:  true,
	}
}

// Excerpt cuts context to max runes at a word boundary and marks the cut
// with "...".
func Excerpt(context string, max int) string {
	cut, truncated := truncateWords(context, max)
	if truncated {
		return cut + excerptEllipsis
	}
	return cut
}
