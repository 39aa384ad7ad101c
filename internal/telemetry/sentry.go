// Package telemetry wraps sentry-go for tracing and error reporting. Every
// helper is a no-op until Init has been called with a DSN.
package telemetry

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/cloo-solutions/aqacs/internal/domain"
)

const (
	serviceName  = "aqacs"
	flushTimeout = 5 * time.Second
)

// Config holds the Sentry settings.
type Config struct {
	DSN              string
	Environment      string
	Release          string
	TracesSampleRate float64
	Debug            bool
}

// Init starts the Sentry client and returns a function that flushes pending
// events. An empty DSN, or a client that fails to start, yields a no-op.
func Init(cfg Config) (func(), error) {
	if cfg.DSN == "" {
		return func() {}, nil
	}
	if cfg.Environment == "" {
		cfg.Environment = "dev"
	}
	if cfg.TracesSampleRate <= 0 {
		cfg.TracesSampleRate = 1.0
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		Release:          cfg.Release,
		EnableTracing:    true,
		TracesSampleRate: cfg.TracesSampleRate,
		TracesSampler:    sentry.TracesSampler(sampler(cfg.TracesSampleRate)),
		Debug:            cfg.Debug,
		ServerName:       serviceName,
	})
	if err != nil {
		log.Printf("sentry: failed to initialize (continuing without tracing): %v", err)
		return func() {}, nil
	}

	log.Printf("sentry: tracing initialized (environment: %s, sample_rate: %.2f)", cfg.Environment, cfg.TracesSampleRate)
	return func() { sentry.Flush(flushTimeout) }, nil
}

// sampler drops health probes, follows the parent's decision for child spans
// and samples root transactions at rate.
func sampler(rate float64) func(sentry.SamplingContext) float64 {
	return func(ctx sentry.SamplingContext) float64 {
		if ctx.Span == nil {
			return rate
		}
		if strings.HasSuffix(ctx.Span.Name, "/v1/health") {
			return 0
		}
		var root sentry.SpanID
		if ctx.Span.ParentSpanID != root {
			if ctx.Span.Sampled.Bool() {
				return 1
			}
			return 0
		}
		return rate
	}
}

// SpanAttributes are the tags common to service spans.
type SpanAttributes struct {
	SnapshotID string
	Collection string
	Provider   string
	Operation  string
}

// Span wraps a sentry span. The zero value is usable and does nothing.
type Span struct {
	inner *sentry.Span
}

func (s *Span) End() {
	if s.inner != nil {
		s.inner.Finish()
	}
}

// SetCount records a result size such as hits returned or points written.
func (s *Span) SetCount(key string, n int) {
	if s.inner != nil {
		s.inner.SetData(key, n)
	}
}

// SetError sets the span status from err. Only failures worth an alert are
// sent to Sentry: validation and not-found errors are answers the caller
// asked for, not faults.
func (s *Span) SetError(err error) {
	if s.inner == nil || err == nil {
		return
	}
	s.inner.Status = errorStatus(err)
	if !Reportable(err) {
		return
	}
	if hub := sentry.GetHubFromContext(s.inner.Context()); hub != nil {
		hub.CaptureException(err)
	}
}

// Reportable reports whether err signals a fault rather than a client
// mistake or an empty result.
func Reportable(err error) bool {
	switch domain.ErrorCode(err) {
	case domain.ErrCodeValidation, domain.ErrCodeNotFound, domain.ErrCodeUnauthorized:
		return false
	}
	return !errors.Is(err, context.Canceled)
}

func errorStatus(err error) sentry.SpanStatus {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return sentry.SpanStatusDeadlineExceeded
	case errors.Is(err, context.Canceled):
		return sentry.SpanStatusCanceled
	}
	switch domain.ErrorCode(err) {
	case domain.ErrCodeValidation:
		return sentry.SpanStatusInvalidArgument
	case domain.ErrCodeNotFound:
		return sentry.SpanStatusNotFound
	case domain.ErrCodeUnauthorized:
		return sentry.SpanStatusUnauthenticated
	case domain.ErrCodeUpstreamUnavailable:
		return sentry.SpanStatusUnavailable
	}
	return sentry.SpanStatusInternalError
}

// Context returns the span's context.
func (s *Span) Context() context.Context {
	if s.inner != nil {
		return s.inner.Context()
	}
	return context.Background()
}

func setAttributes(span *sentry.Span, attrs SpanAttributes) {
	tags := map[string]string{
		"snapshot_id": attrs.SnapshotID,
		"collection":  attrs.Collection,
		"provider":    attrs.Provider,
	}
	for k, v := range tags {
		if v != "" {
			span.SetTag(k, v)
		}
	}
	if attrs.Operation != "" {
		span.SetData("operation", attrs.Operation)
	}
}

// StartSpan opens a child of the span in ctx, or a new transaction when
// there is none.
func StartSpan(ctx context.Context, name string, attrs SpanAttributes) (context.Context, *Span) {
	var span *sentry.Span
	if parent := sentry.SpanFromContext(ctx); parent != nil {
		span = parent.StartChild(name)
	} else {
		span = sentry.StartSpan(ctx, name, sentry.WithTransactionName(name))
	}

	setAttributes(span, attrs)
	return span.Context(), &Span{inner: span}
}

// CaptureError reports err on the hub in ctx, or the global hub.
func CaptureError(ctx context.Context, err error) {
	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		hub.CaptureException(err)
		return
	}
	sentry.CaptureException(err)
}

// AddBreadcrumb records an info breadcrumb on the hub in ctx, or the global
// hub.
func AddBreadcrumb(ctx context.Context, category, message string) {
	crumb := &sentry.Breadcrumb{
		Category:  category,
		Message:   message,
		Level:     sentry.LevelInfo,
		Timestamp: time.Now(),
	}
	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		hub.AddBreadcrumb(crumb, nil)
		return
	}
	sentry.AddBreadcrumb(crumb)
}
