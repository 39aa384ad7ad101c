package middleware

import (
	"fmt"
	"net/http"

	"github.com/getsentry/sentry-go"
)

// SentryMiddleware runs each request inside a Sentry transaction on a cloned
// hub, continuing incoming trace headers. Panics are reported and re-raised.
// Without an initialized client the hub is a no-op.
func SentryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub := sentry.GetHubFromContext(r.Context())
		if hub == nil {
			hub = sentry.CurrentHub().Clone()
		}

		options := []sentry.SpanOption{
			sentry.WithOpName("http.server"),
			sentry.WithTransactionSource(sentry.SourceURL),
		}
		if trace := r.Header.Get("sentry-trace"); trace != "" {
			options = append(options, sentry.ContinueFromHeaders(trace, r.Header.Get("baggage")))
		}

		tx := sentry.StartTransaction(r.Context(), r.Method+" "+r.URL.Path, options...)
		defer tx.Finish()

		r = r.WithContext(sentry.SetHubOnContext(tx.Context(), hub))
		hub.Scope().SetRequest(r)

		defer func() {
			if err := recover(); err != nil {
				tx.Status = sentry.SpanStatusInternalError
				hub.RecoverWithContext(r.Context(), err)
				panic(err)
			}
		}()

		rec := record(w)
		next.ServeHTTP(rec, r)

		status := rec.Status()
		tx.Status = spanStatus(status)
		tx.SetData("http.response.status_code", status)

		// The chain below has filled in the request info by now.
		if info := GetRequestInfo(r.Context()); info != nil {
			tagScope(hub, tx, "request_id", info.ID)
			tagScope(hub, tx, "client_id", info.ClientID)
			tagScope(hub, tx, "snapshot_id", info.Snapshot)
		}

		// 503 is an upstream outage already reported by the service span.
		if status >= 500 && status != http.StatusServiceUnavailable {
			hub.CaptureMessage(fmt.Sprintf("HTTP %d: %s %s", status, r.Method, r.URL.Path))
		}
	})
}

func tagScope(hub *sentry.Hub, tx *sentry.Span, key, value string) {
	if value == "" {
		return
	}
	hub.Scope().SetTag(key, value)
	tx.SetTag(key, value)
}

func spanStatus(status int) sentry.SpanStatus {
	switch status {
	case http.StatusOK:
		return sentry.SpanStatusOK
	case http.StatusBadRequest:
		return sentry.SpanStatusInvalidArgument
	case http.StatusUnauthorized:
		return sentry.SpanStatusUnauthenticated
	case http.StatusNotFound:
		return sentry.SpanStatusNotFound
	case http.StatusRequestEntityTooLarge:
		return sentry.SpanStatusResourceExhausted
	case http.StatusServiceUnavailable:
		return sentry.SpanStatusUnavailable
	case http.StatusGatewayTimeout:
		return sentry.SpanStatusDeadlineExceeded
	}
	switch {
	case status < 400:
		return sentry.SpanStatusOK
	case status < 500:
		return sentry.SpanStatusInvalidArgument
	default:
		return sentry.SpanStatusInternalError
	}
}
