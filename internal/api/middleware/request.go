package middleware

import (
	"context"
	"net/http"
	"regexp"

	"github.com/google/uuid"
)

type contextKey string

const requestInfoKey contextKey = "request_info"

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

// Caller-supplied ids end up in logs and Sentry tags.
var validRequestID = regexp.MustCompile(`^[A-Za-z0-9._-]{1,64}$`)

// RequestInfo is shared by the whole chain for one request. Inner middleware
// fill it in and outer middleware read it once the handler has returned.
type RequestInfo struct {
	ID       string
	ClientID string
	Snapshot string
}

// RequestID starts the RequestInfo for the request. A well-formed incoming
// X-Request-ID is reused, anything else is replaced by a fresh UUID.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if !validRequestID.MatchString(id) {
			id = uuid.NewString()
		}

		info := &RequestInfo{ID: id}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(WithRequestInfo(r.Context(), info)))
	})
}

// WithRequestInfo attaches info to ctx.
func WithRequestInfo(ctx context.Context, info *RequestInfo) context.Context {
	return context.WithValue(ctx, requestInfoKey, info)
}

// GetRequestInfo returns the request's RequestInfo, or nil outside the chain.
func GetRequestInfo(ctx context.Context) *RequestInfo {
	info, _ := ctx.Value(requestInfoKey).(*RequestInfo)
	return info
}

func GetRequestID(ctx context.Context) string {
	if info := GetRequestInfo(ctx); info != nil {
		return info.ID
	}
	return ""
}

func GetClientID(ctx context.Context) string {
	if info := GetRequestInfo(ctx); info != nil {
		return info.ClientID
	}
	return ""
}
