package middleware

import (
	"net/http"

	"github.com/cloo-solutions/aqacs/internal/api"
)

// BodyLimit caps request bodies at limit bytes. A declared Content-Length
// over the limit is refused up front with 413; an undeclared one is cut off
// by http.MaxBytesReader while the handler decodes it.
func BodyLimit(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limit <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body == nil || r.Body == http.NoBody {
				next.ServeHTTP(w, r)
				return
			}
			if r.ContentLength > limit {
				api.Error(w, http.StatusRequestEntityTooLarge, "request body too large")
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}
