package handlers

import (
	"log"
	"net/http"

	"github.com/cloo-solutions/aqacs/internal/api"
	"github.com/cloo-solutions/aqacs/internal/api/middleware"
)

// writeError answers with the mapped status. Server-side failures are also
// logged, as Sentry may not be configured.
func writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := api.DomainErrorToHTTP(err)
	if status >= http.StatusInternalServerError {
		log.Printf("%s failed: status=%d request_id=%s client_id=%s: %v",
			op, status, middleware.GetRequestID(r.Context()), middleware.GetClientID(r.Context()), err)
	}
	api.HandleError(w, err)
}
