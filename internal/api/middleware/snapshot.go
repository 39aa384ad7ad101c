package middleware

import (
	"net/http"

	"github.com/cloo-solutions/aqacs/internal/domain"
)

// SnapshotHeader names the snapshot the marker pointed at when the request
// arrived.
const SnapshotHeader = "X-Active-Snapshot"

// SnapshotSource reports the active snapshot.
type SnapshotSource interface {
	ActiveID() domain.SnapshotID
}

// ActiveSnapshot stamps every response with the active snapshot id and
// records it for the access log.
func ActiveSnapshot(source SnapshotSource) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := source.ActiveID().String()
			if info := GetRequestInfo(r.Context()); info != nil {
				info.Snapshot = id
			}
			w.Header().Set(SnapshotHeader, id)
			next.ServeHTTP(w, r)
		})
	}
}
