package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/cloo-solutions/aqacs/internal/api"
)

// AuthValidator resolves a bearer token to a client id.
type AuthValidator interface {
	ValidateAPIKey(ctx context.Context, token string) (string, error)
}

// APIKeyAuth requires "Authorization: Bearer <key>" and records the client
// id on the RequestInfo. The scheme is matched case-insensitively.
func APIKeyAuth(validator AuthValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				w.Header().Set("WWW-Authenticate", `Bearer realm="aqacs"`)
				api.Error(w, http.StatusUnauthorized, "missing or malformed bearer token")
				return
			}

			clientID, err := validator.ValidateAPIKey(r.Context(), token)
			if err != nil {
				w.Header().Set("WWW-Authenticate", `Bearer realm="aqacs", error="invalid_token"`)
				api.Error(w, http.StatusUnauthorized, "invalid api key")
				return
			}

			ctx := r.Context()
			info := GetRequestInfo(ctx)
			if info == nil {
				info = &RequestInfo{}
				ctx = WithRequestInfo(ctx, info)
			}
			info.ClientID = clientID
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
