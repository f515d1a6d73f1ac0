package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/artzymeri/miteinander/internal/auth"
)

type contextKey string

const identityContextKey contextKey = "identity"

// RequireAuth verifies the bearer token on HTTP requests (the websocket
// handshake does its own check) and attaches the resolved identity to the
// request context.
func RequireAuth(authenticator *auth.Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ""
			if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
				token = strings.TrimPrefix(header, "Bearer ")
			}

			identity, err := authenticator.Authenticate(r.Context(), token)
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
				return
			}

			ctx := context.WithValue(r.Context(), identityContextKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityFromContext retrieves the authenticated identity from the request
// context. The zero Identity is returned when RequireAuth did not run.
func IdentityFromContext(ctx context.Context) (auth.Identity, bool) {
	identity, ok := ctx.Value(identityContextKey).(auth.Identity)
	return identity, ok
}
