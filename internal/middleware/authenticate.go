package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/friendcircle/backend/internal/auth"
	"github.com/friendcircle/backend/internal/logging"
)

// TokenResolver maps a bearer access token to the user id it was issued for.
type TokenResolver interface {
	Resolve(ctx context.Context, accessToken string) (string, error)
}

// Authenticate is the access gate: it resolves the caller's identity from
// the Authorization header before the request reaches a protected handler.
// Requests without a valid token are rejected with 401.
func Authenticate(sessions TokenResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			token := bearerToken(r)
			if token == "" {
				logging.FromContext(ctx).Warn("missing bearer token")
				rejectUnauthorized(w)
				return
			}

			userID, err := sessions.Resolve(ctx, token)
			if err != nil {
				logging.FromContext(ctx).Warn("token resolution failed", "error", err)
				rejectUnauthorized(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(ctx, userID)))
		})
	}
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

func rejectUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": "authentication required"})
}
