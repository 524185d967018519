package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/lcalzada-xor/bluespeak/internal/core/services/auth"
)

// TokenValidator checks API bearer tokens.
type TokenValidator interface {
	Enabled() bool
	ValidateToken(ctx context.Context, client, token string) error
}

// AuthMiddleware requires a valid bearer token when the validator is enabled.
// Browsers cannot set headers on websocket upgrades, so a token query
// parameter is accepted as a fallback.
func AuthMiddleware(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if validator == nil || !validator.Enabled() {
				next.ServeHTTP(w, r)
				return
			}

			token := ""
			authHeader := r.Header.Get("Authorization")
			if strings.HasPrefix(authHeader, "Bearer ") {
				token = strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
			}
			if token == "" {
				token = r.URL.Query().Get("token")
			}

			err := validator.ValidateToken(r.Context(), ClientIP(r), token)
			switch {
			case err == nil:
				next.ServeHTTP(w, r)
			case errors.Is(err, auth.ErrRateLimitExceeded):
				http.Error(w, "Too many failed attempts", http.StatusTooManyRequests)
			default:
				w.Header().Set("WWW-Authenticate", `Bearer realm="bluespeak"`)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
			}
		})
	}
}
