package identity

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/fleetops/fleetops/internal/platform/httpx"
)

// Middleware authenticates requests via bearer tokens. It places only the
// principal id in context; full resolution happens once, inside the dispatch
// pipeline, and the resolved value is threaded explicitly from there.
func Middleware(tokens *TokenManager, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing bearer token")
				return
			}
			principalID, err := tokens.Resolve(r.Context(), token)
			if err != nil {
				if !errors.Is(err, ErrTokenNotFound) {
					logger.Error("resolve token", slog.Any("error", err))
					httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
					return
				}
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid or expired token")
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithPrincipalID(r.Context(), principalID)))
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
