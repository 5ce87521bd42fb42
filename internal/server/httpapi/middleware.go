package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/openlend/lendcore/internal/server/auth"
)

type contextKey int

const accountKey contextKey = iota

// callerAccount returns the authenticated account stored by the middleware.
func callerAccount(ctx context.Context) string {
	account, _ := ctx.Value(accountKey).(string)
	return account
}

// authMiddleware validates the bearer token and stores the caller account in
// the request context.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		account, err := auth.GetAccountFromToken(token, s.secretKey)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), accountKey, account)))
	})
}
