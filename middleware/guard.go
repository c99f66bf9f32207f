package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/reusemarket/gate/token"
)

type claimsContextKey struct{}

// ClaimsFromContext returns the claims injected by [Bearer].
func ClaimsFromContext(ctx context.Context) (*token.Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey{}).(*token.Claims)
	return claims, ok
}

// Bearer rejects requests without a credential that m accepts.
func Bearer(m *token.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if m == nil {
				unauthorized(w, "not authenticated")
				return
			}

			tok, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				unauthorized(w, "not authenticated")
				return
			}

			claims, err := m.Parse(tok)
			if err != nil {
				unauthorized(w, "invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), claimsContextKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	tok := strings.TrimSpace(value[len(bearer):])
	if tok == "" {
		return "", false
	}

	return tok, true
}

func unauthorized(w http.ResponseWriter, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}
