package middleware

import (
	"context"
	"net/http"
	"strings"

	jwtinfra "github.com/go-otp-gate/internal/infrastructure/jwt"
)

type contextKey string

const ClaimsKey contextKey = "claims"

// SessionCookie is the cookie carrying the bearer token for page views,
// where the browser sends no Authorization header.
const SessionCookie = "auth_token"

// Identity returns middleware that resolves the current user from the Bearer
// header or the session cookie and injects claims into context. Unlike a
// classic auth guard it never rejects: anonymous requests pass through and
// the access gate decides what an anonymous user may see.
func Identity(provider *jwtinfra.Provider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr := ""
			if authHeader := r.Header.Get("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
				tokenStr = strings.TrimPrefix(authHeader, "Bearer ")
			} else if c, err := r.Cookie(SessionCookie); err == nil {
				tokenStr = c.Value
			}
			if tokenStr == "" {
				next.ServeHTTP(w, r)
				return
			}
			claims, err := provider.Verify(tokenStr)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			ctx := context.WithValue(r.Context(), ClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFromContext extracts JWT claims from the request context.
func ClaimsFromContext(ctx context.Context) (*jwtinfra.Claims, bool) {
	c, ok := ctx.Value(ClaimsKey).(*jwtinfra.Claims)
	return c, ok
}

// WithClaims injects claims into a context; used by tests and internal callers.
func WithClaims(ctx context.Context, c *jwtinfra.Claims) context.Context {
	return context.WithValue(ctx, ClaimsKey, c)
}
