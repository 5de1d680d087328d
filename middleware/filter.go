// Package middleware provides the per-request authentication filter and a
// guard variant for net/http handler chains.
package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/adminforge/authcore"
)

type identityContextKey struct{}

// IdentityFromContext returns the identity bound by [Filter], if any.
func IdentityFromContext(ctx context.Context) (*authcore.LoginUser, bool) {
	user, ok := ctx.Value(identityContextKey{}).(*authcore.LoginUser)
	return user, ok
}

// Filter returns middleware that resolves the bearer token from the engine's
// configured header and binds the resulting identity to the request context
// exactly once. It never terminates the chain: a missing or invalid token
// passes the request through unauthenticated, and downstream authorization
// decides access by the absence of a bound identity.
func Filter(engine *authcore.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				next.ServeHTTP(w, r)
				return
			}

			if _, bound := IdentityFromContext(r.Context()); bound {
				next.ServeHTTP(w, r)
				return
			}

			token, ok := bearerToken(r.Header.Get(engine.TokenHeader()))
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			ctx := authcore.WithClientIP(r.Context(), clientIP(r))
			user, err := engine.Authenticate(ctx, token)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx = context.WithValue(ctx, identityContextKey{}, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Require returns middleware that rejects requests with no bound identity.
// Meant to sit behind [Filter] on routes that need an authenticated caller.
func Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := IdentityFromContext(r.Context()); !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
