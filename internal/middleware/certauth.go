// Package middleware provides HTTP middlewares for authentication and logging.
package middleware

import (
	"context"
	"net/http"
)

type ctxKey string

const authorKey ctxKey = "author"

// CertAuth is a middleware that enforces mutual TLS authentication.
//
// The /api/register endpoint is excluded so that a new identity can obtain
// its certificate. For every other request the Common Name of the client
// certificate, which is the identity public id, is stored in the request
// context as the authenticated author.
func CertAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/register" {
			next.ServeHTTP(w, r)
			return
		}
		if r.TLS == nil || len(r.TLS.PeerCertificates) == 0 {
			http.Error(w, "no client certificate provided", http.StatusUnauthorized)
			return
		}
		cert := r.TLS.PeerCertificates[0]
		ctx := context.WithValue(r.Context(), authorKey, cert.Subject.CommonName)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AuthorFromContext returns the authenticated author stored by CertAuth, or
// "" if there is none.
func AuthorFromContext(ctx context.Context) string {
	if s, ok := ctx.Value(authorKey).(string); ok {
		return s
	}
	return ""
}
