package http

import (
	"net/http"

	"github.com/atinyakov/HomeKeeper/internal/middleware"
	"go.uber.org/zap"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// NewRouter constructs and returns an HTTP handler that serves the
// HomeKeeper log server.
//
// Routes:
//
//	POST /api/register   → authHandler.Register
//	POST /api/login      → authHandler.Login
//	POST /api/records    → recordsHandler.Append
//	GET  /api/records    → recordsHandler.Query
//	GET  /relay          → relayHandler (websocket)
//
// Middleware chain (applied in order):
//  1. AllowContentType("application/json") rejects non-JSON bodies
//  2. WithRequestLogging(logger) logs incoming requests
//  3. CertAuth enforces TLS client certificate auth
func NewRouter(
	authHandler *AuthHandler,
	recordsHandler *RecordsHandler,
	relayHandler *RelayHandler,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.AllowContentType("application/json"))
	r.Use(middleware.WithRequestLogging(logger))
	r.Use(middleware.CertAuth)

	r.Route("/api", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)

		r.Group(func(r chi.Router) {
			r.Post("/records", recordsHandler.Append)
			r.Get("/records", recordsHandler.Query)
		})
	})
	r.Method(http.MethodGet, "/relay", relayHandler)

	return r
}
