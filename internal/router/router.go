// Package router sets up the HTTP routes and middleware chains for the
// ThumbForge API server.
package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"thumbforge/internal/handlers"
	"thumbforge/internal/identity"
	"thumbforge/internal/middleware"
)

// New creates and returns the configured Chi router with all middleware
// and route groups wired up. generateLimit is the per-caller request
// budget for the generation endpoint, per minute.
func New(verifier identity.Verifier, api *handlers.API, generateLimit int) chi.Router {
	r := chi.NewRouter()

	// Global middleware — applied to every request.
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)

	// Health check — no auth.
	r.Get("/health", healthHandler)

	// API routes — bearer-token authenticated.
	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.LoadIdentity(verifier))
		r.Use(middleware.RequireIdentity)

		r.Get("/thumbnails", api.List)
		r.Get("/upload-auth", api.UploadAuth)

		// Generation is expensive; rate-limit it separately.
		r.Group(func(r chi.Router) {
			limiter := middleware.NewRateLimiter(generateLimit, time.Minute)
			r.Use(limiter.Middleware)
			r.Post("/thumbnails", api.Generate)
		})
	})

	return r
}

// healthHandler returns a simple JSON health check response.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
