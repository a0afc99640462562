/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/requests/*     Supply request lifecycle and issuance
  /api/items/*        Inventory registry and stock ledger
  /api/tracking/*     Document tracking trails

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Supply request routes
		r.Route("/requests", func(r chi.Router) {
			r.Get("/", h.ListRequests)
			r.Post("/", h.CreateRequest)
			r.Get("/{id}", h.GetRequest)
			r.Post("/{id}/transition", h.TransitionRequest)
			r.Post("/{id}/issue", h.IssueRequest)
			r.Get("/{id}/ris", h.GetRIS)
			r.Get("/{id}/history", h.GetRequestHistory)
		})

		// Inventory routes
		r.Route("/items", func(r chi.Router) {
			r.Get("/", h.ListItems)
			r.Post("/", h.CreateItem)
			r.Get("/low-stock", h.ListLowStockItems)
			r.Get("/{id}", h.GetItem)
			r.Post("/{id}/adjust", h.AdjustStock)
			r.Get("/{id}/movements", h.GetMovements)
			r.Get("/{id}/verify", h.VerifyItem)
		})

		// Tracking routes
		r.Route("/tracking", func(r chi.Router) {
			r.Get("/{documentType}/{id}", h.GetTracking)
		})
	})

	return r
}
