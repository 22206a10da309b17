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
  1. RequestID:     Unique ID per request for tracing
  2. Recoverer:     Panic recovery (500 instead of crash)
  3. RequestLogger: Structured request logging (zap) + HTTP metrics
  4. CORS:          Cross-origin requests for the mobile app
  5. RequireAuth:   Bearer token verification on the protected group

ROUTE GROUPS:
  /api/register, /api/login       Public
  /api/*                          Authenticated (bearer token)
  /api/admin/*                    Admin role checked in handlers
  /metrics                        Prometheus scrape endpoint
  /healthz                        Liveness probe

SEE ALSO:
  - handlers.go: Handler implementations
  - middleware.go: Auth and logging middleware
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, log *zap.Logger) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(RequestLogger(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Public routes
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)

		// Authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(RequireAuth(h.Auth))

			r.Post("/verify-password", h.VerifyPassword)
			r.Get("/verify-user", h.VerifyUser)

			// Profile routes
			r.Route("/me", func(r chi.Router) {
				r.Get("/", h.Me)
				r.Get("/balance", h.MyBalance)
				r.Put("/measurements", h.UpdateMeasurements)
			})

			// Wallet routes
			r.Route("/transfers", func(r chi.Router) {
				r.Post("/", h.Transfer)
				r.Post("/collect", h.Collect)
			})
			r.Get("/transactions", h.Transactions)

			// Top-up routes
			r.Route("/topups", func(r chi.Router) {
				r.Get("/", h.ListTopUps)
				r.Post("/", h.CreateTopUp)
				r.Post("/{id}/approve", h.ApproveTopUp)
				r.Post("/{id}/reject", h.RejectTopUp)
			})

			// Catalog routes
			r.Get("/canteens", h.ListCanteens)
			r.Get("/canteens/{id}/categories", h.ListCategories)
			r.Get("/categories/{id}/foods", h.ListFoods)
			r.Route("/foods", func(r chi.Router) {
				r.Get("/featured", h.FeaturedFoods)
				r.Post("/", h.CreateFood)
				r.Put("/{id}", h.UpdateFood)
			})

			// Order routes
			r.Route("/orders", func(r chi.Router) {
				r.Get("/", h.ListOrders)
				r.Post("/", h.CreateOrder)
				r.Get("/{id}", h.GetOrder)
				r.Post("/{id}/pay", h.PayOrder)
			})

			// Notification routes
			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", h.ListNotifications)
				r.Post("/", h.CreateNotification)
			})

			// Admin routes
			r.Route("/admin", func(r chi.Router) {
				r.Post("/seed", h.SeedDemo)
			})
		})
	})

	// Operational endpoints
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return r
}
