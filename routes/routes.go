package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rulebook-ai/backend/app"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))

	// CORS middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.Config.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check endpoints
	r.Get("/health", deps.HealthHandler.HandleHealth)
	r.Get("/health/ready", deps.HealthHandler.HandleReadiness)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/organizations", func(r chi.Router) {
			r.Use(deps.AuthMiddleware.RequireAuth)

			r.Post("/", deps.OrganizationHandler.HandleCreate)
			r.Post("/join", deps.OrganizationHandler.HandleJoin)
			r.Get("/", deps.OrganizationHandler.HandleList)

			r.Route("/{orgID}", func(r chi.Router) {
				r.Get("/dashboard", deps.OrganizationHandler.HandleDashboard)

				r.Post("/documents", deps.DocumentHandler.HandleUpload)
				r.Get("/documents", deps.DocumentHandler.HandleList)
				r.Delete("/documents/{filename}", deps.DocumentHandler.HandleDelete)

				r.Post("/ask", deps.AskHandler.HandleAsk)

				r.Route("/analytics", func(r chi.Router) {
					r.Get("/queries", deps.AnalyticsHandler.HandleQueries)
					r.Get("/wordcloud", deps.AnalyticsHandler.HandleWordCloud)
					r.Get("/stats", deps.AnalyticsHandler.HandleStats)
				})
			})
		})
	})

	// 404 handler
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"endpoint not found"}`))
	})

	return r
}
