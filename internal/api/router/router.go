package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/glowbook/bookingflow/internal/http/handlers"
	httpmiddleware "github.com/glowbook/bookingflow/internal/http/middleware"
	"github.com/glowbook/bookingflow/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	CatalogHandler     *handlers.CatalogHandler
	Availability       *handlers.AvailabilityHandler
	Appointments       *handlers.AppointmentHandler
	Sessions           *handlers.SessionHandler
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Route("/api", func(api chi.Router) {
		api.Get("/categories", cfg.CatalogHandler.ListCategories)
		api.Get("/services", cfg.CatalogHandler.ListServices)
		api.Get("/staff", cfg.CatalogHandler.ListStaff)
		api.Get("/addons", cfg.CatalogHandler.ListAddons)
		api.Get("/availability", cfg.Availability.GetAvailability)
		api.Get("/availability/day", cfg.Availability.GetDay)
		api.Post("/appointments", cfg.Appointments.Create)

		api.Route("/sessions", func(s chi.Router) {
			s.Post("/", cfg.Sessions.Create)
			s.Route("/{sessionID}", func(sr chi.Router) {
				sr.Get("/", cfg.Sessions.Get)
				sr.Post("/selection", cfg.Sessions.ApplySelection)
				sr.Post("/next", cfg.Sessions.Next)
				sr.Post("/back", cfg.Sessions.Back)
				sr.Post("/submit", cfg.Sessions.Submit)
			})
		})
	})

	return r
}
