package routes

import (
	"net/http"

	"soil-bknd/internal/config"
	"soil-bknd/internal/handlers"
	"soil-bknd/internal/logger"
	mdlwr "soil-bknd/internal/middleware"
	"soil-bknd/internal/observability"
	"soil-bknd/internal/realtime"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Deps are the collaborators the router wires into handlers.
type Deps struct {
	Samples        handlers.SampleStore
	Municipalities handlers.MunicipalityLister
	Analytics      handlers.AnalyticsProvider
	Ready          handlers.ReadinessChecker
	Hub            *realtime.Hub
	Verifier       mdlwr.TokenVerifier // nil disables auth
	Metrics        *observability.Metrics
	Clock          clockwork.Clock
	MetricsHandler http.Handler // defaults to the global Prometheus registry
}

func NewRouter(cfg *config.Config, logr *logger.Logger, deps Deps) http.Handler {
	r := chi.NewRouter()

	// Basic middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mdlwr.RequestLogger(logr.Logger))
	r.Use(middleware.Recoverer)
	if deps.Metrics != nil {
		r.Use(mdlwr.Instrument(deps.Metrics))
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	authMW := mdlwr.NewAuthMiddleware(deps.Verifier, logr.Logger)

	sampleHandler := handlers.NewSampleHandler(deps.Samples, deps.Metrics, deps.Clock, logr.Logger)
	municipalityHandler := handlers.NewMunicipalityHandler(deps.Municipalities, logr.Logger)
	analyticsHandler := handlers.NewAnalyticsHandler(deps.Analytics, cfg.DefaultWindowDays, logr.Logger)
	mapHandler := handlers.NewMapHandler(deps.Samples, deps.Hub, deps.Metrics, deps.Clock, logr)
	eventsHandler := handlers.NewEventsHandler(deps.Hub, deps.Metrics)

	metricsHandler := deps.MetricsHandler
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}

	r.Get("/healthz", handlers.Health)
	r.Get("/readyz", handlers.Ready(deps.Ready))
	r.Method(http.MethodGet, "/metrics", metricsHandler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/municipalities", municipalityHandler.ListMunicipalities)

		r.Route("/samples", func(r chi.Router) {
			r.Get("/", sampleHandler.ListSamples)
			r.Get("/{id}", sampleHandler.GetSample)
			r.Get("/{id}/form", sampleHandler.GetSampleForm)

			// Protected routes
			r.Group(func(r chi.Router) {
				r.Use(authMW.JWTAuth)
				r.Post("/", sampleHandler.CreateSample)
				r.Put("/{id}", sampleHandler.UpdateSample)
				r.Delete("/{id}", sampleHandler.DeleteSample)
			})
		})

		r.Get("/map", mapHandler.GetMap)
		r.Get("/map/stream", mapHandler.StreamMap)
		r.Get("/legend", mapHandler.Legend)
		r.Get("/events", eventsHandler.Stream)

		r.Get("/analytics", analyticsHandler.GetAnalytics)
		r.Get("/dashboard/stats", analyticsHandler.GetDashboardStats)
	})

	return r
}
