// Package api serves the planning engine over HTTP.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/sells-group/campaign-planner/internal/config"
	"github.com/sells-group/campaign-planner/internal/planner"
)

// Server holds the dependencies of the HTTP handlers.
type Server struct {
	svc      *planner.Service
	cfg      config.ServerConfig
	metrics  *Metrics
	registry *prometheus.Registry
}

// NewServer creates a Server with its own metrics registry.
func NewServer(svc *planner.Service, cfg config.ServerConfig) *Server {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return &Server{
		svc:      svc,
		cfg:      cfg,
		metrics:  NewMetrics(reg),
		registry: reg,
	}
}

// Routes configures all API routes.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.instrument)

	origins := s.cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173", "http://localhost:8080"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))

	// Health and metrics are not rate limited.
	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		if s.cfg.RateLimit > 0 {
			burst := s.cfg.RateBurst
			if burst <= 0 {
				burst = 1
			}
			r.Use(s.rateLimit(rate.NewLimiter(rate.Limit(s.cfg.RateLimit), burst)))
		}

		r.Get("/markets", s.handleMarkets)
		r.Get("/audiences", s.handleAudiences)
		r.Post("/audiences/score", s.handleScore)
		r.Post("/audiences/affinity", s.handleAffinity)
		r.Post("/recommendations", s.handleRecommend)

		r.Route("/reach", func(r chi.Router) {
			r.Post("/metrics", s.handleReachMetrics)
			r.Post("/curve", s.handleCurve)
		})

		r.Route("/budget", func(r chi.Router) {
			r.Post("/allocate", s.handleAllocate)
			r.Post("/compare", s.handleCompare)
		})

		r.Route("/plans", func(r chi.Router) {
			r.Get("/", s.handleListPlans)
			r.Post("/", s.handleSavePlan)
			r.Get("/{id}", s.handleGetPlan)
			r.Delete("/{id}", s.handleDeletePlan)
		})
	})

	return r
}
