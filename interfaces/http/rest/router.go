package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"flowsync/application/services"
	"flowsync/infrastructure/config"
	"flowsync/interfaces/http/rest/handlers"
	"flowsync/interfaces/http/rest/middleware"
	"flowsync/pkg/auth"
	"flowsync/pkg/errors"
	"flowsync/pkg/observability"
)

// Router creates and configures the HTTP router
type Router struct {
	sync    *services.SyncService
	flow    *services.FlowService
	cfg     *config.Config
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewRouter creates a new router instance
func NewRouter(
	sync *services.SyncService,
	flow *services.FlowService,
	cfg *config.Config,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *Router {
	return &Router{
		sync:    sync,
		flow:    flow,
		cfg:     cfg,
		metrics: metrics,
		logger:  logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger))

	if rt.cfg.EnableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:5173"},
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	// Health check
	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)

	if rt.cfg.EnableMetrics && rt.metrics != nil {
		router.Handle("/metrics", rt.metrics.Handler())
	}

	errorsH := errors.NewErrorHandler(rt.logger, rt.cfg.IsDevelopment())
	workflowHandler := handlers.NewWorkflowHandler(rt.sync, rt.flow, errorsH, rt.logger)
	sessionHandler := handlers.NewSessionHandler(rt.sync, errorsH, rt.logger)
	eventsHandler := handlers.NewEventsHandler(rt.sync, rt.logger)

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RateLimit(auth.NewIPRateLimiter(
			rt.cfg.RateLimitPerMinute,
			rt.cfg.RateLimitCleanupInterval,
			rt.cfg.RateLimitIdleTTL,
		)))
		r.Use(middleware.Authenticate(rt.cfg.JWTSecret, rt.cfg.JWTIssuer))

		// Document endpoints
		r.Route("/workflows", func(r chi.Router) {
			r.Get("/", workflowHandler.ListWorkflows)
			r.Post("/{workflowID}/select", workflowHandler.SelectWorkflow)
			r.Post("/{workflowID}/save", workflowHandler.SaveNow)
			r.Get("/{workflowID}/validate", workflowHandler.ValidateWorkflow)
			r.Post("/{workflowID}/execute", workflowHandler.ExecuteWorkflow)
		})
		r.Delete("/selection", workflowHandler.DeselectWorkflow)

		// Canvas endpoints
		r.Route("/nodes", func(r chi.Router) {
			r.Post("/", workflowHandler.AddNode)
			r.Put("/{nodeID}/position", workflowHandler.MoveNode)
			r.Delete("/{nodeID}", workflowHandler.RemoveNode)
		})
		r.Route("/edges", func(r chi.Router) {
			r.Post("/", workflowHandler.Connect)
			r.Delete("/{edgeID}", workflowHandler.RemoveEdge)
		})

		// Transcript endpoints
		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", sessionHandler.CreateSession)
			r.Post("/{sessionID}/select", sessionHandler.SelectSession)
			r.Get("/{sessionID}/messages", sessionHandler.ListMessages)
		})
		r.Post("/messages", sessionHandler.Submit)

		// State surface
		r.Get("/state", eventsHandler.State)
		r.Get("/events", eventsHandler.Stream)
	})

	return router
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

// readinessCheck handles readiness check requests
func (rt *Router) readinessCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}
