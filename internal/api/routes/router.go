package routes

import (
	"net/http"

	"github.com/AmmarJamshed/FDA-checker/internal/api/handlers"
	"github.com/AmmarJamshed/FDA-checker/internal/api/middleware"
	"github.com/AmmarJamshed/FDA-checker/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	complianceHandler *handlers.ComplianceHandler
	sseHandler        *handlers.SSEHandler

	allowedOrigins []string
	metrics        *observability.Metrics
}

// NewRouter creates a new router. metrics may be nil.
func NewRouter(
	complianceHandler *handlers.ComplianceHandler,
	allowedOrigins []string,
	metrics *observability.Metrics,
) *Router {
	return &Router{
		mux:               http.NewServeMux(),
		complianceHandler: complianceHandler,
		allowedOrigins:    allowedOrigins,
		metrics:           metrics,
	}
}

// WithEventStream exposes the evaluation event stream and its client count on
// /health. Without it the route is not registered.
func (r *Router) WithEventStream(sseHandler *handlers.SSEHandler) *Router {
	r.sseHandler = sseHandler
	r.complianceHandler.WithEventStream(sseHandler)
	return r
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	r.mux.HandleFunc("GET /health", r.complianceHandler.Health)

	// Compliance endpoints
	r.mux.HandleFunc("POST /api/compliance/evaluate", r.complianceHandler.Evaluate)
	r.mux.Handle("GET /api/compliance/vocabularies", middleware.ETag(http.HandlerFunc(r.complianceHandler.Vocabularies)))
	r.mux.Handle("GET /api/compliance/model", middleware.ETag(http.HandlerFunc(r.complianceHandler.Model)))

	if r.sseHandler != nil {
		r.mux.HandleFunc("GET /api/compliance/events", r.sseHandler.StreamEvaluations)
	}

	// Observability sits directly on the mux so it sees the matched pattern.
	var handler http.Handler = r.mux
	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)
	handler = middleware.LoggingMiddleware(handler)

	// CORS wraps everything so preflights short-circuit early
	handler = middleware.CORSMiddleware(r.allowedOrigins)(handler)

	return handler
}
