package api

import (
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/memcrypt/console/pkg/httputil"
	"github.com/memcrypt/console/pkg/observability"
)

// Middleware wraps a handler
type Middleware func(http.Handler) http.Handler

// Config wires the API server
type Config struct {
	Service AccountService
	// Auth gates /api/users; when nil every gated request is refused
	Auth Middleware
	// RateLimit, when set, guards the public /api/auth endpoints
	RateLimit Middleware

	Metrics        *observability.Metrics
	Logger         *observability.Logger
	AllowedOrigins []string
	MaxBodyBytes   int64
}

// Server is the console HTTP API
type Server struct {
	router  *mux.Router
	handler http.Handler
}

// NewServer builds the router and its middleware chain
func NewServer(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = observability.NewLogger(observability.ErrorLevel, io.Discard)
	}
	if cfg.Auth == nil {
		cfg.Auth = denyAll
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 1 << 20
	}

	router := mux.NewRouter()
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteNotFoundError(w, "Not found")
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteErrorMessage(w, http.StatusMethodNotAllowed, "Method not allowed")
	})
	if cfg.Metrics != nil {
		router.Use(mux.MiddlewareFunc(observability.HTTPMetricsMiddleware(cfg.Metrics)))
	}

	public := router.NewRoute().Subrouter()
	if cfg.RateLimit != nil {
		public.Use(mux.MiddlewareFunc(cfg.RateLimit))
	}
	NewAuthHandlers(cfg.Service).RegisterRoutes(public)

	gated := router.NewRoute().Subrouter()
	gated.Use(mux.MiddlewareFunc(cfg.Auth))
	NewUserHandlers(cfg.Service).RegisterRoutes(gated)

	chain := httputil.Chain(
		httputil.RequestIDMiddleware,
		httputil.LoggingMiddleware(cfg.Logger),
		httputil.RecoveryMiddleware,
		httputil.CORSMiddleware(cfg.AllowedOrigins),
		httputil.MaxBytesMiddleware(cfg.MaxBodyBytes),
	)

	return &Server{
		router:  router,
		handler: otelhttp.NewHandler(chain(router), "console.api"),
	}
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Router exposes the underlying router
func (s *Server) Router() *mux.Router {
	return s.router
}

func denyAll(http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteUnauthorized(w, "No token provided")
	})
}
