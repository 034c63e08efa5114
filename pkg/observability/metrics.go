package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Keycloak admin API metrics
	KeycloakRequestsTotal   *prometheus.CounterVec
	KeycloakRequestDuration *prometheus.HistogramVec
	KeycloakLoginsTotal     *prometheus.CounterVec

	// Email metrics
	EmailsTotal     *prometheus.CounterVec
	EmailQueueDepth prometheus.Gauge

	// Rate limiting
	RateLimitedTotal *prometheus.CounterVec

	// Business metrics
	SignupsTotal           *prometheus.CounterVec
	StatusTransitionsTotal *prometheus.CounterVec
	EmailVerificationTotal *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "console_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "console_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),

		KeycloakRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "console_keycloak_requests_total",
				Help: "Total number of Keycloak admin API calls",
			},
			[]string{"operation", "status"},
		),
		KeycloakRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "console_keycloak_request_duration_seconds",
				Help:    "Keycloak admin API call duration in seconds",
				Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"operation"},
		),
		KeycloakLoginsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "console_keycloak_admin_logins_total",
				Help: "Total number of admin session logins",
			},
			[]string{"status"},
		),

		EmailsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "console_emails_total",
				Help: "Total number of notification emails by outcome",
			},
			[]string{"template", "status"},
		),
		EmailQueueDepth: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "console_email_queue_depth",
				Help: "Number of emails waiting for delivery",
			},
		),

		RateLimitedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "console_rate_limited_total",
				Help: "Total number of requests rejected by the rate limiter",
			},
			[]string{"limiter"},
		),

		SignupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "console_signups_total",
				Help: "Total number of organization signups by outcome",
			},
			[]string{"status"},
		),
		StatusTransitionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "console_user_status_transitions_total",
				Help: "Total number of user status transitions",
			},
			[]string{"from", "to"},
		),
		EmailVerificationTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "console_email_verifications_total",
				Help: "Total number of email verification attempts by outcome",
			},
			[]string{"status"},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.KeycloakRequestsTotal,
		m.KeycloakRequestDuration,
		m.KeycloakLoginsTotal,
		m.EmailsTotal,
		m.EmailQueueDepth,
		m.RateLimitedTotal,
		m.SignupsTotal,
		m.StatusTransitionsTotal,
		m.EmailVerificationTotal,
	)

	return m
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// HTTPMetricsMiddleware instruments HTTP requests. The route label is the mux
// path template so user ids do not explode label cardinality.
func HTTPMetricsMiddleware(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rw, r)

			route := routeTemplate(r)
			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rw.statusCode)).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}

func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tmpl, err := route.GetPathTemplate(); err == nil {
			return tmpl
		}
	}
	return "unmatched"
}

// RegisterMetricsEndpoint registers the /metrics endpoint
func RegisterMetricsEndpoint(mux *http.ServeMux, registry *prometheus.Registry) {
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
}
