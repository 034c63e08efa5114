// Package observability provides structured logging, Prometheus metrics,
// OpenTelemetry tracing, health probes and graceful shutdown.
//
// # Structured Logging
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.WithField("org", orgName).Info("Organization created")
//
// Request-scoped logging picks up the request id and verified subject placed
// in the context by the HTTP middleware:
//
//	observability.FromContext(r.Context()).WithError(err).Error("Signup failed")
//
// # Prometheus Metrics
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//	metrics.SignupsTotal.WithLabelValues("success").Inc()
//
// # Health Checks
//
//	checker := observability.NewHealthChecker(version)
//	checker.Register("keycloak", true, session.Ping)
//	checker.Register("redis", false, func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
//
// # Related Packages
//
//   - pkg/httputil: logging and request id middleware
//   - pkg/config: observability configuration
package observability
