package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/memcrypt/console/pkg/accounts"
	"github.com/memcrypt/console/pkg/api"
	"github.com/memcrypt/console/pkg/async"
	"github.com/memcrypt/console/pkg/config"
	"github.com/memcrypt/console/pkg/email"
	"github.com/memcrypt/console/pkg/keycloak"
	"github.com/memcrypt/console/pkg/middleware"
	"github.com/memcrypt/console/pkg/observability"
)

// version is set at build time
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "console: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout).
		WithField("service", cfg.Observability.OTelServiceName)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = observability.WithLogger(ctx, logger)

	providers, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
	}, logger)
	if err != nil {
		return fmt.Errorf("init opentelemetry: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(registry)

	// Identity provider
	session := keycloak.NewSession(keycloak.SessionConfig{
		BaseURL:     cfg.Keycloak.URL,
		Realm:       cfg.Keycloak.Realm,
		Username:    cfg.Keycloak.AdminUsername,
		Password:    cfg.Keycloak.AdminPassword,
		ClientID:    cfg.Keycloak.AdminClientID,
		AppRealm:    cfg.Keycloak.AppRealm,
		AuthTimeout: cfg.Keycloak.AuthTimeout,
		HTTPTimeout: cfg.Keycloak.HTTPTimeout,
	}, logger, metrics)
	adminClient := keycloak.NewAdminClient(session, metrics)
	// Log in early so the first request does not pay for it; failures are
	// retried on demand
	async.SafeGo(ctx, cfg.Keycloak.HTTPTimeout, "keycloak warmup", func(ctx context.Context) error {
		_, err := session.AccessToken(ctx)
		return err
	})

	// Outbound mail
	templates, err := email.NewTemplateStore(cfg.Email.TemplatesDir, logger)
	if err != nil {
		return fmt.Errorf("load email templates: %w", err)
	}
	logger.WithField("templates", templates.Names()).Info("Email templates loaded")
	if err := templates.Watch(ctx); err != nil {
		logger.WithError(err).Warn("Email template hot reload disabled")
	}

	transport, err := email.NewSMTPTransport(email.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		SSL:      cfg.SMTP.SSL,
		Username: cfg.SMTP.User,
		Password: cfg.SMTP.Password,
		Timeout:  cfg.SMTP.SendTimeout,
	})
	if err != nil {
		return fmt.Errorf("configure smtp: %w", err)
	}
	sender := email.NewSender(templates, transport, cfg.SMTP.From, logger, metrics)
	// The queue outlives ctx so pending mail can drain during shutdown
	queue := email.NewQueue(context.WithoutCancel(ctx), sender, email.QueueConfig{
		Workers:     cfg.Email.QueueWorkers,
		Size:        cfg.Email.QueueSize,
		SendTimeout: cfg.SMTP.SendTimeout,
	}, logger, metrics)

	service := accounts.NewService(adminClient, queue, accounts.Config{
		AppURL:     cfg.App.URL,
		AdminEmail: cfg.App.AdminEmail,
	}, logger, metrics)

	// Request gating
	issuer := strings.TrimRight(cfg.Keycloak.PublicURL, "/") + "/realms/" + cfg.Keycloak.AppRealm
	tokenAuth := middleware.NewTokenAuthMiddleware(ctx, middleware.TokenAuthConfig{
		IssuerURL: issuer,
		JWKSURL:   middleware.JWKSURLFor(issuer),
		ClientID:  cfg.Keycloak.ClientID,
	})

	health := observability.NewHealthChecker(version)
	health.Register("keycloak", true, adminClient.Ping)

	var redisClient *redis.Client
	var rateLimit api.Middleware
	if cfg.RateLimit.Enabled {
		limits := &middleware.RateLimitConfig{
			RequestsPerWindow: cfg.RateLimit.RequestsPerWindow,
			WindowDuration:    cfg.RateLimit.Window,
			BurstSize:         cfg.RateLimit.Burst,
		}

		var limiter middleware.Limiter
		if cfg.RateLimit.RedisURL != "" {
			redisClient, err = middleware.NewRedisClient(ctx, cfg.RateLimit.RedisURL)
			if err != nil {
				return fmt.Errorf("connect rate limit store: %w", err)
			}
			distributed := middleware.NewDistributedRateLimiter(redisClient, limits, "console:ratelimit:auth")
			health.Register("redis", false, distributed.HealthCheck)
			limiter = distributed
		} else {
			memory := middleware.NewRateLimiter(limits)
			memory.StartCleanup(ctx)
			limiter = memory
		}
		trusted, err := middleware.ParseTrustedProxies(cfg.RateLimit.TrustedProxies)
		if err != nil {
			return err
		}
		limit := middleware.NewRateLimitMiddleware(limiter, "auth", metrics)
		limit.SetTrustedProxies(trusted)
		rateLimit = limit.Handler
	}

	server := api.NewServer(api.Config{
		Service:        service,
		Auth:           tokenAuth.Handler,
		RateLimit:      rateLimit,
		Metrics:        metrics,
		Logger:         logger,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
	})

	apiServer := newAPIServer(ctx, cfg.Server, server)

	healthMux := http.NewServeMux()
	observability.RegisterHealthRoutes(healthMux, health)
	if cfg.Observability.MetricsEnabled {
		observability.RegisterMetricsEndpoint(healthMux, registry)
	}
	healthServer := &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, cfg.Server.HealthPort),
		Handler:           healthMux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	shutdown := observability.NewShutdownManager(logger, cfg.Server.ShutdownTimeout, apiServer, healthServer)
	shutdown.Register("opentelemetry", func(ctx context.Context) error {
		return observability.ShutdownOTel(ctx, providers, logger)
	})
	if redisClient != nil {
		shutdown.Register("redis", func(context.Context) error {
			return redisClient.Close()
		})
	}
	shutdown.Register("email queue", func(ctx context.Context) error {
		timeout := cfg.Server.ShutdownTimeout
		if deadline, ok := ctx.Deadline(); ok {
			timeout = time.Until(deadline)
		}
		return queue.Shutdown(timeout)
	})

	serveErr := make(chan error, 2)
	for _, srv := range []*http.Server{apiServer, healthServer} {
		go func(srv *http.Server) {
			defer observability.RecoverPanic(logger, "http server "+srv.Addr)
			logger.WithField("addr", srv.Addr).Info("HTTP server listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serveErr <- fmt.Errorf("serve %s: %w", srv.Addr, err)
			}
		}(srv)
	}

	logRoutes(logger, server.Router())

	select {
	case <-ctx.Done():
		return shutdown.WaitForShutdown(ctx)
	case err := <-serveErr:
		logger.WithError(err).Error("HTTP server failed")
		stop()
		if shutdownErr := shutdown.Shutdown(); shutdownErr != nil {
			return errors.Join(err, shutdownErr)
		}
		return err
	}
}

func logRoutes(logger *observability.Logger, router *mux.Router) {
	_ = router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		tmpl, err := route.GetPathTemplate()
		if err != nil {
			return nil
		}
		methods, _ := route.GetMethods()
		logger.WithFields(map[string]interface{}{
			"path":    tmpl,
			"methods": methods,
		}).Debug("Route registered")
		return nil
	})
}

// newAPIServer roots requests in ctx's values but not its cancellation, so
// in-flight requests keep running while Shutdown drains them after a signal.
func newAPIServer(ctx context.Context, cfg config.ServerConfig, handler http.Handler) *http.Server {
	base := context.WithoutCancel(ctx)
	return &http.Server{
		Addr:         net.JoinHostPort(cfg.Host, cfg.Port),
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
		BaseContext:  func(net.Listener) context.Context { return base },
	}
}
