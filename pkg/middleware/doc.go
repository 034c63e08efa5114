// Package middleware provides HTTP middleware for bearer token
// authentication and per-client rate limiting.
//
// # Token authentication
//
// TokenAuthMiddleware verifies Keycloak access tokens against the realm JWKS:
//
//	auth := middleware.NewTokenAuthMiddleware(ctx, middleware.TokenAuthConfig{
//	    IssuerURL: "https://auth.example.com/realms/memcrypt",
//	    ClientID:  "memcrypt-console",
//	})
//	router.Handle("/api/users", auth.Handler(usersHandler))
//
// Signature, issuer and expiry are checked; the audience is not. The azp
// claim must name the console client. The token subject is passed on as the
// X-User-ID header and in the request context.
//
// # Rate limiting
//
// RateLimiter keeps token buckets in memory. DistributedRateLimiter counts
// fixed windows in Redis and fails open when Redis is unreachable. Both
// satisfy Limiter and plug into RateLimitMiddleware, which keys on client IP:
//
//	limiter := middleware.NewDistributedRateLimiter(redisClient, cfg, "ratelimit:auth")
//	router.Use(middleware.NewRateLimitMiddleware(limiter, "auth", metrics).Handler)
package middleware
