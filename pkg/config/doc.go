// Package config provides application configuration management from environment variables.
//
// # Overview
//
// Identity provider, mail and console variables keep the names the frontend
// deployment already exports; server and observability settings use the
// CONSOLE_ prefix.
//
// Identity provider (required unless noted):
//
//	KEYCLOAK_URL="http://keycloak:8080"
//	KEYCLOAK_PUBLIC_URL="https://id.memcrypt.io"   # optional, token issuer host
//	KEYCLOAK_REALM="master"
//	KEYCLOAK_ADMIN_USERNAME="admin"
//	KEYCLOAK_ADMIN_PASSWORD="..."
//	KEYCLOAK_ADMIN_CLIENT_ID="admin-cli"
//	KEYCLOAK_CLIENT_ID="memcrypt-frontend"
//	KEYCLOAK_AUTH_TIMEOUT="58"                     # optional, seconds
//	APP_REALM="memcrypt"
//
// Console and mail:
//
//	APP_URL="https://console.memcrypt.io"
//	ADMIN_EMAIL="ops@memcrypt.io"
//	SMTP_HOST="smtp.example.com"
//	SMTP_PORT="587"
//	SMTP_SSL="false"
//	SMTP_USER / SMTP_PASSWORD
//	SMTP_FROM="noreply@memcrypt.io"
//	EMAIL_TEMPLATES_DIR="/etc/console/templates"   # optional, embedded defaults otherwise
//
// Server, rate limiting and observability:
//
//	CONSOLE_PORT="8080"
//	CONSOLE_HEALTH_PORT="9090"
//	CONSOLE_RATE_LIMIT_REQUESTS="20"
//	CONSOLE_RATE_LIMIT_WINDOW="1m"
//	CONSOLE_REDIS_URL="redis://redis:6379/0"       # optional, shared limiter
//	CONSOLE_TRUSTED_PROXIES="10.0.0.0/8"           # optional, honour X-Forwarded-For from these peers
//	CONSOLE_LOG_LEVEL="info"
//	CONSOLE_OTEL_ENABLED="false"
//
// # Usage Example
//
//	cfg, err := config.LoadConfig()
//	if err != nil {
//		log.Fatal(err)
//	}
//
// The console-mailer binary only needs the SMTP and EMAIL_* variables and
// loads them with LoadMailerConfig.
package config
