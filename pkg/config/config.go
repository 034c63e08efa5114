package config

import (
	"errors"
	"fmt"
	"net/netip"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/memcrypt/console/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Keycloak      KeycloakConfig
	App           AppConfig
	SMTP          SMTPConfig
	Email         EmailConfig
	RateLimit     RateLimitConfig
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	MaxBodyBytes    int64
	AllowedOrigins  []string

	// Health/metrics server (separate port for k8s probes)
	HealthPort string
}

// KeycloakConfig holds the identity provider settings
type KeycloakConfig struct {
	// URL is the base URL used for admin API and token calls
	URL string
	// PublicURL is the URL browsers see; it forms the token issuer. Defaults to URL.
	PublicURL string
	// Realm is the realm the admin account logs into
	Realm         string
	AdminUsername string
	AdminPassword string
	AdminClientID string
	// AppRealm is the realm whose organizations and users are managed
	AppRealm string
	// ClientID is the console frontend client; bearer tokens must carry it as azp
	ClientID    string
	AuthTimeout time.Duration
	HTTPTimeout time.Duration
}

// AppConfig holds console-level settings
type AppConfig struct {
	URL        string
	AdminEmail string
}

// SMTPConfig holds mail transport settings
type SMTPConfig struct {
	Host        string
	Port        int
	SSL         bool
	User        string
	Password    string
	From        string
	SendTimeout time.Duration
}

// EmailConfig holds notification dispatch settings
type EmailConfig struct {
	TemplatesDir string
	QueueWorkers int
	QueueSize    int
}

// RateLimitConfig holds settings for the public endpoint limiter
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerWindow int
	Window            time.Duration
	Burst             int
	RedisURL          string
	// TrustedProxies are CIDRs or addresses whose X-Forwarded-For is believed
	TrustedProxies []string
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel observability.LogLevel

	MetricsEnabled bool

	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		Keycloak:      loadKeycloakConfig(),
		App:           loadAppConfig(),
		SMTP:          loadSMTPConfig(),
		Email:         loadEmailConfig(),
		RateLimit:     loadRateLimitConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("CONSOLE_HOST", "0.0.0.0"),
		Port:            getEnv("CONSOLE_PORT", "8080"),
		ReadTimeout:     getEnvDuration("CONSOLE_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("CONSOLE_WRITE_TIMEOUT", 30*time.Second),
		IdleTimeout:     getEnvDuration("CONSOLE_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("CONSOLE_SHUTDOWN_TIMEOUT", 30*time.Second),
		MaxBodyBytes:    getEnvInt64("CONSOLE_MAX_BODY_BYTES", 1<<20),
		AllowedOrigins:  getEnvList("CONSOLE_ALLOWED_ORIGINS"),
		HealthPort:      getEnv("CONSOLE_HEALTH_PORT", "9090"),
	}
}

func loadKeycloakConfig() KeycloakConfig {
	url := os.Getenv("KEYCLOAK_URL")
	return KeycloakConfig{
		URL:           url,
		PublicURL:     getEnv("KEYCLOAK_PUBLIC_URL", getEnv("NEXT_PUBLIC_KEYCLOAK_URL", url)),
		Realm:         os.Getenv("KEYCLOAK_REALM"),
		AdminUsername: os.Getenv("KEYCLOAK_ADMIN_USERNAME"),
		AdminPassword: os.Getenv("KEYCLOAK_ADMIN_PASSWORD"),
		AdminClientID: os.Getenv("KEYCLOAK_ADMIN_CLIENT_ID"),
		AppRealm:      os.Getenv("APP_REALM"),
		ClientID:      getEnv("KEYCLOAK_CLIENT_ID", os.Getenv("NEXT_PUBLIC_KEYCLOAK_CLIENT_ID")),
		AuthTimeout:   getEnvSeconds("KEYCLOAK_AUTH_TIMEOUT", 58*time.Second),
		HTTPTimeout:   getEnvDuration("KEYCLOAK_HTTP_TIMEOUT", 15*time.Second),
	}
}

func loadAppConfig() AppConfig {
	return AppConfig{
		URL:        strings.TrimRight(getEnv("APP_URL", "http://localhost:3000"), "/"),
		AdminEmail: os.Getenv("ADMIN_EMAIL"),
	}
}

func loadSMTPConfig() SMTPConfig {
	return SMTPConfig{
		Host:        os.Getenv("SMTP_HOST"),
		Port:        getEnvInt("SMTP_PORT", 587),
		SSL:         getEnvBool("SMTP_SSL", false),
		User:        os.Getenv("SMTP_USER"),
		Password:    os.Getenv("SMTP_PASSWORD"),
		From:        os.Getenv("SMTP_FROM"),
		SendTimeout: getEnvDuration("SMTP_SEND_TIMEOUT", 30*time.Second),
	}
}

func loadEmailConfig() EmailConfig {
	return EmailConfig{
		TemplatesDir: os.Getenv("EMAIL_TEMPLATES_DIR"),
		QueueWorkers: getEnvInt("EMAIL_QUEUE_WORKERS", 2),
		QueueSize:    getEnvInt("EMAIL_QUEUE_SIZE", 100),
	}
}

func loadRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Enabled:           getEnvBool("CONSOLE_RATE_LIMIT_ENABLED", true),
		RequestsPerWindow: getEnvInt("CONSOLE_RATE_LIMIT_REQUESTS", 20),
		Window:            getEnvDuration("CONSOLE_RATE_LIMIT_WINDOW", time.Minute),
		Burst:             getEnvInt("CONSOLE_RATE_LIMIT_BURST", 5),
		RedisURL:          os.Getenv("CONSOLE_REDIS_URL"),
		TrustedProxies:    getEnvList("CONSOLE_TRUSTED_PROXIES"),
	}
}

func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:           parseLogLevel(getEnv("CONSOLE_LOG_LEVEL", "info")),
		MetricsEnabled:     getEnvBool("CONSOLE_METRICS_ENABLED", true),
		OTelEnabled:        getEnvBool("CONSOLE_OTEL_ENABLED", false),
		OTelEndpoint:       getEnv("CONSOLE_OTEL_ENDPOINT", "localhost:4317"),
		OTelServiceName:    getEnv("CONSOLE_OTEL_SERVICE_NAME", "memcrypt-console"),
		OTelServiceVersion: getEnv("CONSOLE_OTEL_SERVICE_VERSION", "1.0.0"),
		OTelInsecure:       getEnvBool("CONSOLE_OTEL_INSECURE", true),
	}
}

// Validate checks if the configuration is valid. All missing required
// variables are reported together.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port == "" {
		errs = append(errs, errors.New("server port is required"))
	}
	if c.Server.HealthPort == "" {
		errs = append(errs, errors.New("health port is required"))
	}
	if c.Server.Port != "" && c.Server.Port == c.Server.HealthPort {
		errs = append(errs, errors.New("server port and health port must be different"))
	}

	required := []struct {
		name  string
		value string
	}{
		{"KEYCLOAK_URL", c.Keycloak.URL},
		{"KEYCLOAK_REALM", c.Keycloak.Realm},
		{"KEYCLOAK_ADMIN_USERNAME", c.Keycloak.AdminUsername},
		{"KEYCLOAK_ADMIN_PASSWORD", c.Keycloak.AdminPassword},
		{"KEYCLOAK_ADMIN_CLIENT_ID", c.Keycloak.AdminClientID},
		{"APP_REALM", c.Keycloak.AppRealm},
		{"KEYCLOAK_CLIENT_ID", c.Keycloak.ClientID},
		{"SMTP_HOST", c.SMTP.Host},
		{"SMTP_FROM", c.SMTP.From},
		{"ADMIN_EMAIL", c.App.AdminEmail},
	}
	for _, r := range required {
		if r.value == "" {
			errs = append(errs, fmt.Errorf("missing required environment variable: %s", r.name))
		}
	}

	if c.Keycloak.URL != "" {
		if _, err := url.ParseRequestURI(c.Keycloak.URL); err != nil {
			errs = append(errs, fmt.Errorf("KEYCLOAK_URL is not a valid URL: %w", err))
		}
	}
	if c.Keycloak.AuthTimeout <= 0 {
		errs = append(errs, errors.New("KEYCLOAK_AUTH_TIMEOUT must be positive"))
	}
	if c.SMTP.Port <= 0 || c.SMTP.Port > 65535 {
		errs = append(errs, fmt.Errorf("SMTP_PORT out of range: %d", c.SMTP.Port))
	}
	if c.Email.QueueWorkers < 1 {
		errs = append(errs, errors.New("EMAIL_QUEUE_WORKERS must be at least 1"))
	}

	if c.RateLimit.Enabled {
		if c.RateLimit.RequestsPerWindow < 1 {
			errs = append(errs, errors.New("CONSOLE_RATE_LIMIT_REQUESTS must be at least 1"))
		}
		if c.RateLimit.Window <= 0 {
			errs = append(errs, errors.New("CONSOLE_RATE_LIMIT_WINDOW must be positive"))
		}
		for _, proxy := range c.RateLimit.TrustedProxies {
			if !validProxy(proxy) {
				errs = append(errs, fmt.Errorf("CONSOLE_TRUSTED_PROXIES entry is not an address or CIDR: %s", proxy))
			}
		}
	}

	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			errs = append(errs, errors.New("OpenTelemetry endpoint is required when OTel is enabled"))
		}
		if c.Observability.OTelServiceName == "" {
			errs = append(errs, errors.New("OpenTelemetry service name is required when OTel is enabled"))
		}
	}

	return errors.Join(errs...)
}

// MailerConfig is the subset of settings the standalone mailer needs
type MailerConfig struct {
	SMTP     SMTPConfig
	Email    EmailConfig
	LogLevel observability.LogLevel
}

// LoadMailerConfig loads SMTP and template settings from the environment.
// SMTP_HOST and SMTP_FROM are only required when mail is actually sent.
func LoadMailerConfig(dryRun bool) (*MailerConfig, error) {
	cfg := &MailerConfig{
		SMTP:     loadSMTPConfig(),
		Email:    loadEmailConfig(),
		LogLevel: parseLogLevel(getEnv("CONSOLE_LOG_LEVEL", "info")),
	}

	var errs []error
	if !dryRun {
		if cfg.SMTP.Host == "" {
			errs = append(errs, errors.New("missing required environment variable: SMTP_HOST"))
		}
		if cfg.SMTP.From == "" {
			errs = append(errs, errors.New("missing required environment variable: SMTP_FROM"))
		}
	}
	if cfg.SMTP.Port <= 0 || cfg.SMTP.Port > 65535 {
		errs = append(errs, fmt.Errorf("SMTP_PORT out of range: %d", cfg.SMTP.Port))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// parseLogLevel parses a log level string
func parseLogLevel(level string) observability.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return observability.DebugLevel
	case "warn", "warning":
		return observability.WarnLevel
	case "error":
		return observability.ErrorLevel
	default:
		return observability.InfoLevel
	}
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvInt64 returns an int64 environment variable or a default
func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvSeconds reads a whole number of seconds, the unit the frontend
// deployment already uses for KEYCLOAK_AUTH_TIMEOUT. Duration syntax ("90s")
// is accepted too.
func getEnvSeconds(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}
	return defaultValue
}

// getEnvList splits a comma separated variable, dropping empty entries
func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func validProxy(entry string) bool {
	if _, err := netip.ParsePrefix(entry); err == nil {
		return true
	}
	_, err := netip.ParseAddr(entry)
	return err == nil
}
