package config

import (
	"testing"
	"time"

	"github.com/memcrypt/console/pkg/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("KEYCLOAK_URL", "http://keycloak:8080")
	t.Setenv("KEYCLOAK_REALM", "master")
	t.Setenv("KEYCLOAK_ADMIN_USERNAME", "admin")
	t.Setenv("KEYCLOAK_ADMIN_PASSWORD", "secret")
	t.Setenv("KEYCLOAK_ADMIN_CLIENT_ID", "admin-cli")
	t.Setenv("APP_REALM", "memcrypt")
	t.Setenv("KEYCLOAK_CLIENT_ID", "memcrypt-frontend")
	t.Setenv("SMTP_HOST", "smtp.example.com")
	t.Setenv("SMTP_FROM", "noreply@memcrypt.io")
	t.Setenv("ADMIN_EMAIL", "ops@memcrypt.io")
}

func TestLoadConfig_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "9090", cfg.Server.HealthPort)
	assert.Equal(t, 58*time.Second, cfg.Keycloak.AuthTimeout)
	assert.Equal(t, "http://keycloak:8080", cfg.Keycloak.PublicURL)
	assert.Equal(t, "http://localhost:3000", cfg.App.URL)
	assert.Equal(t, 587, cfg.SMTP.Port)
	assert.False(t, cfg.SMTP.SSL)
	assert.Equal(t, observability.InfoLevel, cfg.Observability.LogLevel)
	assert.True(t, cfg.RateLimit.Enabled)
	assert.Empty(t, cfg.RateLimit.TrustedProxies)
}

func TestLoadConfig_Overrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("KEYCLOAK_AUTH_TIMEOUT", "30")
	t.Setenv("KEYCLOAK_PUBLIC_URL", "https://id.memcrypt.io")
	t.Setenv("APP_URL", "https://console.memcrypt.io/")
	t.Setenv("SMTP_PORT", "465")
	t.Setenv("SMTP_SSL", "true")
	t.Setenv("CONSOLE_LOG_LEVEL", "debug")
	t.Setenv("CONSOLE_ALLOWED_ORIGINS", "https://a.example, ,https://b.example")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.Keycloak.AuthTimeout)
	assert.Equal(t, "https://id.memcrypt.io", cfg.Keycloak.PublicURL)
	assert.Equal(t, "https://console.memcrypt.io", cfg.App.URL)
	assert.Equal(t, 465, cfg.SMTP.Port)
	assert.True(t, cfg.SMTP.SSL)
	assert.Equal(t, observability.DebugLevel, cfg.Observability.LogLevel)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
}

func TestLoadConfig_MissingRequired(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("KEYCLOAK_ADMIN_PASSWORD", "")
	t.Setenv("ADMIN_EMAIL", "")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "KEYCLOAK_ADMIN_PASSWORD")
	assert.Contains(t, err.Error(), "ADMIN_EMAIL")
}

func TestLoadConfig_TrustedProxies(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CONSOLE_TRUSTED_PROXIES", "10.0.0.0/8, 192.168.1.10")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, []string{"10.0.0.0/8", "192.168.1.10"}, cfg.RateLimit.TrustedProxies)

	t.Setenv("CONSOLE_TRUSTED_PROXIES", "10.0.0.0/8,lb.internal")
	_, err = LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lb.internal")
}

func TestValidate_PortClash(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CONSOLE_PORT", "9000")
	t.Setenv("CONSOLE_HEALTH_PORT", "9000")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be different")
}

func TestGetEnvSeconds(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  time.Duration
	}{
		{name: "unset uses default", value: "", want: 58 * time.Second},
		{name: "whole seconds", value: "120", want: 2 * time.Minute},
		{name: "duration syntax", value: "1m30s", want: 90 * time.Second},
		{name: "garbage uses default", value: "soon", want: 58 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_AUTH_TIMEOUT", tt.value)
			assert.Equal(t, tt.want, getEnvSeconds("TEST_AUTH_TIMEOUT", 58*time.Second))
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]observability.LogLevel{
		"debug":   observability.DebugLevel,
		"INFO":    observability.InfoLevel,
		"warning": observability.WarnLevel,
		"error":   observability.ErrorLevel,
		"verbose": observability.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseLogLevel(in), in)
	}
}

func TestLoadMailerConfig(t *testing.T) {
	t.Setenv("SMTP_HOST", "")
	t.Setenv("SMTP_FROM", "")

	_, err := LoadMailerConfig(false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SMTP_HOST")
	assert.Contains(t, err.Error(), "SMTP_FROM")

	cfg, err := LoadMailerConfig(true)
	require.NoError(t, err)
	assert.Equal(t, 587, cfg.SMTP.Port)

	t.Setenv("SMTP_HOST", "smtp.example.com")
	t.Setenv("SMTP_FROM", "noreply@memcrypt.io")
	t.Setenv("EMAIL_TEMPLATES_DIR", "/etc/console/templates")

	cfg, err = LoadMailerConfig(false)
	require.NoError(t, err)
	assert.Equal(t, "smtp.example.com", cfg.SMTP.Host)
	assert.Equal(t, "/etc/console/templates", cfg.Email.TemplatesDir)
}
