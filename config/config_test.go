package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("ENV", "test")
	t.Setenv("JWT_SECRET", "  s3cret ")

	cfg := LoadConfig()

	assert.Equal(t, 4000, cfg.ServerPort)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.False(t, cfg.Database.UseSSL)
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
	assert.Equal(t, time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, "admin", cfg.Auth.AdminPassword)
	assert.Equal(t, "none", cfg.MQ.Backend)
	assert.Equal(t, "none", cfg.Storage.Backend)
	assert.Empty(t, cfg.Charges.Cron)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("DB_SSL", "require")
	t.Setenv("TOKEN_TTL", "30m")
	t.Setenv("CORS_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("MQ_BACKEND", "RabbitMQ")
	t.Setenv("CHARGES_CRON", " 0 3 1 * * ")

	cfg := LoadConfig()

	assert.Equal(t, 9090, cfg.ServerPort)
	assert.True(t, cfg.Database.UseSSL)
	assert.Equal(t, 30*time.Minute, cfg.Auth.TokenTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.HTTP.CORSOrigins)
	assert.Equal(t, "rabbitmq", cfg.MQ.Backend)
	assert.Equal(t, "0 3 1 * *", cfg.Charges.Cron)
}

func TestInvalidDurationFallsBack(t *testing.T) {
	t.Setenv("TOKEN_TTL", "soon")
	assert.Equal(t, time.Hour, LoadConfig().Auth.TokenTTL)
}
