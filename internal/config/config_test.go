package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"APP_PORT", "WEB_PORT", "API_BASE_URL", "JWT_SECRET", "SESSION_SECRET", "EVENTS_BROKER", "HTTP_TIMEOUT"} {
		t.Setenv(k, "")
	}

	cfg := Load()

	assert.Equal(t, "5000", cfg.APIPort)
	assert.Equal(t, "8080", cfg.WebPort)
	assert.Equal(t, "http://127.0.0.1:5000", cfg.APIBaseURL)
	assert.Equal(t, 10*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, "none", cfg.EventsBroker)
	assert.True(t, cfg.UsesDevSecrets())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("API_BASE_URL", "http://api.internal:9000/")
	t.Setenv("JWT_TTL", "30m")
	t.Setenv("CHANNEL_POOL_SIZE", "8")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("EVENTS_BROKER", "Kafka")
	t.Setenv("JWT_SECRET", "s1")
	t.Setenv("SESSION_SECRET", "s2")

	cfg := Load()

	assert.Equal(t, "http://api.internal:9000", cfg.APIBaseURL)
	assert.Equal(t, 30*time.Minute, cfg.JWTTTL)
	assert.Equal(t, 8, cfg.ChannelPoolSize)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "kafka", cfg.EventsBroker)
	assert.False(t, cfg.UsesDevSecrets())
}

func TestMalformedNumbersFallBack(t *testing.T) {
	t.Setenv("CHANNEL_POOL_SIZE", "many")
	t.Setenv("HTTP_TIMEOUT", "soon")
	t.Setenv("LOGIN_RATE", "x")

	cfg := Load()

	assert.Equal(t, 4, cfg.ChannelPoolSize)
	assert.Equal(t, 10*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, float64(1), cfg.LoginRate)
}
