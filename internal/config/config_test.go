package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setBase(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost:5432/taziri?sslmode=disable")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("GO_ENV", "dev")
	t.Setenv("CARRIER_BASE_URL", "https://carrier.example")
	for _, k := range []string{"PORT", "KAFKA_TOPIC", "CARRIER_MAX_ATTEMPTS", "DISPATCH_INTERVAL", "POSTGRES_PORT"} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	setBase(t)
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "order.events", cfg.KafkaTopic)
	assert.Equal(t, 8, cfg.CarrierMaxAttempts)
	assert.Equal(t, 15*time.Second, cfg.DispatchInterval)
	assert.Equal(t, "postgres://u:p@localhost:5432/taziri?sslmode=disable", cfg.DSN())
	assert.False(t, cfg.IsProd())
}

func TestLoad_PostgresPartsWhenNoURL(t *testing.T) {
	setBase(t)
	t.Setenv("DATABASE_URL", "")
	t.Setenv("POSTGRES_USER", "app")
	t.Setenv("POSTGRES_PASSWORD", "pw")
	t.Setenv("POSTGRES_DB", "taziri")
	t.Setenv("POSTGRES_HOST", "db")
	t.Setenv("POSTGRES_PORT", "5433")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "host=db port=5433 user=app password=pw dbname=taziri sslmode=disable", cfg.DSN())
}

func TestLoad_MissingRequired(t *testing.T) {
	setBase(t)
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestLoad_BadNumber(t *testing.T) {
	setBase(t)
	t.Setenv("CARRIER_MAX_ATTEMPTS", "many")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CARRIER_MAX_ATTEMPTS")
}
