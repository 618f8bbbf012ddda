package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "test",
			Password: "test",
			Database: "test_db",
		},
		Redis: RedisConfig{
			Host: "localhost",
			Port: 6379,
		},
		Gateway: GatewayConfig{
			Mode:           "test",
			RequestTimeout: 30 * time.Second,
		},
		Reconcile: ReconcileConfig{
			LockTTL: 30 * time.Second,
		},
	}
}

func TestConfig_Validate_Success(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestConfig_Validate_InvalidServerPort(t *testing.T) {
	tests := []struct {
		name string
		port int
	}{
		{"port too low", 0},
		{"port negative", -1},
		{"port too high", 99999},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Server.Port = tt.port

			err := cfg.Validate()
			assert.Error(t, err)
			assert.Contains(t, err.Error(), "server.port")
		})
	}
}

func TestConfig_Validate_InvalidGatewayMode(t *testing.T) {
	tests := []string{"", "production", "LIVE", "sandbox"}

	for _, mode := range tests {
		t.Run(mode, func(t *testing.T) {
			cfg := validConfig()
			cfg.Gateway.Mode = mode

			err := cfg.Validate()
			assert.Error(t, err)
			assert.Contains(t, err.Error(), "gateway.mode")
		})
	}
}

func TestConfig_Validate_ValidGatewayModes(t *testing.T) {
	for _, mode := range []string{"live", "test"} {
		cfg := validConfig()
		cfg.Gateway.Mode = mode
		assert.NoError(t, cfg.Validate())
	}
}

func TestConfig_Validate_InvalidGatewayTimeout(t *testing.T) {
	cfg := validConfig()
	cfg.Gateway.RequestTimeout = 0

	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "gateway.request_timeout")
}

func TestConfig_Validate_InvalidLockTTL(t *testing.T) {
	cfg := validConfig()
	cfg.Reconcile.LockTTL = 0

	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "reconcile.lock_ttl")
}

func TestConfig_Validate_MultipleErrors(t *testing.T) {
	cfg := &Config{}

	err := cfg.Validate()
	require.Error(t, err)

	errStr := err.Error()
	assert.Contains(t, errStr, "server.port")
	assert.Contains(t, errStr, "database.host")
	assert.Contains(t, errStr, "redis.port")
	assert.Contains(t, errStr, "gateway.mode")
	assert.Contains(t, errStr, "reconcile.lock_ttl")
}

func TestDatabaseConfig_DSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "db.example.com",
		Port:     5432,
		User:     "bridge",
		Password: "secret",
		Database: "unionpay",
		SSLMode:  "require",
	}

	assert.Equal(t,
		"host=db.example.com port=5432 user=bridge password=secret dbname=unionpay sslmode=require",
		cfg.DatabaseDSN(),
	)
}

func TestRedisConfig_Addr(t *testing.T) {
	cfg := RedisConfig{Host: "redis.example.com", Port: 6380}
	assert.Equal(t, "redis.example.com:6380", cfg.RedisAddr())
}
