package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(err)
	}
	cfg.PayPal.ClientID = "client-id"
	cfg.PayPal.ClientSecret = "client-secret"
	return &cfg
}

func TestValidate_Defaults(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.True(t, cfg.PayPal.Sandbox)
	assert.False(t, cfg.PayPal.Capture)
	assert.Equal(t, "webhook-processors", cfg.Worker.ConsumerGroup)
}

func TestValidate_MissingCredentials(t *testing.T) {
	cfg := validConfig()
	cfg.PayPal.ClientID = ""
	cfg.PayPal.ClientSecret = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "paypal.client_id is required")
	assert.Contains(t, err.Error(), "paypal.client_secret is required")
}

func TestValidate_BadServerPort(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Port = 70000

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port")
}

func TestValidate_BadWorker(t *testing.T) {
	cfg := validConfig()
	cfg.Worker.BatchSize = 0
	cfg.Worker.LockTTL = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "worker.batch_size")
	assert.Contains(t, err.Error(), "worker.lock_ttl")
}

func TestWebhookID_PrefersPrimarySpelling(t *testing.T) {
	cfg := PayPalConfig{AuthWebhookID: "primary", AuthWebhookIDAlias: "alias"}
	assert.Equal(t, "primary", cfg.WebhookID())

	cfg = PayPalConfig{AuthWebhookIDAlias: "alias"}
	assert.Equal(t, "alias", cfg.WebhookID())

	assert.Empty(t, (&PayPalConfig{}).WebhookID())
}

func TestDatabaseDSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host: "db", Port: 5432, User: "u", Password: "p",
		Database: "sessions", SSLMode: "disable",
	}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=sessions sslmode=disable", cfg.DatabaseDSN())
}

func TestRedisAddr(t *testing.T) {
	cfg := RedisConfig{Host: "cache", Port: 6379}
	assert.Equal(t, "cache:6379", cfg.RedisAddr())
}
