package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := LoadWith(viper.New())

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "http://localhost:8080", cfg.Server.PublicOrigin)
	assert.Equal(t, 2*time.Second, cfg.RequestTimeout())
	assert.Equal(t, 5432, cfg.Postgres.Port)
	assert.Equal(t, "app_link_config_change", cfg.Listener.Channel)
	assert.Equal(t, 5*time.Second, cfg.Backoff())
	assert.Equal(t, "deeplink", cfg.Redis.KeyPrefix)
	assert.Equal(t, 720*time.Hour, cfg.CounterTTL())
	assert.Equal(t, 300, cfg.Links.QRSize)
	assert.Equal(t, 2000, cfg.Links.FallbackDelayMS)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("APP_SERVER_ADDR", ":9999")
	t.Setenv("APP_POSTGRES_HOST", "db.internal")
	t.Setenv("APP_LINKS_QR_SIZE", "512")
	t.Setenv("APP_LINKS_FALLBACK_DELAY_MS", "500")

	cfg := LoadWith(viper.New())

	assert.Equal(t, ":9999", cfg.Server.Addr)
	assert.Equal(t, "db.internal", cfg.Postgres.Host)
	assert.Equal(t, 512, cfg.Links.QRSize)
	assert.Equal(t, 2000, cfg.Links.FallbackDelayMS)
}

func TestDSN(t *testing.T) {
	var cfg Config
	cfg.Postgres.User = "u"
	cfg.Postgres.Password = "p"
	cfg.Postgres.Host = "h"
	cfg.Postgres.Port = 5433
	cfg.Postgres.DBName = "links"
	cfg.Postgres.SSLMode = "require"
	assert.Equal(t, "postgres://u:p@h:5433/links?sslmode=require", cfg.DSN())
}
