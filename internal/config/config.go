package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration (file + env overrides)
type Config struct {
	Server struct {
		Addr             string `mapstructure:"addr"`
		LogLevel         string `mapstructure:"log_level"`
		PublicOrigin     string `mapstructure:"public_origin"`
		RequestTimeoutMS int    `mapstructure:"request_timeout_ms"`
	} `mapstructure:"server"`

	Postgres struct {
		Host         string `mapstructure:"host"`
		Port         int    `mapstructure:"port"`
		User         string `mapstructure:"user"`
		Password     string `mapstructure:"password"`
		DBName       string `mapstructure:"db_name"`
		SSLMode      string `mapstructure:"ssl_mode"`
		MaxOpenConns int    `mapstructure:"max_open_conns"`
		MaxIdleConns int    `mapstructure:"max_idle_conns"`
	} `mapstructure:"postgres"`

	Listener struct {
		Channel          string `mapstructure:"channel"`
		ReconnectSeconds int    `mapstructure:"reconnect_seconds"`
	} `mapstructure:"listener"`

	Redis struct {
		URL             string `mapstructure:"url"`
		KeyPrefix       string `mapstructure:"key_prefix"`
		CounterTTLHours int    `mapstructure:"counter_ttl_hours"`
	} `mapstructure:"redis"`

	Links struct {
		QREndpoint      string `mapstructure:"qr_endpoint"`
		QRSize          int    `mapstructure:"qr_size"`
		FallbackDelayMS int    `mapstructure:"fallback_delay_ms"`
		SeedFile        string `mapstructure:"seed_file"`
	} `mapstructure:"links"`
}

const fallbackDelayMS = 2000

// envKeys are bound explicitly so Unmarshal sees env-only values.
var envKeys = []string{
	"server.addr", "server.log_level", "server.public_origin", "server.request_timeout_ms",
	"postgres.host", "postgres.port", "postgres.user", "postgres.password", "postgres.db_name",
	"postgres.ssl_mode", "postgres.max_open_conns", "postgres.max_idle_conns",
	"listener.channel", "listener.reconnect_seconds",
	"redis.url", "redis.key_prefix", "redis.counter_ttl_hours",
	"links.qr_endpoint", "links.qr_size", "links.fallback_delay_ms", "links.seed_file",
}

// Load reads configs/application.yaml (optional) and APP_* env overrides.
func Load() Config {
	return LoadWith(viper.New())
}

// LoadWith decodes configuration from v, which may already carry bound
// flags.
func LoadWith(v *viper.Viper) Config {
	v.SetConfigName("application")
	v.SetConfigType("yaml")
	v.AddConfigPath("configs")
	_ = v.ReadInConfig() // optional; env can fully configure

	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, k := range envKeys {
		_ = v.BindEnv(k)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Errorf("unable to decode config: %w", err))
	}
	validate(&cfg)
	return cfg
}

func validate(c *Config) {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if c.Server.PublicOrigin == "" {
		c.Server.PublicOrigin = "http://localhost:8080"
	}
	if c.Server.RequestTimeoutMS <= 0 {
		c.Server.RequestTimeoutMS = 2000
	}
	if c.Postgres.Port == 0 {
		c.Postgres.Port = 5432
	}
	if c.Postgres.SSLMode == "" {
		c.Postgres.SSLMode = "disable"
	}
	if c.Postgres.MaxOpenConns == 0 {
		c.Postgres.MaxOpenConns = 10
	}
	if c.Postgres.MaxIdleConns == 0 {
		c.Postgres.MaxIdleConns = 10
	}
	if c.Listener.Channel == "" {
		c.Listener.Channel = "app_link_config_change"
	}
	if c.Listener.ReconnectSeconds <= 0 {
		c.Listener.ReconnectSeconds = 5
	}
	if c.Redis.KeyPrefix == "" {
		c.Redis.KeyPrefix = "deeplink"
	}
	if c.Redis.CounterTTLHours <= 0 {
		c.Redis.CounterTTLHours = 720
	}
	if c.Links.QREndpoint == "" {
		c.Links.QREndpoint = "https://api.qrserver.com/v1/create-qr-code/"
	}
	if c.Links.QRSize <= 0 {
		c.Links.QRSize = 300
	}
	// the redirect script and controller share a fixed delay
	c.Links.FallbackDelayMS = fallbackDelayMS
}

func (c Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Postgres.User,
		c.Postgres.Password,
		c.Postgres.Host,
		c.Postgres.Port,
		c.Postgres.DBName,
		c.Postgres.SSLMode,
	)
}

func (c Config) Backoff() time.Duration { return time.Duration(c.Listener.ReconnectSeconds) * time.Second }

func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.RequestTimeoutMS) * time.Millisecond
}

func (c Config) CounterTTL() time.Duration { return time.Duration(c.Redis.CounterTTLHours) * time.Hour }
