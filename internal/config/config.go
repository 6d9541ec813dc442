package config

import (
	"errors"
	"log"
	"time"

	"github.com/spf13/viper"
)

// Config is the typed view of the service settings.
type Config struct {
	AppPort string

	DatabaseDriver string
	DatabaseDSN    string

	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	RabbitMQURL string

	WebhookSecret  string
	GatewayTimeout time.Duration
	// Provider endpoints. An empty endpoint keeps the provider in simulation mode.
	ProviderEndpoints map[string]string

	ReconcileInterval   time.Duration
	ReconcileStaleAfter time.Duration
	ReconcileBatch      int
	ReconcileWorkers    int

	SeedDemo bool
}

// SetDefaults registers every key with its default value on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", ":8080")
	v.SetDefault("DATABASE_DRIVER", "sqlite")
	v.SetDefault("DATABASE_DSN", "jengamart.db")
	v.SetDefault("JWT_SECRET", "change-me")
	v.SetDefault("ACCESS_TOKEN_TTL_MIN", 60)
	v.SetDefault("REFRESH_TOKEN_TTL_DAYS", 7)
	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("WEBHOOK_SECRET", "")
	v.SetDefault("GATEWAY_TIMEOUT", "10s")
	v.SetDefault("MPESA_ENDPOINT", "")
	v.SetDefault("TIGOPESA_ENDPOINT", "")
	v.SetDefault("AIRTELMONEY_ENDPOINT", "")
	v.SetDefault("RECONCILE_INTERVAL", "5m")
	v.SetDefault("RECONCILE_STALE_AFTER", "5m")
	v.SetDefault("RECONCILE_BATCH", 50)
	v.SetDefault("RECONCILE_WORKERS", 5)
	v.SetDefault("SEED_DEMO", false)
}

// Load reads defaults, an optional config.yaml in the working directory and the environment,
// in increasing order of precedence.
func Load() (*Config, error) {
	v := viper.New()
	SetDefaults(v)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		log.Println("No config file found, using defaults and environment")
	}
	return FromViper(v), nil
}

// FromViper builds a Config from an already populated viper instance.
func FromViper(v *viper.Viper) *Config {
	return &Config{
		AppPort:         v.GetString("APP_PORT"),
		DatabaseDriver:  v.GetString("DATABASE_DRIVER"),
		DatabaseDSN:     v.GetString("DATABASE_DSN"),
		JWTSecret:       v.GetString("JWT_SECRET"),
		AccessTokenTTL:  time.Duration(v.GetInt("ACCESS_TOKEN_TTL_MIN")) * time.Minute,
		RefreshTokenTTL: time.Duration(v.GetInt("REFRESH_TOKEN_TTL_DAYS")) * 24 * time.Hour,
		RabbitMQURL:     v.GetString("RABBITMQ_URL"),
		WebhookSecret:   v.GetString("WEBHOOK_SECRET"),
		GatewayTimeout:  v.GetDuration("GATEWAY_TIMEOUT"),
		ProviderEndpoints: map[string]string{
			"mpesa":       v.GetString("MPESA_ENDPOINT"),
			"tigopesa":    v.GetString("TIGOPESA_ENDPOINT"),
			"airtelmoney": v.GetString("AIRTELMONEY_ENDPOINT"),
		},
		ReconcileInterval:   v.GetDuration("RECONCILE_INTERVAL"),
		ReconcileStaleAfter: v.GetDuration("RECONCILE_STALE_AFTER"),
		ReconcileBatch:      v.GetInt("RECONCILE_BATCH"),
		ReconcileWorkers:    v.GetInt("RECONCILE_WORKERS"),
		SeedDemo:            v.GetBool("SEED_DEMO"),
	}
}
