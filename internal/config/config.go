package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	// Server configuration
	Port        string `mapstructure:"PORT"`
	Mode        string `mapstructure:"GIN_MODE"`
	ServiceName string `mapstructure:"SERVICE_NAME"`
	CORSOrigins string `mapstructure:"CORS_ALLOWED_ORIGINS"`

	// Database configuration
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	SQLitePath  string `mapstructure:"SQLITE_PATH"`

	// Redis configuration
	RedisURL string `mapstructure:"REDIS_URL"`

	// Session tokens
	JWTSecret   string `mapstructure:"JWT_SECRET"`
	JWTTTLHours int    `mapstructure:"JWT_TTL_HOURS"`

	// Login throttling
	LoginMaxAttempts   int `mapstructure:"LOGIN_MAX_ATTEMPTS"`
	LoginWindowMinutes int `mapstructure:"LOGIN_WINDOW_MINUTES"`

	// Stripe configuration
	StripeSecretKey     string `mapstructure:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret string `mapstructure:"STRIPE_WEBHOOK_SECRET"`
	Currency            string `mapstructure:"CURRENCY"`

	// Brevo email configuration
	BrevoAPIKey    string `mapstructure:"BREVO_API_KEY"`
	BrevoFromEmail string `mapstructure:"BREVO_FROM_EMAIL"`
	BrevoFromName  string `mapstructure:"BREVO_FROM_NAME"`

	// RabbitMQ configuration
	AMQPURL        string `mapstructure:"AMQP_URL"`
	EventsExchange string `mapstructure:"EVENTS_EXCHANGE"`
}

var AppConfig *Config

var defaults = map[string]interface{}{
	"PORT":                  "8080",
	"GIN_MODE":              "debug",
	"SERVICE_NAME":          "LearnHub",
	"CORS_ALLOWED_ORIGINS":  "*",
	"DATABASE_URL":          "",
	"SQLITE_PATH":           "learnhub.db",
	"REDIS_URL":             "",
	"JWT_SECRET":            "",
	"JWT_TTL_HOURS":         24 * 7,
	"LOGIN_MAX_ATTEMPTS":    5,
	"LOGIN_WINDOW_MINUTES":  15,
	"STRIPE_SECRET_KEY":     "",
	"STRIPE_WEBHOOK_SECRET": "",
	"CURRENCY":              "usd",
	"BREVO_API_KEY":         "",
	"BREVO_FROM_EMAIL":      "",
	"BREVO_FROM_NAME":       "LearnHub",
	"AMQP_URL":              "",
	"EVENTS_EXCHANGE":       "learnhub.events",
}

// InitConfig loads .env (if present) and the process environment into AppConfig.
func InitConfig() error {
	cfg, err := LoadConfig()
	if err != nil {
		return err
	}
	AppConfig = cfg
	return nil
}

// LoadConfig reads configuration without touching the AppConfig global.
func LoadConfig() (*Config, error) {
	// Missing .env is fine, the environment still applies
	_ = godotenv.Load()

	for key, value := range defaults {
		viper.SetDefault(key, value)
		_ = viper.BindEnv(key)
	}
	viper.AutomaticEnv()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	cfg.Currency = strings.ToLower(cfg.Currency)

	if cfg.JWTSecret == "" {
		if cfg.Mode == "release" {
			return nil, fmt.Errorf("JWT_SECRET is required in release mode")
		}
		cfg.JWTSecret = "dev-secret-change-me"
	}
	if cfg.JWTTTLHours <= 0 {
		return nil, fmt.Errorf("JWT_TTL_HOURS must be positive, got %d", cfg.JWTTTLHours)
	}

	return &cfg, nil
}

// AllowedOrigins splits CORS_ALLOWED_ORIGINS on commas.
func (c *Config) AllowedOrigins() []string {
	var origins []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// IsDebug reports whether internal error details may be exposed to clients.
func (c *Config) IsDebug() bool {
	return c.Mode == "debug"
}
