package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const defaultAIBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName                string
	AppEnv                 string
	AppPort                string
	PublicURL              string
	LogLevel               string
	DatabaseURL            string
	RedisURL               string
	NATSURL                string
	EventsChannel          string
	JWTSecret              string
	ReportsCacheTTL        time.Duration
	StripeSecretKey        string
	StripeWebhookSecret    string
	StripePriceID          string
	PaymentDefaultAmount   int64
	PaymentDefaultCurrency string
	AIAPIKey               string
	AIBaseURL              string
	AIModel                string
	AIMaxTokens            int
	AITemperature          float32
	RateLimitMax           int
	RateLimitWindow        time.Duration
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// PaymentsConfigured reports whether checkout sessions can be created.
func (c Config) PaymentsConfigured() bool {
	return c.StripeSecretKey != "" && c.StripePriceID != "" && c.PublicURL != ""
}

// WebhookConfigured reports whether inbound provider events can be verified.
func (c Config) WebhookConfigured() bool {
	return c.StripeSecretKey != "" && c.StripeWebhookSecret != ""
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("CODEGRADE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "CodeGrade API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("events.channel", "codegrade:payments")
	v.SetDefault("reports.cache_ttl", "2m")
	v.SetDefault("payment.default_amount", 499)
	v.SetDefault("payment.default_currency", "usd")
	v.SetDefault("ai.base_url", defaultAIBaseURL)
	v.SetDefault("ai.model", "gemini-2.0-flash")
	v.SetDefault("ai.max_tokens", 2000)
	v.SetDefault("ai.temperature", 0.7)
	v.SetDefault("ratelimit.max", 10)
	v.SetDefault("ratelimit.window", "1m")

	ttl, err := parseDuration(v.GetString("reports.cache_ttl"), 2*time.Minute)
	if err != nil {
		return Config{}, fmt.Errorf("invalid reports cache ttl: %w", err)
	}

	window, err := parseDuration(v.GetString("ratelimit.window"), time.Minute)
	if err != nil {
		return Config{}, fmt.Errorf("invalid rate limit window: %w", err)
	}

	cfg := Config{
		AppName:                v.GetString("app.name"),
		AppEnv:                 v.GetString("app.env"),
		AppPort:                v.GetString("app.port"),
		PublicURL:              strings.TrimRight(v.GetString("app.public_url"), "/"),
		LogLevel:               strings.ToLower(v.GetString("log.level")),
		DatabaseURL:            v.GetString("database.url"),
		RedisURL:               v.GetString("redis.url"),
		NATSURL:                v.GetString("nats.url"),
		EventsChannel:          v.GetString("events.channel"),
		JWTSecret:              v.GetString("jwt.secret"),
		ReportsCacheTTL:        ttl,
		StripeSecretKey:        v.GetString("stripe.secret_key"),
		StripeWebhookSecret:    v.GetString("stripe.webhook_secret"),
		StripePriceID:          v.GetString("stripe.price_id"),
		PaymentDefaultAmount:   v.GetInt64("payment.default_amount"),
		PaymentDefaultCurrency: strings.ToLower(v.GetString("payment.default_currency")),
		AIAPIKey:               v.GetString("ai.api_key"),
		AIBaseURL:              v.GetString("ai.base_url"),
		AIModel:                v.GetString("ai.model"),
		AIMaxTokens:            v.GetInt("ai.max_tokens"),
		AITemperature:          float32(v.GetFloat64("ai.temperature")),
		RateLimitMax:           v.GetInt("ratelimit.max"),
		RateLimitWindow:        window,
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.PaymentDefaultAmount <= 0 {
		cfg.PaymentDefaultAmount = 499
	}
	if cfg.PaymentDefaultCurrency == "" {
		cfg.PaymentDefaultCurrency = "usd"
	}

	return cfg, nil
}

func parseDuration(raw string, fallback time.Duration) (time.Duration, error) {
	if strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	return time.ParseDuration(raw)
}
