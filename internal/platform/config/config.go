package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	minOfferTTL = 8 * time.Minute
	maxOfferTTL = 15 * time.Minute
)

type Config struct {
	// Server
	HTTPAddr    string
	MetricsAddr string
	StoreDriver string

	// Postgres
	DBHost         string
	DBPort         string
	DBUser         string
	DBPassword     string
	DBName         string
	DBMaxOpenConns int

	// Redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Admission
	OfferTTL             time.Duration
	OfferTTLUnclamped    bool
	RateLimitWindow      time.Duration
	RateLimitCount       int
	RateLimitPerEvent    bool
	AvailabilityCacheTTL time.Duration

	// Background work
	SweepInterval     time.Duration
	ReconcileInterval time.Duration
	SweepMaxRetries   int
	SweepRetryBackoff time.Duration

	// Notifications
	KafkaBrokers       []string
	KafkaTopic         string
	PubNubPublishKey   string
	PubNubSubscribeKey string
	PubNubSecretKey    string

	// Auth and payments
	JWTSecret         string
	PaystackSecretKey string

	// Logging
	LogLevel  string
	LogFormat string
}

// Load reads the environment, after merging an optional .env file.
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		HTTPAddr:    getEnv("HTTP_ADDR", ":8080"),
		MetricsAddr: getEnv("METRICS_ADDR", ":9090"),
		StoreDriver: getEnv("STORE_DRIVER", "postgres"),

		DBHost:         getEnv("DB_HOST", "localhost"),
		DBPort:         getEnv("DB_PORT", "5432"),
		DBUser:         getEnv("DB_USER", "postgres"),
		DBPassword:     getEnv("DB_PASSWORD", ""),
		DBName:         getEnv("DB_NAME", "ticket_admission"),
		DBMaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		OfferTTL:             getEnvAsDuration("OFFER_TTL", "15m"),
		OfferTTLUnclamped:    getEnvAsBool("OFFER_TTL_UNCLAMPED", false),
		RateLimitWindow:      getEnvAsDuration("RATE_LIMIT_WINDOW", "30m"),
		RateLimitCount:       getEnvAsInt("RATE_LIMIT_COUNT", 3),
		RateLimitPerEvent:    getEnvAsBool("RATE_LIMIT_PER_EVENT", false),
		AvailabilityCacheTTL: getEnvAsDuration("AVAILABILITY_CACHE_TTL", "5s"),

		SweepInterval:     getEnvAsDuration("SWEEP_INTERVAL", "30s"),
		ReconcileInterval: getEnvAsDuration("RECONCILE_INTERVAL", "10m"),
		SweepMaxRetries:   getEnvAsInt("SWEEP_MAX_RETRIES", 3),
		SweepRetryBackoff: getEnvAsDuration("SWEEP_RETRY_BACKOFF", "500ms"),

		KafkaBrokers:       getEnvAsList("KAFKA_BROKERS"),
		KafkaTopic:         getEnv("KAFKA_TOPIC", "admission-events"),
		PubNubPublishKey:   getEnv("PUBNUB_PUBLISH_KEY", ""),
		PubNubSubscribeKey: getEnv("PUBNUB_SUBSCRIBE_KEY", ""),
		PubNubSecretKey:    getEnv("PUBNUB_SECRET_KEY", ""),

		JWTSecret:         getEnv("JWT_SECRET", ""),
		PaystackSecretKey: getEnv("PAYSTACK_SECRET_KEY", ""),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if !cfg.OfferTTLUnclamped {
		cfg.OfferTTL = min(max(cfg.OfferTTL, minOfferTTL), maxOfferTTL)
	}

	return cfg
}

func (c *Config) Validate() error {
	var errs []error

	positive := map[string]time.Duration{
		"OFFER_TTL":          c.OfferTTL,
		"RATE_LIMIT_WINDOW":  c.RateLimitWindow,
		"SWEEP_INTERVAL":     c.SweepInterval,
		"RECONCILE_INTERVAL": c.ReconcileInterval,
	}
	for name, d := range positive {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", name, d))
		}
	}

	if c.RateLimitCount <= 0 {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_COUNT must be positive, got %d", c.RateLimitCount))
	}
	if c.SweepMaxRetries < 1 {
		errs = append(errs, fmt.Errorf("SWEEP_MAX_RETRIES must be at least 1, got %d", c.SweepMaxRetries))
	}

	switch c.StoreDriver {
	case "postgres", "memory":
	default:
		errs = append(errs, fmt.Errorf("STORE_DRIVER must be postgres or memory, got %q", c.StoreDriver))
	}

	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}

	return errors.Join(errs...)
}

func (c *Config) PubNubEnabled() bool {
	return c.PubNubPublishKey != "" && c.PubNubSubscribeKey != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	if duration, err := time.ParseDuration(getEnv(key, defaultValue)); err == nil {
		return duration
	}
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}

func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, ""), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
