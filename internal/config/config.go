package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	RedisURL           string
	JWTSecret          string
	JWTIssuer          string
	CORSAllowedOrigins []string

	// Retail API the editing sessions reconcile against.
	UpstreamBaseURL string
	UpstreamToken   string
	UpstreamTimeout time.Duration

	// Business constants for the pricing calculator. Hard-coding these per
	// deployment is exactly what the configuration surface exists to avoid.
	TierPercents map[string]float64
	PointsRate   float64

	SessionTTL       time.Duration
	SubmitLockTTL    time.Duration
	IdempotencyTTL   time.Duration
	CustomerCacheTTL time.Duration

	// Customer search rate limit.
	SearchRateMax    int
	SearchRateWindow time.Duration

	// Circuit breaker tunables for the retail API client.
	BreakerMinRequests  int
	BreakerFailureRatio float64
	BreakerOpenFor      time.Duration

	// Webhook notification endpoints, comma separated "url|secret" pairs.
	WebhookEndpoints []string
	WebhookMaxRetry  int

	LogFormat string
	LogLevel  string

	TracingEnabled  bool
	TracingEndpoint string
	TracingRatio    float64

	MetricsBucketsCSV string
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		DatabaseURL:        k.String("DATABASE_URL"),
		RedisURL:           k.String("REDIS_URL"),
		JWTSecret:          k.String("JWT_SECRET"),
		JWTIssuer:          strings.TrimSpace(k.String("JWT_ISSUER")),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),

		UpstreamBaseURL: strings.TrimSpace(k.String("UPSTREAM_BASE_URL")),
		UpstreamToken:   k.String("UPSTREAM_TOKEN"),
		UpstreamTimeout: parseDuration(k.String("UPSTREAM_TIMEOUT"), "10s"),

		TierPercents: parseTierPercents(k.String("MEMBERSHIP_TIER_PERCENTS")),
		PointsRate:   parseFloat(k.String("POINTS_RATE"), 0.01),

		SessionTTL:       parseDuration(k.String("SESSION_TTL"), "4h"),
		SubmitLockTTL:    parseDuration(k.String("SUBMIT_LOCK_TTL"), "30s"),
		IdempotencyTTL:   parseDuration(k.String("IDEMPOTENCY_TTL"), "10m"),
		CustomerCacheTTL: parseDuration(k.String("CUSTOMER_CACHE_TTL"), "30s"),

		SearchRateMax:    parseInt(k.String("SEARCH_RATE_MAX"), 30),
		SearchRateWindow: parseDuration(k.String("SEARCH_RATE_WINDOW"), "1m"),

		BreakerMinRequests:  parseInt(k.String("BREAKER_MIN_REQUESTS"), 5),
		BreakerFailureRatio: parseFloat(k.String("BREAKER_FAILURE_RATIO"), 0.5),
		BreakerOpenFor:      parseDuration(k.String("BREAKER_OPEN_FOR"), "30s"),

		WebhookEndpoints: splitAndTrim(k.String("WEBHOOK_ENDPOINTS")),
		WebhookMaxRetry:  parseInt(k.String("WEBHOOK_MAX_RETRY"), 5),

		LogFormat: valueOrDefault(k.String("LOG_FORMAT"), "json"),
		LogLevel:  valueOrDefault(k.String("LOG_LEVEL"), "info"),

		TracingEnabled:  parseBool(k.String("TRACING_ENABLED")),
		TracingEndpoint: strings.TrimSpace(k.String("TRACING_ENDPOINT")),
		TracingRatio:    parseFloat(k.String("TRACING_SAMPLING_RATIO"), 1),

		MetricsBucketsCSV: k.String("METRICS_BUCKETS_MS"),
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	if cfg.UpstreamBaseURL == "" {
		return nil, errors.New("UPSTREAM_BASE_URL is required")
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

// parseTierPercents decodes "normal:0,silver:5,gold:10,platinum:15". An
// empty value returns nil so the caller can fall back to the default table.
func parseTierPercents(value string) map[string]float64 {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	out := make(map[string]float64)
	for _, pair := range strings.Split(value, ",") {
		name, pct, found := strings.Cut(strings.TrimSpace(pair), ":")
		if !found {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(pct), 64)
		if err != nil || v < 0 {
			continue
		}
		out[strings.ToLower(strings.TrimSpace(name))] = v
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseInt(value string, fallback int) int {
	v, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return v
}

func parseFloat(value string, fallback float64) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return v
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
