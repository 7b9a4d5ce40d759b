package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const defaultJWTSecret = "secret"

type Config struct {
	Port               string
	DatabaseURL        string
	AppEnv             string
	BaseURL            string
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	JWTSecret          string
	JWTExpiration      time.Duration
	FrontendURL        string
	AllowedEmails      []string

	// Empty disables the resolution cache.
	RedisURL string
	CacheTTL time.Duration

	ShortCodeLength int
	MaxURLLength    int

	RateLimitStrategy      string // "fixed" or "token"
	RateLimitMaxRequests   int
	RateLimitWindow        time.Duration
	RateLimitPerSecond     float64
	RateLimitBurst         int
	RateLimitCleanupPeriod time.Duration
	TrustProxy             bool

	PurgeInterval  time.Duration
	ClickQueueSize int
	ClickWorkers   int
}

func Load() *Config {
	_ = godotenv.Load() // Ignore error if .env not found (e.g. prod)

	return &Config{
		Port:               getEnv("PORT", "8080"),
		DatabaseURL:        getEnv("DATABASE_URL", "file:db.sqlite"),
		AppEnv:             getEnv("APP_ENV", "local"),
		BaseURL:            getEnv("BASE_URL", "http://localhost:8080"),
		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURL:  getEnv("GOOGLE_REDIRECT_URL", "http://localhost:8080/auth/google/callback"),
		JWTSecret:          getEnv("JWT_SECRET", defaultJWTSecret),
		JWTExpiration:      time.Duration(getEnvInt("JWT_EXPIRATION_HOURS", 24)) * time.Hour,
		FrontendURL:        getEnv("FRONTEND_URL", "http://localhost:8080"),
		AllowedEmails:      getEnvList("ALLOWED_EMAILS"),

		RedisURL: getEnv("REDIS_URL", ""),
		CacheTTL: getEnvDuration("CACHE_TTL", time.Hour),

		ShortCodeLength: getEnvInt("SHORT_CODE_LENGTH", 7),
		MaxURLLength:    getEnvInt("MAX_URL_LENGTH", 2048),

		RateLimitStrategy:      strings.ToLower(getEnv("RATE_LIMIT_STRATEGY", "fixed")),
		RateLimitMaxRequests:   getEnvInt("RATE_LIMIT_MAX_REQUESTS", 60),
		RateLimitWindow:        getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),
		RateLimitPerSecond:     getEnvFloat("RATE_LIMIT_PER_SECOND", 10),
		RateLimitBurst:         getEnvInt("RATE_LIMIT_BURST", 30),
		RateLimitCleanupPeriod: getEnvDuration("RATE_LIMIT_CLEANUP_INTERVAL", 5*time.Minute),
		TrustProxy:             getEnvBool("TRUST_PROXY", false),

		PurgeInterval:  getEnvDuration("PURGE_INTERVAL", 10*time.Minute),
		ClickQueueSize: getEnvInt("CLICK_QUEUE_SIZE", 1024),
		ClickWorkers:   getEnvInt("CLICK_WORKERS", 2),
	}
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// Validate reports settings the server cannot run with.
func (c *Config) Validate() error {
	var errs []error

	if c.IsProduction() && c.JWTSecret == defaultJWTSecret {
		errs = append(errs, errors.New("JWT_SECRET must be changed in production"))
	}
	if port, err := strconv.Atoi(c.Port); err != nil || port <= 0 || port > 65535 {
		errs = append(errs, fmt.Errorf("invalid PORT %q", c.Port))
	}
	if c.ShortCodeLength <= 0 {
		errs = append(errs, errors.New("SHORT_CODE_LENGTH must be positive"))
	}
	if c.MaxURLLength <= 0 {
		errs = append(errs, errors.New("MAX_URL_LENGTH must be positive"))
	}

	switch c.RateLimitStrategy {
	case "fixed":
		if c.RateLimitMaxRequests <= 0 || c.RateLimitWindow <= 0 {
			errs = append(errs, errors.New("RATE_LIMIT_MAX_REQUESTS and RATE_LIMIT_WINDOW must be positive"))
		}
	case "token":
		if c.RateLimitPerSecond <= 0 || c.RateLimitBurst <= 0 {
			errs = append(errs, errors.New("RATE_LIMIT_PER_SECOND and RATE_LIMIT_BURST must be positive"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown RATE_LIMIT_STRATEGY %q", c.RateLimitStrategy))
	}

	return errors.Join(errs...)
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		log.Printf("ignoring invalid %s=%q: %v", key, value, err)
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		log.Printf("ignoring invalid %s=%q: %v", key, value, err)
		return fallback
	}
	return f
}

func getEnvBool(key string, fallback bool) bool {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	b, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		log.Printf("ignoring invalid %s=%q: %v", key, value, err)
		return fallback
	}
	return b
}

// getEnvDuration accepts Go durations ("90s", "1h") or plain seconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	value = strings.TrimSpace(value)
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("ignoring invalid %s=%q: %v", key, value, err)
		return fallback
	}
	return d
}

func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, ""), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
