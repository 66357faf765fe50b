package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store drivers accepted by STORE_DRIVER.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Refresh session backends accepted by REFRESH_STORE.
const (
	RefreshBackendStore = "store"
	RefreshBackendRedis = "redis"
)

// Config holds runtime configuration sourced from env vars.
type Config struct {
	Port        string
	AppEnv      string
	StoreDriver string
	DatabaseURL string

	JWTSecret  string
	JWTIssuer  string
	JWTTTL     time.Duration
	RefreshTTL time.Duration

	CookieSecure bool
	CORSOrigins  []string
	ClientURL    string

	RazorpayKeyID     string
	RazorpayKeySecret string

	RefreshBackend string
	RedisAddr      string
	RedisPassword  string
	RedisDB        int

	SMTPHost string
	SMTPPort string
	SMTPUser string
	SMTPPass string
	MailFrom string

	OrderTTL           time.Duration
	OrderSweepInterval time.Duration
	OTPTTL             time.Duration
}

// Load reads configuration from the environment and performs minimal validation.
func Load() (Config, error) {
	cfg := Config{
		Port:        fallback(os.Getenv("PORT"), "8080"),
		AppEnv:      fallback(os.Getenv("APP_ENV"), "production"),
		StoreDriver: strings.ToLower(fallback(os.Getenv("STORE_DRIVER"), DriverPostgres)),
		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),

		JWTSecret:  strings.TrimSpace(os.Getenv("JWT_SECRET")),
		JWTIssuer:  fallback(os.Getenv("JWT_ISSUER"), "paygate"),
		JWTTTL:     duration(os.Getenv("JWT_EXPIRE_MINUTES"), time.Minute, 30),
		RefreshTTL: duration(os.Getenv("JWT_REFRESH_EXPIRE_DAYS"), 24*time.Hour, 7),

		CORSOrigins: parseCSV(fallback(os.Getenv("CORS_ALLOWED_ORIGINS"), "*")),
		ClientURL:   strings.TrimRight(fallback(os.Getenv("CLIENT_URL"), "http://localhost:3000"), "/"),

		RazorpayKeyID:     strings.TrimSpace(os.Getenv("RAZORPAY_KEY_ID")),
		RazorpayKeySecret: strings.TrimSpace(os.Getenv("RAZORPAY_KEY_SECRET")),

		RefreshBackend: strings.ToLower(fallback(os.Getenv("REFRESH_STORE"), RefreshBackendStore)),
		RedisAddr:      strings.ReplaceAll(strings.TrimSpace(os.Getenv("REDIS_ADDR")), " ", ""),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),

		SMTPHost: strings.TrimSpace(os.Getenv("SMTP_HOST")),
		SMTPPort: fallback(os.Getenv("SMTP_PORT"), "587"),
		SMTPUser: strings.TrimSpace(os.Getenv("SMTP_USER")),
		SMTPPass: os.Getenv("SMTP_PASS"),
		MailFrom: fallback(os.Getenv("MAIL_FROM"), "no-reply@paygate.local"),

		OrderTTL:           duration(os.Getenv("ORDER_TTL_MINUTES"), time.Minute, 30),
		OrderSweepInterval: duration(os.Getenv("ORDER_SWEEP_INTERVAL_SECONDS"), time.Second, 60),
		OTPTTL:             duration(os.Getenv("OTP_TTL_MINUTES"), time.Minute, 5),
	}

	cfg.CookieSecure = cfg.AppEnv == "production"
	if raw := strings.TrimSpace(os.Getenv("COOKIE_SECURE")); raw != "" {
		if v, err := strconv.ParseBool(raw); err == nil {
			cfg.CookieSecure = v
		}
	}
	if raw := strings.TrimSpace(os.Getenv("REDIS_DB")); raw != "" {
		db, err := strconv.Atoi(raw)
		if err != nil {
			return Config{}, fmt.Errorf("REDIS_DB: %w", err)
		}
		cfg.RedisDB = db
	}

	switch cfg.StoreDriver {
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			return Config{}, errors.New("DATABASE_URL is required")
		}
	case DriverMemory:
	default:
		return Config{}, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
	switch cfg.RefreshBackend {
	case RefreshBackendStore:
	case RefreshBackendRedis:
		if cfg.RedisAddr == "" {
			return Config{}, errors.New("REDIS_ADDR is required when REFRESH_STORE=redis")
		}
	default:
		return Config{}, fmt.Errorf("unknown REFRESH_STORE %q", cfg.RefreshBackend)
	}
	if cfg.JWTSecret == "" {
		return Config{}, errors.New("JWT_SECRET is required")
	}
	if cfg.RazorpayKeyID == "" || cfg.RazorpayKeySecret == "" {
		return Config{}, errors.New("RAZORPAY_KEY_ID and RAZORPAY_KEY_SECRET are required")
	}

	return cfg, nil
}

// HTTPAddress returns the host:port pair for the HTTP server to bind to.
func (c Config) HTTPAddress() string {
	return fmt.Sprintf(":%s", c.Port)
}

// Development reports whether development-only routes may be mounted.
func (c Config) Development() bool {
	return c.AppEnv == "development"
}

func fallback(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return strings.TrimSpace(value)
}

// duration parses a positive integer count of unit, falling back to def units.
func duration(raw string, unit time.Duration, def int) time.Duration {
	if n, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil && n > 0 {
		return time.Duration(n) * unit
	}
	return time.Duration(def) * unit
}

func parseCSV(input string) []string {
	parts := strings.Split(input, ",")
	var out []string
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}
