package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	devAccessSecret  = "dev-access-secret-change-me"
	devRefreshSecret = "dev-refresh-secret-change-me"
)

type Config struct {
	Env         string
	Port        int
	DBURL       string
	StoreDriver string

	JWTAccessSecret  string
	JWTRefreshSecret string
	AccessTTL        time.Duration
	RefreshTTL       time.Duration
	RememberMeTTL    time.Duration
	CodeTTL          time.Duration

	MailDriver   string
	ResendAPIKey string
	MailFrom     string
	MailTimeout  time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	AuthRatePerMinute int
	APIRatePerMinute  int

	CORSOrigins     []string
	OTELEndpoint    string
	OTELSampleRatio float64

	AdminEmail     string
	AdminPassword  string
	AdminFirstName string
	AdminLastName  string

	PanelCacheTTL time.Duration
}

// Load reads an optional .env file and then the process environment.
func Load() Config {
	// .env is optional; real deployments inject env vars directly
	_ = godotenv.Load()

	return Config{
		Env:         getEnv("APP_ENV", "dev"),
		Port:        getEnvInt("PORT", 8080),
		DBURL:       getEnv("DATABASE_URL", buildDBURL()),
		StoreDriver: getEnv("STORE_DRIVER", "postgres"),

		JWTAccessSecret:  getEnv("JWT_ACCESS_SECRET", devAccessSecret),
		JWTRefreshSecret: getEnv("JWT_REFRESH_SECRET", devRefreshSecret),
		AccessTTL:        time.Duration(getEnvInt("JWT_ACCESS_TTL_MINUTES", 30)) * time.Minute,
		RefreshTTL:       time.Duration(getEnvInt("JWT_REFRESH_TTL_HOURS", 24)) * time.Hour,
		RememberMeTTL:    time.Duration(getEnvInt("JWT_REMEMBER_ME_TTL_DAYS", 30)) * 24 * time.Hour,
		CodeTTL:          time.Duration(getEnvInt("CODE_TTL_MINUTES", 10)) * time.Minute,

		MailDriver:   getEnv("MAIL_DRIVER", "log"),
		ResendAPIKey: getEnv("RESEND_API_KEY", ""),
		MailFrom:     getEnv("RESEND_FROM_EMAIL", "onboarding@resend.dev"),
		MailTimeout:  time.Duration(getEnvInt("MAIL_TIMEOUT_SECONDS", 5)) * time.Second,

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		AuthRatePerMinute: getEnvInt("RATE_LIMIT_AUTH_PER_MINUTE", 20),
		APIRatePerMinute:  getEnvInt("RATE_LIMIT_API_PER_MINUTE", 120),

		CORSOrigins:     getEnvList("CORS_ORIGINS", []string{"http://localhost:5173", "http://localhost:3000"}),
		OTELEndpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTELSampleRatio: getEnvFloat("OTEL_TRACES_SAMPLER_ARG", 1),

		AdminEmail:     getEnv("ADMIN_EMAIL", ""),
		AdminPassword:  getEnv("ADMIN_PASSWORD", ""),
		AdminFirstName: getEnv("ADMIN_FIRST_NAME", "Admin"),
		AdminLastName:  getEnv("ADMIN_LAST_NAME", "User"),

		PanelCacheTTL: time.Duration(getEnvInt("PANEL_CACHE_TTL_SECONDS", 300)) * time.Second,
	}
}

func (c Config) IsProd() bool {
	return c.Env == "prod" || c.Env == "production"
}

// Validate catches configs that would start but behave wrongly.
func (c Config) Validate() error {
	var errs []error

	if c.JWTAccessSecret == "" || c.JWTRefreshSecret == "" {
		errs = append(errs, errors.New("jwt secrets must not be empty"))
	}
	if c.JWTAccessSecret == c.JWTRefreshSecret {
		errs = append(errs, errors.New("access and refresh secrets must differ"))
	}
	if c.IsProd() && (c.JWTAccessSecret == devAccessSecret || c.JWTRefreshSecret == devRefreshSecret) {
		errs = append(errs, errors.New("dev jwt secrets are not allowed in prod"))
	}
	if c.AccessTTL <= 0 || c.RefreshTTL <= 0 || c.RememberMeTTL <= 0 || c.CodeTTL <= 0 {
		errs = append(errs, errors.New("token and code lifetimes must be positive"))
	}

	if c.OTELSampleRatio < 0 || c.OTELSampleRatio > 1 {
		errs = append(errs, errors.New("OTEL_TRACES_SAMPLER_ARG must be between 0 and 1"))
	}

	switch c.StoreDriver {
	case "postgres", "memory":
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver))
	}

	switch c.MailDriver {
	case "log":
	case "resend":
		if c.ResendAPIKey == "" {
			errs = append(errs, errors.New("RESEND_API_KEY is required when MAIL_DRIVER=resend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown MAIL_DRIVER %q", c.MailDriver))
	}

	return errors.Join(errs...)
}

func buildDBURL() string {
	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "labsmonitor")
	pass := getEnv("DB_PASSWORD", "labsmonitor")
	name := getEnv("DB_NAME", "labsmonitor")
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl
}

// WithTimeout bounds a request scoped operation. A nil parent falls back to Background.
func WithTimeout(parent context.Context, duration time.Duration) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(parent, duration)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)
		if err != nil {
			slog.Warn("config_invalid_int", "key", key, "value", v, "fallback", fallback)
			return fallback
		}

		return num
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	num, err := strconv.ParseFloat(v, 64)
	if err != nil {
		slog.Warn("config_invalid_float", "key", key, "value", v, "fallback", fallback)
		return fallback
	}
	return num
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
