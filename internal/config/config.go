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

type Config struct {
	AppEnv         string
	Port           string
	AllowedOrigins []string

	DatabaseURL string
	RedisURL    string

	JWTSecret    string
	JWTTTL       time.Duration
	CookieName   string
	CookieSecure bool
	DefaultRole  string

	AdminEmail    string
	AdminUsername string
	AdminPassword string

	MeiliHost      string
	MeiliMasterKey string

	CloudinaryURL    string
	CloudinaryFolder string
	UploadDir        string
	UploadMaxBytes   int64

	GeminiAPIKey string
	GeminiModel  string

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string

	NewsFeeds       []string
	NewsSchedule    string
	CleanupSchedule string

	RateLimitAI        int
	RateLimitAnalytics int
	RateLimitWindow    time.Duration
}

func Load() (*Config, error) {
	// Don't fail if .env doesn't exist (might be prod env vars)
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:         getEnv("APP_ENV", "development"),
		Port:           getEnv("PORT", "8080"),
		AllowedOrigins: getList("ALLOWED_ORIGINS", []string{"http://localhost:3000"}),

		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    os.Getenv("REDIS_URL"),

		JWTSecret:   os.Getenv("JWT_SECRET"),
		CookieName:  getEnv("COOKIE_NAME", "growers_session"),
		DefaultRole: getEnv("DEFAULT_ROLE", "member"),

		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		AdminUsername: getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),

		MeiliHost:      os.Getenv("MEILI_HOST"),
		MeiliMasterKey: os.Getenv("MEILI_MASTER_KEY"),

		CloudinaryURL:    os.Getenv("CLOUDINARY_URL"),
		CloudinaryFolder: getEnv("CLOUDINARY_UPLOAD_FOLDER", "growers_platform"),
		UploadDir:        getEnv("UPLOAD_DIR", "./uploads"),

		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-1.5-flash"),

		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPUsername: os.Getenv("SMTP_USERNAME"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		SMTPFrom:     getEnv("SMTP_FROM", "no-reply@growers.example"),

		NewsFeeds:       getList("NEWS_FEEDS", nil),
		NewsSchedule:    getEnv("NEWS_SCHEDULE", "0 */6 * * *"),
		CleanupSchedule: getEnv("CLEANUP_SCHEDULE", "30 3 * * *"),
	}

	var err error
	if cfg.JWTTTL, err = time.ParseDuration(getEnv("JWT_TTL", "168h")); err != nil {
		return nil, fmt.Errorf("invalid JWT_TTL: %w", err)
	}
	if cfg.RateLimitWindow, err = time.ParseDuration(getEnv("RATE_LIMIT_WINDOW", "1m")); err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_WINDOW: %w", err)
	}
	if cfg.CookieSecure, err = getBool("COOKIE_SECURE", cfg.IsProduction()); err != nil {
		return nil, err
	}
	if cfg.SMTPPort, err = getInt("SMTP_PORT", 587); err != nil {
		return nil, err
	}
	if cfg.RateLimitAI, err = getInt("RATE_LIMIT_AI", 10); err != nil {
		return nil, err
	}
	if cfg.RateLimitAnalytics, err = getInt("RATE_LIMIT_ANALYTICS", 60); err != nil {
		return nil, err
	}
	maxBytes, err := getInt("UPLOAD_MAX_BYTES", 10<<20)
	if err != nil {
		return nil, err
	}
	cfg.UploadMaxBytes = int64(maxBytes)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

func (c *Config) validate() error {
	var errs []error
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	switch c.DefaultRole {
	case "guest", "member":
	default:
		errs = append(errs, fmt.Errorf("DEFAULT_ROLE must be guest or member, got %q", c.DefaultRole))
	}
	if c.RateLimitAI <= 0 || c.RateLimitAnalytics <= 0 {
		errs = append(errs, errors.New("rate limits must be positive"))
	}
	return errors.Join(errs...)
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getBool(key string, fallback bool) (bool, error) {
	raw, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func getList(key string, fallback []string) []string {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
