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

// placeholderSecret is the development default; it is rejected in production.
const placeholderSecret = "dev-session-secret-change-me-please"

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Session   SessionConfig
	CORS      CORSConfig
	RateLimit RateLimitConfig
	Reset     ResetConfig
	Locale    LocaleConfig
	SMTP      SMTPConfig
}

type ServerConfig struct {
	Port        string
	GinMode     string
	Environment string
	// FrontendURL is where page requests are proxied after passing the access gate.
	FrontendURL string
	// AppBaseURL is used to build links embedded in outgoing mail.
	AppBaseURL string
	// TrustedProxies may set X-Forwarded-For. Empty means the socket address is the client.
	TrustedProxies []string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	Timeout  time.Duration
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
}

type SessionConfig struct {
	Secret     string
	Expiry     time.Duration
	CookieName string
	Secure     bool
}

type CORSConfig struct {
	AllowedOrigins []string
}

type RateLimitConfig struct {
	StrictMax     int
	StrictWindow  time.Duration
	LenientMax    int
	LenientWindow time.Duration
	StoreTimeout  time.Duration
}

type ResetConfig struct {
	TokenTTL      time.Duration
	SweepSchedule string
	NotifyTimeout time.Duration
	// ResponseFloor is the minimum duration of a forgot-password request.
	ResponseFloor time.Duration
}

type LocaleConfig struct {
	Supported []string
	Default   string
}

type SMTPConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	FromEmail string
}

func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Server: ServerConfig{
			Port:           getEnv("SERVER_PORT", "8080"),
			GinMode:        getEnv("GIN_MODE", "debug"),
			Environment:    getEnv("ENVIRONMENT", "development"),
			FrontendURL:    getEnv("FRONTEND_URL", ""),
			AppBaseURL:     strings.TrimRight(getEnv("APP_BASE_URL", "http://localhost:3000"), "/"),
			TrustedProxies: parseSlice(getEnv("TRUSTED_PROXIES", "")),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "admin"),
			Password: getEnv("DB_PASSWORD", "1234"),
			DBName:   getEnv("DB_NAME", "coach_portal"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			Timeout:  parseDuration(getEnv("DB_TIMEOUT", "5s"), 5*time.Second),
		},
		Redis: RedisConfig{
			Enabled:  parseBool(getEnv("REDIS_ENABLED", "false")),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       parseInt(getEnv("REDIS_DB", "0"), 0),
		},
		Session: SessionConfig{
			Secret:     getEnv("SESSION_SECRET", placeholderSecret),
			Expiry:     parseDuration(getEnv("SESSION_EXPIRY", "720h"), 720*time.Hour),
			CookieName: getEnv("SESSION_COOKIE_NAME", "session_token"),
			Secure:     parseBool(getEnv("SESSION_COOKIE_SECURE", "false")),
		},
		CORS: CORSConfig{
			AllowedOrigins: parseSlice(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		},
		RateLimit: RateLimitConfig{
			StrictMax:     parseInt(getEnv("RATE_LIMIT_STRICT_MAX", "5"), 5),
			StrictWindow:  parseDuration(getEnv("RATE_LIMIT_STRICT_WINDOW", "1m"), time.Minute),
			LenientMax:    parseInt(getEnv("RATE_LIMIT_LENIENT_MAX", "60"), 60),
			LenientWindow: parseDuration(getEnv("RATE_LIMIT_LENIENT_WINDOW", "1m"), time.Minute),
			StoreTimeout:  parseDuration(getEnv("RATE_LIMIT_STORE_TIMEOUT", "2s"), 2*time.Second),
		},
		Reset: ResetConfig{
			TokenTTL:      parseDuration(getEnv("RESET_TOKEN_TTL", "1h"), time.Hour),
			SweepSchedule: getEnv("RESET_SWEEP_SCHEDULE", "@every 30m"),
			NotifyTimeout: parseDuration(getEnv("NOTIFY_TIMEOUT", "2s"), 2*time.Second),
			ResponseFloor: parseDuration(getEnv("RESET_RESPONSE_FLOOR", "3s"), 3*time.Second),
		},
		Locale: LocaleConfig{
			Supported: parseSlice(getEnv("SUPPORTED_LOCALES", "en,es,fr,de")),
			Default:   getEnv("DEFAULT_LOCALE", "en"),
		},
		SMTP: SMTPConfig{
			Host:      getEnv("SMTP_HOST", ""),
			Port:      parseInt(getEnv("SMTP_PORT", "587"), 587),
			Username:  getEnv("SMTP_USER", ""),
			Password:  getEnv("SMTP_PASSWORD", ""),
			FromEmail: getEnv("SMTP_FROM_EMAIL", ""),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate rejects configuration the server must not start with.
func (c *Config) Validate() error {
	var errs []error

	if len(c.Session.Secret) < 32 {
		errs = append(errs, errors.New("SESSION_SECRET must be at least 32 characters"))
	}
	if c.IsProduction() && c.Session.Secret == placeholderSecret {
		errs = append(errs, errors.New("SESSION_SECRET must be set in production"))
	}
	if c.Session.Expiry <= 0 {
		errs = append(errs, errors.New("SESSION_EXPIRY must be positive"))
	}
	if c.RateLimit.StrictMax <= 0 || c.RateLimit.LenientMax <= 0 {
		errs = append(errs, errors.New("rate limit ceilings must be positive"))
	}
	if c.RateLimit.StrictWindow <= 0 || c.RateLimit.LenientWindow <= 0 {
		errs = append(errs, errors.New("rate limit windows must be positive"))
	}
	if c.Reset.TokenTTL <= 0 {
		errs = append(errs, errors.New("RESET_TOKEN_TTL must be positive"))
	}
	if c.Reset.ResponseFloor < c.Reset.NotifyTimeout {
		errs = append(errs, errors.New("RESET_RESPONSE_FLOOR must be at least NOTIFY_TIMEOUT"))
	}
	if len(c.Locale.Supported) == 0 {
		errs = append(errs, errors.New("SUPPORTED_LOCALES must not be empty"))
	} else if !contains(c.Locale.Supported, c.Locale.Default) {
		errs = append(errs, fmt.Errorf("DEFAULT_LOCALE %q is not in SUPPORTED_LOCALES", c.Locale.Default))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	duration, err := time.ParseDuration(s)
	if err != nil {
		log.Printf("Invalid duration %s, using default %s", s, fallback)
		return fallback
	}
	return duration
}

func parseInt(s string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		log.Printf("Invalid integer %s, using default %d", s, fallback)
		return fallback
	}
	return n
}

func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes"
}

func parseSlice(s string) []string {
	if s == "" {
		return []string{}
	}
	var result []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}

func contains(values []string, v string) bool {
	for _, value := range values {
		if value == v {
			return true
		}
	}
	return false
}
