package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const defaultSecret = "your-secret-key-change-in-production"

// Config holds the application configuration.
type Config struct {
	Env           string
	AppSecret     string
	DBDriver      string
	DatabaseURL   string
	SQLitePath    string
	JWTExpiry     time.Duration
	Port          string
	SiteName      string
	MediaRoot     string
	MediaURL      string
	AdminPageSize int
	LogLevel      string

	// TrustedProxies may set X-Forwarded-For; nil trusts none.
	TrustedProxies []string
}

// Load reads the configuration from the environment.
func Load() *Config {
	expiryHours, err := strconv.Atoi(getEnv("JWT_EXPIRY_HOURS", "72"))
	if err != nil || expiryHours <= 0 {
		expiryHours = 72
	}

	pageSize, err := strconv.Atoi(getEnv("ADMIN_PAGE_SIZE", "50"))
	if err != nil || pageSize <= 0 {
		pageSize = 50
	}

	dbUser := getEnv("DB_USER", "postgres")
	dbPass := getEnv("DB_PASSWORD", "postgres")
	dbHost := getEnv("DB_HOST", "localhost")
	dbPort := getEnv("DB_PORT", "5432")
	dbName := getEnv("DB_NAME", "movies")
	dbSSL := getEnv("DB_SSLMODE", "disable")

	dbURL := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		dbUser, dbPass, dbHost, dbPort, dbName, dbSSL)

	mediaRoot := getEnv("MEDIA_ROOT", "./media")
	if abs, err := filepath.Abs(mediaRoot); err == nil {
		mediaRoot = abs
	}

	return &Config{
		Env:           getEnv("APP_ENV", "development"),
		AppSecret:     getEnv("APP_SECRET", defaultSecret),
		DBDriver:      getEnv("DB_DRIVER", "postgres"),
		DatabaseURL:   dbURL,
		SQLitePath:    getEnv("SQLITE_PATH", "movies.db"),
		JWTExpiry:     time.Duration(expiryHours) * time.Hour,
		Port:          getEnv("PORT", "8000"),
		SiteName:      getEnv("SITE_NAME", "Movies"),
		MediaRoot:     mediaRoot,
		MediaURL:      getEnv("MEDIA_URL", "/media"),
		AdminPageSize: pageSize,
		LogLevel:      getEnv("LOG_LEVEL", "info"),

		TrustedProxies: splitList(os.Getenv("TRUSTED_PROXIES")),
	}
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// UsesDefaultSecret is true when APP_SECRET was never set.
func (c *Config) UsesDefaultSecret() bool {
	return c.AppSecret == defaultSecret
}

// splitList parses a comma-separated list, returning nil when it is empty.
func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
