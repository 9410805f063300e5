package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Tesseract-Nexus/go-shared/secrets"
	"github.com/sirupsen/logrus"
)

// Config holds all configuration for the databridge service
type Config struct {
	// Server
	Port           string
	Environment    string
	LogLevel       string
	AllowedOrigins []string

	// Operational database (raw orders, inventory, sync jobs)
	DatabaseURL string
	DBPool      PoolConfig

	// Shared database (sku_master, sales_data, fba_inventory projection)
	SharedDatabaseURL string
	SharedDBPool      PoolConfig

	// GCP
	GCPProjectID string

	// Optional infrastructure
	RedisURL string
	NATSURL  string

	// Auth
	SSOVerifyURL string
	SSOAppCode   string

	// Rate Limiting (API surface)
	RateLimitWindow   time.Duration
	RateLimitRequests int

	// Schedules
	InventoryCron string
	SalesCron     string

	// Sync Settings
	SalesOverlapDays       int
	BackfillDefaultMonths  int
	InventoryGroupDelay    time.Duration
	SalesGroupDelay        time.Duration
	BackfillMonthDelay     time.Duration
	SkuCacheTTL            time.Duration
	ClientCacheTTL         time.Duration
	ReportPollMaxAttempts  int
	SPAPIRequestsPerSecond int
	SyncLockTTL            time.Duration
}

// PoolConfig configures a database connection pool
type PoolConfig struct {
	MaxOpenConns   int
	IdleTimeout    time.Duration
	ConnectTimeout time.Duration
}

// Load loads configuration from environment variables
func Load() *Config {
	dbHost := getEnv("DB_HOST", "localhost")
	dbPort := getEnv("DB_PORT", "5432")
	dbUser := getEnv("DB_USER", "databridge")
	dbSSLMode := getEnv("DB_SSLMODE", "disable")
	connectTimeout := getEnvAsDuration("DB_CONNECT_TIMEOUT", 5*time.Second)

	// Build DATABASE_URL from components using GCP Secret Manager for password
	databaseURL := getEnv("DATABASE_URL", "")
	dbPassword := ""
	if databaseURL == "" {
		dbPassword = secrets.GetDBPassword()
		databaseURL = buildDSN(dbUser, dbPassword, dbHost, dbPort,
			getEnv("DB_NAME", "databridge_db"), dbSSLMode, connectTimeout)
	}

	sharedURL := getEnv("SHARED_DATABASE_URL", "")
	if sharedURL == "" {
		sharedPassword := getEnv("SHARED_DB_PASSWORD", "")
		if sharedPassword == "" {
			if dbPassword == "" {
				dbPassword = secrets.GetDBPassword()
			}
			sharedPassword = dbPassword
		}
		sharedURL = buildDSN(
			getEnv("SHARED_DB_USER", getEnv("DB_USER", "pricelab")),
			sharedPassword,
			getEnv("SHARED_DB_HOST", dbHost),
			getEnv("SHARED_DB_PORT", dbPort),
			getEnv("SHARED_DB_NAME", "pricelab_db"),
			dbSSLMode,
			connectTimeout,
		)
	}

	config := &Config{
		Port:           getEnv("PORT", "3008"),
		Environment:    getEnv("ENVIRONMENT", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		AllowedOrigins: getEnvAsList("ALLOWED_ORIGINS", []string{"http://localhost:5173", "http://localhost:3008"}),

		DatabaseURL: databaseURL,
		DBPool: PoolConfig{
			MaxOpenConns:   getEnvAsInt("DB_MAX_CONNECTIONS", 15),
			IdleTimeout:    getEnvAsDuration("DB_IDLE_TIMEOUT", 30*time.Second),
			ConnectTimeout: connectTimeout,
		},

		SharedDatabaseURL: sharedURL,
		SharedDBPool: PoolConfig{
			MaxOpenConns:   getEnvAsInt("SHARED_DB_MAX_CONNECTIONS", 5),
			IdleTimeout:    getEnvAsDuration("DB_IDLE_TIMEOUT", 30*time.Second),
			ConnectTimeout: connectTimeout,
		},

		GCPProjectID: getEnv("GCP_PROJECT_ID", ""),

		RedisURL: getEnv("REDIS_URL", ""),
		NATSURL:  getEnv("NATS_URL", ""),

		SSOVerifyURL: getEnv("SSO_VERIFY_URL", "https://apps.iwa.web.tr/api/auth/verify"),
		SSOAppCode:   getEnv("SSO_APP_CODE", "databridge"),

		RateLimitWindow:   getEnvAsDuration("RATE_LIMIT_WINDOW", 15*time.Minute),
		RateLimitRequests: getEnvAsInt("RATE_LIMIT_MAX_REQUESTS", 200),

		InventoryCron: getEnv("SYNC_INVENTORY_CRON", "0 */4 * * *"),
		SalesCron:     getEnv("SYNC_SALES_CRON", "0 3 * * *"),

		SalesOverlapDays:       getEnvAsInt("SALES_OVERLAP_DAYS", 2),
		BackfillDefaultMonths:  getEnvAsInt("BACKFILL_DEFAULT_MONTHS", 13),
		InventoryGroupDelay:    getEnvAsDuration("INVENTORY_GROUP_DELAY", 2*time.Second),
		SalesGroupDelay:        getEnvAsDuration("SALES_GROUP_DELAY", 5*time.Second),
		BackfillMonthDelay:     getEnvAsDuration("BACKFILL_MONTH_DELAY", 5*time.Second),
		SkuCacheTTL:            getEnvAsDuration("SKU_CACHE_TTL", time.Hour),
		ClientCacheTTL:         getEnvAsDuration("SPAPI_CLIENT_CACHE_TTL", 30*time.Minute),
		ReportPollMaxAttempts:  getEnvAsInt("REPORT_POLL_MAX_ATTEMPTS", 30),
		SPAPIRequestsPerSecond: getEnvAsInt("SPAPI_RATE_LIMIT", 5),
		SyncLockTTL:            getEnvAsDuration("SYNC_LOCK_TTL", 6*time.Hour),
	}

	if config.GCPProjectID == "" {
		logrus.Warn("GCP_PROJECT_ID not set, credential secrets must be stored in the database")
	}

	return config
}

// IsProduction reports whether the service runs in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func buildDSN(user, password, host, port, name, sslMode string, connectTimeout time.Duration) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s&connect_timeout=%d",
		user, password, host, port, name, sslMode, int(connectTimeout.Seconds()))
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvAsInt gets an environment variable as an integer with a default value
func getEnvAsInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intValue
}

// getEnvAsDuration gets an environment variable as a duration with a default value
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return duration
}

// getEnvAsList splits a comma separated variable
func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
