package config

import (
	"fmt"     // Error formatting
	"os"      // For environment variables
	"strconv" // For string to int conversion
	"strings" // String manipulation
	"time"    // Durations

	"github.com/joho/godotenv" // For loading .env files
)

// Supported database drivers
const (
	DriverSQLite   = "sqlite"
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

// Config holds the application configuration
type Config struct {
	AppPort           string        // Application port
	AppName           string        // Name shown in page titles
	DBDriver          string        // sqlite, mysql or postgres
	DatabaseURL       string        // Full DSN, overrides the DB_* parts
	DBUser            string        // Database user
	DBPassword        string        // Database password
	DBHost            string        // Database host
	DBPort            string        // Database port
	DBName            string        // Database name
	JWTSecret         string        // JWT secret key
	SessionLifetime   time.Duration // How long a login lasts
	PasswordMinLength int           // Minimum password length at registration
	RedisAddr         string        // Redis server address, empty disables caching
	RedisPass         string        // Redis password
	RedisDB           int           // Redis database number
	CacheTTL          time.Duration // TTL of cached dashboard and report figures
	LogLevel          string        // logrus level name
	IsProd            bool          // Is production environment
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	_ = godotenv.Load() // Load .env file if present
	return &Config{
		AppPort:           getEnv("APP_PORT", "8080"),
		AppName:           getEnv("APP_NAME", "Controle do Motorista"),
		DBDriver:          strings.ToLower(getEnv("DB_DRIVER", DriverSQLite)),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		DBUser:            os.Getenv("DB_USER"),
		DBPassword:        os.Getenv("DB_PASSWORD"),
		DBHost:            getEnv("DB_HOST", "127.0.0.1"),
		DBPort:            getEnv("DB_PORT", "3306"),
		DBName:            os.Getenv("DB_NAME"),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		SessionLifetime:   time.Duration(getEnvInt("SESSION_LIFETIME", 30)) * time.Minute,
		PasswordMinLength: getEnvInt("PASSWORD_MIN_LENGTH", 6),
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		RedisPass:         os.Getenv("REDIS_PASS"),
		RedisDB:           getEnvInt("REDIS_DB", 0),
		CacheTTL:          getEnvDuration("CACHE_TTL", 60*time.Second),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		IsProd:            os.Getenv("IS_PROD") == "true",
	}
}

// Validate reports every configuration problem at once
func (c *Config) Validate() error {
	var problems []string
	switch c.DBDriver {
	case DriverSQLite, DriverMySQL, DriverPostgres:
	default:
		problems = append(problems, fmt.Sprintf("unsupported DB_DRIVER %q", c.DBDriver))
	}
	if c.DBDriver == DriverMySQL && c.DatabaseURL == "" && c.DBName == "" {
		problems = append(problems, "DB_NAME or DATABASE_URL is required for mysql")
	}
	if c.DBDriver == DriverPostgres && c.DatabaseURL == "" {
		problems = append(problems, "DATABASE_URL is required for postgres")
	}
	if c.IsProd && c.JWTSecret == "" {
		problems = append(problems, "JWT_SECRET must be set in production")
	}
	if c.SessionLifetime <= 0 {
		problems = append(problems, "SESSION_LIFETIME must be positive")
	}
	if c.PasswordMinLength < 1 {
		problems = append(problems, "PASSWORD_MIN_LENGTH must be at least 1")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration:\n- %s", strings.Join(problems, "\n- "))
	}
	return nil
}

// DSN returns the data source name for the configured driver
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	switch c.DBDriver {
	case DriverMySQL:
		// Same shape the server always used for MySQL
		return c.DBUser + ":" + c.DBPassword + "@tcp(" + c.DBHost + ":" + c.DBPort + ")/" + c.DBName + "?parseTime=true"
	default:
		return "driver_ledger.db"
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
