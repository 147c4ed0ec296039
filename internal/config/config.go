package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"
)

// Supported database drivers.
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

var identifierRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

var authPlugins = map[string]bool{
	"mysql_native_password": true,
	"caching_sha2_password": true,
	"mysql_clear_password":  true,
}

// Config holds all service settings, populated from environment variables.
type Config struct {
	// Observation store connection.
	DBDriver         string
	DBHost           string
	DBPort           string
	DBUser           string
	DBPassword       string
	DBName           string
	DBTable          string
	DBAuthPlugin     string
	DBSSLMode        string
	DBDSN            string
	DBConnectTimeout time.Duration

	// CacheTTL bounds how long a loaded table is served. Zero keeps it for
	// the lifetime of the process.
	CacheTTL        time.Duration
	RenderCacheSize int

	KafkaEnabled   bool
	KafkaBrokers   []string
	KafkaTopic     string
	KafkaBatchSize int

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables, applying defaults where unset.
// A .env file in the working directory is read first if present; it never
// overrides variables already set.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	connectTimeout, err := parsePositiveDuration("DB_CONNECT_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}

	cacheTTL, err := time.ParseDuration(sharedcfg.EnvOrDefault("CACHE_TTL", "0s"))
	if err != nil || cacheTTL < 0 {
		return nil, errors.New("invalid CACHE_TTL")
	}

	kafkaBatchSize, err := parsePositiveInt("KAFKA_BATCH_SIZE", 100)
	if err != nil {
		return nil, err
	}

	driver := sharedcfg.EnvOrDefault("DB_DRIVER", DriverMySQL)

	cfg := &Config{
		DBDriver:         driver,
		DBHost:           sharedcfg.EnvOrDefault("DB_HOST", "localhost"),
		DBPort:           sharedcfg.EnvOrDefault("DB_PORT", defaultPort(driver)),
		DBUser:           sharedcfg.EnvOrDefault("DB_USER", "root"),
		DBPassword:       os.Getenv("DB_PASSWORD"),
		DBName:           sharedcfg.EnvOrDefault("DB_NAME", "bird"),
		DBTable:          sharedcfg.EnvOrDefault("DB_TABLE", "BirdObservations"),
		DBAuthPlugin:     sharedcfg.EnvOrDefault("DB_AUTH_PLUGIN", "mysql_native_password"),
		DBSSLMode:        sharedcfg.EnvOrDefault("DB_SSLMODE", "disable"),
		DBDSN:            os.Getenv("DB_DSN"),
		DBConnectTimeout: connectTimeout,

		CacheTTL:        cacheTTL,
		RenderCacheSize: parseRenderCacheSize(),

		KafkaEnabled:   os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers:   sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:     sharedcfg.EnvOrDefault("KAFKA_TOPIC", "bird-observations"),
		KafkaBatchSize: kafkaBatchSize,

		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.DBDriver {
	case DriverMySQL, DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("invalid DB_DRIVER %q: want mysql, postgres or sqlite", c.DBDriver)
	}
	if !identifierRe.MatchString(c.DBTable) {
		return fmt.Errorf("invalid DB_TABLE %q", c.DBTable)
	}
	if c.DBDSN == "" && c.DBName == "" {
		return errors.New("DB_NAME is required when DB_DSN is not set")
	}
	if c.DBDriver == DriverMySQL && !authPlugins[c.DBAuthPlugin] {
		return fmt.Errorf("unsupported DB_AUTH_PLUGIN %q", c.DBAuthPlugin)
	}
	if c.KafkaEnabled {
		if len(c.KafkaBrokers) == 0 {
			return errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is true")
		}
		if c.KafkaTopic == "" {
			return errors.New("KAFKA_TOPIC is required when KAFKA_ENABLED is true")
		}
	}
	return nil
}

func defaultPort(driver string) string {
	switch driver {
	case DriverMySQL:
		return "3306"
	case DriverPostgres:
		return "5432"
	default:
		return ""
	}
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parsePositiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}

func parseRenderCacheSize() int {
	if s := os.Getenv("RENDER_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 64
}
