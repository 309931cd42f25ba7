package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mobelwerk/gatehouse/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration
	Database DatabaseConfig

	// Decision cache configuration
	Cache CacheConfig

	// Module catalog configuration
	Catalog CatalogConfig

	// Audit trail configuration
	Audit AuditConfig

	// Observability configuration
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s probes)
	HealthPort string
}

// DatabaseConfig holds PostgreSQL connection configuration
type DatabaseConfig struct {
	URL             string
	ReplicaURLs     string // comma-separated read replica URLs
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// CacheConfig holds decision cache configuration
type CacheConfig struct {
	// Backend selects the cache implementation: memory, lru, or redis.
	Backend string

	// TTL bounds cross-instance staleness of access decisions.
	TTL time.Duration

	// Capacity is the sweep cap (memory) or max entry count (lru).
	Capacity int

	// Redis settings, used when Backend is redis.
	RedisURL      string
	RedisPassword string
	RedisDB       int
}

// CatalogConfig selects the module catalog source
type CatalogConfig struct {
	// Path to a YAML catalog file. Empty means load from the
	// module_catalog database table.
	Path string
}

// AuditConfig holds audit trail configuration
type AuditConfig struct {
	Enabled       bool
	RetentionDays int

	// Sink selects where events go: db, file, or both. FilePath is the
	// append-only log target for the file and both sinks.
	Sink     string
	FilePath string

	// Optional S3 archive written by the janitor before purging.
	S3Bucket       string
	S3Region       string
	S3Endpoint     string
	S3AccessKey    string
	S3SecretKey    string
	S3UsePathStyle bool
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	// Logging
	LogLevel observability.LogLevel

	// Metrics
	MetricsEnabled bool

	// OpenTelemetry
	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool // Use insecure gRPC connection
}

// Cache backend names accepted by CacheConfig.Backend.
const (
	CacheBackendMemory = "memory"
	CacheBackendLRU    = "lru"
	CacheBackendRedis  = "redis"
)

// Audit sink names accepted by AuditConfig.Sink.
const (
	AuditSinkDB   = "db"
	AuditSinkFile = "file"
	AuditSinkBoth = "both"
)

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		Database:      loadDatabaseConfig(),
		Cache:         loadCacheConfig(),
		Catalog:       CatalogConfig{Path: getEnv("GATEHOUSE_CATALOG_PATH", "")},
		Audit:         loadAuditConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadServerConfig loads server configuration from environment
func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("GATEHOUSE_HOST", "0.0.0.0"),
		Port:            getEnv("GATEHOUSE_PORT", "8080"),
		ReadTimeout:     getEnvDuration("GATEHOUSE_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("GATEHOUSE_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getEnvDuration("GATEHOUSE_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("GATEHOUSE_SHUTDOWN_TIMEOUT", 30*time.Second),
		HealthPort:      getEnv("GATEHOUSE_HEALTH_PORT", "9090"),
	}
}

// loadDatabaseConfig loads PostgreSQL configuration from environment
func loadDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		URL:             getEnv("GATEHOUSE_DATABASE_URL", getEnv("DATABASE_URL", "")),
		ReplicaURLs:     getEnv("GATEHOUSE_DATABASE_REPLICA_URLS", ""),
		MaxOpenConns:    getEnvInt("GATEHOUSE_DATABASE_MAX_OPEN_CONNS", 25),
		MaxIdleConns:    getEnvInt("GATEHOUSE_DATABASE_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime: getEnvDuration("GATEHOUSE_DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
	}
}

// loadCacheConfig loads decision cache configuration from environment
func loadCacheConfig() CacheConfig {
	return CacheConfig{
		Backend:       getEnv("GATEHOUSE_CACHE_BACKEND", CacheBackendMemory),
		TTL:           getEnvDuration("GATEHOUSE_CACHE_TTL", 30*time.Second),
		Capacity:      getEnvInt("GATEHOUSE_CACHE_CAPACITY", 1500),
		RedisURL:      getEnv("GATEHOUSE_REDIS_URL", ""),
		RedisPassword: getEnv("GATEHOUSE_REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("GATEHOUSE_REDIS_DB", 0),
	}
}

// loadAuditConfig loads audit configuration from environment
func loadAuditConfig() AuditConfig {
	return AuditConfig{
		Enabled:        getEnvBool("GATEHOUSE_AUDIT_ENABLED", true),
		RetentionDays:  getEnvInt("GATEHOUSE_AUDIT_RETENTION_DAYS", 365),
		Sink:           getEnv("GATEHOUSE_AUDIT_SINK", AuditSinkDB),
		FilePath:       getEnv("GATEHOUSE_AUDIT_FILE_PATH", ""),
		S3Bucket:       getEnv("GATEHOUSE_AUDIT_S3_BUCKET", ""),
		S3Region:       getEnv("GATEHOUSE_AUDIT_S3_REGION", "us-east-1"),
		S3Endpoint:     getEnv("GATEHOUSE_AUDIT_S3_ENDPOINT", ""),
		S3AccessKey:    getEnv("GATEHOUSE_AUDIT_S3_ACCESS_KEY", ""),
		S3SecretKey:    getEnv("GATEHOUSE_AUDIT_S3_SECRET_KEY", ""),
		S3UsePathStyle: getEnvBool("GATEHOUSE_AUDIT_S3_USE_PATH_STYLE", false),
	}
}

// loadObservabilityConfig loads observability configuration from environment
func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:           parseLogLevel(getEnv("GATEHOUSE_LOG_LEVEL", "info")),
		MetricsEnabled:     getEnvBool("GATEHOUSE_METRICS_ENABLED", true),
		OTelEnabled:        getEnvBool("GATEHOUSE_OTEL_ENABLED", false),
		OTelEndpoint:       getEnv("GATEHOUSE_OTEL_ENDPOINT", "localhost:4317"),
		OTelServiceName:    getEnv("GATEHOUSE_OTEL_SERVICE_NAME", "gatehouse"),
		OTelServiceVersion: getEnv("GATEHOUSE_OTEL_SERVICE_VERSION", observability.Version),
		OTelInsecure:       getEnvBool("GATEHOUSE_OTEL_INSECURE", true),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	if c.Database.URL == "" {
		return fmt.Errorf("database URL is required")
	}

	switch c.Cache.Backend {
	case CacheBackendMemory, CacheBackendLRU:
	case CacheBackendRedis:
		if c.Cache.RedisURL == "" {
			return fmt.Errorf("redis URL is required for the redis cache backend")
		}
	default:
		return fmt.Errorf("invalid cache backend: %s (must be memory, lru, or redis)", c.Cache.Backend)
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache TTL must be positive")
	}
	if c.Cache.Capacity <= 0 {
		return fmt.Errorf("cache capacity must be positive")
	}

	if c.Audit.Enabled {
		if c.Audit.RetentionDays <= 0 {
			return fmt.Errorf("audit retention days must be positive when audit is enabled")
		}
		switch c.Audit.Sink {
		case AuditSinkDB:
		case AuditSinkFile, AuditSinkBoth:
			if c.Audit.FilePath == "" {
				return fmt.Errorf("audit file path is required for the %s sink", c.Audit.Sink)
			}
		default:
			return fmt.Errorf("invalid audit sink: %s (must be db, file, or both)", c.Audit.Sink)
		}
	}

	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

// parseLogLevel parses a log level string
func parseLogLevel(level string) observability.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return observability.DebugLevel
	case "info":
		return observability.InfoLevel
	case "warn", "warning":
		return observability.WarnLevel
	case "error":
		return observability.ErrorLevel
	default:
		return observability.InfoLevel
	}
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
