// Package config provides application configuration management from environment variables.
//
// # Overview
//
// This package loads and validates configuration from environment variables with
// sensible defaults for all settings. All keys carry the GATEHOUSE_ prefix.
//
// # Configuration Structure
//
// Server settings:
//
//	GATEHOUSE_HOST="0.0.0.0"
//	GATEHOUSE_PORT="8080"
//	GATEHOUSE_HEALTH_PORT="9090"
//	GATEHOUSE_READ_TIMEOUT="15s"
//	GATEHOUSE_WRITE_TIMEOUT="15s"
//
// Database settings:
//
//	GATEHOUSE_DATABASE_URL="postgres://localhost/gatehouse"   # falls back to DATABASE_URL
//	GATEHOUSE_DATABASE_REPLICA_URLS=""                        # comma-separated read replicas
//	GATEHOUSE_DATABASE_MAX_OPEN_CONNS="25"
//
// Decision cache settings:
//
//	GATEHOUSE_CACHE_BACKEND="memory"   # memory, lru, redis
//	GATEHOUSE_CACHE_TTL="30s"
//	GATEHOUSE_CACHE_CAPACITY="1500"
//	GATEHOUSE_REDIS_URL="redis://localhost:6379"   # required for the redis backend
//
// Catalog and audit settings:
//
//	GATEHOUSE_CATALOG_PATH=""                 # YAML file; empty loads the module_catalog table
//	GATEHOUSE_AUDIT_ENABLED="true"
//	GATEHOUSE_AUDIT_RETENTION_DAYS="365"
//	GATEHOUSE_AUDIT_S3_BUCKET=""              # optional pre-purge archive
//
// Observability settings:
//
//	GATEHOUSE_LOG_LEVEL="info"  # debug, info, warn, error
//	GATEHOUSE_METRICS_ENABLED="true"
//	GATEHOUSE_OTEL_ENABLED="false"
//	GATEHOUSE_OTEL_ENDPOINT="otel-collector:4317"
//
// # Usage Example
//
// Load configuration:
//
//	cfg, err := config.LoadConfig()
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	fmt.Printf("Server: %s:%s\n", cfg.Server.Host, cfg.Server.Port)
//	fmt.Printf("Cache backend: %s\n", cfg.Cache.Backend)
//
// # Related Packages
//
//   - pkg/access: Consumes the cache configuration
//   - pkg/observability: Consumes the observability configuration
package config
