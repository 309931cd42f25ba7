package main

import (
	"context"
	"database/sql"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/mobelwerk/gatehouse/pkg/access"
	"github.com/mobelwerk/gatehouse/pkg/api"
	"github.com/mobelwerk/gatehouse/pkg/audit"
	"github.com/mobelwerk/gatehouse/pkg/catalog"
	"github.com/mobelwerk/gatehouse/pkg/config"
	"github.com/mobelwerk/gatehouse/pkg/entitlements"
	"github.com/mobelwerk/gatehouse/pkg/observability"
	"github.com/mobelwerk/gatehouse/pkg/orgs"
	"github.com/mobelwerk/gatehouse/pkg/storage/postgres"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		// Logger config may itself be broken, so fall back to stderr.
		os.Stderr.WriteString("configuration error: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	logger.WithField("version", observability.Version).Info("Starting gatehouse")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fatal := func(err error, message string) {
		logger.WithError(err).Error(message)
		os.Exit(1)
	}

	var providers *observability.OTelProviders
	if cfg.Observability.OTelEnabled {
		providers, err = observability.InitOTel(ctx, observability.OTelConfig{
			Enabled:        true,
			Endpoint:       cfg.Observability.OTelEndpoint,
			ServiceName:    cfg.Observability.OTelServiceName,
			ServiceVersion: cfg.Observability.OTelServiceVersion,
			Insecure:       cfg.Observability.OTelInsecure,
		}, logger)
		if err != nil {
			fatal(err, "Failed to initialize OpenTelemetry")
		}
	}

	cm, err := postgres.NewConnectionManager(postgres.ConnectionConfig{
		PrimaryURL:  cfg.Database.URL,
		ReplicaURLs: postgres.ParseReplicaURLs(cfg.Database.ReplicaURLs),
		MaxConns:    cfg.Database.MaxOpenConns,
		MinConns:    cfg.Database.MaxIdleConns,
		MaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		fatal(err, "Failed to connect to database")
	}
	cm.StartHealthCheckRoutine(ctx, 30*time.Second)

	if err := postgres.RunMigrations(ctx, cm.Primary(), logger); err != nil {
		fatal(err, "Failed to run migrations")
	}

	var cat *catalog.Catalog
	if cfg.Catalog.Path != "" {
		cat, err = catalog.LoadFile(cfg.Catalog.Path)
	} else {
		cat, err = catalog.LoadDB(ctx, cm.Replica())
	}
	if err != nil {
		fatal(err, "Failed to load module catalog")
	}
	logger.WithField("modules", cat.Len()).Info("Module catalog loaded")

	var redisClient *redis.Client
	var cache access.DecisionCache
	switch cfg.Cache.Backend {
	case config.CacheBackendRedis:
		redisClient, err = postgres.NewRedisClient(postgres.RedisConfig{
			URL:      cfg.Cache.RedisURL,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		})
		if err != nil {
			fatal(err, "Failed to connect to redis")
		}
		cache = access.NewRedisCache(redisClient, cfg.Cache.TTL)
	case config.CacheBackendLRU:
		cache = access.NewLRUCache(cfg.Cache.Capacity, cfg.Cache.TTL)
	default:
		cache = access.NewMemoryCache(cfg.Cache.TTL, cfg.Cache.Capacity)
	}
	logger.WithField("backend", cfg.Cache.Backend).Info("Decision cache configured")

	directory := orgs.NewPostgresDirectory(cm.Replica())
	store := entitlements.NewPostgresStore(cm.Primary())

	auditLogger := audit.NewNoOpLogger()
	if cfg.Audit.Enabled {
		auditLogger, err = buildAuditSink(cfg.Audit, cm.Primary())
		if err != nil {
			fatal(err, "Failed to initialize audit sink")
		}
		logger.WithField("sink", cfg.Audit.Sink).Info("Audit trail enabled")
	}

	service := entitlements.NewService(cat, store, directory, auditLogger)

	var metrics *observability.Metrics
	registry := prometheus.NewRegistry()
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(registry)
	}

	evaluator := access.NewEvaluator(cat, directory, store, cache, api.NewEvaluatorMetrics(metrics))
	server := api.NewServer(cat, service, evaluator, directory, logger, metrics)

	// Probes are mirrored on the API router and on a dedicated port; the
	// dedicated port stays reachable when the API is saturated.
	checker := observability.NewHealthChecker(cm.Primary(), redisClient)
	apiRouter := server.Router()
	apiRouter.HandleFunc("/health/live", checker.Liveness).Methods("GET")
	apiRouter.HandleFunc("/health/ready", checker.Readiness).Methods("GET")
	if cfg.Observability.MetricsEnabled {
		apiRouter.Handle("/metrics", observability.MetricsHandler(registry)).Methods("GET")
	}
	healthMux := http.NewServeMux()
	observability.RegisterHealthRoutes(healthMux, checker)
	if cfg.Observability.MetricsEnabled {
		observability.RegisterMetricsEndpoint(healthMux, registry)
	}
	healthServer := &http.Server{
		Addr:    net.JoinHostPort(cfg.Server.Host, cfg.Server.HealthPort),
		Handler: healthMux,
	}
	go func() {
		logger.WithField("addr", healthServer.Addr).Info("Health server listening")
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("Health server failed")
		}
	}()

	if metrics != nil {
		go collectRuntimeStats(ctx, cm, cache, metrics)
	}

	var handler http.Handler = server
	if cfg.Observability.OTelEnabled {
		handler = otelhttp.NewHandler(handler, "gatehouse")
	}

	httpServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.WithField("addr", httpServer.Addr).Info("API server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fatal(err, "API server failed")
		}
	}()

	sm := observability.NewShutdownManager(logger, httpServer, cfg.Server.ShutdownTimeout)
	sm.RegisterShutdownFunc("health server", func(sctx context.Context) error {
		return healthServer.Shutdown(sctx)
	})
	sm.RegisterShutdownFunc("database pool", func(context.Context) error {
		cancel()
		return cm.Close()
	})
	if redisClient != nil {
		sm.RegisterShutdownFunc("redis client", func(context.Context) error {
			return redisClient.Close()
		})
	}
	if cfg.Audit.Enabled {
		sm.RegisterShutdownFunc("audit sink", func(context.Context) error {
			return auditLogger.Close()
		})
	}
	if providers != nil {
		sm.RegisterShutdownFunc("telemetry", func(sctx context.Context) error {
			return observability.ShutdownOTel(sctx, providers, logger)
		})
	}

	if err := sm.WaitForShutdown(); err != nil {
		logger.WithError(err).Error("Shutdown finished with errors")
		os.Exit(1)
	}
}

// buildAuditSink constructs the audit sink selected by configuration: the
// shared database, an append-only file, or both fanned out.
func buildAuditSink(cfg config.AuditConfig, db *sql.DB) (audit.Logger, error) {
	switch cfg.Sink {
	case config.AuditSinkFile:
		return audit.NewFileLogger(cfg.FilePath)
	case config.AuditSinkBoth:
		dbSink, err := audit.NewDBLogger(db)
		if err != nil {
			return nil, err
		}
		fileSink, err := audit.NewFileLogger(cfg.FilePath)
		if err != nil {
			dbSink.Close()
			return nil, err
		}
		return audit.NewMultiLogger(dbSink, fileSink), nil
	default:
		return audit.NewDBLogger(db)
	}
}

// collectRuntimeStats publishes connection pool and cache gauges until the
// context is cancelled.
func collectRuntimeStats(ctx context.Context, cm *postgres.ConnectionManager, cache access.DecisionCache, metrics *observability.Metrics) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := cm.Stats()
			metrics.CollectDBStats(stats.Primary.OpenConnections, stats.Primary.Idle)
			metrics.DecisionCacheEntries.Set(float64(cache.Len(ctx)))
		}
	}
}
