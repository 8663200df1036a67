package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/GruntingRhino/Athlemetry/internal/adapters/http/api"
	"github.com/GruntingRhino/Athlemetry/internal/adapters/http/swagger"
	"github.com/GruntingRhino/Athlemetry/internal/adapters/repository"
	"github.com/GruntingRhino/Athlemetry/internal/adapters/storage"
	service "github.com/GruntingRhino/Athlemetry/internal/app"
	"github.com/GruntingRhino/Athlemetry/internal/config"
	"github.com/GruntingRhino/Athlemetry/internal/domain/claim"
	"github.com/GruntingRhino/Athlemetry/internal/domain/retention"
	"github.com/GruntingRhino/Athlemetry/internal/seed"
	"github.com/GruntingRhino/Athlemetry/pkg/logger"
	"github.com/GruntingRhino/Athlemetry/pkg/metrics"
	"github.com/GruntingRhino/Athlemetry/pkg/tracing"
)

// HTTP server timeout constants.
const (
	readTimeout               = 30 * time.Second
	writeTimeout              = 60 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	nanosecondsPerMillisecond = 1e6
	serviceName               = "athlemetry"
	serviceVersion            = "1.0.0"
)

func main() {
	// Custom system gauges replace the default Go collectors.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		logger.Get().Error(ctx, "athlemetry exited", logger.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	log := logger.Get()

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	shutdownTracing, err := tracing.Init(ctx, tracing.Config{
		Enabled:      cfg.TracingEnabled,
		ServiceName:  serviceName,
		Version:      serviceVersion,
		OTLPEndpoint: cfg.OTLPEndpoint,
		Insecure:     cfg.OTLPInsecure,
		SampleRatio:  cfg.TracingSampleRatio,
	})
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			log.Warn(ctx, "tracing shutdown failed", logger.Error(err))
		}
	}()

	db, err := repository.Open(cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	store := repository.New(db)
	defer func() {
		if err := store.Close(); err != nil {
			log.Warn(ctx, "database close failed", logger.Error(err))
		}
	}()
	if err := store.Migrate(ctx); err != nil {
		return err
	}
	if _, err := seed.Catalog(ctx, store, time.Now().UTC()); err != nil {
		return err
	}

	resolver := storage.NewResolver(storageConfig(cfg))
	if err := resolver.Validate(ctx); err != nil {
		return err
	}

	claimer, closeClaimer := newClaimer(cfg)
	defer closeClaimer()

	svc := service.New(store, resolver, append(serviceOptions(cfg), service.WithClaimer(claimer))...)
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer svc.Stop()

	go startSystemMetricsUpdater(ctx)

	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	apiServer := api.NewServer(svc, svc, store, api.WithMaxUploadBytes(cfg.MaxVideoBytes()))

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           apiServer.Handler(ctx, mux),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server",
			logger.String("addr", cfg.Addr),
			logger.String("storage", cfg.StorageProvider),
			logger.String("claims", cfg.ClaimBackend),
			logger.Int("workers", cfg.WorkerCount))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return err
		}
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	log.Info(ctx, "server stopped")
	return nil
}

func storageConfig(cfg *config.Config) storage.Config {
	return storage.Config{
		Provider: cfg.StorageProvider,
		LocalDir: cfg.LocalStorageDir,
		S3: storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			ForcePathStyle:  cfg.S3ForcePathStyle,
		},
		GCS: storage.GCSConfig{
			Bucket:          cfg.GCSBucket,
			CredentialsFile: cfg.GCSCredentialsFile,
		},
	}
}

// newClaimer returns the configured claim backend and its cleanup.
func newClaimer(cfg *config.Config) (claim.Claimer, func()) {
	if cfg.ClaimBackend != "redis" {
		return claim.NewInMemoryClaimer(), func() {}
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	opts := []claim.RedisOption{}
	if ttl := cfg.ClaimTTL(); ttl > 0 {
		opts = append(opts, claim.WithTTL(ttl))
	}
	return claim.NewRedisClaimer(client, opts...), func() { _ = client.Close() }
}

func serviceOptions(cfg *config.Config) []service.Option {
	return []service.Option{
		service.WithLogger(logger.Named("service")),
		service.WithRetention(retention.NewPolicy(cfg.VideoRetentionHours, cfg.KeepFailedVideosForDebug)),
		service.WithWorkerCount(cfg.WorkerCount),
		service.WithBatchLimit(cfg.BatchLimit),
		service.WithPurgeLimit(cfg.PurgeLimit),
		service.WithItemTimeout(cfg.ItemTimeout()),
		service.WithMaxVideoBytes(cfg.MaxVideoBytes()),
		service.WithBatchInterval(cfg.BatchInterval()),
		service.WithStatsInterval(cfg.StatsInterval()),
	}
}

// startSystemMetricsUpdater refreshes process gauges until ctx ends.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}
