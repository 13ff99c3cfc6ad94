package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"dataportal/internal/platform/config"
	"dataportal/internal/platform/health"
	"dataportal/internal/platform/kafka"
	"dataportal/internal/platform/kafka/consumer"
	"dataportal/internal/platform/kafka/producer"
	"dataportal/internal/platform/logger"
	platformmetrics "dataportal/internal/platform/metrics"
	"dataportal/internal/platform/redis"
	"dataportal/internal/portal/aggregator"
	"dataportal/internal/portal/broadcast"
	"dataportal/internal/portal/cache"
	"dataportal/internal/portal/handler"
	"dataportal/internal/portal/scope"
	portalmetrics "dataportal/internal/portal/metrics"
	"dataportal/internal/portal/sources/live"
	"dataportal/internal/portal/tracer"
	"dataportal/pkg/platform/middleware/request"
)

const (
	requestTimeout  = 60 * time.Second
	shutdownTimeout = 10 * time.Second
	poolStatsPeriod = 15 * time.Second
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Portal logic lives in internal/portal.
func main() {
	cfg, err := config.FromEnv(scope.Keys...)
	if err != nil {
		slog.Error("load configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("initializing dataportal",
		"addr", cfg.Addr,
		"env", cfg.Environment,
		"cache_ttl", cfg.CacheTTL.String(),
		"redis", cfg.Redis.URL != "",
		"kafka", cfg.Kafka.Brokers != "",
		"secrets", len(cfg.Secrets),
	)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	platformMetrics := platformmetrics.New(reg)
	portalMetrics := portalmetrics.New(reg)
	healthHandler := health.New(cfg.Environment)

	store, closeStore := buildStore(ctx, cfg, log, platformMetrics, portalMetrics, healthHandler)
	defer closeStore()

	adapters := live.New(cfg)
	defer adapters.Close() //nolint:errcheck // best-effort on shutdown

	aggOpts := []aggregator.Option{
		aggregator.WithCache(cache.New(store, cache.WithMetrics(portalMetrics), cache.WithLogger(log))),
		aggregator.WithTTL(cfg.CacheTTL),
		aggregator.WithDepartmentConfig(cfg.DepartmentConfig),
		aggregator.WithTracer(buildTracer(cfg)),
		aggregator.WithMetrics(portalMetrics),
		aggregator.WithLogger(log),
	}

	instance := uuid.NewString()
	var prod *producer.Producer
	if cfg.Kafka.Brokers != "" {
		p, err := producer.New(producer.DefaultConfig(cfg.Kafka.Brokers), log)
		if err != nil {
			log.Warn("kafka unavailable, refresh broadcast disabled", "error", err)
		} else {
			prod = p
			defer prod.Close()
			healthHandler.RegisterCheck("kafka", kafka.NewHealthChecker(cfg.Kafka.Brokers).Check)
			aggOpts = append(aggOpts, aggregator.WithRefreshNotifier(broadcast.NewNotifier(prod, cfg.Kafka.RefreshTopic, instance)))
		}
	}

	agg := aggregator.New(adapters.Catalog, adapters.Metrics, adapters.Warehouse, aggOpts...)

	if prod != nil {
		startRefreshListener(ctx, cfg.Kafka, instance, agg, log)
	}

	r := chi.NewRouter()
	r.Use(request.Recovery(log))
	r.Use(request.RequestID)
	r.Use(request.Logger(log))
	r.Use(request.Latency(platformMetrics))
	r.Use(request.Timeout(requestTimeout))

	healthHandler.Register(r)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	handler.New(agg, log).Register(r)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("starting http server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down server gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

// buildStore prefers a shared Redis store guarded by a breaker that falls
// back to process memory; without REDIS_URL the memory store is used alone.
func buildStore(ctx context.Context, cfg config.Server, log *slog.Logger, m *platformmetrics.Metrics, pm *portalmetrics.Metrics, hh *health.Handler) (cache.Store, func()) {
	client, err := redis.New(ctx, cfg.Redis, m)
	if err != nil {
		log.Warn("redis unavailable, using in-memory cache", "error", err)
		return cache.NewMemoryStore(nil), func() {}
	}
	if client == nil {
		return cache.NewMemoryStore(nil), func() {}
	}

	hh.RegisterCheck("redis", client.Health)
	go client.ReportPoolStats(ctx, poolStatsPeriod)
	log.Info("using redis cache store")
	primary := cache.NewRedisStore(client.Client, cache.DefaultRedisPrefix)
	return cache.NewResilientStore(primary, cache.NewMemoryStore(nil), log, cache.WithStoreMetrics(pm)), func() {
		_ = client.Close()
	}
}

// startRefreshListener joins a per-replica consumer group so every replica
// sees every refresh event.
func startRefreshListener(ctx context.Context, cfg config.KafkaConfig, instance string, agg *aggregator.Aggregator, log *slog.Logger) {
	c, err := consumer.New(consumer.Config{
		Brokers: cfg.Brokers,
		GroupID: "dataportal-refresh-" + instance,
		Topics:  []string{cfg.RefreshTopic},
	}, broadcast.NewListener(instance, agg, log), log)
	if err != nil {
		log.Warn("refresh listener disabled", "error", err)
		return
	}
	go c.Run(ctx)
	log.Info("listening for peer refreshes", "topic", cfg.RefreshTopic, "instance", instance)
}

func buildTracer(cfg config.Server) tracer.Tracer {
	if cfg.OTel.Enabled {
		return tracer.NewOTel()
	}
	return tracer.NewNoop()
}
