package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hydramind/api"
	"hydramind/config"
	"hydramind/log"
	"hydramind/services"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

func main() {
	logger := log.GetInstance()
	defer logger.Sync()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	// Chart labels use the plant's local time
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Fatal("Failed to load timezone", zap.String("timezone", cfg.Timezone), zap.Error(err))
	}
	time.Local = loc

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := services.NewPromMetrics(registry)

	thresholds := services.ThresholdsFromConfig(cfg)
	projector := services.NewProjector(thresholds)
	store := services.NewDashboardStore(projector, cfg.HistoryLimit, metrics, log.Component("store"))
	poller := services.NewPoller(services.PollerConfig{
		BaseURL:  cfg.TelemetryBaseURL,
		Interval: cfg.PollInterval,
		Timeout:  cfg.RequestTimeout,
	}, store, metrics, log.Component("poller"))

	linkHealth := services.NewLinkHealthService(cfg.LinkStaleTimeout, log.Component("link_health"))
	store.Subscribe(linkHealth.Observe)

	views := services.NewViewRouter(thresholds, log.Component("view"))
	hub := services.NewHub(views.State, metrics, log.Component("hub"))
	store.Subscribe(hub.Observe)

	// Outbound sinks are optional; one that fails to start is skipped
	var sinks []services.SnapshotSink
	var closers []func()

	if cfg.TelegramEnabled() {
		telegramService, err := services.NewTelegramService(cfg, log.Component("telegram"))
		if err != nil {
			logger.Error("Telegram disabled", zap.Error(err))
		} else {
			if err := telegramService.SendStartupMessage(cfg.TelemetryBaseURL); err != nil {
				logger.Warn("Failed to send startup message", zap.Error(err))
			}
			sinks = append(sinks, telegramService)
		}
	}

	if cfg.RabbitMQURL != "" {
		rabbitService, err := services.NewRabbitMQService(ctx, cfg, log.Component("rabbitmq"))
		if err != nil {
			logger.Error("RabbitMQ disabled", zap.Error(err))
		} else {
			sinks = append(sinks, rabbitService)
			closers = append(closers, func() { rabbitService.Close() })
		}
	}

	if cfg.MQTTBroker != "" {
		mqttService, err := services.NewMQTTService(cfg, log.Component("mqtt"))
		if err != nil {
			logger.Error("MQTT disabled", zap.Error(err))
		} else {
			sinks = append(sinks, mqttService)
			closers = append(closers, mqttService.Close)
		}
	}

	if cfg.RedisAddr != "" {
		redisService, err := services.NewRedisService(ctx, cfg, log.Component("redis"))
		if err != nil {
			logger.Error("Redis disabled", zap.Error(err))
		} else {
			sinks = append(sinks, redisService)
			closers = append(closers, func() { redisService.Close() })
		}
	}

	var batchWriter *services.BatchWriterService
	if cfg.FirebaseEnabled() {
		firebaseService, err := services.NewFirebaseService(ctx, cfg, log.Component("firebase"))
		if err != nil {
			logger.Error("Firebase history mirror disabled", zap.Error(err))
		} else {
			batchWriter = services.NewBatchWriterService(cfg, firebaseService, log.Component("batch_writer"))
			sinks = append(sinks, batchWriter)
			closers = append(closers, func() { firebaseService.Close() })
		}
	}

	fanout := services.NewFanout(cfg.SinkBuffer, metrics, log.Component("fanout"), sinks...)
	if len(sinks) > 0 {
		store.Subscribe(fanout.Observe)
		go fanout.Start(ctx)
	}
	if batchWriter != nil {
		go batchWriter.Start(ctx)
	}

	go hub.Run(ctx)
	go linkHealth.Start(ctx)

	pollerDone := make(chan struct{})
	go func() {
		defer close(pollerDone)
		poller.Start(ctx)
	}()

	handler := api.NewDashboardHandler(ctx, store, views, poller, hub, log.Component("api"))
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.SetupDashboardRouter(handler, linkHealth, registry, log.Component("http")),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed", zap.Error(err))
			cancel()
		}
	}()

	logger.Info("HydraMind dashboard started",
		zap.String("addr", cfg.HTTPAddr),
		zap.String("telemetry_base_url", cfg.TelemetryBaseURL),
		zap.Duration("poll_interval", cfg.PollInterval),
		zap.Int("history_limit", cfg.HistoryLimit),
		zap.Float64("cod_max", cfg.AlertCODMax),
		zap.Float64("phenol_max", cfg.AlertPhenolMax),
		zap.Float64("oil_grease_max", cfg.AlertOilGreaseMax),
		zap.Int("sinks", len(sinks)),
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	cleanupDone := make(chan bool, 1)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, stopping services")
		cancel()

		select {
		case <-cleanupDone:
			logger.Info("Cleanup completed successfully")
		case <-time.After(15 * time.Second):
			logger.Warn("Cleanup timeout, forcing exit")
		}

		logger.Info("HydraMind dashboard stopped")
		os.Exit(0)
	}()

	<-ctx.Done()

	logger.Info("Starting cleanup")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error shutting down HTTP server", zap.Error(err))
	}
	shutdownCancel()

	<-pollerDone

	if len(sinks) > 0 && !fanout.WaitForShutdown(10*time.Second) {
		logger.Warn("Fan-out did not drain in time", zap.Int("queued", fanout.Len()))
	}
	if batchWriter != nil && !batchWriter.WaitForShutdown(10*time.Second) {
		logger.Warn("History batch writer did not flush in time", zap.Int("buffered", batchWriter.GetBufferSize()))
	}

	for _, closeFn := range closers {
		closeFn()
	}

	cleanupDone <- true
}
