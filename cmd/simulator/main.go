package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hydramind/api"
	"hydramind/config"
	"hydramind/log"
	"hydramind/services"

	"go.uber.org/zap"
)

var (
	addr = flag.String("addr", "", "Listen address (defaults to SIMULATOR_ADDR)")
	seed = flag.Int64("seed", 0, "Noise seed (0 picks one from the clock)")
)

func main() {
	flag.Parse()

	logger := log.GetInstance()
	defer logger.Sync()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	listen := cfg.SimulatorAddr
	if *addr != "" {
		listen = *addr
	}
	noiseSeed := *seed
	if noiseSeed == 0 {
		noiseSeed = time.Now().UnixNano()
	}

	twin := services.NewDigitalTwin(noiseSeed)
	handler := api.NewSimulatorHandler(twin, log.Component("simulator"))
	server := &http.Server{
		Addr:              listen,
		Handler:           api.SetupSimulatorRouter(handler, log.Component("http")),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Simulator server failed", zap.Error(err))
			stop()
		}
	}()

	logger.Info("HydraMind digital twin running",
		zap.String("addr", listen),
		zap.Int64("seed", noiseSeed))

	<-ctx.Done()
	logger.Info("Shutting down digital twin")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error shutting down simulator", zap.Error(err))
	}
}
