package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"hydramind/config"
	"hydramind/log"
	"hydramind/models"
	"hydramind/services"

	"go.uber.org/zap"
)

// Sends one scenario to a telemetry source and prints the state that follows
func main() {
	scenario := flag.String("scenario", "", "DESALTER_FAIL, SOUR_WATER_FAIL or RESET")
	baseURL := flag.String("base-url", "", "Telemetry source base URL (defaults to TELEMETRY_BASE_URL)")
	timeout := flag.Duration("timeout", 0, "Request timeout (defaults to REQUEST_TIMEOUT)")
	flag.Parse()

	logger := log.GetInstance()
	defer logger.Sync()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}
	if *baseURL != "" {
		cfg.TelemetryBaseURL = *baseURL
	}
	if *timeout > 0 {
		cfg.RequestTimeout = *timeout
	}

	s := models.Scenario(*scenario)
	if !s.Valid() {
		fmt.Fprintf(os.Stderr, "unknown scenario %q\n", *scenario)
		flag.Usage()
		os.Exit(2)
	}

	client := services.NewTelemetryClient(cfg.TelemetryBaseURL, cfg.RequestTimeout, log.Component("client"))

	ctx, cancel := context.WithTimeout(context.Background(), 3*cfg.RequestTimeout)
	defer cancel()

	resp, err := client.TriggerScenario(ctx, s)
	if err != nil {
		logger.Fatal("Scenario trigger failed", zap.String("scenario", *scenario), zap.Error(err))
	}
	fmt.Printf("%s: %s\n", resp.Status, resp.CurrentState)

	sample, err := client.FetchTelemetry(ctx)
	if err != nil {
		logger.Fatal("Follow-up read failed", zap.Error(err))
	}

	projection, err := services.NewProjector(services.ThresholdsFromConfig(cfg)).Project(sample, time.Now())
	if err != nil {
		logger.Fatal("Follow-up read malformed", zap.Error(err))
	}
	m := projection.Metrics
	fmt.Printf("status=%s alert=%t ph=%.1f cod=%.0f phenol=%.2f oil=%.1f dosage=%.2f\n",
		projection.Status, projection.Alert, m.PH, m.COD, m.Phenol, m.Oil, m.Dosage)
}
