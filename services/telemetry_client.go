package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"hydramind/models"

	"go.uber.org/zap"
)

const userAgent = "HydraMind-Dashboard/1.0"

// TelemetrySource is the external system the poller reads from
type TelemetrySource interface {
	FetchTelemetry(ctx context.Context) (*models.TelemetrySample, error)
	TriggerScenario(ctx context.Context, scenario models.Scenario) (*models.ScenarioResponse, error)
}

// TelemetryClient talks to the telemetry source over HTTP JSON
type TelemetryClient struct {
	logger     *zap.Logger
	baseURL    string
	httpClient *http.Client
}

// NewTelemetryClient creates a client for the source at baseURL
func NewTelemetryClient(baseURL string, timeout time.Duration, logger *zap.Logger) *TelemetryClient {
	return &TelemetryClient{
		logger:  logger,
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// FetchTelemetry reads one sample. Transport errors, non-2xx responses and
// bodies missing required fields are all returned as errors.
func (c *TelemetryClient) FetchTelemetry(ctx context.Context) (*models.TelemetrySample, error) {
	endpoint := c.baseURL + "/api/telemetry"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch telemetry: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("telemetry API error: %s", resp.Status)
	}

	var sample models.TelemetrySample
	if err := json.NewDecoder(resp.Body).Decode(&sample); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrMalformedSample, err)
	}
	if err := sample.Validate(); err != nil {
		return nil, err
	}

	c.logger.Debug("Telemetry received",
		zap.Float64("ph", *sample.Sensors.PH),
		zap.Float64("cod", *sample.Sensors.COD),
		zap.Float64("phenol", *sample.Sensors.Phenol),
		zap.Float64("oil_grease", *sample.Sensors.OilGrease),
		zap.String("system_status", sample.SystemStatus),
	)
	return &sample, nil
}

// TriggerScenario asks the source to switch into a fault-injection state
func (c *TelemetryClient) TriggerScenario(ctx context.Context, scenario models.Scenario) (*models.ScenarioResponse, error) {
	if !scenario.Valid() {
		return nil, fmt.Errorf("%w: %q", models.ErrUnknownScenario, scenario)
	}

	jsonData, err := json.Marshal(models.ScenarioRequest{Scenario: scenario})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	endpoint := c.baseURL + "/api/simulation/trigger"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("scenario API error: %s", resp.Status)
	}

	// The body is informational; sources are free to return anything
	var result models.ScenarioResponse
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if len(body) > 0 {
		_ = json.Unmarshal(body, &result)
	}
	return &result, nil
}
