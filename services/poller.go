package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"hydramind/models"

	"go.uber.org/zap"
)

const DefaultPollInterval = 2 * time.Second

// PollerConfig points the poller at a telemetry source
type PollerConfig struct {
	BaseURL  string
	Interval time.Duration
	Timeout  time.Duration
}

// Poller reads the telemetry source on a fixed cadence and feeds the store
type Poller struct {
	source   TelemetrySource
	store    *DashboardStore
	interval time.Duration
	metrics  *PromMetrics
	logger   *zap.Logger
	now      func() time.Time
	inflight sync.WaitGroup
}

// NewPoller creates a poller with an HTTP client for cfg.BaseURL
func NewPoller(cfg PollerConfig, store *DashboardStore, metrics *PromMetrics, logger *zap.Logger) *Poller {
	client := NewTelemetryClient(cfg.BaseURL, cfg.Timeout, logger)
	return NewPollerWithSource(client, cfg.Interval, store, metrics, logger)
}

// NewPollerWithSource creates a poller over any telemetry source
func NewPollerWithSource(source TelemetrySource, interval time.Duration, store *DashboardStore, metrics *PromMetrics, logger *zap.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{
		source:   source,
		store:    store,
		interval: interval,
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
	}
}

// Start reads once immediately and then on every tick until ctx is done.
// Ticks never wait for the previous read; the store's sequence check decides
// which result wins. On shutdown the store is closed so late results are dropped.
func (p *Poller) Start(ctx context.Context) {
	p.logger.Info("Starting telemetry poller", zap.Duration("interval", p.interval))

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.dispatch(ctx)

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Telemetry poller received shutdown signal")
			p.store.Close()
			p.inflight.Wait()
			p.logger.Info("Telemetry poller stopped")
			return
		case <-ticker.C:
			p.dispatch(ctx)
		}
	}
}

func (p *Poller) dispatch(ctx context.Context) {
	p.inflight.Add(1)
	go func() {
		defer p.inflight.Done()
		p.PollOnce(ctx)
	}()
}

// PollOnce performs a single read and applies the outcome to the store
func (p *Poller) PollOnce(ctx context.Context) {
	seq := p.store.NextSequence()
	started := p.now()

	sample, err := p.source.FetchTelemetry(ctx)
	latency := p.now().Sub(started).Seconds()
	if err == nil {
		var applied bool
		applied, err = p.store.ApplyTelemetry(seq, sample, p.now())
		if err == nil {
			if applied {
				p.metrics.ObservePoll(PollSuccess, latency)
			} else {
				p.metrics.ObservePoll(PollStale, latency)
				p.logger.Debug("Discarded stale telemetry", zap.Uint64("seq", seq))
			}
			return
		}
	}

	if ctx.Err() != nil {
		// Shutting down; the read was cancelled, not lost
		return
	}

	p.logger.Warn("Telemetry poll failed",
		zap.Uint64("seq", seq),
		zap.Error(err))

	if p.store.MarkOffline(seq, p.now()) {
		p.metrics.ObservePoll(PollFailure, latency)
	} else {
		p.metrics.ObservePoll(PollStale, latency)
	}
}

// TriggerScenario sends a scenario command and immediately reads once more.
// Failures are logged and returned; they never mark the link offline.
func (p *Poller) TriggerScenario(ctx context.Context, scenario models.Scenario) error {
	if !scenario.Valid() {
		p.metrics.ObserveScenario(string(scenario), "rejected")
		return fmt.Errorf("%w: %q", models.ErrUnknownScenario, scenario)
	}

	resp, err := p.source.TriggerScenario(ctx, scenario)
	if err != nil {
		p.logger.Error("Failed to trigger scenario",
			zap.String("scenario", string(scenario)),
			zap.Error(err))
		p.metrics.ObserveScenario(string(scenario), "error")
		return fmt.Errorf("trigger %s: %w", scenario, err)
	}

	p.logger.Info("Scenario triggered",
		zap.String("scenario", string(scenario)),
		zap.String("current_state", resp.CurrentState))

	seq := p.store.NextSequence()
	sample, err := p.source.FetchTelemetry(ctx)
	if err == nil {
		_, err = p.store.ApplyTelemetry(seq, sample, p.now())
	}
	if err != nil {
		p.logger.Error("Failed to refresh telemetry after scenario",
			zap.String("scenario", string(scenario)),
			zap.Error(err))
		p.metrics.ObserveScenario(string(scenario), "error")
		return fmt.Errorf("refresh after %s: %w", scenario, err)
	}

	p.metrics.ObserveScenario(string(scenario), "ok")
	return nil
}
