package services

import (
	"context"
	"sync"
	"time"

	"hydramind/models"

	"go.uber.org/zap"
)

// LinkHealthService reports the telemetry link unhealthy when no sample has
// been accepted within the timeout
type LinkHealthService struct {
	timeout time.Duration
	logger  *zap.Logger
	now     func() time.Time

	mu        sync.RWMutex
	startedAt time.Time
	lastSeen  time.Time
	stale     bool
	staleAt   time.Time
}

func NewLinkHealthService(timeout time.Duration, logger *zap.Logger) *LinkHealthService {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &LinkHealthService{
		timeout:   timeout,
		logger:    logger,
		now:       time.Now,
		startedAt: time.Now(),
	}
}

// Observe is a store Observer; only accepted telemetry counts as a sign of life
func (h *LinkHealthService) Observe(snapshot *models.Snapshot) {
	if snapshot.Cause != models.CauseTelemetry {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	now := h.now()
	h.lastSeen = now
	if h.stale {
		h.stale = false
		h.logger.Info("Telemetry link recovered",
			zap.Duration("down_duration", now.Sub(h.staleAt)),
			zap.Uint64("seq", snapshot.Seq))
	}
}

// Start runs the timeout checker until ctx is done
func (h *LinkHealthService) Start(ctx context.Context) {
	interval := h.timeout / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	h.logger.Info("Telemetry link watchdog started", zap.Duration("timeout", h.timeout))

	for {
		select {
		case <-ctx.Done():
			h.logger.Info("Telemetry link watchdog stopped")
			return
		case <-ticker.C:
			h.checkTimeout()
		}
	}
}

func (h *LinkHealthService) checkTimeout() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.stale {
		return
	}

	now := h.now()
	silence := now.Sub(h.reference())
	if silence > h.timeout {
		h.stale = true
		h.staleAt = now
		h.logger.Warn("Telemetry link silent",
			zap.Time("last_seen", h.lastSeen),
			zap.Duration("silence", silence))
	}
}

// reference is the last accepted sample, or the start time before the first one
func (h *LinkHealthService) reference() time.Time {
	if h.lastSeen.IsZero() {
		return h.startedAt
	}
	return h.lastSeen
}

// Status reports whether an accepted sample arrived within the timeout
func (h *LinkHealthService) Status() models.LinkStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()

	silence := h.now().Sub(h.reference())
	status := models.LinkStatus{
		Healthy:  silence <= h.timeout,
		LastSeen: h.lastSeen,
		Timeout:  h.timeout.String(),
	}
	if !h.lastSeen.IsZero() {
		status.Silence = silence.Round(time.Millisecond).String()
	}
	return status
}
