package services

import (
	"context"
	"time"

	"hydramind/models"

	"go.uber.org/zap"
)

// SnapshotSink receives dashboard snapshots for delivery outside the process
type SnapshotSink interface {
	Name() string
	Publish(ctx context.Context, snapshot *models.Snapshot) error
}

// Fanout forwards store snapshots to sinks on its own goroutine so that slow
// sinks never hold up the poll path. When the queue is full the snapshot is dropped.
type Fanout struct {
	sinks   []SnapshotSink
	queue   chan *models.Snapshot
	timeout time.Duration
	metrics *PromMetrics
	logger  *zap.Logger
	done    chan struct{}
}

func NewFanout(buffer int, metrics *PromMetrics, logger *zap.Logger, sinks ...SnapshotSink) *Fanout {
	if buffer <= 0 {
		buffer = 64
	}
	return &Fanout{
		sinks:   sinks,
		queue:   make(chan *models.Snapshot, buffer),
		timeout: 10 * time.Second,
		metrics: metrics,
		logger:  logger,
		done:    make(chan struct{}),
	}
}

// Observe is a store Observer
func (f *Fanout) Observe(snapshot *models.Snapshot) {
	select {
	case f.queue <- snapshot:
	default:
		f.metrics.IncSinkDrop()
		f.logger.Warn("Sink queue full, dropping snapshot", zap.Uint64("seq", snapshot.Seq))
	}
}

// Len reports queued snapshots (for monitoring)
func (f *Fanout) Len() int {
	return len(f.queue)
}

// Start delivers queued snapshots until ctx is done, then drains what is left
func (f *Fanout) Start(ctx context.Context) {
	defer close(f.done)

	names := make([]string, 0, len(f.sinks))
	for _, sink := range f.sinks {
		names = append(names, sink.Name())
	}
	f.logger.Info("Starting snapshot fan-out", zap.Strings("sinks", names))

	for {
		select {
		case <-ctx.Done():
			f.drain()
			f.logger.Info("Snapshot fan-out stopped")
			return
		case snapshot := <-f.queue:
			f.deliver(ctx, snapshot)
		}
	}
}

func (f *Fanout) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), f.timeout)
	defer cancel()
	for {
		select {
		case snapshot := <-f.queue:
			f.deliver(ctx, snapshot)
		default:
			return
		}
	}
}

func (f *Fanout) deliver(ctx context.Context, snapshot *models.Snapshot) {
	for _, sink := range f.sinks {
		sinkCtx, cancel := context.WithTimeout(ctx, f.timeout)
		err := sink.Publish(sinkCtx, snapshot)
		cancel()
		if err != nil {
			f.metrics.IncSinkError(sink.Name())
			f.logger.Error("Failed to publish snapshot",
				zap.String("sink", sink.Name()),
				zap.Uint64("seq", snapshot.Seq),
				zap.Error(err))
		}
	}
}

// WaitForShutdown waits for Start to return
func (f *Fanout) WaitForShutdown(timeout time.Duration) bool {
	select {
	case <-f.done:
		return true
	case <-time.After(timeout):
		return false
	}
}
