package services

import (
	"context"
	"sync"
	"time"

	"hydramind/config"
	"hydramind/models"

	"go.uber.org/zap"
)

// HistoryWriter persists a batch of chart points
type HistoryWriter interface {
	WriteBatch(ctx context.Context, points []models.HistoryPoint) error
}

// BatchWriterService collects the newest history point of every telemetry
// snapshot and writes them in batches
type BatchWriterService struct {
	writer       HistoryWriter
	logger       *zap.Logger
	points       chan models.HistoryPoint
	buffer       []models.HistoryPoint
	bufferMutex  sync.Mutex
	flushTimer   *time.Timer
	maxBatchSize int
	batchTimeout time.Duration
	retry        retryPolicy
	shutdownChan chan bool
}

func NewBatchWriterService(cfg *config.Config, writer HistoryWriter, logger *zap.Logger) *BatchWriterService {
	size := cfg.FirebaseBatchSize
	if size <= 0 {
		size = 20
	}
	timeout := time.Duration(cfg.FirebaseBatchTimeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &BatchWriterService{
		writer:       writer,
		logger:       logger,
		points:       make(chan models.HistoryPoint, size),
		buffer:       make([]models.HistoryPoint, 0, size),
		maxBatchSize: size,
		batchTimeout: timeout,
		retry:        retryPolicy{attempts: 3, step: time.Second},
		shutdownChan: make(chan bool, 1),
	}
}

func (bw *BatchWriterService) Name() string {
	return "history"
}

// Publish queues the point a telemetry snapshot appended. Offline and
// initial snapshots carry no new point and are skipped.
func (bw *BatchWriterService) Publish(ctx context.Context, snapshot *models.Snapshot) error {
	if snapshot.Cause != models.CauseTelemetry {
		return nil
	}
	point, ok := snapshot.LatestPoint()
	if !ok {
		return nil
	}
	select {
	case bw.points <- point:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Start runs the batching loop until ctx is done
func (bw *BatchWriterService) Start(ctx context.Context) {
	bw.logger.Info("Starting history batch writer",
		zap.Int("max_batch_size", bw.maxBatchSize),
		zap.Duration("batch_timeout", bw.batchTimeout))

	bw.flushTimer = time.NewTimer(bw.batchTimeout)
	defer bw.flushTimer.Stop()

	for {
		select {
		case <-ctx.Done():
			bw.logger.Info("Batch writer received shutdown signal")
			bw.drainQueue()
			flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			bw.flushBuffer(flushCtx)
			cancel()
			bw.shutdownChan <- true
			return

		case point := <-bw.points:
			bw.bufferMutex.Lock()
			bw.buffer = append(bw.buffer, point)
			currentSize := len(bw.buffer)
			bw.bufferMutex.Unlock()

			if currentSize >= bw.maxBatchSize {
				bw.logger.Debug("Buffer full, flushing history", zap.Int("buffer_size", currentSize))

				if !bw.flushTimer.Stop() {
					select {
					case <-bw.flushTimer.C:
					default:
					}
				}
				bw.flushBuffer(ctx)
				bw.flushTimer.Reset(bw.batchTimeout)
			}

		case <-bw.flushTimer.C:
			if bw.GetBufferSize() > 0 {
				bw.flushBuffer(ctx)
			}
			bw.flushTimer.Reset(bw.batchTimeout)
		}
	}
}

func (bw *BatchWriterService) drainQueue() {
	bw.bufferMutex.Lock()
	defer bw.bufferMutex.Unlock()
	for {
		select {
		case point := <-bw.points:
			bw.buffer = append(bw.buffer, point)
		default:
			return
		}
	}
}

func (bw *BatchWriterService) flushBuffer(ctx context.Context) {
	bw.bufferMutex.Lock()
	if len(bw.buffer) == 0 {
		bw.bufferMutex.Unlock()
		return
	}
	batch := make([]models.HistoryPoint, len(bw.buffer))
	copy(batch, bw.buffer)
	bw.buffer = bw.buffer[:0]
	bw.bufferMutex.Unlock()

	err := bw.retry.do(ctx, bw.logger, "History batch write", func(ctx context.Context) error {
		return bw.writer.WriteBatch(ctx, batch)
	})
	if err != nil {
		bw.logger.Error("History batch dropped", zap.Int("batch_size", len(batch)), zap.Error(err))
		return
	}
	bw.logger.Info("Flushed history batch", zap.Int("batch_size", len(batch)))
}

// WaitForShutdown waits for the final flush
func (bw *BatchWriterService) WaitForShutdown(timeout time.Duration) bool {
	select {
	case <-bw.shutdownChan:
		return true
	case <-time.After(timeout):
		return false
	}
}

// GetBufferSize returns the current buffer size (for monitoring)
func (bw *BatchWriterService) GetBufferSize() int {
	bw.bufferMutex.Lock()
	defer bw.bufferMutex.Unlock()
	return len(bw.buffer)
}
