package services

import (
	"sync"
	"sync/atomic"
	"time"

	"hydramind/models"

	"go.uber.org/zap"
)

// Observer receives every snapshot the store publishes. Observers run on the
// mutating goroutine and must not call back into the store's mutators.
type Observer func(*models.Snapshot)

type observerEntry struct {
	id uint64
	fn Observer
}

// DashboardStore owns the dashboard state: metrics, alert flag, status text and
// history. ApplyTelemetry is the only path that changes metrics and history.
//
// Every read is tagged with a sequence number taken from NextSequence when it
// is dispatched. A result is applied only if its sequence is newer than the
// last applied one, so a slow response can never overwrite a newer read.
type DashboardStore struct {
	projector *Projector
	logger    *zap.Logger
	metrics   *PromMetrics

	dispatched atomic.Uint64

	mu        sync.Mutex
	history   *HistoryBuffer
	current   models.Metrics
	anomalies []*models.Anomaly
	alert     bool
	status    string
	online    bool
	lastSeq   uint64
	cause     models.SnapshotCause
	updatedAt time.Time
	closed    bool

	// notifyMu keeps observer delivery in the same order as mutations
	notifyMu     sync.Mutex
	observerMu   sync.RWMutex
	observers    []observerEntry
	nextObserver uint64
}

func NewDashboardStore(projector *Projector, historyLimit int, metrics *PromMetrics, logger *zap.Logger) *DashboardStore {
	return &DashboardStore{
		projector: projector,
		logger:    logger,
		metrics:   metrics,
		history:   NewHistoryBuffer(historyLimit),
		current:   models.InitialMetrics(),
		status:    models.StatusConnecting,
		cause:     models.CauseInitial,
	}
}

// NextSequence tags a read at dispatch time
func (s *DashboardStore) NextSequence() uint64 {
	return s.dispatched.Add(1)
}

// ApplyTelemetry projects a successful read into the state. It returns false
// without changing anything when the read is stale or the store is closed, and
// an error when the sample is malformed.
func (s *DashboardStore) ApplyTelemetry(seq uint64, sample *models.TelemetrySample, at time.Time) (bool, error) {
	projection, err := s.projector.Project(sample, at)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	if s.closed || seq <= s.lastSeq {
		s.mu.Unlock()
		return false, nil
	}

	s.current = projection.Metrics
	s.alert = projection.Alert
	s.anomalies = projection.Anomalies
	s.status = projection.Status
	s.online = true
	s.history.Append(projection.Point)
	s.lastSeq = seq
	s.cause = models.CauseTelemetry
	s.updatedAt = at

	s.publishLocked()
	return true, nil
}

// MarkOffline records a failed read. Metrics, alert and history keep their
// previous values; only the status text and online flag change.
func (s *DashboardStore) MarkOffline(seq uint64, at time.Time) bool {
	s.mu.Lock()
	if s.closed || seq <= s.lastSeq {
		s.mu.Unlock()
		return false
	}

	s.status = models.StatusOffline
	s.online = false
	s.lastSeq = seq
	s.cause = models.CauseOffline
	s.updatedAt = at

	s.publishLocked()
	return true
}

// publishLocked must be called with mu held; it releases mu before notifying
func (s *DashboardStore) publishLocked() {
	snapshot := s.snapshotLocked()
	s.notifyMu.Lock()
	s.mu.Unlock()
	defer s.notifyMu.Unlock()

	s.metrics.SetState(snapshot.Alert, snapshot.Online, len(snapshot.History))

	s.observerMu.RLock()
	observers := make([]observerEntry, len(s.observers))
	copy(observers, s.observers)
	s.observerMu.RUnlock()

	for _, o := range observers {
		o.fn(snapshot)
	}
}

func (s *DashboardStore) snapshotLocked() *models.Snapshot {
	anomalies := make([]*models.Anomaly, len(s.anomalies))
	copy(anomalies, s.anomalies)

	return &models.Snapshot{
		Seq:       s.lastSeq,
		Cause:     s.cause,
		Metrics:   s.current,
		Alert:     s.alert,
		Anomalies: anomalies,
		Status:    s.status,
		Online:    s.online,
		History:   s.history.Points(),
		UpdatedAt: s.updatedAt,
	}
}

// Snapshot returns a copy of the current state
func (s *DashboardStore) Snapshot() *models.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe registers an observer and returns a function that removes it
func (s *DashboardStore) Subscribe(fn Observer) func() {
	s.observerMu.Lock()
	s.nextObserver++
	id := s.nextObserver
	s.observers = append(s.observers, observerEntry{id: id, fn: fn})
	s.observerMu.Unlock()

	return func() {
		s.observerMu.Lock()
		defer s.observerMu.Unlock()
		for i, o := range s.observers {
			if o.id == id {
				s.observers = append(s.observers[:i], s.observers[i+1:]...)
				return
			}
		}
	}
}

// Close discards every later result. It is called when polling stops.
func (s *DashboardStore) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		s.logger.Info("Dashboard store closed", zap.Uint64("last_seq", s.lastSeq))
	}
}

func (s *DashboardStore) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
