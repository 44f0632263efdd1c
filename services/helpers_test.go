package services

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"hydramind/models"

	"go.uber.org/zap/zaptest"
)

var errSourceDown = errors.New("connection refused")

func newSample(ph, cod, phenol, oil, dosage float64, status string) *models.TelemetrySample {
	return &models.TelemetrySample{
		Sensors: models.Sensors{
			PH:        models.Float(ph),
			COD:       models.Float(cod),
			Phenol:    models.Float(phenol),
			OilGrease: models.Float(oil),
			Flow:      models.Float(120),
		},
		AIPrediction: models.AIPrediction{
			RecommendedDosingMlMin: models.Float(dosage),
		},
		SystemStatus: status,
	}
}

func normalSample() *models.TelemetrySample {
	return newSample(7.04, 350, 0.8, 15, 25.5, models.StatusNormal)
}

func newTestStore(t *testing.T) *DashboardStore {
	t.Helper()
	return NewDashboardStore(NewProjector(DefaultThresholds), DefaultHistoryLimit, nil, zaptest.NewLogger(t))
}

// fakeSource is an in-memory TelemetrySource. Queued results are returned in
// order; once the queue is empty the last result repeats.
type fakeSource struct {
	mu        sync.Mutex
	samples   []*models.TelemetrySample
	errs      []error
	fetches   int
	triggers  []models.Scenario
	triggerFn func(models.Scenario) (*models.ScenarioResponse, error)
	block     chan struct{}
}

func (f *fakeSource) push(sample *models.TelemetrySample, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.samples = append(f.samples, sample)
	f.errs = append(f.errs, err)
}

func (f *fakeSource) FetchTelemetry(ctx context.Context) (*models.TelemetrySample, error) {
	f.mu.Lock()
	block := f.block
	f.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	if len(f.samples) == 0 {
		return nil, errSourceDown
	}
	sample, err := f.samples[0], f.errs[0]
	if len(f.samples) > 1 {
		f.samples, f.errs = f.samples[1:], f.errs[1:]
	}
	return sample, err
}

func (f *fakeSource) TriggerScenario(ctx context.Context, scenario models.Scenario) (*models.ScenarioResponse, error) {
	f.mu.Lock()
	f.triggers = append(f.triggers, scenario)
	fn := f.triggerFn
	f.mu.Unlock()
	if fn != nil {
		return fn(scenario)
	}
	return &models.ScenarioResponse{Status: models.ScenarioActivatedStatus}, nil
}

func (f *fakeSource) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", timeout)
}

// chdir changes the working directory for the duration of the test
// (equivalent of testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
