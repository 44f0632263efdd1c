package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"hydramind/models"
	"hydramind/services"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

type fakeStore struct {
	snapshot *models.Snapshot
}

func (f *fakeStore) Snapshot() *models.Snapshot { return f.snapshot }

type fakeTrigger struct {
	calls chan models.Scenario
}

func (f *fakeTrigger) TriggerScenario(ctx context.Context, scenario models.Scenario) error {
	f.calls <- scenario
	return nil
}

type fakeHealth struct {
	status models.LinkStatus
}

func (f *fakeHealth) Status() models.LinkStatus { return f.status }

type dashboardFixture struct {
	router  *chi.Mux
	views   *services.ViewRouter
	trigger *fakeTrigger
	health  *fakeHealth
}

func newDashboardFixture(t *testing.T) *dashboardFixture {
	t.Helper()
	store := &fakeStore{snapshot: &models.Snapshot{
		Seq:     3,
		Cause:   models.CauseTelemetry,
		Metrics: models.Metrics{PH: 7.0, COD: 350, Phenol: 0.8, Oil: 15, Dosage: 25.5, Flow: 120},
		Status:  models.StatusNormal,
		Online:  true,
		History: []models.HistoryPoint{{Time: "10:00:00", PH: 7.04, COD: 350, Dosage: 25.5}},
	}}
	views := services.NewViewRouter(services.DefaultThresholds, zap.NewNop())
	trigger := &fakeTrigger{calls: make(chan models.Scenario, 4)}
	health := &fakeHealth{status: models.LinkStatus{Healthy: true, Timeout: "10s"}}

	reg := prometheus.NewRegistry()
	services.NewPromMetrics(reg)

	h := NewDashboardHandler(context.Background(), store, views, trigger, nil, zap.NewNop())
	return &dashboardFixture{
		router:  SetupDashboardRouter(h, health, reg, zap.NewNop()),
		views:   views,
		trigger: trigger,
		health:  health,
	}
}

func (f *dashboardFixture) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestGetState(t *testing.T) {
	f := newDashboardFixture(t)
	rec := f.do(http.MethodGet, "/api/state", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var state models.DashboardState
	if err := json.NewDecoder(rec.Body).Decode(&state); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if state.Snapshot.Seq != 3 || state.View != models.ViewDashboard || state.Mode != models.ModeAuto {
		t.Fatalf("unexpected state %+v", state)
	}
	if state.Presentation.StatusLabel == "" {
		t.Fatalf("expected presentation to be filled")
	}
}

func TestScenarioAcceptedAndDispatched(t *testing.T) {
	f := newDashboardFixture(t)
	rec := f.do(http.MethodPost, "/api/scenario", `{"scenario":"DESALTER_FAIL"}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}

	select {
	case got := <-f.trigger.calls:
		if got != models.ScenarioDesalterFail {
			t.Fatalf("expected DESALTER_FAIL, got %q", got)
		}
	case <-time.After(time.Second):
		t.Fatalf("scenario was never dispatched")
	}
}

func TestScenarioRejected(t *testing.T) {
	f := newDashboardFixture(t)
	for _, body := range []string{`{"scenario":"FLOOD"}`, `not json`} {
		rec := f.do(http.MethodPost, "/api/scenario", body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for %q, got %d", body, rec.Code)
		}
	}
	select {
	case got := <-f.trigger.calls:
		t.Fatalf("rejected scenario dispatched: %q", got)
	default:
	}
}

func TestSetViewAndMode(t *testing.T) {
	f := newDashboardFixture(t)

	rec := f.do(http.MethodPost, "/api/view", `{"view":"landing"}`)
	if rec.Code != http.StatusOK || f.views.Current() != models.ViewLanding {
		t.Fatalf("expected landing view, got %d %q", rec.Code, f.views.Current())
	}
	var state models.DashboardState
	json.NewDecoder(rec.Body).Decode(&state)
	if state.View != models.ViewLanding {
		t.Fatalf("expected response to carry new view, got %q", state.View)
	}

	rec = f.do(http.MethodPost, "/api/mode", `{"mode":"manual"}`)
	if rec.Code != http.StatusOK || f.views.Mode() != models.ModeManual {
		t.Fatalf("expected manual mode, got %d %q", rec.Code, f.views.Mode())
	}

	if rec := f.do(http.MethodPost, "/api/view", `{"view":"settings"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown view, got %d", rec.Code)
	}
	if rec := f.do(http.MethodPost, "/api/mode", `{"mode":"turbo"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown mode, got %d", rec.Code)
	}
	if f.views.Current() != models.ViewLanding || f.views.Mode() != models.ModeManual {
		t.Fatalf("rejected requests changed state")
	}
}

func TestServeIndexRendersSection(t *testing.T) {
	f := newDashboardFixture(t)

	rec := f.do(http.MethodGet, "/", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `id="insight"`) {
		t.Fatalf("expected dashboard section, got %d", rec.Code)
	}

	if !strings.Contains(rec.Body.String(), `<b id="flow">120.0</b>`) {
		t.Fatalf("expected flow rendered with one decimal")
	}
	if !strings.Contains(rec.Body.String(), "m.flow.toFixed(1)") {
		t.Fatalf("expected live flow updates with one decimal")
	}

	f.views.Navigate(models.ViewLanding)
	rec = f.do(http.MethodGet, "/", "")
	if !strings.Contains(rec.Body.String(), `id="landing"`) {
		t.Fatalf("expected landing section")
	}
}

func TestHealthReadinessAndMetrics(t *testing.T) {
	f := newDashboardFixture(t)

	if rec := f.do(http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK {
		t.Fatalf("expected healthz 200, got %d", rec.Code)
	}
	if rec := f.do(http.MethodGet, "/readyz", ""); rec.Code != http.StatusOK {
		t.Fatalf("expected readyz 200, got %d", rec.Code)
	}

	f.health.status = models.LinkStatus{Healthy: false, Timeout: "10s"}
	if rec := f.do(http.MethodGet, "/readyz", ""); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected readyz 503, got %d", rec.Code)
	}

	rec := f.do(http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "hydramind_telemetry_online") {
		t.Fatalf("expected metrics exposition, got %d", rec.Code)
	}
}

func newSimulatorRouter() *chi.Mux {
	h := NewSimulatorHandler(services.NewDigitalTwin(1), zap.NewNop())
	return SetupSimulatorRouter(h, zap.NewNop())
}

func TestSimulatorTelemetry(t *testing.T) {
	router := newSimulatorRouter()
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/telemetry", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("expected CORS header")
	}
	var sample models.TelemetrySample
	if err := json.NewDecoder(rec.Body).Decode(&sample); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if err := sample.Validate(); err != nil {
		t.Fatalf("simulator served invalid sample: %v", err)
	}
}

func TestSimulatorTrigger(t *testing.T) {
	router := newSimulatorRouter()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/simulation/trigger", strings.NewReader(`{"scenario":"SOUR_WATER_FAIL"}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp models.ScenarioResponse
	json.NewDecoder(rec.Body).Decode(&resp)
	if resp.Status != models.ScenarioActivatedStatus || resp.CurrentState != models.StatusSourWaterFailure {
		t.Fatalf("unexpected response %+v", resp)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/simulation/trigger", strings.NewReader(`{"scenario":"FLOOD"}`)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown scenario, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/telemetry", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected preflight 204, got %d", rec.Code)
	}
}
