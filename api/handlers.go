package api

import (
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"time"

	"hydramind/models"
	"hydramind/services"

	"go.uber.org/zap"
)

// ScenarioTrigger sends a scenario to the telemetry source and refreshes the store
type ScenarioTrigger interface {
	TriggerScenario(ctx context.Context, scenario models.Scenario) error
}

// StateSource provides the current store snapshot
type StateSource interface {
	Snapshot() *models.Snapshot
}

type DashboardHandler struct {
	ctx            context.Context
	store          StateSource
	views          *services.ViewRouter
	trigger        ScenarioTrigger
	hub            *services.Hub
	tmpl           *template.Template
	triggerTimeout time.Duration
	logger         *zap.Logger
}

// NewDashboardHandler builds the handler. Scenario triggers run on ctx, so
// cancelling it abandons triggers still in flight.
func NewDashboardHandler(ctx context.Context, store StateSource, views *services.ViewRouter, trigger ScenarioTrigger, hub *services.Hub, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{
		ctx:            ctx,
		store:          store,
		views:          views,
		trigger:        trigger,
		hub:            hub,
		tmpl:           template.Must(template.New("index").Funcs(templateFuncs).Parse(indexHTML)),
		triggerTimeout: 15 * time.Second,
		logger:         logger,
	}
}

func (h *DashboardHandler) state() models.DashboardState {
	return h.views.State(h.store.Snapshot())
}

// ServeIndex renders the landing or the dashboard section
func (h *DashboardHandler) ServeIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.tmpl.Execute(w, h.state()); err != nil {
		h.logger.Error("Error executing template", zap.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

func (h *DashboardHandler) GetState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.state())
}

type viewRequest struct {
	View models.View `json:"view"`
}

func (h *DashboardHandler) SetView(w http.ResponseWriter, r *http.Request) {
	var req viewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := h.views.Navigate(req.View); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, h.pushState())
}

type modeRequest struct {
	Mode models.ControlMode `json:"mode"`
}

func (h *DashboardHandler) SetMode(w http.ResponseWriter, r *http.Request) {
	var req modeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := h.views.SetMode(req.Mode); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, h.pushState())
}

// pushState sends the new view or mode to connected clients
func (h *DashboardHandler) pushState() models.DashboardState {
	state := h.state()
	if h.hub != nil {
		h.hub.Broadcast(state)
	}
	return state
}

// TriggerScenario accepts the scenario and runs it in the background. The
// outcome reaches clients through the store like any other read.
func (h *DashboardHandler) TriggerScenario(w http.ResponseWriter, r *http.Request) {
	var req models.ScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if !req.Scenario.Valid() {
		writeError(w, http.StatusBadRequest, models.ErrUnknownScenario.Error())
		return
	}

	go func(scenario models.Scenario) {
		ctx, cancel := context.WithTimeout(h.ctx, h.triggerTimeout)
		defer cancel()
		if err := h.trigger.TriggerScenario(ctx, scenario); err != nil && !errors.Is(err, context.Canceled) {
			h.logger.Warn("Scenario trigger failed",
				zap.String("scenario", string(scenario)),
				zap.Error(err))
		}
	}(req.Scenario)

	writeJSON(w, http.StatusAccepted, map[string]string{
		"status":   "accepted",
		"scenario": string(req.Scenario),
	})
}

func (h *DashboardHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	h.hub.ServeWS(w, r, h.state())
}

// LinkHealth reports telemetry freshness
type LinkHealth interface {
	Status() models.LinkStatus
}

// Readiness answers 503 while the telemetry link is silent
func Readiness(health LinkHealth) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := health.Status()
		code := http.StatusOK
		if !status.Healthy {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, status)
	}
}

// SimulatorHandler serves the telemetry source contract from a digital twin
type SimulatorHandler struct {
	twin   *services.DigitalTwin
	logger *zap.Logger
}

func NewSimulatorHandler(twin *services.DigitalTwin, logger *zap.Logger) *SimulatorHandler {
	return &SimulatorHandler{twin: twin, logger: logger}
}

func (h *SimulatorHandler) GetTelemetry(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.twin.Update())
}

func (h *SimulatorHandler) TriggerScenario(w http.ResponseWriter, r *http.Request) {
	var req models.ScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := h.twin.Trigger(req.Scenario); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.logger.Info("Scenario activated",
		zap.String("scenario", string(req.Scenario)),
		zap.String("status", h.twin.Status()))

	writeJSON(w, http.StatusOK, models.ScenarioResponse{
		Status:       models.ScenarioActivatedStatus,
		CurrentState: h.twin.Status(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
