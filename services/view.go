package services

import (
	"fmt"
	"sync"

	"hydramind/models"

	"go.uber.org/zap"
)

// ViewRouter selects which section the operator sees and holds the local
// dosing mode toggle. Neither value touches polling or the dashboard store.
type ViewRouter struct {
	mu         sync.RWMutex
	view       models.View
	mode       models.ControlMode
	thresholds Thresholds
	logger     *zap.Logger
}

// NewViewRouter takes the alert thresholds so sensor cards flag the same
// limits the alert flag uses
func NewViewRouter(thresholds Thresholds, logger *zap.Logger) *ViewRouter {
	return &ViewRouter{
		view:       models.ViewDashboard,
		mode:       models.ModeAuto,
		thresholds: thresholds,
		logger:     logger,
	}
}

func (v *ViewRouter) Current() models.View {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.view
}

// Navigate switches sections immediately; there are no transition guards
func (v *ViewRouter) Navigate(view models.View) error {
	if !view.Valid() {
		return fmt.Errorf("%w: %q", models.ErrInvalidView, view)
	}

	v.mu.Lock()
	previous := v.view
	v.view = view
	v.mu.Unlock()

	if previous != view {
		v.logger.Debug("View changed",
			zap.String("from", string(previous)),
			zap.String("to", string(view)))
	}
	return nil
}

func (v *ViewRouter) Mode() models.ControlMode {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.mode
}

// SetMode changes the dosing toggle. It is never sent to the telemetry source.
func (v *ViewRouter) SetMode(mode models.ControlMode) error {
	if !mode.Valid() {
		return fmt.Errorf("%w: %q", models.ErrInvalidMode, mode)
	}

	v.mu.Lock()
	v.mode = mode
	v.mu.Unlock()

	v.logger.Info("Control mode changed", zap.String("mode", string(mode)))
	return nil
}

// ToggleMode flips between auto and manual and returns the new mode
func (v *ViewRouter) ToggleMode() models.ControlMode {
	v.mu.Lock()
	if v.mode == models.ModeAuto {
		v.mode = models.ModeManual
	} else {
		v.mode = models.ModeAuto
	}
	mode := v.mode
	v.mu.Unlock()

	v.logger.Info("Control mode changed", zap.String("mode", string(mode)))
	return mode
}

// State combines a store snapshot with the current view and mode
func (v *ViewRouter) State(snapshot *models.Snapshot) models.DashboardState {
	v.mu.RLock()
	view, mode := v.view, v.mode
	v.mu.RUnlock()

	return models.DashboardState{
		Snapshot:     snapshot,
		View:         view,
		Mode:         mode,
		Presentation: Present(snapshot, mode, v.thresholds),
	}
}
