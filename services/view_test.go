package services

import (
	"errors"
	"testing"

	"hydramind/models"

	"go.uber.org/zap"
)

func TestViewRouterDefaults(t *testing.T) {
	v := NewViewRouter(DefaultThresholds, zap.NewNop())
	if v.Current() != models.ViewDashboard {
		t.Fatalf("expected dashboard view by default, got %s", v.Current())
	}
	if v.Mode() != models.ModeAuto {
		t.Fatalf("expected auto mode by default, got %s", v.Mode())
	}
}

func TestViewRouterStateFlagsConfiguredThresholds(t *testing.T) {
	v := NewViewRouter(Thresholds{CODMax: 500, PhenolMax: 3, OilGreaseMax: 50}, zap.NewNop())
	state := v.State(&models.Snapshot{Cause: models.CauseTelemetry, Online: true, Status: models.StatusNormal,
		Metrics: models.Metrics{PH: 7, Phenol: 4, Oil: 15}})
	if !state.Presentation.Flags.Phenol {
		t.Fatalf("expected phenol card flagged with the configured limit, got %+v", state.Presentation.Flags)
	}
}

func TestViewRouterNavigate(t *testing.T) {
	v := NewViewRouter(DefaultThresholds, zap.NewNop())

	if err := v.Navigate(models.ViewLanding); err != nil {
		t.Fatalf("navigate: %v", err)
	}
	if v.Current() != models.ViewLanding {
		t.Fatalf("expected landing, got %s", v.Current())
	}

	err := v.Navigate(models.View("settings"))
	if !errors.Is(err, models.ErrInvalidView) {
		t.Fatalf("expected ErrInvalidView, got %v", err)
	}
	if v.Current() != models.ViewLanding {
		t.Fatalf("invalid navigation changed the view")
	}
}

func TestViewRouterMode(t *testing.T) {
	v := NewViewRouter(DefaultThresholds, zap.NewNop())

	if got := v.ToggleMode(); got != models.ModeManual {
		t.Fatalf("expected manual after toggle, got %s", got)
	}
	if got := v.ToggleMode(); got != models.ModeAuto {
		t.Fatalf("expected auto after second toggle, got %s", got)
	}

	if err := v.SetMode(models.ModeManual); err != nil {
		t.Fatalf("set mode: %v", err)
	}
	if err := v.SetMode(models.ControlMode("turbo")); !errors.Is(err, models.ErrInvalidMode) {
		t.Fatalf("expected ErrInvalidMode, got %v", err)
	}
	if v.Mode() != models.ModeManual {
		t.Fatalf("invalid mode changed the toggle")
	}
}

func TestViewRouterState(t *testing.T) {
	v := NewViewRouter(DefaultThresholds, zap.NewNop())
	v.SetMode(models.ModeManual)

	snap := &models.Snapshot{Metrics: models.InitialMetrics(), Status: models.StatusNormal}
	state := v.State(snap)

	if state.Snapshot != snap || state.View != models.ViewDashboard || state.Mode != models.ModeManual {
		t.Fatalf("unexpected state %+v", state)
	}
	if state.Presentation.ModeLabel != "Manual Override Active" {
		t.Fatalf("unexpected mode label %q", state.Presentation.ModeLabel)
	}
}
