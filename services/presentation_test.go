package services

import (
	"testing"

	"hydramind/models"
)

func TestFlags(t *testing.T) {
	tests := []struct {
		name string
		m    models.Metrics
		want models.SensorFlags
	}{
		{"normal", models.Metrics{PH: 7.5, Phenol: 0.8, Oil: 15, Flow: 300}, models.SensorFlags{}},
		{"acidic", models.Metrics{PH: 5.9}, models.SensorFlags{PH: true}},
		{"ph at bounds", models.Metrics{PH: 6}, models.SensorFlags{}},
		{"alkaline", models.Metrics{PH: 9.1}, models.SensorFlags{PH: true}},
		{"phenol", models.Metrics{PH: 7, Phenol: 5.01}, models.SensorFlags{Phenol: true}},
		{"oil", models.Metrics{PH: 7, Oil: 50.1}, models.SensorFlags{Oil: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Flags(tt.m, DefaultThresholds); got != tt.want {
				t.Fatalf("expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestFlagsUseConfiguredThresholds(t *testing.T) {
	thresholds := Thresholds{CODMax: 500, PhenolMax: 3, OilGreaseMax: 60}
	got := Flags(models.Metrics{PH: 7, Phenol: 4, Oil: 55}, thresholds)
	if !got.Phenol {
		t.Fatalf("expected phenol 4 flagged against a limit of 3")
	}
	if got.Oil {
		t.Fatalf("expected oil 55 within a limit of 60")
	}
}

func TestStatusLabel(t *testing.T) {
	if got := StatusLabel(models.StatusNormal); got != "SYSTEM OPTIMAL" {
		t.Fatalf("expected SYSTEM OPTIMAL, got %q", got)
	}
	if got := StatusLabel(models.StatusOffline); got != models.StatusOffline {
		t.Fatalf("expected status verbatim, got %q", got)
	}
}

func TestInsight(t *testing.T) {
	tests := []struct {
		status string
		alert  bool
		want   string
	}{
		{models.StatusDesalterUpset, true, insightDesalter},
		{models.StatusSourWaterFailure, true, insightSourWater},
		{models.StatusNormal, true, insightHighLoad},
		{models.StatusNormal, false, insightStable},
	}
	for _, tt := range tests {
		if got := Insight(tt.status, tt.alert); got != tt.want {
			t.Fatalf("Insight(%q, %t) = %q, want %q", tt.status, tt.alert, got, tt.want)
		}
	}
}

func TestModeLabel(t *testing.T) {
	if got := ModeLabel(models.ModeAuto); got != "AI-Dynamic Dosing" {
		t.Fatalf("unexpected auto label %q", got)
	}
	if got := ModeLabel(models.ModeManual); got != "Manual Override Active" {
		t.Fatalf("unexpected manual label %q", got)
	}
}
