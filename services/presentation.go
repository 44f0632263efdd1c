package services

import (
	"strings"

	"hydramind/models"
)

const (
	insightDesalter  = "DESALTER UPSET: Oil & Grease spike detected! AI has increased coagulant dosage to handle oil carryover."
	insightSourWater = "SOUR WATER FAILURE: Toxic phenol levels detected! Bio-reactor nutrients increased 300% for emergency treatment."
	insightHighLoad  = "HIGH LOAD DETECTED. System has automatically increased dosage to prevent compliance failure."
	insightStable    = "System Stable. Dosing optimized for minimum chemical usage. Predicted effluent COD: < 50 mg/L."
)

// Present derives the render-only text and card flags for a snapshot
func Present(snapshot *models.Snapshot, mode models.ControlMode, thresholds Thresholds) models.Presentation {
	return models.Presentation{
		StatusLabel: StatusLabel(snapshot.Status),
		Insight:     Insight(snapshot.Status, snapshot.Alert),
		ModeLabel:   ModeLabel(mode),
		Flags:       Flags(snapshot.Metrics, thresholds),
	}
}

// Flags marks sensor cards critical from the rounded display values
func Flags(m models.Metrics, thresholds Thresholds) models.SensorFlags {
	return models.SensorFlags{
		PH:     m.PH < 6 || m.PH > 9,
		Flow:   false,
		Phenol: m.Phenol > thresholds.PhenolMax,
		Oil:    m.Oil > thresholds.OilGreaseMax,
	}
}

func StatusLabel(status string) string {
	if status == models.StatusNormal {
		return "SYSTEM OPTIMAL"
	}
	return status
}

func Insight(status string, alert bool) string {
	switch {
	case strings.Contains(status, "DESALTER"):
		return insightDesalter
	case strings.Contains(status, "SOUR WATER"):
		return insightSourWater
	case alert:
		return insightHighLoad
	default:
		return insightStable
	}
}

func ModeLabel(mode models.ControlMode) string {
	if mode == models.ModeManual {
		return "Manual Override Active"
	}
	return "AI-Dynamic Dosing"
}
