package models

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedSample = errors.New("malformed telemetry sample")
	ErrUnknownScenario = errors.New("unknown scenario")
)

// System status values reported by the telemetry source and the dashboard
const (
	StatusNormal            = "NORMAL"
	StatusConnecting        = "CONNECTING..."
	StatusOffline           = "SCADA LINK OFFLINE"
	StatusDesalterUpset     = "CRITICAL: DESALTER UPSET"
	StatusSourWaterFailure  = "CRITICAL: SOUR WATER STRIPPER FAILURE"
	ComplianceCompliant     = "COMPLIANT"
	ComplianceNonCompliant  = "NON-COMPLIANT"
	ScenarioActivatedStatus = "Scenario Activated"
)

// Sensors holds the plant readings. Pointers distinguish a missing field from a zero reading.
type Sensors struct {
	PH         *float64 `json:"ph"`
	COD        *float64 `json:"cod"`
	Phenol     *float64 `json:"phenol"`
	OilGrease  *float64 `json:"oil_grease"`
	Flow       *float64 `json:"flow,omitempty"`
	Sulfide    *float64 `json:"sulfide,omitempty"`
	Efficiency *float64 `json:"efficiency,omitempty"`
}

// AIPrediction is the dosing recommendation attached to each sample
type AIPrediction struct {
	RecommendedDosingMlMin *float64 `json:"recommended_dosing_ml_min"`
	PredictedEffluentCOD   *float64 `json:"predicted_effluent_cod,omitempty"`
	ComplianceStatus       string   `json:"compliance_status,omitempty"`
}

// TelemetrySample is one payload served by GET /api/telemetry
type TelemetrySample struct {
	Timestamp    string       `json:"timestamp,omitempty"`
	Sensors      Sensors      `json:"sensors"`
	AIPrediction AIPrediction `json:"ai_prediction"`
	SystemStatus string       `json:"system_status"`
}

// Validate reports the first required field missing from the sample
func (s *TelemetrySample) Validate() error {
	if s == nil {
		return fmt.Errorf("%w: empty body", ErrMalformedSample)
	}

	required := []struct {
		name  string
		value *float64
	}{
		{"sensors.ph", s.Sensors.PH},
		{"sensors.cod", s.Sensors.COD},
		{"sensors.phenol", s.Sensors.Phenol},
		{"sensors.oil_grease", s.Sensors.OilGrease},
		{"ai_prediction.recommended_dosing_ml_min", s.AIPrediction.RecommendedDosingMlMin},
	}
	for _, field := range required {
		if field.value == nil {
			return fmt.Errorf("%w: missing %s", ErrMalformedSample, field.name)
		}
	}
	return nil
}

// FlowOrZero returns the flow reading, or 0 when the source omitted it
func (s *TelemetrySample) FlowOrZero() float64 {
	if s.Sensors.Flow == nil {
		return 0
	}
	return *s.Sensors.Flow
}

// Float returns a pointer to v, for building samples
func Float(v float64) *float64 {
	return &v
}

// Scenario is a fault-injection command understood by the telemetry source
type Scenario string

const (
	ScenarioDesalterFail  Scenario = "DESALTER_FAIL"
	ScenarioSourWaterFail Scenario = "SOUR_WATER_FAIL"
	ScenarioReset         Scenario = "RESET"
)

// Valid reports whether the scenario is one of the known commands
func (s Scenario) Valid() bool {
	switch s {
	case ScenarioDesalterFail, ScenarioSourWaterFail, ScenarioReset:
		return true
	default:
		return false
	}
}

// ScenarioRequest is the body of POST /api/simulation/trigger
type ScenarioRequest struct {
	Scenario Scenario `json:"scenario"`
}

// ScenarioResponse is returned by the telemetry source after a trigger
type ScenarioResponse struct {
	Status       string `json:"status"`
	CurrentState string `json:"current_state"`
}

// AnomalyType represents the condition that raised the alert flag
type AnomalyType string

const (
	CriticalStatus   AnomalyType = "critical_status"
	CODTooHigh       AnomalyType = "cod_high"
	PhenolTooHigh    AnomalyType = "phenol_high"
	OilGreaseTooHigh AnomalyType = "oil_grease_high"
)

// Anomaly represents one breached alert condition
type Anomaly struct {
	Type        AnomalyType `json:"type"`
	Value       float64     `json:"value"`
	Threshold   float64     `json:"threshold"`
	Description string      `json:"description"`
}

// GetAnomalyEmoji returns appropriate emoji for anomaly type
func (a *Anomaly) GetAnomalyEmoji() string {
	switch a.Type {
	case CriticalStatus:
		return "🚨"
	case CODTooHigh:
		return "🧪"
	case PhenolTooHigh:
		return "☠️"
	case OilGreaseTooHigh:
		return "🛢️"
	default:
		return "⚠️"
	}
}
