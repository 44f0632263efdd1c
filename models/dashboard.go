package models

import (
	"errors"
	"time"
)

var (
	ErrInvalidView = errors.New("invalid view")
	ErrInvalidMode = errors.New("invalid control mode")
)

// Metrics is the display projection of the latest sample
type Metrics struct {
	PH     float64 `json:"ph"`
	COD    float64 `json:"cod"`
	Phenol float64 `json:"phenol"`
	Oil    float64 `json:"oil"`
	Dosage float64 `json:"dosage"`
	Flow   float64 `json:"flow"`
}

// InitialMetrics is shown before the first successful read
func InitialMetrics() Metrics {
	return Metrics{PH: 7.0}
}

// HistoryPoint is one chart sample. Values are raw, not rounded.
type HistoryPoint struct {
	Time       string    `json:"time"`
	PH         float64   `json:"ph"`
	COD        float64   `json:"cod"`
	Dosage     float64   `json:"dosage"`
	RecordedAt time.Time `json:"recorded_at"`
}

// SnapshotCause records which mutation produced a snapshot
type SnapshotCause string

const (
	CauseInitial   SnapshotCause = "initial"
	CauseTelemetry SnapshotCause = "telemetry"
	CauseOffline   SnapshotCause = "offline"
)

// Snapshot is an immutable copy of the dashboard state
type Snapshot struct {
	Seq       uint64         `json:"seq"`
	Cause     SnapshotCause  `json:"cause"`
	Metrics   Metrics        `json:"metrics"`
	Alert     bool           `json:"alert"`
	Anomalies []*Anomaly     `json:"anomalies,omitempty"`
	Status    string         `json:"status"`
	Online    bool           `json:"online"`
	History   []HistoryPoint `json:"history"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// LatestPoint returns the newest history point, if any
func (s *Snapshot) LatestPoint() (HistoryPoint, bool) {
	if len(s.History) == 0 {
		return HistoryPoint{}, false
	}
	return s.History[len(s.History)-1], true
}

// View is the section currently shown to the operator
type View string

const (
	ViewLanding   View = "landing"
	ViewDashboard View = "dashboard"
)

func (v View) Valid() bool {
	return v == ViewLanding || v == ViewDashboard
}

// ControlMode is the operator dosing toggle. It is local to the dashboard.
type ControlMode string

const (
	ModeAuto   ControlMode = "auto"
	ModeManual ControlMode = "manual"
)

func (m ControlMode) Valid() bool {
	return m == ModeAuto || m == ModeManual
}

// SensorFlags marks the sensor cards that render as critical
type SensorFlags struct {
	PH     bool `json:"ph"`
	Flow   bool `json:"flow"`
	Phenol bool `json:"phenol"`
	Oil    bool `json:"oil"`
}

// Presentation holds the text and flags derived for rendering
type Presentation struct {
	StatusLabel string      `json:"status_label"`
	Insight     string      `json:"insight"`
	ModeLabel   string      `json:"mode_label"`
	Flags       SensorFlags `json:"flags"`
}

// DashboardState is what the dashboard API serves to clients
type DashboardState struct {
	Snapshot     *Snapshot    `json:"snapshot"`
	View         View         `json:"view"`
	Mode         ControlMode  `json:"mode"`
	Presentation Presentation `json:"presentation"`
}

// LinkStatus reports how fresh the telemetry link is
type LinkStatus struct {
	Healthy  bool      `json:"healthy"`
	LastSeen time.Time `json:"last_seen,omitempty"`
	Silence  string    `json:"silence,omitempty"`
	Timeout  string    `json:"timeout"`
}
