package services

import (
	"fmt"
	"math"
	"math/big"
	"strings"
	"time"

	"hydramind/config"
	"hydramind/models"
)

// Thresholds above which a raw reading raises the alert flag
type Thresholds struct {
	CODMax       float64
	PhenolMax    float64
	OilGreaseMax float64
}

var DefaultThresholds = Thresholds{
	CODMax:       500,
	PhenolMax:    5,
	OilGreaseMax: 50,
}

// ThresholdsFromConfig reads the alert thresholds. LoadConfig already fills
// unset variables with the defaults, so an explicit 0 is kept and alerts on
// any positive reading. Negative limits are meaningless and fall back.
func ThresholdsFromConfig(cfg *config.Config) Thresholds {
	t := DefaultThresholds
	if cfg.AlertCODMax >= 0 {
		t.CODMax = cfg.AlertCODMax
	}
	if cfg.AlertPhenolMax >= 0 {
		t.PhenolMax = cfg.AlertPhenolMax
	}
	if cfg.AlertOilGreaseMax >= 0 {
		t.OilGreaseMax = cfg.AlertOilGreaseMax
	}
	return t
}

// Projection is everything derived from a single sample
type Projection struct {
	Metrics   models.Metrics
	Alert     bool
	Anomalies []*models.Anomaly
	Status    string
	Point     models.HistoryPoint
}

type Projector struct {
	thresholds Thresholds
}

func NewProjector(thresholds Thresholds) *Projector {
	return &Projector{
		thresholds: thresholds,
	}
}

// Project turns a sample into display metrics, the alert flag and a history point.
// It holds no state, so identical input always yields identical output.
func (p *Projector) Project(sample *models.TelemetrySample, at time.Time) (*Projection, error) {
	if err := sample.Validate(); err != nil {
		return nil, err
	}

	s := sample.Sensors
	dosage := *sample.AIPrediction.RecommendedDosingMlMin
	anomalies := p.DetectAnomalies(sample)

	return &Projection{
		Metrics: models.Metrics{
			PH:     RoundTo(*s.PH, 1),
			COD:    RoundTo(*s.COD, 0),
			Phenol: RoundTo(*s.Phenol, 2),
			Oil:    RoundTo(*s.OilGrease, 1),
			Dosage: dosage,
			Flow:   RoundTo(sample.FlowOrZero(), 1),
		},
		Alert:     len(anomalies) > 0,
		Anomalies: anomalies,
		Status:    sample.SystemStatus,
		Point: models.HistoryPoint{
			Time:       at.Format("15:04:05"),
			PH:         *s.PH,
			COD:        *s.COD,
			Dosage:     dosage,
			RecordedAt: at,
		},
	}, nil
}

// DetectAnomalies checks the raw readings and the reported status against the thresholds
func (p *Projector) DetectAnomalies(sample *models.TelemetrySample) []*models.Anomaly {
	var anomalies []*models.Anomaly

	if strings.Contains(sample.SystemStatus, "CRITICAL") {
		anomalies = append(anomalies, &models.Anomaly{
			Type:        models.CriticalStatus,
			Description: fmt.Sprintf("Plant reports %q", sample.SystemStatus),
		})
	}

	s := sample.Sensors
	if s.COD != nil && *s.COD > p.thresholds.CODMax {
		anomalies = append(anomalies, &models.Anomaly{
			Type:        models.CODTooHigh,
			Value:       *s.COD,
			Threshold:   p.thresholds.CODMax,
			Description: fmt.Sprintf("COD %.0f mg/L exceeds maximum of %.0f mg/L", *s.COD, p.thresholds.CODMax),
		})
	}

	if s.Phenol != nil && *s.Phenol > p.thresholds.PhenolMax {
		anomalies = append(anomalies, &models.Anomaly{
			Type:        models.PhenolTooHigh,
			Value:       *s.Phenol,
			Threshold:   p.thresholds.PhenolMax,
			Description: fmt.Sprintf("Phenol %.2f mg/L exceeds maximum of %.2f mg/L", *s.Phenol, p.thresholds.PhenolMax),
		})
	}

	if s.OilGrease != nil && *s.OilGrease > p.thresholds.OilGreaseMax {
		anomalies = append(anomalies, &models.Anomaly{
			Type:        models.OilGreaseTooHigh,
			Value:       *s.OilGrease,
			Threshold:   p.thresholds.OilGreaseMax,
			Description: fmt.Sprintf("Oil & grease %.1f mg/L exceeds maximum of %.1f mg/L", *s.OilGrease, p.thresholds.OilGreaseMax),
		})
	}

	return anomalies
}

// IsAnomalous returns true if any alert condition holds
func (p *Projector) IsAnomalous(sample *models.TelemetrySample) bool {
	return len(p.DetectAnomalies(sample)) > 0
}

// maxExactPlaces keeps 10^places exactly representable as a float64
const maxExactPlaces = 22

// RoundTo rounds to the given number of decimal places the way the dashboard
// displays numbers: from the exact binary value, with exact halves rounded away
// from zero. 4.35 is stored as 4.3499... and rounds to 4.3; 417.5 is exact and
// rounds to 418.
func RoundTo(v float64, places int) float64 {
	if places < 0 || places > maxExactPlaces || math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	scale := math.Pow(10, float64(places))
	if math.Abs(v)*scale >= 1<<53 {
		return v
	}

	// 256 bits hold the 53-bit mantissa times 10^22 without loss
	x := new(big.Float).SetPrec(256).SetFloat64(math.Abs(v))
	x.Mul(x, new(big.Float).SetPrec(256).SetFloat64(scale))

	n, _ := x.Int(nil)
	frac := new(big.Float).SetPrec(256).Sub(x, new(big.Float).SetInt(n))
	if frac.Cmp(big.NewFloat(0.5)) >= 0 {
		n.Add(n, big.NewInt(1))
	}

	r := float64(n.Int64()) / scale
	if v < 0 {
		return -r
	}
	return r
}
