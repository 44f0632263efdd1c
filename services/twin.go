package services

import (
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"hydramind/models"
)

// twinState is the simulated plant. Fields are raw, unrounded values.
type twinState struct {
	cod        float64
	phenol     float64
	oilGrease  float64
	sulfide    float64
	ph         float64
	flow       float64
	efficiency float64
}

func baselineTwinState() twinState {
	return twinState{
		cod:        350,
		phenol:     0.8,
		oilGrease:  15,
		sulfide:    2.5,
		ph:         7.5,
		flow:       120,
		efficiency: 92,
	}
}

// DigitalTwin generates telemetry for a refinery effluent plant with a
// sour water stripper and bio-reactor stage. Each read drifts the state.
type DigitalTwin struct {
	mu     sync.Mutex
	rng    *rand.Rand
	state  twinState
	status string
	now    func() time.Time
}

func NewDigitalTwin(seed int64) *DigitalTwin {
	return &DigitalTwin{
		rng:    rand.New(rand.NewSource(seed)),
		state:  baselineTwinState(),
		status: models.StatusNormal,
		now:    time.Now,
	}
}

// Update advances the twin one step and returns the sample for it
func (t *DigitalTwin) Update() *models.TelemetrySample {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := &t.state
	if s.flow > 140 {
		s.efficiency -= 0.5
	} else {
		s.efficiency += 0.1
	}
	s.efficiency = math.Max(80, math.Min(98, s.efficiency))

	s.cod += t.rng.NormFloat64() * 5
	s.phenol += t.rng.NormFloat64() * 0.05
	s.oilGrease += t.rng.NormFloat64() * 1

	compliance := models.ComplianceNonCompliant
	if s.phenol < 1.0 {
		compliance = models.ComplianceCompliant
	}

	return &models.TelemetrySample{
		Timestamp: t.now().Format("2006-01-02T15:04:05.000000"),
		Sensors: models.Sensors{
			PH:         models.Float(s.ph),
			COD:        models.Float(s.cod),
			Phenol:     models.Float(s.phenol),
			OilGrease:  models.Float(s.oilGrease),
			Flow:       models.Float(s.flow),
			Sulfide:    models.Float(s.sulfide),
			Efficiency: models.Float(s.efficiency),
		},
		AIPrediction: models.AIPrediction{
			RecommendedDosingMlMin: models.Float(RoundTo(s.phenol*10+s.cod*0.05, 2)),
			PredictedEffluentCOD:   models.Float(RoundTo(s.cod*(1-s.efficiency/100), 2)),
			ComplianceStatus:       compliance,
		},
		SystemStatus: t.status,
	}
}

// Trigger applies a fault scenario, or restores the baseline on RESET
func (t *DigitalTwin) Trigger(scenario models.Scenario) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch scenario {
	case models.ScenarioDesalterFail:
		t.state.oilGrease = 150
		t.state.cod = 900
		t.status = models.StatusDesalterUpset
	case models.ScenarioSourWaterFail:
		t.state.phenol = 15
		t.state.sulfide = 25
		t.status = models.StatusSourWaterFailure
	case models.ScenarioReset:
		t.normalizeLocked()
	default:
		return fmt.Errorf("%w: %q", models.ErrUnknownScenario, scenario)
	}
	return nil
}

// normalizeLocked is the operator fix. Sulfide, flow and efficiency keep
// their current values.
func (t *DigitalTwin) normalizeLocked() {
	t.state.phenol = 0.8
	t.state.oilGrease = 15
	t.state.cod = 350
	t.status = models.StatusNormal
}

// Status returns the current system status string
func (t *DigitalTwin) Status() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}
