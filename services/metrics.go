package services

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Poll outcomes recorded by hydramind_polls_total
const (
	PollSuccess = "success"
	PollFailure = "failure"
	PollStale   = "stale"
)

// PromMetrics exposes the dashboard's Prometheus instruments. A nil
// *PromMetrics is valid and records nothing.
type PromMetrics struct {
	polls         *prometheus.CounterVec
	pollLatency   prometheus.Histogram
	scenarios     *prometheus.CounterVec
	alertActive   prometheus.Gauge
	historyLength prometheus.Gauge
	online        prometheus.Gauge
	sinkDrops     prometheus.Counter
	sinkErrors    *prometheus.CounterVec
	wsClients     prometheus.Gauge
}

func NewPromMetrics(reg prometheus.Registerer) *PromMetrics {
	m := &PromMetrics{
		polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hydramind_polls_total",
			Help: "Telemetry reads by outcome.",
		}, []string{"result"}),
		pollLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "hydramind_poll_latency_seconds",
			Help:    "Round trip time of telemetry reads.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 10),
		}),
		scenarios: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hydramind_scenario_triggers_total",
			Help: "Scenario triggers by scenario and outcome.",
		}, []string{"scenario", "result"}),
		alertActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hydramind_alert_active",
			Help: "1 while the dashboard alert flag is raised.",
		}),
		historyLength: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hydramind_history_length",
			Help: "Points currently held in the history buffer.",
		}),
		online: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hydramind_telemetry_online",
			Help: "1 when the last applied read succeeded.",
		}),
		sinkDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hydramind_sink_dropped_total",
			Help: "Snapshots dropped because the sink queue was full.",
		}),
		sinkErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hydramind_sink_errors_total",
			Help: "Failed snapshot deliveries by sink.",
		}, []string{"sink"}),
		wsClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hydramind_websocket_clients",
			Help: "Connected live-feed clients.",
		}),
	}

	reg.MustRegister(
		m.polls, m.pollLatency, m.scenarios, m.alertActive,
		m.historyLength, m.online, m.sinkDrops, m.sinkErrors, m.wsClients,
	)
	return m
}

func (m *PromMetrics) ObservePoll(result string, seconds float64) {
	if m == nil {
		return
	}
	m.polls.WithLabelValues(result).Inc()
	if result != PollStale {
		m.pollLatency.Observe(seconds)
	}
}

func (m *PromMetrics) ObserveScenario(scenario, result string) {
	if m == nil {
		return
	}
	m.scenarios.WithLabelValues(scenario, result).Inc()
}

func (m *PromMetrics) SetState(alert, online bool, historyLen int) {
	if m == nil {
		return
	}
	m.alertActive.Set(boolToFloat(alert))
	m.online.Set(boolToFloat(online))
	m.historyLength.Set(float64(historyLen))
}

func (m *PromMetrics) IncSinkDrop() {
	if m == nil {
		return
	}
	m.sinkDrops.Inc()
}

func (m *PromMetrics) IncSinkError(sink string) {
	if m == nil {
		return
	}
	m.sinkErrors.WithLabelValues(sink).Inc()
}

func (m *PromMetrics) SetWebSocketClients(n int) {
	if m == nil {
		return
	}
	m.wsClients.Set(float64(n))
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
