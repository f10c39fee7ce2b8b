package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	Turns            *prometheus.CounterVec
	TurnLatency      prometheus.Histogram
	AdapterErrors    *prometheus.CounterVec
	PersistenceDrops *prometheus.CounterVec
	AnalysisRuns     *prometheus.CounterVec
	MemoryQueries    *prometheus.CounterVec

	stages *stageWindow
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		Turns: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Voice turns by outcome.",
		}, []string{"outcome"}),
		TurnLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "turn_latency_ms",
			Help:      "End-to-end voice turn latency in milliseconds.",
			Buckets:   []float64{250, 500, 1000, 2000, 4000, 8000, 15000, 30000},
		}),
		AdapterErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "adapter_errors_total",
			Help:      "Capability adapter errors by capability and code.",
		}, []string{"capability", "code"}),
		PersistenceDrops: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persistence_drops_total",
			Help:      "Best-effort persistence writes that were dropped, by target.",
		}, []string{"target"}),
		AnalysisRuns: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analysis_runs_total",
			Help:      "Offline analysis runs by status.",
		}, []string{"status"}),
		MemoryQueries: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "memory_queries_total",
			Help:      "Memory index queries by result.",
		}, []string{"result"}),
		stages: newStageWindow(256),
	}
}

func (m *Metrics) ObserveTurnLatency(d time.Duration) {
	m.TurnLatency.Observe(float64(d.Milliseconds()))
	m.ObserveStage(StageTurnTotal, d)
}

// ObserveStage records a pipeline stage duration into the rolling window.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	m.stages.Observe(stage, float64(d.Microseconds())/1000.0)
}

// StageSnapshot returns percentile stats for the recent pipeline stages.
func (m *Metrics) StageSnapshot() StageSnapshot {
	return m.stages.Snapshot()
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
