package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Итоги фоновой обработки заявки.
const (
	OutcomeResolved     = "resolved"
	OutcomeManualReview = "needs_manual_review"
	OutcomeSuperseded   = "superseded"
	OutcomeDeleted      = "deleted"
	OutcomeCancelled    = "cancelled"
	OutcomeFailed       = "failed"
)

type ProcessingMetrics struct {
	started   prometheus.Counter
	outcomes  *prometheus.CounterVec
	inFlight  prometheus.Gauge
	durations prometheus.Histogram
	recovered prometheus.Counter
	cacheHits *prometheus.CounterVec
}

var (
	processingOnce sync.Once
	processingInst *ProcessingMetrics
)

// Processing - коллекторы регистрируются в глобальном реестре один раз на процесс.
func Processing() *ProcessingMetrics {
	processingOnce.Do(func() {
		processingInst = newProcessingMetrics()
	})
	return processingInst
}

func newProcessingMetrics() *ProcessingMetrics {
	return &ProcessingMetrics{
		started: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "property_desk",
			Subsystem: "ai_processing",
			Name:      "jobs_started_total",
			Help:      "Background AI processing jobs started",
		}),
		outcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "property_desk",
			Subsystem: "ai_processing",
			Name:      "jobs_finished_total",
			Help:      "Background AI processing jobs finished, labeled by outcome",
		}, []string{"outcome"}),
		inFlight: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "property_desk",
			Subsystem: "ai_processing",
			Name:      "jobs_in_flight",
			Help:      "Background AI processing jobs currently running",
		}),
		durations: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: "property_desk",
			Subsystem: "ai_processing",
			Name:      "job_duration_seconds",
			Help:      "Duration of background AI processing jobs",
			Buckets:   []float64{1, 5, 10, 15, 20, 30, 60, 120},
		}),
		recovered: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "property_desk",
			Subsystem: "ai_processing",
			Name:      "jobs_recovered_total",
			Help:      "Stale tickets re-queued by the recovery sweep",
		}),
		cacheHits: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "property_desk",
			Subsystem: "classify",
			Name:      "cache_requests_total",
			Help:      "Classification cache lookups, labeled by result",
		}, []string{"result"}),
	}
}

// JobStarted возвращает функцию, которую нужно вызвать с итогом по завершении задачи.
func (m *ProcessingMetrics) JobStarted() func(outcome string) {
	if m == nil {
		return func(string) {}
	}
	m.started.Inc()
	m.inFlight.Inc()
	timer := prometheus.NewTimer(m.durations)
	return func(outcome string) {
		m.inFlight.Dec()
		timer.ObserveDuration()
		m.outcomes.WithLabelValues(outcome).Inc()
	}
}

func (m *ProcessingMetrics) Recovered(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.recovered.Add(float64(n))
}

func (m *ProcessingMetrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheHits.WithLabelValues(result).Inc()
}
