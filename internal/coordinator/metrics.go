package coordinator

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics tracks coordinator throughput and contention. The embedding
// process decides how the registry is exposed; the coordinator only counts.
type Metrics struct {
	tasksStarted   *prometheus.CounterVec
	tasksCompleted *prometheus.CounterVec
	tasksFailed    *prometheus.CounterVec
	conflicts      *prometheus.CounterVec
	inFlight       prometheus.Gauge
}

// NewMetrics creates and registers the coordinator's collectors.
// Pass nil to skip registration (tests).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		tasksStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "trialforge",
			Subsystem: "coordinator",
			Name:      "tasks_started_total",
			Help:      "Tasks moved to in_progress, by stage type.",
		}, []string{"type"}),
		tasksCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "trialforge",
			Subsystem: "coordinator",
			Name:      "tasks_completed_total",
			Help:      "Tasks that reached completed, by stage type.",
		}, []string{"type"}),
		tasksFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "trialforge",
			Subsystem: "coordinator",
			Name:      "tasks_failed_total",
			Help:      "Tasks that reached failed, by stage type.",
		}, []string{"type"}),
		conflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "trialforge",
			Subsystem: "coordinator",
			Name:      "start_conflicts_total",
			Help:      "Start requests rejected because the (trial, type) slot was occupied.",
		}, []string{"type"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "trialforge",
			Subsystem: "coordinator",
			Name:      "tasks_in_flight",
			Help:      "Tasks currently in_progress.",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.tasksStarted, m.tasksCompleted, m.tasksFailed, m.conflicts, m.inFlight)
	}
	return m
}

func (m *Metrics) started(taskType string) {
	if m == nil {
		return
	}
	m.tasksStarted.WithLabelValues(taskType).Inc()
	m.inFlight.Inc()
}

func (m *Metrics) completed(taskType string) {
	if m == nil {
		return
	}
	m.tasksCompleted.WithLabelValues(taskType).Inc()
	m.inFlight.Dec()
}

func (m *Metrics) failed(taskType string) {
	if m == nil {
		return
	}
	m.tasksFailed.WithLabelValues(taskType).Inc()
	m.inFlight.Dec()
}

func (m *Metrics) conflict(taskType string) {
	if m == nil {
		return
	}
	m.conflicts.WithLabelValues(taskType).Inc()
}
