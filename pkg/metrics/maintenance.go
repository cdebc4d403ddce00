package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MaintenanceMetrics covers the cron worker: job runs and rows purged by
// retention.
type MaintenanceMetrics struct {
	duration *prometheus.HistogramVec
	runs     *prometheus.CounterVec
	purged   *prometheus.CounterVec
}

// NewMaintenanceMetrics registers the maintenance metrics on reg. A nil
// registerer yields a recorder that drops everything.
func NewMaintenanceMetrics(reg prometheus.Registerer) *MaintenanceMetrics {
	if reg == nil {
		return &MaintenanceMetrics{}
	}
	m := &MaintenanceMetrics{
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "maintenance_job_duration_seconds",
			Help:    "Duration of maintenance jobs in seconds.",
			Buckets: []float64{0.05, 0.25, 1, 5, 15, 60, 300},
		}, []string{"job"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "maintenance_job_runs_total",
			Help: "Maintenance job runs by outcome.",
		}, []string{"job", "outcome"}),
		purged: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "maintenance_rows_purged_total",
			Help: "Rows deleted by retention jobs.",
		}, []string{"table"}),
	}
	reg.MustRegister(m.duration, m.runs, m.purged)
	return m
}

// ObserveRun records one job run. A nil err counts as success.
func (m *MaintenanceMetrics) ObserveRun(job string, duration time.Duration, err error) {
	if m == nil || m.duration == nil {
		return
	}
	job = normalizeLabel(job)
	m.duration.WithLabelValues(job).Observe(duration.Seconds())
	m.runs.WithLabelValues(job, outcomeLabel(err == nil)).Inc()
}

// AddPurged counts rows removed from table.
func (m *MaintenanceMetrics) AddPurged(table string, rows int64) {
	if m == nil || m.purged == nil || rows <= 0 {
		return
	}
	m.purged.WithLabelValues(normalizeLabel(table)).Add(float64(rows))
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
