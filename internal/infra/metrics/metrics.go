package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "stock_planner"

// Metrics — счётчики прогонов планировщика на собственном реестре.
type Metrics struct {
	reg *prometheus.Registry

	Runs              *prometheus.CounterVec
	RunDuration       *prometheus.HistogramVec
	AllocationLines   *prometheus.CounterVec
	AllocatedUnits    prometheus.Counter
	Warnings          *prometheus.CounterVec
	ReconcileOutcomes *prometheus.CounterVec
	ReportPolls       *prometheus.CounterVec
	LastRunTimestamp  prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Planner runs by job and outcome.",
		}, []string{"job", "outcome"}),
		RunDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Planner run duration by job.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"job"}),
		AllocationLines: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "allocation_lines_total",
			Help:      "Allocated demand lines by fulfillment status.",
		}, []string{"status"}),
		AllocatedUnits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "allocated_units_total",
			Help:      "Fulfillable units across all allocation runs.",
		}),
		Warnings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "row_warnings_total",
			Help:      "Skipped rows by warning kind.",
		}, []string{"kind"}),
		ReconcileOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconcile_outcomes_total",
			Help:      "Legacy SKU reconciliation outcomes by status.",
		}, []string{"status"}),
		ReportPolls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "report_polls_total",
			Help:      "Report status polls by processing status.",
		}, []string{"status"}),
		LastRunTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time of the last finished run.",
		}),
	}
	m.reg.MustRegister(
		collectors.NewGoCollector(),
		m.Runs, m.RunDuration, m.AllocationLines, m.AllocatedUnits,
		m.Warnings, m.ReconcileOutcomes, m.ReportPolls, m.LastRunTimestamp,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// ObserveRun фиксирует итог прогона задачи.
func (m *Metrics) ObserveRun(job string, started time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.Runs.WithLabelValues(job, outcome).Inc()
	m.RunDuration.WithLabelValues(job).Observe(time.Since(started).Seconds())
	m.LastRunTimestamp.SetToCurrentTime()
}
