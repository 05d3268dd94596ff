package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// JobMetrics records metadata for scheduled worker jobs.
type JobMetrics struct {
	duration *prometheus.HistogramVec
	success  *prometheus.CounterVec
	failure  *prometheus.CounterVec
}

// NewJobMetrics registers the worker job metrics on the provided registerer.
func NewJobMetrics(reg prometheus.Registerer) *JobMetrics {
	if reg == nil {
		return &JobMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "job_duration_seconds",
		Help:    "Duration of worker jobs in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "job_success",
		Help: "Successful worker job executions.",
	}, []string{"job"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "job_failure",
		Help: "Failed worker job executions.",
	}, []string{"job"})
	reg.MustRegister(duration, success, failure)
	return &JobMetrics{
		duration: duration,
		success:  success,
		failure:  failure,
	}
}

// ObserveDuration records the duration for the named job.
func (j *JobMetrics) ObserveDuration(job string, duration time.Duration) {
	if j == nil || j.duration == nil {
		return
	}
	j.duration.WithLabelValues(normalizeLabel(job)).Observe(duration.Seconds())
}

// IncSuccess increments the success counter for the named job.
func (j *JobMetrics) IncSuccess(job string) {
	if j == nil || j.success == nil {
		return
	}
	j.success.WithLabelValues(normalizeLabel(job)).Inc()
}

// IncFailure increments the failure counter for the named job.
func (j *JobMetrics) IncFailure(job string) {
	if j == nil || j.failure == nil {
		return
	}
	j.failure.WithLabelValues(normalizeLabel(job)).Inc()
}

// AccrualMetrics tracks per-run outcomes of the accrual sweep.
type AccrualMetrics struct {
	credited prometheus.Counter
	skipped  prometheus.Counter
	failed   prometheus.Counter
	matured  prometheus.Counter
}

// NewAccrualMetrics registers the accrual counters on the provided registerer.
func NewAccrualMetrics(reg prometheus.Registerer) *AccrualMetrics {
	if reg == nil {
		return &AccrualMetrics{}
	}
	credited := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "accrual_positions_credited_total",
		Help: "Positions that received an accrual credit.",
	})
	skipped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "accrual_positions_skipped_total",
		Help: "Positions skipped because the period was already paid.",
	})
	failed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "accrual_positions_failed_total",
		Help: "Positions whose accrual transaction failed.",
	})
	matured := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "accrual_positions_matured_total",
		Help: "Positions transitioned to completed.",
	})
	reg.MustRegister(credited, skipped, failed, matured)
	return &AccrualMetrics{
		credited: credited,
		skipped:  skipped,
		failed:   failed,
		matured:  matured,
	}
}

// IncCredited increments the credited-position counter.
func (a *AccrualMetrics) IncCredited() {
	if a == nil || a.credited == nil {
		return
	}
	a.credited.Inc()
}

// IncSkipped increments the skipped-position counter.
func (a *AccrualMetrics) IncSkipped() {
	if a == nil || a.skipped == nil {
		return
	}
	a.skipped.Inc()
}

// IncFailed increments the failed-position counter.
func (a *AccrualMetrics) IncFailed() {
	if a == nil || a.failed == nil {
		return
	}
	a.failed.Inc()
}

// IncMatured increments the matured-position counter.
func (a *AccrualMetrics) IncMatured() {
	if a == nil || a.matured == nil {
		return
	}
	a.matured.Inc()
}

func normalizeLabel(job string) string {
	if job == "" {
		return "unknown"
	}
	return job
}
