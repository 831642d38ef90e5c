package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "bazaar"

// CronJobMetrics tracks cron-worker runs per loop and job.
type CronJobMetrics struct {
	duration    *prometheus.HistogramVec
	runs        *prometheus.CounterVec
	lastSuccess *prometheus.GaugeVec
	leaseLost   *prometheus.CounterVec
}

// NewCronJobMetrics registers the cron metrics on reg. A nil reg yields a no-op recorder.
func NewCronJobMetrics(reg prometheus.Registerer) *CronJobMetrics {
	if reg == nil {
		return &CronJobMetrics{}
	}
	m := &CronJobMetrics{
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "cron",
			Name:      "job_duration_seconds",
			Help:      "Wall time of one cron job run.",
			Buckets:   []float64{.05, .1, .5, 1, 5, 15, 60, 300},
		}, []string{"loop", "job"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cron",
			Name:      "job_runs_total",
			Help:      "Cron job runs by result.",
		}, []string{"loop", "job", "result"}),
		lastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cron",
			Name:      "job_last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run.",
		}, []string{"loop", "job"}),
		leaseLost: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cron",
			Name:      "lease_lost_total",
			Help:      "Cycles abandoned because the loop lease was taken over.",
		}, []string{"loop"}),
	}
	reg.MustRegister(m.duration, m.runs, m.lastSuccess, m.leaseLost)
	return m
}

// ObserveRun records one job run. A nil err counts as success.
func (c *CronJobMetrics) ObserveRun(loop, job string, took time.Duration, err error) {
	if c == nil || c.runs == nil {
		return
	}
	loop, job = normalizeLabel(loop), normalizeLabel(job)
	c.duration.WithLabelValues(loop, job).Observe(took.Seconds())
	if err != nil {
		c.runs.WithLabelValues(loop, job, "failure").Inc()
		return
	}
	c.runs.WithLabelValues(loop, job, "success").Inc()
	c.lastSuccess.WithLabelValues(loop, job).SetToCurrentTime()
}

func (c *CronJobMetrics) IncLeaseLost(loop string) {
	if c == nil || c.leaseLost == nil {
		return
	}
	c.leaseLost.WithLabelValues(normalizeLabel(loop)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
