package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "genomics"

// Registry holds every collector exported on /metrics.
var Registry = prometheus.NewRegistry()

var (
	factory = promauto.With(Registry)

	jobRuns = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "jobs",
		Name:      "runs_total",
		Help:      "Job runs by job and terminal result.",
	}, []string{"job", "result"})

	jobDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "jobs",
		Name:      "run_duration_seconds",
		Help:      "Wall time of job runs.",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 14),
	}, []string{"job"})

	incidents = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "incidents",
		Name:      "recorded_total",
		Help:      "Incidents recorded by code.",
	}, []string{"code"})

	notifications = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "incidents",
		Name:      "notifications_total",
		Help:      "Incident notifications by outcome (sent, suppressed, failed).",
	}, []string{"outcome"})

	rawRows = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ingestion",
		Name:      "raw_rows_total",
		Help:      "Raw manifest rows persisted by manifest type.",
	}, []string{"manifest_type"})

	rejectedBatches = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ingestion",
		Name:      "rejected_batches_total",
		Help:      "Raw row batches rejected by validation.",
	}, []string{"manifest_type"})

	deltas = factory.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "reconcile",
		Name:      "ingestion_deltas",
		Help:      "Raw rows without a matching ledger entry at the last reconciliation.",
	}, []string{"family"})

	pastDue = factory.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "reconcile",
		Name:      "past_due_samples",
		Help:      "Samples found past due at the last check.",
	}, []string{"module"})

	outreachEvents = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "outreach",
		Name:      "events_total",
		Help:      "Outreach events projected by type.",
	}, []string{"type"})

	transitions = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "workflow",
		Name:      "transitions_total",
		Help:      "Workflow state writes by target state and shape check.",
	}, []string{"state", "shape"})
)

var initOnce sync.Once

// Init registers the Go runtime and process collectors.
func Init() {
	initOnce.Do(func() {
		Registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	})
}

func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}

func ObserveJobRun(job, result string, elapsed time.Duration) {
	jobRuns.WithLabelValues(job, result).Inc()
	jobDuration.WithLabelValues(job).Observe(elapsed.Seconds())
}

func ObserveIncident(code string) {
	incidents.WithLabelValues(code).Inc()
}

func ObserveNotification(outcome string) {
	notifications.WithLabelValues(outcome).Inc()
}

func ObserveRawRows(manifestType string, n int) {
	rawRows.WithLabelValues(manifestType).Add(float64(n))
}

func ObserveRejectedBatch(manifestType string) {
	rejectedBatches.WithLabelValues(manifestType).Inc()
}

func ObserveDeltas(family string, n int) {
	deltas.WithLabelValues(family).Set(float64(n))
}

func ObservePastDue(module string, n int) {
	pastDue.WithLabelValues(module).Set(float64(n))
}

func ObserveOutreachEvent(eventType string) {
	outreachEvents.WithLabelValues(eventType).Inc()
}

func ObserveTransition(state string, onShape bool) {
	shape := "valid"
	if !onShape {
		shape = "off_shape"
	}
	transitions.WithLabelValues(state, shape).Inc()
}
