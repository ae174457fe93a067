package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(jobsProcessedTotal, jobsQueueDepth, jobsInFlight, stageLatencyMs, admissionRejects)
}

var jobsProcessedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "transcription_jobs_processed_total",
		Help: "Total number of transcription jobs finished, labeled by terminal state.",
	},
	[]string{"state"}, // 'succeeded', 'failed', 'cancelled'
)

var jobsQueueDepth = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "transcription_queue_depth",
		Help: "Jobs currently waiting in the admission queue.",
	},
)

var jobsInFlight = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "transcription_jobs_in_flight",
		Help: "Jobs currently being processed by a worker.",
	},
)

var stageLatencyMs = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "transcription_stage_latency_ms",
		Help:    "Per-stage latency distribution in milliseconds.",
		Buckets: []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000, 60000},
	},
	[]string{"stage", "success"},
)

var admissionRejects = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "transcription_admission_rejects_total",
		Help: "Submissions rejected because the queue was at capacity.",
	},
)

func IncJobProcessed(state string) { jobsProcessedTotal.WithLabelValues(norm(state)).Inc() }

func SetQueueDepth(n int) { jobsQueueDepth.Set(float64(n)) }

func SetInFlight(n int) { jobsInFlight.Set(float64(n)) }

func ObserveStage(stage string, latencyMs int64, success bool) {
	stageLatencyMs.WithLabelValues(norm(stage), boolLabel(success)).Observe(float64(latencyMs))
}

func IncAdmissionReject() { admissionRejects.Inc() }
