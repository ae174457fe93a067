package metrics

import (
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(sttCallLatencyMs, sttRateLimitedTotal, conversionsTotal)
}

var sttCallLatencyMs = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "stt_call_latency_ms",
		Help:    "Provider transcription call latency distribution in milliseconds.",
		Buckets: []float64{100, 250, 500, 1000, 2500, 5000, 10000, 30000, 60000, 120000},
	},
	[]string{"provider", "success"},
)

var sttRateLimitedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "stt_rate_limited_total",
		Help: "Rate-limit responses per provider.",
	},
	[]string{"provider"},
)

var conversionsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "audio_conversions_total",
		Help: "Audio conversions by outcome (ok/unsupported/tool_failure/timeout).",
	},
	[]string{"outcome"},
)

func ObserveSTTCall(provider string, latencyMs int64, success bool) {
	sttCallLatencyMs.WithLabelValues(norm(provider), boolLabel(success)).Observe(float64(latencyMs))
}

func IncRateLimited(provider string) {
	sttRateLimitedTotal.WithLabelValues(norm(provider)).Inc()
}

func IncConversion(outcome string) {
	conversionsTotal.WithLabelValues(norm(outcome)).Inc()
}

func norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func boolLabel(b bool) string { return strconv.FormatBool(b) }
