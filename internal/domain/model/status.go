package model

// StatusSnapshot is the read-only view served by the status command and the
// ops API. Purely observational; scheduling never consults it.
type StatusSnapshot struct {
	QueueDepth     int               `json:"queue_depth"`
	QueueCapacity  int               `json:"queue_capacity"`
	InFlight       int               `json:"in_flight"`
	Workers        int               `json:"workers"`
	SucceededTotal uint64            `json:"succeeded_total"`
	FailedTotal    uint64            `json:"failed_total"`
	CancelledTotal uint64            `json:"cancelled_total"`
	PerProvider    []ProviderLatency `json:"per_provider"`
}

// ProviderLatency aggregates transcription call latency per STT backend.
type ProviderLatency struct {
	Provider     string  `json:"provider"`
	Calls        uint64  `json:"calls"`
	AvgLatencyMs float64 `json:"avg_latency_ms"`
	MaxLatencyMs int64   `json:"max_latency_ms"`
}
