package status

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"telegram-stt-bot/internal/domain/model"
	"telegram-stt-bot/internal/infra/metrics"
)

// QueueStatsFunc lets the reporter read queue occupancy at snapshot time
// without holding a reference into the scheduler. Observation never feeds
// back into scheduling.
type QueueStatsFunc func() (queued, inFlight, capacity, workers int)

// Reporter aggregates job outcomes and provider latencies. Writes come from
// many workers; reads come from the status command and the ops API.
type Reporter struct {
	succeeded atomic.Uint64
	failed    atomic.Uint64
	cancelled atomic.Uint64

	mu         sync.Mutex
	byProvider map[string]*providerAgg

	queueStats QueueStatsFunc
}

type providerAgg struct {
	calls uint64
	sumMs int64
	maxMs int64
}

func NewReporter() *Reporter {
	return &Reporter{byProvider: make(map[string]*providerAgg)}
}

func (r *Reporter) SetQueueStatsFunc(fn QueueStatsFunc) { r.queueStats = fn }

// JobFinished records one terminal transition. Mirrored into prometheus.
func (r *Reporter) JobFinished(state model.JobState) {
	switch state {
	case model.JobStateSucceeded:
		r.succeeded.Add(1)
	case model.JobStateFailed:
		r.failed.Add(1)
	case model.JobStateCancelled:
		r.cancelled.Add(1)
	default:
		return
	}
	metrics.IncJobProcessed(string(state))
}

// StageObserved records one stage execution for latency accounting.
func (r *Reporter) StageObserved(stage model.JobState, elapsed time.Duration, success bool) {
	metrics.ObserveStage(string(stage), elapsed.Milliseconds(), success)
}

// TranscriptionObserved records one provider call, success or not.
func (r *Reporter) TranscriptionObserved(provider string, elapsed time.Duration, success bool) {
	ms := elapsed.Milliseconds()
	metrics.ObserveSTTCall(provider, ms, success)

	r.mu.Lock()
	agg := r.byProvider[provider]
	if agg == nil {
		agg = &providerAgg{}
		r.byProvider[provider] = agg
	}
	agg.calls++
	agg.sumMs += ms
	if ms > agg.maxMs {
		agg.maxMs = ms
	}
	r.mu.Unlock()
}

// Snapshot assembles the read-only status view.
func (r *Reporter) Snapshot() model.StatusSnapshot {
	snap := model.StatusSnapshot{
		SucceededTotal: r.succeeded.Load(),
		FailedTotal:    r.failed.Load(),
		CancelledTotal: r.cancelled.Load(),
	}
	if r.queueStats != nil {
		snap.QueueDepth, snap.InFlight, snap.QueueCapacity, snap.Workers = r.queueStats()
	}

	r.mu.Lock()
	for name, agg := range r.byProvider {
		pl := model.ProviderLatency{
			Provider:     name,
			Calls:        agg.calls,
			MaxLatencyMs: agg.maxMs,
		}
		if agg.calls > 0 {
			pl.AvgLatencyMs = float64(agg.sumMs) / float64(agg.calls)
		}
		snap.PerProvider = append(snap.PerProvider, pl)
	}
	r.mu.Unlock()

	sort.Slice(snap.PerProvider, func(i, j int) bool {
		return snap.PerProvider[i].Provider < snap.PerProvider[j].Provider
	})
	return snap
}
