package inmemory

import (
	"sync"
	"time"
)

type Snapshot struct {
	TurnTotal        uint64 `json:"turn_total"`
	TurnLatencyP50Ms int64  `json:"turn_latency_p50_ms"`
	TurnLatencyMaxMs int64  `json:"turn_latency_max_ms"`
	AIRetries        uint64 `json:"ai_retries"`
	AIFailures       uint64 `json:"ai_failures"`
	CombatsStarted   uint64 `json:"combats_started"`
	Deaths           uint64 `json:"deaths"`
}

// Recorder counts turn outcomes and keeps a bounded latency window for the
// ops snapshot endpoint.
type Recorder struct {
	mu        sync.Mutex
	turns     uint64
	retries   uint64
	failures  uint64
	combats   uint64
	deaths    uint64
	latencies []time.Duration
}

const latencyWindow = 256

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) RecordTurn(latency time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.turns++
	r.latencies = append(r.latencies, latency)
	if len(r.latencies) > latencyWindow {
		r.latencies = r.latencies[len(r.latencies)-latencyWindow:]
	}
}

func (r *Recorder) RecordAIRetry() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.retries++
}

func (r *Recorder) RecordAIFailure() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures++
}

func (r *Recorder) RecordCombatStarted() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.combats++
}

func (r *Recorder) RecordDeath() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deaths++
}

func (r *Recorder) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := Snapshot{
		TurnTotal:      r.turns,
		AIRetries:      r.retries,
		AIFailures:     r.failures,
		CombatsStarted: r.combats,
		Deaths:         r.deaths,
	}
	if len(r.latencies) > 0 {
		sorted := append([]time.Duration(nil), r.latencies...)
		for i := 1; i < len(sorted); i++ {
			for j := i; j > 0 && sorted[j] < sorted[j-1]; j-- {
				sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
			}
		}
		out.TurnLatencyP50Ms = sorted[len(sorted)/2].Milliseconds()
		out.TurnLatencyMaxMs = sorted[len(sorted)-1].Milliseconds()
	}
	return out
}

func (r *Recorder) SnapshotAny() any {
	return r.Snapshot()
}
