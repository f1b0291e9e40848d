package router

import (
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/FrenchMajesty/adaptive-classifier/pkg/types"
)

// reservoirSize bounds the per-tier latency samples kept for percentile
// estimates, so memory stays flat however long the process runs.
const reservoirSize = 512

// TierAttempt is one tier's contribution to a routed request's outcome.
type TierAttempt struct {
	TierID  string
	Outcome types.TierOutcome

	// Latency is the invocation time. Zero for skipped tiers.
	Latency time.Duration
}

// Outcome is what the routing engine reports to the aggregator after every
// request, successful or not.
type Outcome struct {
	Group      string
	TierUsed   string
	Confidence float64

	// Latency is the end-to-end routing time.
	Latency time.Duration

	Attempts []TierAttempt

	// Failed marks requests that ended in a terminal error.
	Failed bool
}

// tierStats accumulates per-tier invocation counts and a latency reservoir.
type tierStats struct {
	invocations int64
	seen        int64
	samples     []float64 // latency in ms
}

// observe folds one latency sample into the reservoir (algorithm R).
func (s *tierStats) observe(latencyMs float64) {
	s.invocations++
	s.seen++
	if len(s.samples) < reservoirSize {
		s.samples = append(s.samples, latencyMs)
		return
	}
	if j := rand.Int63n(s.seen); j < reservoirSize {
		s.samples[j] = latencyMs
	}
}

type groupStats struct {
	count        int64
	latencySumMs float64
	confSum      float64
	confCount    int64
}

// TierStats is the per-tier slice of a metrics snapshot.
type TierStats struct {
	Invocations  int64   `json:"invocations"`
	P50LatencyMs float64 `json:"p50_latency_ms"`
	P95LatencyMs float64 `json:"p95_latency_ms"`
	P99LatencyMs float64 `json:"p99_latency_ms"`
}

// GroupStats is the per-experiment-group slice of a metrics snapshot.
type GroupStats struct {
	Count         int64   `json:"count"`
	AvgLatencyMs  float64 `json:"avg_latency_ms"`
	AvgConfidence float64 `json:"avg_confidence"`
}

// MetricsSnapshot is a point-in-time copy of the aggregated outcome
// statistics, for consumption by an external observability system.
type MetricsSnapshot struct {
	PerTier  map[string]TierStats  `json:"per_tier"`
	PerGroup map[string]GroupStats `json:"per_group"`
}

// Aggregator records per-tier and per-group outcome statistics. Many
// concurrent writers and a concurrent reader are supported; writes hold the
// lock only long enough to fold in one outcome, so recording never stalls
// routing decisions.
type Aggregator struct {
	mu       sync.Mutex
	perTier  map[string]*tierStats
	perGroup map[string]*groupStats
}

// NewAggregator creates an empty metrics aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{
		perTier:  make(map[string]*tierStats),
		perGroup: make(map[string]*groupStats),
	}
}

// Record folds one routed outcome into the aggregate. Fire-and-forget: it
// never returns an error to the caller.
func (a *Aggregator) Record(o Outcome) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, att := range o.Attempts {
		if att.Outcome == types.OutcomeSkippedUnhealthy {
			continue
		}
		ts, ok := a.perTier[att.TierID]
		if !ok {
			ts = &tierStats{}
			a.perTier[att.TierID] = ts
		}
		ts.observe(float64(att.Latency) / float64(time.Millisecond))
	}

	gs, ok := a.perGroup[o.Group]
	if !ok {
		gs = &groupStats{}
		a.perGroup[o.Group] = gs
	}
	gs.count++
	gs.latencySumMs += float64(o.Latency) / float64(time.Millisecond)
	if !o.Failed {
		gs.confSum += o.Confidence
		gs.confCount++
	}
}

// Snapshot returns a copy of the current aggregate. Percentiles are computed
// from the bounded reservoir, so they are estimates on high-volume tiers.
func (a *Aggregator) Snapshot() MetricsSnapshot {
	a.mu.Lock()
	perTierSamples := make(map[string][]float64, len(a.perTier))
	snap := MetricsSnapshot{
		PerTier:  make(map[string]TierStats, len(a.perTier)),
		PerGroup: make(map[string]GroupStats, len(a.perGroup)),
	}
	for id, ts := range a.perTier {
		samples := make([]float64, len(ts.samples))
		copy(samples, ts.samples)
		perTierSamples[id] = samples
		snap.PerTier[id] = TierStats{Invocations: ts.invocations}
	}
	for name, gs := range a.perGroup {
		stats := GroupStats{Count: gs.count}
		if gs.count > 0 {
			stats.AvgLatencyMs = gs.latencySumMs / float64(gs.count)
		}
		if gs.confCount > 0 {
			stats.AvgConfidence = gs.confSum / float64(gs.confCount)
		}
		snap.PerGroup[name] = stats
	}
	a.mu.Unlock()

	// Sorting happens outside the lock on the copied samples.
	for id, samples := range perTierSamples {
		sort.Float64s(samples)
		stats := snap.PerTier[id]
		stats.P50LatencyMs = percentile(samples, 50)
		stats.P95LatencyMs = percentile(samples, 95)
		stats.P99LatencyMs = percentile(samples, 99)
		snap.PerTier[id] = stats
	}
	return snap
}

// Reset discards all accumulated statistics. Explicit operator action only.
func (a *Aggregator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.perTier = make(map[string]*tierStats)
	a.perGroup = make(map[string]*groupStats)
}

// percentile returns the nearest-rank percentile of sorted samples.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	rank := int(math.Ceil(p / 100 * float64(len(sorted))))
	if rank < 1 {
		rank = 1
	}
	return sorted[rank-1]
}
