package router_test

import (
	"sync"
	"testing"
	"time"

	"github.com/FrenchMajesty/adaptive-classifier/pkg/router"
	"github.com/FrenchMajesty/adaptive-classifier/pkg/types"
)

func outcomeWith(group, tier string, latency time.Duration, outcome types.TierOutcome) router.Outcome {
	return router.Outcome{
		Group:      group,
		TierUsed:   tier,
		Confidence: 0.8,
		Latency:    latency,
		Attempts: []router.TierAttempt{
			{TierID: tier, Outcome: outcome, Latency: latency},
		},
	}
}

// TestAggregator_RecordAndSnapshot covers counts and averages.
func TestAggregator_RecordAndSnapshot(t *testing.T) {
	agg := router.NewAggregator()

	agg.Record(outcomeWith("control", "rules", 10*time.Millisecond, types.OutcomeSuccess))
	agg.Record(outcomeWith("control", "rules", 30*time.Millisecond, types.OutcomeSuccess))

	snap := agg.Snapshot()
	if snap.PerTier["rules"].Invocations != 2 {
		t.Errorf("Expected 2 invocations, got %d", snap.PerTier["rules"].Invocations)
	}
	group := snap.PerGroup["control"]
	if group.Count != 2 {
		t.Errorf("Expected 2 group requests, got %d", group.Count)
	}
	if group.AvgLatencyMs != 20 {
		t.Errorf("Expected avg latency 20ms, got %v", group.AvgLatencyMs)
	}
	if group.AvgConfidence != 0.8 {
		t.Errorf("Expected avg confidence 0.8, got %v", group.AvgConfidence)
	}
}

// TestAggregator_SkippedTiersNotCounted: a skipped-unhealthy attempt is not
// an invocation.
func TestAggregator_SkippedTiersNotCounted(t *testing.T) {
	agg := router.NewAggregator()
	agg.Record(router.Outcome{
		Group:    "control",
		TierUsed: "zero_shot",
		Latency:  5 * time.Millisecond,
		Attempts: []router.TierAttempt{
			{TierID: "rules", Outcome: types.OutcomeSkippedUnhealthy},
			{TierID: "zero_shot", Outcome: types.OutcomeSuccess, Latency: 5 * time.Millisecond},
		},
	})

	snap := agg.Snapshot()
	if _, ok := snap.PerTier["rules"]; ok {
		t.Error("Expected no rules stats for a skipped attempt")
	}
	if snap.PerTier["zero_shot"].Invocations != 1 {
		t.Errorf("Expected 1 zero_shot invocation, got %d", snap.PerTier["zero_shot"].Invocations)
	}
}

// TestAggregator_FailedRequestsExcludedFromConfidence: terminal errors count
// toward the group but not its confidence average.
func TestAggregator_FailedRequestsExcludedFromConfidence(t *testing.T) {
	agg := router.NewAggregator()
	agg.Record(outcomeWith("control", "rules", 10*time.Millisecond, types.OutcomeSuccess))
	agg.Record(router.Outcome{
		Group:   "control",
		Latency: 15 * time.Millisecond,
		Attempts: []router.TierAttempt{
			{TierID: "rules", Outcome: types.OutcomeError, Latency: 15 * time.Millisecond},
		},
		Failed: true,
	})

	group := agg.Snapshot().PerGroup["control"]
	if group.Count != 2 {
		t.Errorf("Expected both requests counted, got %d", group.Count)
	}
	if group.AvgConfidence != 0.8 {
		t.Errorf("Expected failed request excluded from confidence, got %v", group.AvgConfidence)
	}
}

// TestAggregator_PercentilesOrdered: p50 <= p95 <= p99 over a latency spread.
func TestAggregator_PercentilesOrdered(t *testing.T) {
	agg := router.NewAggregator()
	for i := 1; i <= 1000; i++ {
		agg.Record(outcomeWith("control", "zero_shot", time.Duration(i)*time.Millisecond, types.OutcomeSuccess))
	}

	stats := agg.Snapshot().PerTier["zero_shot"]
	if stats.Invocations != 1000 {
		t.Errorf("Expected 1000 invocations, got %d", stats.Invocations)
	}
	if stats.P50LatencyMs > stats.P95LatencyMs || stats.P95LatencyMs > stats.P99LatencyMs {
		t.Errorf("Percentiles out of order: p50=%v p95=%v p99=%v",
			stats.P50LatencyMs, stats.P95LatencyMs, stats.P99LatencyMs)
	}
	if stats.P50LatencyMs <= 0 {
		t.Errorf("Expected a positive p50, got %v", stats.P50LatencyMs)
	}
}

// TestAggregator_Reset drops everything.
func TestAggregator_Reset(t *testing.T) {
	agg := router.NewAggregator()
	agg.Record(outcomeWith("control", "rules", time.Millisecond, types.OutcomeSuccess))

	agg.Reset()

	snap := agg.Snapshot()
	if len(snap.PerTier) != 0 || len(snap.PerGroup) != 0 {
		t.Errorf("Expected empty snapshot after reset, got %+v", snap)
	}
}

// TestAggregator_ConcurrentWriters: many writers and a reader race-free.
func TestAggregator_ConcurrentWriters(t *testing.T) {
	agg := router.NewAggregator()

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				agg.Record(outcomeWith("control", "rules", time.Duration(i)*time.Millisecond, types.OutcomeSuccess))
			}
		}()
	}
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		for i := 0; i < 50; i++ {
			agg.Snapshot()
		}
	}()

	wg.Wait()
	<-readerDone

	if got := agg.Snapshot().PerTier["rules"].Invocations; got != 1600 {
		t.Errorf("Expected 1600 invocations, got %d", got)
	}
}
