package router_test

import (
	"testing"

	"github.com/FrenchMajesty/adaptive-classifier/pkg/router"
	"github.com/FrenchMajesty/adaptive-classifier/pkg/types"
)

func snapshotFor(t *testing.T, cfg router.RoutingConfig) *router.ConfigSnapshot {
	t.Helper()
	store, err := router.NewConfigStore(cfg)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	return store.Get()
}

// TestAllowed_BudgetSubsets checks the class-driven mapping for the stock
// three-tier config.
func TestAllowed_BudgetSubsets(t *testing.T) {
	snap := snapshotFor(t, router.DefaultConfig())
	var planner router.BudgetPlanner

	tests := []struct {
		budget types.LatencyBudget
		want   []string
	}{
		{types.BudgetCritical, []string{"rules"}},
		{types.BudgetStandard, []string{"rules", "zero_shot"}},
		{types.BudgetRelaxed, []string{"rules", "zero_shot", "fine_tuned"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.budget), func(t *testing.T) {
			got := planner.Allowed(tt.budget, snap)
			if len(got) != len(tt.want) {
				t.Fatalf("Expected %v, got %+v", tt.want, got)
			}
			for i, id := range tt.want {
				if got[i].ID != id {
					t.Errorf("Position %d: expected %s, got %s", i, id, got[i].ID)
				}
			}
		})
	}
}

// TestAllowed_Monotonic: each wider budget is a superset of the narrower
// one, including in a config with a fourth tier.
func TestAllowed_Monotonic(t *testing.T) {
	cfg := router.DefaultConfig()
	cfg.Tiers = append([]router.TierConfig{{
		ID:                  "vector_cache",
		LatencyClass:        types.LatencyFast,
		AccuracyEstimate:    0.80,
		ConfidenceThreshold: 0.82,
		TimeoutMs:           500,
	}}, cfg.Tiers...)
	snap := snapshotFor(t, cfg)
	var planner router.BudgetPlanner

	critical := planner.Allowed(types.BudgetCritical, snap)
	standard := planner.Allowed(types.BudgetStandard, snap)
	relaxed := planner.Allowed(types.BudgetRelaxed, snap)

	assertSubset(t, critical, standard)
	assertSubset(t, standard, relaxed)

	// A second fast tier widens critical without planner changes.
	if len(critical) != 2 {
		t.Errorf("Expected both fast tiers under critical, got %+v", critical)
	}
	if len(relaxed) != len(cfg.Tiers) {
		t.Errorf("Expected all tiers under relaxed, got %d", len(relaxed))
	}
}

func assertSubset(t *testing.T, smaller, larger []router.TierConfig) {
	t.Helper()
	ids := make(map[string]bool, len(larger))
	for _, tier := range larger {
		ids[tier.ID] = true
	}
	for _, tier := range smaller {
		if !ids[tier.ID] {
			t.Errorf("Tier %s missing from the wider budget", tier.ID)
		}
	}
}
