package router_test

import (
	"testing"

	"github.com/FrenchMajesty/adaptive-classifier/pkg/router"
)

// TestAcceptConfidence covers the override-else-tier-threshold rule and the
// inclusive boundary.
func TestAcceptConfidence(t *testing.T) {
	tier := router.TierConfig{ID: "rules", ConfidenceThreshold: 0.85}
	control := router.ExperimentGroup{Name: "control"}
	lenient := router.ExperimentGroup{
		Name:               "lenient",
		ThresholdOverrides: map[string]float64{"rules": 0.60},
	}
	otherTier := router.ExperimentGroup{
		Name:               "other",
		ThresholdOverrides: map[string]float64{"zero_shot": 0.10},
	}

	tests := []struct {
		name       string
		confidence float64
		group      router.ExperimentGroup
		want       bool
	}{
		{"above tier threshold", 0.90, control, true},
		{"exactly at threshold", 0.85, control, true},
		{"below tier threshold", 0.84, control, false},
		{"override admits lower confidence", 0.65, lenient, true},
		{"override is still a bar", 0.59, lenient, false},
		{"override for another tier ignored", 0.84, otherTier, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := router.AcceptConfidence(tier, tt.confidence, tt.group); got != tt.want {
				t.Errorf("AcceptConfidence(%v) = %v, want %v", tt.confidence, got, tt.want)
			}
		})
	}
}

// TestAcceptConfidence_Deterministic: same inputs, same answer, across many
// repetitions.
func TestAcceptConfidence_Deterministic(t *testing.T) {
	tier := router.TierConfig{ID: "rules", ConfidenceThreshold: 0.85}
	group := router.ExperimentGroup{Name: "g", ThresholdOverrides: map[string]float64{"rules": 0.7}}

	first := router.AcceptConfidence(tier, 0.72, group)
	for i := 0; i < 100; i++ {
		if router.AcceptConfidence(tier, 0.72, group) != first {
			t.Fatal("AcceptConfidence is not deterministic")
		}
	}
	if !first {
		t.Error("Expected 0.72 to clear the 0.7 override")
	}
}
