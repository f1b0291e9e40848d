package types

import "time"

// LatencyBudget is the caller-declared ceiling restricting which tiers may
// be attempted for a request.
type LatencyBudget string

const (
	BudgetCritical LatencyBudget = "critical"
	BudgetStandard LatencyBudget = "standard"
	BudgetRelaxed  LatencyBudget = "relaxed"
)

// Valid reports whether b is one of the known budget categories.
func (b LatencyBudget) Valid() bool {
	switch b {
	case BudgetCritical, BudgetStandard, BudgetRelaxed:
		return true
	}
	return false
}

// LatencyClass describes how expensive a tier typically is. Budgets map onto
// classes, so adding a tier never requires touching the planner.
type LatencyClass string

const (
	LatencyFast     LatencyClass = "fast"
	LatencyModerate LatencyClass = "moderate"
	LatencySlow     LatencyClass = "slow"
)

// ClassificationRequest is one classification call. Ephemeral, created per call.
type ClassificationRequest struct {
	// Text is the content to classify. Must be non-empty.
	Text string

	// Budget limits which tiers may run. Empty means BudgetStandard.
	Budget LatencyBudget

	// SessionID is an optional stable caller identity used for experiment
	// bucketing. Requests without one always land in the control group.
	SessionID string
}

// TierOutcome is the per-tier entry type of a fallback chain.
type TierOutcome string

const (
	OutcomeSuccess          TierOutcome = "success"
	OutcomeError            TierOutcome = "error"
	OutcomeSkippedUnhealthy TierOutcome = "skipped_unhealthy"
)

// FallbackStep records one tier attempt during routing.
type FallbackStep struct {
	TierID  string      `json:"tier_id"`
	Outcome TierOutcome `json:"outcome"`
}

// TierResult is what a single classifier tier returns for a text.
type TierResult struct {
	// Label is the classification category assigned to the text
	Label string

	// Confidence is the tier's score for the label, in [0,1]
	Confidence float64

	// Latency is the time the tier took to answer
	Latency time.Duration
}

// VectorMatch represents a single match from a vector search
type VectorMatch struct {
	ID       string
	Score    float32
	Metadata map[string]any
}

// ClassificationResult is the routed outcome the caller receives.
type ClassificationResult struct {
	// RequestID uniquely identifies this routing decision in logs and metrics
	RequestID string

	// Label is the classification category assigned to the text
	Label string

	// Confidence is the accepted tier's score for the label
	Confidence float64

	// TierUsed is the id of the tier whose result was accepted
	TierUsed string

	// ExperimentGroup is the name of the group this request was bucketed into
	ExperimentGroup string

	// Latency is the total time the routing decision took
	Latency time.Duration

	// FallbackChain lists every tier attempted, in order. Never empty on a
	// returned result; its last success entry equals TierUsed.
	FallbackChain []FallbackStep
}
