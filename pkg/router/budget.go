package router

import "github.com/FrenchMajesty/adaptive-classifier/pkg/types"

// budgetClasses maps each latency budget to the tier latency classes it may
// run. The sets are nested, so everything allowed under critical is allowed
// under standard, and everything under standard is allowed under relaxed.
var budgetClasses = map[types.LatencyBudget]map[types.LatencyClass]bool{
	types.BudgetCritical: {
		types.LatencyFast: true,
	},
	types.BudgetStandard: {
		types.LatencyFast:     true,
		types.LatencyModerate: true,
	},
	types.BudgetRelaxed: {
		types.LatencyFast:     true,
		types.LatencyModerate: true,
		types.LatencySlow:     true,
	},
}

// BudgetPlanner maps a latency budget category to the ordered subset of
// configured tiers eligible to run. The mapping is driven by each tier's
// latency class, not a tier count, so adding a fourth tier is purely a
// config change.
type BudgetPlanner struct{}

// Allowed returns the tiers eligible under budget, preserving fallback order.
func (BudgetPlanner) Allowed(budget types.LatencyBudget, snap *ConfigSnapshot) []TierConfig {
	classes := budgetClasses[budget]

	allowed := make([]TierConfig, 0, len(snap.Config.Tiers))
	for _, t := range snap.Config.Tiers {
		if classes[t.LatencyClass] {
			allowed = append(allowed, t)
		}
	}
	return allowed
}
