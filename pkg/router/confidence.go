package router

// EffectiveThreshold returns the confidence bar a tier's result must clear
// for the given group: the group's override when present, else the tier's
// own configured threshold.
func EffectiveThreshold(tier TierConfig, group ExperimentGroup) float64 {
	if override, ok := group.ThresholdOverrides[tier.ID]; ok {
		return override
	}
	return tier.ConfidenceThreshold
}

// AcceptConfidence decides whether a tier's result is good enough to stop
// routing. Pure function of its inputs: no side effects, no I/O.
func AcceptConfidence(tier TierConfig, confidence float64, group ExperimentGroup) bool {
	return confidence >= EffectiveThreshold(tier, group)
}
