package router

import (
	"sync"
	"time"

	"github.com/FrenchMajesty/adaptive-classifier/pkg/types"
)

// ModelTier is the registry's static view of one classifier tier.
type ModelTier struct {
	ID               string
	OrderIndex       int
	LatencyClass     types.LatencyClass
	AccuracyEstimate float64
}

// TierRegistry tracks the ordered tier set and its live health state. Health
// is local to this process: across a fleet of replicas each instance learns
// about a failing backend on its own, which is intentional (no cross-process
// coordination).
type TierRegistry struct {
	tiers []ModelTier

	mu sync.RWMutex
	// coolingUntil maps tier id to the instant its cooldown expires.
	// Comparisons use the monotonic clock reading carried by time.Time.
	coolingUntil map[string]time.Time
}

// NewTierRegistry builds a registry from the boot configuration. Tiers are
// never added or removed afterwards, only marked healthy or unhealthy.
func NewTierRegistry(tiers []TierConfig) *TierRegistry {
	r := &TierRegistry{
		tiers:        make([]ModelTier, len(tiers)),
		coolingUntil: make(map[string]time.Time, len(tiers)),
	}
	for i, t := range tiers {
		r.tiers[i] = ModelTier{
			ID:               t.ID,
			OrderIndex:       i,
			LatencyClass:     t.LatencyClass,
			AccuracyEstimate: t.AccuracyEstimate,
		}
	}
	return r
}

// List returns the tiers in fallback order.
func (r *TierRegistry) List() []ModelTier {
	out := make([]ModelTier, len(r.tiers))
	copy(out, r.tiers)
	return out
}

// MarkUnhealthy puts the tier into cooldown for the given window. Marking an
// already-cooling tier extends the window if the new expiry is later.
func (r *TierRegistry) MarkUnhealthy(tierID string, cooldown time.Duration) {
	until := time.Now().Add(cooldown)

	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.coolingUntil[tierID]; !ok || until.After(cur) {
		r.coolingUntil[tierID] = until
	}
}

// IsHealthy reports whether the tier may be invoked right now. Unknown tier
// ids are healthy by definition.
func (r *TierRegistry) IsHealthy(tierID string) bool {
	r.mu.RLock()
	until, ok := r.coolingUntil[tierID]
	r.mu.RUnlock()

	return !ok || time.Now().After(until)
}
