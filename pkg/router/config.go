package router

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/FrenchMajesty/adaptive-classifier/pkg/types"
)

const (
	// DefaultTierTimeoutMs is applied to tiers that don't configure their own
	// invocation timeout.
	DefaultTierTimeoutMs = 2000

	// DefaultHealthCooldownMs is how long a failing tier is skipped before it
	// becomes eligible again.
	DefaultHealthCooldownMs = 30000

	// ControlGroupName is the implicit experiment group for traffic that is
	// not part of any configured group.
	ControlGroupName = "control"
)

// TierConfig describes one classifier tier. Tiers are declared in ascending
// latency order; the declaration order is the fallback order.
type TierConfig struct {
	ID                  string             `yaml:"id"`
	LatencyClass        types.LatencyClass `yaml:"latency_class"`
	AccuracyEstimate    float64            `yaml:"accuracy_estimate"`
	ConfidenceThreshold float64            `yaml:"confidence_threshold"`
	TimeoutMs           int                `yaml:"timeout_ms"`
}

// Timeout returns the per-invocation timeout for this tier.
func (t TierConfig) Timeout() time.Duration {
	return time.Duration(t.TimeoutMs) * time.Millisecond
}

// ExperimentGroup is a named traffic bucket carrying per-tier threshold
// overrides for A/B comparison of routing strategies.
type ExperimentGroup struct {
	Name               string             `yaml:"name"`
	TrafficPercentage  float64            `yaml:"traffic_percentage"`
	ThresholdOverrides map[string]float64 `yaml:"threshold_overrides"`
}

// RoutingConfig is the full routing configuration admitted into the store.
type RoutingConfig struct {
	Tiers              []TierConfig      `yaml:"tiers"`
	ExperimentsEnabled bool              `yaml:"experiments_enabled"`
	Groups             []ExperimentGroup `yaml:"experiment_groups"`
	HealthCooldownMs   int               `yaml:"health_cooldown_ms"`
}

// HealthCooldown returns how long an erroring tier stays marked unhealthy.
func (c RoutingConfig) HealthCooldown() time.Duration {
	return time.Duration(c.HealthCooldownMs) * time.Millisecond
}

// applyDefaults fills in default values for unset config fields
func (c *RoutingConfig) applyDefaults() {
	for i := range c.Tiers {
		if c.Tiers[i].TimeoutMs == 0 {
			c.Tiers[i].TimeoutMs = DefaultTierTimeoutMs
		}
	}
	if c.HealthCooldownMs == 0 {
		c.HealthCooldownMs = DefaultHealthCooldownMs
	}
}

// validate checks every invariant the store enforces before admitting a
// configuration. Returns a ConfigValidationError describing the first
// violation found.
func (c RoutingConfig) validate() error {
	if len(c.Tiers) == 0 {
		return &ConfigValidationError{Reason: "at least one tier is required"}
	}

	seen := make(map[string]bool, len(c.Tiers))
	hasFast := false
	for _, t := range c.Tiers {
		if t.ID == "" {
			return &ConfigValidationError{Reason: "tier id must not be empty"}
		}
		if seen[t.ID] {
			return &ConfigValidationError{Reason: fmt.Sprintf("duplicate tier id %q", t.ID)}
		}
		seen[t.ID] = true

		switch t.LatencyClass {
		case types.LatencyFast:
			hasFast = true
		case types.LatencyModerate, types.LatencySlow:
		default:
			return &ConfigValidationError{Reason: fmt.Sprintf("tier %q has unknown latency class %q", t.ID, t.LatencyClass)}
		}

		if t.ConfidenceThreshold < 0 || t.ConfidenceThreshold > 1 {
			return &ConfigValidationError{Reason: fmt.Sprintf("tier %q confidence threshold %v outside [0,1]", t.ID, t.ConfidenceThreshold)}
		}
		if t.AccuracyEstimate < 0 || t.AccuracyEstimate > 1 {
			return &ConfigValidationError{Reason: fmt.Sprintf("tier %q accuracy estimate %v outside [0,1]", t.ID, t.AccuracyEstimate)}
		}
		if t.TimeoutMs <= 0 {
			return &ConfigValidationError{Reason: fmt.Sprintf("tier %q timeout must be positive", t.ID)}
		}
	}

	// Every budget category must map to a non-empty tier subset, so a fast
	// tier is mandatory.
	if !hasFast {
		return &ConfigValidationError{Reason: "at least one tier with latency class \"fast\" is required"}
	}

	groupNames := make(map[string]bool, len(c.Groups))
	totalPct := 0.0
	for _, g := range c.Groups {
		if g.Name == "" {
			return &ConfigValidationError{Reason: "experiment group name must not be empty"}
		}
		if g.Name == ControlGroupName {
			return &ConfigValidationError{Reason: "group name \"control\" is reserved"}
		}
		if groupNames[g.Name] {
			return &ConfigValidationError{Reason: fmt.Sprintf("duplicate experiment group %q", g.Name)}
		}
		groupNames[g.Name] = true

		if g.TrafficPercentage < 0 {
			return &ConfigValidationError{Reason: fmt.Sprintf("group %q has negative traffic percentage", g.Name)}
		}
		totalPct += g.TrafficPercentage

		for tierID, threshold := range g.ThresholdOverrides {
			if !seen[tierID] {
				return &ConfigValidationError{Reason: fmt.Sprintf("group %q overrides unknown tier %q", g.Name, tierID)}
			}
			if threshold < 0 || threshold > 1 {
				return &ConfigValidationError{Reason: fmt.Sprintf("group %q override for tier %q outside [0,1]", g.Name, tierID)}
			}
		}
	}
	if totalPct > 100 {
		return &ConfigValidationError{Reason: fmt.Sprintf("experiment group percentages sum to %v, must be <= 100", totalPct)}
	}

	if c.HealthCooldownMs <= 0 {
		return &ConfigValidationError{Reason: "health cooldown must be positive"}
	}

	return nil
}

// deepCopy returns a config sharing no mutable state with the receiver.
func (c RoutingConfig) deepCopy() RoutingConfig {
	out := c
	out.Tiers = make([]TierConfig, len(c.Tiers))
	copy(out.Tiers, c.Tiers)
	out.Groups = make([]ExperimentGroup, len(c.Groups))
	for i, g := range c.Groups {
		cp := g
		cp.ThresholdOverrides = make(map[string]float64, len(g.ThresholdOverrides))
		for k, v := range g.ThresholdOverrides {
			cp.ThresholdOverrides[k] = v
		}
		out.Groups[i] = cp
	}
	return out
}

// ConfigSnapshot is an immutable view of the routing configuration. A request
// captures exactly one snapshot and uses it for its whole lifetime, so a
// concurrent Update never partially affects an in-flight decision. Callers
// must not mutate a snapshot.
type ConfigSnapshot struct {
	// Version increases by one on every admitted update.
	Version int64

	Config RoutingConfig
}

// Tier returns the tier config for id, if present.
func (s *ConfigSnapshot) Tier(id string) (TierConfig, bool) {
	for _, t := range s.Config.Tiers {
		if t.ID == id {
			return t, true
		}
	}
	return TierConfig{}, false
}

// Patch is a partial configuration change applied by ConfigStore.Update.
// Nil fields are left unchanged.
type Patch struct {
	// TierThresholds replaces the confidence threshold of the named tiers.
	TierThresholds map[string]float64

	// Groups replaces the whole experiment group set when non-nil.
	Groups []ExperimentGroup

	// ExperimentsEnabled toggles experiment assignment.
	ExperimentsEnabled *bool

	// HealthCooldownMs replaces the unhealthy-tier cooldown.
	HealthCooldownMs *int
}

// ConfigStore holds the active routing configuration behind an atomically
// swappable snapshot. Reads never block; updates are validated, then swap in
// a brand-new snapshot (copy-on-write).
type ConfigStore struct {
	active atomic.Pointer[ConfigSnapshot]

	// mu serializes writers only; readers go through the atomic pointer.
	mu sync.Mutex
}

// NewConfigStore validates cfg and creates a store with it as version 1.
func NewConfigStore(cfg RoutingConfig) (*ConfigStore, error) {
	cfg = cfg.deepCopy()
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	s := &ConfigStore{}
	s.active.Store(&ConfigSnapshot{Version: 1, Config: cfg})
	return s, nil
}

// Get returns the active snapshot. O(1), never blocks.
func (s *ConfigStore) Get() *ConfigSnapshot {
	return s.active.Load()
}

// Update applies patch to a copy of the active configuration, validates the
// result, and atomically swaps it in. On validation failure the active
// snapshot is left untouched and a ConfigValidationError is returned.
func (s *ConfigStore) Update(patch Patch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.active.Load()
	next := cur.Config.deepCopy()

	for tierID, threshold := range patch.TierThresholds {
		found := false
		for i := range next.Tiers {
			if next.Tiers[i].ID == tierID {
				next.Tiers[i].ConfidenceThreshold = threshold
				found = true
				break
			}
		}
		if !found {
			return &ConfigValidationError{Reason: fmt.Sprintf("patch references unknown tier %q", tierID)}
		}
	}
	if patch.Groups != nil {
		next.Groups = patch.Groups
		next = next.deepCopy()
	}
	if patch.ExperimentsEnabled != nil {
		next.ExperimentsEnabled = *patch.ExperimentsEnabled
	}
	if patch.HealthCooldownMs != nil {
		next.HealthCooldownMs = *patch.HealthCooldownMs
	}

	if err := next.validate(); err != nil {
		return err
	}

	s.active.Store(&ConfigSnapshot{Version: cur.Version + 1, Config: next})
	return nil
}

// LoadConfigFile reads a RoutingConfig from a YAML file.
func LoadConfigFile(path string) (RoutingConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RoutingConfig{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg RoutingConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return RoutingConfig{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// DefaultConfig returns the stock three-tier configuration: a deterministic
// rule matcher, a general zero-shot model, and a fine-tuned model.
func DefaultConfig() RoutingConfig {
	return RoutingConfig{
		Tiers: []TierConfig{
			{
				ID:                  "rules",
				LatencyClass:        types.LatencyFast,
				AccuracyEstimate:    0.70,
				ConfidenceThreshold: 0.85,
				TimeoutMs:           250,
			},
			{
				ID:                  "zero_shot",
				LatencyClass:        types.LatencyModerate,
				AccuracyEstimate:    0.85,
				ConfidenceThreshold: 0.70,
				TimeoutMs:           3000,
			},
			{
				ID:                  "fine_tuned",
				LatencyClass:        types.LatencySlow,
				AccuracyEstimate:    0.93,
				ConfidenceThreshold: 0.55,
				TimeoutMs:           8000,
			},
		},
		HealthCooldownMs: DefaultHealthCooldownMs,
	}
}
