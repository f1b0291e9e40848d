package router

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/FrenchMajesty/adaptive-classifier/pkg/types"
)

// TierClassifier is the capability interface every classifier tier
// implements. The engine is fully agnostic to a tier's internals; the
// per-tier timeout arrives through the context deadline.
type TierClassifier interface {
	Classify(ctx context.Context, text string) (*types.TierResult, error)
}

// EngineConfig wires an Engine's collaborators. Classifiers is required and
// must cover every configured tier id; the rest default sensibly.
type EngineConfig struct {
	// Store holds the live routing configuration. Required.
	Store *ConfigStore

	// Classifiers maps tier ids to their implementations. Required.
	Classifiers map[string]TierClassifier

	// Registry tracks tier health. If nil, one is built from the store's
	// boot configuration.
	Registry *TierRegistry

	// Metrics receives per-request outcomes. If nil, a fresh aggregator is
	// created.
	Metrics *Aggregator

	// Logger receives tier failures and swallowed side-effect errors.
	// If nil, slog.Default() is used.
	Logger *slog.Logger
}

// Engine is the routing decision engine: per request it walks the allowed
// tiers in ascending latency order, escalating on low confidence or failure,
// and returns exactly one result or one terminal error.
type Engine struct {
	store       *ConfigStore
	registry    *TierRegistry
	assigner    ExperimentAssigner
	planner     BudgetPlanner
	metrics     *Aggregator
	classifiers map[string]TierClassifier
	logger      *slog.Logger
}

// NewEngine creates a routing engine from cfg.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("Store is required")
	}
	if len(cfg.Classifiers) == 0 {
		return nil, fmt.Errorf("Classifiers is required")
	}

	boot := cfg.Store.Get()
	for _, t := range boot.Config.Tiers {
		if _, ok := cfg.Classifiers[t.ID]; !ok {
			return nil, fmt.Errorf("no classifier registered for tier %q", t.ID)
		}
	}

	registry := cfg.Registry
	if registry == nil {
		registry = NewTierRegistry(boot.Config.Tiers)
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = NewAggregator()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{
		store:       cfg.Store,
		registry:    registry,
		metrics:     metrics,
		classifiers: cfg.Classifiers,
		logger:      logger,
	}, nil
}

// Registry exposes tier health state, e.g. for an admin surface.
func (e *Engine) Registry() *TierRegistry {
	return e.registry
}

// Metrics exposes the outcome aggregator for snapshotting and reset.
func (e *Engine) Metrics() *Aggregator {
	return e.metrics
}

// Route classifies req.Text through the cheapest tier whose result clears
// its confidence bar.
//
// The walk is a plain loop over the allowed tiers: unhealthy tiers are
// skipped, a failing tier is marked unhealthy for the configured cooldown
// and the next tier is tried (no same-tier retries at this layer), and the
// first accepted result wins. A tier result rejected on confidence is still
// kept as a candidate, so if every later tier errors the caller gets the
// best definitive answer instead of a spurious unavailability error. Only
// when no tier succeeded at all does Route return AllTiersUnavailableError.
func (e *Engine) Route(ctx context.Context, req types.ClassificationRequest) (*types.ClassificationResult, error) {
	start := time.Now()

	if strings.TrimSpace(req.Text) == "" {
		return nil, &InputError{Reason: "text must not be empty"}
	}
	budget := req.Budget
	if budget == "" {
		budget = types.BudgetStandard
	}
	if !budget.Valid() {
		return nil, &InputError{Reason: fmt.Sprintf("unknown latency budget %q", budget)}
	}

	// One snapshot per request: a concurrent config update never affects a
	// decision already in flight.
	snap := e.store.Get()
	group := e.assigner.Assign(req.SessionID, snap)
	allowed := e.planner.Allowed(budget, snap)

	chain := make([]types.FallbackStep, 0, len(allowed))
	attempts := make([]TierAttempt, 0, len(allowed))

	// Candidate result from a tier that succeeded below its confidence bar.
	var candidate *types.TierResult
	var candidateTier string

	for _, tier := range allowed {
		// Cancellation is observed between tiers; a classify call already
		// issued ran to completion under its own timeout.
		if err := ctx.Err(); err != nil {
			e.record(group.Name, "", 0, time.Since(start), attempts, true)
			return nil, fmt.Errorf("routing abandoned by caller: %w", err)
		}

		if !e.registry.IsHealthy(tier.ID) {
			e.logger.Debug("skipping unhealthy tier", "tier", tier.ID)
			chain = append(chain, types.FallbackStep{TierID: tier.ID, Outcome: types.OutcomeSkippedUnhealthy})
			attempts = append(attempts, TierAttempt{TierID: tier.ID, Outcome: types.OutcomeSkippedUnhealthy})
			continue
		}

		res, elapsed, err := e.invokeTier(ctx, tier, req.Text)
		if err != nil {
			cooldown := snap.Config.HealthCooldown()
			e.registry.MarkUnhealthy(tier.ID, cooldown)
			e.logger.Warn("tier invocation failed, marked unhealthy",
				"tier", tier.ID, "cooldown", cooldown, "error", err)
			chain = append(chain, types.FallbackStep{TierID: tier.ID, Outcome: types.OutcomeError})
			attempts = append(attempts, TierAttempt{TierID: tier.ID, Outcome: types.OutcomeError, Latency: elapsed})
			continue
		}

		chain = append(chain, types.FallbackStep{TierID: tier.ID, Outcome: types.OutcomeSuccess})
		attempts = append(attempts, TierAttempt{TierID: tier.ID, Outcome: types.OutcomeSuccess, Latency: elapsed})

		if AcceptConfidence(tier, res.Confidence, group) {
			result := e.buildResult(res, tier.ID, group.Name, chain, start)
			e.record(group.Name, tier.ID, res.Confidence, result.Latency, attempts, false)
			return result, nil
		}

		// Rejected on confidence: escalate, but remember the answer in case
		// nothing better comes back.
		candidate = res
		candidateTier = tier.ID
	}

	if candidate != nil {
		result := e.buildResult(candidate, candidateTier, group.Name, chain, start)
		e.record(group.Name, candidateTier, candidate.Confidence, result.Latency, attempts, false)
		return result, nil
	}

	e.record(group.Name, "", 0, time.Since(start), attempts, true)
	return nil, &AllTiersUnavailableError{Chain: chain}
}

// invokeTier runs one classify call under the tier's own timeout. The parent
// context's deadline and cancellation are deliberately not propagated: an
// abandoned caller must not abort a backend mid-operation, so the call runs
// to completion and the loop discards its result afterwards if needed.
func (e *Engine) invokeTier(ctx context.Context, tier TierConfig, text string) (*types.TierResult, time.Duration, error) {
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), tier.Timeout())
	defer cancel()

	start := time.Now()
	res, err := e.classifiers[tier.ID].Classify(callCtx, text)
	elapsed := time.Since(start)

	if err != nil {
		return nil, elapsed, &TierInvocationError{TierID: tier.ID, Err: err}
	}
	if res == nil {
		return nil, elapsed, &TierInvocationError{TierID: tier.ID, Err: fmt.Errorf("classifier returned no result")}
	}
	if res.Latency == 0 {
		res.Latency = elapsed
	}
	return res, elapsed, nil
}

func (e *Engine) buildResult(res *types.TierResult, tierID, groupName string, chain []types.FallbackStep, start time.Time) *types.ClassificationResult {
	return &types.ClassificationResult{
		RequestID:       uuid.New().String(),
		Label:           res.Label,
		Confidence:      res.Confidence,
		TierUsed:        tierID,
		ExperimentGroup: groupName,
		Latency:         time.Since(start),
		FallbackChain:   chain,
	}
}

// record reports the outcome to the aggregator. Best-effort: a failure here
// is logged and never affects what the caller receives.
func (e *Engine) record(group, tierUsed string, confidence float64, latency time.Duration, attempts []TierAttempt, failed bool) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("metrics recording failed", "panic", r)
		}
	}()

	e.metrics.Record(Outcome{
		Group:      group,
		TierUsed:   tierUsed,
		Confidence: confidence,
		Latency:    latency,
		Attempts:   attempts,
		Failed:     failed,
	})
}
