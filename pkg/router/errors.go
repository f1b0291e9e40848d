package router

import (
	"fmt"

	"github.com/FrenchMajesty/adaptive-classifier/pkg/types"
)

// InputError rejects a malformed classification request before any tier runs.
type InputError struct {
	Reason string
}

func (e *InputError) Error() string {
	return "invalid classification request: " + e.Reason
}

// ConfigValidationError rejects a configuration (or patch) at admission time.
// The active configuration is never partially updated.
type ConfigValidationError struct {
	Reason string
}

func (e *ConfigValidationError) Error() string {
	return "invalid routing config: " + e.Reason
}

// TierInvocationError wraps a single tier's classify failure. It is internal
// to the routing loop: the engine converts it into a fallback decision and
// only surfaces it through AllTiersUnavailableError when no tier succeeded.
type TierInvocationError struct {
	TierID string
	Err    error
}

func (e *TierInvocationError) Error() string {
	return fmt.Sprintf("tier %q invocation failed: %v", e.TierID, e.Err)
}

func (e *TierInvocationError) Unwrap() error {
	return e.Err
}

// AllTiersUnavailableError is the terminal error when every allowed tier
// failed. Chain holds the full fallback record of the request.
type AllTiersUnavailableError struct {
	Chain []types.FallbackStep
}

func (e *AllTiersUnavailableError) Error() string {
	return fmt.Sprintf("all %d allowed tiers unavailable", len(e.Chain))
}
