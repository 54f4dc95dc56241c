/*
errors.go - Centralized error types for the reconciliation engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Boundary packages (api, gateway) wrap these with transport context.

ERROR CATEGORIES:
  1. Validation errors - malformed/missing required input, non-retryable
  2. Contention errors - guard not acquired in time, retryable
  3. Configuration errors - store unreachable/misshapen, fatal

  Decision outcomes (not_found, wrong_plugin, bound_to_other, ...) are
  NOT errors. They are valid business results carried on Decision.

USAGE:
  if errors.Is(err, ledger.ErrContention) {
      // safe to retry; the upstream sender will redeliver
  }

SEE ALSO:
  - guard.go: Produces ErrContention
  - upsert.go: Produces ErrValidation
  - engine.go: Converts errors at the boundary
*/
package ledger

import (
	"errors"
	"fmt"
	"time"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is returned for malformed or missing required input,
	// e.g. an upsert fact without a transaction id. Non-retryable; no
	// partial write is ever attempted.
	ErrValidation = errors.New("validation failed")

	// ErrContention is returned when the mutation guard could not be
	// acquired within its bounded wait. Retryable; at-least-once senders
	// should treat it as "not yet processed, will be redelivered".
	ErrContention = errors.New("store contention: guard not acquired")

	// ErrConfiguration is returned for structural problems such as an
	// unreachable store or missing columns. Fatal; requires operator
	// intervention, never retried automatically.
	ErrConfiguration = errors.New("store configuration error")

	// ErrNotFound is returned by point reads for an absent transaction id.
	ErrNotFound = errors.New("record not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError names the field that failed validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// ContentionError records how long the caller waited for the guard.
type ContentionError struct {
	Waited time.Duration
}

func (e *ContentionError) Error() string {
	return fmt.Sprintf("guard not acquired after %s", e.Waited)
}

func (e *ContentionError) Unwrap() error { return ErrContention }

// ConfigurationError wraps a store-level structural failure.
type ConfigurationError struct {
	Op  string
	Err error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return ErrConfiguration }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the operation might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrContention)
}

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation)
}
