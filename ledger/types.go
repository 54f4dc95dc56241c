/*
Package ledger provides the purchase reconciliation and binding engine.

PURPOSE:
  This package contains the core types and algorithms for reconciling
  payment-gateway purchase facts into a durable ledger and answering
  "is this purchase valid, and can it be claimed by this user" queries
  safely under concurrent access.

KEY CONCEPTS IN THIS FILE (types.go):
  - PurchaseRecord: One row in the ledger, keyed by transaction id
  - PurchaseFact: A normalized inbound fact from the payment gateway
  - Query: A verification request (email + access code + intent)
  - Decision: The outcome surfaced back to the verification client

DESIGN PRINCIPLES:
  1. Non-destructive merge: facts enrich a record, never regress it
  2. Write-once binding: a record is claimed at most once, forever
  3. Determinism: identical store state + query = identical decision
  4. Store-agnostic: all persistence goes through the Store interface

USAGE:
  fact := ledger.PurchaseFact{
      TransactionID: "pi_123",
      ClientEmail:   "a@x.com",
      AccessCode:    "INV-9",
  }
  res, err := engine.Ingest(ctx, fact)

SEE ALSO:
  - upsert.go: Reconciliation of facts into records
  - match.go: Candidate selection and decision derivation
  - binding.go: The claim state machine
  - store.go: Persistence interface
*/
package ledger

import (
	"strings"
	"time"
)

// =============================================================================
// PURCHASE RECORD - One row in the ledger store
// =============================================================================

// PurchaseRecord is one reconciled purchase. TransactionID is unique
// across the store and immutable once set; BindingID transitions only
// from empty to a concrete value and is never rewritten afterward.
type PurchaseRecord struct {
	TransactionID string
	AccessCode    string
	ClientEmail   string
	ClientName    string
	PluginName    string
	PaidAt        time.Time
	BindingID     string
}

// Bound reports whether the record has been claimed.
func (r PurchaseRecord) Bound() bool { return r.BindingID != "" }

// =============================================================================
// PURCHASE FACT - Normalized inbound event
// =============================================================================

// PurchaseFact is a normalized purchase event from the gateway feed.
// Facts may arrive duplicated, out of order, and with varying
// completeness; only TransactionID is required.
type PurchaseFact struct {
	TransactionID string
	AccessCode    string
	ClientEmail   string
	ClientName    string
	PluginName    string
	PaidAt        time.Time
	BindingID     string
}

// =============================================================================
// VERIFICATION QUERY
// =============================================================================

// Query is one verification request.
type Query struct {
	Email        string
	AccessCode   string
	PluginFilter string // optional; normalized plugin-name equality
	Candidate    string // optional; the user id asking to claim
	ExplicitBind bool   // caller explicitly asked to bind
	BypassCache  bool   // caller opted out of the read cache
}

// =============================================================================
// DECISION - Outcome surfaced to the verification client
// =============================================================================

// Action enumerates successful binding outcomes.
type Action string

const (
	ActionAutoBound    Action = "auto_bound"    // candidate supplied, bound implicitly
	ActionBound        Action = "bound"         // candidate supplied, bind requested
	ActionAlreadyBound Action = "already_bound" // idempotent replay of a prior claim
)

// Reason enumerates why a query did not validate.
type Reason string

const (
	ReasonNotFound            Reason = "not_found"
	ReasonWrongPlugin         Reason = "wrong_plugin"
	ReasonBoundToOther        Reason = "bound_to_other"
	ReasonBoundRequiresUserID Reason = "bound_requires_user_id"
)

// Decision is a business result, never an error. NotFound, WrongPlugin
// and BoundToOther are valid outcomes of a well-formed query.
type Decision struct {
	Valid       bool
	Bound       bool
	ProjectName string // display label (client name) of the matched record
	PluginFound string // stored plugin name, reported on wrong_plugin
	Action      Action
	Reason      Reason
}

// Mutating reports whether resolving this decision wrote to the store.
func (d Decision) Mutating() bool {
	return d.Action == ActionAutoBound || d.Action == ActionBound
}

// =============================================================================
// UPSERT RESULT
// =============================================================================

// UpsertMode distinguishes a fresh row from a merged one.
type UpsertMode string

const (
	UpsertInserted UpsertMode = "inserted"
	UpsertUpdated  UpsertMode = "updated"
)

// UpsertResult reports the outcome of reconciling one fact.
type UpsertResult struct {
	Mode          UpsertMode
	TransactionID string
}

// =============================================================================
// NORMALIZATION HELPERS
// =============================================================================

// NormalizeEmail trims and lowercases for case-insensitive comparison.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizePlugin lowercases and strips non-alphanumerics so that
// "Grid Pro" and "grid-pro" compare equal when used as a filter.
func NormalizePlugin(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
