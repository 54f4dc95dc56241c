/*
binding.go - The claim state machine

PURPOSE:
  Governs the allowed transitions of a record's binding cell and
  commits at most one claim per record. States per record:

    Unbound ── claim(id) ──> Bound(id)          writes, reports intent action
    Bound(id) ── claim(id) ──> Bound(id)        no write, already_bound
    Bound(id) ── claim(id2) ──> Bound(id)       no write, bound_to_other

  No transition removes a binding. Bound(id) is terminal in practice.

RACE CLOSURE:
  The matching engine selects candidates without the guard, so two
  concurrent requests can both pick the same unbound record. Claim
  therefore re-reads the binding cell AFTER acquiring the guard and
  re-validates that it is still empty before writing. The loser of
  the race observes the winner's id on the fresh read and resolves
  to already_bound or bound_to_other without writing.

SEE ALSO:
  - match.go: Proposes claims (NeedsBind)
  - guard.go: Bounded-wait mutual exclusion
*/
package ledger

import "context"

// =============================================================================
// BINDER
// =============================================================================

// Binder commits claim transitions under the guard.
type Binder struct {
	store Store
	guard *Guard
}

// NewBinder creates a binding state machine over the given store and guard.
func NewBinder(store Store, guard *Guard) *Binder {
	return &Binder{store: store, guard: guard}
}

// Claim attempts to bind the record to candidate. intent is the action
// reported on a successful transition (ActionBound or ActionAutoBound).
// The returned pair is (committed action, bound flag is implied true).
func (b *Binder) Claim(ctx context.Context, txID, candidate string, intent Action) (Decision, error) {
	if candidate == "" {
		return Decision{}, &ValidationError{Field: "binding_id", Message: "must not be empty"}
	}

	if err := b.guard.Acquire(ctx); err != nil {
		return Decision{}, err
	}
	defer b.guard.Release()

	// Fresh read of the cell: the unguarded match may be stale.
	current, err := b.store.ReadBinding(ctx, txID)
	if err != nil {
		return Decision{}, err
	}

	switch current {
	case "":
		if err := b.store.WriteBinding(ctx, txID, candidate); err != nil {
			return Decision{}, err
		}
		return Decision{Valid: true, Bound: true, Action: intent}, nil

	case candidate:
		// Idempotent replay; storage untouched.
		return Decision{Valid: true, Bound: true, Action: ActionAlreadyBound}, nil

	default:
		return Decision{Valid: false, Bound: true, Reason: ReasonBoundToOther}, nil
	}
}
