/*
upsert.go - Idempotent, non-destructive reconciliation of purchase facts

PURPOSE:
  Reconciles one normalized purchase fact into the ledger store.
  Keyed by transaction id: the first fact for an id creates the row,
  every later fact merges into it. Merge is additive - a field is
  only overwritten by a non-empty incoming value, so a sparse late
  event never wipes data a richer earlier event captured.

WHY ADDITIVE MERGE?
  Purchase facts arrive from multiple event shapes with different
  completeness. A checkout event may carry the client name but no
  invoice code; the invoice-paid event carries the code but no name.
  Additive merge guarantees monotonic enrichment of the record.

ALWAYS-REFRESHED FIELDS:
  transaction_id and paid_at are written on every upsert regardless
  of emptiness. paid_at tracks the latest fact's timestamp.

CONCURRENCY:
  The lookup-then-write pair runs entirely under the Guard, so the
  uniqueness invariant (never two rows per transaction id) holds even
  with concurrent deliveries of the same event.

SEE ALSO:
  - store.go: Insert/Update contract
  - guard.go: Bounded-wait mutual exclusion
*/
package ledger

import (
	"context"
	"errors"
	"strings"
)

// =============================================================================
// UPSERT ENGINE
// =============================================================================

// Upserter reconciles purchase facts into the store.
type Upserter struct {
	store Store
	guard *Guard
}

// NewUpserter creates an upsert engine over the given store and guard.
func NewUpserter(store Store, guard *Guard) *Upserter {
	return &Upserter{store: store, guard: guard}
}

// Upsert reconciles one fact. It creates the row if the transaction id
// is unseen, otherwise merges additively into the existing row.
// Exactly one row is created or mutated per call.
func (u *Upserter) Upsert(ctx context.Context, fact PurchaseFact) (UpsertResult, error) {
	txID := strings.TrimSpace(fact.TransactionID)
	if txID == "" {
		return UpsertResult{}, &ValidationError{
			Field:   "transaction_id",
			Message: "must not be empty",
		}
	}
	fact.TransactionID = txID

	if err := u.guard.Acquire(ctx); err != nil {
		return UpsertResult{}, err
	}
	defer u.guard.Release()

	existing, err := u.store.FindByTransactionID(ctx, txID)
	switch {
	case err == nil:
		merged := mergeFact(existing, fact)
		if err := u.store.Update(ctx, merged); err != nil {
			return UpsertResult{}, err
		}
		return UpsertResult{Mode: UpsertUpdated, TransactionID: txID}, nil

	case errors.Is(err, ErrNotFound):
		rec := PurchaseRecord{
			TransactionID: txID,
			AccessCode:    strings.TrimSpace(fact.AccessCode),
			ClientEmail:   strings.TrimSpace(fact.ClientEmail),
			ClientName:    strings.TrimSpace(fact.ClientName),
			PluginName:    strings.TrimSpace(fact.PluginName),
			PaidAt:        fact.PaidAt,
			BindingID:     strings.TrimSpace(fact.BindingID),
		}
		if err := u.store.Insert(ctx, rec); err != nil {
			return UpsertResult{}, err
		}
		return UpsertResult{Mode: UpsertInserted, TransactionID: txID}, nil

	default:
		return UpsertResult{}, err
	}
}

// mergeFact applies the additive-merge rule: every field except the
// always-refreshed pair (transaction_id, paid_at) keeps its stored
// value unless the incoming value is non-empty after trimming.
func mergeFact(rec PurchaseRecord, fact PurchaseFact) PurchaseRecord {
	rec.TransactionID = fact.TransactionID
	rec.PaidAt = fact.PaidAt

	if v := strings.TrimSpace(fact.AccessCode); v != "" {
		rec.AccessCode = v
	}
	if v := strings.TrimSpace(fact.ClientEmail); v != "" {
		rec.ClientEmail = v
	}
	if v := strings.TrimSpace(fact.ClientName); v != "" {
		rec.ClientName = v
	}
	if v := strings.TrimSpace(fact.PluginName); v != "" {
		rec.PluginName = v
	}
	if v := strings.TrimSpace(fact.BindingID); v != "" && rec.BindingID == "" {
		rec.BindingID = v
	}
	return rec
}
