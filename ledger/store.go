/*
store.go - Persistence interface for purchase records

PURPOSE:
  Defines the interface between the reconciliation engine and the
  ledger store. The store is a transactional key-ordered table: one
  row per transaction id, seven named fields, reachable for mutation
  only while holding the Guard.

KEY OPERATIONS:
  Scan:                Ordered full-table read (matching works on this)
  FindByTransactionID: Point read for upsert lookup
  Insert / Update:     Whole-row writes used by the upsert engine
  ReadBinding:         Fresh single-cell read for claim re-validation
  WriteBinding:        Single-cell write committing a claim

RECORD LIFECYCLE CONTRACT:
  - Insert never overwrites; a duplicate transaction id is a bug in
    the caller (the upsert engine looks up first, under the Guard).
  - Update replaces the row for an existing transaction id; the merge
    semantics live in the upsert engine, not the store.
  - No Delete exists. Records are never removed by this engine.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: Production SQLite store
  - ledger/store/memory.go: In-memory store for tests/dev

SEE ALSO:
  - upsert.go: The only producer of Insert/Update
  - binding.go: The only producer of WriteBinding
*/
package ledger

import "context"

// Store is the ledger's persistence collaborator. Mutating methods
// (Insert, Update, WriteBinding) must only be called while holding
// the Guard. Read methods are safe without it.
type Store interface {
	// Scan returns all records in stable insertion order. The matching
	// engine's tie-break depends on this order being deterministic.
	Scan(ctx context.Context) ([]PurchaseRecord, error)

	// FindByTransactionID returns the record for the id, or ErrNotFound.
	FindByTransactionID(ctx context.Context, txID string) (PurchaseRecord, error)

	// Insert appends a new row. The transaction id must not exist yet.
	Insert(ctx context.Context, rec PurchaseRecord) error

	// Update replaces the row for rec.TransactionID, which must exist.
	Update(ctx context.Context, rec PurchaseRecord) error

	// ReadBinding returns the current binding cell for the id, bypassing
	// any snapshot the caller may hold. Used to re-validate a claim
	// precondition after acquiring the Guard.
	ReadBinding(ctx context.Context, txID string) (string, error)

	// WriteBinding sets the binding cell. The caller must have verified
	// the cell is empty under the Guard.
	WriteBinding(ctx context.Context, txID, bindingID string) error
}
