// Package store provides Store implementations.
package store

import (
	"context"
	"sync"

	"github.com/warp/purchase-ledger/ledger"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory keeps records in insertion order, as the matching engine's
// tie-break requires. Safe for concurrent use.
type Memory struct {
	mu      sync.RWMutex
	records []ledger.PurchaseRecord
	index   map[string]int // transaction id -> position in records
}

func NewMemory() *Memory {
	return &Memory{index: make(map[string]int)}
}

// Scan returns a copy of all records in insertion order.
func (m *Memory) Scan(_ context.Context) ([]ledger.PurchaseRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]ledger.PurchaseRecord, len(m.records))
	copy(out, m.records)
	return out, nil
}

func (m *Memory) FindByTransactionID(_ context.Context, txID string) (ledger.PurchaseRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	i, ok := m.index[txID]
	if !ok {
		return ledger.PurchaseRecord{}, ledger.ErrNotFound
	}
	return m.records[i], nil
}

func (m *Memory) Insert(_ context.Context, rec ledger.PurchaseRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.index[rec.TransactionID]; ok {
		return &ledger.ConfigurationError{Op: "insert", Err: errDuplicateInsert(rec.TransactionID)}
	}
	m.index[rec.TransactionID] = len(m.records)
	m.records = append(m.records, rec)
	return nil
}

func (m *Memory) Update(_ context.Context, rec ledger.PurchaseRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i, ok := m.index[rec.TransactionID]
	if !ok {
		return ledger.ErrNotFound
	}
	m.records[i] = rec
	return nil
}

func (m *Memory) ReadBinding(_ context.Context, txID string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	i, ok := m.index[txID]
	if !ok {
		return "", ledger.ErrNotFound
	}
	return m.records[i].BindingID, nil
}

func (m *Memory) WriteBinding(_ context.Context, txID, bindingID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i, ok := m.index[txID]
	if !ok {
		return ledger.ErrNotFound
	}
	m.records[i].BindingID = bindingID
	return nil
}

type errDuplicateInsert string

func (e errDuplicateInsert) Error() string {
	return "duplicate transaction id on insert: " + string(e)
}
