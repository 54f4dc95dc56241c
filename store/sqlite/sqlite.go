/*
Package sqlite provides a SQLite-backed implementation of the ledger store.

PURPOSE:
  Implements ledger.Store using SQLite. One table, one row per
  transaction id, seven named columns. In production the same patterns
  apply to PostgreSQL - only minor SQL dialect differences.

TABLE:
  purchases: the durable purchase ledger. No DELETE path exists;
  records are created by upsert and enriched forever after.

INDEXES:
  The engine's contract is linear-scan semantics; these indexes are a
  pure performance optimization and change no observable behavior:
  - purchases.transaction_id is the PRIMARY KEY (upsert point reads)
  - idx_purchases_email_code speeds verification scans

ORDERING:
  Scan returns rows ordered by rowid, i.e. insertion order. The
  matching engine's tie-break depends on this being stable.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging):
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

CONCURRENCY:
  Uses sync.RWMutex for in-process thread-safety. Cross-operation
  atomicity (lookup-then-write) is the ledger Guard's job, not ours.

USAGE:
  store, err := sqlite.New("./data/purchases.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()
  engine := ledger.NewEngine(store, ledger.Config{})

SEE ALSO:
  - ledger/store.go: Interface definition
  - ledger/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/purchase-ledger/ledger"
)

// Store implements ledger.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, &ledger.ConfigurationError{Op: "open", Err: err}
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, &ledger.ConfigurationError{Op: "migrate", Err: err}
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Purchases (one row per transaction id, never deleted)
	CREATE TABLE IF NOT EXISTS purchases (
		transaction_id TEXT PRIMARY KEY,
		access_code    TEXT NOT NULL DEFAULT '',
		client_email   TEXT NOT NULL DEFAULT '',
		client_name    TEXT NOT NULL DEFAULT '',
		plugin_name    TEXT NOT NULL DEFAULT '',
		paid_at        TEXT NOT NULL DEFAULT '',
		binding_id     TEXT NOT NULL DEFAULT ''
	);

	-- Performance only; scan semantics are unchanged
	CREATE INDEX IF NOT EXISTS idx_purchases_email_code
		ON purchases(client_email, access_code);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// LEDGER STORE (ledger.Store interface)
// =============================================================================

// Scan returns all purchases in insertion (rowid) order.
func (s *Store) Scan(ctx context.Context) ([]ledger.PurchaseRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT transaction_id, access_code, client_email, client_name,
		       plugin_name, paid_at, binding_id
		FROM purchases
		ORDER BY rowid ASC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, &ledger.ConfigurationError{Op: "scan", Err: err}
	}
	defer rows.Close()

	var out []ledger.PurchaseRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, &ledger.ConfigurationError{Op: "scan", Err: err}
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// FindByTransactionID returns the record for the id, or ledger.ErrNotFound.
func (s *Store) FindByTransactionID(ctx context.Context, txID string) (ledger.PurchaseRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT transaction_id, access_code, client_email, client_name,
		       plugin_name, paid_at, binding_id
		FROM purchases
		WHERE transaction_id = ?
	`

	rec, err := scanRecord(s.db.QueryRowContext(ctx, query, txID))
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.PurchaseRecord{}, ledger.ErrNotFound
	}
	if err != nil {
		return ledger.PurchaseRecord{}, &ledger.ConfigurationError{Op: "find", Err: err}
	}
	return rec, nil
}

// Insert appends a new row. The transaction id must not exist yet.
func (s *Store) Insert(ctx context.Context, rec ledger.PurchaseRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO purchases
		(transaction_id, access_code, client_email, client_name, plugin_name, paid_at, binding_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		rec.TransactionID,
		rec.AccessCode,
		rec.ClientEmail,
		rec.ClientName,
		rec.PluginName,
		formatTime(rec.PaidAt),
		rec.BindingID,
	)
	if err != nil {
		return &ledger.ConfigurationError{Op: "insert", Err: err}
	}
	return nil
}

// Update replaces the row for rec.TransactionID.
func (s *Store) Update(ctx context.Context, rec ledger.PurchaseRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		UPDATE purchases
		SET access_code = ?, client_email = ?, client_name = ?,
		    plugin_name = ?, paid_at = ?, binding_id = ?
		WHERE transaction_id = ?
	`

	res, err := s.db.ExecContext(ctx, query,
		rec.AccessCode,
		rec.ClientEmail,
		rec.ClientName,
		rec.PluginName,
		formatTime(rec.PaidAt),
		rec.BindingID,
		rec.TransactionID,
	)
	if err != nil {
		return &ledger.ConfigurationError{Op: "update", Err: err}
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ledger.ErrNotFound
	}
	return nil
}

// ReadBinding returns the current binding cell for the id.
func (s *Store) ReadBinding(ctx context.Context, txID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var binding string
	err := s.db.QueryRowContext(ctx,
		`SELECT binding_id FROM purchases WHERE transaction_id = ?`, txID,
	).Scan(&binding)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ledger.ErrNotFound
	}
	if err != nil {
		return "", &ledger.ConfigurationError{Op: "read binding", Err: err}
	}
	return binding, nil
}

// WriteBinding sets the binding cell for the id.
func (s *Store) WriteBinding(ctx context.Context, txID, bindingID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE purchases SET binding_id = ? WHERE transaction_id = ?`, bindingID, txID)
	if err != nil {
		return &ledger.ConfigurationError{Op: "write binding", Err: err}
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ledger.ErrNotFound
	}
	return nil
}

// =============================================================================
// Helper functions
// =============================================================================

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (ledger.PurchaseRecord, error) {
	var rec ledger.PurchaseRecord
	var paidAt string
	err := row.Scan(
		&rec.TransactionID,
		&rec.AccessCode,
		&rec.ClientEmail,
		&rec.ClientName,
		&rec.PluginName,
		&paidAt,
		&rec.BindingID,
	)
	if err != nil {
		return ledger.PurchaseRecord{}, err
	}
	rec.PaidAt = parseTime(paidAt)
	return rec, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
