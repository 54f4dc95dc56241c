package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/purchase-ledger/ledger"
	memstore "github.com/warp/purchase-ledger/ledger/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestUpserter(t *testing.T) (*ledger.Upserter, *memstore.Memory) {
	t.Helper()
	store := memstore.NewMemory()
	return ledger.NewUpserter(store, ledger.NewGuard(time.Second)), store
}

func fullFact(txID string) ledger.PurchaseFact {
	return ledger.PurchaseFact{
		TransactionID: txID,
		AccessCode:    "INV-9",
		ClientEmail:   "a@x.com",
		ClientName:    "Ada Lovelace",
		PluginName:    "Grid",
		PaidAt:        time.Date(2026, time.January, 2, 3, 4, 5, 0, time.UTC),
	}
}

// =============================================================================
// IDEMPOTENCY AND UNIQUENESS
// =============================================================================

func TestUpsert_SameFactTwice_OneRow(t *testing.T) {
	// GIVEN: A fact already reconciled
	// WHEN: The identical fact is delivered again (at-least-once feed)
	// THEN: Still one row, identical fields, second call reports Updated

	upserter, store := newTestUpserter(t)
	ctx := context.Background()

	res1, err := upserter.Upsert(ctx, fullFact("pi_1"))
	require.NoError(t, err)
	assert.Equal(t, ledger.UpsertInserted, res1.Mode)

	res2, err := upserter.Upsert(ctx, fullFact("pi_1"))
	require.NoError(t, err)
	assert.Equal(t, ledger.UpsertUpdated, res2.Mode)

	records, err := store.Scan(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "INV-9", records[0].AccessCode)
	assert.Equal(t, "a@x.com", records[0].ClientEmail)
	assert.Equal(t, "Grid", records[0].PluginName)
}

func TestUpsert_DistinctTransactions_DistinctRows(t *testing.T) {
	upserter, store := newTestUpserter(t)
	ctx := context.Background()

	for _, id := range []string{"pi_1", "pi_2", "pi_3", "pi_1", "pi_2"} {
		_, err := upserter.Upsert(ctx, fullFact(id))
		require.NoError(t, err)
	}

	records, err := store.Scan(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 3, "no transaction id may ever own two rows")
}

func TestUpsert_TransactionIDTrimmed(t *testing.T) {
	// GIVEN: The gateway pads the id with whitespace on one delivery
	// WHEN: Both deliveries reconcile
	// THEN: They land on the same row

	upserter, store := newTestUpserter(t)
	ctx := context.Background()

	_, err := upserter.Upsert(ctx, fullFact("pi_1"))
	require.NoError(t, err)

	padded := fullFact("  pi_1  ")
	res, err := upserter.Upsert(ctx, padded)
	require.NoError(t, err)
	assert.Equal(t, ledger.UpsertUpdated, res.Mode)
	assert.Equal(t, "pi_1", res.TransactionID)

	records, _ := store.Scan(ctx)
	assert.Len(t, records, 1)
}

// =============================================================================
// NON-DESTRUCTIVE MERGE
// =============================================================================

func TestUpsert_SparseLaterFact_DoesNotWipeFields(t *testing.T) {
	// GIVEN: A rich checkout fact captured name, email and plugin
	// WHEN: A sparse invoice fact arrives with only the access code
	// THEN: Previously set fields survive; only non-empty fields change

	upserter, store := newTestUpserter(t)
	ctx := context.Background()

	rich := ledger.PurchaseFact{
		TransactionID: "pi_1",
		ClientEmail:   "a@x.com",
		ClientName:    "Ada Lovelace",
		PluginName:    "Grid",
		PaidAt:        time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
	}
	_, err := upserter.Upsert(ctx, rich)
	require.NoError(t, err)

	laterPaid := time.Date(2026, time.January, 2, 0, 0, 0, 0, time.UTC)
	sparse := ledger.PurchaseFact{
		TransactionID: "pi_1",
		AccessCode:    "INV-9",
		PaidAt:        laterPaid,
	}
	_, err = upserter.Upsert(ctx, sparse)
	require.NoError(t, err)

	rec, err := store.FindByTransactionID(ctx, "pi_1")
	require.NoError(t, err)
	assert.Equal(t, "INV-9", rec.AccessCode, "new non-empty field applied")
	assert.Equal(t, "a@x.com", rec.ClientEmail, "empty incoming field must not wipe")
	assert.Equal(t, "Ada Lovelace", rec.ClientName)
	assert.Equal(t, "Grid", rec.PluginName)
	assert.Equal(t, laterPaid, rec.PaidAt, "paid_at always refreshed")
}

func TestUpsert_WhitespaceOnlyField_TreatedAsEmpty(t *testing.T) {
	upserter, store := newTestUpserter(t)
	ctx := context.Background()

	_, err := upserter.Upsert(ctx, fullFact("pi_1"))
	require.NoError(t, err)

	blank := ledger.PurchaseFact{TransactionID: "pi_1", ClientEmail: "   "}
	_, err = upserter.Upsert(ctx, blank)
	require.NoError(t, err)

	rec, _ := store.FindByTransactionID(ctx, "pi_1")
	assert.Equal(t, "a@x.com", rec.ClientEmail)
}

func TestUpsert_BindingNeverRegressed(t *testing.T) {
	// GIVEN: A record already claimed by u1
	// WHEN: A later fact carries a different user id
	// THEN: The stored binding is untouched

	upserter, store := newTestUpserter(t)
	ctx := context.Background()

	claimed := fullFact("pi_1")
	claimed.BindingID = "u1"
	_, err := upserter.Upsert(ctx, claimed)
	require.NoError(t, err)

	hijack := fullFact("pi_1")
	hijack.BindingID = "u2"
	_, err = upserter.Upsert(ctx, hijack)
	require.NoError(t, err)

	rec, _ := store.FindByTransactionID(ctx, "pi_1")
	assert.Equal(t, "u1", rec.BindingID)
}

// =============================================================================
// VALIDATION
// =============================================================================

func TestUpsert_MissingTransactionID_Rejected(t *testing.T) {
	upserter, store := newTestUpserter(t)
	ctx := context.Background()

	for _, id := range []string{"", "   "} {
		fact := fullFact(id)
		_, err := upserter.Upsert(ctx, fact)

		assert.Error(t, err)
		assert.True(t, ledger.IsClientError(err), "must surface as a validation error")
		var vErr *ledger.ValidationError
		assert.ErrorAs(t, err, &vErr)
	}

	records, _ := store.Scan(ctx)
	assert.Empty(t, records, "no partial write on validation failure")
}
