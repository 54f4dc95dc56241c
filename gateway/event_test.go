package gateway_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/purchase-ledger/gateway"
	"github.com/warp/purchase-ledger/ledger"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func testConfig() gateway.Config {
	return gateway.Config{
		ProductPlugins: map[string]string{
			"prod_grid":  "Grid",
			"prod_globe": "Globe",
		},
	}
}

// =============================================================================
// EVENT NORMALIZATION
// =============================================================================

func TestNormalize_CheckoutCompleted(t *testing.T) {
	n := gateway.NewNormalizer(testConfig())

	payload := []byte(`{
		"type": "checkout.completed",
		"data": {
			"transaction_id": "pi_1",
			"customer": {"email": "a@x.com", "name": "Ada Lovelace"},
			"product_id": "prod_grid",
			"amount": "49.00",
			"paid_at": "2026-01-02T03:04:05Z"
		}
	}`)

	fact, err := n.Normalize(payload)
	require.NoError(t, err)

	assert.Equal(t, "pi_1", fact.TransactionID)
	assert.Equal(t, "a@x.com", fact.ClientEmail)
	assert.Equal(t, "Ada Lovelace", fact.ClientName)
	assert.Equal(t, "Grid", fact.PluginName, "product id mapped to plugin name")
	assert.Empty(t, fact.AccessCode, "checkout events carry no invoice code")
	assert.Equal(t, time.Date(2026, time.January, 2, 3, 4, 5, 0, time.UTC), fact.PaidAt)
}

func TestNormalize_InvoicePaid_SparseShape(t *testing.T) {
	n := gateway.NewNormalizer(testConfig())

	payload := []byte(`{
		"type": "invoice.paid",
		"data": {
			"transaction_id": "pi_1",
			"invoice_code": "INV-9",
			"paid_at": "2026-01-02T03:05:00Z"
		}
	}`)

	fact, err := n.Normalize(payload)
	require.NoError(t, err)

	assert.Equal(t, "INV-9", fact.AccessCode)
	assert.Empty(t, fact.ClientEmail, "sparse shape; merge fills in the rest")
	assert.Empty(t, fact.ClientName)
}

func TestNormalize_UnknownProduct_EmptyPlugin(t *testing.T) {
	n := gateway.NewNormalizer(testConfig())

	fact, err := n.NormalizeEvent(gateway.Event{
		Type: gateway.EventCheckoutCompleted,
		Data: gateway.EventData{TransactionID: "pi_1", ProductID: "prod_unknown"},
	})
	require.NoError(t, err)
	assert.Empty(t, fact.PluginName, "unmapped products reconcile without a plugin tag")
}

func TestNormalize_MissingPaidAt_DefaultsToNow(t *testing.T) {
	n := gateway.NewNormalizer(testConfig())

	before := time.Now().UTC()
	fact, err := n.NormalizeEvent(gateway.Event{
		Type: gateway.EventInvoicePaid,
		Data: gateway.EventData{TransactionID: "pi_1"},
	})
	require.NoError(t, err)
	assert.False(t, fact.PaidAt.Before(before))
}

// =============================================================================
// REJECTIONS
// =============================================================================

func TestNormalize_Rejections(t *testing.T) {
	n := gateway.NewNormalizer(testConfig())

	cases := map[string][]byte{
		"malformed JSON": []byte(`{not json`),
		"unknown type":   []byte(`{"type": "refund.created", "data": {"transaction_id": "pi_1"}}`),
		"no tx id":       []byte(`{"type": "invoice.paid", "data": {}}`),
		"bad amount":     []byte(`{"type": "invoice.paid", "data": {"transaction_id": "pi_1", "amount": "lots"}}`),
		"negative":       []byte(`{"type": "invoice.paid", "data": {"transaction_id": "pi_1", "amount": "-1.00"}}`),
	}

	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := n.Normalize(payload)
			assert.True(t, ledger.IsClientError(err), "must be a non-retryable validation error")
		})
	}
}

// =============================================================================
// SIGNATURES
// =============================================================================

func TestVerifySignature(t *testing.T) {
	cfg := testConfig()
	cfg.SharedSecret = "s3cret"
	payload := []byte(`{"type":"invoice.paid"}`)

	good := gateway.SignPayload("s3cret", payload)
	assert.True(t, cfg.VerifySignature(payload, good))
	assert.False(t, cfg.VerifySignature(payload, "deadbeef"))
	assert.False(t, cfg.VerifySignature([]byte("tampered"), good))
}

func TestVerifySignature_NoSecretDisablesCheck(t *testing.T) {
	cfg := testConfig()
	assert.True(t, cfg.VerifySignature([]byte("anything"), ""))
}
