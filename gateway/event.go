/*
Package gateway provides JSON event to purchase-fact conversion.

PURPOSE:
  Decodes inbound payment-gateway payloads into normalized purchase
  facts the reconciliation engine can ingest. The gateway emits two
  event shapes with different completeness, and both must reconcile
  onto the same ledger row:

  checkout.completed - rich client metadata, no invoice code yet:
    {
      "type": "checkout.completed",
      "data": {
        "transaction_id": "pi_1",
        "customer": {"email": "a@x.com", "name": "Ada"},
        "product_id": "prod_grid",
        "amount": "49.00",
        "paid_at": "2026-01-02T03:04:05Z"
      }
    }

  invoice.paid - carries the invoice/access code, little else:
    {
      "type": "invoice.paid",
      "data": {
        "transaction_id": "pi_1",
        "invoice_code": "INV-9",
        "amount": "49.00",
        "paid_at": "2026-01-02T03:05:00Z"
      }
    }

PRODUCT MAPPING:
  The gateway speaks product ids; the ledger stores plugin names.
  The mapping is injected configuration, never hardcoded.

AMOUNT VALIDATION:
  Amounts are decoded with shopspring/decimal and rejected when
  negative or unparseable. The amount itself is not persisted - the
  ledger row layout is fixed - but a gateway event with a garbage
  amount is a malformed delivery and must not reconcile.

SEE ALSO:
  - signature.go: Shared-secret verification of raw payloads
  - ledger/upsert.go: Additive merge of the facts produced here
*/
package gateway

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/purchase-ledger/ledger"
)

// =============================================================================
// CONFIG
// =============================================================================

// Config carries the gateway boundary's injected settings.
type Config struct {
	// ProductPlugins maps gateway product ids to plugin names.
	ProductPlugins map[string]string

	// SharedSecret signs inbound payloads (HMAC-SHA256). Empty
	// disables signature checks.
	SharedSecret string
}

// PluginFor resolves a product id; unknown products map to "".
func (c Config) PluginFor(productID string) string {
	return c.ProductPlugins[productID]
}

// =============================================================================
// EVENT SHAPES
// =============================================================================

const (
	EventCheckoutCompleted = "checkout.completed"
	EventInvoicePaid       = "invoice.paid"
)

// Event is the envelope every gateway delivery arrives in.
type Event struct {
	Type string    `json:"type"`
	Data EventData `json:"data"`
}

// EventData is the union of both event shapes' fields.
type EventData struct {
	TransactionID string    `json:"transaction_id"`
	InvoiceCode   string    `json:"invoice_code,omitempty"`
	Customer      *Customer `json:"customer,omitempty"`
	ProductID     string    `json:"product_id,omitempty"`
	Amount        string    `json:"amount,omitempty"`
	PaidAt        time.Time `json:"paid_at"`
	UserID        string    `json:"user_id,omitempty"`
}

// Customer is the client block on checkout events.
type Customer struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// =============================================================================
// NORMALIZER
// =============================================================================

// Normalizer converts raw gateway payloads into purchase facts.
type Normalizer struct {
	cfg Config
}

// NewNormalizer creates a normalizer with the given configuration.
func NewNormalizer(cfg Config) *Normalizer {
	return &Normalizer{cfg: cfg}
}

// Normalize decodes one payload and produces the fact to ingest.
// Unknown event types are rejected; the feed only retries transport
// failures, so a clear validation error stops redelivery loops.
func (n *Normalizer) Normalize(payload []byte) (ledger.PurchaseFact, error) {
	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return ledger.PurchaseFact{}, &ledger.ValidationError{
			Field:   "payload",
			Message: fmt.Sprintf("malformed JSON: %v", err),
		}
	}
	return n.NormalizeEvent(ev)
}

// NormalizeEvent converts a decoded event into a purchase fact.
func (n *Normalizer) NormalizeEvent(ev Event) (ledger.PurchaseFact, error) {
	if ev.Type != EventCheckoutCompleted && ev.Type != EventInvoicePaid {
		return ledger.PurchaseFact{}, &ledger.ValidationError{
			Field:   "type",
			Message: fmt.Sprintf("unknown event type %q", ev.Type),
		}
	}
	if ev.Data.TransactionID == "" {
		return ledger.PurchaseFact{}, &ledger.ValidationError{
			Field:   "transaction_id",
			Message: "must not be empty",
		}
	}
	if err := validateAmount(ev.Data.Amount); err != nil {
		return ledger.PurchaseFact{}, err
	}

	fact := ledger.PurchaseFact{
		TransactionID: ev.Data.TransactionID,
		AccessCode:    ev.Data.InvoiceCode,
		PluginName:    n.cfg.PluginFor(ev.Data.ProductID),
		PaidAt:        ev.Data.PaidAt,
		BindingID:     ev.Data.UserID,
	}
	if ev.Data.Customer != nil {
		fact.ClientEmail = ev.Data.Customer.Email
		fact.ClientName = ev.Data.Customer.Name
	}
	if fact.PaidAt.IsZero() {
		fact.PaidAt = time.Now().UTC()
	}
	return fact, nil
}

// validateAmount accepts an empty amount (invoice-only redeliveries
// can omit it) but rejects garbage and negatives.
func validateAmount(s string) error {
	if s == "" {
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return &ledger.ValidationError{
			Field:   "amount",
			Message: fmt.Sprintf("unparseable amount %q", s),
		}
	}
	if d.IsNegative() {
		return &ledger.ValidationError{
			Field:   "amount",
			Message: "must not be negative",
		}
	}
	return nil
}
