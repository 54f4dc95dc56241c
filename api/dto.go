/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types
  decouple the engine's domain model from the external API contract:
  Decision stays a plain value inside ledger; its wire shape (ok /
  valid / bound / action / reason) lives here.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

WIRE CONTRACT:
  Verification responses:
    {"ok": true, "valid": bool, "bound": bool,
     "project_name"?, "plugin_name_found"?, "action"?, "reason"?}
  Engine-level failures:
    {"ok": false, "error": "..."}

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data
  carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - ledger/types.go: Decision, UpsertResult
*/
package api

import (
	"github.com/warp/purchase-ledger/ledger"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// VerifyDTO is a verification decision on the wire.
type VerifyDTO struct {
	OK              bool   `json:"ok"`
	Valid           bool   `json:"valid"`
	Bound           bool   `json:"bound"`
	ProjectName     string `json:"project_name,omitempty"`
	PluginNameFound string `json:"plugin_name_found,omitempty"`
	Action          string `json:"action,omitempty"`
	Reason          string `json:"reason,omitempty"`
}

// IngestAckDTO acknowledges one gateway delivery.
type IngestAckDTO struct {
	OK            bool   `json:"ok"`
	DeliveryID    string `json:"delivery_id"`
	Mode          string `json:"mode"`
	TransactionID string `json:"transaction_id"`
}

// ErrorResponse is the {"ok": false} failure shape. Retryable marks
// contention outcomes the sender should simply redeliver.
type ErrorResponse struct {
	OK        bool   `json:"ok"`
	Error     string `json:"error"`
	Retryable bool   `json:"retryable,omitempty"`
}

// toVerifyDTO maps an engine decision onto the wire shape.
func toVerifyDTO(d ledger.Decision) VerifyDTO {
	return VerifyDTO{
		OK:              true,
		Valid:           d.Valid,
		Bound:           d.Bound,
		ProjectName:     d.ProjectName,
		PluginNameFound: d.PluginFound,
		Action:          string(d.Action),
		Reason:          string(d.Reason),
	}
}
