/*
handlers.go - HTTP API handlers for the purchase ledger

PURPOSE:
  Exposes the reconciliation engine via REST. Handles HTTP
  request/response, JSON serialization, and delegates to the engine.

ENDPOINTS:
  POST /api/events    Ingest one gateway delivery (at-least-once feed)
  GET  /api/verify    Verification query, optionally claiming

REQUEST FLOW:
  1. Parse HTTP request (and check the delivery signature on ingest)
  2. Normalize / validate input
  3. Call the engine (Ingest or Verify)
  4. Serialize response
  5. Map errors onto the external error shape

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 401: Bad delivery signature
  - 503: Guard contention (retryable; the feed redelivers)
  - 500: Configuration / internal errors

  Decision outcomes (not_found, wrong_plugin, bound_to_other, ...) are
  NOT errors; they serialize as {"ok": true, ...} with status 200.

JSONP:
  GET /api/verify accepts a callback query parameter and wraps the
  JSON response JSONP-style. Purely presentation; the engine returns
  a plain value either way.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - gateway/event.go: Payload normalization
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"

	"github.com/google/uuid"

	"github.com/warp/purchase-ledger/gateway"
	"github.com/warp/purchase-ledger/ledger"
)

// SignatureHeader carries the gateway's HMAC digest of the payload.
const SignatureHeader = "X-Gateway-Signature"

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Engine     *ledger.Engine
	Normalizer *gateway.Normalizer
	Gateway    gateway.Config
}

// NewHandler creates a new handler over the engine and gateway config.
func NewHandler(engine *ledger.Engine, cfg gateway.Config) *Handler {
	return &Handler{
		Engine:     engine,
		Normalizer: gateway.NewNormalizer(cfg),
		Gateway:    cfg,
	}
}

// =============================================================================
// INGESTION
// =============================================================================

// IngestEvent receives one gateway delivery and reconciles it.
func (h *Handler) IngestEvent(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read payload", err)
		return
	}

	if !h.Gateway.VerifySignature(payload, r.Header.Get(SignatureHeader)) {
		writeError(w, http.StatusUnauthorized, "Bad delivery signature", nil)
		return
	}

	fact, err := h.Normalizer.Normalize(payload)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	res, err := h.Engine.Ingest(r.Context(), fact)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, IngestAckDTO{
		OK:            true,
		DeliveryID:    uuid.NewString(),
		Mode:          string(res.Mode),
		TransactionID: res.TransactionID,
	})
}

// =============================================================================
// VERIFICATION
// =============================================================================

// VerifyPurchase answers one verification query.
//
// Query parameters:
//
//	email    (required) purchaser email, matched case-insensitively
//	code     (required) access/invoice code, matched exactly
//	plugin   (optional) plugin-name filter, normalized equality
//	user_id  (optional) binding candidate
//	bind     (optional) "true" requests an explicit bind
//	nocache  (optional) "true" bypasses the read cache
//	callback (optional) JSONP wrapper function name
func (h *Handler) VerifyPurchase(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()

	q := ledger.Query{
		Email:        params.Get("email"),
		AccessCode:   params.Get("code"),
		PluginFilter: params.Get("plugin"),
		Candidate:    params.Get("user_id"),
		ExplicitBind: boolParam(params.Get("bind")),
		BypassCache:  boolParam(params.Get("nocache")),
	}
	callback := params.Get("callback")

	decision, err := h.Engine.Verify(r.Context(), q)
	if err != nil {
		if callback != "" {
			writeJSONP(w, callback, errorBody(err))
			return
		}
		writeEngineError(w, err)
		return
	}

	if callback != "" {
		writeJSONP(w, callback, toVerifyDTO(decision))
		return
	}
	writeJSON(w, http.StatusOK, toVerifyDTO(decision))
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func boolParam(s string) bool {
	b, _ := strconv.ParseBool(s)
	return b
}

// errorBody maps an engine error onto the external error shape.
func errorBody(err error) ErrorResponse {
	return ErrorResponse{
		OK:        false,
		Error:     err.Error(),
		Retryable: ledger.IsRetryable(err),
	}
}

// writeEngineError converts engine errors per the error taxonomy:
// validation 400, contention 503 (retryable), everything else 500.
func writeEngineError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case ledger.IsClientError(err):
		status = http.StatusBadRequest
	case ledger.IsRetryable(err):
		status = http.StatusServiceUnavailable
	case errors.Is(err, ledger.ErrConfiguration):
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, errorBody(err))
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{OK: false, Error: message}
	if err != nil {
		resp.Error = fmt.Sprintf("%s: %v", message, err)
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// callbackName keeps JSONP wrappers to plain identifiers; anything
// else is a script-injection vector.
var callbackName = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$.]*$`)

// writeJSONP wraps the body in callback(...). Always 200: JSONP
// consumers load via script tags and cannot read error statuses.
func writeJSONP(w http.ResponseWriter, callback string, data any) {
	if !callbackName.MatchString(callback) {
		writeError(w, http.StatusBadRequest, "Invalid callback name", nil)
		return
	}
	body, err := json.Marshal(data)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to encode response", err)
		return
	}
	w.Header().Set("Content-Type", "application/javascript")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "%s(%s);", callback, body)
}
