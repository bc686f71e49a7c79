package http

import (
	"encoding/json"
	"net/http"
)

// Error codes surfaced in JSON bodies. The gateway keys its own status
// mapping off these, so they are part of the service contract.
const (
	codeInvalidBody           = "invalid_request_body"
	codeInvalidQuantity       = "invalid_quantity"
	codeInsufficientInventory = "insufficient_inventory"
	codeLockNotFound          = "lock_not_found"
	codeEventNotFound         = "event_not_found"
	codeTicketTypeNotFound    = "ticket_type_not_found"
	codeInternalError         = "internal_error"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorResponse{Error: msg, Code: code})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
