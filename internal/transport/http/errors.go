package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/jwenger100/event-tickets-reservations/internal/domain"
)

const (
	codeMethodNotAllowed      = "method_not_allowed"
	codeNotFound              = "not_found"
	codeInvalidRequestBody    = "invalid_request_body"
	codeValidationFailed      = "validation_failed"
	codeInvalidTime           = "invalid_time"
	codeInvalidID             = "invalid_id"
	codeInvalidQuantity       = "invalid_quantity"
	codeQuantityOverLimit     = "quantity_over_limit"
	codeCustomerRequired      = "customer_required"
	codePaymentMethodRequired = "payment_method_required"
	codeIdempotencyConflict   = "idempotency_conflict"
	codeInsufficientInventory = "insufficient_inventory"
	codeNotOnSale             = "not_on_sale"
	codeEventNotFound         = "event_not_found"
	codeTicketPoolNotFound    = "ticket_pool_not_found"
	codePoolAlreadyExists     = "ticket_pool_already_exists"
	codeHoldNotFound          = "hold_not_found"
	codeHoldNotActive         = "hold_not_active"
	codeHoldExpired           = "hold_expired"
	codeSaleNotFound          = "sale_not_found"
	codeInternalError         = "internal_error"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(errorResponse{
		Error: msg,
		Code:  code,
	})
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}

// errorMapping pairs a domain error with its response. Order matters: the
// first match wins, so specific sentinels precede the kind they wrap.
var errorMapping = []struct {
	err    error
	status int
	code   string
}{
	{domain.ErrIdempotencyConflict, http.StatusConflict, codeIdempotencyConflict},
	{domain.ErrPoolNameAlreadyExists, http.StatusConflict, codePoolAlreadyExists},
	{domain.ErrInvalidID, http.StatusBadRequest, codeInvalidID},
	{domain.ErrInvalidQuantity, http.StatusBadRequest, codeInvalidQuantity},
	{domain.ErrQuantityOverLimit, http.StatusBadRequest, codeQuantityOverLimit},
	{domain.ErrCustomerRequired, http.StatusBadRequest, codeCustomerRequired},
	{domain.ErrPaymentMethodRequired, http.StatusBadRequest, codePaymentMethodRequired},
	{domain.ErrValidation, http.StatusBadRequest, codeValidationFailed},
	{domain.ErrEventNotFound, http.StatusNotFound, codeEventNotFound},
	{domain.ErrTicketPoolNotFound, http.StatusNotFound, codeTicketPoolNotFound},
	{domain.ErrHoldNotFound, http.StatusNotFound, codeHoldNotFound},
	{domain.ErrSaleNotFound, http.StatusNotFound, codeSaleNotFound},
	{domain.ErrNotFound, http.StatusNotFound, codeNotFound},
	{domain.ErrNotOnSale, http.StatusConflict, codeNotOnSale},
	{domain.ErrInsufficientInventory, http.StatusConflict, codeInsufficientInventory},
	{domain.ErrInvalidState, http.StatusConflict, codeHoldNotActive},
	{domain.ErrExpired, http.StatusConflict, codeHoldExpired},
}

// writeServiceError maps err onto a JSON error response. Unknown errors are
// logged and reported as 500 without their message.
func writeServiceError(w http.ResponseWriter, logger *zap.Logger, err error) {
	for _, m := range errorMapping {
		if errors.Is(err, m.err) {
			writeError(w, m.status, m.code, err.Error())
			return
		}
	}
	logger.Error("unhandled service error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
