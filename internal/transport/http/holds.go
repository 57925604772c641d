package http

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/jwenger100/event-tickets-reservations/internal/app"
	"github.com/jwenger100/event-tickets-reservations/internal/domain"
)

const idempotencyHeader = "Idempotency-Key"

type customerPayload struct {
	Name  string `json:"name" validate:"required,max=200"`
	Email string `json:"email" validate:"required,email"`
	Phone string `json:"phone" validate:"required,max=50"`
}

type createHoldRequest struct {
	TicketPoolID   string          `json:"ticket_pool_id" validate:"required"`
	Quantity       int             `json:"quantity" validate:"gt=0"`
	Customer       customerPayload `json:"customer"`
	IdempotencyKey string          `json:"idempotency_key,omitempty" validate:"max=128"`
}

type holdResponse struct {
	ID               string          `json:"id"`
	Code             string          `json:"code"`
	EventID          string          `json:"event_id"`
	TicketPoolID     string          `json:"ticket_pool_id"`
	Customer         customerPayload `json:"customer"`
	Quantity         int             `json:"quantity"`
	UnitPriceCents   int64           `json:"unit_price_cents"`
	TotalCents       int64           `json:"total_cents"`
	Status           string          `json:"status"`
	IsValid          bool            `json:"is_valid"`
	SecondsRemaining int64           `json:"seconds_remaining"`
	CreatedAt        time.Time       `json:"created_at"`
	ExpiresAt        time.Time       `json:"expires_at"`
	SaleID           *string         `json:"sale_id,omitempty"`
	ReleasedAt       *time.Time      `json:"released_at,omitempty"`
	ReleaseReason    *string         `json:"release_reason,omitempty"`
}

type holdStatusResponse struct {
	Code             string    `json:"code"`
	Status           string    `json:"status"`
	IsValid          bool      `json:"is_valid"`
	SecondsRemaining int64     `json:"seconds_remaining"`
	ExpiresAt        time.Time `json:"expires_at"`
}

// effectiveStatus reports a lapsed hold as expired even before the sweeper
// has updated the row.
func effectiveStatus(h domain.Hold, now time.Time) string {
	if h.IsLogicallyExpired(now) {
		return string(domain.HoldStatusExpired)
	}
	return string(h.Status)
}

func secondsRemaining(h domain.Hold, now time.Time) int64 {
	if !h.IsLogicallyActive(now) {
		return 0
	}
	return int64(h.ExpiresAt.Sub(now) / time.Second)
}

func newHoldResponse(h domain.Hold, now time.Time) holdResponse {
	return holdResponse{
		ID:               h.ID,
		Code:             h.Code,
		EventID:          h.EventID,
		TicketPoolID:     h.PoolID,
		Customer:         customerPayload(h.Customer),
		Quantity:         h.Quantity,
		UnitPriceCents:   h.UnitPriceCents,
		TotalCents:       h.TotalCents,
		Status:           effectiveStatus(h, now),
		IsValid:          h.IsLogicallyActive(now),
		SecondsRemaining: secondsRemaining(h, now),
		CreatedAt:        h.CreatedAt,
		ExpiresAt:        h.ExpiresAt,
		SaleID:           h.SaleID,
		ReleasedAt:       h.ReleasedAt,
		ReleaseReason:    h.ReleaseReason,
	}
}

func (h *handler) createHold(w http.ResponseWriter, r *http.Request) {
	var req createHoldRequest
	if !h.decode(w, r, &req, false) {
		return
	}
	if key := strings.TrimSpace(r.Header.Get(idempotencyHeader)); key != "" {
		req.IdempotencyKey = key
	}

	hold, err := h.Holds.CreateHold(r.Context(), app.CreateHoldInput{
		EventID:        mux.Vars(r)["eventID"],
		PoolID:         req.TicketPoolID,
		Customer:       domain.Customer(req.Customer),
		Quantity:       req.Quantity,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		writeServiceError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, newHoldResponse(hold, h.Clock.Now()))
}

// holdByCode loads the hold named in the path, writing the error response
// when it cannot.
func (h *handler) holdByCode(w http.ResponseWriter, r *http.Request) (domain.Hold, bool) {
	hold, err := h.Holds.GetHoldByCode(r.Context(), mux.Vars(r)["code"])
	if err != nil {
		writeServiceError(w, h.Logger, err)
		return domain.Hold{}, false
	}
	return hold, true
}

func (h *handler) getHold(w http.ResponseWriter, r *http.Request) {
	hold, ok := h.holdByCode(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, newHoldResponse(hold, h.Clock.Now()))
}

func (h *handler) getHoldStatus(w http.ResponseWriter, r *http.Request) {
	hold, ok := h.holdByCode(w, r)
	if !ok {
		return
	}
	now := h.Clock.Now()
	writeJSON(w, http.StatusOK, holdStatusResponse{
		Code:             hold.Code,
		Status:           effectiveStatus(hold, now),
		IsValid:          hold.IsLogicallyActive(now),
		SecondsRemaining: secondsRemaining(hold, now),
		ExpiresAt:        hold.ExpiresAt,
	})
}

type cancelHoldRequest struct {
	Reason string `json:"reason,omitempty" validate:"max=500"`
}

func (h *handler) cancelHold(w http.ResponseWriter, r *http.Request) {
	var req cancelHoldRequest
	if !h.decode(w, r, &req, true) {
		return
	}
	hold, ok := h.holdByCode(w, r)
	if !ok {
		return
	}

	cancelled, err := h.Holds.CancelHold(r.Context(), hold.ID, req.Reason)
	if err != nil {
		writeServiceError(w, h.Logger, err)
		return
	}
	if !cancelled {
		writeError(w, http.StatusConflict, codeHoldNotActive, domain.ErrHoldNotActive.Error())
		return
	}
	h.writeFreshHold(w, r, hold.Code)
}

type extendHoldRequest struct {
	Minutes int `json:"minutes" validate:"gt=0"`
}

func (h *handler) extendHold(w http.ResponseWriter, r *http.Request) {
	var req extendHoldRequest
	if !h.decode(w, r, &req, false) {
		return
	}
	if req.Minutes > domain.MaxExtensionMinutes {
		writeError(w, http.StatusBadRequest, codeValidationFailed,
			fmt.Sprintf("invalid 'minutes' (max %d)", domain.MaxExtensionMinutes))
		return
	}
	hold, ok := h.holdByCode(w, r)
	if !ok {
		return
	}

	extended, err := h.Holds.ExtendHold(r.Context(), hold.ID, req.Minutes)
	if err != nil {
		writeServiceError(w, h.Logger, err)
		return
	}
	if !extended {
		if hold.IsLogicallyExpired(h.Clock.Now()) {
			writeError(w, http.StatusConflict, codeHoldExpired, domain.ErrHoldExpired.Error())
			return
		}
		writeError(w, http.StatusConflict, codeHoldNotActive, domain.ErrHoldNotActive.Error())
		return
	}
	h.writeFreshHold(w, r, hold.Code)
}

func (h *handler) writeFreshHold(w http.ResponseWriter, r *http.Request, code string) {
	hold, err := h.Holds.GetHoldByCode(r.Context(), code)
	if err != nil {
		writeServiceError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, newHoldResponse(hold, h.Clock.Now()))
}
