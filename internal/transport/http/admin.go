package http

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/jwenger100/event-tickets-reservations/internal/app"
	"github.com/jwenger100/event-tickets-reservations/internal/domain"
)

type createEventRequest struct {
	Name     string `json:"name" validate:"required,max=200"`
	StartsAt string `json:"starts_at,omitempty"`
	Status   string `json:"status,omitempty"`
}

type eventResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	StartsAt  time.Time `json:"starts_at"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

func newEventResponse(e domain.Event) eventResponse {
	return eventResponse{
		ID:        e.ID,
		Name:      e.Name,
		StartsAt:  e.StartsAt,
		Status:    string(e.Status),
		CreatedAt: e.CreatedAt,
	}
}

func (h *handler) listEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.Admin.ListEvents(r.Context())
	if err != nil {
		writeServiceError(w, h.Logger, err)
		return
	}
	resp := make([]eventResponse, 0, len(events))
	for _, event := range events {
		resp = append(resp, newEventResponse(event))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) createEvent(w http.ResponseWriter, r *http.Request) {
	var req createEventRequest
	if !h.decode(w, r, &req, false) {
		return
	}
	startsAt, err := parseTime(req.StartsAt)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidTime, "invalid starts_at format")
		return
	}

	event, err := h.Admin.CreateEvent(r.Context(), app.CreateEventInput{
		Name:     req.Name,
		StartsAt: startsAt,
		Status:   domain.EventStatus(req.Status),
	})
	if err != nil {
		writeServiceError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, newEventResponse(event))
}

type setEventStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

func (h *handler) setEventStatus(w http.ResponseWriter, r *http.Request) {
	var req setEventStatusRequest
	if !h.decode(w, r, &req, false) {
		return
	}
	if err := h.Admin.SetEventStatus(r.Context(), mux.Vars(r)["eventID"], domain.EventStatus(req.Status)); err != nil {
		writeServiceError(w, h.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type createPoolRequest struct {
	Name        string `json:"name" validate:"required,max=200"`
	PriceCents  int64  `json:"price_cents" validate:"gt=0"`
	TotalStock  int    `json:"total_stock" validate:"gte=0"`
	MaxPerHold  int    `json:"max_per_hold,omitempty" validate:"gte=0"`
	Inactive    bool   `json:"inactive,omitempty"`
	SaleStartAt string `json:"sale_start_at,omitempty"`
	SaleEndAt   string `json:"sale_end_at,omitempty"`
}

type poolResponse struct {
	ID          string     `json:"id"`
	EventID     string     `json:"event_id"`
	Name        string     `json:"name"`
	PriceCents  int64      `json:"price_cents"`
	TotalStock  int        `json:"total_stock"`
	MaxPerHold  int        `json:"max_per_hold"`
	IsActive    bool       `json:"is_active"`
	SaleStartAt *time.Time `json:"sale_start_at,omitempty"`
	SaleEndAt   *time.Time `json:"sale_end_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func newPoolResponse(p domain.TicketPool) poolResponse {
	return poolResponse{
		ID:          p.ID,
		EventID:     p.EventID,
		Name:        p.Name,
		PriceCents:  p.PriceCents,
		TotalStock:  p.TotalStock,
		MaxPerHold:  p.MaxPerHold,
		IsActive:    p.IsActive,
		SaleStartAt: p.SaleStartAt,
		SaleEndAt:   p.SaleEndAt,
		CreatedAt:   p.CreatedAt,
	}
}

func (h *handler) listPools(w http.ResponseWriter, r *http.Request) {
	pools, err := h.Admin.ListTicketPools(r.Context(), mux.Vars(r)["eventID"])
	if err != nil {
		writeServiceError(w, h.Logger, err)
		return
	}
	resp := make([]poolResponse, 0, len(pools))
	for _, pool := range pools {
		resp = append(resp, newPoolResponse(pool))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) createPool(w http.ResponseWriter, r *http.Request) {
	var req createPoolRequest
	if !h.decode(w, r, &req, false) {
		return
	}
	saleStart, err := parseTime(req.SaleStartAt)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidTime, "invalid sale_start_at format")
		return
	}
	saleEnd, err := parseTime(req.SaleEndAt)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidTime, "invalid sale_end_at format")
		return
	}

	pool, err := h.Admin.CreateTicketPool(r.Context(), app.CreateTicketPoolInput{
		EventID:     mux.Vars(r)["eventID"],
		Name:        req.Name,
		PriceCents:  req.PriceCents,
		TotalStock:  req.TotalStock,
		MaxPerHold:  req.MaxPerHold,
		Inactive:    req.Inactive,
		SaleStartAt: saleStart,
		SaleEndAt:   saleEnd,
	})
	if err != nil {
		writeServiceError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, newPoolResponse(pool))
}

type sweepResponse struct {
	Scanned int `json:"scanned"`
	Expired int `json:"expired"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// runSweep triggers one sweep synchronously, alongside the background loop.
func (h *handler) runSweep(w http.ResponseWriter, r *http.Request) {
	result, err := h.Sweeper.RunOnce(r.Context())
	if err != nil {
		writeServiceError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, sweepResponse(result))
}
