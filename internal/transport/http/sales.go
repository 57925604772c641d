package http

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/jwenger100/event-tickets-reservations/internal/app"
	"github.com/jwenger100/event-tickets-reservations/internal/domain"
)

type purchaseRequest struct {
	PaymentMethod        string `json:"payment_method" validate:"required,max=50"`
	PaymentTransactionID string `json:"payment_transaction_id,omitempty" validate:"max=200"`
	Notes                string `json:"notes,omitempty" validate:"max=1000"`
}

type saleResponse struct {
	ID                   string          `json:"id"`
	ConfirmationCode     string          `json:"confirmation_code"`
	HoldID               string          `json:"hold_id"`
	EventID              string          `json:"event_id"`
	TicketPoolID         string          `json:"ticket_pool_id"`
	Customer             customerPayload `json:"customer"`
	Quantity             int             `json:"quantity"`
	UnitPriceCents       int64           `json:"unit_price_cents"`
	TotalCents           int64           `json:"total_cents"`
	ServiceFeeCents      int64           `json:"service_fee_cents"`
	TaxCents             int64           `json:"tax_cents"`
	FinalCents           int64           `json:"final_cents"`
	Status               string          `json:"status"`
	PaymentMethod        string          `json:"payment_method"`
	PaymentTransactionID string          `json:"payment_transaction_id,omitempty"`
	Notes                string          `json:"notes,omitempty"`
	SoldAt               time.Time       `json:"sold_at"`
}

func newSaleResponse(s domain.Sale) saleResponse {
	return saleResponse{
		ID:                   s.ID,
		ConfirmationCode:     s.ConfirmationCode,
		HoldID:               s.HoldID,
		EventID:              s.EventID,
		TicketPoolID:         s.PoolID,
		Customer:             customerPayload(s.Customer),
		Quantity:             s.Quantity,
		UnitPriceCents:       s.UnitPriceCents,
		TotalCents:           s.TotalCents,
		ServiceFeeCents:      s.ServiceFeeCents,
		TaxCents:             s.TaxCents,
		FinalCents:           s.FinalCents,
		Status:               string(s.Status),
		PaymentMethod:        s.PaymentMethod,
		PaymentTransactionID: s.PaymentTransactionID,
		Notes:                s.Notes,
		SoldAt:               s.SoldAt,
	}
}

func (h *handler) purchaseHold(w http.ResponseWriter, r *http.Request) {
	var req purchaseRequest
	if !h.decode(w, r, &req, false) {
		return
	}
	hold, ok := h.holdByCode(w, r)
	if !ok {
		return
	}

	sale, err := h.Sales.ConvertHold(r.Context(), app.ConvertHoldInput{
		HoldID:               hold.ID,
		PaymentMethod:        req.PaymentMethod,
		PaymentTransactionID: req.PaymentTransactionID,
		Notes:                req.Notes,
	})
	if err != nil {
		writeServiceError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, newSaleResponse(sale))
}

func (h *handler) getSale(w http.ResponseWriter, r *http.Request) {
	sale, err := h.Sales.GetSaleByConfirmationCode(r.Context(), mux.Vars(r)["confirmationCode"])
	if err != nil {
		writeServiceError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, newSaleResponse(sale))
}

type availabilityResponse struct {
	TicketPoolID string    `json:"ticket_pool_id"`
	TotalStock   int       `json:"total_stock"`
	Reserved     int       `json:"reserved"`
	Sold         int       `json:"sold"`
	Available    int       `json:"available"`
	AsOf         time.Time `json:"as_of"`
}

func (h *handler) getAvailability(w http.ResponseWriter, r *http.Request) {
	report, err := h.Inventory.Report(r.Context(), mux.Vars(r)["poolID"])
	if err != nil {
		writeServiceError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, availabilityResponse{
		TicketPoolID: report.PoolID,
		TotalStock:   report.TotalStock,
		Reserved:     report.Reserved,
		Sold:         report.Sold,
		Available:    report.Available,
		AsOf:         report.AsOf,
	})
}
