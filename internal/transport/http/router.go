package http

import (
	"context"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.uber.org/zap"

	"github.com/jwenger100/event-tickets-reservations/internal/app"
	"github.com/jwenger100/event-tickets-reservations/internal/clock"
	"github.com/jwenger100/event-tickets-reservations/internal/domain"
)

const serverName = "event-tickets-reservations"

// HoldService is the part of app.HoldService the handlers use.
type HoldService interface {
	CreateHold(ctx context.Context, in app.CreateHoldInput) (domain.Hold, error)
	GetHoldByCode(ctx context.Context, code string) (domain.Hold, error)
	CancelHold(ctx context.Context, holdID, reason string) (bool, error)
	ExtendHold(ctx context.Context, holdID string, additionalMinutes int) (bool, error)
}

type SaleService interface {
	ConvertHold(ctx context.Context, in app.ConvertHoldInput) (domain.Sale, error)
	GetSaleByConfirmationCode(ctx context.Context, code string) (domain.Sale, error)
}

type InventoryReader interface {
	Report(ctx context.Context, poolID string) (app.Availability, error)
}

type SweepRunner interface {
	RunOnce(ctx context.Context) (app.SweepResult, error)
}

type AdminService interface {
	CreateEvent(ctx context.Context, in app.CreateEventInput) (domain.Event, error)
	ListEvents(ctx context.Context) ([]domain.Event, error)
	SetEventStatus(ctx context.Context, eventID string, status domain.EventStatus) error
	CreateTicketPool(ctx context.Context, in app.CreateTicketPoolInput) (domain.TicketPool, error)
	ListTicketPools(ctx context.Context, eventID string) ([]domain.TicketPool, error)
}

// Deps are the services behind the router. Logger and Clock default to a
// no-op logger and the system clock.
type Deps struct {
	Holds     HoldService
	Sales     SaleService
	Inventory InventoryReader
	Admin     AdminService
	Sweeper   SweepRunner
	Clock     clock.Clock
	Logger    *zap.Logger
}

type handler struct {
	Deps
	validate *validator.Validate
}

// NewRouter returns the HTTP API with tracing and request logging applied.
func NewRouter(d Deps) http.Handler {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Clock == nil {
		d.Clock = clock.NewSystem()
	}
	h := &handler{Deps: d, validate: newValidator()}

	r := mux.NewRouter()
	r.Use(otelmux.Middleware(serverName), RequestLogger(d.Logger))

	r.HandleFunc("/health", h.health).Methods(http.MethodGet)

	r.HandleFunc("/events/{eventID}/holds", h.createHold).Methods(http.MethodPost)
	r.HandleFunc("/holds/{code}", h.getHold).Methods(http.MethodGet)
	r.HandleFunc("/holds/{code}/status", h.getHoldStatus).Methods(http.MethodGet)
	r.HandleFunc("/holds/{code}/cancel", h.cancelHold).Methods(http.MethodPost)
	r.HandleFunc("/holds/{code}/extend", h.extendHold).Methods(http.MethodPost)
	r.HandleFunc("/holds/{code}/purchase", h.purchaseHold).Methods(http.MethodPost)
	r.HandleFunc("/sales/{confirmationCode}", h.getSale).Methods(http.MethodGet)
	r.HandleFunc("/ticket-pools/{poolID}/availability", h.getAvailability).Methods(http.MethodGet)

	admin := r.PathPrefix("/admin").Subrouter()
	admin.HandleFunc("/sweeps", h.runSweep).Methods(http.MethodPost)
	admin.HandleFunc("/events", h.listEvents).Methods(http.MethodGet)
	admin.HandleFunc("/events", h.createEvent).Methods(http.MethodPost)
	admin.HandleFunc("/events/{eventID}/status", h.setEventStatus).Methods(http.MethodPost)
	admin.HandleFunc("/events/{eventID}/pools", h.listPools).Methods(http.MethodGet)
	admin.HandleFunc("/events/{eventID}/pools", h.createPool).Methods(http.MethodPost)

	r.NotFoundHandler = NotFoundHandler()
	r.MethodNotAllowedHandler = MethodNotAllowedHandler()
	return r
}
