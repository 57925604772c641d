package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jwenger100/event-tickets-reservations/internal/app"
	"github.com/jwenger100/event-tickets-reservations/internal/clock"
	"github.com/jwenger100/event-tickets-reservations/internal/domain"
	"github.com/jwenger100/event-tickets-reservations/internal/storage/memory"
)

var testNow = time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC)

const customerJSON = `{"name":"Ada Lovelace","email":"ada@example.com","phone":"+44 20 7946 0000"}`

type testAPI struct {
	handler http.Handler
	store   *memory.Store
	clock   *clock.Manual
}

// newTestAPI wires the full router over an in-memory store with one on-sale
// event ("event-1") and pool ("pool-1", 100 seats at 250.00).
func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	store := memory.New()
	clk := clock.NewManual(testNow)

	ctx := context.Background()
	require.NoError(t, store.CreateEvent(ctx, domain.Event{
		ID:        "event-1",
		Name:      "Summer Concert",
		StartsAt:  testNow.Add(30 * 24 * time.Hour),
		Status:    domain.EventStatusOnSale,
		CreatedAt: testNow,
	}))
	require.NoError(t, store.CreateTicketPool(ctx, domain.TicketPool{
		ID:         "pool-1",
		EventID:    "event-1",
		Name:       "General Admission",
		PriceCents: 25000,
		TotalStock: 100,
		MaxPerHold: domain.DefaultMaxPerHold,
		IsActive:   true,
		CreatedAt:  testNow,
	}))

	return &testAPI{
		handler: NewRouter(Deps{
			Holds:     app.NewHoldService(store, clk),
			Sales:     app.NewSaleService(store, clk),
			Inventory: app.NewInventoryService(store, clk),
			Admin:     app.NewAdminService(store, clk),
			Sweeper:   app.NewSweeper(store, clk),
			Clock:     clk,
		}),
		store: store,
		clock: clk,
	}
}

func (a *testAPI) do(t *testing.T, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	return serve(t, a.handler, method, path, body, headers...)
}

// createHold posts a hold for quantity seats of pool-1 and returns it.
func (a *testAPI) createHold(t *testing.T, quantity int) holdResponse {
	t.Helper()
	body := `{"ticket_pool_id":"pool-1","quantity":` + strconv.Itoa(quantity) + `,"customer":` + customerJSON + `}`
	rec := a.do(t, http.MethodPost, "/events/event-1/holds", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[holdResponse](t, rec)
}

func serve(t *testing.T, h http.Handler, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	require.Zero(t, len(headers)%2, "headers must be key/value pairs")

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v), "decode response")
	return v
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[errorResponse](t, rec).Code
}
