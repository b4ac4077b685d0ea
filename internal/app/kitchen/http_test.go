package kitchen

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pizzeria-system/internal/domain"
	"pizzeria-system/internal/kitchen"
	"pizzeria-system/internal/storage"
)

func testDashboard(t *testing.T) (*httptest.Server, *kitchen.Queue) {
	t.Helper()
	lg := slog.New(slog.NewTextHandler(io.Discard, nil))
	queue := kitchen.NewQueue(storage.NewMemory(), lg, 24*time.Hour)
	ts := httptest.NewServer(NewDashboard(queue, lg).Routes())
	t.Cleanup(ts.Close)
	return ts, queue
}

func acceptOrder(t *testing.T, queue *kitchen.Queue) domain.OrderMessage {
	t.Helper()
	msg := domain.OrderMessage{
		OrderID:     uuid.New(),
		OrderNumber: "ORD_20240715_001",
		Context:     domain.TakeawayContext,
		OrderType:   domain.OrderTakeout,
		Items:       []domain.OrderItemMsg{{Name: "Pizza Margherita", Quantity: 1, Price: decimal.RequireFromString("8.50")}},
		TotalAmount: decimal.RequireFromString("8.50"),
		Priority:    domain.OrderPriority(domain.OrderTakeout),
	}
	require.NoError(t, queue.Accept(context.Background(), msg))
	return msg
}

func TestDashboardOrders(t *testing.T) {
	ts, queue := testDashboard(t)
	acceptOrder(t, queue)

	resp, err := http.Get(ts.URL + "/orders")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var lists map[string][]domain.KitchenOrder
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&lists))
	assert.Len(t, lists["pending"], 1)
	assert.Empty(t, lists["preparing"])
}

func TestDashboardTransitions(t *testing.T) {
	ts, queue := testDashboard(t)
	msg := acceptOrder(t, queue)

	resp, err := http.Post(ts.URL+"/orders/"+msg.OrderID.String()+"/start", "application/json", bytes.NewReader(nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var order domain.KitchenOrder
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&order))
	assert.Equal(t, domain.KitchenPreparing, order.Status)
	assert.NotNil(t, order.StartedAt)
}

func TestDashboardInvalidTransition(t *testing.T) {
	ts, queue := testDashboard(t)
	msg := acceptOrder(t, queue)

	// pending → ready skips preparing
	resp, err := http.Post(ts.URL+"/orders/"+msg.OrderID.String()+"/ready", "application/json", bytes.NewReader(nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestDashboardUnknownOrder(t *testing.T) {
	ts, _ := testDashboard(t)

	resp, err := http.Post(ts.URL+"/orders/"+uuid.NewString()+"/start", "application/json", bytes.NewReader(nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDashboardBadOrderID(t *testing.T) {
	ts, _ := testDashboard(t)

	resp, err := http.Post(ts.URL+"/orders/not-a-uuid/start", "application/json", bytes.NewReader(nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDashboardStats(t *testing.T) {
	ts, queue := testDashboard(t)
	acceptOrder(t, queue)

	resp, err := http.Get(ts.URL + "/stats")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var stats kitchen.Stats
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	assert.Equal(t, 1, stats.Pending)
	assert.Zero(t, stats.CompletedToday)
}
