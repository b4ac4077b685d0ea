package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderPriority(t *testing.T) {
	assert.Greater(t, OrderPriority(OrderDineIn), OrderPriority(OrderDelivery))
	assert.Greater(t, OrderPriority(OrderDelivery), OrderPriority(OrderTakeout))
}

func TestNewOrderMessage(t *testing.T) {
	rec := OrderRecord{
		ID:      uuid.New(),
		Number:  "ORD_20240715_001",
		Context: TakeawayContext,
		Items: []CartItem{
			{ID: "pizza_margherita", Name: "Pizza Margherita",
				UnitPrice: decimal.RequireFromString("8.50"), Quantity: 2, Note: "ben cotta"},
		},
		Customer:  Customer{Name: "Mario Rossi"},
		Delivery:  DeliveryInfo{Type: OrderDelivery, Address: "Via Roma 1"},
		Totals:    OrderTotals{GrandTotal: decimal.RequireFromString("17.00")},
		CreatedAt: time.Date(2024, 7, 15, 12, 0, 0, 0, time.UTC),
	}

	msg := NewOrderMessage(rec)

	assert.Equal(t, rec.ID, msg.OrderID)
	assert.Equal(t, "ORD_20240715_001", msg.OrderNumber)
	assert.Equal(t, "Mario Rossi", msg.CustomerName)
	assert.Equal(t, OrderPriority(OrderDelivery), msg.Priority)
	require.Len(t, msg.Items, 1)
	assert.Equal(t, "ben cotta", msg.Items[0].Note)
	require.NotNil(t, msg.DeliveryAddr)
	assert.Equal(t, "Via Roma 1", *msg.DeliveryAddr)
}

func TestNewOrderMessageOmitsAddressForTakeout(t *testing.T) {
	rec := OrderRecord{ID: uuid.New(), Delivery: DeliveryInfo{Type: OrderTakeout}}
	assert.Nil(t, NewOrderMessage(rec).DeliveryAddr)
}

func TestWithStatusCopies(t *testing.T) {
	rec := OrderRecord{ID: uuid.New(), Status: OrderCreated}
	accepted := rec.WithStatus(OrderAccepted)

	assert.Equal(t, OrderCreated, rec.Status)
	assert.Equal(t, OrderAccepted, accepted.Status)
}

func TestContexts(t *testing.T) {
	assert.Equal(t, Context("table_12"), TableContext(12))
	assert.Equal(t, Context("takeaway"), TakeawayContext)
}
