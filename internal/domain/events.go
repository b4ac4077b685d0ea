package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderItemMsg struct {
	Name     string          `json:"name"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Note     string          `json:"note,omitempty"`
}

// OrderMessage is the wire form of an accepted order handed to the kitchen
// over the orders exchange.
type OrderMessage struct {
	OrderID      uuid.UUID       `json:"order_id"`
	OrderNumber  string          `json:"order_number"`
	Context      Context         `json:"context"`
	CustomerName string          `json:"customer_name"`
	OrderType    OrderType       `json:"order_type"`
	TableNumber  *int            `json:"table_number,omitempty"`
	DeliveryAddr *string         `json:"delivery_address,omitempty"`
	Items        []OrderItemMsg  `json:"items"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	Priority     int             `json:"priority"`
	CreatedAt    time.Time       `json:"created_at"`
}

// NewOrderMessage flattens a finalized OrderRecord into its queue message.
func NewOrderMessage(r OrderRecord) OrderMessage {
	items := make([]OrderItemMsg, len(r.Items))
	for i, it := range r.Items {
		items[i] = OrderItemMsg{Name: it.Name, Quantity: it.Quantity, Price: it.UnitPrice, Note: it.Note}
	}
	msg := OrderMessage{
		OrderID:      r.ID,
		OrderNumber:  r.Number,
		Context:      r.Context,
		CustomerName: r.Customer.Name,
		OrderType:    r.Delivery.Type,
		Items:        items,
		TotalAmount:  r.Totals.GrandTotal,
		Priority:     OrderPriority(r.Delivery.Type),
		CreatedAt:    r.CreatedAt,
	}
	if r.Delivery.Type == OrderDelivery && r.Delivery.Address != "" {
		addr := r.Delivery.Address
		msg.DeliveryAddr = &addr
	}
	return msg
}

// OrderPriority ranks dine-in ahead of delivery ahead of takeout, so table
// guests who are already seated get served first.
func OrderPriority(t OrderType) int {
	switch t {
	case OrderDineIn:
		return 10
	case OrderDelivery:
		return 5
	default:
		return 1
	}
}
