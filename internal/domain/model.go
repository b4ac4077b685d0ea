package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Context scopes one cart and one order flow: a dine-in table or a generic
// takeaway session. Used as part of every persisted key.
type Context string

const TakeawayContext Context = "takeaway"

func TableContext(n int) Context { return Context(fmt.Sprintf("table_%d", n)) }

// DefaultCategory is assumed when a product carries no category.
const DefaultCategory = "generale"

type CartItem struct {
	ID        string          `json:"id"`
	Category  string          `json:"category"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	Note      string          `json:"note,omitempty"`
}

func (i CartItem) Total() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type OrderType string

const (
	OrderDineIn   OrderType = "dine_in"
	OrderTakeout  OrderType = "takeout"
	OrderDelivery OrderType = "delivery"
)

type Customer struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email,omitempty"`
	Notes string `json:"notes,omitempty"`
}

type DeliveryInfo struct {
	Type       OrderType       `json:"type"`
	Address    string          `json:"address,omitempty"`
	City       string          `json:"city,omitempty"`
	Zip        string          `json:"zip,omitempty"`
	DistanceKm float64         `json:"distance_km,omitempty"`
	Cost       decimal.Decimal `json:"cost"`
}

type PaymentMethod string

const (
	PayCash     PaymentMethod = "cash"
	PayCard     PaymentMethod = "card"
	PaySatispay PaymentMethod = "satispay"
)

type CardDetails struct {
	Number string `json:"number"`
	Expiry string `json:"expiry"` // MM/YY
	CVC    string `json:"cvc"`
	Holder string `json:"holder"`
}

type PaymentInfo struct {
	Method PaymentMethod `json:"method"`
	Card   *CardDetails  `json:"card,omitempty"`
}

// OrderTotals are all rounded to 2 decimals and satisfy
// GrandTotal = Subtotal + DeliveryCost + Tax - Discount.
type OrderTotals struct {
	Subtotal     decimal.Decimal `json:"subtotal"`
	DeliveryCost decimal.Decimal `json:"delivery_cost"`
	Discount     decimal.Decimal `json:"discount"`
	Tax          decimal.Decimal `json:"tax"`
	GrandTotal   decimal.Decimal `json:"grand_total"`
}

type OrderStatus string

const (
	OrderCreated  OrderStatus = "created"
	OrderAccepted OrderStatus = "accepted"
	OrderFailed   OrderStatus = "failed"
)

// OrderRecord is the finalized customer order produced by checkout. It is
// never mutated in place: status changes go through WithStatus, which copies.
type OrderRecord struct {
	ID               uuid.UUID    `json:"id"`
	Number           string       `json:"number"`
	Context          Context      `json:"context"`
	Items            []CartItem   `json:"items"`
	Customer         Customer     `json:"customer"`
	Delivery         DeliveryInfo `json:"delivery"`
	Payment          PaymentInfo  `json:"payment"`
	Totals           OrderTotals  `json:"totals"`
	PromoCode        string       `json:"promo_code,omitempty"`
	EstimatedMinutes int          `json:"estimated_minutes"`
	CreatedAt        time.Time    `json:"created_at"`
	Status           OrderStatus  `json:"status"`
}

func (r OrderRecord) WithStatus(s OrderStatus) OrderRecord {
	r.Status = s
	return r
}

type KitchenStatus string

const (
	KitchenPending   KitchenStatus = "pending"
	KitchenPreparing KitchenStatus = "preparing"
	KitchenReady     KitchenStatus = "ready"
	KitchenCompleted KitchenStatus = "completed"
)

// KitchenOrder wraps an accepted OrderRecord with its kitchen lifecycle.
// Each transition sets exactly one timestamp and never goes backward.
type KitchenOrder struct {
	OrderID            uuid.UUID       `json:"order_id"`
	Number             string          `json:"number"`
	Context            Context         `json:"context"`
	Type               OrderType       `json:"type"`
	Items              []CartItem      `json:"items"`
	Total              decimal.Decimal `json:"total"`
	Priority           int             `json:"priority"`
	Status             KitchenStatus   `json:"status"`
	ReceivedAt         time.Time       `json:"received_at"`
	StartedAt          *time.Time      `json:"started_at,omitempty"`
	ReadyAt            *time.Time      `json:"ready_at,omitempty"`
	CompletedAt        *time.Time      `json:"completed_at,omitempty"`
	PreparationMinutes int             `json:"preparation_minutes,omitempty"`
}

type PromotionKind string

const (
	PromoPercent      PromotionKind = "percent"
	PromoFixed        PromotionKind = "fixed"
	PromoFreeDelivery PromotionKind = "free_delivery"
	PromoFreeItem     PromotionKind = "free_item"
)

type Promotion struct {
	ID            string          `json:"id"`
	Code          string          `json:"code,omitempty"`
	Kind          PromotionKind   `json:"kind"`
	Value         decimal.Decimal `json:"value"`
	MinOrder      decimal.Decimal `json:"min_order"`
	ValidFrom     *time.Time      `json:"valid_from,omitempty"`
	ValidTo       *time.Time      `json:"valid_to,omitempty"`
	EligibleIDs   []string        `json:"eligible_product_ids,omitempty"`
	FreeProductID string          `json:"free_product_id,omitempty"`
	Available     bool            `json:"available"`
}

type Combo struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	DiscountPercent int      `json:"discount_percent"`
	ProductIDs      []string `json:"product_ids"`
}

// DailyOffer discounts one product on one weekday (lowercase English name).
type DailyOffer struct {
	ProductID       string `json:"product_id"`
	Weekday         string `json:"weekday"`
	DiscountPercent int    `json:"discount_percent"`
}
