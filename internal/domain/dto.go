package domain

import "github.com/shopspring/decimal"

type AddItemRequest struct {
	ProductID string `json:"product_id"`
	Category  string `json:"category,omitempty"`
	Quantity  int    `json:"quantity"`
	Note      string `json:"note,omitempty"`
}

type UpdateQuantityRequest struct {
	ProductID string `json:"product_id"`
	Category  string `json:"category,omitempty"`
	Quantity  int    `json:"quantity"`
}

type ApplyPromoRequest struct {
	Code string `json:"code"`
}

type CustomerStepRequest struct {
	Customer Customer     `json:"customer"`
	Delivery DeliveryInfo `json:"delivery"`
}

type PaymentStepRequest struct {
	Payment PaymentInfo `json:"payment"`
}

type ConfirmRequest struct {
	TermsAccepted bool `json:"terms_accepted"`
}

type CartResponse struct {
	Context   Context         `json:"context"`
	Items     []CartItem      `json:"items"`
	ItemCount int             `json:"item_count"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

type TotalsResponse struct {
	Totals    OrderTotals `json:"totals"`
	PromoCode string      `json:"promo_code,omitempty"`
}

type SubmitResponse struct {
	OrderNumber      string      `json:"order_number"`
	Status           OrderStatus `json:"status"`
	EstimatedMinutes int         `json:"estimated_minutes,omitempty"`
}

type DailyOfferView struct {
	ProductID  string          `json:"product_id"`
	Name       string          `json:"name"`
	FullPrice  decimal.Decimal `json:"full_price"`
	OfferPrice decimal.Decimal `json:"offer_price"`
}

type ComboView struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Price   decimal.Decimal `json:"price"`
	Savings decimal.Decimal `json:"savings"`
}

type OffersResponse struct {
	DailyOffer *DailyOfferView `json:"daily_offer,omitempty"`
	Combos     []ComboView     `json:"combos"`
}

type ErrorResponse struct {
	Error  string       `json:"error"`
	Reason string       `json:"reason,omitempty"`
	Fields []FieldError `json:"fields,omitempty"`
}
