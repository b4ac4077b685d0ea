// Package pricing computes order totals. All functions are deterministic
// given a cart snapshot, the delivery context and the configured rules;
// amounts stay exact internally and are rounded half-up to 2 decimals once,
// on output.
package pricing

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"pizzeria-system/internal/domain"
	"pizzeria-system/internal/menu"
)

type Rules struct {
	TaxRatePercent    decimal.Decimal
	DeliveryBaseCost  decimal.Decimal
	FreeDeliveryAbove decimal.Decimal
	FreeDistanceKm    decimal.Decimal
	PerKmSurcharge    decimal.Decimal
	Promotions        []domain.Promotion
	Combos            []domain.Combo
	DailyOffers       []domain.DailyOffer
}

type Engine struct {
	rules Rules
	menu  *menu.Menu
	now   func() time.Time
}

type Option func(*Engine)

// WithClock overrides the time source; promotion windows and peak-hour
// estimates become testable.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func New(rules Rules, m *menu.Menu, opts ...Option) *Engine {
	e := &Engine{rules: rules, menu: m, now: time.Now}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Subtotal is Σ unitPrice×quantity over all items. Empty cart → zero.
func Subtotal(items []domain.CartItem) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(it.Total())
	}
	return sum
}

// DeliveryCost is zero for takeaway and dine-in. Home delivery pays the base
// cost unless the subtotal clears the free-delivery threshold, plus a per-km
// surcharge beyond the free radius.
func (e *Engine) DeliveryCost(subtotal decimal.Decimal, t domain.OrderType, distanceKm float64) decimal.Decimal {
	if t != domain.OrderDelivery {
		return decimal.Zero
	}
	if subtotal.GreaterThanOrEqual(e.rules.FreeDeliveryAbove) {
		return decimal.Zero
	}
	cost := e.rules.DeliveryBaseCost
	dist := decimal.NewFromFloat(distanceKm)
	if extra := dist.Sub(e.rules.FreeDistanceKm); extra.IsPositive() {
		cost = cost.Add(extra.Mul(e.rules.PerKmSurcharge))
	}
	return cost
}

// LookupPromotion resolves a code case-insensitively against the promotion's
// code, falling back to its id. (The original looked promotions up by map
// key and then by the embedded code field; this is that lookup done right.)
func (e *Engine) LookupPromotion(code string) (domain.Promotion, error) {
	for _, p := range e.rules.Promotions {
		if p.Code != "" && strings.EqualFold(p.Code, code) {
			return p, nil
		}
	}
	for _, p := range e.rules.Promotions {
		if strings.EqualFold(p.ID, code) {
			return p, nil
		}
	}
	return domain.Promotion{}, domain.ErrInvalidPromotion
}

// ValidatePromotion checks a resolved promotion against a cart snapshot.
// Each failure is a distinct error, not a bare boolean.
func (e *Engine) ValidatePromotion(p domain.Promotion, subtotal decimal.Decimal, items []domain.CartItem) error {
	if !p.Available {
		return domain.ErrInvalidPromotion
	}
	now := e.now()
	if p.ValidFrom != nil && now.Before(*p.ValidFrom) {
		return domain.ErrPromotionExpired
	}
	if p.ValidTo != nil && now.After(*p.ValidTo) {
		return domain.ErrPromotionExpired
	}
	if p.MinOrder.IsPositive() && subtotal.LessThan(p.MinOrder) {
		return fmt.Errorf("%w: minimum order %s", domain.ErrMinimumOrderNotMet, p.MinOrder.StringFixed(2))
	}
	if len(p.EligibleIDs) > 0 && len(items) > 0 {
		found := false
		for _, it := range items {
			for _, id := range p.EligibleIDs {
				if it.ID == id {
					found = true
					break
				}
			}
		}
		if !found {
			return domain.ErrPromotionNotEligible
		}
	}
	return nil
}

// Discount computes the reduction for a valid promotion, capped so the grand
// total can never go negative.
func (e *Engine) Discount(p domain.Promotion, subtotal, deliveryCost decimal.Decimal) decimal.Decimal {
	var d decimal.Decimal
	switch p.Kind {
	case domain.PromoPercent:
		d = subtotal.Mul(p.Value).Div(decimal.NewFromInt(100))
	case domain.PromoFixed:
		d = decimal.Min(p.Value, subtotal)
	case domain.PromoFreeDelivery:
		d = deliveryCost
	case domain.PromoFreeItem:
		d = p.Value
		if e.menu != nil {
			if prod, ok := e.menu.FindByID(p.FreeProductID); ok {
				d = prod.Price
			}
		}
	default:
		return decimal.Zero
	}
	if limit := subtotal.Add(deliveryCost); d.GreaterThan(limit) {
		d = limit
	}
	return d
}

// Totals runs the whole pipeline for one cart snapshot. promoCode may be
// empty. Tax applies to subtotal + delivery - discount. Each amount is
// rounded exactly once and the grand total is the sum of the rounded parts,
// so GrandTotal = Subtotal + DeliveryCost + Tax - Discount always holds on
// the published figures.
func (e *Engine) Totals(items []domain.CartItem, t domain.OrderType, distanceKm float64, promoCode string) (domain.OrderTotals, error) {
	subtotal := Subtotal(items).Round(2)
	delivery := e.DeliveryCost(subtotal, t, distanceKm).Round(2)

	discount := decimal.Zero
	if promoCode != "" {
		p, err := e.LookupPromotion(promoCode)
		if err != nil {
			return domain.OrderTotals{}, err
		}
		if err := e.ValidatePromotion(p, subtotal, items); err != nil {
			return domain.OrderTotals{}, err
		}
		discount = e.Discount(p, subtotal, delivery).Round(2)
	}

	taxable := subtotal.Add(delivery).Sub(discount)
	tax := taxable.Mul(e.rules.TaxRatePercent).Div(decimal.NewFromInt(100)).Round(2)

	return domain.OrderTotals{
		Subtotal:     subtotal,
		DeliveryCost: delivery,
		Discount:     discount,
		Tax:          tax,
		GrandTotal:   taxable.Add(tax),
	}, nil
}

// ComboPrice prices a configured combo against the current menu: the sum of
// component prices reduced by the combo's percent discount. Unknown combo
// ids price at the plain sum.
func (e *Engine) ComboPrice(comboID string) (price, savings decimal.Decimal) {
	var combo *domain.Combo
	for i := range e.rules.Combos {
		if e.rules.Combos[i].ID == comboID {
			combo = &e.rules.Combos[i]
			break
		}
	}
	sum := decimal.Zero
	ids := []string(nil)
	if combo != nil {
		ids = combo.ProductIDs
	}
	for _, id := range ids {
		if p, ok := e.menu.FindByID(id); ok {
			sum = sum.Add(p.Price)
		}
	}
	if combo == nil || sum.IsZero() {
		return sum.Round(2), decimal.Zero
	}
	savings = sum.Mul(decimal.NewFromInt(int64(combo.DiscountPercent))).Div(decimal.NewFromInt(100))
	return sum.Sub(savings).Round(2), savings.Round(2)
}

// Combos returns the configured combos, for the offers endpoint.
func (e *Engine) Combos() []domain.Combo {
	out := make([]domain.Combo, len(e.rules.Combos))
	copy(out, e.rules.Combos)
	return out
}

// TodaysOffer returns the product discounted on the current weekday, if the
// menu knows it. The offer price is rounded like every other output amount.
func (e *Engine) TodaysOffer() (menu.Product, decimal.Decimal, bool) {
	day := strings.ToLower(e.now().Weekday().String())
	for _, o := range e.rules.DailyOffers {
		if o.Weekday != day {
			continue
		}
		p, ok := e.menu.FindByID(o.ProductID)
		if !ok {
			continue
		}
		off := p.Price.Mul(decimal.NewFromInt(int64(o.DiscountPercent))).Div(decimal.NewFromInt(100))
		return p, p.Price.Sub(off).Round(2), true
	}
	return menu.Product{}, decimal.Zero, false
}

// EstimateMinutes predicts preparation-plus-delivery time: 25 min base,
// 2 min per item, 3 min per km, half again during lunch and dinner rush.
func (e *Engine) EstimateMinutes(itemCount int, distanceKm float64) int {
	est := 25.0 + float64(itemCount)*2 + distanceKm*3
	if isPeakHour(e.now()) {
		est *= 1.5
	}
	return int(est + 0.5)
}

func isPeakHour(t time.Time) bool {
	h := t.Hour()
	return (h >= 12 && h <= 14) || (h >= 19 && h <= 21)
}

// LoyaltyPoints awards one point per whole euro of the grand total.
func LoyaltyPoints(grandTotal decimal.Decimal) int {
	return int(grandTotal.IntPart())
}
