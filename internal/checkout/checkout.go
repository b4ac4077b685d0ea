// Package checkout drives a customer through the ordered steps of placing an
// order and assembles the immutable OrderRecord at the end. One Session per
// ordering context; steps advance linearly, and editing an earlier step never
// discards data already entered for later ones.
package checkout

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"pizzeria-system/internal/domain"
	"pizzeria-system/internal/pricing"
)

type Step int

const (
	StepCustomerInfo Step = iota + 1
	StepDeliveryAndPayment
	StepReview
	StepConfirmed
)

func (s Step) String() string {
	switch s {
	case StepCustomerInfo:
		return "customer_info"
	case StepDeliveryAndPayment:
		return "delivery_and_payment"
	case StepReview:
		return "review"
	case StepConfirmed:
		return "confirmed"
	}
	return "unknown"
}

// NumberSource allocates human-readable order numbers (ORD_YYYYMMDD_NNN).
type NumberSource interface {
	Next(ctx context.Context, day time.Time) (string, error)
}

type Session struct {
	mu sync.Mutex

	ctx    domain.Context
	items  []domain.CartItem
	engine *pricing.Engine
	now    func() time.Time

	step     Step
	customer domain.Customer
	delivery domain.DeliveryInfo
	payment  domain.PaymentInfo

	promo        *domain.Promotion
	promoApplied bool

	confirmed bool
}

type Option func(*Session)

func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// NewSession starts a checkout over a cart snapshot. The session keeps its
// own copy; cart changes reach it only through SyncCart.
func NewSession(c domain.Context, items []domain.CartItem, engine *pricing.Engine, opts ...Option) *Session {
	snap := make([]domain.CartItem, len(items))
	copy(snap, items)
	s := &Session{
		ctx:    c,
		items:  snap,
		engine: engine,
		now:    time.Now,
		step:   StepCustomerInfo,
		delivery: domain.DeliveryInfo{
			Type: domain.OrderTakeout,
		},
		payment: domain.PaymentInfo{Method: domain.PayCash},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Session) Step() Step {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.step
}

func (s *Session) Context() domain.Context { return s.ctx }

// SubmitCustomerInfo validates and stores the first step. Changing the
// delivery type here recomputes the delivery cost and re-checks any applied
// promotion, since a free-delivery discount can stop making sense.
func (s *Session) SubmitCustomerInfo(customer domain.Customer, delivery domain.DeliveryInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.confirmed {
		return domain.ErrInvalidStep
	}
	if ve := ValidateCustomer(customer, delivery); ve != nil {
		return ve
	}
	s.customer = customer
	s.delivery = delivery
	s.delivery.Cost = s.deliveryCost()
	if s.step == StepCustomerInfo {
		s.step = StepDeliveryAndPayment
	}
	return s.revalidatePromo()
}

// SubmitPayment validates and stores the payment step.
func (s *Session) SubmitPayment(payment domain.PaymentInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.confirmed {
		return domain.ErrInvalidStep
	}
	if s.step < StepDeliveryAndPayment {
		return domain.ErrInvalidStep
	}
	if ve := ValidatePayment(payment, s.now()); ve != nil {
		return ve
	}
	s.payment = payment
	if s.step == StepDeliveryAndPayment {
		s.step = StepReview
	}
	return nil
}

// ApplyPromo applies a promotion code, at most once per session.
func (s *Session) ApplyPromo(code string) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.confirmed {
		return decimal.Zero, domain.ErrInvalidStep
	}
	if s.promoApplied {
		return decimal.Zero, domain.ErrPromotionAlreadyApplied
	}
	p, err := s.engine.LookupPromotion(code)
	if err != nil {
		return decimal.Zero, err
	}
	subtotal := pricing.Subtotal(s.items)
	if err := s.engine.ValidatePromotion(p, subtotal, s.items); err != nil {
		return decimal.Zero, err
	}
	s.promo = &p
	s.promoApplied = true
	return s.engine.Discount(p, subtotal, s.deliveryCost()), nil
}

// SyncCart replaces the session's snapshot after the cart changed. The
// applied promotion is re-validated against the new subtotal; when it no
// longer qualifies the discount is revoked and ErrPromotionNoLongerValid is
// returned so the customer can be informed. The session itself stays usable.
func (s *Session) SyncCart(items []domain.CartItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.confirmed {
		return domain.ErrInvalidStep
	}
	snap := make([]domain.CartItem, len(items))
	copy(snap, items)
	s.items = snap
	s.delivery.Cost = s.deliveryCost()
	return s.revalidatePromo()
}

// Totals computes the current running totals for display.
func (s *Session) Totals() domain.OrderTotals {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalsLocked()
}

func (s *Session) PromoCode() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.promoCode()
}

// Confirm finalizes the order. It requires the review step, full validation
// of everything entered so far, and the consent flag. On success the session
// is spent and the immutable OrderRecord is returned; the cart is cleared
// only later, by successful submission.
func (s *Session) Confirm(ctx context.Context, termsAccepted bool, numbers NumberSource) (domain.OrderRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.confirmed {
		return domain.OrderRecord{}, domain.ErrInvalidStep
	}
	if s.step < StepReview {
		return domain.OrderRecord{}, domain.ErrInvalidStep
	}
	if len(s.items) == 0 {
		return domain.OrderRecord{}, domain.ErrEmptyCart
	}
	if !termsAccepted {
		ve := &domain.ValidationError{}
		ve.Add("terms_accepted", "terms of service must be accepted")
		return domain.OrderRecord{}, ve
	}
	if ve := ValidateCustomer(s.customer, s.delivery); ve != nil {
		return domain.OrderRecord{}, ve
	}
	if ve := ValidatePayment(s.payment, s.now()); ve != nil {
		return domain.OrderRecord{}, ve
	}
	if err := s.revalidatePromo(); err != nil {
		return domain.OrderRecord{}, err
	}

	now := s.now()
	number, err := numbers.Next(ctx, now)
	if err != nil {
		return domain.OrderRecord{}, fmt.Errorf("allocate order number: %w", err)
	}

	items := make([]domain.CartItem, len(s.items))
	copy(items, s.items)

	record := domain.OrderRecord{
		ID:        uuid.New(),
		Number:    number,
		Context:   s.ctx,
		Items:     items,
		Customer:  s.customer,
		Delivery:  s.delivery,
		Payment:   redactPayment(s.payment),
		Totals:    s.totalsLocked(),
		CreatedAt: now.UTC(),
		Status:    domain.OrderCreated,
		EstimatedMinutes: s.engine.EstimateMinutes(
			len(items), s.delivery.DistanceKm),
	}
	if s.promo != nil {
		record.PromoCode = s.promoCode()
	}

	s.step = StepConfirmed
	s.confirmed = true
	return record, nil
}

func (s *Session) promoCode() string {
	if s.promo == nil {
		return ""
	}
	if s.promo.Code != "" {
		return s.promo.Code
	}
	return s.promo.ID
}

func (s *Session) deliveryCost() decimal.Decimal {
	return s.engine.DeliveryCost(pricing.Subtotal(s.items), s.delivery.Type, s.delivery.DistanceKm)
}

// revalidatePromo re-checks the applied code against the current snapshot.
// A code that stopped qualifying is revoked; the "already applied" latch
// stays set, so the customer cannot re-apply a different code afterwards.
func (s *Session) revalidatePromo() error {
	if s.promo == nil {
		return nil
	}
	subtotal := pricing.Subtotal(s.items)
	if err := s.engine.ValidatePromotion(*s.promo, subtotal, s.items); err != nil {
		s.promo = nil
		return fmt.Errorf("%w: %v", domain.ErrPromotionNoLongerValid, err)
	}
	return nil
}

func (s *Session) totalsLocked() domain.OrderTotals {
	code := ""
	if s.promo != nil {
		code = s.promoCode()
	}
	totals, err := s.engine.Totals(s.items, s.delivery.Type, s.delivery.DistanceKm, code)
	if err != nil {
		// the applied promo stopped qualifying since it was applied, for
		// example its validity window closed. Revoke it so PromoCode stops
		// advertising a code the totals no longer honor, then reprice.
		s.promo = nil
		totals, _ = s.engine.Totals(s.items, s.delivery.Type, s.delivery.DistanceKm, "")
	}
	return totals
}

// redactPayment drops card secrets from the record; only the last four
// digits survive into history.
func redactPayment(p domain.PaymentInfo) domain.PaymentInfo {
	if p.Card == nil {
		return p
	}
	num := p.Card.Number
	last4 := num
	if len(num) > 4 {
		last4 = num[len(num)-4:]
	}
	return domain.PaymentInfo{
		Method: p.Method,
		Card:   &domain.CardDetails{Number: "****" + last4, Holder: p.Card.Holder},
	}
}
