package checkout

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pizzeria-system/internal/domain"
	"pizzeria-system/internal/menu"
	"pizzeria-system/internal/pricing"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func testEngine() *pricing.Engine {
	rules := pricing.Rules{
		DeliveryBaseCost:  dec("2.50"),
		FreeDeliveryAbove: dec("25.00"),
		FreeDistanceKm:    dec("5"),
		PerKmSurcharge:    dec("0.50"),
		Promotions: []domain.Promotion{
			{ID: "benvenuto10", Code: "BENVENUTO10", Kind: domain.PromoPercent, Value: dec("10"), Available: true},
			{ID: "pizza2024", Code: "PIZZA2024", Kind: domain.PromoPercent, Value: dec("15"), MinOrder: dec("20"), Available: true},
		},
	}
	return pricing.New(rules, menu.Empty())
}

func sessionCart() []domain.CartItem {
	return []domain.CartItem{
		{ID: "pizza_margherita", Name: "Pizza Margherita", UnitPrice: dec("8.50"), Quantity: 1},
		{ID: "cola", Name: "Cola", UnitPrice: dec("3.00"), Quantity: 2},
	}
}

type fakeNumbers struct {
	n    int
	fail bool
}

func (f *fakeNumbers) Next(_ context.Context, day time.Time) (string, error) {
	if f.fail {
		return "", fmt.Errorf("sequence unavailable")
	}
	f.n++
	return fmt.Sprintf("ORD_%s_%03d", day.Format("20060102"), f.n), nil
}

func validCustomer() domain.Customer {
	return domain.Customer{Name: "Mario Rossi", Phone: "+39 333 1234567"}
}

func takeaway() domain.DeliveryInfo {
	return domain.DeliveryInfo{Type: domain.OrderTakeout}
}

func cashPayment() domain.PaymentInfo {
	return domain.PaymentInfo{Method: domain.PayCash}
}

func advanceToReview(t *testing.T, s *Session) {
	t.Helper()
	require.NoError(t, s.SubmitCustomerInfo(validCustomer(), takeaway()))
	require.NoError(t, s.SubmitPayment(cashPayment()))
	require.Equal(t, StepReview, s.Step())
}

func TestSessionStepOrder(t *testing.T) {
	s := NewSession(domain.TakeawayContext, sessionCart(), testEngine())
	assert.Equal(t, StepCustomerInfo, s.Step())

	// payment before customer info is rejected
	err := s.SubmitPayment(cashPayment())
	assert.ErrorIs(t, err, domain.ErrInvalidStep)

	// confirm before review is rejected
	_, err = s.Confirm(context.Background(), true, &fakeNumbers{})
	assert.ErrorIs(t, err, domain.ErrInvalidStep)

	require.NoError(t, s.SubmitCustomerInfo(validCustomer(), takeaway()))
	assert.Equal(t, StepDeliveryAndPayment, s.Step())

	require.NoError(t, s.SubmitPayment(cashPayment()))
	assert.Equal(t, StepReview, s.Step())
}

func TestSessionValidationFailureDoesNotAdvance(t *testing.T) {
	s := NewSession(domain.TakeawayContext, sessionCart(), testEngine())

	bad := validCustomer()
	bad.Name = "X"
	err := s.SubmitCustomerInfo(bad, takeaway())

	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, StepCustomerInfo, s.Step())
}

func TestSessionEditEarlierStepKeepsLaterData(t *testing.T) {
	s := NewSession(domain.TakeawayContext, sessionCart(), testEngine())
	advanceToReview(t, s)

	// going back to step one must not lose the payment choice or regress the step
	updated := validCustomer()
	updated.Name = "Luigi Verdi"
	require.NoError(t, s.SubmitCustomerInfo(updated, takeaway()))
	assert.Equal(t, StepReview, s.Step())

	rec, err := s.Confirm(context.Background(), true, &fakeNumbers{})
	require.NoError(t, err)
	assert.Equal(t, "Luigi Verdi", rec.Customer.Name)
	assert.Equal(t, domain.PayCash, rec.Payment.Method)
}

func TestApplyPromoOncePerSession(t *testing.T) {
	s := NewSession(domain.TakeawayContext, sessionCart(), testEngine())

	discount, err := s.ApplyPromo("BENVENUTO10")
	require.NoError(t, err)
	assert.Equal(t, "1.45", discount.StringFixed(2))

	_, err = s.ApplyPromo("BENVENUTO10")
	assert.ErrorIs(t, err, domain.ErrPromotionAlreadyApplied)

	// a different code after the first is also refused
	_, err = s.ApplyPromo("PIZZA2024")
	assert.ErrorIs(t, err, domain.ErrPromotionAlreadyApplied)
}

func TestApplyPromoInvalidLeavesSessionOpen(t *testing.T) {
	s := NewSession(domain.TakeawayContext, sessionCart(), testEngine())

	_, err := s.ApplyPromo("PIZZA2024") // needs 20.00, cart is 14.50
	assert.ErrorIs(t, err, domain.ErrMinimumOrderNotMet)

	// a failed attempt does not burn the once-per-session latch
	_, err = s.ApplyPromo("BENVENUTO10")
	assert.NoError(t, err)
}

func TestSyncCartRevokesPromo(t *testing.T) {
	bigCart := []domain.CartItem{
		{ID: "pizza_speciale", UnitPrice: dec("11.00"), Quantity: 2},
	}
	s := NewSession(domain.TakeawayContext, bigCart, testEngine())

	_, err := s.ApplyPromo("PIZZA2024")
	require.NoError(t, err)

	// shrink below the 20.00 minimum
	err = s.SyncCart([]domain.CartItem{{ID: "cola", UnitPrice: dec("3.00"), Quantity: 1}})
	assert.ErrorIs(t, err, domain.ErrPromotionNoLongerValid)

	// discount is gone from the totals
	totals := s.Totals()
	assert.Equal(t, "0.00", totals.Discount.StringFixed(2))
	assert.Equal(t, "", s.PromoCode())
}

func TestTotalsRevokesExpiredPromo(t *testing.T) {
	june := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	august := time.Date(2024, 8, 31, 23, 59, 59, 0, time.UTC)
	at := time.Date(2024, 8, 31, 22, 0, 0, 0, time.UTC)
	rules := pricing.Rules{
		Promotions: []domain.Promotion{
			{ID: "estate24", Code: "ESTATE24", Kind: domain.PromoPercent, Value: dec("10"), Available: true,
				ValidFrom: &june, ValidTo: &august},
		},
	}
	engine := pricing.New(rules, menu.Empty(), pricing.WithClock(func() time.Time { return at }))
	s := NewSession(domain.TakeawayContext, sessionCart(), engine)

	_, err := s.ApplyPromo("ESTATE24")
	require.NoError(t, err)
	assert.Equal(t, "ESTATE24", s.PromoCode())

	// the validity window closes between apply and the next totals fetch;
	// the code must stop being advertised, not just stop discounting
	at = time.Date(2024, 9, 1, 12, 0, 0, 0, time.UTC)
	totals := s.Totals()
	assert.Equal(t, "0.00", totals.Discount.StringFixed(2))
	assert.Equal(t, "", s.PromoCode())
}

func TestConfirmRequiresConsent(t *testing.T) {
	s := NewSession(domain.TakeawayContext, sessionCart(), testEngine())
	advanceToReview(t, s)

	_, err := s.Confirm(context.Background(), false, &fakeNumbers{})
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "terms_accepted", ve.Fields[0].Field)

	// consent failure does not spend the session
	_, err = s.Confirm(context.Background(), true, &fakeNumbers{})
	assert.NoError(t, err)
}

func TestConfirmEmptyCart(t *testing.T) {
	s := NewSession(domain.TakeawayContext, sessionCart(), testEngine())
	advanceToReview(t, s)
	require.NoError(t, s.SyncCart(nil))

	_, err := s.Confirm(context.Background(), true, &fakeNumbers{})
	assert.ErrorIs(t, err, domain.ErrEmptyCart)
}

func TestConfirmBuildsRecord(t *testing.T) {
	at := time.Date(2024, 7, 15, 10, 30, 0, 0, time.UTC)
	s := NewSession(domain.TableContext(5), sessionCart(), testEngine(),
		WithClock(func() time.Time { return at }))
	require.NoError(t, s.SubmitCustomerInfo(validCustomer(), domain.DeliveryInfo{Type: domain.OrderDineIn}))
	require.NoError(t, s.SubmitPayment(cashPayment()))

	numbers := &fakeNumbers{}
	rec, err := s.Confirm(context.Background(), true, numbers)
	require.NoError(t, err)

	assert.Equal(t, "ORD_20240715_001", rec.Number)
	assert.Equal(t, domain.TableContext(5), rec.Context)
	assert.Equal(t, domain.OrderCreated, rec.Status)
	assert.Equal(t, at, rec.CreatedAt)
	assert.Len(t, rec.Items, 2)
	assert.Equal(t, "14.50", rec.Totals.GrandTotal.StringFixed(2))
	assert.Positive(t, rec.EstimatedMinutes)
	assert.Equal(t, StepConfirmed, s.Step())

	// the session is spent
	_, err = s.Confirm(context.Background(), true, numbers)
	assert.ErrorIs(t, err, domain.ErrInvalidStep)
	assert.ErrorIs(t, s.SubmitPayment(cashPayment()), domain.ErrInvalidStep)
}

func TestConfirmRedactsCard(t *testing.T) {
	s := NewSession(domain.TakeawayContext, sessionCart(), testEngine())
	require.NoError(t, s.SubmitCustomerInfo(validCustomer(), takeaway()))
	require.NoError(t, s.SubmitPayment(domain.PaymentInfo{
		Method: domain.PayCard,
		Card:   &domain.CardDetails{Number: "4539578763621486", Holder: "Mario Rossi", Expiry: "12/30", CVC: "123"},
	}))

	rec, err := s.Confirm(context.Background(), true, &fakeNumbers{})
	require.NoError(t, err)
	require.NotNil(t, rec.Payment.Card)
	assert.Equal(t, "****1486", rec.Payment.Card.Number)
	assert.Empty(t, rec.Payment.Card.CVC)
	assert.Empty(t, rec.Payment.Card.Expiry)
}

func TestConfirmNumberFailure(t *testing.T) {
	s := NewSession(domain.TakeawayContext, sessionCart(), testEngine())
	advanceToReview(t, s)

	_, err := s.Confirm(context.Background(), true, &fakeNumbers{fail: true})
	require.Error(t, err)

	// allocation failure must not spend the session
	_, err = s.Confirm(context.Background(), true, &fakeNumbers{})
	assert.NoError(t, err)
}

func TestConfirmRecordImmutableFromSnapshot(t *testing.T) {
	items := sessionCart()
	s := NewSession(domain.TakeawayContext, items, testEngine())
	advanceToReview(t, s)

	rec, err := s.Confirm(context.Background(), true, &fakeNumbers{})
	require.NoError(t, err)

	// mutating the caller's slice must not reach the record
	items[0].Quantity = 99
	assert.Equal(t, 1, rec.Items[0].Quantity)
}
