package checkout

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pizzeria-system/internal/domain"
)

func TestLuhn(t *testing.T) {
	tests := []struct {
		name   string
		number string
		want   bool
	}{
		{"validVisa", "4539578763621486", true},
		{"checksumOffByOne", "4539578763621487", false},
		{"spacesIgnored", "4539 5787 6362 1486", true},
		{"letters", "4539a78763621486", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Luhn(tt.number))
		})
	}
}

func TestValidateCustomer(t *testing.T) {
	ok := domain.Customer{Name: "Mario Rossi", Phone: "+39 333 1234567"}

	t.Run("takeawayValid", func(t *testing.T) {
		assert.Nil(t, ValidateCustomer(ok, domain.DeliveryInfo{Type: domain.OrderTakeout}))
	})

	t.Run("shortName", func(t *testing.T) {
		c := ok
		c.Name = "M"
		ve := ValidateCustomer(c, domain.DeliveryInfo{Type: domain.OrderTakeout})
		require.NotNil(t, ve)
		assert.Equal(t, "name", ve.Fields[0].Field)
	})

	t.Run("shortPhone", func(t *testing.T) {
		c := ok
		c.Phone = "333 123"
		ve := ValidateCustomer(c, domain.DeliveryInfo{Type: domain.OrderTakeout})
		require.NotNil(t, ve)
		assert.Equal(t, "phone", ve.Fields[0].Field)
	})

	t.Run("badEmail", func(t *testing.T) {
		c := ok
		c.Email = "not-an-email"
		ve := ValidateCustomer(c, domain.DeliveryInfo{Type: domain.OrderTakeout})
		require.NotNil(t, ve)
		assert.Equal(t, "email", ve.Fields[0].Field)
	})

	t.Run("emailOptional", func(t *testing.T) {
		assert.Nil(t, ValidateCustomer(ok, domain.DeliveryInfo{Type: domain.OrderTakeout}))
	})

	t.Run("deliveryNeedsAddress", func(t *testing.T) {
		ve := ValidateCustomer(ok, domain.DeliveryInfo{Type: domain.OrderDelivery})
		require.NotNil(t, ve)
		fields := make([]string, 0, len(ve.Fields))
		for _, f := range ve.Fields {
			fields = append(fields, f.Field)
		}
		assert.ElementsMatch(t, []string{"address", "city", "zip"}, fields)
	})

	t.Run("deliveryComplete", func(t *testing.T) {
		d := domain.DeliveryInfo{Type: domain.OrderDelivery, Address: "Via Roma 1", City: "Bologna", Zip: "40100"}
		assert.Nil(t, ValidateCustomer(ok, d))
	})
}

func TestValidatePayment(t *testing.T) {
	now := time.Date(2024, 7, 15, 12, 0, 0, 0, time.UTC)

	t.Run("cash", func(t *testing.T) {
		assert.Nil(t, ValidatePayment(domain.PaymentInfo{Method: domain.PayCash}, now))
	})

	t.Run("cardValid", func(t *testing.T) {
		p := domain.PaymentInfo{Method: domain.PayCard, Card: &domain.CardDetails{
			Number: "4539578763621486", Holder: "Mario Rossi", Expiry: "12/25", CVC: "123",
		}}
		assert.Nil(t, ValidatePayment(p, now))
	})

	t.Run("cardMissing", func(t *testing.T) {
		ve := ValidatePayment(domain.PaymentInfo{Method: domain.PayCard}, now)
		require.NotNil(t, ve)
		assert.Equal(t, "card", ve.Fields[0].Field)
	})

	t.Run("badNumber", func(t *testing.T) {
		p := domain.PaymentInfo{Method: domain.PayCard, Card: &domain.CardDetails{
			Number: "4539578763621487", Expiry: "12/25", CVC: "123",
		}}
		ve := ValidatePayment(p, now)
		require.NotNil(t, ve)
		assert.Equal(t, "card_number", ve.Fields[0].Field)
	})

	t.Run("badCVC", func(t *testing.T) {
		p := domain.PaymentInfo{Method: domain.PayCard, Card: &domain.CardDetails{
			Number: "4539578763621486", Expiry: "12/25", CVC: "12",
		}}
		ve := ValidatePayment(p, now)
		require.NotNil(t, ve)
		assert.Equal(t, "card_cvc", ve.Fields[0].Field)
	})
}

func TestValidExpiry(t *testing.T) {
	now := time.Date(2024, 7, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		expiry string
		want   bool
	}{
		{"futureYear", "01/25", true},
		{"nextMonth", "08/24", true},
		{"currentMonthExpired", "07/24", false},
		{"pastYear", "12/23", false},
		{"badMonth", "13/25", false},
		{"fourDigitYear", "12/2030", false},
		{"negativeYear", "12/-5", false},
		{"garbage", "banana", false},
		{"missingSlash", "1225", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, validExpiry(tt.expiry, now))
		})
	}
}
