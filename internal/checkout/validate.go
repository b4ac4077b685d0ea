package checkout

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"pizzeria-system/internal/domain"
)

var (
	phoneRe = regexp.MustCompile(`^\+?[\d\s-]{10,}$`)
	emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	cvcRe   = regexp.MustCompile(`^\d{3,4}$`)
)

// ValidateCustomer checks the customer-info step. Address fields are
// required only for home delivery. Returns nil when everything passes.
func ValidateCustomer(c domain.Customer, d domain.DeliveryInfo) *domain.ValidationError {
	ve := &domain.ValidationError{}

	if len(strings.TrimSpace(c.Name)) < 2 {
		ve.Add("name", "at least 2 characters required")
	}
	if !validPhone(c.Phone) {
		ve.Add("phone", "at least 10 digits required")
	}
	if c.Email != "" && !emailRe.MatchString(c.Email) {
		ve.Add("email", "invalid email address")
	}

	switch d.Type {
	case domain.OrderDelivery:
		if strings.TrimSpace(d.Address) == "" {
			ve.Add("address", "required for home delivery")
		}
		if strings.TrimSpace(d.City) == "" {
			ve.Add("city", "required for home delivery")
		}
		if strings.TrimSpace(d.Zip) == "" {
			ve.Add("zip", "required for home delivery")
		}
	case domain.OrderTakeout, domain.OrderDineIn:
	default:
		ve.Add("delivery_type", "unknown delivery type")
	}

	if ve.Empty() {
		return nil
	}
	return ve
}

// ValidatePayment checks the payment step. Card details are validated only
// when the method is card.
func ValidatePayment(p domain.PaymentInfo, now time.Time) *domain.ValidationError {
	ve := &domain.ValidationError{}

	switch p.Method {
	case domain.PayCash, domain.PaySatispay:
	case domain.PayCard:
		if p.Card == nil {
			ve.Add("card", "card details required")
			break
		}
		if !Luhn(p.Card.Number) {
			ve.Add("card_number", "invalid card number")
		}
		if !validExpiry(p.Card.Expiry, now) {
			ve.Add("card_expiry", "expiry must be a future month")
		}
		if !cvcRe.MatchString(p.Card.CVC) {
			ve.Add("card_cvc", "3 or 4 digits required")
		}
	default:
		ve.Add("payment_method", "unknown payment method")
	}

	if ve.Empty() {
		return nil
	}
	return ve
}

func validPhone(s string) bool {
	s = strings.TrimSpace(s)
	if !phoneRe.MatchString(s) {
		return false
	}
	digits := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	return digits >= 10
}

// Luhn reports whether the card number passes the Luhn checksum. Spaces are
// ignored; any other non-digit fails.
func Luhn(number string) bool {
	number = strings.ReplaceAll(number, " ", "")
	if number == "" {
		return false
	}
	sum := 0
	double := false
	for i := len(number) - 1; i >= 0; i-- {
		c := number[i]
		if c < '0' || c > '9' {
			return false
		}
		d := int(c - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

// validExpiry parses MM/YY and requires the expiry month to lie after now.
func validExpiry(expiry string, now time.Time) bool {
	parts := strings.SplitN(expiry, "/", 2)
	if len(parts) != 2 {
		return false
	}
	month, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || month < 1 || month > 12 {
		return false
	}
	year, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil || year < 0 || year > 99 {
		// two-digit years only; "12/2030" would otherwise read as 4030
		return false
	}
	exp := time.Date(2000+year, time.Month(month), 1, 0, 0, 0, 0, now.Location())
	return exp.After(now)
}
