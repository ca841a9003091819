package p2c

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/taquillave/p2c-gateway/internal/domain"
)

// Identifier type letters accepted by the gateway. V (venezolano) is the
// default when the caller sends bare digits.
const defaultIdentifierType = "V"

var identifierTypes = map[string]bool{
	"V": true, // natural, Venezuelan
	"E": true, // natural, foreign resident
	"J": true, // juridical (RIF)
	"G": true, // government
}

// Mobile prefixes with P2C coverage. Landlines and foreign numbers cannot
// receive the debit confirmation.
var mobilePrefixes = map[string]bool{
	"0412": true,
	"0414": true,
	"0416": true,
	"0424": true,
	"0426": true,
}

// FormatIdentifier normalizes a national id into the gateway's cid shape:
// one type letter followed by 7 to 9 digits. Separators (dots, dashes,
// spaces) are stripped and the type letter defaults to V when absent.
//
// When the cleaned value still doesn't fit the shape, the digits are
// extracted wholesale and the default type assumed; recovered reports that
// this lossy path was taken so callers can flag the original input.
func FormatIdentifier(raw string) (cid string, recovered bool, err error) {
	cleaned := strings.ToUpper(strings.TrimSpace(raw))
	cleaned = strings.NewReplacer(".", "", "-", "", " ", "").Replace(cleaned)

	if cleaned != "" {
		letter := string(cleaned[0])
		if identifierTypes[letter] && isDigits(cleaned[1:]) && digitCountOK(cleaned[1:]) {
			return cleaned, false, nil
		}
		if isDigits(cleaned) && digitCountOK(cleaned) {
			return defaultIdentifierType + cleaned, false, nil
		}
	}

	// Recovery: keep only digits, assume the default type
	digits := keepDigits(raw)
	if digitCountOK(digits) {
		return defaultIdentifierType + digits, true, nil
	}

	return "", false, domain.NewDomainError(domain.ErrorCodeInvalidIdentifier,
		"identifier must be an optional type letter (V, E, J, G) followed by 7 to 9 digits").
		WithDetail("identifier", raw)
}

// FormatPhone normalizes a buyer phone into the gateway's 11-digit national
// shape (0XXX + 7 digits). The +58 country prefix and a dropped leading zero
// are tolerated; only mobile prefixes with P2C coverage are accepted.
func FormatPhone(raw string) (string, error) {
	digits := keepDigits(raw)

	switch {
	case len(digits) == 12 && strings.HasPrefix(digits, "58"):
		digits = "0" + digits[2:]
	case len(digits) == 10 && !strings.HasPrefix(digits, "0"):
		digits = "0" + digits
	}

	if len(digits) != 11 || !mobilePrefixes[digits[:4]] {
		return "", domain.NewDomainError(domain.ErrorCodeInvalidPhone,
			"phone must be a national mobile number (0412, 0414, 0416, 0424 or 0426 plus 7 digits)").
			WithDetail("phone", raw)
	}

	return digits, nil
}

// FormatAmount renders a positive amount with exactly two decimals, the only
// shape the gateway accepts for monto.
func FormatAmount(amount decimal.Decimal) (string, error) {
	if amount.Sign() <= 0 {
		return "", domain.NewDomainError(domain.ErrorCodeInvalidAmount,
			"amount must be greater than zero").
			WithDetail("amount", amount.String())
	}
	return amount.StringFixed(2), nil
}

// ParseAmount parses a decimal amount from user input
func ParseAmount(raw string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, domain.WrapError(domain.ErrorCodeInvalidAmount,
			"amount is not a valid decimal number", err).
			WithDetail("amount", raw)
	}
	return amount, nil
}

// NewReference derives a fresh 8-digit bank reference from the clock.
// Callers that already hold a bank-assigned reference pass it through instead.
func NewReference() string {
	return fmt.Sprintf("%08d", time.Now().UnixMilli()%100000000)
}

// NewInvoice builds a collision-resistant invoice number: a second-resolution
// timestamp plus a 3-digit random suffix.
func NewInvoice() string {
	return fmt.Sprintf("%s%03d", time.Now().Format("20060102150405"), rand.Intn(1000))
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func digitCountOK(s string) bool {
	return len(s) >= 7 && len(s) <= 9 && isDigits(s)
}

func keepDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
