package postgres

import (
	"bytes"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// nullText creates a pgtype.Text from an optional string
func nullText(s *string) pgtype.Text {
	if s == nil || *s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: *s, Valid: true}
}

// textPtr converts a pgtype.Text back to an optional string
func textPtr(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	s := t.String
	return &s
}

// decimalToNumeric converts a decimal.Decimal to pgtype.Numeric
func decimalToNumeric(d decimal.Decimal) (pgtype.Numeric, error) {
	var n pgtype.Numeric
	if err := n.Scan(d.String()); err != nil {
		return n, fmt.Errorf("convert amount: %w", err)
	}
	return n, nil
}

// numericToDecimal converts a pgtype.Numeric to decimal.Decimal. The
// JSON round trip is the one text rendering pgtype exposes for numerics.
func numericToDecimal(n pgtype.Numeric) (decimal.Decimal, error) {
	buf, err := n.MarshalJSON()
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("encode numeric: %w", err)
	}
	return decimal.NewFromString(string(bytes.Trim(buf, `"`)))
}
