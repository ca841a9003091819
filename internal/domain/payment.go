package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus represents the lifecycle state of a ledger entry
type PaymentStatus string

const (
	PaymentStatusPending     PaymentStatus = "pending"     // Control assigned, purchase not yet resolved
	PaymentStatusAuthorized  PaymentStatus = "authorized"  // Gateway approved (codigo='00')
	PaymentStatusDeclined    PaymentStatus = "declined"    // Gateway answered with a non-approval code
	PaymentStatusUnreachable PaymentStatus = "unreachable" // Purchase outcome unknown, needs recovery query
)

// Payment is one ledger entry per purchase attempt. The control number ties
// the local row to the gateway conversation so an interrupted purchase can be
// recovered by querying instead of resending.
type Payment struct {
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	Authorization *string         `json:"authorization"`
	GatewayCode   *string         `json:"gateway_code"`
	Description   *string         `json:"description"`
	Sequence      *string         `json:"sequence"`
	Voucher       *string         `json:"voucher"`
	ID            string          `json:"id"`
	Invoice       string          `json:"invoice"`
	Control       string          `json:"control"`
	Reference     string          `json:"reference"`
	CustomerID    string          `json:"customer_id"`
	CustomerPhone string          `json:"customer_phone"`
	CustomerBank  string          `json:"customer_bank"`
	Environment   string          `json:"environment"`
	Status        PaymentStatus   `json:"status"`
	Amount        decimal.Decimal `json:"amount"`
}

// IsFinal returns true once the gateway has answered for this payment
func (p *Payment) IsFinal() bool {
	return p.Status == PaymentStatusAuthorized || p.Status == PaymentStatusDeclined
}

// NeedsRecovery returns true if the purchase outcome must be confirmed by a
// status query before any resend
func (p *Payment) NeedsRecovery() bool {
	return p.Status == PaymentStatusUnreachable
}

// GetAuthorization safely retrieves the gateway authorization number
func (p *Payment) GetAuthorization() string {
	if p.Authorization != nil {
		return *p.Authorization
	}
	return ""
}

// GetGatewayCode safely retrieves the last gateway response code
func (p *Payment) GetGatewayCode() string {
	if p.GatewayCode != nil {
		return *p.GatewayCode
	}
	return ""
}
