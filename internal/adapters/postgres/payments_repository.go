package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/taquillave/p2c-gateway/internal/domain"
)

// DBTX is the querying surface shared by pgxpool.Pool and pgx.Tx, so the
// repository runs the same inside and outside a transaction
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PaymentsRepository persists one ledger row per purchase attempt. The
// invoice uniqueness constraint is the idempotency lock: two concurrent
// collects for one invoice cannot both insert.
type PaymentsRepository struct {
	db DBTX
}

// NewPaymentsRepository creates a repository over a pool or transaction
func NewPaymentsRepository(db DBTX) *PaymentsRepository {
	return &PaymentsRepository{db: db}
}

const paymentColumns = `id, invoice, control, reference, customer_id, customer_phone,
	customer_bank, amount, status, gateway_code, description, sequence_number,
	authorization_code, voucher, environment, created_at, updated_at`

// Create inserts a new ledger row. A duplicate invoice fails with
// LEDGER_CONFLICT; callers treat that as "someone else owns this invoice".
func (r *PaymentsRepository) Create(ctx context.Context, payment *domain.Payment) error {
	if payment.ID == "" {
		payment.ID = uuid.NewString()
	}
	if payment.Status == "" {
		payment.Status = domain.PaymentStatusPending
	}

	amount, err := decimalToNumeric(payment.Amount)
	if err != nil {
		return domain.WrapError(domain.ErrorCodeInternalDatabaseError, "failed to encode amount", err)
	}

	err = r.db.QueryRow(ctx, `
		INSERT INTO payments (
			id, invoice, control, reference, customer_id, customer_phone,
			customer_bank, amount, status, environment
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at`,
		payment.ID,
		payment.Invoice,
		payment.Control,
		payment.Reference,
		payment.CustomerID,
		payment.CustomerPhone,
		payment.CustomerBank,
		amount,
		string(payment.Status),
		payment.Environment,
	).Scan(&payment.CreatedAt, &payment.UpdatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return domain.WrapError(domain.ErrorCodeLedgerConflict,
				fmt.Sprintf("a payment for invoice %s already exists", payment.Invoice), err).
				WithDetail("invoice", payment.Invoice)
		}
		return domain.WrapError(domain.ErrorCodeInternalDatabaseError, "failed to create payment", err)
	}

	return nil
}

// SetControl records the control number issued at pre-registration, before
// the purchase is sent. Recovery depends on this write happening first.
func (r *PaymentsRepository) SetControl(ctx context.Context, invoice, control string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE payments
		SET control = $2, updated_at = now()
		WHERE invoice = $1`,
		invoice, control,
	)
	if err != nil {
		return domain.WrapError(domain.ErrorCodeInternalDatabaseError, "failed to set control", err)
	}
	if tag.RowsAffected() == 0 {
		return notFound("invoice", invoice)
	}
	return nil
}

// Outcome carries what the gateway answered for a purchase
type Outcome struct {
	Status        domain.PaymentStatus
	GatewayCode   *string
	Description   *string
	Sequence      *string
	Authorization *string
	Voucher       *string
}

// MarkOutcome moves a ledger row to its resolved state
func (r *PaymentsRepository) MarkOutcome(ctx context.Context, invoice string, outcome Outcome) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE payments
		SET status = $2,
			gateway_code = $3,
			description = $4,
			sequence_number = $5,
			authorization_code = $6,
			voucher = $7,
			updated_at = now()
		WHERE invoice = $1`,
		invoice,
		string(outcome.Status),
		nullText(outcome.GatewayCode),
		nullText(outcome.Description),
		nullText(outcome.Sequence),
		nullText(outcome.Authorization),
		nullText(outcome.Voucher),
	)
	if err != nil {
		return domain.WrapError(domain.ErrorCodeInternalDatabaseError, "failed to mark payment outcome", err)
	}
	if tag.RowsAffected() == 0 {
		return notFound("invoice", invoice)
	}
	return nil
}

// GetByInvoice retrieves the ledger row for an invoice
func (r *PaymentsRepository) GetByInvoice(ctx context.Context, invoice string) (*domain.Payment, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE invoice = $1`,
		invoice,
	)
	payment, err := scanPayment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("invoice", invoice)
		}
		return nil, domain.WrapError(domain.ErrorCodeInternalDatabaseError, "failed to get payment by invoice", err)
	}
	return payment, nil
}

// GetByControl retrieves the newest ledger row holding a control number.
// Controls are gateway-scoped and can recur across days, so newest wins.
func (r *PaymentsRepository) GetByControl(ctx context.Context, control string) (*domain.Payment, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+paymentColumns+` FROM payments
		WHERE control = $1
		ORDER BY created_at DESC
		LIMIT 1`,
		control,
	)
	payment, err := scanPayment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("control", control)
		}
		return nil, domain.WrapError(domain.ErrorCodeInternalDatabaseError, "failed to get payment by control", err)
	}
	return payment, nil
}

// ListPending returns unresolved rows, oldest first, for the recovery sweep
func (r *PaymentsRepository) ListPending(ctx context.Context, limit int32) ([]*domain.Payment, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+paymentColumns+` FROM payments
		WHERE status = ANY($1)
		ORDER BY created_at ASC
		LIMIT $2`,
		[]string{string(domain.PaymentStatusPending), string(domain.PaymentStatusUnreachable)},
		limit,
	)
	if err != nil {
		return nil, domain.WrapError(domain.ErrorCodeInternalDatabaseError, "failed to list pending payments", err)
	}
	defer rows.Close()

	var payments []*domain.Payment
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, domain.WrapError(domain.ErrorCodeInternalDatabaseError, "failed to scan pending payment", err)
		}
		payments = append(payments, payment)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.WrapError(domain.ErrorCodeInternalDatabaseError, "failed to read pending payments", err)
	}

	return payments, nil
}

// scanPayment maps one row onto the domain model. The column order must
// match paymentColumns.
func scanPayment(row pgx.Row) (*domain.Payment, error) {
	var (
		payment       domain.Payment
		amount        pgtype.Numeric
		status        string
		gatewayCode   pgtype.Text
		description   pgtype.Text
		sequence      pgtype.Text
		authorization pgtype.Text
		voucher       pgtype.Text
	)

	err := row.Scan(
		&payment.ID,
		&payment.Invoice,
		&payment.Control,
		&payment.Reference,
		&payment.CustomerID,
		&payment.CustomerPhone,
		&payment.CustomerBank,
		&amount,
		&status,
		&gatewayCode,
		&description,
		&sequence,
		&authorization,
		&voucher,
		&payment.Environment,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	payment.Amount, err = numericToDecimal(amount)
	if err != nil {
		return nil, err
	}
	payment.Status = domain.PaymentStatus(status)
	payment.GatewayCode = textPtr(gatewayCode)
	payment.Description = textPtr(description)
	payment.Sequence = textPtr(sequence)
	payment.Authorization = textPtr(authorization)
	payment.Voucher = textPtr(voucher)

	return &payment, nil
}

func notFound(key, value string) error {
	return domain.NewDomainError(domain.ErrorCodeLedgerNotFound,
		fmt.Sprintf("no payment found for %s %s", key, value)).
		WithDetail(key, value)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
