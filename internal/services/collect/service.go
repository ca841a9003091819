// Package collect runs the full debit conversation against the payments
// ledger: one row per invoice, the control number persisted between the two
// gateway steps, and query-before-resend recovery when a purchase send ends
// with an unknown outcome.
package collect

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/taquillave/p2c-gateway/internal/adapters/p2c"
	"github.com/taquillave/p2c-gateway/internal/adapters/postgres"
	"github.com/taquillave/p2c-gateway/internal/domain"
	"github.com/taquillave/p2c-gateway/pkg/observability"
	"github.com/taquillave/p2c-gateway/pkg/resilience"
	"github.com/taquillave/p2c-gateway/pkg/security"
)

// GatewayClient is the protocol surface the service drives
type GatewayClient interface {
	PreRegister(ctx context.Context) (*p2c.PreRegistration, error)
	Authorize(ctx context.Context, req p2c.PurchaseRequest) (*p2c.Result, error)
	QueryStatus(ctx context.Context, query p2c.StatusQuery) (*p2c.Result, error)
}

// Ledger is the persistence surface the service drives
type Ledger interface {
	Create(ctx context.Context, payment *domain.Payment) error
	SetControl(ctx context.Context, invoice, control string) error
	MarkOutcome(ctx context.Context, invoice string, outcome postgres.Outcome) error
	GetByInvoice(ctx context.Context, invoice string) (*domain.Payment, error)
	GetByControl(ctx context.Context, control string) (*domain.Payment, error)
	ListPending(ctx context.Context, limit int32) ([]*domain.Payment, error)
}

// Options tunes the service's idempotency and recovery posture
type Options struct {
	// Environment is stamped on ledger rows and metrics
	Environment string

	// PendingGrace is how long a pending row is considered owned by a live
	// collect. Older pending rows may be taken over or swept.
	PendingGrace time.Duration

	// SweepLimit bounds how many unresolved rows one recovery sweep handles
	SweepLimit int32

	Timeouts *resilience.TimeoutConfig
}

// DefaultOptions returns the posture for an environment
func DefaultOptions(environment string) Options {
	timeouts := resilience.DefaultTimeoutConfig()
	if environment != string(p2c.EnvironmentProduction) {
		timeouts = resilience.SandboxTimeoutConfig()
	}
	return Options{
		Environment:  environment,
		PendingGrace: 10 * time.Minute,
		SweepLimit:   50,
		Timeouts:     timeouts,
	}
}

// Service coordinates gateway and ledger so that every purchase attempt
// leaves an auditable row and no invoice is ever charged twice
type Service struct {
	client GatewayClient
	ledger Ledger
	logger *zap.Logger
	opts   Options
}

// NewService creates a collect service
func NewService(client GatewayClient, ledger Ledger, logger *zap.Logger, opts Options) *Service {
	if opts.PendingGrace <= 0 {
		opts.PendingGrace = 10 * time.Minute
	}
	if opts.SweepLimit <= 0 {
		opts.SweepLimit = 50
	}
	if opts.Timeouts == nil {
		opts.Timeouts = resilience.DefaultTimeoutConfig()
	}
	return &Service{
		client: client,
		ledger: ledger,
		logger: logger,
		opts:   opts,
	}
}

// Request describes one collection. Invoice and Reference are generated when
// empty; buyer fields arrive raw and are normalized before anything is
// persisted or sent.
type Request struct {
	Invoice       string
	Reference     string
	CustomerPhone string
	CustomerBank  string
	CustomerID    string
	Amount        decimal.Decimal
}

// Collect authorizes one debit, idempotently by invoice. Calling it again
// with an invoice that already resolved returns the stored outcome without
// touching the gateway; an invoice currently being worked is a conflict.
func (s *Service) Collect(ctx context.Context, req Request) (*domain.Payment, error) {
	ctx, cancel := s.opts.Timeouts.ServiceContext(ctx)
	defer cancel()

	start := time.Now()

	phone, err := p2c.FormatPhone(req.CustomerPhone)
	if err != nil {
		return nil, err
	}
	bank, err := p2c.NormalizeBankCode(req.CustomerBank)
	if err != nil {
		return nil, err
	}
	cid, recovered, err := p2c.FormatIdentifier(req.CustomerID)
	if err != nil {
		return nil, err
	}
	if recovered {
		s.logger.Warn("Recovered malformed national id, assuming default type",
			zap.String("identifier", security.MaskIdentifier(req.CustomerID)),
			zap.String("cid", security.MaskIdentifier(cid)),
		)
	}
	if _, err := p2c.FormatAmount(req.Amount); err != nil {
		return nil, err
	}

	invoice := strings.TrimSpace(req.Invoice)
	if invoice == "" {
		invoice = p2c.NewInvoice()
	}
	reference := strings.TrimSpace(req.Reference)
	if reference == "" {
		reference = p2c.NewReference()
	}

	existing, err := s.ledger.GetByInvoice(ctx, invoice)
	if err == nil {
		return s.resume(ctx, existing, start)
	}
	if !domain.IsDomainError(err, domain.ErrorCodeLedgerNotFound) {
		return nil, err
	}

	payment := &domain.Payment{
		Invoice:       invoice,
		Reference:     reference,
		CustomerID:    cid,
		CustomerPhone: phone,
		CustomerBank:  bank,
		Amount:        req.Amount,
		Environment:   s.opts.Environment,
		Status:        domain.PaymentStatusPending,
	}
	if err := s.ledger.Create(ctx, payment); err != nil {
		// A concurrent collect won the insert race; its row owns the invoice
		return nil, err
	}

	s.logger.Info("Collection started",
		zap.String("invoice", invoice),
		zap.String("customer_phone", security.MaskPhone(phone)),
		zap.String("customer_bank", bank),
		zap.String("amount", payment.Amount.StringFixed(2)),
	)

	return s.runFlow(ctx, payment, start)
}

// Status returns the ledger row for an invoice
func (s *Service) Status(ctx context.Context, invoice string) (*domain.Payment, error) {
	ctx, cancel := s.opts.Timeouts.SimpleQueryContext(ctx)
	defer cancel()
	return s.ledger.GetByInvoice(ctx, invoice)
}

// resume decides what a repeat collect for a known invoice means
func (s *Service) resume(ctx context.Context, payment *domain.Payment, start time.Time) (*domain.Payment, error) {
	if payment.IsFinal() {
		s.logger.Info("Returning stored outcome for invoice",
			zap.String("invoice", payment.Invoice),
			zap.String("status", string(payment.Status)),
		)
		return payment, nil
	}

	if payment.NeedsRecovery() {
		return s.recover(ctx, payment, start, true)
	}

	// Still pending: either a live collect owns it, or its owner died
	if time.Since(payment.UpdatedAt) < s.opts.PendingGrace {
		return nil, domain.NewDomainError(domain.ErrorCodeLedgerConflict,
			fmt.Sprintf("invoice %s is already being processed", payment.Invoice)).
			WithDetail("invoice", payment.Invoice).
			WithDetail("status", string(payment.Status))
	}

	if payment.Control != "" {
		// Died between pre-registration and a settled outcome; the purchase
		// may or may not have reached the bank
		return s.recover(ctx, payment, start, true)
	}

	// Died before pre-registration: no money at risk, start the flow over
	s.logger.Info("Taking over stale pending invoice",
		zap.String("invoice", payment.Invoice),
		zap.Time("abandoned_at", payment.UpdatedAt),
	)
	return s.runFlow(ctx, payment, start)
}

// runFlow executes pre-registration, persists the control, then purchases
func (s *Service) runFlow(ctx context.Context, payment *domain.Payment, start time.Time) (*domain.Payment, error) {
	pre, err := s.client.PreRegister(ctx)
	if err != nil {
		// Nothing was charged; the row stays pending for takeover or sweep
		return nil, err
	}

	payment.Control = pre.Control
	if err := s.ledger.SetControl(ctx, payment.Invoice, pre.Control); err != nil {
		return nil, err
	}

	return s.purchase(ctx, payment, start, true)
}

// purchase sends the authorization. When the send ends unreachable the row
// is parked as such first, then recovery may settle it by query.
func (s *Service) purchase(ctx context.Context, payment *domain.Payment, start time.Time, allowRecovery bool) (*domain.Payment, error) {
	result, err := s.client.Authorize(ctx, p2c.PurchaseRequest{
		CustomerPhone: payment.CustomerPhone,
		CustomerBank:  payment.CustomerBank,
		CustomerID:    payment.CustomerID,
		Amount:        payment.Amount,
		Invoice:       payment.Invoice,
		Reference:     payment.Reference,
		Control:       payment.Control,
	})
	if err != nil {
		if domain.IsRetryable(err) {
			s.parkUnreachable(ctx, payment)
			if allowRecovery {
				return s.recover(ctx, payment, start, false)
			}
		}
		return nil, err
	}

	return s.settle(ctx, payment, result, start)
}

// recover settles an unknown-outcome purchase by asking the gateway what it
// saw. Resending happens at most once per call chain, and only after the
// query confirms no authorization exists for the control.
func (s *Service) recover(ctx context.Context, payment *domain.Payment, start time.Time, allowResend bool) (*domain.Payment, error) {
	if payment.Control == "" {
		return nil, domain.NewDomainError(domain.ErrorCodeMissingControl,
			"cannot recover a purchase that never reached pre-registration").
			WithDetail("invoice", payment.Invoice)
	}

	s.logger.Info("Recovering unresolved purchase by control",
		zap.String("invoice", payment.Invoice),
		zap.String("control", payment.Control),
	)

	result, err := s.client.QueryStatus(ctx, p2c.StatusQuery{Control: payment.Control})
	if err != nil {
		// Outcome still unknown; the row stays unreachable for the sweep
		observability.RecordRecovery(s.opts.Environment, "unresolved")
		return nil, err
	}

	if result.Approved {
		// The first send did land; adopting it is the whole point of
		// querying before resending
		observability.RecordRecovery(s.opts.Environment, "confirmed")
		return s.settle(ctx, payment, result, start)
	}

	if result.Invoice != "" && result.Invoice == payment.Invoice {
		// The bank saw our purchase and declined it
		observability.RecordRecovery(s.opts.Environment, "declined")
		return s.settle(ctx, payment, result, start)
	}

	if !allowResend {
		observability.RecordRecovery(s.opts.Environment, "unresolved")
		return nil, domain.NewDomainError(domain.ErrorCodeGatewayUnreachable,
			"purchase outcome unknown and resend budget exhausted").
			WithDetail("invoice", payment.Invoice).
			WithDetail("control", payment.Control)
	}

	s.logger.Info("No authorization on record, resending purchase once",
		zap.String("invoice", payment.Invoice),
		zap.String("control", payment.Control),
	)
	observability.RecordRecovery(s.opts.Environment, "resent")
	return s.purchase(ctx, payment, start, false)
}

// settle records the gateway's answer and finishes the collection
func (s *Service) settle(ctx context.Context, payment *domain.Payment, result *p2c.Result, start time.Time) (*domain.Payment, error) {
	status := domain.PaymentStatusDeclined
	if result.Approved {
		status = domain.PaymentStatusAuthorized
	}

	outcome := postgres.Outcome{
		Status:        status,
		GatewayCode:   optional(result.Code),
		Description:   optional(result.Description),
		Sequence:      optional(result.Sequence),
		Authorization: optional(result.Authorization),
		Voucher:       optional(strings.Join(result.VoucherLines, "\n")),
	}
	if err := s.ledger.MarkOutcome(ctx, payment.Invoice, outcome); err != nil {
		return nil, err
	}

	payment.Status = status
	payment.GatewayCode = outcome.GatewayCode
	payment.Description = outcome.Description
	payment.Sequence = outcome.Sequence
	payment.Authorization = outcome.Authorization
	payment.Voucher = outcome.Voucher

	observability.RecordCollection(s.opts.Environment, string(status), result.Code,
		payment.Amount.InexactFloat64(), time.Since(start).Seconds())

	s.logger.Info("Collection settled",
		zap.String("invoice", payment.Invoice),
		zap.String("status", string(status)),
		zap.String("gateway_code", result.Code),
	)

	return payment, nil
}

// parkUnreachable marks the row unknown-outcome. It must land even when the
// caller's deadline already expired, hence the detached context.
func (s *Service) parkUnreachable(ctx context.Context, payment *domain.Payment) {
	mctx, cancel := s.opts.Timeouts.SimpleQueryContext(context.WithoutCancel(ctx))
	defer cancel()

	payment.Status = domain.PaymentStatusUnreachable
	if err := s.ledger.MarkOutcome(mctx, payment.Invoice, postgres.Outcome{
		Status: domain.PaymentStatusUnreachable,
	}); err != nil {
		s.logger.Error("Failed to park unreachable payment",
			zap.String("invoice", payment.Invoice),
			zap.Error(err),
		)
	}
}

// RecoverPending sweeps unresolved ledger rows: unreachable purchases are
// settled by query (resending at most once when the gateway has no record),
// and pending rows abandoned before pre-registration are closed out. Returns
// how many rows reached a settled state.
func (s *Service) RecoverPending(ctx context.Context) (int, error) {
	ctx, cancel := s.opts.Timeouts.CommandContext(ctx)
	defer cancel()

	rows, err := s.ledger.ListPending(ctx, s.opts.SweepLimit)
	if err != nil {
		return 0, err
	}

	settled := 0
	for _, payment := range rows {
		if payment.Status == domain.PaymentStatusPending &&
			time.Since(payment.UpdatedAt) < s.opts.PendingGrace {
			// A live collect still owns this row
			continue
		}

		if payment.Control == "" {
			// Never pre-registered, so nothing was ever at risk
			description := "Abandonada antes del pre-registro"
			if err := s.ledger.MarkOutcome(ctx, payment.Invoice, postgres.Outcome{
				Status:      domain.PaymentStatusDeclined,
				Description: &description,
			}); err != nil {
				s.logger.Warn("Failed to close abandoned payment",
					zap.String("invoice", payment.Invoice),
					zap.Error(err),
				)
				continue
			}
			observability.RecordRecovery(s.opts.Environment, "abandoned")
			settled++
			continue
		}

		if _, err := s.recover(ctx, payment, time.Now(), true); err != nil {
			s.logger.Warn("Recovery attempt failed",
				zap.String("invoice", payment.Invoice),
				zap.String("control", payment.Control),
				zap.Error(err),
			)
			continue
		}
		settled++
	}

	return settled, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
