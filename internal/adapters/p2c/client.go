// Package p2c implements the client side of the bank's P2C (pago móvil
// person-to-commerce) gateway protocol: pre-registration, purchase
// authorization, and status query as order-sensitive XML over HTTP POST.
package p2c

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/taquillave/p2c-gateway/internal/adapters/ports"
	"github.com/taquillave/p2c-gateway/internal/domain"
	pkghttp "github.com/taquillave/p2c-gateway/pkg/http"
	"github.com/taquillave/p2c-gateway/pkg/security"
)

const (
	pathPreRegister = "/preregistro"
	pathPurchase    = "/compra"
	pathQuery       = "/consulta"

	// TransactionKindP2C is the tipoTransaccion value for this flow
	TransactionKindP2C = "P2C"

	requestRoot  = "request"
	responseRoot = "response"
)

// Client drives the three-step P2C protocol against one gateway environment.
// It is stateless and safe for concurrent use; all conversation posture
// lives in the injected Profile.
type Client struct {
	profile   Profile
	transport *transport
	logger    *zap.Logger
}

// NewClient creates a client over the given HTTP client. Pass a tuned client
// in production and a mock in tests.
func NewClient(profile Profile, httpClient ports.HTTPClient, logger *zap.Logger) (*Client, error) {
	if err := profile.Validate(); err != nil {
		return nil, err
	}

	return &Client{
		profile:   profile,
		transport: newTransport(profile, httpClient, logger),
		logger:    logger,
	}, nil
}

// NewDefaultClient creates a client with an HTTP client tuned for the
// single-host gateway
func NewDefaultClient(profile Profile, logger *zap.Logger) (*Client, error) {
	httpClient := pkghttp.NewHTTPClient(pkghttp.GatewayClientConfig(), profile.Timeout)
	return NewClient(profile, httpClient, logger)
}

// Profile returns the profile this client was built with
func (c *Client) Profile() Profile {
	return c.profile
}

// PreRegistration is the gateway's answer to a pre-registration request
type PreRegistration struct {
	Control     string `json:"control"`
	Code        string `json:"code"`
	Description string `json:"description"`
	Environment string `json:"environment"`
}

// PurchaseRequest describes one debit to authorize. CustomerPhone,
// CustomerBank and CustomerID arrive raw and are normalized here; Invoice and
// Reference are generated when empty; Control must come from pre-registration
// (or from a recovery query).
type PurchaseRequest struct {
	CustomerPhone string
	CustomerBank  string
	CustomerID    string
	Amount        decimal.Decimal
	Invoice       string
	Reference     string
	Control       string
}

// StatusQuery asks the gateway what became of a purchase identified by its
// control number
type StatusQuery struct {
	Control string
	Kind    string // transaction kind, defaults to P2C
}

// PreRegister opens a debit conversation and obtains the control number that
// ties the upcoming purchase to it. A gateway refusal is an error here
// (PREREGISTRATION_FAILED): there is nothing to decline yet.
func (c *Client) PreRegister(ctx context.Context) (*PreRegistration, error) {
	body, err := EncodeDocument(requestRoot, Fields{
		{Name: "afiliacion", Value: c.profile.Affiliation},
	})
	if err != nil {
		return nil, c.enrich(domain.WrapError(domain.ErrorCodeInternalError, "failed to encode pre-registration request", err))
	}

	c.logger.Info("Pre-registering P2C payment",
		zap.String("affiliation", c.profile.Affiliation),
		zap.String("environment", string(c.profile.Environment)),
	)

	respBody, err := c.transport.Send(ctx, pathPreRegister, body)
	if err != nil {
		return nil, err
	}

	fields, err := c.decodeResponse(respBody)
	if err != nil {
		return nil, err
	}

	code := fields.GetOr("codigo", "")
	description := fields.GetOr("descripcion", GetResponseCode(code).Description)

	if !IsApproved(code) {
		return nil, c.enrich(domain.NewDomainError(domain.ErrorCodePreRegistrationFailed,
			fmt.Sprintf("gateway refused pre-registration: %s", description)).
			WithDetail("gateway_code", code).
			WithDetail("gateway_description", description))
	}

	control := strings.TrimSpace(fields.GetOr("control", ""))
	if control == "" {
		return nil, c.enrich(domain.NewDomainError(domain.ErrorCodeMissingControl,
			"gateway approved pre-registration without a control number").
			WithDetail("gateway_code", code))
	}

	c.logger.Info("Pre-registration approved", zap.String("control", control))

	return &PreRegistration{
		Control:     control,
		Code:        code,
		Description: description,
		Environment: string(c.profile.Environment),
	}, nil
}

// Authorize sends the purchase under an existing control number. The answer
// is always a Result when the conversation completes: approval and decline
// both come back with err == nil, and Result.Approved tells them apart.
func (c *Client) Authorize(ctx context.Context, req PurchaseRequest) (*Result, error) {
	control := strings.TrimSpace(req.Control)
	if control == "" {
		return nil, c.enrich(domain.NewDomainError(domain.ErrorCodeMissingControl,
			"purchase requires the control number issued at pre-registration"))
	}

	phone, err := FormatPhone(req.CustomerPhone)
	if err != nil {
		return nil, c.enrich(err)
	}

	bank, err := NormalizeBankCode(req.CustomerBank)
	if err != nil {
		return nil, c.enrich(err)
	}

	cid, recovered, err := FormatIdentifier(req.CustomerID)
	if err != nil {
		return nil, c.enrich(err)
	}
	if recovered {
		c.logger.Warn("Recovered malformed national id, assuming default type",
			zap.String("identifier", security.MaskIdentifier(req.CustomerID)),
			zap.String("cid", security.MaskIdentifier(cid)),
		)
	}

	amount, err := FormatAmount(req.Amount)
	if err != nil {
		return nil, c.enrich(err)
	}

	invoice := strings.TrimSpace(req.Invoice)
	if invoice == "" {
		invoice = NewInvoice()
	}
	reference := strings.TrimSpace(req.Reference)
	if reference == "" {
		reference = NewReference()
	}

	// The bank validates this body positionally: field order is part of the
	// contract, not a style choice
	body, err := EncodeDocument(requestRoot, Fields{
		{Name: "telefonoComercio", Value: c.profile.CommercePhone},
		{Name: "telefonoCliente", Value: phone},
		{Name: "bancoComercio", Value: c.profile.CommerceBank},
		{Name: "bancoCliente", Value: bank},
		{Name: "monto", Value: amount},
		{Name: "factura", Value: invoice},
		{Name: "referencia", Value: reference},
		{Name: "cid", Value: cid},
		{Name: "control", Value: control},
		{Name: "afiliacion", Value: c.profile.Affiliation},
		{Name: "tipoTransaccion", Value: TransactionKindP2C},
	})
	if err != nil {
		return nil, c.enrich(domain.WrapError(domain.ErrorCodeInternalError, "failed to encode purchase request", err))
	}

	c.logger.Info("Authorizing P2C purchase",
		zap.String("invoice", invoice),
		zap.String("control", control),
		zap.String("customer_phone", security.MaskPhone(phone)),
		zap.String("amount", amount),
		zap.String("customer_bank", bank),
	)

	respBody, err := c.transport.Send(ctx, pathPurchase, body)
	if err != nil {
		return nil, err
	}

	fields, err := c.decodeResponse(respBody)
	if err != nil {
		return nil, err
	}

	result := resultFromFields(fields, c.profile.Environment)
	if result.Invoice == "" {
		result.Invoice = invoice
	}
	if result.Control == "" {
		result.Control = control
	}
	if result.Reference == "" {
		result.Reference = reference
	}
	if result.Code == CodeAccountNotRegistered {
		result.Description = accountNotRegisteredReason(phone, bank, cid, c.profile.Environment)
	}

	if result.Approved {
		c.logger.Info("Purchase authorized",
			zap.String("invoice", result.Invoice),
			zap.String("authorization", result.Authorization),
			zap.String("sequence", result.Sequence),
		)
	} else {
		c.logger.Info("Purchase declined",
			zap.String("invoice", result.Invoice),
			zap.String("gateway_code", result.Code),
			zap.String("description", result.Description),
		)
	}

	return result, nil
}

// QueryStatus asks what became of the purchase behind a control number. Used
// by operators and by the recovery path after an unreachable purchase send.
func (c *Client) QueryStatus(ctx context.Context, query StatusQuery) (*Result, error) {
	control := strings.TrimSpace(query.Control)
	if control == "" {
		return nil, c.enrich(domain.NewDomainError(domain.ErrorCodeMissingControl,
			"status query requires a control number"))
	}

	kind := strings.TrimSpace(query.Kind)
	if kind == "" {
		kind = TransactionKindP2C
	}

	body, err := EncodeDocument(requestRoot, Fields{
		{Name: "afiliacion", Value: c.profile.Affiliation},
		{Name: "control", Value: control},
		{Name: "tipoTransaccion", Value: kind},
	})
	if err != nil {
		return nil, c.enrich(domain.WrapError(domain.ErrorCodeInternalError, "failed to encode status query", err))
	}

	c.logger.Info("Querying P2C payment status",
		zap.String("control", control),
		zap.String("kind", kind),
	)

	respBody, err := c.transport.Send(ctx, pathQuery, body)
	if err != nil {
		return nil, err
	}

	fields, err := c.decodeResponse(respBody)
	if err != nil {
		return nil, err
	}

	result := resultFromFields(fields, c.profile.Environment)
	if result.Control == "" {
		result.Control = control
	}

	return result, nil
}

// Collect runs the whole debit conversation: pre-register, then authorize
// the purchase under the returned control. Callers needing idempotency and
// crash recovery use the collect service instead, which persists the control
// between the two steps.
func (c *Client) Collect(ctx context.Context, req PurchaseRequest) (*Result, error) {
	pre, err := c.PreRegister(ctx)
	if err != nil {
		return nil, err
	}

	req.Control = pre.Control
	return c.Authorize(ctx, req)
}

// decodeResponse parses gateway bytes into fields, classifying anything not
// well-formed (or not rooted at <response>) as MALFORMED_RESPONSE with the
// raw payload attached for diagnostics
func (c *Client) decodeResponse(body []byte) (Fields, error) {
	root, fields, err := DecodeDocument(body)
	if err != nil {
		return nil, c.enrich(domain.WrapError(domain.ErrorCodeMalformedResponse,
			"gateway response is not well-formed XML", err).
			WithDetail("raw", string(body)))
	}
	if root != responseRoot {
		return nil, c.enrich(domain.NewDomainError(domain.ErrorCodeMalformedResponse,
			fmt.Sprintf("gateway response rooted at <%s>, expected <%s>", root, responseRoot)).
			WithDetail("raw", string(body)))
	}
	return fields, nil
}

// enrich stamps the environment onto every domain error leaving the client
func (c *Client) enrich(err error) error {
	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) {
		domainErr.WithDetail("environment", string(c.profile.Environment))
	}
	return err
}
