package p2c

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/taquillave/p2c-gateway/internal/domain"
)

func setupClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	profile := validProfile()
	profile.BaseURL = server.URL
	profile.BackoffBase = 5 * time.Millisecond
	profile.RequestsPerSecond = 0

	client, err := NewClient(profile, &http.Client{Timeout: 5 * time.Second}, zap.NewNop())
	require.NoError(t, err)

	return client
}

func TestNewClient_InvalidProfile(t *testing.T) {
	_, err := NewClient(Profile{}, &http.Client{}, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "base URL")
}

func TestPreRegister_Approved(t *testing.T) {
	client := setupClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/preregistro", r.URL.Path)
		assert.Equal(t, "text/xml", r.Header.Get("Content-Type"))

		username, password, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "commerce", username)
		assert.Equal(t, "secret", password)

		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.Equal(t,
			`<?xml version="1.0" encoding="UTF-8"?><request><afiliacion>1234567</afiliacion></request>`,
			string(body))

		w.Write([]byte(`<response><codigo>00</codigo><descripcion>Transaccion aprobada</descripcion><control>12345678</control></response>`))
	})

	pre, err := client.PreRegister(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "12345678", pre.Control)
	assert.Equal(t, "00", pre.Code)
	assert.Equal(t, "Transaccion aprobada", pre.Description)
	assert.Equal(t, "test", pre.Environment)
}

func TestPreRegister_Refused(t *testing.T) {
	client := setupClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<response><codigo>01</codigo><descripcion>Comercio no afiliado</descripcion></response>`))
	})

	_, err := client.PreRegister(context.Background())
	require.Error(t, err)
	assert.True(t, domain.IsDomainError(err, domain.ErrorCodePreRegistrationFailed))

	details := domain.GetErrorDetails(err)
	require.NotNil(t, details)
	assert.Equal(t, "01", details["gateway_code"])
	assert.Equal(t, "Comercio no afiliado", details["gateway_description"])
	assert.Equal(t, "test", details["environment"])
}

func TestPreRegister_ApprovedWithoutControl(t *testing.T) {
	client := setupClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<response><codigo>00</codigo></response>`))
	})

	_, err := client.PreRegister(context.Background())
	require.Error(t, err)
	assert.True(t, domain.IsDomainError(err, domain.ErrorCodeMissingControl))
}

func purchaseRequest() PurchaseRequest {
	return PurchaseRequest{
		CustomerPhone: "+58 412-1234567",
		CustomerBank:  "105",
		CustomerID:    "v-12.345.678",
		Amount:        decimal.RequireFromString("150.75"),
		Invoice:       "20250815120000001",
		Reference:     "00123456",
		Control:       "87654321",
	}
}

func TestAuthorize_Approved(t *testing.T) {
	client := setupClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/compra", r.URL.Path)

		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)

		// The gateway validates this document positionally, so the assertion
		// is on the exact bytes, normalization included
		expected := `<?xml version="1.0" encoding="UTF-8"?>` +
			`<request>` +
			`<telefonoComercio>04140000000</telefonoComercio>` +
			`<telefonoCliente>04121234567</telefonoCliente>` +
			`<bancoComercio>0102</bancoComercio>` +
			`<bancoCliente>0105</bancoCliente>` +
			`<monto>150.75</monto>` +
			`<factura>20250815120000001</factura>` +
			`<referencia>00123456</referencia>` +
			`<cid>V12345678</cid>` +
			`<control>87654321</control>` +
			`<afiliacion>1234567</afiliacion>` +
			`<tipoTransaccion>P2C</tipoTransaccion>` +
			`</request>`
		assert.Equal(t, expected, string(body))

		w.Write([]byte(`<response>` +
			`<codigo>00</codigo>` +
			`<descripcion>Transaccion aprobada</descripcion>` +
			`<control>87654321</control>` +
			`<factura>20250815120000001</factura>` +
			`<secuencia>000123</secuencia>` +
			`<autorizacion>456789</autorizacion>` +
			`<nombreAutorizacion>JUAN PEREZ</nombreAutorizacion>` +
			`<referencia>00123456</referencia>` +
			`<terminal>P2C00001</terminal>` +
			`<lote>17</lote>` +
			`<rifBanco>J000295470</rifBanco>` +
			`<afiliacion>1234567</afiliacion>` +
			`<voucher><linea>PAGO_MOVIL_P2C</linea><linea>MONTO__Bs._150,75</linea><linea>APROBADA</linea></voucher>` +
			`<estado>A</estado>` +
			`</response>`))
	})

	result, err := client.Authorize(context.Background(), purchaseRequest())
	require.NoError(t, err)

	assert.True(t, result.Approved)
	assert.Equal(t, "00", result.Code)
	assert.Equal(t, "Transaccion aprobada", result.Description)
	assert.Equal(t, "87654321", result.Control)
	assert.Equal(t, "20250815120000001", result.Invoice)
	assert.Equal(t, "000123", result.Sequence)
	assert.Equal(t, "456789", result.Authorization)
	assert.Equal(t, "JUAN PEREZ", result.AuthorizationName)
	assert.Equal(t, "00123456", result.Reference)
	assert.Equal(t, "P2C00001", result.Terminal)
	assert.Equal(t, "17", result.Lot)
	assert.Equal(t, "J000295470", result.BankRIF)
	assert.Equal(t, "1234567", result.Affiliation)
	assert.Equal(t, "A", result.State)
	assert.Equal(t, "test", result.Environment)
	assert.Equal(t, []string{"PAGO MOVIL P2C", "MONTO  Bs. 150,75", "APROBADA"}, result.VoucherLines)
	assert.Equal(t, "A", result.Raw.GetOr("estado", ""))
}

func TestAuthorize_DeclineIsResultNotError(t *testing.T) {
	client := setupClient(t, func(w http.ResponseWriter, r *http.Request) {
		// No descripcion: the client falls back to the code table
		w.Write([]byte(`<response><codigo>51</codigo><control>87654321</control></response>`))
	})

	result, err := client.Authorize(context.Background(), purchaseRequest())
	require.NoError(t, err)

	assert.False(t, result.Approved)
	assert.Equal(t, "51", result.Code)
	assert.Equal(t, "Fondos insuficientes en la cuenta del cliente", result.Description)
	assert.Equal(t, "87654321", result.Control)
	assert.Equal(t, "20250815120000001", result.Invoice)
}

func TestAuthorize_AccountNotRegistered(t *testing.T) {
	client := setupClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<response><codigo>AG</codigo></response>`))
	})

	result, err := client.Authorize(context.Background(), purchaseRequest())
	require.NoError(t, err)

	assert.False(t, result.Approved)
	assert.Equal(t, "AG", result.Code)

	// The reason names the exact combination the bank refused
	assert.Contains(t, result.Description, "04121234567")
	assert.Contains(t, result.Description, "Banco Mercantil (0105)")
	assert.Contains(t, result.Description, "V12345678")
	assert.Contains(t, result.Description, "[test]")
}

func TestAuthorize_ValidationStaysOffTheWire(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*PurchaseRequest)
		wantCode domain.ErrorCode
	}{
		{"missing_control", func(r *PurchaseRequest) { r.Control = "" }, domain.ErrorCodeMissingControl},
		{"bad_phone", func(r *PurchaseRequest) { r.CustomerPhone = "02121234567" }, domain.ErrorCodeInvalidPhone},
		{"bad_bank", func(r *PurchaseRequest) { r.CustomerBank = "0999" }, domain.ErrorCodeInvalidBankCode},
		{"bad_identifier", func(r *PurchaseRequest) { r.CustomerID = "123" }, domain.ErrorCodeInvalidIdentifier},
		{"zero_amount", func(r *PurchaseRequest) { r.Amount = decimal.Zero }, domain.ErrorCodeInvalidAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			client := setupClient(t, func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&calls, 1)
			})

			req := purchaseRequest()
			tt.mutate(&req)

			_, err := client.Authorize(context.Background(), req)
			require.Error(t, err)
			assert.True(t, domain.IsDomainError(err, tt.wantCode))
			assert.Equal(t, int32(0), atomic.LoadInt32(&calls), "validation failures must not reach the gateway")

			details := domain.GetErrorDetails(err)
			require.NotNil(t, details)
			assert.Equal(t, "test", details["environment"])
		})
	}
}

func TestAuthorize_GeneratesInvoiceAndReference(t *testing.T) {
	var factura, referencia string
	client := setupClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)

		_, fields, err := DecodeDocument(body)
		assert.NoError(t, err)
		factura = fields.GetOr("factura", "")
		referencia = fields.GetOr("referencia", "")

		w.Write([]byte(`<response><codigo>00</codigo></response>`))
	})

	req := purchaseRequest()
	req.Invoice = ""
	req.Reference = ""

	result, err := client.Authorize(context.Background(), req)
	require.NoError(t, err)

	assert.Len(t, factura, 17)
	assert.True(t, isDigits(factura), "generated invoice %q should be all digits", factura)
	assert.Len(t, referencia, 8)
	assert.True(t, isDigits(referencia), "generated reference %q should be all digits", referencia)

	// The sparse response falls back to what was sent
	assert.Equal(t, factura, result.Invoice)
	assert.Equal(t, referencia, result.Reference)
	assert.Equal(t, "87654321", result.Control)
}

func TestAuthorize_MalformedResponse(t *testing.T) {
	var calls int32
	client := setupClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(`Internal Server Error`))
	})

	_, err := client.Authorize(context.Background(), purchaseRequest())
	require.Error(t, err)
	assert.True(t, domain.IsDomainError(err, domain.ErrorCodeMalformedResponse))

	// A delivered-but-garbled answer is not retried
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	details := domain.GetErrorDetails(err)
	require.NotNil(t, details)
	assert.Equal(t, "Internal Server Error", details["raw"])
	assert.Equal(t, "test", details["environment"])
}

func TestAuthorize_UnexpectedRoot(t *testing.T) {
	client := setupClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<error><codigo>96</codigo></error>`))
	})

	_, err := client.Authorize(context.Background(), purchaseRequest())
	require.Error(t, err)
	assert.True(t, domain.IsDomainError(err, domain.ErrorCodeMalformedResponse))
	assert.Contains(t, err.Error(), "<error>")
}

func TestAuthorize_GatewayUnreachable(t *testing.T) {
	var calls int32
	client := setupClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.Authorize(context.Background(), purchaseRequest())
	require.Error(t, err)
	assert.True(t, domain.IsDomainError(err, domain.ErrorCodeGatewayUnreachable))

	// Test profile allows two attempts
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestQueryStatus(t *testing.T) {
	client := setupClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/consulta", r.URL.Path)

		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.Equal(t,
			`<?xml version="1.0" encoding="UTF-8"?><request><afiliacion>1234567</afiliacion><control>87654321</control><tipoTransaccion>P2C</tipoTransaccion></request>`,
			string(body))

		w.Write([]byte(`<response><codigo>00</codigo><autorizacion>456789</autorizacion><estado>A</estado></response>`))
	})

	result, err := client.QueryStatus(context.Background(), StatusQuery{Control: "87654321"})
	require.NoError(t, err)

	assert.True(t, result.Approved)
	assert.Equal(t, "456789", result.Authorization)
	// Sparse response: the queried control is carried over
	assert.Equal(t, "87654321", result.Control)
}

func TestQueryStatus_RequiresControl(t *testing.T) {
	var calls int32
	client := setupClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	})

	_, err := client.QueryStatus(context.Background(), StatusQuery{})
	require.Error(t, err)
	assert.True(t, domain.IsDomainError(err, domain.ErrorCodeMissingControl))
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestCollect(t *testing.T) {
	var paths []string
	client := setupClient(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)

		switch r.URL.Path {
		case "/preregistro":
			w.Write([]byte(`<response><codigo>00</codigo><control>55554444</control></response>`))
		case "/compra":
			body, err := io.ReadAll(r.Body)
			assert.NoError(t, err)

			_, fields, err := DecodeDocument(body)
			assert.NoError(t, err)
			// The purchase must run under the pre-registration's control
			assert.Equal(t, "55554444", fields.GetOr("control", ""))

			w.Write([]byte(`<response><codigo>00</codigo><autorizacion>456789</autorizacion></response>`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	req := purchaseRequest()
	req.Control = ""

	result, err := client.Collect(context.Background(), req)
	require.NoError(t, err)

	assert.True(t, result.Approved)
	assert.Equal(t, "456789", result.Authorization)
	assert.Equal(t, "55554444", result.Control)
	assert.Equal(t, []string{"/preregistro", "/compra"}, paths)
}

func TestCollect_PreRegistrationFailureStopsFlow(t *testing.T) {
	var paths []string
	client := setupClient(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		w.Write([]byte(`<response><codigo>05</codigo></response>`))
	})

	_, err := client.Collect(context.Background(), purchaseRequest())
	require.Error(t, err)
	assert.True(t, domain.IsDomainError(err, domain.ErrorCodePreRegistrationFailed))
	assert.Equal(t, []string{"/preregistro"}, paths)
}
