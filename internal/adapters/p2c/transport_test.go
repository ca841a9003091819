package p2c

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/taquillave/p2c-gateway/internal/domain"
	"github.com/taquillave/p2c-gateway/test/mocks"
)

func transportProfile() Profile {
	profile := validProfile()
	profile.BackoffBase = 5 * time.Millisecond
	profile.RequestsPerSecond = 0 // no pacing in tests
	return profile
}

func gatewayResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
		Header:     make(http.Header),
	}
}

func TestTransportSend_Success(t *testing.T) {
	client := mocks.NewMockHTTPClient(func(req *http.Request) (*http.Response, error) {
		return gatewayResponse(200, `<response><codigo>00</codigo></response>`), nil
	})

	tr := newTransport(transportProfile(), client, zap.NewNop())

	body, err := tr.Send(context.Background(), pathPurchase, []byte(`<request><afiliacion>1234567</afiliacion></request>`))
	require.NoError(t, err)
	assert.Equal(t, `<response><codigo>00</codigo></response>`, string(body))

	require.Len(t, client.Calls, 1)
	req := client.Calls[0]
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "https://sandbox.example.com/p2c/compra", req.URL.String())
	assert.Equal(t, "text/xml", req.Header.Get("Content-Type"))

	username, password, ok := req.BasicAuth()
	require.True(t, ok)
	assert.Equal(t, "commerce", username)
	assert.Equal(t, "secret", password)
}

func TestTransportSend_RetriesNetworkError(t *testing.T) {
	payload := []byte(`<request><afiliacion>1234567</afiliacion></request>`)

	var bodies [][]byte
	attempt := 0
	client := mocks.NewMockHTTPClient(func(req *http.Request) (*http.Response, error) {
		sent, readErr := io.ReadAll(req.Body)
		require.NoError(t, readErr)
		bodies = append(bodies, sent)

		attempt++
		if attempt == 1 {
			return nil, errors.New("connection refused")
		}
		return gatewayResponse(200, `<response><codigo>00</codigo></response>`), nil
	})

	tr := newTransport(transportProfile(), client, zap.NewNop())

	body, err := tr.Send(context.Background(), pathPurchase, payload)
	require.NoError(t, err)
	assert.Equal(t, `<response><codigo>00</codigo></response>`, string(body))

	// Every attempt must carry the full payload again
	require.Len(t, client.Calls, 2)
	assert.Equal(t, payload, bodies[0])
	assert.Equal(t, payload, bodies[1])
}

func TestTransportSend_RetriesNon2xx(t *testing.T) {
	attempt := 0
	client := mocks.NewMockHTTPClient(func(req *http.Request) (*http.Response, error) {
		attempt++
		if attempt == 1 {
			return gatewayResponse(503, "service unavailable"), nil
		}
		return gatewayResponse(200, `<response><codigo>00</codigo></response>`), nil
	})

	tr := newTransport(transportProfile(), client, zap.NewNop())

	body, err := tr.Send(context.Background(), pathQuery, []byte(`<request></request>`))
	require.NoError(t, err)
	assert.Equal(t, `<response><codigo>00</codigo></response>`, string(body))
	assert.Len(t, client.Calls, 2)
}

func TestTransportSend_RetriesBodyReadError(t *testing.T) {
	attempt := 0
	client := mocks.NewMockHTTPClient(func(req *http.Request) (*http.Response, error) {
		attempt++
		if attempt == 1 {
			return &http.Response{
				StatusCode: 200,
				Body:       io.NopCloser(brokenReader{}),
				Header:     make(http.Header),
			}, nil
		}
		return gatewayResponse(200, `<response><codigo>00</codigo></response>`), nil
	})

	tr := newTransport(transportProfile(), client, zap.NewNop())

	body, err := tr.Send(context.Background(), pathPurchase, []byte(`<request></request>`))
	require.NoError(t, err)
	assert.Equal(t, `<response><codigo>00</codigo></response>`, string(body))
	assert.Len(t, client.Calls, 2)
}

func TestTransportSend_ExhaustsAttempts(t *testing.T) {
	client := mocks.NewMockHTTPClient(func(req *http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	})

	profile := transportProfile()
	profile.MaxAttempts = 3

	tr := newTransport(profile, client, zap.NewNop())

	_, err := tr.Send(context.Background(), pathPurchase, []byte(`<request></request>`))
	require.Error(t, err)
	assert.True(t, domain.IsDomainError(err, domain.ErrorCodeGatewayUnreachable))
	assert.Len(t, client.Calls, 3)

	details := domain.GetErrorDetails(err)
	require.NotNil(t, details)
	assert.Equal(t, "test", details["environment"])
	assert.Equal(t, 3, details["max_attempts"])
}

func TestTransportSend_ContextCancelledDuringBackoff(t *testing.T) {
	client := mocks.NewMockHTTPClient(func(req *http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	})

	profile := transportProfile()
	profile.MaxAttempts = 3
	profile.BackoffBase = 500 * time.Millisecond

	tr := newTransport(profile, client, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := tr.Send(ctx, pathPurchase, []byte(`<request></request>`))
	require.Error(t, err)
	assert.True(t, domain.IsDomainError(err, domain.ErrorCodeGatewayUnreachable))
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// The deadline hit during the first backoff sleep, before a second attempt
	assert.Len(t, client.Calls, 1)
}

type brokenReader struct{}

func (brokenReader) Read([]byte) (int, error) {
	return 0, errors.New("connection reset")
}
