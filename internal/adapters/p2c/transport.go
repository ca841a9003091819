package p2c

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/taquillave/p2c-gateway/internal/adapters/ports"
	"github.com/taquillave/p2c-gateway/internal/domain"
	"github.com/taquillave/p2c-gateway/pkg/observability"
	"github.com/taquillave/p2c-gateway/pkg/resilience"
)

// transport posts wire documents to the gateway with Basic auth, client-side
// pacing, and exponential-backoff retries. It knows nothing about XML
// semantics: a conversation either yields response bytes or fails as
// GATEWAY_UNREACHABLE after exhausting attempts.
type transport struct {
	profile Profile
	client  ports.HTTPClient
	logger  *zap.Logger
	limiter *rate.Limiter
	backoff resilience.BackoffStrategy
}

func newTransport(profile Profile, client ports.HTTPClient, logger *zap.Logger) *transport {
	limit := rate.Inf
	if profile.RequestsPerSecond > 0 {
		limit = rate.Limit(profile.RequestsPerSecond)
	}

	maxDelay := 30 * time.Second
	if !profile.IsProduction() {
		maxDelay = 15 * time.Second
	}

	return &transport{
		profile: profile,
		client:  client,
		logger:  logger,
		limiter: rate.NewLimiter(limit, 1),
		backoff: &resilience.ExponentialBackoff{
			BaseDelay:  profile.BackoffBase,
			MaxDelay:   maxDelay,
			Multiplier: 2.0,
			Jitter:     0.1,
		},
	}
}

// Send posts body to path and returns the raw response bytes. Every attempt
// sends the same headers; success is any 2xx status. Network errors and
// non-2xx statuses are retried until MaxAttempts, honoring ctx during the
// backoff sleeps.
func (t *transport) Send(ctx context.Context, path string, body []byte) ([]byte, error) {
	operation := strings.Trim(path, "/")
	timer := observability.StartGatewayRequest(string(t.profile.Environment), operation)

	url := strings.TrimRight(t.profile.BaseURL, "/") + path

	var lastErr error
	for attempt := 1; attempt <= t.profile.MaxAttempts; attempt++ {
		if attempt > 1 {
			delay := t.backoff.NextDelay(attempt - 2)
			t.logger.Info("Retrying gateway request",
				zap.String("operation", operation),
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", t.profile.MaxAttempts),
				zap.Duration("backoff_delay", delay),
			)
			timer.Retry()

			select {
			case <-ctx.Done():
				timer.Done("unreachable")
				return nil, t.unreachable(fmt.Errorf("retry cancelled: %w", ctx.Err()))
			case <-time.After(delay):
			}
		}

		if err := t.limiter.Wait(ctx); err != nil {
			timer.Done("unreachable")
			return nil, t.unreachable(fmt.Errorf("rate limiter wait cancelled: %w", err))
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			timer.Done("unreachable")
			return nil, domain.WrapError(domain.ErrorCodeInternalError, "failed to create gateway request", err).
				WithDetail("environment", string(t.profile.Environment))
		}
		req.SetBasicAuth(t.profile.Username, t.profile.Password)
		req.Header.Set("Content-Type", "text/xml")

		if t.profile.Verbose {
			t.logger.Debug("Sending gateway request",
				zap.String("operation", operation),
				zap.String("url", url),
				zap.ByteString("body", body),
			)
		}

		start := time.Now()
		resp, err := t.client.Do(req)
		if err != nil {
			lastErr = err
			t.logger.Warn("Gateway request failed",
				zap.String("operation", operation),
				zap.Int("attempt", attempt),
				zap.Duration("elapsed", time.Since(start)),
				zap.Error(err),
			)
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("failed to read response body: %w", err)
			t.logger.Warn("Gateway response read failed",
				zap.String("operation", operation),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			lastErr = fmt.Errorf("gateway answered status %d", resp.StatusCode)
			t.logger.Warn("Gateway answered non-2xx status",
				zap.String("operation", operation),
				zap.Int("attempt", attempt),
				zap.Int("status_code", resp.StatusCode),
			)
			continue
		}

		t.logger.Info("Received gateway response",
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Int("status_code", resp.StatusCode),
			zap.Duration("elapsed", time.Since(start)),
			zap.Int("body_length", len(respBody)),
		)
		if t.profile.Verbose {
			t.logger.Debug("Gateway response body",
				zap.String("operation", operation),
				zap.ByteString("body", respBody),
			)
		}

		timer.Done("sent")
		return respBody, nil
	}

	timer.Done("unreachable")
	return nil, t.unreachable(lastErr)
}

func (t *transport) unreachable(cause error) error {
	return domain.WrapError(domain.ErrorCodeGatewayUnreachable,
		fmt.Sprintf("gateway unreachable after %d attempts", t.profile.MaxAttempts), cause).
		WithDetail("environment", string(t.profile.Environment)).
		WithDetail("max_attempts", t.profile.MaxAttempts)
}
