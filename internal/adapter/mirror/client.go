// Package mirror is the HTTP client of the backend mirror API. Every call is
// best-effort from the ledger's point of view; the orchestrator only logs
// failures.
package mirror

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/zomasamka-bot/flashpay/internal/adapter/http/dto"
	"github.com/zomasamka-bot/flashpay/internal/core/domain"
	"github.com/zomasamka-bot/flashpay/internal/core/ports"

	"github.com/rs/zerolog"
)

const (
	DefaultTimeout = 10 * time.Second
	DefaultRetries = 2
	defaultBackoff = 250 * time.Millisecond
)

// HTTPClient interface for testability.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// StatusError is a non-2xx answer from the mirror API.
type StatusError struct {
	Status int
	Code   string
}

func (e *StatusError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("mirror responded %d (%s)", e.Status, e.Code)
	}
	return fmt.Sprintf("mirror responded %d", e.Status)
}

// retryable reports whether another attempt may succeed.
func (e *StatusError) retryable() bool {
	return e.Status >= 500 || e.Status == http.StatusTooManyRequests
}

// Options tune the client. Zero values pick the defaults.
type Options struct {
	Retries int
	Backoff time.Duration
}

// Client implements ports.BackendMirror.
type Client struct {
	baseURL string
	http    HTTPClient
	tokens  ports.TokenService
	retries int
	backoff time.Duration
	log     zerolog.Logger
}

func NewClient(baseURL string, httpClient HTTPClient, tokens ports.TokenService, opts Options, log zerolog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	if opts.Backoff <= 0 {
		opts.Backoff = defaultBackoff
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		tokens:  tokens,
		retries: opts.Retries,
		backoff: opts.Backoff,
		log:     log,
	}
}

func paymentPath(id string) string {
	return "/api/v1/payments/" + url.PathEscape(id)
}

// Create mirrors a new payment. An existing row with the same id is success.
func (c *Client) Create(ctx context.Context, p domain.Payment) error {
	return c.do(ctx, http.MethodPost, "/api/v1/payments", p.MerchantID, dto.NewCreatePaymentRequest(p), nil)
}

// Fetch returns nil, nil when the mirror has no such payment for the merchant.
func (c *Client) Fetch(ctx context.Context, merchantID, paymentID string) (*domain.Payment, error) {
	var resp dto.PaymentResponse
	err := c.do(ctx, http.MethodGet, paymentPath(paymentID), merchantID, nil, &resp)
	var se *StatusError
	if errors.As(err, &se) && se.Status == http.StatusNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p, err := resp.Payment()
	if err != nil {
		return nil, fmt.Errorf("decode mirrored payment: %w", err)
	}
	return &p, nil
}

// UpdateStatus mirrors p's current status. The mirror answering that the
// payment is already PAID counts as success when p is PAID too.
func (c *Client) UpdateStatus(ctx context.Context, p domain.Payment) error {
	body := dto.UpdateStatusRequest{Status: string(p.Status), TxID: p.TxID, PaidAt: p.PaidAt}
	err := c.do(ctx, http.MethodPatch, paymentPath(p.ID), p.MerchantID, body, nil)
	var se *StatusError
	if errors.As(err, &se) && se.Status == http.StatusConflict && p.Status == domain.PaymentStatusPaid {
		return nil
	}
	return err
}

// Approve records the provider approval on the mirror.
func (c *Client) Approve(ctx context.Context, merchantID, paymentID, providerPaymentID string) error {
	body := dto.ApproveRequest{ProviderPaymentID: providerPaymentID}
	return c.do(ctx, http.MethodPost, paymentPath(paymentID)+"/approve", merchantID, body, nil)
}

// do sends one request with bounded retries on transport errors, 5xx and 429.
func (c *Client) do(ctx context.Context, method, path, merchantID string, body any, out any) error {
	token, _, err := c.tokens.Generate(merchantID)
	if err != nil {
		return fmt.Errorf("mirror credentials: %w", err)
	}

	var payload []byte
	if body != nil {
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("encode mirror request: %w", err)
		}
	}

	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.backoff * time.Duration(attempt)):
			}
		}

		lastErr = c.send(ctx, method, path, token, payload, out)
		if lastErr == nil {
			return nil
		}
		var se *StatusError
		if errors.As(lastErr, &se) && !se.retryable() {
			return lastErr
		}
		if ctx.Err() != nil {
			return lastErr
		}
		c.log.Warn().Err(lastErr).Str("method", method).Str("path", path).Int("attempt", attempt+1).Msg("mirror request failed")
	}
	return lastErr
}

func (c *Client) send(ctx context.Context, method, path, token string, payload []byte, out any) error {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build mirror request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("mirror %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var env struct {
			ErrorCode string `json:"error_code"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&env)
		return &StatusError{Status: resp.StatusCode, Code: env.ErrorCode}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	env := struct {
		Data any `json:"data"`
	}{Data: out}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode mirror response: %w", err)
	}
	return nil
}
