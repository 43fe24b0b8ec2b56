package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

var (
	// ErrGatewayUnavailable wraps network-level failures against the gateway.
	ErrGatewayUnavailable = errors.New("payment gateway unreachable")
	// ErrInitFailed is returned when checkout creation is rejected or the
	// response carries no authorization URL.
	ErrInitFailed = errors.New("checkout initiation failed")
	// ErrVerifyFailed is returned when the gateway answered but did not
	// confirm the payment.
	ErrVerifyFailed = errors.New("payment not verified")
)

// Config holds the configuration for the gateway client
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() Config {
	return Config{
		BaseURL: "https://face-fit.onrender.com",
		Timeout: 30 * time.Second,
	}
}

// Client is the HTTP client for the Paystack-backed checkout backend
type Client struct {
	httpClient *http.Client
	config     Config
}

// NewClient creates a new gateway client
func NewClient(config Config) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		config: config,
	}
}

// Initialize calls POST /api/pay to create a hosted checkout session.
// Amount is in whole Kenyan shillings. A non-2xx status or a body without
// an authorization URL is a hard failure; nothing is marked paid here.
func (c *Client) Initialize(ctx context.Context, email string, amountKES int) (*CheckoutIntent, error) {
	body, err := json.Marshal(initiateRequest{Email: email, Amount: amountKES})
	if err != nil {
		return nil, fmt.Errorf("marshal initiate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/api/pay", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create initiate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read initiate response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: gateway returned status %d: %s", ErrInitFailed, resp.StatusCode, string(respBody))
	}

	var parsed initiateResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("%w: malformed response: %v", ErrInitFailed, err)
	}

	if parsed.Data.AuthorizationURL == "" {
		return nil, fmt.Errorf("%w: response missing authorization_url", ErrInitFailed)
	}

	return &CheckoutIntent{
		AuthorizationURL: parsed.Data.AuthorizationURL,
		Reference:        parsed.Data.Reference,
		AmountKES:        amountKES,
	}, nil
}

// Verify calls GET /verify/{reference}. It returns nil only when the
// gateway reports the transaction status as "success".
func (c *Client) Verify(ctx context.Context, reference string) error {
	endpoint := c.config.BaseURL + "/verify/" + url.PathEscape(reference)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("create verify request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read verify response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: gateway returned status %d", ErrVerifyFailed, resp.StatusCode)
	}

	var parsed verifyResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return fmt.Errorf("%w: malformed response: %v", ErrVerifyFailed, err)
	}

	if parsed.Data.Status != "success" {
		return fmt.Errorf("%w: status %q", ErrVerifyFailed, parsed.Data.Status)
	}

	return nil
}
