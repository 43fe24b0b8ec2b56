// Package gemini calls the Google Generative Language REST API.
package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/remboglow/facefit/internal/analysis"
)

// Config holds the configuration for the Gemini client
type Config struct {
	BaseURL    string
	APIKey     string
	Model      string
	Timeout    time.Duration
	RetryCount int
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig(apiKey string) Config {
	return Config{
		BaseURL:    "https://generativelanguage.googleapis.com",
		APIKey:     apiKey,
		Model:      "gemini-1.5-flash",
		Timeout:    30 * time.Second,
		RetryCount: 2,
	}
}

// Client is the HTTP client for the Gemini generateContent API
type Client struct {
	httpClient *http.Client
	config     Config
}

var _ analysis.Analyzer = (*Client)(nil)

// NewClient creates a new Gemini client
func NewClient(config Config) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		config: config,
	}
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
}

// AnalyzeImage sends the selfie inline with the analysis prompt and returns
// the raw model text. The response carries no schema guarantee; the
// normalizer is the contract boundary.
func (c *Client) AnalyzeImage(ctx context.Context, image []byte, mimeType string, budgetKES int) (string, error) {
	req := generateRequest{
		Contents: []content{{
			Parts: []part{
				{Text: analysis.AnalysisPrompt(budgetKES)},
				{InlineData: &inlineData{
					MimeType: mimeType,
					Data:     base64.StdEncoding.EncodeToString(image),
				}},
			},
		}},
	}

	return c.generateWithRetry(ctx, req)
}

// GenerateText runs a plain text prompt.
func (c *Client) GenerateText(ctx context.Context, prompt string) (string, error) {
	req := generateRequest{
		Contents: []content{{
			Parts: []part{{Text: prompt}},
		}},
	}

	return c.generateWithRetry(ctx, req)
}

// maxBackoff is the maximum backoff duration for retries
const maxBackoff = 10 * time.Second

// calculateBackoff returns 1s, 2s, 4s, ... up to maxBackoff
func calculateBackoff(attempt int) time.Duration {
	if attempt <= 0 {
		return time.Second
	}
	seconds := 1
	for i := 1; i < attempt && i < 4; i++ {
		seconds *= 2
	}
	backoff := time.Duration(seconds) * time.Second
	if backoff > maxBackoff {
		return maxBackoff
	}
	return backoff
}

// generateWithRetry executes the request with retry on server errors.
// Client errors (4xx) are not retried: the request will not get better.
func (c *Client) generateWithRetry(ctx context.Context, req generateRequest) (string, error) {
	var lastErr error

	for attempt := 0; attempt <= c.config.RetryCount; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(calculateBackoff(attempt)):
			}
		}

		text, err := c.generate(ctx, req)
		if err == nil {
			return text, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		if isClientError(err) {
			return "", err
		}
	}

	return "", fmt.Errorf("%w: %w", ErrGeminiUnavailable, lastErr)
}

func isClientError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	for status := 400; status < 500; status++ {
		if strings.Contains(errStr, fmt.Sprintf("status %d", status)) {
			return true
		}
	}
	return false
}

// generate executes a single generateContent call.
func (c *Client) generate(ctx context.Context, req generateRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", c.config.BaseURL, c.config.Model, c.config.APIKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("gemini returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed generateResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	if len(parsed.Candidates) == 0 {
		return "", ErrRequestRejected
	}

	var sb strings.Builder
	for _, p := range parsed.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}

	text := sb.String()
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}

	return text, nil
}
