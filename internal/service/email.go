package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/mail"
	"strings"
	"time"
)

// EmailMessage is a single outbound email
type EmailMessage struct {
	To      string
	Subject string
	HTML    string
	Text    string
	Headers map[string]string
}

// EmailSender delivers email and returns the provider's message ID
type EmailSender interface {
	Send(ctx context.Context, msg *EmailMessage) (string, error)
}

// ResendConfig holds configuration for the Resend client
type ResendConfig struct {
	APIKey     string
	From       string
	BaseURL    string
	HTTPClient *http.Client
}

// ResendClient sends email through the Resend HTTP API
type ResendClient struct {
	apiKey     string
	from       string
	baseURL    string
	httpClient *http.Client
}

// NewResendClient creates a new Resend client
func NewResendClient(cfg ResendConfig) *ResendClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.resend.com"
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &ResendClient{
		apiKey:     cfg.APIKey,
		from:       cfg.From,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: cfg.HTTPClient,
	}
}

type resendRequest struct {
	From    string            `json:"from"`
	To      []string          `json:"to"`
	Subject string            `json:"subject"`
	HTML    string            `json:"html,omitempty"`
	Text    string            `json:"text,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
}

type resendResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// Send delivers one message
func (c *ResendClient) Send(ctx context.Context, msg *EmailMessage) (string, error) {
	if c.apiKey == "" {
		return "", ErrEmailNotConfigured
	}
	if _, err := mail.ParseAddress(msg.To); err != nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidRecipient, msg.To)
	}

	body, err := json.Marshal(resendRequest{
		From:    c.from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		HTML:    msg.HTML,
		Text:    msg.Text,
		Headers: msg.Headers,
	})
	if err != nil {
		return "", fmt.Errorf("encoding email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building email request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrEmailDelivery, err)
	}
	defer resp.Body.Close()

	var out resendResponse
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	_ = json.Unmarshal(raw, &out)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail := out.Message
		if detail == "" {
			detail = strings.TrimSpace(string(raw))
		}
		return "", fmt.Errorf("%w: status %d: %s", ErrEmailDelivery, resp.StatusCode, detail)
	}
	return out.ID, nil
}
