package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"storefront-backend/internal/config"
)

// MailClient sends transactional email. Callers treat sends as
// fire-and-forget: a failed send is logged, never propagated into the
// primary operation.
type MailClient interface {
	Send(ctx context.Context, toEmail, subject, textBody string) error
}

type mailClientImpl struct {
	httpClient *http.Client
	baseApiURL string
	apiKey     string
	fromEmail  string
}

func NewMailClient(cfg *config.Mail) MailClient {
	return &mailClientImpl{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseApiURL: cfg.BaseApiURL,
		apiKey:     cfg.APIKey,
		fromEmail:  cfg.FromEmail,
	}
}

func (c *mailClientImpl) Send(ctx context.Context, toEmail, subject, textBody string) error {
	payload := map[string]string{
		"from":    c.fromEmail,
		"to":      toEmail,
		"subject": subject,
		"text":    textBody,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal mail payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseApiURL+"/v1/messages", bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("http new request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("mail request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("mail provider error %d: %s", resp.StatusCode, string(b))
	}

	return nil
}
