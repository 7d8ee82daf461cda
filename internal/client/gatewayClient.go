package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"storefront-backend/internal/config"

	"github.com/shopspring/decimal"
)

// ErrCardToken marks gateway rejections caused by a stale or malformed
// card token, so the checkout flow can ask the customer for a fresh one
// instead of failing generically.
var ErrCardToken = errors.New("invalid or expired card token")

type GatewayClient interface {
	CreateCardCharge(ctx context.Context, req *CardChargeRequest) (*ChargeResult, error)
	CreatePixCharge(ctx context.Context, req *PixChargeRequest) (*PixChargeResult, error)
	GetPayment(ctx context.Context, paymentID string) (*ChargeResult, error)
}

type CardChargeRequest struct {
	Token             string
	Amount            decimal.Decimal
	PayerEmail        string
	Installments      int
	ExternalReference string
	Description       string
}

type ChargeResult struct {
	ID           string
	Status       string
	StatusDetail string
}

type PixChargeRequest struct {
	Amount            decimal.Decimal
	PayerEmail        string
	ExternalReference string
	Description       string
}

type PixChargeResult struct {
	PaymentID      string
	QRCode         string
	QRCodeBase64   string
	TicketURL      string
	ExpirationDate time.Time
}

type gatewayClientImpl struct {
	httpClient  *http.Client
	baseApiURL  string
	accessToken string
	pixExpiry   time.Duration
}

func NewGatewayClient(cfg *config.Gateway) GatewayClient {
	return &gatewayClientImpl{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseApiURL:  cfg.BaseApiURL,
		accessToken: cfg.AccessToken,
		pixExpiry:   time.Duration(cfg.PixExpiryMinutes) * time.Minute,
	}
}

type paymentPayload struct {
	ID                 int64  `json:"id"`
	Status             string `json:"status"`
	StatusDetail       string `json:"status_detail"`
	PointOfInteraction struct {
		TransactionData struct {
			QRCode       string `json:"qr_code"`
			QRCodeBase64 string `json:"qr_code_base64"`
			TicketURL    string `json:"ticket_url"`
		} `json:"transaction_data"`
	} `json:"point_of_interaction"`
	DateOfExpiration string `json:"date_of_expiration"`
}

func (c *gatewayClientImpl) CreateCardCharge(ctx context.Context, chargeReq *CardChargeRequest) (*ChargeResult, error) {
	installments := chargeReq.Installments
	if installments <= 0 {
		installments = 1
	}

	amount, _ := chargeReq.Amount.Round(2).Float64()
	payload := map[string]interface{}{
		"transaction_amount": amount,
		"token":              chargeReq.Token,
		"installments":       installments,
		"description":        chargeReq.Description,
		"external_reference": chargeReq.ExternalReference,
		"payer": map[string]string{
			"email": chargeReq.PayerEmail,
		},
	}

	result, err := c.postPayment(ctx, payload)
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (c *gatewayClientImpl) CreatePixCharge(ctx context.Context, chargeReq *PixChargeRequest) (*PixChargeResult, error) {
	expiresAt := time.Now().Add(c.pixExpiry).UTC()

	amount, _ := chargeReq.Amount.Round(2).Float64()
	payload := map[string]interface{}{
		"transaction_amount": amount,
		"payment_method_id":  "pix",
		"description":        chargeReq.Description,
		"external_reference": chargeReq.ExternalReference,
		"date_of_expiration": expiresAt.Format("2006-01-02T15:04:05.000-07:00"),
		"payer": map[string]string{
			"email": chargeReq.PayerEmail,
		},
	}

	raw, err := c.doPayment(ctx, http.MethodPost, "/v1/payments", payload)
	if err != nil {
		return nil, err
	}

	expiration := expiresAt
	if raw.DateOfExpiration != "" {
		if parsed, perr := time.Parse("2006-01-02T15:04:05.000-07:00", raw.DateOfExpiration); perr == nil {
			expiration = parsed
		}
	}

	return &PixChargeResult{
		PaymentID:      fmt.Sprintf("%d", raw.ID),
		QRCode:         raw.PointOfInteraction.TransactionData.QRCode,
		QRCodeBase64:   raw.PointOfInteraction.TransactionData.QRCodeBase64,
		TicketURL:      raw.PointOfInteraction.TransactionData.TicketURL,
		ExpirationDate: expiration,
	}, nil
}

func (c *gatewayClientImpl) GetPayment(ctx context.Context, paymentID string) (*ChargeResult, error) {
	raw, err := c.doPayment(ctx, http.MethodGet, "/v1/payments/"+paymentID, nil)
	if err != nil {
		return nil, err
	}

	return &ChargeResult{
		ID:           fmt.Sprintf("%d", raw.ID),
		Status:       raw.Status,
		StatusDetail: raw.StatusDetail,
	}, nil
}

func (c *gatewayClientImpl) postPayment(ctx context.Context, payload map[string]interface{}) (*ChargeResult, error) {
	raw, err := c.doPayment(ctx, http.MethodPost, "/v1/payments", payload)
	if err != nil {
		return nil, err
	}

	return &ChargeResult{
		ID:           fmt.Sprintf("%d", raw.ID),
		Status:       raw.Status,
		StatusDetail: raw.StatusDetail,
	}, nil
}

func (c *gatewayClientImpl) doPayment(ctx context.Context, method, path string, payload map[string]interface{}) (*paymentPayload, error) {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal req payload: %w", err)
		}
		body = bytes.NewBuffer(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseApiURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("http new request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway request: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if isCardTokenError(resp.StatusCode, respBody) {
			return nil, fmt.Errorf("%w: gateway status %d", ErrCardToken, resp.StatusCode)
		}
		return nil, fmt.Errorf("gateway error %d: %s", resp.StatusCode, string(respBody))
	}

	var raw paymentPayload
	if err := json.Unmarshal(respBody, &raw); err != nil {
		return nil, fmt.Errorf("decode gateway response: %w", err)
	}

	return &raw, nil
}

// The gateway rejects stale card tokens with a 4xx carrying a
// token-specific error code in the body.
func isCardTokenError(status int, body []byte) bool {
	if status < 400 || status >= 500 {
		return false
	}
	s := string(body)
	return strings.Contains(s, "card_token") || strings.Contains(s, "invalid_token") || strings.Contains(s, "token_expired")
}
