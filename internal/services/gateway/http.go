package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"github.com/whomimohshukla/freelancehub/internal/config"
	"github.com/whomimohshukla/freelancehub/pkg/logger"
)

// HTTPGateway is a Razorpay-compatible REST client
type HTTPGateway struct {
	baseURL       string
	keyID         string
	keySecret     string
	webhookSecret string
	client        *http.Client
}

func NewHTTPGateway(cfg *config.PaymentConfig) *HTTPGateway {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPGateway{
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		keyID:         cfg.KeyID,
		keySecret:     cfg.KeySecret,
		webhookSecret: cfg.WebhookSecret,
		client:        &http.Client{Timeout: timeout},
	}
}

func (g *HTTPGateway) Name() string  { return "razorpay" }
func (g *HTTPGateway) KeyID() string { return g.keyID }

func (g *HTTPGateway) CreateOrder(ctx context.Context, amount int64, currency, receipt string, notes map[string]string) (*Order, error) {
	body := map[string]interface{}{
		"amount":   amount,
		"currency": currency,
		"receipt":  receipt,
	}
	if len(notes) > 0 {
		body["notes"] = notes
	}

	var order Order
	if err := g.do(ctx, http.MethodPost, "/orders", body, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (g *HTTPGateway) Transfer(ctx context.Context, paymentID, account string, amount int64, currency string) (*Transfer, error) {
	body := map[string]interface{}{
		"transfers": []map[string]interface{}{
			{
				"account":  account,
				"amount":   amount,
				"currency": currency,
			},
		},
	}

	var resp struct {
		Items []Transfer `json:"items"`
	}
	if err := g.do(ctx, http.MethodPost, "/payments/"+paymentID+"/transfers", body, &resp); err != nil {
		return nil, err
	}
	if len(resp.Items) == 0 {
		return nil, &Error{StatusCode: http.StatusBadGateway, Code: "EMPTY_RESPONSE", Description: "no transfer returned"}
	}
	return &resp.Items[0], nil
}

func (g *HTTPGateway) Refund(ctx context.Context, paymentID string, amount int64, notes map[string]string) (*Refund, error) {
	body := map[string]interface{}{"amount": amount}
	if len(notes) > 0 {
		body["notes"] = notes
	}

	var refund Refund
	if err := g.do(ctx, http.MethodPost, "/payments/"+paymentID+"/refund", body, &refund); err != nil {
		return nil, err
	}
	return &refund, nil
}

func (g *HTTPGateway) VerifyPaymentSignature(orderID, paymentID, signature string) bool {
	return verifySignature(g.keySecret, PaymentSignaturePayload(orderID, paymentID), signature)
}

func (g *HTTPGateway) VerifyWebhookSignature(body []byte, signature string) bool {
	return verifySignature(g.webhookSecret, string(body), signature)
}

func (g *HTTPGateway) do(ctx context.Context, method, path string, in, out interface{}) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.SetBasicAuth(g.keyID, g.keySecret)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("gateway %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read gateway response: %w", err)
	}

	logger.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("[Gateway] request")

	if resp.StatusCode >= 400 {
		return parseError(resp.StatusCode, respBody)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode gateway response: %w", err)
	}
	return nil
}

// parseError reads {"error": {"code": ..., "description": ...}}
func parseError(status int, body []byte) error {
	gwErr := &Error{StatusCode: status}
	if gjson.ValidBytes(body) {
		res := gjson.GetManyBytes(body, "error.code", "error.description")
		gwErr.Code = res[0].String()
		gwErr.Description = res[1].String()
	}
	if gwErr.Description == "" {
		gwErr.Description = http.StatusText(status)
	}
	return gwErr
}
