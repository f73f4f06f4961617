// Package gateway talks to the external payment provider that captures client
// funds, pays out freelancers and issues refunds.
package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/whomimohshukla/freelancehub/internal/config"
)

// Order is a checkout the client pays against
type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"` // minor units
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// Transfer moves captured funds to a linked account
type Transfer struct {
	ID      string `json:"id"`
	Account string `json:"recipient"`
	Amount  int64  `json:"amount"`
}

type Refund struct {
	ID        string `json:"id"`
	PaymentID string `json:"payment_id"`
	Amount    int64  `json:"amount"`
	Status    string `json:"status"`
}

// Gateway is the provider surface used by the escrow flow
type Gateway interface {
	Name() string
	// KeyID is the public key the checkout widget needs
	KeyID() string
	CreateOrder(ctx context.Context, amount int64, currency, receipt string, notes map[string]string) (*Order, error)
	Transfer(ctx context.Context, paymentID, account string, amount int64, currency string) (*Transfer, error)
	Refund(ctx context.Context, paymentID string, amount int64, notes map[string]string) (*Refund, error)
	VerifyPaymentSignature(orderID, paymentID, signature string) bool
	VerifyWebhookSignature(body []byte, signature string) bool
}

// Error is a failure reported by the provider
type Error struct {
	StatusCode  int
	Code        string
	Description string
}

func (e *Error) Error() string {
	return fmt.Sprintf("gateway error %d %s: %s", e.StatusCode, e.Code, e.Description)
}

// IsGatewayError reports whether err came back from the provider rather than the network
func IsGatewayError(err error) bool {
	var gwErr *Error
	return errors.As(err, &gwErr)
}

// Sign returns the hex HMAC-SHA256 of payload under secret
func Sign(secret, payload string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

// verifySignature compares in constant time
func verifySignature(secret, payload, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	got, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return hmac.Equal(got, mac.Sum(nil))
}

// PaymentSignaturePayload is the string the provider signs after checkout
func PaymentSignaturePayload(orderID, paymentID string) string {
	return orderID + "|" + paymentID
}

// New picks the HTTP gateway when keys are configured, otherwise the sandbox
func New(cfg *config.Config) Gateway {
	if cfg.UsesSandboxGateway() {
		return NewSandboxGateway(cfg.Payment.WebhookSecret)
	}
	return NewHTTPGateway(&cfg.Payment)
}
