package gateway

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
)

// SandboxSecret signs sandbox checkouts when no key secret is configured
const SandboxSecret = "sandbox_secret"

// FailingAccountPrefix makes sandbox transfers to matching accounts fail
const FailingAccountPrefix = "acc_fail"

// SandboxGateway settles everything in-process with deterministic ids
type SandboxGateway struct {
	webhookSecret string
	seq           atomic.Int64

	mu       sync.Mutex
	refunded map[string]bool
}

func NewSandboxGateway(webhookSecret string) *SandboxGateway {
	if webhookSecret == "" {
		webhookSecret = SandboxSecret
	}
	return &SandboxGateway{
		webhookSecret: webhookSecret,
		refunded:      make(map[string]bool),
	}
}

func (g *SandboxGateway) Name() string  { return "sandbox" }
func (g *SandboxGateway) KeyID() string { return "rzp_sandbox" }

func (g *SandboxGateway) next(prefix string) string {
	return fmt.Sprintf("%s_sbx_%06d", prefix, g.seq.Add(1))
}

func (g *SandboxGateway) CreateOrder(ctx context.Context, amount int64, currency, receipt string, notes map[string]string) (*Order, error) {
	if amount <= 0 {
		return nil, &Error{StatusCode: 400, Code: "BAD_REQUEST_ERROR", Description: "amount must be positive"}
	}
	return &Order{
		ID:       g.next("order"),
		Amount:   amount,
		Currency: currency,
		Receipt:  receipt,
		Status:   "created",
	}, nil
}

func (g *SandboxGateway) Transfer(ctx context.Context, paymentID, account string, amount int64, currency string) (*Transfer, error) {
	if strings.HasPrefix(account, FailingAccountPrefix) {
		return nil, &Error{StatusCode: 400, Code: "BAD_REQUEST_ERROR", Description: "linked account is not activated"}
	}
	return &Transfer{ID: g.next("trf"), Account: account, Amount: amount}, nil
}

func (g *SandboxGateway) Refund(ctx context.Context, paymentID string, amount int64, notes map[string]string) (*Refund, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.refunded[paymentID] {
		return nil, &Error{StatusCode: 400, Code: "BAD_REQUEST_ERROR", Description: "payment already refunded"}
	}
	g.refunded[paymentID] = true
	return &Refund{ID: g.next("rfnd"), PaymentID: paymentID, Amount: amount, Status: "processed"}, nil
}

// SimulateCheckout returns a payment id and a valid signature for orderID
func (g *SandboxGateway) SimulateCheckout(orderID string) (paymentID, signature string) {
	paymentID = g.next("pay")
	return paymentID, Sign(SandboxSecret, PaymentSignaturePayload(orderID, paymentID))
}

func (g *SandboxGateway) VerifyPaymentSignature(orderID, paymentID, signature string) bool {
	return verifySignature(SandboxSecret, PaymentSignaturePayload(orderID, paymentID), signature)
}

func (g *SandboxGateway) VerifyWebhookSignature(body []byte, signature string) bool {
	return verifySignature(g.webhookSecret, string(body), signature)
}
