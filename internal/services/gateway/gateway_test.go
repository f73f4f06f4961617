package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/whomimohshukla/freelancehub/internal/config"
)

func newTestHTTPGateway(t *testing.T, handler http.HandlerFunc) *HTTPGateway {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewHTTPGateway(&config.PaymentConfig{
		BaseURL:        srv.URL + "/v1/",
		KeyID:          "rzp_test_key",
		KeySecret:      "key_secret",
		WebhookSecret:  "hook_secret",
		TimeoutSeconds: 2,
	})
}

func TestHTTPGateway_CreateOrder(t *testing.T) {
	var gotBody map[string]interface{}
	gw := newTestHTTPGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/orders", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "rzp_test_key", user)
		assert.Equal(t, "key_secret", pass)

		data, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(data, &gotBody))
		_, _ = w.Write([]byte(`{"id":"order_ABC","amount":150050,"currency":"INR","receipt":"ms_7","status":"created"}`))
	})

	order, err := gw.CreateOrder(context.Background(), 150050, "INR", "ms_7", map[string]string{"milestone_id": "7"})
	require.NoError(t, err)
	assert.Equal(t, "order_ABC", order.ID)
	assert.EqualValues(t, 150050, order.Amount)
	assert.EqualValues(t, 150050, gotBody["amount"])
	assert.Equal(t, "ms_7", gotBody["receipt"])
}

func TestHTTPGateway_Transfer(t *testing.T) {
	gw := newTestHTTPGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/payments/pay_1/transfers", r.URL.Path)
		_, _ = w.Write([]byte(`{"items":[{"id":"trf_1","recipient":"acc_9","amount":9000}]}`))
	})

	trf, err := gw.Transfer(context.Background(), "pay_1", "acc_9", 9000, "INR")
	require.NoError(t, err)
	assert.Equal(t, "trf_1", trf.ID)
	assert.Equal(t, "acc_9", trf.Account)
}

func TestHTTPGateway_ErrorResponse(t *testing.T) {
	gw := newTestHTTPGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":"BAD_REQUEST_ERROR","description":"The amount must be atleast INR 1.00"}}`))
	})

	_, err := gw.Refund(context.Background(), "pay_1", 10, nil)
	require.Error(t, err)
	assert.True(t, IsGatewayError(err))
	var gwErr *Error
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, "BAD_REQUEST_ERROR", gwErr.Code)
	assert.Contains(t, gwErr.Description, "atleast")
}

func TestHTTPGateway_NonJSONError(t *testing.T) {
	gw := newTestHTTPGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	})

	_, err := gw.CreateOrder(context.Background(), 100, "INR", "ms_1", nil)
	var gwErr *Error
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, http.StatusBadGateway, gwErr.StatusCode)
	assert.Equal(t, "Bad Gateway", gwErr.Description)
}

func TestHTTPGateway_Signatures(t *testing.T) {
	gw := NewHTTPGateway(&config.PaymentConfig{KeySecret: "key_secret", WebhookSecret: "hook_secret"})

	sig := Sign("key_secret", "order_1|pay_1")
	assert.True(t, gw.VerifyPaymentSignature("order_1", "pay_1", sig))
	assert.False(t, gw.VerifyPaymentSignature("order_1", "pay_2", sig))
	assert.False(t, gw.VerifyPaymentSignature("order_1", "pay_1", "not-hex"))
	assert.False(t, gw.VerifyPaymentSignature("order_1", "pay_1", ""))

	body := []byte(`{"event":"payment.captured"}`)
	assert.True(t, gw.VerifyWebhookSignature(body, Sign("hook_secret", string(body))))
	assert.False(t, gw.VerifyWebhookSignature(body, Sign("key_secret", string(body))))
}

func TestSign_KnownVector(t *testing.T) {
	// RFC 4231 test case 2
	assert.Equal(t,
		"5bdcc146bf60754e6a042426089575c75a003f089d2739839dec58b964ec3843",
		Sign("Jefe", "what do ya want for nothing?"))
}

func TestSandboxGateway_Flow(t *testing.T) {
	gw := NewSandboxGateway("")
	ctx := context.Background()

	order, err := gw.CreateOrder(ctx, 5000, "INR", "ms_1", nil)
	require.NoError(t, err)

	paymentID, sig := gw.SimulateCheckout(order.ID)
	assert.True(t, gw.VerifyPaymentSignature(order.ID, paymentID, sig))

	_, err = gw.Transfer(ctx, paymentID, FailingAccountPrefix+"_1", 4500, "INR")
	assert.True(t, IsGatewayError(err))

	trf, err := gw.Transfer(ctx, paymentID, "acc_ok", 4500, "INR")
	require.NoError(t, err)
	assert.NotEmpty(t, trf.ID)

	_, err = gw.Refund(ctx, paymentID, 5000, nil)
	require.NoError(t, err)
	_, err = gw.Refund(ctx, paymentID, 5000, nil)
	assert.Error(t, err, "double refund must fail")

	_, err = gw.CreateOrder(ctx, 0, "INR", "ms_2", nil)
	assert.Error(t, err)
}

func TestNew_PicksImplementation(t *testing.T) {
	cfg := config.DefaultConfig()
	assert.IsType(t, &SandboxGateway{}, New(cfg))

	cfg.Payment.Provider = "razorpay"
	cfg.Payment.KeyID = "rzp_live"
	cfg.Payment.KeySecret = "s"
	assert.IsType(t, &HTTPGateway{}, New(cfg))
}
