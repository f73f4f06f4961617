package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestIncPayment(t *testing.T) {
	before := testutil.ToFloat64(PaymentOperations.WithLabelValues("release", "error"))
	IncPayment("release", errors.New("gateway down"))
	after := testutil.ToFloat64(PaymentOperations.WithLabelValues("release", "error"))
	if after-before != 1 {
		t.Errorf("expected error counter to grow by 1, got %v", after-before)
	}

	before = testutil.ToFloat64(PaymentOperations.WithLabelValues("release", "success"))
	IncPayment("release", nil)
	after = testutil.ToFloat64(PaymentOperations.WithLabelValues("release", "success"))
	if after-before != 1 {
		t.Errorf("expected success counter to grow by 1, got %v", after-before)
	}
}

func TestWebsocketGauge(t *testing.T) {
	WebsocketConnections.Set(0)
	WebsocketConnections.Inc()
	WebsocketConnections.Inc()
	WebsocketConnections.Dec()
	if v := testutil.ToFloat64(WebsocketConnections); v != 1 {
		t.Errorf("gauge = %v, expected 1", v)
	}
}
