package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCheckoutMetricsCount(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.OrderCreated("bank_transfer")
	m.OrderCreated("bank_transfer")
	m.OrderCreated("")
	m.WebhookOutcome("paid")
	m.TicketsIssued(3, 1)
	m.NotificationSent("whatsapp", "sent")
	m.ObserveGateway(120 * time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ordersCreated.WithLabelValues("bank_transfer")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ordersCreated.WithLabelValues("unknown")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.webhookOutcomes.WithLabelValues("paid")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.ticketsIssued))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.issuanceFailures))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.notificationSends.WithLabelValues("whatsapp", "sent")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.gatewayLatency))
}

func TestNilRecorderIsSafe(t *testing.T) {
	var m *Checkout
	assert.Nil(t, New(nil))
	assert.NotPanics(t, func() {
		m.OrderCreated("qris_statis")
		m.WebhookOutcome("invalid_signature")
		m.TicketsIssued(1, 0)
		m.NotificationSent("email", "failed")
		m.ObserveGateway(time.Second)
	})
}
