package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Checkout records order, webhook, issuance and notification outcomes.
// A nil *Checkout is valid and records nothing.
type Checkout struct {
	ordersCreated     *prometheus.CounterVec
	webhookOutcomes   *prometheus.CounterVec
	ticketsIssued     prometheus.Counter
	issuanceFailures  prometheus.Counter
	notificationSends *prometheus.CounterVec
	gatewayLatency    prometheus.Histogram
}

// New registers the checkout metrics on reg. A nil registerer yields a no-op recorder.
func New(reg prometheus.Registerer) *Checkout {
	if reg == nil {
		return nil
	}
	c := &Checkout{
		ordersCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "checkout_orders_created_total",
			Help: "Orders created, by payment channel category.",
		}, []string{"category"}),
		webhookOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "checkout_webhook_outcomes_total",
			Help: "Payment notifications handled, by outcome.",
		}, []string{"outcome"}),
		ticketsIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "checkout_tickets_issued_total",
			Help: "Tickets created by issuance runs.",
		}),
		issuanceFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "checkout_ticket_issuance_failures_total",
			Help: "Attendees whose ticket could not be issued.",
		}),
		notificationSends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "checkout_notification_sends_total",
			Help: "Notification deliveries, by channel and status.",
		}, []string{"channel", "status"}),
		gatewayLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "checkout_gateway_request_seconds",
			Help:    "Latency of payment gateway create-payment calls.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(c.ordersCreated, c.webhookOutcomes, c.ticketsIssued, c.issuanceFailures, c.notificationSends, c.gatewayLatency)
	return c
}

func (c *Checkout) OrderCreated(category string) {
	if c == nil {
		return
	}
	c.ordersCreated.WithLabelValues(normalizeLabel(category)).Inc()
}

func (c *Checkout) WebhookOutcome(outcome string) {
	if c == nil {
		return
	}
	c.webhookOutcomes.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (c *Checkout) TicketsIssued(created, failed int) {
	if c == nil {
		return
	}
	c.ticketsIssued.Add(float64(created))
	c.issuanceFailures.Add(float64(failed))
}

func (c *Checkout) NotificationSent(channel, status string) {
	if c == nil {
		return
	}
	c.notificationSends.WithLabelValues(normalizeLabel(channel), normalizeLabel(status)).Inc()
}

func (c *Checkout) ObserveGateway(d time.Duration) {
	if c == nil {
		return
	}
	c.gatewayLatency.Observe(d.Seconds())
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
