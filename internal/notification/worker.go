package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ms-checkout/internal/logger"
	"ms-checkout/internal/metrics"
	"ms-checkout/internal/models"
)

// Delivery statuses written to notification_logs.
const (
	StatusSent     = "sent"
	StatusFailed   = "failed"
	StatusSkipped  = "skipped"
	StatusDisabled = "disabled"
)

// Store is the read/write surface the worker needs. The order repository satisfies it.
type Store interface {
	GetOrderDetail(ctx context.Context, ref string) (*models.Order, error)
	GetTemplate(ctx context.Context, channel, triggerOn string) (*models.NotificationTemplate, error)
	InsertNotificationLog(ctx context.Context, entry *models.NotificationLog) error
}

type WhatsAppSender interface {
	Send(ctx context.Context, to, body string) (map[string]interface{}, error)
}

type EmailSender interface {
	Send(ctx context.Context, to, subject, html string) error
}

type WorkerConfig struct {
	BaseURL         string
	PaymentDeadline time.Duration
	Location        *time.Location
	MaxAttempts     int
	RetryBackoff    time.Duration
}

// Worker renders templates and delivers them. A nil sender disables its channel.
type Worker struct {
	store    Store
	whatsapp WhatsAppSender
	email    EmailSender
	cfg      WorkerConfig
	logger   *logger.Logger
	metrics  *metrics.Checkout
}

func NewWorker(store Store, whatsapp WhatsAppSender, email EmailSender, cfg WorkerConfig, log *logger.Logger, m *metrics.Checkout) *Worker {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.Location == nil {
		cfg.Location = time.FixedZone("WIB", 7*60*60)
	}
	return &Worker{store: store, whatsapp: whatsapp, email: email, cfg: cfg, logger: log, metrics: m}
}

// Handle delivers ev on each of its channels. It returns an error only when the
// order cannot be loaded; per-channel failures end up in notification_logs.
func (w *Worker) Handle(ctx context.Context, ev Event) error {
	order, err := w.store.GetOrderDetail(ctx, ev.OrderReference)
	if err != nil {
		return fmt.Errorf("load order %s: %w", ev.OrderReference, err)
	}

	channels := ev.Channels
	if len(channels) == 0 {
		channels = []string{models.ChannelWhatsApp, models.ChannelEmail}
	}

	data := Placeholders(order, ev.Trigger, w.cfg.BaseURL, w.cfg.PaymentDeadline, w.cfg.Location)
	for _, channel := range channels {
		tpl, err := w.store.GetTemplate(ctx, channel, ev.Trigger)
		if err != nil {
			w.logger.Warn("NOTIFY", fmt.Sprintf("No %s template for trigger %s (order %s): %v", channel, ev.Trigger, ev.OrderReference, err))
			continue
		}

		entry := &models.NotificationLog{
			OrderReference: ev.OrderReference,
			Channel:        channel,
			TriggerOn:      ev.Trigger,
		}
		switch channel {
		case models.ChannelWhatsApp:
			w.deliverWhatsApp(ctx, order, Fill(tpl.Body, data), entry)
		case models.ChannelEmail:
			w.deliverEmail(ctx, order, Fill(tpl.Subject, data), Fill(tpl.Body, data), entry)
		default:
			w.logger.Warn("NOTIFY", fmt.Sprintf("Unknown channel %q for order %s", channel, ev.OrderReference))
			continue
		}

		w.metrics.NotificationSent(channel, entry.Status)
		if err := w.store.InsertNotificationLog(ctx, entry); err != nil {
			w.logger.Error("NOTIFY", fmt.Sprintf("Failed to write notification log for %s: %v", ev.OrderReference, err))
		}
	}
	return nil
}

func (w *Worker) deliverWhatsApp(ctx context.Context, order *models.Order, body string, entry *models.NotificationLog) {
	phone := ""
	if order.Customer != nil {
		phone = order.Customer.PhoneNumber
	}
	entry.RecipientPhone = phone
	entry.RequestPayload = map[string]interface{}{"to": phone, "body": body}

	if w.whatsapp == nil {
		entry.Status = StatusDisabled
		return
	}
	if phone == "" {
		entry.Status = StatusSkipped
		entry.ResponsePayload = map[string]interface{}{"reason": "customer has no phone number"}
		return
	}

	var response map[string]interface{}
	err := w.retry(ctx, func() error {
		var sendErr error
		response, sendErr = w.whatsapp.Send(ctx, phone, body)
		return sendErr
	})
	entry.ResponsePayload = response
	w.finish(entry, err)
}

func (w *Worker) deliverEmail(ctx context.Context, order *models.Order, subject, body string, entry *models.NotificationLog) {
	to := ""
	if order.Customer != nil {
		to = order.Customer.Email
	}
	entry.RecipientEmail = to
	entry.RequestPayload = map[string]interface{}{"to": to, "subject": subject}

	if w.email == nil {
		entry.Status = StatusDisabled
		return
	}
	if to == "" {
		entry.Status = StatusSkipped
		entry.ResponsePayload = map[string]interface{}{"reason": "customer has no email"}
		return
	}

	err := w.retry(ctx, func() error {
		return w.email.Send(ctx, to, subject, body)
	})
	w.finish(entry, err)
}

func (w *Worker) finish(entry *models.NotificationLog, err error) {
	if err != nil {
		entry.Status = StatusFailed
		if entry.ResponsePayload == nil {
			entry.ResponsePayload = map[string]interface{}{}
		}
		entry.ResponsePayload["error"] = err.Error()
		w.logger.Error("NOTIFY", fmt.Sprintf("%s delivery failed for %s: %v", entry.Channel, entry.OrderReference, err))
		return
	}
	entry.Status = StatusSent
	w.logger.Info("NOTIFY", fmt.Sprintf("%s %s notification sent for %s", entry.Channel, entry.TriggerOn, entry.OrderReference))
}

func (w *Worker) retry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 1; attempt <= w.cfg.MaxAttempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if attempt == w.cfg.MaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return errors.Join(err, ctx.Err())
		case <-time.After(w.cfg.RetryBackoff * time.Duration(attempt)):
		}
	}
	return err
}

// Inline delivers events in-process. Used when Kafka is disabled.
type Inline struct {
	Worker *Worker
}

func (i Inline) Notify(ctx context.Context, ev Event) error {
	return i.Worker.Handle(ctx, ev)
}
