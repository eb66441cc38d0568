package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	ChannelWhatsApp = "whatsapp"
	ChannelEmail    = "email"

	TriggerCheckout = "checkout"
	TriggerPaid     = "paid"
)

type NotificationTemplate struct {
	bun.BaseModel `bun:"table:notification_templates"`

	ID        int64  `bun:"id,pk,autoincrement" json:"id"`
	Name      string `bun:"name" json:"name"`
	Channel   string `bun:"channel,notnull" json:"channel"`
	TriggerOn string `bun:"trigger_on,notnull" json:"trigger_on"`
	Subject   string `bun:"subject" json:"subject"`
	Body      string `bun:"body,notnull" json:"body"`
	IsActive  bool   `bun:"is_active,notnull,default:true" json:"is_active"`
}

// NotificationLog is append-only; one row per delivery attempt outcome.
type NotificationLog struct {
	bun.BaseModel `bun:"table:notification_logs"`

	ID              int64                  `bun:"id,pk,autoincrement" json:"id"`
	OrderReference  string                 `bun:"order_reference,notnull" json:"order_reference"`
	Channel         string                 `bun:"channel,notnull" json:"channel"`
	TriggerOn       string                 `bun:"trigger_on,notnull" json:"trigger_on"`
	RecipientPhone  string                 `bun:"recipient_phone" json:"recipient_phone,omitempty"`
	RecipientEmail  string                 `bun:"recipient_email" json:"recipient_email,omitempty"`
	Status          string                 `bun:"status,notnull" json:"status"`
	RequestPayload  map[string]interface{} `bun:"request_payload" json:"request_payload"`
	ResponsePayload map[string]interface{} `bun:"response_payload" json:"response_payload"`
	CreatedAt       time.Time              `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}
