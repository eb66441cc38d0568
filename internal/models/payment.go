package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Payment channel categories.
const (
	CategoryBankTransfer   = "bank_transfer"
	CategoryQRISStatic     = "qris_statis"
	CategoryEWallet        = "ewallet"
	CategoryVirtualAccount = "virtual_account"
)

// Payment log types.
const (
	PaymentLogCheckout         = "checkout"
	PaymentLogCallback         = "callback"
	PaymentLogInvalidSignature = "invalid_signature"
	PaymentLogOrderNotFound    = "order_not_found_or_va_mismatch"
	PaymentLogError            = "error"
	PaymentLogManualConfirmed  = "manual_confirmation"
	PaymentLogDeadlineExpired  = "deadline_expired"
)

type PaymentChannel struct {
	bun.BaseModel `bun:"table:payment_channels"`

	ID        int64  `bun:"id,pk,autoincrement" json:"id"`
	PgCode    string `bun:"pg_code,unique,notnull" json:"pg_code"`
	PgName    string `bun:"pg_name,notnull" json:"pg_name"`
	Category  string `bun:"category,notnull" json:"category"`
	ImageURL  string `bun:"image_url" json:"image_url"`
	IsActive  bool   `bun:"is_active,notnull,default:true" json:"is_active"`
	SortOrder int    `bun:"sort_order,notnull,default:0" json:"sort_order"`
}

// IsManual reports whether payments on this channel are confirmed by amount matching
// instead of a gateway callback.
func (c PaymentChannel) IsManual() bool {
	return IsManualCategory(c.Category)
}

func IsManualCategory(category string) bool {
	return category == CategoryBankTransfer || category == CategoryQRISStatic
}

type PaymentInstruction struct {
	bun.BaseModel `bun:"table:payment_instructions"`

	ID               int64  `bun:"id,pk,autoincrement" json:"id"`
	PaymentChannelID int64  `bun:"payment_channel_id,notnull" json:"payment_channel_id"`
	StepOrder        int    `bun:"step_order,notnull" json:"step_order"`
	Title            string `bun:"title" json:"title"`
	Description      string `bun:"description" json:"description"`
}

// PaymentLog is append-only.
type PaymentLog struct {
	bun.BaseModel `bun:"table:payment_logs"`

	ID              int64                  `bun:"id,pk,autoincrement" json:"id"`
	OrderReference  string                 `bun:"order_reference" json:"order_reference"`
	LogType         string                 `bun:"log_type,notnull" json:"log_type"`
	RequestPayload  map[string]interface{} `bun:"request_payload" json:"request_payload"`
	ResponsePayload map[string]interface{} `bun:"response_payload" json:"response_payload"`
	CreatedAt       time.Time              `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}
