package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Order statuses. Paid, expired and cancelled are terminal.
const (
	OrderStatusPending   = "pending"
	OrderStatusPaid      = "paid"
	OrderStatusExpired   = "expired"
	OrderStatusCancelled = "cancelled"
)

type Order struct {
	bun.BaseModel `bun:"table:orders"`

	ID                   int64      `bun:"id,pk,autoincrement" json:"id"`
	OrderReference       string     `bun:"order_reference,unique,notnull" json:"order_reference"`
	CustomerID           int64      `bun:"customer_id,notnull" json:"customer_id"`
	EventID              int64      `bun:"event_id,notnull" json:"event_id"`
	PaymentChannelID     int64      `bun:"payment_channel_id,notnull" json:"payment_channel_id"`
	DiscountID           *int64     `bun:"discount_id" json:"discount_id,omitempty"`
	GrossAmount          int64      `bun:"gross_amount,notnull" json:"gross_amount"`
	DiscountAmount       int64      `bun:"discount_amount,notnull,default:0" json:"discount_amount"`
	FinalAmount          int64      `bun:"final_amount,notnull" json:"final_amount"`
	Status               string     `bun:"status,notnull,default:'pending'" json:"status"`
	VirtualAccountNumber string     `bun:"virtual_account_number" json:"virtual_account_number"`
	UniqueCode           int        `bun:"unique_code,nullzero" json:"unique_code,omitempty"`
	PaymentResponseURL   string     `bun:"payment_response_url" json:"payment_response_url"`
	ProofTransfer        string     `bun:"proof_transfer" json:"proof_transfer,omitempty"`
	PaidAt               *time.Time `bun:"paid_at" json:"paid_at,omitempty"`
	CreatedAt            time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt            time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`

	Customer       *Customer       `bun:"rel:belongs-to,join:customer_id=id" json:"customer,omitempty"`
	Event          *Event          `bun:"rel:belongs-to,join:event_id=id" json:"event,omitempty"`
	PaymentChannel *PaymentChannel `bun:"rel:belongs-to,join:payment_channel_id=id" json:"payment_channel,omitempty"`
	Items          []OrderItem     `bun:"rel:has-many,join:id=order_id" json:"items,omitempty"`
}

// OrderItem is one purchased ticket type. Quantity counts purchase units,
// EffectiveTicketCount counts admissions.
type OrderItem struct {
	bun.BaseModel `bun:"table:order_items"`

	ID                   int64     `bun:"id,pk,autoincrement" json:"id"`
	OrderID              int64     `bun:"order_id,notnull" json:"order_id"`
	TicketTypeID         int64     `bun:"ticket_type_id,notnull" json:"ticket_type_id"`
	Quantity             int       `bun:"quantity,notnull" json:"quantity"`
	PricePerTicket       int64     `bun:"price_per_ticket,notnull" json:"price_per_ticket"`
	EffectiveTicketCount int       `bun:"effective_ticket_count,notnull" json:"effective_ticket_count"`
	CreatedAt            time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`

	TicketType *TicketType         `bun:"rel:belongs-to,join:ticket_type_id=id" json:"ticket_type,omitempty"`
	Attendees  []OrderItemAttendee `bun:"rel:has-many,join:id=order_item_id" json:"attendees,omitempty"`
}

// OrderItemAttendee is one admission slot. TicketID stays nil until the ticket is issued.
type OrderItemAttendee struct {
	bun.BaseModel `bun:"table:order_item_attendees"`

	ID                  int64                  `bun:"id,pk,autoincrement" json:"id"`
	OrderItemID         int64                  `bun:"order_item_id,notnull" json:"order_item_id"`
	AttendeeName        string                 `bun:"attendee_name,notnull" json:"attendee_name"`
	AttendeeEmail       string                 `bun:"attendee_email" json:"attendee_email"`
	AttendeePhoneNumber string                 `bun:"attendee_phone_number" json:"attendee_phone_number"`
	CustomAnswers       map[string]interface{} `bun:"custom_answers" json:"custom_answers,omitempty"`
	BarcodeID           string                 `bun:"barcode_id" json:"barcode_id,omitempty"`
	TicketID            *int64                 `bun:"ticket_id" json:"ticket_id,omitempty"`
	CreatedAt           time.Time              `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}
