package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Ticket is created once per paid attendee and checked in at most once.
type Ticket struct {
	bun.BaseModel `bun:"table:tickets"`

	ID                  int64      `bun:"id,pk,autoincrement" json:"id"`
	OrderID             int64      `bun:"order_id,notnull" json:"order_id"`
	OrderItemID         int64      `bun:"order_item_id,notnull" json:"order_item_id"`
	AttendeeID          int64      `bun:"attendee_id,notnull,unique" json:"attendee_id"`
	TicketTypeID        int64      `bun:"ticket_type_id,notnull" json:"ticket_type_id"`
	TicketCode          string     `bun:"ticket_code,unique,notnull" json:"ticket_code"`
	AttendeeName        string     `bun:"attendee_name,notnull" json:"attendee_name"`
	AttendeeEmail       string     `bun:"attendee_email" json:"attendee_email"`
	AttendeePhoneNumber string     `bun:"attendee_phone_number" json:"attendee_phone_number"`
	IsCheckedIn         bool       `bun:"is_checked_in,notnull,default:false" json:"is_checked_in"`
	CheckedInAt         *time.Time `bun:"checked_in_at" json:"checked_in_at,omitempty"`
	CreatedAt           time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}

type TicketCustomFieldAnswer struct {
	bun.BaseModel `bun:"table:ticket_custom_field_answers"`

	ID            int64     `bun:"id,pk,autoincrement" json:"id"`
	TicketID      int64     `bun:"ticket_id,notnull" json:"ticket_id"`
	CustomFieldID int64     `bun:"custom_field_id,notnull" json:"custom_field_id"`
	AnswerValue   string    `bun:"answer_value" json:"answer_value"`
	CreatedAt     time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}

// IssueResult summarises one ticket issuance run.
type IssueResult struct {
	TicketsCreated        int `json:"tickets_created"`
	CustomFieldsProcessed int `json:"custom_fields_processed"`
	Failed                int `json:"failed"`
}

// TicketDetail joins a ticket with the data needed to verify it at the gate.
type TicketDetail struct {
	Ticket         Ticket `json:"ticket"`
	TicketTypeName string `json:"ticket_type_name"`
	OrderReference string `json:"order_reference"`
	EventID        int64  `json:"event_id"`
	EventName      string `json:"event_name"`
	EventSlug      string `json:"event_slug"`
	EventLocation  string `json:"event_location"`
	CustomerName   string `json:"customer_name"`
}
