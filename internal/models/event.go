package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Event struct {
	bun.BaseModel `bun:"table:events"`

	ID          int64        `bun:"id,pk,autoincrement" json:"id"`
	Name        string       `bun:"name,notnull" json:"name"`
	Slug        string       `bun:"slug,unique,notnull" json:"slug"`
	Description string       `bun:"description" json:"description"`
	Location    string       `bun:"location" json:"location"`
	ImageURL    string       `bun:"image_url" json:"image_url"`
	StartDate   time.Time    `bun:"start_date,nullzero" json:"start_date"`
	EndDate     time.Time    `bun:"end_date,nullzero" json:"end_date"`
	IsActive    bool         `bun:"is_active,notnull,default:true" json:"is_active"`
	CreatedAt   time.Time    `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	TicketTypes []TicketType `bun:"rel:has-many,join:id=event_id" json:"ticket_types,omitempty"`
}

// TicketType is a priced admission class of an event. One purchase unit grants
// TicketsPerPurchase admissions.
type TicketType struct {
	bun.BaseModel `bun:"table:ticket_types"`

	ID                 int64  `bun:"id,pk,autoincrement" json:"id"`
	EventID            int64  `bun:"event_id,notnull" json:"event_id"`
	Name               string `bun:"name,notnull" json:"name"`
	Description        string `bun:"description" json:"description"`
	Price              int64  `bun:"price,notnull" json:"price"`
	QuantityTotal      int    `bun:"quantity_total,notnull" json:"quantity_total"`
	QuantitySold       int    `bun:"quantity_sold,notnull,default:0" json:"quantity_sold"`
	TicketsPerPurchase int    `bun:"tickets_per_purchase,notnull,default:1" json:"tickets_per_purchase"`
	MaxPerPurchase     int    `bun:"max_per_purchase,notnull,default:0" json:"max_per_purchase"`
	IsActive           bool   `bun:"is_active,notnull,default:true" json:"is_active"`
}

// Multiplier is TicketsPerPurchase with the unset case treated as 1.
func (t TicketType) Multiplier() int {
	if t.TicketsPerPurchase <= 0 {
		return 1
	}
	return t.TicketsPerPurchase
}

type EventCustomField struct {
	bun.BaseModel `bun:"table:event_custom_fields"`

	ID         int64                    `bun:"id,pk,autoincrement" json:"id"`
	EventID    int64                    `bun:"event_id,notnull" json:"event_id"`
	FieldName  string                   `bun:"field_name,notnull" json:"field_name"`
	FieldLabel string                   `bun:"field_label" json:"field_label"`
	FieldType  string                   `bun:"field_type,notnull,default:'text'" json:"field_type"`
	IsRequired bool                     `bun:"is_required,notnull,default:false" json:"is_required"`
	SortOrder  int                      `bun:"sort_order,notnull,default:0" json:"sort_order"`
	Options    []EventCustomFieldOption `bun:"rel:has-many,join:id=custom_field_id" json:"options,omitempty"`
}

type EventCustomFieldOption struct {
	bun.BaseModel `bun:"table:event_custom_field_options"`

	ID            int64  `bun:"id,pk,autoincrement" json:"id"`
	CustomFieldID int64  `bun:"custom_field_id,notnull" json:"custom_field_id"`
	OptionValue   string `bun:"option_value,notnull" json:"option_value"`
	OptionLabel   string `bun:"option_label" json:"option_label"`
	SortOrder     int    `bun:"sort_order,notnull,default:0" json:"sort_order"`
}
