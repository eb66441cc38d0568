package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	DiscountTypePercentage = "percentage"
	DiscountTypeFixed      = "fixed"
)

// Discount is a voucher. Nil pointer fields mean "no constraint".
type Discount struct {
	bun.BaseModel `bun:"table:discounts"`

	ID                int64      `bun:"id,pk,autoincrement" json:"id"`
	Code              string     `bun:"code,unique,notnull" json:"code"`
	Description       string     `bun:"description" json:"description"`
	DiscountType      string     `bun:"discount_type,notnull" json:"discount_type"`
	Value             float64    `bun:"value,notnull" json:"value"`
	MaxDiscountAmount *int64     `bun:"max_discount_amount" json:"max_discount_amount"`
	MinimumAmount     *int64     `bun:"minimum_amount" json:"minimum_amount"`
	UsageLimit        *int       `bun:"usage_limit" json:"usage_limit"`
	UsageCount        int        `bun:"usage_count,notnull,default:0" json:"usage_count"`
	ValidFrom         *time.Time `bun:"valid_from" json:"valid_from"`
	ValidUntil        *time.Time `bun:"valid_until" json:"valid_until"`
	IsActive          bool       `bun:"is_active,notnull,default:true" json:"is_active"`
	CreatedAt         time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}

// DiscountTicketType restricts a discount to specific ticket types.
type DiscountTicketType struct {
	bun.BaseModel `bun:"table:discount_ticket_types"`

	DiscountID   int64 `bun:"discount_id,pk" json:"discount_id"`
	TicketTypeID int64 `bun:"ticket_type_id,pk" json:"ticket_type_id"`
}
