package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Customer is matched by email or phone number and reused across orders.
type Customer struct {
	bun.BaseModel `bun:"table:customers"`

	ID          int64     `bun:"id,pk,autoincrement" json:"id"`
	Name        string    `bun:"name,notnull" json:"name"`
	Email       string    `bun:"email" json:"email"`
	PhoneNumber string    `bun:"phone_number" json:"phone_number"`
	CreatedAt   time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}
