package database

import (
	"context"
	"fmt"

	"ms-checkout/internal/models"

	"github.com/uptrace/bun"
)

// Models lists every table in creation order.
func Models() []interface{} {
	return []interface{}{
		(*models.Customer)(nil),
		(*models.Event)(nil),
		(*models.TicketType)(nil),
		(*models.EventCustomField)(nil),
		(*models.EventCustomFieldOption)(nil),
		(*models.Discount)(nil),
		(*models.DiscountTicketType)(nil),
		(*models.PaymentChannel)(nil),
		(*models.PaymentInstruction)(nil),
		(*models.Order)(nil),
		(*models.OrderItem)(nil),
		(*models.OrderItemAttendee)(nil),
		(*models.Ticket)(nil),
		(*models.TicketCustomFieldAnswer)(nil),
		(*models.PaymentLog)(nil),
		(*models.NotificationTemplate)(nil),
		(*models.NotificationLog)(nil),
	}
}

type index struct {
	name    string
	model   interface{}
	columns []string
}

var indexes = []index{
	{"idx_orders_unique_code_day", (*models.Order)(nil), []string{"virtual_account_number", "unique_code", "created_at"}},
	{"idx_orders_status_created", (*models.Order)(nil), []string{"status", "created_at"}},
	{"idx_order_items_order", (*models.OrderItem)(nil), []string{"order_id"}},
	{"idx_attendees_item_ticket", (*models.OrderItemAttendee)(nil), []string{"order_item_id", "ticket_id"}},
	{"idx_payment_logs_reference", (*models.PaymentLog)(nil), []string{"order_reference"}},
	{"idx_customers_email", (*models.Customer)(nil), []string{"email"}},
	{"idx_customers_phone", (*models.Customer)(nil), []string{"phone_number"}},
}

// CreateSchema creates all tables and secondary indexes if they are missing.
func CreateSchema(ctx context.Context, db *bun.DB) error {
	for _, model := range Models() {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table for %T: %w", model, err)
		}
	}

	for _, idx := range indexes {
		_, err := db.NewCreateIndex().
			Model(idx.model).
			Index(idx.name).
			IfNotExists().
			Column(idx.columns...).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("create index %s: %w", idx.name, err)
		}
	}
	return nil
}
