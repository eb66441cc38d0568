package analytics

import (
	"context"
	"time"

	"ms-checkout/internal/models"

	"github.com/uptrace/bun"
)

// DB handles analytics database operations
type DB struct {
	bun *bun.DB
}

// NewDB creates a new analytics DB handler
func NewDB(db *bun.DB) *DB {
	return &DB{bun: db}
}

// StatusTotal aggregates the orders of one status.
type StatusTotal struct {
	Status         string `bun:"status" json:"status"`
	Orders         int    `bun:"orders" json:"orders"`
	GrossAmount    int64  `bun:"gross_amount" json:"gross_amount"`
	DiscountAmount int64  `bun:"discount_amount" json:"discount_amount"`
	FinalAmount    int64  `bun:"final_amount" json:"final_amount"`
}

func (db *DB) GetStatusTotals(ctx context.Context, eventID int64) ([]StatusTotal, error) {
	var totals []StatusTotal
	err := db.bun.NewSelect().
		TableExpr("orders").
		ColumnExpr("status").
		ColumnExpr("COUNT(*) AS orders").
		ColumnExpr("COALESCE(SUM(gross_amount), 0) AS gross_amount").
		ColumnExpr("COALESCE(SUM(discount_amount), 0) AS discount_amount").
		ColumnExpr("COALESCE(SUM(final_amount), 0) AS final_amount").
		Where("event_id = ?", eventID).
		GroupExpr("status").
		OrderExpr("status").
		Scan(ctx, &totals)

	return totals, err
}

// TicketTypeSales is what one ticket type sold across paid orders.
type TicketTypeSales struct {
	TicketTypeID int64  `bun:"ticket_type_id" json:"ticket_type_id"`
	Name         string `bun:"name" json:"name"`
	Units        int    `bun:"units" json:"units"`
	Admissions   int    `bun:"admissions" json:"admissions"`
	Revenue      int64  `bun:"revenue" json:"revenue"`
	QuantitySold int    `bun:"quantity_sold" json:"quantity_sold"`
	Capacity     int    `bun:"quantity_total" json:"capacity"`
}

func (db *DB) GetTicketTypeSales(ctx context.Context, eventID int64) ([]TicketTypeSales, error) {
	var sales []TicketTypeSales
	err := db.bun.NewRaw(`
		SELECT
			tt.id AS ticket_type_id,
			tt.name,
			tt.quantity_sold,
			tt.quantity_total,
			COALESCE(SUM(oi.quantity), 0) AS units,
			COALESCE(SUM(oi.effective_ticket_count), 0) AS admissions,
			COALESCE(SUM(oi.quantity * oi.price_per_ticket), 0) AS revenue
		FROM
			ticket_types tt
		LEFT JOIN
			order_items oi ON oi.ticket_type_id = tt.id
			AND oi.order_id IN (SELECT id FROM orders WHERE status = ?)
		WHERE
			tt.event_id = ?
		GROUP BY
			tt.id, tt.name, tt.quantity_sold, tt.quantity_total
		ORDER BY
			tt.id
	`, models.OrderStatusPaid, eventID).Scan(ctx, &sales)

	return sales, err
}

// DiscountUsage is how often a voucher was redeemed on paid orders.
type DiscountUsage struct {
	Code          string `bun:"code" json:"code"`
	Orders        int    `bun:"orders" json:"orders"`
	TotalDiscount int64  `bun:"total_discount" json:"total_discount"`
}

func (db *DB) GetDiscountUsage(ctx context.Context, eventID int64) ([]DiscountUsage, error) {
	var usage []DiscountUsage
	err := db.bun.NewRaw(`
		SELECT
			d.code,
			COUNT(o.id) AS orders,
			COALESCE(SUM(o.discount_amount), 0) AS total_discount
		FROM
			orders o
		JOIN
			discounts d ON d.id = o.discount_id
		WHERE
			o.event_id = ? AND o.status = ?
		GROUP BY
			d.code
		ORDER BY
			d.code
	`, eventID, models.OrderStatusPaid).Scan(ctx, &usage)

	return usage, err
}

// TicketCounts counts issued and checked-in tickets of an event.
type TicketCounts struct {
	Issued    int `bun:"issued" json:"issued"`
	CheckedIn int `bun:"checked_in" json:"checked_in"`
}

func (db *DB) GetTicketCounts(ctx context.Context, eventID int64) (TicketCounts, error) {
	var counts TicketCounts
	err := db.bun.NewRaw(`
		SELECT
			COUNT(t.id) AS issued,
			COALESCE(SUM(CASE WHEN t.is_checked_in THEN 1 ELSE 0 END), 0) AS checked_in
		FROM
			tickets t
		JOIN
			orders o ON o.id = t.order_id
		WHERE
			o.event_id = ?
	`, eventID).Scan(ctx, &counts)

	return counts, err
}

// PaidOrder is the slice of an order daily sales are bucketed from.
type PaidOrder struct {
	PaidAt      time.Time `bun:"paid_at"`
	FinalAmount int64     `bun:"final_amount"`
}

func (db *DB) GetPaidOrders(ctx context.Context, eventID int64) ([]PaidOrder, error) {
	var orders []PaidOrder
	err := db.bun.NewSelect().
		TableExpr("orders").
		ColumnExpr("paid_at, final_amount").
		Where("event_id = ?", eventID).
		Where("status = ?", models.OrderStatusPaid).
		Where("paid_at IS NOT NULL").
		OrderExpr("paid_at").
		Scan(ctx, &orders)

	return orders, err
}
