package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ms-checkout/internal/models"

	"github.com/uptrace/bun"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("record not found")

type DB struct {
	Bun *bun.DB
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// ---------------- CUSTOMERS ----------------

// FindCustomer returns the first customer matching email or, when given, phone.
func (d *DB) FindCustomer(ctx context.Context, email, phone string) (*models.Customer, error) {
	customer := new(models.Customer)
	q := d.Bun.NewSelect().Model(customer).
		WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			q = q.Where("email = ?", email)
			if phone != "" {
				q = q.WhereOr("phone_number = ?", phone)
			}
			return q
		}).
		OrderExpr("id ASC").
		Limit(1)
	if err := q.Scan(ctx); err != nil {
		return nil, notFound(err)
	}
	return customer, nil
}

func (d *DB) CreateCustomer(ctx context.Context, customer *models.Customer) error {
	if customer.CreatedAt.IsZero() {
		customer.CreatedAt = time.Now().UTC()
	}
	_, err := d.Bun.NewInsert().Model(customer).Exec(ctx)
	return err
}

// ---------------- CATALOG LOOKUPS ----------------

func (d *DB) GetEvent(ctx context.Context, id int64) (*models.Event, error) {
	event := new(models.Event)
	if err := d.Bun.NewSelect().Model(event).Where("id = ?", id).Limit(1).Scan(ctx); err != nil {
		return nil, notFound(err)
	}
	return event, nil
}

func (d *DB) GetTicketType(ctx context.Context, id int64) (*models.TicketType, error) {
	tt := new(models.TicketType)
	if err := d.Bun.NewSelect().Model(tt).Where("id = ?", id).Limit(1).Scan(ctx); err != nil {
		return nil, notFound(err)
	}
	return tt, nil
}

func (d *DB) GetPaymentChannelByCode(ctx context.Context, code string) (*models.PaymentChannel, error) {
	channel := new(models.PaymentChannel)
	err := d.Bun.NewSelect().Model(channel).
		Where("pg_code = ?", code).
		Where("is_active = ?", true).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, notFound(err)
	}
	return channel, nil
}

func (d *DB) GetPaymentChannelByID(ctx context.Context, id int64) (*models.PaymentChannel, error) {
	channel := new(models.PaymentChannel)
	if err := d.Bun.NewSelect().Model(channel).Where("id = ?", id).Limit(1).Scan(ctx); err != nil {
		return nil, notFound(err)
	}
	return channel, nil
}

// ---------------- DISCOUNTS ----------------

func (d *DB) GetDiscountByCode(ctx context.Context, code string) (*models.Discount, error) {
	discount := new(models.Discount)
	if err := d.Bun.NewSelect().Model(discount).Where("code = ?", code).Limit(1).Scan(ctx); err != nil {
		return nil, notFound(err)
	}
	return discount, nil
}

// RestrictedTicketTypeCounts returns how many ticket types the discount is limited
// to overall and how many of those belong to eventID.
func (d *DB) RestrictedTicketTypeCounts(ctx context.Context, discountID, eventID int64) (int, int, error) {
	total, err := d.Bun.NewSelect().
		Model((*models.DiscountTicketType)(nil)).
		Where("discount_id = ?", discountID).
		Count(ctx)
	if err != nil {
		return 0, 0, err
	}
	if total == 0 {
		return 0, 0, nil
	}

	forEvent, err := d.Bun.NewSelect().
		TableExpr("discount_ticket_types AS dtt").
		Join("JOIN ticket_types AS tt ON tt.id = dtt.ticket_type_id").
		Where("dtt.discount_id = ?", discountID).
		Where("tt.event_id = ?", eventID).
		Count(ctx)
	if err != nil {
		return 0, 0, err
	}
	return total, forEvent, nil
}

// IncrementDiscountUsage bumps usage_count in place.
func (d *DB) IncrementDiscountUsage(ctx context.Context, discountID int64) error {
	_, err := d.Bun.NewUpdate().
		Model((*models.Discount)(nil)).
		Set("usage_count = usage_count + 1").
		Where("id = ?", discountID).
		Exec(ctx)
	return err
}

// ---------------- ORDERS ----------------

func (d *DB) InsertOrder(ctx context.Context, order *models.Order) error {
	now := time.Now().UTC()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = order.CreatedAt
	_, err := d.Bun.NewInsert().Model(order).Exec(ctx)
	return err
}

func (d *DB) InsertOrderItem(ctx context.Context, item *models.OrderItem) error {
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	_, err := d.Bun.NewInsert().Model(item).Exec(ctx)
	return err
}

// InsertAttendees writes all attendee rows in one transaction.
func (d *DB) InsertAttendees(ctx context.Context, attendees []models.OrderItemAttendee) error {
	if len(attendees) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for i := range attendees {
		if attendees[i].CreatedAt.IsZero() {
			attendees[i].CreatedAt = now
		}
	}
	return d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewInsert().Model(&attendees).Exec(ctx)
		return err
	})
}

// UniqueCodeTaken reports whether an order on the same receiving identifier already
// holds code within [from, to).
func (d *DB) UniqueCodeTaken(ctx context.Context, virtualAccount string, code int, from, to time.Time) (bool, error) {
	return d.Bun.NewSelect().
		Model((*models.Order)(nil)).
		Where("virtual_account_number = ?", virtualAccount).
		Where("unique_code = ?", code).
		Where("created_at >= ?", from).
		Where("created_at < ?", to).
		Exists(ctx)
}

// UpdatePaymentDetails stores the payable reference produced by checkout.
func (d *DB) UpdatePaymentDetails(ctx context.Context, order *models.Order) error {
	order.UpdatedAt = time.Now().UTC()
	_, err := d.Bun.NewUpdate().
		Model(order).
		Column("virtual_account_number", "unique_code", "final_amount", "payment_response_url", "updated_at").
		WherePK().
		Exec(ctx)
	return err
}

func (d *DB) GetOrderByReference(ctx context.Context, ref string) (*models.Order, error) {
	order := new(models.Order)
	if err := d.Bun.NewSelect().Model(order).Where("order_reference = ?", ref).Limit(1).Scan(ctx); err != nil {
		return nil, notFound(err)
	}
	return order, nil
}

// GetOrderDetail loads the order with customer, event, channel and items.
func (d *DB) GetOrderDetail(ctx context.Context, ref string) (*models.Order, error) {
	order := new(models.Order)
	err := d.Bun.NewSelect().
		Model(order).
		Relation("Customer").
		Relation("Event").
		Relation("PaymentChannel").
		Relation("Items", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.OrderExpr("?TableAlias.id ASC")
		}).
		Relation("Items.TicketType").
		Where("?TableAlias.order_reference = ?", ref).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, notFound(err)
	}
	return order, nil
}

// MarkPaid moves an order to paid unless it already is. The boolean reports
// whether this call performed the transition.
func (d *DB) MarkPaid(ctx context.Context, ref string, paidAt time.Time) (bool, error) {
	res, err := d.Bun.NewUpdate().
		Model((*models.Order)(nil)).
		Set("status = ?", models.OrderStatusPaid).
		Set("paid_at = ?", paidAt).
		Set("updated_at = ?", time.Now().UTC()).
		Where("order_reference = ?", ref).
		Where("status <> ?", models.OrderStatusPaid).
		Exec(ctx)
	if err != nil {
		return false, err
	}
	return affected(res)
}

// TransitionPending moves a pending order to a terminal non-paid status.
func (d *DB) TransitionPending(ctx context.Context, ref, status string) (bool, error) {
	res, err := d.Bun.NewUpdate().
		Model((*models.Order)(nil)).
		Set("status = ?", status).
		Set("updated_at = ?", time.Now().UTC()).
		Where("order_reference = ?", ref).
		Where("status = ?", models.OrderStatusPending).
		Exec(ctx)
	if err != nil {
		return false, err
	}
	return affected(res)
}

func (d *DB) UpdateProof(ctx context.Context, ref, proofURL string) error {
	_, err := d.Bun.NewUpdate().
		Model((*models.Order)(nil)).
		Set("proof_transfer = ?", proofURL).
		Set("updated_at = ?", time.Now().UTC()).
		Where("order_reference = ?", ref).
		Exec(ctx)
	return err
}

// ListStalePending returns references of pending orders created before cutoff.
func (d *DB) ListStalePending(ctx context.Context, cutoff time.Time, limit int) ([]string, error) {
	var refs []string
	err := d.Bun.NewSelect().
		Model((*models.Order)(nil)).
		Column("order_reference").
		Where("status = ?", models.OrderStatusPending).
		Where("created_at < ?", cutoff).
		OrderExpr("created_at ASC").
		Limit(limit).
		Scan(ctx, &refs)
	return refs, err
}

// ListOrdersMissingAttendees finds orders with at least one item that has fewer
// attendee rows than its effective ticket count.
func (d *DB) ListOrdersMissingAttendees(ctx context.Context, limit int) ([]string, error) {
	var refs []string
	err := d.Bun.NewSelect().
		TableExpr("orders AS o").
		ColumnExpr("DISTINCT o.order_reference").
		Join("JOIN order_items AS oi ON oi.order_id = o.id").
		Where("oi.effective_ticket_count > (SELECT COUNT(*) FROM order_item_attendees AS a WHERE a.order_item_id = oi.id)").
		Limit(limit).
		Scan(ctx, &refs)
	return refs, err
}

// ---------------- LOGS & TEMPLATES ----------------

func (d *DB) InsertPaymentLog(ctx context.Context, entry *models.PaymentLog) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	_, err := d.Bun.NewInsert().Model(entry).Exec(ctx)
	return err
}

func (d *DB) ListPaymentLogs(ctx context.Context, ref string) ([]models.PaymentLog, error) {
	var logs []models.PaymentLog
	err := d.Bun.NewSelect().Model(&logs).Where("order_reference = ?", ref).OrderExpr("id ASC").Scan(ctx)
	return logs, err
}

func (d *DB) GetTemplate(ctx context.Context, channel, triggerOn string) (*models.NotificationTemplate, error) {
	tpl := new(models.NotificationTemplate)
	err := d.Bun.NewSelect().Model(tpl).
		Where("channel = ?", channel).
		Where("trigger_on = ?", triggerOn).
		Where("is_active = ?", true).
		OrderExpr("id ASC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, notFound(err)
	}
	return tpl, nil
}

func (d *DB) InsertNotificationLog(ctx context.Context, entry *models.NotificationLog) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	_, err := d.Bun.NewInsert().Model(entry).Exec(ctx)
	return err
}

func affected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}
