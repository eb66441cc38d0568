package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ms-checkout/internal/models"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

var (
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyIssued means another run claimed the attendee first.
	ErrAlreadyIssued = errors.New("attendee already has a ticket")
)

type DB struct {
	Bun *bun.DB
}

// Issuance is what an issuance run needs to know about one order.
type Issuance struct {
	Order     models.Order
	Items     []models.OrderItem
	Attendees []models.OrderItemAttendee
}

// LoadIssuance returns the order, its items and the attendees still waiting for a ticket.
func (d *DB) LoadIssuance(ctx context.Context, orderID int64) (*Issuance, error) {
	out := &Issuance{}
	err := d.Bun.NewSelect().Model(&out.Order).Where("id = ?", orderID).Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if err := d.Bun.NewSelect().Model(&out.Items).Where("order_id = ?", orderID).OrderExpr("id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("load order items: %w", err)
	}
	if len(out.Items) == 0 {
		return out, nil
	}

	itemIDs := make([]int64, len(out.Items))
	for i, item := range out.Items {
		itemIDs[i] = item.ID
	}
	err = d.Bun.NewSelect().
		Model(&out.Attendees).
		Where("order_item_id IN (?)", bun.In(itemIDs)).
		Where("ticket_id IS NULL").
		OrderExpr("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("load attendees: %w", err)
	}
	return out, nil
}

func (d *DB) ListCustomFields(ctx context.Context, eventID int64) ([]models.EventCustomField, error) {
	var fields []models.EventCustomField
	err := d.Bun.NewSelect().Model(&fields).Where("event_id = ?", eventID).OrderExpr("sort_order ASC, id ASC").Scan(ctx)
	return fields, err
}

// IssueTicket inserts ticket and its answers and links it to its attendee, all in
// one transaction. ErrAlreadyIssued is returned, with nothing written, when the
// attendee already holds a ticket or is locked by a concurrent run.
func (d *DB) IssueTicket(ctx context.Context, ticket *models.Ticket, answers []models.TicketCustomFieldAnswer) error {
	lockRows := d.Bun.Dialect().Name() == dialect.PG

	return d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		attendee := new(models.OrderItemAttendee)
		q := tx.NewSelect().
			Model(attendee).
			Where("id = ?", ticket.AttendeeID).
			Where("ticket_id IS NULL")
		if lockRows {
			q = q.For("UPDATE SKIP LOCKED")
		}
		if err := q.Scan(ctx); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrAlreadyIssued
			}
			return fmt.Errorf("claim attendee %d: %w", ticket.AttendeeID, err)
		}

		if ticket.CreatedAt.IsZero() {
			ticket.CreatedAt = time.Now().UTC()
		}
		if _, err := tx.NewInsert().Model(ticket).Exec(ctx); err != nil {
			return fmt.Errorf("insert ticket: %w", err)
		}

		res, err := tx.NewUpdate().
			Model((*models.OrderItemAttendee)(nil)).
			Set("ticket_id = ?", ticket.ID).
			Where("id = ?", ticket.AttendeeID).
			Where("ticket_id IS NULL").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("link attendee: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrAlreadyIssued
		}

		if len(answers) == 0 {
			return nil
		}
		for i := range answers {
			answers[i].TicketID = ticket.ID
			if answers[i].CreatedAt.IsZero() {
				answers[i].CreatedAt = ticket.CreatedAt
			}
		}
		if _, err := tx.NewInsert().Model(&answers).Exec(ctx); err != nil {
			return fmt.Errorf("insert answers: %w", err)
		}
		return nil
	})
}

func (d *DB) IncrementQuantitySold(ctx context.Context, ticketTypeID int64, n int) error {
	_, err := d.Bun.NewUpdate().
		Model((*models.TicketType)(nil)).
		Set("quantity_sold = quantity_sold + ?", n).
		Where("id = ?", ticketTypeID).
		Exec(ctx)
	return err
}

type ticketContext struct {
	TicketTypeName string `bun:"ticket_type_name"`
	OrderReference string `bun:"order_reference"`
	EventID        int64  `bun:"event_id"`
	EventName      string `bun:"event_name"`
	EventSlug      string `bun:"event_slug"`
	EventLocation  string `bun:"event_location"`
	CustomerName   string `bun:"customer_name"`
}

// GetTicketDetailByCode loads a ticket with its type, order, event and buyer.
func (d *DB) GetTicketDetailByCode(ctx context.Context, code string) (*models.TicketDetail, error) {
	detail := &models.TicketDetail{}
	err := d.Bun.NewSelect().Model(&detail.Ticket).Where("ticket_code = ?", code).Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var row ticketContext
	err = d.Bun.NewSelect().
		TableExpr("orders AS o").
		ColumnExpr("tt.name AS ticket_type_name").
		ColumnExpr("o.order_reference").
		ColumnExpr("e.id AS event_id").
		ColumnExpr("e.name AS event_name").
		ColumnExpr("e.slug AS event_slug").
		ColumnExpr("e.location AS event_location").
		ColumnExpr("c.name AS customer_name").
		Join("JOIN events AS e ON e.id = o.event_id").
		Join("JOIN customers AS c ON c.id = o.customer_id").
		Join("JOIN ticket_types AS tt ON tt.id = ?", detail.Ticket.TicketTypeID).
		Where("o.id = ?", detail.Ticket.OrderID).
		Limit(1).
		Scan(ctx, &row)
	if err != nil {
		return nil, fmt.Errorf("load ticket context: %w", err)
	}

	detail.TicketTypeName = row.TicketTypeName
	detail.OrderReference = row.OrderReference
	detail.EventID = row.EventID
	detail.EventName = row.EventName
	detail.EventSlug = row.EventSlug
	detail.EventLocation = row.EventLocation
	detail.CustomerName = row.CustomerName
	return detail, nil
}

// CheckIn marks the ticket as used. It reports false when it already was.
func (d *DB) CheckIn(ctx context.Context, ticketID int64, at time.Time) (bool, error) {
	res, err := d.Bun.NewUpdate().
		Model((*models.Ticket)(nil)).
		Set("is_checked_in = ?", true).
		Set("checked_in_at = ?", at).
		Where("id = ?", ticketID).
		Where("is_checked_in = ?", false).
		Exec(ctx)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (d *DB) ListTicketsByOrder(ctx context.Context, orderID int64) ([]models.Ticket, error) {
	var tickets []models.Ticket
	err := d.Bun.NewSelect().Model(&tickets).Where("order_id = ?", orderID).OrderExpr("id ASC").Scan(ctx)
	return tickets, err
}

func (d *DB) ListAnswers(ctx context.Context, ticketID int64) ([]models.TicketCustomFieldAnswer, error) {
	var answers []models.TicketCustomFieldAnswer
	err := d.Bun.NewSelect().Model(&answers).Where("ticket_id = ?", ticketID).OrderExpr("id ASC").Scan(ctx)
	return answers, err
}
