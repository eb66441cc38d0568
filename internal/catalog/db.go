package catalog

import (
	"context"
	"database/sql"
	"errors"

	"ms-checkout/internal/models"

	"github.com/uptrace/bun"
)

var ErrNotFound = errors.New("catalog entry not found")

// DB reads the storefront catalog.
type DB struct {
	Bun *bun.DB
}

func (d *DB) ListEvents(ctx context.Context) ([]models.Event, error) {
	events := []models.Event{}
	err := d.Bun.NewSelect().
		Model(&events).
		Relation("TicketTypes", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("is_active = ?", true).Order("price ASC")
		}).
		Where("?TableAlias.is_active = ?", true).
		Order("start_date ASC", "id ASC").
		Scan(ctx)
	return events, err
}

func (d *DB) GetEventBySlug(ctx context.Context, slug string) (*models.Event, error) {
	event := new(models.Event)
	err := d.Bun.NewSelect().
		Model(event).
		Relation("TicketTypes", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("is_active = ?", true).Order("price ASC")
		}).
		Where("?TableAlias.slug = ?", slug).
		Where("?TableAlias.is_active = ?", true).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return event, err
}

func (d *DB) ListPaymentChannels(ctx context.Context) ([]models.PaymentChannel, error) {
	channels := []models.PaymentChannel{}
	err := d.Bun.NewSelect().
		Model(&channels).
		Where("is_active = ?", true).
		Order("sort_order ASC", "id ASC").
		Scan(ctx)
	return channels, err
}

// ListCustomFields returns the attendee questions of an event with their options.
func (d *DB) ListCustomFields(ctx context.Context, eventID int64) ([]models.EventCustomField, error) {
	fields := []models.EventCustomField{}
	err := d.Bun.NewSelect().
		Model(&fields).
		Relation("Options", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Order("sort_order ASC", "id ASC")
		}).
		Where("?TableAlias.event_id = ?", eventID).
		Order("sort_order ASC", "id ASC").
		Scan(ctx)
	return fields, err
}

func (d *DB) ListPaymentInstructions(ctx context.Context, channelID int64) ([]models.PaymentInstruction, error) {
	steps := []models.PaymentInstruction{}
	err := d.Bun.NewSelect().
		Model(&steps).
		Where("payment_channel_id = ?", channelID).
		Order("step_order ASC").
		Scan(ctx)
	return steps, err
}
