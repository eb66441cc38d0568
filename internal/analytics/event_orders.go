package analytics

import (
	"context"
	"strings"

	"ms-checkout/internal/models"
)

// OrderSortField defines the valid fields for sorting orders
type OrderSortField string

const (
	OrderSortByAmount    OrderSortField = "final_amount"
	OrderSortByCreatedAt OrderSortField = "created_at"
	OrderSortByPaidAt    OrderSortField = "paid_at"

	maxOrdersPerPage = 200
)

// EventOrderOptions contains options for filtering and sorting orders
type EventOrderOptions struct {
	Status   string
	SortBy   string
	SortDesc bool
	Limit    int
	Offset   int
}

// GetEventOrders returns orders for a specific event with their customer and
// payment channel, newest first unless asked otherwise.
func (s *Service) GetEventOrders(ctx context.Context, eventID int64, options EventOrderOptions) ([]models.Order, error) {
	orders := []models.Order{}
	q := s.db.NewSelect().
		Model(&orders).
		Relation("Customer").
		Relation("PaymentChannel").
		Where("?TableAlias.event_id = ?", eventID)

	if options.Status != "" {
		q = q.Where("?TableAlias.status = ?", options.Status)
	}

	direction := "ASC"
	if options.SortDesc || options.SortBy == "" {
		direction = "DESC"
	}
	switch OrderSortField(strings.ToLower(options.SortBy)) {
	case OrderSortByAmount:
		q = q.OrderExpr("?TableAlias.final_amount " + direction)
	case OrderSortByPaidAt:
		q = q.OrderExpr("?TableAlias.paid_at " + direction)
	default:
		q = q.OrderExpr("?TableAlias.created_at " + direction)
	}
	q = q.OrderExpr("?TableAlias.id " + direction)

	limit := options.Limit
	if limit <= 0 || limit > maxOrdersPerPage {
		limit = maxOrdersPerPage
	}
	q = q.Limit(limit)
	if options.Offset > 0 {
		q = q.Offset(options.Offset)
	}

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return orders, nil
}
