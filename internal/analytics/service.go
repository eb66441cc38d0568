package analytics

import (
	"context"
	"fmt"
	"time"

	"ms-checkout/internal/models"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// Service handles analytics operations
type Service struct {
	db       *bun.DB
	store    *DB
	location *time.Location
}

// NewService creates a new analytics service. Daily buckets follow loc.
func NewService(db *bun.DB, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{db: db, store: NewDB(db), location: loc}
}

// EventSales is the organizer's sales summary of one event.
type EventSales struct {
	EventID        int64             `json:"event_id"`
	Orders         []StatusTotal     `json:"orders"`
	PaidOrders     int               `json:"paid_orders"`
	Revenue        int64             `json:"revenue"`
	GrossRevenue   int64             `json:"gross_revenue"`
	DiscountTotal  int64             `json:"discount_total"`
	ConversionRate string            `json:"conversion_rate"`
	Tickets        TicketCounts      `json:"tickets"`
	ByTicketType   []TicketTypeSales `json:"by_ticket_type"`
	Discounts      []DiscountUsage   `json:"discounts"`
	Daily          []DailySales      `json:"daily"`
}

// DailySales contains paid orders of a single local day
type DailySales struct {
	Date    string `json:"date"`
	Orders  int    `json:"orders"`
	Revenue int64  `json:"revenue"`
}

// GetEventSales returns revenue analytics for a specific event
func (s *Service) GetEventSales(ctx context.Context, eventID int64) (*EventSales, error) {
	totals, err := s.store.GetStatusTotals(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("status totals: %w", err)
	}

	sales := &EventSales{EventID: eventID, Orders: totals}
	var allOrders int
	for _, t := range totals {
		allOrders += t.Orders
		if t.Status == models.OrderStatusPaid {
			sales.PaidOrders = t.Orders
			sales.Revenue = t.FinalAmount
			sales.GrossRevenue = t.GrossAmount
			sales.DiscountTotal = t.DiscountAmount
		}
	}
	sales.ConversionRate = conversionRate(sales.PaidOrders, allOrders)

	if sales.ByTicketType, err = s.store.GetTicketTypeSales(ctx, eventID); err != nil {
		return nil, fmt.Errorf("ticket type sales: %w", err)
	}
	if sales.Discounts, err = s.store.GetDiscountUsage(ctx, eventID); err != nil {
		return nil, fmt.Errorf("discount usage: %w", err)
	}
	if sales.Tickets, err = s.store.GetTicketCounts(ctx, eventID); err != nil {
		return nil, fmt.Errorf("ticket counts: %w", err)
	}

	paid, err := s.store.GetPaidOrders(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("paid orders: %w", err)
	}
	sales.Daily = s.bucketByDay(paid)

	return sales, nil
}

func (s *Service) bucketByDay(orders []PaidOrder) []DailySales {
	daily := []DailySales{}
	for _, o := range orders {
		day := o.PaidAt.In(s.location).Format("2006-01-02")
		if n := len(daily); n > 0 && daily[n-1].Date == day {
			daily[n-1].Orders++
			daily[n-1].Revenue += o.FinalAmount
			continue
		}
		daily = append(daily, DailySales{Date: day, Orders: 1, Revenue: o.FinalAmount})
	}
	return daily
}

// conversionRate is paid over all orders as a percentage with two decimals.
func conversionRate(paid, all int) string {
	if all == 0 {
		return "0.00"
	}
	return decimal.NewFromInt(int64(paid)).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(int64(all))).
		StringFixed(2)
}
