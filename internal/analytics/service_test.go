package analytics_test

import (
	"context"
	"testing"
	"time"

	"ms-checkout/internal/analytics"
	"ms-checkout/internal/database/dbtest"
	"ms-checkout/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

var wib = time.FixedZone("WIB", 7*60*60)

func insert(t *testing.T, db *bun.DB, model interface{}) {
	t.Helper()
	_, err := db.NewInsert().Model(model).Exec(context.Background())
	require.NoError(t, err)
}

func paidAt(s string) *time.Time {
	ts, _ := time.Parse(time.RFC3339, s)
	return &ts
}

// seedSales creates two paid orders, one pending order and one paid order of
// another event.
func seedSales(t *testing.T) (*analytics.Service, dbtest.Fixture) {
	db := dbtest.Open(t)
	f := dbtest.Seed(t, db)

	customer := &models.Customer{Name: "Budi", Email: "budi@example.com"}
	insert(t, db, customer)
	voucher := &models.Discount{Code: "SAVE10", DiscountType: models.DiscountTypePercentage, Value: 10, IsActive: true}
	insert(t, db, voucher)

	plain := &models.Order{
		OrderReference: "TKT1", CustomerID: customer.ID, EventID: f.Event.ID, PaymentChannelID: f.VA.ID,
		GrossAmount: 200000, FinalAmount: 200000, Status: models.OrderStatusPaid,
		PaidAt: paidAt("2024-05-01T20:00:00Z"),
	}
	discounted := &models.Order{
		OrderReference: "TKT2", CustomerID: customer.ID, EventID: f.Event.ID, PaymentChannelID: f.BankTransfer.ID,
		DiscountID: &voucher.ID, GrossAmount: 350000, DiscountAmount: 35000, FinalAmount: 315000,
		Status: models.OrderStatusPaid, PaidAt: paidAt("2024-05-02T03:00:00Z"),
	}
	pending := &models.Order{
		OrderReference: "TKT3", CustomerID: customer.ID, EventID: f.Event.ID, PaymentChannelID: f.VA.ID,
		GrossAmount: 100000, FinalAmount: 100000, Status: models.OrderStatusPending,
	}
	other := &models.Order{
		OrderReference: "TKT4", CustomerID: customer.ID, EventID: f.OtherEvent.ID, PaymentChannelID: f.VA.ID,
		GrossAmount: 999000, FinalAmount: 999000, Status: models.OrderStatusPaid,
		PaidAt: paidAt("2024-05-02T03:00:00Z"),
	}
	for _, o := range []*models.Order{plain, discounted, pending, other} {
		insert(t, db, o)
	}

	regularItem := &models.OrderItem{OrderID: plain.ID, TicketTypeID: f.Regular.ID, Quantity: 2, PricePerTicket: 100000, EffectiveTicketCount: 2}
	bundleItem := &models.OrderItem{OrderID: discounted.ID, TicketTypeID: f.Bundle.ID, Quantity: 1, PricePerTicket: 350000, EffectiveTicketCount: 4}
	pendingItem := &models.OrderItem{OrderID: pending.ID, TicketTypeID: f.Regular.ID, Quantity: 1, PricePerTicket: 100000, EffectiveTicketCount: 1}
	for _, item := range []*models.OrderItem{regularItem, bundleItem, pendingItem} {
		insert(t, db, item)
	}

	checkedIn := time.Now()
	insert(t, db, &[]models.Ticket{
		{OrderID: plain.ID, OrderItemID: regularItem.ID, AttendeeID: 1, TicketTypeID: f.Regular.ID, TicketCode: "AAAA0001", AttendeeName: "Budi", IsCheckedIn: true, CheckedInAt: &checkedIn},
		{OrderID: plain.ID, OrderItemID: regularItem.ID, AttendeeID: 2, TicketTypeID: f.Regular.ID, TicketCode: "AAAA0002", AttendeeName: "Siti"},
	})

	return analytics.NewService(db, wib), f
}

func TestGetEventSales(t *testing.T) {
	svc, f := seedSales(t)

	sales, err := svc.GetEventSales(context.Background(), f.Event.ID)
	require.NoError(t, err)

	assert.Equal(t, 2, sales.PaidOrders)
	assert.Equal(t, int64(515000), sales.Revenue)
	assert.Equal(t, int64(550000), sales.GrossRevenue)
	assert.Equal(t, int64(35000), sales.DiscountTotal)
	assert.Equal(t, "66.67", sales.ConversionRate)
	assert.Len(t, sales.Orders, 2)

	require.Len(t, sales.ByTicketType, 2)
	regular, bundle := sales.ByTicketType[0], sales.ByTicketType[1]
	assert.Equal(t, f.Regular.ID, regular.TicketTypeID)
	assert.Equal(t, 2, regular.Units)
	assert.Equal(t, 2, regular.Admissions)
	assert.Equal(t, int64(200000), regular.Revenue)
	assert.Equal(t, 1, bundle.Units)
	assert.Equal(t, 4, bundle.Admissions)
	assert.Equal(t, int64(350000), bundle.Revenue)
	assert.Equal(t, 40, bundle.Capacity)

	assert.Equal(t, []analytics.DiscountUsage{{Code: "SAVE10", Orders: 1, TotalDiscount: 35000}}, sales.Discounts)
	assert.Equal(t, analytics.TicketCounts{Issued: 2, CheckedIn: 1}, sales.Tickets)

	// 20:00 UTC on May 1st is already May 2nd in Jakarta.
	assert.Equal(t, []analytics.DailySales{{Date: "2024-05-02", Orders: 2, Revenue: 515000}}, sales.Daily)
}

func TestGetEventSalesWithoutOrders(t *testing.T) {
	db := dbtest.Open(t)
	f := dbtest.Seed(t, db)
	svc := analytics.NewService(db, wib)

	sales, err := svc.GetEventSales(context.Background(), f.Event.ID)
	require.NoError(t, err)
	assert.Zero(t, sales.PaidOrders)
	assert.Equal(t, "0.00", sales.ConversionRate)
	assert.Empty(t, sales.Daily)
	assert.Len(t, sales.ByTicketType, 2)
}

func TestGetEventOrders(t *testing.T) {
	svc, f := seedSales(t)
	ctx := context.Background()

	all, err := svc.GetEventOrders(ctx, f.Event.ID, analytics.EventOrderOptions{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	paid, err := svc.GetEventOrders(ctx, f.Event.ID, analytics.EventOrderOptions{
		Status: models.OrderStatusPaid,
		SortBy: "final_amount",
	})
	require.NoError(t, err)
	require.Len(t, paid, 2)
	assert.Equal(t, "TKT1", paid[0].OrderReference)
	assert.Equal(t, "TKT2", paid[1].OrderReference)
	require.NotNil(t, paid[0].Customer)
	assert.Equal(t, "Budi", paid[0].Customer.Name)
	require.NotNil(t, paid[1].PaymentChannel)
	assert.Equal(t, f.BankTransfer.PgCode, paid[1].PaymentChannel.PgCode)

	page, err := svc.GetEventOrders(ctx, f.Event.ID, analytics.EventOrderOptions{Limit: 1, Offset: 1, SortBy: "final_amount", SortDesc: true})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "TKT1", page[0].OrderReference)
}
