// Package dbtest provides an in-memory database with a small storefront catalog
// for package tests.
package dbtest

import (
	"context"
	"testing"
	"time"

	"ms-checkout/internal/database"
	"ms-checkout/internal/models"

	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

// Fixture holds the ids of the seeded catalog.
type Fixture struct {
	Event        models.Event
	OtherEvent   models.Event
	Regular      models.TicketType
	Bundle       models.TicketType
	BankTransfer models.PaymentChannel
	QRIS         models.PaymentChannel
	VA           models.PaymentChannel
	EWallet      models.PaymentChannel
	ShirtSize    models.EventCustomField
}

// Open returns a fresh in-memory database with the full schema.
func Open(t *testing.T) *bun.DB {
	t.Helper()

	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, database.CreateSchema(context.Background(), db))

	t.Cleanup(func() { db.Close() })
	return db
}

// Seed inserts one event with a regular and a bundle ticket type, one payment
// channel per category and a custom field.
func Seed(t *testing.T, db *bun.DB) Fixture {
	t.Helper()
	ctx := context.Background()

	f := Fixture{
		Event: models.Event{
			Name: "Jakarta Jazz Night", Slug: "jakarta-jazz-night", Location: "JIExpo",
			StartDate: time.Date(2030, 1, 10, 19, 0, 0, 0, time.UTC), IsActive: true,
		},
		OtherEvent: models.Event{Name: "Bandung Rock Fest", Slug: "bandung-rock-fest", IsActive: true},
	}
	mustInsert(t, db, &f.Event)
	mustInsert(t, db, &f.OtherEvent)

	f.Regular = models.TicketType{
		EventID: f.Event.ID, Name: "Regular", Price: 100000,
		QuantityTotal: 100, TicketsPerPurchase: 1, IsActive: true,
	}
	f.Bundle = models.TicketType{
		EventID: f.Event.ID, Name: "Group of 4", Price: 350000,
		QuantityTotal: 40, TicketsPerPurchase: 4, IsActive: true,
	}
	mustInsert(t, db, &f.Regular)
	mustInsert(t, db, &f.Bundle)

	f.BankTransfer = models.PaymentChannel{PgCode: "BCA_MANUAL", PgName: "BCA Transfer", Category: models.CategoryBankTransfer, IsActive: true}
	f.QRIS = models.PaymentChannel{PgCode: "QRIS_STATIS", PgName: "QRIS", Category: models.CategoryQRISStatic, IsActive: true}
	f.VA = models.PaymentChannel{PgCode: "402", PgName: "Permata VA", Category: models.CategoryVirtualAccount, IsActive: true}
	f.EWallet = models.PaymentChannel{PgCode: "812", PgName: "OVO", Category: models.CategoryEWallet, IsActive: true}
	mustInsert(t, db, &f.BankTransfer)
	mustInsert(t, db, &f.QRIS)
	mustInsert(t, db, &f.VA)
	mustInsert(t, db, &f.EWallet)

	f.ShirtSize = models.EventCustomField{EventID: f.Event.ID, FieldName: "shirt_size", FieldLabel: "Shirt size", FieldType: "select"}
	mustInsert(t, db, &f.ShirtSize)

	_, err := db.NewInsert().Model(&[]models.NotificationTemplate{
		{ID: 2, Name: "checkout", Channel: models.ChannelWhatsApp, TriggerOn: models.TriggerCheckout, IsActive: true,
			Body: "Halo {{customer.name}}, pesanan {{order.order_reference}} untuk {{event.name}} sebesar {{order.final_amount}}. Bayar ke {{virtual_account_number}} sebelum {{payment_deadline}}."},
		{ID: 4, Name: "paid", Channel: models.ChannelWhatsApp, TriggerOn: models.TriggerPaid, IsActive: true,
			Body: "Terima kasih {{customer.name}}! Tiket {{event.name}}: {{ticket_link}}"},
		{ID: 5, Name: "paid-email", Channel: models.ChannelEmail, TriggerOn: models.TriggerPaid, IsActive: true,
			Subject: "Tiket {{event.name}}", Body: "<p>Halo {{customer.name}}</p><p>{{ticket_link}}</p>"},
	}).Exec(ctx)
	require.NoError(t, err)

	return f
}

func mustInsert(t *testing.T, db *bun.DB, model interface{}) {
	t.Helper()
	_, err := db.NewInsert().Model(model).Exec(context.Background())
	require.NoError(t, err)
}
