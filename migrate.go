package main

import (
	"context"
	"fmt"
	"time"

	"ms-checkout/internal/database"
	"ms-checkout/internal/logger"
	"ms-checkout/internal/models"

	"github.com/uptrace/bun"
)

// runMigrations creates every table and index. With reset the tables are
// dropped first, in reverse dependency order.
func runMigrations(ctx context.Context, db *bun.DB, reset bool, log *logger.Logger) error {
	if reset {
		log.Warn("DATABASE", "Dropping all tables")
		if err := dropTables(ctx, db); err != nil {
			return err
		}
	}

	log.Info("DATABASE", "Creating tables")
	if err := database.CreateSchema(ctx, db); err != nil {
		return err
	}
	log.Info("DATABASE", "✅ Schema ready")
	return nil
}

func dropTables(ctx context.Context, db *bun.DB) error {
	tables := database.Models()
	for i := len(tables) - 1; i >= 0; i-- {
		if _, err := db.NewDropTable().Model(tables[i]).IfExists().Exec(ctx); err != nil {
			return fmt.Errorf("drop table for %T: %w", tables[i], err)
		}
	}
	return nil
}

// seedData inserts a demo event, the payment channels and the default
// notification templates. Rows that already exist are left alone.
func seedData(ctx context.Context, db *bun.DB, log *logger.Logger) error {
	event := &models.Event{
		Name:        "Jakarta Jazz Night",
		Slug:        "jakarta-jazz-night",
		Description: "An evening of Indonesian jazz.",
		Location:    "JIExpo Kemayoran",
		StartDate:   time.Now().AddDate(0, 1, 0),
		EndDate:     time.Now().AddDate(0, 1, 0).Add(5 * time.Hour),
		IsActive:    true,
	}
	if _, err := db.NewInsert().Model(event).Ignore().Exec(ctx); err != nil {
		return fmt.Errorf("seed event: %w", err)
	}
	if err := db.NewSelect().Model(event).Where("slug = ?", event.Slug).Scan(ctx); err != nil {
		return fmt.Errorf("reload event: %w", err)
	}

	ticketTypes := []models.TicketType{
		{EventID: event.ID, Name: "Regular", Price: 150000, QuantityTotal: 500, TicketsPerPurchase: 1, MaxPerPurchase: 10, IsActive: true},
		{EventID: event.ID, Name: "VIP", Price: 450000, QuantityTotal: 100, TicketsPerPurchase: 1, MaxPerPurchase: 4, IsActive: true},
		{EventID: event.ID, Name: "Group of 4", Price: 500000, QuantityTotal: 50, TicketsPerPurchase: 4, MaxPerPurchase: 2, IsActive: true},
	}
	existing, err := db.NewSelect().Model((*models.TicketType)(nil)).Where("event_id = ?", event.ID).Count(ctx)
	if err != nil {
		return fmt.Errorf("count ticket types: %w", err)
	}
	if existing == 0 {
		if _, err := db.NewInsert().Model(&ticketTypes).Exec(ctx); err != nil {
			return fmt.Errorf("seed ticket types: %w", err)
		}
	}

	channels := []models.PaymentChannel{
		{PgCode: "BCA_TRANSFER", PgName: "BCA Transfer", Category: models.CategoryBankTransfer, IsActive: true, SortOrder: 1},
		{PgCode: "QRIS_STATIS", PgName: "QRIS", Category: models.CategoryQRISStatic, IsActive: true, SortOrder: 2},
		{PgCode: "402", PgName: "Permata Virtual Account", Category: models.CategoryVirtualAccount, IsActive: true, SortOrder: 3},
		{PgCode: "812", PgName: "OVO", Category: models.CategoryEWallet, IsActive: true, SortOrder: 4},
	}
	if _, err := db.NewInsert().Model(&channels).Ignore().Exec(ctx); err != nil {
		return fmt.Errorf("seed payment channels: %w", err)
	}

	bca := new(models.PaymentChannel)
	if err := db.NewSelect().Model(bca).Where("pg_code = ?", "BCA_TRANSFER").Scan(ctx); err != nil {
		return fmt.Errorf("reload payment channel: %w", err)
	}
	steps, err := db.NewSelect().Model((*models.PaymentInstruction)(nil)).Where("payment_channel_id = ?", bca.ID).Count(ctx)
	if err != nil {
		return fmt.Errorf("count payment instructions: %w", err)
	}
	if steps == 0 {
		instructions := []models.PaymentInstruction{
			{PaymentChannelID: bca.ID, StepOrder: 1, Title: "Transfer", Description: "Transfer the exact amount, including the unique code, to BCA 1234567890."},
			{PaymentChannelID: bca.ID, StepOrder: 2, Title: "Upload proof", Description: "Upload the transfer receipt on the order page."},
		}
		if _, err := db.NewInsert().Model(&instructions).Exec(ctx); err != nil {
			return fmt.Errorf("seed payment instructions: %w", err)
		}
	}

	voucher := &models.Discount{
		Code:         "SAVE10",
		Description:  "10% off",
		DiscountType: models.DiscountTypePercentage,
		Value:        10,
		IsActive:     true,
	}
	if _, err := db.NewInsert().Model(voucher).Ignore().Exec(ctx); err != nil {
		return fmt.Errorf("seed voucher: %w", err)
	}

	templates := []models.NotificationTemplate{
		{ID: 2, Name: "checkout", Channel: models.ChannelWhatsApp, TriggerOn: models.TriggerCheckout, IsActive: true,
			Body: "Halo {{customer.name}}, pesanan {{order.order_reference}} untuk {{event.name}} sebesar {{order.final_amount}} " +
				"menunggu pembayaran via {{payment_channel.pg_name}} ke {{virtual_account_number}} sebelum {{payment_deadline}}. " +
				"Detail: {{payment_response_url}}"},
		{ID: 4, Name: "paid", Channel: models.ChannelWhatsApp, TriggerOn: models.TriggerPaid, IsActive: true,
			Body: "Terima kasih {{customer.name}}! Pembayaran {{order.order_reference}} diterima. Tiket {{event.name}}: {{ticket_link}}"},
	}
	if _, err := db.NewInsert().Model(&templates).Ignore().Exec(ctx); err != nil {
		return fmt.Errorf("seed templates: %w", err)
	}

	log.Info("DATABASE", fmt.Sprintf("✅ Seeded event %s with %d ticket types", event.Slug, len(ticketTypes)))
	return nil
}
