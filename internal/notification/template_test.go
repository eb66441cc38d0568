package notification

import (
	"testing"
	"time"

	"ms-checkout/internal/models"

	"github.com/stretchr/testify/assert"
)

var wib = time.FixedZone("WIB", 7*60*60)

func TestFillReplacesKnownPlaceholders(t *testing.T) {
	out := Fill("Halo {{customer.name}}, {{unknown}} {{customer.name}}", map[string]string{"customer.name": "Budi"})
	assert.Equal(t, "Halo Budi, {{unknown}} Budi", out)
}

func TestFormatDeadline(t *testing.T) {
	ts := time.Date(2024, 5, 1, 8, 4, 5, 0, time.UTC)
	assert.Equal(t, "Rabu, 1 Mei 2024 jam 15:04:05 WIB", FormatDeadline(ts, wib))
	assert.Equal(t, "-", FormatDeadline(time.Time{}, wib))
}

func TestPlaceholdersForCheckout(t *testing.T) {
	order := &models.Order{
		OrderReference:       "TKT1714550645000123",
		FinalAmount:          1234567,
		VirtualAccountNumber: "BCA_MANUAL",
		PaymentResponseURL:   "https://tickets.example.com/payment/TKT1714550645000123",
		CreatedAt:            time.Date(2024, 5, 1, 3, 4, 5, 0, time.UTC),
		Customer:             &models.Customer{Name: "Budi"},
		Event:                &models.Event{Name: "Jakarta Jazz Night"},
		PaymentChannel:       &models.PaymentChannel{PgName: "BCA Transfer"},
	}

	data := Placeholders(order, models.TriggerCheckout, "https://tickets.example.com", 5*time.Hour, wib)

	assert.Equal(t, "Budi", data["customer.name"])
	assert.Equal(t, "Jakarta Jazz Night", data["event.name"])
	assert.Equal(t, "https://tickets.example.com/payment/TKT1714550645000123", data["ticket_link"])
	assert.Equal(t, "Rp 1.234.567", data["order.final_amount"])
	assert.Equal(t, "Rabu, 1 Mei 2024 jam 15:04:05 WIB", data["payment_deadline"])
	assert.Equal(t, "BCA Transfer", data["payment_channel.pg_name"])
	assert.Equal(t, "BCA_MANUAL", data["virtual_account_number"])
}

func TestPlaceholdersForPaidOmitPaymentFields(t *testing.T) {
	order := &models.Order{OrderReference: "TKT1"}

	data := Placeholders(order, models.TriggerPaid, "http://localhost:3000", 5*time.Hour, wib)

	assert.Equal(t, "-", data["customer.name"])
	assert.Equal(t, "-", data["event.name"])
	assert.NotContains(t, data, "order.final_amount")
	assert.NotContains(t, data, "virtual_account_number")
}
