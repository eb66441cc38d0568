package notification

import (
	"fmt"
	"strings"
	"time"

	"ms-checkout/internal/models"
	"ms-checkout/internal/order/discount"
)

var (
	dayNames   = []string{"Minggu", "Senin", "Selasa", "Rabu", "Kamis", "Jumat", "Sabtu"}
	monthNames = []string{"Januari", "Februari", "Maret", "April", "Mei", "Juni", "Juli", "Agustus", "September", "Oktober", "November", "Desember"}
)

// Fill replaces every {{key}} with data[key]. Unknown placeholders are left as is.
func Fill(template string, data map[string]string) string {
	pairs := make([]string, 0, len(data)*2)
	for key, value := range data {
		pairs = append(pairs, "{{"+key+"}}", value)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

// FormatDeadline renders t as e.g. "Rabu, 1 Mei 2024 jam 15:04:05 WIB".
func FormatDeadline(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return "-"
	}
	local := t.In(loc)
	return fmt.Sprintf("%s, %d %s %d jam %s WIB",
		dayNames[local.Weekday()], local.Day(), monthNames[local.Month()-1], local.Year(), local.Format("15:04:05"))
}

// Placeholders builds the template data for an order.
func Placeholders(order *models.Order, trigger, baseURL string, deadline time.Duration, loc *time.Location) map[string]string {
	data := map[string]string{
		"customer.name":         "-",
		"order.order_reference": orDash(order.OrderReference),
		"event.name":            "-",
		"ticket_link":           fmt.Sprintf("%s/payment/%s", baseURL, order.OrderReference),
	}
	if order.Customer != nil {
		data["customer.name"] = orDash(order.Customer.Name)
	}
	if order.Event != nil {
		data["event.name"] = orDash(order.Event.Name)
	}

	if trigger == models.TriggerCheckout {
		data["order.final_amount"] = discount.FormatRupiah(order.FinalAmount)
		data["payment_deadline"] = FormatDeadline(order.CreatedAt.Add(deadline), loc)
		data["payment_channel.pg_name"] = "-"
		if order.PaymentChannel != nil {
			data["payment_channel.pg_name"] = orDash(order.PaymentChannel.PgName)
		}
		data["virtual_account_number"] = orDash(order.VirtualAccountNumber)
		data["payment_response_url"] = orDash(order.PaymentResponseURL)
	}
	return data
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
