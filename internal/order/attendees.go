package order

import (
	"strings"

	"ms-checkout/internal/models"
)

// Buyer is the contact data used for attendee slots the client left empty.
type Buyer struct {
	Name  string
	Email string
	Phone string
}

// AttendeesPerItem is the number of attendee rows an item needs: the stored
// effective count, else quantity times the multiplier, else quantity, else 1.
func AttendeesPerItem(item models.OrderItem, ticketType *models.TicketType) int {
	if item.EffectiveTicketCount > 0 {
		return item.EffectiveTicketCount
	}
	if ticketType != nil && item.Quantity > 0 {
		if n := item.Quantity * ticketType.Multiplier(); n > 0 {
			return n
		}
	}
	if item.Quantity > 0 {
		return item.Quantity
	}
	return 1
}

// PlanAttendees builds exactly AttendeesPerItem rows for every item.
//
// Entries with a TicketTypeID fill the slots of the matching item first.
// Entries without one are consumed by a single cursor that runs across all
// items in order. Slots still empty get the buyer's contact data, as do blank
// fields of a supplied entry. Items must already carry their IDs.
func PlanAttendees(items []models.OrderItem, ticketTypes map[int64]*models.TicketType, data []models.AttendeeInput, buyer Buyer) []models.OrderItemAttendee {
	grouped := map[int64][]models.AttendeeInput{}
	var flat []models.AttendeeInput
	for _, entry := range data {
		if entry.TicketTypeID > 0 {
			grouped[entry.TicketTypeID] = append(grouped[entry.TicketTypeID], entry)
			continue
		}
		flat = append(flat, entry)
	}

	var out []models.OrderItemAttendee
	cursor := 0
	for _, item := range items {
		slots := make([]*models.AttendeeInput, AttendeesPerItem(item, ticketTypes[item.TicketTypeID]))

		bound := grouped[item.TicketTypeID]
		for i := range slots {
			if len(bound) == 0 {
				break
			}
			entry := bound[0]
			bound = bound[1:]
			slots[i] = &entry
		}
		grouped[item.TicketTypeID] = bound

		for i := range slots {
			if slots[i] == nil && cursor < len(flat) {
				entry := flat[cursor]
				cursor++
				slots[i] = &entry
			}
		}

		for _, entry := range slots {
			out = append(out, attendeeRow(item.ID, entry, buyer))
		}
	}
	return out
}

func attendeeRow(itemID int64, entry *models.AttendeeInput, buyer Buyer) models.OrderItemAttendee {
	row := models.OrderItemAttendee{
		OrderItemID:         itemID,
		AttendeeName:        buyer.Name,
		AttendeeEmail:       buyer.Email,
		AttendeePhoneNumber: buyer.Phone,
	}
	if entry == nil {
		return row
	}
	if name := strings.TrimSpace(entry.Name); name != "" {
		row.AttendeeName = name
	}
	if email := strings.TrimSpace(entry.Email); email != "" {
		row.AttendeeEmail = email
	}
	if phone := strings.TrimSpace(entry.Phone); phone != "" {
		row.AttendeePhoneNumber = phone
	}
	if len(entry.CustomAnswers) > 0 {
		row.CustomAnswers = entry.CustomAnswers
	}
	row.BarcodeID = strings.TrimSpace(entry.BarcodeID)
	return row
}
