package order

import (
	"testing"

	"ms-checkout/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttendeesPerItem(t *testing.T) {
	bundle := &models.TicketType{TicketsPerPurchase: 4}

	assert.Equal(t, 6, AttendeesPerItem(models.OrderItem{Quantity: 2, EffectiveTicketCount: 6}, bundle))
	assert.Equal(t, 8, AttendeesPerItem(models.OrderItem{Quantity: 2}, bundle))
	assert.Equal(t, 3, AttendeesPerItem(models.OrderItem{Quantity: 3}, nil))
	assert.Equal(t, 1, AttendeesPerItem(models.OrderItem{}, nil))
	assert.Equal(t, 2, AttendeesPerItem(models.OrderItem{Quantity: 2}, &models.TicketType{TicketsPerPurchase: 0}))
}

func TestPlanAttendeesMatchesEffectiveCounts(t *testing.T) {
	items := []models.OrderItem{
		{ID: 10, TicketTypeID: 1, Quantity: 2, EffectiveTicketCount: 2},
		{ID: 11, TicketTypeID: 2, Quantity: 1, EffectiveTicketCount: 4},
	}
	types := map[int64]*models.TicketType{1: {ID: 1}, 2: {ID: 2, TicketsPerPurchase: 4}}
	buyer := Buyer{Name: "Siti", Email: "siti@example.com", Phone: "0812"}

	for _, data := range [][]models.AttendeeInput{
		nil,
		{{Name: "Only One"}},
		{{Name: "A"}, {Name: "B"}, {Name: "C"}, {Name: "D"}, {Name: "E"}, {Name: "F"}, {Name: "G"}},
	} {
		rows := PlanAttendees(items, types, data, buyer)
		require.Len(t, rows, 6)

		perItem := map[int64]int{}
		for _, r := range rows {
			perItem[r.OrderItemID]++
			assert.NotEmpty(t, r.AttendeeName)
		}
		assert.Equal(t, map[int64]int{10: 2, 11: 4}, perItem)
	}
}

func TestPlanAttendeesFlatCursorRunsAcrossItems(t *testing.T) {
	items := []models.OrderItem{
		{ID: 1, TicketTypeID: 7, Quantity: 1, EffectiveTicketCount: 1},
		{ID: 2, TicketTypeID: 8, Quantity: 2, EffectiveTicketCount: 2},
	}
	data := []models.AttendeeInput{{Name: "First"}, {Name: "Second"}}

	rows := PlanAttendees(items, nil, data, Buyer{Name: "Buyer"})
	require.Len(t, rows, 3)
	assert.Equal(t, "First", rows[0].AttendeeName)
	assert.Equal(t, "Second", rows[1].AttendeeName)
	assert.Equal(t, int64(2), rows[1].OrderItemID)
	assert.Equal(t, "Buyer", rows[2].AttendeeName)
}

func TestPlanAttendeesGroupedEntriesIgnoreSurplus(t *testing.T) {
	items := []models.OrderItem{{ID: 1, TicketTypeID: 7, Quantity: 1, EffectiveTicketCount: 1}}
	data := []models.AttendeeInput{
		{Name: "Kept", TicketTypeID: 7, CustomAnswers: map[string]interface{}{"shirt_size": "L"}},
		{Name: "Dropped", TicketTypeID: 7},
		{Name: "Unknown type", TicketTypeID: 99},
	}

	rows := PlanAttendees(items, nil, data, Buyer{Name: "Buyer", Email: "b@example.com"})
	require.Len(t, rows, 1)
	assert.Equal(t, "Kept", rows[0].AttendeeName)
	assert.Equal(t, "b@example.com", rows[0].AttendeeEmail)
	assert.Equal(t, "L", rows[0].CustomAnswers["shirt_size"])
}
