package utils

import (
	"time"
)

// GatewayTimeLayout is the wall-clock layout the payment gateway expects and echoes.
const GatewayTimeLayout = "2006-01-02 15:04:05"

// FormatGatewayTime renders t in loc using GatewayTimeLayout.
func FormatGatewayTime(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(GatewayTimeLayout)
}

// DayBounds returns the UTC start and end of the calendar day containing t in loc.
func DayBounds(t time.Time, loc *time.Location) (time.Time, time.Time) {
	local := t.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return start.UTC(), start.AddDate(0, 0, 1).UTC()
}
