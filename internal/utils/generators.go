package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

const ticketCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// RandomInt returns a uniform value in [0, max).
func RandomInt(max int64) int64 {
	n, err := rand.Int(rand.Reader, big.NewInt(max))
	if err != nil {
		return time.Now().UnixNano() % max
	}
	return n.Int64()
}

// GenerateOrderReference builds the externally visible order id, e.g. TKT1718000000000042.
func GenerateOrderReference(now time.Time) string {
	return fmt.Sprintf("TKT%d%03d", now.UnixMilli(), RandomInt(1000))
}

// GenerateTicketCode draws 8 characters from A-Z0-9.
func GenerateTicketCode() string {
	code := make([]byte, 8)
	for i := range code {
		code[i] = ticketCodeAlphabet[RandomInt(int64(len(ticketCodeAlphabet)))]
	}
	return string(code)
}

// GenerateUniqueCode draws a 3-digit manual payment code in [100, 999].
func GenerateUniqueCode() int {
	return int(100 + RandomInt(900))
}
