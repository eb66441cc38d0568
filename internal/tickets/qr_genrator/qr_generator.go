package qr

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/skip2/go-qrcode"
)

// QRGenerator renders the verification link of a ticket as a PNG.
type QRGenerator struct {
	baseURL string
	size    int
}

func NewQRGenerator(baseURL string) *QRGenerator {
	return &QRGenerator{baseURL: strings.TrimRight(baseURL, "/"), size: 256}
}

// VerifyURL is the link encoded in the QR code.
func (q *QRGenerator) VerifyURL(eventSlug, ticketCode string) string {
	return fmt.Sprintf("%s/verify/%s/%s", q.baseURL, url.PathEscape(eventSlug), url.PathEscape(ticketCode))
}

func (q *QRGenerator) GenerateTicketQR(eventSlug, ticketCode string) ([]byte, error) {
	if eventSlug == "" || ticketCode == "" {
		return nil, fmt.Errorf("event slug and ticket code are required")
	}
	png, err := qrcode.Encode(q.VerifyURL(eventSlug, ticketCode), qrcode.Medium, q.size)
	if err != nil {
		return nil, fmt.Errorf("encode qr for %s: %w", ticketCode, err)
	}
	return png, nil
}
