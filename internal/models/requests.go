package models

// CreateOrderRequest is the checkout payload posted by the storefront.
type CreateOrderRequest struct {
	EventID            int64            `json:"eventId" validate:"required,gt=0"`
	CustomerName       string           `json:"customerName" validate:"required"`
	CustomerEmail      string           `json:"customerEmail" validate:"required,email"`
	CustomerPhone      string           `json:"customerPhone"`
	PaymentChannelCode string           `json:"paymentChannelCode" validate:"required"`
	SelectedTickets    []SelectedTicket `json:"selectedTickets" validate:"required,min=1,dive"`
	AttendeeData       []AttendeeInput  `json:"attendeeData" validate:"omitempty,dive"`
	VoucherCode        string           `json:"voucherCode"`
	GrossAmount        int64            `json:"grossAmount" validate:"gte=0"`
	DiscountAmount     int64            `json:"discountAmount" validate:"gte=0"`
	FinalAmount        int64            `json:"finalAmount" validate:"required,gt=0"`
}

type SelectedTicket struct {
	TicketTypeID int64 `json:"ticketTypeId" validate:"required,gt=0"`
	Quantity     int   `json:"quantity" validate:"required,gte=1"`
}

// AttendeeInput carries one attendee. TicketTypeID is optional; when set the entry
// is bound to that ticket type's item instead of the flat cursor.
type AttendeeInput struct {
	Name          string                 `json:"name"`
	Email         string                 `json:"email" validate:"omitempty,email"`
	Phone         string                 `json:"phone"`
	CustomAnswers map[string]interface{} `json:"customAnswers"`
	BarcodeID     string                 `json:"barcodeId"`
	TicketTypeID  int64                  `json:"ticketTypeId,omitempty"`
}

type CreateOrderResponse struct {
	Success              bool   `json:"success"`
	OrderReference       string `json:"orderReference"`
	OrderID              int64  `json:"orderId"`
	VirtualAccountNumber string `json:"virtualAccountNumber"`
	RedirectURL          string `json:"redirectUrl"`
	UniqueCode           int    `json:"uniqueCode,omitempty"`
	FinalAmount          int64  `json:"finalAmount"`
}

type ProofRequest struct {
	ProofTransfer string `json:"proof_transfer"`
}

type VoucherValidateRequest struct {
	Code    string `json:"code"`
	EventID int64  `json:"eventId"`
	Amount  int64  `json:"amount"`
}

// PaymentNotification is the gateway's payment callback body.
type PaymentNotification struct {
	Request           string `json:"request"`
	TrxID             string `json:"trx_id"`
	MerchantID        string `json:"merchant_id"`
	Merchant          string `json:"merchant"`
	BillNo            string `json:"bill_no"`
	PaymentReff       string `json:"payment_reff"`
	PaymentDate       string `json:"payment_date"`
	PaymentStatusCode string `json:"payment_status_code"`
	PaymentStatusDesc string `json:"payment_status_desc"`
	BillTotal         string `json:"bill_total"`
	PaymentTotal      string `json:"payment_total"`
	PaymentChannelUID string `json:"payment_channel_uid"`
	PaymentChannel    string `json:"payment_channel"`
	Signature         string `json:"signature"`
}

// PaymentNotificationAck is the body the gateway expects back.
type PaymentNotificationAck struct {
	Response     string `json:"response"`
	TrxID        string `json:"trx_id"`
	MerchantID   string `json:"merchant_id"`
	Merchant     string `json:"merchant"`
	BillNo       string `json:"bill_no"`
	ResponseCode string `json:"response_code"`
	ResponseDesc string `json:"response_desc"`
	ResponseDate string `json:"response_date"`
}
