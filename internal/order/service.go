package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"ms-checkout/internal/logger"
	"ms-checkout/internal/metrics"
	"ms-checkout/internal/models"
	"ms-checkout/internal/notification"
	"ms-checkout/internal/order/db"
	orderredis "ms-checkout/internal/order/redis"
	"ms-checkout/internal/payment/faspay"
	"ms-checkout/internal/sse"
	"ms-checkout/internal/utils"
)

type DBLayer interface {
	FindCustomer(ctx context.Context, email, phone string) (*models.Customer, error)
	CreateCustomer(ctx context.Context, customer *models.Customer) error
	GetEvent(ctx context.Context, id int64) (*models.Event, error)
	GetTicketType(ctx context.Context, id int64) (*models.TicketType, error)
	GetPaymentChannelByCode(ctx context.Context, code string) (*models.PaymentChannel, error)
	GetPaymentChannelByID(ctx context.Context, id int64) (*models.PaymentChannel, error)
	GetDiscountByCode(ctx context.Context, code string) (*models.Discount, error)
	IncrementDiscountUsage(ctx context.Context, discountID int64) error
	InsertOrder(ctx context.Context, order *models.Order) error
	InsertOrderItem(ctx context.Context, item *models.OrderItem) error
	InsertAttendees(ctx context.Context, attendees []models.OrderItemAttendee) error
	UniqueCodeTaken(ctx context.Context, virtualAccount string, code int, from, to time.Time) (bool, error)
	UpdatePaymentDetails(ctx context.Context, order *models.Order) error
	GetOrderByReference(ctx context.Context, ref string) (*models.Order, error)
	GetOrderDetail(ctx context.Context, ref string) (*models.Order, error)
	MarkPaid(ctx context.Context, ref string, paidAt time.Time) (bool, error)
	TransitionPending(ctx context.Context, ref, status string) (bool, error)
	UpdateProof(ctx context.Context, ref, proofURL string) error
	ListStalePending(ctx context.Context, cutoff time.Time, limit int) ([]string, error)
	ListOrdersMissingAttendees(ctx context.Context, limit int) ([]string, error)
	InsertPaymentLog(ctx context.Context, entry *models.PaymentLog) error
}

type TicketIssuer interface {
	IssueTickets(ctx context.Context, orderID int64) (models.IssueResult, error)
	GetTicketsByOrder(ctx context.Context, orderID int64) ([]models.Ticket, error)
}

type PaymentGateway interface {
	CreatePayment(ctx context.Context, req faspay.PaymentRequest) faspay.Result
}

// Cache is the redis surface the service uses. All of it is best-effort.
type Cache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Lock(ctx context.Context, key, owner string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key, owner string) error
	SetPaymentDeadline(ctx context.Context, ref string, ttl time.Duration) error
	ClearPaymentDeadline(ctx context.Context, ref string) error
}

type Notifier interface {
	Notify(ctx context.Context, ev notification.Event) error
}

// StatusEmitter receives every transition out of pending.
type StatusEmitter interface {
	Emit(change sse.StatusChange)
}

type Settings struct {
	BaseURL         string
	Location        *time.Location
	PaymentDeadline time.Duration
	OrderCacheTTL   time.Duration
	GatewayUserID   string
	GatewayPassword string
	NotifyTimeout   time.Duration
}

type OrderService struct {
	DB       DBLayer
	Tickets  TicketIssuer
	Gateway  PaymentGateway
	Cache    Cache
	Notifier Notifier
	Codes    *CodeAllocator
	Status   StatusEmitter

	settings Settings
	logger   *logger.Logger
	metrics  *metrics.Checkout
	now      func() time.Time
	wg       sync.WaitGroup
}

// NewOrderService wires the service. cache and notifier may be nil.
func NewOrderService(store DBLayer, ticketIssuer TicketIssuer, gateway PaymentGateway, cache Cache, notifier Notifier, settings Settings, log *logger.Logger, m *metrics.Checkout) *OrderService {
	if settings.Location == nil {
		settings.Location = time.FixedZone("WIB", 7*60*60)
	}
	if settings.NotifyTimeout <= 0 {
		settings.NotifyTimeout = 30 * time.Second
	}
	settings.BaseURL = strings.TrimRight(settings.BaseURL, "/")

	var locker CodeLocker
	if cache != nil {
		locker = cache
	}
	return &OrderService{
		DB:       store,
		Tickets:  ticketIssuer,
		Gateway:  gateway,
		Cache:    cache,
		Notifier: notifier,
		Codes:    NewCodeAllocator(store, locker, settings.Location, log),
		settings: settings,
		logger:   log,
		metrics:  m,
		now:      time.Now,
	}
}

// Wait blocks until background notifications have been handed off.
func (s *OrderService) Wait() {
	s.wg.Wait()
}

// ---------------- CREATE ----------------

// CreateOrder persists the order aggregate and assigns a payable reference.
// Validation and not-found failures come back as *AppError; anything else as
// *OrderCreationError carrying the identifiers produced so far.
func (s *OrderService) CreateOrder(ctx context.Context, req models.CreateOrderRequest) (*models.CreateOrderResponse, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	// Step 1: the reference exists before any side effect
	ref := utils.GenerateOrderReference(s.now())

	var orderID int64
	resp, err := s.createOrder(ctx, ref, req, &orderID)
	if err == nil {
		return resp, nil
	}

	switch KindOf(err) {
	case KindValidation, KindNotFound:
		s.logger.Warn("ORDER", fmt.Sprintf("Rejected checkout %s: %v", ref, err))
		return nil, err
	}

	s.logger.Error("ORDER", fmt.Sprintf("Checkout %s (order id %d) failed: %v", ref, orderID, err))
	s.writePaymentLog(ctx, &models.PaymentLog{
		OrderReference: ref,
		LogType:        models.PaymentLogError,
		RequestPayload: map[string]interface{}{
			"event_id":             req.EventID,
			"payment_channel_code": req.PaymentChannelCode,
			"customer_email":       req.CustomerEmail,
		},
		ResponsePayload: map[string]interface{}{
			"error":    err.Error(),
			"kind":     string(KindOf(err)),
			"order_id": orderID,
		},
	})
	return nil, &OrderCreationError{OrderReference: ref, OrderID: orderID, Err: err}
}

type resolvedItem struct {
	ticketType *models.TicketType
	quantity   int
}

func (s *OrderService) createOrder(ctx context.Context, ref string, req models.CreateOrderRequest, orderID *int64) (*models.CreateOrderResponse, error) {
	// Step 2: customer by email or phone
	customer, err := s.resolveCustomer(ctx, req)
	if err != nil {
		return nil, err
	}

	// Step 3: payment channel and event
	channel, err := s.DB.GetPaymentChannelByCode(ctx, req.PaymentChannelCode)
	if errors.Is(err, db.ErrNotFound) {
		return nil, notFoundError("Payment channel not found")
	}
	if err != nil {
		return nil, internalError("load payment channel", err)
	}

	event, err := s.DB.GetEvent(ctx, req.EventID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, notFoundError("Event not found")
	}
	if err != nil {
		return nil, internalError("load event", err)
	}

	items, computedGross, err := s.resolveTickets(ctx, event.ID, req.SelectedTickets)
	if err != nil {
		return nil, err
	}

	// Step 4: voucher id, absence is not fatal
	var discountID *int64
	if code := strings.TrimSpace(req.VoucherCode); code != "" {
		voucher, err := s.DB.GetDiscountByCode(ctx, strings.ToUpper(code))
		switch {
		case err == nil:
			discountID = &voucher.ID
		case errors.Is(err, db.ErrNotFound):
			s.logger.Info("VOUCHER", fmt.Sprintf("Voucher %q not found for %s, continuing without discount", code, ref))
		default:
			s.logger.Warn("VOUCHER", fmt.Sprintf("Voucher lookup for %s failed, continuing without discount: %v", ref, err))
		}
	}

	// Step 5: pending order with the client's amounts
	gross := req.GrossAmount
	if gross == 0 {
		gross = computedGross
	}
	order := &models.Order{
		OrderReference:   ref,
		CustomerID:       customer.ID,
		EventID:          event.ID,
		PaymentChannelID: channel.ID,
		DiscountID:       discountID,
		GrossAmount:      gross,
		DiscountAmount:   req.DiscountAmount,
		FinalAmount:      req.FinalAmount,
		Status:           models.OrderStatusPending,
		CreatedAt:        s.now().UTC(),
	}
	if err := s.DB.InsertOrder(ctx, order); err != nil {
		return nil, internalError("insert order", err)
	}
	*orderID = order.ID
	s.logger.LogOrder("CREATE", ref, fmt.Sprintf("pending order %d for event %d via %s", order.ID, event.ID, channel.PgCode))

	// Step 6: one item per ticket type
	orderItems := make([]models.OrderItem, 0, len(items))
	ticketTypes := make(map[int64]*models.TicketType, len(items))
	for _, it := range items {
		item := models.OrderItem{
			OrderID:              order.ID,
			TicketTypeID:         it.ticketType.ID,
			Quantity:             it.quantity,
			PricePerTicket:       it.ticketType.Price,
			EffectiveTicketCount: it.quantity * it.ticketType.Multiplier(),
		}
		if err := s.DB.InsertOrderItem(ctx, &item); err != nil {
			return nil, internalError("insert order item", err)
		}
		orderItems = append(orderItems, item)
		ticketTypes[it.ticketType.ID] = it.ticketType
	}

	// Step 7-8: attendee slots
	attendees := PlanAttendees(orderItems, ticketTypes, req.AttendeeData, Buyer{
		Name:  req.CustomerName,
		Email: req.CustomerEmail,
		Phone: req.CustomerPhone,
	})

	// Step 9: attendees, order and items stay if this fails
	if err := s.DB.InsertAttendees(ctx, attendees); err != nil {
		s.logger.Error("ORDER", fmt.Sprintf("Order %s (id %d) has %d items but no attendees: %v", ref, order.ID, len(orderItems), err))
		return nil, &AppError{Kind: KindIntegrity, Message: "Failed to save attendees", Err: err}
	}

	// Step 10: voucher usage, best-effort
	if discountID != nil {
		if err := s.DB.IncrementDiscountUsage(ctx, *discountID); err != nil {
			s.logger.Warn("VOUCHER", fmt.Sprintf("Failed to count voucher usage for %s: %v", ref, err))
		}
	}

	// Step 11: payable reference
	checkoutLog := &models.PaymentLog{OrderReference: ref, LogType: models.PaymentLogCheckout}
	redirectURL, err := s.assignPayment(ctx, order, customer, channel, checkoutLog)

	// Step 12: checkout audit row, written whatever the branch produced
	if err != nil {
		if checkoutLog.ResponsePayload == nil {
			checkoutLog.ResponsePayload = map[string]interface{}{}
		}
		checkoutLog.ResponsePayload["error"] = err.Error()
	}
	s.writePaymentLog(ctx, checkoutLog)
	if err != nil {
		return nil, err
	}

	if s.Cache != nil {
		if err := s.Cache.SetPaymentDeadline(ctx, ref, s.settings.PaymentDeadline); err != nil {
			s.logger.Warn("REDIS", fmt.Sprintf("Failed to arm payment deadline for %s: %v", ref, err))
		}
	}

	// Step 13: checkout notification, e-wallets redirect immediately so they get none
	if channel.Category != models.CategoryEWallet {
		s.notify(ctx, ref, models.TriggerCheckout)
	}

	s.metrics.OrderCreated(channel.Category)
	s.logger.LogOrder("CREATE", ref, fmt.Sprintf("ready for payment: %s, amount %d", order.VirtualAccountNumber, order.FinalAmount))

	// Step 14
	return &models.CreateOrderResponse{
		Success:              true,
		OrderReference:       ref,
		OrderID:              order.ID,
		VirtualAccountNumber: order.VirtualAccountNumber,
		RedirectURL:          redirectURL,
		UniqueCode:           order.UniqueCode,
		FinalAmount:          order.FinalAmount,
	}, nil
}

func (s *OrderService) resolveCustomer(ctx context.Context, req models.CreateOrderRequest) (*models.Customer, error) {
	email := strings.TrimSpace(req.CustomerEmail)
	phone := strings.TrimSpace(req.CustomerPhone)

	customer, err := s.DB.FindCustomer(ctx, email, phone)
	if err == nil {
		return customer, nil
	}
	if !errors.Is(err, db.ErrNotFound) {
		return nil, internalError("find customer", err)
	}

	customer = &models.Customer{Name: strings.TrimSpace(req.CustomerName), Email: email, PhoneNumber: phone}
	if err := s.DB.CreateCustomer(ctx, customer); err != nil {
		return nil, internalError("create customer", err)
	}
	return customer, nil
}

// resolveTickets looks up every selected ticket type, merges repeats and applies
// the per-purchase and sold-out rules. It returns the items and their list price total.
func (s *OrderService) resolveTickets(ctx context.Context, eventID int64, selected []models.SelectedTicket) ([]resolvedItem, int64, error) {
	var items []resolvedItem
	index := map[int64]int{}

	for _, sel := range selected {
		if sel.Quantity < 1 {
			return nil, 0, validationError(fmt.Sprintf("Quantity for ticket type %d must be at least 1", sel.TicketTypeID))
		}
		if i, ok := index[sel.TicketTypeID]; ok {
			items[i].quantity += sel.Quantity
			continue
		}

		tt, err := s.DB.GetTicketType(ctx, sel.TicketTypeID)
		if errors.Is(err, db.ErrNotFound) || (err == nil && tt.EventID != eventID) {
			return nil, 0, notFoundError(fmt.Sprintf("Ticket type %d not found for this event", sel.TicketTypeID))
		}
		if err != nil {
			return nil, 0, internalError("load ticket type", err)
		}
		if !tt.IsActive {
			return nil, 0, validationError(fmt.Sprintf("Ticket type %s is not on sale", tt.Name))
		}
		index[tt.ID] = len(items)
		items = append(items, resolvedItem{ticketType: tt, quantity: sel.Quantity})
	}

	var gross int64
	for _, it := range items {
		tt := it.ticketType
		if tt.MaxPerPurchase > 0 && it.quantity > tt.MaxPerPurchase {
			return nil, 0, validationError(fmt.Sprintf("At most %d of %s per purchase", tt.MaxPerPurchase, tt.Name))
		}
		effective := it.quantity * tt.Multiplier()
		if tt.QuantityTotal > 0 && tt.QuantitySold+effective > tt.QuantityTotal {
			return nil, 0, validationError(fmt.Sprintf("Ticket type %s is sold out", tt.Name))
		}
		gross += tt.Price * int64(it.quantity)
	}
	return items, gross, nil
}

// assignPayment runs the manual or gateway branch and stores the result on order.
func (s *OrderService) assignPayment(ctx context.Context, order *models.Order, customer *models.Customer, channel *models.PaymentChannel, logEntry *models.PaymentLog) (string, error) {
	ref := order.OrderReference
	paymentPage := fmt.Sprintf("%s/payment/%s", s.settings.BaseURL, ref)

	if channel.IsManual() {
		code, payable, err := s.Codes.Allocate(ctx, channel.PgCode, ref, order.FinalAmount)
		if err != nil {
			return "", internalError("allocate unique code", err)
		}
		logEntry.RequestPayload = map[string]interface{}{
			"payment_channel": channel.PgCode,
			"category":        channel.Category,
			"amount":          order.FinalAmount,
		}
		order.VirtualAccountNumber = channel.PgCode
		order.UniqueCode = code
		order.FinalAmount = payable
		order.PaymentResponseURL = paymentPage
		logEntry.ResponsePayload = map[string]interface{}{
			"unique_code":  code,
			"final_amount": payable,
			"redirect_url": paymentPage,
		}
		s.logger.LogPayment("MANUAL", ref, fmt.Sprintf("unique code %d, transfer %d to %s", code, payable, channel.PgCode))
	} else {
		started := s.now()
		result := s.Gateway.CreatePayment(ctx, faspay.PaymentRequest{
			OrderReference: ref,
			CustomerName:   customer.Name,
			CustomerEmail:  customer.Email,
			CustomerPhone:  customer.PhoneNumber,
			PaymentChannel: channel.PgCode,
			FinalAmount:    order.FinalAmount,
		})
		s.metrics.ObserveGateway(s.now().Sub(started))

		logEntry.RequestPayload = result.RequestPayload
		logEntry.ResponsePayload = result.ResponsePayload
		if !result.Success {
			if logEntry.ResponsePayload == nil {
				logEntry.ResponsePayload = map[string]interface{}{}
			}
			if result.Err != nil {
				logEntry.ResponsePayload["error"] = result.Err.Error()
			}
			s.logger.Warn("PAYMENT", fmt.Sprintf("Gateway unavailable for %s, using fallback reference: %v", ref, result.Err))
		}

		order.VirtualAccountNumber = result.TrxID
		if order.VirtualAccountNumber == "" {
			order.VirtualAccountNumber = FallbackVirtualAccount(ref)
		}
		order.PaymentResponseURL = result.RedirectURL
		if order.PaymentResponseURL == "" {
			order.PaymentResponseURL = paymentPage
		}
	}

	if err := s.DB.UpdatePaymentDetails(ctx, order); err != nil {
		return "", internalError("store payment details", err)
	}
	return order.PaymentResponseURL, nil
}

// FallbackVirtualAccount is the placeholder reference used when the gateway
// returns no trx_id: "1260" followed by the last 10 characters of ref.
func FallbackVirtualAccount(ref string) string {
	if len(ref) > 10 {
		ref = ref[len(ref)-10:]
	}
	return "1260" + ref
}

// ---------------- READ ----------------

// OrderView is the cached read model of an order.
type OrderView struct {
	Order   *models.Order   `json:"order"`
	Tickets []models.Ticket `json:"tickets,omitempty"`
}

// GetOrderView reads through the order:{ref} cache.
func (s *OrderService) GetOrderView(ctx context.Context, ref string) (*OrderView, error) {
	key := orderredis.OrderKey(ref)
	if s.Cache != nil {
		var cached OrderView
		hit, err := s.Cache.GetJSON(ctx, key, &cached)
		if err != nil {
			s.logger.Warn("REDIS", fmt.Sprintf("Order cache read for %s failed: %v", ref, err))
		}
		if hit && cached.Order != nil {
			return &cached, nil
		}
	}

	order, err := s.DB.GetOrderDetail(ctx, ref)
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load order %s: %w", ref, err)
	}

	view := &OrderView{Order: order}
	if order.Status == models.OrderStatusPaid && s.Tickets != nil {
		tickets, err := s.Tickets.GetTicketsByOrder(ctx, order.ID)
		if err != nil {
			return nil, fmt.Errorf("load tickets of %s: %w", ref, err)
		}
		view.Tickets = tickets
	}

	if s.Cache != nil {
		if err := s.Cache.SetJSON(ctx, key, view, s.settings.OrderCacheTTL); err != nil {
			s.logger.Warn("REDIS", fmt.Sprintf("Order cache write for %s failed: %v", ref, err))
		}
	}
	return view, nil
}

func (s *OrderService) GetStatus(ctx context.Context, ref string) (string, error) {
	view, err := s.GetOrderView(ctx, ref)
	if err != nil {
		return "", err
	}
	return view.Order.Status, nil
}

// ---------------- MANUAL PAYMENTS ----------------

// SubmitProof stores the transfer evidence URL of a manual-channel order.
func (s *OrderService) SubmitProof(ctx context.Context, ref, proofURL string) error {
	proofURL = strings.TrimSpace(proofURL)
	if proofURL == "" {
		return validationError("proof_transfer is required")
	}

	order, channel, err := s.orderWithChannel(ctx, ref)
	if err != nil {
		return err
	}
	if !channel.IsManual() {
		return ErrNotManualPayment
	}

	if err := s.DB.UpdateProof(ctx, order.OrderReference, proofURL); err != nil {
		return fmt.Errorf("store proof for %s: %w", ref, err)
	}
	s.invalidate(ctx, ref)
	s.logger.LogPayment("PROOF", ref, "proof of transfer submitted")
	return nil
}

// ConfirmManualPayment is the operator's paid transition for manual channels.
// The boolean is false when the order was already paid.
func (s *OrderService) ConfirmManualPayment(ctx context.Context, ref, confirmedBy string) (bool, models.IssueResult, error) {
	order, channel, err := s.orderWithChannel(ctx, ref)
	if err != nil {
		return false, models.IssueResult{}, err
	}
	if !channel.IsManual() {
		return false, models.IssueResult{}, ErrNotManualPayment
	}

	changed, result, err := s.markPaid(ctx, order, s.now().UTC())
	if err != nil {
		return false, result, err
	}
	ctx = context.WithoutCancel(ctx)

	s.writePaymentLog(ctx, &models.PaymentLog{
		OrderReference: ref,
		LogType:        models.PaymentLogManualConfirmed,
		RequestPayload: map[string]interface{}{"confirmed_by": confirmedBy},
		ResponsePayload: map[string]interface{}{
			"transitioned":    changed,
			"tickets_created": result.TicketsCreated,
		},
	})
	return changed, result, nil
}

// RetryIssuance reissues missing tickets for a paid order.
func (s *OrderService) RetryIssuance(ctx context.Context, ref string) (models.IssueResult, error) {
	order, err := s.DB.GetOrderByReference(ctx, ref)
	if errors.Is(err, db.ErrNotFound) {
		return models.IssueResult{}, ErrOrderNotFound
	}
	if err != nil {
		return models.IssueResult{}, fmt.Errorf("load order %s: %w", ref, err)
	}
	if order.Status != models.OrderStatusPaid {
		return models.IssueResult{}, validationError(fmt.Sprintf("Order is %s, tickets are only issued for paid orders", order.Status))
	}

	result, err := s.Tickets.IssueTickets(ctx, order.ID)
	if err != nil {
		return result, fmt.Errorf("issue tickets for %s: %w", ref, err)
	}
	s.invalidate(ctx, ref)
	return result, nil
}

func (s *OrderService) orderWithChannel(ctx context.Context, ref string) (*models.Order, *models.PaymentChannel, error) {
	order, err := s.DB.GetOrderByReference(ctx, ref)
	if errors.Is(err, db.ErrNotFound) {
		return nil, nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load order %s: %w", ref, err)
	}
	channel, err := s.DB.GetPaymentChannelByID(ctx, order.PaymentChannelID)
	if err != nil {
		return nil, nil, fmt.Errorf("load payment channel of %s: %w", ref, err)
	}
	return order, channel, nil
}

// ---------------- TRANSITIONS ----------------

// markPaid performs the conditional paid transition. Only the call that changes
// the row clears the deadline and sends the paid notification. Every call issues
// whatever tickets are still missing, so a repeated success finishes an issuance
// an earlier delivery left incomplete.
func (s *OrderService) markPaid(ctx context.Context, order *models.Order, paidAt time.Time) (bool, models.IssueResult, error) {
	ref := order.OrderReference

	changed, err := s.DB.MarkPaid(ctx, ref, paidAt)
	if err != nil {
		return false, models.IssueResult{}, fmt.Errorf("mark %s paid: %w", ref, err)
	}

	// The row is committed; what follows must not die with the caller's request.
	ctx = context.WithoutCancel(ctx)

	if !changed {
		s.logger.LogPayment("PAID", ref, "already paid, completing any missing tickets")
		result := s.issueTickets(ctx, order)
		if result.TicketsCreated > 0 {
			s.invalidate(ctx, ref)
		}
		return false, result, nil
	}
	s.logger.LogPayment("PAID", ref, fmt.Sprintf("paid at %s", paidAt.Format(time.RFC3339)))
	s.invalidate(ctx, ref)

	if s.Cache != nil {
		if err := s.Cache.ClearPaymentDeadline(ctx, ref); err != nil {
			s.logger.Warn("REDIS", fmt.Sprintf("Failed to clear payment deadline for %s: %v", ref, err))
		}
	}

	result := s.issueTickets(ctx, order)
	s.invalidate(ctx, ref)
	s.emitStatus(ref, order.EventID, models.OrderStatusPaid)

	s.notifyAsync(ref, models.TriggerPaid)
	return true, result, nil
}

// issueTickets logs failures instead of returning them; an admin retry covers them.
func (s *OrderService) issueTickets(ctx context.Context, order *models.Order) models.IssueResult {
	if s.Tickets == nil {
		return models.IssueResult{}
	}
	result, err := s.Tickets.IssueTickets(ctx, order.ID)
	if err != nil {
		s.logger.Error("TICKET", fmt.Sprintf("Ticket issuance for %s failed, retry via admin: %v", order.OrderReference, err))
	}
	return result
}

func (s *OrderService) invalidate(ctx context.Context, ref string) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.Delete(ctx, orderredis.OrderKey(ref)); err != nil {
		s.logger.Warn("REDIS", fmt.Sprintf("Failed to invalidate order cache for %s: %v", ref, err))
	}
}

func (s *OrderService) emitStatus(ref string, eventID int64, status string) {
	if s.Status == nil {
		return
	}
	s.Status.Emit(sse.StatusChange{OrderReference: ref, EventID: eventID, Status: status, At: s.now().UTC()})
}

func (s *OrderService) notify(ctx context.Context, ref, trigger string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.Notify(ctx, notification.NewEvent(ref, trigger)); err != nil {
		s.logger.Warn("NOTIFY", fmt.Sprintf("Failed to queue %s notification for %s: %v", trigger, ref, err))
	}
}

// notifyAsync queues a notification without holding up the caller.
func (s *OrderService) notifyAsync(ref, trigger string) {
	if s.Notifier == nil {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.settings.NotifyTimeout)
		defer cancel()
		s.notify(ctx, ref, trigger)
	}()
}

func (s *OrderService) writePaymentLog(ctx context.Context, entry *models.PaymentLog) {
	if err := s.DB.InsertPaymentLog(ctx, entry); err != nil {
		s.logger.Error("PAYMENT", fmt.Sprintf("Failed to write %s payment log for %s: %v", entry.LogType, entry.OrderReference, err))
	}
}
