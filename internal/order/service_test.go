package order_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"ms-checkout/internal/database/dbtest"
	"ms-checkout/internal/logger"
	"ms-checkout/internal/models"
	"ms-checkout/internal/notification"
	"ms-checkout/internal/order"
	orderdb "ms-checkout/internal/order/db"
	orderredis "ms-checkout/internal/order/redis"
	"ms-checkout/internal/payment/faspay"
	ticketsdb "ms-checkout/internal/tickets/db"
	tickets "ms-checkout/internal/tickets/service"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

const (
	gatewayUser     = "bot35802"
	gatewayPassword = "p@ssw0rd"
	gatewayTrxID    = "8985000012345678"
	baseURL         = "https://tickets.example.com"
)

type fakeGateway struct {
	mu     sync.Mutex
	result faspay.Result
	calls  []faspay.PaymentRequest
}

func (g *fakeGateway) CreatePayment(_ context.Context, req faspay.PaymentRequest) faspay.Result {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, req)
	return g.result
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []notification.Event
}

func (n *fakeNotifier) Notify(_ context.Context, ev notification.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
	return nil
}

func (n *fakeNotifier) triggers() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.events))
	for _, ev := range n.events {
		out = append(out, ev.Trigger)
	}
	return out
}

type testEnv struct {
	svc      *order.OrderService
	store    *orderdb.DB
	bun      *bun.DB
	fixture  dbtest.Fixture
	gateway  *fakeGateway
	notifier *fakeNotifier
	redis    *miniredis.Miniredis
}

func setupService(t *testing.T) testEnv {
	return setupServiceWith(t, nil)
}

// setupServiceWith lets a test put a wrapper between the service and the real store.
func setupServiceWith(t *testing.T, wrap func(*orderdb.DB) order.DBLayer) testEnv {
	bunDB := dbtest.Open(t)
	f := dbtest.Seed(t, bunDB)
	store := &orderdb.DB{Bun: bunDB}
	var layer order.DBLayer = store
	if wrap != nil {
		layer = wrap(store)
	}
	log := logger.NewWriterLogger(nil)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	gateway := &fakeGateway{result: faspay.Result{
		Success:     true,
		TrxID:       gatewayTrxID,
		RedirectURL: "https://pay.example.com/r/" + gatewayTrxID,
	}}
	notifier := &fakeNotifier{}
	issuer := tickets.NewTicketService(&ticketsdb.DB{Bun: bunDB}, log, nil)

	svc := order.NewOrderService(layer, issuer, gateway, orderredis.NewRedis(client, log), notifier, order.Settings{
		BaseURL:         baseURL,
		PaymentDeadline: 5*time.Hour + 4*time.Minute,
		OrderCacheTTL:   30 * time.Minute,
		GatewayUserID:   gatewayUser,
		GatewayPassword: gatewayPassword,
	}, log, nil)
	t.Cleanup(svc.Wait)

	return testEnv{svc: svc, store: store, bun: bunDB, fixture: f, gateway: gateway, notifier: notifier, redis: mr}
}

func checkoutRequest(f dbtest.Fixture, channel string, selected ...models.SelectedTicket) models.CreateOrderRequest {
	var gross int64
	for _, s := range selected {
		price := f.Regular.Price
		if s.TicketTypeID == f.Bundle.ID {
			price = f.Bundle.Price
		}
		gross += price * int64(s.Quantity)
	}
	return models.CreateOrderRequest{
		EventID:            f.Event.ID,
		CustomerName:       "Budi Santoso",
		CustomerEmail:      "budi@example.com",
		CustomerPhone:      "081234567890",
		PaymentChannelCode: channel,
		SelectedTickets:    selected,
		GrossAmount:        gross,
		FinalAmount:        gross,
	}
}

func attendeesOf(t *testing.T, db *bun.DB, orderID int64) []models.OrderItemAttendee {
	var attendees []models.OrderItemAttendee
	err := db.NewSelect().
		Model(&attendees).
		Where("order_item_id IN (SELECT id FROM order_items WHERE order_id = ?)", orderID).
		OrderExpr("id ASC").
		Scan(context.Background())
	require.NoError(t, err)
	return attendees
}

func countOrders(t *testing.T, db *bun.DB) int {
	n, err := db.NewSelect().Model((*models.Order)(nil)).Count(context.Background())
	require.NoError(t, err)
	return n
}

func TestCreateOrderManualTransfer(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()
	f := env.fixture

	resp, err := env.svc.CreateOrder(ctx, checkoutRequest(f, "BCA_MANUAL", models.SelectedTicket{TicketTypeID: f.Regular.ID, Quantity: 2}))
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.Equal(t, "BCA_MANUAL", resp.VirtualAccountNumber)
	assert.Equal(t, baseURL+"/payment/"+resp.OrderReference, resp.RedirectURL)
	assert.GreaterOrEqual(t, resp.UniqueCode, 100)
	assert.LessOrEqual(t, resp.UniqueCode, 999)
	assert.Equal(t, int64(200000+resp.UniqueCode), resp.FinalAmount)
	assert.Empty(t, env.gateway.calls, "manual channels never reach the gateway")

	stored, err := env.store.GetOrderByReference(ctx, resp.OrderReference)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, stored.Status)
	assert.Equal(t, int64(200000), stored.GrossAmount)
	assert.Equal(t, int64(0), stored.DiscountAmount)
	assert.Equal(t, resp.FinalAmount, stored.FinalAmount)
	assert.Equal(t, resp.UniqueCode, stored.UniqueCode)

	attendees := attendeesOf(t, env.bun, resp.OrderID)
	require.Len(t, attendees, 2)
	for _, a := range attendees {
		assert.Equal(t, "Budi Santoso", a.AttendeeName)
		assert.Equal(t, "budi@example.com", a.AttendeeEmail)
		assert.Nil(t, a.TicketID)
	}

	logs, err := env.store.ListPaymentLogs(ctx, resp.OrderReference)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, models.PaymentLogCheckout, logs[0].LogType)

	assert.True(t, env.redis.Exists("payment_deadline:"+resp.OrderReference))
	assert.Equal(t, []string{models.TriggerCheckout}, env.notifier.triggers())
}

func TestCreateOrderAppliesVoucher(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()
	f := env.fixture

	voucher := &models.Discount{Code: "SAVE10", DiscountType: models.DiscountTypePercentage, Value: 10, IsActive: true}
	_, err := env.bun.NewInsert().Model(voucher).Exec(ctx)
	require.NoError(t, err)

	req := checkoutRequest(f, "402", models.SelectedTicket{TicketTypeID: f.Regular.ID, Quantity: 2})
	req.VoucherCode = "save10"
	req.DiscountAmount = 20000
	req.FinalAmount = 180000

	resp, err := env.svc.CreateOrder(ctx, req)
	require.NoError(t, err)

	stored, err := env.store.GetOrderByReference(ctx, resp.OrderReference)
	require.NoError(t, err)
	require.NotNil(t, stored.DiscountID)
	assert.Equal(t, voucher.ID, *stored.DiscountID)
	assert.Equal(t, int64(200000), stored.GrossAmount)
	assert.Equal(t, int64(20000), stored.DiscountAmount)
	assert.Equal(t, int64(180000), stored.FinalAmount)

	reloaded, err := env.store.GetDiscountByCode(ctx, "SAVE10")
	require.NoError(t, err)
	assert.Equal(t, 1, reloaded.UsageCount)

	require.Len(t, env.gateway.calls, 1)
	assert.Equal(t, int64(180000), env.gateway.calls[0].FinalAmount)
}

func TestCreateOrderUnknownVoucherProceeds(t *testing.T) {
	env := setupService(t)
	f := env.fixture

	req := checkoutRequest(f, "402", models.SelectedTicket{TicketTypeID: f.Regular.ID, Quantity: 1})
	req.VoucherCode = "NOPE"

	resp, err := env.svc.CreateOrder(context.Background(), req)
	require.NoError(t, err)

	stored, err := env.store.GetOrderByReference(context.Background(), resp.OrderReference)
	require.NoError(t, err)
	assert.Nil(t, stored.DiscountID)
}

func TestCreateOrderGatewayChannel(t *testing.T) {
	env := setupService(t)
	f := env.fixture

	req := checkoutRequest(f, "402", models.SelectedTicket{TicketTypeID: f.Regular.ID, Quantity: 1})
	resp, err := env.svc.CreateOrder(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, gatewayTrxID, resp.VirtualAccountNumber)
	assert.Equal(t, "https://pay.example.com/r/"+gatewayTrxID, resp.RedirectURL)
	assert.Zero(t, resp.UniqueCode)
	assert.Equal(t, int64(100000), resp.FinalAmount)

	require.Len(t, env.gateway.calls, 1)
	call := env.gateway.calls[0]
	assert.Equal(t, resp.OrderReference, call.OrderReference)
	assert.Equal(t, "402", call.PaymentChannel)
	assert.Equal(t, "081234567890", call.CustomerPhone)
	assert.Equal(t, []string{models.TriggerCheckout}, env.notifier.triggers())
}

func TestCreateOrderGatewayFailureFallsBack(t *testing.T) {
	env := setupService(t)
	f := env.fixture
	env.gateway.result = faspay.Result{Err: errors.New("connection refused")}

	resp, err := env.svc.CreateOrder(context.Background(), checkoutRequest(f, "402", models.SelectedTicket{TicketTypeID: f.Regular.ID, Quantity: 1}))
	require.NoError(t, err, "checkout survives an unavailable gateway")

	assert.Equal(t, order.FallbackVirtualAccount(resp.OrderReference), resp.VirtualAccountNumber)
	assert.Equal(t, baseURL+"/payment/"+resp.OrderReference, resp.RedirectURL)

	logs, err := env.store.ListPaymentLogs(context.Background(), resp.OrderReference)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "connection refused", logs[0].ResponsePayload["error"])
}

func TestFallbackVirtualAccount(t *testing.T) {
	assert.Equal(t, "12601234567890", order.FallbackVirtualAccount("TKT17000001234567890"))
	assert.Equal(t, "1260TKT1", order.FallbackVirtualAccount("TKT1"))
}

func TestCreateOrderEWalletSkipsCheckoutNotification(t *testing.T) {
	env := setupService(t)
	f := env.fixture

	_, err := env.svc.CreateOrder(context.Background(), checkoutRequest(f, "812", models.SelectedTicket{TicketTypeID: f.Regular.ID, Quantity: 1}))
	require.NoError(t, err)
	assert.Empty(t, env.notifier.triggers())
}

func TestCreateOrderBundleFillsMissingAttendeesWithBuyer(t *testing.T) {
	env := setupService(t)
	f := env.fixture

	req := checkoutRequest(f, "QRIS_STATIS",
		models.SelectedTicket{TicketTypeID: f.Regular.ID, Quantity: 1},
		models.SelectedTicket{TicketTypeID: f.Bundle.ID, Quantity: 1},
	)
	req.AttendeeData = []models.AttendeeInput{
		{Name: "Grouped One", TicketTypeID: f.Bundle.ID, BarcodeID: "GATE-1"},
		{Name: "Flat One", Email: "flat@example.com"},
		{Name: "Flat Two"},
	}

	resp, err := env.svc.CreateOrder(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "QRIS_STATIS", resp.VirtualAccountNumber)

	attendees := attendeesOf(t, env.bun, resp.OrderID)
	require.Len(t, attendees, 5, "1 regular admission plus 4 from the bundle")

	names := make([]string, len(attendees))
	for i, a := range attendees {
		names[i] = a.AttendeeName
	}
	assert.Equal(t, []string{"Flat One", "Grouped One", "Flat Two", "Budi Santoso", "Budi Santoso"}, names)
	assert.Equal(t, "flat@example.com", attendees[0].AttendeeEmail)
	assert.Equal(t, "GATE-1", attendees[1].BarcodeID)
	assert.Equal(t, "budi@example.com", attendees[2].AttendeeEmail, "blank fields fall back to the buyer")
}

func TestCreateOrderMergesRepeatedTicketTypes(t *testing.T) {
	env := setupService(t)
	f := env.fixture

	resp, err := env.svc.CreateOrder(context.Background(), checkoutRequest(f, "402",
		models.SelectedTicket{TicketTypeID: f.Regular.ID, Quantity: 1},
		models.SelectedTicket{TicketTypeID: f.Regular.ID, Quantity: 2},
	))
	require.NoError(t, err)

	detail, err := env.store.GetOrderDetail(context.Background(), resp.OrderReference)
	require.NoError(t, err)
	require.Len(t, detail.Items, 1)
	assert.Equal(t, 3, detail.Items[0].Quantity)
	assert.Equal(t, 3, detail.Items[0].EffectiveTicketCount)
	assert.Len(t, attendeesOf(t, env.bun, resp.OrderID), 3)
}

func TestCreateOrderReusesCustomerByPhone(t *testing.T) {
	env := setupService(t)
	f := env.fixture
	ctx := context.Background()

	first, err := env.svc.CreateOrder(ctx, checkoutRequest(f, "402", models.SelectedTicket{TicketTypeID: f.Regular.ID, Quantity: 1}))
	require.NoError(t, err)

	req := checkoutRequest(f, "402", models.SelectedTicket{TicketTypeID: f.Regular.ID, Quantity: 1})
	req.CustomerEmail = "budi.lain@example.com"
	second, err := env.svc.CreateOrder(ctx, req)
	require.NoError(t, err)

	a, err := env.store.GetOrderByReference(ctx, first.OrderReference)
	require.NoError(t, err)
	b, err := env.store.GetOrderByReference(ctx, second.OrderReference)
	require.NoError(t, err)
	assert.Equal(t, a.CustomerID, b.CustomerID)
}

func TestCreateOrderRejectsInvalidRequests(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(f dbtest.Fixture, req *models.CreateOrderRequest)
		kind   order.Kind
	}{
		{
			name:   "missing email",
			mutate: func(_ dbtest.Fixture, req *models.CreateOrderRequest) { req.CustomerEmail = "" },
			kind:   order.KindValidation,
		},
		{
			name:   "no tickets selected",
			mutate: func(_ dbtest.Fixture, req *models.CreateOrderRequest) { req.SelectedTickets = nil },
			kind:   order.KindValidation,
		},
		{
			name:   "unknown payment channel",
			mutate: func(_ dbtest.Fixture, req *models.CreateOrderRequest) { req.PaymentChannelCode = "NOPE" },
			kind:   order.KindNotFound,
		},
		{
			name:   "unknown event",
			mutate: func(_ dbtest.Fixture, req *models.CreateOrderRequest) { req.EventID = 9999 },
			kind:   order.KindNotFound,
		},
		{
			name: "ticket type of another event",
			mutate: func(f dbtest.Fixture, req *models.CreateOrderRequest) {
				req.EventID = f.OtherEvent.ID
			},
			kind: order.KindNotFound,
		},
		{
			name: "sold out",
			mutate: func(f dbtest.Fixture, req *models.CreateOrderRequest) {
				req.SelectedTickets = []models.SelectedTicket{{TicketTypeID: f.Bundle.ID, Quantity: 11}}
			},
			kind: order.KindValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupService(t)
			req := checkoutRequest(env.fixture, "402", models.SelectedTicket{TicketTypeID: env.fixture.Regular.ID, Quantity: 1})
			tt.mutate(env.fixture, &req)

			resp, err := env.svc.CreateOrder(context.Background(), req)
			require.Error(t, err)
			assert.Nil(t, resp)

			var appErr *order.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, tt.kind, appErr.Kind)
			assert.Equal(t, 400, appErr.StatusCode())
			assert.Zero(t, countOrders(t, env.bun), "rejected checkouts leave no order behind")
		})
	}
}

func TestCreateOrderEnforcesMaxPerPurchase(t *testing.T) {
	env := setupService(t)
	f := env.fixture

	_, err := env.bun.NewUpdate().Model((*models.TicketType)(nil)).
		Set("max_per_purchase = ?", 2).
		Where("id = ?", f.Regular.ID).
		Exec(context.Background())
	require.NoError(t, err)

	_, err = env.svc.CreateOrder(context.Background(), checkoutRequest(f, "402", models.SelectedTicket{TicketTypeID: f.Regular.ID, Quantity: 3}))
	assert.Equal(t, order.KindValidation, order.KindOf(err))
}

func TestCreateOrderGrossDefaultsToListPrice(t *testing.T) {
	env := setupService(t)
	f := env.fixture

	req := checkoutRequest(f, "402", models.SelectedTicket{TicketTypeID: f.Bundle.ID, Quantity: 2})
	req.GrossAmount = 0

	resp, err := env.svc.CreateOrder(context.Background(), req)
	require.NoError(t, err)

	stored, err := env.store.GetOrderByReference(context.Background(), resp.OrderReference)
	require.NoError(t, err)
	assert.Equal(t, int64(700000), stored.GrossAmount)
	assert.Len(t, attendeesOf(t, env.bun, resp.OrderID), 8)
}

func TestSubmitProof(t *testing.T) {
	env := setupService(t)
	f := env.fixture
	ctx := context.Background()

	manual, err := env.svc.CreateOrder(ctx, checkoutRequest(f, "BCA_MANUAL", models.SelectedTicket{TicketTypeID: f.Regular.ID, Quantity: 1}))
	require.NoError(t, err)
	gateway, err := env.svc.CreateOrder(ctx, checkoutRequest(f, "402", models.SelectedTicket{TicketTypeID: f.Regular.ID, Quantity: 1}))
	require.NoError(t, err)

	assert.Equal(t, order.KindValidation, order.KindOf(env.svc.SubmitProof(ctx, manual.OrderReference, "  ")))
	assert.ErrorIs(t, env.svc.SubmitProof(ctx, "TKT0", "https://cdn.example.com/p.jpg"), order.ErrOrderNotFound)
	assert.ErrorIs(t, env.svc.SubmitProof(ctx, gateway.OrderReference, "https://cdn.example.com/p.jpg"), order.ErrNotManualPayment)

	require.NoError(t, env.svc.SubmitProof(ctx, manual.OrderReference, "https://cdn.example.com/p.jpg"))
	view, err := env.svc.GetOrderView(ctx, manual.OrderReference)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/p.jpg", view.Order.ProofTransfer)
}

func TestGetOrderViewReadsThroughCache(t *testing.T) {
	env := setupService(t)
	f := env.fixture
	ctx := context.Background()

	resp, err := env.svc.CreateOrder(ctx, checkoutRequest(f, "402", models.SelectedTicket{TicketTypeID: f.Regular.ID, Quantity: 1}))
	require.NoError(t, err)

	status, err := env.svc.GetStatus(ctx, resp.OrderReference)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, status)
	assert.True(t, env.redis.Exists("order:"+resp.OrderReference))

	// A write behind the service's back is not visible until the entry goes.
	_, err = env.store.TransitionPending(ctx, resp.OrderReference, models.OrderStatusCancelled)
	require.NoError(t, err)
	status, err = env.svc.GetStatus(ctx, resp.OrderReference)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, status)

	env.redis.Del("order:" + resp.OrderReference)
	status, err = env.svc.GetStatus(ctx, resp.OrderReference)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, status)

	_, err = env.svc.GetStatus(ctx, "TKT0")
	assert.ErrorIs(t, err, order.ErrOrderNotFound)
}

func TestConfirmManualPaymentIssuesOnce(t *testing.T) {
	env := setupService(t)
	f := env.fixture
	ctx := context.Background()

	resp, err := env.svc.CreateOrder(ctx, checkoutRequest(f, "BCA_MANUAL", models.SelectedTicket{TicketTypeID: f.Regular.ID, Quantity: 2}))
	require.NoError(t, err)

	changed, result, err := env.svc.ConfirmManualPayment(ctx, resp.OrderReference, "admin-1")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 2, result.TicketsCreated)

	changed, result, err = env.svc.ConfirmManualPayment(ctx, resp.OrderReference, "admin-1")
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Zero(t, result.TicketsCreated)

	env.svc.Wait()
	assert.Equal(t, []string{models.TriggerCheckout, models.TriggerPaid}, env.notifier.triggers())

	view, err := env.svc.GetOrderView(ctx, resp.OrderReference)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPaid, view.Order.Status)
	assert.Len(t, view.Tickets, 2)
	assert.False(t, env.redis.Exists("payment_deadline:"+resp.OrderReference))
}

func TestConfirmManualPaymentRejectsGatewayOrders(t *testing.T) {
	env := setupService(t)
	f := env.fixture

	resp, err := env.svc.CreateOrder(context.Background(), checkoutRequest(f, "402", models.SelectedTicket{TicketTypeID: f.Regular.ID, Quantity: 1}))
	require.NoError(t, err)

	_, _, err = env.svc.ConfirmManualPayment(context.Background(), resp.OrderReference, "admin-1")
	assert.ErrorIs(t, err, order.ErrNotManualPayment)
}

func TestRetryIssuanceRequiresPaidOrder(t *testing.T) {
	env := setupService(t)
	f := env.fixture
	ctx := context.Background()

	resp, err := env.svc.CreateOrder(ctx, checkoutRequest(f, "BCA_MANUAL", models.SelectedTicket{TicketTypeID: f.Regular.ID, Quantity: 1}))
	require.NoError(t, err)

	_, err = env.svc.RetryIssuance(ctx, resp.OrderReference)
	assert.Equal(t, order.KindValidation, order.KindOf(err))

	_, _, err = env.svc.ConfirmManualPayment(ctx, resp.OrderReference, "admin-1")
	require.NoError(t, err)

	result, err := env.svc.RetryIssuance(ctx, resp.OrderReference)
	require.NoError(t, err)
	assert.Zero(t, result.TicketsCreated, "nothing left to issue")
}

type attendeeWriteFailure struct{ *orderdb.DB }

func (attendeeWriteFailure) InsertAttendees(context.Context, []models.OrderItemAttendee) error {
	return errors.New("disk full")
}

func TestCreateOrderAttendeeFailureLeavesIntegrityAnomaly(t *testing.T) {
	env := setupServiceWith(t, func(db *orderdb.DB) order.DBLayer { return attendeeWriteFailure{db} })
	ctx := context.Background()
	f := env.fixture

	_, err := env.svc.CreateOrder(ctx, checkoutRequest(f, "402", models.SelectedTicket{TicketTypeID: f.Regular.ID, Quantity: 2}))
	require.Error(t, err)

	var creationErr *order.OrderCreationError
	require.ErrorAs(t, err, &creationErr)
	assert.NotEmpty(t, creationErr.OrderReference)
	assert.NotZero(t, creationErr.OrderID)
	assert.Equal(t, order.KindIntegrity, order.KindOf(err))
	assert.Empty(t, env.gateway.calls, "no payment is requested for a broken order")

	ref := creationErr.OrderReference
	assert.Equal(t, []string{models.PaymentLogError}, logTypes(t, env, ref))

	stored, err := env.store.GetOrderByReference(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, stored.Status)
	items, err := env.bun.NewSelect().Model((*models.OrderItem)(nil)).Where("order_id = ?", creationErr.OrderID).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, items)
	assert.Empty(t, attendeesOf(t, env.bun, creationErr.OrderID))

	report, err := env.svc.ExpireStaleOrders(ctx)
	require.NoError(t, err)
	assert.Contains(t, report.Anomalies, ref)
}

type paymentDetailsFailure struct{ *orderdb.DB }

func (paymentDetailsFailure) UpdatePaymentDetails(context.Context, *models.Order) error {
	return errors.New("connection reset")
}

func TestCreateOrderPaymentDetailsFailureKeepsCheckoutLog(t *testing.T) {
	env := setupServiceWith(t, func(db *orderdb.DB) order.DBLayer { return paymentDetailsFailure{db} })
	ctx := context.Background()
	f := env.fixture

	_, err := env.svc.CreateOrder(ctx, checkoutRequest(f, "402", models.SelectedTicket{TicketTypeID: f.Regular.ID, Quantity: 1}))
	var creationErr *order.OrderCreationError
	require.ErrorAs(t, err, &creationErr)
	ref := creationErr.OrderReference

	assert.Equal(t, []string{models.PaymentLogCheckout, models.PaymentLogError}, logTypes(t, env, ref))
	logs, err := env.store.ListPaymentLogs(ctx, ref)
	require.NoError(t, err)
	assert.Contains(t, logs[0].ResponsePayload["error"], "connection reset")
}
