package analytics_api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"ms-checkout/internal/analytics"
	analytics_api "ms-checkout/internal/analytics/api"
	"ms-checkout/internal/logger"
	"ms-checkout/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockAnalytics struct {
	mock.Mock
}

func (m *mockAnalytics) GetEventSales(ctx context.Context, eventID int64) (*analytics.EventSales, error) {
	args := m.Called(ctx, eventID)
	sales, _ := args.Get(0).(*analytics.EventSales)
	return sales, args.Error(1)
}

func (m *mockAnalytics) GetEventOrders(ctx context.Context, eventID int64, options analytics.EventOrderOptions) ([]models.Order, error) {
	args := m.Called(ctx, eventID, options)
	orders, _ := args.Get(0).([]models.Order)
	return orders, args.Error(1)
}

func serve(svc analytics_api.AnalyticsService, path string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	analytics_api.NewHandler(svc, logger.NewWriterLogger(nil)).RegisterRoutes(r)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestGetEventSalesHandler(t *testing.T) {
	svc := &mockAnalytics{}
	svc.On("GetEventSales", mock.Anything, int64(7)).Return(&analytics.EventSales{EventID: 7, PaidOrders: 3, Revenue: 900000}, nil)
	svc.On("GetEventSales", mock.Anything, int64(8)).Return(nil, errors.New("db down"))

	rec := serve(svc, "/admin/events/7/sales")
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, float64(3), body["paid_orders"])
	assert.Equal(t, float64(900000), body["revenue"])

	assert.Equal(t, http.StatusInternalServerError, serve(svc, "/admin/events/8/sales").Code)
	assert.Equal(t, http.StatusBadRequest, serve(svc, "/admin/events/abc/sales").Code)
}

func TestGetEventOrdersHandlerParsesQuery(t *testing.T) {
	svc := &mockAnalytics{}
	svc.On("GetEventOrders", mock.Anything, int64(7), analytics.EventOrderOptions{
		Status: "paid", SortBy: "final_amount", SortDesc: true, Limit: 10, Offset: 20,
	}).Return([]models.Order{{OrderReference: "TKT1"}}, nil)

	rec := serve(svc, "/admin/events/7/orders?status=paid&sort_by=final_amount&sort_desc=true&limit=10&offset=20")

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, float64(1), body["count"])
	svc.AssertExpectations(t)
}
