package faspay

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ms-checkout/internal/config"
	"ms-checkout/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testUser     = "bot35802"
	testPassword = "p@ssw0rd"
	testRef      = "TKT1718000000123042"
)

func TestSignatureKnownVectors(t *testing.T) {
	assert.Equal(t, "6bb2d0bbb81c8dada35c34d94513a43ab3644469", Signature(testUser, testPassword, testRef))
	assert.Equal(t, "2279639a3f7bc243f1573f42f999896f1ddbf97b", Signature(testUser, testPassword, testRef+"2"))
}

func TestVerifyCallbackSignature(t *testing.T) {
	good := Signature(testUser, testPassword, testRef+"2")

	assert.True(t, VerifyCallbackSignature(testUser, testPassword, testRef, "2", good))
	assert.False(t, VerifyCallbackSignature(testUser, testPassword, testRef, "8", good))
	assert.False(t, VerifyCallbackSignature(testUser, "wrong", testRef, "2", good))
	assert.False(t, VerifyCallbackSignature(testUser, testPassword, testRef, "2", ""))
}

func newTestClient(url string) *Client {
	cfg := config.FaspayConfig{
		URL:        url,
		MerchantID: "35802",
		Merchant:   "Indonesia Juara",
		UserID:     testUser,
		Password:   testPassword,
		Timeout:    5 * time.Second,
	}
	c := NewClient(cfg, time.FixedZone("WIB", 7*60*60), nil, logger.NewWriterLogger(nil))
	c.now = func() time.Time { return time.Date(2024, 5, 1, 3, 0, 0, 0, time.UTC) }
	return c
}

func TestBuildRequest(t *testing.T) {
	c := newTestClient("http://unused")

	bill := c.BuildRequest(PaymentRequest{
		OrderReference: testRef,
		CustomerName:   "Budi",
		CustomerEmail:  "budi@example.com",
		PaymentChannel: "402",
		FinalAmount:    150000,
	})

	assert.Equal(t, "Post Data Transaction", bill.Request)
	assert.Equal(t, "15000000", bill.BillTotal)
	assert.Equal(t, "2024-05-01 10:00:00", bill.BillDate)
	assert.Equal(t, "2024-05-01 15:04:00", bill.BillExpired)
	assert.Equal(t, "IDR", bill.BillCurrency)
	assert.Equal(t, "01", bill.PayType)
	assert.Equal(t, "10", bill.Terminal)
	assert.Equal(t, Signature(testUser, testPassword, testRef), bill.Signature)
	require.Len(t, bill.Item, 1)
	assert.Equal(t, "Invoice "+testRef, bill.Item[0].Product)
	assert.Equal(t, "15000000", bill.Item[0].Amount)
}

func TestCreatePaymentSuccess(t *testing.T) {
	var received map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"trx_id":"3580240000012345","redirect_url":"https://pay.example/r/1","response_code":"00"}`))
	}))
	defer server.Close()

	result := newTestClient(server.URL).CreatePayment(context.Background(), PaymentRequest{
		OrderReference: testRef,
		CustomerName:   "Budi",
		CustomerEmail:  "budi@example.com",
		PaymentChannel: "402",
		FinalAmount:    1000,
	})

	require.True(t, result.Success)
	assert.NoError(t, result.Err)
	assert.Equal(t, "3580240000012345", result.TrxID)
	assert.Equal(t, "https://pay.example/r/1", result.RedirectURL)
	assert.Equal(t, http.StatusOK, result.HTTPStatus)
	assert.Equal(t, testRef, received["bill_no"])
	assert.Equal(t, "100000", received["bill_total"])
	assert.Equal(t, result.Signature, result.ResponsePayload["signature"])
}

func TestCreatePaymentGatewayError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	}))
	defer server.Close()

	result := newTestClient(server.URL).CreatePayment(context.Background(), PaymentRequest{OrderReference: testRef, FinalAmount: 1})

	assert.False(t, result.Success)
	assert.Error(t, result.Err)
	assert.Equal(t, "upstream down", result.ResponsePayload["raw_response"])
}

func TestCreatePaymentUnreachable(t *testing.T) {
	result := newTestClient("http://127.0.0.1:1").CreatePayment(context.Background(), PaymentRequest{OrderReference: testRef, FinalAmount: 1})

	assert.False(t, result.Success)
	assert.Error(t, result.Err)
	assert.NotNil(t, result.RequestPayload)
}

func TestCreatePaymentUnreadableBody(t *testing.T) {
	for name, body := range map[string]string{
		"null":     "null",
		"empty":    "",
		"not json": "<html>ok</html>",
	} {
		t.Run(name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write([]byte(body))
			}))
			defer server.Close()

			var result Result
			require.NotPanics(t, func() {
				result = newTestClient(server.URL).CreatePayment(context.Background(), PaymentRequest{OrderReference: testRef, FinalAmount: 1})
			})

			assert.False(t, result.Success)
			assert.Error(t, result.Err)
			assert.Equal(t, http.StatusOK, result.HTTPStatus)
			assert.Equal(t, "Invalid response format", result.ResponsePayload["error"])
			assert.Equal(t, body, result.ResponsePayload["raw_response"])
			assert.Equal(t, result.Signature, result.ResponsePayload["signature"])
		})
	}
}
