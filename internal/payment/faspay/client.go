package faspay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"ms-checkout/internal/config"
	"ms-checkout/internal/logger"
	"ms-checkout/internal/utils"
)

const (
	billExpiry  = 5*time.Hour + 4*time.Minute
	requestName = "Post Data Transaction"
)

// PaymentRequest is what checkout knows about the bill.
type PaymentRequest struct {
	OrderReference string
	CustomerName   string
	CustomerEmail  string
	CustomerPhone  string
	PaymentChannel string
	FinalAmount    int64
}

// Result never carries a transport error as a Go error; callers inspect Success.
type Result struct {
	Success         bool
	TrxID           string
	RedirectURL     string
	Signature       string
	HTTPStatus      int
	RequestPayload  map[string]interface{}
	ResponsePayload map[string]interface{}
	Err             error
}

type Client struct {
	cfg    config.FaspayConfig
	loc    *time.Location
	http   *http.Client
	logger *logger.Logger
	now    func() time.Time
}

func NewClient(cfg config.FaspayConfig, loc *time.Location, httpClient *http.Client, log *logger.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{cfg: cfg, loc: loc, http: httpClient, logger: log, now: time.Now}
}

type BillItem struct {
	ID          string `json:"id"`
	Product     string `json:"product"`
	Qty         string `json:"qty"`
	Amount      string `json:"amount"`
	PaymentPlan string `json:"payment_plan"`
	MerchantID  string `json:"merchant_id"`
	Tenor       string `json:"tenor"`
}

type BillRequest struct {
	Request        string     `json:"request"`
	MerchantID     string     `json:"merchant_id"`
	Merchant       string     `json:"merchant"`
	BillNo         string     `json:"bill_no"`
	BillReff       string     `json:"bill_reff"`
	BillDate       string     `json:"bill_date"`
	BillExpired    string     `json:"bill_expired"`
	BillDesc       string     `json:"bill_desc"`
	BillCurrency   string     `json:"bill_currency"`
	BillTotal      string     `json:"bill_total"`
	CustNo         string     `json:"cust_no"`
	CustName       string     `json:"cust_name"`
	PaymentChannel string     `json:"payment_channel"`
	PayType        string     `json:"pay_type"`
	Msisdn         string     `json:"msisdn"`
	Email          string     `json:"email"`
	Terminal       string     `json:"terminal"`
	Item           []BillItem `json:"item"`
	Reserve1       string     `json:"reserve1"`
	Reserve2       string     `json:"reserve2"`
	Signature      string     `json:"signature"`
}

// BuildRequest assembles the signed bill. Amounts are sent in cents.
func (c *Client) BuildRequest(req PaymentRequest) BillRequest {
	now := c.now()
	total := strconv.FormatInt(req.FinalAmount*100, 10)

	return BillRequest{
		Request:        requestName,
		MerchantID:     c.cfg.MerchantID,
		Merchant:       c.cfg.Merchant,
		BillNo:         req.OrderReference,
		BillReff:       req.OrderReference,
		BillDate:       utils.FormatGatewayTime(now, c.loc),
		BillExpired:    utils.FormatGatewayTime(now.Add(billExpiry), c.loc),
		BillDesc:       "Payment Online Via Faspay",
		BillCurrency:   "IDR",
		BillTotal:      total,
		CustNo:         req.OrderReference,
		CustName:       req.CustomerName,
		PaymentChannel: req.PaymentChannel,
		PayType:        "01",
		Msisdn:         req.CustomerPhone,
		Email:          req.CustomerEmail,
		Terminal:       "10",
		Item: []BillItem{{
			ID:          req.OrderReference,
			Product:     "Invoice " + req.OrderReference,
			Qty:         "1",
			Amount:      total,
			PaymentPlan: "01",
			MerchantID:  c.cfg.MerchantID,
			Tenor:       "00",
		}},
		Signature: Signature(c.cfg.UserID, c.cfg.Password, req.OrderReference),
	}
}

// CreatePayment posts the bill and extracts trx_id and redirect_url.
func (c *Client) CreatePayment(ctx context.Context, req PaymentRequest) Result {
	bill := c.BuildRequest(req)
	result := Result{Signature: bill.Signature, RequestPayload: toMap(bill)}

	body, err := json.Marshal(bill)
	if err != nil {
		result.Err = fmt.Errorf("marshal bill: %w", err)
		return result
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(body))
	if err != nil {
		result.Err = fmt.Errorf("build gateway request: %w", err)
		return result
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	c.logger.Info("PAYMENT", fmt.Sprintf("Sending bill %s to gateway (%s)", req.OrderReference, req.PaymentChannel))

	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.logger.Error("PAYMENT", fmt.Sprintf("Gateway request for %s failed: %v", req.OrderReference, err))
		result.Err = fmt.Errorf("gateway request: %w", err)
		return result
	}
	defer resp.Body.Close()

	result.HTTPStatus = resp.StatusCode
	raw, _ := io.ReadAll(resp.Body)

	// A body of null or nothing decodes to a nil map.
	var parsed map[string]interface{}
	if err := json.Unmarshal(raw, &parsed); err != nil || parsed == nil {
		parsed = map[string]interface{}{
			"error":        "Invalid response format",
			"raw_response": string(raw),
		}
	}
	parsed["signature"] = bill.Signature
	result.ResponsePayload = parsed

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		result.Err = fmt.Errorf("gateway responded with status %d", resp.StatusCode)
		c.logger.Warn("PAYMENT", fmt.Sprintf("Gateway rejected bill %s: status %d", req.OrderReference, resp.StatusCode))
		return result
	}
	if _, invalid := parsed["raw_response"]; invalid {
		result.Err = fmt.Errorf("gateway returned an unreadable body")
		c.logger.Warn("PAYMENT", fmt.Sprintf("Gateway answered bill %s with an unreadable body", req.OrderReference))
		return result
	}

	result.Success = true
	result.TrxID = stringField(parsed, "trx_id")
	result.RedirectURL = stringField(parsed, "redirect_url")
	return result
}

func toMap(v interface{}) map[string]interface{} {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var out map[string]interface{}
	_ = json.Unmarshal(raw, &out)
	return out
}

func stringField(m map[string]interface{}, key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}
