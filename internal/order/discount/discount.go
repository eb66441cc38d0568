package discount

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ms-checkout/internal/logger"
	"ms-checkout/internal/models"
	"ms-checkout/internal/order/db"

	"github.com/shopspring/decimal"
)

// Store is the read side the evaluator needs.
type Store interface {
	GetDiscountByCode(ctx context.Context, code string) (*models.Discount, error)
	RestrictedTicketTypeCounts(ctx context.Context, discountID, eventID int64) (int, int, error)
}

// DiscountService validates voucher codes. It never mutates usage counters.
type DiscountService struct {
	store  Store
	logger *logger.Logger
	now    func() time.Time
}

func NewDiscountService(store Store, log *logger.Logger) *DiscountService {
	return &DiscountService{store: store, logger: log, now: time.Now}
}

// WithClock overrides the time source.
func (s *DiscountService) WithClock(now func() time.Time) *DiscountService {
	s.now = now
	return s
}

// Result is the outcome of a voucher check. Reason is set when Valid is false.
type Result struct {
	Valid          bool
	Voucher        *models.Discount
	Reason         string
	DiscountAmount int64
}

// Validate runs the voucher checks in order and stops at the first failure.
func (s *DiscountService) Validate(ctx context.Context, code string, eventID, amount int64) (*Result, error) {
	code = NormalizeCode(code)
	if code == "" {
		return &Result{Reason: "Voucher code is required"}, nil
	}

	// Step 1: code exists and is active
	voucher, err := s.store.GetDiscountByCode(ctx, code)
	if errors.Is(err, db.ErrNotFound) {
		return &Result{Reason: "Invalid voucher code"}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup voucher %s: %w", code, err)
	}
	if !voucher.IsActive {
		return &Result{Reason: "Invalid voucher code"}, nil
	}

	// Step 2: validity window
	now := s.now()
	if voucher.ValidFrom != nil && now.Before(*voucher.ValidFrom) {
		return &Result{Reason: "Voucher is not active yet"}, nil
	}
	if voucher.ValidUntil != nil && !now.Before(*voucher.ValidUntil) {
		return &Result{Reason: "Voucher has expired"}, nil
	}

	// Step 3: usage cap
	if voucher.UsageLimit != nil && voucher.UsageCount >= *voucher.UsageLimit {
		return &Result{Reason: "Voucher usage limit reached"}, nil
	}

	// Step 4: minimum purchase
	if voucher.MinimumAmount != nil && amount < *voucher.MinimumAmount {
		return &Result{Reason: fmt.Sprintf("Minimum purchase amount is %s", FormatRupiah(*voucher.MinimumAmount))}, nil
	}

	// Step 5: ticket type restriction must overlap the requested event
	restricted, forEvent, err := s.store.RestrictedTicketTypeCounts(ctx, voucher.ID, eventID)
	if err != nil {
		return nil, fmt.Errorf("load ticket type restrictions for %s: %w", code, err)
	}
	if restricted > 0 && forEvent == 0 {
		return &Result{Reason: "Voucher is not valid for this event"}, nil
	}

	result := &Result{
		Valid:          true,
		Voucher:        voucher,
		DiscountAmount: Calculate(voucher, amount),
	}
	s.logger.Debug("VOUCHER", fmt.Sprintf("Voucher %s valid for event %d: discount %d on %d", code, eventID, result.DiscountAmount, amount))
	return result, nil
}

// Calculate returns the discount for amount. Percentages round down to whole
// rupiah and honor the optional cap; fixed values never exceed the amount.
func Calculate(voucher *models.Discount, amount int64) int64 {
	if voucher == nil || amount <= 0 {
		return 0
	}

	base := decimal.NewFromInt(amount)
	var discount decimal.Decimal

	switch voucher.DiscountType {
	case models.DiscountTypePercentage:
		discount = base.Mul(decimal.NewFromFloat(voucher.Value)).Div(decimal.NewFromInt(100)).Floor()
		if voucher.MaxDiscountAmount != nil {
			discount = decimal.Min(discount, decimal.NewFromInt(*voucher.MaxDiscountAmount))
		}
	case models.DiscountTypeFixed:
		discount = decimal.NewFromFloat(voucher.Value).Floor()
	default:
		return 0
	}

	discount = decimal.Min(discount, base)
	if discount.IsNegative() {
		return 0
	}
	return discount.IntPart()
}

// NormalizeCode trims and upper-cases a voucher code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// FormatRupiah renders 1234567 as "Rp 1.234.567".
func FormatRupiah(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	digits := fmt.Sprintf("%d", amount)
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	return "Rp " + sign + b.String()
}
