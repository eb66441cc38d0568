package order

import (
	"context"
	"fmt"
	"time"

	"ms-checkout/internal/logger"
	"ms-checkout/internal/utils"
)

const (
	maxUniqueCodeAttempts = 20
	uniqueCodeHold        = 25 * time.Hour
)

// CodeStore answers whether a code is already used on a receiving identifier
// within a time window.
type CodeStore interface {
	UniqueCodeTaken(ctx context.Context, virtualAccount string, code int, from, to time.Time) (bool, error)
}

// CodeLocker reserves a key for a while so two concurrent checkouts cannot both
// take the same free code. The redis cache satisfies it.
type CodeLocker interface {
	Lock(ctx context.Context, key, owner string, ttl time.Duration) (bool, error)
}

// CodeAllocator hands out the 3-digit suffix that makes manual transfers
// distinguishable by amount.
type CodeAllocator struct {
	store  CodeStore
	locker CodeLocker
	loc    *time.Location
	logger *logger.Logger
	draw   func() int
	now    func() time.Time
}

func NewCodeAllocator(store CodeStore, locker CodeLocker, loc *time.Location, log *logger.Logger) *CodeAllocator {
	return &CodeAllocator{store: store, locker: locker, loc: loc, logger: log, draw: utils.GenerateUniqueCode, now: time.Now}
}

// Allocate returns a code in 100..999 not yet used today on channelIdentifier and
// the amount the payer must transfer. After the retry bound the last draw is kept.
func (a *CodeAllocator) Allocate(ctx context.Context, channelIdentifier, orderRef string, amount int64) (int, int64, error) {
	now := a.now()
	from, to := utils.DayBounds(now, a.loc)
	day := now.In(a.loc).Format("20060102")

	code := 0
	for attempt := 1; attempt <= maxUniqueCodeAttempts; attempt++ {
		code = a.draw()

		taken, err := a.store.UniqueCodeTaken(ctx, channelIdentifier, code, from, to)
		if err != nil {
			return 0, 0, fmt.Errorf("check unique code %d on %s: %w", code, channelIdentifier, err)
		}
		if taken {
			continue
		}
		if a.reserve(ctx, channelIdentifier, day, code, orderRef) {
			return code, amount + int64(code), nil
		}
	}

	a.logger.Warn("ORDER", fmt.Sprintf("No free unique code for %s on %s after %d attempts, using %d", orderRef, channelIdentifier, maxUniqueCodeAttempts, code))
	return code, amount + int64(code), nil
}

// reserve reports true when the code could be held for orderRef, or when no
// locker is configured or it is unreachable.
func (a *CodeAllocator) reserve(ctx context.Context, channelIdentifier, day string, code int, orderRef string) bool {
	if a.locker == nil {
		return true
	}
	key := fmt.Sprintf("unique_code:%s:%s:%d", channelIdentifier, day, code)
	ok, err := a.locker.Lock(ctx, key, orderRef, uniqueCodeHold)
	if err != nil {
		a.logger.Warn("REDIS", fmt.Sprintf("Unique code reservation unavailable: %v", err))
		return true
	}
	return ok
}
