package order

import (
	"context"
	"fmt"
	"time"

	"ms-checkout/internal/models"

	"github.com/google/uuid"
)

const (
	sweeperLockKey = "expiry-sweeper"
	sweepBatchSize = 200
)

// SweepReport summarises one expiry sweep.
type SweepReport struct {
	Expired   int
	Anomalies []string
	Skipped   bool
}

// ExpireOrder moves a still-pending order to expired. It is safe to call for
// orders that were paid or cancelled in the meantime.
func (s *OrderService) ExpireOrder(ctx context.Context, ref string) (bool, error) {
	changed, err := s.DB.TransitionPending(ctx, ref, models.OrderStatusExpired)
	if err != nil {
		return false, fmt.Errorf("expire %s: %w", ref, err)
	}
	if !changed {
		return false, nil
	}

	s.invalidate(ctx, ref)
	s.emitStatus(ref, 0, models.OrderStatusExpired)
	s.writePaymentLog(ctx, &models.PaymentLog{
		OrderReference:  ref,
		LogType:         models.PaymentLogDeadlineExpired,
		ResponsePayload: map[string]interface{}{"status": models.OrderStatusExpired},
	})
	s.logger.LogOrder("EXPIRE", ref, "payment deadline passed")
	return true, nil
}

// HandleDeadline is the callback for expired payment deadline keys.
func (s *OrderService) HandleDeadline(ctx context.Context, ref string) {
	if _, err := s.ExpireOrder(ctx, ref); err != nil {
		s.logger.Error("ORDER", err.Error())
	}
}

// ExpireStaleOrders expires pending orders older than the payment deadline and
// reports orders whose items are missing attendee rows. Only one instance sweeps
// at a time when a cache is configured.
func (s *OrderService) ExpireStaleOrders(ctx context.Context) (SweepReport, error) {
	var report SweepReport

	if s.Cache != nil {
		owner := uuid.NewString()
		ok, err := s.Cache.Lock(ctx, sweeperLockKey, owner, time.Minute)
		if err != nil {
			s.logger.Warn("REDIS", fmt.Sprintf("Sweeper lock unavailable, sweeping anyway: %v", err))
		} else if !ok {
			report.Skipped = true
			return report, nil
		} else {
			defer func() {
				if err := s.Cache.Unlock(context.Background(), sweeperLockKey, owner); err != nil {
					s.logger.Warn("REDIS", fmt.Sprintf("Failed to release sweeper lock: %v", err))
				}
			}()
		}
	}

	cutoff := s.now().UTC().Add(-s.settings.PaymentDeadline)
	refs, err := s.DB.ListStalePending(ctx, cutoff, sweepBatchSize)
	if err != nil {
		return report, fmt.Errorf("list stale pending orders: %w", err)
	}
	for _, ref := range refs {
		changed, err := s.ExpireOrder(ctx, ref)
		if err != nil {
			s.logger.Error("ORDER", err.Error())
			continue
		}
		if changed {
			report.Expired++
		}
	}

	anomalies, err := s.DB.ListOrdersMissingAttendees(ctx, sweepBatchSize)
	if err != nil {
		return report, fmt.Errorf("scan orders missing attendees: %w", err)
	}
	for _, ref := range anomalies {
		s.logger.Error("ORDER", fmt.Sprintf("Integrity anomaly: order %s has items without attendee rows", ref))
	}
	report.Anomalies = anomalies

	if report.Expired > 0 {
		s.logger.Info("ORDER", fmt.Sprintf("Expiry sweep expired %d orders", report.Expired))
	}
	return report, nil
}

// RunExpirySweeper sweeps every interval until ctx is done.
func (s *OrderService) RunExpirySweeper(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("ORDER", fmt.Sprintf("Expiry sweeper running every %s", interval))
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := s.ExpireStaleOrders(ctx); err != nil {
				s.logger.Error("ORDER", fmt.Sprintf("Expiry sweep failed: %v", err))
			}
		}
	}
}
