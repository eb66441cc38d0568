package redis

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// SetPaymentDeadline arms a key that expires when the order's payment window closes.
func (r *Redis) SetPaymentDeadline(ctx context.Context, ref string, ttl time.Duration) error {
	if err := r.Client.Set(ctx, deadlinePrefix+ref, time.Now().Add(ttl).Unix(), ttl).Err(); err != nil {
		return fmt.Errorf("set payment deadline for %s: %w", ref, err)
	}
	return nil
}

// ClearPaymentDeadline disarms the key once the order leaves pending.
func (r *Redis) ClearPaymentDeadline(ctx context.Context, ref string) error {
	return r.Client.Del(ctx, deadlinePrefix+ref).Err()
}

// DeadlineFromExpiredKey extracts the order reference from an expired key name.
func DeadlineFromExpiredKey(key string) (string, bool) {
	if !strings.HasPrefix(key, deadlinePrefix) {
		return "", false
	}
	return strings.TrimPrefix(key, deadlinePrefix), true
}

// SubscribeDeadlines calls handle for every payment deadline key that expires.
// It needs notify-keyspace-events to include "Ex"; the periodic sweeper covers
// deployments where it does not.
func (r *Redis) SubscribeDeadlines(ctx context.Context, handle func(ctx context.Context, ref string)) {
	val, err := r.Client.ConfigGet(ctx, "notify-keyspace-events").Result()
	if err != nil {
		r.Logger.Error("REDIS", fmt.Sprintf("Failed to get keyspace config: %v", err))
	} else if len(val) < 2 || !strings.Contains(fmt.Sprint(val[1]), "x") || !strings.Contains(fmt.Sprint(val[1]), "E") {
		r.Logger.Warn("REDIS", "Keyspace notifications not configured for expiry events; relying on sweeper")
	}

	channel := fmt.Sprintf("__keyevent@%d__:expired", r.Client.Options().DB)
	pubsub := r.Client.PSubscribe(ctx, channel)
	r.Logger.Info("REDIS", fmt.Sprintf("Subscribed to %s", channel))

	go func() {
		defer pubsub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-pubsub.Channel():
				if !ok {
					return
				}
				ref, ok := DeadlineFromExpiredKey(msg.Payload)
				if !ok {
					continue
				}
				r.Logger.Info("REDIS", fmt.Sprintf("Payment deadline passed for order %s", ref))
				handle(ctx, ref)
			}
		}
	}()
}
