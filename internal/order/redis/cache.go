package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"ms-checkout/internal/logger"

	"github.com/go-redis/redis/v8"
)

// Cache keys.
const (
	KeyEventsAll       = "events:all"
	KeyPaymentChannels = "payment_channels"
	deadlinePrefix     = "payment_deadline:"
)

func OrderKey(ref string) string {
	return "order:" + ref
}

func EventKey(slug string) string {
	return "event:" + slug
}

// Redis wraps the client with JSON helpers. Every method is best-effort from the
// caller's point of view: errors are returned but never required for correctness.
type Redis struct {
	Client *redis.Client
	Logger *logger.Logger
}

func NewRedis(client *redis.Client, log *logger.Logger) *Redis {
	return &Redis{Client: client, Logger: log}
}

// GetJSON loads key into dest. The boolean is false on a cache miss.
func (r *Redis) GetJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	raw, err := r.Client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		// A corrupt entry is treated as a miss and dropped.
		r.Client.Del(ctx, key)
		return false, fmt.Errorf("decode cached %s: %w", key, err)
	}
	return true, nil
}

func (r *Redis) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := r.Client.Set(ctx, key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := r.Client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", strings.Join(keys, ","), err)
	}
	return nil
}

// Lock takes a short-lived mutex shared across service instances.
func (r *Redis) Lock(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	return r.Client.SetNX(ctx, "lock:"+key, owner, ttl).Result()
}

// Unlock releases the mutex only if owner still holds it.
func (r *Redis) Unlock(ctx context.Context, key, owner string) error {
	const script = `if redis.call("GET", KEYS[1]) == ARGV[1] then return redis.call("DEL", KEYS[1]) else return 0 end`
	return r.Client.Eval(ctx, script, []string{"lock:" + key}, owner).Err()
}
