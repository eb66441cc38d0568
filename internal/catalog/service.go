// Package catalog serves the storefront read paths: events, payment channels,
// attendee questions and payment instructions. Lists go through the Redis cache
// when one is configured; a cache failure falls back to the database.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ms-checkout/internal/logger"
	"ms-checkout/internal/models"
	orderredis "ms-checkout/internal/order/redis"
)

type Store interface {
	ListEvents(ctx context.Context) ([]models.Event, error)
	GetEventBySlug(ctx context.Context, slug string) (*models.Event, error)
	ListPaymentChannels(ctx context.Context) ([]models.PaymentChannel, error)
	ListCustomFields(ctx context.Context, eventID int64) ([]models.EventCustomField, error)
	ListPaymentInstructions(ctx context.Context, channelID int64) ([]models.PaymentInstruction, error)
}

type Cache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

type Service struct {
	store       Store
	cache       Cache
	logger      *logger.Logger
	eventsTTL   time.Duration
	channelsTTL time.Duration
}

// NewService wires the catalog. cache may be nil.
func NewService(store Store, cache Cache, log *logger.Logger, eventsTTL, channelsTTL time.Duration) *Service {
	return &Service{
		store:       store,
		cache:       cache,
		logger:      log,
		eventsTTL:   eventsTTL,
		channelsTTL: channelsTTL,
	}
}

func (s *Service) ListEvents(ctx context.Context) ([]models.Event, error) {
	var events []models.Event
	err := s.readThrough(ctx, orderredis.KeyEventsAll, s.eventsTTL, &events, func() (interface{}, error) {
		list, err := s.store.ListEvents(ctx)
		events = list
		return list, err
	})
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

func (s *Service) GetEvent(ctx context.Context, slug string) (*models.Event, error) {
	var event *models.Event
	err := s.readThrough(ctx, orderredis.EventKey(slug), s.eventsTTL, &event, func() (interface{}, error) {
		found, err := s.store.GetEventBySlug(ctx, slug)
		event = found
		return found, err
	})
	if errors.Is(err, ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get event %s: %w", slug, err)
	}
	return event, nil
}

func (s *Service) ListPaymentChannels(ctx context.Context) ([]models.PaymentChannel, error) {
	var channels []models.PaymentChannel
	err := s.readThrough(ctx, orderredis.KeyPaymentChannels, s.channelsTTL, &channels, func() (interface{}, error) {
		list, err := s.store.ListPaymentChannels(ctx)
		channels = list
		return list, err
	})
	if err != nil {
		return nil, fmt.Errorf("list payment channels: %w", err)
	}
	return channels, nil
}

func (s *Service) ListCustomFields(ctx context.Context, eventID int64) ([]models.EventCustomField, error) {
	fields, err := s.store.ListCustomFields(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list custom fields of event %d: %w", eventID, err)
	}
	return fields, nil
}

func (s *Service) ListPaymentInstructions(ctx context.Context, channelID int64) ([]models.PaymentInstruction, error) {
	steps, err := s.store.ListPaymentInstructions(ctx, channelID)
	if err != nil {
		return nil, fmt.Errorf("list instructions of channel %d: %w", channelID, err)
	}
	return steps, nil
}

// Invalidate drops the cached event lists and, if given, single events.
func (s *Service) Invalidate(ctx context.Context, slugs ...string) {
	if s.cache == nil {
		return
	}
	keys := []string{orderredis.KeyEventsAll, orderredis.KeyPaymentChannels}
	for _, slug := range slugs {
		keys = append(keys, orderredis.EventKey(slug))
	}
	if err := s.cache.Delete(ctx, keys...); err != nil {
		s.logger.Warn("REDIS", fmt.Sprintf("Catalog cache invalidation failed: %v", err))
	}
}

// readThrough fills dest from key, or calls load (which must also fill dest)
// and stores its result.
func (s *Service) readThrough(ctx context.Context, key string, ttl time.Duration, dest interface{}, load func() (interface{}, error)) error {
	if s.cache != nil {
		hit, err := s.cache.GetJSON(ctx, key, dest)
		if err != nil {
			s.logger.Warn("REDIS", fmt.Sprintf("Cache read %s failed: %v", key, err))
		}
		if hit {
			s.logger.Debug("REDIS", "Cache hit "+key)
			return nil
		}
	}

	value, err := load()
	if err != nil {
		return err
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, key, value, ttl); err != nil {
			s.logger.Warn("REDIS", fmt.Sprintf("Cache write %s failed: %v", key, err))
		}
	}
	return nil
}
