package sse

import (
	"context"
	"sync"
	"time"
)

// StatusChange is broadcast whenever an order leaves pending.
type StatusChange struct {
	OrderReference string    `json:"order_reference"`
	EventID        int64     `json:"event_id,omitempty"`
	Status         string    `json:"status"`
	At             time.Time `json:"at"`
}

// StatusEmitter fans order status changes out to SSE subscribers, keyed by order
// reference (buyers waiting on the payment page) and by event (organizer dashboards).
type StatusEmitter struct {
	mu           sync.RWMutex
	orderClients map[string][]chan StatusChange
	eventClients map[int64][]chan StatusChange
}

func NewStatusEmitter() *StatusEmitter {
	return &StatusEmitter{
		orderClients: make(map[string][]chan StatusChange),
		eventClients: make(map[int64][]chan StatusChange),
	}
}

// SubscribeOrder returns a channel that receives changes of one order until ctx is done.
func (e *StatusEmitter) SubscribeOrder(ctx context.Context, ref string) <-chan StatusChange {
	ch := make(chan StatusChange, 4)

	e.mu.Lock()
	e.orderClients[ref] = append(e.orderClients[ref], ch)
	e.mu.Unlock()

	go func() {
		<-ctx.Done()
		e.mu.Lock()
		defer e.mu.Unlock()
		e.orderClients[ref] = remove(e.orderClients[ref], ch)
		if len(e.orderClients[ref]) == 0 {
			delete(e.orderClients, ref)
		}
		close(ch)
	}()
	return ch
}

// SubscribeEvent returns a channel that receives paid orders of one event.
func (e *StatusEmitter) SubscribeEvent(ctx context.Context, eventID int64) <-chan StatusChange {
	ch := make(chan StatusChange, 10)

	e.mu.Lock()
	e.eventClients[eventID] = append(e.eventClients[eventID], ch)
	e.mu.Unlock()

	go func() {
		<-ctx.Done()
		e.mu.Lock()
		defer e.mu.Unlock()
		e.eventClients[eventID] = remove(e.eventClients[eventID], ch)
		if len(e.eventClients[eventID]) == 0 {
			delete(e.eventClients, eventID)
		}
		close(ch)
	}()
	return ch
}

// Emit never blocks; a subscriber with a full buffer misses the change.
func (e *StatusEmitter) Emit(change StatusChange) {
	if change.At.IsZero() {
		change.At = time.Now().UTC()
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	for _, ch := range e.orderClients[change.OrderReference] {
		select {
		case ch <- change:
		default:
		}
	}
	if change.EventID == 0 {
		return
	}
	for _, ch := range e.eventClients[change.EventID] {
		select {
		case ch <- change:
		default:
		}
	}
}

// OrderSubscribers returns how many clients are watching ref.
func (e *StatusEmitter) OrderSubscribers(ref string) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.orderClients[ref])
}

func remove(clients []chan StatusChange, target chan StatusChange) []chan StatusChange {
	for i, ch := range clients {
		if ch == target {
			return append(clients[:i], clients[i+1:]...)
		}
	}
	return clients
}
