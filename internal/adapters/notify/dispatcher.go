// Package notify fans notification intents out to delivery subscribers.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"outingrewards/internal/domain"
)

// Dispatcher is a domain.NotificationPublisher that hands each notification to every
// subscriber on its own goroutine. Publish returns immediately; a slow, failing, or
// panicking subscriber affects neither the caller nor the other subscribers.
type Dispatcher struct {
	logger *slog.Logger

	mu          sync.RWMutex
	subscribers []domain.NotificationSubscriber
	closed      bool

	inflight sync.WaitGroup
}

// NewDispatcher returns a Dispatcher with no subscribers.
func NewDispatcher(logger *slog.Logger) *Dispatcher {
	return &Dispatcher{logger: logger}
}

// Subscribe registers sub. A subscriber with the same name is registered only once.
func (d *Dispatcher) Subscribe(sub domain.NotificationSubscriber) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, s := range d.subscribers {
		if s.Name() == sub.Name() {
			return
		}
	}
	d.subscribers = append(d.subscribers, sub)
	d.logger.Info("notification subscriber registered", "subscriber", sub.Name())
}

// Unsubscribe removes the subscriber with the given name and reports whether it was registered.
func (d *Dispatcher) Unsubscribe(name string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := len(d.subscribers)
	d.subscribers = slices.DeleteFunc(d.subscribers, func(s domain.NotificationSubscriber) bool {
		return s.Name() == name
	})
	removed := len(d.subscribers) < n
	if removed {
		d.logger.Info("notification subscriber removed", "subscriber", name)
	}
	return removed
}

// SubscriberNames lists registered subscribers in registration order.
func (d *Dispatcher) SubscriberNames() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	names := make([]string, 0, len(d.subscribers))
	for _, s := range d.subscribers {
		names = append(names, s.Name())
	}
	return names
}

// Publish delivers n to every subscriber asynchronously. Delivery outlives the
// caller's context cancellation but keeps its values (request id, logger attrs).
func (d *Dispatcher) Publish(ctx context.Context, n *domain.Notification) {
	d.mu.RLock()
	if d.closed {
		d.mu.RUnlock()
		d.logger.WarnContext(ctx, "dispatcher closed, dropping notification", "type", n.Type, "recipient_id", n.RecipientID)
		return
	}
	subs := slices.Clone(d.subscribers)
	d.inflight.Add(len(subs))
	d.mu.RUnlock()

	d.logger.DebugContext(ctx, "publishing notification", "type", n.Type, "recipient_id", n.RecipientID, "subscribers", len(subs))
	deliveryCtx := context.WithoutCancel(ctx)
	for _, sub := range subs {
		go d.deliver(deliveryCtx, sub, n)
	}
}

func (d *Dispatcher) deliver(ctx context.Context, sub domain.NotificationSubscriber, n *domain.Notification) {
	defer d.inflight.Done()
	defer func() {
		if r := recover(); r != nil {
			d.logger.ErrorContext(ctx, "notification subscriber panicked", "subscriber", sub.Name(), "type", n.Type, "panic", fmt.Sprint(r))
		}
	}()
	if err := sub.Handle(ctx, n); err != nil {
		d.logger.ErrorContext(ctx, "notification delivery failed", "subscriber", sub.Name(), "type", n.Type, "recipient_id", n.RecipientID, "err", err)
		return
	}
	d.logger.DebugContext(ctx, "notification delivered", "subscriber", sub.Name(), "type", n.Type)
}

// Close stops accepting notifications and waits for in-flight deliveries or ctx to end.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for notification deliveries: %w", ctx.Err())
	}
}
