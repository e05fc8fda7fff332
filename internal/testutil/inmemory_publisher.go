package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/dojobill/dojobill/internal/types"
)

// InMemoryNotifyPublisher captures notification events so tests can assert
// on what the billing core announced
type InMemoryNotifyPublisher struct {
	mu     sync.RWMutex
	events []*types.NotificationEvent
}

func NewInMemoryNotifyPublisher() *InMemoryNotifyPublisher {
	return &InMemoryNotifyPublisher{}
}

func (p *InMemoryNotifyPublisher) Publish(ctx context.Context, event *types.NotificationEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if event.ID == "" {
		event.ID = types.GenerateUUID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	p.events = append(p.events, event)
	return nil
}

func (p *InMemoryNotifyPublisher) Close() error {
	return nil
}

// Events returns all captured events
func (p *InMemoryNotifyPublisher) Events() []*types.NotificationEvent {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]*types.NotificationEvent(nil), p.events...)
}

// EventsByName returns captured events matching the given event name
func (p *InMemoryNotifyPublisher) EventsByName(name string) []*types.NotificationEvent {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var result []*types.NotificationEvent
	for _, e := range p.events {
		if e.EventName == name {
			result = append(result, e)
		}
	}
	return result
}

func (p *InMemoryNotifyPublisher) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = nil
}
