package outbox

import (
	"context"
	"sync"

	"go.uber.org/multierr"

	"github.com/danielvega/portfolio-backend/pkg/events"
)

// Handler reacts to a dispatched domain event.
type Handler interface {
	Handle(ctx context.Context, event events.Event) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, event events.Event) error

func (f HandlerFunc) Handle(ctx context.Context, event events.Event) error {
	return f(ctx, event)
}

// Publisher fans a decoded event out to the handlers subscribed to its
// type, in subscription order. Handler errors are collected rather than
// short-circuiting, so every handler sees the event exactly once per
// dispatch.
type Publisher struct {
	mtx      sync.RWMutex
	handlers map[string][]Handler
}

func NewPublisher() *Publisher {
	return &Publisher{handlers: make(map[string][]Handler)}
}

func (p *Publisher) Subscribe(eventType string, handler Handler) {
	if handler == nil {
		return
	}
	p.mtx.Lock()
	defer p.mtx.Unlock()
	p.handlers[eventType] = append(p.handlers[eventType], handler)
}

// Publish delivers the event to every subscribed handler. An event with
// no subscribers is not an error.
func (p *Publisher) Publish(ctx context.Context, event events.Event) error {
	if event == nil {
		return nil
	}
	p.mtx.RLock()
	handlers := p.handlers[event.EventType()]
	p.mtx.RUnlock()

	var combined error
	for _, handler := range handlers {
		if err := handler.Handle(ctx, event); err != nil {
			combined = multierr.Append(combined, err)
		}
	}
	return combined
}
