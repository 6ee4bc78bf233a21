package outbox

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/danielvega/portfolio-backend/pkg/events"
)

func TestPublisher_DispatchesInSubscriptionOrder(t *testing.T) {
	publisher := NewPublisher()
	var calls []string

	publisher.Subscribe(events.TypeTagCreated, HandlerFunc(func(ctx context.Context, event events.Event) error {
		calls = append(calls, "first")
		return nil
	}))
	publisher.Subscribe(events.TypeTagCreated, HandlerFunc(func(ctx context.Context, event events.Event) error {
		calls = append(calls, "second")
		return nil
	}))

	err := publisher.Publish(context.Background(), events.TagCreated{TagID: uuid.New(), Name: "go"})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(calls) != 2 || calls[0] != "first" || calls[1] != "second" {
		t.Fatalf("unexpected call order %v", calls)
	}
}

func TestPublisher_CollectsHandlerErrors(t *testing.T) {
	publisher := NewPublisher()
	firstErr := errors.New("first failed")
	secondCalled := false

	publisher.Subscribe(events.TypeUserRegistered, HandlerFunc(func(ctx context.Context, event events.Event) error {
		return firstErr
	}))
	publisher.Subscribe(events.TypeUserRegistered, HandlerFunc(func(ctx context.Context, event events.Event) error {
		secondCalled = true
		return nil
	}))

	err := publisher.Publish(context.Background(), events.UserRegistered{UserID: uuid.New()})
	if !errors.Is(err, firstErr) {
		t.Fatalf("expected wrapped handler error, got %v", err)
	}
	if !secondCalled {
		t.Fatal("later handlers should still run after a failure")
	}
}

func TestPublisher_NoSubscribers(t *testing.T) {
	publisher := NewPublisher()
	if err := publisher.Publish(context.Background(), events.BlogPublished{BlogID: uuid.New()}); err != nil {
		t.Fatalf("expected nil for unsubscribed event, got %v", err)
	}
}
