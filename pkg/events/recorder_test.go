package events

import (
	"testing"

	"github.com/google/uuid"
)

func TestRecorderBuffersInRaiseOrder(t *testing.T) {
	rec := &Recorder{}
	first := UserRegistered{UserID: uuid.New()}
	second := BlogPublished{BlogID: uuid.New()}

	rec.Raise(first)
	rec.Raise(second)
	rec.Raise(nil)

	pending := rec.PendingEvents()
	if len(pending) != 2 {
		t.Fatalf("expected 2 buffered events, got %d", len(pending))
	}
	if pending[0].EventType() != TypeUserRegistered {
		t.Fatalf("expected first event %s, got %s", TypeUserRegistered, pending[0].EventType())
	}
	if pending[1].EventType() != TypeBlogPublished {
		t.Fatalf("expected second event %s, got %s", TypeBlogPublished, pending[1].EventType())
	}
}

func TestRecorderClearPreventsReEmission(t *testing.T) {
	rec := &Recorder{}
	rec.Raise(TagCreated{TagID: uuid.New(), Name: "go"})

	rec.ClearEvents()
	if got := rec.PendingEvents(); len(got) != 0 {
		t.Fatalf("expected empty buffer after clear, got %d events", len(got))
	}
}

func TestPendingEventsReturnsCopy(t *testing.T) {
	rec := &Recorder{}
	rec.Raise(TagCreated{TagID: uuid.New(), Name: "go"})

	snapshot := rec.PendingEvents()
	rec.ClearEvents()
	if len(snapshot) != 1 {
		t.Fatalf("snapshot should be independent of the buffer")
	}
}
