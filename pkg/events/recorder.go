package events

// Source is an aggregate that buffers raised events until the unit of
// work collects them at commit time.
type Source interface {
	PendingEvents() []Event
	ClearEvents()
}

// Recorder buffers domain events in memory. Embed it in a GORM model
// with a `gorm:"-"` tag; raising an event performs no I/O.
type Recorder struct {
	pending []Event
}

// Raise appends an event to the buffer in raise order.
func (r *Recorder) Raise(event Event) {
	if event == nil {
		return
	}
	r.pending = append(r.pending, event)
}

// PendingEvents returns a copy of the buffered events.
func (r *Recorder) PendingEvents() []Event {
	out := make([]Event, len(r.pending))
	copy(out, r.pending)
	return out
}

// ClearEvents drops the buffer so a retried save cannot re-emit.
func (r *Recorder) ClearEvents() {
	r.pending = nil
}
