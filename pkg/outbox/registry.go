package outbox

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/danielvega/portfolio-backend/pkg/events"
)

type decoderFunc func(content json.RawMessage) (events.Event, error)

// DecoderRegistry maps the stored event type back to a concrete event.
// The rows carry no type metadata beyond the type column, so every
// dispatchable event needs a registered decoder.
type DecoderRegistry struct {
	mtx      sync.RWMutex
	registry map[string]decoderFunc
}

func NewDecoderRegistry() *DecoderRegistry {
	return &DecoderRegistry{registry: make(map[string]decoderFunc)}
}

func (r *DecoderRegistry) Register(eventType string, decoder decoderFunc) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.registry[eventType] = decoder
}

func (r *DecoderRegistry) Decode(eventType string, content json.RawMessage) (events.Event, error) {
	r.mtx.RLock()
	decoder, ok := r.registry[eventType]
	r.mtx.RUnlock()
	if !ok {
		return nil, fmt.Errorf("decoder not registered for %s", eventType)
	}
	return decoder(content)
}

func decodeInto[T events.Event](content json.RawMessage) (events.Event, error) {
	var event T
	if err := json.Unmarshal(content, &event); err != nil {
		return nil, err
	}
	return event, nil
}

// NewDefaultRegistry wires the decoders for every event the platform
// raises today.
func NewDefaultRegistry() *DecoderRegistry {
	registry := NewDecoderRegistry()
	registry.Register(events.TypeUserRegistered, decodeInto[events.UserRegistered])
	registry.Register(events.TypeBlogPublished, decodeInto[events.BlogPublished])
	registry.Register(events.TypeTagCreated, decodeInto[events.TagCreated])
	return registry
}
