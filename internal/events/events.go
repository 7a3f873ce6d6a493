// Package events carries cache-invalidation notifications between
// clients of the same user. A device that mutates a resource publishes
// the affected cache key; other devices drop that key so their next
// load refetches.
package events

import (
	"context"
	"encoding/json"
	"time"
)

const KindInvalidate = "invalidate"

type Event struct {
	Kind string    `json:"kind"`
	Key  string    `json:"key"`
	At   time.Time `json:"at"`

	// Origin identifies the publishing device. A fanout delivery
	// reaches the publisher too; consumers use Origin to skip their
	// own events.
	Origin string `json:"origin,omitempty"`
}

func NewInvalidate(key string) Event {
	return Event{Kind: KindInvalidate, Key: key, At: time.Now().UTC()}
}

func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func EventFromJSON(data []byte) (Event, error) {
	var e Event
	err := json.Unmarshal(data, &e)
	return e, err
}

// Publisher is the outbound port. The bus is optional: when no broker
// is configured the engine runs with Nop.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// SkipOrigin wraps handler so events published by origin are dropped
// without reaching it. Events without an origin are handled normally.
func SkipOrigin(origin string, handler func(Event) error) func(Event) error {
	return func(event Event) error {
		if origin != "" && event.Origin == origin {
			return nil
		}
		return handler(event)
	}
}
