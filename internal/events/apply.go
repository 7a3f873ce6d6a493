package events

// Remover is the slice of the cache store the consumer needs.
type Remover interface {
	Remove(key string)
}

// Invalidate returns a Consume handler that drops invalidated keys from
// the local store. Unknown event kinds are ignored so that newer
// clients can add kinds without breaking older ones.
func Invalidate(store Remover) func(Event) error {
	return func(event Event) error {
		if event.Kind != KindInvalidate {
			return nil
		}
		store.Remove(event.Key)
		return nil
	}
}
