package events

import "testing"

type fakeStore struct {
	removed []string
}

func (f *fakeStore) Remove(key string) { f.removed = append(f.removed, key) }

func TestInvalidateHandler(t *testing.T) {
	store := &fakeStore{}
	handler := Invalidate(store)

	if err := handler(NewInvalidate("wallets_A1")); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if len(store.removed) != 1 || store.removed[0] != "wallets_A1" {
		t.Errorf("removed = %v", store.removed)
	}

	// Unknown kinds are ignored, not errors.
	if err := handler(Event{Kind: "something-else", Key: "accounts"}); err != nil {
		t.Fatalf("unknown kind: %v", err)
	}
	if len(store.removed) != 1 {
		t.Errorf("unknown kind must not remove keys: %v", store.removed)
	}
}

func TestEventJSONRoundTrip(t *testing.T) {
	event := NewInvalidate("transactions_A1_W1")
	event.Origin = "device-a"

	data, err := event.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	parsed, err := EventFromJSON(data)
	if err != nil {
		t.Fatalf("EventFromJSON: %v", err)
	}
	if parsed.Kind != KindInvalidate || parsed.Key != "transactions_A1_W1" {
		t.Errorf("parsed = %+v", parsed)
	}
	if parsed.Origin != "device-a" {
		t.Errorf("origin = %q", parsed.Origin)
	}
}

func TestSkipOriginDropsOwnEvents(t *testing.T) {
	store := &fakeStore{}
	handler := SkipOrigin("device-a", Invalidate(store))

	// A fanout delivery comes back to the publisher; it must not drop
	// the entry it just merged.
	own := NewInvalidate("wallets_A1")
	own.Origin = "device-a"
	if err := handler(own); err != nil {
		t.Fatalf("own event: %v", err)
	}
	if len(store.removed) != 0 {
		t.Errorf("own event removed keys: %v", store.removed)
	}

	other := NewInvalidate("wallets_A1")
	other.Origin = "device-b"
	if err := handler(other); err != nil {
		t.Fatalf("other event: %v", err)
	}
	if len(store.removed) != 1 || store.removed[0] != "wallets_A1" {
		t.Errorf("removed = %v", store.removed)
	}

	// Events without an origin (older publishers) still apply.
	if err := handler(NewInvalidate("accounts")); err != nil {
		t.Fatalf("no-origin event: %v", err)
	}
	if len(store.removed) != 2 {
		t.Errorf("removed = %v", store.removed)
	}
}
