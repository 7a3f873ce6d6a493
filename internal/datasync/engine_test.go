package datasync

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"sync"
	"testing"

	"virtwallet/internal/cache"
)

type call struct {
	method string
	path   string
	query  url.Values
	body   any
}

// fakeClient records calls and replays canned responses per method.
type fakeClient struct {
	mu        sync.Mutex
	calls     []call
	getResp   json.RawMessage
	postResp  json.RawMessage
	putResp   json.RawMessage
	deleteErr error
	getErr    error
	postErr   error
	putErr    error
}

func (f *fakeClient) record(c call) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
}

func (f *fakeClient) Get(_ context.Context, path string, query url.Values) (json.RawMessage, error) {
	f.record(call{method: "GET", path: path, query: query})
	return f.getResp, f.getErr
}

func (f *fakeClient) PostJSON(_ context.Context, path string, body any) (json.RawMessage, error) {
	f.record(call{method: "POST", path: path, body: body})
	return f.postResp, f.postErr
}

func (f *fakeClient) PutJSON(_ context.Context, path string, body any, query url.Values) (json.RawMessage, error) {
	f.record(call{method: "PUT", path: path, query: query, body: body})
	return f.putResp, f.putErr
}

func (f *fakeClient) Delete(_ context.Context, path string) (json.RawMessage, error) {
	f.record(call{method: "DELETE", path: path})
	return json.RawMessage(`{}`), f.deleteErr
}

type item struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func seed(t *testing.T, store cache.Store, key string, value any) {
	t.Helper()
	raw, err := json.Marshal(value)
	if err != nil {
		t.Fatalf("seed %s: %v", key, err)
	}
	store.Set(key, raw)
}

func TestLoadReturnsCachedWithoutFetching(t *testing.T) {
	store := cache.NewMemory()
	client := &fakeClient{}
	engine := NewEngine(store, client)
	seed(t, store, "items", []item{{ID: "1", Name: "cached"}})

	got, err := Load(context.Background(), engine, LoadParams[[]item]{
		Key:          "items",
		ResourcePath: "/item",
	})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 1 || got[0].Name != "cached" {
		t.Errorf("got = %v", got)
	}
	if len(client.calls) != 0 {
		t.Errorf("cache hit must not reach the network: %v", client.calls)
	}
}

func TestLoadFetchesAndCachesOnMiss(t *testing.T) {
	store := cache.NewMemory()
	client := &fakeClient{getResp: json.RawMessage(`[{"id":"1","name":"fetched"}]`)}
	engine := NewEngine(store, client)

	params := LoadParams[[]item]{Key: "items", ResourcePath: "/item"}
	got, err := Load(context.Background(), engine, params)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 1 || got[0].Name != "fetched" {
		t.Errorf("got = %v", got)
	}
	if len(client.calls) != 1 || client.calls[0].method != "GET" || client.calls[0].path != "/item" {
		t.Errorf("calls = %v", client.calls)
	}

	// The fetched value is now served from cache.
	if _, err := Load(context.Background(), engine, params); err != nil {
		t.Fatalf("second Load: %v", err)
	}
	if len(client.calls) != 1 {
		t.Errorf("second load fetched again: %v", client.calls)
	}
}

func TestLoadMissWithoutPathReturnsZero(t *testing.T) {
	store := cache.NewMemory()
	client := &fakeClient{}
	engine := NewEngine(store, client)

	got, err := Load(context.Background(), engine, LoadParams[[]item]{Key: "items"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != nil {
		t.Errorf("got = %v", got)
	}
	if len(client.calls) != 0 {
		t.Errorf("no path, no fetch: %v", client.calls)
	}
}

func TestLoadAppliesTransform(t *testing.T) {
	store := cache.NewMemory()
	client := &fakeClient{getResp: json.RawMessage(`[{"id":"1","name":"a"},{"id":"2","name":"b"}]`)}
	engine := NewEngine(store, client)

	query := url.Values{"keep": {"2"}}
	got, err := Load(context.Background(), engine, LoadParams[[]item]{
		Key:          "items",
		ResourcePath: "/item",
		Query:        query,
		Transform: func(data []item, q url.Values) []item {
			var kept []item
			for _, it := range data {
				if it.ID == q.Get("keep") {
					kept = append(kept, it)
				}
			}
			return kept
		},
	})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 1 || got[0].ID != "2" {
		t.Errorf("got = %v", got)
	}

	// The transformed value, not the raw response, is what got cached.
	cachedItems, ok := cached[[]item](engine, "items")
	if !ok || len(cachedItems) != 1 || cachedItems[0].ID != "2" {
		t.Errorf("cached = %v (ok=%v)", cachedItems, ok)
	}
}

func TestCorruptCacheEntryIsAMiss(t *testing.T) {
	store := cache.NewMemory()
	client := &fakeClient{getResp: json.RawMessage(`[{"id":"1","name":"fresh"}]`)}
	engine := NewEngine(store, client)
	store.Set("items", []byte("{not json"))

	got, err := Load(context.Background(), engine, LoadParams[[]item]{
		Key:          "items",
		ResourcePath: "/item",
	})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 1 || got[0].Name != "fresh" {
		t.Errorf("got = %v", got)
	}
}

func TestReloadBypassesCache(t *testing.T) {
	store := cache.NewMemory()
	client := &fakeClient{getResp: json.RawMessage(`[{"id":"1","name":"remote"}]`)}
	engine := NewEngine(store, client)
	seed(t, store, "items", []item{{ID: "1", Name: "stale"}})

	got, err := Reload(context.Background(), engine, LoadParams[[]item]{
		Key:          "items",
		ResourcePath: "/item",
	})
	if err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if got[0].Name != "remote" {
		t.Errorf("got = %v", got)
	}
	if len(client.calls) != 1 {
		t.Errorf("calls = %v", client.calls)
	}
}

func TestCreateMergesResponseIntoCache(t *testing.T) {
	store := cache.NewMemory()
	client := &fakeClient{postResp: json.RawMessage(`{"id":"2","name":"new"}`)}
	engine := NewEngine(store, client)
	seed(t, store, "items", []item{{ID: "1", Name: "old"}})

	err := Create(context.Background(), engine, CreateParams[[]item]{
		Key:          "items",
		ResourcePath: "/item",
		Body:         item{Name: "new"},
		Merger: func(current []item, created json.RawMessage) ([]item, error) {
			var it item
			if err := json.Unmarshal(created, &it); err != nil {
				return nil, err
			}
			return append(current, it), nil
		},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, _ := cached[[]item](engine, "items")
	if len(got) != 2 || got[1].ID != "2" {
		t.Errorf("cached = %v", got)
	}
}

func TestCreateMergerSeesZeroValueOnCacheMiss(t *testing.T) {
	store := cache.NewMemory()
	client := &fakeClient{postResp: json.RawMessage(`{"id":"1","name":"first"}`)}
	engine := NewEngine(store, client)

	err := Create(context.Background(), engine, CreateParams[[]item]{
		Key:          "items",
		ResourcePath: "/item",
		Body:         item{Name: "first"},
		Merger: func(current []item, created json.RawMessage) ([]item, error) {
			if current != nil {
				t.Errorf("expected zero value on miss, got %v", current)
			}
			var it item
			if err := json.Unmarshal(created, &it); err != nil {
				return nil, err
			}
			return append(current, it), nil
		},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
}

func TestCreateLeavesCacheUntouchedOnFailure(t *testing.T) {
	store := cache.NewMemory()
	client := &fakeClient{postErr: errors.New("boom")}
	engine := NewEngine(store, client)
	seed(t, store, "items", []item{{ID: "1", Name: "old"}})

	err := Create(context.Background(), engine, CreateParams[[]item]{
		Key:          "items",
		ResourcePath: "/item",
		Merger: func(current []item, _ json.RawMessage) ([]item, error) {
			t.Error("merger must not run when the POST fails")
			return current, nil
		},
	})
	if err == nil {
		t.Fatal("expected error")
	}

	got, _ := cached[[]item](engine, "items")
	if len(got) != 1 || got[0].Name != "old" {
		t.Errorf("cached = %v", got)
	}
}

func TestUpdateShortCircuitsEmptyDiff(t *testing.T) {
	store := cache.NewMemory()
	client := &fakeClient{}
	engine := NewEngine(store, client)

	state := Attributes{"id": "1", "name": "same"}
	err := Update(context.Background(), engine, UpdateParams[[]item]{
		Key:          "items",
		ResourcePath: "/item/1",
		ChangeSet:    NewChangeSet(state, Attributes{"id": "1", "name": "same"}),
		Merger: func(current []item, _ json.RawMessage) ([]item, error) {
			return current, nil
		},
	})
	if !errors.Is(err, ErrNoChanges) {
		t.Fatalf("err = %v, want ErrNoChanges", err)
	}
	if len(client.calls) != 0 {
		t.Errorf("empty diff must not reach the network: %v", client.calls)
	}
}

func TestUpdateSendsDiffAndMergesResponse(t *testing.T) {
	store := cache.NewMemory()
	client := &fakeClient{putResp: json.RawMessage(`{"id":"1","name":"server"}`)}
	engine := NewEngine(store, client)
	seed(t, store, "items", []item{{ID: "1", Name: "local"}})

	err := Update(context.Background(), engine, UpdateParams[[]item]{
		Key:          "items",
		ResourcePath: "/item/1",
		ChangeSet: NewChangeSet(
			Attributes{"id": "1", "name": "local"},
			Attributes{"id": "1", "name": "edited"},
		),
		Merger: func(current []item, updated json.RawMessage) ([]item, error) {
			var it item
			if err := json.Unmarshal(updated, &it); err != nil {
				return nil, err
			}
			for i := range current {
				if current[i].ID == it.ID {
					current[i] = it
				}
			}
			return current, nil
		},
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	if len(client.calls) != 1 || client.calls[0].method != "PUT" {
		t.Fatalf("calls = %v", client.calls)
	}
	diff, ok := client.calls[0].body.(Diff)
	if !ok {
		t.Fatalf("body = %T", client.calls[0].body)
	}
	if diff.New["name"] != "edited" || len(diff.New) != 1 {
		t.Errorf("diff = %v", diff)
	}

	// The server response, not the local edit, wins in the cache.
	got, _ := cached[[]item](engine, "items")
	if got[0].Name != "server" {
		t.Errorf("cached = %v", got)
	}
}

func TestUpdateWithoutChangeSetFails(t *testing.T) {
	engine := NewEngine(cache.NewMemory(), &fakeClient{})

	err := Update(context.Background(), engine, UpdateParams[[]item]{
		Key:          "items",
		ResourcePath: "/item/1",
	})
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestRemoveDeletesAndSplicesCache(t *testing.T) {
	store := cache.NewMemory()
	client := &fakeClient{}
	engine := NewEngine(store, client)
	seed(t, store, "items", []item{{ID: "1"}, {ID: "2"}})

	err := Remove(context.Background(), engine, RemoveParams[[]item]{
		Key:          "items",
		ResourcePath: "/item/1",
		Merger: func(current []item) ([]item, error) {
			kept := current[:0]
			for _, it := range current {
				if it.ID != "1" {
					kept = append(kept, it)
				}
			}
			return kept, nil
		},
	})
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}

	if len(client.calls) != 1 || client.calls[0].method != "DELETE" || client.calls[0].path != "/item/1" {
		t.Errorf("calls = %v", client.calls)
	}
	got, _ := cached[[]item](engine, "items")
	if len(got) != 1 || got[0].ID != "2" {
		t.Errorf("cached = %v", got)
	}
}

func TestRemoveLeavesCacheUntouchedOnFailure(t *testing.T) {
	store := cache.NewMemory()
	client := &fakeClient{deleteErr: errors.New("boom")}
	engine := NewEngine(store, client)
	seed(t, store, "items", []item{{ID: "1"}})

	err := Remove(context.Background(), engine, RemoveParams[[]item]{
		Key:          "items",
		ResourcePath: "/item/1",
		Merger: func(current []item) ([]item, error) {
			t.Error("merger must not run when the DELETE fails")
			return current, nil
		},
	})
	if err == nil {
		t.Fatal("expected error")
	}
	got, _ := cached[[]item](engine, "items")
	if len(got) != 1 {
		t.Errorf("cached = %v", got)
	}
}

func TestCleanLocalDropsEntry(t *testing.T) {
	store := cache.NewMemory()
	engine := NewEngine(store, &fakeClient{})
	seed(t, store, "items", []item{{ID: "1"}})

	engine.CleanLocal(context.Background(), "items")

	if _, ok := store.Get("items"); ok {
		t.Error("entry still present after CleanLocal")
	}
}

// Two unsynchronized writers racing on one key resolve last-write-wins
// at the store; no interleaving corrupts an entry.
func TestConcurrentWritesResolveLastWriteWins(t *testing.T) {
	store := cache.NewMemory()
	client := &fakeClient{postResp: json.RawMessage(`{"id":"x","name":"x"}`)}
	engine := NewEngine(store, client)

	done := make(chan struct{}, 2)
	for i := 0; i < 2; i++ {
		go func(id string) {
			defer func() { done <- struct{}{} }()
			_ = Create(context.Background(), engine, CreateParams[[]item]{
				Key:          "items",
				ResourcePath: "/item",
				Merger: func(current []item, _ json.RawMessage) ([]item, error) {
					return []item{{ID: id}}, nil
				},
			})
		}(string(rune('a' + i)))
	}
	<-done
	<-done

	got, ok := cached[[]item](engine, "items")
	if !ok || len(got) != 1 {
		t.Fatalf("cached = %v (ok=%v)", got, ok)
	}
	if got[0].ID != "a" && got[0].ID != "b" {
		t.Errorf("cached = %v", got)
	}
}
