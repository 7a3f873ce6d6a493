// Package datasync implements the client-side data-synchronization
// layer: cache-first reads, write-through updates with a diff/merge
// protocol, and merge-after-write cache reconciliation.
//
// Concurrency model: there is no locking. Two writes racing on the same
// cache key resolve last-write-wins at the store. The engine suspends
// only at network I/O; once a request is issued it runs to completion.
package datasync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"virtwallet/internal/cache"
	"virtwallet/internal/events"
)

// ErrNoChanges marks a write short-circuited because the change set's
// diff was empty. No network call and no cache mutation happened.
var ErrNoChanges = errors.New("no changes to save")

// Client is the remote resource port, implemented by api.Client.
type Client interface {
	Get(ctx context.Context, path string, query url.Values) (json.RawMessage, error)
	PostJSON(ctx context.Context, path string, body any) (json.RawMessage, error)
	PutJSON(ctx context.Context, path string, body any, query url.Values) (json.RawMessage, error)
	Delete(ctx context.Context, path string) (json.RawMessage, error)
}

// Engine orchestrates the cache store and the remote client. Entity
// modules drive it through the generic Load/Reload/Create/Update/Remove
// operations.
type Engine struct {
	cache  cache.Store
	client Client
	events events.Publisher
	log    *slog.Logger
}

type EngineOption func(*Engine)

func WithEvents(publisher events.Publisher) EngineOption {
	return func(e *Engine) { e.events = publisher }
}

func WithLogger(log *slog.Logger) EngineOption {
	return func(e *Engine) { e.log = log }
}

func NewEngine(store cache.Store, client Client, opts ...EngineOption) *Engine {
	e := &Engine{
		cache:  store,
		client: client,
		events: events.Nop{},
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CleanLocal drops a cache entry. The next Load for the key refetches.
func (e *Engine) CleanLocal(ctx context.Context, key string) {
	e.log.Debug("removing key from cache", "key", key)
	e.cache.Remove(key)
	e.publishInvalidate(ctx, key)
}

func (e *Engine) publishInvalidate(ctx context.Context, key string) {
	if err := e.events.Publish(ctx, events.NewInvalidate(key)); err != nil {
		// The bus is best-effort; a broker outage must not fail writes.
		e.log.Warn("failed to publish invalidation event", "key", key, "error", err)
	}
}

// cached unmarshals the entry for key into T. A corrupt entry counts as
// a miss.
func cached[T any](e *Engine, key string) (T, bool) {
	var value T
	raw, ok := e.cache.Get(key)
	if !ok {
		return value, false
	}
	if err := json.Unmarshal(raw, &value); err != nil {
		e.log.Warn("corrupt cache entry, treating as miss", "key", key, "error", err)
		return value, false
	}
	return value, true
}

func store[T any](e *Engine, key string, value T) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache entry %s: %w", key, err)
	}
	e.cache.Set(key, raw)
	return nil
}

// LoadParams configures a cache-first read.
type LoadParams[T any] struct {
	Key          string
	ResourcePath string
	Query        url.Values

	// Transform reshapes freshly fetched data before it is cached.
	Transform func(data T, query url.Values) T
}

// Load returns the cached value for the key if present, with no
// freshness check; otherwise it fetches from the resource path, caches
// the (possibly transformed) result and returns it. At most one fetch
// per call.
func Load[T any](ctx context.Context, e *Engine, p LoadParams[T]) (T, error) {
	if value, ok := cached[T](e, p.Key); ok {
		e.log.Debug("cache hit", "key", p.Key)
		return value, nil
	}

	var zero T
	if p.ResourcePath == "" {
		return zero, nil
	}

	return fetchAndStore(ctx, e, p)
}

// Reload bypasses the cache read, fetches unconditionally and
// overwrites the cache entry.
func Reload[T any](ctx context.Context, e *Engine, p LoadParams[T]) (T, error) {
	e.log.Debug("reloading key", "key", p.Key)
	return fetchAndStore(ctx, e, p)
}

func fetchAndStore[T any](ctx context.Context, e *Engine, p LoadParams[T]) (T, error) {
	var value T

	raw, err := e.client.Get(ctx, p.ResourcePath, p.Query)
	if err != nil {
		return value, fmt.Errorf("load %s: %w", p.ResourcePath, err)
	}
	if err := json.Unmarshal(raw, &value); err != nil {
		return value, fmt.Errorf("decode %s response: %w", p.ResourcePath, err)
	}

	if p.Transform != nil {
		value = p.Transform(value, p.Query)
	}

	if err := store(e, p.Key, value); err != nil {
		return value, err
	}
	e.log.Debug("cached fetched data", "key", p.Key, "path", p.ResourcePath)
	return value, nil
}

// CreateParams configures a write-through create. Merger reconciles the
// server's response into the cached collection; on a cache miss it
// receives the zero value of T.
type CreateParams[T any] struct {
	Key          string
	ResourcePath string
	Body         any
	Merger       func(current T, created json.RawMessage) (T, error)
}

// Create POSTs the body and merges the server response into the cache.
// The cache is untouched when the POST fails.
func Create[T any](ctx context.Context, e *Engine, p CreateParams[T]) error {
	created, err := e.client.PostJSON(ctx, p.ResourcePath, p.Body)
	if err != nil {
		return fmt.Errorf("create %s: %w", p.ResourcePath, err)
	}

	current, _ := cached[T](e, p.Key)
	merged, err := p.Merger(current, created)
	if err != nil {
		return fmt.Errorf("merge created %s: %w", p.Key, err)
	}
	if err := store(e, p.Key, merged); err != nil {
		return err
	}
	e.publishInvalidate(ctx, p.Key)
	return nil
}

// UpdateParams configures a write-through update. The server response
// is authoritative post-write: the merger must replace the cached
// entity with it, not with the locally edited state.
type UpdateParams[T any] struct {
	Key          string
	ResourcePath string
	Query        url.Values
	ChangeSet    *ChangeSet
	Merger       func(current T, updated json.RawMessage) (T, error)
}

// Update PUTs the change set's payload and merges the server response
// into the cache. An empty diff fails with ErrNoChanges before any
// network call.
func Update[T any](ctx context.Context, e *Engine, p UpdateParams[T]) error {
	if p.ChangeSet == nil {
		return errors.New("update requires a change set")
	}
	if p.ChangeSet.Diff().Empty() {
		return ErrNoChanges
	}

	updated, err := e.client.PutJSON(ctx, p.ResourcePath, p.ChangeSet.Payload(), p.Query)
	if err != nil {
		return fmt.Errorf("update %s: %w", p.ResourcePath, err)
	}

	current, _ := cached[T](e, p.Key)
	merged, err := p.Merger(current, updated)
	if err != nil {
		return fmt.Errorf("merge updated %s: %w", p.Key, err)
	}
	if err := store(e, p.Key, merged); err != nil {
		return err
	}
	e.publishInvalidate(ctx, p.Key)
	return nil
}

// RemoveParams configures a write-through delete. The merger locates
// the deleted item in the cached collection and splices it out.
type RemoveParams[T any] struct {
	Key          string
	ResourcePath string
	Merger       func(current T) (T, error)
}

// Remove DELETEs the resource and splices it out of the cache.
func Remove[T any](ctx context.Context, e *Engine, p RemoveParams[T]) error {
	if _, err := e.client.Delete(ctx, p.ResourcePath); err != nil {
		return fmt.Errorf("delete %s: %w", p.ResourcePath, err)
	}

	current, _ := cached[T](e, p.Key)
	merged, err := p.Merger(current)
	if err != nil {
		return fmt.Errorf("merge deleted %s: %w", p.Key, err)
	}
	if err := store(e, p.Key, merged); err != nil {
		return err
	}
	e.publishInvalidate(ctx, p.Key)
	return nil
}
