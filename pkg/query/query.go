// Package query caches the results of asynchronous loads by key.
//
// A Cache guarantees at most one load in flight per key, serves values for
// a configurable staleness window (a day by default) and never refetches in
// the background: a new load only starts when a caller asks for a key whose
// entry is missing, stale or invalidated.
//
// Loads are numbered in the order they start. A value is only replaced by
// the result of a load that started later than the one that produced it, so
// a slow load that completes after a newer one cannot overwrite it.
package query

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// DefaultStaleTime is how long a loaded value is considered fresh.
const DefaultStaleTime = 24 * time.Hour

// ErrLoading is returned by Value for a snapshot that has no result yet.
var ErrLoading = errors.New("query: value not loaded yet")

// Status is the state of a cache entry as seen by observers.
type Status int

const (
	// StatusLoading means no value and no error yet.
	StatusLoading Status = iota
	// StatusError means the last load failed and there is no value to serve.
	StatusError
	// StatusSuccess means a value is present, possibly stale.
	StatusSuccess
)

func (s Status) String() string {
	switch s {
	case StatusError:
		return "error"
	case StatusSuccess:
		return "success"
	default:
		return "loading"
	}
}

const keySep = "\x1f"

// Key identifies a query. Build it from every parameter that affects the
// shape of the result.
type Key string

// NewKey builds a composite key.
func NewKey(parts ...any) Key {
	strs := make([]string, len(parts))
	for i, p := range parts {
		strs[i] = fmt.Sprint(p)
	}
	return Key(strings.Join(strs, keySep))
}

// Parts returns the components the key was built from.
func (k Key) Parts() []string {
	return strings.Split(string(k), keySep)
}

// HasPrefix reports whether k starts with the given components.
func (k Key) HasPrefix(parts ...any) bool {
	own := k.Parts()
	if len(parts) > len(own) {
		return false
	}
	for i, p := range parts {
		if own[i] != fmt.Sprint(p) {
			return false
		}
	}
	return true
}

func (k Key) String() string {
	return strings.Join(k.Parts(), " ")
}

// Loader produces the value of a key.
type Loader func(ctx context.Context) (any, error)

// Snapshot is a read-only copy of an entry.
type Snapshot struct {
	Key       Key
	Status    Status
	Value     any
	Err       error     // last load error; may be set next to a stale value
	UpdatedAt time.Time // when Value was produced
	Fetching  bool      // a load is in flight
	Stale     bool      // Value is older than the staleness window or invalidated
}

// Observer receives cache events. Implementations must not call back into
// the cache.
type Observer interface {
	Hit(key Key)
	Miss(key Key)
	Loaded(key Key, d time.Duration, err error)
	Discarded(key Key)
}

type nopObserver struct{}

func (nopObserver) Hit(Key)                          {}
func (nopObserver) Miss(Key)                         {}
func (nopObserver) Loaded(Key, time.Duration, error) {}
func (nopObserver) Discarded(Key)                    {}

// Config holds cache configuration.
type Config struct {
	StaleTime time.Duration    // 0 = DefaultStaleTime
	Now       func() time.Time // nil = time.Now
	Observer  Observer         // nil = no events
}

type call struct {
	gen   uint64
	done  chan struct{}
	value any
	err   error
}

type entry struct {
	status      Status
	value       any
	err         error
	valueAt     time.Time
	attemptAt   time.Time
	valueGen    uint64
	latestGen   uint64
	invalidated bool
	inflight    *call
	subs        map[int]chan Snapshot
}

// Cache is a keyed cache of load results. The zero value is not usable;
// create one with New and share it.
type Cache struct {
	staleTime time.Duration
	now       func() time.Time
	obs       Observer

	mu      sync.Mutex
	entries map[Key]*entry
	gen     uint64
	nextSub int
}

// New creates a new cache.
func New(cfg Config) *Cache {
	if cfg.StaleTime <= 0 {
		cfg.StaleTime = DefaultStaleTime
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Observer == nil {
		cfg.Observer = nopObserver{}
	}
	return &Cache{
		staleTime: cfg.StaleTime,
		now:       cfg.Now,
		obs:       cfg.Observer,
		entries:   make(map[Key]*entry),
	}
}

// StaleTime returns the configured staleness window.
func (c *Cache) StaleTime() time.Duration {
	return c.staleTime
}

// Query returns the current state of key without blocking, starting a load
// when the entry is missing, stale or invalidated and none is in flight.
func (c *Cache) Query(ctx context.Context, key Key, loader Loader) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, _ := c.ensure(ctx, key, loader)
	return c.snapshot(key, e)
}

// Fetch is Query followed by a wait for the in-flight load, if any.
// Cancelling ctx stops the wait, not the load: other callers and the
// cache still receive its result.
func (c *Cache) Fetch(ctx context.Context, key Key, loader Loader) (Snapshot, error) {
	c.mu.Lock()
	e, cl := c.ensure(ctx, key, loader)
	if cl == nil {
		snap := c.snapshot(key, e)
		c.mu.Unlock()
		return snap, nil
	}
	c.mu.Unlock()

	select {
	case <-cl.done:
	case <-ctx.Done():
		return Snapshot{Key: key, Status: StatusLoading, Fetching: true}, ctx.Err()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var snap Snapshot
	if e, ok := c.entries[key]; ok {
		snap = c.snapshot(key, e)
	} else {
		snap = Snapshot{Key: key, Status: StatusError, Err: cl.err}
	}
	// Every caller that shared this load gets its result, even if a newer
	// load has since replaced the entry's value.
	switch {
	case cl.err == nil:
		snap.Status = StatusSuccess
		snap.Value = cl.value
		snap.Err = nil
	case snap.Status != StatusSuccess:
		snap.Status = StatusError
		snap.Err = cl.err
	}
	return snap, nil
}

// Peek returns the current state of key without starting a load.
func (c *Cache) Peek(key Key) (Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return Snapshot{Key: key}, false
	}
	return c.snapshot(key, e), true
}

// Invalidate marks key stale and detaches its in-flight load, so the next
// request starts a new one. The detached load still completes and its
// waiters still get its result.
func (c *Cache) Invalidate(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		c.invalidate(key, e)
	}
}

// InvalidateFunc invalidates every key matching match and returns how many
// entries were affected.
func (c *Cache) InvalidateFunc(match func(Key) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for key, e := range c.entries {
		if match(key) {
			c.invalidate(key, e)
			n++
		}
	}
	return n
}

// Clear drops every entry. In-flight loads complete but are not stored.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, e := range c.entries {
		for id, ch := range e.subs {
			close(ch)
			delete(e.subs, id)
		}
	}
	c.entries = make(map[Key]*entry)
}

// Len returns the number of entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Subscribe returns a channel receiving a snapshot of key after every
// transition, starting with the current state. Slow readers only see the
// latest snapshot. Call the returned func to unsubscribe.
func (c *Cache) Subscribe(key Key) (<-chan Snapshot, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.entry(key)
	if e.subs == nil {
		e.subs = make(map[int]chan Snapshot)
	}
	id := c.nextSub
	c.nextSub++
	ch := make(chan Snapshot, 1)
	e.subs[id] = ch
	publish(ch, c.snapshot(key, e))

	return ch, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if cur, ok := c.entries[key]; ok {
			if ch, ok := cur.subs[id]; ok {
				delete(cur.subs, id)
				close(ch)
			}
		}
	}
}

// entry returns the entry for key, creating an empty one.
// Must be called with lock held.
func (c *Cache) entry(key Key) *entry {
	e, ok := c.entries[key]
	if !ok {
		e = &entry{}
		c.entries[key] = e
	}
	return e
}

// ensure starts a load for key if needed and returns the call callers
// should wait for, or nil when the entry can be served as is.
// Must be called with lock held.
func (c *Cache) ensure(ctx context.Context, key Key, loader Loader) (*entry, *call) {
	e := c.entry(key)

	if e.inflight != nil {
		c.obs.Hit(key)
		return e, e.inflight
	}
	if e.status != StatusLoading && !e.invalidated && c.now().Sub(e.attemptAt) < c.staleTime {
		c.obs.Hit(key)
		return e, nil
	}

	c.obs.Miss(key)
	c.gen++
	cl := &call{gen: c.gen, done: make(chan struct{})}
	e.inflight = cl
	e.latestGen = cl.gen
	e.invalidated = false
	c.notify(key, e)

	go c.run(context.WithoutCancel(ctx), key, cl, loader)
	return e, cl
}

func (c *Cache) run(ctx context.Context, key Key, cl *call, loader Loader) {
	start := c.now()
	var value any
	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("query %s: loader panic: %v", key, r)
			}
		}()
		value, err = loader(ctx)
	}()
	c.complete(key, cl, value, err, c.now().Sub(start))
}

func (c *Cache) complete(key Key, cl *call, value any, err error, d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cl.value, cl.err = value, err
	close(cl.done)
	c.obs.Loaded(key, d, err)

	e, ok := c.entries[key]
	if !ok {
		return
	}
	if e.inflight == cl {
		e.inflight = nil
	}

	now := c.now()
	if err != nil {
		// Only the newest load may report a failure.
		if cl.gen != e.latestGen {
			c.obs.Discarded(key)
			c.notify(key, e)
			return
		}
		e.err = err
		e.attemptAt = now
		if e.valueGen == 0 {
			e.status = StatusError
		}
		c.notify(key, e)
		return
	}

	if cl.gen <= e.valueGen {
		c.obs.Discarded(key)
		c.notify(key, e)
		return
	}
	e.status = StatusSuccess
	e.value = value
	e.err = nil
	e.valueGen = cl.gen
	e.valueAt = now
	if cl.gen == e.latestGen {
		e.attemptAt = now
	}
	c.notify(key, e)
}

// Must be called with lock held.
func (c *Cache) invalidate(key Key, e *entry) {
	e.invalidated = true
	e.inflight = nil
	c.notify(key, e)
}

// Must be called with lock held.
func (c *Cache) snapshot(key Key, e *entry) Snapshot {
	return Snapshot{
		Key:       key,
		Status:    e.status,
		Value:     e.value,
		Err:       e.err,
		UpdatedAt: e.valueAt,
		Fetching:  e.inflight != nil,
		Stale:     e.status == StatusSuccess && (e.invalidated || c.now().Sub(e.valueAt) >= c.staleTime),
	}
}

// Must be called with lock held.
func (c *Cache) notify(key Key, e *entry) {
	if len(e.subs) == 0 {
		return
	}
	snap := c.snapshot(key, e)
	for _, ch := range e.subs {
		publish(ch, snap)
	}
}

// publish replaces whatever is buffered in ch with snap.
func publish(ch chan Snapshot, snap Snapshot) {
	select {
	case ch <- snap:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- snap:
	default:
	}
}

// Value extracts a typed value from a snapshot.
func Value[T any](snap Snapshot) (T, error) {
	var zero T
	switch snap.Status {
	case StatusSuccess:
		v, ok := snap.Value.(T)
		if !ok {
			return zero, fmt.Errorf("query %s: value is %T, want %T", snap.Key, snap.Value, zero)
		}
		return v, nil
	case StatusError:
		return zero, snap.Err
	}
	return zero, ErrLoading
}

// Get fetches key and returns its typed value.
func Get[T any](ctx context.Context, c *Cache, key Key, loader func(ctx context.Context) (T, error)) (T, error) {
	snap, err := c.Fetch(ctx, key, func(ctx context.Context) (any, error) {
		return loader(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return Value[T](snap)
}
