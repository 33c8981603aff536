// Package dedupe tracks client submission keys so a repeated submit of the
// same form is acknowledged instead of saved twice.
package dedupe

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// Deduper records submission keys per user.
type Deduper interface {
	// SeenAndRecord atomically checks if key was seen for userID and records
	// it if not. Returns true if the key was already seen.
	SeenAndRecord(ctx context.Context, userID, key string) bool

	// Unrecord forgets a key so the submission can be retried, e.g. after
	// the save itself failed.
	Unrecord(ctx context.Context, userID, key string)

	Size() int64
}

type entry struct {
	scoped string
	at     time.Time
}

// inMemoryDeduper keeps keys in insertion order; the oldest key is evicted
// when the bound is reached and keys older than ttl count as unseen.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]*list.Element
	order   *list.List // front is oldest
	maxSize int        // <= 0 means unbounded
	ttl     time.Duration
	now     func() time.Time
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: 50000,
		ttl:     24 * time.Hour,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]*list.Element)
	d.order = list.New()
	return d
}

func scope(userID, key string) string {
	return userID + "\x00" + key
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, userID, key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	d.expire(now)

	k := scope(userID, key)
	if _, ok := d.seen[k]; ok {
		return true
	}
	if d.maxSize > 0 && d.order.Len() >= d.maxSize {
		d.remove(d.order.Front())
	}
	d.seen[k] = d.order.PushBack(&entry{scoped: k, at: now})
	return false
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, userID, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if el, ok := d.seen[scope(userID, key)]; ok {
		d.remove(el)
	}
}

func (d *inMemoryDeduper) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(d.order.Len())
}

// expire drops keys older than ttl. Must be called with d.mu held.
func (d *inMemoryDeduper) expire(now time.Time) {
	if d.ttl <= 0 {
		return
	}
	for el := d.order.Front(); el != nil; el = d.order.Front() {
		if now.Sub(el.Value.(*entry).at) < d.ttl {
			return
		}
		d.remove(el)
	}
}

func (d *inMemoryDeduper) remove(el *list.Element) {
	if el == nil {
		return
	}
	delete(d.seen, el.Value.(*entry).scoped)
	d.order.Remove(el)
}
