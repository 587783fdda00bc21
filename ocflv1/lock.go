package ocflv1

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrLockTimeout is returned by Store.Commit (and other mutating operations)
// when acquiring the per-object lock takes longer than the store's
// configured lock timeout.
var ErrLockTimeout = errors.New("timed out waiting for object lock")

// objectLock serializes storage-engine operations against the same object
// id: two goroutines committing, rolling back, or purging the same id never
// interleave their writes, but distinct ids never contend with each other.
// The zero value has no timeout and blocks until ctx is done.
type objectLock struct {
	timeout time.Duration

	mu      sync.Mutex
	entries map[string]*lockEntry
}

type lockEntry struct {
	mu      sync.Mutex
	waiters int // live holders/waiters for this id; entry is dropped at 0
}

func newObjectLock(timeout time.Duration) *objectLock {
	return &objectLock{timeout: timeout, entries: map[string]*lockEntry{}}
}

// Lock blocks until the lock for id is free, ctx is done, or the lock's
// timeout elapses. On success it returns a function that releases the lock;
// the caller must call it exactly once.
func (l *objectLock) Lock(ctx context.Context, id string) (func(), error) {
	if l == nil {
		return func() {}, nil
	}
	entry := l.join(id)
	waitCtx := ctx
	if l.timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}
	acquired := make(chan struct{})
	go func() {
		entry.mu.Lock()
		close(acquired)
	}()
	select {
	case <-acquired:
		return func() {
			entry.mu.Unlock()
			l.leave(id, entry)
		}, nil
	case <-waitCtx.Done():
		// the goroutine above may still acquire the mutex later; when it
		// does, release it immediately rather than holding it forever.
		go func() {
			<-acquired
			entry.mu.Unlock()
			l.leave(id, entry)
		}()
		if errors.Is(waitCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: object %q", ErrLockTimeout, id)
		}
		return nil, waitCtx.Err()
	}
}

func (l *objectLock) join(id string) *lockEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.entries[id]
	if !ok {
		entry = &lockEntry{}
		l.entries[id] = entry
	}
	entry.waiters++
	return entry
}

func (l *objectLock) leave(id string, entry *lockEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry.waiters--
	if entry.waiters <= 0 {
		delete(l.entries, id)
	}
}

// objectDetails is a cached, read-only snapshot of an object's inventory as
// of the last time the store read or wrote it.
type objectDetails struct {
	inv      *Inventory
	path     string
	cachedAt time.Time
}

// detailsCache caches an object's inventory (and the path it was read from)
// keyed by object id, so a read shortly after a previous read or a commit
// doesn't always re-open and re-parse inventory.json. Entries are evicted
// after ttl elapses and whenever the store commits, rolls back, or purges
// the corresponding object. A nil *detailsCache disables caching entirely.
type detailsCache struct {
	ttl time.Duration

	mu      sync.RWMutex
	entries map[string]objectDetails
}

func newDetailsCache(ttl time.Duration) *detailsCache {
	return &detailsCache{ttl: ttl, entries: map[string]objectDetails{}}
}

func (c *detailsCache) get(id string) (inv *Inventory, path string, ok bool) {
	if c == nil {
		return nil, "", false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, found := c.entries[id]
	if !found {
		return nil, "", false
	}
	if c.ttl > 0 && time.Since(e.cachedAt) > c.ttl {
		return nil, "", false
	}
	return e.inv, e.path, true
}

func (c *detailsCache) set(id string, inv *Inventory, path string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[id] = objectDetails{inv: inv, path: path, cachedAt: time.Now()}
}

func (c *detailsCache) invalidate(id string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
}
