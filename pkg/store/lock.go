package store

import (
	"context"
	"sync"

	"github.com/vespa-cd/controller/pkg/application"
)

// locks hands out one lock per application. Entries are counted, and
// dropped when nobody holds or waits for them.
type locks struct {
	mu      sync.Mutex
	entries map[application.ID]*lockEntry
}

type lockEntry struct {
	sem  chan struct{}
	refs int
}

type heldLock struct {
	locks *locks
	id    application.ID
	entry *lockEntry
	once  sync.Once
}

func newLocks() *locks {
	return &locks{entries: map[application.ID]*lockEntry{}}
}

func (l *locks) lock(ctx context.Context, id application.ID) (Lock, error) {
	l.mu.Lock()
	entry, ok := l.entries[id]
	if !ok {
		entry = &lockEntry{sem: make(chan struct{}, 1)}
		l.entries[id] = entry
	}
	entry.refs++
	l.mu.Unlock()

	select {
	case entry.sem <- struct{}{}:
		return &heldLock{locks: l, id: id, entry: entry}, nil
	case <-ctx.Done():
		l.release(id, entry)
		return nil, ctx.Err()
	}
}

func (l *locks) release(id application.ID, entry *lockEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry.refs--
	if entry.refs == 0 {
		delete(l.entries, id)
	}
}

// size is the number of applications locked or waited for.
func (l *locks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func (h *heldLock) Unlock() {
	h.once.Do(func() {
		<-h.entry.sem
		h.locks.release(h.id, h.entry)
	})
}
