package store

import (
	"context"
	"sort"
	"sync"

	"github.com/vespa-cd/controller/pkg/application"
)

// MemoryStore keeps applications in memory. Since applications are
// values, nothing read from it can be changed behind its back.
type MemoryStore struct {
	locks *locks

	mu   sync.RWMutex
	apps map[application.ID]application.Application
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		locks: newLocks(),
		apps:  map[application.ID]application.Application{},
	}
}

func (s *MemoryStore) Lock(ctx context.Context, id application.ID) (Lock, error) {
	return s.locks.lock(ctx, id)
}

func (s *MemoryStore) Read(ctx context.Context, id application.ID) (application.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	app, ok := s.apps[id]
	if !ok {
		return application.Application{}, ErrNotFound(id)
	}
	return app, nil
}

func (s *MemoryStore) Write(ctx context.Context, app application.Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apps[app.ID()] = app
	return nil
}

func (s *MemoryStore) List(ctx context.Context) ([]application.ID, error) {
	s.mu.RLock()
	ids := make([]application.ID, 0, len(s.apps))
	for id := range s.apps {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids, nil
}
