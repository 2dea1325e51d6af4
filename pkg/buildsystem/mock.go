package buildsystem

import (
	"context"
	"sync"

	"github.com/vespa-cd/controller/pkg/application"
	"github.com/vespa-cd/controller/pkg/job"
)

// Enqueued is one call to Enqueue, as seen by a Recorder.
type Enqueued struct {
	Application application.ID
	Type        job.Type
	AtFront     bool
}

// Recorder is a BuildSystem that remembers what it was asked to do,
// for use in tests. If Err is set, Enqueue fails with it.
type Recorder struct {
	Err error

	mu       sync.Mutex
	enqueued []Enqueued
	removed  []application.ID
}

func (r *Recorder) Enqueue(ctx context.Context, id application.ID, jobType job.Type, atFront bool) error {
	if r.Err != nil {
		return r.Err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.enqueued = append(r.enqueued, Enqueued{Application: id, Type: jobType, AtFront: atFront})
	return nil
}

func (r *Recorder) RemoveAllJobs(ctx context.Context, id application.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removed = append(r.removed, id)
	return nil
}

// Take returns what was enqueued since the last call, and forgets it.
func (r *Recorder) Take() []Enqueued {
	r.mu.Lock()
	defer r.mu.Unlock()
	taken := r.enqueued
	r.enqueued = nil
	return taken
}

// Types is Take, keeping only the job types.
func (r *Recorder) Types() []job.Type {
	var types []job.Type
	for _, e := range r.Take() {
		types = append(types, e.Type)
	}
	return types
}

func (r *Recorder) Removed() []application.ID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]application.ID(nil), r.removed...)
}
