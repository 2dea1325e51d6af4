package buildsystem

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vespa-cd/controller/pkg/application"
	"github.com/vespa-cd/controller/pkg/job"
)

type ID string

// Job is a queued request to run a job for an application.
type Job struct {
	ID          ID             `json:"id"`
	Application application.ID `json:"application"`
	Type        job.Type       `json:"jobType"`
	QueuedAt    time.Time      `json:"queuedAt"`
}

type key struct {
	app     application.ID
	jobType job.Type
}

// Queue is an unbounded queue of jobs, kept in memory. At most one
// job per application and job type is waiting at any time; enqueuing
// it again is accepted and ignored, so callers may trigger a job
// more than once without it running more than once. Jobs are handed
// out by Claim, to whatever runs them.
type Queue struct {
	now func() time.Time

	waitingLock sync.Mutex
	waiting     []*Job
	queued      map[key]*Job
}

func NewQueue() *Queue {
	return &Queue{
		now:    time.Now,
		queued: map[key]*Job{},
	}
}

// This is not guaranteed to be up-to-date; it is possible to claim or
// enqueue an item, and see the same length as before from another
// goroutine.
func (q *Queue) Len() int {
	q.waitingLock.Lock()
	defer q.waitingLock.Unlock()
	return len(q.waiting)
}

func (q *Queue) Enqueue(ctx context.Context, id application.ID, jobType job.Type, atFront bool) error {
	q.waitingLock.Lock()
	defer q.waitingLock.Unlock()

	k := key{app: id, jobType: jobType}
	if existing, ok := q.queued[k]; ok {
		if atFront {
			q.removeLocked(existing)
			q.waiting = append([]*Job{existing}, q.waiting...)
		}
		return nil
	}

	j := &Job{
		ID:          ID(uuid.New().String()),
		Application: id,
		Type:        jobType,
		QueuedAt:    q.now(),
	}
	q.queued[k] = j
	if atFront {
		q.waiting = append([]*Job{j}, q.waiting...)
	} else {
		q.waiting = append(q.waiting, j)
	}
	queueLength.Set(float64(len(q.waiting)))
	return nil
}

func (q *Queue) RemoveAllJobs(ctx context.Context, id application.ID) error {
	q.waitingLock.Lock()
	defer q.waitingLock.Unlock()
	kept := q.waiting[:0]
	for _, j := range q.waiting {
		if j.Application == id {
			delete(q.queued, key{app: j.Application, jobType: j.Type})
			continue
		}
		kept = append(kept, j)
	}
	q.waiting = kept
	queueLength.Set(float64(len(q.waiting)))
	return nil
}

// Claim removes and returns the job at the head of the queue. It
// returns false if the queue is empty.
func (q *Queue) Claim() (Job, bool) {
	q.waitingLock.Lock()
	defer q.waitingLock.Unlock()
	if len(q.waiting) == 0 {
		return Job{}, false
	}
	j := q.waiting[0]
	q.waiting = q.waiting[1:]
	delete(q.queued, key{app: j.Application, jobType: j.Type})
	queueLength.Set(float64(len(q.waiting)))
	queueDuration.Observe(q.now().Sub(j.QueuedAt).Seconds())
	return *j, true
}

// ForEach calls fn with each waiting job, in order, until it returns
// false. It sees a snapshot of the queue.
func (q *Queue) ForEach(fn func(int, Job) bool) {
	q.waitingLock.Lock()
	jobs := make([]Job, len(q.waiting))
	for i, j := range q.waiting {
		jobs[i] = *j
	}
	q.waitingLock.Unlock()
	for i, j := range jobs {
		if !fn(i, j) {
			return
		}
	}
}

func (q *Queue) removeLocked(j *Job) {
	for i := range q.waiting {
		if q.waiting[i] == j {
			q.waiting = append(q.waiting[:i], q.waiting[i+1:]...)
			return
		}
	}
}
