package buildsystem

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vespa-cd/controller/pkg/application"
	"github.com/vespa-cd/controller/pkg/job"
)

var (
	app1 = application.NewID("tenant1", "app1", "default")
	app2 = application.NewID("tenant1", "app2", "default")
)

func claimAll(q *Queue) []job.Type {
	var types []job.Type
	for {
		j, ok := q.Claim()
		if !ok {
			return types
		}
		types = append(types, j.Type)
	}
}

func TestQueueOrder(t *testing.T) {
	ctx := context.Background()
	q := NewQueue()
	require.NoError(t, q.Enqueue(ctx, app1, job.SystemTest, false))
	require.NoError(t, q.Enqueue(ctx, app1, job.StagingTest, false))
	require.NoError(t, q.Enqueue(ctx, app2, job.Production("us-east-3"), true))
	assert.Equal(t, 3, q.Len())

	assert.Equal(t, []job.Type{job.Production("us-east-3"), job.SystemTest, job.StagingTest}, claimAll(q))
	assert.Equal(t, 0, q.Len())
	_, ok := q.Claim()
	assert.False(t, ok)
}

func TestQueueIgnoresDuplicates(t *testing.T) {
	ctx := context.Background()
	q := NewQueue()
	require.NoError(t, q.Enqueue(ctx, app1, job.SystemTest, false))
	require.NoError(t, q.Enqueue(ctx, app2, job.SystemTest, false))
	require.NoError(t, q.Enqueue(ctx, app1, job.SystemTest, false))
	assert.Equal(t, 2, q.Len())

	var first Job
	q.ForEach(func(i int, j Job) bool {
		first = j
		return false
	})
	assert.Equal(t, app1, first.Application)
	assert.NotEmpty(t, first.ID)

	// Enqueuing again at the front moves the job, keeping its ID.
	require.NoError(t, q.Enqueue(ctx, app2, job.SystemTest, true))
	j, ok := q.Claim()
	require.True(t, ok)
	assert.Equal(t, app2, j.Application)
	assert.Equal(t, 1, q.Len())

	// Once claimed, the job may be queued again.
	require.NoError(t, q.Enqueue(ctx, app2, job.SystemTest, false))
	assert.Equal(t, 2, q.Len())
}

func TestQueueRemoveAllJobs(t *testing.T) {
	ctx := context.Background()
	q := NewQueue()
	require.NoError(t, q.Enqueue(ctx, app1, job.SystemTest, false))
	require.NoError(t, q.Enqueue(ctx, app2, job.SystemTest, false))
	require.NoError(t, q.Enqueue(ctx, app1, job.StagingTest, false))

	require.NoError(t, q.RemoveAllJobs(ctx, app1))
	assert.Equal(t, 1, q.Len())
	j, _ := q.Claim()
	assert.Equal(t, app2, j.Application)

	require.NoError(t, q.Enqueue(ctx, app1, job.SystemTest, false))
	assert.Equal(t, 1, q.Len())
}

func TestInstrumentedPassesThrough(t *testing.T) {
	ctx := context.Background()
	r := &Recorder{}
	b := Instrument(r)
	require.NoError(t, b.Enqueue(ctx, app1, job.SystemTest, true))
	require.NoError(t, b.RemoveAllJobs(ctx, app1))
	assert.Equal(t, []Enqueued{{Application: app1, Type: job.SystemTest, AtFront: true}}, r.Take())
	assert.Equal(t, []application.ID{app1}, r.Removed())
}
