// Package buildsystem is where triggered jobs go to be run.
package buildsystem

import (
	"context"

	"github.com/vespa-cd/controller/pkg/application"
	"github.com/vespa-cd/controller/pkg/job"
)

// BuildSystem accepts jobs to run. Enqueue is called with an
// application's lock held, so must not block for long.
type BuildSystem interface {
	// Enqueue asks for the job to be run. Enqueuing a job that is
	// already queued has no effect, other than moving it to the
	// front if atFront is set.
	Enqueue(ctx context.Context, id application.ID, jobType job.Type, atFront bool) error
	// RemoveAllJobs drops every job queued for the application. Jobs
	// already running are not affected.
	RemoveAllJobs(ctx context.Context, id application.ID) error
}
