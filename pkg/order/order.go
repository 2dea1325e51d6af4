// Package order derives the sequence of jobs that rolls a change out
// to an application, from its deployment spec.
package order

import (
	"time"

	"github.com/vespa-cd/controller/pkg/application"
	"github.com/vespa-cd/controller/pkg/deploymentspec"
	"github.com/vespa-cd/controller/pkg/job"
)

// Step is a group of jobs that may run in parallel, and the time
// that must pass after all of them succeed before the next step may
// start.
type Step struct {
	Jobs  []job.Type
	Delay time.Duration
}

// StepsFrom groups the jobs of the spec into the steps they run in.
// A delay declared before the first production step is waited after
// the staging test.
func StepsFrom(spec deploymentspec.Spec) []Step {
	steps := []Step{{Jobs: []job.Type{job.SystemTest}}}
	if spec.HasProduction() || spec.DeclaresStaging {
		steps = append(steps, Step{Jobs: []job.Type{job.StagingTest}})
	}
	for _, s := range spec.Steps {
		if s.IsDelay() {
			steps[len(steps)-1].Delay += s.Delay
			continue
		}
		var jobs []job.Type
		for _, z := range s.Zones {
			jobs = append(jobs, job.Production(z.Region))
		}
		steps = append(steps, Step{Jobs: jobs})
	}
	return steps
}

// JobsFrom lists the jobs of the spec in the order they run: the
// system test, the staging test if there is anything to deploy to
// production, then the production jobs as declared.
func JobsFrom(spec deploymentspec.Spec) []job.Type {
	var jobs []job.Type
	for _, s := range StepsFrom(spec) {
		jobs = append(jobs, s.Jobs...)
	}
	return jobs
}

// DeploymentOrder decides which jobs become eligible as others
// complete. Now is consulted only for delay steps.
type DeploymentOrder struct {
	Now func() time.Time
}

func (o DeploymentOrder) now() time.Time {
	if o.Now == nil {
		return time.Now()
	}
	return o.Now()
}

// NextAfter returns the jobs to run once jobType has succeeded: the
// jobs of the following step, provided every job of jobType's step
// has succeeded with the change being deployed, and any delay after
// the step has passed. It returns nothing when no change is being
// deployed, or when jobType is the last step.
func (o DeploymentOrder) NextAfter(jobType job.Type, app application.Application) []job.Type {
	change := app.Deploying()
	if change == nil {
		return nil
	}
	if jobType == job.Component {
		return []job.Type{job.SystemTest}
	}

	steps := StepsFrom(app.Spec())
	for i, s := range steps {
		if !contains(s.Jobs, jobType) {
			continue
		}
		if i == len(steps)-1 {
			return nil
		}
		if !completedSuccessfully(s.Jobs, change, app) {
			return nil
		}
		if s.Delay > 0 && o.now().Before(lastSuccess(s.Jobs, app).Add(s.Delay)) {
			return nil
		}
		return append([]job.Type(nil), steps[i+1].Jobs...)
	}
	return nil
}

// CurrentPhase is the first job, in rollout order, that has not yet
// reached the change being deployed. It is false when nothing is
// being deployed, or every job has reached it.
func CurrentPhase(app application.Application) (job.Type, bool) {
	change := app.Deploying()
	if change == nil {
		return "", false
	}
	for _, t := range JobsFrom(app.Spec()) {
		if !Reached(t, change, app) {
			return t, true
		}
	}
	return "", false
}

func completedSuccessfully(jobs []job.Type, change application.Change, app application.Application) bool {
	for _, t := range jobs {
		if status, ok := app.JobStatus(t); ok && status.IsFailing() {
			return false
		}
		if !Reached(t, change, app) {
			return false
		}
	}
	return true
}

// Reached is true if the given job has completed with the change: a
// test job has succeeded with its target, a production zone runs the
// target (or, for a platform upgrade, something newer).
func Reached(t job.Type, change application.Change, app application.Application) bool {
	if z, ok := t.Zone(); ok {
		d, deployed := app.Deployment(z)
		switch c := change.(type) {
		case application.VersionChange:
			return deployed && d.Version.AtLeast(c.Version)
		case application.ApplicationChange:
			if c.Revision.IsKnown() {
				return deployed && d.Revision == c.Revision
			}
			status, ok := app.JobStatus(t)
			return ok && status.IsSuccess() && SucceededWith(status.LastSuccess, change, app)
		}
		return false
	}

	status, ok := app.JobStatus(t)
	if !ok || status.LastSuccess == nil {
		return false
	}
	return SucceededWith(status.LastSuccess, change, app)
}

// SucceededWith is true if the run was for the target of the change.
// Without a revision to compare, a run is for an application change
// if it came no earlier than the build that started it.
func SucceededWith(run *job.Run, change application.Change, app application.Application) bool {
	switch c := change.(type) {
	case application.VersionChange:
		return run.Version.Equal(c.Version)
	case application.ApplicationChange:
		if c.Revision.IsKnown() {
			return run.Revision == c.Revision
		}
		return !run.At.Before(BuiltAt(app))
	}
	return false
}

// BuiltAt is when the component job last succeeded, or the zero time
// if it never has.
func BuiltAt(app application.Application) time.Time {
	if status, ok := app.JobStatus(job.Component); ok && status.LastSuccess != nil {
		return status.LastSuccess.At
	}
	return time.Time{}
}

func lastSuccess(jobs []job.Type, app application.Application) time.Time {
	var last time.Time
	for _, t := range jobs {
		if status, ok := app.JobStatus(t); ok && status.LastSuccess != nil && status.LastSuccess.At.After(last) {
			last = status.LastSuccess.At
		}
		if z, ok := t.Zone(); ok {
			if d, ok := app.Deployment(z); ok && d.At.After(last) {
				last = d.At
			}
		}
	}
	return last
}

func contains(jobs []job.Type, t job.Type) bool {
	for _, j := range jobs {
		if j == t {
			return true
		}
	}
	return false
}
