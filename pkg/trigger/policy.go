package trigger

import (
	"context"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/pkg/errors"

	"github.com/vespa-cd/controller/pkg/application"
	"github.com/vespa-cd/controller/pkg/deploymentspec"
	"github.com/vespa-cd/controller/pkg/job"
	"github.com/vespa-cd/controller/pkg/order"
	"github.com/vespa-cd/controller/pkg/version"
)

// triggering is a decision to run a job, and why.
type triggering struct {
	jobType job.Type
	reason  string
	atFront bool
	source  string
}

// Reasons a job is not triggered after all.
const (
	skipNoProject = "no_project"
	skipNotInSpec = "not_in_spec"
	skipBlocked   = "blocked"
	skipUpgraded  = "already_upgraded"
	skipRunning   = "running"
	skipUntested  = "untested"
	skipEnqueue   = "enqueue_failed"
)

func (t *DeploymentTrigger) triggerAll(ctx context.Context, app application.Application, next []triggering, now time.Time, logger log.Logger) (application.Application, int) {
	count := 0
	for _, tr := range next {
		var ok bool
		if app, ok = t.trigger(ctx, app, tr, now, logger); ok {
			count++
		}
	}
	return app, count
}

// trigger enqueues the job if it is allowed to run, and records that
// it was triggered. Jobs not allowed to run are logged and skipped;
// the sweep will try them again.
func (t *DeploymentTrigger) trigger(ctx context.Context, app application.Application, tr triggering, now time.Time, logger log.Logger) (application.Application, bool) {
	logger = log.With(logger, "job", tr.jobType)
	if skip := t.disallowed(app, tr.jobType, now); skip != "" {
		logger.Log("info", "not triggering", "reason", tr.reason, "skip", skip)
		skipped.With(labelReason, skip).Add(1)
		return app, false
	}
	if err := untested(app, tr.jobType); err != nil {
		logger.Log("warning", "not triggering untested change", "err", err)
		skipped.With(labelReason, skipUntested).Add(1)
		return app, false
	}
	if err := t.builds.Enqueue(ctx, app.ID(), tr.jobType, tr.atFront); err != nil {
		logger.Log("err", errors.Wrap(err, "enqueuing job"))
		skipped.With(labelReason, skipEnqueue).Add(1)
		return app, false
	}
	logger.Log("event", "triggered", "reason", tr.reason, "change", app.Deploying())
	triggers.With(labelJobType, tr.jobType.String(), labelTrigger, tr.source).Add(1)
	return app.WithJobTriggering(tr.jobType, t.runFor(app, tr.jobType, tr.reason, now)), true
}

// disallowed returns why the job may not be triggered now, or the
// empty string if it may.
func (t *DeploymentTrigger) disallowed(app application.Application, jobType job.Type, now time.Time) string {
	if !app.HasProject() {
		return skipNoProject
	}
	if !includes(app.Spec(), jobType) {
		return skipNotInSpec
	}
	change := app.Deploying()
	if change != nil && change.BlockedBy(app.Spec(), now) {
		return skipBlocked
	}
	if c, ok := change.(application.VersionChange); ok {
		if z, ok := jobType.Zone(); ok {
			if d, ok := app.Deployment(z); ok && d.Version.AtLeast(c.Version) {
				return skipUpgraded
			}
		}
	}
	if status, ok := app.JobStatus(jobType); ok && status.IsRunning(now, t.jobTimeout) {
		return skipRunning
	}
	return ""
}

func includes(spec deploymentspec.Spec, jobType job.Type) bool {
	if jobType == job.Component {
		return true
	}
	if z, ok := jobType.Zone(); ok {
		return spec.Includes(z.Environment, z.Region)
	}
	return spec.Includes(jobType.Environment(), "")
}

// untested returns an error if the job deploys to production a change
// that has not passed the staging test.
func untested(app application.Application, jobType job.Type) error {
	change := app.Deploying()
	if !jobType.IsProduction() || change == nil {
		return nil
	}
	staging, ok := app.JobStatus(job.StagingTest)
	if ok && staging.LastSuccess != nil && order.SucceededWith(staging.LastSuccess, change, app) {
		return nil
	}
	return errors.Errorf("%s has not passed %s", change, job.StagingTest)
}

// changesAvailable is true if next has not yet run with what previous
// has, so that running next now makes progress. It never lets a
// production zone be redeployed to an older platform version.
func (t *DeploymentTrigger) changesAvailable(app application.Application, previous job.Status, next job.Type) bool {
	nextStatus, ok := app.JobStatus(next)
	if !ok {
		return true
	}
	switch c := app.Deploying().(type) {
	case application.VersionChange:
		if next.IsTest() {
			if previous.LastSuccess == nil || !previous.LastSuccess.Version.Equal(c.Version) {
				return false
			}
			return nextStatus.LastSuccess == nil || !nextStatus.LastSuccess.Version.Equal(c.Version)
		}
		staging, ok := app.JobStatus(job.StagingTest)
		if !ok || staging.LastSuccess == nil || !staging.LastSuccess.Version.Equal(c.Version) {
			return false
		}
		if previous.Type.IsProduction() && !deployedAtLeast(app, previous.Type, c.Version) {
			return false
		}
		return !deployedAtLeast(app, next, c.Version)
	case application.ApplicationChange:
		if previous.LastSuccess == nil {
			return false
		}
		if nextStatus.LastSuccess == nil {
			return true
		}
		if c.Revision.IsKnown() || (previous.LastSuccess.Revision.IsKnown() && nextStatus.LastSuccess.Revision.IsKnown()) {
			return previous.LastSuccess.Revision.IsKnown() && previous.LastSuccess.Revision != nextStatus.LastSuccess.Revision
		}
		// Builds without revisions are told apart by when they ran.
		return previous.LastSuccess.At.After(nextStatus.LastSuccess.At) && !previous.LastSuccess.At.Before(order.BuiltAt(app))
	}
	return false
}

func deployedAtLeast(app application.Application, jobType job.Type, v version.Version) bool {
	z, ok := jobType.Zone()
	if !ok {
		return false
	}
	d, ok := app.Deployment(z)
	return ok && d.Version.AtLeast(v)
}

// deploymentComplete is true when every production zone runs the
// change. Without production zones, the change is complete when the
// last test has passed with it.
func (t *DeploymentTrigger) deploymentComplete(app application.Application) bool {
	change := app.Deploying()
	if change == nil {
		return false
	}
	spec := app.Spec()
	if !spec.HasProduction() {
		jobs := order.JobsFrom(spec)
		return order.Reached(jobs[len(jobs)-1], change, app)
	}
	for _, z := range spec.ProductionZones() {
		if !order.Reached(job.Production(z.Region), change, app) {
			return false
		}
	}
	return true
}

// acceptNewRevisionNow is true unless a platform upgrade is being
// deployed, and is both healthy and free to proceed; a new revision
// then waits for the upgrade to complete.
func (t *DeploymentTrigger) acceptNewRevisionNow(app application.Application, now time.Time) bool {
	switch c := app.Deploying().(type) {
	case nil:
		return true
	case application.ApplicationChange:
		return true
	case application.VersionChange:
		return app.HasFailures() || c.BlockedBy(app.Spec(), now)
	}
	return false
}

// targets is true if the job was last triggered, or failing that last
// completed, for the given change.
func (t *DeploymentTrigger) targets(app application.Application, status job.Status, change application.Change) bool {
	run := status.LastTriggered
	if run == nil {
		run = status.LastCompleted
	}
	if run == nil {
		return false
	}
	switch c := change.(type) {
	case application.VersionChange:
		return run.Version.Equal(c.Version)
	case application.ApplicationChange:
		if c.Revision.IsKnown() {
			return run.Revision == c.Revision
		}
		return !run.At.Before(order.BuiltAt(app))
	}
	return false
}

// runFor is what the job is asked to deploy: the target of the change,
// with whatever the change does not alter kept as it is.
func (t *DeploymentTrigger) runFor(app application.Application, jobType job.Type, reason string, now time.Time) job.Run {
	run := job.Run{
		Version:  deployedVersion(app, jobType),
		Revision: deployedRevision(app, jobType),
		At:       now,
		Reason:   reason,
	}
	switch c := app.Deploying().(type) {
	case application.VersionChange:
		run.Version = c.Version
	case application.ApplicationChange:
		run.Revision = c.Revision
	}
	return run
}

// deployedVersion is the version in the job's zone, or else the newest
// version deployed anywhere.
func deployedVersion(app application.Application, jobType job.Type) version.Version {
	if z, ok := jobType.Zone(); ok {
		if d, ok := app.Deployment(z); ok {
			return d.Version
		}
	}
	newest := version.Empty
	for _, d := range app.Deployments() {
		if newest.Less(d.Version) {
			newest = d.Version
		}
	}
	return newest
}

// deployedRevision is the revision in the job's zone, or else the
// revision in the first production zone to have one, or else the last
// one built.
func deployedRevision(app application.Application, jobType job.Type) version.Revision {
	zones := app.Spec().ProductionZones()
	if z, ok := jobType.Zone(); ok {
		zones = append(zones[:0:0], z)
		zones = append(zones, app.Spec().ProductionZones()...)
	}
	for _, z := range zones {
		if d, ok := app.Deployment(z); ok && d.Revision.IsKnown() {
			return d.Revision
		}
	}
	return componentRevision(app)
}

func componentRevision(app application.Application) version.Revision {
	if component, ok := app.JobStatus(job.Component); ok && component.LastSuccess != nil {
		return component.LastSuccess.Revision
	}
	return version.UnknownRevision
}
