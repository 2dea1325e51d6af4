// Package trigger decides which jobs to run for an application, as
// jobs complete and as time passes, and asks the build system to run
// them.
package trigger

import (
	"context"
	"sort"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"github.com/vespa-cd/controller/pkg/application"
	"github.com/vespa-cd/controller/pkg/buildsystem"
	"github.com/vespa-cd/controller/pkg/deploymentspec"
	ctlerr "github.com/vespa-cd/controller/pkg/errors"
	"github.com/vespa-cd/controller/pkg/job"
	"github.com/vespa-cd/controller/pkg/order"
	"github.com/vespa-cd/controller/pkg/store"
)

const (
	// MainSystem is the system real tenants deploy in, where jobs
	// are given longer to finish.
	MainSystem = "main"

	mainJobTimeout    = 12 * time.Hour
	defaultJobTimeout = time.Hour

	// How long after an out of capacity failure first happens the job
	// is retried whenever it fails again.
	capacityRetryWindow = 15 * time.Minute
	// A failure is retried once, if the report comes within this long
	// of it first failing.
	failureRetryWindow = 10 * time.Second

	reasonCapacityRetry  = "retrying on out of capacity"
	reasonImmediateRetry = "immediate retry on failure"
)

type Config struct {
	Store       store.ApplicationStore
	BuildSystem buildsystem.BuildSystem
	Logger      log.Logger

	// System decides the job timeout, unless JobTimeout is set.
	System     string
	JobTimeout time.Duration

	// CreateOnComponent makes a successful component job for an
	// unknown application create it, with an empty deployment spec.
	CreateOnComponent bool

	// Include, if set, limits the sweep to the applications for
	// which it is true; Limiter, if set, paces it.
	Include func(application.ID) bool
	Limiter *rate.Limiter

	Now func() time.Time
}

// DeploymentTrigger moves each application's change through its
// deployment jobs. Every operation locks the application, reads it,
// computes what to trigger, enqueues that, and writes the
// application back before unlocking.
type DeploymentTrigger struct {
	store             store.ApplicationStore
	builds            buildsystem.BuildSystem
	logger            log.Logger
	order             order.DeploymentOrder
	now               func() time.Time
	jobTimeout        time.Duration
	createOnComponent bool
	include           func(application.ID) bool
	limiter           *rate.Limiter
}

func New(cfg Config) *DeploymentTrigger {
	t := &DeploymentTrigger{
		store:             cfg.Store,
		builds:            cfg.BuildSystem,
		logger:            cfg.Logger,
		now:               cfg.Now,
		jobTimeout:        cfg.JobTimeout,
		createOnComponent: cfg.CreateOnComponent,
		include:           cfg.Include,
		limiter:           cfg.Limiter,
	}
	if t.logger == nil {
		t.logger = log.NewNopLogger()
	}
	if t.now == nil {
		t.now = time.Now
	}
	if t.jobTimeout <= 0 {
		t.jobTimeout = JobTimeoutFor(cfg.System)
	}
	t.order = order.DeploymentOrder{Now: t.now}
	return t
}

// JobTimeoutFor gives the time after which a job that has not
// reported back is considered hanging.
func JobTimeoutFor(system string) time.Duration {
	if system == MainSystem {
		return mainJobTimeout
	}
	return defaultJobTimeout
}

func (t *DeploymentTrigger) JobTimeout() time.Duration {
	return t.jobTimeout
}

// TriggerFromCompletion records the outcome of a job, and triggers
// what should follow it: the next jobs if it succeeded, or the same
// job again if the failure should be retried.
func (t *DeploymentTrigger) TriggerFromCompletion(ctx context.Context, report application.JobReport) error {
	id := report.Application
	lock, err := t.store.Lock(ctx, id)
	if err != nil {
		return errors.Wrapf(err, "locking application %s", id)
	}
	defer lock.Unlock()

	logger := log.With(t.logger, "application", id)
	app, err := t.store.Read(ctx, id)
	if ctlerr.IsMissing(err) && t.createOnComponent && report.JobType == job.Component && report.Success {
		logger.Log("info", "creating application on first successful build")
		app, err = application.New(id, deploymentspec.Empty, report.ProjectID), nil
	}
	if err != nil {
		return err
	}

	now := t.now()
	app = app.WithJobCompletion(report, now)
	logger.Log("event", "completed", "job", report.JobType, "success", report.Success, "error", report.Error)
	completions.With(labelJobType, report.JobType.String(), labelSuccess, boolLabel(report.Success)).Add(1)

	switch {
	case report.JobType == job.Component && report.Success:
		if !t.acceptNewRevisionNow(app, now) {
			logger.Log("info", "deferring new revision", "deploying", app.Deploying())
			return t.store.Write(ctx, app.WithOutstandingChange(true))
		}
		app = app.WithDeploying(application.ApplicationChange{Revision: report.Revision}).WithOutstandingChange(false)
		logger.Log("event", "change started", "change", app.Deploying())
	case report.Success && t.deploymentComplete(app):
		logger.Log("event", "deployment complete", "change", app.Deploying())
		app = t.startOutstandingChange(app.WithDeploying(nil), logger)
	}

	app, _ = t.triggerAfter(ctx, app, report, now, logger)
	return t.store.Write(ctx, app)
}

func (t *DeploymentTrigger) triggerAfter(ctx context.Context, app application.Application, report application.JobReport, now time.Time, logger log.Logger) (application.Application, int) {
	status, _ := app.JobStatus(report.JobType)
	var next []triggering
	switch {
	case report.Success:
		for _, jobType := range t.order.NextAfter(report.JobType, app) {
			next = append(next, triggering{jobType: jobType, reason: "available change in " + report.JobType.String(), source: sourceCompletion})
		}
	case !app.IsDeploying():
		logger.Log("info", "not retrying without a change", "job", report.JobType)
	case status.Error == job.OutOfCapacity && status.FirstFailing.At.After(now.Add(-capacityRetryWindow)):
		next = append(next, triggering{jobType: report.JobType, reason: reasonCapacityRetry, atFront: true, source: sourceRetry})
	case status.FirstFailing.At.After(now.Add(-failureRetryWindow)) && !isImmediateRetry(status.LastTriggered):
		next = append(next, triggering{jobType: report.JobType, reason: reasonImmediateRetry, source: sourceRetry})
	default:
		logger.Log("info", "not retrying", "job", report.JobType, "failingSince", status.FirstFailing.At)
	}
	return t.triggerAll(ctx, app, next, now, logger)
}

// isImmediateRetry is true if the run was itself the retry of a new
// failure, which is retried only once.
func isImmediateRetry(run *job.Run) bool {
	return run != nil && run.Reason == reasonImmediateRetry
}

// TriggerReadyJobs triggers, for every application deploying a
// change, whatever can run now but has not been triggered by a
// completion: the first job of a new change, jobs that were blocked
// or not allowed to run before, and jobs that are hanging. It
// returns how many jobs were triggered.
func (t *DeploymentTrigger) TriggerReadyJobs(ctx context.Context) (int, error) {
	ids, err := t.store.List(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "listing applications")
	}

	triggered := 0
	for _, id := range t.readyApplications(ctx, ids) {
		if t.limiter != nil {
			if err := t.limiter.Wait(ctx); err != nil {
				return triggered, err
			}
		}
		n, err := t.triggerReadyJobsFor(ctx, id)
		triggered += n
		if err != nil {
			t.logger.Log("application", id, "err", err)
		}
	}
	return triggered, nil
}

// readyApplications filters the applications to those with a change
// to deploy, ordered so that the most eager upgrade policies go
// first.
func (t *DeploymentTrigger) readyApplications(ctx context.Context, ids []application.ID) []application.ID {
	type candidate struct {
		id   application.ID
		rank int
	}
	var candidates []candidate
	for _, id := range ids {
		if t.include != nil && !t.include(id) {
			continue
		}
		app, err := t.store.Read(ctx, id)
		if err != nil {
			t.logger.Log("application", id, "err", err)
			continue
		}
		if app.IsDeploying() || app.OutstandingChange() {
			candidates = append(candidates, candidate{id: id, rank: app.Spec().UpgradePolicy.Rank()})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].rank < candidates[j].rank })

	ready := make([]application.ID, len(candidates))
	for i, c := range candidates {
		ready[i] = c.id
	}
	return ready
}

func (t *DeploymentTrigger) triggerReadyJobsFor(ctx context.Context, id application.ID) (int, error) {
	lock, err := t.store.Lock(ctx, id)
	if err != nil {
		return 0, errors.Wrapf(err, "locking application %s", id)
	}
	defer lock.Unlock()

	app, err := t.store.Read(ctx, id)
	if err != nil {
		return 0, err
	}
	now := t.now()
	logger := log.With(t.logger, "application", id)
	if !app.IsDeploying() {
		if !app.OutstandingChange() {
			return 0, nil
		}
		app = t.startOutstandingChange(app, logger)
	}

	change := app.Deploying()
	var next []triggering
	if systemTest, ok := app.JobStatus(job.SystemTest); !ok || !t.targets(app, systemTest, change) || systemTest.IsHanging(now, t.jobTimeout) {
		next = append(next, triggering{jobType: job.SystemTest, reason: "system test for " + change.String(), source: sourceSweep})
	} else {
		for _, jobType := range order.JobsFrom(app.Spec()) {
			status, ok := app.JobStatus(jobType)
			if !ok {
				// A zone already on the target never needs its job to run.
				if !order.Reached(jobType, change, app) {
					continue
				}
				status = job.NewStatus(jobType)
			}
			if status.IsRunning(now, t.jobTimeout) || status.IsHanging(now, t.jobTimeout) {
				continue
			}
			for _, candidate := range t.order.NextAfter(jobType, app) {
				nextStatus, ran := app.JobStatus(candidate)
				if t.changesAvailable(app, status, candidate) || (ran && nextStatus.IsHanging(now, t.jobTimeout)) {
					next = append(next, triggering{jobType: candidate, reason: "available change in " + jobType.String(), source: sourceSweep})
				}
			}
		}
	}

	app, triggered := t.triggerAll(ctx, app, next, now, logger)
	return triggered, t.store.Write(ctx, app)
}

// TriggerChange starts deploying the change, beginning with the
// system test. It refuses while another change is being deployed
// without failures.
func (t *DeploymentTrigger) TriggerChange(ctx context.Context, id application.ID, change application.Change) error {
	if change == nil {
		return ctlerr.Userf("no change given for %s", id)
	}
	return t.modify(ctx, id, func(app application.Application, now time.Time, logger log.Logger) (application.Application, error) {
		if app.IsDeploying() && !app.HasFailures() {
			return app, ctlerr.Userf("cannot start %s for %s, since %s is already in progress", change, id, app.Deploying())
		}
		app = app.WithDeploying(change)
		if _, ok := change.(application.ApplicationChange); ok {
			app = app.WithOutstandingChange(false)
		}
		logger.Log("event", "change started", "change", change)
		app, _ = t.trigger(ctx, app, triggering{jobType: job.SystemTest, reason: "deploying " + change.String(), source: sourceChange}, now, logger)
		return app, nil
	})
}

// CancelChange stops deploying the current change, and drops the
// application's queued jobs. Running jobs are left to finish.
func (t *DeploymentTrigger) CancelChange(ctx context.Context, id application.ID) error {
	return t.modify(ctx, id, func(app application.Application, now time.Time, logger log.Logger) (application.Application, error) {
		if err := t.builds.RemoveAllJobs(ctx, id); err != nil {
			return app, errors.Wrapf(err, "removing queued jobs of %s", id)
		}
		logger.Log("event", "change cancelled", "change", app.Deploying())
		return app.WithDeploying(nil), nil
	})
}

// ForceTrigger runs the job whether or not it would be triggered
// otherwise. It still refuses jobs that could never run: jobs not in
// the deployment spec, jobs of applications without a build project,
// and production jobs for a change that has not passed staging.
func (t *DeploymentTrigger) ForceTrigger(ctx context.Context, id application.ID, jobType job.Type, reason string) error {
	if reason == "" {
		reason = "forced by operator"
	}
	return t.modify(ctx, id, func(app application.Application, now time.Time, logger log.Logger) (application.Application, error) {
		if !app.HasProject() {
			return app, ctlerr.Userf("%s has no build project", id)
		}
		if !includes(app.Spec(), jobType) {
			return app, ctlerr.Userf("%s is not in the deployment spec of %s", jobType, id)
		}
		if err := untested(app, jobType); err != nil {
			return app, ctlerr.Userf("cannot trigger %s for %s: %s", jobType, id, err)
		}
		if err := t.builds.Enqueue(ctx, id, jobType, false); err != nil {
			return app, errors.Wrapf(err, "enqueuing %s for %s", jobType, id)
		}
		logger.Log("event", "triggered", "job", jobType, "reason", reason)
		triggers.With(labelJobType, jobType.String(), labelTrigger, sourceForce).Add(1)
		return app.WithJobTriggering(jobType, t.runFor(app, jobType, reason, now)), nil
	})
}

// modify locks, reads, changes and writes an application. Nothing is
// written if fn fails.
func (t *DeploymentTrigger) modify(ctx context.Context, id application.ID, fn func(application.Application, time.Time, log.Logger) (application.Application, error)) error {
	lock, err := t.store.Lock(ctx, id)
	if err != nil {
		return errors.Wrapf(err, "locking application %s", id)
	}
	defer lock.Unlock()

	app, err := t.store.Read(ctx, id)
	if err != nil {
		return err
	}
	app, err = fn(app, t.now(), log.With(t.logger, "application", id))
	if err != nil {
		return err
	}
	return t.store.Write(ctx, app)
}

// startOutstandingChange starts the revision change deferred while
// another change was deployed.
func (t *DeploymentTrigger) startOutstandingChange(app application.Application, logger log.Logger) application.Application {
	if !app.OutstandingChange() || app.IsDeploying() {
		return app
	}
	change := application.ApplicationChange{Revision: componentRevision(app)}
	logger.Log("event", "change started", "change", change, "reason", "outstanding change")
	return app.WithDeploying(change).WithOutstandingChange(false)
}
