package application

import (
	"time"

	"github.com/vespa-cd/controller/pkg/deploymentspec"
	"github.com/vespa-cd/controller/pkg/job"
	"github.com/vespa-cd/controller/pkg/version"
	"github.com/vespa-cd/controller/pkg/zone"
)

// Deployment is what is actually running in a zone.
type Deployment struct {
	Version  version.Version  `json:"version"`
	Revision version.Revision `json:"revision,omitempty"`
	At       time.Time        `json:"at"`
}

// Application is the deployment state of an application. It is an
// immutable value: the With* methods return a modified copy, and
// never change the receiver. The only way to make a change stick is
// to write the result back to the store, under the application's
// lock.
type Application struct {
	id                ID
	spec              deploymentspec.Spec
	projectID         int64
	deploying         Change
	outstandingChange bool
	jobs              map[job.Type]job.Status
	deployments       map[zone.Zone]Deployment
}

func New(id ID, spec deploymentspec.Spec, projectID int64) Application {
	return Application{
		id:          id,
		spec:        spec,
		projectID:   projectID,
		jobs:        map[job.Type]job.Status{},
		deployments: map[zone.Zone]Deployment{},
	}
}

func (a Application) ID() ID                    { return a.id }
func (a Application) Spec() deploymentspec.Spec { return a.spec }
func (a Application) ProjectID() int64          { return a.projectID }
func (a Application) HasProject() bool          { return a.projectID != 0 }
func (a Application) Deploying() Change         { return a.deploying }
func (a Application) IsDeploying() bool         { return a.deploying != nil }
func (a Application) OutstandingChange() bool   { return a.outstandingChange }
func (a Application) String() string            { return a.id.String() }

// JobStatus returns the status of the given job type, if it has ever
// been triggered or completed.
func (a Application) JobStatus(t job.Type) (job.Status, bool) {
	s, ok := a.jobs[t]
	return s, ok
}

// JobStatuses returns a copy of all job statuses.
func (a Application) JobStatuses() map[job.Type]job.Status {
	return copyJobs(a.jobs)
}

// Deployment returns what is running in the given zone, if anything.
func (a Application) Deployment(z zone.Zone) (Deployment, bool) {
	d, ok := a.deployments[z]
	return d, ok
}

// Deployments returns a copy of all deployments.
func (a Application) Deployments() map[zone.Zone]Deployment {
	return copyDeployments(a.deployments)
}

// HasFailures is true if any job is currently failing.
func (a Application) HasFailures() bool {
	for _, s := range a.jobs {
		if s.IsFailing() {
			return true
		}
	}
	return false
}

func (a Application) WithSpec(spec deploymentspec.Spec) Application {
	a.spec = spec
	return a
}

func (a Application) WithProjectID(projectID int64) Application {
	a.projectID = projectID
	return a
}

// WithDeploying sets the change being deployed; nil means none.
func (a Application) WithDeploying(change Change) Application {
	a.deploying = change
	return a
}

func (a Application) WithOutstandingChange(outstanding bool) Application {
	a.outstandingChange = outstanding
	return a
}

func (a Application) WithDeployment(z zone.Zone, d Deployment) Application {
	a.deployments = copyDeployments(a.deployments)
	a.deployments[z] = d
	return a
}

// WithJobTriggering records that the job was triggered.
func (a Application) WithJobTriggering(t job.Type, run job.Run) Application {
	status, ok := a.jobs[t]
	if !ok {
		status = job.NewStatus(t)
	}
	a.jobs = copyJobs(a.jobs)
	a.jobs[t] = status.WithTriggering(run)
	return a
}

// WithJobCompletion folds a job report into the application. A
// successful production job records what is now deployed in its
// zone; a successful component or system test job reporting a
// revision fills in the revision of an application change, if it was
// not yet known.
func (a Application) WithJobCompletion(report JobReport, at time.Time) Application {
	status, ok := a.jobs[report.JobType]
	if !ok {
		status = job.NewStatus(report.JobType)
	}
	status = status.WithCompletion(job.Run{
		Version:  report.Version,
		Revision: report.Revision,
		At:       at,
	}, report.Success, report.Error)
	a.jobs = copyJobs(a.jobs)
	a.jobs[report.JobType] = status

	if report.ProjectID != 0 {
		a.projectID = report.ProjectID
	}
	if !report.Success {
		return a
	}

	completed := *status.LastCompleted
	if z, ok := report.JobType.Zone(); ok {
		a = a.WithDeployment(z, Deployment{
			Version:  completed.Version,
			Revision: completed.Revision,
			At:       at,
		})
	}
	if report.JobType == job.Component || report.JobType == job.SystemTest {
		if change, ok := a.deploying.(ApplicationChange); ok && !change.Revision.IsKnown() && completed.Revision.IsKnown() {
			a.deploying = ApplicationChange{Revision: completed.Revision}
		}
	}
	return a
}

func copyJobs(jobs map[job.Type]job.Status) map[job.Type]job.Status {
	c := make(map[job.Type]job.Status, len(jobs)+1)
	for t, s := range jobs {
		c[t] = s
	}
	return c
}

func copyDeployments(deployments map[zone.Zone]Deployment) map[zone.Zone]Deployment {
	c := make(map[zone.Zone]Deployment, len(deployments)+1)
	for z, d := range deployments {
		c[z] = d
	}
	return c
}
