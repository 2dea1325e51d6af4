// Package api is what the controller offers over HTTP, and the values
// that go over the wire.
package api

import (
	"context"

	"github.com/vespa-cd/controller/pkg/application"
	"github.com/vespa-cd/controller/pkg/buildsystem"
	"github.com/vespa-cd/controller/pkg/job"
	"github.com/vespa-cd/controller/pkg/zone"
)

// Server is implemented by the controller, and by the HTTP client
// talking to it.
type Server interface {
	// ReportJob delivers the outcome of a job.
	ReportJob(ctx context.Context, report application.JobReport) error
	TriggerChange(ctx context.Context, id application.ID, change ChangeSpec) error
	CancelChange(ctx context.Context, id application.ID) error
	ForceTrigger(ctx context.Context, id application.ID, jobType job.Type, reason string) error
	GetApplication(ctx context.Context, id application.ID) (ApplicationStatus, error)
	// ClaimJob takes the next queued job, if there is one.
	ClaimJob(ctx context.Context) (*buildsystem.Job, error)
	// Sweep asks for ready jobs of all applications to be triggered
	// soon, without waiting for it.
	Sweep(ctx context.Context) error
}

// ChangeSpec names a change: exactly one of a platform version or an
// application revision.
type ChangeSpec struct {
	Version  string `json:"version,omitempty"`
	Revision string `json:"revision,omitempty"`
}

func ChangeSpecFor(change application.Change) *ChangeSpec {
	switch c := change.(type) {
	case application.VersionChange:
		return &ChangeSpec{Version: c.Version.String()}
	case application.ApplicationChange:
		return &ChangeSpec{Revision: string(c.Revision)}
	}
	return nil
}

// ForceTriggerRequest is the body of a request to run a job now.
type ForceTriggerRequest struct {
	Reason string `json:"reason,omitempty"`
}

// ApplicationStatus is the state of an application's deployment, as
// shown to operators.
type ApplicationStatus struct {
	ID                application.ID `json:"id"`
	ProjectID         int64          `json:"projectId,omitempty"`
	Deploying         *ChangeSpec    `json:"deploying,omitempty"`
	OutstandingChange bool           `json:"outstandingChange,omitempty"`
	// Phase is the first job yet to run with the change.
	Phase       job.Type                               `json:"phase,omitempty"`
	Jobs        []JobStatus                            `json:"jobs"`
	Deployments map[zone.Zone]application.Deployment `json:"deployments,omitempty"`
}

type JobStatus struct {
	Type          job.Type  `json:"type"`
	LastTriggered *job.Run  `json:"lastTriggered,omitempty"`
	LastSuccess   *job.Run  `json:"lastSuccess,omitempty"`
	FirstFailing  *job.Run  `json:"firstFailing,omitempty"`
	Error         job.Error `json:"error,omitempty"`
	Running       bool      `json:"running,omitempty"`
	Hanging       bool      `json:"hanging,omitempty"`
}
