package controller

import (
	"context"
	"sort"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/pkg/errors"

	"github.com/vespa-cd/controller/pkg/api"
	"github.com/vespa-cd/controller/pkg/application"
	"github.com/vespa-cd/controller/pkg/buildsystem"
	ctlerr "github.com/vespa-cd/controller/pkg/errors"
	"github.com/vespa-cd/controller/pkg/job"
	"github.com/vespa-cd/controller/pkg/order"
	"github.com/vespa-cd/controller/pkg/store"
	"github.com/vespa-cd/controller/pkg/trigger"
	"github.com/vespa-cd/controller/pkg/version"
)

// Claimer hands out queued jobs.
type Claimer interface {
	Claim() (buildsystem.Job, bool)
}

// Server is the controller as seen through the API.
type Server struct {
	Trigger *trigger.DeploymentTrigger
	Store   store.ApplicationStore
	Queue   Claimer
	Loop    *Loop
	Logger  log.Logger
	Now     func() time.Time
}

var _ api.Server = &Server{}

func (s *Server) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func (s *Server) ReportJob(ctx context.Context, report application.JobReport) error {
	if _, err := job.ParseType(string(report.JobType)); err != nil {
		return ctlerr.Userf("%s", err)
	}
	return s.Trigger.TriggerFromCompletion(ctx, report)
}

func (s *Server) TriggerChange(ctx context.Context, id application.ID, spec api.ChangeSpec) error {
	change, err := ParseChange(spec)
	if err != nil {
		return err
	}
	return s.Trigger.TriggerChange(ctx, id, change)
}

// ParseChange makes a change of the spec, which must name exactly one
// of a version and a revision.
func ParseChange(spec api.ChangeSpec) (application.Change, error) {
	switch {
	case spec.Version != "" && spec.Revision != "":
		return nil, ctlerr.Userf("a change is either a version or a revision, not both")
	case spec.Version != "":
		v, err := version.Parse(spec.Version)
		if err != nil {
			return nil, ctlerr.Userf("invalid version %q: %s", spec.Version, err)
		}
		return application.VersionChange{Version: v}, nil
	case spec.Revision != "":
		return application.ApplicationChange{Revision: version.Revision(spec.Revision)}, nil
	}
	return nil, ctlerr.Userf("a change needs a version or a revision")
}

func (s *Server) CancelChange(ctx context.Context, id application.ID) error {
	return s.Trigger.CancelChange(ctx, id)
}

func (s *Server) ForceTrigger(ctx context.Context, id application.ID, jobType job.Type, reason string) error {
	if _, err := job.ParseType(string(jobType)); err != nil {
		return ctlerr.Userf("%s", err)
	}
	return s.Trigger.ForceTrigger(ctx, id, jobType, reason)
}

func (s *Server) GetApplication(ctx context.Context, id application.ID) (api.ApplicationStatus, error) {
	app, err := s.Store.Read(ctx, id)
	if err != nil {
		return api.ApplicationStatus{}, err
	}
	return StatusOf(app, s.now(), s.Trigger.JobTimeout()), nil
}

// StatusOf summarises an application as of now. Jobs are listed in
// the order they run, followed by any no longer in the deployment
// spec.
func StatusOf(app application.Application, now time.Time, timeout time.Duration) api.ApplicationStatus {
	status := api.ApplicationStatus{
		ID:                app.ID(),
		ProjectID:         app.ProjectID(),
		Deploying:         api.ChangeSpecFor(app.Deploying()),
		OutstandingChange: app.OutstandingChange(),
		Deployments:       app.Deployments(),
		Jobs:              []api.JobStatus{},
	}
	if phase, ok := order.CurrentPhase(app); ok {
		status.Phase = phase
	}

	statuses := app.JobStatuses()
	listed := map[job.Type]bool{}
	var types []job.Type
	for _, t := range append([]job.Type{job.Component}, order.JobsFrom(app.Spec())...) {
		if _, ok := statuses[t]; ok {
			types = append(types, t)
			listed[t] = true
		}
	}
	var rest []job.Type
	for t := range statuses {
		if !listed[t] {
			rest = append(rest, t)
		}
	}
	sort.Slice(rest, func(i, j int) bool { return rest[i] < rest[j] })

	for _, t := range append(types, rest...) {
		js := statuses[t]
		status.Jobs = append(status.Jobs, api.JobStatus{
			Type:          t,
			LastTriggered: js.LastTriggered,
			LastSuccess:   js.LastSuccess,
			FirstFailing:  js.FirstFailing,
			Error:         js.Error,
			Running:       js.IsRunning(now, timeout),
			Hanging:       js.IsHanging(now, timeout),
		})
	}
	return status
}

func (s *Server) ClaimJob(ctx context.Context) (*buildsystem.Job, error) {
	if s.Queue == nil {
		return nil, errors.New("no job queue to claim from")
	}
	j, ok := s.Queue.Claim()
	if !ok {
		return nil, nil
	}
	if s.Logger != nil {
		s.Logger.Log("event", "claimed", "application", j.Application, "job", j.Type, "queued", s.now().Sub(j.QueuedAt))
	}
	return &j, nil
}

func (s *Server) Sweep(ctx context.Context) error {
	if s.Loop == nil {
		return errors.New("no sweep loop running")
	}
	s.Loop.AskForSweep()
	return nil
}
