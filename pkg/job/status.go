package job

import (
	"time"

	"github.com/vespa-cd/controller/pkg/version"
)

// Run records one triggering or completion of a job: what it was
// asked to deploy, when, and why.
type Run struct {
	Version  version.Version  `json:"version"`
	Revision version.Revision `json:"revision,omitempty"`
	At       time.Time        `json:"at"`
	Reason   string           `json:"reason,omitempty"`
}

// Status is the history of one job type for one application. It is
// a value; the With* methods return an updated copy.
type Status struct {
	Type          Type  `json:"type"`
	LastTriggered *Run  `json:"lastTriggered,omitempty"`
	LastCompleted *Run  `json:"lastCompleted,omitempty"`
	LastSuccess   *Run  `json:"lastSuccess,omitempty"`
	FirstFailing  *Run  `json:"firstFailing,omitempty"`
	Error         Error `json:"error,omitempty"`
}

func NewStatus(t Type) Status {
	return Status{Type: t}
}

func (s Status) WithTriggering(run Run) Status {
	s.LastTriggered = &run
	return s
}

// WithCompletion folds in the outcome of the job. Version and
// revision not given in the run are taken from the last triggering,
// since that is what the job was asked to deploy.
func (s Status) WithCompletion(run Run, success bool, jobErr Error) Status {
	if s.LastTriggered != nil {
		if run.Version.IsEmpty() {
			run.Version = s.LastTriggered.Version
		}
		if !run.Revision.IsKnown() {
			run.Revision = s.LastTriggered.Revision
		}
		if run.Reason == "" {
			run.Reason = s.LastTriggered.Reason
		}
	}
	s.LastCompleted = &run
	if success {
		s.LastSuccess = &run
		s.FirstFailing = nil
		s.Error = NoError
		return s
	}
	if s.FirstFailing == nil {
		s.FirstFailing = &run
	}
	if jobErr == NoError {
		jobErr = Other
	}
	s.Error = jobErr
	return s
}

// inProgress is true if the job was triggered since it last
// completed. A job triggered at the instant of its completion is the
// retry of that run, so is in progress.
func (s Status) inProgress() bool {
	if s.LastTriggered == nil {
		return false
	}
	if s.LastCompleted == nil {
		return true
	}
	return !s.LastTriggered.At.Before(s.LastCompleted.At)
}

// IsRunning is true if the job has been triggered, has not completed
// since, and was triggered less than timeout ago.
func (s Status) IsRunning(now time.Time, timeout time.Duration) bool {
	return s.inProgress() && s.LastTriggered.At.After(now.Add(-timeout))
}

// IsHanging is true if the job has been triggered and has not
// completed within timeout. It is then not regarded as running, and
// may be triggered again.
func (s Status) IsHanging(now time.Time, timeout time.Duration) bool {
	return s.inProgress() && !s.LastTriggered.At.After(now.Add(-timeout))
}

// IsSuccess is true if the last completion of the job succeeded.
func (s Status) IsSuccess() bool {
	return s.LastCompleted != nil && s.FirstFailing == nil
}

func (s Status) IsFailing() bool {
	return s.FirstFailing != nil
}
