package application

import (
	"github.com/vespa-cd/controller/pkg/job"
	"github.com/vespa-cd/controller/pkg/version"
)

// JobReport is sent by whatever ran a job, when the job completes.
type JobReport struct {
	Application ID       `json:"application"`
	JobType     job.Type `json:"jobType"`
	// ProjectID is the build project the job ran in; when non-zero,
	// it is recorded against the application.
	ProjectID int64            `json:"projectId,omitempty"`
	Success   bool             `json:"success"`
	Error     job.Error        `json:"error,omitempty"`
	Version   version.Version  `json:"version"`
	Revision  version.Revision `json:"revision,omitempty"`
}
