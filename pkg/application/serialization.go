package application

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"github.com/vespa-cd/controller/pkg/deploymentspec"
	"github.com/vespa-cd/controller/pkg/job"
	"github.com/vespa-cd/controller/pkg/version"
	"github.com/vespa-cd/controller/pkg/zone"
)

const (
	versionChangeKind     = "version"
	applicationChangeKind = "application"
)

// The stored form of an application. Deployment specs are stored
// with the application so that triggering never has to go back to
// the tenant's files.
type applicationJSON struct {
	ID                ID                       `json:"id"`
	Spec              specJSON                 `json:"spec"`
	ProjectID         int64                    `json:"projectId,omitempty"`
	Deploying         *changeJSON              `json:"deploying,omitempty"`
	OutstandingChange bool                     `json:"outstandingChange,omitempty"`
	Jobs              map[job.Type]job.Status  `json:"jobs,omitempty"`
	Deployments       map[zone.Zone]Deployment `json:"deployments,omitempty"`
}

type changeJSON struct {
	Kind     string           `json:"kind"`
	Version  version.Version  `json:"version"`
	Revision version.Revision `json:"revision,omitempty"`
}

type specJSON struct {
	DeclaresTest    bool                         `json:"test,omitempty"`
	DeclaresStaging bool                         `json:"staging,omitempty"`
	Steps           []stepJSON                   `json:"steps,omitempty"`
	ChangeBlockers  []blockerJSON                `json:"changeBlockers,omitempty"`
	UpgradePolicy   deploymentspec.UpgradePolicy `json:"upgradePolicy,omitempty"`
	InactiveZones   []zone.Zone                  `json:"inactiveZones,omitempty"`
}

type stepJSON struct {
	Zones []zone.Zone   `json:"zones,omitempty"`
	Delay time.Duration `json:"delay,omitempty"`
}

type blockerJSON struct {
	BlockRevision bool           `json:"revision"`
	BlockVersion  bool           `json:"version"`
	Days          []time.Weekday `json:"days"`
	Hours         []int          `json:"hours"`
	TimeZone      string         `json:"timeZone"`
}

func (a Application) MarshalJSON() ([]byte, error) {
	aj := applicationJSON{
		ID:                a.id,
		Spec:              specToJSON(a.spec),
		ProjectID:         a.projectID,
		OutstandingChange: a.outstandingChange,
		Jobs:              a.jobs,
		Deployments:       a.deployments,
	}
	switch c := a.deploying.(type) {
	case nil:
	case VersionChange:
		aj.Deploying = &changeJSON{Kind: versionChangeKind, Version: c.Version}
	case ApplicationChange:
		aj.Deploying = &changeJSON{Kind: applicationChangeKind, Revision: c.Revision}
	default:
		return nil, errors.Errorf("unknown kind of change %T", c)
	}
	return json.Marshal(aj)
}

func (a *Application) UnmarshalJSON(data []byte) error {
	var aj applicationJSON
	if err := json.Unmarshal(data, &aj); err != nil {
		return err
	}
	spec, err := specFromJSON(aj.Spec)
	if err != nil {
		return err
	}
	app := New(aj.ID, spec, aj.ProjectID).WithOutstandingChange(aj.OutstandingChange)
	for t, s := range aj.Jobs {
		app.jobs[t] = s
	}
	for z, d := range aj.Deployments {
		app.deployments[z] = d
	}
	if aj.Deploying != nil {
		switch aj.Deploying.Kind {
		case versionChangeKind:
			app.deploying = VersionChange{Version: aj.Deploying.Version}
		case applicationChangeKind:
			app.deploying = ApplicationChange{Revision: aj.Deploying.Revision}
		default:
			return errors.Errorf("unknown kind of change %q", aj.Deploying.Kind)
		}
	}
	*a = app
	return nil
}

func specToJSON(spec deploymentspec.Spec) specJSON {
	sj := specJSON{
		DeclaresTest:    spec.DeclaresTest,
		DeclaresStaging: spec.DeclaresStaging,
		UpgradePolicy:   spec.UpgradePolicy,
		InactiveZones:   spec.InactiveZones,
	}
	for _, step := range spec.Steps {
		sj.Steps = append(sj.Steps, stepJSON{Zones: step.Zones, Delay: step.Delay})
	}
	for _, b := range spec.ChangeBlockers {
		tz := "UTC"
		if b.Window.Location != nil {
			tz = b.Window.Location.String()
		}
		sj.ChangeBlockers = append(sj.ChangeBlockers, blockerJSON{
			BlockRevision: b.BlockRevision,
			BlockVersion:  b.BlockVersion,
			Days:          b.Window.Days,
			Hours:         b.Window.Hours,
			TimeZone:      tz,
		})
	}
	return sj
}

func specFromJSON(sj specJSON) (deploymentspec.Spec, error) {
	spec := deploymentspec.Spec{
		DeclaresTest:    sj.DeclaresTest,
		DeclaresStaging: sj.DeclaresStaging,
		UpgradePolicy:   sj.UpgradePolicy,
		InactiveZones:   sj.InactiveZones,
	}
	if spec.UpgradePolicy == "" {
		spec.UpgradePolicy = deploymentspec.DefaultPolicy
	}
	for _, s := range sj.Steps {
		spec.Steps = append(spec.Steps, deploymentspec.Step{Zones: s.Zones, Delay: s.Delay})
	}
	for _, b := range sj.ChangeBlockers {
		loc, err := time.LoadLocation(b.TimeZone)
		if err != nil {
			return deploymentspec.Spec{}, errors.Wrapf(err, "loading time zone %q of stored block window", b.TimeZone)
		}
		spec.ChangeBlockers = append(spec.ChangeBlockers, deploymentspec.ChangeBlocker{
			BlockRevision: b.BlockRevision,
			BlockVersion:  b.BlockVersion,
			Window: deploymentspec.TimeWindow{
				Days:     b.Days,
				Hours:    b.Hours,
				Location: loc,
			},
		})
	}
	return spec, nil
}
