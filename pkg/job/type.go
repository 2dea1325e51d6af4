package job

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/vespa-cd/controller/pkg/zone"
)

// Type names a kind of job run for an application: the component
// build, one of the two verification jobs, or a deployment to a
// production region.
type Type string

const (
	Component   Type = "component"
	SystemTest  Type = "system-test"
	StagingTest Type = "staging-test"

	productionPrefix = "production-"
)

// Production is the job type deploying to the given production region.
func Production(region zone.Region) Type {
	return Type(productionPrefix + string(region))
}

func ParseType(s string) (Type, error) {
	switch t := Type(s); {
	case t == Component, t == SystemTest, t == StagingTest:
		return t, nil
	case strings.HasPrefix(s, productionPrefix) && len(s) > len(productionPrefix):
		return t, nil
	}
	return "", errors.Errorf("unknown job type %q", s)
}

func (t Type) IsTest() bool {
	return t == SystemTest || t == StagingTest
}

func (t Type) IsProduction() bool {
	return strings.HasPrefix(string(t), productionPrefix)
}

// Environment is the environment the job deploys to; the component
// job does not deploy anywhere, so has none.
func (t Type) Environment() zone.Environment {
	switch {
	case t == SystemTest:
		return zone.Test
	case t == StagingTest:
		return zone.Staging
	case t.IsProduction():
		return zone.Prod
	}
	return ""
}

// Zone returns the production zone of a production job.
func (t Type) Zone() (zone.Zone, bool) {
	if !t.IsProduction() {
		return zone.Zone{}, false
	}
	return zone.From(zone.Prod, zone.Region(strings.TrimPrefix(string(t), productionPrefix))), true
}

func (t Type) String() string {
	return string(t)
}

// Error classifies why a job failed.
type Error string

const (
	NoError       Error = ""
	OutOfCapacity Error = "outOfCapacity"
	Other         Error = "other"
)

func ParseError(s string) (Error, error) {
	switch e := Error(s); e {
	case NoError, OutOfCapacity, Other:
		return e, nil
	}
	return "", errors.Errorf("unknown job error %q", s)
}
