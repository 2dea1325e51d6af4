package deploymentspec

import (
	"io/ioutil"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"github.com/vespa-cd/controller/pkg/zone"
)

// The file format, e.g.,
//
//    upgrade-policy: canary
//    block-changes:
//      - version: true
//        days: sat-sun
//        hours: 0-23
//        time-zone: Europe/Oslo
//    prod:
//      - region: us-east-3
//      - delay: 2h
//      - parallel:
//          - region: us-west-1
//          - region: eu-west-1
//          - region: ap-northeast-1
//            active: false
type specFile struct {
	Test          bool          `yaml:"test"`
	Staging       bool          `yaml:"staging"`
	UpgradePolicy string        `yaml:"upgrade-policy"`
	BlockChanges  []blockerFile `yaml:"block-changes"`
	Prod          []stepFile    `yaml:"prod"`
}

type blockerFile struct {
	Revision *bool  `yaml:"revision"`
	Version  *bool  `yaml:"version"`
	Days     string `yaml:"days"`
	Hours    string `yaml:"hours"`
	TimeZone string `yaml:"time-zone"`
}

type stepFile struct {
	Region   string     `yaml:"region"`
	Active   *bool      `yaml:"active"`
	Delay    string     `yaml:"delay"`
	Parallel []stepFile `yaml:"parallel"`
}

func (s stepFile) isActive() bool {
	return s.Active == nil || *s.Active
}

// ParseFile reads a deployment spec from the file at path.
func ParseFile(path string) (Spec, error) {
	bytes, err := ioutil.ReadFile(path)
	if err != nil {
		return Spec{}, errors.Wrap(err, "reading deployment spec")
	}
	return Parse(bytes)
}

// Parse reads a deployment spec in its YAML format.
func Parse(data []byte) (Spec, error) {
	var file specFile
	if err := yaml.UnmarshalStrict(data, &file); err != nil {
		return Spec{}, errors.Wrap(err, "parsing deployment spec")
	}

	spec := Spec{
		DeclaresTest:    file.Test,
		DeclaresStaging: file.Staging,
		UpgradePolicy:   DefaultPolicy,
	}
	switch p := UpgradePolicy(file.UpgradePolicy); p {
	case "":
	case DefaultPolicy, CanaryPolicy, ConservativePolicy:
		spec.UpgradePolicy = p
	default:
		return Spec{}, errors.Errorf("unknown upgrade policy %q", file.UpgradePolicy)
	}

	for i, b := range file.BlockChanges {
		window, err := ParseTimeWindow(b.Days, b.Hours, b.TimeZone)
		if err != nil {
			return Spec{}, errors.Wrapf(err, "block-changes[%d]", i)
		}
		spec.ChangeBlockers = append(spec.ChangeBlockers, ChangeBlocker{
			BlockRevision: b.Revision == nil || *b.Revision,
			BlockVersion:  b.Version == nil || *b.Version,
			Window:        window,
		})
	}

	seen := map[zone.Region]bool{}
	var step Step
	declare := func(s stepFile) error {
		if s.Region == "" {
			return errors.New("production zone without a region")
		}
		if seen[zone.Region(s.Region)] {
			return errors.Errorf("region %q is declared more than once", s.Region)
		}
		seen[zone.Region(s.Region)] = true
		z := zone.From(zone.Prod, zone.Region(s.Region))
		if s.isActive() {
			step.Zones = append(step.Zones, z)
		} else {
			spec.InactiveZones = append(spec.InactiveZones, z)
		}
		return nil
	}

	for i, s := range file.Prod {
		step = Step{}
		switch {
		case s.Delay != "":
			if s.Region != "" || s.Active != nil || len(s.Parallel) > 0 {
				return Spec{}, errors.Errorf("prod[%d]: a delay step cannot also declare zones", i)
			}
			d, err := time.ParseDuration(s.Delay)
			if err != nil || d <= 0 {
				return Spec{}, errors.Errorf("prod[%d]: invalid delay %q", i, s.Delay)
			}
			step.Delay = d
		case len(s.Parallel) > 0:
			if s.Region != "" || s.Active != nil {
				return Spec{}, errors.Errorf("prod[%d]: a parallel step cannot also declare a region", i)
			}
			for _, p := range s.Parallel {
				if p.Delay != "" || len(p.Parallel) > 0 {
					return Spec{}, errors.Errorf("prod[%d]: parallel steps may only contain regions", i)
				}
				if err := declare(p); err != nil {
					return Spec{}, errors.Wrapf(err, "prod[%d]", i)
				}
			}
			if len(step.Zones) == 0 {
				continue
			}
		default:
			if err := declare(s); err != nil {
				return Spec{}, errors.Wrapf(err, "prod[%d]", i)
			}
			if len(step.Zones) == 0 {
				continue
			}
		}
		spec.Steps = append(spec.Steps, step)
	}
	return spec, nil
}
