// Package deploymentspec describes how a tenant wants an application
// rolled out: which production zones, in which order, and when changes
// must not be rolled out at all.
package deploymentspec

import (
	"time"

	"github.com/vespa-cd/controller/pkg/zone"
)

// UpgradePolicy says how eager an application is to receive platform
// upgrades. It decides only the order in which applications are
// considered.
type UpgradePolicy string

const (
	DefaultPolicy      UpgradePolicy = "default"
	CanaryPolicy       UpgradePolicy = "canary"
	ConservativePolicy UpgradePolicy = "conservative"
)

// Rank orders policies from most to least eager.
func (p UpgradePolicy) Rank() int {
	switch p {
	case CanaryPolicy:
		return 0
	case ConservativePolicy:
		return 2
	}
	return 1
}

// Step is one step of the production rollout: either a group of
// zones, deployed to in parallel (a group of one being the usual
// case), or a delay before the following step may start.
type Step struct {
	Zones []zone.Zone
	Delay time.Duration
}

func (s Step) IsDelay() bool {
	return len(s.Zones) == 0
}

func (s Step) Parallel() bool {
	return len(s.Zones) > 1
}

// ChangeBlocker stops revision and/or version changes from rolling
// out while its window is open.
type ChangeBlocker struct {
	BlockRevision bool
	BlockVersion  bool
	Window        TimeWindow
}

type Spec struct {
	// Tests are always run before production; these only record
	// whether the tenant declared them explicitly.
	DeclaresTest    bool
	DeclaresStaging bool

	Steps          []Step
	ChangeBlockers []ChangeBlocker
	UpgradePolicy  UpgradePolicy

	// InactiveZones are declared with active: false. They are kept
	// out of Steps, so nothing is ever deployed to them.
	InactiveZones []zone.Zone
}

// Empty is the spec of an application without production zones.
var Empty = Spec{UpgradePolicy: DefaultPolicy}

// ProductionZones lists the active production zones in declaration
// order.
func (s Spec) ProductionZones() []zone.Zone {
	var zones []zone.Zone
	for _, step := range s.Steps {
		zones = append(zones, step.Zones...)
	}
	return zones
}

func (s Spec) HasProduction() bool {
	return len(s.ProductionZones()) > 0
}

// Includes is true if jobs deploying to the given environment and
// region are part of this spec. Test environments are always
// included; inactive zones never are.
func (s Spec) Includes(env zone.Environment, region zone.Region) bool {
	if env.IsTest() {
		return true
	}
	for _, z := range s.ProductionZones() {
		if z.Environment == env && z.Region == region {
			return true
		}
	}
	return false
}

// CanUpgradeAt is false if a version blocker's window is open at the
// given instant.
func (s Spec) CanUpgradeAt(t time.Time) bool {
	for _, b := range s.ChangeBlockers {
		if b.BlockVersion && b.Window.Includes(t) {
			return false
		}
	}
	return true
}

// CanChangeRevisionAt is false if a revision blocker's window is open
// at the given instant.
func (s Spec) CanChangeRevisionAt(t time.Time) bool {
	for _, b := range s.ChangeBlockers {
		if b.BlockRevision && b.Window.Includes(t) {
			return false
		}
	}
	return true
}
