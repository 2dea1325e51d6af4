package deploymentspec

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vespa-cd/controller/pkg/zone"
)

const specYAML = `
upgrade-policy: canary
block-changes:
  - revision: false
    days: mon-fri
    hours: 0-7,22-23
    time-zone: UTC
prod:
  - region: us-east-3
  - delay: 1h
  - region: us-central-1
  - parallel:
      - region: us-west-1
      - region: eu-west-1
`

func prod(region string) zone.Zone {
	return zone.From(zone.Prod, zone.Region(region))
}

func TestParse(t *testing.T) {
	spec, err := Parse([]byte(specYAML))
	require.NoError(t, err)

	assert.Equal(t, CanaryPolicy, spec.UpgradePolicy)
	require.Len(t, spec.Steps, 4)
	assert.Equal(t, []zone.Zone{prod("us-east-3")}, spec.Steps[0].Zones)
	assert.True(t, spec.Steps[1].IsDelay())
	assert.Equal(t, time.Hour, spec.Steps[1].Delay)
	assert.True(t, spec.Steps[3].Parallel())
	assert.Equal(t, []zone.Zone{
		prod("us-east-3"), prod("us-central-1"), prod("us-west-1"), prod("eu-west-1"),
	}, spec.ProductionZones())

	require.Len(t, spec.ChangeBlockers, 1)
	assert.True(t, spec.ChangeBlockers[0].BlockVersion)
	assert.False(t, spec.ChangeBlockers[0].BlockRevision)

	assert.True(t, spec.Includes(zone.Prod, "us-west-1"))
	assert.False(t, spec.Includes(zone.Prod, "ap-northeast-1"))
	assert.True(t, spec.Includes(zone.Staging, ""))
}

func TestInactiveZones(t *testing.T) {
	spec, err := Parse([]byte(`
prod:
  - region: us-east-3
  - region: us-central-1
    active: false
  - parallel:
      - region: us-west-1
      - region: eu-west-1
        active: false
  - parallel:
      - region: ap-northeast-1
        active: false
`))
	require.NoError(t, err)

	require.Len(t, spec.Steps, 2)
	assert.Equal(t, []zone.Zone{prod("us-east-3"), prod("us-west-1")}, spec.ProductionZones())
	assert.Equal(t, []zone.Zone{prod("us-central-1"), prod("eu-west-1"), prod("ap-northeast-1")}, spec.InactiveZones)
	assert.False(t, spec.Steps[1].Parallel(), "only one zone of the group is active")
	assert.False(t, spec.Includes(zone.Prod, "us-central-1"))
	assert.True(t, spec.Includes(zone.Prod, "us-west-1"))

	_, err = Parse([]byte("prod:\n  - region: a\n    active: false\n  - region: a\n"))
	assert.Error(t, err, "an inactive region still counts as declared")
}

func TestParseErrors(t *testing.T) {
	for name, doc := range map[string]string{
		"unknown field":      "prod:\n  - regoin: us-east-3\n",
		"duplicate region":   "prod:\n  - region: a\n  - region: a\n",
		"bad delay":          "prod:\n  - delay: soon\n",
		"delay and region":   "prod:\n  - delay: 1h\n    region: a\n",
		"nested parallel":    "prod:\n  - parallel:\n      - parallel:\n          - region: a\n",
		"bad policy":         "upgrade-policy: eager\n",
		"bad hours":          "block-changes:\n  - hours: 5-2\n",
		"bad day":            "block-changes:\n  - days: someday\n",
		"bad time zone":      "block-changes:\n  - time-zone: Mars/Olympus\n",
		"region-less zone":   "prod:\n  - {}\n",
		"inactive delay":     "prod:\n  - delay: 1h\n    active: false\n",
	} {
		_, err := Parse([]byte(doc))
		assert.Error(t, err, name)
	}
}

func TestBlockWindows(t *testing.T) {
	spec, err := Parse([]byte(specYAML))
	require.NoError(t, err)

	// 2017-10-02 is a Monday
	mondayMorning := time.Date(2017, 10, 2, 3, 0, 0, 0, time.UTC)
	mondayNoon := time.Date(2017, 10, 2, 12, 0, 0, 0, time.UTC)
	saturdayMorning := time.Date(2017, 10, 7, 3, 0, 0, 0, time.UTC)

	assert.False(t, spec.CanUpgradeAt(mondayMorning))
	assert.True(t, spec.CanChangeRevisionAt(mondayMorning))
	assert.True(t, spec.CanUpgradeAt(mondayNoon))
	assert.True(t, spec.CanUpgradeAt(saturdayMorning))
}

func TestTimeWindow(t *testing.T) {
	w, err := ParseTimeWindow("fri-mon", "23", "Europe/Oslo")
	require.NoError(t, err)
	assert.ElementsMatch(t, []time.Weekday{time.Friday, time.Saturday, time.Sunday, time.Monday}, w.Days)

	// 22:30 UTC on a Sunday in October is 00:30 Monday in Oslo
	assert.False(t, w.Includes(time.Date(2017, 10, 8, 22, 30, 0, 0, time.UTC)))
	// 21:30 UTC on a Sunday in October is 23:30 Sunday in Oslo
	assert.True(t, w.Includes(time.Date(2017, 10, 8, 21, 30, 0, 0, time.UTC)))

	all, err := ParseTimeWindow("", "", "")
	require.NoError(t, err)
	assert.Len(t, all.Days, 7)
	assert.Len(t, all.Hours, 24)
}
