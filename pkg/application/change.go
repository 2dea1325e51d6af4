package application

import (
	"time"

	"github.com/vespa-cd/controller/pkg/deploymentspec"
	"github.com/vespa-cd/controller/pkg/version"
)

// Change is what an application is currently rolling out: either a
// VersionChange or an ApplicationChange. A nil Change means nothing
// is being deployed.
type Change interface {
	// BlockedBy is true if the spec forbids rolling out this kind of
	// change at the given instant.
	BlockedBy(spec deploymentspec.Spec, t time.Time) bool
	String() string

	isChange()
}

// VersionChange upgrades the platform version of the application.
type VersionChange struct {
	Version version.Version
}

// ApplicationChange rolls out a new revision of the application. The
// revision is unknown until a job reports it.
type ApplicationChange struct {
	Revision version.Revision
}

func (VersionChange) isChange()     {}
func (ApplicationChange) isChange() {}

func (c VersionChange) BlockedBy(spec deploymentspec.Spec, t time.Time) bool {
	return !spec.CanUpgradeAt(t)
}

func (c ApplicationChange) BlockedBy(spec deploymentspec.Spec, t time.Time) bool {
	return !spec.CanChangeRevisionAt(t)
}

func (c VersionChange) String() string {
	return "upgrade to " + c.Version.String()
}

func (c ApplicationChange) String() string {
	return "application change to " + c.Revision.String()
}
