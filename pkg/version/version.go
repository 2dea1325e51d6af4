package version

import (
	"encoding/json"

	"github.com/Masterminds/semver/v3"
	"github.com/pkg/errors"
)

var (
	ErrInvalidVersion = errors.New("invalid version")
	ErrBlankVersion   = errors.Wrap(ErrInvalidVersion, "blank version")
)

// Version is a platform version, e.g., 7.1.0. The zero value is the
// empty version, which is used where a version is not (yet) known;
// it is older than any other version.
type Version struct {
	v *semver.Version
}

// Empty is the unknown version.
var Empty = Version{}

func Parse(s string) (Version, error) {
	if s == "" {
		return Empty, ErrBlankVersion
	}
	v, err := semver.NewVersion(s)
	if err != nil {
		return Empty, errors.Wrapf(ErrInvalidVersion, "%q: %s", s, err.Error())
	}
	return Version{v}, nil
}

// MustParse is Parse for versions known to be well-formed, e.g., in
// tests.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

func (v Version) IsEmpty() bool {
	return v.v == nil
}

func (v Version) String() string {
	if v.v == nil {
		return ""
	}
	return v.v.String()
}

// Compare returns -1, 0 or 1 as v is older than, the same as, or
// newer than other.
func (v Version) Compare(other Version) int {
	switch {
	case v.v == nil && other.v == nil:
		return 0
	case v.v == nil:
		return -1
	case other.v == nil:
		return 1
	}
	return v.v.Compare(other.v)
}

func (v Version) Equal(other Version) bool {
	return v.Compare(other) == 0
}

func (v Version) Less(other Version) bool {
	return v.Compare(other) < 0
}

// AtLeast is true if v is the same as or newer than other. An
// empty version is never at least anything.
func (v Version) AtLeast(other Version) bool {
	if v.IsEmpty() {
		return false
	}
	return v.Compare(other) >= 0
}

func (v Version) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.String())
}

func (v *Version) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*v = Empty
		return nil
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// Revision identifies one build of an application's artifacts. The
// empty revision means the revision is not known.
type Revision string

const UnknownRevision = Revision("")

func (r Revision) IsKnown() bool {
	return r != UnknownRevision
}

func (r Revision) String() string {
	if r == UnknownRevision {
		return "<unknown>"
	}
	return string(r)
}
