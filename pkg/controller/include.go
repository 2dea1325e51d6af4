package controller

import (
	"github.com/ryanuber/go-glob"

	"github.com/vespa-cd/controller/pkg/application"
)

// This is to represent "include-exclude" predicate, which is used
// for deciding which applications the sweep looks at.

type Includer interface {
	IsIncluded(application.ID) bool
}

type IncluderFunc func(application.ID) bool

func (f IncluderFunc) IsIncluded(id application.ID) bool {
	return f(id)
}

var AlwaysInclude = IncluderFunc(func(application.ID) bool { return true })

// ExcludeIncludeGlob is an Includer that matches glob patterns
// against application IDs in their string form,
// tenant:application:instance. Note that Include and Exclude are
// treated differently -- see the method IsIncluded.
type ExcludeIncludeGlob struct {
	Include []string
	Exclude []string
}

// IsIncluded implements Includer using the logic:
//  - if the ID matches any exclude pattern, don't include it
//  - otherwise, if there are no include patterns, include it
//  - otherwise, if it matches an include pattern, include it
//  = otherwise don't include it.
func (ei ExcludeIncludeGlob) IsIncluded(id application.ID) bool {
	s := id.String()
	for _, ex := range ei.Exclude {
		if glob.Glob(ex, s) {
			return false
		}
	}
	if len(ei.Include) == 0 {
		return true
	}
	for _, in := range ei.Include {
		if glob.Glob(in, s) {
			return true
		}
	}
	return false
}
