// Package store keeps application state, and serialises changes to
// it with one lock per application.
package store

import (
	"context"

	"github.com/vespa-cd/controller/pkg/application"
	ctlerr "github.com/vespa-cd/controller/pkg/errors"
)

// Lock is held while an application is read, modified and written
// back.
type Lock interface {
	Unlock()
}

// ApplicationStore is a locked read-modify-write store of
// applications. Callers that change an application must hold its
// lock from before the read until after the write.
type ApplicationStore interface {
	// Lock blocks until the application's lock is acquired, or the
	// context is done.
	Lock(ctx context.Context, id application.ID) (Lock, error)
	// Read returns the application, or an error for which
	// errors.IsMissing is true if there is none.
	Read(ctx context.Context, id application.ID) (application.Application, error)
	// Write replaces the stored application.
	Write(ctx context.Context, app application.Application) error
	// List returns the IDs of all applications, in order.
	List(ctx context.Context) ([]application.ID, error)
}

func ErrNotFound(id application.ID) error {
	return ctlerr.Missingf("application %s not found", id)
}
