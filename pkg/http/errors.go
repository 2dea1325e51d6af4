package http

import (
	"errors"

	ctlerr "github.com/vespa-cd/controller/pkg/errors"
)

func MakeAPINotFound(path string) *ctlerr.Error {
	return &ctlerr.Error{
		Type: ctlerr.Missing,
		Help: `The API endpoint requested is not supported by this controller.

This indicates that your client is either out of date, or faulty.
Check that it talks the same API version as the controller, which
serves everything under /v1/. The path requested was:

    ` + path + `
`,
		Err: errors.New("API endpoint not found"),
	}
}

func MakeBadRequest(err error) *ctlerr.Error {
	return &ctlerr.Error{
		Type: ctlerr.User,
		Help: `The request could not be understood: ` + err.Error() + `

Check that path names an application as tenant/application/instance,
and that the body, if any, is the JSON the endpoint expects.
`,
		Err: err,
	}
}
