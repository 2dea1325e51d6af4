package errors

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Representation of errors in the API. These are divided into a small
// number of categories, essentially distinguished by whose fault the
// error is; i.e., is this error:
//  - a transient problem with the controller, so worth trying again?
//  - about an application or job the controller does not know?
//  - not going to work until the user takes some other action, e.g.,
//    waiting for the change in progress to finish?
type Error struct {
	Type Type
	// a message that can be printed out for the user
	Help string `json:"help"`
	// the underlying error that can be e.g., logged for developers to look at
	Err error
}

func (e *Error) Error() string {
	return e.Err.Error()
}

func (e *Error) Cause() error {
	return e.Err
}

type Type string

const (
	// The operation looked fine on paper, but something went wrong
	Server Type = "server"
	// The thing you mentioned, whatever it is, just doesn't exist
	Missing Type = "missing"
	// The operation was well-formed, but you asked for something that
	// can't happen at present (e.g., because a change is already
	// being deployed)
	User Type = "user"
)

// Missingf makes a missing error; the message doubles as help.
func Missingf(format string, args ...interface{}) *Error {
	msg := fmt.Sprintf(format, args...)
	return &Error{Type: Missing, Help: msg, Err: errors.New(msg)}
}

// Userf makes a user error; the message doubles as help.
func Userf(format string, args ...interface{}) *Error {
	msg := fmt.Sprintf(format, args...)
	return &Error{Type: User, Help: msg, Err: errors.New(msg)}
}

func IsMissing(err error) bool {
	return isType(err, Missing)
}

func IsUser(err error) bool {
	return isType(err, User)
}

func isType(err error, t Type) bool {
	var e *Error
	if errors.As(err, &e) && e.Type == t {
		return true
	}
	return false
}

func (e *Error) MarshalJSON() ([]byte, error) {
	var errMsg string
	if e.Err != nil {
		errMsg = e.Err.Error()
	}
	jsonable := &struct {
		Type string `json:"type"`
		Help string `json:"help"`
		Err  string `json:"error,omitempty"`
	}{
		Type: string(e.Type),
		Help: e.Help,
		Err:  errMsg,
	}
	return json.Marshal(jsonable)
}

func (e *Error) UnmarshalJSON(data []byte) error {
	jsonable := &struct {
		Type string `json:"type"`
		Help string `json:"help"`
		Err  string `json:"error,omitempty"`
	}{}
	if err := json.Unmarshal(data, &jsonable); err != nil {
		return err
	}
	e.Type = Type(jsonable.Type)
	e.Help = jsonable.Help
	if jsonable.Err != "" {
		e.Err = errors.New(jsonable.Err)
	}
	return nil
}

func CoverAllError(err error) *Error {
	return &Error{
		Type: Server,
		Err:  err,
		Help: `Error: ` + err.Error() + `

We don't have a specific help message for the error above. Check the
controller's log for what it was doing when the error occurred.
`,
	}
}
