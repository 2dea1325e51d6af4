package application

import (
	"strings"

	"github.com/pkg/errors"
)

// ID identifies an application instance of a tenant. It is also the
// key under which the application is locked.
type ID struct {
	Tenant      string
	Application string
	Instance    string
}

func NewID(tenant, application, instance string) ID {
	return ID{Tenant: tenant, Application: application, Instance: instance}
}

// ParseID reads an ID written as <tenant>:<application>:<instance>.
func ParseID(s string) (ID, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return ID{}, errors.Errorf("application ID %q is not of the form <tenant>:<application>:<instance>", s)
	}
	for _, p := range parts {
		if p == "" {
			return ID{}, errors.Errorf("application ID %q has an empty element", s)
		}
	}
	return NewID(parts[0], parts[1], parts[2]), nil
}

func (id ID) String() string {
	return id.Tenant + ":" + id.Application + ":" + id.Instance
}

func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *ID) UnmarshalText(text []byte) error {
	parsed, err := ParseID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
