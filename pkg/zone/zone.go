package zone

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Environment is the kind of zone a deployment goes to. Tests run in
// `test` and `staging`; tenants' traffic is served from `prod`.
type Environment string

const (
	Test    Environment = "test"
	Staging Environment = "staging"
	Prod    Environment = "prod"
	Dev     Environment = "dev"
	Perf    Environment = "perf"
)

func ParseEnvironment(s string) (Environment, error) {
	for _, e := range []Environment{Test, Staging, Prod, Dev, Perf} {
		if s == string(e) {
			return e, nil
		}
	}
	return "", fmt.Errorf("unknown environment %q", s)
}

// IsTest is true of the environments where verification jobs run.
func (e Environment) IsTest() bool {
	return e == Test || e == Staging
}

type Region string

// Zone is one environment and region a deployment can go to, e.g.,
// prod.us-east-3.
type Zone struct {
	Environment Environment
	Region      Region
}

func From(env Environment, region Region) Zone {
	return Zone{Environment: env, Region: region}
}

func (z Zone) String() string {
	return string(z.Environment) + "." + string(z.Region)
}

// Parse reads a zone as written by String.
func Parse(s string) (Zone, error) {
	parts := strings.SplitN(s, ".", 2)
	if len(parts) != 2 || parts[1] == "" {
		return Zone{}, errors.Errorf("zone %q is not of the form <environment>.<region>", s)
	}
	env, err := ParseEnvironment(parts[0])
	if err != nil {
		return Zone{}, err
	}
	return From(env, Region(parts[1])), nil
}

func (z Zone) MarshalText() ([]byte, error) {
	return []byte(z.String()), nil
}

func (z *Zone) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*z = parsed
	return nil
}
