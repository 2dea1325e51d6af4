// config is the package containing configuration for the deployment
// controller, shared so it can be used by the controller itself as
// well as other programs.
package config

import (
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/vespa-cd/controller/pkg/store"
)

const (
	ConfigPath              = "/etc/deploy-controller/conf"
	ConfigName              = "deploy-controller.yaml"
	ConfigType              = "yaml"
	ControllerConfigVersion = "v1"
)

type Config struct {
	// This is expected to be present in a config file (and will not
	// correspond to a flag). If it is not equal to
	// ControllerConfigVersion above, the configuration is invalid.
	ConfigVersion string `mapstructure:"controllerConfigVersion"`

	LogFormat     string `mapstructure:"logFormat"`
	Listen        string `mapstructure:"listen"`
	ListenMetrics string `mapstructure:"listenMetrics"`

	DatabaseURL string `mapstructure:"databaseUrl"`

	System            string        `mapstructure:"system"`
	JobTimeout        time.Duration `mapstructure:"jobTimeout"`
	CreateOnComponent bool          `mapstructure:"createOnComponent"`

	SweepInterval time.Duration `mapstructure:"sweepInterval"`
	SweepTimeout  time.Duration `mapstructure:"sweepTimeout"`
	SweepRPS      float64       `mapstructure:"sweepRps"`
	SweepBurst    int           `mapstructure:"sweepBurst"`

	IncludeApplication []string `mapstructure:"includeApplication"`
	ExcludeApplication []string `mapstructure:"excludeApplication"`
}

// IsValid checks a config read from a file.
func (c Config) IsValid() error {
	if c.ConfigVersion != ControllerConfigVersion {
		return fmt.Errorf("config file is expected to include `controllerConfigVersion: %s` to mark it as a deployment controller config", ControllerConfigVersion)
	}
	return nil
}

// Check reports values the controller cannot run with, however they
// were given.
func (c Config) Check() error {
	switch c.LogFormat {
	case "fmt", "json":
	default:
		return errors.Errorf("log format %q is not one of fmt, json", c.LogFormat)
	}
	if c.SweepInterval <= 0 {
		return errors.New("sweep interval must be positive")
	}
	if c.SweepRPS < 0 {
		return errors.New("sweep rate cannot be negative")
	}
	if c.DatabaseURL != "" {
		if _, err := store.DriverForURL(c.DatabaseURL); err != nil {
			return err
		}
	}
	return nil
}
