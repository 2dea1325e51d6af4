package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func validConfig() Config {
	return Config{
		ConfigVersion: ControllerConfigVersion,
		LogFormat:     "fmt",
		SweepInterval: time.Minute,
		DatabaseURL:   "memory://apps",
	}
}

func TestIsValid(t *testing.T) {
	c := validConfig()
	assert.NoError(t, c.IsValid())
	c.ConfigVersion = "v0"
	assert.Error(t, c.IsValid())
}

func TestCheck(t *testing.T) {
	assert.NoError(t, validConfig().Check())

	for name, change := range map[string]func(*Config){
		"log format":     func(c *Config) { c.LogFormat = "xml" },
		"sweep interval": func(c *Config) { c.SweepInterval = 0 },
		"sweep rate":     func(c *Config) { c.SweepRPS = -1 },
		"database":       func(c *Config) { c.DatabaseURL = "mysql://db/apps" },
	} {
		c := validConfig()
		change(&c)
		assert.Error(t, c.Check(), name)
	}
}
