package main

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vespa-cd/controller/pkg/config"
)

func TestDefineEverything(t *testing.T) {
	flags := pflag.NewFlagSet("testflags", pflag.ContinueOnError)
	defineConfigFlags(flags, viper.New(), func(err error) {
		t.Error(err)
	})
}

func TestFlagsReachConfig(t *testing.T) {
	flags := pflag.NewFlagSet("testflags", pflag.ContinueOnError)
	v := viper.New()
	defineConfigFlags(flags, v, func(err error) {
		t.Error(err)
	})
	require.NoError(t, flags.Parse([]string{
		"--sweep-interval=30s",
		"--exclude-application=test:*",
		"--create-on-component",
	}))

	var cfg config.Config
	require.NoError(t, v.Unmarshal(&cfg))
	assert.Equal(t, 30*time.Second, cfg.SweepInterval)
	assert.Equal(t, []string{"test:*"}, cfg.ExcludeApplication)
	assert.True(t, cfg.CreateOnComponent)
	assert.Equal(t, "fmt", cfg.LogFormat)
	assert.NoError(t, cfg.Check())
}
