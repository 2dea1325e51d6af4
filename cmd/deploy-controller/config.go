package main

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/vespa-cd/controller/pkg/config"
	"github.com/vespa-cd/controller/pkg/trigger"
)

// defineConfigFlags defines the flags that can also be set in a
// config file. These need special treatment, because some care must
// be taken to match them ("bind") with config file field names.
func defineConfigFlags(fs *pflag.FlagSet, v *viper.Viper, bail func(error)) {

	bind := func(fieldName, flagName string) error {
		configStruct := reflect.TypeOf(config.Config{})
		field, ok := configStruct.FieldByName(fieldName)
		if !ok {
			return fmt.Errorf("attempt to bind a flag to a field not present in config.Config, %q", fieldName)
		}
		// this parallels the logic in
		// github.com/mitchellh/mapstructure, except that we want to
		// bail if a field is mentioned that is marked ignore, like
		// this: `mapstructure:"-"`
		mappedName := field.Name
		mapstructureTagParts := strings.Split(field.Tag.Get("mapstructure"), ",")
		if namePart := mapstructureTagParts[0]; namePart != "" {
			if namePart == "-" {
				return fmt.Errorf(`attempt to bind a flag to a config field tagged as ignored, %q`, field.Name)
			}
			mappedName = namePart
		}
		return v.BindPFlag(mappedName, fs.Lookup(flagName))
	}

	bindOrBail := func(fieldName, flagName string) {
		if err := bind(fieldName, flagName); err != nil {
			bail(err)
		}
	}

	defineString := func(fieldName, flagName, def, desc string) {
		fs.String(flagName, def, desc)
		bindOrBail(fieldName, flagName)
	}

	defineStringP := func(fieldName, flagName, short, def, desc string) {
		fs.StringP(flagName, short, def, desc)
		bindOrBail(fieldName, flagName)
	}

	defineStringSlice := func(fieldName, flagName string, def []string, desc string) {
		fs.StringSlice(flagName, def, desc)
		bindOrBail(fieldName, flagName)
	}

	defineBool := func(fieldName, flagName string, def bool, desc string) {
		fs.Bool(flagName, def, desc)
		bindOrBail(fieldName, flagName)
	}

	defineDuration := func(fieldName, flagName string, def time.Duration, desc string) {
		fs.Duration(flagName, def, desc)
		bindOrBail(fieldName, flagName)
	}

	defineInt := func(fieldName, flagName string, def int, desc string) {
		fs.Int(flagName, def, desc)
		bindOrBail(fieldName, flagName)
	}

	defineFloat64 := func(fieldName, flagName string, def float64, desc string) {
		fs.Float64(flagName, def, desc)
		bindOrBail(fieldName, flagName)
	}

	defineString("LogFormat", "log-format", "fmt", "change the log format (one of {fmt,json})")
	defineStringP("Listen", "listen", "l", ":8080", "listen address where /metrics and the API will be served")
	defineString("ListenMetrics", "listen-metrics", "", "listen address for the /metrics endpoint, if not the same as --listen")

	defineString("DatabaseURL", "database-url", "", "URL of the database applications are kept in, e.g., file:///var/lib/deploy-controller/apps.db or postgres://...; if empty, applications are kept in memory")

	defineString("System", "system", trigger.MainSystem, fmt.Sprintf("system the controller runs in; jobs in %q are given longer to finish", trigger.MainSystem))
	defineDuration("JobTimeout", "job-timeout", 0, "duration after which a job that has not reported back is considered hanging; the default depends on --system")
	defineBool("CreateOnComponent", "create-on-component", false, "create applications the first time their component job succeeds")

	defineDuration("SweepInterval", "sweep-interval", time.Minute, "trigger ready jobs of all applications at least this often")
	defineDuration("SweepTimeout", "sweep-timeout", 5*time.Minute, "duration after which a sweep is abandoned")
	defineFloat64("SweepRPS", "sweep-rps", 0, "maximum applications per second looked at by a sweep; zero means no limit")
	defineInt("SweepBurst", "sweep-burst", 1, "number of applications a sweep may look at in a burst, when --sweep-rps is set")

	defineStringSlice("IncludeApplication", "include-application", nil, "sweep only applications (tenant:application:instance) matching these glob expressions")
	defineStringSlice("ExcludeApplication", "exclude-application", nil, "do not sweep applications matching these glob expressions")
}
