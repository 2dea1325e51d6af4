package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/go-kit/kit/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/time/rate"

	"github.com/vespa-cd/controller/pkg/buildsystem"
	"github.com/vespa-cd/controller/pkg/config"
	"github.com/vespa-cd/controller/pkg/controller"
	"github.com/vespa-cd/controller/pkg/http/server"
	"github.com/vespa-cd/controller/pkg/store"
	"github.com/vespa-cd/controller/pkg/trigger"
)

var version = "unversioned"

func usage(fs *pflag.FlagSet) func() {
	return func() {
		fmt.Fprintf(os.Stderr, "DESCRIPTION\n")
		fmt.Fprintf(os.Stderr, "  deploy-controller rolls changes out to applications, by triggering\n")
		fmt.Fprintf(os.Stderr, "  their test and production jobs in the order their deployment specs say.\n")
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "FLAGS\n")
		fs.PrintDefaults()
	}
}

func main() {
	bail := func(err error) {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(1)
	}

	fs := pflag.NewFlagSet("default", pflag.ContinueOnError)
	fs.Usage = usage(fs)

	v := viper.New()
	var (
		configFile  = fs.String("config-file", "", fmt.Sprintf("path to a config file (e.g., %s/%s); flags given on the command line take precedence", config.ConfigPath, config.ConfigName))
		versionFlag = fs.Bool("version", false, "get version number")
	)
	defineConfigFlags(fs, v, bail)

	err := fs.Parse(os.Args[1:])
	switch {
	case err == pflag.ErrHelp:
		os.Exit(0)
	case err != nil:
		bail(err)
	case *versionFlag:
		fmt.Println(version)
		os.Exit(0)
	}

	v.SetEnvPrefix("DEPLOY_CONTROLLER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if *configFile != "" {
		v.SetConfigFile(*configFile)
		v.SetConfigType(config.ConfigType)
		if err := v.ReadInConfig(); err != nil {
			bail(err)
		}
	}
	var cfg config.Config
	if err := v.Unmarshal(&cfg); err != nil {
		bail(err)
	}
	if *configFile != "" {
		if err := cfg.IsValid(); err != nil {
			bail(err)
		}
	}
	if err := cfg.Check(); err != nil {
		bail(err)
	}

	// Logger component.
	var logger log.Logger
	{
		switch cfg.LogFormat {
		case "json":
			logger = log.NewJSONLogger(log.NewSyncWriter(os.Stderr))
		default:
			logger = log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
		}
		logger = log.With(logger, "ts", log.DefaultTimestampUTC)
		logger = log.With(logger, "caller", log.DefaultCaller)
	}
	logger.Log("version", version)

	// Application store; we must fail if we can't have one, since
	// everything depends on it.
	var st store.ApplicationStore
	var closeStore func() error
	{
		if cfg.DatabaseURL == "" {
			logger.Log("component", "store", "kind", "memory")
			st = store.NewMemoryStore()
		} else {
			s, err := store.Open(cfg.DatabaseURL)
			if err != nil {
				logger.Log("component", "store", "err", err)
				os.Exit(1)
			}
			driver, _ := store.DriverForURL(cfg.DatabaseURL)
			logger.Log("component", "store", "kind", "sql", "driver", driver)
			st = s
			closeStore = s.Close
		}
		st = store.Instrument(st)
	}

	queue := buildsystem.NewQueue()

	var limiter *rate.Limiter
	if cfg.SweepRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.SweepRPS), cfg.SweepBurst)
	}
	includer := controller.ExcludeIncludeGlob{
		Include: cfg.IncludeApplication,
		Exclude: cfg.ExcludeApplication,
	}

	deployments := trigger.New(trigger.Config{
		Store:             st,
		BuildSystem:       buildsystem.Instrument(queue),
		Logger:            log.With(logger, "component", "trigger"),
		System:            cfg.System,
		JobTimeout:        cfg.JobTimeout,
		CreateOnComponent: cfg.CreateOnComponent,
		Include:           includer.IsIncluded,
		Limiter:           limiter,
	})
	logger.Log("component", "trigger", "system", cfg.System, "job-timeout", deployments.JobTimeout())

	loop := &controller.Loop{
		Sweeper:       deployments,
		SweepInterval: cfg.SweepInterval,
		SweepTimeout:  cfg.SweepTimeout,
		Logger:        log.With(logger, "component", "sweep"),
	}

	apiServer := &controller.Server{
		Trigger: deployments,
		Store:   st,
		Queue:   queue,
		Loop:    loop,
		Logger:  log.With(logger, "component", "queue"),
	}

	// Mechanical components.

	// When we can receive from this channel, it indicates that we
	// are ready to shut down.
	errc := make(chan error)
	// This signals other routines to shut down;
	shutdown := make(chan struct{})
	// .. and this is to wait for other routines to shut down cleanly.
	shutdownWg := &sync.WaitGroup{}

	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
		errc <- fmt.Errorf("%s", <-c)
	}()

	shutdownWg.Add(1)
	go loop.Run(shutdown, shutdownWg)

	// Serve the API, and metrics, on the same listener unless told
	// otherwise.
	go func() {
		mux := http.DefaultServeMux
		if cfg.ListenMetrics == "" {
			mux.Handle("/metrics", promhttp.Handler())
		}
		mux.Handle("/v1/", server.NewHandler(apiServer, server.NewRouter()))
		logger.Log("addr", cfg.Listen)
		errc <- http.ListenAndServe(cfg.Listen, mux)
	}()

	if cfg.ListenMetrics != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			logger.Log("metrics-addr", cfg.ListenMetrics)
			errc <- http.ListenAndServe(cfg.ListenMetrics, mux)
		}()
	}

	// Go!
	logger.Log("exiting", <-errc)
	close(shutdown)
	shutdownWg.Wait()
	if closeStore != nil {
		if err := closeStore(); err != nil {
			logger.Log("component", "store", "err", err)
		}
	}
}
