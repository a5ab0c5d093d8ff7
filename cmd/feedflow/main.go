package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/go-pkgz/lgr"
	"github.com/jessevdk/go-flags"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/umputun/feedflow/pkg/config"
	"github.com/umputun/feedflow/pkg/content"
	"github.com/umputun/feedflow/pkg/curation"
	"github.com/umputun/feedflow/pkg/feed"
	"github.com/umputun/feedflow/pkg/filter"
	"github.com/umputun/feedflow/pkg/llm"
	"github.com/umputun/feedflow/pkg/metrics"
	"github.com/umputun/feedflow/pkg/scheduler"
	"github.com/umputun/feedflow/pkg/store"
	"github.com/umputun/feedflow/pkg/topic"
	"github.com/umputun/feedflow/server"
)

// Opts with all CLI options
type Opts struct {
	Config string `short:"c" long:"config" env:"CONFIG" description:"configuration file, defaults are used if not set"`
	Listen string `short:"l" long:"listen" env:"LISTEN" description:"listen address, overrides config"`
	DSN    string `long:"dsn" env:"DSN" description:"database connection string, overrides config"`
	NoSeed bool   `long:"no-seed" env:"NO_SEED" description:"start with empty collections"`

	// Common options
	Debug   bool `long:"dbg" env:"DEBUG" description:"debug mode"`
	Version bool `short:"V" long:"version" description:"show version info"`
	NoColor bool `long:"no-color" env:"NO_COLOR" description:"disable color output"`
}

var revision = "unknown"

func main() {
	var opts Opts
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if opts.Version {
		fmt.Printf("Version: %s\nGolang: %s\n", revision, runtime.Version())
		os.Exit(0)
	}

	if opts.NoColor {
		color.NoColor = true
	}
	SetupLog(opts.Debug)

	log.Printf("[INFO] starting feedflow version %s", revision)

	ctx, cancel := context.WithCancel(context.Background())

	// handle termination signals
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan
		log.Print("[INFO] termination signal received")
		cancel()
	}()

	err := run(ctx, opts)
	cancel()

	if err != nil {
		log.Printf("[ERROR] %v", err)
		os.Exit(1)
	}

	log.Print("[INFO] shutdown complete")
}

// run wires all services and blocks until the server stops
func run(ctx context.Context, opts Opts) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.LLM.APIKey != "" {
		SetupLog(opts.Debug, cfg.LLM.APIKey)
	}

	var seed store.SeedProvider = store.EmbeddedSeed{}
	if cfg.Database.NoSeed {
		seed = store.NoSeed{}
	}
	st, err := store.New(ctx, store.Config{
		DSN:             cfg.Database.DSN,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.Database.ConnMaxLifetime) * time.Second,
	}, seed)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Printf("[WARN] failed to close store: %v", err)
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(reg)

	articles := curation.New(st, curation.Opts{Locale: cfg.Curation.Locale})
	filters := filter.New(st, time.Now)
	topics := topic.New(st, time.Now)

	deps := feed.Deps{
		Parser:   feed.NewHTTPParser(cfg.Fetch.Timeout, cfg.Fetch.UserAgent, collector),
		Articles: articles,
		Filters:  filters,
		Topics:   topics,
		Metrics:  collector,
	}
	if cfg.Extraction.Enabled {
		log.Printf("[INFO] full-text extraction enabled")
		deps.Extractor = content.NewHTTPExtractor(content.Options{
			Timeout:   cfg.Extraction.Timeout,
			UserAgent: cfg.Extraction.UserAgent,
			MinLength: cfg.Extraction.MinTextLength,
		})
	}
	if cfg.LLM.Enabled {
		log.Printf("[INFO] llm summaries enabled, model %s", cfg.LLM.Model)
		deps.Summarizer = llm.NewSummarizer(cfg.LLM)
	}
	feeds := feed.NewManager(st, deps, feed.Opts{MaxItems: cfg.Fetch.MaxItems})

	svc := server.Services{
		Articles: articles,
		Feeds:    feeds,
		Filters:  filters,
		Topics:   topics,
		Gatherer: reg,
	}

	if cfg.Schedule.Enabled {
		sched := scheduler.NewScheduler(scheduler.Params{
			Feeds:          feeds,
			UpdateInterval: time.Duration(cfg.Schedule.UpdateInterval) * time.Minute,
			MaxWorkers:     cfg.Schedule.MaxWorkers,
		})
		sched.Start(ctx)
		defer sched.Stop()
		svc.Scheduler = sched
	}

	srv := server.New(cfg.Server, svc, revision, opts.Debug)
	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// loadConfig reads the config file if set, otherwise uses defaults. Command line overrides are applied last.
func loadConfig(opts Opts) (*config.Config, error) {
	cfg := config.Default()
	if opts.Config != "" {
		var err error
		if cfg, err = config.Load(opts.Config); err != nil {
			return nil, err
		}
	}
	if opts.Listen != "" {
		cfg.Server.Listen = opts.Listen
	}
	if opts.DSN != "" {
		cfg.Database.DSN = opts.DSN
	}
	if opts.NoSeed {
		cfg.Database.NoSeed = true
	}
	return cfg, nil
}

// SetupLog configures the global logger, secrets are masked in the output
func SetupLog(dbg bool, secs ...string) {
	logOpts := []lgr.Option{lgr.Msec, lgr.LevelBraces}
	if dbg {
		logOpts = []lgr.Option{lgr.Debug, lgr.CallerFile, lgr.CallerFunc, lgr.Msec, lgr.LevelBraces, lgr.StackTraceOnError}
	}

	colorizer := lgr.Mapper{
		ErrorFunc:  func(s string) string { return color.New(color.FgHiRed).Sprint(s) },
		WarnFunc:   func(s string) string { return color.New(color.FgRed).Sprint(s) },
		InfoFunc:   func(s string) string { return color.New(color.FgYellow).Sprint(s) },
		DebugFunc:  func(s string) string { return color.New(color.FgWhite).Sprint(s) },
		CallerFunc: func(s string) string { return color.New(color.FgBlue).Sprint(s) },
		TimeFunc:   func(s string) string { return color.New(color.FgCyan).Sprint(s) },
	}
	logOpts = append(logOpts, lgr.Map(colorizer))
	if len(secs) > 0 {
		logOpts = append(logOpts, lgr.Secret(secs...))
	}
	lgr.SetupStdLogger(logOpts...)
	lgr.Setup(logOpts...)
}
