package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/GruntingRhino/Athlemetry/internal/loadtest"
	"github.com/GruntingRhino/Athlemetry/pkg/logger"
)

// Default configuration constants.
const (
	defaultAthletes    = 40
	defaultPerAthlete  = 3
	defaultWorkers     = 2 // multiplier for runtime.NumCPU()
	defaultTimeout     = 30 * time.Second
	defaultTestTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:9080", "Base URL of the service")
		athletes   = flag.Int("athletes", defaultAthletes, "Number of athletes to register")
		perAthlete = flag.Int("per-athlete", defaultPerAthlete, "Sprint videos uploaded per athlete")
		workers    = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent uploaders")
		timeout    = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		outputFile = flag.String("output", "", "Report file (default: loadtest_report_TIMESTAMP.json)")
		verbose    = flag.Bool("verbose", false, "Log every failed request")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		loadtest.ShowHelp()
		return
	}

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), defaultTestTimeout)
	defer cancel()

	config := &loadtest.Config{
		BaseURL:               *baseURL,
		Athletes:              *athletes,
		SubmissionsPerAthlete: *perAthlete,
		Workers:               *workers,
		Timeout:               *timeout,
		OutputFile:            *outputFile,
		Verbose:               *verbose,
	}

	if _, err := loadtest.Run(ctx, config); err != nil {
		logger.Get().Error(ctx, "load run failed", logger.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}
