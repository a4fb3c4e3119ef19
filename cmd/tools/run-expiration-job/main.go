// cmd/tools/run-expiration-job/main.go
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"dealer-workers/internal/app"
	"dealer-workers/internal/clock"
	"dealer-workers/internal/common/config"
	"dealer-workers/internal/common/logger"
	"dealer-workers/internal/expiration"
	"dealer-workers/internal/scheduler"
)

func main() {
	configPath := flag.String("config", "", "Path to a config file (default: configs/config.yaml lookup)")
	date := flag.String("date", "", "Platform day to scan as YYYY-MM-DD (default: today in UTC-3)")
	flag.Parse()

	var (
		cfg *config.Config
		err error
	)
	if *configPath != "" {
		cfg, err = config.LoadFromFile(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewStructured(cfg.Logging.Level, cfg.Logging.Format)

	timeout := config.GetDuration(cfg.Jobs.ExpirationTriggers.Timeout)
	ctx, cancel := context.WithTimeout(context.Background(), timeout+time.Minute)
	defer cancel()

	a, err := app.New(ctx, cfg, log, app.Options{ServiceName: "run-expiration-job", Retries: 3})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error starting: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	day := clock.Today(clock.System{})
	if *date != "" {
		day, err = clock.ParseDate(*date)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid -date: %v\n", err)
			os.Exit(2)
		}
	}

	var report *expiration.RunReport
	once := scheduler.New(scheduler.RunnerFunc(func(ctx context.Context) error {
		var runErr error
		report, runErr = a.Job.RunForDate(ctx, day)
		return runErr
	}), scheduler.Config{Name: expiration.JobName, RunTimeout: timeout}, log)
	err = once.RunNow(ctx)

	if report != nil {
		out, _ := json.MarshalIndent(map[string]interface{}{
			"date":        report.Date.String(),
			"templates":   report.Templates,
			"matched":     report.Matched,
			"sent":        report.Sent,
			"skipped":     report.Skipped,
			"failed":      report.Failed,
			"recorded":    report.Recorded,
			"lockSkipped": report.LockSkipped,
			"duration":    report.Duration.String(),
		}, "", "  ")
		fmt.Println(string(out))
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Expiration run failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Expiration run finished with state %s\n", a.Job.State())
}
