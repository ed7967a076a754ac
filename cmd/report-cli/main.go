package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/radiusdt/growth-report/internal/app"
	"github.com/radiusdt/growth-report/internal/config"
	"github.com/radiusdt/growth-report/internal/middleware"
	"github.com/radiusdt/growth-report/internal/report"
	"go.uber.org/zap"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return 1
	}

	projectName := flag.String("project", cfg.Report.DefaultProject, "project to build the report for")
	format := flag.String("format", "csv", "output format: csv or json")
	includeLastWeek := flag.String("include-last-week", "", "true or false to override the weekday rule")
	flag.Parse()

	var opts report.Options
	switch *includeLastWeek {
	case "":
	case "true", "false":
		v := *includeLastWeek == "true"
		opts.IncludeLastWeek = &v
	default:
		fmt.Fprintln(os.Stderr, "-include-last-week must be true or false")
		return 2
	}
	if *format != "csv" && *format != "json" {
		fmt.Fprintln(os.Stderr, "-format must be csv or json")
		return 2
	}

	// zap writes to stderr, stdout carries only the report
	logger, err := middleware.NewLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		return 1
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, nil, logger)
	if err != nil {
		logger.Error("failed to initialize", zap.Error(err))
		return 1
	}
	defer a.Close()

	rep, err := a.Reports.Generate(ctx, *projectName, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error during processing: %v\n", err)
		return 1
	}
	if rep.Empty() {
		fmt.Fprintf(os.Stderr, "no data for %s in the selected period\n", rep.Project)
	}

	if *format == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		err = enc.Encode(rep)
	} else {
		err = report.WriteCSV(os.Stdout, rep)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "write report: %v\n", err)
		return 1
	}
	return 0
}
