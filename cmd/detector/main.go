package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/roman-kulish/rf-detection/cmd/detector/app"
)

func main() {
	var logLevel slog.LevelVar
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: &logLevel}))

	var (
		configPath    string
		dbPath        string
		sessionID     int64
		since         time.Duration
		minConfidence float64
	)
	flag.StringVar(&configPath, "c", "", "Path to the configuration file")
	flag.StringVar(&dbPath, "db", "", "Report on a detection database instead of monitoring")
	flag.Int64Var(&sessionID, "session", 0, "Session to report on; 0 lists the recorded sessions")
	flag.DurationVar(&since, "since", 0, "Only report detections newer than this")
	flag.Float64Var(&minConfidence, "min-confidence", 0, "Only report detections at or above this confidence")
	flag.Parse()

	if dbPath != "" {
		report := app.ReportConfig{
			DBPath:        dbPath,
			SessionID:     sessionID,
			Since:         since,
			MinConfidence: minConfidence,
		}
		if err := app.Report(context.Background(), &report, os.Stdout); err != nil {
			logger.Error(err.Error())
			os.Exit(1)
		}
		return
	}

	if configPath == "" {
		logger.Error("no configuration file provided")
		os.Exit(1)
	}

	config, err := app.LoadConfig(configPath)
	if err != nil {
		logger.Error(fmt.Sprintf("failed to load configuration file: %s", err.Error()), slog.String("path", configPath))
		os.Exit(1)
	}

	logLevel.Set(config.LogLevel())

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err = app.Run(ctx, config, logger); err != nil {
		logger.Error(err.Error())

		cancel()
		os.Exit(1)
	}
}
