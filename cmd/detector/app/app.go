package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/roman-kulish/rf-detection/internal/detect"
	"github.com/roman-kulish/rf-detection/internal/dsp"
	"github.com/roman-kulish/rf-detection/internal/monitor"
	"github.com/roman-kulish/rf-detection/internal/sdr"
	"github.com/roman-kulish/rf-detection/internal/sdr/rtl"
	"github.com/roman-kulish/rf-detection/internal/sdr/sim"
	"github.com/roman-kulish/rf-detection/internal/storage"
)

const storageDir = "data"

// Run wires the sample source, analyzer, detector and ledger into a
// monitor and keeps it running until the context is cancelled.
func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	source, deviceType, deviceID, centerFreq, err := createSource(config, logger)
	if err != nil {
		return fmt.Errorf("failed to create sample source: %w", err)
	}

	analyzer, err := dsp.NewAnalyzer(config.Detection.WindowType, centerFreq)
	if err != nil {
		return fmt.Errorf("failed to create analyzer: %w", err)
	}

	detector, err := detect.NewDetector(config.Detection.PowerThreshold, config.Detection.MinPeakSeparation)
	if err != nil {
		return fmt.Errorf("failed to create detector: %w", err)
	}

	ledger := detect.NewLedger()

	var store storage.Store
	var sessionID int64
	if config.Storage.DataDirectory != "" {
		if store, err = createStorage(&config.Storage); err != nil {
			return fmt.Errorf("failed to create storage: %w", err)
		}
		defer store.Close()

		if sessionID, err = store.CreateSession(ctx, deviceType, deviceID, config.Source); err != nil {
			return fmt.Errorf("failed to create session: %w", err)
		}
	}

	sink := func(event *detect.Event) {
		for _, peak := range event.Peaks {
			logger.Info("peak",
				slog.String("frequency", humanize.SIWithDigits(peak.Frequency, 2, "Hz")),
				slog.String("power", fmt.Sprintf("%0.1fdB", peak.Power)))
		}

		if store == nil {
			return
		}
		if _, err := store.StoreDetection(ctx, sessionID, event); err != nil {
			logger.Error(fmt.Sprintf("storing detection: %s", err))
		}
	}

	mon, err := monitor.New(source, analyzer, detector, ledger, config.Detection.BlockSize,
		monitor.WithLogger(logger), monitor.WithSink(sink))
	if err != nil {
		return fmt.Errorf("failed to create monitor: %w", err)
	}

	if err = mon.Start(ctx); err != nil {
		return fmt.Errorf("failed to start monitoring: %w", err)
	}

	<-ctx.Done()
	mon.Stop()

	if err = mon.LastErr(); err != nil {
		return fmt.Errorf("monitoring terminated: %w", err)
	}

	logger.Info("session finished", slog.Int("detections", ledger.Len()))
	return nil
}

func createSource(config *Config, logger *slog.Logger) (source sdr.Source, deviceType, deviceID string, centerFreq float64, err error) {
	switch config.Source.Type {
	case SourceRTLSDR:
		source, err = rtl.New(config.Source.RTL, rtl.WithLogger(logger))
		if err != nil {
			return nil, "", "", 0, fmt.Errorf("creating RTL-SDR source: %w", err)
		}
		return source, string(SourceRTLSDR), strconv.Itoa(config.Source.RTL.DeviceIndex), float64(config.Source.RTL.CenterFrequency), nil

	case SourceSim:
		source, err = sim.New(config.Source.Sim)
		if err != nil {
			return nil, "", "", 0, fmt.Errorf("creating simulated source: %w", err)
		}
		return source, string(SourceSim), strconv.FormatInt(config.Source.Sim.Seed, 10), 0, nil

	default:
		return nil, "", "", 0, fmt.Errorf("creating source: unknown type '%s'", config.Source.Type)
	}
}

func createStorage(config *StorageConfig) (storage.Store, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get current working directory: %w", err)
	}

	var dbPath string
	if config.DataDirectory != "" {
		dbPath = filepath.Join(wd, config.DataDirectory)
	} else {
		dbPath = filepath.Join(wd, storageDir)
	}

	stat, err := os.Stat(dbPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("storage directory '%s' does not exist: %w", dbPath, err)
		}
		return nil, fmt.Errorf("invalid storage directory '%s': %w", dbPath, err)
	}
	if !stat.IsDir() {
		return nil, fmt.Errorf("invalid storage directory '%s'", dbPath)
	}

	dbPath = filepath.Join(dbPath, fmt.Sprintf("detections_%s.sqlite", time.Now().UTC().Format("20060102_150405")))
	return storage.NewSqliteStore(dbPath), nil
}
