package app

import (
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"log/slog"
	"os"

	"github.com/dustin/go-humanize"

	"github.com/roman-kulish/rf-detection/internal/detect"
	"github.com/roman-kulish/rf-detection/internal/dsp"
	"github.com/roman-kulish/rf-detection/internal/sdr/sim"
)

// Run generates one block of the configured test signal, runs it through
// the analysis pipeline and renders the resulting spectrum to an image.
func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	source, err := sim.New(&sim.Config{
		SampleRate:     config.SampleRate,
		Seed:           config.Seed,
		NoiseAmplitude: config.NoiseAmplitude,
		Tones:          config.Tones,
		Blocks:         1,
	})
	if err != nil {
		return fmt.Errorf("creating signal source: %w", err)
	}

	analyzer, err := dsp.NewAnalyzer(config.WindowType, 0)
	if err != nil {
		return fmt.Errorf("creating analyzer: %w", err)
	}

	detector, err := detect.NewDetector(config.PowerThreshold, config.MinPeakSeparation)
	if err != nil {
		return fmt.Errorf("creating detector: %w", err)
	}

	if err = source.Open(ctx); err != nil {
		return fmt.Errorf("opening signal source: %w", err)
	}
	defer source.Close()

	block, err := source.ReadBlock(ctx, config.BlockSize)
	if err != nil {
		return fmt.Errorf("reading block: %w", err)
	}

	spec, err := analyzer.Process(block)
	if err != nil {
		return fmt.Errorf("processing block: %w", err)
	}

	event, ok := detector.Detect(spec)
	if !ok {
		logger.Info("no peaks above threshold",
			slog.Float64("threshold", config.PowerThreshold))
	} else {
		for _, peak := range event.Peaks {
			logger.Info("peak",
				slog.String("frequency", humanize.SIWithDigits(peak.Frequency, 2, "Hz")),
				slog.String("power", fmt.Sprintf("%0.1fdB", peak.Power)))
		}
		logger.Info("detection", slog.Float64("confidence", event.Confidence))
	}

	renderer, err := NewSpectrumRenderer(config.PlotHeight, config.FontFile)
	if err != nil {
		return fmt.Errorf("creating renderer: %w", err)
	}

	img, err := renderer.Render(spec, event, config.PowerThreshold)
	if err != nil {
		return fmt.Errorf("rendering spectrum: %w", err)
	}

	if err = writeImage(config.OutputFile, config.Format, img); err != nil {
		return fmt.Errorf("writing image: %w", err)
	}

	logger.Info("spectrum rendered", slog.String("file", config.OutputFile))
	return nil
}

func writeImage(path string, format ImageFormat, img *image.RGBA) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cErr := f.Close(); cErr != nil && err == nil {
			err = cErr
		}
	}()

	switch format {
	case ImageJPEG:
		return jpeg.Encode(f, img, &jpeg.Options{Quality: 90})
	default:
		return png.Encode(f, img)
	}
}
