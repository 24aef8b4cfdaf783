package app

import (
	"errors"
	"flag"
	"fmt"
	"strconv"
	"strings"

	"github.com/roman-kulish/rf-detection/internal/dsp"
	"github.com/roman-kulish/rf-detection/internal/sdr/sim"
)

const (
	ImagePNG  = "png"
	ImageJPEG = "jpeg"
)

type ImageFormat string

var validImageFormats = map[ImageFormat]struct{}{
	ImagePNG:  {},
	ImageJPEG: {},
}

type Config struct {
	OutputFile string
	Format     ImageFormat
	FontFile   string
	PlotHeight int

	SampleRate     float64
	BlockSize      int
	Seed           int64
	NoiseAmplitude float64
	Tones          []sim.Tone

	WindowType        dsp.WindowFunction
	PowerThreshold    float64
	MinPeakSeparation int
}

func NewConfig() *Config {
	return &Config{
		Format:            ImagePNG,
		PlotHeight:        400,
		SampleRate:        2_048_000,
		BlockSize:         1024,
		NoiseAmplitude:    0.001,
		WindowType:        dsp.WindowHann,
		PowerThreshold:    18,
		MinPeakSeparation: 20,
	}
}

func NewConfigFromCLI() (*Config, error) {
	c := NewConfig()

	var imageFormat, windowType, tones string
	flag.StringVar(&c.OutputFile, "o", "", "Path to the output file")
	flag.StringVar(&imageFormat, "f", string(ImagePNG), "Output image format. [png, jpeg]")
	flag.StringVar(&c.FontFile, "font", "", "Path to a TTF font for axis labels (optional)")
	flag.IntVar(&c.PlotHeight, "height", c.PlotHeight, "Plot area height in pixels")
	flag.Float64Var(&c.SampleRate, "rate", c.SampleRate, "Sample rate in Hz")
	flag.IntVar(&c.BlockSize, "n", c.BlockSize, "Block size in samples")
	flag.Int64Var(&c.Seed, "seed", 0, "Noise generator seed")
	flag.Float64Var(&c.NoiseAmplitude, "noise", c.NoiseAmplitude, "Gaussian noise amplitude")
	flag.StringVar(&tones, "tones", "100000:0.05,300000:0.05", "Test tones as freq:amplitude pairs")
	flag.StringVar(&windowType, "window", string(c.WindowType), "Window function")
	flag.Float64Var(&c.PowerThreshold, "threshold", c.PowerThreshold, "Power threshold in dB")
	flag.IntVar(&c.MinPeakSeparation, "sep", c.MinPeakSeparation, "Minimum peak separation in bins")
	flag.Parse()

	var err error
	if c.OutputFile == "" {
		err = errors.New("output file is required")
	} else if _, ok := validImageFormats[ImageFormat(strings.ToLower(imageFormat))]; !ok {
		err = fmt.Errorf("invalid image format: %s", imageFormat)
	} else if c.Tones, err = parseTones(tones); err == nil {
		if c.PowerThreshold == 0 {
			err = errors.New("power threshold must not be zero")
		} else if !dsp.WindowFunction(windowType).Valid() {
			err = fmt.Errorf("invalid window function: %s", windowType)
		}
	}

	if err != nil {
		flag.Usage()
		return nil, err
	}

	c.Format = ImageFormat(strings.ToLower(imageFormat))
	c.WindowType = dsp.WindowFunction(windowType)
	c.OutputFile = outputFileName(c.OutputFile, c.Format)
	return c, nil
}

// outputFileName appends the format extension unless the path already
// carries it.
func outputFileName(path string, format ImageFormat) string {
	ext := "." + string(format)
	if strings.HasSuffix(strings.ToLower(path), ext) {
		return path
	}
	return path + ext
}

// parseTones parses a comma separated list of frequency:amplitude pairs,
// e.g. "100000:0.05,-300000:0.1".
func parseTones(s string) ([]sim.Tone, error) {
	if strings.TrimSpace(s) == "" {
		return nil, errors.New("at least one tone is required")
	}

	var tones []sim.Tone
	for _, pair := range strings.Split(s, ",") {
		parts := strings.SplitN(strings.TrimSpace(pair), ":", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid tone '%s', expected freq:amplitude", pair)
		}

		freq, err := strconv.ParseFloat(parts[0], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid tone frequency '%s': %w", parts[0], err)
		}

		amp, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid tone amplitude '%s': %w", parts[1], err)
		}

		tones = append(tones, sim.Tone{Frequency: freq, Amplitude: amp})
	}

	return tones, nil
}
