package app

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roman-kulish/rf-detection/internal/dsp"
	"github.com/roman-kulish/rf-detection/internal/sdr/rtl"
	"github.com/roman-kulish/rf-detection/internal/sdr/sim"
)

const (
	SourceRTLSDR SourceType = "rtl-sdr"
	SourceSim    SourceType = "sim"
)

type SourceType string

// Config represents the main application configuration
type Config struct {
	Settings  Settings        `yaml:"settings"`
	Source    SourceConfig    `yaml:"source"`
	Detection DetectionConfig `yaml:"detection"`
	Storage   StorageConfig   `yaml:"storage"`
}

// Settings represents global application settings
type Settings struct {
	LogLevel string `yaml:"logLevel"`
}

// SourceConfig selects and configures the sample source
type SourceConfig struct {
	Type SourceType  `yaml:"type"`
	RTL  *rtl.Config `yaml:"rtl"`
	Sim  *sim.Config `yaml:"sim"`
}

// DetectionConfig represents the analysis settings
type DetectionConfig struct {
	BlockSize         int                `yaml:"blockSize"`
	WindowType        dsp.WindowFunction `yaml:"windowType"`
	PowerThreshold    float64            `yaml:"powerThreshold"`
	MinPeakSeparation int                `yaml:"minPeakSeparation"`
}

// StorageConfig represents storage settings. An empty data directory
// disables detection persistence.
type StorageConfig struct {
	DataDirectory string `yaml:"dataDirectory"`
}

func (c *Config) Validate() error {
	switch c.Source.Type {
	case SourceRTLSDR:
		if c.Source.RTL == nil {
			return fmt.Errorf("app.Config: rtl source selected but not configured")
		}
		if err := c.Source.RTL.Validate(); err != nil {
			return err
		}

	case SourceSim:
		if c.Source.Sim == nil {
			return fmt.Errorf("app.Config: sim source selected but not configured")
		}
		if err := c.Source.Sim.Validate(); err != nil {
			return err
		}

	default:
		return fmt.Errorf("app.Config: unknown source type '%s'", c.Source.Type)
	}

	if c.Detection.BlockSize <= 0 {
		return fmt.Errorf("app.Config: block size must be positive: %d", c.Detection.BlockSize)
	}
	if c.Detection.BlockSize&(c.Detection.BlockSize-1) != 0 {
		return fmt.Errorf("app.Config: block size must be a power of two: %d", c.Detection.BlockSize)
	}
	if c.Detection.WindowType == "" {
		c.Detection.WindowType = dsp.WindowRectangle
	}
	if !c.Detection.WindowType.Valid() {
		return fmt.Errorf("app.Config: invalid window function: %s", c.Detection.WindowType)
	}
	if c.Detection.PowerThreshold == 0 {
		return fmt.Errorf("app.Config: power threshold must not be zero")
	}
	if c.Detection.MinPeakSeparation < 1 {
		return fmt.Errorf("app.Config: minimum peak separation must be at least 1 bin: %d", c.Detection.MinPeakSeparation)
	}

	return nil
}

// LogLevel parses the configured log level, defaulting to info.
func (c *Config) LogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Settings.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// LoadConfig reads and validates the YAML configuration file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading configuration: %w", err)
	}

	var config Config
	if err = yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}
	if err = config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}
