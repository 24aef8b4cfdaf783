package rtl

import (
	"fmt"
	"strconv"
)

const (
	// SampleRateMin and SampleRateMax bound the rates the rtl_sdr tool
	// accepts for continuous capture.
	SampleRateMin = 225_001
	SampleRateMax = 3_200_000

	// FrequencyMin and FrequencyMax are the tunable range of the RTL2832U
	// with an R820T tuner.
	FrequencyMin = 24_000_000
	FrequencyMax = 1_766_000_000
)

// Config is the `rtl_sdr` capture tool configuration. The tool streams raw
// interleaved unsigned 8-bit I/Q samples to stdout.
//
// See `man rtl_sdr` for more information:
// https://manpages.debian.org/bookworm/rtl-sdr/rtl_sdr.1.en.html
type Config struct {
	// Required
	SampleRate      int64 `yaml:"sampleRate" json:"sampleRate"`           // -s sample rate (Hz)
	CenterFrequency int64 `yaml:"centerFrequency" json:"centerFrequency"` // -f center frequency (Hz)

	// Common Optional Parameters
	DeviceIndex int     `yaml:"deviceIndex" json:"deviceIndex"` // -d device_index (default: 0)
	Gain        float64 `yaml:"gain" json:"gain"`               // -g tuner_gain (default: automatic)
	PPMError    int     `yaml:"ppmError" json:"ppmError"`       // -p ppm_error (default: 0)

	// Hardware Options
	BiasTee bool `yaml:"biasTee" json:"biasTee"` // -T enable bias-tee (default: off)
}

func (c *Config) Validate() error {
	if c.SampleRate < SampleRateMin || c.SampleRate > SampleRateMax {
		return fmt.Errorf("rtl.Config: invalid sample rate: %d, must be between %d and %d Hz", c.SampleRate, SampleRateMin, SampleRateMax)
	}
	if c.CenterFrequency < FrequencyMin || c.CenterFrequency > FrequencyMax {
		return fmt.Errorf("rtl.Config: invalid center frequency: %d, must be between %d and %d Hz", c.CenterFrequency, FrequencyMin, FrequencyMax)
	}
	if c.DeviceIndex < 0 {
		return fmt.Errorf("rtl.Config: device index must not be negative: %d", c.DeviceIndex)
	}
	if c.Gain < 0 {
		return fmt.Errorf("rtl.Config: gain must not be negative: %0.1f", c.Gain)
	}
	return nil
}

// Args returns the command line arguments for `rtl_sdr`. The trailing "-"
// directs the sample stream to stdout.
func (c *Config) Args() ([]string, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	args := []string{
		"-f", strconv.FormatInt(c.CenterFrequency, 10),
		"-s", strconv.FormatInt(c.SampleRate, 10),
	}

	if c.DeviceIndex > 0 {
		args = append(args, "-d", strconv.Itoa(c.DeviceIndex))
	}
	if c.Gain > 0 {
		args = append(args, "-g", strconv.FormatFloat(c.Gain, 'f', 1, 64))
	}
	if c.PPMError != 0 {
		args = append(args, "-p", strconv.Itoa(c.PPMError))
	}
	if c.BiasTee {
		args = append(args, "-T")
	}

	return append(args, "-"), nil
}
