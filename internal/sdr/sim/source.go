// Package sim provides a deterministic synthetic sample source used to
// exercise the detection pipeline without radio hardware.
package sim

import (
	"context"
	"fmt"
	"io"
	"math"
	"math/cmplx"
	"math/rand"
	"time"

	"github.com/roman-kulish/rf-detection/internal/sdr"
)

// Tone is a single complex exponential mixed into the generated signal.
// Frequency is a baseband offset in Hz and may be negative.
type Tone struct {
	Frequency float64 `yaml:"frequency" json:"frequency"`
	Amplitude float64 `yaml:"amplitude" json:"amplitude"`
}

// Config describes the synthetic signal: a fixed set of superposed tones
// plus Gaussian I/Q noise. Seed is an explicit input so generated blocks
// are reproducible; the source never touches the global RNG.
type Config struct {
	SampleRate     float64 `yaml:"sampleRate" json:"sampleRate"`
	Seed           int64   `yaml:"seed" json:"seed"`
	NoiseAmplitude float64 `yaml:"noiseAmplitude" json:"noiseAmplitude"`
	Tones          []Tone  `yaml:"tones" json:"tones"`

	// Blocks limits how many blocks the source will produce before reads
	// fail with a wrapped io.EOF. Zero means unlimited.
	Blocks int `yaml:"blocks" json:"blocks"`
}

func (c *Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("sim.Config: sample rate must be positive: %f", c.SampleRate)
	}
	if c.NoiseAmplitude < 0 {
		return fmt.Errorf("sim.Config: noise amplitude must not be negative: %f", c.NoiseAmplitude)
	}
	if c.Blocks < 0 {
		return fmt.Errorf("sim.Config: blocks must not be negative: %d", c.Blocks)
	}
	for i, tone := range c.Tones {
		if math.Abs(tone.Frequency) >= c.SampleRate/2 {
			return fmt.Errorf("sim.Config: tone %d frequency %f exceeds Nyquist for sample rate %f", i, tone.Frequency, c.SampleRate)
		}
	}
	return nil
}

// Source generates sample blocks from the configured tones. It implements
// sdr.Source. Tone phase is continuous across consecutive blocks.
type Source struct {
	config *Config

	rng    *rand.Rand
	sample int64 // absolute index of the next sample
	read   int   // blocks produced so far
	open   bool
}

// New creates a new synthetic source
func New(config *Config) (*Source, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", sdr.ErrConfigure, err)
	}

	return &Source{config: config}, nil
}

func (s *Source) Open(_ context.Context) error {
	if s.open {
		return fmt.Errorf("%w: source is already open", sdr.ErrOpen)
	}

	s.rng = rand.New(rand.NewSource(s.config.Seed))
	s.sample = 0
	s.read = 0
	s.open = true
	return nil
}

func (s *Source) ReadBlock(ctx context.Context, n int) (*sdr.SampleBlock, error) {
	if !s.open {
		return nil, fmt.Errorf("%w: source is not open", sdr.ErrRead)
	}
	if n <= 0 {
		return nil, fmt.Errorf("%w: invalid block size %d", sdr.ErrRead, n)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", sdr.ErrRead, err)
	}
	if s.config.Blocks > 0 && s.read >= s.config.Blocks {
		return nil, fmt.Errorf("%w: signal exhausted: %w", sdr.ErrRead, io.EOF)
	}

	block := sdr.SampleBlock{
		Timestamp:  time.Now(),
		SampleRate: s.config.SampleRate,
		Samples:    make([]complex128, n),
	}

	for i := 0; i < n; i++ {
		t := float64(s.sample+int64(i)) / s.config.SampleRate

		var v complex128
		for _, tone := range s.config.Tones {
			v += complex(tone.Amplitude, 0) * cmplx.Exp(complex(0, 2*math.Pi*tone.Frequency*t))
		}
		if s.config.NoiseAmplitude > 0 {
			v += complex(
				s.rng.NormFloat64()*s.config.NoiseAmplitude,
				s.rng.NormFloat64()*s.config.NoiseAmplitude,
			)
		}

		block.Samples[i] = v
	}

	s.sample += int64(n)
	s.read++
	return &block, nil
}

func (s *Source) Close() error {
	s.open = false
	return nil
}
