// Package dsp converts sample blocks into centered power spectra.
package dsp

import (
	"fmt"
	"math"
	"time"

	"github.com/mjibson/go-dsp/fft"

	"github.com/roman-kulish/rf-detection/internal/sdr"
)

// minMagnitude is the clamp applied to FFT bin magnitudes before the log
// conversion, so that zero-magnitude bins map to a finite floor of
// 20*log10(1e-15) = -300 dB instead of -Inf.
const minMagnitude = 1e-15

// PowerSpectrum holds one analysis pass over a sample block: a frequency
// axis of baseband offsets (Hz, centered, negative below the tuned
// frequency) and the matching power values in dB. Both slices always have
// equal length and Frequencies is monotonically non-decreasing.
type PowerSpectrum struct {
	Timestamp       time.Time // When the source block was captured
	CenterFrequency float64   // Tuned RF center frequency in Hz
	SampleRate      float64   // Sample rate the block was captured at
	Frequencies     []float64 // Baseband frequency offsets in Hz
	Power           []float64 // Power per bin in dB
}

// Len returns the number of frequency bins.
func (p *PowerSpectrum) Len() int {
	return len(p.Power)
}

// BinWidth returns the frequency spacing between adjacent bins in Hz.
func (p *PowerSpectrum) BinWidth() float64 {
	if len(p.Frequencies) == 0 {
		return 0
	}
	return p.SampleRate / float64(len(p.Frequencies))
}

// AbsoluteFrequency returns the RF frequency of bin i in Hz.
func (p *PowerSpectrum) AbsoluteFrequency(i int) float64 {
	return p.CenterFrequency + p.Frequencies[i]
}

// Analyzer computes centered power spectra from sample blocks. Window
// coefficients are generated once per (function, length) pair and reused
// until the block length changes.
type Analyzer struct {
	windowFn        WindowFunction
	centerFrequency float64

	window []float64
}

// NewAnalyzer creates an analyzer using the given window function for
// blocks captured at the given center frequency.
func NewAnalyzer(fn WindowFunction, centerFrequency float64) (*Analyzer, error) {
	if !fn.Valid() {
		return nil, fmt.Errorf("dsp: invalid window function: %s", fn)
	}

	return &Analyzer{
		windowFn:        fn,
		centerFrequency: centerFrequency,
	}, nil
}

// Process transforms one sample block into a power spectrum: windowed
// multiply, DFT, center shift, then per-bin dB conversion. The frequency
// axis is the standard FFT bin layout passed through the same center-shift
// permutation as the power values, so spectrum and axis stay aligned
// bin-for-bin.
func (a *Analyzer) Process(block *sdr.SampleBlock) (*PowerSpectrum, error) {
	n := block.Len()
	if n == 0 {
		return nil, fmt.Errorf("dsp: cannot process an empty block")
	}

	if len(a.window) != n {
		window, err := WindowCoefficients(a.windowFn, n)
		if err != nil {
			return nil, err
		}
		a.window = window
	}

	windowed := make([]complex128, n)
	for i, s := range block.Samples {
		windowed[i] = s * complex(a.window[i], 0)
	}

	bins := centerShift(fft.FFT(windowed))
	freqs := centerShift(binFrequencies(n, block.SampleRate))

	power := make([]float64, n)
	for i, c := range bins {
		mag := math.Hypot(real(c), imag(c))
		if mag < minMagnitude {
			mag = minMagnitude
		}
		power[i] = 20 * math.Log10(mag)
	}

	return &PowerSpectrum{
		Timestamp:       block.Timestamp,
		CenterFrequency: a.centerFrequency,
		SampleRate:      block.SampleRate,
		Frequencies:     freqs,
		Power:           power,
	}, nil
}

// binFrequencies returns the standard FFT bin frequencies for n samples:
// non-negative frequencies first, then the negative half.
func binFrequencies(n int, sampleRate float64) []float64 {
	freqs := make([]float64, n)
	step := sampleRate / float64(n)
	for k := range freqs {
		if k < (n+1)/2 {
			freqs[k] = float64(k) * step
		} else {
			freqs[k] = float64(k-n) * step
		}
	}
	return freqs
}

// centerShift applies the standard fftshift permutation, moving the zero
// frequency bin to the middle of the sequence.
func centerShift[T any](v []T) []T {
	half := len(v) / 2
	out := make([]T, 0, len(v))
	out = append(out, v[len(v)-half:]...)
	return append(out, v[:len(v)-half]...)
}
