package dsp

import (
	"fmt"
	"math"
)

const (
	// WindowRectangle is the default window function
	WindowRectangle      WindowFunction = "rectangle"
	WindowHann           WindowFunction = "hann"
	WindowHamming        WindowFunction = "hamming"
	WindowBlackman       WindowFunction = "blackman"
	WindowBlackmanHarris WindowFunction = "blackman-harris"
)

var validWindowFunctions = map[WindowFunction]struct{}{
	WindowRectangle:      {},
	WindowHann:           {},
	WindowHamming:        {},
	WindowBlackman:       {},
	WindowBlackmanHarris: {},
}

type WindowFunction string

func (w WindowFunction) String() string {
	return string(w)
}

// Valid reports whether w names a supported window function.
func (w WindowFunction) Valid() bool {
	_, ok := validWindowFunctions[w]
	return ok
}

// WindowCoefficients returns the symmetric coefficient sequence of the
// window function for a block of n samples. The result depends only on
// (fn, n): regenerating for the same pair is numerically identical.
func WindowCoefficients(fn WindowFunction, n int) ([]float64, error) {
	if n <= 0 {
		return nil, fmt.Errorf("dsp: window length must be positive: %d", n)
	}
	if !fn.Valid() {
		return nil, fmt.Errorf("dsp: invalid window function: %s", fn)
	}

	w := make([]float64, n)
	if n == 1 {
		w[0] = 1
		return w, nil
	}

	m := float64(n - 1)
	for i := range w {
		x := 2 * math.Pi * float64(i) / m

		switch fn {
		case WindowRectangle:
			w[i] = 1
		case WindowHann:
			w[i] = 0.5 * (1 - math.Cos(x))
		case WindowHamming:
			w[i] = 0.54 - 0.46*math.Cos(x)
		case WindowBlackman:
			w[i] = 0.42 - 0.5*math.Cos(x) + 0.08*math.Cos(2*x)
		case WindowBlackmanHarris:
			w[i] = 0.35875 - 0.48829*math.Cos(x) + 0.14128*math.Cos(2*x) - 0.01168*math.Cos(3*x)
		}
	}

	return w, nil
}
