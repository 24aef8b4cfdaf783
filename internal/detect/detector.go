// Package detect scans power spectra for peaks above a configured
// threshold and records qualifying passes as detection events.
package detect

import (
	"fmt"
	"sort"

	"github.com/roman-kulish/rf-detection/internal/dsp"
)

// Detector finds local maxima above a power threshold, keeping peaks at
// least a minimum number of bins apart.
type Detector struct {
	threshold     float64 // Power threshold in dB, never zero
	minSeparation int     // Minimum distance between accepted peaks in bins
}

// NewDetector creates a detector. The threshold must be nonzero since the
// confidence score divides by its absolute value, and the separation must
// be at least one bin.
func NewDetector(threshold float64, minSeparation int) (*Detector, error) {
	if threshold == 0 {
		return nil, fmt.Errorf("detect: power threshold must not be zero")
	}
	if minSeparation < 1 {
		return nil, fmt.Errorf("detect: minimum peak separation must be at least 1 bin: %d", minSeparation)
	}

	return &Detector{
		threshold:     threshold,
		minSeparation: minSeparation,
	}, nil
}

// Threshold returns the configured power threshold in dB.
func (d *Detector) Threshold() float64 {
	return d.threshold
}

// Detect scans one spectrum for qualifying peaks. It returns the detection
// event and true when at least one peak survives, or (nil, false) when the
// pass produced no detection. A no-detection pass has no side effects.
func (d *Detector) Detect(spec *dsp.PowerSpectrum) (*Event, bool) {
	candidates := d.findCandidates(spec.Power)
	if len(candidates) == 0 {
		return nil, false
	}

	accepted := d.suppress(candidates, spec.Power)
	if len(accepted) == 0 {
		return nil, false
	}

	peaks := make([]Peak, len(accepted))
	var sum float64
	for i, bin := range accepted {
		peaks[i] = Peak{
			Frequency: spec.AbsoluteFrequency(bin),
			Power:     spec.Power[bin],
			Bin:       bin,
		}
		sum += spec.Power[bin]
	}

	return &Event{
		Timestamp:  spec.Timestamp,
		Peaks:      peaks,
		Confidence: d.confidence(sum / float64(len(accepted))),
	}, true
}

// findCandidates returns the bins that strictly exceed the threshold and
// are local maxima: no immediate neighbor has strictly greater power.
// Boundary bins are compared against their single available neighbor.
func (d *Detector) findCandidates(power []float64) []int {
	var candidates []int
	for i, p := range power {
		if p <= d.threshold {
			continue
		}
		if i > 0 && power[i-1] > p {
			continue
		}
		if i < len(power)-1 && power[i+1] > p {
			continue
		}
		candidates = append(candidates, i)
	}
	return candidates
}

// suppress greedily accepts candidates by descending power, discarding any
// remaining candidate closer than the minimum separation to an accepted
// one. Equal-power candidates are considered in bin order, so ties go to
// the lower index. The surviving bins are returned in ascending order.
func (d *Detector) suppress(candidates []int, power []float64) []int {
	ranked := make([]int, len(candidates))
	copy(ranked, candidates)
	sort.SliceStable(ranked, func(i, j int) bool {
		if power[ranked[i]] != power[ranked[j]] {
			return power[ranked[i]] > power[ranked[j]]
		}
		return ranked[i] < ranked[j]
	})

	var accepted []int
	for _, bin := range ranked {
		ok := true
		for _, kept := range accepted {
			if abs(bin-kept) < d.minSeparation {
				ok = false
				break
			}
		}
		if ok {
			accepted = append(accepted, bin)
		}
	}

	sort.Ints(accepted)
	return accepted
}

// confidence maps the mean accepted power to [0, 1]: zero when the mean
// barely clears the threshold, saturating at one for very strong signals.
func (d *Detector) confidence(meanPower float64) float64 {
	c := (meanPower - d.threshold) / absFloat(d.threshold)
	return min(max(c, 0), 1)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
