package detect

import "time"

// Peak is a single spectral peak that exceeded the detection threshold.
type Peak struct {
	Frequency float64 `json:"frequency"` // RF frequency in Hz
	Power     float64 `json:"power"`     // Power in dB
	Bin       int     `json:"bin"`       // Spectrum bin index the peak was found at
}

// Event records all peaks found in one analysis pass, with a confidence
// score in [0, 1] reflecting how far the detected energy sits above the
// threshold. An Event is created once per qualifying pass and never
// mutated afterwards.
type Event struct {
	Timestamp  time.Time `json:"timestamp"`
	Peaks      []Peak    `json:"peaks"`
	Confidence float64   `json:"confidence"`
}
