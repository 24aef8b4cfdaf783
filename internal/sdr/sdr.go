package sdr

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrOpen is returned when a sample source cannot be opened.
	ErrOpen = errors.New("sdr: open failed")

	// ErrRead is returned when reading a sample block from an open source fails.
	ErrRead = errors.New("sdr: read failed")

	// ErrConfigure is returned when a source rejects its configuration.
	ErrConfigure = errors.New("sdr: configure failed")
)

// SampleBlock is one fixed-size batch of complex baseband samples, tagged
// with the sample rate in effect when it was captured. A block is immutable
// once produced; ownership passes to the pipeline stage processing it.
type SampleBlock struct {
	Timestamp  time.Time    // When the block was read
	SampleRate float64      // Samples per second at capture time
	Samples    []complex128 // Interleaved I/Q as complex values
}

// Len returns the number of samples in the block.
func (b *SampleBlock) Len() int {
	return len(b.Samples)
}

// Source supplies fixed-size blocks of complex samples from a radio
// frontend. Implementations report failures by wrapping ErrOpen, ErrRead
// or ErrConfigure; the caller never retries a failed operation.
//
// A Source is exclusively owned by a single goroutine between Open and
// Close.
type Source interface {
	// Open prepares the source for reading. Opening an already open
	// source is an error.
	Open(ctx context.Context) error

	// ReadBlock reads exactly n samples. It may block for up to one
	// block's worth of sample time.
	ReadBlock(ctx context.Context, n int) (*SampleBlock, error)

	// Close releases the source handle. Closing a closed source is a no-op.
	Close() error
}
