package rtl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/roman-kulish/rf-detection/internal/sdr"
)

const Device = "rtl-sdr"

// WithLogger sets the logger for the source
func WithLogger(logger *slog.Logger) func(s *Source) {
	return func(s *Source) {
		s.logger = logger.With(
			slog.String("device", Device),
			slog.Int("deviceIndex", s.config.DeviceIndex),
		)
	}
}

// Source streams complex baseband samples from an RTL-SDR dongle by running
// the rtl_sdr capture tool and converting its raw unsigned 8-bit I/Q output.
// It implements sdr.Source.
type Source struct {
	config  *Config
	binPath string
	logger  *slog.Logger

	cmd    *exec.Cmd
	stdout *bufio.Reader
	cancel context.CancelFunc
	wg     sync.WaitGroup
	open   bool
}

// New creates a new RTL-SDR source with a discard logger
func New(config *Config, options ...func(s *Source)) (*Source, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", sdr.ErrConfigure, err)
	}

	binPath, err := findRuntime()
	if err != nil {
		return nil, fmt.Errorf("%w: finding %s runtime: %w", sdr.ErrConfigure, Runtime, err)
	}

	s := Source{
		config:  config,
		binPath: binPath,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)), // nil logger
	}

	for _, option := range options {
		option(&s)
	}

	return &s, nil
}

// Open starts the capture tool and begins draining its stderr to the logger.
func (s *Source) Open(ctx context.Context) error {
	if s.open {
		return fmt.Errorf("%w: source is already open", sdr.ErrOpen)
	}

	args, err := s.config.Args()
	if err != nil {
		return fmt.Errorf("%w: %w", sdr.ErrConfigure, err)
	}

	ctx, s.cancel = context.WithCancel(ctx)
	cmd := exec.CommandContext(ctx, s.binPath, args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		s.cancel()
		return fmt.Errorf("%w: creating stdout pipe: %w", sdr.ErrOpen, err)
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		s.cancel()
		return fmt.Errorf("%w: creating stderr pipe: %w", sdr.ErrOpen, err)
	}

	if err = cmd.Start(); err != nil {
		s.cancel()
		return fmt.Errorf("%w: starting %s: %w", sdr.ErrOpen, Runtime, err)
	}

	s.wg.Add(1)
	go s.handleStderr(stderr)

	s.cmd = cmd
	s.stdout = bufio.NewReaderSize(stdout, 1<<16)
	s.open = true

	s.logger.Info("capture started",
		slog.Int64("sampleRate", s.config.SampleRate),
		slog.Int64("centerFrequency", s.config.CenterFrequency))
	return nil
}

// ReadBlock reads exactly n samples from the capture stream. The call
// blocks until a full block has been received or the stream fails.
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

	raw := make([]byte, 2*n)
	if _, err := io.ReadFull(s.stdout, raw); err != nil {
		return nil, fmt.Errorf("%w: reading %d samples: %w", sdr.ErrRead, n, err)
	}

	block := sdr.SampleBlock{
		Timestamp:  time.Now(),
		SampleRate: float64(s.config.SampleRate),
		Samples:    make([]complex128, n),
	}
	for i := 0; i < n; i++ {
		block.Samples[i] = complex(sampleValue(raw[2*i]), sampleValue(raw[2*i+1]))
	}

	return &block, nil
}

// Close stops the capture tool and releases the handle. It is safe to call
// Close multiple times.
func (s *Source) Close() error {
	if !s.open {
		return nil // already closed
	}

	s.cancel()
	err := s.cmd.Wait()
	s.wg.Wait()

	s.open = false
	s.cmd = nil
	s.stdout = nil

	// The tool is killed through context cancellation on every shutdown, so
	// its exit status is not a failure signal.
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Debug(fmt.Sprintf("%s exited: %s", Runtime, err))
	}

	s.logger.Info("capture stopped")
	return nil
}

// handleStderr reads the capture tool diagnostics and logs them.
func (s *Source) handleStderr(stderr io.Reader) {
	defer s.wg.Done()

	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		s.logger.Warn(fmt.Sprintf("%s >> %s", Runtime, line)) // simple logging here
	}
}

// sampleValue maps an unsigned 8-bit sample to [-1, 1) around the 127.5 DC
// midpoint.
func sampleValue(b byte) float64 {
	return (float64(b) - 127.5) / 127.5
}
