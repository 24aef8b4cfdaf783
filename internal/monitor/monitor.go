// Package monitor runs the continuous acquisition and analysis loop:
// sample blocks are pulled from a source, transformed into power spectra
// and scanned for peaks, with detection events delivered to a sink.
package monitor

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/roman-kulish/rf-detection/internal/detect"
	"github.com/roman-kulish/rf-detection/internal/dsp"
	"github.com/roman-kulish/rf-detection/internal/sdr"
)

const (
	StateIdle State = iota
	StateRunning
	StateStopping
)

// State is the monitor lifecycle state. It is owned by the Monitor;
// callers only observe it.
type State int32

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	default:
		return fmt.Sprintf("unknown(%d)", int32(s))
	}
}

// Sink receives one detection event per qualifying analysis pass,
// invoked synchronously from the monitor goroutine in detection order.
// A panicking sink is logged and never crashes the loop.
type Sink func(*detect.Event)

// WithLogger sets the logger for the monitor
func WithLogger(logger *slog.Logger) func(m *Monitor) {
	return func(m *Monitor) {
		m.logger = logger
	}
}

// WithSink registers the detection event callback
func WithSink(sink Sink) func(m *Monitor) {
	return func(m *Monitor) {
		m.sink = sink
	}
}

// Monitor owns the acquisition-analysis cycle for a single sample source.
// One background goroutine executes the loop between Start and Stop; the
// source handle is touched only by that goroutine.
type Monitor struct {
	source    sdr.Source
	analyzer  *dsp.Analyzer
	detector  *detect.Detector
	ledger    *detect.Ledger
	blockSize int

	sink   Sink
	logger *slog.Logger

	mu     sync.Mutex // serializes Start and Stop
	state  atomic.Int32
	cancel context.CancelFunc
	wg     sync.WaitGroup

	lastErr  atomic.Pointer[error]
	spectrum atomic.Pointer[dsp.PowerSpectrum]
}

// New creates a monitor with a discard logger and no sink.
func New(source sdr.Source, analyzer *dsp.Analyzer, detector *detect.Detector, ledger *detect.Ledger, blockSize int, options ...func(m *Monitor)) (*Monitor, error) {
	if source == nil {
		return nil, fmt.Errorf("monitor: source is required")
	}
	if analyzer == nil {
		return nil, fmt.Errorf("monitor: analyzer is required")
	}
	if detector == nil {
		return nil, fmt.Errorf("monitor: detector is required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("monitor: ledger is required")
	}
	if blockSize <= 0 {
		return nil, fmt.Errorf("monitor: block size must be positive: %d", blockSize)
	}

	m := Monitor{
		source:    source,
		analyzer:  analyzer,
		detector:  detector,
		ledger:    ledger,
		blockSize: blockSize,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)), // nil logger
	}

	for _, option := range options {
		option(&m)
	}

	return &m, nil
}

// Start opens the sample source and begins the acquisition loop on a
// background goroutine. It fails without side effects when the monitor is
// not idle or the source cannot be opened.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s := m.State(); s != StateIdle {
		return fmt.Errorf("monitor: cannot start while %s", s)
	}

	if err := m.source.Open(ctx); err != nil {
		m.setLastErr(err)
		return err
	}

	m.lastErr.Store(nil)

	ctx, m.cancel = context.WithCancel(ctx)
	m.state.Store(int32(StateRunning))

	m.wg.Add(1)
	go m.run(ctx)

	m.logger.Info("monitoring started", slog.Int("blockSize", m.blockSize))
	return nil
}

// Stop requests the loop to exit after its in-flight block, waits until
// the goroutine has fully exited and the source handle is released, then
// returns the monitor to idle. Stopping an idle monitor is a no-op.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.State() == StateIdle {
		return // nothing to stop
	}

	m.state.Store(int32(StateStopping))
	m.cancel()
	m.wg.Wait()
	m.state.Store(int32(StateIdle))

	m.logger.Info("monitoring stopped")
}

// State returns the current lifecycle state.
func (m *Monitor) State() State {
	return State(m.state.Load())
}

// LastErr returns the error that terminated the previous run, or nil. It
// is reset by a successful Start.
func (m *Monitor) LastErr() error {
	if p := m.lastErr.Load(); p != nil {
		return *p
	}
	return nil
}

// Spectrum returns the most recent power spectrum, or nil before the
// first analysis pass. The snapshot is immutable.
func (m *Monitor) Spectrum() *dsp.PowerSpectrum {
	return m.spectrum.Load()
}

// run is the acquisition-analysis cycle. It owns the source handle and is
// the only goroutine appending to the ledger. The source is always closed
// on the way out, whether the loop stopped cooperatively or failed.
func (m *Monitor) run(ctx context.Context) {
	defer m.wg.Done()

	for ctx.Err() == nil {
		block, err := m.source.ReadBlock(ctx, m.blockSize)
		if err != nil {
			if ctx.Err() != nil {
				break // cancelled, not a failure
			}

			m.setLastErr(err)
			m.logger.Error(fmt.Sprintf("sample source failed: %s", err))
			break
		}

		spec, err := m.analyzer.Process(block)
		if err != nil {
			m.logger.Error(fmt.Sprintf("analysis failed: %s", err))
			continue
		}
		m.spectrum.Store(spec)

		event, ok := m.detector.Detect(spec)
		if !ok {
			continue // no detection is a normal outcome
		}

		m.ledger.Append(event)
		m.dispatch(event)

		m.logger.Info("detection",
			slog.Int("peaks", len(event.Peaks)),
			slog.Float64("confidence", event.Confidence))
	}

	if err := m.source.Close(); err != nil {
		m.logger.Error(fmt.Sprintf("closing sample source: %s", err))
	}

	// Stop owns the idle transition for a cooperative shutdown; it has
	// already moved the state to Stopping and is waiting on the join. Any
	// other exit, a source failure or the parent context being cancelled,
	// returns to idle here. The source handle is released either way
	// before the state changes.
	if m.State() == StateRunning {
		m.cancel() // release the run context
		m.state.Store(int32(StateIdle))
	}
}

// dispatch invokes the sink, isolating the loop from sink panics.
func (m *Monitor) dispatch(event *detect.Event) {
	if m.sink == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			m.logger.Error(fmt.Sprintf("sink callback panicked: %v", r))
		}
	}()

	m.sink(event)
}

func (m *Monitor) setLastErr(err error) {
	m.lastErr.Store(&err)
}
