package monitor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/roman-kulish/rf-detection/internal/detect"
	"github.com/roman-kulish/rf-detection/internal/dsp"
	"github.com/roman-kulish/rf-detection/internal/sdr"
	"github.com/roman-kulish/rf-detection/internal/sdr/sim"
)

// fakeSource is a controllable sdr.Source producing zero-valued blocks.
type fakeSource struct {
	mu        sync.Mutex
	openErr   error
	readErr   error
	failAfter int // fail reads once this many have succeeded, 0 disables
	reads     int
	opens     int
	closes    int
	open      bool
}

func (f *fakeSource) Open(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.openErr != nil {
		return f.openErr
	}
	f.opens++
	f.open = true
	return nil
}

func (f *fakeSource) ReadBlock(ctx context.Context, n int) (*sdr.SampleBlock, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.open {
		return nil, fmt.Errorf("%w: source is not open", sdr.ErrRead)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", sdr.ErrRead, err)
	}
	if f.failAfter > 0 && f.reads >= f.failAfter {
		return nil, f.readErr
	}
	f.reads++

	return &sdr.SampleBlock{
		Timestamp:  time.Now(),
		SampleRate: 2_048_000,
		Samples:    make([]complex128, n),
	}, nil
}

func (f *fakeSource) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closes++
	f.open = false
	return nil
}

func (f *fakeSource) counts() (opens, closes int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opens, f.closes
}

func newTestMonitor(t *testing.T, source sdr.Source, threshold float64, blockSize int, options ...func(m *Monitor)) (*Monitor, *detect.Ledger) {
	t.Helper()

	analyzer, err := dsp.NewAnalyzer(dsp.WindowHann, 0)
	if err != nil {
		t.Fatalf("Failed to create analyzer: %v", err)
	}
	detector, err := detect.NewDetector(threshold, 20)
	if err != nil {
		t.Fatalf("Failed to create detector: %v", err)
	}

	ledger := detect.NewLedger()
	m, err := New(source, analyzer, detector, ledger, blockSize, options...)
	if err != nil {
		t.Fatalf("Failed to create monitor: %v", err)
	}
	return m, ledger
}

// waitIdle polls until the monitor returns to idle on its own.
func waitIdle(t *testing.T, m *Monitor) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if m.State() == StateIdle {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("Monitor did not return to idle, state is %s", m.State())
}

func TestNew_Validation(t *testing.T) {
	analyzer, err := dsp.NewAnalyzer(dsp.WindowHann, 0)
	if err != nil {
		t.Fatalf("Failed to create analyzer: %v", err)
	}
	detector, err := detect.NewDetector(10, 20)
	if err != nil {
		t.Fatalf("Failed to create detector: %v", err)
	}
	source, ledger := &fakeSource{}, detect.NewLedger()

	testCases := []struct {
		name string
		fn   func() (*Monitor, error)
	}{
		{"nil source", func() (*Monitor, error) { return New(nil, analyzer, detector, ledger, 64) }},
		{"nil analyzer", func() (*Monitor, error) { return New(source, nil, detector, ledger, 64) }},
		{"nil detector", func() (*Monitor, error) { return New(source, analyzer, nil, ledger, 64) }},
		{"nil ledger", func() (*Monitor, error) { return New(source, analyzer, detector, nil, 64) }},
		{"zero block size", func() (*Monitor, error) { return New(source, analyzer, detector, ledger, 0) }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := tc.fn(); err == nil {
				t.Error("Expected an error, got nil")
			}
		})
	}
}

func TestMonitor_StartStop(t *testing.T) {
	source := &fakeSource{}
	m, _ := newTestMonitor(t, source, 10, 64)

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Failed to start monitor: %v", err)
	}
	if s := m.State(); s != StateRunning {
		t.Errorf("Expected running state after start, got %s", s)
	}

	m.Stop()

	if s := m.State(); s != StateIdle {
		t.Errorf("Expected idle state after stop, got %s", s)
	}
	if err := m.LastErr(); err != nil {
		t.Errorf("Expected no error after a clean stop, got %v", err)
	}
	if opens, closes := source.counts(); opens != 1 || closes != 1 {
		t.Errorf("Expected 1 open and 1 close, got %d and %d", opens, closes)
	}
}

func TestMonitor_DoubleStart(t *testing.T) {
	m, _ := newTestMonitor(t, &fakeSource{}, 10, 64)

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Failed to start monitor: %v", err)
	}
	defer m.Stop()

	if err := m.Start(context.Background()); err == nil {
		t.Error("Expected an error starting a running monitor, got nil")
	}
}

func TestMonitor_StopIdle(t *testing.T) {
	source := &fakeSource{}
	m, _ := newTestMonitor(t, source, 10, 64)

	m.Stop() // must be a no-op

	if s := m.State(); s != StateIdle {
		t.Errorf("Expected idle state, got %s", s)
	}
	if opens, closes := source.counts(); opens != 0 || closes != 0 {
		t.Errorf("Expected no source activity, got %d opens and %d closes", opens, closes)
	}
}

func TestMonitor_Restart(t *testing.T) {
	source := &fakeSource{}
	m, _ := newTestMonitor(t, source, 10, 64)

	for i := 0; i < 2; i++ {
		if err := m.Start(context.Background()); err != nil {
			t.Fatalf("Failed to start monitor on cycle %d: %v", i, err)
		}
		m.Stop()
	}

	if opens, closes := source.counts(); opens != 2 || closes != 2 {
		t.Errorf("Expected 2 opens and 2 closes, got %d and %d", opens, closes)
	}
}

func TestMonitor_OpenFailure(t *testing.T) {
	openErr := fmt.Errorf("%w: no device", sdr.ErrOpen)
	m, _ := newTestMonitor(t, &fakeSource{openErr: openErr}, 10, 64)

	if err := m.Start(context.Background()); !errors.Is(err, sdr.ErrOpen) {
		t.Fatalf("Expected open error from start, got %v", err)
	}
	if s := m.State(); s != StateIdle {
		t.Errorf("Expected idle state after a failed start, got %s", s)
	}
	if err := m.LastErr(); !errors.Is(err, sdr.ErrOpen) {
		t.Errorf("Expected open error from LastErr, got %v", err)
	}
}

func TestMonitor_SourceFailure(t *testing.T) {
	readErr := fmt.Errorf("%w: device unplugged", sdr.ErrRead)
	source := &fakeSource{failAfter: 2, readErr: readErr}
	m, _ := newTestMonitor(t, source, 10, 64)

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Failed to start monitor: %v", err)
	}

	waitIdle(t, m)

	if err := m.LastErr(); !errors.Is(err, sdr.ErrRead) {
		t.Errorf("Expected read error from LastErr, got %v", err)
	}
	if _, closes := source.counts(); closes != 1 {
		t.Errorf("Expected the source to be closed once, got %d", closes)
	}

	// a failed run must not poison the next one
	source.mu.Lock()
	source.failAfter = 0
	source.mu.Unlock()

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Failed to restart monitor after a failure: %v", err)
	}
	if err := m.LastErr(); err != nil {
		t.Errorf("Expected LastErr to reset on start, got %v", err)
	}
	m.Stop()
}

func TestMonitor_ParentContextCancel(t *testing.T) {
	source := &fakeSource{}
	m, _ := newTestMonitor(t, source, 10, 64)

	ctx, cancel := context.WithCancel(context.Background())
	if err := m.Start(ctx); err != nil {
		t.Fatalf("Failed to start monitor: %v", err)
	}

	cancel()
	waitIdle(t, m)

	if err := m.LastErr(); err != nil {
		t.Errorf("Expected no error after a cancelled run, got %v", err)
	}
	if opens, closes := source.counts(); opens != 1 || closes != 1 {
		t.Errorf("Expected 1 open and 1 close, got %d and %d", opens, closes)
	}

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Failed to restart after cancellation: %v", err)
	}
	m.Stop()
}

// simSource builds a deterministic finite source with a single strong tone.
func simSource(t *testing.T, blocks int) *sim.Source {
	t.Helper()

	source, err := sim.New(&sim.Config{
		SampleRate:     2_048_000,
		Seed:           7,
		NoiseAmplitude: 0.001,
		Tones:          []sim.Tone{{Frequency: 100_000, Amplitude: 0.05}},
		Blocks:         blocks,
	})
	if err != nil {
		t.Fatalf("Failed to create sim source: %v", err)
	}
	return source
}

func TestMonitor_SinkDelivery(t *testing.T) {
	var (
		mu     sync.Mutex
		events []*detect.Event
	)
	sink := func(event *detect.Event) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, event)
	}

	m, ledger := newTestMonitor(t, simSource(t, 3), 10, 1024, WithSink(sink))

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Failed to start monitor: %v", err)
	}

	waitIdle(t, m)

	if err := m.LastErr(); !errors.Is(err, io.EOF) {
		t.Errorf("Expected exhaustion to surface io.EOF, got %v", err)
	}

	mu.Lock()
	defer mu.Unlock()

	if len(events) != 3 {
		t.Fatalf("Expected 3 events delivered to the sink, got %d", len(events))
	}
	if got := ledger.Len(); got != 3 {
		t.Errorf("Expected 3 events in the ledger, got %d", got)
	}
	for i := 1; i < len(events); i++ {
		if events[i].Timestamp.Before(events[i-1].Timestamp) {
			t.Errorf("Event %d is out of order", i)
		}
	}
}

func TestMonitor_SinkPanic(t *testing.T) {
	sink := func(*detect.Event) {
		panic("sink gone wrong")
	}

	m, ledger := newTestMonitor(t, simSource(t, 3), 10, 1024, WithSink(sink))

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Failed to start monitor: %v", err)
	}

	waitIdle(t, m)

	// every block must still be analyzed and recorded
	if got := ledger.Len(); got != 3 {
		t.Errorf("Expected 3 events in the ledger, got %d", got)
	}
}

func TestMonitor_EndToEnd(t *testing.T) {
	const center = 100_000_000.0

	config := &sim.Config{
		SampleRate:     2_048_000,
		Seed:           7,
		NoiseAmplitude: 0.001,
		Tones: []sim.Tone{
			{Frequency: 100_000, Amplitude: 0.05},
			{Frequency: 300_000, Amplitude: 0.05},
		},
		Blocks: 1,
	}

	analyzer, err := dsp.NewAnalyzer(dsp.WindowHann, center)
	if err != nil {
		t.Fatalf("Failed to create analyzer: %v", err)
	}

	// measure the generated signal to place the threshold 10 dB under the
	// strongest tone, so peaks clear it with confidence well above 0.5
	calib, err := sim.New(config)
	if err != nil {
		t.Fatalf("Failed to create calibration source: %v", err)
	}
	if err = calib.Open(context.Background()); err != nil {
		t.Fatalf("Failed to open calibration source: %v", err)
	}
	block, err := calib.ReadBlock(context.Background(), 1024)
	if err != nil {
		t.Fatalf("Failed to read calibration block: %v", err)
	}
	calib.Close()

	spec, err := analyzer.Process(block)
	if err != nil {
		t.Fatalf("Failed to process calibration block: %v", err)
	}
	peak := spec.Power[0]
	for _, p := range spec.Power {
		if p > peak {
			peak = p
		}
	}

	detector, err := detect.NewDetector(peak-10, 20)
	if err != nil {
		t.Fatalf("Failed to create detector: %v", err)
	}

	source, err := sim.New(config) // same seed, same signal
	if err != nil {
		t.Fatalf("Failed to create source: %v", err)
	}
	ledger := detect.NewLedger()
	m, err := New(source, analyzer, detector, ledger, 1024)
	if err != nil {
		t.Fatalf("Failed to create monitor: %v", err)
	}

	if err = m.Start(context.Background()); err != nil {
		t.Fatalf("Failed to start monitor: %v", err)
	}
	waitIdle(t, m)

	events := ledger.All()
	if len(events) != 1 {
		t.Fatalf("Expected exactly 1 event, got %d", len(events))
	}

	event := events[0]
	if len(event.Peaks) != 2 {
		t.Fatalf("Expected 2 peaks, got %+v", event.Peaks)
	}
	if event.Confidence <= 0.5 {
		t.Errorf("Expected confidence above 0.5, got %f", event.Confidence)
	}

	// peak frequencies are absolute RF: tuned center plus baseband offset
	binWidth := spec.BinWidth()
	for i, offset := range []float64{100_000, 300_000} {
		want := center + offset
		got := event.Peaks[i].Frequency
		if diff := got - want; diff < -binWidth || diff > binWidth {
			t.Errorf("Peak %d at %f Hz, expected within %f Hz of %f Hz", i, got, binWidth, want)
		}
		if got < center {
			t.Errorf("Peak %d frequency %f Hz is not absolute RF", i, got)
		}
	}

	last := m.Spectrum()
	if last == nil {
		t.Fatal("Expected a spectrum snapshot after the run")
	}
	if last.CenterFrequency != center {
		t.Errorf("Expected center frequency %f, got %f", center, last.CenterFrequency)
	}
}
