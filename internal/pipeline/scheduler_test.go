// SPDX-License-Identifier: MIT
package pipeline

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"vibesrgb/internal/audio"
	"vibesrgb/internal/dsp"
	"vibesrgb/internal/layout"
	"vibesrgb/internal/openrgb"
	"vibesrgb/internal/paint"
)

// fakeSink records delivered frames and can be made to fail.
type fakeSink struct {
	mu     sync.Mutex
	frames [][]openrgb.Color
	err    error
}

func (s *fakeSink) UpdateLEDs(ctx context.Context, controllerID int, colors []openrgb.Color) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	frame := make([]openrgb.Color, len(colors))
	copy(frame, colors)
	s.frames = append(s.frames, frame)
	return nil
}

func (s *fakeSink) delivered() [][]openrgb.Color {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

// testFixture wires a two-LED pipeline: one element at the left edge of
// the layout and one at the right, over a two-bin linear spectrum.
func testFixture(t *testing.T, sink Sink, maxFailures int) (*Scheduler, *audio.Accumulator) {
	t.Helper()

	const (
		windowLen  = 100
		sampleRate = 1000.0
	)

	acc := audio.NewAccumulator(windowLen)

	analyzer, err := dsp.NewAnalyzer(windowLen)
	if err != nil {
		t.Fatalf("NewAnalyzer failed: %v", err)
	}

	binner, err := dsp.NewLinearBinner(2, sampleRate)
	if err != nil {
		t.Fatalf("NewLinearBinner failed: %v", err)
	}

	l, err := layout.Parse([]byte(`{"aspect_ratio": 1.0, "leds": [{"x": 0.1, "y": 0.5}, {"x": 0.9, "y": 0.5}]}`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	painter := paint.New(l, paint.DefaultThreshold, openrgb.Red)

	sched, err := New(Options{
		Accumulator:            acc,
		Analyzer:               analyzer,
		Binner:                 binner,
		Painter:                painter,
		Sink:                   sink,
		Period:                 time.Millisecond,
		DeliveryTimeout:        100 * time.Millisecond,
		MaxConsecutiveFailures: maxFailures,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return sched, acc
}

// fillSine appends one full window of a sine at the given frequency.
func fillSine(acc *audio.Accumulator, freq float64) {
	const (
		windowLen  = 100
		sampleRate = 1000.0
	)
	samples := make([]float64, windowLen)
	for i := range samples {
		samples[i] = math.Sin(2 * math.Pi * freq * float64(i) / sampleRate)
	}
	acc.Append(samples)
}

func TestNewValidation(t *testing.T) {
	sink := &fakeSink{}
	sched, acc := testFixture(t, sink, 0)
	if sched == nil || acc == nil {
		t.Fatal("expected fixture to construct")
	}

	if _, err := New(Options{}); err == nil {
		t.Error("expected error for empty options")
	}

	opts := Options{
		Accumulator:     acc,
		Analyzer:        mustAnalyzer(t, 100),
		Binner:          mustBinner(t),
		Painter:         paint.New(mustLayout(t), 1.0, openrgb.Red),
		Sink:            sink,
		Period:          0,
		DeliveryTimeout: time.Second,
	}
	if _, err := New(opts); err == nil {
		t.Error("expected error for zero period")
	}
	opts.Period = time.Millisecond
	opts.DeliveryTimeout = 0
	if _, err := New(opts); err == nil {
		t.Error("expected error for zero delivery timeout")
	}
}

func mustAnalyzer(t *testing.T, n int) *dsp.Analyzer {
	t.Helper()
	a, err := dsp.NewAnalyzer(n)
	if err != nil {
		t.Fatalf("NewAnalyzer failed: %v", err)
	}
	return a
}

func mustBinner(t *testing.T) *dsp.Binner {
	t.Helper()
	b, err := dsp.NewLinearBinner(2, 1000)
	if err != nil {
		t.Fatalf("NewLinearBinner failed: %v", err)
	}
	return b
}

func mustLayout(t *testing.T) *layout.Layout {
	t.Helper()
	l, err := layout.Parse([]byte(`{"aspect_ratio": 1.0, "leds": [{"x": 0.1, "y": 0.5}, {"x": 0.9, "y": 0.5}]}`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	return l
}

func TestSchedulerDeliversPaintedFrames(t *testing.T) {
	sink := &fakeSink{}
	sched, acc := testFixture(t, sink, 0)

	// A strong 100Hz tone lands in the lower of the two bins, so the
	// left element should light up and the right should stay off.
	fillSine(acc, 100)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sched.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for len(sink.delivered()) == 0 {
		select {
		case <-deadline:
			t.Fatal("no frame delivered within deadline")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	frame := sink.delivered()[0]
	if len(frame) != 2 {
		t.Fatalf("expected 2-element frame, got %d", len(frame))
	}
	if frame[0] != openrgb.Red {
		t.Errorf("expected left element active, got %+v", frame[0])
	}
	if frame[1] != openrgb.Off {
		t.Errorf("expected right element off, got %+v", frame[1])
	}
}

func TestSchedulerSkipsUnderfilledWindow(t *testing.T) {
	sink := &fakeSink{}
	sched, acc := testFixture(t, sink, 0)

	// Only half a window; no frame should ever be delivered.
	acc.Append(make([]float64, 50))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := sched.Run(ctx); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if got := len(sink.delivered()); got != 0 {
		t.Errorf("expected no frames, got %d", got)
	}
}

func TestSchedulerAbortsAfterConsecutiveFailures(t *testing.T) {
	sink := &fakeSink{err: errors.New("sink unreachable")}
	sched, acc := testFixture(t, sink, 3)

	// Keep the accumulator topped up so every tick reaches delivery.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		for ctx.Err() == nil {
			fillSine(acc, 100)
			time.Sleep(time.Millisecond)
		}
	}()

	done := make(chan error, 1)
	go func() { done <- sched.Run(ctx) }()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected failure error, got nil")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not abort after consecutive failures")
	}
}

func TestSchedulerStopsOnCancel(t *testing.T) {
	sink := &fakeSink{}
	sched, _ := testFixture(t, sink, 0)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sched.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected nil on cancellation, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}
