// SPDX-License-Identifier: MIT

// Package pipeline drives the periodic analysis loop: drain the sample
// accumulator, transform the window into a spectrum, bin it, paint the
// LED frame and deliver it to the lighting sink.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"vibesrgb/internal/audio"
	"vibesrgb/internal/dsp"
	applog "vibesrgb/internal/log"
	"vibesrgb/internal/openrgb"
	"vibesrgb/internal/paint"
	"vibesrgb/internal/transport"
)

// Sink receives painted LED frames. Implemented by the OpenRGB client.
type Sink interface {
	UpdateLEDs(ctx context.Context, controllerID int, colors []openrgb.Color) error
}

// Options configures a Scheduler.
type Options struct {
	Accumulator *audio.Accumulator
	Analyzer    *dsp.Analyzer
	Binner      *dsp.Binner
	Painter     *paint.Painter
	Sink        Sink

	ControllerID    int
	Period          time.Duration // Tick period; matches the analysis window duration.
	DeliveryTimeout time.Duration // Bound on each sink delivery.
	Taps            []transport.Transport

	// MaxConsecutiveFailures aborts the run after this many delivery
	// failures in a row. Zero means keep dropping frames forever.
	MaxConsecutiveFailures int
}

// Scheduler runs the fixed-period analysis loop. A tick that cannot
// complete (window not yet full, delivery failure) drops its frame and
// the loop carries on at the next tick.
type Scheduler struct {
	acc    *audio.Accumulator
	an     *dsp.Analyzer
	binner *dsp.Binner
	paint  *paint.Painter
	sink   Sink

	controllerID    int
	period          time.Duration
	deliveryTimeout time.Duration
	taps            []transport.Transport
	maxFailures     int

	// Buffers reused across ticks.
	window   []float64
	spectrum []complex128
	frame    []openrgb.Color

	failures uint64
	ticks    uint64
}

// New validates the options and builds a Scheduler.
func New(opts Options) (*Scheduler, error) {
	if opts.Accumulator == nil || opts.Analyzer == nil || opts.Binner == nil || opts.Painter == nil {
		return nil, fmt.Errorf("pipeline: accumulator, analyzer, binner and painter are all required")
	}
	if opts.Sink == nil {
		return nil, fmt.Errorf("pipeline: a lighting sink is required")
	}
	if opts.Period <= 0 {
		return nil, fmt.Errorf("pipeline: period must be positive, got %v", opts.Period)
	}
	if opts.DeliveryTimeout <= 0 {
		return nil, fmt.Errorf("pipeline: delivery timeout must be positive, got %v", opts.DeliveryTimeout)
	}

	return &Scheduler{
		acc:             opts.Accumulator,
		an:              opts.Analyzer,
		binner:          opts.Binner,
		paint:           opts.Painter,
		sink:            opts.Sink,
		controllerID:    opts.ControllerID,
		period:          opts.Period,
		deliveryTimeout: opts.DeliveryTimeout,
		taps:            opts.Taps,
		maxFailures:     opts.MaxConsecutiveFailures,
		window:          make([]float64, opts.Analyzer.WindowLen()),
		spectrum:        make([]complex128, opts.Analyzer.SpectrumLen()),
		frame:           make([]openrgb.Color, opts.Painter.FrameLen()),
	}, nil
}

// Run ticks at the configured period until ctx is canceled. Cancellation
// is observed at tick boundaries; the in-flight frame is allowed to
// finish. The returned error is nil on cancellation.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.period)
	defer ticker.Stop()

	applog.Infof("Pipeline running (period %v, %d bins, %d LEDs)",
		s.period, len(s.binner.Ranges()), len(s.frame))

	var consecutive int
	for {
		select {
		case <-ctx.Done():
			applog.Infof("Pipeline stopped after %d ticks (%d dropped)", s.ticks, s.failures)
			return nil
		case <-ticker.C:
		}

		s.ticks++
		if err := s.tick(ctx); err != nil {
			s.failures++
			consecutive++
			applog.Warnf("Dropping frame: %v", err)
			if s.maxFailures > 0 && consecutive >= s.maxFailures {
				return fmt.Errorf("pipeline: %d consecutive frame failures, giving up: %w", consecutive, err)
			}
			continue
		}
		consecutive = 0
	}
}

// tick processes a single frame end to end.
func (s *Scheduler) tick(ctx context.Context) error {
	if !s.acc.Drain(s.window) {
		// Not enough samples accumulated yet; normal right after startup.
		applog.Debugf("Window not yet full, skipping tick %d", s.ticks)
		return nil
	}

	if err := s.an.Transform(s.spectrum, s.window); err != nil {
		return fmt.Errorf("spectrum transform: %w", err)
	}

	bins := s.binner.Bin(s.spectrum)

	if err := s.paint.Paint(s.frame, bins, s.binner.MaxFreq()); err != nil {
		return fmt.Errorf("paint: %w", err)
	}

	deliverCtx, cancel := context.WithTimeout(ctx, s.deliveryTimeout)
	err := s.sink.UpdateLEDs(deliverCtx, s.controllerID, s.frame)
	cancel()
	if err != nil {
		return fmt.Errorf("deliver frame: %w", err)
	}

	// Taps are best effort and never fail the tick.
	for _, tap := range s.taps {
		if err := tap.Send(bins); err != nil {
			applog.Debugf("Monitor send failed: %v", err)
		}
	}

	return nil
}
