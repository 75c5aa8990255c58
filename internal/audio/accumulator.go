// SPDX-License-Identifier: MIT
package audio

import (
	"sync"

	"vibesrgb/pkg/bitint"
)

// Accumulator is the hand-off buffer between the capture callback and
// the periodic analysis task. The callback appends mixed mono samples at
// the hardware's pace; once per tick the analysis task drains a full
// window. The mutex is held only for the duration of the copy in
// Append/Drain, never across analysis work, so the capture side is
// never blocked by the numeric pipeline.
type Accumulator struct {
	mu        sync.Mutex
	samples   []float64
	windowLen int
}

// NewAccumulator creates an Accumulator that releases windows of
// windowLen samples. The initial capacity leaves headroom for callbacks
// that burst faster than the drain period so steady-state appends do
// not reallocate.
func NewAccumulator(windowLen int) *Accumulator {
	return &Accumulator{
		samples:   make([]float64, 0, bitint.NextPowerOfTwo(4*windowLen)),
		windowLen: windowLen,
	}
}

// WindowLen returns the window length in samples.
func (a *Accumulator) WindowLen() int {
	return a.windowLen
}

// Append pushes mono samples onto the shared buffer. Called from the
// capture callback on every incoming frame; it never blocks on the
// analysis side and never drops samples.
func (a *Accumulator) Append(samples []float64) {
	a.mu.Lock()
	a.samples = append(a.samples, samples...)
	a.mu.Unlock()
}

// Len returns the number of buffered samples.
func (a *Accumulator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.samples)
}

// Drain copies the most recent windowLen samples into dst and clears
// the entire buffer, returning true. Samples older than the window tail
// are discarded with it; this is deliberate burst-tolerant windowing,
// not a sliding window. If fewer than windowLen samples have
// accumulated, Drain returns false and leaves the buffer untouched for
// the next tick. dst must have length windowLen.
func (a *Accumulator) Drain(dst []float64) bool {
	if len(dst) != a.windowLen {
		return false
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if len(a.samples) < a.windowLen {
		return false
	}

	copy(dst, a.samples[len(a.samples)-a.windowLen:])
	a.samples = a.samples[:0]
	return true
}
