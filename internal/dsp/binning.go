// SPDX-License-Identifier: MIT
package dsp

import (
	"fmt"
	"math"
	"math/cmplx"
)

// Range is a half-open interval [Start, End) in integer Hertz.
type Range struct {
	Start int `yaml:"start" json:"start"`
	End   int `yaml:"end" json:"end"`
}

// Contains reports whether freq lies inside the interval.
func (r Range) Contains(freq int) bool {
	return freq >= r.Start && freq < r.End
}

// scale maps the interval into another coordinate system by multiplying
// both endpoints and truncating. Used to convert Hertz ranges into
// spectrum-index ranges; the two coordinate systems must never be mixed.
func (r Range) scale(factor float64) Range {
	return Range{
		Start: int(float64(r.Start) * factor),
		End:   int(float64(r.End) * factor),
	}
}

// Bin pairs a Hertz range with the aggregate magnitude of the spectrum
// content inside it.
type Bin struct {
	Range     Range
	Magnitude float64
}

// Binner groups spectrum coefficients into an ordered sequence of
// frequency bins. The range set is generated once at construction from
// the chosen strategy; aggregation is shared by all strategies.
type Binner struct {
	maxFreq float64 // Nyquist frequency, sampleRate/2
	ranges  []Range
}

// NewLinearBinner splits [0, sampleRate/2) into n equal-width ranges.
func NewLinearBinner(n int, sampleRate float64) (*Binner, error) {
	if n <= 0 {
		return nil, fmt.Errorf("bin count must be positive, got %d", n)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %f", sampleRate)
	}

	maxFreq := sampleRate / 2
	width := maxFreq / float64(n)
	ranges := make([]Range, n)
	for i := 0; i < n; i++ {
		ranges[i] = Range{Start: i, End: i + 1}.scale(width)
	}
	return &Binner{maxFreq: maxFreq, ranges: ranges}, nil
}

// NewLogarithmicBinner generates geometrically growing ranges starting
// at 1 Hz: each boundary is the previous one multiplied by base, rounded,
// and clamped to sampleRate/2. Early bins are narrow, later bins wide.
// base <= 1 is rejected: base == 1 never advances and base < 1 shrinks
// the boundary, so neither generator terminates.
func NewLogarithmicBinner(base float64, sampleRate float64) (*Binner, error) {
	if base <= 1 {
		return nil, fmt.Errorf("logarithmic base must be greater than 1, got %f", base)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %f", sampleRate)
	}

	maxFreq := sampleRate / 2
	var ranges []Range
	cur := 1.0
	for cur < maxFreq {
		next := math.Min(math.Round(cur*base), maxFreq)
		if next <= cur {
			// Rounding can stall small bases (round(1*1.2) == 1); force
			// progress so ranges stay strictly increasing.
			next = cur + 1
		}
		ranges = append(ranges, Range{Start: int(cur), End: int(next)})
		cur = next
	}
	return &Binner{maxFreq: maxFreq, ranges: ranges}, nil
}

// NewCustomBinner uses exactly the caller-supplied Hertz ranges,
// unmodified. Coverage and overlap are the caller's responsibility and
// are not validated.
func NewCustomBinner(ranges []Range, sampleRate float64) (*Binner, error) {
	if len(ranges) == 0 {
		return nil, fmt.Errorf("at least one range is required")
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %f", sampleRate)
	}

	owned := make([]Range, len(ranges))
	copy(owned, ranges)
	return &Binner{maxFreq: sampleRate / 2, ranges: owned}, nil
}

// MaxFreq returns the Nyquist frequency the range set was generated for.
func (b *Binner) MaxFreq() float64 {
	return b.maxFreq
}

// Ranges returns the generated Hertz ranges in bin order.
func (b *Binner) Ranges() []Range {
	return b.ranges
}

// Bin aggregates the spectrum into one Bin per range, in range order.
// Each Hertz range is scaled into a spectrum-index range through the
// constant factor len(spectrum)/maxFreq, then the complex coefficients
// inside it are summed and the magnitude of the sum is taken. Summing
// complex values before taking the norm preserves phase cancellation
// between nearby components; summing magnitudes first would not.
func (b *Binner) Bin(spectrum []complex128) []Bin {
	scale := float64(len(spectrum)) / b.maxFreq

	bins := make([]Bin, len(b.ranges))
	for i, r := range b.ranges {
		idx := r.scale(scale)
		start, end := idx.Start, idx.End
		if start < 0 {
			start = 0
		}
		if end > len(spectrum) {
			// Custom ranges may reach past Nyquist; clamp instead of failing.
			end = len(spectrum)
		}

		var sum complex128
		for j := start; j < end; j++ {
			sum += spectrum[j]
		}
		bins[i] = Bin{Range: r, Magnitude: cmplx.Abs(sum)}
	}
	return bins
}
