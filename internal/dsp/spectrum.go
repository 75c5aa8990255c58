// SPDX-License-Identifier: MIT
/*
Package dsp implements the numeric core of the pipeline: the spectral
transform of fixed-length sample windows and the grouping of spectrum
coefficients into frequency bins.

Thread Safety:
- Analyzer reuses a pre-allocated workspace and must not be shared
  across goroutines; the pipeline runs a single analysis task.
- Binner is immutable after construction and safe for concurrent reads.
*/
package dsp

import (
	"fmt"

	"gonum.org/v1/gonum/dsp/fourier"
)

// Analyzer computes the complex spectrum of fixed-length audio windows.
// The window length is set at construction and every call must supply
// exactly that many samples. No window function is applied; the raw
// sample sequence is transformed directly so that bin aggregation sees
// unmodified phase relationships.
type Analyzer struct {
	windowLen int
	fft       *fourier.FFT
	coeffs    []complex128 // workspace for the windowLen/2+1 real-FFT output
}

// NewAnalyzer creates an Analyzer for windows of windowLen samples.
// Arbitrary lengths are supported; the transform does not require a
// power of two.
func NewAnalyzer(windowLen int) (*Analyzer, error) {
	if windowLen < 2 {
		return nil, fmt.Errorf("window length must be at least 2, got %d", windowLen)
	}
	return &Analyzer{
		windowLen: windowLen,
		fft:       fourier.NewFFT(windowLen),
		coeffs:    make([]complex128, windowLen/2+1),
	}, nil
}

// WindowLen returns the configured window length in samples.
func (a *Analyzer) WindowLen() int {
	return a.windowLen
}

// SpectrumLen returns the length of the spectra produced by Transform,
// always exactly half the window length.
func (a *Analyzer) SpectrumLen() int {
	return a.windowLen / 2
}

// Transform computes the forward transform of window and writes the
// lower, non-redundant half of the coefficients into dst. For a real
// input the upper half mirrors the lower and carries no information,
// so dst must have length WindowLen()/2.
// Deterministic; no state is carried between calls.
func (a *Analyzer) Transform(dst []complex128, window []float64) error {
	if len(window) != a.windowLen {
		return fmt.Errorf("window length %d does not match configured length %d", len(window), a.windowLen)
	}
	if len(dst) != a.SpectrumLen() {
		return fmt.Errorf("destination length %d does not match spectrum length %d", len(dst), a.SpectrumLen())
	}

	a.fft.Coefficients(a.coeffs, window)
	copy(dst, a.coeffs[:a.SpectrumLen()])
	return nil
}
