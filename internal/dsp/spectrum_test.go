// SPDX-License-Identifier: MIT
package dsp

import (
	"math"
	"math/cmplx"
	"testing"
)

func TestAnalyzerSpectrumLength(t *testing.T) {
	tests := []struct {
		windowLen   int
		spectrumLen int
	}{
		{100, 50},   // 100ms at 1kHz
		{2205, 1102}, // 50ms at 44.1kHz, odd length
		{1024, 512}, // power of two
		{2, 1},      // minimum
	}

	for _, tt := range tests {
		t.Run("", func(t *testing.T) {
			analyzer, err := NewAnalyzer(tt.windowLen)
			if err != nil {
				t.Fatalf("NewAnalyzer(%d) failed: %v", tt.windowLen, err)
			}
			if got := analyzer.SpectrumLen(); got != tt.spectrumLen {
				t.Errorf("SpectrumLen() = %d, expected %d", got, tt.spectrumLen)
			}

			dst := make([]complex128, analyzer.SpectrumLen())
			window := make([]float64, tt.windowLen)
			if err := analyzer.Transform(dst, window); err != nil {
				t.Errorf("Transform failed: %v", err)
			}
		})
	}
}

func TestAnalyzerRejectsTooShortWindow(t *testing.T) {
	for _, n := range []int{-1, 0, 1} {
		if _, err := NewAnalyzer(n); err == nil {
			t.Errorf("NewAnalyzer(%d) expected error, got nil", n)
		}
	}
}

func TestAnalyzerLengthMismatch(t *testing.T) {
	analyzer, err := NewAnalyzer(100)
	if err != nil {
		t.Fatalf("NewAnalyzer failed: %v", err)
	}

	if err := analyzer.Transform(make([]complex128, 50), make([]float64, 99)); err == nil {
		t.Error("expected error for short window, got nil")
	}
	if err := analyzer.Transform(make([]complex128, 51), make([]float64, 100)); err == nil {
		t.Error("expected error for wrong destination length, got nil")
	}
}

func TestAnalyzerZeroWindow(t *testing.T) {
	analyzer, err := NewAnalyzer(256)
	if err != nil {
		t.Fatalf("NewAnalyzer failed: %v", err)
	}

	dst := make([]complex128, analyzer.SpectrumLen())
	if err := analyzer.Transform(dst, make([]float64, 256)); err != nil {
		t.Fatalf("Transform failed: %v", err)
	}

	for i, c := range dst {
		if cmplx.Abs(c) != 0 {
			t.Errorf("spectrum[%d] = %v, expected zero for silent window", i, c)
		}
	}
}

// TestAnalyzerSineWavePeak verifies that a pure sinusoid lands its energy
// at the expected spectrum index. 100 Hz at 1 kHz over 100 samples is 10
// full cycles, so the peak must sit at index 10 with magnitude N/2.
func TestAnalyzerSineWavePeak(t *testing.T) {
	const (
		sampleRate = 1000.0
		windowLen  = 100
		frequency  = 100.0
	)

	analyzer, err := NewAnalyzer(windowLen)
	if err != nil {
		t.Fatalf("NewAnalyzer failed: %v", err)
	}

	window := make([]float64, windowLen)
	for i := range window {
		window[i] = math.Sin(2 * math.Pi * frequency * float64(i) / sampleRate)
	}

	dst := make([]complex128, analyzer.SpectrumLen())
	if err := analyzer.Transform(dst, window); err != nil {
		t.Fatalf("Transform failed: %v", err)
	}

	peak, peakIdx := 0.0, 0
	for i, c := range dst {
		if mag := cmplx.Abs(c); mag > peak {
			peak, peakIdx = mag, i
		}
	}

	if peakIdx != 10 {
		t.Errorf("peak at index %d, expected 10", peakIdx)
	}
	if math.Abs(peak-windowLen/2) > 1e-6 {
		t.Errorf("peak magnitude %.6f, expected %.1f", peak, float64(windowLen)/2)
	}
}

func TestTransformHotPath(t *testing.T) {
	analyzer, err := NewAnalyzer(1024)
	if err != nil {
		t.Fatalf("NewAnalyzer failed: %v", err)
	}

	window := make([]float64, 1024)
	for i := range window {
		window[i] = math.Sin(2 * math.Pi * 440 * float64(i) / 44100)
	}
	dst := make([]complex128, analyzer.SpectrumLen())

	// Warm-up call (potential initial allocations).
	_ = analyzer.Transform(dst, window)
	allocs := testing.AllocsPerRun(100, func() {
		_ = analyzer.Transform(dst, window)
	})

	if allocs > 0 {
		t.Errorf("Expected zero allocations in Transform hot path, got %.1f", allocs)
	}
}

func BenchmarkTransform(b *testing.B) {
	analyzer, _ := NewAnalyzer(2205) // 50ms at 44.1kHz
	window := make([]float64, 2205)
	for i := range window {
		tm := float64(i) / 44100

		// Fundamental at 440Hz plus harmonics.
		window[i] = math.Sin(2*math.Pi*440*tm)*0.5 +
			math.Sin(2*math.Pi*880*tm)*0.3 +
			math.Sin(2*math.Pi*1320*tm)*0.2
	}
	dst := make([]complex128, analyzer.SpectrumLen())

	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		_ = analyzer.Transform(dst, window)
	}
}
