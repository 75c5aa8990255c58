// SPDX-License-Identifier: MIT
package audio

import (
	"sync"
	"testing"
)

func TestAccumulatorDrainUnderfilled(t *testing.T) {
	acc := NewAccumulator(10)
	dst := make([]float64, 10)

	// Appending fewer than windowLen samples across multiple calls keeps
	// Drain returning false and leaves the buffer untouched.
	acc.Append([]float64{1, 2, 3})
	if acc.Drain(dst) {
		t.Fatal("Drain returned true with 3 of 10 samples buffered")
	}
	if acc.Len() != 3 {
		t.Errorf("Len() = %d after failed drain, expected 3", acc.Len())
	}

	acc.Append([]float64{4, 5, 6})
	if acc.Drain(dst) {
		t.Fatal("Drain returned true with 6 of 10 samples buffered")
	}

	acc.Append([]float64{7, 8, 9, 10})
	if !acc.Drain(dst) {
		t.Fatal("Drain returned false with exactly 10 samples buffered")
	}
	for i, want := range []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10} {
		if dst[i] != want {
			t.Errorf("dst[%d] = %v, expected %v", i, dst[i], want)
		}
	}
	if acc.Len() != 0 {
		t.Errorf("Len() = %d after drain, expected 0", acc.Len())
	}
}

func TestAccumulatorDrainTakesMostRecentWindow(t *testing.T) {
	acc := NewAccumulator(4)

	// A burst larger than the window: only the tail survives and the
	// earlier samples are discarded along with the clear.
	acc.Append([]float64{1, 2, 3, 4, 5, 6, 7})

	dst := make([]float64, 4)
	if !acc.Drain(dst) {
		t.Fatal("Drain returned false with 7 of 4 samples buffered")
	}
	for i, want := range []float64{4, 5, 6, 7} {
		if dst[i] != want {
			t.Errorf("dst[%d] = %v, expected %v", i, dst[i], want)
		}
	}
	if acc.Len() != 0 {
		t.Errorf("Len() = %d after drain, expected full clear", acc.Len())
	}
}

func TestAccumulatorDrainWrongLength(t *testing.T) {
	acc := NewAccumulator(4)
	acc.Append([]float64{1, 2, 3, 4})

	if acc.Drain(make([]float64, 3)) {
		t.Error("Drain accepted a destination of the wrong length")
	}
	if acc.Len() != 4 {
		t.Errorf("Len() = %d, rejected drain must not consume samples", acc.Len())
	}
}

func TestAccumulatorConcurrentAppendDrain(t *testing.T) {
	const windowLen = 128
	acc := NewAccumulator(windowLen)

	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		chunk := make([]float64, 32)
		for {
			select {
			case <-stop:
				return
			default:
				acc.Append(chunk)
			}
		}
	}()

	dst := make([]float64, windowLen)
	drains := 0
	for range 10000 {
		if acc.Drain(dst) {
			drains++
		}
	}
	close(stop)
	wg.Wait()

	if drains == 0 {
		t.Error("expected at least one successful drain under concurrent appends")
	}
}

func TestAccumulatorSteadyStateAppendHotPath(t *testing.T) {
	acc := NewAccumulator(512)
	chunk := make([]float64, 64)
	dst := make([]float64, 512)

	// Steady state: the pre-sized buffer absorbs appends between drains
	// without growing.
	allocs := testing.AllocsPerRun(100, func() {
		for range 8 {
			acc.Append(chunk)
		}
		acc.Drain(dst)
	})

	if allocs > 0 {
		t.Errorf("Expected zero allocations in steady-state append/drain, got %.1f", allocs)
	}
}

func BenchmarkAccumulator(b *testing.B) {
	acc := NewAccumulator(2205)
	chunk := make([]float64, 512)
	dst := make([]float64, 2205)

	b.ReportAllocs()

	for b.Loop() {
		for range 5 {
			acc.Append(chunk)
		}
		acc.Drain(dst)
	}
}
