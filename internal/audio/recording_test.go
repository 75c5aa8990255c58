// SPDX-License-Identifier: MIT
package audio

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestRecordingLifecycle(t *testing.T) {
	c := &Capture{
		sampleRate: 44100,
		frames:     64,
		errs:       make(chan error, 8),
	}

	path := filepath.Join(t.TempDir(), "capture.wav")
	if err := c.StartRecording(path); err != nil {
		t.Fatalf("StartRecording failed: %v", err)
	}

	if err := c.StartRecording(path); err == nil {
		t.Error("second StartRecording should fail while recording")
	}

	mono := make([]float64, 64)
	for i := range mono {
		mono[i] = math.Sin(2 * math.Pi * float64(i) / 64)
	}
	for range 4 {
		c.writeRecording(mono)
	}

	if err := c.StopRecording(); err != nil {
		t.Fatalf("StopRecording failed: %v", err)
	}

	// Stop is idempotent once recording has ended.
	if err := c.StopRecording(); err != nil {
		t.Errorf("repeated StopRecording failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("recorded file missing: %v", err)
	}
	if info.Size() <= 44 { // WAV header alone is 44 bytes
		t.Errorf("recorded file is %d bytes, expected sample data past the header", info.Size())
	}

	select {
	case err := <-c.Errors():
		t.Errorf("unexpected capture error: %v", err)
	default:
	}
}

func TestWriteRecordingClipsOutOfRangeSamples(t *testing.T) {
	c := &Capture{
		sampleRate: 1000,
		frames:     4,
		errs:       make(chan error, 8),
	}

	path := filepath.Join(t.TempDir(), "clip.wav")
	if err := c.StartRecording(path); err != nil {
		t.Fatalf("StartRecording failed: %v", err)
	}

	c.writeRecording([]float64{2.0, -2.0, 0.5, 0})

	if got := c.sampleBuf.Data[0]; got != math.MaxInt16 {
		t.Errorf("over-range sample converted to %d, expected %d", got, math.MaxInt16)
	}
	if got := c.sampleBuf.Data[1]; got != -math.MaxInt16 {
		t.Errorf("under-range sample converted to %d, expected %d", got, -math.MaxInt16)
	}

	if err := c.StopRecording(); err != nil {
		t.Fatalf("StopRecording failed: %v", err)
	}
}
