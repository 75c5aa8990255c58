// SPDX-License-Identifier: MIT
/*
Package audio implements the capture side of the pipeline:
- PortAudio input stream with a real-time callback
- Interleaved-to-mono downmixing
- The shared window accumulator drained by the analysis task
- Optional WAV recording of the mono stream

Thread Safety:
- The capture callback runs on a dedicated OS thread and touches only
  pre-allocated buffers plus the accumulator's short critical section.
- Recording state uses atomic operations.
*/
package audio

import (
	"fmt"
	"os"
	"runtime"
	"sync/atomic"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/gordonklaus/portaudio"
)

// CaptureParams selects and configures the input device.
type CaptureParams struct {
	DeviceID        int    // PortAudio device index, -1 for default
	DeviceName      string // when non-empty, overrides DeviceID with a name-substring match
	Channels        int    // 0 means use the device's maximum input channel count
	SampleRate      float64 // 0 means use the device's default rate
	FramesPerBuffer int
	LowLatency      bool
}

// Capture owns the PortAudio input stream and feeds mixed mono samples
// into the window accumulator from the capture callback.
type Capture struct {
	device     *portaudio.DeviceInfo
	latency    time.Duration
	stream     *portaudio.Stream
	channels   int
	sampleRate float64
	frames     int

	acc  *Accumulator
	mono []float64 // pre-allocated downmix buffer, one sample per frame

	errs chan error // non-fatal capture-side errors, drained by the supervisor

	// Recording state and buffers.
	isRecording int32 // Atomic flag for thread-safe state
	outputFile  *os.File
	wavEncoder  *wav.Encoder
	sampleBuf   *goaudio.IntBuffer // reusable buffer for format conversion
}

// NewCapture resolves the input device and prepares the stream without
// starting it. The device's channel count and sample rate become the
// process-wide values unless overridden in params; the accumulator is
// attached later via Attach once the window length has been derived
// from the final sample rate.
func NewCapture(params CaptureParams) (*Capture, error) {
	var device *portaudio.DeviceInfo
	var err error
	if params.DeviceName != "" {
		device, err = FindInputDevice(params.DeviceName)
	} else {
		device, err = InputDevice(params.DeviceID)
	}
	if err != nil {
		return nil, err
	}

	channels := params.Channels
	if channels <= 0 {
		channels = device.MaxInputChannels
	}
	if channels > device.MaxInputChannels {
		return nil, fmt.Errorf("device %q supports %d input channels, %d requested",
			device.Name, device.MaxInputChannels, channels)
	}

	sampleRate := params.SampleRate
	if sampleRate <= 0 {
		sampleRate = device.DefaultSampleRate
	}

	frames := params.FramesPerBuffer
	if frames <= 0 {
		frames = 512
	}

	c := &Capture{
		device:     device,
		channels:   channels,
		sampleRate: sampleRate,
		frames:     frames,
		mono:       make([]float64, frames),
		errs:       make(chan error, 8),
	}

	if params.LowLatency {
		c.latency = device.DefaultLowInputLatency
	} else {
		c.latency = device.DefaultHighInputLatency
	}

	return c, nil
}

// DeviceName returns the resolved input device's name.
func (c *Capture) DeviceName() string {
	return c.device.Name
}

// Channels returns the capture channel count.
func (c *Capture) Channels() int {
	return c.channels
}

// SampleRate returns the capture sample rate in Hz.
func (c *Capture) SampleRate() float64 {
	return c.sampleRate
}

// Errors returns the channel carrying non-fatal capture-side errors.
// The capture callback keeps running after reporting; the receiver is
// expected to log and move on.
func (c *Capture) Errors() <-chan error {
	return c.errs
}

// Attach connects the window accumulator the callback appends to.
// Must be called before Start.
func (c *Capture) Attach(acc *Accumulator) {
	c.acc = acc
}

// Start opens the input stream and begins invoking the capture
// callback. Attach must have been called first.
func (c *Capture) Start() error {
	if c.acc == nil {
		return fmt.Errorf("no accumulator attached")
	}

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: c.channels,
			Device:   c.device,
			Latency:  c.latency,
		},
		Output: portaudio.StreamDeviceParameters{
			Channels: 0, // No output device
			Device:   nil,
		},
		FramesPerBuffer: c.frames,
		SampleRate:      c.sampleRate,
	}

	stream, err := portaudio.OpenStream(params, c.processInputStream)
	if err != nil {
		return fmt.Errorf("failed to open input stream: %w", err)
	}
	c.stream = stream

	if err := c.stream.Start(); err != nil {
		c.stream.Close()
		c.stream = nil
		return fmt.Errorf("failed to start input stream: %w", err)
	}

	return nil
}

// Stop halts and closes the input stream.
func (c *Capture) Stop() error {
	if c.stream != nil {
		if err := c.stream.Stop(); err != nil {
			return err
		}
		if err := c.stream.Close(); err != nil {
			return err
		}
		c.stream = nil
	}
	return nil
}

// Close stops any active recording and the input stream.
func (c *Capture) Close() error {
	if atomic.LoadInt32(&c.isRecording) == 1 {
		if err := c.StopRecording(); err != nil {
			return err
		}
	}
	return c.Stop()
}

// processInputStream is the capture callback.
// Performance Critical:
// - Runs in a dedicated OS thread (LockOSThread)
// - Uses pre-allocated buffers only
// - The accumulator lock is the only synchronization touched
func (c *Capture) processInputStream(in []float32) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	frames := MixInto(c.mono, in, c.channels)
	mono := c.mono[:frames]

	c.acc.Append(mono)

	if atomic.LoadInt32(&c.isRecording) == 1 && c.wavEncoder != nil {
		c.writeRecording(mono)
	}
}

// report queues a non-fatal error without ever blocking the callback.
// If the channel is full the error is dropped.
func (c *Capture) report(err error) {
	select {
	case c.errs <- err:
	default:
	}
}
