// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"math"
	"os"
	"sync/atomic"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const recordingBitDepth = 16

// StartRecording begins writing the mixed mono stream to a 16-bit WAV
// file. The encoder is fed from the capture callback; write failures
// are reported on the error channel and do not stop capture.
func (c *Capture) StartRecording(filename string) error {
	if atomic.LoadInt32(&c.isRecording) == 1 {
		return fmt.Errorf("already recording")
	}

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	c.outputFile = file

	c.wavEncoder = wav.NewEncoder(file, int(c.sampleRate), recordingBitDepth, 1, 1)

	c.sampleBuf = &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: 1,
			SampleRate:  int(c.sampleRate),
		},
		Data:           make([]int, c.frames),
		SourceBitDepth: recordingBitDepth,
	}

	atomic.StoreInt32(&c.isRecording, 1)

	return nil
}

// StopRecording finalizes the WAV file and releases the encoder.
func (c *Capture) StopRecording() error {
	if atomic.LoadInt32(&c.isRecording) == 0 {
		return nil
	}

	atomic.StoreInt32(&c.isRecording, 0)

	if c.wavEncoder != nil {
		if err := c.wavEncoder.Close(); err != nil {
			return err
		}
		c.wavEncoder = nil
	}

	if c.outputFile != nil {
		if err := c.outputFile.Close(); err != nil {
			return err
		}
		c.outputFile = nil
	}

	return nil
}

// writeRecording converts one mono buffer to 16-bit and appends it to
// the WAV file. Runs inside the capture callback; errors go to the
// error channel rather than interrupting the stream.
func (c *Capture) writeRecording(mono []float64) {
	data := c.sampleBuf.Data[:cap(c.sampleBuf.Data)]
	n := len(mono)
	if n > len(data) {
		n = len(data)
	}
	for i := range n {
		s := mono[i]
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		data[i] = int(s * math.MaxInt16)
	}
	c.sampleBuf.Data = data[:n]

	if err := c.wavEncoder.Write(c.sampleBuf); err != nil {
		c.report(fmt.Errorf("recording write failed: %w", err))
	}
}
