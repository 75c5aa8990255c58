// SPDX-License-Identifier: MIT
package audio

// MixFrame collapses one interleaved multi-channel frame into a single
// mono sample, the arithmetic mean of the channel values. Returns 0 for
// an empty frame so a zero-length callback can never divide by zero.
func MixFrame(frame []float32) float64 {
	if len(frame) == 0 {
		return 0
	}
	var sum float64
	for _, s := range frame {
		sum += float64(s)
	}
	return sum / float64(len(frame))
}

// MixInto downmixes an interleaved buffer into dst, one mono sample per
// frame, and returns the number of frames written. Pure function over
// pre-allocated buffers; runs inside the capture callback's time budget.
func MixInto(dst []float64, interleaved []float32, channels int) int {
	if channels <= 0 {
		return 0
	}

	frames := len(interleaved) / channels
	if frames > len(dst) {
		frames = len(dst)
	}

	inv := 1.0 / float64(channels)
	for i := range frames {
		base := i * channels
		var sum float64
		for c := range channels {
			sum += float64(interleaved[base+c])
		}
		dst[i] = sum * inv
	}
	return frames
}
