// SPDX-License-Identifier: MIT
/*
Package paint maps lighting-element positions onto frequency bins and
turns bin magnitudes into a color frame. A placed element's normalized
horizontal position selects the bin covering the matching fraction of
the spectrum: an element at the left edge reacts to bass, one at the
right edge to treble.
*/
package paint

import (
	"fmt"

	"vibesrgb/internal/dsp"
	"vibesrgb/internal/layout"
	"vibesrgb/internal/openrgb"
)

// DefaultThreshold is the magnitude above which an element lights up.
const DefaultThreshold = 1.0

// Painter derives color frames from a fixed LED layout and per-tick bin
// sequences. Immutable after construction.
type Painter struct {
	layout    *layout.Layout
	threshold float64
	active    openrgb.Color
}

// New creates a Painter for the given layout. Magnitudes above
// threshold paint the active color; everything else paints off.
func New(l *layout.Layout, threshold float64, active openrgb.Color) *Painter {
	return &Painter{layout: l, threshold: threshold, active: active}
}

// FrameLen returns the length of the frames Paint produces, always
// equal to the number of configured lighting elements.
func (p *Painter) FrameLen() int {
	return p.layout.Len()
}

// Paint fills dst with one color per lighting element, in layout order.
// For each placed slot the target frequency is x * maxFreq and the
// first bin whose range contains its floor supplies the magnitude.
// Unplaced slots and slots whose frequency no bin covers paint off; a
// miss is only possible with caller-supplied custom ranges, since the
// linear and logarithmic generators cover the spectrum exhaustively.
func (p *Painter) Paint(dst []openrgb.Color, bins []dsp.Bin, maxFreq float64) error {
	if len(dst) != p.layout.Len() {
		return fmt.Errorf("frame length %d does not match %d configured elements", len(dst), p.layout.Len())
	}

	for i, slot := range p.layout.Slots {
		if slot == nil {
			dst[i] = openrgb.Off
			continue
		}

		targetFreq := int(slot.X * maxFreq)
		dst[i] = openrgb.Off
		for _, bin := range bins {
			if bin.Range.Contains(targetFreq) {
				if bin.Magnitude > p.threshold {
					dst[i] = p.active
				}
				break
			}
		}
	}
	return nil
}
