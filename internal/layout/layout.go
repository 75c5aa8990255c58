// SPDX-License-Identifier: MIT
/*
Package layout loads the LED configuration produced by the external
configurator tool: the reference image's aspect ratio plus one optional
normalized position per lighting element. The file is read once at
startup and the resulting Layout is immutable for the process lifetime.
*/
package layout

import (
	"encoding/json"
	"fmt"
	"os"
)

// Slot is one lighting element's normalized position on the reference
// image, both coordinates in [0,1]. Only X participates in frequency
// mapping; Y is carried for persistence and visualization.
type Slot struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Layout is the ordered LED configuration, indexed by lighting-element
// id. A nil entry means the element is unplaced.
type Layout struct {
	AspectRatio float64
	Slots       []*Slot
}

// Len returns the number of configured lighting elements.
func (l *Layout) Len() int {
	return len(l.Slots)
}

// Placed returns the number of elements with an assigned position.
func (l *Layout) Placed() int {
	n := 0
	for _, s := range l.Slots {
		if s != nil {
			n++
		}
	}
	return n
}

type layoutFile struct {
	AspectRatio float64            `json:"aspect_ratio"`
	LEDs        []*json.RawMessage `json:"leds"`
}

// Load reads and validates a layout file. Any defect is fatal to the
// caller: the pipeline must not start with a partial configuration.
func Load(path string) (*Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read layout file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a layout from its JSON representation.
func Parse(data []byte) (*Layout, error) {
	var file layoutFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse layout file: %w", err)
	}
	if file.LEDs == nil {
		return nil, fmt.Errorf("layout file has no leds array")
	}

	l := &Layout{
		AspectRatio: file.AspectRatio,
		Slots:       make([]*Slot, len(file.LEDs)),
	}
	for i, raw := range file.LEDs {
		if raw == nil || string(*raw) == "null" {
			continue // unplaced
		}
		var s Slot
		if err := json.Unmarshal(*raw, &s); err != nil {
			return nil, fmt.Errorf("failed to parse led %d: %w", i, err)
		}
		if s.X < 0 || s.X > 1 || s.Y < 0 || s.Y > 1 {
			return nil, fmt.Errorf("led %d position (%v, %v) outside [0,1]", i, s.X, s.Y)
		}
		l.Slots[i] = &s
	}
	return l, nil
}
