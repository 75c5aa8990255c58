// SPDX-License-Identifier: MIT
package openrgb

import (
	"encoding/binary"
	"fmt"
	"io"
)

// The OpenRGB SDK protocol frames every message with a 16-byte
// little-endian header: a 4-byte magic, the target device index, the
// packet id and the payload length. Payloads use protocol version 0
// encoding; strings are uint16-length-prefixed and NUL-terminated,
// colors are packed as r,g,b plus a padding byte.

const headerMagic = "ORGB"

// SDK packet ids consumed by this client.
const (
	cmdRequestControllerCount uint32 = 0
	cmdRequestControllerData  uint32 = 1
	cmdSetClientName          uint32 = 50
	cmdUpdateLEDs             uint32 = 1050
	cmdUpdateSingleLED        uint32 = 1052
)

const headerSize = 16

type header struct {
	DeviceID uint32
	PacketID uint32
	Length   uint32
}

// writeMessage frames and sends one SDK message.
func writeMessage(w io.Writer, deviceID, packetID uint32, payload []byte) error {
	buf := make([]byte, headerSize+len(payload))
	copy(buf, headerMagic)
	binary.LittleEndian.PutUint32(buf[4:], deviceID)
	binary.LittleEndian.PutUint32(buf[8:], packetID)
	binary.LittleEndian.PutUint32(buf[12:], uint32(len(payload)))
	copy(buf[headerSize:], payload)

	_, err := w.Write(buf)
	return err
}

// readMessage reads one framed SDK message.
func readMessage(r io.Reader) (header, []byte, error) {
	var raw [headerSize]byte
	if _, err := io.ReadFull(r, raw[:]); err != nil {
		return header{}, nil, fmt.Errorf("failed to read message header: %w", err)
	}
	if string(raw[:4]) != headerMagic {
		return header{}, nil, fmt.Errorf("bad magic %q in message header", raw[:4])
	}

	h := header{
		DeviceID: binary.LittleEndian.Uint32(raw[4:]),
		PacketID: binary.LittleEndian.Uint32(raw[8:]),
		Length:   binary.LittleEndian.Uint32(raw[12:]),
	}

	payload := make([]byte, h.Length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return header{}, nil, fmt.Errorf("failed to read message payload: %w", err)
	}
	return h, payload, nil
}

// payloadReader decodes protocol-version-0 payload fields sequentially.
// The first decode error sticks; later reads return zero values so
// callers can check err once at the end.
type payloadReader struct {
	buf []byte
	off int
	err error
}

func (r *payloadReader) fail(what string) {
	if r.err == nil {
		r.err = fmt.Errorf("truncated payload reading %s at offset %d", what, r.off)
	}
}

func (r *payloadReader) u16() uint16 {
	if r.err != nil || r.off+2 > len(r.buf) {
		r.fail("uint16")
		return 0
	}
	v := binary.LittleEndian.Uint16(r.buf[r.off:])
	r.off += 2
	return v
}

func (r *payloadReader) u32() uint32 {
	if r.err != nil || r.off+4 > len(r.buf) {
		r.fail("uint32")
		return 0
	}
	v := binary.LittleEndian.Uint32(r.buf[r.off:])
	r.off += 4
	return v
}

func (r *payloadReader) i32() int32 {
	return int32(r.u32())
}

// str decodes a length-prefixed string; the length includes the
// terminating NUL, which is stripped.
func (r *payloadReader) str() string {
	n := int(r.u16())
	if r.err != nil || r.off+n > len(r.buf) {
		r.fail("string")
		return ""
	}
	s := r.buf[r.off : r.off+n]
	r.off += n
	if len(s) > 0 && s[len(s)-1] == 0 {
		s = s[:len(s)-1]
	}
	return string(s)
}

func (r *payloadReader) color() Color {
	if r.err != nil || r.off+4 > len(r.buf) {
		r.fail("color")
		return Color{}
	}
	c := Color{R: r.buf[r.off], G: r.buf[r.off+1], B: r.buf[r.off+2]}
	r.off += 4
	return c
}

func (r *payloadReader) skip(n int) {
	if r.err != nil || n < 0 || r.off+n > len(r.buf) {
		r.fail("skip")
		return
	}
	r.off += n
}

// Mode is one lighting mode advertised by a controller.
type Mode struct {
	Name  string
	Value int32
	Flags uint32
}

// Zone is one addressable zone of a controller.
type Zone struct {
	Name     string
	Type     int32
	LEDsMin  uint32
	LEDsMax  uint32
	LEDCount uint32
}

// LED is one lighting element of a controller.
type LED struct {
	Name  string
	Color Color
}

// Controller is the metadata record returned by the controller-data
// query. The pipeline only needs the LED count to size the layout, but
// the full record is parsed since the payload is sequential and cannot
// be skipped ahead.
type Controller struct {
	Type        int32
	Name        string
	Description string
	Version     string
	Serial      string
	Location    string
	ActiveMode  int32
	Modes       []Mode
	Zones       []Zone
	LEDs        []LED
	Colors      []Color
}

// parseController decodes a protocol-version-0 controller-data payload.
func parseController(payload []byte) (*Controller, error) {
	r := &payloadReader{buf: payload}

	r.u32() // total data size, redundant with the framing header

	c := &Controller{
		Type:        r.i32(),
		Name:        r.str(),
		Description: r.str(),
		Version:     r.str(),
		Serial:      r.str(),
		Location:    r.str(),
	}

	numModes := int(r.u16())
	c.ActiveMode = r.i32()
	for i := 0; i < numModes; i++ {
		m := Mode{Name: r.str(), Value: r.i32(), Flags: r.u32()}
		r.u32() // speed min
		r.u32() // speed max
		r.u32() // colors min
		r.u32() // colors max
		r.u32() // speed
		r.u32() // direction
		r.u32() // color mode
		modeColors := int(r.u16())
		r.skip(4 * modeColors)
		c.Modes = append(c.Modes, m)
	}

	numZones := int(r.u16())
	for i := 0; i < numZones; i++ {
		z := Zone{
			Name:     r.str(),
			Type:     r.i32(),
			LEDsMin:  r.u32(),
			LEDsMax:  r.u32(),
			LEDCount: r.u32(),
		}
		matrixLen := int(r.u16())
		r.skip(matrixLen)
		c.Zones = append(c.Zones, z)
	}

	numLEDs := int(r.u16())
	for i := 0; i < numLEDs; i++ {
		c.LEDs = append(c.LEDs, LED{Name: r.str(), Color: r.color()})
	}

	numColors := int(r.u16())
	for i := 0; i < numColors; i++ {
		c.Colors = append(c.Colors, r.color())
	}

	if r.err != nil {
		return nil, fmt.Errorf("malformed controller data: %w", r.err)
	}
	return c, nil
}

// encodeUpdateLEDs builds the update-all payload: total payload size,
// color count, then one packed color per element.
func encodeUpdateLEDs(colors []Color) []byte {
	size := 4 + 2 + 4*len(colors)
	buf := make([]byte, size)
	binary.LittleEndian.PutUint32(buf, uint32(size))
	binary.LittleEndian.PutUint16(buf[4:], uint16(len(colors)))
	for i, c := range colors {
		off := 6 + 4*i
		buf[off] = c.R
		buf[off+1] = c.G
		buf[off+2] = c.B
	}
	return buf
}

// encodeUpdateSingleLED builds the single-element payload: element
// index plus one packed color.
func encodeUpdateSingleLED(index int, c Color) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint32(buf, uint32(int32(index)))
	buf[4] = c.R
	buf[5] = c.G
	buf[6] = c.B
	return buf
}
