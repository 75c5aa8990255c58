// SPDX-License-Identifier: MIT
/*
Package udp publishes bin magnitudes as compact binary datagrams for
external visualizers that prefer a raw feed over the WebSocket monitor.
*/
package udp

import (
	"bytes"
	"encoding/binary"
	"time"

	"vibesrgb/internal/dsp"
	applog "vibesrgb/internal/log"
)

/*
Packet structure (BigEndian):

|<---- 4 Bytes ---->|<------ 8 Bytes ------>|<-- 2 Bytes -->|<----- N * 4 Bytes ----->|
+-------------------+-----------------------+---------------+-------------------------+
|  Sequence Number  |       Timestamp       |   Magnitude   |       Magnitudes        |
|      (uint32)     |   (int64, ns epoch)   |     Count     |      (N * float32)      |
|                   |                       |    (uint16)   |                         |
+-------------------+-----------------------+---------------+-------------------------+
*/

// Publisher packs bin magnitudes into datagrams and hands them to a
// Sender, at most once per interval. It is driven by the scheduler
// goroutine and keeps no goroutine of its own, so no locking is needed.
type Publisher struct {
	sender   *Sender
	interval time.Duration
	lastSend time.Time

	sequenceNum uint32

	// Reusable buffers to keep the per-tick path allocation-free.
	f32Buffer    []float32
	packetBuffer *bytes.Buffer
}

// NewPublisher creates a Publisher sending through sender at most once
// per interval. An interval <= 0 defaults to 16ms (~60Hz).
func NewPublisher(interval time.Duration, sender *Sender) *Publisher {
	if interval <= 0 {
		interval = 16 * time.Millisecond
		applog.Warnf("UDP publisher: invalid interval provided, defaulting to %s", interval)
	}
	return &Publisher{
		sender:       sender,
		interval:     interval,
		packetBuffer: new(bytes.Buffer),
	}
}

// Send packs the bins' magnitudes into one packet and transmits it,
// skipping the update when the interval has not elapsed.
func (p *Publisher) Send(bins []dsp.Bin) error {
	now := time.Now()
	if now.Sub(p.lastSend) < p.interval {
		return nil
	}
	p.lastSend = now

	if cap(p.f32Buffer) < len(bins) {
		p.f32Buffer = make([]float32, len(bins))
	}
	p.f32Buffer = p.f32Buffer[:len(bins)]
	for i, b := range bins {
		p.f32Buffer[i] = float32(b.Magnitude)
	}

	p.sequenceNum++
	p.packetBuffer.Reset()

	err := binary.Write(p.packetBuffer, binary.BigEndian, p.sequenceNum)
	if err == nil {
		err = binary.Write(p.packetBuffer, binary.BigEndian, now.UnixNano())
	}
	if err == nil {
		err = binary.Write(p.packetBuffer, binary.BigEndian, uint16(len(p.f32Buffer)))
	}
	if err == nil {
		err = binary.Write(p.packetBuffer, binary.BigEndian, p.f32Buffer)
	}
	if err != nil {
		return err
	}

	if err := p.sender.Send(p.packetBuffer.Bytes()); err != nil {
		return err
	}
	applog.Debugf("UDP publisher: sent packet %d (%d bytes)", p.sequenceNum, p.packetBuffer.Len())
	return nil
}

// Close shuts down the underlying sender.
func (p *Publisher) Close() error {
	return p.sender.Close()
}
