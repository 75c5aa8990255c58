// SPDX-License-Identifier: MIT
/*
Package openrgb is a minimal client for the OpenRGB SDK server, the
lighting sink of the pipeline. It speaks protocol version 0 over a
plain TCP connection and covers exactly the operations the pipeline
consumes: controller discovery, full-frame updates and single-element
updates.

Thread Safety:
- A mutex serializes requests; the SDK connection carries one
  request/response exchange at a time.
*/
package openrgb

import (
	"context"
	"encoding/binary"
	"fmt"
	"net"
	"sync"
	"time"
)

// Client is a connection to an OpenRGB SDK server.
type Client struct {
	mu     sync.Mutex
	conn   net.Conn
	closed bool
}

// Dial connects to the SDK server at addr ("host:port") and registers
// clientName for display in the server UI.
func Dial(ctx context.Context, addr, clientName string) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to OpenRGB server at %s: %w", addr, err)
	}

	c := &Client{conn: conn}
	if clientName != "" {
		if err := c.SetClientName(ctx, clientName); err != nil {
			conn.Close()
			return nil, err
		}
	}
	return c, nil
}

// SetClientName registers the client's display name with the server.
func (c *Client) SetClientName(ctx context.Context, name string) error {
	payload := append([]byte(name), 0)
	return c.send(ctx, 0, cmdSetClientName, payload)
}

// ControllerCount returns the number of controllers the server exposes.
func (c *Client) ControllerCount(ctx context.Context) (int, error) {
	payload, err := c.request(ctx, 0, cmdRequestControllerCount, nil)
	if err != nil {
		return 0, err
	}
	if len(payload) < 4 {
		return 0, fmt.Errorf("controller count response too short: %d bytes", len(payload))
	}
	return int(binary.LittleEndian.Uint32(payload)), nil
}

// Controller queries the metadata record of one controller. The
// pipeline calls this once at startup to learn the LED count.
func (c *Client) Controller(ctx context.Context, deviceID int) (*Controller, error) {
	payload, err := c.request(ctx, uint32(deviceID), cmdRequestControllerData, nil)
	if err != nil {
		return nil, err
	}
	return parseController(payload)
}

// UpdateLEDs sends a full color frame to the controller. The frame must
// have exactly one color per lighting element.
func (c *Client) UpdateLEDs(ctx context.Context, deviceID int, colors []Color) error {
	return c.send(ctx, uint32(deviceID), cmdUpdateLEDs, encodeUpdateLEDs(colors))
}

// UpdateLED sets a single lighting element.
func (c *Client) UpdateLED(ctx context.Context, deviceID, index int, color Color) error {
	return c.send(ctx, uint32(deviceID), cmdUpdateSingleLED, encodeUpdateSingleLED(index, color))
}

// Close shuts down the connection. Safe to call more than once.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	return c.conn.Close()
}

// send transmits one fire-and-forget message under the connection lock,
// honoring the context deadline.
func (c *Client) send(ctx context.Context, deviceID, packetID uint32, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return fmt.Errorf("client is closed")
	}
	if err := c.applyDeadline(ctx); err != nil {
		return err
	}
	return writeMessage(c.conn, deviceID, packetID, payload)
}

// request transmits one message and reads the matching response.
func (c *Client) request(ctx context.Context, deviceID, packetID uint32, payload []byte) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, fmt.Errorf("client is closed")
	}
	if err := c.applyDeadline(ctx); err != nil {
		return nil, err
	}

	if err := writeMessage(c.conn, deviceID, packetID, payload); err != nil {
		return nil, err
	}

	h, resp, err := readMessage(c.conn)
	if err != nil {
		return nil, err
	}
	if h.PacketID != packetID {
		return nil, fmt.Errorf("response packet id %d does not match request %d", h.PacketID, packetID)
	}
	return resp, nil
}

// applyDeadline maps the context deadline onto the socket. Callers
// without a deadline clear any previous one.
func (c *Client) applyDeadline(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Time{}
	}
	return c.conn.SetDeadline(deadline)
}
