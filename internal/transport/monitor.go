// SPDX-License-Identifier: MIT
package transport

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"vibesrgb/internal/dsp"
	applog "vibesrgb/internal/log"
)

// binSample is the wire representation of one bin.
type binSample struct {
	Start     int     `json:"start"`
	End       int     `json:"end"`
	Magnitude float64 `json:"magnitude"`
}

// Monitor broadcasts each tick's bins as JSON to connected WebSocket
// clients, for external visualizers. Broadcasts are rate limited so a
// fast pipeline cannot flood slow clients.
//
// Thread Safety:
// - Uses a mutex for the client map
// - Send is called from the scheduler goroutine only
type Monitor struct {
	clients         map[*websocket.Conn]bool
	clientsMutex    sync.Mutex
	upgrader        websocket.Upgrader
	server          *http.Server
	lastSend        time.Time
	minSendInterval time.Duration
}

// NewMonitor creates the monitor and starts its HTTP server on addr
// (e.g. ":8080"). Clients connect to /bins. minSendInterval bounds the
// broadcast rate; zero disables rate limiting.
func NewMonitor(addr string, minSendInterval time.Duration) *Monitor {
	m := &Monitor{
		clients:         make(map[*websocket.Conn]bool),
		minSendInterval: minSendInterval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // local visualizer tooling, any origin
			},
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/bins", m.handleWebSocket)
	m.server = &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		applog.Infof("Monitor: WebSocket server listening on %s", addr)
		if err := m.server.ListenAndServe(); err != http.ErrServerClosed {
			applog.Errorf("Monitor: server error: %v", err)
		}
	}()

	return m
}

// handleWebSocket upgrades HTTP connections and registers the client.
// A goroutine watches for the client closing and removes it.
func (m *Monitor) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		applog.Errorf("Monitor: WebSocket upgrade error: %v", err)
		return
	}

	m.clientsMutex.Lock()
	m.clients[conn] = true
	m.clientsMutex.Unlock()

	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				m.clientsMutex.Lock()
				delete(m.clients, conn)
				m.clientsMutex.Unlock()
				conn.Close()
				return
			}
		}
	}()
}

// Send broadcasts the bins to all connected clients, dropping the
// update when the rate limit has not elapsed. Disconnected clients are
// pruned on write failure.
func (m *Monitor) Send(bins []dsp.Bin) error {
	now := time.Now()
	if now.Sub(m.lastSend) < m.minSendInterval {
		return nil // Skip this update
	}
	m.lastSend = now

	samples := make([]binSample, len(bins))
	for i, b := range bins {
		samples[i] = binSample{Start: b.Range.Start, End: b.Range.End, Magnitude: b.Magnitude}
	}
	jsonData, err := json.Marshal(samples)
	if err != nil {
		return err
	}

	m.clientsMutex.Lock()
	for client := range m.clients {
		if err := client.WriteMessage(websocket.TextMessage, jsonData); err != nil {
			client.Close()
			delete(m.clients, client)
		}
	}
	m.clientsMutex.Unlock()

	return nil
}

// Close disconnects all clients and shuts down the HTTP server.
func (m *Monitor) Close() error {
	m.clientsMutex.Lock()
	for client := range m.clients {
		client.Close()
		delete(m.clients, client)
	}
	m.clientsMutex.Unlock()

	return m.server.Close()
}

var _ Transport = (*Monitor)(nil)
