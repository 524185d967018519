// Package websocket pushes domain events to browser and Home Assistant clients.
package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"

	"github.com/lcalzada-xor/bluespeak/internal/core/domain"
)

const (
	writeWait  = 5 * time.Second
	pingPeriod = 30 * time.Second
)

type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// WSManager tracks connected clients and broadcasts events to them.
type WSManager struct {
	AllowedOrigins []string

	upgrader ws.Upgrader
	clients  map[*ws.Conn]struct{}
	mu       sync.Mutex
}

// NewWSManager creates a manager. Same-origin requests and requests without an
// Origin header are always accepted.
func NewWSManager(allowedOrigins ...string) *WSManager {
	m := &WSManager{
		AllowedOrigins: allowedOrigins,
		clients:        make(map[*ws.Conn]struct{}),
	}
	m.upgrader = ws.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     m.checkOrigin,
	}
	return m
}

func (m *WSManager) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if u, err := url.Parse(origin); err == nil && u.Host == r.Host {
		return true
	}
	for _, allowed := range m.AllowedOrigins {
		if origin == allowed {
			return true
		}
	}
	slog.Warn("WebSocket origin rejected", "origin", origin)
	return false
}

// Start keeps connections alive with pings until ctx ends, then closes them.
func (m *WSManager) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				m.closeAll()
				return
			case <-ticker.C:
				m.ping()
			}
		}
	}()
}

func (m *WSManager) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("WebSocket upgrade failed", "error", err)
		return
	}

	m.mu.Lock()
	m.clients[conn] = struct{}{}
	count := len(m.clients)
	m.mu.Unlock()
	slog.Info("WebSocket connected", "remote", r.RemoteAddr, "clients", count)

	go func() {
		defer m.remove(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// Publish implements ports.EventPublisher.
func (m *WSManager) Publish(_ context.Context, event domain.Event) {
	m.broadcastMessage(WSMessage{Type: event.Type, Payload: event})
}

// ClientCount returns the number of connected clients.
func (m *WSManager) ClientCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.clients)
}

func (m *WSManager) broadcastMessage(msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("WebSocket marshal failed", "type", msg.Type, "error", err)
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for conn := range m.clients {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(ws.TextMessage, data); err != nil {
			conn.Close()
			delete(m.clients, conn)
		}
	}
}

func (m *WSManager) ping() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for conn := range m.clients {
		if err := conn.WriteControl(ws.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
			conn.Close()
			delete(m.clients, conn)
		}
	}
}

func (m *WSManager) remove(conn *ws.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.clients[conn]; ok {
		conn.Close()
		delete(m.clients, conn)
		slog.Info("WebSocket disconnected", "clients", len(m.clients))
	}
}

func (m *WSManager) closeAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for conn := range m.clients {
		_ = conn.WriteControl(ws.CloseMessage, ws.FormatCloseMessage(ws.CloseGoingAway, "server shutting down"), time.Now().Add(writeWait))
		conn.Close()
		delete(m.clients, conn)
	}
}
