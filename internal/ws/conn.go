// Package ws provides the WebSocket transport for voice sessions.
package ws

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/siddhartharyaai/voice-soul-agent-isha/internal/config"
)

// Connection wraps one WebSocket connection. Outbound frames go through
// a buffered channel drained by writePump so session goroutines never
// block on a slow client.
type Connection struct {
	ID   string
	ws   *websocket.Conn
	send chan []byte
	cfg  *config.Config

	logger    *slog.Logger
	closeOnce sync.Once
	closed    chan struct{}
}

func newConnection(ws *websocket.Conn, cfg *config.Config, logger *slog.Logger) *Connection {
	return &Connection{
		ID:     "conn_" + uuid.New().String(),
		ws:     ws,
		send:   make(chan []byte, 64),
		cfg:    cfg,
		logger: logger,
		closed: make(chan struct{}),
	}
}

// Send marshals v and queues it for the write pump.
func (c *Connection) Send(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal frame: %w", err)
	}
	select {
	case <-c.closed:
		return fmt.Errorf("connection %s is closed", c.ID)
	case c.send <- data:
		return nil
	default:
		// Buffer full; the client is not keeping up.
		c.Close()
		return fmt.Errorf("connection %s send buffer full", c.ID)
	}
}

// Close shuts the connection down. Safe to call more than once.
func (c *Connection) Close() error {
	c.closeOnce.Do(func() {
		close(c.closed)
		c.ws.Close()
	})
	return nil
}

// writePump drains the send channel and keeps the connection alive with
// pings.
func (c *Connection) writePump() {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-c.closed:
			c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			c.ws.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case data := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Warn("failed to write frame", "conn_id", c.ID, "error", err)
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
