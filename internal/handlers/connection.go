// internal/handlers/connection.go
package handlers

import (
	"context"
	"sync"

	"github.com/jason-s-yu/jackpot/internal/models"
)

const outboxSize = 32

// Connection wraps a single client's active WebSocket connection.
type Connection struct {
	ID      string
	Remote  string
	Subject string // verified token subject, empty when unauthenticated
	Cancel  context.CancelFunc
	OutChan chan models.Event

	mu     sync.Mutex
	closed bool
}

func newConnection(id, remote, subject string, cancel context.CancelFunc) *Connection {
	return &Connection{
		ID:      id,
		Remote:  remote,
		Subject: subject,
		Cancel:  cancel,
		OutChan: make(chan models.Event, outboxSize),
	}
}

// Write pushes an event to the connection's outbox without blocking.
// Returns false if the event was dropped because the client is too slow or gone.
func (c *Connection) Write(ev models.Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.OutChan <- ev:
		return true
	default:
		return false
	}
}

// Close stops the pumps of the connection and closes its outbox.
func (c *Connection) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.Cancel()
	close(c.OutChan)
}
