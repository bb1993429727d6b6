// internal/handlers/hub.go
package handlers

import (
	"sync"

	"github.com/jason-s-yu/jackpot/internal/game"
	"github.com/jason-s-yu/jackpot/internal/lobby"
	"github.com/jason-s-yu/jackpot/internal/models"
	"github.com/sirupsen/logrus"
)

// Hub tracks live connections and routes coordinator events to them.
type Hub struct {
	mu       sync.RWMutex
	conns    map[string]*Connection
	registry *lobby.Registry
	logger   *logrus.Logger
}

var _ game.Notifier = (*Hub)(nil)

func NewHub(registry *lobby.Registry, logger *logrus.Logger) *Hub {
	return &Hub{
		conns:    make(map[string]*Connection),
		registry: registry,
		logger:   logger,
	}
}

func (h *Hub) Register(c *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[c.ID] = c
}

func (h *Hub) Unregister(id string) {
	h.mu.Lock()
	c, ok := h.conns[id]
	delete(h.conns, id)
	h.mu.Unlock()
	if ok {
		c.Close()
	}
}

// Count returns the number of live connections.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Broadcast sends ev to every connected member of a lobby.
func (h *Hub) Broadcast(lobbyID string, ev models.Event) {
	for _, id := range h.registry.ConnsOf(lobbyID) {
		h.Send(id, ev)
	}
}

// Send sends ev to one connection. Unknown or congested connections drop it.
func (h *Hub) Send(connID string, ev models.Event) {
	h.mu.RLock()
	c, ok := h.conns[connID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	if !c.Write(ev) {
		h.logger.WithFields(logrus.Fields{"conn": connID, "type": ev.Type}).Warn("Dropped outbound event")
	}
}

// CloseAll shuts every connection down.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	conns := h.conns
	h.conns = make(map[string]*Connection)
	h.mu.Unlock()
	for _, c := range conns {
		c.Close()
	}
}
