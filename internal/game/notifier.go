// internal/game/notifier.go
package game

import (
	"github.com/jason-s-yu/jackpot/internal/models"
)

// Notifier delivers outbound events. Delivery is best effort: a slow or
// closed connection drops the event.
type Notifier interface {
	// Broadcast sends ev to every connected member of a lobby.
	Broadcast(lobbyID string, ev models.Event)
	// Send sends ev to a single connection.
	Send(connID string, ev models.Event)
}

// Outbound is an event addressed either to a lobby or to a single connection.
type Outbound struct {
	Lobby string
	Conn  string
	Event models.Event
}

func (o Outbound) deliver(n Notifier) {
	if o.Lobby != "" && o.Conn == "" {
		n.Broadcast(o.Lobby, o.Event)
		return
	}
	n.Send(o.Conn, o.Event)
}

// effects collects everything an operation produces while a lobby lock is
// held. They are applied once the lock is released.
type effects struct {
	out    []Outbound
	save   []models.Profile
	remove []string
	record *models.RoundRecord
}

func (e *effects) broadcast(lobbyID string, ev models.Event) {
	if ev.Lobby == "" {
		ev.Lobby = lobbyID
	}
	e.out = append(e.out, Outbound{Lobby: lobbyID, Event: ev})
}

func (e *effects) send(connID string, ev models.Event) {
	if connID == "" {
		return
	}
	e.out = append(e.out, Outbound{Conn: connID, Event: ev})
}
