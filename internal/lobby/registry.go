// internal/lobby/registry.go
package lobby

import (
	"fmt"
	"sync"

	"github.com/jason-s-yu/jackpot/internal/models"
	"github.com/sirupsen/logrus"
)

// Registry owns every lobby and participant in the process, plus the
// connection id <-> participant id mapping. Lock order is always the registry
// lock first, then lobby locks ordered by lobby id.
type Registry struct {
	mu      sync.RWMutex
	lobbies map[string]*Lobby
	names   []string // lobby ids in configuration order

	participants map[string]*models.Participant
	connToPart   map[string]string
	partToConn   map[string]string

	defaultLobby string
	logger       *logrus.Logger
}

// NewRegistry creates a registry with one lobby per mode. The first mode is
// the default lobby unless defaultLobby names another one.
func NewRegistry(modes []Mode, defaultLobby string, logger *logrus.Logger) (*Registry, error) {
	if len(modes) == 0 {
		return nil, fmt.Errorf("registry needs at least one lobby")
	}
	r := &Registry{
		lobbies:      make(map[string]*Lobby, len(modes)),
		participants: make(map[string]*models.Participant),
		connToPart:   make(map[string]string),
		partToConn:   make(map[string]string),
		logger:       logger,
	}
	for _, m := range modes {
		if _, dup := r.lobbies[m.Name]; dup {
			return nil, fmt.Errorf("duplicate lobby %q", m.Name)
		}
		r.lobbies[m.Name] = New(m)
		r.names = append(r.names, m.Name)
	}
	if defaultLobby == "" {
		defaultLobby = modes[0].Name
	}
	if _, ok := r.lobbies[defaultLobby]; !ok {
		return nil, fmt.Errorf("default lobby %q: %w", defaultLobby, ErrUnknownLobby)
	}
	r.defaultLobby = defaultLobby
	return r, nil
}

// DefaultLobby returns the id of the lobby new participants land in.
func (r *Registry) DefaultLobby() string {
	return r.defaultLobby
}

// Lobby returns the lobby with id.
func (r *Registry) Lobby(id string) (*Lobby, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.lobbies[id]
	return l, ok
}

// Lobbies returns every lobby in configuration order.
func (r *Registry) Lobbies() []*Lobby {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Lobby, 0, len(r.names))
	for _, n := range r.names {
		out = append(out, r.lobbies[n])
	}
	return out
}

// ModeNames returns the lobby ids in configuration order.
func (r *Registry) ModeNames() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Participant returns the participant with id.
func (r *Registry) Participant(id string) (*models.Participant, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.participants[id]
	return p, ok
}

// Participants returns every known participant, grouped by lobby in
// configuration order and member order within a lobby.
func (r *Registry) Participants() []*models.Participant {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*models.Participant, 0, len(r.participants))
	for _, n := range r.names {
		for _, id := range r.lobbies[n].Members() {
			out = append(out, r.participants[id])
		}
	}
	return out
}

// LobbyOf returns the lobby the participant currently belongs to.
func (r *Registry) LobbyOf(participantID string) (*Lobby, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.participants[participantID]
	if !ok {
		return nil, false
	}
	l, ok := r.lobbies[p.Lobby]
	return l, ok
}

// Add registers a new participant in lobbyID (the default lobby if empty).
func (r *Registry) Add(p *models.Participant, lobbyID string) (*Lobby, error) {
	if lobbyID == "" {
		lobbyID = r.defaultLobby
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.participants[p.ID]; exists {
		return nil, ErrDuplicateID
	}
	l, ok := r.lobbies[lobbyID]
	if !ok {
		return nil, fmt.Errorf("%q: %w", lobbyID, ErrUnknownLobby)
	}
	l.Mu.Lock()
	l.AddMemberUnsafe(p)
	l.Mu.Unlock()
	r.participants[p.ID] = p
	r.logger.WithFields(logrus.Fields{"participant": p.ID, "lobby": l.ID, "role": p.Role}).Debug("Registry: participant added")
	return l, nil
}

// Assign moves a participant into lobbyID, removing it from its previous
// lobby and resetting its ready flag. A bet held in the old lobby is refunded;
// moving out of a running round while holding a bet fails with ErrRoundActive.
func (r *Registry) Assign(participantID, lobbyID string) (from, to *Lobby, refund int64, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.participants[participantID]
	if !ok {
		return nil, nil, 0, ErrUnknownParticipant
	}
	to, ok = r.lobbies[lobbyID]
	if !ok {
		return nil, nil, 0, fmt.Errorf("%q: %w", lobbyID, ErrUnknownLobby)
	}
	from = r.lobbies[p.Lobby]
	if from == to {
		to.Mu.Lock()
		p.Ready = false
		to.CancelGraceUnsafe()
		to.Mu.Unlock()
		return from, to, 0, nil
	}

	first, second := from, to
	if second.ID < first.ID {
		first, second = second, first
	}
	first.Mu.Lock()
	defer first.Mu.Unlock()
	second.Mu.Lock()
	defer second.Mu.Unlock()

	refund, err = from.RemoveMemberUnsafe(participantID)
	if err != nil {
		return nil, nil, 0, err
	}
	to.AddMemberUnsafe(p)
	r.logger.WithFields(logrus.Fields{"participant": participantID, "from": from.ID, "to": to.ID, "refund": refund}).Info("Registry: participant moved")
	return from, to, refund, nil
}

// Remove deletes a participant entirely, refunding any idle bet and
// unbinding its connection. Returns the lobby it was in and the unbound
// connection id, if any.
func (r *Registry) Remove(participantID string) (*Lobby, string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.participants[participantID]
	if !ok {
		return nil, "", ErrUnknownParticipant
	}
	l := r.lobbies[p.Lobby]
	l.Mu.Lock()
	_, err := l.RemoveMemberUnsafe(participantID)
	if err == nil {
		p.Online = false
	}
	l.Mu.Unlock()
	if err != nil {
		return nil, "", err
	}
	delete(r.participants, participantID)
	connID := r.partToConn[participantID]
	if connID != "" {
		delete(r.partToConn, participantID)
		delete(r.connToPart, connID)
	}
	r.logger.WithFields(logrus.Fields{"participant": participantID, "lobby": l.ID}).Info("Registry: participant removed")
	return l, connID, nil
}

// Members returns the participant ids of a lobby in insertion order.
func (r *Registry) Members(lobbyID string) ([]string, error) {
	l, ok := r.Lobby(lobbyID)
	if !ok {
		return nil, fmt.Errorf("%q: %w", lobbyID, ErrUnknownLobby)
	}
	return l.Members(), nil
}

// Bind attaches a connection to a participant and marks it online. Any
// connection previously bound to the participant is unbound and returned.
func (r *Registry) Bind(connID, participantID string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.participants[participantID]
	if !ok {
		return "", ErrUnknownParticipant
	}
	if prevPart, ok := r.connToPart[connID]; ok && prevPart != participantID {
		// the connection switches identity: the old participant goes offline
		delete(r.partToConn, prevPart)
		r.setOnlineLocked(prevPart, false)
	}
	prevConn := r.partToConn[participantID]
	if prevConn == connID {
		prevConn = ""
	}
	if prevConn != "" {
		delete(r.connToPart, prevConn)
	}
	r.connToPart[connID] = participantID
	r.partToConn[participantID] = connID

	l := r.lobbies[p.Lobby]
	l.Mu.Lock()
	p.Online = true
	l.Mu.Unlock()
	return prevConn, nil
}

// Unbind detaches a connection. The participant is kept with its balance and
// marked offline. Returns the participant id that was bound.
func (r *Registry) Unbind(connID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	participantID, ok := r.connToPart[connID]
	if !ok {
		return "", false
	}
	delete(r.connToPart, connID)
	if r.partToConn[participantID] == connID {
		delete(r.partToConn, participantID)
	}
	r.setOnlineLocked(participantID, false)
	return participantID, true
}

// setOnlineLocked assumes the registry lock is held.
func (r *Registry) setOnlineLocked(participantID string, online bool) {
	p, ok := r.participants[participantID]
	if !ok {
		return
	}
	l := r.lobbies[p.Lobby]
	l.Mu.Lock()
	p.Online = online
	l.Mu.Unlock()
}

// ConnOf returns the connection bound to a participant.
func (r *Registry) ConnOf(participantID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.partToConn[participantID]
	return c, ok
}

// ParticipantOf returns the participant bound to a connection.
func (r *Registry) ParticipantOf(connID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.connToPart[connID]
	return p, ok
}

// ConnsOf returns the connections of every connected member of a lobby, in member order.
func (r *Registry) ConnsOf(lobbyID string) []string {
	l, ok := r.Lobby(lobbyID)
	if !ok {
		return nil
	}
	ids := l.Members()
	r.mu.RLock()
	defer r.mu.RUnlock()
	conns := make([]string, 0, len(ids))
	for _, id := range ids {
		if c, ok := r.partToConn[id]; ok {
			conns = append(conns, c)
		}
	}
	return conns
}
