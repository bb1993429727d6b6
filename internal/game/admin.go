// internal/game/admin.go
package game

import (
	"fmt"

	"github.com/jason-s-yu/jackpot/internal/lobby"
	"github.com/jason-s-yu/jackpot/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	AdminSetBalance    = "set_balance"
	AdminAddBalance    = "add_balance"
	AdminGetStats      = "get_stats"
	AdminKick          = "kick"
	AdminResetGame     = "reset_game"
	AdminSetMultiplier = "set_multiplier"
	AdminListPlayers   = "list_players"
)

// isAdmin reports whether the session may act as admin id. The connection
// must be bound to id, and when tokens are required the verified subject
// must match too.
func (c *Coordinator) isAdmin(sess Session, id string) bool {
	if !c.admins[id] {
		return false
	}
	if c.cfg.RequireAdminToken && sess.Subject != id {
		return false
	}
	bound, ok := c.registry.ParticipantOf(sess.ConnID)
	return ok && bound == id
}

func (c *Coordinator) admin(sess Session, cmd models.AdminCommand, e *effects) error {
	if !c.isAdmin(sess, cmd.ID) {
		return ErrAccessDenied
	}
	log := c.logger.WithFields(logrus.Fields{"admin": cmd.ID, "command": cmd.Command, "target": cmd.Data.TargetID})

	data, err := c.runAdmin(cmd, e)
	if err != nil {
		log.WithError(err).Warn("Admin command failed")
		e.send(sess.ConnID, models.AdminResponse(cmd.Command, false, err.Error(), nil))
		return nil
	}
	log.Info("Admin command executed")
	e.send(sess.ConnID, models.AdminResponse(cmd.Command, true, "ok", data))
	return nil
}

func (c *Coordinator) runAdmin(cmd models.AdminCommand, e *effects) (interface{}, error) {
	d := cmd.Data
	switch cmd.Command {
	case AdminSetBalance:
		return c.updateParticipant(d.TargetID, e, func(p *models.Participant) (interface{}, error) {
			if d.Amount < 0 {
				return nil, fmt.Errorf("%w: negative balance", ErrInvalidAdminData)
			}
			p.Balance = d.Amount
			return map[string]interface{}{"id": p.ID, "balance": p.Balance}, nil
		})
	case AdminAddBalance:
		return c.updateParticipant(d.TargetID, e, func(p *models.Participant) (interface{}, error) {
			if p.Balance+d.Amount < 0 {
				return nil, fmt.Errorf("%w: balance would go negative", ErrInvalidAdminData)
			}
			p.Balance += d.Amount
			return map[string]interface{}{"id": p.ID, "balance": p.Balance}, nil
		})
	case AdminSetMultiplier:
		return c.updateParticipant(d.TargetID, e, func(p *models.Participant) (interface{}, error) {
			if d.Multiplier <= 0 {
				return nil, fmt.Errorf("%w: multiplier must be positive", ErrInvalidAdminData)
			}
			p.Multiplier = d.Multiplier
			return map[string]interface{}{"id": p.ID, "multiplier": p.Multiplier}, nil
		})
	case AdminGetStats:
		return c.stats.Snapshot(), nil
	case AdminKick:
		return c.kick(d.TargetID, e)
	case AdminResetGame:
		lobbyID := d.Lobby
		if lobbyID == "" {
			l, ok := c.registry.LobbyOf(cmd.ID)
			if !ok {
				return nil, lobby.ErrUnknownParticipant
			}
			lobbyID = l.ID
		}
		return c.resetGame(lobbyID, e)
	case AdminListPlayers:
		return c.listPlayers(), nil
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownAdmin, cmd.Command)
	}
}

// updateParticipant applies fn to a participant under its lobby lock and
// broadcasts the new lobby state on success.
func (c *Coordinator) updateParticipant(id string, e *effects, fn func(*models.Participant) (interface{}, error)) (interface{}, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: missing targetId", ErrInvalidAdminData)
	}
	l, p, err := c.lockParticipant(id)
	if err != nil {
		return nil, err
	}
	defer l.Mu.Unlock()

	data, err := fn(p)
	if err != nil {
		return nil, err
	}
	e.broadcast(l.ID, l.StateEventUnsafe())
	if !p.IsBot() {
		e.save = append(e.save, c.profileUnsafe(p))
	}
	return data, nil
}

// kick removes a participant for good, together with its profile and its
// per-participant stats. A participant holding a bet in an active round
// cannot be kicked until the round resolves.
func (c *Coordinator) kick(id string, e *effects) (interface{}, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: missing targetId", ErrInvalidAdminData)
	}
	p, ok := c.registry.Participant(id)
	if !ok {
		return nil, lobby.ErrUnknownParticipant
	}
	l, connID, err := c.registry.Remove(id)
	if err != nil {
		return nil, err
	}
	e.send(connID, models.ErrorEvent("removed by an administrator"))
	c.settleLeftLobby(l, e)
	c.stats.Forget(id)

	if !p.IsBot() {
		c.mu.Lock()
		delete(c.known, id)
		c.mu.Unlock()
		e.remove = append(e.remove, id)
	}
	return map[string]interface{}{"id": id, "lobby": l.ID}, nil
}

// resetGame cancels any pending round or countdown in a lobby and refunds
// every bet.
func (c *Coordinator) resetGame(lobbyID string, e *effects) (interface{}, error) {
	l, ok := c.registry.Lobby(lobbyID)
	if !ok {
		return nil, fmt.Errorf("%q: %w", lobbyID, lobby.ErrUnknownLobby)
	}
	l.Mu.Lock()
	defer l.Mu.Unlock()

	cancelled := l.CancelRoundUnsafe()
	l.CancelGraceUnsafe()
	refunded := l.RefundAllUnsafe()
	l.ResetReadinessUnsafe()
	e.broadcast(l.ID, l.StateEventUnsafe())
	for _, p := range refunded {
		if !p.IsBot() {
			e.save = append(e.save, c.profileUnsafe(p))
		}
	}
	return map[string]interface{}{
		"lobby":          l.ID,
		"roundCancelled": cancelled,
		"refunded":       len(refunded),
	}, nil
}

// listPlayers returns a copy of every participant, grouped by lobby.
func (c *Coordinator) listPlayers() []models.Participant {
	var out []models.Participant
	for _, l := range c.registry.Lobbies() {
		l.Mu.Lock()
		for _, p := range l.ParticipantsUnsafe() {
			out = append(out, *p)
		}
		l.Mu.Unlock()
	}
	return out
}
