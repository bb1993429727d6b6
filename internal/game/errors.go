// internal/game/errors.go
package game

import (
	"errors"

	"github.com/jason-s-yu/jackpot/internal/lobby"
)

var (
	ErrEmptyBank        = errors.New("bank is empty")
	ErrNotReady         = errors.New("not all players are ready")
	ErrNotJoined        = errors.New("join first")
	ErrAccessDenied     = errors.New("access denied")
	ErrReadinessNotUsed = errors.New("lobby does not use readiness")
	ErrInvalidAdminData = errors.New("invalid admin data")
	ErrUnknownAdmin     = errors.New("unknown admin command")
	ErrClosed           = errors.New("coordinator is closed")
)

// Kind groups errors by how they are reported back to a client.
type Kind int

const (
	KindInternal Kind = iota
	// KindValidation errors are sent to the originator only.
	KindValidation
	// KindAuthorization errors are answered with "access denied".
	KindAuthorization
)

// Classify returns the reporting kind of err.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return KindInternal
	case errors.Is(err, ErrAccessDenied):
		return KindAuthorization
	case errors.Is(err, lobby.ErrInsufficientFunds),
		errors.Is(err, lobby.ErrRoundActive),
		errors.Is(err, lobby.ErrNoBet),
		errors.Is(err, lobby.ErrNotMember),
		errors.Is(err, lobby.ErrUnknownLobby),
		errors.Is(err, lobby.ErrUnknownParticipant),
		errors.Is(err, lobby.ErrDuplicateID),
		errors.Is(err, ErrEmptyBank),
		errors.Is(err, ErrNotReady),
		errors.Is(err, ErrNotJoined),
		errors.Is(err, ErrReadinessNotUsed),
		errors.Is(err, ErrInvalidAdminData),
		errors.Is(err, ErrUnknownAdmin):
		return KindValidation
	default:
		return KindInternal
	}
}
