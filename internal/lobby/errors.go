package lobby

import "errors"

// Validation errors surfaced to the originating client.
var (
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrRoundActive        = errors.New("round already in progress")
	ErrNoBet              = errors.New("no bet to clear")
	ErrNotMember          = errors.New("participant is not in this lobby")
	ErrUnknownLobby       = errors.New("unknown lobby")
	ErrUnknownParticipant = errors.New("unknown participant")
	ErrDuplicateID        = errors.New("participant already exists")
)
