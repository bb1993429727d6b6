// internal/models/player.go
package models

// Role distinguishes real participants from synthetic bots.
type Role string

const (
	RoleHuman Role = "human"
	RoleBot   Role = "bot"
)

// Participant is a single player's in-memory state. Balance and Bet are only
// mutated while the owning lobby's lock is held.
type Participant struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Role    Role   `json:"role"`
	Balance int64  `json:"balance"`
	Bet     int64  `json:"bet"`
	Online  bool   `json:"online"`

	// Multiplier skews the weighted draw. Zero means 1.0.
	Multiplier float64 `json:"multiplier,omitempty"`

	Lobby string `json:"lobby"`
	Ready bool   `json:"ready"`
}

// IsBot reports whether the participant is a bot.
func (p *Participant) IsBot() bool {
	return p.Role == RoleBot
}

// EffectiveMultiplier returns the multiplier used by the selector.
func (p *Participant) EffectiveMultiplier() float64 {
	if p.Multiplier <= 0 {
		return 1.0
	}
	return p.Multiplier
}
