// internal/models/user.go
package models

import "time"

// Profile is the persisted view of a participant, keyed by participant id.
type Profile struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Balance     int64     `json:"balance"`
	Wins        int       `json:"wins"`
	Losses      int       `json:"losses"`
	TotalBet    int64     `json:"total_bet"`
	TotalWon    int64     `json:"total_won"`
	GamesPlayed int       `json:"games_played"`
	JoinedAt    time.Time `json:"joined_at"`
	LastActive  time.Time `json:"last_active"`
}

// Stats returns the cumulative counters of the profile.
func (p Profile) Stats() ParticipantStats {
	return ParticipantStats{
		Wins:        p.Wins,
		Losses:      p.Losses,
		GamesPlayed: p.GamesPlayed,
		TotalBet:    p.TotalBet,
		TotalWon:    p.TotalWon,
	}
}
