// internal/models/stats.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// ParticipantStats holds cumulative per-participant counters.
type ParticipantStats struct {
	Wins        int   `json:"wins"`
	Losses      int   `json:"losses"`
	GamesPlayed int   `json:"games_played"`
	TotalBet    int64 `json:"total_bet"`
	TotalWon    int64 `json:"total_won"`
}

// GameStats aggregates every resolved round in the process.
type GameStats struct {
	TotalRounds  int                         `json:"total_rounds"`
	TotalWins    int                         `json:"total_wins"`
	TotalLosses  int                         `json:"total_losses"`
	TotalWagered int64                       `json:"total_wagered"`
	TotalPaidOut int64                       `json:"total_paid_out"`
	Participants map[string]ParticipantStats `json:"participants,omitempty"`
}

// Summary returns a copy without the per-participant breakdown.
func (s GameStats) Summary() GameStats {
	s.Participants = nil
	return s
}

// RoundRecord is the historian's view of one resolved round.
type RoundRecord struct {
	RoundID    uuid.UUID        `json:"round_id"`
	Lobby      string           `json:"lobby"`
	WinnerID   string           `json:"winner_id"`
	WinnerName string           `json:"winner_name"`
	Payout     int64            `json:"payout"`
	Bets       map[string]int64 `json:"bets"`
	StartedAt  time.Time        `json:"started_at"`
	ResolvedAt time.Time        `json:"resolved_at"`
}
