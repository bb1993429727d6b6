// internal/game/stats.go
package game

import (
	"sync"

	"github.com/jason-s-yu/jackpot/internal/models"
)

// Tracker accumulates process-wide round statistics. It is append-only and
// safe for concurrent use.
type Tracker struct {
	mu    sync.Mutex
	stats models.GameStats
}

func NewTracker() *Tracker {
	return &Tracker{stats: models.GameStats{Participants: make(map[string]models.ParticipantStats)}}
}

// Seed restores the cumulative counters of a participant loaded from storage.
func (t *Tracker) Seed(id string, s models.ParticipantStats) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stats.Participants[id] = s
}

// RecordRound adds one resolved round. bets maps every bettor to its stake.
// Returns the updated totals without the per-participant breakdown.
func (t *Tracker) RecordRound(winnerID string, payout int64, bets map[string]int64) models.GameStats {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stats.TotalRounds++
	t.stats.TotalWins++
	t.stats.TotalPaidOut += payout
	for id, bet := range bets {
		t.stats.TotalWagered += bet
		ps := t.stats.Participants[id]
		ps.GamesPlayed++
		ps.TotalBet += bet
		if id == winnerID {
			ps.Wins++
			ps.TotalWon += payout
		} else {
			ps.Losses++
			t.stats.TotalLosses++
		}
		t.stats.Participants[id] = ps
	}
	return t.stats.Summary()
}

// Snapshot returns a deep copy of the current statistics.
func (t *Tracker) Snapshot() models.GameStats {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := t.stats
	out.Participants = make(map[string]models.ParticipantStats, len(t.stats.Participants))
	for id, ps := range t.stats.Participants {
		out.Participants[id] = ps
	}
	return out
}

// Participant returns the counters of one participant.
func (t *Tracker) Participant(id string) (models.ParticipantStats, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	ps, ok := t.stats.Participants[id]
	return ps, ok
}

// Forget drops the per-participant counters of id. Process-wide totals are kept.
func (t *Tracker) Forget(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.stats.Participants, id)
}
