package game

import (
	"testing"

	"github.com/jason-s-yu/jackpot/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracker_RecordRound(t *testing.T) {
	tr := NewTracker()
	tr.Seed("p1", models.ParticipantStats{Wins: 2, GamesPlayed: 2, TotalBet: 20, TotalWon: 40})

	summary := tr.RecordRound("p1", 400, map[string]int64{"p1": 100, "p2": 300})
	assert.Nil(t, summary.Participants)
	assert.Equal(t, 1, summary.TotalRounds)
	assert.Equal(t, 1, summary.TotalWins)
	assert.Equal(t, 1, summary.TotalLosses)
	assert.Equal(t, int64(400), summary.TotalWagered)
	assert.Equal(t, int64(400), summary.TotalPaidOut)

	p1, ok := tr.Participant("p1")
	require.True(t, ok)
	assert.Equal(t, models.ParticipantStats{Wins: 3, GamesPlayed: 3, TotalBet: 120, TotalWon: 440}, p1)
	p2, ok := tr.Participant("p2")
	require.True(t, ok)
	assert.Equal(t, models.ParticipantStats{Losses: 1, GamesPlayed: 1, TotalBet: 300}, p2)
}

func TestTracker_Forget(t *testing.T) {
	tr := NewTracker()
	tr.RecordRound("a", 30, map[string]int64{"a": 10, "b": 20})
	tr.Forget("a")

	_, ok := tr.Participant("a")
	assert.False(t, ok)
	_, ok = tr.Participant("b")
	assert.True(t, ok)
	snap := tr.Snapshot()
	assert.Equal(t, 1, snap.TotalRounds)
	assert.Equal(t, int64(30), snap.TotalWagered)
}

func TestTracker_SnapshotIsACopy(t *testing.T) {
	tr := NewTracker()
	tr.RecordRound("a", 10, map[string]int64{"a": 10})
	snap := tr.Snapshot()
	snap.Participants["a"] = models.ParticipantStats{}
	snap.TotalRounds = 99

	again := tr.Snapshot()
	assert.Equal(t, 1, again.TotalRounds)
	assert.Equal(t, 1, again.Participants["a"].Wins)
}

func TestBotBet(t *testing.T) {
	cases := []struct {
		balance int64
		u       float64
		want    int64
	}{
		{1000, 0.01, 100},
		{1000, 0.51, 250},
		{1000, 0.999, 390},
		{5000, 0.9, 500},
		{50, 0, 0},
		{99, 0.99, 30},
		{0, 0.5, 0},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, BotBet(tc.balance, tc.u), "balance=%d u=%v", tc.balance, tc.u)
	}
}
