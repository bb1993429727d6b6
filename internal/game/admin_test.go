package game

import (
	"testing"

	"github.com/jason-s-yu/jackpot/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func adminResponse(t *testing.T, env *testEnv, connID string) models.Event {
	t.Helper()
	last := env.mb.lastSent(connID)
	require.NotNil(t, last)
	require.Equal(t, models.EventAdminResponse, last.Type)
	require.NotNil(t, last.Success)
	return *last
}

func TestAdmin_AccessDenied(t *testing.T) {
	env := setupTestCoordinator(t, testConfig())
	sess := env.join(t, "c1", "p1", "Alice")

	err := env.c.Handle(sess, models.AdminCommand{ID: "p1", Command: AdminSetBalance, Data: models.AdminData{TargetID: "p1", Amount: 1e6}})
	assert.ErrorIs(t, err, ErrAccessDenied)
	last := env.mb.lastSent("c1")
	require.NotNil(t, last)
	assert.Equal(t, models.EventError, last.Type)
	assert.Equal(t, "access denied", last.Message)
	assert.Equal(t, int64(1000), env.participant(t, "p1").Balance)

	// claiming an admin id from a connection bound to someone else
	err = env.c.Handle(sess, models.AdminCommand{ID: "root", Command: AdminGetStats})
	assert.ErrorIs(t, err, ErrAccessDenied)
}

func TestAdmin_RequireToken(t *testing.T) {
	cfg := testConfig()
	cfg.RequireAdminToken = true
	env := setupTestCoordinator(t, cfg)

	env.join(t, "c0", "root", "Root")
	err := env.c.Handle(Session{ConnID: "c0"}, models.AdminCommand{ID: "root", Command: AdminGetStats})
	assert.ErrorIs(t, err, ErrAccessDenied)

	err = env.c.Handle(Session{ConnID: "c0", Subject: "root"}, models.AdminCommand{ID: "root", Command: AdminGetStats})
	require.NoError(t, err)
	assert.True(t, *adminResponse(t, env, "c0").Success)
}

func TestAdmin_SetAndAddBalance(t *testing.T) {
	env := setupTestCoordinator(t, testConfig())
	admin := env.join(t, "c0", "root", "Root")
	env.join(t, "c1", "p1", "Alice")

	require.NoError(t, env.c.Handle(admin, models.AdminCommand{ID: "root", Command: AdminSetBalance, Data: models.AdminData{TargetID: "p1", Amount: 50}}))
	assert.True(t, *adminResponse(t, env, "c0").Success)
	assert.Equal(t, int64(50), env.participant(t, "p1").Balance)

	require.NoError(t, env.c.Handle(admin, models.AdminCommand{ID: "root", Command: AdminAddBalance, Data: models.AdminData{TargetID: "p1", Amount: 25}}))
	assert.Equal(t, int64(75), env.participant(t, "p1").Balance)

	require.NoError(t, env.c.Handle(admin, models.AdminCommand{ID: "root", Command: AdminAddBalance, Data: models.AdminData{TargetID: "p1", Amount: -100}}))
	assert.False(t, *adminResponse(t, env, "c0").Success)
	assert.Equal(t, int64(75), env.participant(t, "p1").Balance)

	saved, ok := env.store.Get("p1")
	require.True(t, ok)
	assert.Equal(t, int64(75), saved.Balance)
}

func TestAdmin_SetBalanceUnknownTarget(t *testing.T) {
	env := setupTestCoordinator(t, testConfig())
	admin := env.join(t, "c0", "root", "Root")
	env.join(t, "c1", "p1", "Alice")
	env.mb.clear()

	require.NoError(t, env.c.Handle(admin, models.AdminCommand{ID: "root", Command: AdminSetBalance, Data: models.AdminData{TargetID: "ghost", Amount: 5}}))
	resp := adminResponse(t, env, "c0")
	assert.False(t, *resp.Success)
	assert.Equal(t, AdminSetBalance, resp.Command)

	assert.Equal(t, int64(1000), env.participant(t, "p1").Balance)
	assert.Equal(t, int64(1000), env.participant(t, "root").Balance)
	_, ok := env.c.Registry().Participant("ghost")
	assert.False(t, ok)
	assert.Empty(t, env.mb.lobbyEvents("bots", models.EventState))
}

func TestAdmin_Kick(t *testing.T) {
	env := setupTestCoordinator(t, testConfig())
	admin := env.join(t, "c0", "root", "Root")
	sess := env.join(t, "c1", "p1", "Alice")
	require.NoError(t, env.c.Handle(sess, models.PlaceBet{ID: "p1", Amount: 100}))
	require.NoError(t, env.c.Handle(sess, models.Start{ID: "p1"}))

	require.NoError(t, env.c.Handle(admin, models.AdminCommand{ID: "root", Command: AdminKick, Data: models.AdminData{TargetID: "p1"}}))
	assert.False(t, *adminResponse(t, env, "c0").Success, "cannot kick a bettor mid-round")

	env.sched.fireAll()
	require.NoError(t, env.c.Handle(admin, models.AdminCommand{ID: "root", Command: AdminKick, Data: models.AdminData{TargetID: "p1"}}))
	assert.True(t, *adminResponse(t, env, "c0").Success)

	_, ok := env.c.Registry().Participant("p1")
	assert.False(t, ok)
	_, ok = env.store.Get("p1")
	assert.False(t, ok)
	kicked := env.mb.lastSent("c1")
	require.NotNil(t, kicked)
	assert.Equal(t, models.EventError, kicked.Type)
	assert.ErrorIs(t, env.c.Handle(sess, models.PlaceBet{ID: "p1", Amount: 1}), ErrNotJoined)

	// per-participant counters go with the participant, totals stay
	stats := env.c.Stats()
	assert.Equal(t, 1, stats.TotalRounds)
	_, ok = stats.Participants["p1"]
	assert.False(t, ok)

	env.join(t, "c1", "p1", "Alice")
	prof, ok := env.store.Get("p1")
	require.True(t, ok)
	assert.Equal(t, int64(1000), prof.Balance)
	assert.Zero(t, prof.Wins)
	assert.Zero(t, prof.GamesPlayed)
	assert.Zero(t, prof.TotalBet)
}

func TestAdmin_KickRearmsReadyCountdown(t *testing.T) {
	env := setupTestCoordinator(t, testConfig())
	admin := env.join(t, "c0", "root", "Root")
	a := joinPvp(t, env, "ca", "a")
	b := joinPvp(t, env, "cb", "b")
	joinPvp(t, env, "cc", "c")
	require.NoError(t, env.c.Handle(a, models.PlaceBet{ID: "a", Amount: 100}))
	require.NoError(t, env.c.Handle(a, models.ToggleReady{ID: "a"}))
	require.NoError(t, env.c.Handle(b, models.ToggleReady{ID: "b"}))
	require.Empty(t, env.sched.pending(), "c is not ready")

	require.NoError(t, env.c.Handle(admin, models.AdminCommand{ID: "root", Command: AdminKick, Data: models.AdminData{TargetID: "c"}}))
	assert.True(t, *adminResponse(t, env, "c0").Success)
	require.Len(t, env.sched.pending(), 1)
	assert.Len(t, env.mb.lobbyEvents("pvp", models.EventLobbyReady), 1)

	require.Equal(t, 1, env.sched.fireAll())
	assert.Len(t, env.mb.lobbyEvents("pvp", models.EventRoundStart), 1)
}

func TestAdmin_SetMultiplierAndList(t *testing.T) {
	env := setupTestCoordinator(t, testConfig(), WithSource(fixedSource(0.5)))
	admin := env.join(t, "c0", "root", "Root")
	s1 := env.join(t, "c1", "p1", "Alice")
	s2 := env.join(t, "c2", "p2", "Bob")

	require.NoError(t, env.c.Handle(admin, models.AdminCommand{ID: "root", Command: AdminSetMultiplier, Data: models.AdminData{TargetID: "p1", Multiplier: 0}}))
	assert.False(t, *adminResponse(t, env, "c0").Success)
	require.NoError(t, env.c.Handle(admin, models.AdminCommand{ID: "root", Command: AdminSetMultiplier, Data: models.AdminData{TargetID: "p1", Multiplier: 4}}))
	assert.True(t, *adminResponse(t, env, "c0").Success)

	// weights 100*4=400 and 300: r = 0.5*700 = 350 lands on p1
	require.NoError(t, env.c.Handle(s1, models.PlaceBet{ID: "p1", Amount: 100}))
	require.NoError(t, env.c.Handle(s2, models.PlaceBet{ID: "p2", Amount: 300}))
	require.NoError(t, env.c.Handle(s1, models.Start{ID: "p1"}))
	env.sched.fireAll()
	ends := env.mb.lobbyEvents("bots", models.EventRoundEnd)
	require.Len(t, ends, 1)
	assert.Equal(t, "p1", ends[0].WinnerID)

	require.NoError(t, env.c.Handle(admin, models.AdminCommand{ID: "root", Command: AdminListPlayers}))
	resp := adminResponse(t, env, "c0")
	players, ok := resp.Data.([]models.Participant)
	require.True(t, ok)
	require.Len(t, players, 3)
	assert.Equal(t, 4.0, players[1].Multiplier)

	require.NoError(t, env.c.Handle(admin, models.AdminCommand{ID: "root", Command: AdminGetStats}))
	stats, ok := adminResponse(t, env, "c0").Data.(models.GameStats)
	require.True(t, ok)
	assert.Equal(t, 1, stats.TotalRounds)
	assert.Contains(t, stats.Participants, "p2")
}

func TestAdmin_UnknownCommand(t *testing.T) {
	env := setupTestCoordinator(t, testConfig())
	admin := env.join(t, "c0", "root", "Root")
	require.NoError(t, env.c.Handle(admin, models.AdminCommand{ID: "root", Command: "nuke"}))
	resp := adminResponse(t, env, "c0")
	assert.False(t, *resp.Success)
	assert.Contains(t, resp.Message, "unknown admin command")
}
