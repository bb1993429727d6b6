package config

import (
	"testing"
	"time"

	"github.com/jason-s-yu/jackpot/internal/cache"
	"github.com/jason-s-yu/jackpot/internal/lobby"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "LOG_LEVEL", "START_BALANCE", "BOT_COUNT", "BOT_MULTIPLIER",
		"ROUND_DELAY_SEC", "READY_GRACE_SEC", "LOBBIES", "DEFAULT_LOBBY", "ADMIN_IDS",
		"ADMIN_REQUIRE_TOKEN", "DATABASE_URL", "REDIS_ADDR", "HISTORIAN_QUEUE_NAME"} {
		t.Setenv(k, "")
	}
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, logrus.DebugLevel, cfg.LogLevel)
	assert.Equal(t, int64(1000), cfg.StartBalance)
	assert.Equal(t, 3, cfg.BotCount)
	assert.Equal(t, 1.0, cfg.BotMultiplier)
	assert.Equal(t, 6*time.Second, cfg.RoundDelay)
	assert.Equal(t, 5*time.Second, cfg.ReadyGrace)
	assert.Equal(t, []lobby.Mode{
		{Name: "bots", Bots: true},
		{Name: "pvp", ReadinessGate: true},
	}, cfg.Lobbies)
	assert.Equal(t, "bots", cfg.DefaultLobby)
	assert.Empty(t, cfg.AdminIDs)
	assert.Equal(t, cache.DefaultQueueName, cfg.QueueName)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("START_BALANCE", "250")
	t.Setenv("BOT_MULTIPLIER", "1.5")
	t.Setenv("ADMIN_IDS", " root, ops ,")
	t.Setenv("ADMIN_REQUIRE_TOKEN", "true")
	t.Setenv("LOBBIES", "arena:bots+ready")
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("DEFAULT_LOBBY", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, int64(250), cfg.StartBalance)
	assert.Equal(t, 1.5, cfg.BotMultiplier)
	assert.Equal(t, []string{"root", "ops"}, cfg.AdminIDs)
	assert.True(t, cfg.AdminRequireToken)
	assert.Equal(t, []lobby.Mode{{Name: "arena", Bots: true, ReadinessGate: true}}, cfg.Lobbies)
	assert.Equal(t, "arena", cfg.DefaultLobby)
	assert.Equal(t, logrus.WarnLevel, cfg.LogLevel)
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("LOG_LEVEL", "loud")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("LOG_LEVEL", "")
	t.Setenv("START_BALANCE", "-1")
	_, err = Load()
	assert.Error(t, err)
}

func TestParseLobbies(t *testing.T) {
	modes, err := ParseLobbies("a, b:ready ,c:bots")
	require.NoError(t, err)
	assert.Equal(t, []lobby.Mode{{Name: "a"}, {Name: "b", ReadinessGate: true}, {Name: "c", Bots: true}}, modes)

	for _, bad := range []string{"", "a,a", ":bots", "a:turbo"} {
		_, err := ParseLobbies(bad)
		assert.Error(t, err, bad)
	}
}

func TestLoadHistorian(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	_, err := LoadHistorian()
	require.Error(t, err)

	t.Setenv("DATABASE_URL", "postgres://localhost/jackpot")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("HISTORIAN_QUEUE_NAME", "")
	t.Setenv("HISTORIAN_BATCH_SIZE", "50")
	t.Setenv("HISTORIAN_FLUSH_MS", "")
	cfg, err := LoadHistorian()
	require.NoError(t, err)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, cache.DefaultQueueName, cfg.QueueName)
	assert.Equal(t, 50, cfg.BatchSize)
	assert.Equal(t, 500*time.Millisecond, cfg.FlushDelay)
}
