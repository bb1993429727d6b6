// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jason-s-yu/jackpot/internal/cache"
	"github.com/jason-s-yu/jackpot/internal/lobby"
	"github.com/sirupsen/logrus"
)

// Config is the runtime configuration of the server, read from the environment.
type Config struct {
	Port     string
	LogLevel logrus.Level

	StartBalance  int64
	BotCount      int
	BotMultiplier float64
	RoundDelay    time.Duration
	ReadyGrace    time.Duration
	RNGSeed       int64

	Lobbies      []lobby.Mode
	DefaultLobby string

	AdminIDs          []string
	AdminRequireToken bool
	TokenPrivateKey   string
	TokenPublicKey    string
	TokenExpireTime   string

	DatabaseURL string
	RedisAddr   string
	RedisDB     int
	QueueName   string
}

// Load reads the configuration from environment variables:
//   - PORT (default "8080")
//   - LOG_LEVEL (default "debug")
//   - START_BALANCE (default 1000), BOT_COUNT (3), BOT_MULTIPLIER (1.0)
//   - ROUND_DELAY_SEC (6), READY_GRACE_SEC (5), RNG_SEED (0 => time based)
//   - LOBBIES (default "bots:bots,pvp:ready"), DEFAULT_LOBBY (first lobby)
//   - ADMIN_IDS (comma separated), ADMIN_REQUIRE_TOKEN
//   - TOKEN_PRIVATE_KEY_PATH, TOKEN_PUBLIC_KEY_PATH (generated keys if unset)
//   - TOKEN_EXPIRE_TIME (duration, default never)
//   - DATABASE_URL (profiles kept in memory if unset)
//   - REDIS_ADDR (round history disabled if unset), REDIS_DB, HISTORIAN_QUEUE_NAME
func Load() (*Config, error) {
	level, err := logrus.ParseLevel(getEnv("LOG_LEVEL", "debug"))
	if err != nil {
		return nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	modes, err := ParseLobbies(getEnv("LOBBIES", "bots:bots,pvp:ready"))
	if err != nil {
		return nil, fmt.Errorf("LOBBIES: %w", err)
	}
	multiplier, err := getEnvFloat("BOT_MULTIPLIER", 1.0)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:              getEnv("PORT", "8080"),
		LogLevel:          level,
		StartBalance:      int64(getEnvInt("START_BALANCE", 1000)),
		BotCount:          getEnvInt("BOT_COUNT", 3),
		BotMultiplier:     multiplier,
		RoundDelay:        time.Duration(getEnvInt("ROUND_DELAY_SEC", 6)) * time.Second,
		ReadyGrace:        time.Duration(getEnvInt("READY_GRACE_SEC", 5)) * time.Second,
		RNGSeed:           int64(getEnvInt("RNG_SEED", 0)),
		Lobbies:           modes,
		DefaultLobby:      getEnv("DEFAULT_LOBBY", modes[0].Name),
		AdminIDs:          splitList(os.Getenv("ADMIN_IDS")),
		AdminRequireToken: getEnvBool("ADMIN_REQUIRE_TOKEN", false),
		TokenPrivateKey:   os.Getenv("TOKEN_PRIVATE_KEY_PATH"),
		TokenPublicKey:    os.Getenv("TOKEN_PUBLIC_KEY_PATH"),
		TokenExpireTime:   os.Getenv("TOKEN_EXPIRE_TIME"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		RedisDB:           getEnvInt("REDIS_DB", 0),
		QueueName:         getEnv("HISTORIAN_QUEUE_NAME", cache.DefaultQueueName),
	}
	if cfg.StartBalance <= 0 {
		return nil, fmt.Errorf("START_BALANCE must be positive, got %d", cfg.StartBalance)
	}
	if cfg.BotCount < 0 {
		return nil, fmt.Errorf("BOT_COUNT must not be negative, got %d", cfg.BotCount)
	}
	return cfg, nil
}

// ParseLobbies parses a comma separated list of name[:flag[+flag]] entries.
// Flags are "bots" (bots co-bet) and "ready" (readiness gate).
//
//	bots:bots,pvp:ready,mixed:bots+ready
func ParseLobbies(s string) ([]lobby.Mode, error) {
	var modes []lobby.Mode
	seen := make(map[string]bool)
	for _, entry := range splitList(s) {
		name, flags, _ := strings.Cut(entry, ":")
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("empty lobby name in %q", entry)
		}
		if seen[name] {
			return nil, fmt.Errorf("duplicate lobby %q", name)
		}
		seen[name] = true

		mode := lobby.Mode{Name: name}
		if flags != "" {
			for _, f := range strings.Split(flags, "+") {
				switch strings.TrimSpace(f) {
				case "bots":
					mode.Bots = true
				case "ready":
					mode.ReadinessGate = true
				case "":
				default:
					return nil, fmt.Errorf("lobby %q: unknown flag %q", name, f)
				}
			}
		}
		modes = append(modes, mode)
	}
	if len(modes) == 0 {
		return nil, fmt.Errorf("no lobbies configured")
	}
	return modes, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// getEnv is a helper to read an environment variable or return a default value.
func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// getEnvInt is a helper to parse an environment variable as integer, else a default value.
func getEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

func getEnvFloat(key string, def float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func getEnvBool(key string, def bool) bool {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return def
	}
	return v
}

// HistorianConfig configures the round history consumer.
type HistorianConfig struct {
	LogLevel    logrus.Level
	DatabaseURL string
	RedisAddr   string
	RedisDB     int
	QueueName   string
	BatchSize   int
	FlushDelay  time.Duration
}

// LoadHistorian reads DATABASE_URL (required), REDIS_ADDR (default
// "localhost:6379"), REDIS_DB, HISTORIAN_QUEUE_NAME, HISTORIAN_BATCH_SIZE (20)
// and HISTORIAN_FLUSH_MS (500).
func LoadHistorian() (*HistorianConfig, error) {
	level, err := logrus.ParseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	cfg := &HistorianConfig{
		LogLevel:    level,
		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisAddr:   getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:     getEnvInt("REDIS_DB", 0),
		QueueName:   getEnv("HISTORIAN_QUEUE_NAME", cache.DefaultQueueName),
		BatchSize:   getEnvInt("HISTORIAN_BATCH_SIZE", 20),
		FlushDelay:  time.Duration(getEnvInt("HISTORIAN_FLUSH_MS", 500)) * time.Millisecond,
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	return cfg, nil
}
