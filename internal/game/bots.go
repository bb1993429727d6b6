// internal/game/bots.go
package game

import (
	"fmt"
	"math"

	"github.com/jason-s-yu/jackpot/internal/lobby"
	"github.com/jason-s-yu/jackpot/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	botMinShare  = 0.1
	botShareSpan = 0.3
	botMaxStake  = 500
	botStakeStep = 10
)

// BotBet returns the stake of a bot holding balance, for u drawn from [0, 1).
// The stake is a 10-40% share of the balance, capped at 500 and rounded down
// to a multiple of 10. Zero means the bot sits the round out.
func BotBet(balance int64, u float64) int64 {
	if balance <= 0 {
		return 0
	}
	stake := math.Min(float64(balance)*(botMinShare+botShareSpan*u), botMaxStake)
	amount := int64(math.Floor(stake/botStakeStep)) * botStakeStep
	if amount <= 0 || amount > balance {
		return 0
	}
	return amount
}

// humanBetPlacedUnsafe reports whether any human member holds a bet. Assumes lock is held.
func humanBetPlacedUnsafe(l *lobby.Lobby) bool {
	for _, p := range l.HumansUnsafe() {
		if p.Bet > 0 {
			return true
		}
	}
	return false
}

// placeBotBetsUnsafe lets every bot of a bots lobby co-bet. Bots only act
// once a human has bet and before the round is active. Assumes lock is held.
func (c *Coordinator) placeBotBetsUnsafe(l *lobby.Lobby) []*models.Participant {
	if !l.Mode.Bots || l.RoundActiveUnsafe() || !humanBetPlacedUnsafe(l) {
		return nil
	}
	var placed []*models.Participant
	for _, p := range l.ParticipantsUnsafe() {
		if !p.IsBot() || p.Balance <= 0 {
			continue
		}
		amount := BotBet(p.Balance, c.rng.Float64())
		if amount == 0 {
			continue
		}
		if err := l.PlaceBetUnsafe(p, amount); err != nil {
			c.logger.WithError(err).WithField("bot", p.ID).Warn("Bot bet rejected")
			continue
		}
		placed = append(placed, p)
		c.logger.WithFields(logrus.Fields{"lobby": l.ID, "bot": p.ID, "amount": amount}).Debug("Bot placed bet")
	}
	return placed
}

// SpawnBots adds count bots to every lobby whose mode enables them. Bot ids
// are numbered across lobbies: bot_1, bot_2, ... with names BOT_1, BOT_2, ...
func (c *Coordinator) SpawnBots(count int) error {
	for _, l := range c.registry.Lobbies() {
		if !l.Mode.Bots {
			continue
		}
		for i := 0; i < count; i++ {
			c.mu.Lock()
			c.nextBot++
			n := c.nextBot
			c.mu.Unlock()

			bot := &models.Participant{
				ID:         fmt.Sprintf("bot_%d", n),
				Name:       fmt.Sprintf("BOT_%d", n),
				Role:       models.RoleBot,
				Balance:    c.cfg.StartBalance,
				Multiplier: c.cfg.BotMultiplier,
				Online:     true,
			}
			if _, err := c.registry.Add(bot, l.ID); err != nil {
				return fmt.Errorf("spawn %s: %w", bot.ID, err)
			}
		}
		c.logger.WithFields(logrus.Fields{"lobby": l.ID, "count": count}).Info("Bots spawned")
	}
	return nil
}
