// internal/game/coordinator.go
package game

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jason-s-yu/jackpot/internal/lobby"
	"github.com/jason-s-yu/jackpot/internal/models"
	"github.com/jason-s-yu/jackpot/internal/profile"
	"github.com/sirupsen/logrus"
)

const (
	DefaultRoundDelay   = 6 * time.Second
	DefaultReadyGrace   = 5 * time.Second
	DefaultStartBalance = 1000

	persistTimeout = 5 * time.Second
)

// RoundRecorder receives a record of every resolved round.
type RoundRecorder interface {
	Publish(ctx context.Context, rec models.RoundRecord) error
}

// Config holds the tunables of a Coordinator.
type Config struct {
	RoundDelay    time.Duration
	ReadyGrace    time.Duration
	StartBalance  int64
	BotMultiplier float64

	// AdminIDs may issue admin_command.
	AdminIDs []string
	// RequireAdminToken additionally requires a verified session token whose
	// subject is the admin id.
	RequireAdminToken bool
}

// Session identifies the connection a command arrived on.
type Session struct {
	ConnID string
	// Subject is the participant id proven by a verified token, if any.
	Subject string
}

// Coordinator drives the round state machine of every lobby in a Registry.
// Each operation runs under the lock of the lobby it touches; the events it
// produces are delivered after the lock is released.
type Coordinator struct {
	cfg      Config
	registry *lobby.Registry
	notifier Notifier
	stats    *Tracker
	store    profile.Store
	recorder RoundRecorder
	logger   *logrus.Logger

	afterFunc AfterFunc
	rng       Source
	now       func() time.Time

	admins map[string]bool

	mu      sync.Mutex
	known   map[string]models.Profile
	nextBot int
	closed  bool
}

type Option func(*Coordinator)

// WithScheduler replaces time.AfterFunc for round and grace timers.
func WithScheduler(f AfterFunc) Option {
	return func(c *Coordinator) { c.afterFunc = f }
}

// WithSource sets the random source of the winner draw and bot stakes.
func WithSource(s Source) Option {
	return func(c *Coordinator) { c.rng = s }
}

func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// WithStore sets the profile store. The default keeps profiles in memory.
func WithStore(s profile.Store) Option {
	return func(c *Coordinator) { c.store = s }
}

func WithRoundRecorder(r RoundRecorder) Option {
	return func(c *Coordinator) { c.recorder = r }
}

// NewCoordinator creates a coordinator over registry.
func NewCoordinator(cfg Config, registry *lobby.Registry, notifier Notifier, logger *logrus.Logger, opts ...Option) *Coordinator {
	if cfg.RoundDelay <= 0 {
		cfg.RoundDelay = DefaultRoundDelay
	}
	if cfg.ReadyGrace <= 0 {
		cfg.ReadyGrace = DefaultReadyGrace
	}
	if cfg.StartBalance <= 0 {
		cfg.StartBalance = DefaultStartBalance
	}
	c := &Coordinator{
		cfg:       cfg,
		registry:  registry,
		notifier:  notifier,
		stats:     NewTracker(),
		store:     profile.NewMemoryStore(),
		logger:    logger,
		afterFunc: realAfterFunc,
		rng:       NewSource(0),
		now:       time.Now,
		admins:    make(map[string]bool, len(cfg.AdminIDs)),
		known:     make(map[string]models.Profile),
	}
	for _, id := range cfg.AdminIDs {
		c.admins[id] = true
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Registry returns the lobby registry driven by c.
func (c *Coordinator) Registry() *lobby.Registry {
	return c.registry
}

// Stats returns a copy of the process-wide statistics.
func (c *Coordinator) Stats() models.GameStats {
	return c.stats.Snapshot()
}

// LoadProfiles restores balances and stats from the profile store. Restored
// participants are recreated when they join again.
func (c *Coordinator) LoadProfiles(ctx context.Context) error {
	profiles, err := c.store.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("load profiles: %w", err)
	}
	c.mu.Lock()
	for id, p := range profiles {
		c.known[id] = p
	}
	c.mu.Unlock()
	for id, p := range profiles {
		c.stats.Seed(id, p.Stats())
	}
	c.logger.Infof("Loaded %d profiles", len(profiles))
	return nil
}

// Dispatch decodes and handles one raw inbound message. Malformed messages
// are logged and dropped without a reply.
func (c *Coordinator) Dispatch(sess Session, raw []byte) error {
	cmd, err := models.DecodeCommand(raw)
	if err != nil {
		c.logger.WithError(err).WithField("conn", sess.ConnID).Warn("Dropping malformed message")
		return err
	}
	return c.Handle(sess, cmd)
}

// Handle executes a command on behalf of a connection. Rejections are
// reported to the originating connection and returned.
func (c *Coordinator) Handle(sess Session, cmd models.Command) error {
	if c.isClosed() {
		return ErrClosed
	}
	var (
		e   effects
		err error
	)
	switch cmd := cmd.(type) {
	case models.Join:
		err = c.join(sess, cmd, &e)
	case models.SelectMode:
		err = c.selectMode(sess, cmd, &e)
	case models.ToggleReady:
		err = c.toggleReady(sess, cmd, &e)
	case models.PlaceBet:
		err = c.placeBet(sess, cmd, &e)
	case models.ClearBet:
		err = c.clearBet(sess, cmd, &e)
	case models.Start:
		err = c.start(sess, cmd, &e)
	case models.AdminCommand:
		err = c.admin(sess, cmd, &e)
	case models.Ping:
		e.send(sess.ConnID, models.Event{Type: models.EventPong})
	default:
		err = fmt.Errorf("unhandled command %q", cmd.Kind())
	}
	if err != nil {
		c.reject(sess, cmd, err, &e)
	}
	c.apply(&e)
	return err
}

func (c *Coordinator) reject(sess Session, cmd models.Command, err error, e *effects) {
	log := c.logger.WithFields(logrus.Fields{"conn": sess.ConnID, "command": cmd.Kind()})
	switch Classify(err) {
	case KindAuthorization:
		log.Warn("Access denied")
		e.send(sess.ConnID, models.ErrorEvent(ErrAccessDenied.Error()))
	case KindValidation:
		log.WithError(err).Debug("Command rejected")
		e.send(sess.ConnID, models.ErrorEvent(err.Error()))
	default:
		log.WithError(err).Error("Command failed")
		e.send(sess.ConnID, models.ErrorEvent("internal error"))
	}
}

// apply delivers events and flushes persistence. Must be called without any lobby lock held.
func (c *Coordinator) apply(e *effects) {
	for _, o := range e.out {
		o.deliver(c.notifier)
	}
	if len(e.save) == 0 && len(e.remove) == 0 && e.record == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	for _, p := range e.save {
		if err := c.store.Save(ctx, p); err != nil {
			c.logger.WithError(err).WithField("participant", p.ID).Error("Failed to save profile")
		}
	}
	for _, id := range e.remove {
		if err := c.store.Delete(ctx, id); err != nil && !errors.Is(err, profile.ErrNotFound) {
			c.logger.WithError(err).WithField("participant", id).Error("Failed to delete profile")
		}
	}
	if e.record != nil && c.recorder != nil {
		if err := c.recorder.Publish(ctx, *e.record); err != nil {
			c.logger.WithError(err).WithField("round", e.record.RoundID).Error("Failed to publish round record")
		}
	}
}

func (c *Coordinator) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// requireBound checks that the connection is bound to participantID.
func (c *Coordinator) requireBound(sess Session, participantID string) error {
	bound, ok := c.registry.ParticipantOf(sess.ConnID)
	if !ok || bound != participantID {
		return ErrNotJoined
	}
	return nil
}

// lockParticipant locks the lobby currently holding participantID. The
// caller must unlock the returned lobby.
func (c *Coordinator) lockParticipant(participantID string) (*lobby.Lobby, *models.Participant, error) {
	for {
		p, ok := c.registry.Participant(participantID)
		if !ok {
			return nil, nil, lobby.ErrUnknownParticipant
		}
		l, ok := c.registry.LobbyOf(participantID)
		if !ok {
			return nil, nil, lobby.ErrUnknownParticipant
		}
		l.Mu.Lock()
		if cur, ok := l.MemberUnsafe(participantID); ok && cur == p {
			return l, p, nil
		}
		// moved between lookup and lock
		l.Mu.Unlock()
	}
}

// settleLeftLobby broadcasts the state of a lobby someone just left and, in a
// readiness-gated lobby, arms the countdown if the remaining humans are all
// ready.
func (c *Coordinator) settleLeftLobby(l *lobby.Lobby, e *effects) {
	l.Mu.Lock()
	defer l.Mu.Unlock()
	e.broadcast(l.ID, l.StateEventUnsafe())
	if l.Mode.ReadinessGate && !l.RoundActiveUnsafe() {
		c.armGraceUnsafe(l, e)
	}
}

// profileUnsafe snapshots a participant for the profile store. An unresolved
// stake is counted in the balance so that it survives a restart. Assumes the
// participant's lobby lock is held.
func (c *Coordinator) profileUnsafe(p *models.Participant) models.Profile {
	ps, _ := c.stats.Participant(p.ID)
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()
	prof, ok := c.known[p.ID]
	if !ok {
		prof.JoinedAt = now
	}
	prof.ID = p.ID
	prof.Name = p.Name
	prof.Balance = p.Balance + p.Bet
	prof.Wins = ps.Wins
	prof.Losses = ps.Losses
	prof.GamesPlayed = ps.GamesPlayed
	prof.TotalBet = ps.TotalBet
	prof.TotalWon = ps.TotalWon
	prof.LastActive = now
	c.known[p.ID] = prof
	return prof
}

func seconds(d time.Duration) int {
	return int(d / time.Second)
}

func (c *Coordinator) join(sess Session, cmd models.Join, e *effects) error {
	p, exists := c.registry.Participant(cmd.ID)
	if exists && p.IsBot() {
		return fmt.Errorf("%q: %w", cmd.ID, lobby.ErrDuplicateID)
	}
	if !exists {
		c.mu.Lock()
		prof, known := c.known[cmd.ID]
		c.mu.Unlock()
		balance := c.cfg.StartBalance
		if known {
			balance = prof.Balance
		}
		fresh := &models.Participant{
			ID:         cmd.ID,
			Name:       cmd.Name,
			Role:       models.RoleHuman,
			Balance:    balance,
			Multiplier: 1,
		}
		if _, err := c.registry.Add(fresh, ""); err != nil && !errors.Is(err, lobby.ErrDuplicateID) {
			return err
		}
	}

	prevConn, err := c.registry.Bind(sess.ConnID, cmd.ID)
	if err != nil {
		return err
	}
	if prevConn != "" {
		e.send(prevConn, models.ErrorEvent("session opened on another connection"))
	}

	l, p, err := c.lockParticipant(cmd.ID)
	if err != nil {
		return err
	}
	defer l.Mu.Unlock()

	p.Name = cmd.Name
	view, _ := l.ViewUnsafe(p.ID)
	state := l.StateEventUnsafe()
	e.send(sess.ConnID, models.Event{
		Type:        models.EventInit,
		Lobby:       l.ID,
		You:         &view,
		Modes:       c.registry.ModeNames(),
		Players:     state.Players,
		TotalBank:   state.TotalBank,
		RoundActive: state.RoundActive,
	})
	e.broadcast(l.ID, state)
	e.save = append(e.save, c.profileUnsafe(p))

	c.logger.WithFields(logrus.Fields{
		"participant": p.ID,
		"conn":        sess.ConnID,
		"lobby":       l.ID,
		"reconnect":   exists,
	}).Info("Participant joined")
	return nil
}

func (c *Coordinator) selectMode(sess Session, cmd models.SelectMode, e *effects) error {
	if err := c.requireBound(sess, cmd.ID); err != nil {
		return err
	}
	from, to, refund, err := c.registry.Assign(cmd.ID, cmd.Mode)
	if err != nil {
		return err
	}
	e.send(sess.ConnID, models.Event{Type: models.EventModeChanged, Lobby: to.ID, Mode: to.ID})
	if from != to {
		c.settleLeftLobby(from, e)
	}

	l, p, err := c.lockParticipant(cmd.ID)
	if err != nil {
		return err
	}
	defer l.Mu.Unlock()
	e.broadcast(l.ID, l.StateEventUnsafe())
	if refund > 0 {
		e.save = append(e.save, c.profileUnsafe(p))
	}
	return nil
}

func (c *Coordinator) toggleReady(sess Session, cmd models.ToggleReady, e *effects) error {
	if err := c.requireBound(sess, cmd.ID); err != nil {
		return err
	}
	l, p, err := c.lockParticipant(cmd.ID)
	if err != nil {
		return err
	}
	defer l.Mu.Unlock()

	if !l.Mode.ReadinessGate || p.IsBot() {
		return ErrReadinessNotUsed
	}
	if l.RoundActiveUnsafe() {
		return lobby.ErrRoundActive
	}
	p.Ready = !p.Ready
	e.broadcast(l.ID, l.StateEventUnsafe())

	if !p.Ready {
		if l.CancelGraceUnsafe() {
			c.logger.WithField("lobby", l.ID).Debug("Ready countdown cancelled")
		}
		return nil
	}
	c.armGraceUnsafe(l, e)
	return nil
}

// armGraceUnsafe starts the readiness countdown once every human is ready.
// Assumes lock is held.
func (c *Coordinator) armGraceUnsafe(l *lobby.Lobby, e *effects) {
	if l.GraceUnsafe() != nil || !l.AllHumansReadyUnsafe() {
		return
	}
	cd := l.StartGraceUnsafe(c.now().Add(c.cfg.ReadyGrace))
	t := c.afterFunc(c.cfg.ReadyGrace, func() {
		c.fireGrace(l, cd)
	})
	l.AttachGraceTimerUnsafe(cd, t)
	e.broadcast(l.ID, models.Event{Type: models.EventLobbyReady, Time: seconds(c.cfg.ReadyGrace)})
	c.logger.WithField("lobby", l.ID).Info("All players ready, starting countdown")
}

func (c *Coordinator) fireGrace(l *lobby.Lobby, cd *lobby.Countdown) {
	var e effects
	l.Mu.Lock()
	if !l.FinishGraceUnsafe(cd) {
		l.Mu.Unlock()
		return
	}
	if l.AllHumansReadyUnsafe() {
		if err := c.startRoundUnsafe(l, &e); err != nil {
			// readiness is kept so the lobby starts as soon as someone bets and starts
			e.broadcast(l.ID, models.ErrorEvent(err.Error()))
			c.logger.WithError(err).WithField("lobby", l.ID).Warn("Ready countdown elapsed without a round")
		}
	}
	l.Mu.Unlock()
	c.apply(&e)
}

func (c *Coordinator) placeBet(sess Session, cmd models.PlaceBet, e *effects) error {
	if err := c.requireBound(sess, cmd.ID); err != nil {
		return err
	}
	l, p, err := c.lockParticipant(cmd.ID)
	if err != nil {
		return err
	}
	defer l.Mu.Unlock()

	if err := l.PlaceBetUnsafe(p, cmd.Amount); err != nil {
		return err
	}
	e.broadcast(l.ID, l.StateEventUnsafe())
	e.save = append(e.save, c.profileUnsafe(p))
	c.logger.WithFields(logrus.Fields{"participant": p.ID, "lobby": l.ID, "amount": cmd.Amount}).Debug("Bet placed")
	return nil
}

func (c *Coordinator) clearBet(sess Session, cmd models.ClearBet, e *effects) error {
	if err := c.requireBound(sess, cmd.ID); err != nil {
		return err
	}
	l, p, err := c.lockParticipant(cmd.ID)
	if err != nil {
		return err
	}
	defer l.Mu.Unlock()

	if _, err := l.ClearBetUnsafe(p); err != nil {
		return err
	}
	e.broadcast(l.ID, l.StateEventUnsafe())
	e.save = append(e.save, c.profileUnsafe(p))
	return nil
}

func (c *Coordinator) start(sess Session, cmd models.Start, e *effects) error {
	if err := c.requireBound(sess, cmd.ID); err != nil {
		return err
	}
	l, _, err := c.lockParticipant(cmd.ID)
	if err != nil {
		return err
	}
	defer l.Mu.Unlock()

	if l.RoundActiveUnsafe() {
		return nil
	}
	if l.Mode.ReadinessGate && !l.AllHumansReadyUnsafe() {
		return ErrNotReady
	}
	if l.BankUnsafe() <= 0 {
		return ErrEmptyBank
	}
	l.CancelGraceUnsafe()
	return c.startRoundUnsafe(l, e)
}

// startRoundUnsafe lets bots co-bet, announces the round and arms the
// resolution timer. Assumes lock is held.
func (c *Coordinator) startRoundUnsafe(l *lobby.Lobby, e *effects) error {
	if l.RoundActiveUnsafe() {
		return lobby.ErrRoundActive
	}
	if l.BankUnsafe() <= 0 {
		return ErrEmptyBank
	}
	bots := c.placeBotBetsUnsafe(l)
	e.broadcast(l.ID, l.StateEventUnsafe())

	now := c.now()
	round, err := l.BeginRoundUnsafe(now, now.Add(c.cfg.RoundDelay))
	if err != nil {
		return err
	}
	e.broadcast(l.ID, models.Event{
		Type:    models.EventRoundStart,
		Time:    seconds(c.cfg.RoundDelay),
		Sectors: l.SectorsUnsafe(),
	})
	t := c.afterFunc(c.cfg.RoundDelay, func() {
		c.resolve(l, round)
	})
	l.AttachRoundTimerUnsafe(round, t)

	c.logger.WithFields(logrus.Fields{
		"lobby": l.ID,
		"round": round.ID,
		"bank":  l.BankUnsafe(),
		"bots":  len(bots),
	}).Info("Round started")
	return nil
}

func (c *Coordinator) resolve(l *lobby.Lobby, round *lobby.Round) {
	var e effects
	l.Mu.Lock()
	if l.ActiveRoundUnsafe() != round {
		// cancelled or already resolved
		l.Mu.Unlock()
		return
	}
	c.resolveUnsafe(l, round, &e)
	l.Mu.Unlock()
	c.apply(&e)
}

// resolveUnsafe picks the winner and pays out the bank. Assumes lock is held.
func (c *Coordinator) resolveUnsafe(l *lobby.Lobby, round *lobby.Round, e *effects) {
	bettors := l.BettorsUnsafe()
	entries := make([]Entry, 0, len(bettors))
	bets := make(map[string]int64, len(bettors))
	for _, p := range bettors {
		entries = append(entries, Entry{ID: p.ID, Bet: p.Bet, Multiplier: p.EffectiveMultiplier()})
		bets[p.ID] = p.Bet
	}

	picked, ok := Pick(entries, c.rng)
	if !ok {
		l.EndRoundUnsafe(round)
		e.broadcast(l.ID, l.StateEventUnsafe())
		c.logger.WithFields(logrus.Fields{"lobby": l.ID, "round": round.ID}).Warn("Round aborted: no eligible bettor")
		return
	}
	winner, _ := l.MemberUnsafe(picked.ID)
	payout := l.BankUnsafe()

	l.CreditWinUnsafe(winner, payout)
	summary := c.stats.RecordRound(winner.ID, payout, bets)
	e.broadcast(l.ID, models.Event{
		Type:       models.EventRoundEnd,
		WinnerID:   winner.ID,
		WinnerName: winner.Name,
		WinAmount:  payout,
		Stats:      &summary,
	})

	l.ResetBetsUnsafe()
	if l.Mode.ReadinessGate {
		l.ResetReadinessUnsafe()
	}
	l.EndRoundUnsafe(round)
	e.broadcast(l.ID, l.StateEventUnsafe())

	for _, p := range bettors {
		if !p.IsBot() {
			e.save = append(e.save, c.profileUnsafe(p))
		}
	}
	e.record = &models.RoundRecord{
		RoundID:    round.ID,
		Lobby:      l.ID,
		WinnerID:   winner.ID,
		WinnerName: winner.Name,
		Payout:     payout,
		Bets:       bets,
		StartedAt:  round.StartedAt,
		ResolvedAt: c.now(),
	}

	c.logger.WithFields(logrus.Fields{
		"lobby":   l.ID,
		"round":   round.ID,
		"winner":  winner.ID,
		"payout":  payout,
		"bettors": len(bettors),
	}).Info("Round resolved")
}

// Disconnect unbinds a connection. The participant keeps its balance and
// membership and is shown offline until it joins again.
func (c *Coordinator) Disconnect(connID string) {
	participantID, ok := c.registry.Unbind(connID)
	if !ok {
		return
	}
	var e effects
	l, p, err := c.lockParticipant(participantID)
	if err != nil {
		return
	}
	e.broadcast(l.ID, l.StateEventUnsafe())
	e.save = append(e.save, c.profileUnsafe(p))
	l.Mu.Unlock()
	c.apply(&e)

	c.logger.WithFields(logrus.Fields{"participant": participantID, "conn": connID}).Info("Participant disconnected")
}

// Close cancels every pending timer, refunds unresolved bets and flushes
// the affected profiles. Commands are rejected afterwards.
func (c *Coordinator) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	var save []models.Profile
	for _, l := range c.registry.Lobbies() {
		l.Mu.Lock()
		l.CancelRoundUnsafe()
		l.CancelGraceUnsafe()
		for _, p := range l.RefundAllUnsafe() {
			if !p.IsBot() {
				save = append(save, c.profileUnsafe(p))
			}
		}
		l.Mu.Unlock()
	}

	var errs []error
	for _, p := range save {
		if err := c.store.Save(ctx, p); err != nil {
			errs = append(errs, fmt.Errorf("save %s: %w", p.ID, err))
		}
	}
	return errors.Join(errs...)
}
