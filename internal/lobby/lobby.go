// internal/lobby/lobby.go
package lobby

import (
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/jackpot/internal/models"
)

// Mode describes how a lobby behaves.
type Mode struct {
	Name string
	// Bots enables bot co-betting when a round starts.
	Bots bool
	// ReadinessGate requires every human member to be ready before a round auto-starts.
	ReadinessGate bool
}

// Phase is the round state of a lobby.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseAccepting
	PhaseActive
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseAccepting:
		return "accepting"
	case PhaseActive:
		return "active"
	default:
		return "unknown"
	}
}

// Timer is a pending callback that can be cancelled. *time.Timer satisfies it.
type Timer interface {
	Stop() bool
}

// Round is the active round of a lobby.
type Round struct {
	ID        uuid.UUID
	StartedAt time.Time
	Deadline  time.Time
	timer     Timer
}

// Countdown is the readiness grace window before an automatic start.
type Countdown struct {
	Deadline time.Time
	timer    Timer
}

// Lobby is an isolated pool of participants sharing one bank.
// All fields are protected by Mu; methods suffixed Unsafe assume it is held.
type Lobby struct {
	ID   string
	Mode Mode

	Mu sync.Mutex

	order   []string
	members map[string]*models.Participant
	bank    int64

	round *Round
	grace *Countdown
}

// New creates an empty lobby.
func New(mode Mode) *Lobby {
	return &Lobby{
		ID:      mode.Name,
		Mode:    mode,
		members: make(map[string]*models.Participant),
	}
}

// PhaseUnsafe derives the round phase. Assumes lock is held.
func (l *Lobby) PhaseUnsafe() Phase {
	if l.round != nil {
		return PhaseActive
	}
	if l.bank > 0 {
		return PhaseAccepting
	}
	return PhaseIdle
}

// Phase returns the round phase (acquires lock).
func (l *Lobby) Phase() Phase {
	l.Mu.Lock()
	defer l.Mu.Unlock()
	return l.PhaseUnsafe()
}

// RoundActiveUnsafe reports whether a round is running. Assumes lock is held.
func (l *Lobby) RoundActiveUnsafe() bool {
	return l.round != nil
}

// ActiveRoundUnsafe returns the running round or nil. Assumes lock is held.
func (l *Lobby) ActiveRoundUnsafe() *Round {
	return l.round
}

// BeginRoundUnsafe marks the lobby Active. Assumes lock is held.
func (l *Lobby) BeginRoundUnsafe(now, deadline time.Time) (*Round, error) {
	if l.round != nil {
		return nil, ErrRoundActive
	}
	l.round = &Round{ID: uuid.New(), StartedAt: now, Deadline: deadline}
	return l.round, nil
}

// AttachRoundTimerUnsafe stores the resolution timer of r. Assumes lock is held.
func (l *Lobby) AttachRoundTimerUnsafe(r *Round, t Timer) {
	r.timer = t
}

// EndRoundUnsafe clears r if it is still the current round. Assumes lock is held.
func (l *Lobby) EndRoundUnsafe(r *Round) bool {
	if l.round == nil || l.round != r {
		return false
	}
	l.round = nil
	return true
}

// CancelRoundUnsafe stops the pending resolution timer and clears the round.
// Bets are left untouched. Assumes lock is held.
func (l *Lobby) CancelRoundUnsafe() bool {
	if l.round == nil {
		return false
	}
	if l.round.timer != nil {
		l.round.timer.Stop()
	}
	l.round = nil
	return true
}

// StartGraceUnsafe registers a readiness countdown. Assumes lock is held.
func (l *Lobby) StartGraceUnsafe(deadline time.Time) *Countdown {
	l.grace = &Countdown{Deadline: deadline}
	return l.grace
}

// AttachGraceTimerUnsafe stores the timer of c. Assumes lock is held.
func (l *Lobby) AttachGraceTimerUnsafe(c *Countdown, t Timer) {
	c.timer = t
}

// GraceUnsafe returns the pending readiness countdown, if any. Assumes lock is held.
func (l *Lobby) GraceUnsafe() *Countdown {
	return l.grace
}

// FinishGraceUnsafe clears c if it is still current. Assumes lock is held.
func (l *Lobby) FinishGraceUnsafe(c *Countdown) bool {
	if l.grace == nil || l.grace != c {
		return false
	}
	l.grace = nil
	return true
}

// CancelGraceUnsafe stops any pending readiness countdown. Assumes lock is held.
func (l *Lobby) CancelGraceUnsafe() bool {
	if l.grace == nil {
		return false
	}
	if l.grace.timer != nil {
		l.grace.timer.Stop()
	}
	l.grace = nil
	return true
}

// AddMemberUnsafe appends p to the member list. Assumes lock is held.
func (l *Lobby) AddMemberUnsafe(p *models.Participant) {
	if _, ok := l.members[p.ID]; ok {
		return
	}
	l.members[p.ID] = p
	l.order = append(l.order, p.ID)
	p.Lobby = l.ID
	p.Ready = false
	l.CancelGraceUnsafe()
}

// RemoveMemberUnsafe drops id from the lobby, refunding its bet.
// Returns the refunded amount. Assumes lock is held.
func (l *Lobby) RemoveMemberUnsafe(id string) (int64, error) {
	p, ok := l.members[id]
	if !ok {
		return 0, ErrNotMember
	}
	if p.Bet > 0 && l.round != nil {
		return 0, ErrRoundActive
	}
	refund := p.Bet
	if refund > 0 {
		p.Balance += refund
		l.bank -= refund
		p.Bet = 0
	}
	delete(l.members, id)
	for i, mid := range l.order {
		if mid == id {
			l.order = append(l.order[:i:i], l.order[i+1:]...)
			break
		}
	}
	p.Ready = false
	l.CancelGraceUnsafe()
	return refund, nil
}

// MemberUnsafe returns the member with id. Assumes lock is held.
func (l *Lobby) MemberUnsafe(id string) (*models.Participant, bool) {
	p, ok := l.members[id]
	return p, ok
}

// MembersUnsafe returns member ids in insertion order. Assumes lock is held.
func (l *Lobby) MembersUnsafe() []string {
	out := make([]string, len(l.order))
	copy(out, l.order)
	return out
}

// Members returns member ids in insertion order (acquires lock).
func (l *Lobby) Members() []string {
	l.Mu.Lock()
	defer l.Mu.Unlock()
	return l.MembersUnsafe()
}

// ParticipantsUnsafe returns members in insertion order. Assumes lock is held.
func (l *Lobby) ParticipantsUnsafe() []*models.Participant {
	out := make([]*models.Participant, 0, len(l.order))
	for _, id := range l.order {
		out = append(out, l.members[id])
	}
	return out
}

// HumansUnsafe returns the human members in insertion order. Assumes lock is held.
func (l *Lobby) HumansUnsafe() []*models.Participant {
	var out []*models.Participant
	for _, id := range l.order {
		if p := l.members[id]; !p.IsBot() {
			out = append(out, p)
		}
	}
	return out
}

// AllHumansReadyUnsafe reports whether at least two humans are present and all
// of them are ready. Assumes lock is held.
func (l *Lobby) AllHumansReadyUnsafe() bool {
	humans := l.HumansUnsafe()
	if len(humans) < 2 {
		return false
	}
	for _, p := range humans {
		if !p.Ready {
			return false
		}
	}
	return true
}

// ResetReadinessUnsafe clears the ready flag of every human. Assumes lock is held.
func (l *Lobby) ResetReadinessUnsafe() {
	for _, p := range l.HumansUnsafe() {
		p.Ready = false
	}
}

// PlayersUnsafe builds the per-member rows of a state snapshot. Assumes lock is held.
func (l *Lobby) PlayersUnsafe() []models.PlayerView {
	views := make([]models.PlayerView, 0, len(l.order))
	for _, id := range l.order {
		views = append(views, l.viewUnsafe(l.members[id]))
	}
	return views
}

// ViewUnsafe returns the snapshot row of a single member. Assumes lock is held.
func (l *Lobby) ViewUnsafe(id string) (models.PlayerView, bool) {
	p, ok := l.members[id]
	if !ok {
		return models.PlayerView{}, false
	}
	return l.viewUnsafe(p), true
}

func (l *Lobby) viewUnsafe(p *models.Participant) models.PlayerView {
	return models.PlayerView{
		ID:      p.ID,
		Name:    p.Name,
		Bet:     p.Bet,
		Balance: p.Balance,
		Chance:  chance(p.Bet, l.bank),
		IsBot:   p.IsBot(),
		Ready:   p.Ready,
		Online:  p.Online,
	}
}

// StateEventUnsafe builds the "state" message for this lobby. Assumes lock is held.
func (l *Lobby) StateEventUnsafe() models.Event {
	bank := l.bank
	active := l.round != nil
	return models.Event{
		Type:        models.EventState,
		Lobby:       l.ID,
		Players:     l.PlayersUnsafe(),
		TotalBank:   &bank,
		RoundActive: &active,
	}
}

// SectorsUnsafe splits [0,1) between the current bettors by bet share. Assumes lock is held.
func (l *Lobby) SectorsUnsafe() []models.Sector {
	if l.bank <= 0 {
		return nil
	}
	var sectors []models.Sector
	start := 0.0
	for _, id := range l.order {
		p := l.members[id]
		if p.Bet <= 0 {
			continue
		}
		share := float64(p.Bet) / float64(l.bank)
		sectors = append(sectors, models.Sector{
			ID:    p.ID,
			Name:  p.Name,
			Share: share,
			Start: start,
			End:   start + share,
		})
		start += share
	}
	return sectors
}

func chance(bet, bank int64) float64 {
	if bank <= 0 {
		return 0
	}
	return math.Round(float64(bet)/float64(bank)*1000) / 10
}
