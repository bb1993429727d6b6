package game

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/jason-s-yu/jackpot/internal/lobby"
	"github.com/jason-s-yu/jackpot/internal/models"
	"github.com/jason-s-yu/jackpot/internal/profile"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

// mockBroadcaster collects events instead of sending them over WS.
type mockBroadcaster struct {
	mu         sync.Mutex
	broadcasts []Outbound
	sent       map[string][]models.Event
}

func newMockBroadcaster() *mockBroadcaster {
	return &mockBroadcaster{sent: make(map[string][]models.Event)}
}

func (mb *mockBroadcaster) Broadcast(lobbyID string, ev models.Event) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.broadcasts = append(mb.broadcasts, Outbound{Lobby: lobbyID, Event: ev})
}

func (mb *mockBroadcaster) Send(connID string, ev models.Event) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.sent[connID] = append(mb.sent[connID], ev)
}

func (mb *mockBroadcaster) clear() {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.broadcasts = nil
	mb.sent = make(map[string][]models.Event)
}

// lobbyEvents returns the events of type typ broadcast to lobbyID.
func (mb *mockBroadcaster) lobbyEvents(lobbyID string, typ models.EventType) []models.Event {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	var out []models.Event
	for _, o := range mb.broadcasts {
		if o.Lobby == lobbyID && o.Event.Type == typ {
			out = append(out, o.Event)
		}
	}
	return out
}

func (mb *mockBroadcaster) lastSent(connID string) *models.Event {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	events := mb.sent[connID]
	if len(events) == 0 {
		return nil
	}
	return &events[len(events)-1]
}

// manualTimer fires only when the test says so.
type manualTimer struct {
	mu      sync.Mutex
	d       time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (t *manualTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

func (t *manualTimer) live() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.stopped && !t.fired
}

func (t *manualTimer) fire() {
	t.mu.Lock()
	if t.stopped || t.fired {
		t.mu.Unlock()
		return
	}
	t.fired = true
	t.mu.Unlock()
	t.f()
}

type manualScheduler struct {
	mu     sync.Mutex
	timers []*manualTimer
}

func (s *manualScheduler) AfterFunc(d time.Duration, f func()) lobby.Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &manualTimer{d: d, f: f}
	s.timers = append(s.timers, t)
	return t
}

func (s *manualScheduler) pending() []*manualTimer {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*manualTimer
	for _, t := range s.timers {
		if t.live() {
			out = append(out, t)
		}
	}
	return out
}

// fireAll fires every live timer once and returns how many fired.
func (s *manualScheduler) fireAll() int {
	timers := s.pending()
	for _, t := range timers {
		t.fire()
	}
	return len(timers)
}

// fixedSource always returns the same value.
type fixedSource float64

func (f fixedSource) Float64() float64 { return float64(f) }

type recordingPublisher struct {
	mu      sync.Mutex
	records []models.RoundRecord
}

func (r *recordingPublisher) Publish(_ context.Context, rec models.RoundRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
	return nil
}

type testEnv struct {
	c     *Coordinator
	mb    *mockBroadcaster
	sched *manualScheduler
	store *profile.MemoryStore
	pub   *recordingPublisher
}

func testConfig() Config {
	return Config{
		RoundDelay:    6 * time.Second,
		ReadyGrace:    5 * time.Second,
		StartBalance:  1000,
		BotMultiplier: 1,
		AdminIDs:      []string{"root"},
	}
}

// setupTestCoordinator builds a coordinator over a "bots" and a "pvp" lobby.
func setupTestCoordinator(t *testing.T, cfg Config, opts ...Option) *testEnv {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	reg, err := lobby.NewRegistry([]lobby.Mode{
		{Name: "bots", Bots: true},
		{Name: "pvp", ReadinessGate: true},
	}, "bots", logger)
	require.NoError(t, err)

	env := &testEnv{
		mb:    newMockBroadcaster(),
		sched: &manualScheduler{},
		store: profile.NewMemoryStore(),
		pub:   &recordingPublisher{},
	}
	all := append([]Option{
		WithScheduler(env.sched.AfterFunc),
		WithSource(NewSource(7)),
		WithStore(env.store),
		WithRoundRecorder(env.pub),
	}, opts...)
	env.c = NewCoordinator(cfg, reg, env.mb, logger, all...)
	return env
}

func (env *testEnv) join(t *testing.T, connID, id, name string) Session {
	t.Helper()
	sess := Session{ConnID: connID}
	require.NoError(t, env.c.Handle(sess, models.Join{ID: id, Name: name}))
	return sess
}

func (env *testEnv) participant(t *testing.T, id string) models.Participant {
	t.Helper()
	l, p, err := env.c.lockParticipant(id)
	require.NoError(t, err)
	defer l.Mu.Unlock()
	return *p
}

func (env *testEnv) lobby(t *testing.T, id string) *lobby.Lobby {
	t.Helper()
	l, ok := env.c.Registry().Lobby(id)
	require.True(t, ok)
	return l
}

// bankMatchesBets checks that the bank equals the sum of member bets.
func bankMatchesBets(t *testing.T, l *lobby.Lobby) int64 {
	t.Helper()
	l.Mu.Lock()
	defer l.Mu.Unlock()
	var sum int64
	for _, p := range l.ParticipantsUnsafe() {
		sum += p.Bet
	}
	require.Equal(t, sum, l.BankUnsafe(), "bank must equal the sum of bets")
	return sum
}
