package historian

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/jackpot/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSink struct {
	mu      sync.Mutex
	batches [][]models.RoundRecord
	fail    bool
}

func (f *fakeSink) InsertRounds(_ context.Context, records []models.RoundRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("db down")
	}
	f.batches = append(f.batches, records)
	return nil
}

func (f *fakeSink) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, b := range f.batches {
		n += len(b)
	}
	return n
}

// fakeQueue serves queued payloads through BLPop.
type fakeQueue struct {
	mu    sync.Mutex
	items []string
}

func (q *fakeQueue) push(payload string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, payload)
}

func (q *fakeQueue) BLPop(ctx context.Context, _ time.Duration, keys ...string) *redis.StringSliceCmd {
	cmd := redis.NewStringSliceCmd(ctx)
	q.mu.Lock()
	if len(q.items) == 0 {
		q.mu.Unlock()
		time.Sleep(5 * time.Millisecond)
		cmd.SetErr(redis.Nil)
		return cmd
	}
	cmd.SetVal([]string{keys[0], q.items[0]})
	q.items = q.items[1:]
	q.mu.Unlock()
	return cmd
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func record(t *testing.T, winner string) string {
	t.Helper()
	data, err := json.Marshal(models.RoundRecord{
		RoundID:  uuid.New(),
		Lobby:    "bots",
		WinnerID: winner,
		Payout:   100,
		Bets:     map[string]int64{winner: 100},
	})
	require.NoError(t, err)
	return string(data)
}

func TestHandlePayload_FlushesFullBatch(t *testing.T) {
	sink := &fakeSink{}
	s := NewService(&fakeQueue{}, sink, Config{Queue: "q", BatchSize: 2}, quietLogger())
	ctx := context.Background()

	s.handlePayload(ctx, record(t, "a"))
	assert.Equal(t, 1, s.Pending())
	assert.Equal(t, 0, sink.count())

	s.handlePayload(ctx, "{not json")
	assert.Equal(t, 1, s.Pending(), "invalid payloads are dropped")

	s.handlePayload(ctx, record(t, "b"))
	assert.Equal(t, 0, s.Pending())
	require.Len(t, sink.batches, 1)
	assert.Equal(t, "a", sink.batches[0][0].WinnerID)
	assert.Equal(t, "b", sink.batches[0][1].WinnerID)
}

func TestFlush_RetainsBatchOnFailure(t *testing.T) {
	sink := &fakeSink{fail: true}
	s := NewService(&fakeQueue{}, sink, Config{Queue: "q", BatchSize: 10}, quietLogger())
	ctx := context.Background()

	s.handlePayload(ctx, record(t, "a"))
	s.Flush(ctx)
	assert.Equal(t, 1, s.Pending())

	sink.mu.Lock()
	sink.fail = false
	sink.mu.Unlock()
	s.Flush(ctx)
	assert.Equal(t, 0, s.Pending())
	assert.Equal(t, 1, sink.count())
}

func TestRun_DrainsQueue(t *testing.T) {
	q := &fakeQueue{}
	for _, w := range []string{"a", "b", "c"} {
		q.push(record(t, w))
	}
	sink := &fakeSink{}
	s := NewService(q, sink, Config{Queue: "q", BatchSize: 100, FlushDelay: 10 * time.Millisecond}, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return sink.count() == 3 }, 2*time.Second, 10*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("historian did not stop")
	}
}
