// internal/historian/historian.go
package historian

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/jason-s-yu/jackpot/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Sink persists a batch of round records.
type Sink interface {
	InsertRounds(ctx context.Context, records []models.RoundRecord) error
}

// Popper is the subset of the Redis client used to drain the queue.
type Popper interface {
	BLPop(ctx context.Context, timeout time.Duration, keys ...string) *redis.StringSliceCmd
}

// Config tunes batching.
type Config struct {
	Queue      string
	BatchSize  int
	FlushDelay time.Duration
	PopTimeout time.Duration
}

// Service pops round records from a Redis queue, accumulates them and
// flushes them to a Sink in batches.
type Service struct {
	rdb    Popper
	sink   Sink
	cfg    Config
	logger *logrus.Logger

	batchMu sync.Mutex
	batch   []models.RoundRecord
}

func NewService(rdb Popper, sink Sink, cfg Config, logger *logrus.Logger) *Service {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 20
	}
	if cfg.FlushDelay <= 0 {
		cfg.FlushDelay = 500 * time.Millisecond
	}
	if cfg.PopTimeout <= 0 {
		cfg.PopTimeout = 3 * time.Second
	}
	return &Service{
		rdb:    rdb,
		sink:   sink,
		cfg:    cfg,
		logger: logger,
		batch:  make([]models.RoundRecord, 0, cfg.BatchSize),
	}
}

// Run drains the queue until ctx is cancelled, then flushes what is left.
func (s *Service) Run(ctx context.Context) {
	popped := make(chan string)
	go s.readLoop(ctx, popped)

	ticker := time.NewTicker(s.cfg.FlushDelay)
	defer ticker.Stop()

	s.logger.WithField("queue", s.cfg.Queue).Info("Historian started")
	for {
		select {
		case <-ctx.Done():
			s.Flush(context.Background())
			s.logger.Info("Historian stopped")
			return
		case <-ticker.C:
			s.Flush(ctx)
		case payload := <-popped:
			s.handlePayload(ctx, payload)
		}
	}
}

// readLoop uses BLPop with a timeout so that cancellation is noticed.
func (s *Service) readLoop(ctx context.Context, out chan<- string) {
	for ctx.Err() == nil {
		res, err := s.rdb.BLPop(ctx, s.cfg.PopTimeout, s.cfg.Queue).Result()
		if err != nil {
			if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
				s.logger.WithError(err).Error("BLPop failed")
				time.Sleep(time.Second)
			}
			continue
		}
		// res[0] is the queue name and res[1] the payload
		if len(res) < 2 {
			continue
		}
		select {
		case out <- res[1]:
		case <-ctx.Done():
			return
		}
	}
}

// handlePayload decodes one queued record and appends it to the batch.
func (s *Service) handlePayload(ctx context.Context, payload string) {
	var rec models.RoundRecord
	if err := json.Unmarshal([]byte(payload), &rec); err != nil {
		s.logger.WithError(err).Warn("Invalid round record")
		return
	}
	s.batchMu.Lock()
	s.batch = append(s.batch, rec)
	full := len(s.batch) >= s.cfg.BatchSize
	s.batchMu.Unlock()

	if full {
		s.Flush(ctx)
	}
}

// Flush writes the current batch to the sink. A failed batch is put back
// in front of the queue so it is retried on the next flush.
func (s *Service) Flush(ctx context.Context) {
	s.batchMu.Lock()
	if len(s.batch) == 0 {
		s.batchMu.Unlock()
		return
	}
	pending := make([]models.RoundRecord, len(s.batch))
	copy(pending, s.batch)
	s.batch = s.batch[:0]
	s.batchMu.Unlock()

	if err := s.sink.InsertRounds(ctx, pending); err != nil {
		s.logger.WithError(err).Errorf("Failed to flush %d rounds", len(pending))
		s.batchMu.Lock()
		s.batch = append(pending, s.batch...)
		s.batchMu.Unlock()
		return
	}
	s.logger.Debugf("Flushed %d rounds to DB", len(pending))
}

// Pending returns the number of buffered records.
func (s *Service) Pending() int {
	s.batchMu.Lock()
	defer s.batchMu.Unlock()
	return len(s.batch)
}
