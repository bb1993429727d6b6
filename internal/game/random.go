// internal/game/random.go
package game

import (
	"math/rand"
	"sync"
	"time"

	"github.com/jason-s-yu/jackpot/internal/lobby"
)

// Source yields uniform floats in [0, 1).
type Source interface {
	Float64() float64
}

type lockedSource struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewSource returns a goroutine-safe Source. A zero seed uses the current time.
func NewSource(seed int64) Source {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &lockedSource{r: rand.New(rand.NewSource(seed))}
}

func (s *lockedSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.Float64()
}

// AfterFunc schedules f after d. time.AfterFunc is the production scheduler;
// tests substitute a manual one.
type AfterFunc func(d time.Duration, f func()) lobby.Timer

func realAfterFunc(d time.Duration, f func()) lobby.Timer {
	return time.AfterFunc(d, f)
}
