package arbor

import (
	"sync"
	"time"
)

// Scoreboard tracks historical model performance for routing. It is an
// explicit injected store: the orchestrator holds no hidden global state,
// so tests can supply their own implementation.
type Scoreboard interface {
	// Record folds one finished generation into the model's history.
	Record(model string, ok bool, elapsed time.Duration)

	// SuccessRate returns the model's observed success rate in [0,1] and
	// whether any history exists.
	SuccessRate(model string) (float64, bool)
}

// MemoryScoreboard is the default in-memory Scoreboard.
type MemoryScoreboard struct {
	mu    sync.RWMutex
	stats map[string]*modelStats
}

type modelStats struct {
	calls     int
	successes int
	elapsed   time.Duration
}

// NewMemoryScoreboard creates an empty scoreboard.
func NewMemoryScoreboard() *MemoryScoreboard {
	return &MemoryScoreboard{stats: make(map[string]*modelStats)}
}

// Record implements Scoreboard.
func (s *MemoryScoreboard) Record(model string, ok bool, elapsed time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, exists := s.stats[model]
	if !exists {
		st = &modelStats{}
		s.stats[model] = st
	}
	st.calls++
	st.elapsed += elapsed
	if ok {
		st.successes++
	}
}

// SuccessRate implements Scoreboard.
func (s *MemoryScoreboard) SuccessRate(model string) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, exists := s.stats[model]
	if !exists || st.calls == 0 {
		return 0, false
	}
	return float64(st.successes) / float64(st.calls), true
}

// AverageLatency returns the model's observed mean latency and whether any
// history exists.
func (s *MemoryScoreboard) AverageLatency(model string) (time.Duration, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, exists := s.stats[model]
	if !exists || st.calls == 0 {
		return 0, false
	}
	return st.elapsed / time.Duration(st.calls), true
}

var _ Scoreboard = (*MemoryScoreboard)(nil)
