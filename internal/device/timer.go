package device

import (
	"fmt"
	"sync"
	"time"
)

// LocalTimer is a deadline-based TimeoutTimer. It reports active until the
// deadline passes, then reverts to idle on its own; Stop clears any pending
// deadline.
type LocalTimer struct {
	mu       sync.Mutex
	deadline time.Time
}

func NewLocalTimer() *LocalTimer {
	return &LocalTimer{}
}

func (t *LocalTimer) Start(d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("timer duration must be positive, got %s", d)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.deadline.IsZero() && time.Now().Before(t.deadline) {
		return fmt.Errorf("timer already active until %s", t.deadline.Format(time.RFC3339))
	}
	t.deadline = time.Now().Add(d)
	return nil
}

func (t *LocalTimer) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.deadline = time.Time{}
	return nil
}

func (t *LocalTimer) State() TimerState {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.deadline.IsZero() || !time.Now().Before(t.deadline) {
		return TimerIdle
	}
	return TimerActive
}
