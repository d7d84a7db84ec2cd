package prefs

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/atinyakov/HomeKeeper/internal/models"
)

// MinSelectInterval is the shortest time between two accepted selections.
const MinSelectInterval = 300 * time.Millisecond

// Session holds the currently selected view. It lives only in memory and
// starts at models.DefaultView.
type Session struct {
	mu       sync.Mutex
	clock    clockwork.Clock
	interval time.Duration
	selected string
	last     time.Time
}

// NewSession returns a session on clock. A zero interval means
// MinSelectInterval.
func NewSession(clock clockwork.Clock, interval time.Duration) *Session {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if interval <= 0 {
		interval = MinSelectInterval
	}
	return &Session{clock: clock, interval: interval, selected: models.DefaultView}
}

// Select switches to view unless the previous switch was less than the
// minimum interval ago, in which case the call is dropped. It reports
// whether the selection changed.
func (s *Session) Select(view string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	if !s.last.IsZero() && now.Sub(s.last) < s.interval {
		return false
	}
	s.selected = view
	s.last = now
	return true
}

// Selected returns the current view.
func (s *Session) Selected() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}
