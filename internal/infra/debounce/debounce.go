// Package debounce coalesces bursts of edits into a single deferred flush
// per key. A new trigger within the quiet window supersedes the pending
// flush, so rapid edits produce exactly one write.
package debounce

import (
	"sync"
	"time"
)

// Saver schedules one deferred flush per key.
type Saver struct {
	mu     sync.Mutex
	delay  time.Duration
	timers map[string]*time.Timer
	flush  func(key string)
}

// New creates a Saver that calls flush(key) after the quiet period.
func New(delay time.Duration, flush func(key string)) *Saver {
	return &Saver{
		delay:  delay,
		timers: make(map[string]*time.Timer),
		flush:  flush,
	}
}

// Trigger (re)starts the quiet window for a key. The flush runs in its own
// goroutine once the window elapses without another trigger.
func (s *Saver) Trigger(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.timers[key]; ok {
		t.Stop()
	}
	s.timers[key] = time.AfterFunc(s.delay, func() {
		s.mu.Lock()
		delete(s.timers, key)
		s.mu.Unlock()
		s.flush(key)
	})
}

// Cancel drops a pending flush for a key, if any.
func (s *Saver) Cancel(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.timers[key]; ok {
		t.Stop()
		delete(s.timers, key)
	}
}

// FlushAll stops every pending timer and runs the flushes synchronously.
// Called on shutdown so no edit is left unsaved.
func (s *Saver) FlushAll() {
	s.mu.Lock()
	keys := make([]string, 0, len(s.timers))
	for key, t := range s.timers {
		t.Stop()
		keys = append(keys, key)
	}
	s.timers = make(map[string]*time.Timer)
	s.mu.Unlock()

	for _, key := range keys {
		s.flush(key)
	}
}
