// Package timer schedules named one-shot callbacks. Scheduling an id that is
// already pending replaces the pending callback.
package timer

import (
	"sync"
	"time"
)

// Service schedules and cancels named timers.
type Service interface {
	Schedule(id string, delay time.Duration, fn func())
	Cancel(id string)
	Stop()
}

type entry struct {
	t   *time.Timer
	seq uint64
}

// Timers is a Service backed by time.AfterFunc.
type Timers struct {
	mu      sync.Mutex
	pending map[string]entry
	seq     uint64
	stopped bool
}

func New() *Timers {
	return &Timers{pending: make(map[string]entry)}
}

func (s *Timers) Schedule(id string, delay time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	if old, ok := s.pending[id]; ok {
		old.t.Stop()
	}
	s.seq++
	seq := s.seq
	s.pending[id] = entry{seq: seq, t: time.AfterFunc(delay, func() {
		s.mu.Lock()
		cur, ok := s.pending[id]
		if !ok || cur.seq != seq {
			s.mu.Unlock()
			return
		}
		delete(s.pending, id)
		s.mu.Unlock()
		fn()
	})}
}

func (s *Timers) Cancel(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.pending[id]; ok {
		old.t.Stop()
		delete(s.pending, id)
	}
}

// Stop cancels all pending timers; later calls to Schedule are ignored.
func (s *Timers) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, e := range s.pending {
		e.t.Stop()
		delete(s.pending, id)
	}
	s.stopped = true
}
