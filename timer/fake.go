package timer

import (
	"sort"
	"sync"
	"time"
)

// Fake is a manually advanced Service for tests. Callbacks run on the
// goroutine calling Advance.
type Fake struct {
	mu      sync.Mutex
	now     time.Duration
	seq     uint64
	pending map[string]fakeEntry
}

type fakeEntry struct {
	at  time.Duration
	seq uint64
	fn  func()
}

func NewFake() *Fake {
	return &Fake{pending: make(map[string]fakeEntry)}
}

func (f *Fake) Schedule(id string, delay time.Duration, fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	f.pending[id] = fakeEntry{at: f.now + delay, seq: f.seq, fn: fn}
}

func (f *Fake) Cancel(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.pending, id)
}

func (f *Fake) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending = make(map[string]fakeEntry)
}

// Pending returns the delay left for id, and whether id is scheduled.
func (f *Fake) Pending(id string) (time.Duration, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.pending[id]
	return e.at - f.now, ok
}

// Elapsed returns the total time advanced so far.
func (f *Fake) Elapsed() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Advance moves the clock forward by d, firing due timers in deadline order.
// Timers scheduled by a callback fire in the same call if they fall due.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	target := f.now + d
	f.mu.Unlock()
	for {
		f.mu.Lock()
		id, e, ok := f.nextDue(target)
		if !ok {
			f.now = target
			f.mu.Unlock()
			return
		}
		delete(f.pending, id)
		f.now = e.at
		f.mu.Unlock()
		e.fn()
	}
}

func (f *Fake) nextDue(target time.Duration) (string, fakeEntry, bool) {
	ids := make([]string, 0, len(f.pending))
	for id, e := range f.pending {
		if e.at <= target {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return "", fakeEntry{}, false
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := f.pending[ids[i]], f.pending[ids[j]]
		if a.at != b.at {
			return a.at < b.at
		}
		return a.seq < b.seq
	})
	return ids[0], f.pending[ids[0]], true
}
