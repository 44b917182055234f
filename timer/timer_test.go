package timer

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimersFire(t *testing.T) {
	s := New()
	defer s.Stop()

	fired := make(chan string, 2)
	s.Schedule("a", time.Millisecond, func() { fired <- "a" })
	s.Schedule("b", time.Hour, func() { fired <- "b" })

	select {
	case id := <-fired:
		assert.Equal(t, "a", id)
	case <-time.After(time.Second):
		t.Fatal("timer a did not fire")
	}
}

func TestTimersReplaceAndCancel(t *testing.T) {
	s := New()
	defer s.Stop()

	var count atomic.Int32
	s.Schedule("x", 20*time.Millisecond, func() { count.Add(100) })
	s.Schedule("x", 5*time.Millisecond, func() { count.Add(1) })
	s.Schedule("y", 5*time.Millisecond, func() { count.Add(10) })
	s.Cancel("y")

	assert.Eventually(t, func() bool { return count.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, int32(1), count.Load())
}

func TestTimersStop(t *testing.T) {
	s := New()
	var count atomic.Int32
	s.Schedule("x", time.Millisecond, func() { count.Add(1) })
	s.Stop()
	s.Schedule("y", time.Millisecond, func() { count.Add(1) })
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(0), count.Load())
}

func TestFakeAdvance(t *testing.T) {
	f := NewFake()
	var order []string
	f.Schedule("late", 10*time.Second, func() { order = append(order, "late") })
	f.Schedule("early", 5*time.Second, func() {
		order = append(order, "early")
		f.Schedule("chained", 2*time.Second, func() { order = append(order, "chained") })
	})

	f.Advance(4 * time.Second)
	assert.Empty(t, order)
	left, ok := f.Pending("early")
	assert.True(t, ok)
	assert.Equal(t, time.Second, left)

	f.Advance(6 * time.Second)
	assert.Equal(t, []string{"early", "chained", "late"}, order)
	assert.Equal(t, 10*time.Second, f.Elapsed())
}

func TestFakeCancel(t *testing.T) {
	f := NewFake()
	fired := false
	f.Schedule("x", time.Second, func() { fired = true })
	f.Cancel("x")
	f.Advance(time.Minute)
	assert.False(t, fired)
	_, ok := f.Pending("x")
	assert.False(t, ok)
}
