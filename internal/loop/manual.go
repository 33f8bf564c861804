package loop

import (
	"sort"
	"sync"
	"time"
)

// Manual is a Scheduler driven by hand. Time only moves on Advance and
// posted callbacks only run on Flush or Advance. Tests use it to step
// timers and async completions deterministically.
type Manual struct {
	mu     sync.Mutex
	now    time.Time
	queue  []func()
	timers []*manualTimer
	seq    int
}

type manualTimer struct {
	m      *Manual
	when   time.Time
	period time.Duration
	seq    int
	once   func()
	every  func() bool
	active bool
}

func (t *manualTimer) Stop() bool {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	was := t.active
	t.active = false
	return was
}

// NewManual returns a manual scheduler whose clock starts at a fixed instant
func NewManual() *Manual {
	return &Manual{now: time.Date(2024, time.January, 1, 12, 0, 0, 0, time.UTC)}
}

// Now returns the fake clock
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Post queues fn until the next Flush
func (m *Manual) Post(fn func()) {
	m.mu.Lock()
	m.queue = append(m.queue, fn)
	m.mu.Unlock()
}

func (m *Manual) add(t *manualTimer) *manualTimer {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	t.m = m
	t.seq = m.seq
	t.active = true
	m.timers = append(m.timers, t)
	return t
}

// AfterFunc registers a one-shot timer on the fake clock
func (m *Manual) AfterFunc(d time.Duration, fn func()) Timer {
	return m.add(&manualTimer{when: m.Now().Add(d), once: fn})
}

// Every registers a periodic timer on the fake clock
func (m *Manual) Every(d time.Duration, fn func() bool) Timer {
	return m.add(&manualTimer{when: m.Now().Add(d), period: d, every: fn})
}

// Flush runs queued callbacks, including ones they post, and returns how
// many ran
func (m *Manual) Flush() int {
	n := 0
	for {
		m.mu.Lock()
		if len(m.queue) == 0 {
			m.mu.Unlock()
			return n
		}
		fn := m.queue[0]
		m.queue = m.queue[1:]
		m.mu.Unlock()
		fn()
		n++
	}
}

// next returns the earliest active timer due at or before deadline
func (m *Manual) next(deadline time.Time) *manualTimer {
	m.mu.Lock()
	defer m.mu.Unlock()
	live := m.timers[:0]
	for _, t := range m.timers {
		if t.active {
			live = append(live, t)
		}
	}
	m.timers = live
	sort.SliceStable(m.timers, func(i, j int) bool {
		if m.timers[i].when.Equal(m.timers[j].when) {
			return m.timers[i].seq < m.timers[j].seq
		}
		return m.timers[i].when.Before(m.timers[j].when)
	})
	if len(m.timers) == 0 || m.timers[0].when.After(deadline) {
		return nil
	}
	t := m.timers[0]
	m.now = t.when
	return t
}

// Advance moves the clock forward by d, firing due timers in order
func (m *Manual) Advance(d time.Duration) {
	m.Flush()
	deadline := m.Now().Add(d)
	for t := m.next(deadline); t != nil; t = m.next(deadline) {
		if t.every == nil {
			m.mu.Lock()
			t.active = false
			m.mu.Unlock()
			t.once()
		} else {
			m.mu.Lock()
			t.when = t.when.Add(t.period)
			m.mu.Unlock()
			if !t.every() {
				t.Stop()
			}
		}
		m.Flush()
	}
	m.mu.Lock()
	m.now = deadline
	m.mu.Unlock()
}

// Pending reports how many timers are still armed
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.timers {
		if t.active {
			n++
		}
	}
	return n
}
