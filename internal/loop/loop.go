package loop

import (
	"context"
	"sync/atomic"
	"time"
)

// DefaultDepth is the number of queued callbacks the loop buffers before
// Post starts handing them off to a goroutine
const DefaultDepth = 256

// Timer is a scheduled callback that can be cancelled before it fires
type Timer interface {
	// Stop cancels the timer. It returns false if the timer already fired
	// (for one-shot timers) or was already stopped
	Stop() bool
}

// Scheduler runs callbacks on a single goroutine. Everything that touches
// tab or pane state goes through it, so no locking is needed there.
type Scheduler interface {
	// Post queues fn to run on the loop goroutine. Safe from any goroutine.
	Post(fn func())
	// AfterFunc runs fn once on the loop after d
	AfterFunc(d time.Duration, fn func()) Timer
	// Every runs fn on the loop every d until fn returns false or the
	// timer is stopped
	Every(d time.Duration, fn func() bool) Timer
	// Now returns the loop's notion of the current time
	Now() time.Time
}

// Loop is the editor's main event loop. The main goroutine selects on
// Jobs() next to the terminal events, the same way micro drains timerChan.
type Loop struct {
	jobs chan func()
}

// New creates a loop with the given queue depth
func New(depth int) *Loop {
	if depth <= 0 {
		depth = DefaultDepth
	}
	return &Loop{jobs: make(chan func(), depth)}
}

// Jobs exposes the queue so callers can multiplex it with other channels
func (l *Loop) Jobs() <-chan func() {
	return l.jobs
}

// Post queues fn. When the queue is full the send happens on a new
// goroutine so that posting from the loop itself never deadlocks.
func (l *Loop) Post(fn func()) {
	select {
	case l.jobs <- fn:
	default:
		go func() { l.jobs <- fn }()
	}
}

// Run executes queued callbacks until ctx is done
func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case fn := <-l.jobs:
			fn()
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Now returns the wall clock time
func (l *Loop) Now() time.Time {
	return time.Now()
}

type timer struct {
	t       *time.Timer
	stopped atomic.Bool
	fired   atomic.Bool
}

func (t *timer) Stop() bool {
	if t.stopped.Swap(true) {
		return false
	}
	t.t.Stop()
	return !t.fired.Load()
}

// AfterFunc schedules fn to run once on the loop after d
func (l *Loop) AfterFunc(d time.Duration, fn func()) Timer {
	t := &timer{}
	t.t = time.AfterFunc(d, func() {
		l.Post(func() {
			if t.stopped.Load() {
				return
			}
			t.fired.Store(true)
			t.stopped.Store(true)
			fn()
		})
	})
	return t
}

type periodic struct {
	loop    *Loop
	period  time.Duration
	fn      func() bool
	current atomic.Pointer[time.Timer]
	stopped atomic.Bool
}

func (p *periodic) arm() {
	p.current.Store(time.AfterFunc(p.period, func() {
		p.loop.Post(func() {
			if p.stopped.Load() {
				return
			}
			if !p.fn() {
				p.stopped.Store(true)
				return
			}
			if !p.stopped.Load() {
				p.arm()
			}
		})
	}))
}

func (p *periodic) Stop() bool {
	if p.stopped.Swap(true) {
		return false
	}
	if t := p.current.Load(); t != nil {
		t.Stop()
	}
	return true
}

// Every schedules fn to run on the loop every d until it returns false
func (l *Loop) Every(d time.Duration, fn func() bool) Timer {
	p := &periodic{loop: l, period: d, fn: fn}
	p.arm()
	return p
}
