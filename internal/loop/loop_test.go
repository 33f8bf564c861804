package loop

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Manual scheduler
// =============================================================================

func TestManual_PostRunsOnFlush(t *testing.T) {
	m := NewManual()
	var got []int
	m.Post(func() {
		got = append(got, 1)
		m.Post(func() { got = append(got, 2) })
	})
	assert.Empty(t, got)
	assert.Equal(t, 2, m.Flush())
	assert.Equal(t, []int{1, 2}, got)
}

func TestManual_AfterFuncFiresOnce(t *testing.T) {
	m := NewManual()
	fired := 0
	m.AfterFunc(30*time.Second, func() { fired++ })

	m.Advance(29 * time.Second)
	assert.Equal(t, 0, fired)
	m.Advance(time.Second)
	assert.Equal(t, 1, fired)
	m.Advance(time.Minute)
	assert.Equal(t, 1, fired)
	assert.Equal(t, 0, m.Pending())
}

func TestManual_EveryUntilFalse(t *testing.T) {
	m := NewManual()
	ticks := 0
	m.Every(time.Minute, func() bool {
		ticks++
		return ticks < 3
	})
	m.Advance(10 * time.Minute)
	assert.Equal(t, 3, ticks)
	assert.Equal(t, 0, m.Pending())
}

func TestManual_StopCancels(t *testing.T) {
	m := NewManual()
	fired := false
	tm := m.AfterFunc(time.Second, func() { fired = true })
	assert.True(t, tm.Stop())
	assert.False(t, tm.Stop())
	m.Advance(time.Hour)
	assert.False(t, fired)
}

func TestManual_TimersFireInOrder(t *testing.T) {
	m := NewManual()
	var order []string
	m.AfterFunc(2*time.Second, func() { order = append(order, "b") })
	m.AfterFunc(time.Second, func() { order = append(order, "a") })
	m.Advance(5 * time.Second)
	assert.Equal(t, []string{"a", "b"}, order)
}

// =============================================================================
// Real loop
// =============================================================================

func TestLoop_RunExecutesPostedJobs(t *testing.T) {
	l := New(0)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	done := make(chan struct{})
	l.Post(func() { close(done) })
	go l.Run(ctx)

	select {
	case <-done:
	case <-ctx.Done():
		t.Fatal("posted job never ran")
	}
}

func TestLoop_AfterFuncStop(t *testing.T) {
	l := New(4)
	tm := l.AfterFunc(time.Hour, func() {})
	require.NotNil(t, tm)
	assert.True(t, tm.Stop())
	assert.False(t, tm.Stop())
}

func TestLoop_EveryRunsOnLoop(t *testing.T) {
	l := New(4)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	go l.Run(ctx)

	ticks := make(chan int, 10)
	n := 0
	l.Every(5*time.Millisecond, func() bool {
		n++
		ticks <- n
		return n < 2
	})
	for want := 1; want <= 2; want++ {
		select {
		case got := <-ticks:
			assert.Equal(t, want, got)
		case <-ctx.Done():
			t.Fatal("timer did not tick")
		}
	}
}
