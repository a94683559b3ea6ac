package poller

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartRunsImmediatelyAndRepeats(t *testing.T) {
	var n atomic.Int32
	h := Start(context.Background(), 5*time.Millisecond, func(context.Context) { n.Add(1) })
	defer h.Stop()

	assert.Eventually(t, func() bool { return n.Load() >= 3 }, time.Second, time.Millisecond)
}

func TestNonPositiveIntervalRunsOnce(t *testing.T) {
	var n atomic.Int32
	h := Start(context.Background(), 0, func(context.Context) { n.Add(1) })

	select {
	case <-h.Done():
	case <-time.After(time.Second):
		t.Fatal("task did not finish")
	}
	assert.Equal(t, int32(1), n.Load())
}

func TestStopEndsLoopAndCancelsContext(t *testing.T) {
	var n atomic.Int32
	h := Start(context.Background(), time.Millisecond, func(context.Context) { n.Add(1) })
	require.Eventually(t, func() bool { return n.Load() >= 1 }, time.Second, time.Millisecond)

	h.Stop()
	h.Stop()

	select {
	case <-h.Done():
	case <-time.After(time.Second):
		t.Fatal("task did not stop")
	}
	assert.True(t, h.Stopped())
	assert.Error(t, h.Context().Err())

	after := n.Load()
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, after, n.Load())
}

func TestPanickingTickDoesNotKillLoop(t *testing.T) {
	var n atomic.Int32
	h := Start(context.Background(), time.Millisecond, func(context.Context) {
		if n.Add(1) == 1 {
			panic("first tick explodes")
		}
	})
	defer h.Stop()

	assert.Eventually(t, func() bool { return n.Load() >= 3 }, time.Second, time.Millisecond)
}

func TestHandlesAreDistinct(t *testing.T) {
	a := Start(context.Background(), 0, func(context.Context) {}, WithName("a"))
	b := Start(context.Background(), 0, func(context.Context) {}, WithName("b"))
	assert.NotEqual(t, a.ID(), b.ID())
	assert.Equal(t, "a", a.Name())
}
