package events

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// waitForCounter polls until the counter reaches want or the deadline
// passes. Dispatch happens on the handler's own goroutine, so tests
// observe it asynchronously.
func waitForCounter(t *testing.T, counter *atomic.Int64, want int64) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for counter.Load() < want {
		if time.Now().After(deadline) {
			t.Fatalf("counter stuck at %d, want %d", counter.Load(), want)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestHandlerDispatchesAndStops(t *testing.T) {
	action := NewInProcessEvent("action", false, false)
	stop := NewInProcessEvent("stop", false, false)

	var counter atomic.Int64
	h := NewEventHandler(func() { counter.Add(1) }, action, stop)

	for i := int64(1); i <= 3; i++ {
		require.NoError(t, action.Set())
		waitForCounter(t, &counter, i)
	}
	assert.Equal(t, int64(3), counter.Load())

	require.NoError(t, stop.Set())
	require.NoError(t, h.Join(2*time.Second), "handler must terminate once the stop event fires")

	// A fire after shutdown must not dispatch.
	require.NoError(t, action.Set())
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int64(3), counter.Load())
}

func TestHandlerStopMethod(t *testing.T) {
	action := NewInProcessEvent("action", false, false)
	stop := NewInProcessEvent("stop", false, false)

	h := NewEventHandler(func() {}, action, stop)
	require.NoError(t, h.Stop())
	require.NoError(t, h.Join(2*time.Second))
}

func TestHandlerJoinTimeout(t *testing.T) {
	action := NewInProcessEvent("action", false, false)
	stop := NewInProcessEvent("stop", false, false)

	h := NewEventHandler(func() {}, action, stop)
	assert.ErrorIs(t, h.Join(100*time.Millisecond), ErrTimeout)
	assert.ErrorIs(t, h.Join(0), ErrTimeout)

	require.NoError(t, h.Stop())
	require.NoError(t, h.Join(Forever))
	assert.NoError(t, h.Join(0), "Join after termination succeeds immediately")
}

func TestHandlerDefaultStopStopsAll(t *testing.T) {
	// Swap in a private default so this test cannot interfere with others.
	prev := DefaultStopEvent()
	SetDefaultStopEvent(NewInProcessEvent(DefaultStopEventName, false, true))
	defer SetDefaultStopEvent(prev)

	a1 := NewInProcessEvent("action1", false, false)
	a2 := NewInProcessEvent("action2", false, false)
	h1 := NewEventHandler(func() {}, a1, nil)
	h2 := NewEventHandler(func() {}, a2, nil)

	time.Sleep(50 * time.Millisecond) // let both stop watchers park

	require.NoError(t, StopAllHandlers())
	require.NoError(t, h1.Join(2*time.Second))
	require.NoError(t, h2.Join(2*time.Second))

	// The pulse leaves the default unset, so a later handler still runs.
	a3 := NewInProcessEvent("action3", false, false)
	var counter atomic.Int64
	h3 := NewEventHandler(func() { counter.Add(1) }, a3, nil)
	require.NoError(t, a3.Set())
	waitForCounter(t, &counter, 1)
	require.NoError(t, h3.Stop())
	// h3 shares the default stop event; Stop sets it rather than pulsing.
	require.NoError(t, h3.Join(2*time.Second))
}

func TestHandlerWithNamedEvents(t *testing.T) {
	requireNamed(t)
	actionName := freshName(t, "go_events_test_handler_action")
	stopName := freshName(t, "go_events_test_handler_stop")

	action, err := NewNamedEvent(actionName, false, false)
	require.NoError(t, err)
	defer action.Close()
	stop, err := NewNamedEvent(stopName, false, false)
	require.NoError(t, err)
	defer stop.Close()

	var counter atomic.Int64
	h := NewEventHandler(func() { counter.Add(1) }, action, stop)

	for i := int64(1); i <= 3; i++ {
		require.NoError(t, action.Set())
		waitForCounter(t, &counter, i)
	}

	require.NoError(t, stop.Set())
	require.NoError(t, h.Join(2*time.Second))
	assert.Equal(t, int64(3), counter.Load())
}

func TestHandlerCallbackRunsOnHandlerGoroutine(t *testing.T) {
	action := NewInProcessEvent("action", false, false)
	stop := NewInProcessEvent("stop", false, false)

	// A slow callback must not be run concurrently with itself: dispatch
	// is synchronous on the handler's own goroutine.
	var inFlight atomic.Int64
	var overlapped atomic.Bool
	var counter atomic.Int64
	h := NewEventHandler(func() {
		if inFlight.Add(1) > 1 {
			overlapped.Store(true)
		}
		time.Sleep(10 * time.Millisecond)
		inFlight.Add(-1)
		counter.Add(1)
	}, action, stop)

	for i := 0; i < 5; i++ {
		require.NoError(t, action.Set())
		time.Sleep(5 * time.Millisecond)
	}
	waitForCounter(t, &counter, 2)

	require.NoError(t, stop.Set())
	require.NoError(t, h.Join(2*time.Second))
	assert.False(t, overlapped.Load(), "callbacks overlapped")
}

func TestDefaultStopEventIsLazySingleton(t *testing.T) {
	e1 := DefaultStopEvent()
	e2 := DefaultStopEvent()
	assert.Same(t, e1, e2)
	assert.Equal(t, DefaultStopEventName, e1.Name())
}
