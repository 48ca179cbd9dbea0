package events

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInProcessInitialState(t *testing.T) {
	for _, manual := range []bool{false, true} {
		e := NewInProcessEvent("initial_set", true, manual)
		assert.True(t, e.IsSet(), "manual=%v: created signaled", manual)

		e = NewInProcessEvent("initial_unset", false, manual)
		assert.False(t, e.IsSet(), "manual=%v: created not-signaled", manual)
	}
}

func TestInProcessManualResetStaysSignaled(t *testing.T) {
	e := NewInProcessEvent("manual", false, true)
	require.NoError(t, e.Set())

	for i := 0; i < 3; i++ {
		require.NoError(t, e.Wait(0), "wait %d must not consume a manual-reset signal", i)
		require.True(t, e.IsSet())
	}

	require.NoError(t, e.Reset())
	assert.False(t, e.IsSet())
	assert.ErrorIs(t, e.Wait(0), ErrTimeout)
}

func TestInProcessAutoResetConsumedByWait(t *testing.T) {
	e := NewInProcessEvent("auto", false, false)
	require.NoError(t, e.Set())

	// IsSet is a pure query, it never consumes.
	for i := 0; i < 3; i++ {
		assert.True(t, e.IsSet())
	}

	require.NoError(t, e.Wait(0))
	assert.False(t, e.IsSet())
	assert.ErrorIs(t, e.Wait(0), ErrTimeout)
}

func TestInProcessAutoResetReleasesExactlyOne(t *testing.T) {
	e := NewInProcessEvent("auto", false, false)

	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			results <- e.Wait(500 * time.Millisecond)
		}()
	}
	time.Sleep(50 * time.Millisecond) // let both park

	require.NoError(t, e.Set())

	require.NoError(t, <-results, "one waiter must be released")
	assert.ErrorIs(t, <-results, ErrTimeout, "the other must stay blocked until its timeout")
	assert.False(t, e.IsSet())
}

func TestInProcessSetCoalesces(t *testing.T) {
	e := NewInProcessEvent("auto", false, false)
	require.NoError(t, e.Set())
	require.NoError(t, e.Set())
	require.NoError(t, e.Set())

	require.NoError(t, e.Wait(0))
	assert.ErrorIs(t, e.Wait(0), ErrTimeout, "repeated sets coalesce into one signal")
}

func TestInProcessPulseNotObservableAfter(t *testing.T) {
	for _, manual := range []bool{false, true} {
		e := NewInProcessEvent("pulsed", false, manual)
		require.NoError(t, e.Pulse())
		assert.False(t, e.IsSet(), "manual=%v", manual)
		assert.ErrorIs(t, e.Wait(0), ErrTimeout, "manual=%v", manual)
	}
}

func TestInProcessPulseDropsPendingSignal(t *testing.T) {
	for _, manual := range []bool{false, true} {
		e := NewInProcessEvent("pulse_pending", false, manual)
		require.NoError(t, e.Set())
		require.True(t, e.IsSet(), "manual=%v", manual)

		require.NoError(t, e.Pulse())
		assert.False(t, e.IsSet(), "manual=%v: a pulse leaves the event not-signaled", manual)
		assert.ErrorIs(t, e.Wait(0), ErrTimeout, "manual=%v", manual)
	}
}

func TestInProcessPulseManualReleasesAllBlocked(t *testing.T) {
	e := NewInProcessEvent("pulsed_manual", false, true)

	const waiters = 3
	results := make(chan error, waiters)
	for i := 0; i < waiters; i++ {
		go func() {
			results <- e.Wait(time.Second)
		}()
	}
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, e.Pulse())

	for i := 0; i < waiters; i++ {
		require.NoError(t, <-results, "waiter %d blocked at the pulse must be released", i)
	}
	assert.False(t, e.IsSet())
	assert.ErrorIs(t, e.Wait(0), ErrTimeout, "waiters arriving after the pulse see not-signaled")
}

func TestInProcessPulseAutoReleasesAtMostOne(t *testing.T) {
	e := NewInProcessEvent("pulsed_auto", false, false)

	// No waiter blocked: the pulse is a no-op.
	require.NoError(t, e.Pulse())
	assert.ErrorIs(t, e.Wait(0), ErrTimeout)

	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			results <- e.Wait(500 * time.Millisecond)
		}()
	}
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, e.Pulse())

	require.NoError(t, <-results)
	assert.ErrorIs(t, <-results, ErrTimeout)
	assert.False(t, e.IsSet())
}

func TestInProcessWaitTimeoutElapses(t *testing.T) {
	e := NewInProcessEvent("never", false, false)

	start := time.Now()
	err := e.Wait(200 * time.Millisecond)
	duration := time.Since(start)

	require.ErrorIs(t, err, ErrTimeout)
	// Expect at least the requested timeout, and not wildly more.
	assert.GreaterOrEqual(t, duration, 200*time.Millisecond)
	assert.Less(t, duration, time.Second)
}

func TestInProcessForeverWait(t *testing.T) {
	e := NewInProcessEvent("forever", false, true)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(t, e.Wait(Forever))
	}()
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, e.Set())
	wg.Wait()
}

func TestInProcessFireStopAliases(t *testing.T) {
	e := NewInProcessEvent("aliases", false, true)

	require.NoError(t, e.Fire())
	assert.True(t, e.IsSet())

	require.NoError(t, e.Stop())
	assert.False(t, e.IsSet())
}

func TestInProcessName(t *testing.T) {
	e := NewInProcessEvent("advisory", false, false)
	assert.Equal(t, "advisory", e.Name())

	// Names are advisory for this variant: two events with the same name
	// are independent.
	a := NewInProcessEvent("same", false, true)
	b := NewInProcessEvent("same", false, true)
	require.NoError(t, a.Set())
	assert.False(t, b.IsSet())
}
