package events

import (
	"runtime"
	"sync/atomic"
)

// waitStrategy implements an adaptive spin-then-sleep wait. Waits that
// succeed while spinning grow the spin budget; waits that fall through to
// the sleep path shrink it, so a handle that is signaled at high frequency
// stays on the cheap path and an idle one parks quickly.
type waitStrategy struct {
	limit   int32
	minSpin int32
	maxSpin int32
	incStep int32
	decStep int32
}

func newWaitStrategy() *waitStrategy {
	return &waitStrategy{
		limit:   1000,
		minSpin: 100,
		maxSpin: 8000,
		incStep: 200,
		decStep: 100,
	}
}

// wait spins on condition up to the current budget, then runs sleep (a
// blocking park, e.g. a futex wait) and checks once more. Returns whether
// the condition was met. condition may have a consuming side effect; it is
// only ever reported met once per call.
func (w *waitStrategy) wait(condition func() bool, sleep func()) bool {
	limit := int(atomic.LoadInt32(&w.limit))

	for i := 0; i < limit; i++ {
		if condition() {
			w.reward(limit)
			return true
		}
		// Yield every 64 iterations to keep scheduler overhead down.
		if i&0x3F == 0 {
			runtime.Gosched()
		}
	}

	w.punish(limit)
	sleep()
	return condition()
}

func (w *waitStrategy) reward(limit int) {
	if limit < int(w.maxSpin) {
		next := limit + int(w.incStep)
		if next > int(w.maxSpin) {
			next = int(w.maxSpin)
		}
		atomic.StoreInt32(&w.limit, int32(next))
	}
}

func (w *waitStrategy) punish(limit int) {
	if limit > int(w.minSpin) {
		next := limit - int(w.decStep)
		if next < int(w.minSpin) {
			next = int(w.minSpin)
		}
		atomic.StoreInt32(&w.limit, int32(next))
	}
}
