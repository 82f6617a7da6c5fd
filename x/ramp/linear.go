package ramp

import (
	"context"
	"time"
)

// Step receives each new level.
type Step func(level uint32)

// Tick waits for d and reports whether to continue (false => cancelled).
type Tick func(d time.Duration) bool

// Linear walks from cur to to in steps evenly spaced over d, waiting on
// tick before each one. Levels that do not change are not reported, except
// the final one which is always exactly to. steps==0 or d<=0 snaps.
// It reports whether the ramp ran to completion.
func Linear(cur, to uint32, d time.Duration, steps uint16, tick Tick, set Step) bool {
	if steps == 0 || d <= 0 {
		set(to)
		return true
	}
	stepDur := d / time.Duration(steps)
	if stepDur <= 0 {
		stepDur = time.Millisecond
	}
	delta := int64(to) - int64(cur)
	st := int64(steps)
	last := cur

	for i := int64(1); i < st; i++ {
		if !tick(stepDur) {
			return false
		}
		lvl := uint32(int64(cur) + delta*i/st)
		if lvl != last {
			set(lvl)
			last = lvl
		}
	}
	if !tick(stepDur) {
		return false
	}
	set(to)
	return true
}

// TimerTick sleeps on a reusable timer and gives up when ctx ends.
func TimerTick(ctx context.Context) Tick {
	var t *time.Timer
	return func(d time.Duration) bool {
		if t == nil {
			t = time.NewTimer(d)
		} else {
			t.Reset(d)
		}
		select {
		case <-ctx.Done():
			t.Stop()
			return false
		case <-t.C:
			return true
		}
	}
}
