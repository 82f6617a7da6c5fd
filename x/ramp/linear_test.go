package ramp

import (
	"context"
	"testing"
	"time"
)

func collect(cur, to uint32, d time.Duration, steps uint16, tick Tick) ([]uint32, bool) {
	var got []uint32
	ok := Linear(cur, to, d, steps, tick, func(l uint32) { got = append(got, l) })
	return got, ok
}

func instant(time.Duration) bool { return true }

func TestLinearEvenSteps(t *testing.T) {
	got, ok := collect(0, 10000, time.Second, 4, instant)
	want := []uint32{2500, 5000, 7500, 10000}
	if !ok || len(got) != len(want) {
		t.Fatalf("got %v ok=%v", got, ok)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("step %d: got %d want %d", i, got[i], want[i])
		}
	}
}

func TestLinearDownAndRepeatsSuppressed(t *testing.T) {
	// 3 levels over 10 steps: most steps do not change the level.
	got, _ := collect(3, 0, time.Second, 10, instant)
	want := []uint32{2, 1, 0}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v want %v", got, want)
		}
	}
}

func TestLinearSnap(t *testing.T) {
	ticks := 0
	tick := func(time.Duration) bool { ticks++; return true }
	for _, c := range []struct {
		d     time.Duration
		steps uint16
	}{{0, 10}, {time.Second, 0}} {
		got, ok := collect(100, 40, c.d, c.steps, tick)
		if !ok || len(got) != 1 || got[0] != 40 {
			t.Fatalf("snap: %v", got)
		}
	}
	if ticks != 0 {
		t.Fatalf("snap waited %d times", ticks)
	}
}

func TestLinearFinalEvenWhenFlat(t *testing.T) {
	got, _ := collect(50, 50, time.Second, 5, instant)
	if len(got) != 1 || got[0] != 50 {
		t.Fatalf("got %v", got)
	}
}

func TestLinearCancelled(t *testing.T) {
	n := 0
	tick := func(d time.Duration) bool {
		if d != 100*time.Millisecond {
			t.Fatalf("step duration %v", d)
		}
		n++
		return n < 3
	}
	got, ok := collect(0, 1000, time.Second, 10, tick)
	if ok || len(got) != 2 || got[1] != 200 {
		t.Fatalf("got %v ok=%v", got, ok)
	}
}

func TestTimerTick(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	tick := TimerTick(ctx)
	if !tick(time.Millisecond) || !tick(time.Millisecond) {
		t.Fatal("tick should complete")
	}
	cancel()
	if tick(time.Hour) {
		t.Fatal("tick should stop on cancel")
	}
}
