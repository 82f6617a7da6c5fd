package pwm_test

import (
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"pwmgroup-go/pwm"
	"pwmgroup-go/pwm/pwmtest"
)

// ---- helpers ----

func newRegistry(t *testing.T, timers int) (*pwm.Registry, *pwmtest.Driver, *test.Hook) {
	t.Helper()
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	drv := pwmtest.New(timers)
	return pwm.NewRegistry(drv, pwm.WithLogger(log)), drv, hook
}

func ch(channel pwm.ChannelID, timer pwm.TimerID, hz uint32) pwm.ChannelConfig {
	return pwm.ChannelConfig{
		Pin:        18 + int(channel),
		Channel:    channel,
		Timer:      timer,
		FreqHz:     hz,
		Resolution: 13,
		Mode:       pwm.LowSpeed,
	}
}

func mustOpen(t *testing.T, r *pwm.Registry, cfgs ...pwm.ChannelConfig) *pwm.Handle {
	t.Helper()
	h, err := r.Open(cfgs)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	return h
}

func hasLog(hook *test.Hook, lvl logrus.Level, substr string) bool {
	for _, e := range hook.AllEntries() {
		if e.Level == lvl && strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}

// ---- tests ----

func TestRegistrySizedFromDriver(t *testing.T) {
	r, _, _ := newRegistry(t, 4)
	if r.Timers() != 4 {
		t.Fatalf("timers: got %d", r.Timers())
	}
	for i := 0; i < 4; i++ {
		if _, ok := r.Slot(pwm.TimerID(i)); ok {
			t.Fatalf("slot %d configured before use", i)
		}
	}
	if _, ok := r.Slot(9); ok {
		t.Fatal("out of range slot reported configured")
	}
}

func TestSharedTimerSameFrequencyIsReused(t *testing.T) {
	r, drv, _ := newRegistry(t, 4)

	mustOpen(t, r, ch(0, 0, 5000))
	mustOpen(t, r, ch(1, 0, 5000))

	if n := drv.Count("configure_timer"); n != 1 {
		t.Fatalf("configure_timer calls: got %d want 1", n)
	}
	if n := drv.Count("set_freq"); n != 0 {
		t.Fatalf("set_freq calls: got %d want 0", n)
	}
	if n := drv.Count("configure_channel"); n != 2 {
		t.Fatalf("configure_channel calls: got %d want 2", n)
	}
	if r.Active() != 2 {
		t.Fatalf("active: got %d", r.Active())
	}
}

func TestSharedTimerDifferentFrequencyRetunes(t *testing.T) {
	r, drv, hook := newRegistry(t, 4)

	mustOpen(t, r, ch(0, 1, 5000))
	mustOpen(t, r, ch(1, 1, 1000))

	if got := drv.Ops(); strings.Join(got, ",") != "configure_timer,configure_channel,set_freq,configure_channel" {
		t.Fatalf("ops: %v", got)
	}
	s, ok := r.Slot(1)
	if !ok || s.FreqHz != 1000 {
		t.Fatalf("slot after retune: %+v ok=%v", s, ok)
	}
	if !hasLog(hook, logrus.WarnLevel, "already running at 5000 Hz, requested 1000 Hz") {
		t.Fatal("mismatch warning not logged")
	}
}

func TestSharedTimerFailedRetuneKeepsFirstFrequency(t *testing.T) {
	r, drv, hook := newRegistry(t, 4)

	mustOpen(t, r, ch(0, 2, 5000))
	drv.FailNext("set_freq", 1)
	h2, err := r.Open([]pwm.ChannelConfig{ch(1, 2, 1000)})
	if err != nil {
		t.Fatalf("failed retune must not fail open: %v", err)
	}
	s, _ := r.Slot(2)
	if s.FreqHz != 5000 {
		t.Fatalf("authoritative frequency: got %d want 5000", s.FreqHz)
	}
	if !hasLog(hook, logrus.ErrorLevel, "keeping 5000 Hz") {
		t.Fatal("retune failure not logged")
	}

	// A later set_frequency reports the mismatch against the first handle's value.
	hook.Reset()
	if _, err := h2.SetFrequency(2, 1000); err != nil {
		t.Fatalf("set_frequency: %v", err)
	}
	if !hasLog(hook, logrus.InfoLevel, "timer 2 moving from 5000 Hz") {
		t.Fatal("mismatch report missing")
	}
}

func TestConfigureTimerFailureLeavesSlotUnconfigured(t *testing.T) {
	r, drv, _ := newRegistry(t, 4)
	drv.FailNext("configure_timer", 1)

	if _, err := r.Open([]pwm.ChannelConfig{ch(0, 3, 5000)}); err == nil {
		t.Fatal("expected error")
	}
	if _, ok := r.Slot(3); ok {
		t.Fatal("slot configured after failure")
	}
	if drv.Count("configure_channel") != 0 {
		t.Fatal("channel configured after timer failure")
	}

	// Next attempt configures from scratch.
	mustOpen(t, r, ch(0, 3, 5000))
	if drv.Count("configure_timer") != 2 {
		t.Fatalf("configure_timer calls: %d", drv.Count("configure_timer"))
	}
}

func TestTimersReleasedOnlyWhenLastHandleCloses(t *testing.T) {
	r, drv, _ := newRegistry(t, 4)

	h1 := mustOpen(t, r, ch(0, 0, 5000))
	h2 := mustOpen(t, r, ch(1, 0, 5000), ch(2, 1, 200))

	if err := h1.Close(); err != nil {
		t.Fatal(err)
	}
	if _, ok := r.Slot(0); !ok {
		t.Fatal("timer released while a handle is alive")
	}
	if err := h2.Close(); err != nil {
		t.Fatal(err)
	}
	if r.Active() != 0 {
		t.Fatalf("active: %d", r.Active())
	}
	for i := 0; i < 2; i++ {
		if _, ok := r.Slot(pwm.TimerID(i)); ok {
			t.Fatalf("timer %d still configured", i)
		}
	}

	// Reopening takes the fresh-configure path rather than reuse.
	drv.Reset()
	mustOpen(t, r, ch(0, 0, 5000))
	if got := strings.Join(drv.Ops(), ","); got != "configure_timer,configure_channel" {
		t.Fatalf("ops after release: %s", got)
	}
}

func TestResolutionMismatchIsNotReconciled(t *testing.T) {
	r, drv, _ := newRegistry(t, 4)

	a := ch(0, 0, 5000)
	b := ch(1, 0, 5000)
	b.Resolution = 8
	mustOpen(t, r, a, b)

	s, _ := r.Slot(0)
	if s.Resolution != 13 {
		t.Fatalf("slot resolution: %d", s.Resolution)
	}
	if drv.Count("configure_timer") != 1 || drv.Count("set_freq") != 0 {
		t.Fatalf("unexpected driver traffic: %v", drv.Ops())
	}
}
