// Package pwmtest provides a recording pwm.Driver for tests.
package pwmtest

import (
	"errors"
	"fmt"
	"sync"

	"pwmgroup-go/pwm"
)

// ErrInjected is returned by calls configured to fail.
var ErrInjected = errors.New("injected driver failure")

// Call is one recorded driver invocation.
type Call struct {
	Op      string // "configure_timer", "set_freq", "configure_channel", "set_duty", "commit_duty", "stop"
	Mode    pwm.SpeedMode
	Timer   pwm.TimerID
	Channel pwm.ChannelID
	Res     pwm.Resolution
	FreqHz  uint32
	Pin     int
	Duty    uint32
	Idle    pwm.IdleLevel
}

func (c Call) String() string {
	switch c.Op {
	case "configure_timer":
		return fmt.Sprintf("%s(t%d,%dHz,%db)", c.Op, c.Timer, c.FreqHz, c.Res)
	case "set_freq":
		return fmt.Sprintf("%s(t%d,%dHz)", c.Op, c.Timer, c.FreqHz)
	case "configure_channel":
		return fmt.Sprintf("%s(c%d,t%d,gpio%d)", c.Op, c.Channel, c.Timer, c.Pin)
	case "set_duty":
		return fmt.Sprintf("%s(c%d,%d)", c.Op, c.Channel, c.Duty)
	case "stop":
		return fmt.Sprintf("%s(c%d,%d)", c.Op, c.Channel, c.Idle)
	default:
		return fmt.Sprintf("%s(c%d)", c.Op, c.Channel)
	}
}

// Driver records every call. Fail maps an op name to the number of
// upcoming calls of that op that should fail (-1 = always).
type Driver struct {
	mu    sync.Mutex
	N     int
	calls []Call
	fail  map[string]int

	// FreqFn computes the achieved frequency for set_freq; nil echoes the request.
	FreqFn func(timer pwm.TimerID, hz uint32) uint32

	// ErrFn, when set, is consulted for every recorded call after the
	// FailNext counters; a non-nil result is returned to the caller.
	ErrFn func(c Call) error
}

// New returns a driver with n timers.
func New(n int) *Driver {
	return &Driver{N: n, fail: map[string]int{}}
}

// FailNext makes the next count calls of op fail; count < 0 fails forever.
func (d *Driver) FailNext(op string, count int) {
	d.mu.Lock()
	d.fail[op] = count
	d.mu.Unlock()
}

// Calls returns a copy of the call log.
func (d *Driver) Calls() []Call {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Call(nil), d.calls...)
}

// Ops returns the recorded op names in order.
func (d *Driver) Ops() []string {
	var out []string
	for _, c := range d.Calls() {
		out = append(out, c.Op)
	}
	return out
}

// Count returns how many times op was called.
func (d *Driver) Count(op string) int {
	n := 0
	for _, c := range d.Calls() {
		if c.Op == op {
			n++
		}
	}
	return n
}

// Reset clears the call log and pending failures.
func (d *Driver) Reset() {
	d.mu.Lock()
	d.calls = nil
	d.fail = map[string]int{}
	d.mu.Unlock()
}

// caller holds lock
func (d *Driver) failing(op string) bool {
	n, ok := d.fail[op]
	if !ok || n == 0 {
		return false
	}
	if n > 0 {
		d.fail[op] = n - 1
	}
	return true
}

func (d *Driver) record(c Call) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, c)
	if d.failing(c.Op) {
		return ErrInjected
	}
	if d.ErrFn != nil {
		return d.ErrFn(c)
	}
	return nil
}

func (d *Driver) Timers() int { return d.N }

func (d *Driver) ConfigureTimer(mode pwm.SpeedMode, t pwm.TimerID, res pwm.Resolution, hz uint32) error {
	return d.record(Call{Op: "configure_timer", Mode: mode, Timer: t, Res: res, FreqHz: hz})
}

func (d *Driver) SetFrequency(mode pwm.SpeedMode, t pwm.TimerID, hz uint32) uint32 {
	if err := d.record(Call{Op: "set_freq", Mode: mode, Timer: t, FreqHz: hz}); err != nil {
		return 0
	}
	if d.FreqFn != nil {
		return d.FreqFn(t, hz)
	}
	return hz
}

func (d *Driver) ConfigureChannel(cfg pwm.ChannelSetup) error {
	return d.record(Call{Op: "configure_channel", Mode: cfg.Mode, Timer: cfg.Timer, Channel: cfg.Channel, Pin: cfg.Pin})
}

func (d *Driver) SetDuty(mode pwm.SpeedMode, ch pwm.ChannelID, duty uint32) error {
	return d.record(Call{Op: "set_duty", Mode: mode, Channel: ch, Duty: duty})
}

func (d *Driver) CommitDuty(mode pwm.SpeedMode, ch pwm.ChannelID) error {
	return d.record(Call{Op: "commit_duty", Mode: mode, Channel: ch})
}

func (d *Driver) Stop(mode pwm.SpeedMode, ch pwm.ChannelID, idle pwm.IdleLevel) error {
	return d.record(Call{Op: "stop", Mode: mode, Channel: ch, Idle: idle})
}
