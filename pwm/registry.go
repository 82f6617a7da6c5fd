// Package pwm multiplexes groups of PWM output channels onto a small pool
// of shared hardware timers.
//
// A Registry tracks which timers have been programmed and how many handles
// are alive; a Handle owns one group of channels. Neither type locks: all
// calls on a Registry and its handles must be serialised by the caller.
package pwm

import (
	"pwmgroup-go/errcode"
)

// TimerSlot mirrors the last successful configuration of one timer.
// The mirrored fields are meaningless while Configured is false.
type TimerSlot struct {
	Configured bool
	FreqHz     uint32
	Resolution Resolution
	Mode       SpeedMode
}

// Registry is the process-wide timer bookkeeping shared by every handle
// opened from it.
type Registry struct {
	drv    Driver
	log    Logger
	slots  []TimerSlot
	active int // live handles; gates the bulk slot reset
}

// NewRegistry sizes the slot table from drv.Timers().
func NewRegistry(drv Driver, opts ...Option) *Registry {
	r := &Registry{drv: drv, log: nopLogger{}}
	for _, o := range opts {
		o(r)
	}
	n := drv.Timers()
	if n < 0 {
		n = 0
	}
	r.slots = make([]TimerSlot, n)
	return r
}

// Timers returns the number of timer slots.
func (r *Registry) Timers() int { return len(r.slots) }

// Active returns the number of open handles.
func (r *Registry) Active() int { return r.active }

// Slot returns a copy of the slot for t. ok is false when the timer is
// out of range or not configured.
func (r *Registry) Slot(t TimerID) (TimerSlot, bool) {
	if int(t) >= len(r.slots) {
		return TimerSlot{}, false
	}
	s := r.slots[t]
	if !s.Configured {
		return TimerSlot{}, false
	}
	return s, true
}

// ensureConfigured programs the timer on first use and reports whether it
// did. A timer already programmed with another frequency is retuned; a
// failed retune is logged and the earlier configuration stays
// authoritative.
func (r *Registry) ensureConfigured(c ChannelConfig) (bool, error) {
	s := &r.slots[c.Timer]
	if !s.Configured {
		if err := r.drv.ConfigureTimer(c.Mode, c.Timer, c.Resolution, c.FreqHz); err != nil {
			r.log.Errorf("pwm: configure timer %d failed: %v", c.Timer, err)
			return false, errcode.Wrap(errcode.MapDriverErr(err), "configure_timer", err)
		}
		*s = TimerSlot{Configured: true, FreqHz: c.FreqHz, Resolution: c.Resolution, Mode: c.Mode}
		r.log.Infof("pwm: timer %d configured, %d Hz, %d bit", c.Timer, c.FreqHz, c.Resolution)
		return true, nil
	}
	if s.FreqHz == c.FreqHz {
		return false, nil
	}
	r.log.Warnf("pwm: timer %d already running at %d Hz, requested %d Hz", c.Timer, s.FreqHz, c.FreqHz)
	if got := r.drv.SetFrequency(c.Mode, c.Timer, c.FreqHz); got == 0 {
		r.log.Errorf("pwm: retune timer %d to %d Hz failed, keeping %d Hz", c.Timer, c.FreqHz, s.FreqHz)
		return false, nil
	}
	s.FreqHz = c.FreqHz
	r.log.Infof("pwm: timer %d retuned to %d Hz", c.Timer, c.FreqHz)
	return false, nil
}

// forget undoes the slot bookkeeping of a failed Open. The timers stay
// programmed in hardware; the next Open simply configures them afresh.
func (r *Registry) forget(timers []TimerID) {
	for _, t := range timers {
		r.slots[t].Configured = false
	}
}

// releaseAllIfUnreferenced forgets every timer once no handle is left.
// No driver call is made; the timers simply become eligible for a fresh
// configuration.
func (r *Registry) releaseAllIfUnreferenced() {
	if r.active != 0 {
		return
	}
	for i := range r.slots {
		r.slots[i].Configured = false
	}
	r.log.Infof("pwm: all timers released")
}
