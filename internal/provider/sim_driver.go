package provider

import (
	"sync"

	"pwmgroup-go/errcode"
	"pwmgroup-go/pwm"
	"pwmgroup-go/x/mathx"
)

// Simulated LED-controller peripheral for host builds: a fixed source clock
// divided by a 10.8 fixed-point prescaler, so achieved frequencies are
// quantised the way real timer dividers are.
const (
	SimSourceHz = 80_000_000
	SimTimers   = 4
	SimChannels = 8

	simDivMin = 1 << 8         // 1.0
	simDivMax = 1023<<8 | 0xff // 1023.996
)

// SimChannelState is the observable output of one simulated channel.
type SimChannelState struct {
	Bound   bool
	Timer   pwm.TimerID
	Pin     int
	Staged  uint32
	Duty    uint32
	Running bool
	Idle    pwm.IdleLevel
}

type simTimer struct {
	on     bool
	res    pwm.Resolution
	div    uint32 // Q10.8
	freqHz uint32
}

// SimDriver implements pwm.Driver in memory.
type SimDriver struct {
	mu     sync.Mutex
	timers [SimTimers]simTimer
	chans  [SimChannels]SimChannelState
}

func NewSimDriver() *SimDriver { return &SimDriver{} }

// simDivider returns the Q10.8 divider for hz at res, or 0 if the
// combination is outside the divider's range.
func simDivider(res pwm.Resolution, hz uint32) uint32 {
	if hz == 0 || res == 0 {
		return 0
	}
	div := (uint64(SimSourceHz) << 8) / (uint64(hz) << res)
	if !mathx.Between(div, simDivMin, simDivMax) {
		return 0
	}
	return uint32(div)
}

func simAchieved(res pwm.Resolution, div uint32) uint32 {
	return uint32((uint64(SimSourceHz) << 8) / (uint64(div) << res))
}

func (d *SimDriver) Timers() int { return SimTimers }

func (d *SimDriver) ConfigureTimer(_ pwm.SpeedMode, t pwm.TimerID, res pwm.Resolution, hz uint32) error {
	if int(t) >= SimTimers {
		return errcode.New(errcode.InvalidArgument, "sim_timer", "timer out of range")
	}
	div := simDivider(res, hz)
	if div == 0 {
		return errcode.New(errcode.PeripheralFailure, "sim_timer", "divider out of range")
	}
	d.mu.Lock()
	d.timers[t] = simTimer{on: true, res: res, div: div, freqHz: simAchieved(res, div)}
	d.mu.Unlock()
	return nil
}

func (d *SimDriver) SetFrequency(_ pwm.SpeedMode, t pwm.TimerID, hz uint32) uint32 {
	if int(t) >= SimTimers {
		return 0
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	tm := &d.timers[t]
	if !tm.on {
		return 0
	}
	div := simDivider(tm.res, hz)
	if div == 0 {
		return 0
	}
	tm.div = div
	tm.freqHz = simAchieved(tm.res, div)
	return tm.freqHz
}

func (d *SimDriver) ConfigureChannel(cfg pwm.ChannelSetup) error {
	if int(cfg.Channel) >= SimChannels || int(cfg.Timer) >= SimTimers {
		return errcode.New(errcode.InvalidArgument, "sim_channel", "channel or timer out of range")
	}
	d.mu.Lock()
	d.chans[cfg.Channel] = SimChannelState{Bound: true, Timer: cfg.Timer, Pin: cfg.Pin, Running: true}
	d.mu.Unlock()
	return nil
}

// caller holds lock
func (d *SimDriver) bound(ch pwm.ChannelID) (*SimChannelState, error) {
	if int(ch) >= SimChannels || !d.chans[ch].Bound {
		return nil, errcode.New(errcode.PeripheralFailure, "sim_channel", "channel not configured")
	}
	return &d.chans[ch], nil
}

func (d *SimDriver) SetDuty(_ pwm.SpeedMode, ch pwm.ChannelID, duty uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	c, err := d.bound(ch)
	if err != nil {
		return err
	}
	c.Staged = mathx.Min(duty, d.timers[c.Timer].res.MaxDuty())
	return nil
}

func (d *SimDriver) CommitDuty(_ pwm.SpeedMode, ch pwm.ChannelID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	c, err := d.bound(ch)
	if err != nil {
		return err
	}
	c.Duty = c.Staged
	c.Running = true
	return nil
}

func (d *SimDriver) Stop(_ pwm.SpeedMode, ch pwm.ChannelID, idle pwm.IdleLevel) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	c, err := d.bound(ch)
	if err != nil {
		return err
	}
	c.Running = false
	c.Idle = idle
	return nil
}

// Channel returns a snapshot of one channel.
func (d *SimDriver) Channel(ch pwm.ChannelID) SimChannelState {
	d.mu.Lock()
	defer d.mu.Unlock()
	if int(ch) >= SimChannels {
		return SimChannelState{}
	}
	return d.chans[ch]
}

// TimerHz returns the achieved frequency of t, 0 when unconfigured.
func (d *SimDriver) TimerHz(t pwm.TimerID) uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	if int(t) >= SimTimers || !d.timers[t].on {
		return 0
	}
	return d.timers[t].freqHz
}
