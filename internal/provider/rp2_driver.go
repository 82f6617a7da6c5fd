//go:build rp2040 || rp2350

package provider

import (
	"machine"
	"sync"

	"pwmgroup-go/errcode"
	"pwmgroup-go/pwm"
	"pwmgroup-go/x/mathx"
	"pwmgroup-go/x/timex"
)

// -----------------------------------------------------------------------------
// PWM internals (RP2040)
// -----------------------------------------------------------------------------

// Local interface to avoid depending on an unexported concrete type in machine.
type pwmCtrl interface {
	Configure(cfg machine.PWMConfig) error
	SetPeriod(period uint64) error
	Channel(pin machine.Pin) (uint8, error)
	Top() uint32
	Set(channel uint8, value uint32)
}

// Select controller handle for a given slice number (0..7).
func pwmGroupBySlice(slice uint8) pwmCtrl {
	switch slice {
	case 0:
		return machine.PWM0
	case 1:
		return machine.PWM1
	case 2:
		return machine.PWM2
	case 3:
		return machine.PWM3
	case 4:
		return machine.PWM4
	case 5:
		return machine.PWM5
	case 6:
		return machine.PWM6
	default:
		return machine.PWM7
	}
}

const rp2Slices = 8

// sliceOf maps a GPIO to its PWM slice: (N >> 1) & 7.
func sliceOf(pin int) uint8 { return uint8((pin >> 1) & 0x7) }

type rp2Slice struct {
	on  bool
	res pwm.Resolution
}

type rp2Chan struct {
	bound  bool
	slice  uint8
	chIdx  uint8 // 0 => A, 1 => B
	staged uint32
}

// RP2Driver drives the RP2040 PWM block: each slice is one timer with two
// channels (A/B). Channel ids are logical; the GPIO decides the slice and
// must belong to the timer it is bound to.
type RP2Driver struct {
	mu     sync.Mutex
	slices [rp2Slices]rp2Slice
	chans  map[pwm.ChannelID]*rp2Chan
}

func NewRP2Driver() *RP2Driver {
	return &RP2Driver{chans: make(map[pwm.ChannelID]*rp2Chan)}
}

func (d *RP2Driver) Timers() int { return rp2Slices }

func (d *RP2Driver) ConfigureTimer(_ pwm.SpeedMode, t pwm.TimerID, res pwm.Resolution, hz uint32) error {
	if int(t) >= rp2Slices {
		return errcode.New(errcode.InvalidArgument, "rp2_timer", "slice out of range")
	}
	ctrl := pwmGroupBySlice(uint8(t))
	if err := ctrl.Configure(machine.PWMConfig{Period: timex.PeriodFromHz(hz)}); err != nil {
		return err
	}
	d.mu.Lock()
	d.slices[t] = rp2Slice{on: true, res: res}
	d.mu.Unlock()
	return nil
}

func (d *RP2Driver) SetFrequency(_ pwm.SpeedMode, t pwm.TimerID, hz uint32) uint32 {
	if int(t) >= rp2Slices || hz == 0 {
		return 0
	}
	period := timex.PeriodFromHz(hz)
	if err := pwmGroupBySlice(uint8(t)).SetPeriod(period); err != nil {
		return 0
	}
	return uint32(mathx.RoundDiv(uint64(1_000_000_000), period))
}

func (d *RP2Driver) ConfigureChannel(cfg pwm.ChannelSetup) error {
	if int(cfg.Timer) >= rp2Slices || sliceOf(cfg.Pin) != uint8(cfg.Timer) {
		return errcode.New(errcode.Conflict, "rp2_channel", "gpio not on requested slice")
	}
	ctrl := pwmGroupBySlice(uint8(cfg.Timer))
	idx, err := ctrl.Channel(machine.Pin(cfg.Pin))
	if err != nil {
		return err
	}
	ctrl.Set(idx, 0)

	d.mu.Lock()
	d.chans[cfg.Channel] = &rp2Chan{bound: true, slice: uint8(cfg.Timer), chIdx: idx}
	d.mu.Unlock()
	return nil
}

// caller holds lock
func (d *RP2Driver) lookup(ch pwm.ChannelID) (*rp2Chan, error) {
	c := d.chans[ch]
	if c == nil || !c.bound {
		return nil, errcode.New(errcode.PeripheralFailure, "rp2_channel", "channel not configured")
	}
	return c, nil
}

func (d *RP2Driver) SetDuty(_ pwm.SpeedMode, ch pwm.ChannelID, duty uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	c, err := d.lookup(ch)
	if err != nil {
		return err
	}
	c.staged = duty
	return nil
}

// CommitDuty scales the staged value from [0..maxDuty(res)] to [0..Top].
func (d *RP2Driver) CommitDuty(_ pwm.SpeedMode, ch pwm.ChannelID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	c, err := d.lookup(ch)
	if err != nil {
		return err
	}
	max := d.slices[c.slice].res.MaxDuty()
	if max == 0 {
		return errcode.New(errcode.PeripheralFailure, "rp2_duty", "slice not configured")
	}
	ctrl := pwmGroupBySlice(c.slice)
	hw := uint64(c.staged) * uint64(ctrl.Top()) / uint64(max)
	ctrl.Set(c.chIdx, uint32(hw))
	return nil
}

// Stop drives the channel to a constant level: 0 for low, Top+1 for high.
func (d *RP2Driver) Stop(_ pwm.SpeedMode, ch pwm.ChannelID, idle pwm.IdleLevel) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	c, err := d.lookup(ch)
	if err != nil {
		return err
	}
	ctrl := pwmGroupBySlice(c.slice)
	if idle == pwm.IdleHigh {
		ctrl.Set(c.chIdx, ctrl.Top()+1)
	} else {
		ctrl.Set(c.chIdx, 0)
	}
	return nil
}
