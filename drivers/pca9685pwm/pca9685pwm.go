// Package pca9685pwm exposes an NXP PCA9685 I2C PWM expander as a
// pwm.Driver. The chip has a single prescaler shared by all 16 outputs, so
// it presents exactly one timer (id 0) with 12-bit resolution.
package pca9685pwm

import (
	"sync"

	"tinygo.org/x/drivers"
	"tinygo.org/x/drivers/pca9685"

	"pwmgroup-go/errcode"
	"pwmgroup-go/pwm"
	"pwmgroup-go/x/mathx"
	"pwmgroup-go/x/timex"
)

const (
	DefaultAddr = 0x40
	Channels    = 16
	Resolution  = pwm.Resolution(12)

	oscHz = 25_000_000
)

// Driver adapts pca9685.Dev to pwm.Driver.
type Driver struct {
	mu     sync.Mutex
	dev    pca9685.Dev
	on     bool
	res    pwm.Resolution
	bound  [Channels]bool
	staged [Channels]uint32
}

// New performs no I/O; the chip is initialised by the first ConfigureTimer.
func New(bus drivers.I2C, addr uint8) *Driver {
	return &Driver{dev: pca9685.New(bus, addr)}
}

// achievedHz mirrors the prescaler arithmetic of pca9685.SetPeriod and
// returns the output frequency the chip will actually produce.
func achievedHz(period uint64) uint32 {
	freq := 96 * 1_000_000_000 / (100 * period)
	if freq == 0 {
		return 0
	}
	prescale := oscHz/(4096*freq) - 1
	return uint32(oscHz * 100 / (96 * 4096 * (prescale + 1)))
}

func (d *Driver) Timers() int { return 1 }

func (d *Driver) ConfigureTimer(_ pwm.SpeedMode, t pwm.TimerID, res pwm.Resolution, hz uint32) error {
	if t != 0 {
		return errcode.New(errcode.InvalidArgument, "pca9685_timer", "single prescaler, timer must be 0")
	}
	if res > Resolution {
		return errcode.New(errcode.InvalidArgument, "pca9685_timer", "resolution above 12 bit")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.dev.Configure(pca9685.PWMConfig{Period: timex.PeriodFromHz(hz)}); err != nil {
		return err
	}
	d.on, d.res = true, res
	return nil
}

func (d *Driver) SetFrequency(_ pwm.SpeedMode, t pwm.TimerID, hz uint32) uint32 {
	if t != 0 || hz == 0 {
		return 0
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.on {
		return 0
	}
	period := timex.PeriodFromHz(hz)
	if err := d.dev.SetPeriod(period); err != nil {
		return 0
	}
	return achievedHz(period)
}

func (d *Driver) ConfigureChannel(cfg pwm.ChannelSetup) error {
	if cfg.Timer != 0 || int(cfg.Channel) >= Channels {
		return errcode.New(errcode.InvalidArgument, "pca9685_channel", "channel or timer out of range")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dev.Set(uint8(cfg.Channel), 0)
	d.bound[cfg.Channel] = true
	d.staged[cfg.Channel] = 0
	return nil
}

// caller holds lock
func (d *Driver) check(ch pwm.ChannelID) error {
	if int(ch) >= Channels || !d.bound[ch] {
		return errcode.New(errcode.PeripheralFailure, "pca9685_channel", "channel not configured")
	}
	return nil
}

func (d *Driver) SetDuty(_ pwm.SpeedMode, ch pwm.ChannelID, duty uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.check(ch); err != nil {
		return err
	}
	d.staged[ch] = duty
	return nil
}

// CommitDuty rescales the staged value to the chip's 12-bit counter.
func (d *Driver) CommitDuty(_ pwm.SpeedMode, ch pwm.ChannelID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.check(ch); err != nil {
		return err
	}
	max := d.res.MaxDuty()
	if max == 0 {
		return errcode.New(errcode.PeripheralFailure, "pca9685_duty", "timer not configured")
	}
	top := d.dev.Top()
	hw := uint64(d.staged[ch]) * uint64(top) / uint64(max)
	d.dev.Set(uint8(ch), mathx.Min(uint32(hw), top))
	return nil
}

func (d *Driver) Stop(_ pwm.SpeedMode, ch pwm.ChannelID, idle pwm.IdleLevel) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.check(ch); err != nil {
		return err
	}
	if idle == pwm.IdleHigh {
		d.dev.Set(uint8(ch), d.dev.Top())
	} else {
		d.dev.Set(uint8(ch), 0)
	}
	return nil
}
