package pwm

import (
	"math"

	"pwmgroup-go/errcode"
)

// ChannelConfig declares one output. It is copied into the handle by Open.
type ChannelConfig struct {
	Pin        int
	Channel    ChannelID
	Timer      TimerID
	FreqHz     uint32
	Resolution Resolution
	Mode       SpeedMode
}

// Handle owns one group of configured channels. configs and started are
// index-aligned and never change length.
type Handle struct {
	reg     *Registry
	configs []ChannelConfig
	started []bool
	closed  bool
}

// Open configures every channel in order, programming or reusing timers
// through the registry. Any failure abandons the handle, unmarks the timers
// this call configured and returns the error; the active count only moves
// on success.
func (r *Registry) Open(configs []ChannelConfig) (*Handle, error) {
	if len(configs) == 0 {
		return nil, errcode.New(errcode.InvalidArgument, "open", "no channels")
	}
	for i := range configs {
		if err := r.check(configs[i]); err != nil {
			return nil, err
		}
	}

	h := &Handle{
		reg:     r,
		configs: append([]ChannelConfig(nil), configs...),
		started: make([]bool, len(configs)),
	}

	var fresh []TimerID
	for _, c := range h.configs {
		configured, err := r.ensureConfigured(c)
		if err != nil {
			r.forget(fresh)
			return nil, err
		}
		if configured {
			fresh = append(fresh, c.Timer)
		}
		err = r.drv.ConfigureChannel(ChannelSetup{Mode: c.Mode, Channel: c.Channel, Timer: c.Timer, Pin: c.Pin})
		if err != nil {
			r.log.Errorf("pwm: configure channel %d failed: %v", c.Channel, err)
			r.forget(fresh)
			return nil, errcode.Wrap(errcode.MapDriverErr(err), "configure_channel", err)
		}
		r.log.Infof("pwm: channel %d ready on gpio %d", c.Channel, c.Pin)
	}

	r.active++
	r.log.Infof("pwm: handle opened, %d active", r.active)
	return h, nil
}

func (r *Registry) check(c ChannelConfig) error {
	switch {
	case int(c.Timer) >= len(r.slots):
		return errcode.New(errcode.InvalidArgument, "open", "timer out of range")
	case c.Resolution == 0 || c.Resolution > MaxResolution:
		return errcode.New(errcode.InvalidArgument, "open", "bad duty resolution")
	case c.FreqHz == 0:
		return errcode.New(errcode.InvalidArgument, "open", "zero frequency")
	case c.Mode > HighSpeed:
		return errcode.New(errcode.InvalidArgument, "open", "bad speed mode")
	}
	return nil
}

// DutyValue converts a percentage to a duty register value, truncating
// toward zero. percent must already be in [0, 100].
func DutyValue(percent float32, res Resolution) uint32 {
	return uint32(float64(percent) / 100.0 * float64(res.MaxDuty()))
}

func (h *Handle) usable(op string) error {
	if h == nil || h.closed {
		return errcode.New(errcode.InvalidArgument, op, "nil or closed handle")
	}
	return nil
}

// index returns the first entry for ch (first match wins on duplicates).
func (h *Handle) index(ch ChannelID) int {
	for i := range h.configs {
		if h.configs[i].Channel == ch {
			return i
		}
	}
	return -1
}

func (h *Handle) find(op string, ch ChannelID) (int, error) {
	i := h.index(ch)
	if i < 0 {
		h.reg.log.Errorf("pwm: no config for channel %d", ch)
		return -1, errcode.New(errcode.NotFound, op, "channel")
	}
	return i, nil
}

// SetDutyPercent stages and commits a duty cycle. The channel does not
// need to be started.
func (h *Handle) SetDutyPercent(ch ChannelID, percent float32) error {
	if err := h.usable("set_duty"); err != nil {
		return err
	}
	if math.IsNaN(float64(percent)) || percent < 0 || percent > 100 {
		return errcode.New(errcode.InvalidArgument, "set_duty", "percent out of range")
	}
	i, err := h.find("set_duty", ch)
	if err != nil {
		return err
	}
	c := h.configs[i]
	duty := DutyValue(percent, c.Resolution)

	drv := h.reg.drv
	if err := drv.SetDuty(c.Mode, ch, duty); err != nil {
		h.reg.log.Errorf("pwm: set duty on channel %d failed: %v", ch, err)
		return errcode.Wrap(errcode.MapDriverErr(err), "set_duty", err)
	}
	if err := drv.CommitDuty(c.Mode, ch); err != nil {
		h.reg.log.Errorf("pwm: commit duty on channel %d failed: %v", ch, err)
		return errcode.Wrap(errcode.MapDriverErr(err), "commit_duty", err)
	}
	h.reg.log.Debugf("pwm: channel %d duty %d/%d", ch, duty, c.Resolution.MaxDuty())
	return nil
}

// SetFrequency retunes a timer used by this handle and returns the
// achieved frequency. The registry mirror is updated for every handle
// sharing the timer.
func (h *Handle) SetFrequency(t TimerID, freqHz uint32) (uint32, error) {
	if err := h.usable("set_freq"); err != nil {
		return 0, err
	}
	if freqHz == 0 {
		return 0, errcode.New(errcode.InvalidArgument, "set_freq", "zero frequency")
	}
	var (
		mode  SpeedMode
		found bool
	)
	for _, c := range h.configs {
		if c.Timer == t {
			mode, found = c.Mode, true
			break
		}
	}
	if !found {
		h.reg.log.Errorf("pwm: no config uses timer %d", t)
		return 0, errcode.New(errcode.NotFound, "set_freq", "timer")
	}

	got := h.reg.drv.SetFrequency(mode, t, freqHz)
	if got == 0 {
		h.reg.log.Errorf("pwm: set frequency on timer %d failed", t)
		return 0, errcode.New(errcode.GenericFailure, "set_freq", "achieved 0 Hz")
	}
	if int(t) < len(h.reg.slots) && h.reg.slots[t].Configured {
		if prev := h.reg.slots[t].FreqHz; prev != freqHz {
			h.reg.log.Infof("pwm: timer %d moving from %d Hz", t, prev)
		}
		h.reg.slots[t].FreqHz = got
	}
	h.reg.log.Infof("pwm: timer %d frequency %d Hz (achieved %d Hz)", t, freqHz, got)
	return got, nil
}

// Start marks a channel as running so Close will stop it. No driver call
// is made; duty and frequency must already be set.
func (h *Handle) Start(ch ChannelID) error {
	if err := h.usable("start"); err != nil {
		return err
	}
	i, err := h.find("start", ch)
	if err != nil {
		return err
	}
	h.started[i] = true
	h.reg.log.Infof("pwm: channel %d started", ch)
	return nil
}

// Stop halts a channel and holds it at idle. The stop is issued even if
// the channel was never started.
func (h *Handle) Stop(ch ChannelID, idle IdleLevel) error {
	if err := h.usable("stop"); err != nil {
		return err
	}
	i, err := h.find("stop", ch)
	if err != nil {
		return err
	}
	if err := h.reg.drv.Stop(h.configs[i].Mode, ch, idle); err != nil {
		h.reg.log.Errorf("pwm: stop channel %d failed: %v", ch, err)
		return errcode.Wrap(errcode.MapDriverErr(err), "stop", err)
	}
	h.started[i] = false
	h.reg.log.Infof("pwm: channel %d stopped, idle %d", ch, idle)
	return nil
}

// Close stops every running channel (best effort, in declaration order),
// drops the handle's registry reference and releases all timers when it
// was the last one. It only fails for a nil or already closed handle.
func (h *Handle) Close() error {
	if err := h.usable("close"); err != nil {
		return err
	}
	r := h.reg
	for i, c := range h.configs {
		if !h.started[i] {
			continue
		}
		if err := r.drv.Stop(c.Mode, c.Channel, IdleLow); err != nil {
			r.log.Warnf("pwm: stop channel %d on close failed: %v", c.Channel, err)
		}
	}

	r.active--
	r.log.Infof("pwm: handle closed, %d active", r.active)
	r.releaseAllIfUnreferenced()

	h.configs, h.started = nil, nil
	h.closed = true
	return nil
}

// Channels returns a copy of the handle's configuration.
func (h *Handle) Channels() []ChannelConfig {
	if h == nil {
		return nil
	}
	return append([]ChannelConfig(nil), h.configs...)
}

// Lookup returns the first configuration for ch.
func (h *Handle) Lookup(ch ChannelID) (ChannelConfig, error) {
	if err := h.usable("lookup"); err != nil {
		return ChannelConfig{}, err
	}
	i, err := h.find("lookup", ch)
	if err != nil {
		return ChannelConfig{}, err
	}
	return h.configs[i], nil
}

// Started reports whether ch is marked running.
func (h *Handle) Started(ch ChannelID) (bool, error) {
	if err := h.usable("started"); err != nil {
		return false, err
	}
	i, err := h.find("started", ch)
	if err != nil {
		return false, err
	}
	return h.started[i], nil
}
