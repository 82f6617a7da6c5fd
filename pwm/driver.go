package pwm

// TimerID identifies a hardware timer (carrier generator) of the peripheral.
type TimerID uint8

// ChannelID identifies one hardware output channel.
type ChannelID uint8

// Resolution is the duty register width in bits.
type Resolution uint8

// MaxDuty is the largest duty value for the resolution, (1<<r)-1.
func (r Resolution) MaxDuty() uint32 {
	if r == 0 {
		return 0
	}
	return uint32(1)<<r - 1
}

// SpeedMode selects the peripheral's timer/channel group.
type SpeedMode uint8

const (
	LowSpeed SpeedMode = iota
	HighSpeed
)

func (m SpeedMode) String() string {
	if m == HighSpeed {
		return "high"
	}
	return "low"
}

// IdleLevel is the level a stopped output is held at.
type IdleLevel uint8

const (
	IdleLow IdleLevel = iota
	IdleHigh
)

// MaxResolution bounds the duty width accepted by Open.
const MaxResolution Resolution = 20

// ChannelSetup is what the driver receives when a channel is bound to a
// timer. Duty and hpoint always start at zero and interrupts are off.
type ChannelSetup struct {
	Mode    SpeedMode
	Channel ChannelID
	Timer   TimerID
	Pin     int
}

// Driver is the peripheral collaborator. Implementations perform the
// register work; every call is attempted exactly once by this package.
type Driver interface {
	// Timers reports how many timer slots the peripheral has.
	Timers() int

	// ConfigureTimer programs a timer with an automatically selected clock.
	ConfigureTimer(mode SpeedMode, timer TimerID, res Resolution, freqHz uint32) error

	// SetFrequency retunes a running timer and returns the achieved
	// frequency, which may differ due to divider quantisation. 0 means failure.
	SetFrequency(mode SpeedMode, timer TimerID, freqHz uint32) uint32

	// ConfigureChannel binds a channel to a timer and pin.
	ConfigureChannel(cfg ChannelSetup) error

	// SetDuty stages a duty value; CommitDuty makes it effective.
	SetDuty(mode SpeedMode, ch ChannelID, duty uint32) error
	CommitDuty(mode SpeedMode, ch ChannelID) error

	// Stop halts output and holds the pin at idle.
	Stop(mode SpeedMode, ch ChannelID, idle IdleLevel) error
}
