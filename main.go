//go:build rp2040 || rp2350

package main

import (
	"time"

	"pwmgroup-go/internal/logx"
	"pwmgroup-go/internal/provider"
	"pwmgroup-go/pwm"
	"pwmgroup-go/x/ramp"
)

// Onboard LED: GP25 is slice 4, channel B.
const (
	ledPin   = 25
	ledSlice = 4
	breathMs = 1500
)

func main() {
	// Allow USB CDC to enumerate before we print.
	time.Sleep(2 * time.Second)
	log := logx.For("main")
	log.Infof("boot")

	reg := pwm.NewRegistry(provider.NewRP2Driver(), pwm.WithLogger(logx.For("registry")))
	h, err := reg.Open([]pwm.ChannelConfig{
		{Pin: ledPin, Channel: 0, Timer: ledSlice, FreqHz: 1000, Resolution: 12},
	})
	if err != nil {
		log.Errorf("open: %v", err)
		return
	}
	defer h.Close()

	if err := h.Start(0); err != nil {
		log.Errorf("start: %v", err)
		return
	}

	sleep := func(d time.Duration) bool { time.Sleep(d); return true }
	set := func(level uint32) {
		if err := h.SetDutyPercent(0, float32(level)/10); err != nil {
			log.Warnf("duty: %v", err)
		}
	}

	// Breathe in 0.1% steps.
	for up := true; ; up = !up {
		from, to := uint32(0), uint32(1000)
		if !up {
			from, to = to, from
		}
		ramp.Linear(from, to, breathMs*time.Millisecond, 100, sleep, set)
	}
}
