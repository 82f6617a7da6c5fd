//go:build (rp2040 || rp2350) && !pca9685

package main

import (
	"pwmgroup-go/internal/provider"
	"pwmgroup-go/pwm"
)

// newDriver returns the on-chip PWM slices and the embedded config key.
func newDriver() (pwm.Driver, string) {
	return provider.NewRP2Driver(), "pico"
}
