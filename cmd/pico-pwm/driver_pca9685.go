//go:build (rp2040 || rp2350) && pca9685

package main

import (
	"machine"

	"pwmgroup-go/drivers/pca9685pwm"
	"pwmgroup-go/pwm"
)

// newDriver puts a PCA9685 on I2C0 (GP4 SDA, GP5 SCL) in place of the
// on-chip slices.
func newDriver() (pwm.Driver, string) {
	bus := machine.I2C0
	_ = bus.Configure(machine.I2CConfig{SDA: machine.GP4, SCL: machine.GP5, Frequency: 400 * machine.KHz})
	return pca9685pwm.New(bus, pca9685pwm.DefaultAddr), "pico-pca9685"
}
