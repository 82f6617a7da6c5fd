package config

// -----------------------------------------------------------------------------
// Embedded configuration
//
// Populate embeddedConfigs at build time (e.g. via code generation) or
// manually during development.
// Key: device ID (same value placed in ctx under CtxDeviceKey)
// Val: raw YAML bytes for that device
// -----------------------------------------------------------------------------

// Pico: status LED on GP25 (slice 4 B) and a fan header on GP16 (slice 0 A).
const cfgPico = `
log_level: info
groups:
  - name: status
    channels:
      - { pin: 25, channel: 0, timer: 4, freq_hz: 1000, resolution: 12 }
  - name: fan
    channels:
      - { pin: 16, channel: 1, timer: 0, freq_hz: 25000, resolution: 8 }
heartbeat: { group: status, channel: 0, interval_ms: 1000, peak: 40 }
`

// Host simulation: two groups sharing timer 0.
const cfgSim = `
log_level: debug
groups:
  - name: backlight
    channels:
      - { pin: 18, channel: 0, timer: 0, freq_hz: 5000, resolution: 13 }
      - { pin: 19, channel: 1, timer: 0, freq_hz: 5000, resolution: 13 }
  - name: indicator
    channels:
      - { pin: 21, channel: 2, timer: 0, freq_hz: 5000, resolution: 13 }
      - { pin: 4, channel: 3, timer: 1, freq_hz: 2000, resolution: 10, mode: high }
`

// Pico with a PCA9685 expander: one shared prescaler, so every channel
// sits on timer 0.
const cfgPicoPCA9685 = `
log_level: info
groups:
  - name: rgb
    channels:
      - { pin: 0, channel: 0, timer: 0, freq_hz: 200, resolution: 12 }
      - { pin: 1, channel: 1, timer: 0, freq_hz: 200, resolution: 12 }
      - { pin: 2, channel: 2, timer: 0, freq_hz: 200, resolution: 12 }
  - name: servo
    channels:
      - { pin: 15, channel: 15, timer: 0, freq_hz: 200, resolution: 12 }
`

var embeddedConfigs = map[string][]byte{
	"pico": []byte(cfgPico),
	"sim":  []byte(cfgSim),

	"pico-pca9685": []byte(cfgPicoPCA9685),
}
