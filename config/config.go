// config/config.go
package config

import (
	"bytes"
	"os"

	"gopkg.in/yaml.v3"

	"pwmgroup-go/errcode"
	"pwmgroup-go/pwm"
	"pwmgroup-go/types"
)

type Config struct {
	LogLevel  string                 `yaml:"log_level"`
	Groups    []types.PWMGroup       `yaml:"groups"`
	Heartbeat *types.HeartbeatConfig `yaml:"heartbeat"` // optional
}

// ---- DEFAULTS ----

const (
	DefaultResolution = pwm.Resolution(13)
	DefaultMode       = types.ModeLow
	DefaultLogLevel   = "info"
)

// Load reads and decodes a YAML file. It does not validate.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(raw)
}

// Parse decodes YAML bytes. Unknown keys are rejected.
func Parse(raw []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, errcode.Wrap(errcode.InvalidPayload, "config_parse", err)
	}
	return &cfg, nil
}

// PWM returns the bus payload for the "config/pwm" topic.
func (c *Config) PWM() types.PWMConfig {
	out := types.PWMConfig{Groups: make([]types.PWMGroup, len(c.Groups))}
	for i, g := range c.Groups {
		out.Groups[i] = types.PWMGroup{
			Name:     g.Name,
			Channels: append([]types.PWMChannel(nil), g.Channels...),
		}
	}
	return out
}

// ParseMode maps "low"/"high" to a speed mode. Empty means low.
func ParseMode(s string) (pwm.SpeedMode, error) {
	switch s {
	case "", types.ModeLow:
		return pwm.LowSpeed, nil
	case types.ModeHigh:
		return pwm.HighSpeed, nil
	}
	return 0, errcode.New(errcode.InvalidParams, "config_mode", "mode must be low or high: "+s)
}

// Channels converts a declared group into registry channel configs.
func Channels(g types.PWMGroup) ([]pwm.ChannelConfig, error) {
	out := make([]pwm.ChannelConfig, 0, len(g.Channels))
	for _, c := range g.Channels {
		mode, err := ParseMode(c.Mode)
		if err != nil {
			return nil, err
		}
		out = append(out, pwm.ChannelConfig{
			Pin:        c.Pin,
			Channel:    pwm.ChannelID(c.Channel),
			Timer:      pwm.TimerID(c.Timer),
			FreqHz:     c.FreqHz,
			Resolution: pwm.Resolution(c.Resolution),
			Mode:       mode,
		})
	}
	return out, nil
}
