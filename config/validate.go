// config/validate.go
package config

import (
	"fmt"

	"pwmgroup-go/errcode"
	"pwmgroup-go/pwm"
	"pwmgroup-go/types"
)

// Validate checks configuration correctness.
// It performs declarative validation only and MUST NOT mutate
// configuration. Zero resolution and empty mode are accepted here and
// filled in by Normalize.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errcode.New(errcode.InvalidParams, "config", "nil config")
	}
	switch cfg.LogLevel {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return invalid("log_level %q not recognised", cfg.LogLevel)
	}
	if err := ValidateGroups(cfg.Groups); err != nil {
		return err
	}
	if hb := cfg.Heartbeat; hb != nil && !hasChannel(cfg.Groups, hb.Group, hb.Channel) {
		return invalid("heartbeat: no channel %d in group %q", hb.Channel, hb.Group)
	}
	return nil
}

func hasChannel(groups []types.PWMGroup, group string, ch uint8) bool {
	for _, g := range groups {
		if g.Name != group {
			continue
		}
		for _, c := range g.Channels {
			if c.Channel == ch {
				return true
			}
		}
	}
	return false
}

// ValidateGroups is the group-level part of Validate. The bus service
// applies it to configs that did not come from a file.
func ValidateGroups(groups []types.PWMGroup) error {
	names := make(map[string]struct{}, len(groups))

	for _, g := range groups {
		if g.Name == "" {
			return invalid("group name must not be empty")
		}
		if _, dup := names[g.Name]; dup {
			return invalid("group %q declared twice", g.Name)
		}
		names[g.Name] = struct{}{}

		if len(g.Channels) == 0 {
			return invalid("group %q: no channels", g.Name)
		}

		// Lookups are first-match, so a repeated id would shadow the
		// later entry.
		seen := make(map[uint8]int, len(g.Channels))
		for i, c := range g.Channels {
			if prev, dup := seen[c.Channel]; dup {
				return invalid("group %q: channel %d declared at entries %d and %d", g.Name, c.Channel, prev, i)
			}
			seen[c.Channel] = i

			if c.FreqHz == 0 {
				return invalid("group %q: channel %d: freq_hz must be > 0", g.Name, c.Channel)
			}
			if pwm.Resolution(c.Resolution) > pwm.MaxResolution {
				return invalid("group %q: channel %d: resolution %d above %d", g.Name, c.Channel, c.Resolution, pwm.MaxResolution)
			}
			if c.Pin < 0 {
				return invalid("group %q: channel %d: negative pin", g.Name, c.Channel)
			}
			if _, err := ParseMode(c.Mode); err != nil {
				return invalid("group %q: channel %d: mode %q", g.Name, c.Channel, c.Mode)
			}
		}
	}
	return nil
}

func invalid(format string, args ...any) error {
	return errcode.New(errcode.InvalidParams, "config", fmt.Sprintf(format, args...))
}
