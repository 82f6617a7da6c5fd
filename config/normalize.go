// config/normalize.go
package config

import "pwmgroup-go/types"

// Normalize fills defaults. It is allowed to mutate configuration and
// MUST be called only after Validate.
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}
	NormalizeGroups(cfg.Groups)
}

// NormalizeGroups defaults mode and resolution in place.
func NormalizeGroups(groups []types.PWMGroup) {
	for gi := range groups {
		for ci := range groups[gi].Channels {
			c := &groups[gi].Channels[ci]
			if c.Mode == "" {
				c.Mode = DefaultMode
			}
			if c.Resolution == 0 {
				c.Resolution = uint8(DefaultResolution)
			}
		}
	}
}
