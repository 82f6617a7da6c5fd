package types

// ---- Common service state (retained) ----

type ServiceState struct {
	Level  string `json:"level"`  // e.g. "idle", "ready", "stopped"
	Status string `json:"status"` // freeform short code
	Error  string `json:"error,omitempty"`
	TS     int64  `json:"ts_ms"`
}

// ---- Public PWM configuration ----

// Speed modes as they appear in configuration.
const (
	ModeLow  = "low"
	ModeHigh = "high"
)

// PWMChannel declares one output inside a group.
type PWMChannel struct {
	Pin        int    `json:"pin" yaml:"pin"`
	Channel    uint8  `json:"channel" yaml:"channel"`
	Timer      uint8  `json:"timer" yaml:"timer"`
	FreqHz     uint32 `json:"freq_hz" yaml:"freq_hz"`
	Resolution uint8  `json:"resolution" yaml:"resolution"` // duty bits
	Mode       string `json:"mode,omitempty" yaml:"mode,omitempty"`
}

// PWMGroup is one handle's worth of channels, addressed by Name on the bus.
type PWMGroup struct {
	Name     string       `json:"name" yaml:"name"`
	Channels []PWMChannel `json:"channels" yaml:"channels"`
}

// PWMConfig is supplied on the "config/pwm" bus topic.
type PWMConfig struct {
	Groups []PWMGroup `json:"groups" yaml:"groups"`
}

// ---- Group info (retained at pwm/<group>/info) ----

type PWMInfo struct {
	SchemaVersion int          `json:"schema_version"`
	Driver        string       `json:"driver"`
	Channels      []PWMChannel `json:"channels"`
}

// ---- Values (retained at pwm/<group>/<channel>/value) ----

type PWMChannelValue struct {
	Channel uint8   `json:"channel"`
	Percent float32 `json:"percent"`
	Running bool    `json:"running"`
	Idle    uint8   `json:"idle"` // meaningful when !Running
	TS      int64   `json:"ts_ms"`
}

// ---- Control payloads (pwm/<group>/control/<verb>) ----

type PWMSetDuty struct { // verb: "set_duty"
	Channel uint8   `json:"channel"`
	Percent float32 `json:"percent"` // 0..100
}

type PWMSetFreq struct { // verb: "set_freq"
	Timer  uint8  `json:"timer"`
	FreqHz uint32 `json:"freq_hz"`
}

type PWMStart struct { // verb: "start"
	Channel uint8 `json:"channel"`
}

type PWMStop struct { // verb: "stop"
	Channel  uint8 `json:"channel"`
	IdleHigh bool  `json:"idle_high,omitempty"`
}

type PWMFade struct { // verb: "fade"
	Channel    uint8   `json:"channel"`
	To         float32 `json:"to"`          // target percent
	DurationMs uint32  `json:"duration_ms"` // total duration
	Steps      uint16  `json:"steps"`       // 0 snaps to target
}

type PWMStopFade struct { // verb: "stop_fade"
	Channel uint8 `json:"channel"`
}

// ---- Replies ----

type OKReply struct {
	OK bool `json:"ok"`
}

type ErrorReply struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// FreqReply answers set_freq with the achieved frequency.
type FreqReply struct {
	OK     bool   `json:"ok"`
	FreqHz uint32 `json:"freq_hz"`
}

// ---- Heartbeat (config/heartbeat) ----

// HeartbeatConfig makes one PWM channel breathe as a liveness indicator.
type HeartbeatConfig struct {
	Group      string  `json:"group" yaml:"group"`
	Channel    uint8   `json:"channel" yaml:"channel"`
	IntervalMs uint32  `json:"interval_ms" yaml:"interval_ms"` // one fade, up or down
	Peak       float32 `json:"peak" yaml:"peak"`               // percent
}
