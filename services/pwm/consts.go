// services/pwm/consts.go
package pwm

// Topic tokens
const (
	TokConfig  = "config"
	TokPWM     = "pwm"
	TokState   = "state"
	TokInfo    = "info"
	TokValue   = "value"
	TokControl = "control"
)

// Control verbs
const (
	CtrlSetDuty  = "set_duty"
	CtrlSetFreq  = "set_freq"
	CtrlStart    = "start"
	CtrlStop     = "stop"
	CtrlFade     = "fade"
	CtrlStopFade = "stop_fade"
)

// Service state levels
const (
	LevelIdle    = "idle"
	LevelReady   = "ready"
	LevelError   = "error"
	LevelStopped = "stopped"
)

// fadeScale is the integer resolution fades run at: 1/100 of a percent.
const fadeScale = 100
