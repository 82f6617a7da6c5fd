//go:build rp2040 || rp2350

package logx

import (
	"pwmgroup-go/errcode"
	"pwmgroup-go/x/fmtx"
)

type level uint8

const (
	lvlDebug level = iota
	lvlInfo
	lvlWarn
	lvlError
)

var min = lvlInfo

// Logger is what components receive.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

type console struct{ tag string }

// For returns a logger that prints "[component] LEVEL msg" on the console.
func For(component string) Logger { return console{tag: "[" + component + "] "} }

func (c console) out(l level, name, format string, args []any) {
	if l < min {
		return
	}
	println(c.tag + name + " " + fmtx.Sprintf(format, args...))
}

func (c console) Debugf(f string, a ...any) { c.out(lvlDebug, "DEBUG", f, a) }
func (c console) Infof(f string, a ...any)  { c.out(lvlInfo, "INFO", f, a) }
func (c console) Warnf(f string, a ...any)  { c.out(lvlWarn, "WARN", f, a) }
func (c console) Errorf(f string, a ...any) { c.out(lvlError, "ERROR", f, a) }

// SetLevel accepts "debug", "info", "warn"/"warning" and "error".
func SetLevel(name string) error {
	switch name {
	case "debug":
		min = lvlDebug
	case "info":
		min = lvlInfo
	case "warn", "warning":
		min = lvlWarn
	case "error":
		min = lvlError
	default:
		return errcode.InvalidParams
	}
	return nil
}
