//go:build !(rp2040 || rp2350)

// Package logx hands out the component loggers used across the module.
package logx

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

var root = newRoot(os.Stderr)

func newRoot(w io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	l.SetLevel(logrus.InfoLevel)
	return l
}

// Logger is what components receive; *logrus.Entry satisfies it.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// For returns a logger tagged with the component name.
func For(component string) Logger {
	return root.WithField("component", component)
}

// SetLevel parses a logrus level name ("debug", "info", ...).
func SetLevel(name string) error {
	lvl, err := logrus.ParseLevel(name)
	if err != nil {
		return err
	}
	root.SetLevel(lvl)
	return nil
}

// SetOutput redirects all component loggers.
func SetOutput(w io.Writer) { root.SetOutput(w) }
