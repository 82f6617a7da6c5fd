package fmtx

import (
	"errors"
	"fmt"
	"testing"
)

type timerID uint8

type mode uint8

func (m mode) String() string { return "high" }

// The printer must agree with fmt on every form the module logs.
func TestPrinterMatchesFmt(t *testing.T) {
	err := errors.New("injected")
	for _, c := range []struct {
		format string
		args   []any
	}{
		{"hello %s", []any{"world"}},
		{"pwm: timer %d configured, %d Hz, %d bit", []any{timerID(3), uint32(5000), uint8(13)}},
		{"num %d hex %x", []any{-42, 255}},
		{"bool %t %t", []any{true, false}},
		{"literal %%", nil},
		{"q=%q", []any{"a\"b\\c\n"}},
		{"v=%v err=%v", []any{123, err}},
		{"mode %v (%d)", []any{mode(1), mode(1)}},
		{"trim: %.3s", []any{"abcdef"}},
		{"%.2f%%", []any{float32(12.5)}},
		{"[%5s][%3d]", []any{"ab", 7}},
		{"%v", []any{nil}},
		{"ok %d Hz\n", []any{994}},
	} {
		got := sprintf(c.format, c.args)
		want := fmt.Sprintf(c.format, c.args...)
		if got != want {
			t.Fatalf("sprintf(%q) = %q, want %q", c.format, got, want)
		}
	}
}

func TestPrinterBadFormats(t *testing.T) {
	for _, c := range []struct {
		format string
		args   []any
		want   string
	}{
		{"a %d", nil, "a %!d(MISSING)"},
		{"a %", []any{1}, "a %!(NOVERB)"},
		{"a", []any{1}, "a%!(EXTRA)"},
		{"%d", []any{"x"}, "%!d(x)"},
		{"%v", []any{struct{}{}}, "<struct {}>"},
	} {
		if got := sprintf(c.format, c.args); got != c.want {
			t.Fatalf("sprintf(%q) = %q, want %q", c.format, got, c.want)
		}
	}
}

func TestHostWrappers(t *testing.T) {
	var b []byte
	w := writer{&b}
	if _, err := Fprintf(w, "%s=%d", "ch", 3); err != nil || string(b) != "ch=3" {
		t.Fatalf("Fprintf: %q %v", b, err)
	}
	if Sprintf("%.1f", 2.25) != "2.2" {
		t.Fatalf("Sprintf: %q", Sprintf("%.1f", 2.25))
	}
}

type writer struct{ b *[]byte }

func (w writer) Write(p []byte) (int, error) { *w.b = append(*w.b, p...); return len(p), nil }
