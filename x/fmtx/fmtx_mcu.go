//go:build rp2040 || rp2350

package fmtx

import "io"

func Sprintf(format string, a ...any) string { return sprintf(format, a) }

func Fprintf(w io.Writer, format string, a ...any) (int, error) {
	return io.WriteString(w, sprintf(format, a))
}
