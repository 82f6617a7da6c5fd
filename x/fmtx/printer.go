// Package fmtx formats log and console lines. Host builds use fmt; MCU
// builds use the small printer below to keep fmt out of the firmware.
//
// The printer knows %v %s %q %d %x %t %f and %%, a width (space padded on
// the left) and a precision for strings and floats. Errors and Stringers
// print through their methods and named integer types print as numbers.
package fmtx

import (
	"reflect"

	"pwmgroup-go/x/strconvx"
)

type stringer interface{ String() string }

type printer struct{ buf []byte }

func sprintf(format string, args []any) string {
	var p printer
	p.printf(format, args)
	return string(p.buf)
}

// number reads decimal digits at s[i:], returning -1 when there are none.
func number(s string, i int) (int, int) {
	n := -1
	for ; i < len(s) && '0' <= s[i] && s[i] <= '9'; i++ {
		if n < 0 {
			n = 0
		}
		n = n*10 + int(s[i]-'0')
	}
	return i, n
}

func (p *printer) printf(format string, args []any) {
	next := 0
	for i := 0; i < len(format); i++ {
		c := format[i]
		if c != '%' {
			p.buf = append(p.buf, c)
			continue
		}
		i++
		if i < len(format) && format[i] == '%' {
			p.buf = append(p.buf, '%')
			continue
		}
		var width, prec int
		i, width = number(format, i)
		if i < len(format) && format[i] == '.' {
			i, prec = number(format, i+1)
			if prec < 0 {
				prec = 0
			}
		} else {
			prec = -1
		}
		if i >= len(format) {
			p.str("%!(NOVERB)")
			return
		}
		verb := format[i]
		if next >= len(args) {
			p.str("%!" + string(verb) + "(MISSING)")
			continue
		}
		p.pad(render(args[next], verb, prec), width)
		next++
	}
	if next < len(args) {
		p.str("%!(EXTRA)")
	}
}

func (p *printer) str(s string) { p.buf = append(p.buf, s...) }

func (p *printer) pad(s string, width int) {
	for n := width - len(s); n > 0; n-- {
		p.buf = append(p.buf, ' ')
	}
	p.str(s)
}

func render(v any, verb byte, prec int) string {
	switch verb {
	case 'd':
		if s, ok := integer(v, 10); ok {
			return s
		}
	case 'x':
		if s, ok := integer(v, 16); ok {
			return s
		}
		if s, ok := v.(string); ok {
			return hexString(s)
		}
	case 'f':
		if f, ok := float(v); ok {
			return strconvx.FormatFloat(f, prec)
		}
	case 't':
		if b, ok := v.(bool); ok {
			return text(b, -1)
		}
	case 'q':
		return quote(text(v, -1))
	case 's', 'v':
		return text(v, prec)
	}
	return "%!" + string(verb) + "(" + text(v, -1) + ")"
}

func text(v any, prec int) string {
	var s string
	switch x := v.(type) {
	case nil:
		return "<nil>"
	case string:
		s = x
	case []byte:
		s = string(x)
	case error:
		s = x.Error()
	case stringer:
		s = x.String()
	case bool:
		if x {
			return "true"
		}
		return "false"
	case float32, float64:
		f, _ := float(x)
		if prec < 0 {
			prec = 6
		}
		return strconvx.FormatFloat(f, prec)
	default:
		if n, ok := integer(v, 10); ok {
			return n
		}
		return "<" + reflect.TypeOf(v).String() + ">"
	}
	if prec >= 0 && prec < len(s) {
		s = s[:prec]
	}
	return s
}

// integer formats any integer kind, named types included.
func integer(v any, base int) (string, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconvx.FormatInt(rv.Int(), base), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconvx.FormatUint(rv.Uint(), base), true
	}
	return "", false
}

func float(v any) (float64, bool) {
	switch x := v.(type) {
	case float32:
		return float64(x), true
	case float64:
		return x, true
	}
	return 0, false
}

func hexString(s string) string {
	const hex = "0123456789abcdef"
	out := make([]byte, 0, 2*len(s))
	for i := 0; i < len(s); i++ {
		out = append(out, hex[s[i]>>4], hex[s[i]&0x0f])
	}
	return string(out)
}

func quote(s string) string {
	out := make([]byte, 0, len(s)+2)
	out = append(out, '"')
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '\\', '"':
			out = append(out, '\\', c)
		case '\n':
			out = append(out, '\\', 'n')
		case '\r':
			out = append(out, '\\', 'r')
		case '\t':
			out = append(out, '\\', 't')
		default:
			out = append(out, c)
		}
	}
	return string(append(out, '"'))
}
