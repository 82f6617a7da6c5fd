// Package strconvx is the strconv subset the firmware needs. Host builds
// use strconv itself; MCU builds use the small implementations below, which
// skip strconv's float tables. They carry no build tag so host tests cover
// them.
package strconvx

import (
	"math"
	"strings"
)

const digits = "0123456789abcdefghijklmnopqrstuvwxyz"

type numError string

func (e numError) Error() string { return "strconvx: " + string(e) }

const (
	errSyntax numError = "invalid syntax"
	errRange  numError = "value out of range"
)

func formatUint(u uint64, base int) string {
	if base < 2 || base > len(digits) {
		base = 10
	}
	var buf [64]byte
	i := len(buf)
	for {
		i--
		buf[i] = digits[u%uint64(base)]
		u /= uint64(base)
		if u == 0 {
			break
		}
	}
	return string(buf[i:])
}

func formatInt(v int64, base int) string {
	if v < 0 {
		return "-" + formatUint(uint64(-v), base)
	}
	return formatUint(uint64(v), base)
}

// formatFloat renders f in fixed notation with prec fractional digits.
// Ties round away from zero, unlike strconv. Magnitudes that do not fit in
// 64 bits once scaled print as Inf.
func formatFloat(f float64, prec int) string {
	if math.IsNaN(f) {
		return "NaN"
	}
	if prec < 0 {
		prec = 6
	}
	sign := ""
	if math.Signbit(f) {
		sign, f = "-", -f
	}
	pow := uint64(1)
	for i := 0; i < prec; i++ {
		pow *= 10
	}
	scaled := f*float64(pow) + 0.5
	if math.IsInf(f, 0) || scaled >= math.MaxUint64 {
		if sign == "" {
			sign = "+"
		}
		return sign + "Inf"
	}
	n := uint64(scaled)
	s := formatUint(n/pow, 10)
	if prec > 0 {
		frac := formatUint(n%pow, 10)
		s += "." + strings.Repeat("0", prec-len(frac)) + frac
	}
	return sign + s
}

func digitVal(c byte) int {
	switch {
	case '0' <= c && c <= '9':
		return int(c - '0')
	case 'a' <= c && c <= 'z':
		return int(c-'a') + 10
	case 'A' <= c && c <= 'Z':
		return int(c-'A') + 10
	}
	return len(digits)
}

// parseUint follows strconv.ParseUint: base 0 honours 0x, 0o and 0b
// prefixes, and values above the bitSize range fail rather than wrap.
func parseUint(s string, base, bitSize int) (uint64, error) {
	if s == "" {
		return 0, errSyntax
	}
	if base == 0 {
		base = 10
		if len(s) > 2 && s[0] == '0' {
			switch s[1] {
			case 'x', 'X':
				base, s = 16, s[2:]
			case 'o', 'O':
				base, s = 8, s[2:]
			case 'b', 'B':
				base, s = 2, s[2:]
			}
		}
	}
	if base < 2 || base > len(digits) {
		return 0, errSyntax
	}
	if bitSize <= 0 || bitSize > 64 {
		bitSize = 64
	}
	max := uint64(1)<<uint(bitSize) - 1

	var v uint64
	for i := 0; i < len(s); i++ {
		d := digitVal(s[i])
		if d >= base {
			return 0, errSyntax
		}
		if v > (max-uint64(d))/uint64(base) {
			return max, errRange
		}
		v = v*uint64(base) + uint64(d)
	}
	return v, nil
}

func isDigit(c byte) bool { return '0' <= c && c <= '9' }

func pow10(n int) float64 {
	p := 1.0
	for ; n > 0; n-- {
		p *= 10
	}
	return p
}

// parseFloat accepts [+-]digits[.digits][e[+-]digits]. Results are exact
// for short decimals and may be off by an ulp otherwise.
func parseFloat(s string) (float64, error) {
	i, neg := 0, false
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		neg = s[i] == '-'
		i++
	}
	var (
		v     float64
		ndig  int
		exp10 int
	)
	for ; i < len(s) && isDigit(s[i]); i++ {
		v = v*10 + float64(s[i]-'0')
		ndig++
	}
	if i < len(s) && s[i] == '.' {
		for i++; i < len(s) && isDigit(s[i]); i++ {
			v = v*10 + float64(s[i]-'0')
			ndig++
			exp10--
		}
	}
	if ndig == 0 {
		return 0, errSyntax
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		i++
		eneg := false
		if i < len(s) && (s[i] == '+' || s[i] == '-') {
			eneg = s[i] == '-'
			i++
		}
		start, e := i, 0
		for ; i < len(s) && isDigit(s[i]); i++ {
			if e < 10000 {
				e = e*10 + int(s[i]-'0')
			}
		}
		if i == start {
			return 0, errSyntax
		}
		if eneg {
			e = -e
		}
		exp10 += e
	}
	if i != len(s) {
		return 0, errSyntax
	}

	if exp10 < 0 {
		v /= pow10(-exp10)
	} else {
		v *= pow10(exp10)
	}
	if neg {
		v = -v
	}
	if math.IsInf(v, 0) {
		return v, errRange
	}
	return v, nil
}
