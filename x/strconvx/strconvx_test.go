package strconvx

import (
	"strconv"
	"testing"
)

func TestFormatIntMatchesStrconv(t *testing.T) {
	for _, c := range []struct {
		v    int64
		base int
	}{
		{0, 10}, {5, 2}, {255, 16}, {-15, 10}, {35, 36}, {-1 << 63, 10}, {1<<63 - 1, 16},
	} {
		if got, want := formatInt(c.v, c.base), strconv.FormatInt(c.v, c.base); got != want {
			t.Fatalf("formatInt(%d,%d) = %q, want %q", c.v, c.base, got, want)
		}
	}
	if got := formatUint(1<<64-1, 10); got != "18446744073709551615" {
		t.Fatalf("max uint64: %q", got)
	}
}

func TestFormatFloat(t *testing.T) {
	for _, c := range []struct {
		f    float64
		prec int
		want string
	}{
		{0, 2, "0.00"},
		{12.5, 1, "12.5"},
		{33.333, 2, "33.33"},
		{-0.25, 2, "-0.25"},
		{99.996, 2, "100.00"},
		{7, 0, "7"},
		{1.5, -1, "1.500000"},
	} {
		if got := formatFloat(c.f, c.prec); got != c.want {
			t.Fatalf("formatFloat(%v,%d) = %q, want %q", c.f, c.prec, got, c.want)
		}
	}
}

func TestParseUint(t *testing.T) {
	for _, c := range []struct {
		s       string
		base    int
		bits    int
		want    uint64
		wantErr bool
	}{
		{"42", 10, 8, 42, false},
		{"255", 10, 8, 255, false},
		{"256", 10, 8, 255, true},
		{"0x1f", 0, 32, 31, false},
		{"0b101", 0, 8, 5, false},
		{"0o17", 0, 8, 15, false},
		{"ff", 16, 16, 255, false},
		{"", 10, 8, 0, true},
		{"-1", 10, 8, 0, true},
		{"12a", 10, 32, 0, true},
		{"18446744073709551615", 10, 64, 1<<64 - 1, false},
		{"18446744073709551616", 10, 64, 1<<64 - 1, true},
	} {
		got, err := parseUint(c.s, c.base, c.bits)
		if (err != nil) != c.wantErr || got != c.want {
			t.Fatalf("parseUint(%q,%d,%d) = %d, %v", c.s, c.base, c.bits, got, err)
		}
		// Same verdict as strconv.
		if _, serr := strconv.ParseUint(c.s, c.base, c.bits); (serr != nil) != c.wantErr {
			t.Fatalf("strconv disagrees on %q: %v", c.s, serr)
		}
	}
}

func TestParseFloatMatchesStrconv(t *testing.T) {
	for _, s := range []string{"0", "12.5", "33.33", "-0.25", "+7", ".5", "5.", "1e3", "2.5E-1", "100"} {
		got, err := parseFloat(s)
		if err != nil {
			t.Fatalf("parseFloat(%q): %v", s, err)
		}
		want, _ := strconv.ParseFloat(s, 64)
		if got != want {
			t.Fatalf("parseFloat(%q) = %v, want %v", s, got, want)
		}
	}
	for _, s := range []string{"", "-", ".", "abc", "1.2.3", "1e", "1e+", "12%"} {
		if _, err := parseFloat(s); err == nil {
			t.Fatalf("parseFloat(%q) accepted", s)
		}
	}
	if _, err := parseFloat("1e400"); err == nil {
		t.Fatal("overflow accepted")
	}
}
