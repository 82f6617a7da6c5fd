//go:build rp2040 || rp2350

package strconvx

func FormatInt(i int64, base int) string                    { return formatInt(i, base) }
func FormatUint(u uint64, base int) string                  { return formatUint(u, base) }
func ParseUint(s string, base, bitSize int) (uint64, error) { return parseUint(s, base, bitSize) }
func ParseFloat(s string, _ int) (float64, error)           { return parseFloat(s) }
func FormatFloat(f float64, prec int) string                { return formatFloat(f, prec) }
