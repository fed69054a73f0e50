// Package sizefmt renders byte counts for humans.
package sizefmt

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
)

// Base selects the unit multiplier.
type Base int64

const (
	// Decimal uses 1000-based units (what macOS Finder reports).
	Decimal Base = 1000
	// Binary uses 1024-based units.
	Binary Base = 1024
)

// DefaultPrecision is the number of decimals used for kb/mb/gb values.
const DefaultPrecision = 2

// ParseBase parses "decimal" / "binary" (also "1000" / "1024").
func ParseBase(s string) (Base, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "decimal", "si", "1000":
		return Decimal, nil
	case "binary", "iec", "1024":
		return Binary, nil
	}
	return 0, fmt.Errorf("unknown unit base %q (want decimal or binary)", s)
}

func (b Base) String() string {
	if b == Binary {
		return "binary"
	}
	return "decimal"
}

// Format renders bytes with the largest unit below the value.
// There is no unit above gb: terabyte values render as a large gb mantissa.
func Format(bytes int64, base Base, precision int) string {
	if base <= 1 {
		base = Decimal
	}
	if precision < 0 {
		precision = DefaultPrecision
	}

	kb := float64(base)
	mb := kb * kb
	gb := mb * kb

	v := float64(bytes)
	switch {
	case v < kb:
		return strconv.FormatInt(bytes, 10) + " bytes"
	case v < mb:
		return fixed(v/kb, precision) + " kb"
	case v < gb:
		return fixed(v/mb, precision) + " mb"
	}
	return fixed(v/gb, precision) + " gb"
}

// fixed formats x with precision decimals, rounding exact ties up.
// strconv rounds ties to even, so 1.125 would give 1.12.
func fixed(x float64, precision int) string {
	if isTie(x, precision) {
		x = math.Nextafter(x, math.Inf(1))
	}
	return strconv.FormatFloat(x, 'f', precision, 64)
}

// isTie reports whether x lies exactly halfway between two values with
// precision decimals.
func isTie(x float64, precision int) bool {
	if math.IsInf(x, 0) || math.IsNaN(x) {
		return false
	}
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(precision)), nil)
	r := new(big.Rat).SetFloat64(x)
	r.Mul(r, new(big.Rat).SetInt(scale))
	r.Mul(r, big.NewRat(2, 1))
	return r.IsInt() && r.Num().Bit(0) == 1
}

// FormatDefault formats with decimal units and two decimals.
func FormatDefault(bytes int64) string {
	return Format(bytes, Decimal, DefaultPrecision)
}

// Formatter carries a base and precision, for callers that format many values.
type Formatter struct {
	Base      Base
	Precision int
}

// Format formats bytes with the formatter's settings.
func (f Formatter) Format(bytes int64) string {
	return Format(bytes, f.Base, f.Precision)
}

// FormatPtr formats an optional size, rendering unknown sizes as "-".
func (f Formatter) FormatPtr(bytes *int64) string {
	if bytes == nil {
		return "-"
	}
	return f.Format(*bytes)
}
