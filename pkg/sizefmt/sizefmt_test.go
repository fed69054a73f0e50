package sizefmt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		bytes     int64
		base      Base
		precision int
		want      string
	}{
		{0, Decimal, 2, "0 bytes"},
		{999, Decimal, 2, "999 bytes"},
		{1000, Decimal, 2, "1.00 kb"},
		{1500, Decimal, 1, "1.5 kb"},
		{1_000_000, Decimal, 2, "1.00 mb"},
		{1_000_000_000, Decimal, 2, "1.00 gb"},
		{1023, Binary, 2, "1023 bytes"},
		{1024, Binary, 2, "1.00 kb"},
		{1 << 20, Binary, 2, "1.00 mb"},
		{1 << 30, Binary, 3, "1.000 gb"},
		{2_600_000, Decimal, 0, "3 mb"},
		{1125, Decimal, 2, "1.13 kb"},
		{2500, Decimal, 0, "3 kb"},
		{1_125_000_000, Decimal, 2, "1.13 gb"},
		{1005, Decimal, 2, "1.00 kb"},
		{1536, Binary, 0, "2 kb"},
	}

	for _, tt := range tests {
		got := Format(tt.bytes, tt.base, tt.precision)
		assert.Equal(t, tt.want, got, "Format(%d, %d, %d)", tt.bytes, tt.base, tt.precision)
	}
}

func TestFormat_NoUnitAboveGB(t *testing.T) {
	assert.Equal(t, "1000.00 gb", Format(1_000_000_000_000, Decimal, 2))
	assert.Equal(t, "1024.00 gb", Format(1<<40, Binary, 2))
}

func TestFormatDefault(t *testing.T) {
	assert.Equal(t, "2.50 kb", FormatDefault(2500))
}

func TestParseBase(t *testing.T) {
	b, err := ParseBase("binary")
	require.NoError(t, err)
	assert.Equal(t, Binary, b)

	b, err = ParseBase("")
	require.NoError(t, err)
	assert.Equal(t, Decimal, b)

	_, err = ParseBase("octal")
	assert.Error(t, err)
}

func TestFormatter_FormatPtr(t *testing.T) {
	f := Formatter{Base: Decimal, Precision: 2}
	n := int64(2000)
	assert.Equal(t, "2.00 kb", f.FormatPtr(&n))
	assert.Equal(t, "-", f.FormatPtr(nil))
}
