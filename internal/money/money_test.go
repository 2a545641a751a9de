package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCents(t *testing.T) {
	cases := map[string]int64{
		"50":     5000,
		"50.00":  5000,
		"12.5":   1250,
		"0.01":   1,
		"-20.00": -2000,
	}
	for in, want := range cases {
		got, err := ParseCents(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestParseCentsRejects(t *testing.T) {
	for _, in := range []string{"", "abc", "1.234", "1e30"} {
		_, err := ParseCents(in)
		assert.ErrorIs(t, err, ErrInvalidMoney, in)
	}
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "30.00", Format(3000))
	assert.Equal(t, "0.05", Format(5))
	assert.Equal(t, "-20.00", Format(-2000))
	assert.Equal(t, "+50.00", FormatSigned(5000))
	assert.Equal(t, "-0.50", FormatSigned(-50))
	assert.Equal(t, int64(14700), FromWhole(147))
}
