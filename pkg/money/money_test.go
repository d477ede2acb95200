package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestRound2HalfUp(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"47.9984", "48.00"},
		{"47.995", "48.00"},
		{"47.994", "47.99"},
		{"0.005", "0.01"},
		{"10", "10.00"},
		{"599.98", "599.98"},
	}
	for _, tc := range cases {
		got := Round2(MustParse(tc.in))
		assert.True(t, got.Equal(MustParse(tc.want)), "Round2(%s) = %s, want %s", tc.in, got, tc.want)
	}
}

func TestLineStaysUnrounded(t *testing.T) {
	t.Parallel()

	// 3 * 0.333 keeps all digits; rounding happens once, later.
	got := Line(MustParse("0.333"), 3)
	assert.True(t, got.Equal(MustParse("0.999")))
	assert.True(t, Round2(got).Equal(MustParse("1.00")))
}

func TestCapLimitsValue(t *testing.T) {
	t.Parallel()

	assert.True(t, Cap(MustParse("100.00"), MustParse("20.00")).Equal(MustParse("20.00")))
	assert.True(t, Cap(MustParse("15.00"), MustParse("20.00")).Equal(MustParse("15.00")))
}

func TestIsNegative(t *testing.T) {
	t.Parallel()

	assert.True(t, IsNegative(MustParse("-0.01")))
	assert.False(t, IsNegative(decimal.Zero))
	assert.False(t, IsNegative(MustParse("0.01")))
}
