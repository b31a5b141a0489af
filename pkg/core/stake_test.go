package core

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStake(t *testing.T) {
	assert.Equal(t, "12345", NewStake(12345).String())
	assert.Equal(t, "0", NewStake(0).String())
	assert.True(t, NewStake(0).IsZero())
	assert.False(t, NewStake(1).IsZero())
}

func TestStakeFromDecimal(t *testing.T) {
	s, err := StakeFromDecimal("1000000")
	require.NoError(t, err)
	assert.Equal(t, "1000000", s.Dec())

	// Surrounding whitespace is tolerated.
	s, err = StakeFromDecimal("  42  ")
	require.NoError(t, err)
	assert.Equal(t, "42", s.Dec())

	// The full u128 range is representable.
	max128 := "340282366920938463463374607431768211455"
	s, err = StakeFromDecimal(max128)
	require.NoError(t, err)
	assert.Equal(t, max128, s.Dec())
	assert.True(t, s.WithinBounds())
}

func TestStakeFromDecimalRejectsBadInput(t *testing.T) {
	var validationErr *ValidationError

	_, err := StakeFromDecimal("-5")
	require.Error(t, err)
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "stake", validationErr.Field)

	_, err = StakeFromDecimal("not-a-number")
	require.Error(t, err)

	_, err = StakeFromDecimal("")
	require.Error(t, err)
}

func TestStakeBounds(t *testing.T) {
	// Values beyond 128 bits parse (the backing word is 256 bits wide for
	// aggregation) but fail the bounds check used by data validation.
	over := "340282366920938463463374607431768211456"
	s, err := StakeFromDecimal(over)
	require.NoError(t, err)
	assert.False(t, s.WithinBounds())
}

func TestStakeArithmetic(t *testing.T) {
	a := NewStake(1_000)
	b := NewStake(300)

	assert.Equal(t, "1300", a.Add(b).String())
	assert.Equal(t, "700", a.Sub(b).String())
	// Subtraction clamps at zero instead of wrapping.
	assert.Equal(t, "0", b.Sub(a).String())
	assert.Equal(t, "3000", a.MulUint64(3).String())
	assert.Equal(t, "333", a.DivUint64(3).String())
	assert.Equal(t, "0", a.DivUint64(0).String())

	assert.Equal(t, 1, a.Cmp(b))
	assert.Equal(t, -1, b.Cmp(a))
	assert.Equal(t, 0, a.Cmp(NewStake(1_000)))
}

func TestStakeJSON(t *testing.T) {
	out, err := json.Marshal(NewStake(500_000))
	require.NoError(t, err)
	assert.Equal(t, `"500000"`, string(out))

	// Both quoted strings and bare numbers decode.
	var s StakeAmount
	require.NoError(t, json.Unmarshal([]byte(`"123"`), &s))
	assert.Equal(t, "123", s.String())
	require.NoError(t, json.Unmarshal([]byte(`456`), &s))
	assert.Equal(t, "456", s.String())

	require.Error(t, json.Unmarshal([]byte(`"-1"`), &s))
	require.Error(t, json.Unmarshal([]byte(`true`), &s))
}

func TestMustStake(t *testing.T) {
	assert.Equal(t, "777", MustStake("777").String())
	assert.Panics(t, func() { MustStake("bogus") })
}

func TestMustStakeFromBig(t *testing.T) {
	v := new(big.Int).Lsh(big.NewInt(1), 100)
	s := MustStakeFromBig(v)
	assert.Equal(t, v.String(), s.String())
	assert.Equal(t, 0, v.Cmp(s.ToBig()))
}
