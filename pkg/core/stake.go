package core

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/holiman/uint256"
)

// MaxStakeBits bounds stake values to what chain balances can hold (u128).
const MaxStakeBits = 128

// StakeAmount is a non-negative stake value up to 2^128-1. The backing word
// is 256 bits wide so sums of many maximal stakes cannot overflow during an
// election. It serializes as a decimal string to avoid JSON number precision
// loss, but accepts plain numbers on input for compatibility with snapshots
// produced by other tools.
type StakeAmount struct {
	v uint256.Int
}

// NewStake creates a stake amount from a uint64.
func NewStake(v uint64) StakeAmount {
	var s StakeAmount
	s.v.SetUint64(v)
	return s
}

// StakeFromDecimal parses a base-10 stake value.
func StakeFromDecimal(dec string) (StakeAmount, error) {
	dec = strings.TrimSpace(dec)
	if strings.HasPrefix(dec, "-") {
		return StakeAmount{}, ErrValidationf("stake", "stake must be non-negative, got %s", dec)
	}
	var s StakeAmount
	if err := s.v.SetFromDecimal(dec); err != nil {
		return StakeAmount{}, ErrValidationf("stake", "invalid stake value %q: %v", dec, err)
	}
	return s, nil
}

// MustStake parses a base-10 stake value and panics on failure. Intended for
// constants and tests.
func MustStake(dec string) StakeAmount {
	s, err := StakeFromDecimal(dec)
	if err != nil {
		panic(err)
	}
	return s
}

// StakeFromU256 copies a raw 256-bit value into a stake amount.
func StakeFromU256(v *uint256.Int) StakeAmount {
	var s StakeAmount
	s.v.Set(v)
	return s
}

// MustStakeFromBig converts a big integer that is known to be non-negative
// and within 256 bits, panicking otherwise. Intended for internal arithmetic
// whose operands are already bounded.
func MustStakeFromBig(v *big.Int) StakeAmount {
	return StakeFromU256(uint256.MustFromBig(v))
}

// U256 returns a copy of the backing value.
func (s StakeAmount) U256() *uint256.Int {
	return new(uint256.Int).Set(&s.v)
}

// ToBig returns the value as a big.Int.
func (s StakeAmount) ToBig() *big.Int {
	return s.v.ToBig()
}

// Add returns s + o.
func (s StakeAmount) Add(o StakeAmount) StakeAmount {
	var out StakeAmount
	out.v.Add(&s.v, &o.v)
	return out
}

// Sub returns s - o, clamped to zero on underflow.
func (s StakeAmount) Sub(o StakeAmount) StakeAmount {
	if s.v.Lt(&o.v) {
		return StakeAmount{}
	}
	var out StakeAmount
	out.v.Sub(&s.v, &o.v)
	return out
}

// MulUint64 returns s * m.
func (s StakeAmount) MulUint64(m uint64) StakeAmount {
	var out StakeAmount
	out.v.Mul(&s.v, uint256.NewInt(m))
	return out
}

// DivUint64 returns s / d, or zero when d is zero.
func (s StakeAmount) DivUint64(d uint64) StakeAmount {
	if d == 0 {
		return StakeAmount{}
	}
	var out StakeAmount
	out.v.Div(&s.v, uint256.NewInt(d))
	return out
}

// Cmp compares s and o, returning -1, 0 or +1.
func (s StakeAmount) Cmp(o StakeAmount) int {
	return s.v.Cmp(&o.v)
}

// IsZero reports whether the stake is zero.
func (s StakeAmount) IsZero() bool {
	return s.v.IsZero()
}

// WithinBounds reports whether the value fits the on-chain balance width.
func (s StakeAmount) WithinBounds() bool {
	return s.v.BitLen() <= MaxStakeBits
}

// Dec renders the value as a base-10 string.
func (s StakeAmount) Dec() string {
	return s.v.Dec()
}

func (s StakeAmount) String() string { return s.Dec() }

// MarshalJSON encodes the stake as a quoted decimal string.
func (s StakeAmount) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.v.Dec())
}

// UnmarshalJSON accepts either a decimal string or a bare JSON number.
func (s *StakeAmount) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return fmt.Errorf("invalid stake string: %w", err)
		}
		parsed, err := StakeFromDecimal(str)
		if err != nil {
			return err
		}
		*s = parsed
		return nil
	}
	parsed, err := StakeFromDecimal(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
