// Package money converts between decimal string amounts and exact integer
// minor units. All arithmetic on monetary values happens on the integer
// form; strings appear only at the API and storage boundaries.
package money

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"math"
	"math/big"
	"strings"
)

// Amount is a monetary value in minor units (cents).
type Amount int64

// ErrInvalidAmount reports a malformed or out-of-range decimal string. This
// is a validation outcome, not a programming error.
var ErrInvalidAmount = errors.New("money: invalid amount")

var maxInt64 = big.NewInt(math.MaxInt64)

// Parse converts a decimal string into minor units. It accepts only digits
// and at most one '.', with at most two digits after the point. Negative,
// empty, and otherwise malformed input is rejected with ErrInvalidAmount.
func Parse(s string) (Amount, error) {
	intPart, fracPart, err := splitDecimal(s)
	if err != nil {
		return 0, err
	}

	// Pad the fraction to exactly two digits and parse the concatenated
	// digits through big.Int so no float ever touches the value.
	for len(fracPart) < 2 {
		fracPart += "0"
	}
	digits := intPart + fracPart

	value, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if value.Cmp(maxInt64) > 0 {
		return 0, fmt.Errorf("%w: %q exceeds supported range", ErrInvalidAmount, s)
	}

	return Amount(value.Int64()), nil
}

// MustParse is a test helper that panics on malformed input.
func MustParse(s string) Amount {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

func splitDecimal(s string) (intPart, fracPart string, err error) {
	if s == "" {
		return "", "", fmt.Errorf("%w: empty string", ErrInvalidAmount)
	}

	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}

	intPart = parts[0]
	if len(parts) == 2 {
		fracPart = parts[1]
	}

	if intPart == "" || !isDigits(intPart) {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if len(parts) == 2 {
		if fracPart == "" || len(fracPart) > 2 || !isDigits(fracPart) {
			return "", "", fmt.Errorf("%w: %q", ErrInvalidAmount, s)
		}
	}

	return intPart, fracPart, nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// String renders the amount as a decimal with exactly two fraction digits.
// It is the exact inverse of Parse for every valid input.
func (a Amount) String() string {
	units := int64(a)
	sign := ""
	if units < 0 {
		sign = "-"
		units = -units
	}
	return fmt.Sprintf("%s%d.%02d", sign, units/100, units%100)
}

// Sub returns a - b.
func (a Amount) Sub(b Amount) Amount {
	return a - b
}

// Add returns a + b.
func (a Amount) Add(b Amount) Amount {
	return a + b
}

// MarshalJSON renders the amount as a decimal string.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.String() + `"`), nil
}

// UnmarshalJSON accepts a decimal string (or a bare integer of minor units
// for backwards compatibility with older clients).
func (a *Amount) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if len(raw) >= 2 && raw[0] == '"' && raw[len(raw)-1] == '"' {
		parsed, err := Parse(raw[1 : len(raw)-1])
		if err != nil {
			return err
		}
		*a = parsed
		return nil
	}

	var units int64
	if _, err := fmt.Sscanf(raw, "%d", &units); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidAmount, raw)
	}
	*a = Amount(units)
	return nil
}

// Value implements driver.Valuer; amounts are stored as BIGINT minor units.
func (a Amount) Value() (driver.Value, error) {
	return int64(a), nil
}

// Scan implements sql.Scanner.
func (a *Amount) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*a = 0
		return nil
	case int64:
		*a = Amount(v)
		return nil
	case []byte:
		parsed, ok := new(big.Int).SetString(string(v), 10)
		if !ok || !parsed.IsInt64() {
			return fmt.Errorf("%w: %q", ErrInvalidAmount, string(v))
		}
		*a = Amount(parsed.Int64())
		return nil
	default:
		return fmt.Errorf("money: cannot scan %T into Amount", src)
	}
}
