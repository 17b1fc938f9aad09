package domain

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	maxAmountExponent = 20
	maxAmountDigits   = 30
)

// InRange reports whether d has a bounded exponent and coefficient.
// Values such as 1e20000000 parse cheaply but expand to millions of digits
// once rounded or formatted.
func InRange(d decimal.Decimal) bool {
	exp := d.Exponent()
	if exp > maxAmountExponent || exp < -maxAmountExponent {
		return false
	}
	return d.NumDigits() <= maxAmountDigits
}

// Amount is a nullable money value. Decoding is lenient: a JSON number or a
// numeric string is accepted and anything else becomes NULL, including
// numbers out of range.
type Amount struct {
	decimal.NullDecimal
}

// NewAmount returns a set amount
func NewAmount(d decimal.Decimal) Amount {
	return Amount{decimal.NullDecimal{Decimal: d, Valid: true}}
}

// AmountFromString parses s, returning a NULL amount if it is not a number
func AmountFromString(s string) Amount {
	return parseAmount(strings.TrimSpace(s))
}

func parseAmount(s string) Amount {
	d, err := decimal.NewFromString(s)
	if err != nil || !InRange(d) {
		return Amount{}
	}
	return NewAmount(d)
}

// UnmarshalJSON never fails on a well-formed JSON value
func (a *Amount) UnmarshalJSON(data []byte) error {
	*a = Amount{}

	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		*a = AmountFromString(s)
		return nil
	}

	*a = parseAmount(string(data))
	return nil
}

// MarshalJSON writes a bare JSON number with two decimals, or null
func (a Amount) MarshalJSON() ([]byte, error) {
	if !a.Valid {
		return []byte("null"), nil
	}
	return []byte(a.Decimal.StringFixed(2)), nil
}
