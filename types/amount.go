package types

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// CurrencyAmount is an exact fractional amount of a token in raw units.
// It never goes through floating point.
type CurrencyAmount struct {
	Currency Token
	value    *big.Rat
}

// FromRawAmount creates an amount from an integer number of raw units
func FromRawAmount(currency Token, raw *big.Int) CurrencyAmount {
	v := new(big.Rat)
	if raw != nil {
		v.SetInt(raw)
	}
	return CurrencyAmount{Currency: currency, value: v}
}

// ParseAmount parses a decimal amount in whole-token units, e.g. "1.5" WETH.
// Digits beyond the token decimals are rejected.
func ParseAmount(currency Token, s string) (CurrencyAmount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return CurrencyAmount{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if d.IsNegative() {
		return CurrencyAmount{}, fmt.Errorf("invalid amount %q: negative", s)
	}
	raw := d.Shift(int32(currency.Decimals))
	if !raw.IsInteger() {
		return CurrencyAmount{}, fmt.Errorf("invalid amount %q: more than %d decimals", s, currency.Decimals)
	}
	return FromRawAmount(currency, raw.BigInt()), nil
}

// ZeroAmount returns a zero amount of currency
func ZeroAmount(currency Token) CurrencyAmount {
	return FromRawAmount(currency, nil)
}

func (a CurrencyAmount) rat() *big.Rat {
	if a.value == nil {
		return new(big.Rat)
	}
	return a.value
}

// Fraction returns a copy of the exact value
func (a CurrencyAmount) Fraction() *big.Rat {
	return new(big.Rat).Set(a.rat())
}

// Quotient returns the floor of the raw amount
func (a CurrencyAmount) Quotient() *big.Int {
	r := a.rat()
	return new(big.Int).Quo(r.Num(), r.Denom())
}

// IsZero reports whether the amount is exactly zero
func (a CurrencyAmount) IsZero() bool {
	return a.rat().Sign() == 0
}

// Equal reports whether both amounts are in the same currency and hold the same value
func (a CurrencyAmount) Equal(other CurrencyAmount) bool {
	return a.Currency.Equals(other.Currency) && a.rat().Cmp(other.rat()) == 0
}

// Add sums two amounts of the same currency
func (a CurrencyAmount) Add(other CurrencyAmount) (CurrencyAmount, error) {
	if !a.Currency.Equals(other.Currency) {
		return CurrencyAmount{}, fmt.Errorf("%w: cannot add %s to %s", ErrCurrencyMismatch, other.Currency, a.Currency)
	}
	return CurrencyAmount{Currency: a.Currency, value: new(big.Rat).Add(a.rat(), other.rat())}, nil
}

// MulRat scales the amount by an exact fraction
func (a CurrencyAmount) MulRat(f *big.Rat) CurrencyAmount {
	return CurrencyAmount{Currency: a.Currency, value: new(big.Rat).Mul(a.rat(), f)}
}

// ToFixed renders the amount in whole-token units with the given number of places
func (a CurrencyAmount) ToFixed(places int32) string {
	r := a.rat()
	num := decimal.NewFromBigInt(r.Num(), -int32(a.Currency.Decimals))
	return num.Div(decimal.NewFromBigInt(r.Denom(), 0)).StringFixed(places)
}

func (a CurrencyAmount) String() string {
	return fmt.Sprintf("%s %s", a.ToFixed(int32(a.Currency.Decimals)), a.Currency)
}
