package types

import (
	"errors"
	"fmt"
	"math/big"
)

// ErrCurrencyMismatch is returned when an amount is combined with a price or
// amount denominated in a different token
var ErrCurrencyMismatch = errors.New("currency mismatch")

// Price is the raw exchange ratio of quote units per base unit
type Price struct {
	BaseCurrency  Token
	QuoteCurrency Token
	ratio         *big.Rat
}

// NewPrice builds a price from baseAmount units of base trading for quoteAmount units of quote
func NewPrice(base, quote Token, baseAmount, quoteAmount *big.Int) Price {
	ratio := new(big.Rat)
	if baseAmount.Sign() != 0 {
		ratio.SetFrac(quoteAmount, baseAmount)
	}
	return Price{BaseCurrency: base, QuoteCurrency: quote, ratio: ratio}
}

// Ratio returns a copy of the raw quote/base ratio
func (p Price) Ratio() *big.Rat {
	if p.ratio == nil {
		return new(big.Rat)
	}
	return new(big.Rat).Set(p.ratio)
}

// Quote converts an amount of the base token into the quote token
func (p Price) Quote(amount CurrencyAmount) (CurrencyAmount, error) {
	if !amount.Currency.Equals(p.BaseCurrency) {
		return CurrencyAmount{}, fmt.Errorf("%w: price base %s, amount in %s", ErrCurrencyMismatch, p.BaseCurrency, amount.Currency)
	}
	return CurrencyAmount{Currency: p.QuoteCurrency, value: new(big.Rat).Mul(amount.rat(), p.Ratio())}, nil
}

func (p Price) String() string {
	return fmt.Sprintf("%s %s/%s", p.Ratio().FloatString(18), p.QuoteCurrency, p.BaseCurrency)
}
