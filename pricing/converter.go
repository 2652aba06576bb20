// Package pricing converts amounts between tokens using pool mid prices.
//
// Pool token ordering follows address order and says nothing about which side is
// the native, quote or USD currency, so every conversion names its reference token.
package pricing

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/michaelpento.lv/routegas/dex"
	"github.com/michaelpento.lv/routegas/types"
)

// ReferencePrice returns the pool mid price with ref as the base currency
func ReferencePrice(pool dex.Pool, ref common.Address) types.Price {
	if pool.Token0().Address == ref {
		return pool.Token0Price()
	}
	return pool.Token1Price()
}

// Counterpart returns the pool token that is not ref
func Counterpart(pool dex.Pool, ref common.Address) types.Token {
	if pool.Token0().Address == ref {
		return pool.Token1()
	}
	return pool.Token0()
}

// Convert turns an amount of the reference token into the other pool token
func Convert(pool dex.Pool, ref common.Address, amount types.CurrencyAmount) (types.CurrencyAmount, error) {
	out, err := ReferencePrice(pool, ref).Quote(amount)
	if err != nil {
		return types.CurrencyAmount{}, fmt.Errorf("failed to convert %s through %s: %w", amount.Currency, dex.Label(pool), err)
	}
	return out, nil
}
