package types

import (
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	weth = NewToken(Mainnet, "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2", 18, "WETH")
	usdc = NewToken(Mainnet, "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", 6, "USDC")
)

func TestTokenEquality(t *testing.T) {
	renamed := weth
	renamed.Symbol = "ETH"
	renamed.Decimals = 9

	assert.True(t, weth.Equals(renamed))
	assert.False(t, weth.Equals(usdc))
	assert.True(t, usdc.SortsBefore(weth))
	assert.False(t, weth.SortsBefore(usdc))
}

func TestWrappedNative(t *testing.T) {
	native, ok := WrappedNative(Optimism)
	require.True(t, ok)
	assert.Equal(t, "WETH", native.Symbol)
	assert.Equal(t, Optimism, native.ChainID)

	_, ok = WrappedNative(ChainID(999999))
	assert.False(t, ok)
	assert.NotEmpty(t, USDGasTokens(Mainnet))
}

func TestCurrencyAmount(t *testing.T) {
	a := FromRawAmount(usdc, big.NewInt(7)).MulRat(big.NewRat(1, 2))
	assert.Equal(t, int64(3), a.Quotient().Int64())
	assert.False(t, a.IsZero())
	assert.True(t, ZeroAmount(usdc).IsZero())

	sum, err := a.Add(FromRawAmount(usdc, big.NewInt(1)))
	require.NoError(t, err)
	assert.Equal(t, int64(4), sum.Quotient().Int64())

	_, err = a.Add(FromRawAmount(weth, big.NewInt(1)))
	assert.True(t, errors.Is(err, ErrCurrencyMismatch))

	assert.Equal(t, "1.50", FromRawAmount(usdc, big.NewInt(1_500_000)).ToFixed(2))
}

func TestPriceQuote(t *testing.T) {
	// 1 WETH = 2000 USDC in raw units
	price := NewPrice(weth, usdc, big.NewInt(1e18), big.NewInt(2000_000000))

	out, err := price.Quote(FromRawAmount(weth, big.NewInt(5e17)))
	require.NoError(t, err)
	assert.True(t, out.Currency.Equals(usdc))
	assert.Equal(t, int64(1000_000000), out.Quotient().Int64())

	_, err = price.Quote(FromRawAmount(usdc, big.NewInt(1)))
	assert.True(t, errors.Is(err, ErrCurrencyMismatch))

	assert.True(t, price.BaseCurrency.Equals(weth))
	assert.True(t, price.QuoteCurrency.Equals(usdc))
	assert.Equal(t, "0.000000002000000000 USDC/WETH", price.String())
}

func TestParseAmount(t *testing.T) {
	a, err := ParseAmount(usdc, "1.5")
	require.NoError(t, err)
	assert.Equal(t, int64(1_500_000), a.Quotient().Int64())

	a, err = ParseAmount(weth, "2")
	require.NoError(t, err)
	assert.Equal(t, "2000000000000000000", a.Quotient().String())

	_, err = ParseAmount(usdc, "0.0000001")
	assert.ErrorContains(t, err, "more than 6 decimals")

	_, err = ParseAmount(usdc, "-1")
	assert.Error(t, err)

	_, err = ParseAmount(usdc, "one")
	assert.Error(t, err)
}
