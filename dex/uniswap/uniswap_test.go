package uniswap

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/michaelpento.lv/routegas/dex"
	"github.com/michaelpento.lv/routegas/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	weth = types.NewToken(types.Mainnet, "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2", 18, "WETH")
	usdc = types.NewToken(types.Mainnet, "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", 6, "USDC")
)

func TestPairOrdersTokens(t *testing.T) {
	// 10 ETH / 20000 USDC, passed in reverse order
	pair, err := NewPair(common.HexToAddress("0x01"), weth, usdc,
		new(big.Int).Mul(big.NewInt(10), big.NewInt(1e18)), big.NewInt(20000_000000))
	require.NoError(t, err)

	assert.Equal(t, dex.ProtocolV2, pair.Protocol())
	assert.True(t, pair.Token0().Equals(usdc))
	assert.True(t, pair.Token1().Equals(weth))
	assert.True(t, pair.InvolvesToken(weth))
	assert.True(t, pair.OtherToken(weth).Equals(usdc))

	out, err := pair.Token1Price().Quote(types.FromRawAmount(weth, big.NewInt(1e18)))
	require.NoError(t, err)
	assert.Equal(t, int64(2000_000000), out.Quotient().Int64())
}

func TestPairRejectsInvalidInput(t *testing.T) {
	_, err := NewPair(common.Address{}, weth, weth, big.NewInt(1), big.NewInt(1))
	assert.Error(t, err)

	_, err = NewPair(common.Address{}, weth, usdc, big.NewInt(-1), big.NewInt(1))
	assert.Error(t, err)
}

func TestPoolPrice(t *testing.T) {
	// sqrtPriceX96 = 2^96 means a raw price of exactly 1
	one := new(big.Int).Lsh(big.NewInt(1), 96)
	pool, err := NewPool(common.HexToAddress("0x02"), weth, usdc, FeeLow, one, big.NewInt(1000), 0)
	require.NoError(t, err)

	assert.Equal(t, dex.ProtocolV3, pool.Protocol())
	assert.Equal(t, FeeLow, pool.FeeTier())
	assert.Equal(t, "1", pool.Token0Price().Ratio().RatString())
	assert.Equal(t, "1", pool.Token1Price().Ratio().RatString())

	// sqrtPriceX96 = 2^97 means token0 is worth 4 token1
	two := new(big.Int).Lsh(big.NewInt(1), 97)
	pool, err = NewPool(common.HexToAddress("0x02"), usdc, weth, FeeLow, two, big.NewInt(1000), 0)
	require.NoError(t, err)
	assert.Equal(t, "4", pool.Token0Price().Ratio().RatString())
	assert.Equal(t, "1/4", pool.Token1Price().Ratio().RatString())
	assert.Equal(t, "USDC/WETH@500", dex.Label(pool))
}

func TestPairLiquidity(t *testing.T) {
	pair, err := NewPair(common.Address{}, weth, usdc, big.NewInt(4), big.NewInt(9))
	require.NoError(t, err)
	assert.Equal(t, int64(6), pair.Liquidity().Int64())
}
