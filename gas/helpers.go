package gas

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/michaelpento.lv/routegas/calldata"
	"github.com/michaelpento.lv/routegas/dex"
	"github.com/michaelpento.lv/routegas/routing"
	"github.com/michaelpento.lv/routegas/types"
)

// ErrNoUSDPool is returned when no native/USD pool exists to value gas in USD
var ErrNoUSDPool = errors.New("could not find a USD/native pool for computing gas costs")

// PoolProvider resolves pools on a chain
type PoolProvider interface {
	Pools(ctx context.Context, chainID types.ChainID) ([]dex.Pool, error)

	// HighestLiquidityPool returns the deepest pool between the two tokens, if any
	HighestLiquidityPool(ctx context.Context, chainID types.ChainID, tokenA, tokenB types.Token) (dex.Pool, bool, error)
}

// CalldataBuilder produces the swap calldata whose size drives the L1 fee
type CalldataBuilder interface {
	SwapCalldata(routes []routing.RouteWithQuote, opts calldata.SwapOptions) ([]byte, error)
}

// highestLiquidityUSDPool picks the deepest pool between the wrapped native token and
// any of the chain's USD gas tokens
func highestLiquidityUSDPool(ctx context.Context, chainID types.ChainID, native types.Token, provider PoolProvider) (dex.Pool, error) {
	var best dex.Pool
	for _, usd := range types.USDGasTokens(chainID) {
		pool, ok, err := provider.HighestLiquidityPool(ctx, chainID, native, usd)
		if err != nil {
			return nil, fmt.Errorf("failed to look up %s/%s pool: %w", native, usd, err)
		}
		if !ok {
			continue
		}
		if best == nil || pool.Liquidity().Cmp(best.Liquidity()) > 0 {
			best = pool
		}
	}

	if best == nil {
		return nil, fmt.Errorf("%w on chain %s", ErrNoUSDPool, chainID)
	}
	return best, nil
}

// highestLiquidityNativePool returns the deepest token/native pool, or nil
func highestLiquidityNativePool(ctx context.Context, chainID types.ChainID, native, token types.Token, provider PoolProvider) (dex.Pool, error) {
	pool, ok, err := provider.HighestLiquidityPool(ctx, chainID, token, native)
	if err != nil {
		return nil, fmt.Errorf("failed to look up %s/%s pool: %w", token, native, err)
	}
	if !ok {
		return nil, nil
	}
	return pool, nil
}

// L2ToL1GasUsed estimates the L1 gas needed to publish data: 4 gas per zero byte,
// 16 per non-zero byte, plus overhead and a 68 byte signature priced as non-zero.
func L2ToL1GasUsed(data []byte, overhead *big.Int) *big.Int {
	var zeroes, ones int64
	for _, b := range data {
		if b == 0 {
			zeroes++
		} else {
			ones++
		}
	}

	used := big.NewInt(zeroes*4 + ones*16)
	if overhead != nil {
		used.Add(used, overhead)
	}
	return used.Add(used, big.NewInt(68*16))
}
