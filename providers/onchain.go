package providers

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/michaelpento.lv/routegas/dex"
	"github.com/michaelpento.lv/routegas/dex/uniswap"
	"golang.org/x/time/rate"
)

const uniswapV2PairABI = `[
{"constant":true,"inputs":[],"name":"getReserves","outputs":[{"internalType":"uint112","name":"_reserve0","type":"uint112"},{"internalType":"uint112","name":"_reserve1","type":"uint112"},{"internalType":"uint32","name":"_blockTimestampLast","type":"uint32"}],"payable":false,"stateMutability":"view","type":"function"}
]`

const uniswapV3PoolABI = `[
{"inputs":[],"name":"slot0","outputs":[{"internalType":"uint160","name":"sqrtPriceX96","type":"uint160"},{"internalType":"int24","name":"tick","type":"int24"},{"internalType":"uint16","name":"observationIndex","type":"uint16"},{"internalType":"uint16","name":"observationCardinality","type":"uint16"},{"internalType":"uint16","name":"observationCardinalityNext","type":"uint16"},{"internalType":"uint8","name":"feeProtocol","type":"uint8"},{"internalType":"bool","name":"unlocked","type":"bool"}],"stateMutability":"view","type":"function"},
{"inputs":[],"name":"liquidity","outputs":[{"internalType":"uint128","name":"","type":"uint128"}],"stateMutability":"view","type":"function"}
]`

// PoolStateReader re-reads the reserves or price of known pools from chain.
// Token metadata and fee tiers are taken from the pools passed in.
type PoolStateReader struct {
	caller  bind.ContractCaller
	opts    ContractOptions
	limiter *rate.Limiter
}

func NewPoolStateReader(caller bind.ContractCaller, opts ContractOptions) *PoolStateReader {
	return &PoolStateReader{
		caller:  caller,
		opts:    opts,
		limiter: newLimiter(opts),
	}
}

// Refresh returns a copy of pool with its current on chain state
func (r *PoolStateReader) Refresh(ctx context.Context, pool dex.Pool) (dex.Pool, error) {
	switch p := pool.(type) {
	case *uniswap.Pair:
		return r.refreshPair(ctx, p)
	case *uniswap.Pool:
		return r.refreshPool(ctx, p)
	default:
		return nil, fmt.Errorf("cannot refresh %T", pool)
	}
}

// RefreshAll refreshes pools in order and stops at the first failure
func (r *PoolStateReader) RefreshAll(ctx context.Context, pools []dex.Pool) ([]dex.Pool, error) {
	out := make([]dex.Pool, 0, len(pools))
	for _, pool := range pools {
		fresh, err := r.Refresh(ctx, pool)
		if err != nil {
			return nil, fmt.Errorf("failed to refresh %s: %w", dex.Label(pool), err)
		}
		out = append(out, fresh)
	}
	return out, nil
}

func (r *PoolStateReader) refreshPair(ctx context.Context, p *uniswap.Pair) (*uniswap.Pair, error) {
	reader, err := newContractReader(p.Address(), uniswapV2PairABI, r.caller, r.limiter, r.opts)
	if err != nil {
		return nil, err
	}
	out, err := reader.callRaw(ctx, "getReserves")
	if err != nil {
		return nil, err
	}
	if len(out) < 2 {
		return nil, fmt.Errorf("unexpected getReserves output length %d", len(out))
	}
	reserve0, ok0 := out[0].(*big.Int)
	reserve1, ok1 := out[1].(*big.Int)
	if !ok0 || !ok1 {
		return nil, fmt.Errorf("unexpected getReserves output types %T, %T", out[0], out[1])
	}
	return uniswap.NewPair(p.Address(), p.Token0(), p.Token1(), reserve0, reserve1)
}

func (r *PoolStateReader) refreshPool(ctx context.Context, p *uniswap.Pool) (*uniswap.Pool, error) {
	reader, err := newContractReader(p.Address(), uniswapV3PoolABI, r.caller, r.limiter, r.opts)
	if err != nil {
		return nil, err
	}

	slot0, err := reader.callRaw(ctx, "slot0")
	if err != nil {
		return nil, err
	}
	if len(slot0) < 2 {
		return nil, fmt.Errorf("unexpected slot0 output length %d", len(slot0))
	}
	sqrtPrice, ok0 := slot0[0].(*big.Int)
	tick, ok1 := slot0[1].(*big.Int)
	if !ok0 || !ok1 {
		return nil, fmt.Errorf("unexpected slot0 output types %T, %T", slot0[0], slot0[1])
	}

	liquidity, err := reader.call(ctx, "liquidity")
	if err != nil {
		return nil, err
	}
	if len(liquidity) != 1 {
		return nil, fmt.Errorf("unexpected liquidity output length %d", len(liquidity))
	}

	return uniswap.NewPool(p.Address(), p.Token0(), p.Token1(), p.FeeTier(), sqrtPrice, liquidity[0], int32(tick.Int64()))
}
