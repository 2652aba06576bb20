package uniswap

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/michaelpento.lv/routegas/dex"
	"github.com/michaelpento.lv/routegas/types"
)

// V3 fee tiers in hundredths of a bip
const (
	FeeLowest uint32 = 100
	FeeLow    uint32 = 500
	FeeMedium uint32 = 3000
	FeeHigh   uint32 = 10000
)

// Q192 is 2^192, the scale of sqrtPriceX96 squared
var Q192 = new(big.Int).Lsh(big.NewInt(1), 192)

// Pool is a Uniswap V3 concentrated liquidity pool snapshot
type Pool struct {
	address      common.Address
	token0       types.Token
	token1       types.Token
	fee          uint32
	sqrtPriceX96 *big.Int
	liquidity    *big.Int
	tick         int32
}

// NewPool creates a pool, ordering the tokens by address.
// sqrtPriceX96 is always interpreted as sqrt(token1/token0) after ordering.
func NewPool(address common.Address, tokenA, tokenB types.Token, fee uint32, sqrtPriceX96, liquidity *big.Int, tick int32) (*Pool, error) {
	if tokenA.Equals(tokenB) {
		return nil, fmt.Errorf("pool tokens must differ: %s", tokenA)
	}
	if sqrtPriceX96 == nil || sqrtPriceX96.Sign() <= 0 {
		return nil, fmt.Errorf("invalid sqrt price for pool %s", address.Hex())
	}
	if liquidity == nil || liquidity.Sign() < 0 {
		return nil, fmt.Errorf("invalid liquidity for pool %s", address.Hex())
	}

	if !tokenA.SortsBefore(tokenB) {
		tokenA, tokenB = tokenB, tokenA
	}

	return &Pool{
		address:      address,
		token0:       tokenA,
		token1:       tokenB,
		fee:          fee,
		sqrtPriceX96: new(big.Int).Set(sqrtPriceX96),
		liquidity:    new(big.Int).Set(liquidity),
		tick:         tick,
	}, nil
}

func (p *Pool) Address() common.Address { return p.address }
func (p *Pool) Protocol() dex.Protocol  { return dex.ProtocolV3 }
func (p *Pool) Token0() types.Token     { return p.token0 }
func (p *Pool) Token1() types.Token     { return p.token1 }
func (p *Pool) FeeTier() uint32         { return p.fee }
func (p *Pool) Tick() int32             { return p.tick }

// SqrtPriceX96 returns a copy of the pool's current sqrt price
func (p *Pool) SqrtPriceX96() *big.Int {
	return new(big.Int).Set(p.sqrtPriceX96)
}

// Liquidity returns the in-range liquidity
func (p *Pool) Liquidity() *big.Int {
	return new(big.Int).Set(p.liquidity)
}

// InvolvesToken reports whether the token is one of the pool tokens
func (p *Pool) InvolvesToken(token types.Token) bool {
	return token.Equals(p.token0) || token.Equals(p.token1)
}

// OtherToken returns the opposite endpoint of token
func (p *Pool) OtherToken(token types.Token) types.Token {
	if token.Equals(p.token0) {
		return p.token1
	}
	return p.token0
}

// Token0Price returns sqrtPriceX96^2 / 2^192
func (p *Pool) Token0Price() types.Price {
	squared := new(big.Int).Mul(p.sqrtPriceX96, p.sqrtPriceX96)
	return types.NewPrice(p.token0, p.token1, Q192, squared)
}

// Token1Price returns 2^192 / sqrtPriceX96^2
func (p *Pool) Token1Price() types.Price {
	squared := new(big.Int).Mul(p.sqrtPriceX96, p.sqrtPriceX96)
	return types.NewPrice(p.token1, p.token0, squared, Q192)
}
