package uniswap

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/michaelpento.lv/routegas/dex"
	"github.com/michaelpento.lv/routegas/types"
)

// V2FeeTier is the fixed 0.3% fee of every V2 pair, in hundredths of a bip
const V2FeeTier uint32 = 3000

// Pair is a Uniswap V2 constant product pair
type Pair struct {
	address  common.Address
	token0   types.Token
	token1   types.Token
	reserve0 *big.Int
	reserve1 *big.Int
}

// NewPair creates a pair, ordering the tokens by address
func NewPair(address common.Address, tokenA, tokenB types.Token, reserveA, reserveB *big.Int) (*Pair, error) {
	if tokenA.Equals(tokenB) {
		return nil, fmt.Errorf("pair tokens must differ: %s", tokenA)
	}
	if reserveA == nil || reserveB == nil || reserveA.Sign() < 0 || reserveB.Sign() < 0 {
		return nil, fmt.Errorf("invalid reserves for pair %s", address.Hex())
	}

	if !tokenA.SortsBefore(tokenB) {
		tokenA, tokenB = tokenB, tokenA
		reserveA, reserveB = reserveB, reserveA
	}

	return &Pair{
		address:  address,
		token0:   tokenA,
		token1:   tokenB,
		reserve0: new(big.Int).Set(reserveA),
		reserve1: new(big.Int).Set(reserveB),
	}, nil
}

func (p *Pair) Address() common.Address { return p.address }
func (p *Pair) Protocol() dex.Protocol  { return dex.ProtocolV2 }
func (p *Pair) Token0() types.Token     { return p.token0 }
func (p *Pair) Token1() types.Token     { return p.token1 }
func (p *Pair) FeeTier() uint32         { return V2FeeTier }

// Reserves returns copies of the pair reserves in token order
func (p *Pair) Reserves() (reserve0 *big.Int, reserve1 *big.Int) {
	return new(big.Int).Set(p.reserve0), new(big.Int).Set(p.reserve1)
}

// InvolvesToken reports whether the token is one of the pair tokens
func (p *Pair) InvolvesToken(token types.Token) bool {
	return token.Equals(p.token0) || token.Equals(p.token1)
}

// OtherToken returns the opposite endpoint of token
func (p *Pair) OtherToken(token types.Token) types.Token {
	if token.Equals(p.token0) {
		return p.token1
	}
	return p.token0
}

// Token0Price returns reserve1/reserve0
func (p *Pair) Token0Price() types.Price {
	return types.NewPrice(p.token0, p.token1, p.reserve0, p.reserve1)
}

// Token1Price returns reserve0/reserve1
func (p *Pair) Token1Price() types.Price {
	return types.NewPrice(p.token1, p.token0, p.reserve1, p.reserve0)
}

// Liquidity approximates V2 depth as sqrt(reserve0 * reserve1)
func (p *Pair) Liquidity() *big.Int {
	k := new(big.Int).Mul(p.reserve0, p.reserve1)
	return k.Sqrt(k)
}
