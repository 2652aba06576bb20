package dex

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/michaelpento.lv/routegas/types"
)

// Protocol tags a pool or a route with the AMM family it belongs to
type Protocol int

const (
	ProtocolV2 Protocol = iota
	ProtocolV3
	ProtocolMixed
)

func (p Protocol) String() string {
	switch p {
	case ProtocolV2:
		return "V2"
	case ProtocolV3:
		return "V3"
	case ProtocolMixed:
		return "MIXED"
	default:
		return fmt.Sprintf("Protocol(%d)", int(p))
	}
}

// ParseProtocol parses "v2", "v3" or "mixed" in any case
func ParseProtocol(s string) (Protocol, error) {
	switch strings.ToLower(s) {
	case "v2":
		return ProtocolV2, nil
	case "v3":
		return ProtocolV3, nil
	case "mixed":
		return ProtocolMixed, nil
	}
	return 0, fmt.Errorf("unknown protocol %q", s)
}

// Pool is an edge in the liquidity graph connecting exactly two tokens
type Pool interface {
	// Address returns the pool contract address
	Address() common.Address

	// Protocol returns V2 or V3
	Protocol() Protocol

	Token0() types.Token
	Token1() types.Token

	// InvolvesToken reports whether token is one of the two pool tokens
	InvolvesToken(token types.Token) bool

	// OtherToken returns the opposite endpoint given one of the pool tokens
	OtherToken(token types.Token) types.Token

	// Token0Price is the mid price of token0 expressed in token1
	Token0Price() types.Price

	// Token1Price is the mid price of token1 expressed in token0
	Token1Price() types.Price

	// Liquidity is used to rank pools covering the same pair
	Liquidity() *big.Int
}

// Label returns a short human readable description of a pool
func Label(p Pool) string {
	if f, ok := p.(interface{ FeeTier() uint32 }); ok {
		return fmt.Sprintf("%s/%s@%d", p.Token0(), p.Token1(), f.FeeTier())
	}
	return fmt.Sprintf("%s/%s", p.Token0(), p.Token1())
}
