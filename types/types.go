package types

import (
	"bytes"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Token represents an ERC20 token on a specific chain
type Token struct {
	ChainID  ChainID
	Address  common.Address
	Decimals uint8
	Symbol   string
}

// NewToken creates a token from a hex address
func NewToken(chainID ChainID, address string, decimals uint8, symbol string) Token {
	return Token{
		ChainID:  chainID,
		Address:  common.HexToAddress(address),
		Decimals: decimals,
		Symbol:   symbol,
	}
}

// Equals reports whether both tokens share the same address
func (t Token) Equals(other Token) bool {
	return t.Address == other.Address
}

// SortsBefore reports whether t would be token0 in a pool with other
func (t Token) SortsBefore(other Token) bool {
	return bytes.Compare(t.Address.Bytes(), other.Address.Bytes()) < 0
}

func (t Token) String() string {
	if t.Symbol != "" {
		return t.Symbol
	}
	return t.Address.Hex()
}

// TradeType distinguishes exact input from exact output swaps
type TradeType int

const (
	ExactInput TradeType = iota
	ExactOutput
)

func (t TradeType) String() string {
	switch t {
	case ExactInput:
		return "EXACT_INPUT"
	case ExactOutput:
		return "EXACT_OUTPUT"
	default:
		return fmt.Sprintf("TradeType(%d)", int(t))
	}
}
