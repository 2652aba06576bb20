package config

import (
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/michaelpento.lv/routegas/dex"
	"github.com/michaelpento.lv/routegas/dex/uniswap"
	"github.com/michaelpento.lv/routegas/types"
	"gopkg.in/yaml.v2"
)

// PoolFixture is the on disk layout of a pool snapshot
type PoolFixture struct {
	ChainID uint64         `yaml:"chain_id"`
	Tokens  []TokenFixture `yaml:"tokens"`
	Pools   []PoolEntry    `yaml:"pools"`
}

type TokenFixture struct {
	Symbol   string `yaml:"symbol"`
	Address  string `yaml:"address"`
	Decimals uint8  `yaml:"decimals"`
}

// PoolEntry describes one pool; reserves are used by v2, the rest by v3
type PoolEntry struct {
	Protocol     string `yaml:"protocol"`
	Address      string `yaml:"address"`
	Token0       string `yaml:"token0"`
	Token1       string `yaml:"token1"`
	Reserve0     string `yaml:"reserve0,omitempty"`
	Reserve1     string `yaml:"reserve1,omitempty"`
	Fee          uint32 `yaml:"fee,omitempty"`
	SqrtPriceX96 string `yaml:"sqrt_price_x96,omitempty"`
	Liquidity    string `yaml:"liquidity,omitempty"`
	Tick         int32  `yaml:"tick,omitempty"`
}

// PoolSet is a loaded snapshot. All keeps file order.
type PoolSet struct {
	ChainID types.ChainID
	Tokens  []types.Token
	Pairs   []*uniswap.Pair
	Pools   []*uniswap.Pool
	All     []dex.Pool
}

// Token looks a token up by symbol (case insensitive) or hex address
func (s *PoolSet) Token(ref string) (types.Token, bool) {
	isAddr := common.IsHexAddress(ref)
	for _, t := range s.Tokens {
		if isAddr && t.Address == common.HexToAddress(ref) {
			return t, true
		}
		if strings.EqualFold(t.Symbol, ref) {
			return t, true
		}
	}
	return types.Token{}, false
}

// LoadPoolFixtures reads a YAML pool snapshot
func LoadPoolFixtures(path string) (*PoolSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pools file: %w", err)
	}

	var fixture PoolFixture
	if err := yaml.UnmarshalStrict(data, &fixture); err != nil {
		return nil, fmt.Errorf("failed to decode pools file: %w", err)
	}
	return fixture.Build()
}

// Build resolves token references and constructs the pools
func (f *PoolFixture) Build() (*PoolSet, error) {
	if f.ChainID == 0 {
		return nil, fmt.Errorf("chain_id must be specified")
	}
	set := &PoolSet{ChainID: types.ChainID(f.ChainID)}

	for _, t := range f.Tokens {
		if !common.IsHexAddress(t.Address) {
			return nil, fmt.Errorf("token %s: invalid address %q", t.Symbol, t.Address)
		}
		set.Tokens = append(set.Tokens, types.NewToken(set.ChainID, t.Address, t.Decimals, t.Symbol))
	}

	for i, entry := range f.Pools {
		pool, err := set.buildPool(entry)
		if err != nil {
			return nil, fmt.Errorf("pool %d: %w", i, err)
		}
		switch p := pool.(type) {
		case *uniswap.Pair:
			set.Pairs = append(set.Pairs, p)
		case *uniswap.Pool:
			set.Pools = append(set.Pools, p)
		}
		set.All = append(set.All, pool)
	}

	return set, nil
}

// Replace swaps in refreshed pools, matched by position in All
func (s *PoolSet) Replace(pools []dex.Pool) (*PoolSet, error) {
	if len(pools) != len(s.All) {
		return nil, fmt.Errorf("expected %d pools, got %d", len(s.All), len(pools))
	}
	out := &PoolSet{ChainID: s.ChainID, Tokens: s.Tokens}
	for i, pool := range pools {
		if pool.Address() != s.All[i].Address() {
			return nil, fmt.Errorf("pool %d: address mismatch %s", i, pool.Address().Hex())
		}
		switch p := pool.(type) {
		case *uniswap.Pair:
			out.Pairs = append(out.Pairs, p)
		case *uniswap.Pool:
			out.Pools = append(out.Pools, p)
		}
		out.All = append(out.All, pool)
	}
	return out, nil
}

// Fixture converts the set back into its on disk layout
func (s *PoolSet) Fixture() PoolFixture {
	f := PoolFixture{ChainID: uint64(s.ChainID)}
	for _, t := range s.Tokens {
		f.Tokens = append(f.Tokens, TokenFixture{Symbol: t.Symbol, Address: t.Address.Hex(), Decimals: t.Decimals})
	}
	for _, pool := range s.All {
		entry := PoolEntry{
			Protocol: strings.ToLower(pool.Protocol().String()),
			Address:  pool.Address().Hex(),
			Token0:   pool.Token0().String(),
			Token1:   pool.Token1().String(),
		}
		switch p := pool.(type) {
		case *uniswap.Pair:
			r0, r1 := p.Reserves()
			entry.Reserve0, entry.Reserve1 = r0.String(), r1.String()
		case *uniswap.Pool:
			entry.Fee = p.FeeTier()
			entry.SqrtPriceX96 = p.SqrtPriceX96().String()
			entry.Liquidity = p.Liquidity().String()
			entry.Tick = p.Tick()
		}
		f.Pools = append(f.Pools, entry)
	}
	return f
}

// SavePoolFixtures writes the set as a YAML snapshot
func SavePoolFixtures(path string, set *PoolSet) error {
	data, err := yaml.Marshal(set.Fixture())
	if err != nil {
		return fmt.Errorf("failed to encode pools: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func (s *PoolSet) buildPool(entry PoolEntry) (dex.Pool, error) {
	protocol, err := dex.ParseProtocol(entry.Protocol)
	if err != nil {
		return nil, err
	}
	if !common.IsHexAddress(entry.Address) {
		return nil, fmt.Errorf("invalid address %q", entry.Address)
	}
	address := common.HexToAddress(entry.Address)

	token0, ok := s.Token(entry.Token0)
	if !ok {
		return nil, fmt.Errorf("unknown token %q", entry.Token0)
	}
	token1, ok := s.Token(entry.Token1)
	if !ok {
		return nil, fmt.Errorf("unknown token %q", entry.Token1)
	}

	switch protocol {
	case dex.ProtocolV2:
		reserve0, err := parseUint(entry.Reserve0, "reserve0")
		if err != nil {
			return nil, err
		}
		reserve1, err := parseUint(entry.Reserve1, "reserve1")
		if err != nil {
			return nil, err
		}
		return uniswap.NewPair(address, token0, token1, reserve0, reserve1)
	case dex.ProtocolV3:
		sqrtPrice, err := parseUint(entry.SqrtPriceX96, "sqrt_price_x96")
		if err != nil {
			return nil, err
		}
		liquidity, err := parseUint(entry.Liquidity, "liquidity")
		if err != nil {
			return nil, err
		}
		return uniswap.NewPool(address, token0, token1, entry.Fee, sqrtPrice, liquidity, entry.Tick)
	default:
		return nil, fmt.Errorf("protocol %s cannot describe a single pool", protocol)
	}
}

func parseUint(s, field string) (*big.Int, error) {
	v, err := ParseWei(s)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", field, err)
	}
	return v, nil
}
