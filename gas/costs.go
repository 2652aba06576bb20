package gas

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/michaelpento.lv/routegas/types"
)

// ErrUnsupportedChain is returned for chains without gas constants
var ErrUnsupportedChain = errors.New("unsupported chain")

// Per chain heuristic gas constants, in gas units
var (
	baseSwapCost = map[types.ChainID]int64{
		types.Mainnet:         2000,
		types.Ropsten:         2000,
		types.Rinkeby:         2000,
		types.Goerli:          2000,
		types.Kovan:           2000,
		types.Optimism:        2000,
		types.OptimisticKovan: 2000,
		types.ArbitrumOne:     5000,
		types.ArbitrumRinkeby: 5000,
		types.Polygon:         2000,
		types.PolygonMumbai:   2000,
		types.Celo:            2000,
		types.CeloAlfajores:   2000,
	}

	costPerInitTick   int64 = 31000
	costPerHop        int64 = 80000
	costPerUninitTick int64 = 0
)

// BaseSwapCost returns the fixed cost of any swap on chain
func BaseSwapCost(chainID types.ChainID) (*big.Int, error) {
	cost, ok := baseSwapCost[chainID]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedChain, chainID)
	}
	return big.NewInt(cost), nil
}

// CostPerInitTick returns the cost of crossing one initialized tick
func CostPerInitTick(types.ChainID) *big.Int { return big.NewInt(costPerInitTick) }

// CostPerHop returns the cost of each pool traversed
func CostPerHop(types.ChainID) *big.Int { return big.NewInt(costPerHop) }

// CostPerUninitTick returns the cost of crossing an uninitialized tick
func CostPerUninitTick(types.ChainID) *big.Int { return big.NewInt(costPerUninitTick) }

// L1FeeFamily identifies how a chain charges for publishing calldata to L1
type L1FeeFamily int

const (
	// L1FeeNone means the chain has no L1 security fee
	L1FeeNone L1FeeFamily = iota
	// L1FeeOptimism scales calldata gas by a per block base fee and scalar
	L1FeeOptimism
	// L1FeeArbitrum charges a linear per byte fee plus a flat per transaction fee
	L1FeeArbitrum
)

func (f L1FeeFamily) String() string {
	switch f {
	case L1FeeOptimism:
		return "optimism"
	case L1FeeArbitrum:
		return "arbitrum"
	default:
		return "none"
	}
}

// L1FeeFamilyOf maps a chain to its L1 fee model
func L1FeeFamilyOf(chainID types.ChainID) L1FeeFamily {
	switch chainID {
	case types.Optimism, types.OptimisticKovan:
		return L1FeeOptimism
	case types.ArbitrumOne, types.ArbitrumRinkeby:
		return L1FeeArbitrum
	default:
		return L1FeeNone
	}
}
