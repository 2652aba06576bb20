package gas

import (
	"context"
	"math/big"
	"sort"
)

// L2GasData holds the per block parameters of an L2 chain's L1 fee model.
// It is implemented by OptimismGasData and ArbitrumGasData only.
type L2GasData interface {
	Family() L1FeeFamily
	// Missing names the parameters that are not set
	Missing() []string
	l2GasData()
}

// OptimismGasData are the GasPriceOracle values of an optimistic rollup
type OptimismGasData struct {
	L1BaseFee *big.Int
	Scalar    *big.Int
	Decimals  *big.Int
	Overhead  *big.Int
}

func (OptimismGasData) Family() L1FeeFamily { return L1FeeOptimism }
func (OptimismGasData) l2GasData()          {}

func (d OptimismGasData) Missing() []string {
	return unset(map[string]*big.Int{
		"l1BaseFee": d.L1BaseFee,
		"scalar":    d.Scalar,
		"decimals":  d.Decimals,
		"overhead":  d.Overhead,
	})
}

// ArbitrumGasData are the ArbGasInfo prices, both in wei
type ArbitrumGasData struct {
	PerL2TxFee       *big.Int
	PerL1CalldataFee *big.Int
}

func (ArbitrumGasData) Family() L1FeeFamily { return L1FeeArbitrum }
func (ArbitrumGasData) l2GasData()          {}

func (d ArbitrumGasData) Missing() []string {
	return unset(map[string]*big.Int{
		"perL2TxFee":       d.PerL2TxFee,
		"perL1CalldataFee": d.PerL1CalldataFee,
	})
}

func unset(fields map[string]*big.Int) []string {
	var names []string
	for name, v := range fields {
		if v == nil {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// L2GasDataProvider fetches the current L2 gas parameters
type L2GasDataProvider interface {
	GasData(ctx context.Context) (L2GasData, error)
}
