package providers

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/michaelpento.lv/routegas/gas"
)

// Predeployed gas price contracts
var (
	OptimismGasPriceOracle = common.HexToAddress("0x420000000000000000000000000000000000000F")
	ArbGasInfo             = common.HexToAddress("0x000000000000000000000000000000000000006C")
)

const gasPriceOracleABI = `[
{"inputs":[],"name":"l1BaseFee","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
{"inputs":[],"name":"scalar","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
{"inputs":[],"name":"decimals","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
{"inputs":[],"name":"overhead","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"}
]`

const arbGasInfoABI = `[
{"inputs":[],"name":"getPricesInWei","outputs":[{"internalType":"uint256","name":"","type":"uint256"},{"internalType":"uint256","name":"","type":"uint256"},{"internalType":"uint256","name":"","type":"uint256"},{"internalType":"uint256","name":"","type":"uint256"},{"internalType":"uint256","name":"","type":"uint256"},{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"}
]`

// StaticGasDataProvider always returns the same parameters
type StaticGasDataProvider struct {
	Data gas.L2GasData
}

func (p StaticGasDataProvider) GasData(context.Context) (gas.L2GasData, error) {
	if p.Data == nil {
		return nil, gas.ErrMissingL2GasData
	}
	return p.Data, nil
}

// OptimismGasDataProvider reads the L1 fee parameters from the GasPriceOracle predeploy
type OptimismGasDataProvider struct {
	reader *contractReader
}

func NewOptimismGasDataProvider(caller bind.ContractCaller, opts ContractOptions) (*OptimismGasDataProvider, error) {
	reader, err := newContractReader(OptimismGasPriceOracle, gasPriceOracleABI, caller, newLimiter(opts), opts)
	if err != nil {
		return nil, err
	}
	return &OptimismGasDataProvider{reader: reader}, nil
}

func (p *OptimismGasDataProvider) GasData(ctx context.Context) (gas.L2GasData, error) {
	var values [4]*big.Int
	for i, method := range []string{"l1BaseFee", "scalar", "decimals", "overhead"} {
		out, err := p.reader.call(ctx, method)
		if err != nil {
			return nil, err
		}
		if len(out) != 1 {
			return nil, fmt.Errorf("unexpected %s output length %d", method, len(out))
		}
		values[i] = out[0]
	}

	return gas.OptimismGasData{
		L1BaseFee: values[0],
		Scalar:    values[1],
		Decimals:  values[2],
		Overhead:  values[3],
	}, nil
}

// ArbitrumGasDataProvider reads the calldata prices from the ArbGasInfo precompile
type ArbitrumGasDataProvider struct {
	reader *contractReader
}

func NewArbitrumGasDataProvider(caller bind.ContractCaller, opts ContractOptions) (*ArbitrumGasDataProvider, error) {
	reader, err := newContractReader(ArbGasInfo, arbGasInfoABI, caller, newLimiter(opts), opts)
	if err != nil {
		return nil, err
	}
	return &ArbitrumGasDataProvider{reader: reader}, nil
}

// GasData uses the first two getPricesInWei values: per L2 transaction and per L1
// calldata byte
func (p *ArbitrumGasDataProvider) GasData(ctx context.Context) (gas.L2GasData, error) {
	out, err := p.reader.call(ctx, "getPricesInWei")
	if err != nil {
		return nil, err
	}
	if len(out) < 2 {
		return nil, fmt.Errorf("unexpected getPricesInWei output length %d", len(out))
	}

	return gas.ArbitrumGasData{
		PerL2TxFee:       out[0],
		PerL1CalldataFee: out[1],
	}, nil
}
