package gas

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/michaelpento.lv/routegas/calldata"
	"github.com/michaelpento.lv/routegas/dex"
	"github.com/michaelpento.lv/routegas/pricing"
	"github.com/michaelpento.lv/routegas/routing"
	"github.com/michaelpento.lv/routegas/types"
	"github.com/michaelpento.lv/routegas/utils"
	"github.com/michaelpento.lv/routegas/utils/metrics"
	"go.uber.org/zap"
)

var (
	// ErrNoRoutes is returned when L1 fees are requested for an empty trade on an L2
	ErrNoRoutes = errors.New("no routes to compute L1 fees for")
	// ErrMissingL2GasData is returned when an L2 chain has no matching gas parameters
	ErrMissingL2GasData = errors.New("missing L2 gas data")
)

// CostStatus tells a full cost breakdown apart from one that could not be converted
type CostStatus int

const (
	// CostComplete means every amount was converted through a pool
	CostComplete CostStatus = iota
	// CostNoConversionPool means no native/quote token pool exists and the quote
	// token and USD amounts are zero placeholders
	CostNoConversionPool
)

func (s CostStatus) String() string {
	if s == CostNoConversionPool {
		return "no_conversion_pool"
	}
	return "complete"
}

// Cost is the gas cost attached to one route
type Cost struct {
	GasEstimate    *big.Int
	GasCostInToken types.CurrencyAmount
	GasCostInUSD   types.CurrencyAmount
	Status         CostStatus
}

// Degraded reports whether the amounts are placeholders rather than real costs
func (c Cost) Degraded() bool {
	return c.Status == CostNoConversionPool
}

// L1Fees is the L1 security fee of a trade, reported separately from Cost
type L1Fees struct {
	GasUsedL1           *big.Int
	GasCostL1USD        types.CurrencyAmount
	GasCostL1QuoteToken types.CurrencyAmount
	Status              CostStatus
}

// BuildParams are the inputs of a gas model
type BuildParams struct {
	ChainID      types.ChainID
	GasPriceWei  *big.Int
	Token        types.Token
	PoolProvider PoolProvider
	// L2GasDataProvider is optional and only consulted when set
	L2GasDataProvider L2GasDataProvider
	// CalldataBuilder defaults to a calldata.Encoder
	CalldataBuilder CalldataBuilder
}

// HeuristicGasModelFactory builds gas models that estimate cost from hop and tick counts
// instead of simulating the swap
type HeuristicGasModelFactory struct {
	logger  *zap.Logger
	metrics *metrics.GasMetrics
}

func NewHeuristicGasModelFactory(logger *zap.Logger, m *metrics.GasMetrics) *HeuristicGasModelFactory {
	return &HeuristicGasModelFactory{
		logger:  utils.OrNop(logger),
		metrics: m,
	}
}

// Model scores routes for one chain, gas price and quote token.
// It is read only after construction and safe for concurrent use.
type Model struct {
	chainID  types.ChainID
	gasPrice *big.Int
	token    types.Token
	native   types.Token

	usdPool    dex.Pool
	usdToken   types.Token
	nativePool dex.Pool

	l2GasData L2GasData
	calldata  CalldataBuilder

	baseSwapCost *big.Int
	logger       *zap.Logger
	metrics      *metrics.GasMetrics
}

// BuildGasModel resolves every pool and gas parameter the model needs up front
func (f *HeuristicGasModelFactory) BuildGasModel(ctx context.Context, params BuildParams) (*Model, error) {
	if params.PoolProvider == nil {
		return nil, fmt.Errorf("pool provider is required")
	}
	if params.GasPriceWei == nil || params.GasPriceWei.Sign() < 0 {
		return nil, fmt.Errorf("invalid gas price %v", params.GasPriceWei)
	}

	baseCost, err := BaseSwapCost(params.ChainID)
	if err != nil {
		return nil, err
	}
	native, ok := types.WrappedNative(params.ChainID)
	if !ok {
		return nil, fmt.Errorf("%w: no wrapped native token for %s", ErrUnsupportedChain, params.ChainID)
	}

	m := &Model{
		chainID:      params.ChainID,
		gasPrice:     new(big.Int).Set(params.GasPriceWei),
		token:        params.Token,
		native:       native,
		calldata:     params.CalldataBuilder,
		baseSwapCost: baseCost,
		logger:       f.logger,
		metrics:      f.metrics,
	}

	if params.L2GasDataProvider != nil {
		m.l2GasData, err = params.L2GasDataProvider.GasData(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch L2 gas data: %w", err)
		}
	}

	m.usdPool, err = highestLiquidityUSDPool(ctx, params.ChainID, native, params.PoolProvider)
	if err != nil {
		return nil, err
	}
	m.usdToken = pricing.Counterpart(m.usdPool, native.Address)

	if !params.Token.Equals(native) {
		m.nativePool, err = highestLiquidityNativePool(ctx, params.ChainID, native, params.Token, params.PoolProvider)
		if err != nil {
			return nil, err
		}
	}

	if m.calldata == nil && L1FeeFamilyOf(params.ChainID) != L1FeeNone {
		encoder, err := calldata.NewEncoder(f.logger)
		if err != nil {
			return nil, err
		}
		m.calldata = encoder
	}

	f.logger.Debug("Built heuristic gas model",
		zap.Stringer("chain", params.ChainID),
		zap.String("gasPriceWei", m.gasPrice.String()),
		zap.Stringer("token", params.Token),
		zap.String("usdPool", dex.Label(m.usdPool)),
		zap.Bool("nativePool", m.nativePool != nil))

	return m, nil
}

// estimateGas returns the heuristic gas units and their cost in wrapped native
func (m *Model) estimateGas(route routing.RouteWithQuote) (*big.Int, types.CurrencyAmount) {
	ticks := new(big.Int).SetUint64(route.TicksCrossed())
	if ticks.Sign() == 0 {
		ticks.SetInt64(1)
	}
	hops := big.NewInt(int64(route.HopCount()))

	hopsGasUse := new(big.Int).Mul(CostPerHop(m.chainID), hops)
	tickGasUse := new(big.Int).Mul(CostPerInitTick(m.chainID), ticks)
	uninitializedTickGasUse := new(big.Int).Mul(CostPerUninitTick(m.chainID), big.NewInt(0))

	baseGasUse := new(big.Int).Set(m.baseSwapCost)
	baseGasUse.Add(baseGasUse, hopsGasUse)
	baseGasUse.Add(baseGasUse, tickGasUse)
	baseGasUse.Add(baseGasUse, uninitializedTickGasUse)

	costWei := new(big.Int).Mul(m.gasPrice, baseGasUse)
	return baseGasUse, types.FromRawAmount(m.native, costWei)
}

// EstimateGasCost attaches a gas cost to a quoted route. A missing native/quote pool
// yields a degraded Cost; a failed price conversion is returned as an error.
func (m *Model) EstimateGasCost(route routing.RouteWithQuote) (Cost, error) {
	gasUse, nativeCost := m.estimateGas(route)
	if m.metrics != nil {
		m.metrics.GasEstimate.Observe(float64(gasUse.Int64()))
	}

	if m.token.Equals(m.native) {
		usdCost, err := m.convert(m.usdPool, nativeCost, "Failed to compute USD gas price")
		if err != nil {
			return Cost{}, err
		}
		m.record(CostComplete)
		return Cost{
			GasEstimate:    gasUse,
			GasCostInToken: nativeCost,
			GasCostInUSD:   usdCost,
			Status:         CostComplete,
		}, nil
	}

	if m.nativePool == nil {
		m.logger.Info(fmt.Sprintf("Unable to find %s pool with the quote token, %s to produce gas adjusted costs. Route will not account for gas.",
			m.native, m.token),
			zap.String("route", route.Route.String()))
		m.record(CostNoConversionPool)
		return Cost{
			GasEstimate:    gasUse,
			GasCostInToken: types.ZeroAmount(m.token),
			GasCostInUSD:   types.ZeroAmount(m.usdToken),
			Status:         CostNoConversionPool,
		}, nil
	}

	tokenCost, err := m.convert(m.nativePool, nativeCost, "Failed to compute gas cost in quote token")
	if err != nil {
		return Cost{}, err
	}
	usdCost, err := m.convert(m.usdPool, nativeCost, "Failed to compute USD gas price")
	if err != nil {
		return Cost{}, err
	}

	m.record(CostComplete)
	return Cost{
		GasEstimate:    gasUse,
		GasCostInToken: tokenCost,
		GasCostInUSD:   usdCost,
		Status:         CostComplete,
	}, nil
}

// convert applies the native mid price of pool and logs failures with their context
func (m *Model) convert(pool dex.Pool, amount types.CurrencyAmount, failure string) (types.CurrencyAmount, error) {
	out, err := pricing.Convert(pool, m.native.Address, amount)
	if err != nil {
		price := pricing.ReferencePrice(pool, m.native.Address)
		m.logger.Error(failure,
			zap.String("poolToken0", pool.Token0().Symbol),
			zap.String("poolToken1", pool.Token1().Symbol),
			zap.Stringer("priceBase", price.BaseCurrency),
			zap.Stringer("priceQuote", price.QuoteCurrency),
			zap.Stringer("amountCurrency", amount.Currency),
			zap.Error(err))
		if m.metrics != nil {
			m.metrics.EstimateErrors.Inc()
		}
		return types.CurrencyAmount{}, err
	}
	return out, nil
}

func (m *Model) record(status CostStatus) {
	if m.metrics != nil {
		m.metrics.Estimates.WithLabelValues(status.String()).Inc()
	}
}

// CalculateL1GasFees computes the L1 security fee for executing routes as one trade.
// Chains without an L1 fee report zero usage.
func (m *Model) CalculateL1GasFees(routes []routing.RouteWithQuote) (L1Fees, error) {
	family := L1FeeFamilyOf(m.chainID)

	l1Used := big.NewInt(0)
	l1FeeWei := big.NewInt(0)
	if family != L1FeeNone {
		if len(routes) == 0 {
			return L1Fees{}, ErrNoRoutes
		}
		if m.l2GasData == nil || m.l2GasData.Family() != family {
			return L1Fees{}, fmt.Errorf("%w for %s", ErrMissingL2GasData, m.chainID)
		}
		if missing := m.l2GasData.Missing(); len(missing) > 0 {
			return L1Fees{}, fmt.Errorf("%w for %s: %s not set", ErrMissingL2GasData, m.chainID, strings.Join(missing, ", "))
		}

		data, err := m.calldata.SwapCalldata(routes, calldata.DefaultSwapOptions())
		if err != nil {
			return L1Fees{}, fmt.Errorf("failed to build swap calldata: %w", err)
		}

		switch gasData := m.l2GasData.(type) {
		case OptimismGasData:
			l1Used, l1FeeWei = optimismL1SecurityFee(data, gasData)
		case ArbitrumGasData:
			l1Used, l1FeeWei = arbitrumL1SecurityFee(data, gasData)
		}

		if m.metrics != nil {
			m.metrics.L1Fees.WithLabelValues(family.String()).Inc()
		}
	}

	nativeCost := types.FromRawAmount(m.native, l1FeeWei)

	usdCost, err := m.convert(m.usdPool, nativeCost, "Failed to compute L1 fee in USD")
	if err != nil {
		return L1Fees{}, err
	}

	fees := L1Fees{
		GasUsedL1:           l1Used,
		GasCostL1USD:        usdCost,
		GasCostL1QuoteToken: nativeCost,
		Status:              CostComplete,
	}
	if m.token.Equals(m.native) {
		return fees, nil
	}

	if m.nativePool == nil {
		m.logger.Info("Could not find a pool to convert the cost into the quote token",
			zap.Stringer("token", m.token))
		fees.GasCostL1QuoteToken = types.ZeroAmount(m.token)
		fees.Status = CostNoConversionPool
		return fees, nil
	}

	fees.GasCostL1QuoteToken, err = m.convert(m.nativePool, nativeCost, "Failed to compute L1 fee in quote token")
	if err != nil {
		return L1Fees{}, err
	}
	return fees, nil
}

// optimismL1SecurityFee is l1GasUsed * l1BaseFee * scalar / 10^decimals
func optimismL1SecurityFee(data []byte, gasData OptimismGasData) (*big.Int, *big.Int) {
	l1GasUsed := L2ToL1GasUsed(data, gasData.Overhead)

	fee := new(big.Int).Mul(l1GasUsed, gasData.L1BaseFee)
	fee.Mul(fee, gasData.Scalar)
	scale := new(big.Int).Exp(big.NewInt(10), gasData.Decimals, nil)
	fee.Quo(fee, scale)

	return l1GasUsed, fee
}

// arbitrumL1SecurityFee is l1GasUsed * perL1CalldataFee + perL2TxFee, without overhead
func arbitrumL1SecurityFee(data []byte, gasData ArbitrumGasData) (*big.Int, *big.Int) {
	l1GasUsed := L2ToL1GasUsed(data, big.NewInt(0))

	fee := new(big.Int).Mul(l1GasUsed, gasData.PerL1CalldataFee)
	fee.Add(fee, gasData.PerL2TxFee)

	return l1GasUsed, fee
}

// ChainID returns the chain the model was built for
func (m *Model) ChainID() types.ChainID { return m.chainID }

// USDPool returns the pool used to value gas in USD
func (m *Model) USDPool() dex.Pool { return m.usdPool }

// NativePool returns the native/quote token pool, or nil when none was found
func (m *Model) NativePool() dex.Pool { return m.nativePool }
