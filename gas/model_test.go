package gas

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/michaelpento.lv/routegas/calldata"
	"github.com/michaelpento.lv/routegas/dex"
	"github.com/michaelpento.lv/routegas/dex/uniswap"
	"github.com/michaelpento.lv/routegas/routing"
	"github.com/michaelpento.lv/routegas/types"
	"github.com/michaelpento.lv/routegas/utils/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

var (
	mainnetWETH = mustNative(types.Mainnet)
	mainnetUSDC = types.NewToken(types.Mainnet, "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", 6, "USDC")
	mainnetDAI  = types.NewToken(types.Mainnet, "0x6B175474E89094C44Da98b954EedeAC495271d0F", 18, "DAI")
	mainnetUNI  = types.NewToken(types.Mainnet, "0x1f9840a85d5aF5bf1D1762F925BDADdC4201F984", 18, "UNI")

	optimismWETH = mustNative(types.Optimism)
	optimismUSDC = types.NewToken(types.Optimism, "0x7F5c764cBc14f9669B88837ca1490cCa17c31607", 6, "USDC")

	arbitrumWETH = mustNative(types.ArbitrumOne)
	arbitrumUSDC = types.NewToken(types.ArbitrumOne, "0xFF970A61A04b1cA14834A43f5dE4533eBDDB5CC8", 6, "USDC")

	gwei = big.NewInt(1_000_000_000)
)

func mustNative(chainID types.ChainID) types.Token {
	t, ok := types.WrappedNative(chainID)
	if !ok {
		panic("no native token")
	}
	return t
}

func ether(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1e18))
}

// fakePoolProvider answers highest liquidity lookups from a fixed pool list
type fakePoolProvider struct {
	pools  []dex.Pool
	forced map[common.Address]dex.Pool
	err    error
}

func (f *fakePoolProvider) Pools(context.Context, types.ChainID) ([]dex.Pool, error) {
	return f.pools, f.err
}

func (f *fakePoolProvider) HighestLiquidityPool(_ context.Context, _ types.ChainID, a, b types.Token) (dex.Pool, bool, error) {
	if f.err != nil {
		return nil, false, f.err
	}
	if pool, ok := f.forced[a.Address]; ok {
		return pool, true, nil
	}

	var best dex.Pool
	for _, p := range f.pools {
		if !p.InvolvesToken(a) || !p.InvolvesToken(b) {
			continue
		}
		if best == nil || p.Liquidity().Cmp(best.Liquidity()) > 0 {
			best = p
		}
	}
	return best, best != nil, nil
}

type fixedCalldata []byte

func (f fixedCalldata) SwapCalldata([]routing.RouteWithQuote, calldata.SwapOptions) ([]byte, error) {
	return f, nil
}

type staticGasData struct{ data L2GasData }

func (s staticGasData) GasData(context.Context) (L2GasData, error) { return s.data, nil }

func pair(t *testing.T, addr string, a, b types.Token, reserveA, reserveB *big.Int) *uniswap.Pair {
	t.Helper()
	p, err := uniswap.NewPair(common.HexToAddress(addr), a, b, reserveA, reserveB)
	require.NoError(t, err)
	return p
}

// 1 WETH = 2000 USDC and 1 WETH = 2000 DAI, with the USDC pair the deeper one
func mainnetPools(t *testing.T) []dex.Pool {
	return []dex.Pool{
		pair(t, "0x01", mainnetWETH, mainnetUSDC, ether(100), big.NewInt(200_000_000000)),
		pair(t, "0x02", mainnetWETH, mainnetDAI, big.NewInt(1e12), big.NewInt(2e15)),
	}
}

func quotedRoute(t *testing.T, in, out types.Token, hops int, ticks ...uint32) routing.RouteWithQuote {
	t.Helper()

	tokens := []types.Token{in}
	for i := 1; i < hops; i++ {
		tokens = append(tokens, types.NewToken(in.ChainID, common.BigToAddress(big.NewInt(int64(0x9000+i))).Hex(), 18, "X"))
	}
	tokens = append(tokens, out)

	pools := make([]dex.Pool, hops)
	for i := 0; i < hops; i++ {
		p, err := uniswap.NewPool(common.BigToAddress(big.NewInt(int64(0x8000+i))), tokens[i], tokens[i+1],
			uniswap.FeeMedium, new(big.Int).Lsh(big.NewInt(1), 96), big.NewInt(1_000_000), 0)
		require.NoError(t, err)
		pools[i] = p
	}

	if ticks == nil {
		ticks = make([]uint32, hops)
	}
	return routing.RouteWithQuote{
		Route:                       routing.NewV3Route(pools, in, out),
		Amount:                      types.FromRawAmount(in, ether(1)),
		Quote:                       types.FromRawAmount(out, big.NewInt(2000_000000)),
		TradeType:                   types.ExactInput,
		InitializedTicksCrossedList: ticks,
	}
}

func build(t *testing.T, factory *HeuristicGasModelFactory, params BuildParams) *Model {
	t.Helper()
	if factory == nil {
		factory = NewHeuristicGasModelFactory(nil, nil)
	}
	m, err := factory.BuildGasModel(context.Background(), params)
	require.NoError(t, err)
	return m
}

func TestEstimateGasCostNativeQuote(t *testing.T) {
	m := build(t, nil, BuildParams{
		ChainID:      types.Mainnet,
		GasPriceWei:  new(big.Int).Mul(big.NewInt(10), gwei),
		Token:        mainnetWETH,
		PoolProvider: &fakePoolProvider{pools: mainnetPools(t)},
	})

	cost, err := m.EstimateGasCost(quotedRoute(t, mainnetUSDC, mainnetWETH, 1, 0))
	require.NoError(t, err)

	// 2000 base + 80000 per hop + 31000 for the floored tick
	assert.Equal(t, int64(113000), cost.GasEstimate.Int64())
	assert.Equal(t, CostComplete, cost.Status)
	assert.False(t, cost.Degraded())
	assert.True(t, cost.GasCostInToken.Currency.Equals(mainnetWETH))
	assert.Equal(t, int64(1_130_000_000_000_000), cost.GasCostInToken.Quotient().Int64())
	assert.True(t, cost.GasCostInUSD.Currency.Equals(mainnetUSDC))
	assert.Equal(t, int64(2_260_000), cost.GasCostInUSD.Quotient().Int64())
}

func TestEstimateGasCostQuoteToken(t *testing.T) {
	m := build(t, nil, BuildParams{
		ChainID:      types.Mainnet,
		GasPriceWei:  new(big.Int).Mul(big.NewInt(10), gwei),
		Token:        mainnetDAI,
		PoolProvider: &fakePoolProvider{pools: mainnetPools(t)},
	})
	require.NotNil(t, m.NativePool())

	cost, err := m.EstimateGasCost(quotedRoute(t, mainnetUSDC, mainnetDAI, 2, 1, 2))
	require.NoError(t, err)

	// 2000 + 2*80000 + 3*31000
	assert.Equal(t, int64(255000), cost.GasEstimate.Int64())
	assert.True(t, cost.GasCostInToken.Currency.Equals(mainnetDAI))
	expected := new(big.Int).Mul(big.NewInt(2_550_000_000_000_000), big.NewInt(2000))
	assert.Equal(t, 0, expected.Cmp(cost.GasCostInToken.Quotient()))
	assert.Equal(t, int64(5_100_000), cost.GasCostInUSD.Quotient().Int64())
}

func TestEstimateGasCostNoConversionPool(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	reg := prometheus.NewRegistry()
	gm := metrics.NewGasMetrics("test", reg)

	m := build(t, NewHeuristicGasModelFactory(zap.New(core), gm), BuildParams{
		ChainID:      types.Mainnet,
		GasPriceWei:  gwei,
		Token:        mainnetUNI,
		PoolProvider: &fakePoolProvider{pools: mainnetPools(t)},
	})
	assert.Nil(t, m.NativePool())

	cost, err := m.EstimateGasCost(quotedRoute(t, mainnetUSDC, mainnetUNI, 1))
	require.NoError(t, err)

	assert.True(t, cost.Degraded())
	assert.Equal(t, CostNoConversionPool, cost.Status)
	assert.True(t, cost.GasCostInToken.IsZero())
	assert.True(t, cost.GasCostInToken.Currency.Equals(mainnetUNI))
	assert.True(t, cost.GasCostInUSD.IsZero())
	assert.True(t, cost.GasCostInUSD.Currency.Equals(mainnetUSDC))
	assert.Equal(t, int64(113000), cost.GasEstimate.Int64())

	assert.Equal(t, 1, logs.FilterMessageSnippet("Route will not account for gas").Len())
	assert.Equal(t, float64(1), testutil.ToFloat64(gm.Estimates.WithLabelValues("no_conversion_pool")))
}

func TestEstimateGasCostQuoteFailure(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)

	// a native pool lookup that wrongly returns a pool without the native token
	wrong := pair(t, "0x03", mainnetUSDC, mainnetDAI, big.NewInt(1_000000), ether(1))
	provider := &fakePoolProvider{
		pools:  mainnetPools(t),
		forced: map[common.Address]dex.Pool{mainnetUNI.Address: wrong},
	}

	m := build(t, NewHeuristicGasModelFactory(zap.New(core), nil), BuildParams{
		ChainID:      types.Mainnet,
		GasPriceWei:  gwei,
		Token:        mainnetUNI,
		PoolProvider: provider,
	})

	_, err := m.EstimateGasCost(quotedRoute(t, mainnetUSDC, mainnetUNI, 1))
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrCurrencyMismatch)

	entries := logs.FilterMessage("Failed to compute gas cost in quote token").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "DAI", fields["poolToken0"])
	assert.Equal(t, "WETH", fields["amountCurrency"])
}

func TestGasEstimateMonotonicInHops(t *testing.T) {
	m := build(t, nil, BuildParams{
		ChainID:      types.Mainnet,
		GasPriceWei:  gwei,
		Token:        mainnetWETH,
		PoolProvider: &fakePoolProvider{pools: mainnetPools(t)},
	})

	previous := big.NewInt(0)
	for hops := 1; hops <= 4; hops++ {
		cost, err := m.EstimateGasCost(quotedRoute(t, mainnetUSDC, mainnetWETH, hops))
		require.NoError(t, err)
		assert.GreaterOrEqual(t, cost.GasEstimate.Cmp(previous), 0)
		previous = cost.GasEstimate
	}
}

func TestTicksFlooredAtOne(t *testing.T) {
	m := build(t, nil, BuildParams{
		ChainID:      types.Mainnet,
		GasPriceWei:  gwei,
		Token:        mainnetWETH,
		PoolProvider: &fakePoolProvider{pools: mainnetPools(t)},
	})

	zero, err := m.EstimateGasCost(quotedRoute(t, mainnetUSDC, mainnetWETH, 1, 0))
	require.NoError(t, err)
	one, err := m.EstimateGasCost(quotedRoute(t, mainnetUSDC, mainnetWETH, 1, 1))
	require.NoError(t, err)

	assert.Equal(t, 0, zero.GasEstimate.Cmp(one.GasEstimate))
}

func TestArbitrumBaseSwapCost(t *testing.T) {
	m := build(t, nil, BuildParams{
		ChainID:     types.ArbitrumOne,
		GasPriceWei: gwei,
		Token:       arbitrumWETH,
		PoolProvider: &fakePoolProvider{pools: []dex.Pool{
			pair(t, "0x01", arbitrumWETH, arbitrumUSDC, ether(1), big.NewInt(2000_000000)),
		}},
	})

	cost, err := m.EstimateGasCost(quotedRoute(t, arbitrumUSDC, arbitrumWETH, 1))
	require.NoError(t, err)
	assert.Equal(t, int64(116000), cost.GasEstimate.Int64())
}

func TestBuildGasModelErrors(t *testing.T) {
	factory := NewHeuristicGasModelFactory(nil, nil)
	ctx := context.Background()

	_, err := factory.BuildGasModel(ctx, BuildParams{
		ChainID:      types.Mainnet,
		GasPriceWei:  gwei,
		Token:        mainnetWETH,
		PoolProvider: &fakePoolProvider{},
	})
	assert.ErrorIs(t, err, ErrNoUSDPool)

	_, err = factory.BuildGasModel(ctx, BuildParams{
		ChainID:      types.ChainID(999),
		GasPriceWei:  gwei,
		Token:        mainnetWETH,
		PoolProvider: &fakePoolProvider{},
	})
	assert.ErrorIs(t, err, ErrUnsupportedChain)

	boom := errors.New("rpc down")
	_, err = factory.BuildGasModel(ctx, BuildParams{
		ChainID:      types.Mainnet,
		GasPriceWei:  gwei,
		Token:        mainnetWETH,
		PoolProvider: &fakePoolProvider{err: boom},
	})
	assert.ErrorIs(t, err, boom)
}

func TestHighestLiquidityUSDPool(t *testing.T) {
	shallow := pair(t, "0x01", mainnetWETH, mainnetUSDC, ether(1), big.NewInt(2000_000000))
	deep := pair(t, "0x02", mainnetWETH, mainnetDAI, ether(1000), ether(2_000_000))

	m := build(t, nil, BuildParams{
		ChainID:      types.Mainnet,
		GasPriceWei:  gwei,
		Token:        mainnetWETH,
		PoolProvider: &fakePoolProvider{pools: []dex.Pool{shallow, deep}},
	})
	assert.Same(t, deep, m.USDPool())
}

func TestL2ToL1GasUsed(t *testing.T) {
	data := []byte{0x00, 0x00, 0x01, 0x02}
	assert.Equal(t, int64(4+4+16+16+68*16), L2ToL1GasUsed(data, big.NewInt(0)).Int64())
	assert.Equal(t, int64(4+4+16+16+68*16+2100), L2ToL1GasUsed(data, big.NewInt(2100)).Int64())
	assert.Equal(t, int64(68*16), L2ToL1GasUsed(nil, nil).Int64())
}

func optimismModel(t *testing.T, token types.Token, gasData L2GasData, builder CalldataBuilder) *Model {
	return build(t, nil, BuildParams{
		ChainID:     types.Optimism,
		GasPriceWei: big.NewInt(1_000_000),
		Token:       token,
		PoolProvider: &fakePoolProvider{pools: []dex.Pool{
			pair(t, "0x01", optimismWETH, optimismUSDC, ether(1), big.NewInt(2000_000000)),
		}},
		L2GasDataProvider: staticGasData{gasData},
		CalldataBuilder:   builder,
	})
}

func TestCalculateL1GasFeesOptimism(t *testing.T) {
	gasData := OptimismGasData{
		L1BaseFee: gwei,
		Scalar:    big.NewInt(1_000_000),
		Decimals:  big.NewInt(6),
		Overhead:  big.NewInt(2100),
	}
	m := optimismModel(t, optimismUSDC, gasData, fixedCalldata{0x00, 0x00, 0x01, 0x02})

	fees, err := m.CalculateL1GasFees([]routing.RouteWithQuote{quotedRoute(t, optimismWETH, optimismUSDC, 1)})
	require.NoError(t, err)

	// 2*4 + 2*16 + 2100 + 68*16
	assert.Equal(t, int64(3228), fees.GasUsedL1.Int64())
	// 3228 gas * 1 gwei * 1e6 / 1e6 = 3228 gwei, valued at 2000 USDC per ETH
	assert.True(t, fees.GasCostL1QuoteToken.Currency.Equals(optimismUSDC))
	assert.Equal(t, int64(6456), fees.GasCostL1QuoteToken.Quotient().Int64())
	assert.Equal(t, int64(6456), fees.GasCostL1USD.Quotient().Int64())
	assert.Equal(t, CostComplete, fees.Status)
}

func TestCalculateL1GasFeesOptimismWithEncoder(t *testing.T) {
	gasData := OptimismGasData{
		L1BaseFee: gwei,
		Scalar:    big.NewInt(1_000_000),
		Decimals:  big.NewInt(6),
		Overhead:  big.NewInt(2100),
	}
	m := optimismModel(t, optimismWETH, gasData, nil)

	fees, err := m.CalculateL1GasFees([]routing.RouteWithQuote{quotedRoute(t, optimismUSDC, optimismWETH, 2)})
	require.NoError(t, err)
	assert.Greater(t, fees.GasUsedL1.Int64(), int64(2100+68*16))
	assert.True(t, fees.GasCostL1QuoteToken.Currency.Equals(optimismWETH))
	assert.False(t, fees.GasCostL1QuoteToken.IsZero())
}

func TestCalculateL1GasFeesArbitrum(t *testing.T) {
	m := build(t, nil, BuildParams{
		ChainID:     types.ArbitrumOne,
		GasPriceWei: gwei,
		Token:       arbitrumWETH,
		PoolProvider: &fakePoolProvider{pools: []dex.Pool{
			pair(t, "0x01", arbitrumWETH, arbitrumUSDC, ether(1), big.NewInt(2000_000000)),
		}},
		L2GasDataProvider: staticGasData{ArbitrumGasData{
			PerL2TxFee:       big.NewInt(1000),
			PerL1CalldataFee: big.NewInt(2),
		}},
		CalldataBuilder: fixedCalldata{0x00, 0x00, 0x01, 0x02},
	})

	fees, err := m.CalculateL1GasFees([]routing.RouteWithQuote{quotedRoute(t, arbitrumUSDC, arbitrumWETH, 1)})
	require.NoError(t, err)

	// overhead is ignored on Arbitrum
	assert.Equal(t, int64(1128), fees.GasUsedL1.Int64())
	assert.Equal(t, int64(1128*2+1000), fees.GasCostL1QuoteToken.Quotient().Int64())
}

func TestCalculateL1GasFeesErrors(t *testing.T) {
	m := optimismModel(t, optimismWETH, ArbitrumGasData{PerL2TxFee: big.NewInt(1), PerL1CalldataFee: big.NewInt(1)}, fixedCalldata{0x01})

	_, err := m.CalculateL1GasFees(nil)
	assert.ErrorIs(t, err, ErrNoRoutes)

	_, err = m.CalculateL1GasFees([]routing.RouteWithQuote{quotedRoute(t, optimismUSDC, optimismWETH, 1)})
	assert.ErrorIs(t, err, ErrMissingL2GasData)
}

func TestCalculateL1GasFeesPartialGasData(t *testing.T) {
	m := optimismModel(t, optimismWETH, OptimismGasData{L1BaseFee: big.NewInt(1)}, fixedCalldata{0x01})
	route := []routing.RouteWithQuote{quotedRoute(t, optimismUSDC, optimismWETH, 1)}

	var err error
	require.NotPanics(t, func() { _, err = m.CalculateL1GasFees(route) })
	assert.ErrorIs(t, err, ErrMissingL2GasData)
	assert.ErrorContains(t, err, "decimals, overhead, scalar not set")

	assert.Equal(t, []string{"perL1CalldataFee"}, ArbitrumGasData{PerL2TxFee: big.NewInt(1)}.Missing())
	assert.Empty(t, ArbitrumGasData{PerL2TxFee: big.NewInt(1), PerL1CalldataFee: big.NewInt(0)}.Missing())
}

func TestCalculateL1GasFeesL1Chain(t *testing.T) {
	m := build(t, nil, BuildParams{
		ChainID:      types.Mainnet,
		GasPriceWei:  gwei,
		Token:        mainnetUNI,
		PoolProvider: &fakePoolProvider{pools: mainnetPools(t)},
	})

	fees, err := m.CalculateL1GasFees(nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), fees.GasUsedL1.Int64())
	assert.True(t, fees.GasCostL1USD.IsZero())
	assert.True(t, fees.GasCostL1QuoteToken.IsZero())
	assert.True(t, fees.GasCostL1QuoteToken.Currency.Equals(mainnetUNI))
	assert.Equal(t, CostNoConversionPool, fees.Status)
}
