package routing

import (
	"fmt"
	"math"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/michaelpento.lv/routegas/dex"
	"github.com/michaelpento.lv/routegas/dex/uniswap"
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
	tokenA = types.NewToken(types.Mainnet, "0x000000000000000000000000000000000000000a", 18, "A")
	tokenB = types.NewToken(types.Mainnet, "0x000000000000000000000000000000000000000b", 18, "B")
	tokenC = types.NewToken(types.Mainnet, "0x000000000000000000000000000000000000000c", 18, "C")
	tokenD = types.NewToken(types.Mainnet, "0x000000000000000000000000000000000000000d", 18, "D")
	tokenE = types.NewToken(types.Mainnet, "0x000000000000000000000000000000000000000e", 18, "E")
)

var poolSeq int64

func nextAddress() common.Address {
	poolSeq++
	return common.BigToAddress(big.NewInt(0x1000 + poolSeq))
}

func newPair(t *testing.T, a, b types.Token) *uniswap.Pair {
	t.Helper()
	pair, err := uniswap.NewPair(nextAddress(), a, b, big.NewInt(1_000_000), big.NewInt(1_000_000))
	require.NoError(t, err)
	return pair
}

func newPool(t *testing.T, a, b types.Token) *uniswap.Pool {
	t.Helper()
	pool, err := uniswap.NewPool(nextAddress(), a, b, uniswap.FeeMedium,
		new(big.Int).Lsh(big.NewInt(1), 96), big.NewInt(1_000_000), 0)
	require.NoError(t, err)
	return pool
}

func poolsOf(routes []Route) [][]dex.Pool {
	out := make([][]dex.Pool, len(routes))
	for i, r := range routes {
		out[i] = r.Pools
	}
	return out
}

// assertValidRoute checks the structural route invariants
func assertValidRoute(t *testing.T, r Route, tokenIn, tokenOut types.Token, maxHops int) {
	t.Helper()

	require.NotEmpty(t, r.Pools)
	assert.LessOrEqual(t, len(r.Pools), maxHops)

	seen := make(map[common.Address]bool)
	frontier := tokenIn
	for _, pool := range r.Pools {
		assert.False(t, seen[pool.Address()], "pool %s repeated", pool.Address())
		seen[pool.Address()] = true

		require.True(t, pool.InvolvesToken(frontier), "route %s is not connected", r)
		frontier = pool.OtherToken(frontier)
	}
	assert.True(t, r.Pools[len(r.Pools)-1].InvolvesToken(tokenOut))
	assert.True(t, r.Input.Equals(tokenIn))
	assert.True(t, r.Output.Equals(tokenOut))
	assert.Len(t, r.Path, len(r.Pools)+1)
}

func TestComputeAllRoutesTriangle(t *testing.T) {
	ab := newPair(t, tokenA, tokenB)
	bc := newPair(t, tokenB, tokenC)
	ac := newPair(t, tokenA, tokenC)

	e := NewEnumerator(nil, nil)
	routes := e.ComputeAllV2Routes(tokenA, tokenC, []*uniswap.Pair{ab, bc, ac}, 2)

	require.Len(t, routes, 2)
	assert.Equal(t, [][]dex.Pool{{ab, bc}, {ac}}, poolsOf(routes))
	for _, r := range routes {
		assert.Equal(t, dex.ProtocolV2, r.Protocol)
		assertValidRoute(t, r, tokenA, tokenC, 2)
	}
	assert.True(t, routes[0].Path[1].Equals(tokenB))

	// one hop bound keeps only the direct pool
	routes = e.ComputeAllV2Routes(tokenA, tokenC, []*uniswap.Pair{ab, bc, ac}, 1)
	assert.Equal(t, [][]dex.Pool{{ac}}, poolsOf(routes))
}

func TestComputeAllRoutesDisconnected(t *testing.T) {
	ab := newPair(t, tokenA, tokenB)
	cd := newPair(t, tokenC, tokenD)

	e := NewEnumerator(nil, nil)
	for hops := 0; hops <= 4; hops++ {
		assert.Empty(t, e.ComputeAllV2Routes(tokenA, tokenD, []*uniswap.Pair{ab, cd}, hops))
	}
}

func TestComputeAllRoutesZeroHops(t *testing.T) {
	ab := newPool(t, tokenA, tokenB)

	e := NewEnumerator(nil, nil)
	assert.Empty(t, e.ComputeAllV3Routes(tokenA, tokenB, []*uniswap.Pool{ab}, 0))
	assert.Empty(t, e.ComputeAllV3Routes(tokenA, tokenB, []*uniswap.Pool{ab}, -1))
	assert.Len(t, e.ComputeAllV3Routes(tokenA, tokenB, []*uniswap.Pool{ab}, 1), 1)
}

func TestComputeAllRoutesUnboundedHops(t *testing.T) {
	pools := []*uniswap.Pool{newPool(t, tokenA, tokenB), newPool(t, tokenB, tokenC), newPool(t, tokenA, tokenC)}
	e := NewEnumerator(nil, nil)

	var routes []Route
	require.NotPanics(t, func() {
		routes = e.ComputeAllV3Routes(tokenA, tokenC, pools, math.MaxInt)
	})
	assert.Equal(t, poolsOf(e.ComputeAllV3Routes(tokenA, tokenC, pools, len(pools))), poolsOf(routes))
	assert.Len(t, routes, 2)
}

func TestReportedProtocolLabel(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	e := NewEnumerator(zap.New(core), nil)

	v2 := newPair(t, tokenA, tokenB)
	v3 := newPool(t, tokenB, tokenC)

	e.ComputeAllRoutes(tokenA, tokenC, NewMixedRoute, []dex.Pool{v2, v3}, 2)
	e.ComputeAllRoutes(tokenA, tokenB, NewV2Route, []dex.Pool{v2}, 2)
	e.ComputeAllV3Routes(tokenA, tokenC, nil, 2)

	var protocols []interface{}
	for _, entry := range logs.All() {
		protocols = append(protocols, entry.ContextMap()["protocol"])
	}
	assert.Equal(t, []interface{}{"MIXED", "V2", "V3"}, protocols)
}

func TestAcceptedRoutesAreNotExtended(t *testing.T) {
	ab := newPool(t, tokenA, tokenB)
	bc := newPool(t, tokenB, tokenC)
	cb := newPool(t, tokenC, tokenB)

	// reaching B must stop the search even though B -> C -> B is available
	routes := NewEnumerator(nil, nil).ComputeAllV3Routes(tokenA, tokenB, []*uniswap.Pool{ab, bc, cb}, 3)
	assert.Equal(t, [][]dex.Pool{{ab}}, poolsOf(routes))
}

func TestComputeAllRoutesInvariants(t *testing.T) {
	tokens := []types.Token{tokenA, tokenB, tokenC, tokenD, tokenE}

	var pools []dex.Pool
	for i := range tokens {
		for j := i + 1; j < len(tokens); j++ {
			pools = append(pools, newPair(t, tokens[i], tokens[j]))
			pools = append(pools, newPool(t, tokens[i], tokens[j]))
		}
	}

	e := NewEnumerator(nil, nil)
	for hops := 1; hops <= 3; hops++ {
		routes := e.ComputeAllRoutes(tokenA, tokenE, NewMixedRoute, pools, hops)
		require.NotEmpty(t, routes)
		for _, r := range routes {
			assertValidRoute(t, r, tokenA, tokenE, hops)
		}

		again := e.ComputeAllRoutes(tokenA, tokenE, NewMixedRoute, pools, hops)
		assert.Equal(t, poolsOf(routes), poolsOf(again), "enumeration must be deterministic")
	}
}

func routeKey(r Route) string {
	key := ""
	for _, p := range r.Pools {
		key += p.Address().Hex()
	}
	return key
}

func TestMixedRoutesDisjointFromSingleProtocol(t *testing.T) {
	pairs := []*uniswap.Pair{
		newPair(t, tokenA, tokenB),
		newPair(t, tokenB, tokenC),
		newPair(t, tokenA, tokenC),
	}
	v3 := []*uniswap.Pool{
		newPool(t, tokenA, tokenB),
		newPool(t, tokenB, tokenC),
		newPool(t, tokenA, tokenC),
	}

	var combined []dex.Pool
	for _, p := range pairs {
		combined = append(combined, p)
	}
	for _, p := range v3 {
		combined = append(combined, p)
	}

	e := NewEnumerator(nil, nil)
	single := make(map[string]bool)
	for _, r := range e.ComputeAllV2Routes(tokenA, tokenC, pairs, 3) {
		single[routeKey(r)] = true
	}
	for _, r := range e.ComputeAllV3Routes(tokenA, tokenC, v3, 3) {
		single[routeKey(r)] = true
	}

	mixed := e.ComputeAllMixedRoutes(tokenA, tokenC, combined, 3)
	require.NotEmpty(t, mixed)
	for _, r := range mixed {
		assert.Equal(t, dex.ProtocolMixed, r.Protocol)
		assert.False(t, single[routeKey(r)], "route %s appears in both sets", r)
		assert.False(t, r.IsPure(dex.ProtocolV2))
		assert.False(t, r.IsPure(dex.ProtocolV3))
	}

	// every unfiltered route lands in exactly one of the two sets
	all := e.ComputeAllRoutes(tokenA, tokenC, NewMixedRoute, combined, 3)
	assert.Equal(t, len(all), len(mixed)+len(single))
}

func TestMixedRoutesFromPureSetIsEmpty(t *testing.T) {
	pools := []dex.Pool{
		newPool(t, tokenA, tokenB),
		newPool(t, tokenB, tokenC),
		newPool(t, tokenA, tokenC),
	}
	assert.Empty(t, NewEnumerator(nil, nil).ComputeAllMixedRoutes(tokenA, tokenC, pools, 3))
}

func TestEnumeratorLogsAndMetrics(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	m := metrics.NewRouterMetrics("test", prometheus.NewRegistry())

	pools := []*uniswap.Pool{newPool(t, tokenA, tokenB), newPool(t, tokenB, tokenC)}
	routes := NewEnumerator(zap.New(core), m).ComputeAllV3Routes(tokenA, tokenC, pools, 2)
	require.Len(t, routes, 1)

	entries := logs.FilterMessage("Computed 1 possible routes.").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "V3", entries[0].ContextMap()["protocol"])

	assert.Equal(t, float64(1), testutil.ToFloat64(m.RoutesComputed.WithLabelValues("V3")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Enumerations.WithLabelValues("V3")))
}

func TestRouteString(t *testing.T) {
	ab := newPool(t, tokenA, tokenB)
	bc := newPair(t, tokenB, tokenC)

	r := NewMixedRoute([]dex.Pool{ab, bc}, tokenA, tokenC)
	assert.Equal(t, fmt.Sprintf("[MIXED] A -- V3@%d --> B -- V2 --> C", uniswap.FeeMedium), r.String())
}

func TestRouteWithQuote(t *testing.T) {
	ab := newPool(t, tokenA, tokenB)
	bc := newPool(t, tokenB, tokenC)

	rq := RouteWithQuote{
		Route:                       NewV3Route([]dex.Pool{ab, bc}, tokenA, tokenC),
		Amount:                      types.FromRawAmount(tokenA, big.NewInt(100)),
		Quote:                       types.FromRawAmount(tokenC, big.NewInt(99)),
		TradeType:                   types.ExactInput,
		InitializedTicksCrossedList: []uint32{2, 3},
	}
	assert.Equal(t, 2, rq.HopCount())
	assert.Equal(t, uint64(5), rq.TicksCrossed())
	assert.True(t, rq.InputAmount().Currency.Equals(tokenA))
	assert.True(t, rq.OutputAmount().Currency.Equals(tokenC))

	rq.TradeType = types.ExactOutput
	assert.True(t, rq.InputAmount().Currency.Equals(tokenC))
}
