package routing

import (
	"fmt"

	"github.com/michaelpento.lv/routegas/dex"
	"github.com/michaelpento.lv/routegas/dex/uniswap"
	"github.com/michaelpento.lv/routegas/types"
	"github.com/michaelpento.lv/routegas/utils"
	"github.com/michaelpento.lv/routegas/utils/metrics"
	"go.uber.org/zap"
)

// Enumerator finds every simple path through a pool set between two tokens
type Enumerator struct {
	logger  *zap.Logger
	metrics *metrics.RouterMetrics
}

// NewEnumerator creates an enumerator. Both arguments may be nil.
func NewEnumerator(logger *zap.Logger, m *metrics.RouterMetrics) *Enumerator {
	return &Enumerator{
		logger:  utils.OrNop(logger),
		metrics: m,
	}
}

// search is the backtracking arena for one enumeration call
type search struct {
	pools    []dex.Pool
	tokenIn  types.Token
	tokenOut types.Token
	maxHops  int
	build    RouteBuilder

	used   []bool
	path   []dex.Pool
	routes []Route
}

func (s *search) run(frontier types.Token) {
	if len(s.path) > s.maxHops {
		return
	}

	if len(s.path) > 0 && s.path[len(s.path)-1].InvolvesToken(s.tokenOut) {
		accepted := make([]dex.Pool, len(s.path))
		copy(accepted, s.path)
		s.routes = append(s.routes, s.build(accepted, s.tokenIn, s.tokenOut))
		return
	}

	for i, pool := range s.pools {
		if s.used[i] || !pool.InvolvesToken(frontier) {
			continue
		}

		next := pool.OtherToken(frontier)

		s.used[i] = true
		s.path = append(s.path, pool)

		s.run(next)

		s.path = s.path[:len(s.path)-1]
		s.used[i] = false
	}
}

// ComputeAllRoutes returns every simple path of at most maxHops pools that starts at
// tokenIn and whose last pool touches tokenOut. Order follows the pool slice and DFS order.
func (e *Enumerator) ComputeAllRoutes(
	tokenIn, tokenOut types.Token,
	build RouteBuilder,
	pools []dex.Pool,
	maxHops int,
) []Route {
	return e.computeAllRoutes(protocolOf(pools), tokenIn, tokenOut, build, pools, maxHops)
}

func (e *Enumerator) computeAllRoutes(
	protocol dex.Protocol,
	tokenIn, tokenOut types.Token,
	build RouteBuilder,
	pools []dex.Pool,
	maxHops int,
) []Route {
	s := &search{
		pools:    pools,
		tokenIn:  tokenIn,
		tokenOut: tokenOut,
		maxHops:  maxHops,
		build:    build,
		used:     make([]bool, len(pools)),
	}
	if maxHops > 0 {
		// a simple path never holds more pools than the set
		depth := maxHops
		if depth > len(pools) {
			depth = len(pools)
		}
		s.path = make([]dex.Pool, 0, depth+1)
		s.run(tokenIn)
	}

	e.report(protocol, s.routes)
	return s.routes
}

// protocolOf labels a pool set by its single protocol, or mixed when it holds several
func protocolOf(pools []dex.Pool) dex.Protocol {
	if len(pools) == 0 {
		return dex.ProtocolMixed
	}
	protocol := pools[0].Protocol()
	for _, pool := range pools[1:] {
		if pool.Protocol() != protocol {
			return dex.ProtocolMixed
		}
	}
	return protocol
}

// ComputeAllV2Routes enumerates routes over V2 pairs only
func (e *Enumerator) ComputeAllV2Routes(tokenIn, tokenOut types.Token, pairs []*uniswap.Pair, maxHops int) []Route {
	pools := make([]dex.Pool, len(pairs))
	for i, p := range pairs {
		pools[i] = p
	}
	return e.computeAllRoutes(dex.ProtocolV2, tokenIn, tokenOut, NewV2Route, pools, maxHops)
}

// ComputeAllV3Routes enumerates routes over V3 pools only
func (e *Enumerator) ComputeAllV3Routes(tokenIn, tokenOut types.Token, v3Pools []*uniswap.Pool, maxHops int) []Route {
	pools := make([]dex.Pool, len(v3Pools))
	for i, p := range v3Pools {
		pools[i] = p
	}
	return e.computeAllRoutes(dex.ProtocolV3, tokenIn, tokenOut, NewV3Route, pools, maxHops)
}

// ComputeAllMixedRoutes enumerates over a combined pool set and drops every route made
// entirely of one protocol, since those are produced by the single protocol variants.
func (e *Enumerator) ComputeAllMixedRoutes(tokenIn, tokenOut types.Token, pools []dex.Pool, maxHops int) []Route {
	all := e.computeAllRoutes(dex.ProtocolMixed, tokenIn, tokenOut, NewMixedRoute, pools, maxHops)

	mixed := make([]Route, 0, len(all))
	for _, route := range all {
		if route.IsPure(dex.ProtocolV2) || route.IsPure(dex.ProtocolV3) {
			continue
		}
		mixed = append(mixed, route)
	}

	e.logger.Debug("Filtered single protocol routes from mixed set",
		zap.Int("before", len(all)),
		zap.Int("after", len(mixed)))

	return mixed
}

func (e *Enumerator) report(protocol dex.Protocol, routes []Route) {
	descriptions := make([]string, len(routes))
	for i, r := range routes {
		descriptions[i] = r.String()
	}
	e.logger.Info(fmt.Sprintf("Computed %d possible routes.", len(routes)),
		zap.Stringer("protocol", protocol),
		zap.Strings("routes", descriptions))

	if e.metrics == nil {
		return
	}
	e.metrics.Enumerations.WithLabelValues(protocol.String()).Inc()
	e.metrics.RoutesComputed.WithLabelValues(protocol.String()).Add(float64(len(routes)))
	for _, r := range routes {
		e.metrics.RouteHops.Observe(float64(r.HopCount()))
	}
}
