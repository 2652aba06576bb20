package routing

import (
	"strconv"
	"strings"

	"github.com/michaelpento.lv/routegas/dex"
	"github.com/michaelpento.lv/routegas/types"
)

// Route is an ordered simple path of pools from Input to Output.
// Protocol tags the variant; a Route is never modified after construction.
type Route struct {
	Protocol dex.Protocol
	Pools    []dex.Pool
	// Path holds the token reached after each hop, starting with Input
	Path   []types.Token
	Input  types.Token
	Output types.Token
}

// RouteBuilder constructs the concrete route variant for an accepted path.
// The pools slice is owned by the callee.
type RouteBuilder func(pools []dex.Pool, tokenIn, tokenOut types.Token) Route

// NewV2Route builds a route made of V2 pairs
func NewV2Route(pools []dex.Pool, tokenIn, tokenOut types.Token) Route {
	return newRoute(dex.ProtocolV2, pools, tokenIn, tokenOut)
}

// NewV3Route builds a route made of V3 pools
func NewV3Route(pools []dex.Pool, tokenIn, tokenOut types.Token) Route {
	return newRoute(dex.ProtocolV3, pools, tokenIn, tokenOut)
}

// NewMixedRoute builds a route that may combine V2 and V3 pools
func NewMixedRoute(pools []dex.Pool, tokenIn, tokenOut types.Token) Route {
	return newRoute(dex.ProtocolMixed, pools, tokenIn, tokenOut)
}

func newRoute(protocol dex.Protocol, pools []dex.Pool, tokenIn, tokenOut types.Token) Route {
	path := make([]types.Token, 0, len(pools)+1)
	path = append(path, tokenIn)
	current := tokenIn
	for _, pool := range pools {
		current = pool.OtherToken(current)
		path = append(path, current)
	}

	return Route{
		Protocol: protocol,
		Pools:    pools,
		Path:     path,
		Input:    tokenIn,
		Output:   tokenOut,
	}
}

// HopCount returns the number of pools traversed
func (r Route) HopCount() int {
	return len(r.Pools)
}

// IsPure reports whether every pool of the route belongs to protocol
func (r Route) IsPure(protocol dex.Protocol) bool {
	for _, pool := range r.Pools {
		if pool.Protocol() != protocol {
			return false
		}
	}
	return true
}

// String renders the route as [V3] USDC -- V3@500 --> WETH
func (r Route) String() string {
	var b strings.Builder
	b.WriteString("[")
	b.WriteString(r.Protocol.String())
	b.WriteString("] ")
	if len(r.Path) > 0 {
		b.WriteString(r.Path[0].String())
	}
	for i, pool := range r.Pools {
		b.WriteString(" -- ")
		b.WriteString(pool.Protocol().String())
		if f, ok := pool.(interface{ FeeTier() uint32 }); ok && pool.Protocol() == dex.ProtocolV3 {
			b.WriteString("@")
			b.WriteString(strconv.FormatUint(uint64(f.FeeTier()), 10))
		}
		b.WriteString(" --> ")
		if i+1 < len(r.Path) {
			b.WriteString(r.Path[i+1].String())
		}
	}
	return b.String()
}

// RouteWithQuote is a route plus the amounts and execution metrics from quoting it
type RouteWithQuote struct {
	Route     Route
	Amount    types.CurrencyAmount
	Quote     types.CurrencyAmount
	TradeType types.TradeType
	// InitializedTicksCrossedList holds one entry per pool of the route
	InitializedTicksCrossedList []uint32
}

// HopCount returns the number of pools in the quoted route
func (r RouteWithQuote) HopCount() int {
	return r.Route.HopCount()
}

// TicksCrossed sums initialized ticks crossed across all pools
func (r RouteWithQuote) TicksCrossed() uint64 {
	var total uint64
	for _, ticks := range r.InitializedTicksCrossedList {
		total += uint64(ticks)
	}
	return total
}

// InputAmount returns the amount that enters the route
func (r RouteWithQuote) InputAmount() types.CurrencyAmount {
	if r.TradeType == types.ExactInput {
		return r.Amount
	}
	return r.Quote
}

// OutputAmount returns the amount that leaves the route
func (r RouteWithQuote) OutputAmount() types.CurrencyAmount {
	if r.TradeType == types.ExactInput {
		return r.Quote
	}
	return r.Amount
}
