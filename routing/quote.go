package routing

import (
	"fmt"

	"github.com/michaelpento.lv/routegas/dex"
	"github.com/michaelpento.lv/routegas/types"
)

// QuoteAtMidPrice quotes a route at the current mid price of each pool,
// ignoring fees and price impact. Each V3 pool is assumed to cross one
// initialized tick.
func QuoteAtMidPrice(route Route, amount types.CurrencyAmount, tradeType types.TradeType) (RouteWithQuote, error) {
	quote := amount
	ticks := make([]uint32, len(route.Pools))

	hop := func(i int) error {
		pool := route.Pools[i]
		if pool.Protocol() == dex.ProtocolV3 {
			ticks[i] = 1
		}

		from := route.Path[i]
		if tradeType == types.ExactOutput {
			from = route.Path[i+1]
		}
		price := pool.Token0Price()
		if !from.Equals(pool.Token0()) {
			price = pool.Token1Price()
		}

		next, err := price.Quote(quote)
		if err != nil {
			return fmt.Errorf("hop %d through %s: %w", i, dex.Label(pool), err)
		}
		quote = next
		return nil
	}

	if tradeType == types.ExactOutput {
		for i := len(route.Pools) - 1; i >= 0; i-- {
			if err := hop(i); err != nil {
				return RouteWithQuote{}, err
			}
		}
	} else {
		for i := range route.Pools {
			if err := hop(i); err != nil {
				return RouteWithQuote{}, err
			}
		}
	}

	return RouteWithQuote{
		Route:                       route,
		Amount:                      amount,
		Quote:                       quote,
		TradeType:                   tradeType,
		InitializedTicksCrossedList: ticks,
	}, nil
}
