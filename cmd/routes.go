package cmd

import (
	"fmt"

	"github.com/michaelpento.lv/routegas/dex"
	"github.com/michaelpento.lv/routegas/dex/uniswap"
	"github.com/michaelpento.lv/routegas/routing"
	"github.com/michaelpento.lv/routegas/types"
	"github.com/spf13/cobra"
)

var maxHops int

var routesCmd = &cobra.Command{
	Use:   "routes <tokenIn> <tokenOut>",
	Short: "List candidate routes between two tokens",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		set, err := loadPools()
		if err != nil {
			return err
		}
		tokenIn, tokenOut, err := resolvePair(set.Token, args)
		if err != nil {
			return err
		}

		routes := enumerate(set.Pairs, set.Pools, set.All, tokenIn, tokenOut)
		out := cmd.OutOrStdout()
		for _, r := range routes {
			fmt.Fprintln(out, r.String())
		}
		fmt.Fprintf(out, "%d routes\n", len(routes))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(routesCmd)
	rootCmd.PersistentFlags().IntVar(&maxHops, "max-hops", 0, "maximum pools per route (overrides routing.max_hops)")
}

func resolvePair(lookup func(string) (types.Token, bool), args []string) (types.Token, types.Token, error) {
	tokenIn, ok := lookup(args[0])
	if !ok {
		return types.Token{}, types.Token{}, fmt.Errorf("unknown token %q", args[0])
	}
	tokenOut, ok := lookup(args[1])
	if !ok {
		return types.Token{}, types.Token{}, fmt.Errorf("unknown token %q", args[1])
	}
	if tokenIn.Equals(tokenOut) {
		return types.Token{}, types.Token{}, fmt.Errorf("tokenIn and tokenOut must differ")
	}
	return tokenIn, tokenOut, nil
}

// enumerate runs every enabled enumeration and concatenates the results
func enumerate(pairs []*uniswap.Pair, pools []*uniswap.Pool, all []dex.Pool, tokenIn, tokenOut types.Token) []routing.Route {
	hops := cfg.Routing.MaxHops
	if maxHops > 0 {
		hops = maxHops
	}
	enumerator := routing.NewEnumerator(log, instruments().router)

	var routes []routing.Route
	if cfg.Routing.Enabled(dex.ProtocolV2) {
		routes = append(routes, enumerator.ComputeAllV2Routes(tokenIn, tokenOut, pairs, hops)...)
	}
	if cfg.Routing.Enabled(dex.ProtocolV3) {
		routes = append(routes, enumerator.ComputeAllV3Routes(tokenIn, tokenOut, pools, hops)...)
	}
	if cfg.Routing.Enabled(dex.ProtocolMixed) {
		routes = append(routes, enumerator.ComputeAllMixedRoutes(tokenIn, tokenOut, all, hops)...)
	}
	return routes
}
