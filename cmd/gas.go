package cmd

import (
	"context"
	"fmt"
	"io"
	"math/big"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/michaelpento.lv/routegas/calldata"
	"github.com/michaelpento.lv/routegas/config"
	"github.com/michaelpento.lv/routegas/gas"
	"github.com/michaelpento.lv/routegas/providers"
	"github.com/michaelpento.lv/routegas/routing"
	"github.com/michaelpento.lv/routegas/types"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	amountFlag   string
	exactOutput  bool
	watch        bool
	showCalldata bool
)

var gasCmd = &cobra.Command{
	Use:   "gas <tokenIn> <tokenOut>",
	Short: "Estimate the gas cost of every candidate route",
	Long: `Quotes every candidate route at mid price and prints its heuristic gas
estimate in the quote token and in USD. On Optimism and Arbitrum the L1
security fee of each route is printed as well.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		set, err := loadPools()
		if err != nil {
			return err
		}
		tokenIn, tokenOut, err := resolvePair(set.Token, args)
		if err != nil {
			return err
		}

		tradeType, amountToken, quoteToken := types.ExactInput, tokenIn, tokenOut
		if exactOutput {
			tradeType, amountToken, quoteToken = types.ExactOutput, tokenOut, tokenIn
		}
		amount, err := types.ParseAmount(amountToken, amountFlag)
		if err != nil {
			return err
		}

		var quoted []routing.RouteWithQuote
		for _, r := range enumerate(set.Pairs, set.Pools, set.All, tokenIn, tokenOut) {
			q, err := routing.QuoteAtMidPrice(r, amount, tradeType)
			if err != nil {
				return err
			}
			quoted = append(quoted, q)
		}
		if len(quoted) == 0 {
			return fmt.Errorf("no routes from %s to %s", tokenIn, tokenOut)
		}

		static := providers.NewStaticPoolProvider()
		static.Add(set.ChainID, set.All...)
		m := instruments()
		poolProvider, err := providers.NewCachingPoolProvider(static, cfg.Cache.PoolCacheSize, log, m.provider)
		if err != nil {
			return err
		}

		gasPrice, err := gasPriceSource(ctx, set.ChainID)
		if err != nil {
			return err
		}
		l2Data, err := l2GasDataProvider(ctx, set.ChainID)
		if err != nil {
			return err
		}

		encoder, err := calldata.NewEncoder(log)
		if err != nil {
			return err
		}

		factory := gas.NewHeuristicGasModelFactory(log, m.gas)
		report := func() error {
			price, err := gasPrice.GasPriceWei()
			if err != nil {
				return err
			}
			model, err := factory.BuildGasModel(ctx, gas.BuildParams{
				ChainID:           set.ChainID,
				GasPriceWei:       price,
				Token:             quoteToken,
				PoolProvider:      poolProvider,
				L2GasDataProvider: l2Data,
				CalldataBuilder:   encoder,
			})
			if err != nil {
				return err
			}
			if err := printCosts(cmd.OutOrStdout(), model, price, quoted); err != nil {
				return err
			}
			if showCalldata {
				return printCalldata(cmd.OutOrStdout(), encoder, quoted)
			}
			return nil
		}

		if !watch {
			return report()
		}

		srv := serveMetrics(ctx)
		est, live := gasPrice.(*gas.PriceEstimator)
		if live {
			est.Start(ctx, cfg.Gas.RefreshInterval)
		}
		ticker := time.NewTicker(cfg.Gas.RefreshInterval)
		defer ticker.Stop()
		for {
			if live {
				warnIfStale(est.UpdatedAt(), time.Now(), cfg.Gas.RefreshInterval)
			}
			if err := report(); err != nil {
				log.Error("Failed to estimate gas", zap.Error(err))
			}
			select {
			case <-ctx.Done():
				if srv != nil {
					srv.Wait()
				}
				return nil
			case <-ticker.C:
				poolProvider.Purge()
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(gasCmd)
	gasCmd.Flags().StringVar(&amountFlag, "amount", "1", "trade amount in whole tokens")
	gasCmd.Flags().BoolVar(&exactOutput, "exact-output", false, "treat --amount as the desired output")
	gasCmd.Flags().BoolVar(&watch, "watch", false, "re-estimate every gas.refresh_interval until interrupted")
	gasCmd.Flags().BoolVar(&showCalldata, "calldata", false, "print the router calls measured for the L1 fee")
}

type gasPricer interface {
	GasPriceWei() (*big.Int, error)
}

type fixedGasPrice struct{ wei *big.Int }

func (f fixedGasPrice) GasPriceWei() (*big.Int, error) { return f.wei, nil }

// gasPriceSource prefers the configured price and falls back to the node
func gasPriceSource(ctx context.Context, chainID types.ChainID) (gasPricer, error) {
	configured, err := cfg.Gas.GasPrice()
	if err != nil {
		return nil, err
	}
	if configured != nil {
		return fixedGasPrice{wei: configured}, nil
	}

	c, err := dial(ctx)
	if err != nil {
		return nil, err
	}
	est := gas.NewPriceEstimator(c, log)
	if err := est.Refresh(ctx); err != nil {
		return nil, err
	}
	log.Debug("Fetched gas price", zap.Stringer("chain", chainID))
	return est, nil
}

// l2GasDataProvider returns nil on L1 chains
func l2GasDataProvider(ctx context.Context, chainID types.ChainID) (gas.L2GasDataProvider, error) {
	family := gas.L1FeeFamilyOf(chainID)
	if family == gas.L1FeeNone {
		return nil, nil
	}
	if cfg.Gas.L2GasData != nil {
		data, err := cfg.Gas.L2GasData.GasData()
		if err != nil {
			return nil, err
		}
		if data.Family() != family {
			return nil, fmt.Errorf("configured %s gas data on a %s chain", data.Family(), family)
		}
		return providers.StaticGasDataProvider{Data: data}, nil
	}

	c, err := dial(ctx)
	if err != nil {
		return nil, err
	}
	opts := contractOptions(cfg.RPCRateLimit)
	if family == gas.L1FeeOptimism {
		return providers.NewOptimismGasDataProvider(c, opts)
	}
	return providers.NewArbitrumGasDataProvider(c, opts)
}

func contractOptions(rl config.RateLimitConfig) providers.ContractOptions {
	return providers.ContractOptions{
		RateLimit:   rl.RequestsPerSecond,
		RateBurst:   rl.BurstSize,
		CallTimeout: rl.WaitTimeout,
		Logger:      log,
		Metrics:     instruments().provider,
	}
}

func printCosts(out io.Writer, model *gas.Model, gasPrice *big.Int, routes []routing.RouteWithQuote) error {
	fmt.Fprintf(out, "chain %s, gas price %s wei\n", model.ChainID(), gasPrice)

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ROUTE\tQUOTE\tGAS\tCOST\tCOST USD\tL1 GAS\tL1 COST USD\tTOTAL USD\tSTATUS")
	for _, r := range routes {
		cost, err := model.EstimateGasCost(r)
		if err != nil {
			return err
		}
		l1Used, l1USD, totalUSD := "n/a", "n/a", "n/a"
		l1, err := model.CalculateL1GasFees([]routing.RouteWithQuote{r})
		if err != nil {
			log.Warn("Skipping L1 fee", zap.String("route", r.Route.String()), zap.Error(err))
		} else {
			l1Used, l1USD = l1.GasUsedL1.String(), l1.GasCostL1USD.ToFixed(4)
			total, err := cost.GasCostInUSD.Add(l1.GasCostL1USD)
			if err != nil {
				return err
			}
			totalUSD = total.ToFixed(2)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.Route,
			r.Quote.ToFixed(6),
			cost.GasEstimate,
			cost.GasCostInToken.ToFixed(6),
			cost.GasCostInUSD.ToFixed(2),
			l1Used,
			l1USD,
			totalUSD,
			cost.Status)
	}
	return w.Flush()
}

// printCalldata decodes the multicall built for each route and lists its inner calls
func printCalldata(out io.Writer, encoder *calldata.Encoder, routes []routing.RouteWithQuote) error {
	for _, r := range routes {
		data, err := encoder.SwapCalldata([]routing.RouteWithQuote{r}, calldata.DefaultSwapOptions())
		if err != nil {
			fmt.Fprintf(out, "%s: %v\n", r.Route, err)
			continue
		}
		deadline, calls, err := encoder.Decode(data)
		if err != nil {
			return fmt.Errorf("failed to decode calldata of %s: %w", r.Route, err)
		}
		methods := make([]string, len(calls))
		for i, c := range calls {
			methods[i] = c.Method
		}
		fmt.Fprintf(out, "%s: %d bytes, multicall(deadline %s) %s\n",
			r.Route, len(data), deadline, strings.Join(methods, ", "))
	}
	return nil
}

// warnIfStale flags a gas price the background refresh has not updated for two intervals
func warnIfStale(updatedAt, now time.Time, interval time.Duration) bool {
	age := now.Sub(updatedAt)
	if age <= 2*interval {
		return false
	}
	log.Warn("Gas price is stale", zap.Duration("age", age), zap.Time("updatedAt", updatedAt))
	return true
}
