package cmd

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/michaelpento.lv/routegas/config"
	"github.com/michaelpento.lv/routegas/utils"
	"github.com/michaelpento.lv/routegas/utils/metrics"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfgFile   string
	poolsFile string
	debug     bool

	cfg *config.Config
	log *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "routegas",
	Short: "Enumerate swap routes and estimate their gas cost",
	Long: `routegas enumerates candidate V2, V3 and mixed swap routes over a pool
snapshot and prices each one with a heuristic gas model, including the L1
security fee charged by Optimism and Arbitrum.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.routegas.yaml)")
	rootCmd.PersistentFlags().StringVar(&poolsFile, "pools", "", "pool snapshot file (overrides pools_file)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

func initConfig() {
	if err := config.LoadEnv(); err != nil {
		utils.InitLogger(debug).Fatal("Failed to load .env", zap.Error(err))
	}

	loaded, err := config.LoadConfig(cfgFile)
	if err != nil {
		utils.InitLogger(debug).Fatal("Failed to load configuration", zap.Error(err))
	}

	log = utils.InitLogger(debug || loaded.Logging.Debug, loaded.Logging.OutputPaths...)
	loaded.Logger = log
	if poolsFile != "" {
		loaded.PoolsFile = poolsFile
	}
	cfg = loaded

	metrics.Initialize(&metrics.MetricsConfig{
		Namespace:  cfg.Metrics.Namespace,
		LogMetrics: cfg.Metrics.Enabled,
	}, log)
}

func loadPools() (*config.PoolSet, error) {
	if cfg.PoolsFile == "" {
		return nil, fmt.Errorf("no pool snapshot configured, set pools_file or --pools")
	}
	set, err := config.LoadPoolFixtures(cfg.PoolsFile)
	if err != nil {
		return nil, err
	}
	log.Debug("Loaded pool snapshot",
		zap.String("file", cfg.PoolsFile),
		zap.Stringer("chain", set.ChainID),
		zap.Int("pools", len(set.All)))
	return set, nil
}

var client *ethclient.Client

// dial connects to the configured RPC endpoint once per process
func dial(ctx context.Context) (*ethclient.Client, error) {
	if client != nil {
		return client, nil
	}
	if cfg.RPCEndpoint == "" {
		return nil, fmt.Errorf("rpc_endpoint is not configured")
	}
	c, err := ethclient.DialContext(ctx, cfg.RPCEndpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.RPCEndpoint, err)
	}
	client = c
	return client, nil
}
