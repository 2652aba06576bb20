package config

import (
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/michaelpento.lv/routegas/dex"
	"github.com/michaelpento.lv/routegas/gas"
	"github.com/michaelpento.lv/routegas/types"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"
)

type Config struct {
	// Chain and network settings
	ChainID     uint64 `yaml:"chain_id"`
	RPCEndpoint string `yaml:"rpc_endpoint"`
	PoolsFile   string `yaml:"pools_file"`

	Routing      RoutingConfig   `yaml:"routing"`
	Gas          GasConfig       `yaml:"gas"`
	Cache        CacheConfig     `yaml:"cache"`
	RPCRateLimit RateLimitConfig `yaml:"rpc_rate_limit"`
	Metrics      MetricsConfig   `yaml:"metrics"`
	Logging      LoggingConfig   `yaml:"logging"`

	// Internal components
	Logger *zap.Logger `yaml:"-"`
}

type RoutingConfig struct {
	MaxHops   int      `yaml:"max_hops"`
	Protocols []string `yaml:"protocols"` // v2, v3, mixed
}

type GasConfig struct {
	// GasPriceWei overrides the on chain gas price when set
	GasPriceWei     string        `yaml:"gas_price_wei"`
	RefreshInterval time.Duration `yaml:"refresh_interval"`
	// L2GasData overrides the on chain L2 fee parameters when set
	L2GasData *L2GasDataConfig `yaml:"l2_gas_data,omitempty"`
}

// L2GasDataConfig holds decimal strings; Optimism fields or Arbitrum fields are set, not both
type L2GasDataConfig struct {
	L1BaseFee        string `yaml:"l1_base_fee,omitempty"`
	Scalar           string `yaml:"scalar,omitempty"`
	Decimals         string `yaml:"decimals,omitempty"`
	Overhead         string `yaml:"overhead,omitempty"`
	PerL2TxFee       string `yaml:"per_l2_tx_fee,omitempty"`
	PerL1CalldataFee string `yaml:"per_l1_calldata_fee,omitempty"`
}

type CacheConfig struct {
	PoolCacheSize int `yaml:"pool_cache_size"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	BurstSize         int           `yaml:"burst_size"`
	WaitTimeout       time.Duration `yaml:"wait_timeout"`
}

type MetricsConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Namespace     string `yaml:"namespace"`
	ListenAddress string `yaml:"listen_address"`
}

type LoggingConfig struct {
	Debug       bool     `yaml:"debug"`
	OutputPaths []string `yaml:"output_paths"`
}

// DefaultConfig returns a mainnet configuration with three hop routing
func DefaultConfig() *Config {
	return &Config{
		ChainID:     1,
		RPCEndpoint: "http://localhost:8545",
		Routing: RoutingConfig{
			MaxHops:   3,
			Protocols: []string{"v2", "v3", "mixed"},
		},
		Gas: GasConfig{
			RefreshInterval: 12 * time.Second,
		},
		Cache: CacheConfig{
			PoolCacheSize: 1024,
		},
		RPCRateLimit: RateLimitConfig{
			RequestsPerSecond: 10,
			BurstSize:         20,
			WaitTimeout:       time.Second,
		},
		Metrics: MetricsConfig{
			Namespace:     "routegas",
			ListenAddress: ":9090",
		},
	}
}

func (c *Config) Validate() error {
	var errors []string

	if c.ChainID == 0 {
		errors = append(errors, "chain_id must be specified")
	}
	if c.RPCEndpoint == "" && (c.Gas.GasPriceWei == "" || c.Gas.L2GasData == nil && isL2(c.ChainID)) {
		errors = append(errors, "rpc_endpoint must be specified unless gas data is configured")
	}

	if err := c.Routing.Validate(); err != nil {
		errors = append(errors, fmt.Sprintf("routing config error: %v", err))
	}
	if err := c.Gas.Validate(); err != nil {
		errors = append(errors, fmt.Sprintf("gas config error: %v", err))
	}
	if c.Cache.PoolCacheSize <= 0 {
		errors = append(errors, "pool_cache_size must be positive")
	}
	if err := c.RPCRateLimit.Validate(); err != nil {
		errors = append(errors, fmt.Sprintf("RPC rate limit error: %v", err))
	}
	if c.Metrics.Enabled && c.Metrics.ListenAddress == "" {
		errors = append(errors, "metrics listen_address must be specified when metrics are enabled")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errors, "; "))
	}

	return nil
}

func (r *RoutingConfig) Validate() error {
	if r.MaxHops <= 0 {
		return fmt.Errorf("max hops must be positive")
	}
	if len(r.Protocols) == 0 {
		return fmt.Errorf("at least one protocol must be enabled")
	}
	for _, p := range r.Protocols {
		if _, err := dex.ParseProtocol(p); err != nil {
			return err
		}
	}
	return nil
}

func (g *GasConfig) Validate() error {
	if g.GasPriceWei != "" {
		if _, err := ParseWei(g.GasPriceWei); err != nil {
			return fmt.Errorf("gas_price_wei: %w", err)
		}
	}
	if g.RefreshInterval <= 0 {
		return fmt.Errorf("refresh interval must be positive")
	}
	if g.L2GasData != nil {
		if _, err := g.L2GasData.GasData(); err != nil {
			return fmt.Errorf("l2_gas_data.%w", err)
		}
	}
	return nil
}

func (r *RateLimitConfig) Validate() error {
	if r.RequestsPerSecond <= 0 {
		return fmt.Errorf("requests per second must be positive")
	}
	if r.BurstSize <= 0 {
		return fmt.Errorf("burst size must be positive")
	}
	if r.WaitTimeout <= 0 {
		return fmt.Errorf("wait timeout must be positive")
	}

	return nil
}

// GasPrice returns the configured gas price, or nil when it should be fetched
func (g *GasConfig) GasPrice() (*big.Int, error) {
	if g.GasPriceWei == "" {
		return nil, nil
	}
	return ParseWei(g.GasPriceWei)
}

// Enabled reports whether a protocol is listed in the routing config
func (r *RoutingConfig) Enabled(protocol dex.Protocol) bool {
	for _, p := range r.Protocols {
		if parsed, err := dex.ParseProtocol(p); err == nil && parsed == protocol {
			return true
		}
	}
	return false
}

// ParseWei parses a non negative decimal integer
func ParseWei(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(strings.TrimSpace(s), 10)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	return v, nil
}

func isL2(chainID uint64) bool {
	return gas.L1FeeFamilyOf(types.ChainID(chainID)) != gas.L1FeeNone
}

// GasData converts the configured values into L2 gas parameters
func (l *L2GasDataConfig) GasData() (gas.L2GasData, error) {
	if l.PerL2TxFee != "" || l.PerL1CalldataFee != "" {
		perTx, err := ParseWei(l.PerL2TxFee)
		if err != nil {
			return nil, fmt.Errorf("per_l2_tx_fee: %w", err)
		}
		perByte, err := ParseWei(l.PerL1CalldataFee)
		if err != nil {
			return nil, fmt.Errorf("per_l1_calldata_fee: %w", err)
		}
		return gas.ArbitrumGasData{PerL2TxFee: perTx, PerL1CalldataFee: perByte}, nil
	}

	var values [4]*big.Int
	for i, field := range []struct{ name, value string }{
		{"l1_base_fee", l.L1BaseFee},
		{"scalar", l.Scalar},
		{"decimals", l.Decimals},
		{"overhead", l.Overhead},
	} {
		v, err := ParseWei(field.value)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", field.name, err)
		}
		values[i] = v
	}
	return gas.OptimismGasData{
		L1BaseFee: values[0],
		Scalar:    values[1],
		Decimals:  values[2],
		Overhead:  values[3],
	}, nil
}

func defaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, ".routegas.yaml"), nil
}

// LoadConfig reads a YAML file over the defaults, then applies ROUTEGAS_* overrides.
// A missing file at the default path is not an error.
func LoadConfig(cfgFile string) (*Config, error) {
	config := DefaultConfig()

	explicit := cfgFile != ""
	if !explicit {
		path, err := defaultConfigPath()
		if err != nil {
			return nil, err
		}
		cfgFile = path
	}

	data, err := os.ReadFile(cfgFile)
	switch {
	case err == nil:
		if err := yaml.UnmarshalStrict(data, config); err != nil {
			return nil, fmt.Errorf("failed to decode config file: %w", err)
		}
	case os.IsNotExist(err) && !explicit:
	default:
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}

	if err := applyEnv(config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func applyEnv(c *Config) error {
	if v := os.Getenv(EnvChainID); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvChainID, err)
		}
		c.ChainID = id
	}
	if v := os.Getenv(EnvMaxHops); v != "" {
		hops, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvMaxHops, err)
		}
		c.Routing.MaxHops = hops
	}
	c.RPCEndpoint = GetEnvWithDefault(EnvRPCEndpoint, c.RPCEndpoint)
	c.PoolsFile = GetEnvWithDefault(EnvPoolsFile, c.PoolsFile)
	c.Gas.GasPriceWei = GetEnvWithDefault(EnvGasPriceWei, c.Gas.GasPriceWei)
	return nil
}

func SaveConfig(cfg *Config, cfgFile string) error {
	if cfgFile == "" {
		path, err := defaultConfigPath()
		if err != nil {
			return err
		}
		cfgFile = path
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return os.WriteFile(cfgFile, data, 0o644)
}
