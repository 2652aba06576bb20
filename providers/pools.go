// Package providers resolves pools and L2 gas parameters for the gas model.
package providers

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru"
	"github.com/michaelpento.lv/routegas/dex"
	"github.com/michaelpento.lv/routegas/gas"
	"github.com/michaelpento.lv/routegas/types"
	"github.com/michaelpento.lv/routegas/utils"
	"github.com/michaelpento.lv/routegas/utils/metrics"
	"go.uber.org/zap"
)

// StaticPoolProvider serves pools loaded up front, for example from a fixture file
type StaticPoolProvider struct {
	pools map[types.ChainID][]dex.Pool
	mu    sync.RWMutex
}

func NewStaticPoolProvider() *StaticPoolProvider {
	return &StaticPoolProvider{
		pools: make(map[types.ChainID][]dex.Pool),
	}
}

// Add registers pools on a chain
func (p *StaticPoolProvider) Add(chainID types.ChainID, pools ...dex.Pool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pools[chainID] = append(p.pools[chainID], pools...)
}

// Pools returns a copy of the pools on a chain
func (p *StaticPoolProvider) Pools(_ context.Context, chainID types.ChainID) ([]dex.Pool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]dex.Pool, len(p.pools[chainID]))
	copy(out, p.pools[chainID])
	return out, nil
}

// HighestLiquidityPool returns the deepest pool holding both tokens. The first pool
// wins a tie.
func (p *StaticPoolProvider) HighestLiquidityPool(_ context.Context, chainID types.ChainID, tokenA, tokenB types.Token) (dex.Pool, bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var best dex.Pool
	for _, pool := range p.pools[chainID] {
		if !pool.InvolvesToken(tokenA) || !pool.InvolvesToken(tokenB) {
			continue
		}
		if best == nil || pool.Liquidity().Cmp(best.Liquidity()) > 0 {
			best = pool
		}
	}
	return best, best != nil, nil
}

type cachedLookup struct {
	pool dex.Pool
	ok   bool
}

// CachingPoolProvider memoises lookups of another provider in an LRU cache.
// Failed lookups are not cached.
type CachingPoolProvider struct {
	source  gas.PoolProvider
	cache   *lru.Cache
	logger  *zap.Logger
	metrics *metrics.ProviderMetrics
}

func NewCachingPoolProvider(source gas.PoolProvider, size int, logger *zap.Logger, m *metrics.ProviderMetrics) (*CachingPoolProvider, error) {
	cache, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache: %w", err)
	}

	return &CachingPoolProvider{
		source:  source,
		cache:   cache,
		logger:  utils.OrNop(logger),
		metrics: m,
	}, nil
}

// Pools returns the source pools for a chain, caching the list
func (c *CachingPoolProvider) Pools(ctx context.Context, chainID types.ChainID) ([]dex.Pool, error) {
	key := chainKey(chainID)
	if v, ok := c.cache.Get(key); ok {
		c.hit()
		return v.([]dex.Pool), nil
	}
	c.miss()

	pools, err := c.source.Pools(ctx, chainID)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, pools)
	return pools, nil
}

// HighestLiquidityPool resolves a token pair once per cache lifetime, in either order
func (c *CachingPoolProvider) HighestLiquidityPool(ctx context.Context, chainID types.ChainID, tokenA, tokenB types.Token) (dex.Pool, bool, error) {
	key := pairKey(chainID, tokenA, tokenB)
	if v, ok := c.cache.Get(key); ok {
		c.hit()
		entry := v.(cachedLookup)
		return entry.pool, entry.ok, nil
	}
	c.miss()

	pool, ok, err := c.source.HighestLiquidityPool(ctx, chainID, tokenA, tokenB)
	if err != nil {
		return nil, false, err
	}
	c.cache.Add(key, cachedLookup{pool: pool, ok: ok})

	c.logger.Debug("Cached pool lookup",
		zap.Stringer("chain", chainID),
		zap.Stringer("tokenA", tokenA),
		zap.Stringer("tokenB", tokenB),
		zap.Bool("found", ok))

	return pool, ok, nil
}

// Purge drops every cached lookup
func (c *CachingPoolProvider) Purge() {
	c.cache.Purge()
}

func (c *CachingPoolProvider) hit() {
	if c.metrics != nil {
		c.metrics.CacheHits.Inc()
	}
}

func (c *CachingPoolProvider) miss() {
	if c.metrics != nil {
		c.metrics.CacheMisses.Inc()
	}
}

func chainKey(chainID types.ChainID) uint64 {
	d := xxhash.New()
	_, _ = d.WriteString("pools")
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(chainID))
	_, _ = d.Write(buf[:])
	return d.Sum64()
}

// pairKey is order independent so A/B and B/A share an entry
func pairKey(chainID types.ChainID, tokenA, tokenB types.Token) uint64 {
	if tokenB.SortsBefore(tokenA) {
		tokenA, tokenB = tokenB, tokenA
	}

	d := xxhash.New()
	_, _ = d.WriteString("pair")
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(chainID))
	_, _ = d.Write(buf[:])
	_, _ = d.Write(tokenA.Address.Bytes())
	_, _ = d.Write(tokenB.Address.Bytes())
	return d.Sum64()
}
