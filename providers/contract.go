package providers

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/michaelpento.lv/routegas/utils"
	"github.com/michaelpento.lv/routegas/utils/metrics"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ContractOptions configures the on chain providers
type ContractOptions struct {
	// RateLimit bounds contract calls per second; zero disables throttling
	RateLimit float64
	RateBurst int
	// CallTimeout bounds each call including the wait for the limiter; zero means no bound
	CallTimeout time.Duration
	Logger      *zap.Logger
	Metrics     *metrics.ProviderMetrics
}

func newLimiter(opts ContractOptions) *rate.Limiter {
	limit := rate.Inf
	if opts.RateLimit > 0 {
		limit = rate.Limit(opts.RateLimit)
	}
	burst := opts.RateBurst
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(limit, burst)
}

// contractReader performs throttled, instrumented view calls on one contract.
// Readers built from the same limiter share its budget.
type contractReader struct {
	contract *bind.BoundContract
	address  common.Address
	limiter  *rate.Limiter
	timeout  time.Duration
	logger   *zap.Logger
	metrics  *metrics.ProviderMetrics
}

func newContractReader(address common.Address, rawABI string, caller bind.ContractCaller, limiter *rate.Limiter, opts ContractOptions) (*contractReader, error) {
	parsed, err := abi.JSON(strings.NewReader(rawABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse ABI: %w", err)
	}

	return &contractReader{
		contract: bind.NewBoundContract(address, parsed, caller, nil, nil),
		address:  address,
		limiter:  limiter,
		timeout:  opts.CallTimeout,
		logger:   utils.OrNop(opts.Logger),
		metrics:  opts.Metrics,
	}, nil
}

func (r *contractReader) callRaw(ctx context.Context, method string) ([]interface{}, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter error: %w", err)
	}

	start := time.Now()
	var out []interface{}
	err := r.contract.Call(&bind.CallOpts{Context: ctx}, &out, method)
	if r.metrics != nil {
		r.metrics.RPCCalls.WithLabelValues(method).Inc()
		r.metrics.RPCLatency.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		r.logger.Error("Contract call failed",
			zap.String("contract", r.address.Hex()),
			zap.String("method", method),
			zap.Error(err))
		return nil, fmt.Errorf("failed to call %s: %w", method, err)
	}
	return out, nil
}

// call expects every output to be an integer wider than 64 bits
func (r *contractReader) call(ctx context.Context, method string) ([]*big.Int, error) {
	out, err := r.callRaw(ctx, method)
	if err != nil {
		return nil, err
	}

	values := make([]*big.Int, len(out))
	for i, v := range out {
		n, ok := v.(*big.Int)
		if !ok {
			return nil, fmt.Errorf("unexpected %s output type %T", method, v)
		}
		values[i] = n
	}
	return values, nil
}
