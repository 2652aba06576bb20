package gas

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/michaelpento.lv/routegas/utils"
	"go.uber.org/zap"
)

// ErrNoGasPrice is returned before the first successful refresh
var ErrNoGasPrice = errors.New("gas price not yet fetched")

// GasPriceSource is the subset of ethclient.Client used to price gas
type GasPriceSource interface {
	HeaderByNumber(ctx context.Context, number *big.Int) (*ethtypes.Header, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
}

// PriceEstimator tracks the current gas price of a chain
type PriceEstimator struct {
	source      GasPriceSource
	logger      *zap.Logger
	baseFee     *big.Int
	priorityFee *big.Int
	updatedAt   time.Time
	mu          sync.RWMutex
}

// NewPriceEstimator creates an estimator; call Refresh or Start before reading prices
func NewPriceEstimator(source GasPriceSource, logger *zap.Logger) *PriceEstimator {
	return &PriceEstimator{
		source: source,
		logger: utils.OrNop(logger),
	}
}

// Start refreshes the price every interval until ctx is cancelled
func (e *PriceEstimator) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := e.Refresh(ctx); err != nil {
					e.logger.Error("Failed to update gas prices", zap.Error(err))
				}
			}
		}
	}()
}

// Refresh fetches the latest base fee and priority fee. Chains without a base fee
// fall back to the legacy gas price suggestion.
func (e *PriceEstimator) Refresh(ctx context.Context) error {
	header, err := e.source.HeaderByNumber(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to get latest header: %w", err)
	}

	var baseFee, priorityFee *big.Int
	if header.BaseFee != nil {
		baseFee = new(big.Int).Set(header.BaseFee)
		priorityFee, err = e.source.SuggestGasTipCap(ctx)
		if err != nil {
			return fmt.Errorf("failed to get priority fee: %w", err)
		}
	} else {
		baseFee, err = e.source.SuggestGasPrice(ctx)
		if err != nil {
			return fmt.Errorf("failed to get gas price: %w", err)
		}
		priorityFee = big.NewInt(0)
	}

	e.mu.Lock()
	e.baseFee = baseFee
	e.priorityFee = priorityFee
	e.updatedAt = time.Now()
	e.mu.Unlock()

	e.logger.Debug("Updated gas price",
		zap.String("baseFee", baseFee.String()),
		zap.String("priorityFee", priorityFee.String()))

	return nil
}

// GasPriceWei returns base fee plus priority fee
func (e *PriceEstimator) GasPriceWei() (*big.Int, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.baseFee == nil {
		return nil, ErrNoGasPrice
	}
	return new(big.Int).Add(e.baseFee, e.priorityFee), nil
}

// UpdatedAt returns when the price was last refreshed
func (e *PriceEstimator) UpdatedAt() time.Time {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.updatedAt
}
