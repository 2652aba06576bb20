// Package calldata builds representative swap router calldata for quoted routes.
package calldata

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/michaelpento.lv/routegas/dex"
	"github.com/michaelpento.lv/routegas/routing"
	"github.com/michaelpento.lv/routegas/types"
	"github.com/michaelpento.lv/routegas/utils"
	"go.uber.org/zap"
)

// SwapRouterABI is the subset of the SwapRouter02 interface used for encoding
const SwapRouterABI = `[
{"inputs":[{"components":[{"internalType":"bytes","name":"path","type":"bytes"},{"internalType":"address","name":"recipient","type":"address"},{"internalType":"uint256","name":"amountIn","type":"uint256"},{"internalType":"uint256","name":"amountOutMinimum","type":"uint256"}],"internalType":"struct IV3SwapRouter.ExactInputParams","name":"params","type":"tuple"}],"name":"exactInput","outputs":[{"internalType":"uint256","name":"amountOut","type":"uint256"}],"stateMutability":"payable","type":"function"},
{"inputs":[{"components":[{"internalType":"bytes","name":"path","type":"bytes"},{"internalType":"address","name":"recipient","type":"address"},{"internalType":"uint256","name":"amountOut","type":"uint256"},{"internalType":"uint256","name":"amountInMaximum","type":"uint256"}],"internalType":"struct IV3SwapRouter.ExactOutputParams","name":"params","type":"tuple"}],"name":"exactOutput","outputs":[{"internalType":"uint256","name":"amountIn","type":"uint256"}],"stateMutability":"payable","type":"function"},
{"inputs":[{"components":[{"internalType":"address","name":"tokenIn","type":"address"},{"internalType":"address","name":"tokenOut","type":"address"},{"internalType":"uint24","name":"fee","type":"uint24"},{"internalType":"address","name":"recipient","type":"address"},{"internalType":"uint256","name":"amountIn","type":"uint256"},{"internalType":"uint256","name":"amountOutMinimum","type":"uint256"},{"internalType":"uint160","name":"sqrtPriceLimitX96","type":"uint160"}],"internalType":"struct IV3SwapRouter.ExactInputSingleParams","name":"params","type":"tuple"}],"name":"exactInputSingle","outputs":[{"internalType":"uint256","name":"amountOut","type":"uint256"}],"stateMutability":"payable","type":"function"},
{"inputs":[{"components":[{"internalType":"address","name":"tokenIn","type":"address"},{"internalType":"address","name":"tokenOut","type":"address"},{"internalType":"uint24","name":"fee","type":"uint24"},{"internalType":"address","name":"recipient","type":"address"},{"internalType":"uint256","name":"amountOut","type":"uint256"},{"internalType":"uint256","name":"amountInMaximum","type":"uint256"},{"internalType":"uint160","name":"sqrtPriceLimitX96","type":"uint160"}],"internalType":"struct IV3SwapRouter.ExactOutputSingleParams","name":"params","type":"tuple"}],"name":"exactOutputSingle","outputs":[{"internalType":"uint256","name":"amountIn","type":"uint256"}],"stateMutability":"payable","type":"function"},
{"inputs":[{"internalType":"uint256","name":"amountIn","type":"uint256"},{"internalType":"uint256","name":"amountOutMin","type":"uint256"},{"internalType":"address[]","name":"path","type":"address[]"},{"internalType":"address","name":"to","type":"address"}],"name":"swapExactTokensForTokens","outputs":[{"internalType":"uint256","name":"amountOut","type":"uint256"}],"stateMutability":"payable","type":"function"},
{"inputs":[{"internalType":"uint256","name":"amountOut","type":"uint256"},{"internalType":"uint256","name":"amountInMax","type":"uint256"},{"internalType":"address[]","name":"path","type":"address[]"},{"internalType":"address","name":"to","type":"address"}],"name":"swapTokensForExactTokens","outputs":[{"internalType":"uint256","name":"amountIn","type":"uint256"}],"stateMutability":"payable","type":"function"},
{"inputs":[{"internalType":"uint256","name":"deadline","type":"uint256"},{"internalType":"bytes[]","name":"data","type":"bytes[]"}],"name":"multicall","outputs":[{"internalType":"bytes[]","name":"","type":"bytes[]"}],"stateMutability":"payable","type":"function"}
]`

var (
	// ErrMixedRouteExactOutput is returned when a mixed route is encoded for an exact output trade
	ErrMixedRouteExactOutput = errors.New("mixed routes are only supported for exact input trades")
	// ErrNoRoutes is returned when there is nothing to encode
	ErrNoRoutes = errors.New("no routes to encode")
)

// AddressThis makes the router keep the output of an intermediate section
var AddressThis = common.HexToAddress("0x0000000000000000000000000000000000000002")

// SwapOptions configures the outer call
type SwapOptions struct {
	Recipient common.Address
	Deadline  *big.Int
	// SlippageTolerance is a fraction, 5/10000 is 0.05%
	SlippageTolerance *big.Rat
}

// DefaultSwapOptions are the placeholder options used when only the calldata size matters
func DefaultSwapOptions() SwapOptions {
	return SwapOptions{
		Recipient:         common.HexToAddress("0x0000000000000000000000000000000000000001"),
		Deadline:          big.NewInt(100),
		SlippageTolerance: big.NewRat(5, 10000),
	}
}

type exactInputParams struct {
	Path             []byte
	Recipient        common.Address
	AmountIn         *big.Int
	AmountOutMinimum *big.Int
}

type exactOutputParams struct {
	Path            []byte
	Recipient       common.Address
	AmountOut       *big.Int
	AmountInMaximum *big.Int
}

type exactInputSingleParams struct {
	TokenIn           common.Address
	TokenOut          common.Address
	Fee               *big.Int
	Recipient         common.Address
	AmountIn          *big.Int
	AmountOutMinimum  *big.Int
	SqrtPriceLimitX96 *big.Int
}

type exactOutputSingleParams struct {
	TokenIn           common.Address
	TokenOut          common.Address
	Fee               *big.Int
	Recipient         common.Address
	AmountOut         *big.Int
	AmountInMaximum   *big.Int
	SqrtPriceLimitX96 *big.Int
}

// Encoder packs quoted routes into a single router multicall
type Encoder struct {
	router abi.ABI
	logger *zap.Logger
}

// NewEncoder parses the router ABI
func NewEncoder(logger *zap.Logger) (*Encoder, error) {
	router, err := abi.JSON(strings.NewReader(SwapRouterABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse SwapRouter ABI: %w", err)
	}

	return &Encoder{
		router: router,
		logger: utils.OrNop(logger),
	}, nil
}

// SwapCalldata encodes every route of a trade as router calls wrapped in multicall
func (e *Encoder) SwapCalldata(routes []routing.RouteWithQuote, opts SwapOptions) ([]byte, error) {
	if len(routes) == 0 {
		return nil, ErrNoRoutes
	}

	var calls [][]byte
	for _, route := range routes {
		routeCalls, err := e.encodeRoute(route, opts)
		if err != nil {
			return nil, err
		}
		calls = append(calls, routeCalls...)
	}

	data, err := e.router.Pack("multicall", opts.Deadline, calls)
	if err != nil {
		return nil, fmt.Errorf("failed to pack multicall: %w", err)
	}

	e.logger.Debug("Encoded swap calldata",
		zap.Int("routes", len(routes)),
		zap.Int("calls", len(calls)),
		zap.Int("bytes", len(data)))

	return data, nil
}

func (e *Encoder) encodeRoute(route routing.RouteWithQuote, opts SwapOptions) ([][]byte, error) {
	switch route.Route.Protocol {
	case dex.ProtocolV3:
		call, err := e.encodeV3(route.Route.Pools, route.Route.Path, route, opts.Recipient, opts.SlippageTolerance)
		if err != nil {
			return nil, err
		}
		return [][]byte{call}, nil

	case dex.ProtocolV2:
		call, err := e.encodeV2(route.Route.Path, route, opts.Recipient, opts.SlippageTolerance)
		if err != nil {
			return nil, err
		}
		return [][]byte{call}, nil

	case dex.ProtocolMixed:
		if route.TradeType != types.ExactInput {
			return nil, ErrMixedRouteExactOutput
		}
		return e.encodeMixed(route, opts)

	default:
		return nil, fmt.Errorf("unsupported route protocol %s", route.Route.Protocol)
	}
}

func (e *Encoder) encodeV3(pools []dex.Pool, path []types.Token, route routing.RouteWithQuote, recipient common.Address, slippage *big.Rat) ([]byte, error) {
	if len(pools) == 1 {
		return e.encodeV3Single(pools[0], path, route, recipient, slippage)
	}
	if route.TradeType == types.ExactInput {
		encoded, err := EncodeV3Path(pools, path, false)
		if err != nil {
			return nil, err
		}
		return e.router.Pack("exactInput", exactInputParams{
			Path:             encoded,
			Recipient:        recipient,
			AmountIn:         route.Amount.Quotient(),
			AmountOutMinimum: MinimumAmountOut(route.Quote, slippage),
		})
	}

	encoded, err := EncodeV3Path(pools, path, true)
	if err != nil {
		return nil, err
	}
	return e.router.Pack("exactOutput", exactOutputParams{
		Path:            encoded,
		Recipient:       recipient,
		AmountOut:       route.Amount.Quotient(),
		AmountInMaximum: MaximumAmountIn(route.Quote, slippage),
	})
}

// encodeV3Single uses the single pool router methods, which skip the packed path
func (e *Encoder) encodeV3Single(pool dex.Pool, path []types.Token, route routing.RouteWithQuote, recipient common.Address, slippage *big.Rat) ([]byte, error) {
	if len(path) != 2 {
		return nil, fmt.Errorf("path has %d tokens for 1 pool", len(path))
	}
	fee, err := feeTier(pool)
	if err != nil {
		return nil, err
	}

	if route.TradeType == types.ExactInput {
		return e.router.Pack("exactInputSingle", exactInputSingleParams{
			TokenIn:           path[0].Address,
			TokenOut:          path[1].Address,
			Fee:               new(big.Int).SetUint64(uint64(fee)),
			Recipient:         recipient,
			AmountIn:          route.Amount.Quotient(),
			AmountOutMinimum:  MinimumAmountOut(route.Quote, slippage),
			SqrtPriceLimitX96: big.NewInt(0),
		})
	}
	return e.router.Pack("exactOutputSingle", exactOutputSingleParams{
		TokenIn:           path[0].Address,
		TokenOut:          path[1].Address,
		Fee:               new(big.Int).SetUint64(uint64(fee)),
		Recipient:         recipient,
		AmountOut:         route.Amount.Quotient(),
		AmountInMaximum:   MaximumAmountIn(route.Quote, slippage),
		SqrtPriceLimitX96: big.NewInt(0),
	})
}

func (e *Encoder) encodeV2(path []types.Token, route routing.RouteWithQuote, recipient common.Address, slippage *big.Rat) ([]byte, error) {
	addresses := make([]common.Address, len(path))
	for i, token := range path {
		addresses[i] = token.Address
	}

	if route.TradeType == types.ExactInput {
		return e.router.Pack("swapExactTokensForTokens",
			route.Amount.Quotient(),
			MinimumAmountOut(route.Quote, slippage),
			addresses,
			recipient,
		)
	}
	return e.router.Pack("swapTokensForExactTokens",
		route.Amount.Quotient(),
		MaximumAmountIn(route.Quote, slippage),
		addresses,
		recipient,
	)
}

// encodeMixed emits one call per run of same protocol pools. Intermediate runs leave
// their output in the router and later runs spend the router balance.
func (e *Encoder) encodeMixed(route routing.RouteWithQuote, opts SwapOptions) ([][]byte, error) {
	sections := splitSections(route.Route.Pools)

	calls := make([][]byte, 0, len(sections))
	start := 0
	for i, section := range sections {
		last := i == len(sections)-1
		path := route.Route.Path[start : start+len(section)+1]
		start += len(section)

		recipient := AddressThis
		minOut := big.NewInt(0)
		if last {
			recipient = opts.Recipient
			minOut = MinimumAmountOut(route.Quote, opts.SlippageTolerance)
		}
		amountIn := big.NewInt(0)
		if i == 0 {
			amountIn = route.Amount.Quotient()
		}

		var (
			call []byte
			err  error
		)
		if section[0].Protocol() == dex.ProtocolV3 {
			var encoded []byte
			encoded, err = EncodeV3Path(section, path, false)
			if err != nil {
				return nil, err
			}
			call, err = e.router.Pack("exactInput", exactInputParams{
				Path:             encoded,
				Recipient:        recipient,
				AmountIn:         amountIn,
				AmountOutMinimum: minOut,
			})
		} else {
			addresses := make([]common.Address, len(path))
			for j, token := range path {
				addresses[j] = token.Address
			}
			call, err = e.router.Pack("swapExactTokensForTokens", amountIn, minOut, addresses, recipient)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to pack mixed route section %d: %w", i, err)
		}
		calls = append(calls, call)
	}
	return calls, nil
}

func splitSections(pools []dex.Pool) [][]dex.Pool {
	var sections [][]dex.Pool
	for i, pool := range pools {
		if i == 0 || pool.Protocol() != pools[i-1].Protocol() {
			sections = append(sections, []dex.Pool{pool})
			continue
		}
		sections[len(sections)-1] = append(sections[len(sections)-1], pool)
	}
	return sections
}

// EncodeV3Path packs token, fee, token, ... as used by exactInput. With reverse set the
// path runs from the output token back to the input, as exactOutput expects.
func EncodeV3Path(pools []dex.Pool, path []types.Token, reverse bool) ([]byte, error) {
	if len(path) != len(pools)+1 {
		return nil, fmt.Errorf("path has %d tokens for %d pools", len(path), len(pools))
	}

	fees := make([]uint32, len(pools))
	for i, pool := range pools {
		fee, err := feeTier(pool)
		if err != nil {
			return nil, err
		}
		fees[i] = fee
	}

	tokens := make([]common.Address, len(path))
	for i, token := range path {
		tokens[i] = token.Address
	}
	if reverse {
		for i, j := 0, len(tokens)-1; i < j; i, j = i+1, j-1 {
			tokens[i], tokens[j] = tokens[j], tokens[i]
		}
		for i, j := 0, len(fees)-1; i < j; i, j = i+1, j-1 {
			fees[i], fees[j] = fees[j], fees[i]
		}
	}

	out := make([]byte, 0, len(tokens)*common.AddressLength+len(fees)*3)
	for i, token := range tokens {
		out = append(out, token.Bytes()...)
		if i < len(fees) {
			out = append(out, byte(fees[i]>>16), byte(fees[i]>>8), byte(fees[i]))
		}
	}
	return out, nil
}

func feeTier(pool dex.Pool) (uint32, error) {
	f, ok := pool.(interface{ FeeTier() uint32 })
	if !ok {
		return 0, fmt.Errorf("pool %s has no fee tier", pool.Address())
	}
	return f.FeeTier(), nil
}

// MinimumAmountOut is quote / (1 + slippage), rounded down
func MinimumAmountOut(quote types.CurrencyAmount, slippage *big.Rat) *big.Int {
	factor := new(big.Rat).Add(big.NewRat(1, 1), slippage)
	return quote.MulRat(factor.Inv(factor)).Quotient()
}

// MaximumAmountIn is quote * (1 + slippage), rounded down
func MaximumAmountIn(quote types.CurrencyAmount, slippage *big.Rat) *big.Int {
	factor := new(big.Rat).Add(big.NewRat(1, 1), slippage)
	return quote.MulRat(factor).Quotient()
}

// Call is one decoded router call
type Call struct {
	Method string
	Args   map[string]interface{}
}

// Decode splits a multicall back into its inner calls
func (e *Encoder) Decode(data []byte) (*big.Int, []Call, error) {
	if len(data) < 4 {
		return nil, nil, fmt.Errorf("invalid data length")
	}

	method, err := e.router.MethodById(data[:4])
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode method: %w", err)
	}
	if method.Name != "multicall" {
		return nil, nil, fmt.Errorf("expected multicall, got %s", method.Name)
	}

	params := make(map[string]interface{})
	if err := method.Inputs.UnpackIntoMap(params, data[4:]); err != nil {
		return nil, nil, fmt.Errorf("failed to decode parameters: %w", err)
	}

	deadline, ok := params["deadline"].(*big.Int)
	if !ok {
		return nil, nil, fmt.Errorf("invalid deadline")
	}
	inner, ok := params["data"].([][]byte)
	if !ok {
		return nil, nil, fmt.Errorf("invalid call data")
	}

	calls := make([]Call, 0, len(inner))
	for _, raw := range inner {
		if len(raw) < 4 {
			return nil, nil, fmt.Errorf("invalid inner call length")
		}
		m, err := e.router.MethodById(raw[:4])
		if err != nil {
			return nil, nil, fmt.Errorf("failed to decode inner method: %w", err)
		}
		args := make(map[string]interface{})
		if err := m.Inputs.UnpackIntoMap(args, raw[4:]); err != nil {
			return nil, nil, fmt.Errorf("failed to decode %s parameters: %w", m.Name, err)
		}
		calls = append(calls, Call{Method: m.Name, Args: args})
	}
	return deadline, calls, nil
}
