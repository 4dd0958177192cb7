package routeengine

import (
	"context"
	"math/big"

	"github.com/nodies-labs/liqsentinel/internal/domain"
	"github.com/nodies-labs/liqsentinel/internal/pkg/crypto/abi"
	"github.com/nodies-labs/liqsentinel/internal/pkg/errkind"
	"github.com/nodies-labs/liqsentinel/internal/pkg/hexutil"
	"github.com/nodies-labs/liqsentinel/internal/ports/outbound"
)

// feeNumerator/feeDenominator encode the 30-bps (0.3%) V2 swap fee as the
// canonical 997/1000 constant-product multiplier.
const (
	feeNumerator   = 997
	feeDenominator = 1000
)

// Engine is the Route & Quote Engine. It holds no per-request state; all
// memoization lives in the injected caches so the engine itself can be
// constructed once and shared across concurrent evaluations.
type Engine struct {
	rpc      outbound.RPCClient
	pairs    outbound.PairCache
	reserves outbound.ReservesCache
	quotes   outbound.RouterQuoteCache
}

func New(rpc outbound.RPCClient, pairs outbound.PairCache, reserves outbound.ReservesCache, quotes outbound.RouterQuoteCache) *Engine {
	return &Engine{rpc: rpc, pairs: pairs, reserves: reserves, quotes: quotes}
}

// Quote is the result of quoting one (exchange, tokenIn, tokenOut,
// amountIn) leg: the amount out, and whether it came from local
// constant-product math or the router fallback.
type Quote struct {
	Exchange  Exchange
	AmountOut *big.Int
	ViaRouter bool
}

// ResolvePair resolves and caches the factory's pair address for two
// tokens.
func (e *Engine) ResolvePair(ctx context.Context, ex Exchange, tokenA, tokenB domain.Address) (domain.Address, error) {
	key := outbound.PairKey{Factory: ex.Factory, TokenA: tokenA, TokenB: tokenB}
	if cached, ok := e.pairs.Get(key); ok {
		return cached, nil
	}

	calldata := append(append([]byte{}, selectorGetPair[:]...), abi.EncodeAddress(tokenA)...)
	calldata = append(calldata, abi.EncodeAddress(tokenB)...)

	raw, err := e.rpc.Call(ctx, ex.Factory.Hex(), calldata, "latest")
	if err != nil {
		return domain.Address{}, errkind.Wrap(errkind.RPC, "routeengine: getPair", err)
	}
	data, err := hexutil.DecodeCallResult(raw)
	if err != nil {
		return domain.Address{}, err
	}
	pair, err := abi.DecodeAddress(data, 0)
	if err != nil {
		return domain.Address{}, errkind.Wrap(errkind.Decode, "routeengine: decode getPair result", err)
	}
	e.pairs.Put(key, pair)
	return pair, nil
}

// ResolveReserves resolves and caches a pair's reserves at the given
// block, aligned to (tokenIn, tokenOut) order.
func (e *Engine) ResolveReserves(ctx context.Context, pair, tokenIn, tokenOut domain.Address, block int64) (domain.PairReserves, error) {
	if cached, ok := e.reserves.Get(pair, block); ok {
		return alignReserves(cached, tokenIn, tokenOut), nil
	}

	raw, err := e.rpc.Call(ctx, pair.Hex(), selectorGetReserves[:], "latest")
	if err != nil {
		return domain.PairReserves{}, errkind.Wrap(errkind.RPC, "routeengine: getReserves", err)
	}
	data, err := hexutil.DecodeCallResult(raw)
	if err != nil {
		return domain.PairReserves{}, err
	}
	reserve0, err := abi.DecodeUint256(data, 0)
	if err != nil {
		return domain.PairReserves{}, errkind.Wrap(errkind.Decode, "routeengine: decode reserve0", err)
	}
	reserve1, err := abi.DecodeUint256(data, 1)
	if err != nil {
		return domain.PairReserves{}, errkind.Wrap(errkind.Decode, "routeengine: decode reserve1", err)
	}

	// Store canonically as (token0=smaller address, token1), then align per
	// caller's requested direction on every read.
	canonical := domain.PairReserves{PairAddress: pair, ReserveIn: reserve0, ReserveOut: reserve1, BlockNumber: block}
	e.reserves.Put(pair, canonical)
	return alignReserves(canonical, tokenIn, tokenOut), nil
}

// alignReserves flips (ReserveIn, ReserveOut) if tokenIn is not the
// lexicographically smaller address the store treated as token0. The cache always stores canonical (token0, token1) order;
// this function assumes the caller already knows which of tokenIn/tokenOut
// is token0 via address comparison.
func alignReserves(canonical domain.PairReserves, tokenIn, tokenOut domain.Address) domain.PairReserves {
	if tokenIn.Less(tokenOut) {
		// tokenIn is token0: canonical order already matches (in, out).
		return canonical
	}
	return domain.PairReserves{
		PairAddress: canonical.PairAddress,
		ReserveIn:   canonical.ReserveOut,
		ReserveOut:  canonical.ReserveIn,
		BlockNumber: canonical.BlockNumber,
	}
}

// LocalQuote computes the canonical V2 constant-product output for
// amountIn against the given reserves:
//
//	amount_out = (amount_in * 997 * reserve_out) / (reserve_in * 1000 + amount_in * 997)
func LocalQuote(amountIn *big.Int, reserves domain.PairReserves) *big.Int {
	if amountIn == nil || amountIn.Sign() <= 0 {
		return big.NewInt(0)
	}
	if reserves.ReserveIn == nil || reserves.ReserveOut == nil || reserves.ReserveIn.Sign() <= 0 || reserves.ReserveOut.Sign() <= 0 {
		return big.NewInt(0)
	}

	amountInWithFee := new(big.Int).Mul(amountIn, big.NewInt(feeNumerator))
	numerator := new(big.Int).Mul(amountInWithFee, reserves.ReserveOut)
	denominator := new(big.Int).Mul(reserves.ReserveIn, big.NewInt(feeDenominator))
	denominator.Add(denominator, amountInWithFee)
	if denominator.Sign() == 0 {
		return big.NewInt(0)
	}
	return numerator.Div(numerator, denominator)
}

// QuoteLeg quotes one (exchange, tokenIn, tokenOut, amountIn) leg at the
// given block: local constant-product math first, falling back to the
// router's getAmountsOut on-chain if no pair/reserves are resolvable.
func (e *Engine) QuoteLeg(ctx context.Context, ex Exchange, tokenIn, tokenOut domain.Address, amountIn *big.Int, block int64) (Quote, error) {
	pair, err := e.ResolvePair(ctx, ex, tokenIn, tokenOut)
	if err == nil && !pair.IsZero() {
		reserves, rErr := e.ResolveReserves(ctx, pair, tokenIn, tokenOut, block)
		if rErr == nil {
			out := LocalQuote(amountIn, reserves)
			if out.Sign() > 0 {
				return Quote{Exchange: ex, AmountOut: out}, nil
			}
		}
	}

	out, fbErr := e.quoteViaRouter(ctx, ex, tokenIn, tokenOut, amountIn, block)
	if fbErr != nil {
		return Quote{}, fbErr
	}
	return Quote{Exchange: ex, AmountOut: out, ViaRouter: true}, nil
}

func (e *Engine) quoteViaRouter(ctx context.Context, ex Exchange, tokenIn, tokenOut domain.Address, amountIn *big.Int, block int64) (*big.Int, error) {
	key := outbound.QuoteKey{Router: ex.Router, Path: tokenIn.Hex() + ">" + tokenOut.Hex(), AmountIn: amountIn.String(), Block: block}
	if cached, ok := e.quotes.Get(key); ok {
		return cached, nil
	}

	calldata := append(append([]byte{}, selectorGetAmountsOut[:]...), abi.EncodeUint256(amountIn)...)
	// Dynamic address[] argument: head offset word (64, after the two head
	// slots) then the array encoding itself.
	calldata = append(calldata, abi.EncodeUint256(big.NewInt(64))...)
	calldata = append(calldata, abi.EncodeAddressArray([]domain.Address{tokenIn, tokenOut})...)

	raw, err := e.rpc.Call(ctx, ex.Router.Hex(), calldata, "latest")
	if err != nil {
		return nil, errkind.Wrap(errkind.RPC, "routeengine: getAmountsOut", err)
	}
	data, err := hexutil.DecodeCallResult(raw)
	if err != nil {
		return nil, err
	}
	offset, err := abi.DecodeOffsetWord(data, 0)
	if err != nil {
		return nil, errkind.Wrap(errkind.Decode, "routeengine: decode getAmountsOut offset", err)
	}
	amounts, err := abi.DecodeUint256DynamicArray(data, offset)
	if err != nil {
		return nil, errkind.Wrap(errkind.Decode, "routeengine: decode getAmountsOut amounts", err)
	}
	if len(amounts) == 0 {
		return nil, errkind.New(errkind.Decode, "routeengine: getAmountsOut returned no amounts")
	}
	out := amounts[len(amounts)-1]
	e.quotes.Put(key, out)
	return out, nil
}
