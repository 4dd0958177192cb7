// Package consolidator sweeps, after a successful liquidation, any
// non-stable token balance the signer holds above a configured USD
// threshold back into USDC through a single-hop swap on the preferred
// exchange. Consolidate takes every dependency as a constructor
// argument and holds no back-reference to its caller, avoiding a cyclic
// manager<->consolidator reference.
package consolidator

import (
	"context"
	"math/big"
	"time"

	"github.com/nodies-labs/liqsentinel/internal/calldata"
	"github.com/nodies-labs/liqsentinel/internal/domain"
	"github.com/nodies-labs/liqsentinel/internal/pkg/crypto/abi"
	"github.com/nodies-labs/liqsentinel/internal/pkg/errkind"
	"github.com/nodies-labs/liqsentinel/internal/pkg/hexutil"
	"github.com/nodies-labs/liqsentinel/internal/ports/outbound"
	"github.com/nodies-labs/liqsentinel/internal/routeengine"
	"github.com/nodies-labs/liqsentinel/internal/submission"
	"github.com/nodies-labs/liqsentinel/internal/txbuilder"
)

var (
	selectorBalanceOf = abi.Selector("balanceOf(address)")
	selectorDecimals  = abi.Selector("decimals()")
)

// Config holds the profit-sweep policy constants.
type Config struct {
	Tokens         []domain.Address // PROFIT_TOKENS: non-stable tokens to sweep
	USDC           domain.Address   // consolidation target
	MinSwapUSD     float64          // PROFIT_MIN_SWAP_USD
	MaxSlippageBps uint32
	SignerAddress  domain.Address
}

// Consolidator is a pure function of its injected dependencies; it holds
// no state of its own beyond Config.
type Consolidator struct {
	cfg Config

	rpc      outbound.RPCClient
	decimals outbound.DecimalsCache
	prices   outbound.PriceOracle
	route    *routeengine.Engine
	exchange routeengine.Exchange
	builder  *txbuilder.Builder
	pipeline *submission.Pipeline
	events   outbound.EventSink
}

func New(cfg Config, rpc outbound.RPCClient, decimals outbound.DecimalsCache, prices outbound.PriceOracle, route *routeengine.Engine, exchange routeengine.Exchange, builder *txbuilder.Builder, pipeline *submission.Pipeline, events outbound.EventSink) *Consolidator {
	return &Consolidator{
		cfg: cfg, rpc: rpc, decimals: decimals, prices: prices,
		route: route, exchange: exchange, builder: builder, pipeline: pipeline, events: events,
	}
}

// Consolidate iterates Config.Tokens, swapping every balance whose USD
// value exceeds MinSwapUSD into USDC, and returns the first submitted
// tx hash, if any.
func (c *Consolidator) Consolidate(ctx context.Context, block int64) (string, error) {
	first := ""
	for _, token := range c.cfg.Tokens {
		if token == c.cfg.USDC {
			continue
		}
		hash, swept, err := c.sweepToken(ctx, token, block)
		if err != nil {
			continue // per-token failures are local; try the next token
		}
		if swept && first == "" {
			first = hash
		}
	}
	return first, nil
}

func (c *Consolidator) sweepToken(ctx context.Context, token domain.Address, block int64) (string, bool, error) {
	balance, err := c.balanceOf(ctx, token, c.cfg.SignerAddress)
	if err != nil || balance.Sign() <= 0 {
		return "", false, err
	}

	decimals, err := c.resolveDecimals(ctx, token)
	if err != nil {
		return "", false, err
	}

	priceUSD, err := c.prices.PriceUSD(ctx, token)
	if err != nil || priceUSD <= 0 {
		priceUSD = 1.0
	}
	usdValue := tokenUnitsToUSD(balance, priceUSD, decimals)
	if usdValue <= c.cfg.MinSwapUSD {
		return "", false, nil
	}

	quote, err := c.route.QuoteLeg(ctx, c.exchange, token, c.cfg.USDC, balance, block)
	if err != nil || quote.AmountOut.Sign() <= 0 {
		return "", false, errkind.New(errkind.Profitability, "consolidator: no route for token->USDC")
	}
	minOut := routeengine.MinOutBps(quote.AmountOut, c.cfg.MaxSlippageBps, c.cfg.MaxSlippageBps)

	swapCalldata := calldata.BuildSwapExactTokensForTokens(balance, minOut, []domain.Address{token, c.cfg.USDC}, c.cfg.SignerAddress)

	fields, err := c.builder.Build(ctx, c.exchange.Router, swapCalldata, big.NewInt(0))
	if err != nil {
		return "", false, errkind.Wrap(errkind.Fatal, "consolidator: build tx", err)
	}

	result, err := c.pipeline.Submit(ctx, fields, 0)
	if err != nil {
		return "", false, errkind.Wrap(errkind.Submission, "consolidator: submit sweep", err)
	}

	c.emit(ctx, map[string]any{
		"token":     token.Hex(),
		"usd_value": usdValue,
		"tx_hash":   result.TxHash,
	})
	return result.TxHash, true, nil
}

func (c *Consolidator) balanceOf(ctx context.Context, token, owner domain.Address) (*big.Int, error) {
	calldataBytes := append(append([]byte{}, selectorBalanceOf[:]...), abi.EncodeAddress(owner)...)
	raw, err := c.rpc.Call(ctx, token.Hex(), calldataBytes, "latest")
	if err != nil {
		return nil, errkind.Wrap(errkind.RPC, "consolidator: balanceOf", err)
	}
	data, err := hexutil.DecodeCallResult(raw)
	if err != nil {
		return nil, err
	}
	return abi.DecodeUint256(data, 0)
}

func (c *Consolidator) resolveDecimals(ctx context.Context, token domain.Address) (uint8, error) {
	if d, ok := c.decimals.Get(token); ok {
		return d, nil
	}
	raw, err := c.rpc.Call(ctx, token.Hex(), selectorDecimals[:], "latest")
	if err != nil {
		return 0, errkind.Wrap(errkind.RPC, "consolidator: decimals()", err)
	}
	data, err := hexutil.DecodeCallResult(raw)
	if err != nil {
		return 0, err
	}
	v, err := abi.DecodeUint256(data, 0)
	if err != nil {
		return 0, errkind.Wrap(errkind.Decode, "consolidator: decode decimals()", err)
	}
	d := uint8(v.Int64())
	c.decimals.Put(token, d)
	return d, nil
}

func (c *Consolidator) emit(ctx context.Context, fields map[string]any) {
	if c.events == nil {
		return
	}
	_ = c.events.Publish(ctx, outbound.Event{Kind: outbound.EventTxSubmitted, Timestamp: time.Now(), Fields: fields})
}

// tokenUnitsToUSD converts a token-base-units balance to its USD value
// given a USD price per whole token and the token's decimals.
func tokenUnitsToUSD(units *big.Int, priceUSD float64, decimals uint8) float64 {
	scale := new(big.Float).SetFloat64(1)
	ten := big.NewFloat(10)
	for i := uint8(0); i < decimals; i++ {
		scale.Mul(scale, ten)
	}
	tokens := new(big.Float).Quo(new(big.Float).SetInt(units), scale)
	usd, _ := new(big.Float).Mul(tokens, big.NewFloat(priceUSD)).Float64()
	return usd
}
