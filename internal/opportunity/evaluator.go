// Package opportunity sizes a triggered liquidation, quotes its unwind
// route, and gates it behind a profitability guard before handing off
// ExecutorParams to the calldata assembler.
package opportunity

import (
	"context"
	"math/big"

	"github.com/nodies-labs/liqsentinel/internal/calldata"
	"github.com/nodies-labs/liqsentinel/internal/domain"
	"github.com/nodies-labs/liqsentinel/internal/pkg/crypto/abi"
	"github.com/nodies-labs/liqsentinel/internal/pkg/errkind"
	"github.com/nodies-labs/liqsentinel/internal/pkg/hexutil"
	"github.com/nodies-labs/liqsentinel/internal/ports/outbound"
	"github.com/nodies-labs/liqsentinel/internal/routeengine"
)

var selectorDecimals = abi.Selector("decimals()")

// Config holds the sizing, slippage, and profitability policy constants.
type Config struct {
	MinLiquidationUSD float64
	MaxLiquidationUSD float64
	SplitTriggerUSD    float64
	MaxSlippageBps     uint32
	FlashLoanPremiumBps uint32 // default 9 (0.09%)
	GasCostInDebtUnits  *big.Int
	SignerAddress       domain.Address

	// DefaultReserveParams is used when no override or on-chain fallback
	// resolves close_factor_bps/liquidation_bonus_bps for a debt asset.
	// There is no on-chain reserve-params fallback available, so this
	// default is surfaced explicitly rather than silently assumed; see
	// DESIGN.md.
	DefaultReserveParams domain.ReserveParams
}

// Evaluator sizes and quotes one trigger at a time; it holds no
// per-request state, only references to its collaborators.
type Evaluator struct {
	cfg Config

	rpc            outbound.RPCClient
	decimals       outbound.DecimalsCache
	reserveParams  map[domain.Address]domain.ReserveParams // overrides, by debt asset
	prices         outbound.PriceOracle
	route          *routeengine.Engine
	exchangeA      routeengine.Exchange
	exchangeB      routeengine.Exchange
	nativeWrapped  domain.Address
	canonicalStable domain.Address
}

func New(cfg Config, rpc outbound.RPCClient, decimals outbound.DecimalsCache, reserveParams map[domain.Address]domain.ReserveParams, prices outbound.PriceOracle, route *routeengine.Engine, exchangeA, exchangeB routeengine.Exchange, nativeWrapped, canonicalStable domain.Address) *Evaluator {
	return &Evaluator{
		cfg: cfg, rpc: rpc, decimals: decimals, reserveParams: reserveParams, prices: prices,
		route: route, exchangeA: exchangeA, exchangeB: exchangeB,
		nativeWrapped: nativeWrapped, canonicalStable: canonicalStable,
	}
}

// Outcome is either a built ExecutorParams ready for the calldata
// assembler, or a SkipReason explaining why evaluation aborted.
type Outcome struct {
	Params     *domain.ExecutorParams
	SkipReason domain.SkipReason
}

// Evaluate sizes, quotes, and profit-guards one trigger: resolve
// decimals and close factor, cap the repay amount, price it into debt
// and collateral units, quote the best unwind route, and accept or
// reject against the flash-loan premium plus gas cost.
func (e *Evaluator) Evaluate(ctx context.Context, target domain.LiquidationTarget, block int64) (Outcome, error) {
	debtDecimals, err := e.resolveDecimals(ctx, target.DebtAsset)
	if err != nil {
		return Outcome{SkipReason: domain.SkipDecodeError}, nil
	}
	collatDecimals, err := e.resolveDecimals(ctx, target.CollateralAsset)
	if err != nil {
		return Outcome{SkipReason: domain.SkipDecodeError}, nil
	}

	reserve := e.resolveReserveParams(target.DebtAsset)

	cappedRepayUSD := float64(reserve.CloseFactorBps) * target.EstimatedUSDValue / 10_000
	if cappedRepayUSD < e.cfg.MinLiquidationUSD {
		return Outcome{SkipReason: domain.SkipBelowMinLiquidationUSD}, nil
	}
	if cappedRepayUSD > e.cfg.MaxLiquidationUSD {
		cappedRepayUSD = e.cfg.MaxLiquidationUSD
	}

	debtPriceUSD, err := e.prices.PriceUSD(ctx, target.DebtAsset)
	if err != nil || debtPriceUSD <= 0 {
		debtPriceUSD = 1.0
	}
	collatPriceUSD, err := e.prices.PriceUSD(ctx, target.CollateralAsset)
	if err != nil || collatPriceUSD <= 0 {
		collatPriceUSD = 1.0
	}

	debtUnits := usdToUnits(cappedRepayUSD, debtPriceUSD, debtDecimals)

	// The liquidation bonus means the collateral seized is worth more than
	// the debt repaid; this
	// markup is exactly what funds the premium, gas, and profit after the
	// collateral is swapped back to the debt asset.
	seizedCollatUSD := cappedRepayUSD * float64(reserve.LiquidationBonusBps) / 10_000
	notionalCollatUnits := usdToUnits(seizedCollatUSD, collatPriceUSD, collatDecimals)

	plan, err := e.route.BestSplit(ctx, e.exchangeA, e.exchangeB, target.CollateralAsset, target.DebtAsset, notionalCollatUnits, block)
	if err == nil && cappedRepayUSD < e.cfg.SplitTriggerUSD && len(plan.Legs) > 1 {
		// Below the split trigger the whole amount goes through the one
		// exchange that quotes more for the full size.
		plan = routeengine.Plan{}
		for _, ex := range []routeengine.Exchange{e.exchangeA, e.exchangeB} {
			q, qErr := e.route.QuoteLeg(ctx, ex, target.CollateralAsset, target.DebtAsset, notionalCollatUnits, block)
			if qErr == nil && (len(plan.Legs) == 0 || q.AmountOut.Cmp(plan.Legs[0].AmountOut) > 0) {
				plan.Legs = []routeengine.Leg{{Exchange: ex, TokenIn: target.CollateralAsset, TokenOut: target.DebtAsset, AmountIn: notionalCollatUnits, AmountOut: q.AmountOut}}
			}
		}
	}
	if err != nil || plan.TotalOut().Sign() == 0 {
		return Outcome{SkipReason: domain.SkipInsufficientLiquidity}, nil
	}

	swaps, amountOutMinTotal, err := e.buildSwaps(ctx, target, plan, cappedRepayUSD)
	if err != nil {
		return Outcome{SkipReason: domain.SkipInsufficientLiquidity}, nil
	}

	premiumUnits := new(big.Int).Mul(debtUnits, big.NewInt(int64(e.flashLoanPremiumBps())))
	premiumUnits.Div(premiumUnits, big.NewInt(10_000))

	gasCostInDebtUnits, err := e.estimateGasCostInDebtUnits(ctx, target.DebtAsset, block)
	if err != nil {
		gasCostInDebtUnits = e.cfg.GasCostInDebtUnits
	}
	if gasCostInDebtUnits == nil {
		gasCostInDebtUnits = big.NewInt(0)
	}

	required := new(big.Int).Add(debtUnits, premiumUnits)
	required.Add(required, gasCostInDebtUnits)

	if amountOutMinTotal.Cmp(required) < 0 {
		return Outcome{SkipReason: domain.SkipProfitGuard}, nil
	}

	params := &domain.ExecutorParams{
		User:            target.User,
		DebtAsset:       target.DebtAsset,
		DebtToCover:     debtUnits,
		CollateralAsset: target.CollateralAsset,
		Swaps:           swaps,
		ProfitReceiver:  e.cfg.SignerAddress,
		MinProfit:       big.NewInt(1),
	}
	return Outcome{Params: params}, nil
}

func (e *Evaluator) flashLoanPremiumBps() uint32 {
	if e.cfg.FlashLoanPremiumBps == 0 {
		return 9
	}
	return e.cfg.FlashLoanPremiumBps
}

// buildSwaps converts the route plan's legs into executor Swap entries,
// deciding single-route vs. split by the configured USD threshold, and sums each leg's slippage-clamped minimum output.
func (e *Evaluator) buildSwaps(ctx context.Context, target domain.LiquidationTarget, plan routeengine.Plan, opportunityUSD float64) ([]domain.Swap, *big.Int, error) {
	legs := plan.Legs
	if opportunityUSD < e.cfg.SplitTriggerUSD && len(legs) > 1 {
		legs = legs[:1]
	}

	swaps := make([]domain.Swap, 0, len(legs))
	total := big.NewInt(0)
	for _, leg := range legs {
		minOut := routeengine.MinOutBps(leg.AmountOut, e.cfg.MaxSlippageBps, e.cfg.MaxSlippageBps)
		swapCalldata := calldata.BuildSwapExactTokensForTokens(leg.AmountIn, minOut, []domain.Address{leg.TokenIn, leg.TokenOut}, e.cfg.SignerAddress)
		swaps = append(swaps, domain.Swap{Router: leg.Exchange.Router, CallDataBytes: swapCalldata})
		total.Add(total, minOut)
	}
	if len(swaps) == 0 {
		return nil, nil, errkind.New(errkind.Profitability, "opportunity: no swap legs produced")
	}
	return swaps, total, nil
}

// estimateGasCostInDebtUnits quotes native_wrapped -> debt_asset directly,
// falling back via a canonical stable if the direct route fails. The
// wei->gas-units conversion itself is deliberately a configured policy
// (Config.GasCostInDebtUnits as the fallback) rather than a fixed
// dimensional conversion, since the true gas-to-token-units ratio moves
// with gas price and is better tuned as an operator-set number.
func (e *Evaluator) estimateGasCostInDebtUnits(ctx context.Context, debtAsset domain.Address, block int64) (*big.Int, error) {
	if e.nativeWrapped.IsZero() {
		return nil, errkind.New(errkind.Profitability, "opportunity: no native_wrapped configured")
	}
	gasUnitsInWei := e.cfg.GasCostInDebtUnits
	if gasUnitsInWei == nil || gasUnitsInWei.Sign() == 0 {
		return nil, errkind.New(errkind.Profitability, "opportunity: no gas cost policy configured")
	}

	q, err := e.route.QuoteLeg(ctx, e.exchangeA, e.nativeWrapped, debtAsset, gasUnitsInWei, block)
	if err == nil && q.AmountOut.Sign() > 0 {
		return q.AmountOut, nil
	}
	if !e.canonicalStable.IsZero() {
		viaStable, err := e.route.QuoteLeg(ctx, e.exchangeA, e.nativeWrapped, e.canonicalStable, gasUnitsInWei, block)
		if err == nil && viaStable.AmountOut.Sign() > 0 {
			final, err := e.route.QuoteLeg(ctx, e.exchangeA, e.canonicalStable, debtAsset, viaStable.AmountOut, block)
			if err == nil {
				return final.AmountOut, nil
			}
		}
	}
	return nil, errkind.New(errkind.Profitability, "opportunity: gas quote unavailable")
}

func (e *Evaluator) resolveReserveParams(debtAsset domain.Address) domain.ReserveParams {
	if p, ok := e.reserveParams[debtAsset]; ok {
		return p
	}
	return e.cfg.DefaultReserveParams
}

func (e *Evaluator) resolveDecimals(ctx context.Context, token domain.Address) (uint8, error) {
	if d, ok := e.decimals.Get(token); ok {
		return d, nil
	}
	raw, err := e.rpc.Call(ctx, token.Hex(), selectorDecimals[:], "latest")
	if err != nil {
		return 0, errkind.Wrap(errkind.RPC, "opportunity: decimals()", err)
	}
	data, err := hexutil.DecodeCallResult(raw)
	if err != nil {
		return 0, err
	}
	v, err := abi.DecodeUint256(data, 0)
	if err != nil {
		return 0, errkind.Wrap(errkind.Decode, "opportunity: decode decimals()", err)
	}
	d := uint8(v.Int64())
	e.decimals.Put(token, d)
	return d, nil
}

// usdToUnits converts a USD amount to token base units given a USD price
// per whole token and the token's decimals.
func usdToUnits(usd float64, priceUSD float64, decimals uint8) *big.Int {
	if priceUSD <= 0 {
		priceUSD = 1.0
	}
	tokens := usd / priceUSD
	scale := new(big.Float).SetFloat64(1)
	ten := big.NewFloat(10)
	for i := uint8(0); i < decimals; i++ {
		scale.Mul(scale, ten)
	}
	units := new(big.Float).Mul(big.NewFloat(tokens), scale)
	out, _ := units.Int(nil)
	return out
}

