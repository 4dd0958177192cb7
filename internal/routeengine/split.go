package routeengine

import (
	"context"
	"math/big"

	"github.com/nodies-labs/liqsentinel/internal/domain"
)

// splitRatiosBps are the fixed ratios evaluated when splitting a route
// across two exchanges, expressed as basis points of the total
// allocated to the first exchange (the remainder goes to the second).
var splitRatiosBps = []int64{10_000, 7_500, 5_000, 2_500, 0}

// Leg is one portion of a route plan: swap `AmountIn` of `TokenIn` for
// `TokenOut` on `Exchange`.
type Leg struct {
	Exchange  Exchange
	TokenIn   domain.Address
	TokenOut  domain.Address
	AmountIn  *big.Int
	AmountOut *big.Int
}

// Plan is the chosen route: one or two legs whose AmountOut sums are
// maximal among the evaluated fixed ratios.
type Plan struct {
	Legs []Leg
}

// TotalOut sums AmountOut across all legs.
func (p Plan) TotalOut() *big.Int {
	total := big.NewInt(0)
	for _, l := range p.Legs {
		total.Add(total, l.AmountOut)
	}
	return total
}

// BestSplit evaluates the fixed ratios {100/0, 75/25, 50/50, 25/75, 0/100}
// across exchangeA and exchangeB and returns the plan maximizing summed
// output. Ratios that allocate 0 to an exchange
// collapse to a single leg.
func (e *Engine) BestSplit(ctx context.Context, exchangeA, exchangeB Exchange, tokenIn, tokenOut domain.Address, amountIn *big.Int, block int64) (Plan, error) {
	var best Plan
	var bestTotal *big.Int

	for _, ratioBps := range splitRatiosBps {
		plan, err := e.quoteSplit(ctx, exchangeA, exchangeB, tokenIn, tokenOut, amountIn, block, ratioBps)
		if err != nil {
			continue
		}
		total := plan.TotalOut()
		if bestTotal == nil || total.Cmp(bestTotal) > 0 {
			bestTotal = total
			best = plan
		}
	}

	if bestTotal == nil {
		return Plan{}, errNoViableRoute
	}
	return best, nil
}

func (e *Engine) quoteSplit(ctx context.Context, exchangeA, exchangeB Exchange, tokenIn, tokenOut domain.Address, amountIn *big.Int, block int64, ratioBps int64) (Plan, error) {
	amountA := new(big.Int).Mul(amountIn, big.NewInt(ratioBps))
	amountA.Div(amountA, big.NewInt(10_000))
	amountB := new(big.Int).Sub(amountIn, amountA)

	var legs []Leg
	if amountA.Sign() > 0 {
		q, err := e.QuoteLeg(ctx, exchangeA, tokenIn, tokenOut, amountA, block)
		if err != nil {
			return Plan{}, err
		}
		legs = append(legs, Leg{Exchange: exchangeA, TokenIn: tokenIn, TokenOut: tokenOut, AmountIn: amountA, AmountOut: q.AmountOut})
	}
	if amountB.Sign() > 0 {
		q, err := e.QuoteLeg(ctx, exchangeB, tokenIn, tokenOut, amountB, block)
		if err != nil {
			return Plan{}, err
		}
		legs = append(legs, Leg{Exchange: exchangeB, TokenIn: tokenIn, TokenOut: tokenOut, AmountIn: amountB, AmountOut: q.AmountOut})
	}
	return Plan{Legs: legs}, nil
}

// MinOutBps computes the slippage-clamped minimum output for a quoted
// amount:
//
//	amount_out_min = floor(quoted_out * (10_000 - clamped_slippage_bps) / 10_000)
//	clamped_slippage_bps = min(requestedBps, maxBps)
func MinOutBps(quotedOut *big.Int, requestedBps, maxBps uint32) *big.Int {
	clamped := requestedBps
	if clamped > maxBps {
		clamped = maxBps
	}
	factor := int64(10_000) - int64(clamped)
	out := new(big.Int).Mul(quotedOut, big.NewInt(factor))
	return out.Div(out, big.NewInt(10_000))
}

type routeError string

func (e routeError) Error() string { return string(e) }

const errNoViableRoute = routeError("routeengine: no viable route across configured exchanges")
