// Package routeengine does constant-product local quoting across two
// configured V2-style exchanges, with an on-chain getAmountsOut
// fallback, fixed-ratio splitting, and slippage-clamped minimum-output
// computation, built on this repo's hand-rolled abi package rather than
// a reflective encoder.
package routeengine

import (
	"github.com/nodies-labs/liqsentinel/internal/domain"
	"github.com/nodies-labs/liqsentinel/internal/pkg/crypto/abi"
)

// Exchange is one configured V2-style venue (e.g. QuickSwap, SushiSwap).
type Exchange struct {
	Name    string
	Factory domain.Address
	Router  domain.Address
}

var (
	selectorGetPair       = abi.Selector("getPair(address,address)")
	selectorGetReserves   = abi.Selector("getReserves()")
	selectorGetAmountsOut = abi.Selector("getAmountsOut(uint256,address[])")
)
