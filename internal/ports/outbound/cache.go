// Package outbound's cache ports describe four named per-block-aware
// caches: decimals, pair addresses, reserves, and router quotes.
// EvictBelow drops every entry older than a given block, since this
// pipeline's freshness boundary is
// "older than the newest scanned block," not one specific block number.
package outbound

import (
	"math/big"

	"github.com/nodies-labs/liqsentinel/internal/domain"
)

// DecimalsCache resolves and memoizes ERC-20 decimals, a value that never
// changes for a deployed token.
type DecimalsCache interface {
	Get(token domain.Address) (uint8, bool)
	Put(token domain.Address, decimals uint8)
}

// PairKey identifies one constant-product pair by its factory and the two
// token addresses, independent of which order the caller supplied them in.
type PairKey struct {
	Factory domain.Address
	TokenA  domain.Address
	TokenB  domain.Address
}

// PairCache resolves and memoizes a factory's pair address for a token
// pair. Pairs are immutable once deployed, so entries are never evicted.
type PairCache interface {
	Get(key PairKey) (domain.Address, bool)
	Put(key PairKey, pair domain.Address)
}

// ReservesCache holds the newest-known reserves for a pair, keyed by block
// number so a scan never reads a stale block's reserves.
type ReservesCache interface {
	Get(pair domain.Address, block int64) (domain.PairReserves, bool)
	Put(pair domain.Address, reserves domain.PairReserves)
	// EvictBelow drops every entry whose block is older than newestBlock,
	// enforcing freshness structurally rather than by convention.
	EvictBelow(newestBlock int64)
}

// QuoteKey identifies one router quote by its router, path, and input
// amount, at a specific block.
type QuoteKey struct {
	Router   domain.Address
	Path     string // canonical joined hex addresses, caller-computed
	AmountIn string // decimal string of *big.Int, for map-key stability
	Block    int64
}

// RouterQuoteCache memoizes on-chain getAmountsOut fallback results.
type RouterQuoteCache interface {
	Get(key QuoteKey) (*big.Int, bool)
	Put(key QuoteKey, amountOut *big.Int)
	EvictBelow(newestBlock int64)
}
