// Package memcache implements the in-process default for every cache
// port in internal/ports/outbound/cache.go: plain maps behind a mutex,
// standing in for a Redis-backed implementation when the deployment is
// single-process.
package memcache

import (
	"math/big"
	"sync"

	"github.com/nodies-labs/liqsentinel/internal/domain"
	"github.com/nodies-labs/liqsentinel/internal/ports/outbound"
)

// Decimals is the in-memory outbound.DecimalsCache.
type Decimals struct {
	mu sync.Mutex
	m  map[domain.Address]uint8
}

var _ outbound.DecimalsCache = (*Decimals)(nil)

func NewDecimals() *Decimals {
	return &Decimals{m: make(map[domain.Address]uint8)}
}

func (d *Decimals) Get(token domain.Address) (uint8, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, ok := d.m[token]
	return v, ok
}

func (d *Decimals) Put(token domain.Address, decimals uint8) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.m[token] = decimals
}

// Pairs is the in-memory outbound.PairCache.
type Pairs struct {
	mu sync.Mutex
	m  map[outbound.PairKey]domain.Address
}

var _ outbound.PairCache = (*Pairs)(nil)

func NewPairs() *Pairs {
	return &Pairs{m: make(map[outbound.PairKey]domain.Address)}
}

// normalize makes the key order-independent: (factory, tokenA, tokenB)
// and (factory, tokenB, tokenA) must resolve to the same cache slot.
func normalize(key outbound.PairKey) outbound.PairKey {
	if key.TokenB.Less(key.TokenA) {
		key.TokenA, key.TokenB = key.TokenB, key.TokenA
	}
	return key
}

func (p *Pairs) Get(key outbound.PairKey) (domain.Address, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.m[normalize(key)]
	return v, ok
}

func (p *Pairs) Put(key outbound.PairKey, pair domain.Address) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.m[normalize(key)] = pair
}

type reservesEntry struct {
	reserves domain.PairReserves
	block    int64
}

// Reserves is the in-memory outbound.ReservesCache, using an RWMutex since
// reads (one per scan iteration) vastly outnumber writes.
type Reserves struct {
	mu sync.RWMutex
	m  map[domain.Address]reservesEntry
}

var _ outbound.ReservesCache = (*Reserves)(nil)

func NewReserves() *Reserves {
	return &Reserves{m: make(map[domain.Address]reservesEntry)}
}

func (r *Reserves) Get(pair domain.Address, block int64) (domain.PairReserves, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.m[pair]
	if !ok || e.block != block {
		return domain.PairReserves{}, false
	}
	return e.reserves, true
}

func (r *Reserves) Put(pair domain.Address, reserves domain.PairReserves) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m[pair] = reservesEntry{reserves: reserves, block: reserves.BlockNumber}
}

func (r *Reserves) EvictBelow(newestBlock int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, e := range r.m {
		if e.block < newestBlock {
			delete(r.m, k)
		}
	}
}

// RouterQuotes is the in-memory outbound.RouterQuoteCache.
type RouterQuotes struct {
	mu sync.RWMutex
	m  map[outbound.QuoteKey]quoteEntry
}

type quoteEntry struct {
	amountOut *big.Int
	block     int64
}

var _ outbound.RouterQuoteCache = (*RouterQuotes)(nil)

func NewRouterQuotes() *RouterQuotes {
	return &RouterQuotes{m: make(map[outbound.QuoteKey]quoteEntry)}
}

func (q *RouterQuotes) Get(key outbound.QuoteKey) (*big.Int, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	e, ok := q.m[key]
	if !ok {
		return nil, false
	}
	return new(big.Int).Set(e.amountOut), true
}

func (q *RouterQuotes) Put(key outbound.QuoteKey, amountOut *big.Int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.m[key] = quoteEntry{amountOut: new(big.Int).Set(amountOut), block: key.Block}
}

func (q *RouterQuotes) EvictBelow(newestBlock int64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for k, e := range q.m {
		if e.block < newestBlock {
			delete(q.m, k)
		}
	}
}
