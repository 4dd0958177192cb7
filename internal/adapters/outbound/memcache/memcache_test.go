package memcache

import (
	"math/big"
	"testing"

	"github.com/nodies-labs/liqsentinel/internal/domain"
	"github.com/nodies-labs/liqsentinel/internal/ports/outbound"
)

func addr(t *testing.T, s string) domain.Address {
	t.Helper()
	a, err := domain.ParseAddress(s)
	if err != nil {
		t.Fatalf("bad address: %v", err)
	}
	return a
}

func TestDecimalsCacheRoundTrip(t *testing.T) {
	c := NewDecimals()
	tok := addr(t, "0x0000000000000000000000000000000000000001")
	if _, ok := c.Get(tok); ok {
		t.Fatalf("expected miss before Put")
	}
	c.Put(tok, 6)
	got, ok := c.Get(tok)
	if !ok || got != 6 {
		t.Errorf("got (%d, %v), want (6, true)", got, ok)
	}
}

func TestPairCacheIsOrderIndependent(t *testing.T) {
	c := NewPairs()
	factory := addr(t, "0x0000000000000000000000000000000000000009")
	a := addr(t, "0x0000000000000000000000000000000000000001")
	b := addr(t, "0x0000000000000000000000000000000000000002")
	pair := addr(t, "0x00000000000000000000000000000000000000aa")

	c.Put(outbound.PairKey{Factory: factory, TokenA: a, TokenB: b}, pair)

	got, ok := c.Get(outbound.PairKey{Factory: factory, TokenA: b, TokenB: a})
	if !ok || got != pair {
		t.Errorf("expected cache hit regardless of token order, got (%v, %v)", got, ok)
	}
}

func TestReservesCacheMissesOnStaleBlock(t *testing.T) {
	c := NewReserves()
	pair := addr(t, "0x00000000000000000000000000000000000000aa")
	c.Put(pair, domain.PairReserves{PairAddress: pair, ReserveIn: big.NewInt(1), ReserveOut: big.NewInt(2), BlockNumber: 100})

	if _, ok := c.Get(pair, 99); ok {
		t.Errorf("expected miss for a different block number than cached")
	}
	if _, ok := c.Get(pair, 100); !ok {
		t.Errorf("expected hit for the exact cached block")
	}
}

func TestReservesCacheEvictBelowDropsStaleEntries(t *testing.T) {
	c := NewReserves()
	stale := addr(t, "0x0000000000000000000000000000000000000001")
	fresh := addr(t, "0x0000000000000000000000000000000000000002")
	c.Put(stale, domain.PairReserves{PairAddress: stale, ReserveIn: big.NewInt(1), ReserveOut: big.NewInt(1), BlockNumber: 10})
	c.Put(fresh, domain.PairReserves{PairAddress: fresh, ReserveIn: big.NewInt(1), ReserveOut: big.NewInt(1), BlockNumber: 20})

	c.EvictBelow(20)

	if _, ok := c.Get(stale, 10); ok {
		t.Errorf("stale entry should have been evicted")
	}
	if _, ok := c.Get(fresh, 20); !ok {
		t.Errorf("fresh entry should survive eviction")
	}
}

func TestRouterQuoteCacheReturnsIndependentCopies(t *testing.T) {
	c := NewRouterQuotes()
	key := outbound.QuoteKey{Router: addr(t, "0x0000000000000000000000000000000000000001"), Path: "a>b", AmountIn: "1000", Block: 5}
	c.Put(key, big.NewInt(42))

	got, ok := c.Get(key)
	if !ok || got.Cmp(big.NewInt(42)) != 0 {
		t.Fatalf("got (%v, %v), want (42, true)", got, ok)
	}
	got.Add(got, big.NewInt(1)) // mutate the returned copy

	got2, _ := c.Get(key)
	if got2.Cmp(big.NewInt(42)) != 0 {
		t.Errorf("mutating the returned value leaked into the cache: got %v", got2)
	}
}

func TestRouterQuoteCacheEvictBelow(t *testing.T) {
	c := NewRouterQuotes()
	old := outbound.QuoteKey{Router: addr(t, "0x0000000000000000000000000000000000000001"), Path: "a>b", AmountIn: "1", Block: 1}
	new_ := outbound.QuoteKey{Router: addr(t, "0x0000000000000000000000000000000000000001"), Path: "a>b", AmountIn: "1", Block: 2}
	c.Put(old, big.NewInt(1))
	c.Put(new_, big.NewInt(2))

	c.EvictBelow(2)

	if _, ok := c.Get(old); ok {
		t.Errorf("old-block quote should be evicted")
	}
	if _, ok := c.Get(new_); !ok {
		t.Errorf("current-block quote should survive")
	}
}
